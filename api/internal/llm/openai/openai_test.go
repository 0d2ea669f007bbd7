package openai

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cf-hints/api/internal/llm"
)

func chatServer(t *testing.T, status int, body string, seen func(*http.Request, map[string]any)) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		if seen != nil {
			var m map[string]any
			_ = json.Unmarshal(raw, &m)
			seen(r, m)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestComplete_OK(t *testing.T) {
	var auth, path string
	var req map[string]any
	srv := chatServer(t, http.StatusOK,
		`{"id":"1","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":"{\"hints\":[\"a\"]}"},"finish_reason":"stop"}]}`,
		func(r *http.Request, m map[string]any) {
			auth = r.Header.Get("Authorization")
			path = r.URL.Path
			req = m
		})

	out, err := New(srv.URL+"/v1", "gpt-test", time.Second).Complete(context.Background(), "hello", "sk-1")
	require.NoError(t, err)
	assert.Equal(t, `{"hints":["a"]}`, out)
	assert.Equal(t, "Bearer sk-1", auth)
	assert.Equal(t, "/v1/chat/completions", path)
	assert.Equal(t, "gpt-test", req["model"])
	msgs, ok := req["messages"].([]any)
	require.True(t, ok)
	require.Len(t, msgs, 1)
	assert.Equal(t, "hello", msgs[0].(map[string]any)["content"])
}

func TestComplete_ErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   error
	}{
		{"server error", http.StatusInternalServerError, `{"error":{"message":"boom","type":"server_error"}}`, llm.ErrTransport},
		{"unauthorized", http.StatusUnauthorized, `{"error":{"message":"bad key"}}`, llm.ErrTransport},
		{"no choices", http.StatusOK, `{"choices":[]}`, llm.ErrMalformedResponse},
		{"empty content", http.StatusOK, `{"choices":[{"message":{"role":"assistant","content":"  "}}]}`, llm.ErrEmptyOutput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := chatServer(t, tt.status, tt.body, nil)
			_, err := New(srv.URL+"/v1", "", time.Second).Complete(context.Background(), "p", "sk")
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestComplete_EmptyKey(t *testing.T) {
	_, err := New("", "", time.Second).Complete(context.Background(), "p", "")
	assert.ErrorIs(t, err, llm.ErrTransport)
}
