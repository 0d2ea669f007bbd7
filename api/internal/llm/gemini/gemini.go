package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"cf-hints/api/internal/llm"
	"cf-hints/api/internal/util"
)

const (
	DefaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	DefaultModel   = "gemini-2.0-flash"
)

// Engine calls the generateContent REST endpoint with the key in the query string.
type Engine struct {
	BaseURL string
	Model   string
	httpc   *http.Client
}

func New(baseURL, model string, timeout time.Duration) *Engine {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = DefaultBaseURL
	}
	if strings.TrimSpace(model) == "" {
		model = DefaultModel
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Engine{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Model:   model,
		httpc:   &http.Client{Timeout: timeout},
	}
}

func (e *Engine) Name() string { return "gemini" }

type generateRequest struct {
	Contents []content `json:"contents"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generateResponse struct {
	Candidates []struct {
		Content *struct {
			Parts []struct {
				Text *string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

func (e *Engine) Complete(ctx context.Context, prompt string, cred llm.Credential) (string, error) {
	if cred == "" {
		return "", fmt.Errorf("%w: gemini: API key is empty", llm.ErrTransport)
	}
	payload, err := json.Marshal(generateRequest{
		Contents: []content{{Parts: []part{{Text: prompt}}}},
	})
	if err != nil {
		return "", fmt.Errorf("%w: gemini: encode request: %v", llm.ErrTransport, err)
	}
	endpoint := fmt.Sprintf("%s/models/%s:generateContent?key=%s", e.BaseURL, e.Model, url.QueryEscape(string(cred)))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("%w: gemini: build request: %v", llm.ErrTransport, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.httpc.Do(req)
	if err != nil {
		// url.Error carries the endpoint, and with it the key
		return "", fmt.Errorf("%w: gemini: %v", llm.ErrTransport, redact(err.Error(), string(cred)))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: gemini: read body: %v", llm.ErrTransport, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("%w: gemini %d: %s", llm.ErrTransport, resp.StatusCode, util.Truncate(string(body), 512))
	}

	var out generateResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return "", fmt.Errorf("%w: gemini: bad JSON: %v", llm.ErrMalformedResponse, err)
	}
	if len(out.Candidates) == 0 {
		return "", fmt.Errorf("%w: gemini: no candidates", llm.ErrMalformedResponse)
	}
	first := out.Candidates[0]
	if first.Content == nil || len(first.Content.Parts) == 0 || first.Content.Parts[0].Text == nil {
		return "", fmt.Errorf("%w: gemini: first candidate has no text part", llm.ErrMalformedResponse)
	}

	text := util.StripCodeFences(*first.Content.Parts[0].Text)
	if text == "" {
		return "", fmt.Errorf("%w: gemini returned no text", llm.ErrEmptyOutput)
	}
	return text, nil
}

func redact(s, secret string) string {
	if secret == "" {
		return s
	}
	s = strings.ReplaceAll(s, secret, "REDACTED")
	return strings.ReplaceAll(s, url.QueryEscape(secret), "REDACTED")
}
