package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	"cf-hints/api/internal/llm"
	"cf-hints/api/internal/util"
)

const DefaultModel = "gpt-4o-mini"

// Engine sends the prompt as a single user message to a chat-completions API.
// BaseURL may point at any OpenAI-compatible server.
type Engine struct {
	BaseURL string
	Model   string
	httpc   *http.Client
}

func New(baseURL, model string, timeout time.Duration) *Engine {
	if strings.TrimSpace(model) == "" {
		model = DefaultModel
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Engine{
		BaseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		Model:   model,
		httpc:   &http.Client{Timeout: timeout},
	}
}

func (e *Engine) Name() string { return "openai" }

func (e *Engine) Complete(ctx context.Context, prompt string, cred llm.Credential) (string, error) {
	if cred == "" {
		return "", fmt.Errorf("%w: openai: API key is empty", llm.ErrTransport)
	}
	cfg := openai.DefaultConfig(string(cred))
	if e.BaseURL != "" {
		cfg.BaseURL = e.BaseURL
	}
	cfg.HTTPClient = e.httpc
	client := openai.NewClientWithConfig(cfg)

	resp, err := client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: e.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return "", classify(err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: openai: no choices", llm.ErrMalformedResponse)
	}
	txt := util.StripCodeFences(resp.Choices[0].Message.Content)
	if txt == "" {
		return "", fmt.Errorf("%w: openai returned no text", llm.ErrEmptyOutput)
	}
	return txt, nil
}

func classify(err error) error {
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
		return fmt.Errorf("%w: openai: %v", llm.ErrMalformedResponse, err)
	}
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("%w: openai %d: %s", llm.ErrTransport, apiErr.HTTPStatusCode, util.Truncate(apiErr.Message, 512))
	}
	return fmt.Errorf("%w: openai: %v", llm.ErrTransport, err)
}
