package gemini

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"cf-hints/api/internal/llm"
	"cf-hints/api/internal/util"
)

// SDKEngine talks to Gemini through the generative-ai-go client.
type SDKEngine struct {
	Model string
	opts  []option.ClientOption
}

// NewSDK builds an SDK-backed engine. Extra options (endpoint, http client)
// are appended after the API key.
func NewSDK(model string, opts ...option.ClientOption) *SDKEngine {
	if strings.TrimSpace(model) == "" {
		model = DefaultModel
	}
	return &SDKEngine{Model: strings.TrimSpace(model), opts: opts}
}

func (e *SDKEngine) Name() string { return "gemini-sdk" }

func (e *SDKEngine) Complete(ctx context.Context, prompt string, cred llm.Credential) (string, error) {
	if cred == "" {
		return "", fmt.Errorf("%w: gemini-sdk: API key is empty", llm.ErrTransport)
	}
	opts := append([]option.ClientOption{option.WithAPIKey(string(cred))}, e.opts...)
	cl, err := genai.NewClient(ctx, opts...)
	if err != nil {
		return "", fmt.Errorf("%w: gemini-sdk: new client: %v", llm.ErrTransport, err)
	}
	defer cl.Close()

	m := cl.GenerativeModel(e.Model)
	resp, err := m.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("%w: gemini-sdk: %v", llm.ErrTransport, err)
	}
	if resp == nil || len(resp.Candidates) == 0 {
		return "", fmt.Errorf("%w: gemini-sdk: no candidates", llm.ErrMalformedResponse)
	}
	txt, ok := firstText(resp)
	if !ok {
		return "", fmt.Errorf("%w: gemini-sdk: no text part", llm.ErrMalformedResponse)
	}
	txt = util.StripCodeFences(txt)
	if txt == "" {
		return "", fmt.Errorf("%w: gemini-sdk returned no text", llm.ErrEmptyOutput)
	}
	return txt, nil
}

func firstText(resp *genai.GenerateContentResponse) (string, bool) {
	c := resp.Candidates[0]
	if c == nil || c.Content == nil {
		return "", false
	}
	for _, p := range c.Content.Parts {
		if t, ok := p.(genai.Text); ok {
			return string(t), true
		}
	}
	return "", false
}
