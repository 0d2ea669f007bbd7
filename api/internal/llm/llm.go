package llm

import (
	"context"
	"errors"
)

var (
	// ErrTransport: the request could not complete or returned a non-2xx status.
	ErrTransport = errors.New("llm: transport failure")
	// ErrMalformedResponse: the response body had an unexpected shape.
	ErrMalformedResponse = errors.New("llm: malformed response")
	// ErrEmptyOutput: the model answered with no usable text.
	ErrEmptyOutput = errors.New("llm: empty output")
)

// Credential is an API key bound to one pipeline stage.
type Credential string

// String keeps keys out of logs.
func (c Credential) String() string {
	if len(c) <= 4 {
		return "****"
	}
	return "****" + string(c[len(c)-4:])
}

// Completer sends a single-turn prompt and returns the cleaned model text.
// Implementations never retry.
type Completer interface {
	Complete(ctx context.Context, prompt string, cred Credential) (string, error)
}

// CompleterFunc adapts a function to Completer.
type CompleterFunc func(ctx context.Context, prompt string, cred Credential) (string, error)

func (f CompleterFunc) Complete(ctx context.Context, prompt string, cred Credential) (string, error) {
	return f(ctx, prompt, cred)
}

// Status maps an error from Complete to a short metrics label.
func Status(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrTransport):
		return "transport_error"
	case errors.Is(err, ErrMalformedResponse):
		return "malformed_response"
	case errors.Is(err, ErrEmptyOutput):
		return "empty_output"
	default:
		return "error"
	}
}
