package llm

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"cf-hints/api/internal/metrics"
)

var tracer = otel.Tracer("cf-hints/llm")

// Instrumented records a span and Prometheus samples for each call.
type Instrumented struct {
	next     Completer
	stage    string
	provider string
	m        *metrics.Metrics
}

func NewInstrumented(next Completer, stage, provider string, m *metrics.Metrics) *Instrumented {
	return &Instrumented{next: next, stage: stage, provider: provider, m: m}
}

func (i *Instrumented) Complete(ctx context.Context, prompt string, cred Credential) (string, error) {
	ctx, span := tracer.Start(ctx, "llm.complete", trace.WithAttributes(
		attribute.String("llm.stage", i.stage),
		attribute.String("llm.provider", i.provider),
		attribute.Int("llm.prompt_bytes", len(prompt)),
	))
	defer span.End()

	start := time.Now()
	out, err := i.next.Complete(ctx, prompt, cred)
	i.m.RecordLLM(i.stage, i.provider, Status(err), time.Since(start))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, Status(err))
	}
	return out, err
}

// Chain wraps a provider client with the per-stage decorators, innermost first:
// rate limit, breaker, then instrumentation. An open breaker fails fast without
// spending a rate-limit token.
func Chain(base Completer, stage, provider string, perMinute float64, burst int, breaker BreakerConfig, m *metrics.Metrics, log *zap.Logger) Completer {
	var c Completer = NewRateLimited(base, perMinute, burst)
	c = NewBreaker(c, breaker, log)
	return NewInstrumented(c, stage, provider, m)
}
