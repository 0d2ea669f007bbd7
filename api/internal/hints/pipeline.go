package hints

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"cf-hints/api/internal/metrics"
)

var tracer = otel.Tracer("cf-hints/hints")

// Pipeline runs generate, then evaluate when generation produced something.
type Pipeline struct {
	gen  *Generator
	eval *Evaluator
	log  *zap.Logger
	m    *metrics.Metrics
}

func NewPipeline(gen *Generator, eval *Evaluator, log *zap.Logger, m *metrics.Metrics) *Pipeline {
	if log == nil {
		log = zap.NewNop()
	}
	return &Pipeline{gen: gen, eval: eval, log: log, m: m}
}

// Result carries the final hints and both stage outcomes.
type Result struct {
	Hints    HintSet
	Generate Outcome
	Evaluate Outcome
	Revised  bool
}

// Produce always returns a HintSet; empty means no hints could be produced.
func (p *Pipeline) Produce(ctx context.Context, problem, solution string) Result {
	ctx, span := tracer.Start(ctx, "hints.produce")
	defer span.End()
	start := time.Now()

	res := p.produce(ctx, problem, solution)

	span.SetAttributes(
		attribute.String("hints.generate", string(res.Generate.Status)),
		attribute.String("hints.evaluate", string(res.Evaluate.Status)),
		attribute.Int("hints.count", len(res.Hints)),
	)
	p.m.RecordPipeline(len(res.Hints) > 0)
	p.log.Info("hint pipeline finished",
		zap.Int("hints", len(res.Hints)),
		zap.String("generate", string(res.Generate.Status)),
		zap.String("evaluate", string(res.Evaluate.Status)),
		zap.Bool("revised", res.Revised),
		zap.Duration("took", time.Since(start)))
	return res
}

func (p *Pipeline) produce(ctx context.Context, problem, solution string) Result {
	g := p.gen.Generate(ctx, problem, solution)
	if len(g.Hints) == 0 {
		return Result{
			Hints:    HintSet{},
			Generate: g.Outcome,
			Evaluate: Outcome{Status: StatusSkipped},
		}
	}
	e := p.eval.Evaluate(ctx, problem, solution, g.Hints)
	return Result{
		Hints:    e.Hints,
		Generate: g.Outcome,
		Evaluate: e.Outcome,
		Revised:  e.Revised,
	}
}
