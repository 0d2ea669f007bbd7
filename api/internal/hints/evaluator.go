package hints

import (
	"context"
	"slices"

	"go.uber.org/zap"

	"cf-hints/api/internal/llm"
	"cf-hints/api/internal/metrics"
	"cf-hints/api/internal/prompt"
	"cf-hints/api/internal/util"
)

// Evaluator critiques a hint set and may rewrite it. It fails open.
type Evaluator struct {
	client  llm.Completer
	cred    llm.Credential
	prompts *prompt.Set
	log     *zap.Logger
	m       *metrics.Metrics
}

func NewEvaluator(client llm.Completer, cred llm.Credential, prompts *prompt.Set, log *zap.Logger, m *metrics.Metrics) *Evaluator {
	if prompts == nil {
		prompts = prompt.Default()
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Evaluator{client: client, cred: cred, prompts: prompts, log: log.Named("evaluate"), m: m}
}

type EvaluateResult struct {
	Hints   HintSet
	Revised bool
	Outcome Outcome
}

// Evaluate returns the revised hints, or the input unchanged on any failure.
// An empty list from the model counts as "no hints" and keeps the input.
func (e *Evaluator) Evaluate(ctx context.Context, problem, solution string, in HintSet) EvaluateResult {
	res := e.evaluate(ctx, problem, solution, in)
	if res.Outcome.OK() {
		res.Revised = !slices.Equal(res.Hints, in)
	} else {
		res.Hints = in
	}
	if res.Hints == nil {
		res.Hints = HintSet{}
	}
	e.m.RecordStage(string(StageEvaluate), string(res.Outcome.Status))
	if !res.Outcome.OK() {
		e.log.Warn("hint evaluation failed, keeping generated hints",
			zap.String("status", string(res.Outcome.Status)),
			zap.Error(res.Outcome.Err))
	}
	return res
}

func (e *Evaluator) evaluate(ctx context.Context, problem, solution string, in HintSet) EvaluateResult {
	p, err := e.prompts.RenderEvaluate(problem, solution, in)
	if err != nil {
		return EvaluateResult{Outcome: Outcome{Status: StatusLLMError, Err: err}}
	}
	out, err := e.client.Complete(ctx, p, e.cred)
	if err != nil {
		return EvaluateResult{Outcome: Outcome{Status: StatusLLMError, Err: err}}
	}
	hs, present, err := decodeEnvelope(StageEvaluate, out)
	if err != nil {
		e.log.Debug("unparsable model output", zap.String("output", util.Truncate(out, 500)))
		return EvaluateResult{Outcome: Outcome{Status: StatusParseError, Err: err}}
	}
	// an explicit empty list would wipe hints the generator produced; keep them
	if !present || len(hs) == 0 {
		return EvaluateResult{Outcome: Outcome{Status: StatusNoHints}}
	}
	return EvaluateResult{Hints: hs, Outcome: Outcome{Status: StatusOK}}
}
