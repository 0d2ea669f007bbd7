package hints

import (
	"context"

	"go.uber.org/zap"

	"cf-hints/api/internal/llm"
	"cf-hints/api/internal/metrics"
	"cf-hints/api/internal/prompt"
	"cf-hints/api/internal/util"
)

// Generator asks the model for three progressive hints.
type Generator struct {
	client  llm.Completer
	cred    llm.Credential
	prompts *prompt.Set
	log     *zap.Logger
	m       *metrics.Metrics
}

func NewGenerator(client llm.Completer, cred llm.Credential, prompts *prompt.Set, log *zap.Logger, m *metrics.Metrics) *Generator {
	if prompts == nil {
		prompts = prompt.Default()
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Generator{client: client, cred: cred, prompts: prompts, log: log.Named("generate"), m: m}
}

type GenerateResult struct {
	Hints   HintSet
	Outcome Outcome
}

// Generate never fails: any error leaves Hints empty and is recorded in Outcome.
// The number of hints is not checked.
func (g *Generator) Generate(ctx context.Context, problem, solution string) GenerateResult {
	res := g.generate(ctx, problem, solution)
	if res.Hints == nil {
		res.Hints = HintSet{}
	}
	g.m.RecordStage(string(StageGenerate), string(res.Outcome.Status))
	if !res.Outcome.OK() {
		g.log.Warn("hint generation produced nothing",
			zap.String("status", string(res.Outcome.Status)),
			zap.Error(res.Outcome.Err))
	}
	return res
}

func (g *Generator) generate(ctx context.Context, problem, solution string) GenerateResult {
	p, err := g.prompts.RenderGenerate(problem, solution)
	if err != nil {
		return GenerateResult{Outcome: Outcome{Status: StatusLLMError, Err: err}}
	}
	out, err := g.client.Complete(ctx, p, g.cred)
	if err != nil {
		return GenerateResult{Outcome: Outcome{Status: StatusLLMError, Err: err}}
	}
	hs, present, err := decodeEnvelope(StageGenerate, out)
	if err != nil {
		g.log.Debug("unparsable model output", zap.String("output", util.Truncate(out, 500)))
		return GenerateResult{Outcome: Outcome{Status: StatusParseError, Err: err}}
	}
	if !present || len(hs) == 0 {
		return GenerateResult{Outcome: Outcome{Status: StatusNoHints}}
	}
	return GenerateResult{Hints: hs, Outcome: Outcome{Status: StatusOK}}
}
