package ingest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"cf-hints/api/internal/hints"
	"cf-hints/api/internal/metrics"
	"cf-hints/api/internal/store"
	"cf-hints/api/internal/textclean"
)

// Submission types that feed the pipeline. Anything else is only persisted.
const (
	TypeProblem  = "problem"
	TypeSolution = "tutorial_clean"
)

var ErrInvalidSubmission = errors.New("invalid submission")

type Submission struct {
	Type        string
	ProblemCode string
	Content     string
}

type SaveResult struct {
	// Path is where the raw content was written.
	Path string
	// Triggered is true when this submission completed the pair and ran the pipeline.
	Triggered bool
	// HintsGenerated is true when the run produced hints and they were cached.
	HintsGenerated bool
}

// Producer runs the hint pipeline.
type Producer interface {
	Produce(ctx context.Context, problem, solution string) hints.Result
}

// Artifacts stores raw submitted parts.
type Artifacts interface {
	SaveArtifact(ctx context.Context, id, kind, content string) (string, error)
	// SaveRendering stores the plain-text rendering of a markup part.
	SaveRendering(ctx context.Context, id, kind, text string) (string, error)
	Cleanup(ctx context.Context, id string) (int, error)
}

type Options struct {
	Pending   *Pending
	Artifacts Artifacts
	Cache     store.HintStore
	Pipeline  Producer
	// Timeout bounds one pipeline run. Zero means 150s.
	Timeout time.Duration
	Log     *zap.Logger
	Metrics *metrics.Metrics
}

type Service struct {
	pending   *Pending
	artifacts Artifacts
	cache     store.HintStore
	pipeline  Producer
	timeout   time.Duration
	log       *zap.Logger
	m         *metrics.Metrics
}

func NewService(o Options) *Service {
	if o.Pending == nil {
		o.Pending = NewPending()
	}
	if o.Timeout <= 0 {
		o.Timeout = 150 * time.Second
	}
	if o.Log == nil {
		o.Log = zap.NewNop()
	}
	return &Service{
		pending:   o.Pending,
		artifacts: o.Artifacts,
		cache:     o.Cache,
		pipeline:  o.Pipeline,
		timeout:   o.Timeout,
		log:       o.Log.Named("ingest"),
		m:         o.Metrics,
	}
}

func (s *Service) Pending() *Pending { return s.pending }

// Save persists one part and, when it completes the pair, runs the pipeline
// before returning. Pipeline failures never fail the submission.
func (s *Service) Save(ctx context.Context, sub Submission) (SaveResult, error) {
	if sub.Type == "" || sub.ProblemCode == "" {
		return SaveResult{}, fmt.Errorf("%w: type and problemCode are required", ErrInvalidSubmission)
	}
	if !store.ValidID(sub.ProblemCode) {
		return SaveResult{}, fmt.Errorf("%w: invalid problemCode %q", ErrInvalidSubmission, sub.ProblemCode)
	}
	if !store.ValidID(sub.Type) {
		return SaveResult{}, fmt.Errorf("%w: invalid type %q", ErrInvalidSubmission, sub.Type)
	}

	path, err := s.artifacts.SaveArtifact(ctx, sub.ProblemCode, sub.Type, sub.Content)
	if err != nil {
		return SaveResult{}, fmt.Errorf("save %s for %s: %w", sub.Type, sub.ProblemCode, err)
	}
	res := SaveResult{Path: path}

	if store.IsHTML(sub.Type) {
		if _, err := s.artifacts.SaveRendering(ctx, sub.ProblemCode, sub.Type, textclean.ToText(sub.Content)); err != nil {
			s.log.Warn("cannot save text rendering", zap.String("problem_code", sub.ProblemCode), zap.String("type", sub.Type), zap.Error(err))
		}
	}

	var part Part
	switch sub.Type {
	case TypeProblem:
		part = PartProblem
	case TypeSolution:
		part = PartSolution
	default:
		s.m.RecordSubmission("other")
		return res, nil
	}
	s.m.RecordSubmission(sub.Type)

	// pipeline parts arrive as innerText and go to the model verbatim
	pair, complete := s.pending.Put(sub.ProblemCode, part, sub.Content)
	if !complete {
		return res, nil
	}
	res.Triggered = true
	res.HintsGenerated = s.run(ctx, sub.ProblemCode, pair)
	return res, nil
}

// run owns the claim on id and must end with Done or Release.
func (s *Service) run(ctx context.Context, id string, pair Pair) bool {
	log := s.log.With(zap.String("problem_code", id))

	// detached from the request: a client disconnect does not abort the run
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
	defer cancel()

	res := s.pipeline.Produce(ctx, pair.Problem, pair.Solution)
	if len(res.Hints) == 0 {
		log.Warn("no hints produced; parts kept for a retry",
			zap.String("generate", string(res.Generate.Status)),
			zap.NamedError("generate_error", res.Generate.Err))
		s.pending.Release(id)
		return false
	}

	if err := s.cache.Write(ctx, id, res.Hints); err != nil {
		log.Error("cannot write hints", zap.Error(err))
		s.pending.Release(id)
		return false
	}
	if n, err := s.artifacts.Cleanup(ctx, id); err != nil {
		log.Warn("cleanup failed", zap.Error(err))
	} else {
		log.Debug("cleaned up raw parts", zap.Int("removed", n))
	}
	s.pending.Done(id)
	log.Info("generated hints", zap.Int("count", len(res.Hints)), zap.Bool("revised", res.Revised))
	return true
}
