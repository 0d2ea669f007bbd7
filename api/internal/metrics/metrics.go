package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds every collector the service exports.
type Metrics struct {
	// LLM calls
	LLMRequestsTotal *prometheus.CounterVec
	LLMLatency       *prometheus.HistogramVec

	// Hint pipeline
	StageOutcomesTotal *prometheus.CounterVec
	PipelineRunsTotal  *prometheus.CounterVec

	// Cache
	CacheLookupsTotal *prometheus.CounterVec

	// Ingestion
	SubmissionsTotal *prometheus.CounterVec
	SweptTotal       prometheus.Counter
}

// New registers the collectors on reg. Tests pass a fresh prometheus.NewRegistry().
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		LLMRequestsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hints_llm_requests_total",
				Help: "Total number of LLM completion requests",
			},
			[]string{"stage", "provider", "status"},
		),
		LLMLatency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "hints_llm_latency_seconds",
				Help:    "LLM completion latency in seconds",
				Buckets: []float64{0.5, 1, 2, 5, 10, 20, 40, 60, 90},
			},
			[]string{"stage", "provider"},
		),
		StageOutcomesTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hints_stage_outcomes_total",
				Help: "Outcomes of the generate and evaluate stages",
			},
			[]string{"stage", "status"},
		),
		PipelineRunsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hints_pipeline_runs_total",
				Help: "Hint pipeline runs by result",
			},
			[]string{"result"},
		),
		CacheLookupsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hints_cache_lookups_total",
				Help: "In-memory hint cache lookups",
			},
			[]string{"result"},
		),
		SubmissionsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hints_submissions_total",
				Help: "Accepted /save-data submissions by type",
			},
			[]string{"type"},
		),
		SweptTotal: f.NewCounter(
			prometheus.CounterOpts{
				Name: "hints_janitor_swept_total",
				Help: "Abandoned partial submissions removed by the janitor",
			},
		),
	}
}

// RecordLLM records one completion call.
func (m *Metrics) RecordLLM(stage, provider, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.LLMRequestsTotal.WithLabelValues(stage, provider, status).Inc()
	m.LLMLatency.WithLabelValues(stage, provider).Observe(d.Seconds())
}

// RecordStage records a generate/evaluate outcome.
func (m *Metrics) RecordStage(stage, status string) {
	if m == nil {
		return
	}
	m.StageOutcomesTotal.WithLabelValues(stage, status).Inc()
}

// RecordPipeline records whether a run produced hints.
func (m *Metrics) RecordPipeline(produced bool) {
	if m == nil {
		return
	}
	result := "empty"
	if produced {
		result = "hints"
	}
	m.PipelineRunsTotal.WithLabelValues(result).Inc()
}

// RecordCacheHit records an in-memory cache hit.
func (m *Metrics) RecordCacheHit() {
	if m == nil {
		return
	}
	m.CacheLookupsTotal.WithLabelValues("hit").Inc()
}

// RecordCacheMiss records an in-memory cache miss.
func (m *Metrics) RecordCacheMiss() {
	if m == nil {
		return
	}
	m.CacheLookupsTotal.WithLabelValues("miss").Inc()
}

// RecordSubmission records an accepted submission.
func (m *Metrics) RecordSubmission(kind string) {
	if m == nil {
		return
	}
	m.SubmissionsTotal.WithLabelValues(kind).Inc()
}

// RecordSwept records directories removed by the janitor.
func (m *Metrics) RecordSwept(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.SweptTotal.Add(float64(n))
}
