package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// EvaluationMetrics tracks the evaluation pipeline.
//
// Metrics:
//   - arbiter_evaluations_total: evaluations by category, engine and decision
//   - arbiter_evaluation_duration_seconds: end-to-end evaluation duration
//   - arbiter_cache_hits_total / arbiter_cache_misses_total: decision cache
//   - arbiter_tier_selections_total: reasoning tier distribution
//   - arbiter_gate_denials_total: compliance gate rejections
//   - arbiter_reasoning_failures_total: reasoning tier call failures
type EvaluationMetrics struct {
	evaluationsTotal   *prometheus.CounterVec
	evaluationDuration *prometheus.HistogramVec

	cacheHits   prometheus.Counter
	cacheMisses prometheus.Counter

	tierSelections    *prometheus.CounterVec
	gateDenials       prometheus.Counter
	reasoningFailures *prometheus.CounterVec
}

// Namespace is the prefix for all exported metrics.
const Namespace = "arbiter"

// NewEvaluationMetrics creates and registers the evaluation metrics with the
// provided registry.
func NewEvaluationMetrics(registry *prometheus.Registry) *EvaluationMetrics {
	m := &EvaluationMetrics{
		evaluationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "evaluations_total",
				Help:      "Total number of policy evaluations",
			},
			[]string{"category", "engine", "decision"},
		),

		evaluationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: Namespace,
				Name:      "evaluation_duration_seconds",
				Help:      "End-to-end evaluation duration in seconds",
				// Compiled evaluations finish in microseconds; the
				// deepest reasoning tier targets 8s.
				Buckets: prometheus.ExponentialBuckets(0.0001, 4, 10),
			},
			[]string{"engine"},
		),

		cacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "cache_hits_total",
			Help:      "Total number of decision cache hits",
		}),

		cacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "cache_misses_total",
			Help:      "Total number of decision cache misses",
		}),

		tierSelections: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "tier_selections_total",
				Help:      "Total number of reasoning tier selections",
			},
			[]string{"tier"},
		),

		gateDenials: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "gate_denials_total",
			Help:      "Total number of compliance gate rejections",
		}),

		reasoningFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "reasoning_failures_total",
				Help:      "Total number of failed reasoning tier calls",
			},
			[]string{"tier"},
		),
	}

	registry.MustRegister(
		m.evaluationsTotal,
		m.evaluationDuration,
		m.cacheHits,
		m.cacheMisses,
		m.tierSelections,
		m.gateDenials,
		m.reasoningFailures,
	)

	return m
}

// RecordEvaluation records one completed evaluation.
func (m *EvaluationMetrics) RecordEvaluation(category, engine, decision string, duration time.Duration) {
	m.evaluationsTotal.WithLabelValues(category, engine, decision).Inc()
	m.evaluationDuration.WithLabelValues(engine).Observe(duration.Seconds())
}

// RecordCacheHit records a decision cache hit.
func (m *EvaluationMetrics) RecordCacheHit() {
	m.cacheHits.Inc()
}

// RecordCacheMiss records a decision cache miss.
func (m *EvaluationMetrics) RecordCacheMiss() {
	m.cacheMisses.Inc()
}

// RecordTierSelection records which reasoning tier was selected.
func (m *EvaluationMetrics) RecordTierSelection(tier string) {
	m.tierSelections.WithLabelValues(tier).Inc()
}

// RecordGateDenial records a compliance gate rejection.
func (m *EvaluationMetrics) RecordGateDenial() {
	m.gateDenials.Inc()
}

// RecordReasoningFailure records a failed reasoning tier call.
func (m *EvaluationMetrics) RecordReasoningFailure(tier string) {
	m.reasoningFailures.WithLabelValues(tier).Inc()
}
