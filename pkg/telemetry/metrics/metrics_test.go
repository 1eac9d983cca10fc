package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestEvaluationMetrics_Counters(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := NewEvaluationMetrics(registry)

	m.RecordEvaluation("access-control", "compiled", "allow", 50*time.Microsecond)
	m.RecordEvaluation("access-control", "compiled", "allow", 70*time.Microsecond)
	m.RecordEvaluation("safety-constraint", "reasoning-T2", "deny", 600*time.Millisecond)
	m.RecordCacheHit()
	m.RecordCacheMiss()
	m.RecordCacheMiss()
	m.RecordTierSelection("T2")
	m.RecordGateDenial()
	m.RecordReasoningFailure("T3")

	got := testutil.ToFloat64(m.evaluationsTotal.WithLabelValues("access-control", "compiled", "allow"))
	if got != 2 {
		t.Errorf("evaluations_total{compiled,allow} = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.cacheHits); got != 1 {
		t.Errorf("cache_hits_total = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.cacheMisses); got != 2 {
		t.Errorf("cache_misses_total = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.tierSelections.WithLabelValues("T2")); got != 1 {
		t.Errorf("tier_selections_total{T2} = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.gateDenials); got != 1 {
		t.Errorf("gate_denials_total = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.reasoningFailures.WithLabelValues("T3")); got != 1 {
		t.Errorf("reasoning_failures_total{T3} = %v, want 1", got)
	}
}

func TestNewRegistry_RuntimeCollectors(t *testing.T) {
	registry := NewRegistry()

	families, err := registry.Gather()
	if err != nil {
		t.Fatalf("Gather() error = %v", err)
	}
	if len(families) == 0 {
		t.Error("registry has no runtime collectors registered")
	}
}
