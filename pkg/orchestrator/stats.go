package orchestrator

import (
	"sort"
	"sync"
	"time"
)

// statsSampleSize bounds the latency sample ring. Old samples are overwritten
// so percentiles reflect recent traffic.
const statsSampleSize = 4096

// Stats aggregates evaluation counters and latency samples.
type Stats struct {
	mu sync.Mutex

	total       int64
	compiled    int64
	cacheHits   int64
	cacheMisses int64
	gateDenials int64
	failures    int64
	perTier     map[string]int64

	totalLatency time.Duration
	samples      []time.Duration
	next         int
}

// Snapshot is a point-in-time view of the aggregate statistics.
type Snapshot struct {
	Total        int64            `json:"total_evaluations"`
	Compiled     int64            `json:"compiled_evaluations"`
	CacheHits    int64            `json:"cache_hits"`
	CacheMisses  int64            `json:"cache_misses"`
	GateDenials  int64            `json:"gate_denials"`
	Failures     int64            `json:"failures"`
	PerTier      map[string]int64 `json:"per_tier"`
	AvgLatencyMs float64          `json:"avg_latency_ms"`
	P99LatencyMs float64          `json:"p99_latency_ms"`
}

// NewStats creates an empty statistics aggregate.
func NewStats() *Stats {
	return &Stats{
		perTier: make(map[string]int64),
		samples: make([]time.Duration, 0, statsSampleSize),
	}
}

func (s *Stats) record(latency time.Duration) {
	s.total++
	s.totalLatency += latency

	if len(s.samples) < statsSampleSize {
		s.samples = append(s.samples, latency)
	} else {
		s.samples[s.next] = latency
		s.next = (s.next + 1) % statsSampleSize
	}
}

// RecordCompiled records a decision produced by the compiled engine.
func (s *Stats) RecordCompiled(latency time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record(latency)
	s.compiled++
}

// RecordTier records a decision produced by a reasoning tier.
func (s *Stats) RecordTier(tier string, latency time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record(latency)
	s.perTier[tier]++
}

// RecordCacheHit records a decision served from the cache.
func (s *Stats) RecordCacheHit(latency time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record(latency)
	s.cacheHits++
}

// RecordCacheMiss records that a computed decision missed the cache.
func (s *Stats) RecordCacheMiss() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cacheMisses++
}

// RecordGateDenial records a compliance gate rejection.
func (s *Stats) RecordGateDenial(latency time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record(latency)
	s.gateDenials++
}

// RecordFailure records a terminal evaluation error.
func (s *Stats) RecordFailure() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures++
}

// Snapshot returns the current aggregate statistics.
func (s *Stats) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		Total:       s.total,
		Compiled:    s.compiled,
		CacheHits:   s.cacheHits,
		CacheMisses: s.cacheMisses,
		GateDenials: s.gateDenials,
		Failures:    s.failures,
		PerTier:     make(map[string]int64, len(s.perTier)),
	}
	for tier, count := range s.perTier {
		snap.PerTier[tier] = count
	}

	if s.total > 0 {
		snap.AvgLatencyMs = float64(s.totalLatency) / float64(time.Millisecond) / float64(s.total)
	}
	if len(s.samples) > 0 {
		sorted := append([]time.Duration(nil), s.samples...)
		sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
		idx := (len(sorted) * 99) / 100
		if idx >= len(sorted) {
			idx = len(sorted) - 1
		}
		snap.P99LatencyMs = float64(sorted[idx]) / float64(time.Millisecond)
	}

	return snap
}
