package handlers

import (
	"net/http"

	"arbiter-hq/arbiter/pkg/cache"
	"arbiter-hq/arbiter/pkg/orchestrator"
	"arbiter-hq/arbiter/pkg/tiers"
)

// TierInfo is the wire form of one tier configuration.
type TierInfo struct {
	Tier          string  `json:"tier"`
	LatencyTarget string  `json:"latency_target"`
	RelativeCost  float64 `json:"relative_cost"`
}

// TiersHandler serves GET /v1/tiers: the declared tier configurations.
type TiersHandler struct {
	configs []tiers.Config
}

// NewTiersHandler creates the tiers handler.
func NewTiersHandler(configs []tiers.Config) *TiersHandler {
	return &TiersHandler{configs: configs}
}

func (h *TiersHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "use GET")
		return
	}

	out := make([]TierInfo, 0, len(h.configs))
	for _, c := range h.configs {
		out = append(out, TierInfo{
			Tier:          c.Tier.String(),
			LatencyTarget: c.LatencyTarget.String(),
			RelativeCost:  c.RelativeCost,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"tiers": out})
}

// StatsResponse aggregates orchestrator and cache statistics.
type StatsResponse struct {
	Evaluations orchestrator.Snapshot `json:"evaluations"`
	Cache       cache.Stats           `json:"cache"`
}

// StatsHandler serves GET /v1/stats.
type StatsHandler struct {
	orch  *orchestrator.Orchestrator
	cache *cache.DecisionCache
}

// NewStatsHandler creates the stats handler. cache may be nil.
func NewStatsHandler(orch *orchestrator.Orchestrator, cache *cache.DecisionCache) *StatsHandler {
	return &StatsHandler{orch: orch, cache: cache}
}

func (h *StatsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "use GET")
		return
	}

	resp := StatsResponse{Evaluations: h.orch.Stats()}
	if h.cache != nil {
		resp.Cache = h.cache.Snapshot()
	}
	writeJSON(w, http.StatusOK, resp)
}
