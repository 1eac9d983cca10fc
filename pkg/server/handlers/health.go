package handlers

import (
	"net/http"

	"arbiter-hq/arbiter/pkg/telemetry/health"
)

// HealthHandler serves GET /health (liveness).
type HealthHandler struct {
	checker *health.Checker
}

// NewHealthHandler creates the liveness handler.
func NewHealthHandler(checker *health.Checker) *HealthHandler {
	return &HealthHandler{checker: checker}
}

func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.checker.Liveness(r.Context()))
}

// ReadyHandler serves GET /ready (readiness). A failing component check
// returns 503.
type ReadyHandler struct {
	checker *health.Checker
}

// NewReadyHandler creates the readiness handler.
func NewReadyHandler(checker *health.Checker) *ReadyHandler {
	return &ReadyHandler{checker: checker}
}

func (h *ReadyHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	status := h.checker.Readiness(r.Context())
	code := http.StatusOK
	if status.Status != "ready" {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, status)
}
