package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"arbiter-hq/arbiter/pkg/orchestrator"
	"arbiter-hq/arbiter/pkg/policy/compiled"
	"arbiter-hq/arbiter/pkg/server/middleware"
)

// EvaluateHandler serves POST /v1/evaluate.
type EvaluateHandler struct {
	orch *orchestrator.Orchestrator
}

// NewEvaluateHandler creates the evaluate handler.
func NewEvaluateHandler(orch *orchestrator.Orchestrator) *EvaluateHandler {
	return &EvaluateHandler{orch: orch}
}

func (h *EvaluateHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "use POST")
		return
	}

	var body EvaluateRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "malformed JSON body: "+err.Error())
		return
	}

	if body.Request.ID == "" {
		body.Request.ID = middleware.GetRequestID(r.Context())
	}
	if err := body.Request.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	decision, err := h.orch.Evaluate(r.Context(), &body.Request, body.Context)
	if err != nil {
		writeEvaluationError(w, err)
		return
	}

	// A gate rejection is a deny decision, not an exception; it is reported
	// with 403 so callers can distinguish it from a policy-driven deny.
	status := http.StatusOK
	if !decision.Validation.IsCompliant {
		status = http.StatusForbidden
	}
	writeJSON(w, status, NewDecisionResponse(decision))
}

// writeEvaluationError maps pipeline errors to HTTP status codes.
func writeEvaluationError(w http.ResponseWriter, err error) {
	var unavailable *orchestrator.UnavailableError
	if errors.As(err, &unavailable) {
		writeError(w, http.StatusServiceUnavailable, "evaluation_unavailable", err.Error())
		return
	}

	var fault *compiled.FaultError
	if errors.As(err, &fault) {
		writeError(w, http.StatusInternalServerError, "engine_fault", err.Error())
		return
	}

	var auditErr *orchestrator.AuditError
	if errors.As(err, &auditErr) {
		writeError(w, http.StatusInternalServerError, "audit_failure", err.Error())
		return
	}

	writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
}
