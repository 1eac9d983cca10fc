package handlers

import (
	"encoding/json"
	"net/http"

	"arbiter-hq/arbiter/pkg/evaluation"
)

// EvaluateRequest is the body of POST /v1/evaluate: the policy request plus
// the constitutional context that gates it.
type EvaluateRequest struct {
	Request evaluation.PolicyRequest         `json:"request"`
	Context evaluation.ConstitutionalContext `json:"context"`
}

// DecisionResponse is the wire form of a Decision.
type DecisionResponse struct {
	RequestID       string                              `json:"request_id"`
	PolicyID        string                              `json:"policy_id"`
	Decision        evaluation.DecisionValue            `json:"decision"`
	Confidence      float64                             `json:"confidence"`
	Reasons         []string                            `json:"reasons"`
	TierUsed        string                              `json:"tier_used,omitempty"`
	Engine          string                              `json:"engine"`
	ExecutionTimeMs float64                             `json:"execution_time_ms"`
	Validation      evaluation.ConstitutionalValidation `json:"constitutional_validation"`
	CacheStatus     evaluation.CacheStatus              `json:"cache_status"`
}

// NewDecisionResponse converts a Decision to its wire form.
func NewDecisionResponse(d *evaluation.Decision) *DecisionResponse {
	resp := &DecisionResponse{
		RequestID:       d.RequestID,
		PolicyID:        d.PolicyID,
		Decision:        d.Value,
		Confidence:      d.Confidence,
		Reasons:         d.Reasons,
		Engine:          d.Engine.String(),
		ExecutionTimeMs: float64(d.Latency.Microseconds()) / 1000.0,
		Validation:      d.Validation,
		CacheStatus:     d.CacheStatus,
	}
	if d.Engine.Kind == evaluation.EngineReasoning {
		resp.TierUsed = d.Engine.Tier
	}
	return resp
}

// ErrorResponse is the wire form of an error.
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

// ErrorBody carries the error type and message.
type ErrorBody struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, errType, message string) {
	writeJSON(w, status, ErrorResponse{Error: ErrorBody{Type: errType, Message: message}})
}
