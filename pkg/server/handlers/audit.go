package handlers

import (
	"net/http"

	"arbiter-hq/arbiter/pkg/audit"
)

// AuditHandler serves GET /v1/audit?request_id=...: the audit trail of one
// request.
type AuditHandler struct {
	sink audit.Sink
}

// NewAuditHandler creates the audit query handler.
func NewAuditHandler(sink audit.Sink) *AuditHandler {
	return &AuditHandler{sink: sink}
}

func (h *AuditHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "use GET")
		return
	}

	requestID := r.URL.Query().Get("request_id")
	if requestID == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "request_id query parameter is required")
		return
	}

	records, err := h.sink.QueryByRequestID(r.Context(), requestID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "storage_error", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"request_id": requestID,
		"records":    records,
	})
}
