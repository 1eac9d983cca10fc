package handlers

import (
	"bufio"
	"encoding/json"
	"errors"
	"net/http"

	"arbiter-hq/arbiter/pkg/orchestrator"
)

// StreamHandler serves POST /v1/evaluate/stream: a newline-delimited JSON
// stream of EvaluateRequest messages answered with one decision line per
// request, in request order. Ordering holds within a connection only.
type StreamHandler struct {
	orch *orchestrator.Orchestrator

	// maxLineBytes bounds one request line.
	maxLineBytes int
}

// NewStreamHandler creates the streaming handler.
func NewStreamHandler(orch *orchestrator.Orchestrator) *StreamHandler {
	return &StreamHandler{
		orch:         orch,
		maxLineBytes: 1 << 20,
	}
}

// streamLine is one response line: a decision or an error, never both.
type streamLine struct {
	Decision *DecisionResponse `json:"decision,omitempty"`
	Error    *ErrorBody        `json:"error,omitempty"`
}

func (h *StreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "use POST")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "internal_error", "streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "application/x-ndjson")
	w.WriteHeader(http.StatusOK)

	encoder := json.NewEncoder(w)
	scanner := bufio.NewScanner(r.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), h.maxLineBytes)

	for scanner.Scan() {
		select {
		case <-r.Context().Done():
			return
		default:
		}

		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var req EvaluateRequest
		if err := json.Unmarshal(line, &req); err != nil {
			_ = encoder.Encode(streamLine{Error: &ErrorBody{
				Type:    "invalid_request",
				Message: "malformed JSON line: " + err.Error(),
			}})
			flusher.Flush()
			continue
		}
		if err := req.Request.Validate(); err != nil {
			_ = encoder.Encode(streamLine{Error: &ErrorBody{
				Type:    "invalid_request",
				Message: err.Error(),
			}})
			flusher.Flush()
			continue
		}

		decision, err := h.orch.Evaluate(r.Context(), &req.Request, req.Context)
		if err != nil {
			_ = encoder.Encode(streamLine{Error: &ErrorBody{
				Type:    streamErrorType(err),
				Message: err.Error(),
			}})
			flusher.Flush()
			continue
		}

		_ = encoder.Encode(streamLine{Decision: NewDecisionResponse(decision)})
		flusher.Flush()
	}
}

func streamErrorType(err error) string {
	var unavailable *orchestrator.UnavailableError
	if errors.As(err, &unavailable) {
		return "evaluation_unavailable"
	}
	return "internal_error"
}
