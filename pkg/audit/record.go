package audit

import (
	"time"

	"github.com/google/uuid"

	"arbiter-hq/arbiter/pkg/evaluation"
)

// Record is one append-only audit entry. Records are never mutated or
// deleted after creation (retention pruning aside); the sink is the system
// of record for what decision was made, by what, and why.
type Record struct {
	// ID uniquely identifies the record.
	ID string `json:"id"`

	// RequestID is the id of the evaluated request.
	RequestID string `json:"request_id"`

	// PolicyID is the policy the request targeted.
	PolicyID string `json:"policy_id"`

	// Category is the policy category of the request.
	Category evaluation.PolicyCategory `json:"category"`

	// Decision is the decision value returned to the caller, empty when
	// the evaluation terminated in an error.
	Decision evaluation.DecisionValue `json:"decision,omitempty"`

	// Confidence is the decision confidence.
	Confidence float64 `json:"confidence"`

	// Engine identifies the engine or tier that produced the decision
	// (e.g. "compiled", "reasoning-T2"). Empty when no engine ran.
	Engine string `json:"engine,omitempty"`

	// CacheStatus reports whether the decision was served from cache.
	CacheStatus evaluation.CacheStatus `json:"cache_status,omitempty"`

	// Latency is the end-to-end evaluation latency.
	Latency time.Duration `json:"latency"`

	// Compliant is the constitutional validation outcome.
	Compliant bool `json:"compliant"`

	// Error records the failure reason for terminal errors.
	Error string `json:"error,omitempty"`

	// Metadata is opaque caller-supplied metadata.
	Metadata map[string]string `json:"metadata,omitempty"`

	// Timestamp is when the record was created.
	Timestamp time.Time `json:"timestamp"`
}

// NewRecord creates a record for the given request with a fresh id and
// timestamp.
func NewRecord(req *evaluation.PolicyRequest) *Record {
	return &Record{
		ID:        uuid.New().String(),
		RequestID: req.ID,
		PolicyID:  req.PolicyID,
		Category:  req.Category,
		Metadata:  req.Metadata,
		Timestamp: time.Now().UTC(),
	}
}
