package orchestrator

import "fmt"

// UnavailableError reports that the reasoning path could not produce a
// decision. It is surfaced to the caller rather than retried; a policy
// decision must not be guessed.
type UnavailableError struct {
	Tier  string
	Cause error
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("evaluation unavailable: reasoning tier %s failed: %v", e.Tier, e.Cause)
}

func (e *UnavailableError) Unwrap() error {
	return e.Cause
}

// AuditError reports that a decision could not be durably audited. Decisions
// in compliance-critical categories are withheld when their audit record
// cannot be persisted.
type AuditError struct {
	Cause error
}

func (e *AuditError) Error() string {
	return fmt.Sprintf("failed to audit decision: %v", e.Cause)
}

func (e *AuditError) Unwrap() error {
	return e.Cause
}
