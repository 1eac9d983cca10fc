package compiled

import "fmt"

// NotFoundError is returned by Evaluate when the policy identifier was never
// loaded. The orchestrator treats it as "not eligible for the compiled path",
// not as a request failure.
type NotFoundError struct {
	PolicyID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("policy %q is not loaded", e.PolicyID)
}

// FaultError is an internal evaluation failure. The engine is deterministic,
// so the fault is reported and never retried.
type FaultError struct {
	PolicyID string
	RuleName string
	Cause    error
}

func (e *FaultError) Error() string {
	if e.RuleName != "" {
		return fmt.Sprintf("policy %q rule %q evaluation fault: %v", e.PolicyID, e.RuleName, e.Cause)
	}
	return fmt.Sprintf("policy %q evaluation fault: %v", e.PolicyID, e.Cause)
}

func (e *FaultError) Unwrap() error {
	return e.Cause
}

// ProvenanceError is returned by Load when the policy's provenance token does
// not match the reference value. Same fail-closed rule as the request gate.
type ProvenanceError struct {
	PolicyID string
}

func (e *ProvenanceError) Error() string {
	return fmt.Sprintf("policy %q provenance token does not match the reference value", e.PolicyID)
}

// ValidationError is returned by Load for a structurally invalid policy body.
type ValidationError struct {
	PolicyID string
	Message  string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("policy %q validation failed: %s", e.PolicyID, e.Message)
}
