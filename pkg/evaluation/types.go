package evaluation

import (
	"fmt"
	"time"
)

// PolicyCategory classifies the policy domain a request belongs to.
type PolicyCategory string

const (
	CategoryAccessControl            PolicyCategory = "access-control"
	CategoryRateLimiting             PolicyCategory = "rate-limiting"
	CategoryDataGovernance           PolicyCategory = "data-governance"
	CategoryPrivacy                  PolicyCategory = "privacy"
	CategorySecurityValidation       PolicyCategory = "security-validation"
	CategoryResourceAllocation       PolicyCategory = "resource-allocation"
	CategoryCostOptimization         PolicyCategory = "cost-optimization"
	CategoryConstitutionalCompliance PolicyCategory = "constitutional-compliance"
)

// Categories lists all known policy categories.
func Categories() []PolicyCategory {
	return []PolicyCategory{
		CategoryAccessControl,
		CategoryRateLimiting,
		CategoryDataGovernance,
		CategoryPrivacy,
		CategorySecurityValidation,
		CategoryResourceAllocation,
		CategoryCostOptimization,
		CategoryConstitutionalCompliance,
	}
}

// Valid reports whether the category is one of the known categories.
func (c PolicyCategory) Valid() bool {
	for _, known := range Categories() {
		if c == known {
			return true
		}
	}
	return false
}

// Critical reports whether decisions in this category must be durably
// audited before the response is returned to the caller.
func (c PolicyCategory) Critical() bool {
	return c == CategoryConstitutionalCompliance || c == CategorySecurityValidation
}

// Urgency expresses how time-sensitive a request is.
type Urgency string

const (
	UrgencyLow      Urgency = "low"
	UrgencyNormal   Urgency = "normal"
	UrgencyHigh     Urgency = "high"
	UrgencyCritical Urgency = "critical"
)

// Valid reports whether the urgency is one of the known levels.
func (u Urgency) Valid() bool {
	switch u {
	case UrgencyLow, UrgencyNormal, UrgencyHigh, UrgencyCritical:
		return true
	}
	return false
}

// ComplianceLevel is the compliance level declared on a constitutional context.
type ComplianceLevel string

const (
	ComplianceCritical ComplianceLevel = "critical"
	ComplianceHigh     ComplianceLevel = "high"
	ComplianceMedium   ComplianceLevel = "medium"
	ComplianceLow      ComplianceLevel = "low"
)

// DecisionValue is the outcome of a policy evaluation.
type DecisionValue string

const (
	DecisionAllow       DecisionValue = "allow"
	DecisionDeny        DecisionValue = "deny"
	DecisionConditional DecisionValue = "conditional"
)

// Valid reports whether the decision value is one of the known outcomes.
func (v DecisionValue) Valid() bool {
	switch v {
	case DecisionAllow, DecisionDeny, DecisionConditional:
		return true
	}
	return false
}

// PolicyRequest is an immutable evaluation request. It is created once per
// inbound call and never mutated.
type PolicyRequest struct {
	// ID uniquely identifies the request.
	ID string `json:"id"`

	// Category is the policy domain of the request.
	Category PolicyCategory `json:"category"`

	// PolicyID identifies the target policy.
	PolicyID string `json:"policy_id"`

	// Input is the structured payload evaluated against the policy.
	Input map[string]any `json:"input"`

	// ProvenanceToken must equal the system-wide reference value.
	ProvenanceToken string `json:"provenance_token"`

	// Complexity is the declared complexity score in [0,1].
	Complexity float64 `json:"complexity"`

	// Urgency expresses how time-sensitive the request is.
	Urgency Urgency `json:"urgency"`

	// RequiresReasoning forces the request onto the reasoning path.
	RequiresReasoning bool `json:"requires_reasoning"`

	// CacheEnabled allows the decision to be stored and served from cache.
	CacheEnabled bool `json:"cache_enabled"`

	// Metadata is opaque caller-supplied metadata carried into the audit trail.
	Metadata map[string]string `json:"metadata,omitempty"`
}

// Validate checks the request for structural validity.
func (r *PolicyRequest) Validate() error {
	if r.ID == "" {
		return fmt.Errorf("request id is required")
	}
	if r.PolicyID == "" {
		return fmt.Errorf("policy_id is required")
	}
	if !r.Category.Valid() {
		return fmt.Errorf("unknown policy category %q", r.Category)
	}
	if r.Complexity < 0 || r.Complexity > 1 {
		return fmt.Errorf("complexity %v out of range [0,1]", r.Complexity)
	}
	if r.Urgency == "" {
		return fmt.Errorf("urgency is required")
	}
	if !r.Urgency.Valid() {
		return fmt.Errorf("unknown urgency %q", r.Urgency)
	}
	return nil
}

// ConstitutionalContext carries the provenance token, declared compliance
// level, and tenant scope attached to every request. It is validated by the
// compliance gate before anything else executes.
type ConstitutionalContext struct {
	ProvenanceToken string          `json:"provenance_token"`
	ComplianceLevel ComplianceLevel `json:"compliance_level"`
	TenantScope     string          `json:"tenant_scope,omitempty"`
}

// ConstitutionalValidation is the result of the compliance gate.
type ConstitutionalValidation struct {
	IsCompliant     bool     `json:"is_compliant"`
	ComplianceScore float64  `json:"compliance_score"`
	Violations      []string `json:"violations,omitempty"`
	Recommendations []string `json:"recommendations,omitempty"`
}

// EngineKind identifies which kind of engine produced a decision.
type EngineKind string

const (
	// EngineCompiled marks decisions produced by the compiled policy engine.
	EngineCompiled EngineKind = "compiled"

	// EngineReasoning marks decisions produced by a reasoning tier.
	EngineReasoning EngineKind = "reasoning"
)

// EngineOutcome is the tagged provenance of a decision: either the compiled
// engine, or a reasoning tier identified by name.
type EngineOutcome struct {
	Kind EngineKind `json:"kind"`

	// Tier is the reasoning tier name (T0..T3). Empty for compiled outcomes.
	Tier string `json:"tier,omitempty"`
}

// CompiledOutcome returns the outcome for the compiled path.
func CompiledOutcome() EngineOutcome {
	return EngineOutcome{Kind: EngineCompiled}
}

// ReasoningOutcome returns the outcome for the reasoning path on the given tier.
func ReasoningOutcome(tier string) EngineOutcome {
	return EngineOutcome{Kind: EngineReasoning, Tier: tier}
}

// String renders the outcome in the form used in audit records and logs.
func (o EngineOutcome) String() string {
	if o.Kind == EngineReasoning {
		return fmt.Sprintf("%s-%s", o.Kind, o.Tier)
	}
	return string(o.Kind)
}

// CacheStatus reports whether a decision was served from cache.
type CacheStatus string

const (
	CacheHit  CacheStatus = "hit"
	CacheMiss CacheStatus = "miss"
)

// Decision is the immutable result of evaluating one request. Decisions are
// the unit stored in the cache and written to the audit sink.
type Decision struct {
	// RequestID is the id of the request this decision answers.
	RequestID string `json:"request_id"`

	// PolicyID is the policy the request targeted.
	PolicyID string `json:"policy_id"`

	// Value is the decision outcome.
	Value DecisionValue `json:"decision"`

	// Confidence is the evaluation confidence in [0,1].
	Confidence float64 `json:"confidence"`

	// Reasons is an ordered list of human-readable reasons.
	Reasons []string `json:"reasons"`

	// Engine identifies which engine produced the decision.
	Engine EngineOutcome `json:"engine"`

	// Latency is the evaluation latency.
	Latency time.Duration `json:"-"`

	// Validation is the constitutional validation outcome that gated
	// this decision.
	Validation ConstitutionalValidation `json:"constitutional_validation"`

	// CacheStatus reports whether the decision came from the cache.
	CacheStatus CacheStatus `json:"cache_status"`

	// CreatedAt is when the decision was produced.
	CreatedAt time.Time `json:"created_at"`
}

// Clone returns a copy of the decision with the given cache status. Cached
// decisions are immutable; serving a hit must not mutate the stored entry.
func (d *Decision) Clone(status CacheStatus) *Decision {
	out := *d
	out.CacheStatus = status
	out.Reasons = append([]string(nil), d.Reasons...)
	return &out
}
