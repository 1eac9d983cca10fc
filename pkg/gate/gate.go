package gate

import (
	"crypto/subtle"
	"fmt"

	"arbiter-hq/arbiter/pkg/evaluation"
)

// Gate validates the provenance token attached to every request before any
// evaluation is attempted. It is pure and stateless: validation has no side
// effects and depends only on the reference value fixed at construction.
//
// The gate fails closed. A token that does not exactly equal the reference
// value yields a non-compliant result with score 0.0, and no other field of
// the request is inspected.
type Gate struct {
	reference string
}

// New creates a gate for the given reference provenance value.
// An empty reference is a configuration error: the subsystem must not start
// without one.
func New(reference string) (*Gate, error) {
	if reference == "" {
		return nil, fmt.Errorf("reference provenance value is required")
	}
	return &Gate{reference: reference}, nil
}

// Reference returns the reference provenance value.
func (g *Gate) Reference() string {
	return g.reference
}

// Validate checks the constitutional context against the reference value.
func (g *Gate) Validate(cc evaluation.ConstitutionalContext) evaluation.ConstitutionalValidation {
	if subtle.ConstantTimeCompare([]byte(cc.ProvenanceToken), []byte(g.reference)) != 1 {
		return evaluation.ConstitutionalValidation{
			IsCompliant:     false,
			ComplianceScore: 0.0,
			Violations: []string{
				"provenance token does not match the reference value",
			},
			Recommendations: []string{
				"re-issue the request with the provenance token of the current deployment",
			},
		}
	}

	return evaluation.ConstitutionalValidation{
		IsCompliant:     true,
		ComplianceScore: 1.0,
	}
}
