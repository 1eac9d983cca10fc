package gate

import (
	"testing"

	"arbiter-hq/arbiter/pkg/evaluation"
)

func TestNew(t *testing.T) {
	if _, err := New(""); err == nil {
		t.Error("New(\"\") should fail, empty reference must not be accepted")
	}

	g, err := New("ref-v1")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if g.Reference() != "ref-v1" {
		t.Errorf("Reference() = %q, want ref-v1", g.Reference())
	}
}

func TestGate_Validate(t *testing.T) {
	g, err := New("sha256:a1b2c3")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	tests := []struct {
		name      string
		token     string
		compliant bool
		score     float64
	}{
		{
			name:      "matching token",
			token:     "sha256:a1b2c3",
			compliant: true,
			score:     1.0,
		},
		{
			name:      "garbage token",
			token:     "garbage",
			compliant: false,
			score:     0.0,
		},
		{
			name:      "empty token",
			token:     "",
			compliant: false,
			score:     0.0,
		},
		{
			name:      "prefix of reference",
			token:     "sha256:a1b2",
			compliant: false,
			score:     0.0,
		},
		{
			name:      "reference with trailing byte",
			token:     "sha256:a1b2c3 ",
			compliant: false,
			score:     0.0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := g.Validate(evaluation.ConstitutionalContext{
				ProvenanceToken: tt.token,
				ComplianceLevel: evaluation.ComplianceHigh,
			})

			if result.IsCompliant != tt.compliant {
				t.Errorf("IsCompliant = %v, want %v", result.IsCompliant, tt.compliant)
			}
			if result.ComplianceScore != tt.score {
				t.Errorf("ComplianceScore = %v, want %v", result.ComplianceScore, tt.score)
			}
			if !tt.compliant && len(result.Violations) != 1 {
				t.Errorf("Violations = %v, want exactly one", result.Violations)
			}
			if tt.compliant && len(result.Violations) != 0 {
				t.Errorf("Violations = %v, want none", result.Violations)
			}
		})
	}
}

func TestGate_ValidateIsPure(t *testing.T) {
	g, _ := New("ref")
	cc := evaluation.ConstitutionalContext{ProvenanceToken: "ref"}

	first := g.Validate(cc)
	for i := 0; i < 100; i++ {
		if got := g.Validate(cc); got.IsCompliant != first.IsCompliant {
			t.Fatal("Validate() is not referentially transparent")
		}
	}
}
