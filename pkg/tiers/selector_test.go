package tiers

import (
	"testing"

	"arbiter-hq/arbiter/pkg/evaluation"
)

func TestSelect(t *testing.T) {
	tests := []struct {
		name       string
		category   evaluation.PolicyCategory
		complexity float64
		urgency    evaluation.Urgency
		want       Tier
	}{
		{
			name:       "simple access control",
			category:   evaluation.CategoryAccessControl,
			complexity: 0.1,
			urgency:    evaluation.UrgencyNormal,
			want:       T0,
		},
		{
			name:       "simple rate limiting",
			category:   evaluation.CategoryRateLimiting,
			complexity: 0.29,
			urgency:    evaluation.UrgencyHigh,
			want:       T0,
		},
		{
			name:       "simple privacy does not qualify for T0",
			category:   evaluation.CategoryPrivacy,
			complexity: 0.1,
			urgency:    evaluation.UrgencyNormal,
			want:       T1,
		},
		{
			name:       "access control at T0 boundary",
			category:   evaluation.CategoryAccessControl,
			complexity: 0.3,
			urgency:    evaluation.UrgencyNormal,
			want:       T1,
		},
		{
			name:       "moderate complexity non-critical",
			category:   evaluation.CategoryDataGovernance,
			complexity: 0.5,
			urgency:    evaluation.UrgencyHigh,
			want:       T1,
		},
		{
			name:       "moderate complexity but critical urgency",
			category:   evaluation.CategoryDataGovernance,
			complexity: 0.5,
			urgency:    evaluation.UrgencyCritical,
			want:       T2,
		},
		{
			name:       "high complexity",
			category:   evaluation.CategoryPrivacy,
			complexity: 0.75,
			urgency:    evaluation.UrgencyLow,
			want:       T2,
		},
		{
			name:       "very high complexity",
			category:   evaluation.CategoryCostOptimization,
			complexity: 0.8,
			urgency:    evaluation.UrgencyLow,
			want:       T3,
		},
		{
			name:       "critical constitutional compliance",
			category:   evaluation.CategoryConstitutionalCompliance,
			complexity: 0.95,
			urgency:    evaluation.UrgencyCritical,
			want:       T3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Select(tt.category, tt.complexity, tt.urgency)
			if got != tt.want {
				t.Errorf("Select(%s, %v, %s) = %s, want %s",
					tt.category, tt.complexity, tt.urgency, got, tt.want)
			}
		})
	}
}

func TestSelect_Deterministic(t *testing.T) {
	first := Select(evaluation.CategoryPrivacy, 0.55, evaluation.UrgencyHigh)
	for i := 0; i < 1000; i++ {
		if got := Select(evaluation.CategoryPrivacy, 0.55, evaluation.UrgencyHigh); got != first {
			t.Fatalf("Select() changed result on repeated call: %s then %s", first, got)
		}
	}
}

func TestParse(t *testing.T) {
	for _, tier := range All() {
		parsed, err := Parse(tier.String())
		if err != nil {
			t.Errorf("Parse(%s) error = %v", tier, err)
		}
		if parsed != tier {
			t.Errorf("Parse(%s) = %s", tier, parsed)
		}
	}

	if _, err := Parse("T9"); err == nil {
		t.Error("Parse(T9) should fail")
	}
}

func TestDefaultConfigs_OrderedByCost(t *testing.T) {
	cfgs := DefaultConfigs()
	if len(cfgs) != len(All()) {
		t.Fatalf("DefaultConfigs() returned %d configs, want %d", len(cfgs), len(All()))
	}
	for i := 1; i < len(cfgs); i++ {
		if cfgs[i].RelativeCost <= cfgs[i-1].RelativeCost {
			t.Errorf("tier %s cost %v not greater than %s cost %v",
				cfgs[i].Tier, cfgs[i].RelativeCost, cfgs[i-1].Tier, cfgs[i-1].RelativeCost)
		}
		if cfgs[i].LatencyTarget <= cfgs[i-1].LatencyTarget {
			t.Errorf("tier %s latency target not greater than %s", cfgs[i].Tier, cfgs[i-1].Tier)
		}
	}
}
