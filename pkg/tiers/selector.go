package tiers

import "arbiter-hq/arbiter/pkg/evaluation"

// Select maps (policy category, complexity score, urgency) to a reasoning
// tier. It is a pure total function: no I/O, no state, and the same inputs
// always produce the same tier within one deployment.
//
// The thresholds form a total order, evaluated top to bottom:
//
//	complexity < 0.3 and category in {access-control, rate-limiting} -> T0
//	complexity < 0.6 and urgency != critical                         -> T1
//	complexity < 0.8                                                 -> T2
//	otherwise                                                        -> T3
func Select(category evaluation.PolicyCategory, complexity float64, urgency evaluation.Urgency) Tier {
	if complexity < 0.3 &&
		(category == evaluation.CategoryAccessControl || category == evaluation.CategoryRateLimiting) {
		return T0
	}
	if complexity < 0.6 && urgency != evaluation.UrgencyCritical {
		return T1
	}
	if complexity < 0.8 {
		return T2
	}
	return T3
}
