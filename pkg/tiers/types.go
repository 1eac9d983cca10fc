package tiers

import (
	"fmt"
	"time"
)

// Tier identifies one of the externally hosted reasoning tiers, ordered by
// increasing cost, latency, and capability.
type Tier int

const (
	// T0 is the smallest and fastest tier.
	T0 Tier = iota
	T1
	T2
	// T3 is the largest and most capable tier.
	T3
)

// All lists the tiers in ascending capability order.
func All() []Tier {
	return []Tier{T0, T1, T2, T3}
}

// String returns the tier name (T0..T3).
func (t Tier) String() string {
	return fmt.Sprintf("T%d", int(t))
}

// Valid reports whether the tier is one of T0..T3.
func (t Tier) Valid() bool {
	return t >= T0 && t <= T3
}

// Parse parses a tier name (T0..T3).
func Parse(name string) (Tier, error) {
	for _, t := range All() {
		if t.String() == name {
			return t, nil
		}
	}
	return 0, fmt.Errorf("unknown tier %q", name)
}

// Config is the declared configuration of a reasoning tier: its latency
// target and relative cost. The selector never reads cost; it is an emergent
// property of correct tier selection, not an input to it.
type Config struct {
	Tier          Tier          `json:"tier" yaml:"tier"`
	LatencyTarget time.Duration `json:"latency_target" yaml:"latency_target"`
	RelativeCost  float64       `json:"relative_cost" yaml:"relative_cost"`
}

// DefaultConfigs returns the default declared tier configurations.
func DefaultConfigs() []Config {
	return []Config{
		{Tier: T0, LatencyTarget: 100 * time.Millisecond, RelativeCost: 1},
		{Tier: T1, LatencyTarget: 500 * time.Millisecond, RelativeCost: 5},
		{Tier: T2, LatencyTarget: 2 * time.Second, RelativeCost: 25},
		{Tier: T3, LatencyTarget: 8 * time.Second, RelativeCost: 100},
	}
}
