package compiled

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"arbiter-hq/arbiter/pkg/evaluation"
)

// Operator is a comparison operator in a rule condition.
type Operator string

const (
	OpEqual          Operator = "eq"
	OpNotEqual       Operator = "ne"
	OpGreaterThan    Operator = "gt"
	OpGreaterOrEqual Operator = "gte"
	OpLessThan       Operator = "lt"
	OpLessOrEqual    Operator = "lte"
	OpIn             Operator = "in"
	OpContains       Operator = "contains"
	OpExists         Operator = "exists"
)

// Valid reports whether the operator is known.
func (o Operator) Valid() bool {
	switch o {
	case OpEqual, OpNotEqual, OpGreaterThan, OpGreaterOrEqual,
		OpLessThan, OpLessOrEqual, OpIn, OpContains, OpExists:
		return true
	}
	return false
}

// Condition is a single comparison against a field of the request input.
// Field is a dot path into the input payload (e.g. "resource.type").
type Condition struct {
	Field    string   `json:"field" yaml:"field"`
	Operator Operator `json:"operator" yaml:"operator"`
	Value    any      `json:"value,omitempty" yaml:"value,omitempty"`
}

// Rule is an ordered rule within a compiled policy. All conditions must match
// for the rule to fire; a rule with no conditions always matches.
type Rule struct {
	Name       string                   `json:"name" yaml:"name"`
	Effect     evaluation.DecisionValue `json:"effect" yaml:"effect"`
	Reason     string                   `json:"reason,omitempty" yaml:"reason,omitempty"`
	Conditions []Condition              `json:"conditions,omitempty" yaml:"conditions,omitempty"`
}

// CompiledPolicy is a statically compiled rule set evaluated without external
// calls. Policies are immutable once loaded; re-loading the same identifier
// with a new version replaces the table entry atomically.
type CompiledPolicy struct {
	ID              string                    `json:"id" yaml:"id"`
	Version         string                    `json:"version" yaml:"version"`
	Category        evaluation.PolicyCategory `json:"category" yaml:"category"`
	ProvenanceToken string                    `json:"provenance_token" yaml:"provenance_token"`
	Default         evaluation.DecisionValue  `json:"default" yaml:"default"`
	Rules           []Rule                    `json:"rules" yaml:"rules"`
}

// Validate checks the policy body for structural validity. Provenance is
// checked separately by the engine at load time.
func (p *CompiledPolicy) Validate() error {
	if p.ID == "" {
		return &ValidationError{PolicyID: p.ID, Message: "policy id is required"}
	}
	if p.Version == "" {
		return &ValidationError{PolicyID: p.ID, Message: "policy version is required"}
	}
	if !p.Category.Valid() {
		return &ValidationError{PolicyID: p.ID, Message: fmt.Sprintf("unknown category %q", p.Category)}
	}
	if p.Default != "" && !p.Default.Valid() {
		return &ValidationError{PolicyID: p.ID, Message: fmt.Sprintf("unknown default effect %q", p.Default)}
	}
	if len(p.Rules) == 0 && p.Default == "" {
		return &ValidationError{PolicyID: p.ID, Message: "policy has no rules and no default effect"}
	}

	for i, rule := range p.Rules {
		if rule.Name == "" {
			return &ValidationError{PolicyID: p.ID, Message: fmt.Sprintf("rule %d has no name", i)}
		}
		if !rule.Effect.Valid() {
			return &ValidationError{PolicyID: p.ID, Message: fmt.Sprintf("rule %q has unknown effect %q", rule.Name, rule.Effect)}
		}
		for j, cond := range rule.Conditions {
			if cond.Field == "" {
				return &ValidationError{PolicyID: p.ID, Message: fmt.Sprintf("rule %q condition %d has no field", rule.Name, j)}
			}
			if !cond.Operator.Valid() {
				return &ValidationError{PolicyID: p.ID, Message: fmt.Sprintf("rule %q condition %d has unknown operator %q", rule.Name, j, cond.Operator)}
			}
			if cond.Operator != OpExists && cond.Value == nil {
				return &ValidationError{PolicyID: p.ID, Message: fmt.Sprintf("rule %q condition %d requires a value", rule.Name, j)}
			}
		}
	}

	return nil
}

// ParseYAML parses a compiled policy document from YAML.
func ParseYAML(data []byte) (*CompiledPolicy, error) {
	var p CompiledPolicy
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to parse policy document: %w", err)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}
