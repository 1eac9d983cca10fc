package compiled

import (
	"fmt"
	"reflect"
	"strings"
)

// matchRule reports whether all conditions of a rule hold for the input.
// A rule with no conditions always matches.
func matchRule(rule *Rule, input map[string]any) (bool, error) {
	for i := range rule.Conditions {
		ok, err := matchCondition(&rule.Conditions[i], input)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

// matchCondition evaluates a single condition against the input.
func matchCondition(cond *Condition, input map[string]any) (bool, error) {
	value, present := lookup(input, cond.Field)

	if cond.Operator == OpExists {
		want := true
		if b, ok := cond.Value.(bool); ok {
			want = b
		}
		return present == want, nil
	}

	if !present {
		return false, nil
	}

	switch cond.Operator {
	case OpEqual:
		return looseEqual(value, cond.Value), nil

	case OpNotEqual:
		return !looseEqual(value, cond.Value), nil

	case OpGreaterThan, OpGreaterOrEqual, OpLessThan, OpLessOrEqual:
		a, ok1 := toFloat(value)
		b, ok2 := toFloat(cond.Value)
		if !ok1 || !ok2 {
			return false, fmt.Errorf("operator %s requires numeric operands, got %T and %T",
				cond.Operator, value, cond.Value)
		}
		switch cond.Operator {
		case OpGreaterThan:
			return a > b, nil
		case OpGreaterOrEqual:
			return a >= b, nil
		case OpLessThan:
			return a < b, nil
		default:
			return a <= b, nil
		}

	case OpIn:
		list, ok := toSlice(cond.Value)
		if !ok {
			return false, fmt.Errorf("operator in requires a list value, got %T", cond.Value)
		}
		for _, candidate := range list {
			if looseEqual(value, candidate) {
				return true, nil
			}
		}
		return false, nil

	case OpContains:
		switch v := value.(type) {
		case string:
			needle, ok := cond.Value.(string)
			if !ok {
				return false, fmt.Errorf("operator contains on a string requires a string value, got %T", cond.Value)
			}
			return strings.Contains(v, needle), nil
		default:
			list, ok := toSlice(value)
			if !ok {
				return false, fmt.Errorf("operator contains requires a string or list field, got %T", value)
			}
			for _, item := range list {
				if looseEqual(item, cond.Value) {
					return true, nil
				}
			}
			return false, nil
		}

	default:
		return false, fmt.Errorf("unknown operator %q", cond.Operator)
	}
}

// lookup resolves a dot path against the input payload.
func lookup(input map[string]any, path string) (any, bool) {
	parts := strings.Split(path, ".")
	var current any = input

	for _, part := range parts {
		m, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		current, ok = m[part]
		if !ok {
			return nil, false
		}
	}
	return current, true
}

// looseEqual compares two values, treating all numeric types as float64 so
// that YAML-decoded policy values compare equal to JSON-decoded input values.
func looseEqual(a, b any) bool {
	if fa, ok := toFloat(a); ok {
		if fb, ok := toFloat(b); ok {
			return fa == fb
		}
		return false
	}
	return reflect.DeepEqual(a, b)
}

// toFloat coerces the numeric types produced by JSON and YAML decoding.
func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	}
	return 0, false
}

// toSlice coerces a decoded list value to []any.
func toSlice(v any) ([]any, bool) {
	if list, ok := v.([]any); ok {
		return list, true
	}
	return nil, false
}
