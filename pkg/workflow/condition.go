package workflow

import (
	"encoding/json"
	"reflect"
	"strings"

	"github.com/pkg/errors"
)

// ConditionOp is one of the comparison operators a condition may use.
type ConditionOp string

const (
	OpEq       ConditionOp = "eq"
	OpNe       ConditionOp = "ne"
	OpGt       ConditionOp = "gt"
	OpGte      ConditionOp = "gte"
	OpLt       ConditionOp = "lt"
	OpLte      ConditionOp = "lte"
	OpIn       ConditionOp = "in"
	OpContains ConditionOp = "contains"
	OpExists   ConditionOp = "exists"
)

// Condition is a small, explicit predicate evaluated against a task's
// structured output: equality, numeric comparison, membership and presence
// checks only. Field is a dotted path into map-shaped output; an empty
// field addresses the whole output value.
type Condition struct {
	Field  string        `json:"field,omitempty" yaml:"field,omitempty"`
	Op     ConditionOp   `json:"op" yaml:"op"`
	Value  interface{}   `json:"value,omitempty" yaml:"value,omitempty"`
	Values []interface{} `json:"values,omitempty" yaml:"values,omitempty"` // operands for "in"
}

func (c *Condition) validate() error {
	switch c.Op {
	case OpEq, OpNe, OpGt, OpGte, OpLt, OpLte, OpContains:
		if c.Value == nil {
			return errors.Errorf("condition op %q requires a value", c.Op)
		}
	case OpIn:
		if len(c.Values) == 0 {
			return errors.New(`condition op "in" requires a non-empty values list`)
		}
	case OpExists:
		// presence check needs no operand
	case "":
		return errors.New("condition is missing an op")
	default:
		return errors.Errorf("unknown condition op %q", c.Op)
	}
	return nil
}

// Eval applies the condition to a task's output. Evaluation is pure: a
// missing field or a type mismatch makes the condition false, never an
// error. Malformed conditions are rejected up front by Validate.
func (c *Condition) Eval(output interface{}) bool {
	field, ok := lookupField(output, c.Field)
	if c.Op == OpExists {
		return ok
	}
	if !ok {
		return false
	}
	switch c.Op {
	case OpEq:
		return looseEqual(field, c.Value)
	case OpNe:
		return !looseEqual(field, c.Value)
	case OpGt, OpGte, OpLt, OpLte:
		left, lok := toFloat(field)
		right, rok := toFloat(c.Value)
		if !lok || !rok {
			return false
		}
		switch c.Op {
		case OpGt:
			return left > right
		case OpGte:
			return left >= right
		case OpLt:
			return left < right
		default:
			return left <= right
		}
	case OpIn:
		for _, candidate := range c.Values {
			if looseEqual(field, candidate) {
				return true
			}
		}
		return false
	case OpContains:
		return containsValue(field, c.Value)
	}
	return false
}

// lookupField walks a dotted path through map-shaped output. The empty path
// addresses the output itself.
func lookupField(output interface{}, path string) (interface{}, bool) {
	if path == "" {
		return output, output != nil
	}
	current := output
	for _, segment := range strings.Split(path, ".") {
		m, ok := current.(map[string]interface{})
		if !ok {
			return nil, false
		}
		current, ok = m[segment]
		if !ok {
			return nil, false
		}
	}
	return current, true
}

// looseEqual compares with numeric coercion so 2 == 2.0 across the JSON and
// YAML decoders, falling back to deep equality for everything else.
func looseEqual(a, b interface{}) bool {
	if af, ok := toFloat(a); ok {
		if bf, ok := toFloat(b); ok {
			return af == bf
		}
		return false
	}
	return reflect.DeepEqual(a, b)
}

func toFloat(v interface{}) (float64, bool) {
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
	case uint:
		return float64(n), true
	case uint64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

func containsValue(haystack, needle interface{}) bool {
	switch h := haystack.(type) {
	case string:
		s, ok := needle.(string)
		return ok && strings.Contains(h, s)
	case []interface{}:
		for _, item := range h {
			if looseEqual(item, needle) {
				return true
			}
		}
	}
	return false
}
