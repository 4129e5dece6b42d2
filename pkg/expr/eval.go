package expr

import (
	"fmt"
	"reflect"
)

// EvalCondition walks a compiled condition AST against a context and returns
// whether it matched. The context is never mutated. A type mismatch returns
// an *EvalError so a single malformed rule never blocks the rest of a batch.
func EvalCondition(node Node, ctx map[string]interface{}) (bool, error) {
	val, err := eval(node, ctx)
	if err != nil {
		return false, err
	}
	switch v := val.(type) {
	case bool:
		return v, nil
	case nil:
		return false, nil
	default:
		return false, &EvalError{Message: fmt.Sprintf("condition evaluated to %T, expected boolean", val)}
	}
}

func eval(node Node, ctx map[string]interface{}) (interface{}, error) {
	switch n := node.(type) {
	case Literal:
		return n.Value, nil

	case FieldRef:
		// Missing paths evaluate to null, not an error
		return lookupPath(ctx, n.Path), nil

	case Unary:
		operand, err := eval(n.Operand, ctx)
		if err != nil {
			return nil, err
		}
		b, ok := operand.(bool)
		if !ok {
			if operand == nil {
				return true, nil // not null == not false
			}
			return nil, &EvalError{Message: fmt.Sprintf("not applied to %T, expected boolean", operand)}
		}
		return !b, nil

	case Logical:
		left, err := eval(n.Left, ctx)
		if err != nil {
			return nil, err
		}
		lb, ok := left.(bool)
		if !ok {
			if left == nil {
				lb = false
			} else {
				return nil, &EvalError{Message: fmt.Sprintf("%s applied to %T, expected boolean", n.Op, left)}
			}
		}
		// Short-circuit
		if n.Op == "and" && !lb {
			return false, nil
		}
		if n.Op == "or" && lb {
			return true, nil
		}
		right, err := eval(n.Right, ctx)
		if err != nil {
			return nil, err
		}
		rb, ok := right.(bool)
		if !ok {
			if right == nil {
				rb = false
			} else {
				return nil, &EvalError{Message: fmt.Sprintf("%s applied to %T, expected boolean", n.Op, right)}
			}
		}
		return rb, nil

	case Binary:
		left, err := eval(n.Left, ctx)
		if err != nil {
			return nil, err
		}
		right, err := eval(n.Right, ctx)
		if err != nil {
			return nil, err
		}
		return compare(n.Op, left, right)
	}

	return nil, &EvalError{Message: fmt.Sprintf("unknown node %T", node)}
}

func compare(op string, left, right interface{}) (interface{}, error) {
	switch op {
	case "==":
		return looseEqual(left, right), nil
	case "!=":
		return !looseEqual(left, right), nil
	case "in":
		return evalIn(left, right)
	case "<", "<=", ">", ">=":
		// Comparisons against null are false, not errors
		if left == nil || right == nil {
			return false, nil
		}
		lf, lok := toFloat(left)
		rf, rok := toFloat(right)
		if lok && rok {
			switch op {
			case "<":
				return lf < rf, nil
			case "<=":
				return lf <= rf, nil
			case ">":
				return lf > rf, nil
			case ">=":
				return lf >= rf, nil
			}
		}
		ls, lok := left.(string)
		rs, rok := right.(string)
		if lok && rok {
			switch op {
			case "<":
				return ls < rs, nil
			case "<=":
				return ls <= rs, nil
			case ">":
				return ls > rs, nil
			case ">=":
				return ls >= rs, nil
			}
		}
		return nil, &EvalError{Message: fmt.Sprintf("cannot compare %T %s %T", left, op, right)}
	}
	return nil, &EvalError{Message: "unknown operator " + op}
}

// looseEqual compares values after numeric normalization. Comparing against
// the null literal is the explicit null check; comparing distinct types is
// simply false.
func looseEqual(left, right interface{}) bool {
	if left == nil || right == nil {
		return left == nil && right == nil
	}
	if lf, ok := toFloat(left); ok {
		if rf, ok := toFloat(right); ok {
			return lf == rf
		}
		return false
	}
	return reflect.DeepEqual(left, right)
}

func evalIn(left, right interface{}) (interface{}, error) {
	if right == nil {
		return false, nil
	}
	rv := reflect.ValueOf(right)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, &EvalError{Message: fmt.Sprintf("in requires an array, got %T", right)}
	}
	for i := 0; i < rv.Len(); i++ {
		if looseEqual(left, rv.Index(i).Interface()) {
			return true, nil
		}
	}
	return false, nil
}

// lookupPath resolves a dotted path against nested maps; any missing or
// non-map segment yields nil.
func lookupPath(ctx map[string]interface{}, path []string) interface{} {
	var current interface{} = ctx
	for _, segment := range path {
		m, ok := current.(map[string]interface{})
		if !ok {
			return nil
		}
		current, ok = m[segment]
		if !ok {
			return nil
		}
	}
	return current
}

// toFloat normalizes the numeric types JSON and BSON decoding produce.
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
	}
	return 0, false
}
