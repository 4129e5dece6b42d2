package expr

import "strings"

// ActionSpec is the compiled form of an action expression. Parameter values
// may be literals or field references resolved against the evaluation
// context when the action runs, so both the expression form and the
// structured action_type+action_config form converge on the same Action.
type ActionSpec struct {
	Type   string
	Params map[string]Node
}

// Action is the materialized action handed to the executor.
type Action struct {
	Type   string                 `json:"type" bson:"type"`
	Config map[string]interface{} `json:"config" bson:"config"`
}

// ParseAction compiles an action expression:
//
//	require_additional_approval
//	set_field(field: 'status', value: 'flagged')
//	notify(user: assigned_to, message: 'review needed')
func ParseAction(input string) (*ActionSpec, error) {
	if strings.TrimSpace(input) == "" {
		return nil, &CompileError{Pos: 0, Message: "empty action expression"}
	}
	p, err := newParser(input)
	if err != nil {
		return nil, err
	}

	if p.tok.typ != tokenIdent {
		return nil, &CompileError{Pos: p.tok.pos, Message: "expected action name"}
	}
	spec := &ActionSpec{Type: p.tok.val, Params: map[string]Node{}}
	if err := p.advance(); err != nil {
		return nil, err
	}

	if p.tok.typ == tokenEOF {
		return spec, nil
	}
	if p.tok.typ != tokenLParen {
		return nil, &CompileError{Pos: p.tok.pos, Message: "expected ( after action name"}
	}
	if err := p.advance(); err != nil {
		return nil, err
	}

	for p.tok.typ != tokenRParen {
		if p.tok.typ != tokenIdent {
			return nil, &CompileError{Pos: p.tok.pos, Message: "expected parameter name"}
		}
		name := p.tok.val
		if err := p.advance(); err != nil {
			return nil, err
		}
		if p.tok.typ != tokenColon {
			return nil, &CompileError{Pos: p.tok.pos, Message: "expected : after parameter name"}
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
		value, err := p.parseOperand()
		if err != nil {
			return nil, err
		}
		spec.Params[name] = value

		if p.tok.typ == tokenComma {
			if err := p.advance(); err != nil {
				return nil, err
			}
			continue
		}
		if p.tok.typ != tokenRParen {
			return nil, &CompileError{Pos: p.tok.pos, Message: "expected , or ) in action parameters"}
		}
	}
	if err := p.advance(); err != nil {
		return nil, err
	}
	if p.tok.typ != tokenEOF {
		return nil, &CompileError{Pos: p.tok.pos, Message: "unexpected token after action"}
	}
	return spec, nil
}

// FromConfig wraps a pre-structured action_type + action_config pair in an
// ActionSpec, so structured rules share the executor path with compiled ones.
func FromConfig(actionType string, config map[string]interface{}) *ActionSpec {
	params := make(map[string]Node, len(config))
	for k, v := range config {
		params[k] = Literal{Value: v}
	}
	return &ActionSpec{Type: actionType, Params: params}
}

// Materialize resolves the spec's parameters against a context, producing
// the Action handed to the executor. Field references pull live values from
// the context; missing paths resolve to null.
func (s *ActionSpec) Materialize(ctx map[string]interface{}) (Action, error) {
	config := make(map[string]interface{}, len(s.Params))
	for name, node := range s.Params {
		val, err := eval(node, ctx)
		if err != nil {
			return Action{}, err
		}
		config[name] = val
	}
	return Action{Type: s.Type, Config: config}, nil
}
