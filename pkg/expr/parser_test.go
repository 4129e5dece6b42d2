package expr

import (
	"errors"
	"reflect"
	"testing"
)

func TestParseCondition(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  Node
	}{
		{
			name:  "Simple Equality",
			input: "risk_level == 'high'",
			want: Binary{
				Op:    "==",
				Left:  FieldRef{Path: []string{"risk_level"}},
				Right: Literal{Value: "high"},
			},
		},
		{
			name:  "Dotted Path",
			input: "risk.level != 'low'",
			want: Binary{
				Op:    "!=",
				Left:  FieldRef{Path: []string{"risk", "level"}},
				Right: Literal{Value: "low"},
			},
		},
		{
			name:  "Numeric Comparison",
			input: "amount >= 1000",
			want: Binary{
				Op:    ">=",
				Left:  FieldRef{Path: []string{"amount"}},
				Right: Literal{Value: float64(1000)},
			},
		},
		{
			name:  "Membership",
			input: "agent_type in ['retail', 'corporate']",
			want: Binary{
				Op:    "in",
				Left:  FieldRef{Path: []string{"agent_type"}},
				Right: Literal{Value: []interface{}{"retail", "corporate"}},
			},
		},
		{
			name:  "Null Check",
			input: "reviewed_by == null",
			want: Binary{
				Op:    "==",
				Left:  FieldRef{Path: []string{"reviewed_by"}},
				Right: Literal{Value: nil},
			},
		},
		{
			name:  "And Or Precedence",
			input: "a == 1 or b == 2 and c == 3",
			want: Logical{
				Op:   "or",
				Left: Binary{Op: "==", Left: FieldRef{Path: []string{"a"}}, Right: Literal{Value: float64(1)}},
				Right: Logical{
					Op:    "and",
					Left:  Binary{Op: "==", Left: FieldRef{Path: []string{"b"}}, Right: Literal{Value: float64(2)}},
					Right: Binary{Op: "==", Left: FieldRef{Path: []string{"c"}}, Right: Literal{Value: float64(3)}},
				},
			},
		},
		{
			name:  "Grouping Overrides Precedence",
			input: "(a == 1 or b == 2) and c == 3",
			want: Logical{
				Op: "and",
				Left: Logical{
					Op:    "or",
					Left:  Binary{Op: "==", Left: FieldRef{Path: []string{"a"}}, Right: Literal{Value: float64(1)}},
					Right: Binary{Op: "==", Left: FieldRef{Path: []string{"b"}}, Right: Literal{Value: float64(2)}},
				},
				Right: Binary{Op: "==", Left: FieldRef{Path: []string{"c"}}, Right: Literal{Value: float64(3)}},
			},
		},
		{
			name:  "Negation",
			input: "not active == true",
			want: Unary{
				Op:      "not",
				Operand: Binary{Op: "==", Left: FieldRef{Path: []string{"active"}}, Right: Literal{Value: true}},
			},
		},
		{
			name:  "Negative Number",
			input: "balance < -10.5",
			want: Binary{
				Op:    "<",
				Left:  FieldRef{Path: []string{"balance"}},
				Right: Literal{Value: -10.5},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseCondition(tt.input)
			if err != nil {
				t.Fatalf("ParseCondition(%q) error: %v", tt.input, err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ParseCondition(%q)\n got: %#v\nwant: %#v", tt.input, got, tt.want)
			}
		})
	}
}

func TestParseConditionErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"Empty", ""},
		{"Unterminated String", "status == 'high"},
		{"Dangling Operator", "amount >="},
		{"Unbalanced Paren", "(a == 1"},
		{"Keyword As Operand", "and == 1"},
		{"Trailing Garbage", "a == 1 b"},
		{"Bad Character", "a == #"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseCondition(tt.input)
			if err == nil {
				t.Fatalf("ParseCondition(%q) expected error, got nil", tt.input)
			}
			var ce *CompileError
			if !errors.As(err, &ce) {
				t.Errorf("ParseCondition(%q) error type = %T, want *CompileError", tt.input, err)
			}
		})
	}
}

func TestCompileErrorPosition(t *testing.T) {
	_, err := ParseCondition("status == 'high' && active")
	var ce *CompileError
	if !errors.As(err, &ce) {
		t.Fatalf("expected *CompileError, got %v", err)
	}
	if ce.Pos != 17 {
		t.Errorf("Pos = %d, want 17", ce.Pos)
	}
}
