package expr

import "fmt"

// Node is the tagged-variant AST produced by the compiler. A compiled
// expression is evaluated by a pure tree walk; the source string is never
// re-interpreted at runtime.
type Node interface {
	node()
}

// Literal is a constant: string, float64, bool, nil or []interface{}
type Literal struct {
	Value interface{}
}

// FieldRef is a dotted path into the evaluation context, e.g. risk.level
type FieldRef struct {
	Path []string
}

// Binary is a comparison: == != < <= > >= in
type Binary struct {
	Op    string
	Left  Node
	Right Node
}

// Unary is currently only "not"
type Unary struct {
	Op      string
	Operand Node
}

// Logical is "and" / "or"
type Logical struct {
	Op    string
	Left  Node
	Right Node
}

func (Literal) node()  {}
func (FieldRef) node() {}
func (Binary) node()   {}
func (Unary) node()    {}
func (Logical) node()  {}

// CompileError reports a syntax error with the byte offset it occurred at.
// Rules failing compilation are rejected at create/update time and never
// reach evaluation.
type CompileError struct {
	RuleID  string
	Pos     int
	Message string
}

func (e *CompileError) Error() string {
	if e.RuleID != "" {
		return fmt.Sprintf("rule %s: compile error at position %d: %s", e.RuleID, e.Pos, e.Message)
	}
	return fmt.Sprintf("compile error at position %d: %s", e.Pos, e.Message)
}

// EvalError is a per-expression evaluation failure (type mismatch,
// non-boolean condition). It is recorded on the rule's result and never
// aborts the rest of a batch.
type EvalError struct {
	Message string
}

func (e *EvalError) Error() string {
	return e.Message
}
