package expr

import (
	"strconv"
	"strings"
)

// parser is a recursive-descent parser over the token stream.
//
// Grammar:
//
//	expr       := orExpr
//	orExpr     := andExpr { "or" andExpr }
//	andExpr    := notExpr { "and" notExpr }
//	notExpr    := "not" notExpr | comparison
//	comparison := operand [ ( "==" | "!=" | "<" | "<=" | ">" | ">=" | "in" ) operand ]
//	operand    := literal | fieldref | array | "(" expr ")"
type parser struct {
	lex  *lexer
	tok  token
	peek *token
}

// ParseCondition compiles a condition expression string into its AST.
func ParseCondition(input string) (Node, error) {
	if strings.TrimSpace(input) == "" {
		return nil, &CompileError{Pos: 0, Message: "empty expression"}
	}
	p, err := newParser(input)
	if err != nil {
		return nil, err
	}
	node, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if p.tok.typ != tokenEOF {
		return nil, &CompileError{Pos: p.tok.pos, Message: "unexpected token " + p.tok.val}
	}
	return node, nil
}

func newParser(input string) (*parser, error) {
	p := &parser{lex: newLexer(input)}
	if err := p.advance(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *parser) advance() error {
	if p.peek != nil {
		p.tok = *p.peek
		p.peek = nil
		return nil
	}
	tok, err := p.lex.next()
	if err != nil {
		return err
	}
	p.tok = tok
	return nil
}

func (p *parser) parseOr() (Node, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.tok.typ == tokenIdent && p.tok.val == "or" {
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = Logical{Op: "or", Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) parseAnd() (Node, error) {
	left, err := p.parseNot()
	if err != nil {
		return nil, err
	}
	for p.tok.typ == tokenIdent && p.tok.val == "and" {
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		left = Logical{Op: "and", Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) parseNot() (Node, error) {
	if p.tok.typ == tokenIdent && p.tok.val == "not" {
		if err := p.advance(); err != nil {
			return nil, err
		}
		operand, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		return Unary{Op: "not", Operand: operand}, nil
	}
	return p.parseComparison()
}

func (p *parser) parseComparison() (Node, error) {
	left, err := p.parseOperand()
	if err != nil {
		return nil, err
	}

	var op string
	switch {
	case p.tok.typ == tokenOperator:
		op = p.tok.val
	case p.tok.typ == tokenIdent && p.tok.val == "in":
		op = "in"
	default:
		return left, nil
	}

	if err := p.advance(); err != nil {
		return nil, err
	}
	right, err := p.parseOperand()
	if err != nil {
		return nil, err
	}
	return Binary{Op: op, Left: left, Right: right}, nil
}

func (p *parser) parseOperand() (Node, error) {
	tok := p.tok
	switch tok.typ {
	case tokenNumber:
		f, err := strconv.ParseFloat(tok.val, 64)
		if err != nil {
			return nil, &CompileError{Pos: tok.pos, Message: "invalid number " + tok.val}
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
		return Literal{Value: f}, nil

	case tokenString:
		if err := p.advance(); err != nil {
			return nil, err
		}
		return Literal{Value: tok.val}, nil

	case tokenLBracket:
		return p.parseArray()

	case tokenLParen:
		if err := p.advance(); err != nil {
			return nil, err
		}
		inner, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if p.tok.typ != tokenRParen {
			return nil, &CompileError{Pos: p.tok.pos, Message: "expected )"}
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
		return inner, nil

	case tokenIdent:
		switch tok.val {
		case "true":
			if err := p.advance(); err != nil {
				return nil, err
			}
			return Literal{Value: true}, nil
		case "false":
			if err := p.advance(); err != nil {
				return nil, err
			}
			return Literal{Value: false}, nil
		case "null":
			if err := p.advance(); err != nil {
				return nil, err
			}
			return Literal{Value: nil}, nil
		case "and", "or", "not", "in":
			return nil, &CompileError{Pos: tok.pos, Message: "unexpected keyword " + tok.val}
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
		return FieldRef{Path: strings.Split(tok.val, ".")}, nil
	}

	return nil, &CompileError{Pos: tok.pos, Message: "unexpected token"}
}

func (p *parser) parseArray() (Node, error) {
	// consume '['
	if err := p.advance(); err != nil {
		return nil, err
	}
	var values []interface{}
	for p.tok.typ != tokenRBracket {
		elem, err := p.parseOperand()
		if err != nil {
			return nil, err
		}
		lit, ok := elem.(Literal)
		if !ok {
			return nil, &CompileError{Pos: p.tok.pos, Message: "array elements must be literals"}
		}
		values = append(values, lit.Value)

		if p.tok.typ == tokenComma {
			if err := p.advance(); err != nil {
				return nil, err
			}
			continue
		}
		if p.tok.typ != tokenRBracket {
			return nil, &CompileError{Pos: p.tok.pos, Message: "expected , or ] in array"}
		}
	}
	// consume ']'
	if err := p.advance(); err != nil {
		return nil, err
	}
	return Literal{Value: values}, nil
}
