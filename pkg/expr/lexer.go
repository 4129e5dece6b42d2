package expr

import (
	"strings"
	"unicode"
)

type tokenType int

const (
	tokenEOF tokenType = iota
	tokenIdent
	tokenString
	tokenNumber
	tokenOperator // == != < <= > >=
	tokenLParen
	tokenRParen
	tokenLBracket
	tokenRBracket
	tokenComma
	tokenColon
)

type token struct {
	typ tokenType
	val string
	pos int
}

type lexer struct {
	input string
	pos   int
}

func newLexer(input string) *lexer {
	return &lexer{input: input}
}

func (l *lexer) next() (token, error) {
	for l.pos < len(l.input) && unicode.IsSpace(rune(l.input[l.pos])) {
		l.pos++
	}
	if l.pos >= len(l.input) {
		return token{typ: tokenEOF, pos: l.pos}, nil
	}

	start := l.pos
	ch := l.input[l.pos]

	switch ch {
	case '(':
		l.pos++
		return token{tokenLParen, "(", start}, nil
	case ')':
		l.pos++
		return token{tokenRParen, ")", start}, nil
	case '[':
		l.pos++
		return token{tokenLBracket, "[", start}, nil
	case ']':
		l.pos++
		return token{tokenRBracket, "]", start}, nil
	case ',':
		l.pos++
		return token{tokenComma, ",", start}, nil
	case ':':
		l.pos++
		return token{tokenColon, ":", start}, nil
	case '\'', '"':
		return l.lexString(ch)
	case '=', '!', '<', '>':
		return l.lexOperator()
	}

	if isDigit(ch) || (ch == '-' && l.pos+1 < len(l.input) && isDigit(l.input[l.pos+1])) {
		return l.lexNumber()
	}

	if isIdentStart(ch) {
		return l.lexIdent()
	}

	return token{}, &CompileError{Pos: start, Message: "unexpected character " + string(ch)}
}

func (l *lexer) lexString(quote byte) (token, error) {
	start := l.pos
	l.pos++ // consume opening quote
	var sb strings.Builder
	for l.pos < len(l.input) {
		ch := l.input[l.pos]
		if ch == '\\' && l.pos+1 < len(l.input) {
			l.pos++
			sb.WriteByte(l.input[l.pos])
			l.pos++
			continue
		}
		if ch == quote {
			l.pos++
			return token{tokenString, sb.String(), start}, nil
		}
		sb.WriteByte(ch)
		l.pos++
	}
	return token{}, &CompileError{Pos: start, Message: "unterminated string literal"}
}

func (l *lexer) lexOperator() (token, error) {
	start := l.pos
	ch := l.input[l.pos]
	twoChar := ""
	if l.pos+1 < len(l.input) {
		twoChar = l.input[l.pos : l.pos+2]
	}
	switch twoChar {
	case "==", "!=", "<=", ">=":
		l.pos += 2
		return token{tokenOperator, twoChar, start}, nil
	}
	switch ch {
	case '<', '>':
		l.pos++
		return token{tokenOperator, string(ch), start}, nil
	}
	return token{}, &CompileError{Pos: start, Message: "invalid operator " + string(ch)}
}

func (l *lexer) lexNumber() (token, error) {
	start := l.pos
	if l.input[l.pos] == '-' {
		l.pos++
	}
	seenDot := false
	for l.pos < len(l.input) {
		ch := l.input[l.pos]
		if ch == '.' {
			if seenDot {
				break
			}
			// A trailing dot or ".." is not part of the number
			if l.pos+1 >= len(l.input) || !isDigit(l.input[l.pos+1]) {
				break
			}
			seenDot = true
			l.pos++
			continue
		}
		if !isDigit(ch) {
			break
		}
		l.pos++
	}
	return token{tokenNumber, l.input[start:l.pos], start}, nil
}

// lexIdent consumes identifiers including dotted paths (risk.level)
func (l *lexer) lexIdent() (token, error) {
	start := l.pos
	for l.pos < len(l.input) {
		ch := l.input[l.pos]
		if isIdentPart(ch) {
			l.pos++
			continue
		}
		if ch == '.' && l.pos+1 < len(l.input) && isIdentStart(l.input[l.pos+1]) {
			l.pos++
			continue
		}
		break
	}
	return token{tokenIdent, l.input[start:l.pos], start}, nil
}

func isDigit(ch byte) bool {
	return ch >= '0' && ch <= '9'
}

func isIdentStart(ch byte) bool {
	return ch == '_' || (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z')
}

func isIdentPart(ch byte) bool {
	return isIdentStart(ch) || isDigit(ch)
}
