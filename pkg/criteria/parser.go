package criteria

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/viant/parsly"
)

// maxDepth bounds parenthesis nesting; expressions are untrusted input.
const maxDepth = 32

type parser struct {
	cursor *parsly.Cursor
	source string
	depth  int
}

// Parse parses an entry-criteria expression of the form
//
//	field OP literal [AND|OR field OP literal ...]
//
// with parentheses for grouping. AND binds tighter than OR and both are
// left-associative.
func Parse(expression string) (Expr, error) {
	source := strings.TrimSpace(expression)
	if source == "" {
		return nil, &SyntaxError{Expression: expression, Msg: "expression is empty"}
	}

	p := &parser{cursor: parsly.NewCursor("criteria", []byte(source), 0), source: source}
	expr, err := p.parseOr()
	if err != nil {
		return nil, err
	}

	p.cursor.MatchOne(whitespaceToken)
	if p.cursor.HasMore() {
		return nil, p.errorf("unexpected input %q", p.rest())
	}
	return expr, nil
}

func (p *parser) parseOr() (Expr, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for {
		pos := p.cursor.Pos
		if p.cursor.MatchAfterOptional(whitespaceToken, orToken).Code != orCode {
			p.cursor.Pos = pos
			return left, nil
		}
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = &Logical{And: false, Left: left, Right: right}
	}
}

func (p *parser) parseAnd() (Expr, error) {
	left, err := p.parseTerm()
	if err != nil {
		return nil, err
	}
	for {
		pos := p.cursor.Pos
		if p.cursor.MatchAfterOptional(whitespaceToken, andToken).Code != andCode {
			p.cursor.Pos = pos
			return left, nil
		}
		right, err := p.parseTerm()
		if err != nil {
			return nil, err
		}
		left = &Logical{And: true, Left: left, Right: right}
	}
}

func (p *parser) parseTerm() (Expr, error) {
	cursor := p.cursor
	matched := cursor.MatchAfterOptional(whitespaceToken, openParenToken, identifierToken)
	switch matched.Code {
	case openParenCode:
		p.depth++
		if p.depth > maxDepth {
			return nil, p.errorf("parentheses nested deeper than %d", maxDepth)
		}
		inner, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if cursor.MatchAfterOptional(whitespaceToken, closeParenToken).Code != closeParenCode {
			return nil, p.errorf("expected ')'")
		}
		p.depth--
		return inner, nil
	case identifierCode:
		field := matched.Text(cursor)
		if isKeyword(field) {
			return nil, p.errorf("expected field name, found keyword %s", strings.ToUpper(field))
		}
		return p.parseComparison(field)
	case parsly.EOF:
		return nil, p.errorf("unexpected end of expression, expected field or '('")
	default:
		return nil, p.errorf("expected field or '(' but found %q", p.rest())
	}
}

func (p *parser) parseComparison(field string) (Expr, error) {
	cursor := p.cursor
	matched := cursor.MatchAfterOptional(whitespaceToken, operatorTokens...)
	op, ok := operatorByCode[matched.Code]
	if !ok {
		return nil, p.errorf("expected comparison operator after %s", field)
	}

	matched = cursor.MatchAfterOptional(whitespaceToken, numberToken, quotedToken)
	switch matched.Code {
	case numberCode:
		text := matched.Text(cursor)
		n, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return nil, p.errorf("invalid number %s", text)
		}
		return &Comparison{Field: field, Op: op, Literal: Literal{Kind: NumberLiteral, Number: n}}, nil
	case quotedCode:
		return &Comparison{Field: field, Op: op, Literal: Literal{Kind: StringLiteral, Text: unquote(matched.Text(cursor))}}, nil
	default:
		return nil, p.errorf("expected number or quoted string after %s %s", field, op)
	}
}

func (p *parser) rest() string {
	if p.cursor.Pos >= len(p.source) {
		return ""
	}
	rest := strings.TrimSpace(p.source[p.cursor.Pos:])
	if len(rest) > 20 {
		rest = rest[:20] + "..."
	}
	return rest
}

func (p *parser) errorf(format string, args ...any) error {
	return &SyntaxError{Expression: p.source, Pos: p.cursor.Pos, Msg: fmt.Sprintf(format, args...)}
}

func isKeyword(word string) bool {
	upper := strings.ToUpper(word)
	return upper == "AND" || upper == "OR"
}

func unquote(quoted string) string {
	body := quoted[1 : len(quoted)-1]
	if !strings.Contains(body, "\\") {
		return body
	}
	var b strings.Builder
	for i := 0; i < len(body); i++ {
		if body[i] == '\\' && i+1 < len(body) {
			i++
		}
		b.WriteByte(body[i])
	}
	return b.String()
}
