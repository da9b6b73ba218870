package criteria

import (
	"github.com/viant/parsly"
	"github.com/viant/parsly/matcher"
)

// Token codes start at 1 to avoid clashing with parsly.EOF.
const (
	whitespaceCode = iota + 1
	identifierCode
	numberCode
	quotedCode
	openParenCode
	closeParenCode
	andCode
	orCode
	gteCode
	lteCode
	neqCode
	eqCode
	gtCode
	ltCode
)

var (
	whitespaceToken = parsly.NewToken(whitespaceCode, "Whitespace", matcher.NewWhiteSpace())
	identifierToken = parsly.NewToken(identifierCode, "Field", &identifierMatcher{})
	numberToken     = parsly.NewToken(numberCode, "Number", &numberMatcher{})
	quotedToken     = parsly.NewToken(quotedCode, "String", &quotedMatcher{})
	openParenToken  = parsly.NewToken(openParenCode, "(", matcher.NewByte('('))
	closeParenToken = parsly.NewToken(closeParenCode, ")", matcher.NewByte(')'))
	andToken        = parsly.NewToken(andCode, "AND", &keywordMatcher{word: "AND"})
	orToken         = parsly.NewToken(orCode, "OR", &keywordMatcher{word: "OR"})

	// Two-byte operators are listed first so ">=" is not read as ">".
	gteToken = parsly.NewToken(gteCode, ">=", matcher.NewFragment(">="))
	lteToken = parsly.NewToken(lteCode, "<=", matcher.NewFragment("<="))
	neqToken = parsly.NewToken(neqCode, "!=", matcher.NewFragment("!="))
	eqToken  = parsly.NewToken(eqCode, "=", matcher.NewByte('='))
	gtToken  = parsly.NewToken(gtCode, ">", matcher.NewByte('>'))
	ltToken  = parsly.NewToken(ltCode, "<", matcher.NewByte('<'))

	operatorTokens = []*parsly.Token{gteToken, lteToken, neqToken, eqToken, gtToken, ltToken}
)

var operatorByCode = map[int]Operator{
	gteCode: OpGte,
	lteCode: OpLte,
	neqCode: OpNeq,
	eqCode:  OpEq,
	gtCode:  OpGt,
	ltCode:  OpLt,
}

// identifierMatcher matches field references such as amount or account.tier.
type identifierMatcher struct{}

func (m *identifierMatcher) Match(cursor *parsly.Cursor) int {
	input := cursor.Input
	pos := cursor.Pos
	size := cursor.InputSize

	if pos >= size {
		return 0
	}
	if !isLetter(input[pos]) && input[pos] != '_' {
		return 0
	}

	matched := 1
	for i := pos + 1; i < size; i++ {
		c := input[i]
		if isLetter(c) || isDigit(c) || c == '_' || c == '.' {
			matched++
			continue
		}
		break
	}
	// a trailing dot is never part of a path
	for matched > 1 && input[pos+matched-1] == '.' {
		matched--
	}
	return matched
}

// numberMatcher matches an optionally signed decimal literal.
type numberMatcher struct{}

func (m *numberMatcher) Match(cursor *parsly.Cursor) int {
	input := cursor.Input
	pos := cursor.Pos
	size := cursor.InputSize

	i := pos
	if i < size && (input[i] == '-' || input[i] == '+') {
		i++
	}
	digits := 0
	for i < size && isDigit(input[i]) {
		i++
		digits++
	}
	if i < size && input[i] == '.' {
		fraction := 0
		j := i + 1
		for j < size && isDigit(input[j]) {
			j++
			fraction++
		}
		if fraction > 0 {
			i = j
			digits += fraction
		}
	}
	if digits == 0 {
		return 0
	}
	if i < size && (isLetter(input[i]) || input[i] == '_') {
		return 0
	}
	return i - pos
}

// quotedMatcher matches a single or double quoted string, honouring backslash escapes.
type quotedMatcher struct{}

func (m *quotedMatcher) Match(cursor *parsly.Cursor) int {
	input := cursor.Input
	pos := cursor.Pos
	size := cursor.InputSize

	if pos >= size {
		return 0
	}
	quote := input[pos]
	if quote != '\'' && quote != '"' {
		return 0
	}
	for i := pos + 1; i < size; i++ {
		switch input[i] {
		case '\\':
			i++
		case quote:
			return i - pos + 1
		}
	}
	return 0
}

// keywordMatcher matches a case-insensitive keyword that ends on a word boundary.
type keywordMatcher struct {
	word string
}

func (m *keywordMatcher) Match(cursor *parsly.Cursor) int {
	input := cursor.Input
	pos := cursor.Pos
	size := cursor.InputSize
	n := len(m.word)

	if pos+n > size {
		return 0
	}
	for i := 0; i < n; i++ {
		if toUpper(input[pos+i]) != m.word[i] {
			return 0
		}
	}
	if pos+n < size {
		next := input[pos+n]
		if isLetter(next) || isDigit(next) || next == '_' || next == '.' {
			return 0
		}
	}
	return n
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func toUpper(c byte) byte {
	if c >= 'a' && c <= 'z' {
		return c - ('a' - 'A')
	}
	return c
}
