package criteria

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Operator is a comparison operator of a criteria term.
type Operator string

const (
	OpEq  Operator = "="
	OpNeq Operator = "!="
	OpGt  Operator = ">"
	OpGte Operator = ">="
	OpLt  Operator = "<"
	OpLte Operator = "<="
)

// LiteralKind tells whether a literal compares numerically or as text.
type LiteralKind int

const (
	NumberLiteral LiteralKind = iota
	StringLiteral
)

// Literal is the right-hand side of a comparison.
type Literal struct {
	Kind   LiteralKind
	Number float64
	Text   string
}

func (l Literal) String() string {
	if l.Kind == NumberLiteral {
		return strconv.FormatFloat(l.Number, 'f', -1, 64)
	}
	return strconv.Quote(l.Text)
}

// Expr is a parsed entry-criteria expression.
type Expr interface {
	// Eval reports whether the record satisfies the expression.
	// A term whose field is absent evaluates to false.
	Eval(record map[string]any) bool
	// Fields lists every field path the expression references.
	Fields() []string
	String() string
}

// Comparison is a single `field OP literal` term.
type Comparison struct {
	Field   string
	Op      Operator
	Literal Literal
}

// Logical joins two expressions with AND or OR.
type Logical struct {
	And   bool
	Left  Expr
	Right Expr
}

func (c *Comparison) Eval(record map[string]any) bool {
	value, ok := Lookup(record, c.Field)
	if !ok || value == nil {
		return false
	}

	if c.Literal.Kind == NumberLiteral {
		actual, ok := toFloat(value)
		if !ok {
			return false
		}
		return compareOrdered(compareFloat(actual, c.Literal.Number), c.Op)
	}

	actual, ok := toText(value)
	if !ok {
		return false
	}
	return compareOrdered(strings.Compare(actual, c.Literal.Text), c.Op)
}

func (c *Comparison) Fields() []string {
	return []string{c.Field}
}

func (c *Comparison) String() string {
	return fmt.Sprintf("%s %s %s", c.Field, c.Op, c.Literal)
}

func (l *Logical) Eval(record map[string]any) bool {
	if l.And {
		return l.Left.Eval(record) && l.Right.Eval(record)
	}
	return l.Left.Eval(record) || l.Right.Eval(record)
}

func (l *Logical) Fields() []string {
	seen := make(map[string]bool)
	var fields []string
	for _, f := range append(l.Left.Fields(), l.Right.Fields()...) {
		if !seen[f] {
			seen[f] = true
			fields = append(fields, f)
		}
	}
	sort.Strings(fields)
	return fields
}

func (l *Logical) String() string {
	op := "OR"
	if l.And {
		op = "AND"
	}
	return fmt.Sprintf("(%s %s %s)", l.Left, op, l.Right)
}

// Lookup resolves a field path against a record. An exact key wins over a
// dotted path so flattened records keep working.
func Lookup(record map[string]any, path string) (any, bool) {
	if record == nil {
		return nil, false
	}
	if v, ok := record[path]; ok {
		return v, true
	}
	if !strings.Contains(path, ".") {
		return nil, false
	}

	var current any = record
	for _, part := range strings.Split(path, ".") {
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

func compareFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func compareOrdered(cmp int, op Operator) bool {
	switch op {
	case OpEq:
		return cmp == 0
	case OpNeq:
		return cmp != 0
	case OpGt:
		return cmp > 0
	case OpGte:
		return cmp >= 0
	case OpLt:
		return cmp < 0
	case OpLte:
		return cmp <= 0
	}
	return false
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	}
	return 0, false
}

func toText(v any) (string, bool) {
	switch s := v.(type) {
	case string:
		return s, true
	case fmt.Stringer:
		return s.String(), true
	case bool, int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64, json.Number:
		return fmt.Sprint(s), true
	}
	return "", false
}
