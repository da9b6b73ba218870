// Package criteria parses and evaluates record entry criteria such as
//
//	amount > 100000 OR (stage = 'Negotiation' AND discount >= 20)
//
// Expressions are untrusted input, so they are only ever interpreted by the
// small grammar in this package.
package criteria

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrCriteriaSyntax = errors.New("criteria syntax error")
	ErrCriteriaField  = errors.New("criteria field error")
)

// SyntaxError describes a malformed expression.
type SyntaxError struct {
	Expression string
	Pos        int
	Msg        string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("criteria syntax error at position %d: %s", e.Pos, e.Msg)
}

func (e *SyntaxError) Unwrap() error {
	return ErrCriteriaSyntax
}

// FieldError lists referenced fields that are absent from the record.
type FieldError struct {
	Fields []string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("criteria references missing fields: %s", strings.Join(e.Fields, ", "))
}

func (e *FieldError) Unwrap() error {
	return ErrCriteriaField
}

// Evaluate parses the expression and evaluates it against the record.
// Terms over absent fields are treated as not satisfied.
func Evaluate(expression string, record map[string]any) (bool, error) {
	expr, err := Parse(expression)
	if err != nil {
		return false, err
	}
	return expr.Eval(record), nil
}

// EvaluateStrict is Evaluate but fails with a *FieldError when any referenced
// field is missing from the record.
func EvaluateStrict(expression string, record map[string]any) (bool, error) {
	expr, err := Parse(expression)
	if err != nil {
		return false, err
	}
	if missing := MissingFields(expr, record); len(missing) > 0 {
		return false, &FieldError{Fields: missing}
	}
	return expr.Eval(record), nil
}

// Validate reports whether the expression is well formed.
func Validate(expression string) error {
	_, err := Parse(expression)
	return err
}

// MissingFields returns the referenced fields the record does not carry.
func MissingFields(expr Expr, record map[string]any) []string {
	var missing []string
	for _, field := range expr.Fields() {
		if v, ok := Lookup(record, field); !ok || v == nil {
			missing = append(missing, field)
		}
	}
	return missing
}
