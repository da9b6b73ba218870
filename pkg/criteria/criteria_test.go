package criteria

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvaluate(t *testing.T) {
	tests := []struct {
		name   string
		expr   string
		record map[string]any
		want   bool
	}{
		{
			name:   "Or Matches Second Term",
			expr:   "amount > 100000 OR discount > 20",
			record: map[string]any{"amount": 50000, "discount": 25},
			want:   true,
		},
		{
			name:   "Or Matches Neither Term",
			expr:   "amount > 100000 OR discount > 20",
			record: map[string]any{"amount": 50000, "discount": 10},
			want:   false,
		},
		{
			name:   "And Binds Tighter Than Or",
			expr:   "a = 1 OR b = 1 AND c = 1",
			record: map[string]any{"a": 1, "b": 0, "c": 0},
			want:   true,
		},
		{
			name:   "Parentheses Override Precedence",
			expr:   "(a = 1 OR b = 1) AND c = 1",
			record: map[string]any{"a": 1, "b": 0, "c": 0},
			want:   false,
		},
		{
			name:   "Quoted String Equality",
			expr:   "stage = 'Closed Won'",
			record: map[string]any{"stage": "Closed Won"},
			want:   true,
		},
		{
			name:   "Double Quoted With Escape",
			expr:   `name != "O\"Brien"`,
			record: map[string]any{"name": `O"Brien`},
			want:   false,
		},
		{
			name:   "Numeric String Field",
			expr:   "amount >= 150000",
			record: map[string]any{"amount": "150000"},
			want:   true,
		},
		{
			name:   "Float Comparison",
			expr:   "discount <= 12.5",
			record: map[string]any{"discount": 12.5},
			want:   true,
		},
		{
			name:   "Negative Literal",
			expr:   "margin < -1",
			record: map[string]any{"margin": int64(-4)},
			want:   true,
		},
		{
			name:   "Case Insensitive Keywords",
			expr:   "amount > 1 and stage = 'open' or amount > 100",
			record: map[string]any{"amount": 5, "stage": "open"},
			want:   true,
		},
		{
			name:   "Dotted Path Into Nested Record",
			expr:   "account.tier = 'gold'",
			record: map[string]any{"account": map[string]any{"tier": "gold"}},
			want:   true,
		},
		{
			name:   "Missing Field Is Not Satisfied",
			expr:   "amount > 10",
			record: map[string]any{"discount": 5},
			want:   false,
		},
		{
			name:   "Missing Field In Or Does Not Block Other Term",
			expr:   "amount > 10 OR discount > 1",
			record: map[string]any{"discount": 5},
			want:   true,
		},
		{
			name:   "Type Mismatch Is Not Satisfied",
			expr:   "amount > 10",
			record: map[string]any{"amount": "lots"},
			want:   false,
		},
		{
			name:   "Boolean Field Against String",
			expr:   "active = 'true'",
			record: map[string]any{"active": true},
			want:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Evaluate(tt.expr, tt.record)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEvaluateSyntaxErrors(t *testing.T) {
	bad := []string{
		"",
		"   ",
		"amount >",
		"amount 5",
		"> 5",
		"amount > 5 AND",
		"amount > 5 OR OR b = 1",
		"(amount > 5",
		"amount > 5)",
		"amount > abc",
		"amount > 5abc",
		"amount > 'unterminated",
		"AND = 5",
		"amount == 5",
		"amount > 5; drop",
		"os.exit(1)",
	}
	for _, expr := range bad {
		t.Run(expr, func(t *testing.T) {
			_, err := Evaluate(expr, map[string]any{"amount": 10})
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrCriteriaSyntax), "expected syntax error, got %v", err)

			var syntaxErr *SyntaxError
			assert.True(t, errors.As(err, &syntaxErr))
		})
	}
}

func TestParseNestingLimit(t *testing.T) {
	expr := ""
	for i := 0; i < maxDepth+1; i++ {
		expr += "("
	}
	expr += "a = 1"
	for i := 0; i < maxDepth+1; i++ {
		expr += ")"
	}
	err := Validate(expr)
	assert.ErrorIs(t, err, ErrCriteriaSyntax)
}

func TestEvaluateStrict(t *testing.T) {
	_, err := EvaluateStrict("amount > 10 OR discount > 5", map[string]any{"amount": 50})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCriteriaField)

	var fieldErr *FieldError
	require.True(t, errors.As(err, &fieldErr))
	assert.Equal(t, []string{"discount"}, fieldErr.Fields)

	ok, err := EvaluateStrict("amount > 10", map[string]any{"amount": 50})
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestExprFields(t *testing.T) {
	expr, err := Parse("b = 1 AND (a > 2 OR b < 4)")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, expr.Fields())
}

func TestEvaluateConcurrent(t *testing.T) {
	expr, err := Parse("amount > 100000 OR discount > 20")
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			rec := map[string]any{"amount": i * 10000, "discount": i}
			assert.Equal(t, i > 10, expr.Eval(rec))
		}(i)
	}
	wg.Wait()
}
