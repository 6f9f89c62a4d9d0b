package query

import (
	"reflect"
	"strings"
	"testing"
)

// ---------------------------------------------------------------------------
// Tokenizer tests
// ---------------------------------------------------------------------------

func TestTokenize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []tokenType
	}{
		{
			"simple comparison",
			"age > 21",
			[]tokenType{tokIdentifier, tokOperator, tokNumber},
		},
		{
			"double quoted value",
			`name == "John"`,
			[]tokenType{tokIdentifier, tokOperator, tokString},
		},
		{
			"placeholders",
			"a = ? AND b = %s AND c = :c AND d = $1",
			[]tokenType{
				tokIdentifier, tokOperator, tokPlaceholder, tokAND,
				tokIdentifier, tokOperator, tokPlaceholder, tokAND,
				tokIdentifier, tokOperator, tokPlaceholder, tokAND,
				tokIdentifier, tokOperator, tokPlaceholder,
			},
		},
		{
			"case insensitive keywords",
			"name ilike 'x%' and active is not true",
			[]tokenType{tokIdentifier, tokILIKE, tokString, tokAND, tokIdentifier, tokIS, tokNOT, tokTRUE},
		},
		{
			"negative decimal",
			"balance < -10.5",
			[]tokenType{tokIdentifier, tokOperator, tokNumber},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tokens, err := tokenize(tt.input)
			if err != nil {
				t.Fatalf("tokenize(%q) error: %v", tt.input, err)
			}
			got := make([]tokenType, len(tokens))
			for i, tok := range tokens {
				got[i] = tok.typ
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("tokenize(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestTokenizeEscapedQuote(t *testing.T) {
	tokens, err := tokenize("name = 'O''Brien'")
	if err != nil {
		t.Fatalf("tokenize: %v", err)
	}
	if tokens[2].value != "O'Brien" {
		t.Errorf("string value = %q, want %q", tokens[2].value, "O'Brien")
	}
}

// ---------------------------------------------------------------------------
// FilterColumns tests
// ---------------------------------------------------------------------------

func TestFilterColumns(t *testing.T) {
	tests := []struct {
		name   string
		filter string
		want   []string
	}{
		{"empty", "  ", nil},
		{"single", "status = 'active'", []string{"status"}},
		{"and or", "status = 'x' AND age > 3 OR email IS NULL", []string{"status", "age", "email"}},
		{"nested parens", "((a = 1) OR (b = 2)) AND NOT c LIKE 'x%'", []string{"a", "b", "c"}},
		{"in list", "kind NOT IN ('a', 'b') AND id IN (?, ?)", []string{"kind", "id"}},
		{"between", "age BETWEEN 18 AND 65 AND score NOT BETWEEN 1 AND 2", []string{"age", "score"}},
		{"deduplicated", "a > 1 AND a < 5", []string{"a"}},
		{"qualified", "users.age > 21 AND public.users.email = :email", []string{"age", "email"}},
		{"column operand", "updated_at > created_at", []string{"updated_at", "created_at"}},
		{"starts with", "name STARTS WITH 'J' AND name ENDS WITH 'n' AND bio CONTAINS 'go'", []string{"name", "bio"}},
		{"is boolean", "active IS NOT FALSE", []string{"active"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FilterColumns(tt.filter)
			if err != nil {
				t.Fatalf("FilterColumns(%q) error: %v", tt.filter, err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("FilterColumns(%q) = %v, want %v", tt.filter, got, tt.want)
			}
		})
	}
}

func TestFilterColumnsErrors(t *testing.T) {
	tests := []struct {
		name   string
		filter string
		errMsg string
	}{
		{"unterminated string", "name = 'abc", "unterminated"},
		{"missing value", "age >", "expected value"},
		{"reserved column", "select = 1", "statement keyword"},
		{"trailing token", "a = 1 b", "unexpected token"},
		{"unbalanced", "(a = 1", "expected ')'"},
		{"bad character", "a = 1 & b = 2", "unexpected character"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FilterColumns(tt.filter)
			if err == nil {
				t.Fatalf("FilterColumns(%q) expected an error", tt.filter)
			}
			if !strings.Contains(err.Error(), tt.errMsg) {
				t.Errorf("error = %q, want it to contain %q", err.Error(), tt.errMsg)
			}
		})
	}
}

func TestTokenTypeName(t *testing.T) {
	if got := tokenTypeName(tokRParen); got != "')'" {
		t.Errorf("tokenTypeName(tokRParen) = %q", got)
	}
	if got := tokenTypeName(tokenType(999)); got != "token(999)" {
		t.Errorf("tokenTypeName(999) = %q", got)
	}
}
