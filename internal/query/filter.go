package query

import (
	"fmt"
	"strings"
	"unicode"
)

// ---------------------------------------------------------------------------
// Public API
// ---------------------------------------------------------------------------

// FilterColumns parses a SQL-style filter expression such as
// "status = 'active' AND (age > 21 OR email IS NULL)" and returns the column
// names it compares, in order of first appearance. Qualified references like
// "users.age" are reduced to the column name.
//
// Returns nil, nil for an empty filter string.
func FilterColumns(filter string) ([]string, error) {
	filter = strings.TrimSpace(filter)
	if filter == "" {
		return nil, nil
	}

	tokens, err := tokenize(filter)
	if err != nil {
		return nil, fmt.Errorf("tokenize: %w", err)
	}

	p := &parser{tokens: tokens, seen: make(map[string]bool)}
	if err := p.parseExpression(); err != nil {
		return nil, err
	}

	// Ensure all tokens were consumed.
	if p.pos < len(p.tokens) {
		return nil, fmt.Errorf("unexpected token %q at position %d", p.tokens[p.pos].value, p.tokens[p.pos].pos)
	}
	return p.columns, nil
}

// ---------------------------------------------------------------------------
// Token types
// ---------------------------------------------------------------------------

type tokenType int

const (
	tokIdentifier tokenType = iota
	tokNumber
	tokString
	tokOperator // =, ==, !=, <>, >, >=, <, <=
	tokLParen
	tokRParen
	tokComma
	tokPlaceholder // ?, %s, :name, $1
	// Keywords (identifiers promoted to keywords during tokenization).
	tokAND
	tokOR
	tokNOT
	tokIN
	tokLIKE
	tokILIKE
	tokIS
	tokNULL
	tokTRUE
	tokFALSE
	tokBETWEEN
	tokCONTAINS
	tokSTARTS
	tokENDS
	tokWITH
)

type token struct {
	typ   tokenType
	value string // Original text (keywords uppercased).
	pos   int    // Byte offset in the input for error messages.
}

// keywords maps uppercased words to keyword token types.
var keywords = map[string]tokenType{
	"AND":      tokAND,
	"OR":       tokOR,
	"NOT":      tokNOT,
	"IN":       tokIN,
	"LIKE":     tokLIKE,
	"ILIKE":    tokILIKE,
	"IS":       tokIS,
	"NULL":     tokNULL,
	"TRUE":     tokTRUE,
	"FALSE":    tokFALSE,
	"BETWEEN":  tokBETWEEN,
	"CONTAINS": tokCONTAINS,
	"STARTS":   tokSTARTS,
	"ENDS":     tokENDS,
	"WITH":     tokWITH,
}

// ---------------------------------------------------------------------------
// Tokenizer
// ---------------------------------------------------------------------------

func tokenize(input string) ([]token, error) {
	var tokens []token
	i := 0
	n := len(input)

	for i < n {
		// Skip whitespace.
		if unicode.IsSpace(rune(input[i])) {
			i++
			continue
		}

		ch := input[i]

		// Parentheses and comma.
		switch ch {
		case '(':
			tokens = append(tokens, token{typ: tokLParen, value: "(", pos: i})
			i++
			continue
		case ')':
			tokens = append(tokens, token{typ: tokRParen, value: ")", pos: i})
			i++
			continue
		case ',':
			tokens = append(tokens, token{typ: tokComma, value: ",", pos: i})
			i++
			continue
		}

		// Two-character operators.
		if i+1 < n {
			two := input[i : i+2]
			switch two {
			case "!=", "<>", ">=", "<=", "==":
				tokens = append(tokens, token{typ: tokOperator, value: two, pos: i})
				i += 2
				continue
			case "%s", "%d":
				tokens = append(tokens, token{typ: tokPlaceholder, value: two, pos: i})
				i += 2
				continue
			}
		}

		// Single-character operators.
		switch ch {
		case '=', '>', '<':
			tokens = append(tokens, token{typ: tokOperator, value: string(ch), pos: i})
			i++
			continue
		case '?':
			tokens = append(tokens, token{typ: tokPlaceholder, value: "?", pos: i})
			i++
			continue
		}

		// Named and positional placeholders: :name, $1.
		if (ch == ':' || ch == '$') && i+1 < n && isWordByte(input[i+1]) {
			start := i
			i++
			for i < n && isWordByte(input[i]) {
				i++
			}
			tokens = append(tokens, token{typ: tokPlaceholder, value: input[start:i], pos: start})
			continue
		}

		// Quoted string literal.
		if ch == '\'' || ch == '"' {
			start := i
			i++ // skip opening quote
			var sb strings.Builder
			closed := false
			for i < n {
				if input[i] == ch {
					// Check for escaped quote ('').
					if i+1 < n && input[i+1] == ch {
						sb.WriteByte(ch)
						i += 2
						continue
					}
					// End of string.
					i++ // skip closing quote
					closed = true
					break
				}
				sb.WriteByte(input[i])
				i++
			}
			if !closed {
				return nil, fmt.Errorf("unterminated string literal starting at position %d", start)
			}
			tokens = append(tokens, token{typ: tokString, value: sb.String(), pos: start})
			continue
		}

		// Number, optionally negative, with an optional decimal part.
		if (ch >= '0' && ch <= '9') || (ch == '-' && i+1 < n && input[i+1] >= '0' && input[i+1] <= '9') {
			start := i
			i++
			for i < n && input[i] >= '0' && input[i] <= '9' {
				i++
			}
			if i < n && input[i] == '.' {
				i++
				if i >= n || input[i] < '0' || input[i] > '9' {
					return nil, fmt.Errorf("invalid number at position %d: trailing decimal point", start)
				}
				for i < n && input[i] >= '0' && input[i] <= '9' {
					i++
				}
			}
			tokens = append(tokens, token{typ: tokNumber, value: input[start:i], pos: start})
			continue
		}

		// Identifier or keyword.
		if ch == '_' || (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') {
			start := i
			for i < n && (isWordByte(input[i]) || input[i] == '.') {
				i++
			}
			word := input[start:i]
			upper := strings.ToUpper(word)

			if kt, ok := keywords[upper]; ok {
				tokens = append(tokens, token{typ: kt, value: upper, pos: start})
			} else {
				tokens = append(tokens, token{typ: tokIdentifier, value: word, pos: start})
			}
			continue
		}

		return nil, fmt.Errorf("unexpected character %q at position %d", string(ch), i)
	}

	return tokens, nil
}

func isWordByte(b byte) bool {
	return b == '_' || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9')
}

// ---------------------------------------------------------------------------
// Parser (recursive descent)
// ---------------------------------------------------------------------------

type parser struct {
	tokens  []token
	pos     int
	columns []string
	seen    map[string]bool
}

// peek returns the current token without advancing, or nil if at EOF.
func (p *parser) peek() *token {
	if p.pos >= len(p.tokens) {
		return nil
	}
	return &p.tokens[p.pos]
}

// advance moves to the next token and returns the consumed token.
func (p *parser) advance() *token {
	if p.pos >= len(p.tokens) {
		return nil
	}
	t := &p.tokens[p.pos]
	p.pos++
	return t
}

// expect consumes the next token, requiring it to match the given type.
func (p *parser) expect(typ tokenType) (*token, error) {
	t := p.advance()
	if t == nil {
		return nil, fmt.Errorf("unexpected end of filter, expected %v", tokenTypeName(typ))
	}
	if t.typ != typ {
		return nil, fmt.Errorf("expected %v but got %q at position %d", tokenTypeName(typ), t.value, t.pos)
	}
	return t, nil
}

// addColumn records a column reference once.
func (p *parser) addColumn(ref string) {
	col := ref
	if i := strings.LastIndexByte(ref, '.'); i >= 0 {
		col = ref[i+1:]
	}
	if p.seen[col] {
		return
	}
	p.seen[col] = true
	p.columns = append(p.columns, col)
}

// ---------------------------------------------------------------------------
// Grammar rules
// ---------------------------------------------------------------------------

// parseExpression is the entry point: expression → or_expr
func (p *parser) parseExpression() error {
	return p.parseOr()
}

// parseOr: or_expr → and_expr ( "OR" and_expr )*
func (p *parser) parseOr() error {
	if err := p.parseAnd(); err != nil {
		return err
	}
	for {
		t := p.peek()
		if t == nil || t.typ != tokOR {
			return nil
		}
		p.advance() // consume OR
		if err := p.parseAnd(); err != nil {
			return err
		}
	}
}

// parseAnd: and_expr → not_expr ( "AND" not_expr )*
func (p *parser) parseAnd() error {
	if err := p.parseNot(); err != nil {
		return err
	}
	for {
		t := p.peek()
		if t == nil || t.typ != tokAND {
			return nil
		}
		p.advance() // consume AND
		if err := p.parseNot(); err != nil {
			return err
		}
	}
}

// parseNot: not_expr → "NOT" not_expr | primary_expr
func (p *parser) parseNot() error {
	if t := p.peek(); t != nil && t.typ == tokNOT {
		p.advance() // consume NOT
		return p.parseNot()
	}
	return p.parsePrimary()
}

// parsePrimary: primary_expr → "(" expression ")" | comparison
func (p *parser) parsePrimary() error {
	t := p.peek()
	if t == nil {
		return fmt.Errorf("unexpected end of filter expression")
	}
	if t.typ == tokLParen {
		p.advance() // consume (
		if err := p.parseExpression(); err != nil {
			return err
		}
		_, err := p.expect(tokRParen)
		return err
	}
	return p.parseComparison()
}

// parseComparison handles all comparison forms:
//
//	column op value
//	column [NOT] IN (value_list)
//	column [NOT] [I]LIKE value
//	column [NOT] BETWEEN value AND value
//	column IS [NOT] NULL|TRUE|FALSE
//	column CONTAINS value
//	column STARTS WITH value
//	column ENDS WITH value
func (p *parser) parseComparison() error {
	// Expect an identifier (column name).
	colTok, err := p.expect(tokIdentifier)
	if err != nil {
		return fmt.Errorf("expected column name: %w", err)
	}

	// Validate the column name. Supports qualified names like "table.column".
	if err := validateColumnRef(colTok.value); err != nil {
		return fmt.Errorf("invalid column name: %w", err)
	}
	col := colTok.value
	p.addColumn(col)

	opTok := p.peek()
	if opTok == nil {
		return fmt.Errorf("unexpected end of filter after column %q", col)
	}

	switch opTok.typ {
	case tokOperator:
		p.advance()
		if err := p.parseOperand(); err != nil {
			return fmt.Errorf("expected value after %s %s: %w", col, opTok.value, err)
		}
		return nil

	case tokIS:
		p.advance() // consume IS
		if next := p.peek(); next != nil && next.typ == tokNOT {
			p.advance() // consume NOT
		}
		next := p.advance()
		if next == nil || (next.typ != tokNULL && next.typ != tokTRUE && next.typ != tokFALSE) {
			return fmt.Errorf("expected NULL, TRUE or FALSE after %s IS", col)
		}
		return nil

	case tokNOT:
		p.advance() // consume NOT
		next := p.peek()
		if next == nil {
			return fmt.Errorf("unexpected end of filter after %s NOT", col)
		}
		switch next.typ {
		case tokIN:
			return p.parseInList(col)
		case tokLIKE, tokILIKE:
			return p.parseLike(col)
		case tokBETWEEN:
			return p.parseBetween(col)
		}
		return fmt.Errorf("expected IN, LIKE, or BETWEEN after %s NOT, got %q", col, next.value)

	case tokIN:
		return p.parseInList(col)

	case tokLIKE, tokILIKE:
		return p.parseLike(col)

	case tokBETWEEN:
		return p.parseBetween(col)

	case tokCONTAINS:
		p.advance() // consume CONTAINS
		return p.parseValue()

	case tokSTARTS, tokENDS:
		p.advance() // consume STARTS / ENDS
		if _, err := p.expect(tokWITH); err != nil {
			return fmt.Errorf("expected WITH after %s %s: %w", col, opTok.value, err)
		}
		return p.parseValue()
	}
	return fmt.Errorf("unexpected token %q after column %q at position %d", opTok.value, col, opTok.pos)
}

// parseInList: [NOT] IN (value, value, ...)
// The caller already matched the column; this consumes "IN (" through ")".
func (p *parser) parseInList(col string) error {
	p.advance() // consume IN

	if _, err := p.expect(tokLParen); err != nil {
		return fmt.Errorf("expected '(' after %s IN: %w", col, err)
	}
	for {
		if err := p.parseValue(); err != nil {
			return fmt.Errorf("expected value in %s IN list: %w", col, err)
		}
		next := p.advance()
		if next == nil {
			return fmt.Errorf("unexpected end of filter in %s IN list", col)
		}
		switch next.typ {
		case tokComma:
			continue
		case tokRParen:
			return nil
		}
		return fmt.Errorf("expected ',' or ')' in %s IN list, got %q", col, next.value)
	}
}

// parseLike: [NOT] [I]LIKE value
func (p *parser) parseLike(col string) error {
	p.advance() // consume LIKE
	if err := p.parseValue(); err != nil {
		return fmt.Errorf("expected value after %s LIKE: %w", col, err)
	}
	return nil
}

// parseBetween: [NOT] BETWEEN value AND value
func (p *parser) parseBetween(col string) error {
	p.advance() // consume BETWEEN
	if err := p.parseValue(); err != nil {
		return fmt.Errorf("expected lower bound after %s BETWEEN: %w", col, err)
	}
	// The AND here is part of BETWEEN syntax, NOT a boolean operator.
	if _, err := p.expect(tokAND); err != nil {
		return fmt.Errorf("expected AND in %s BETWEEN: %w", col, err)
	}
	if err := p.parseValue(); err != nil {
		return fmt.Errorf("expected upper bound in %s BETWEEN: %w", col, err)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Value parsing
// ---------------------------------------------------------------------------

// parseValue consumes a literal or placeholder.
func (p *parser) parseValue() error {
	t := p.advance()
	if t == nil {
		return fmt.Errorf("unexpected end of filter, expected a value")
	}
	switch t.typ {
	case tokString, tokNumber, tokPlaceholder, tokNULL, tokTRUE, tokFALSE:
		return nil
	}
	return fmt.Errorf("expected a value, got %q at position %d", t.value, t.pos)
}

// parseOperand accepts a value or another column on the right-hand side of
// a comparison operator.
func (p *parser) parseOperand() error {
	if t := p.peek(); t != nil && t.typ == tokIdentifier {
		p.advance()
		if err := validateColumnRef(t.value); err != nil {
			return fmt.Errorf("invalid column name: %w", err)
		}
		p.addColumn(t.value)
		return nil
	}
	return p.parseValue()
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

// tokenTypeName returns a human-readable name for a token type (for errors).
func tokenTypeName(t tokenType) string {
	switch t {
	case tokIdentifier:
		return "identifier"
	case tokNumber:
		return "number"
	case tokString:
		return "string"
	case tokOperator:
		return "operator"
	case tokLParen:
		return "'('"
	case tokRParen:
		return "')'"
	case tokComma:
		return "','"
	case tokPlaceholder:
		return "placeholder"
	case tokAND:
		return "AND"
	case tokOR:
		return "OR"
	case tokNOT:
		return "NOT"
	case tokIN:
		return "IN"
	case tokLIKE:
		return "LIKE"
	case tokILIKE:
		return "ILIKE"
	case tokIS:
		return "IS"
	case tokNULL:
		return "NULL"
	case tokTRUE:
		return "TRUE"
	case tokFALSE:
		return "FALSE"
	case tokBETWEEN:
		return "BETWEEN"
	case tokCONTAINS:
		return "CONTAINS"
	case tokSTARTS:
		return "STARTS"
	case tokENDS:
		return "ENDS"
	case tokWITH:
		return "WITH"
	default:
		return fmt.Sprintf("token(%d)", t)
	}
}

// validateColumnRef validates a column reference, which may be a simple name
// like "age" or a qualified name like "users.age" (table.column).
// Each component is checked by ValidateIdentifier.
func validateColumnRef(ref string) error {
	if ref == "" {
		return fmt.Errorf("column reference cannot be empty")
	}
	parts := strings.Split(ref, ".")
	if len(parts) > 3 {
		return fmt.Errorf("column reference %q has too many parts (max: schema.table.column)", ref)
	}
	for _, part := range parts {
		if err := ValidateIdentifier(part); err != nil {
			return fmt.Errorf("in column reference %q: %w", ref, err)
		}
	}
	return nil
}
