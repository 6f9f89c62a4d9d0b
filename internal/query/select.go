package query

import (
	"fmt"
	"strings"
)

// OrderClause represents a single column ordering directive.
type OrderClause struct {
	Column    string // Validated column name.
	Direction string // "ASC" or "DESC".
}

// String returns the SQL fragment for this order clause, e.g. "created_at DESC".
func (o OrderClause) String() string {
	return o.Column + " " + o.Direction
}

// ParseOrderClause parses an order string like "created_at DESC, name ASC"
// or the dotted form "created_at.desc,name" into validated OrderClause
// slices. Direction defaults to ASC if omitted; a trailing nullsfirst or
// nullslast modifier is accepted and dropped.
func ParseOrderClause(order string) ([]OrderClause, error) {
	order = strings.TrimSpace(order)
	if order == "" {
		return nil, nil
	}

	parts := strings.Split(order, ",")
	clauses := make([]OrderClause, 0, len(parts))

	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		tokens := strings.Fields(part)
		if len(tokens) == 1 && strings.Contains(part, ".") {
			tokens = strings.Split(part, ".")
		}
		if len(tokens) > 2 {
			last := strings.ToLower(tokens[len(tokens)-1])
			if last != "nullsfirst" && last != "nullslast" {
				return nil, fmt.Errorf("invalid order clause %q: expected 'column [ASC|DESC]'", part)
			}
			tokens = tokens[:len(tokens)-1]
		}
		if len(tokens) > 2 {
			return nil, fmt.Errorf("invalid order clause %q: expected 'column [ASC|DESC]'", part)
		}

		col := tokens[0]
		if err := ValidateIdentifier(col); err != nil {
			return nil, fmt.Errorf("invalid order column: %w", err)
		}

		dir := "ASC"
		if len(tokens) == 2 {
			d := strings.ToUpper(tokens[1])
			switch d {
			case "ASC", "DESC":
				dir = d
			default:
				return nil, fmt.Errorf("invalid order direction %q: must be ASC or DESC", tokens[1])
			}
		}

		clauses = append(clauses, OrderClause{Column: col, Direction: dir})
	}

	if len(clauses) == 0 {
		return nil, nil
	}
	return clauses, nil
}

// SelectColumns parses a column selection like "id, name, email" into the
// plain column names it retrieves. The wildcard is dropped, embedded
// resources such as "orders(id, total)" are skipped, and "alias:column" and
// "column::type" are reduced to the column.
func SelectColumns(fields string) []string {
	var result []string
	for _, part := range splitTopLevel(fields) {
		col := strings.TrimSpace(part)
		if col == "" || col == "*" || strings.ContainsAny(col, "()") {
			continue
		}
		if i := strings.Index(col, "::"); i >= 0 {
			col = col[:i]
		}
		if i := strings.LastIndexByte(col, ':'); i >= 0 {
			col = col[i+1:]
		}
		col = strings.TrimSpace(col)
		if col == "" || col == "*" {
			continue
		}
		result = append(result, col)
	}
	return result
}

// LogicColumns returns the columns named by a PostgREST logic expression
// such as "status.eq.active,and(age.gt.18,age.lt.65)".
func LogicColumns(expr string) []string {
	var result []string
	for _, part := range splitTopLevel(expr) {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		head := part
		if i := strings.IndexByte(part, '('); i >= 0 {
			head = part[:i]
		}
		switch strings.TrimPrefix(head, "not.") {
		case "and", "or":
			if open := strings.IndexByte(part, '('); open >= 0 && strings.HasSuffix(part, ")") {
				result = append(result, LogicColumns(part[open+1:len(part)-1])...)
			}
			continue
		}
		col := part
		if i := strings.IndexByte(part, '.'); i >= 0 {
			col = part[:i]
		}
		if col != "" {
			result = append(result, col)
		}
	}
	return result
}

// splitTopLevel splits s on commas outside parentheses.
func splitTopLevel(s string) []string {
	var out []string
	depth, start := 0, 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '(':
			depth++
		case ')':
			depth--
		case ',':
			if depth == 0 {
				out = append(out, s[start:i])
				start = i + 1
			}
		}
	}
	return append(out, s[start:])
}
