// Package query recovers column references from the filter, selection and
// ordering strings that handler code passes to its data-access helpers.
package query

import (
	"fmt"
	"strings"
)

// MaxIdentifierLen matches the longest identifier the supported databases
// accept (SQL Server and Snowflake allow 128).
const MaxIdentifierLen = 128

// IdentifierError explains why a string cannot be a column or table name.
type IdentifierError struct {
	Name   string
	Reason string
}

func (e *IdentifierError) Error() string {
	return fmt.Sprintf("invalid identifier %q: %s", e.Name, e.Reason)
}

// statementWords cannot name a column in a filter. A filter string that
// uses one where a column belongs is raw SQL, not a filter.
var statementWords = map[string]bool{
	"SELECT": true, "INSERT": true, "UPDATE": true, "DELETE": true,
	"DROP": true, "CREATE": true, "ALTER": true, "TRUNCATE": true,
	"EXEC": true, "EXECUTE": true, "UNION": true, "INTO": true,
	"FROM": true, "WHERE": true, "TABLE": true, "DATABASE": true,
	"GRANT": true, "REVOKE": true, "INDEX": true, "VIEW": true,
	"PROCEDURE": true, "FUNCTION": true, "TRIGGER": true, "SCHEMA": true,
}

// ValidateIdentifier accepts unquoted identifiers: a letter or underscore
// followed by letters, digits and underscores, not a statement keyword.
func ValidateIdentifier(name string) error {
	switch {
	case name == "":
		return &IdentifierError{Name: name, Reason: "empty"}
	case len(name) > MaxIdentifierLen:
		return &IdentifierError{Name: name, Reason: fmt.Sprintf("longer than %d bytes", MaxIdentifierLen)}
	case !isIdentStart(name[0]):
		return &IdentifierError{Name: name, Reason: "must start with a letter or underscore"}
	}
	for i := 1; i < len(name); i++ {
		if !isWordByte(name[i]) {
			return &IdentifierError{Name: name, Reason: fmt.Sprintf("unexpected %q", name[i])}
		}
	}
	if statementWords[strings.ToUpper(name)] {
		return &IdentifierError{Name: name, Reason: "SQL statement keyword"}
	}
	return nil
}

func isIdentStart(c byte) bool {
	return c == '_' || 'a' <= c && c <= 'z' || 'A' <= c && c <= 'Z'
}
