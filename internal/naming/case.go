// Package naming holds identifier case helpers and the configurable table
// naming rule table.
package naming

import (
	"strings"
	"unicode"
)

// Style is the casing convention of an identifier.
type Style int

const (
	StyleOther  Style = iota
	StyleLower        // single lower-case word, compatible with every convention
	StyleSnake        // lower_snake_case
	StyleCamel        // camelCase
	StylePascal       // PascalCase
)

func (s Style) String() string {
	switch s {
	case StyleLower:
		return "lower"
	case StyleSnake:
		return "snake_case"
	case StyleCamel:
		return "camelCase"
	case StylePascal:
		return "PascalCase"
	}
	return "other"
}

// StyleOf classifies an identifier.
func StyleOf(s string) Style {
	if s == "" {
		return StyleOther
	}
	hasUpper, hasLower, hasUnderscore := false, false, false
	for _, r := range s {
		switch {
		case r == '_':
			hasUnderscore = true
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
		default:
			return StyleOther
		}
	}
	switch {
	case hasUnderscore && !hasUpper:
		return StyleSnake
	case hasUnderscore:
		return StyleOther
	case hasUpper && hasLower:
		if unicode.IsUpper([]rune(s)[0]) {
			return StylePascal
		}
		return StyleCamel
	case hasLower:
		return StyleLower
	}
	return StyleOther
}

// IsCamelFamily reports whether s is camelCase or PascalCase.
func IsCamelFamily(s string) bool {
	st := StyleOf(s)
	return st == StyleCamel || st == StylePascal
}

// Words splits an identifier on separators, lower-to-upper transitions and
// the end of an upper-case run ("HTTPStatus" is "HTTP", "Status").
func Words(name string) []string {
	runes := []rune(name)
	var words []string
	var current []rune
	flush := func() {
		if len(current) > 0 {
			words = append(words, string(current))
			current = current[:0]
		}
	}
	for i, r := range runes {
		if r == '_' || r == '.' || r == '-' || r == ' ' {
			flush()
			continue
		}
		if i > 0 && unicode.IsUpper(r) && (unicode.IsLower(runes[i-1]) || unicode.IsDigit(runes[i-1])) {
			flush()
		}
		if i > 1 && unicode.IsLower(r) && unicode.IsUpper(runes[i-1]) && unicode.IsUpper(runes[i-2]) && len(current) > 1 {
			last := current[len(current)-1]
			current = current[:len(current)-1]
			flush()
			current = append(current, last)
		}
		current = append(current, r)
	}
	flush()
	return words
}

// Snake converts an identifier to lower snake_case.
func Snake(name string) string {
	words := Words(name)
	for i, w := range words {
		words[i] = strings.ToLower(w)
	}
	return strings.Join(words, "_")
}

// Camel converts an identifier to lower camelCase.
func Camel(name string) string {
	words := Words(name)
	var b strings.Builder
	for i, w := range words {
		lw := strings.ToLower(w)
		if i == 0 {
			b.WriteString(lw)
			continue
		}
		r := []rune(lw)
		r[0] = unicode.ToUpper(r[0])
		b.WriteString(string(r))
	}
	return b.String()
}
