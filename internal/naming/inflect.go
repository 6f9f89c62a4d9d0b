package naming

import "strings"

var irregularPlurals = map[string]string{
	"person":    "people",
	"child":     "children",
	"man":       "men",
	"woman":     "women",
	"mouse":     "mice",
	"goose":     "geese",
	"foot":      "feet",
	"tooth":     "teeth",
	"datum":     "data",
	"criterion": "criteria",
	"index":     "indices",
	"matrix":    "matrices",
	"vertex":    "vertices",
	"analysis":  "analyses",
	"leaf":      "leaves",
	"life":      "lives",
}

// Words whose singular and plural forms are the same.
var uncountable = map[string]bool{
	"data":        true,
	"metadata":    true,
	"info":        true,
	"information": true,
	"equipment":   true,
	"feedback":    true,
	"news":        true,
	"series":      true,
	"species":     true,
	"sheep":       true,
	"fish":        true,
	"media":       true,
}

var irregularSingulars = func() map[string]string {
	m := make(map[string]string, len(irregularPlurals))
	for s, p := range irregularPlurals {
		m[p] = s
	}
	return m
}()

// IsPlural reports whether a lower-case English word reads as plural.
func IsPlural(word string) bool {
	w := strings.ToLower(word)
	if w == "" {
		return false
	}
	if uncountable[w] {
		return true
	}
	if _, ok := irregularSingulars[w]; ok {
		return true
	}
	if _, ok := irregularPlurals[w]; ok {
		return false
	}
	switch {
	case strings.HasSuffix(w, "ss"), strings.HasSuffix(w, "us"), strings.HasSuffix(w, "is"):
		return false
	case strings.HasSuffix(w, "s"):
		return true
	}
	return false
}

// Pluralize returns the plural form of a lower-case English word.
func Pluralize(word string) string {
	w := strings.ToLower(word)
	if uncountable[w] {
		return word
	}
	if p, ok := irregularPlurals[w]; ok {
		return p
	}
	switch {
	case strings.HasSuffix(w, "is"):
		return word[:len(word)-2] + "es"
	case strings.HasSuffix(w, "y") && len(w) > 1 && !isVowel(w[len(w)-2]):
		return word[:len(word)-1] + "ies"
	case strings.HasSuffix(w, "s"), strings.HasSuffix(w, "x"), strings.HasSuffix(w, "z"),
		strings.HasSuffix(w, "ch"), strings.HasSuffix(w, "sh"):
		return word + "es"
	}
	return word + "s"
}

func isVowel(b byte) bool {
	switch b {
	case 'a', 'e', 'i', 'o', 'u':
		return true
	}
	return false
}
