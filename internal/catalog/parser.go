package catalog

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/faucetdb/driftguard/internal/model"
)

// Options tune catalog building.
type Options struct {
	// Schemas lists the schema qualifiers whose objects are kept. Unqualified
	// names are always kept. Defaults to "public".
	Schemas []string
	// Concurrency bounds parallel file reads.
	Concurrency int
	Logger      *slog.Logger
}

func (o Options) logger() *slog.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return slog.Default()
}

func (o Options) retains(schema string) bool {
	if schema == "" {
		return true
	}
	schemas := o.Schemas
	if len(schemas) == 0 {
		schemas = []string{"public"}
	}
	for _, s := range schemas {
		if strings.EqualFold(s, schema) {
			return true
		}
	}
	return false
}

// statementError reports a statement that could not be parsed.
type statementError struct {
	line int
	msg  string
}

func (e *statementError) Error() string {
	return fmt.Sprintf("line %d: %s", e.line, e.msg)
}

func failure(path string, line int, msg string) model.Diagnostic {
	return model.Diagnostic{
		Severity: model.SeverityWarning,
		Category: model.CategoryParseFailure,
		File:     path,
		Line:     line,
		Message:  msg,
	}
}

// parser walks the significant tokens of one SQL file.
type parser struct {
	path  string
	src   []byte
	lx    []lexeme
	lines lineIndex
	pos   int
	opts  Options
}

func newParser(path string, src []byte, opts Options) *parser {
	return &parser{
		path:  path,
		src:   src,
		lx:    lex(src),
		lines: newLineIndex(src),
		opts:  opts,
	}
}

var noLexeme = lexeme{code: -1}

func (p *parser) at(i int) lexeme {
	if i < 0 || i >= len(p.lx) {
		return noLexeme
	}
	return p.lx[i]
}

func (p *parser) lineOf(l lexeme) int {
	return p.lines.line(l.offset)
}

// acceptWords consumes the given keyword sequence if it is next.
func (p *parser) acceptWords(words ...string) bool {
	for i, w := range words {
		if !p.at(p.pos + i).isWord(w) {
			return false
		}
	}
	p.pos += len(words)
	return true
}

// acceptAny consumes one of the given keywords if it is next.
func (p *parser) acceptAny(words ...string) string {
	cur := p.at(p.pos)
	for _, w := range words {
		if cur.isWord(w) {
			p.pos++
			return w
		}
	}
	return ""
}

// statementEnd returns the index of the next top-level ';' at or after from,
// or len(p.lx).
func (p *parser) statementEnd(from int) int {
	depth := 0
	for i := from; i < len(p.lx); i++ {
		switch {
		case p.lx[i].isByte('('):
			depth++
		case p.lx[i].isByte(')'):
			if depth > 0 {
				depth--
			}
		case p.lx[i].isByte(';') && depth == 0:
			return i
		}
	}
	return len(p.lx)
}

// skipStatement moves past the statement containing from.
func (p *parser) skipStatement(from int) {
	p.pos = p.statementEnd(from) + 1
}

// closing returns the index of the ')' matching the '(' at open, or -1.
func (p *parser) closing(open int) int {
	depth := 0
	for i := open; i < len(p.lx); i++ {
		switch {
		case p.lx[i].isByte('('):
			depth++
		case p.lx[i].isByte(')'):
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// qualifiedName consumes [schema.]name and returns its parts unquoted.
func (p *parser) qualifiedName() (schema, name string, ok bool) {
	var parts []string
	for p.at(p.pos).isName() {
		parts = append(parts, unquote(p.at(p.pos).text))
		p.pos++
		if !p.at(p.pos).isByte('.') || !p.at(p.pos + 1).isName() {
			break
		}
		p.pos++
	}
	switch len(parts) {
	case 0:
		return "", "", false
	case 1:
		return "", parts[0], true
	}
	return parts[len(parts)-2], parts[len(parts)-1], true
}

// span returns the source text covering the given tokens.
func (p *parser) span(parts []lexeme) string {
	if len(parts) == 0 {
		return ""
	}
	last := parts[len(parts)-1]
	return string(p.src[parts[0].offset : last.offset+len(last.text)])
}

// splitTopLevel splits tokens on commas outside parentheses. Empty items are dropped.
func splitTopLevel(items []lexeme) [][]lexeme {
	var out [][]lexeme
	depth, start := 0, 0
	for i, l := range items {
		switch {
		case l.isByte('('):
			depth++
		case l.isByte(')'):
			depth--
		case l.isByte(',') && depth == 0:
			if i > start {
				out = append(out, items[start:i])
			}
			start = i + 1
		}
	}
	if start < len(items) {
		out = append(out, items[start:])
	}
	return out
}

// createHeader consumes CREATE [OR REPLACE|OR ALTER] [GLOBAL|LOCAL]
// [TEMP|TEMPORARY|UNLOGGED] and returns the upper-cased object keyword.
func (p *parser) createHeader() string {
	if !p.acceptWords("CREATE") {
		return ""
	}
	if !p.acceptWords("OR", "REPLACE") {
		p.acceptWords("OR", "ALTER")
	}
	p.acceptAny("GLOBAL", "LOCAL")
	p.acceptAny("TEMP", "TEMPORARY", "UNLOGGED")
	kind := p.at(p.pos).upper()
	p.pos++
	return kind
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
