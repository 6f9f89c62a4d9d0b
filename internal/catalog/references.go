package catalog

import "github.com/faucetdb/driftguard/internal/model"

// TableRef is a table named inside a routine body.
type TableRef struct {
	Name string
	Line int
}

// functions whose argument syntax uses FROM without naming a table.
var fromFunctions = map[string]bool{
	"EXTRACT":   true,
	"SUBSTRING": true,
	"TRIM":      true,
	"OVERLAY":   true,
	"POSITION":  true,
}

// BodyReferences returns the tables a routine body reads or writes through
// FROM, JOIN, INSERT INTO and UPDATE. CTE names, tables created inside the
// body and tables in schemas that are not retained are left out. Lines are
// absolute positions in the routine's source file.
func BodyReferences(proc *model.Procedure, opts Options) []TableRef {
	if proc == nil || proc.Body == "" {
		return nil
	}
	p := newParser(proc.Source.File, []byte(proc.Body), opts)
	local := p.localTables()

	var (
		refs  []TableRef
		stack []bool
	)
	for i := 0; i < len(p.lx); i++ {
		l := p.lx[i]
		switch {
		case l.isByte('('):
			stack = append(stack, fromFunctions[p.at(i-1).upper()])
			continue
		case l.isByte(')'):
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
			continue
		}

		target := -1
		switch l.upper() {
		case "FROM":
			if len(stack) > 0 && stack[len(stack)-1] {
				continue
			}
			if p.at(i - 1).isWord("DISTINCT") {
				continue
			}
			target = i + 1
		case "JOIN":
			target = i + 1
		case "INTO":
			if p.at(i - 1).isWord("INSERT") {
				target = i + 1
			}
		case "UPDATE":
			prev := p.at(i - 1).upper()
			if prev == "FOR" || prev == "DO" || prev == "ON" || prev == "KEY" {
				continue
			}
			if p.at(i + 1).isWord("SET") {
				continue
			}
			target = i + 1
		}
		if target < 0 {
			continue
		}
		p.pos = target
		p.acceptWords("ONLY")
		schema, name, ok := p.qualifiedName()
		if !ok || p.at(p.pos).isByte('(') || local[name] || !opts.retains(schema) {
			continue
		}
		refs = append(refs, TableRef{
			Name: name,
			Line: proc.BodyLine + p.lineOf(p.lx[target]) - 1,
		})
	}
	return refs
}

// localTables collects CTE names and tables created inside the body.
func (p *parser) localTables() map[string]bool {
	local := make(map[string]bool)
	for i := 0; i < len(p.lx); i++ {
		l := p.lx[i]
		if l.isName() {
			next := i + 1
			if p.at(next).isByte('(') {
				if end := p.closing(next); end > 0 {
					next = end + 1
				}
			}
			if p.at(next).isWord("AS") {
				after := next + 1
				if p.at(after).isWord("NOT") {
					after++
				}
				if p.at(after).isWord("MATERIALIZED") {
					after++
				}
				if p.at(after).isByte('(') && (p.at(i-1).isWord("WITH") || p.at(i-1).isWord("RECURSIVE") || p.at(i-1).isByte(',')) {
					local[unquote(l.text)] = true
				}
			}
		}
		if l.isWord("CREATE") {
			p.pos = i
			if p.createHeader() == "TABLE" {
				p.acceptWords("IF", "NOT", "EXISTS")
				if _, name, ok := p.qualifiedName(); ok {
					local[name] = true
				}
			}
		}
	}
	return local
}
