package catalog

import (
	"context"
	"strings"

	"github.com/spf13/afero"

	"github.com/faucetdb/driftguard/internal/model"
	"github.com/faucetdb/driftguard/internal/source"
)

type procedureFile struct {
	procedures []*model.Procedure
	warnings   []model.Diagnostic
}

// BuildProcedures parses CREATE FUNCTION and CREATE PROCEDURE statements from
// the files at paths. Later definitions replace earlier ones with the same
// case-insensitive name, in sorted path order.
func BuildProcedures(ctx context.Context, fsys afero.Fs, paths []string, opts Options) (*model.ProcedureCatalog, []model.Diagnostic, error) {
	paths = source.SortedUnique(paths)
	results, err := source.ParseAll(ctx, fsys, paths, opts.Concurrency, func(path string, data []byte) (procedureFile, error) {
		return parseProcedures(path, data, opts), nil
	})
	if err != nil {
		return nil, nil, err
	}

	cat := model.NewProcedureCatalog()
	var warnings []model.Diagnostic
	for _, r := range results {
		if r.Err != nil {
			warnings = append(warnings, failure(r.Path, 0, r.Err.Error()))
			continue
		}
		warnings = append(warnings, r.Value.warnings...)
		for _, proc := range r.Value.procedures {
			cat.Put(proc)
		}
	}
	opts.logger().Debug("procedure catalog built", "files", len(paths), "procedures", cat.Len())
	return cat, warnings, nil
}

// ParseProcedures parses a single source into a procedure catalog.
func ParseProcedures(path string, src []byte, opts Options) (*model.ProcedureCatalog, []model.Diagnostic) {
	f := parseProcedures(path, src, opts)
	cat := model.NewProcedureCatalog()
	for _, proc := range f.procedures {
		cat.Put(proc)
	}
	return cat, f.warnings
}

func parseProcedures(path string, src []byte, opts Options) procedureFile {
	p := newParser(path, src, opts)
	var out procedureFile
	for p.pos < len(p.lx) {
		start := p.pos
		if !p.at(start).isWord("CREATE") {
			p.pos++
			continue
		}
		proc, err := p.parseRoutine()
		if err != nil {
			out.warnings = append(out.warnings, failure(path, err.line, err.msg))
		}
		if proc != nil {
			out.procedures = append(out.procedures, proc)
		}
		if p.pos <= start {
			p.pos = start + 1
		}
		p.skipStatement(p.pos)
	}
	return out
}

// routineClauses end a RETURNS clause.
var routineClauses = map[string]bool{
	"LANGUAGE":  true,
	"AS":        true,
	"IMMUTABLE": true,
	"STABLE":    true,
	"VOLATILE":  true,
	"STRICT":    true,
	"SECURITY":  true,
	"COST":      true,
	"ROWS":      true,
	"SET":       true,
	"PARALLEL":  true,
	"LEAKPROOF": true,
	"NOT":       true,
	"CALLED":    true,
	"WINDOW":    true,
	"EXTERNAL":  true,
	"TRANSFORM": true,
	"SUPPORT":   true,
	"BEGIN":     true,
	"RETURNS":   true,
}

// parseRoutine parses CREATE [OR REPLACE] FUNCTION|PROCEDURE. Other CREATE
// statements return nil without an error.
func (p *parser) parseRoutine() (*model.Procedure, *statementError) {
	first := p.at(p.pos)
	kind := strings.ToLower(p.createHeader())
	if kind != "function" && kind != "procedure" {
		return nil, nil
	}
	line := p.lineOf(first)
	schema, name, ok := p.qualifiedName()
	if !ok {
		return nil, &statementError{line: line, msg: "CREATE " + strings.ToUpper(kind) + ": expected a routine name"}
	}
	proc := &model.Procedure{
		Name:       name,
		Kind:       kind,
		Parameters: []model.ProcedureParam{},
		Source:     model.Location{File: p.path, Line: line},
	}
	if p.at(p.pos).isByte('(') {
		open := p.pos
		end := p.closing(open)
		if end < 0 {
			p.pos = open + 1
			return nil, &statementError{line: line, msg: "CREATE " + strings.ToUpper(kind) + " " + name + ": unterminated parameter list"}
		}
		for _, chunk := range splitTopLevel(p.lx[open+1 : end]) {
			if param, ok := p.parseParam(chunk); ok {
				proc.Parameters = append(proc.Parameters, param)
			}
		}
		p.pos = end + 1
	}

	end := p.statementEnd(p.pos)
	for p.pos < end {
		l := p.at(p.pos)
		switch {
		case l.isWord("RETURNS") && !(p.at(p.pos+1).isWord("NULL") && p.at(p.pos+2).isWord("ON")):
			p.pos++
			from := p.pos
			depth := 0
			for p.pos < end {
				cur := p.at(p.pos)
				if depth == 0 && (routineClauses[cur.upper()] || cur.code == dollarQuotedToken) {
					break
				}
				switch {
				case cur.isByte('('):
					depth++
				case cur.isByte(')'):
					depth--
				}
				p.pos++
			}
			proc.Returns = collapse(p.span(p.lx[from:p.pos]))
			continue
		case l.isWord("LANGUAGE"):
			if next := p.at(p.pos + 1); next.code == identifierToken || next.code == singleQuotedToken {
				proc.Language = strings.ToLower(stringValue(next.text))
				p.pos += 2
				continue
			}
		case l.code == dollarQuotedToken && (p.at(p.pos-1).isWord("AS") || proc.Body == ""):
			if !isTerminatedDollar(l.text) {
				p.pos = len(p.lx)
				return nil, &statementError{line: p.lineOf(l), msg: "CREATE " + strings.ToUpper(kind) + " " + name + ": unterminated dollar-quoted body"}
			}
			tag := dollarTag([]byte(l.text))
			proc.Body = l.text[len(tag) : len(l.text)-len(tag)]
			proc.BodyLine = p.lineOf(l)
		case l.code == singleQuotedToken && p.at(p.pos-1).isWord("AS") && proc.Body == "":
			proc.Body = stringValue(l.text)
			proc.BodyLine = p.lineOf(l)
		}
		p.pos++
	}
	if !p.opts.retains(schema) {
		return nil, nil
	}
	return proc, nil
}

// parseParam parses "[mode] [name] type [DEFAULT x | = x]".
func (p *parser) parseParam(chunk []lexeme) (model.ProcedureParam, bool) {
	if len(chunk) > 1 {
		switch chunk[0].upper() {
		case "IN", "OUT", "INOUT", "VARIADIC":
			chunk = chunk[1:]
		}
	}
	for i, l := range chunk {
		if l.isWord("DEFAULT") || l.isByte('=') {
			chunk = chunk[:i]
			break
		}
	}
	switch len(chunk) {
	case 0:
		return model.ProcedureParam{}, false
	case 1:
		return model.ProcedureParam{Type: collapse(p.span(chunk))}, true
	}
	if !chunk[0].isName() {
		return model.ProcedureParam{Type: collapse(p.span(chunk))}, true
	}
	return model.ProcedureParam{Name: unquote(chunk[0].text), Type: collapse(p.span(chunk[1:]))}, true
}
