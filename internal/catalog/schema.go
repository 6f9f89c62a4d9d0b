// Package catalog builds table and procedure catalogs from SQL source files.
package catalog

import (
	"context"
	"regexp"

	"github.com/spf13/afero"

	"github.com/faucetdb/driftguard/internal/model"
	"github.com/faucetdb/driftguard/internal/source"
)

// ---------------------------------------------------------------------------
// Schema changes
// ---------------------------------------------------------------------------

type changeKind int

const (
	createTable changeKind = iota
	alterTable
	dropTable
)

type alterOp int

const (
	addColumn alterOp = iota
	dropColumn
	renameColumn
	renameTable
	modifyColumn
)

type alterAction struct {
	op          alterOp
	column      model.Column
	ifNotExists bool
	name        string
	newName     string
	modify      func(*model.Column)
}

// tableChange is one schema statement, applied in file order.
type tableChange struct {
	kind    changeKind
	table   string
	line    int
	columns []model.Column
	actions []alterAction
}

type schemaFile struct {
	changes  []tableChange
	warnings []model.Diagnostic
}

// BuildCatalog parses the DDL files at paths and returns the resulting table
// catalog. Files are parsed concurrently and applied in sorted path order, so
// a table declared twice keeps the definition parsed last. Unreadable files
// and unparseable statements become parse-failure warnings; only context
// cancellation returns an error.
func BuildCatalog(ctx context.Context, fsys afero.Fs, paths []string, opts Options) (*model.Catalog, []model.Diagnostic, error) {
	paths = source.SortedUnique(paths)
	results, err := source.ParseAll(ctx, fsys, paths, opts.Concurrency, func(path string, data []byte) (schemaFile, error) {
		return parseSchema(path, data, opts), nil
	})
	if err != nil {
		return nil, nil, err
	}

	logger := opts.logger()
	cat := model.NewCatalog()
	var warnings []model.Diagnostic
	for _, r := range results {
		if r.Err != nil {
			warnings = append(warnings, failure(r.Path, 0, r.Err.Error()))
			continue
		}
		warnings = append(warnings, r.Value.warnings...)
		for _, c := range r.Value.changes {
			if !applyChange(cat, c, r.Path) {
				logger.Debug("alter of unknown table ignored", "file", r.Path, "line", c.line, "table", c.table)
			}
		}
	}
	logger.Debug("schema catalog built", "files", len(paths), "tables", cat.Len())
	return cat, warnings, nil
}

// ParseSchema parses a single DDL source into a catalog.
func ParseSchema(path string, src []byte, opts Options) (*model.Catalog, []model.Diagnostic) {
	f := parseSchema(path, src, opts)
	cat := model.NewCatalog()
	for _, c := range f.changes {
		applyChange(cat, c, path)
	}
	return cat, f.warnings
}

// applyChange applies c to cat. It reports false for an alter of an unknown table.
func applyChange(cat *model.Catalog, c tableChange, path string) bool {
	switch c.kind {
	case createTable:
		cat.Tables[c.table] = model.NewTable(c.table, c.columns, model.Location{File: path, Line: c.line})
	case dropTable:
		delete(cat.Tables, c.table)
	case alterTable:
		cur, ok := cat.Tables[c.table]
		if !ok {
			return false
		}
		name := cur.Name
		cols := make([]model.Column, len(cur.Columns))
		copy(cols, cur.Columns)
		for _, a := range c.actions {
			switch a.op {
			case addColumn:
				if a.ifNotExists && indexOf(cols, a.column.Name) >= 0 {
					continue
				}
				cols = append(cols, a.column)
			case dropColumn:
				if i := indexOf(cols, a.name); i >= 0 {
					cols = append(cols[:i], cols[i+1:]...)
				}
			case renameColumn:
				if i := indexOf(cols, a.name); i >= 0 {
					cols[i].Name = a.newName
				}
			case modifyColumn:
				if i := indexOf(cols, a.name); i >= 0 {
					a.modify(&cols[i])
				}
			case renameTable:
				name = a.newName
			}
		}
		delete(cat.Tables, c.table)
		cat.Tables[name] = model.NewTable(name, cols, cur.Source)
	}
	return true
}

func indexOf(cols []model.Column, name string) int {
	for i, c := range cols {
		if c.Name == name {
			return i
		}
	}
	return -1
}

// ---------------------------------------------------------------------------
// Statement parsing
// ---------------------------------------------------------------------------

func parseSchema(path string, src []byte, opts Options) schemaFile {
	p := newParser(path, src, opts)
	var out schemaFile
	for p.pos < len(p.lx) {
		start := p.pos
		var (
			change *tableChange
			err    *statementError
		)
		switch {
		case p.at(start).isWord("CREATE"):
			change, err = p.parseCreateTable()
		case p.at(start).isWord("ALTER"):
			change, err = p.parseAlterTable()
		case p.at(start).isWord("DROP"):
			out.changes = append(out.changes, p.parseDropTable()...)
		default:
			p.pos++
			continue
		}
		if err != nil {
			out.warnings = append(out.warnings, failure(path, err.line, err.msg))
		}
		if change != nil {
			out.changes = append(out.changes, *change)
		}
		if p.pos <= start {
			p.pos = start + 1
		}
		p.skipStatement(p.pos)
	}
	return out
}

// parseCreateTable parses CREATE ... TABLE. It returns nil without an error
// for other CREATE statements and for tables in schemas that are not retained.
func (p *parser) parseCreateTable() (*tableChange, *statementError) {
	first := p.at(p.pos)
	if p.createHeader() != "TABLE" {
		return nil, nil
	}
	p.acceptWords("IF", "NOT", "EXISTS")
	schema, name, ok := p.qualifiedName()
	if !ok {
		return nil, &statementError{line: p.lineOf(first), msg: "CREATE TABLE: expected a table name"}
	}
	line := p.lineOf(first)
	if !p.opts.retains(schema) {
		return nil, nil
	}
	if p.derivedTable(name, line, "AS", "LIKE", "OF", "PARTITION") {
		return nil, nil
	}
	if !p.at(p.pos).isByte('(') {
		return nil, &statementError{line: line, msg: "CREATE TABLE " + name + ": expected a column list"}
	}
	open := p.pos
	end := p.closing(open)
	if end < 0 {
		p.pos = open + 1
		return nil, &statementError{line: line, msg: "CREATE TABLE " + name + ": unterminated column list"}
	}
	p.pos = end + 1
	if p.derivedTable(name, line, "AS") {
		return nil, nil
	}

	var cols []model.Column
	for _, chunk := range splitTopLevel(p.lx[open+1 : end]) {
		if isTableConstraint(chunk) {
			continue
		}
		col, ok := p.parseColumn(chunk)
		if !ok {
			p.opts.logger().Debug("column definition dropped", "file", p.path, "line", p.lineOf(chunk[0]), "text", p.span(chunk))
			continue
		}
		cols = append(cols, col)
	}
	return &tableChange{kind: createTable, table: name, line: line, columns: cols}, nil
}

// derivedTable reports whether the current word is one of words, which
// introduce a table whose columns come from a query or another table. Those
// tables are not cataloged.
func (p *parser) derivedTable(name string, line int, words ...string) bool {
	t := p.at(p.pos)
	for _, w := range words {
		if t.isWord(w) {
			p.opts.logger().Debug("derived table skipped", "file", p.path, "line", line, "table", name)
			return true
		}
	}
	return false
}

// parseDropTable parses DROP TABLE [IF EXISTS] a, b [CASCADE].
func (p *parser) parseDropTable() []tableChange {
	first := p.at(p.pos)
	if !p.acceptWords("DROP", "TABLE") {
		p.pos++
		return nil
	}
	p.acceptWords("IF", "EXISTS")
	var out []tableChange
	for {
		schema, name, ok := p.qualifiedName()
		if !ok {
			break
		}
		if p.opts.retains(schema) {
			out = append(out, tableChange{kind: dropTable, table: name, line: p.lineOf(first)})
		}
		if !p.at(p.pos).isByte(',') {
			break
		}
		p.pos++
	}
	return out
}

// parseAlterTable parses ALTER TABLE with column and rename actions. Actions
// it does not model are ignored.
func (p *parser) parseAlterTable() (*tableChange, *statementError) {
	first := p.at(p.pos)
	if !p.acceptWords("ALTER", "TABLE") {
		p.pos++
		return nil, nil
	}
	p.acceptWords("IF", "EXISTS")
	p.acceptWords("ONLY")
	schema, name, ok := p.qualifiedName()
	if !ok {
		return nil, &statementError{line: p.lineOf(first), msg: "ALTER TABLE: expected a table name"}
	}
	if p.at(p.pos).isByte('*') {
		p.pos++
	}
	end := p.statementEnd(p.pos)
	items := p.lx[p.pos:end]
	p.pos = end
	if !p.opts.retains(schema) {
		return nil, nil
	}

	change := &tableChange{kind: alterTable, table: name, line: p.lineOf(first)}
	for _, action := range splitTopLevel(items) {
		if a, ok := p.parseAlterAction(action); ok {
			change.actions = append(change.actions, a)
		}
	}
	return change, nil
}

func (p *parser) parseAlterAction(items []lexeme) (alterAction, bool) {
	word := func(i int) lexeme {
		if i < len(items) {
			return items[i]
		}
		return noLexeme
	}
	i := 1
	switch items[0].upper() {
	case "ADD":
		if word(i).isWord("COLUMN") {
			i++
		}
		ifNotExists := false
		if word(i).isWord("IF") && word(i+1).isWord("NOT") && word(i+2).isWord("EXISTS") {
			ifNotExists = true
			i += 3
		}
		if isTableConstraint(items[i:]) {
			return alterAction{}, false
		}
		col, ok := p.parseColumn(items[i:])
		return alterAction{op: addColumn, column: col, ifNotExists: ifNotExists}, ok
	case "DROP":
		if word(i).isWord("CONSTRAINT") {
			return alterAction{}, false
		}
		if word(i).isWord("COLUMN") {
			i++
		}
		if word(i).isWord("IF") && word(i+1).isWord("EXISTS") {
			i += 2
		}
		if !word(i).isName() {
			return alterAction{}, false
		}
		return alterAction{op: dropColumn, name: unquote(word(i).text)}, true
	case "RENAME":
		switch {
		case word(i).isWord("TO"):
			if !word(i + 1).isName() {
				return alterAction{}, false
			}
			return alterAction{op: renameTable, newName: unquote(word(i + 1).text)}, true
		case word(i).isWord("CONSTRAINT"):
			return alterAction{}, false
		case word(i).isWord("COLUMN"):
			i++
		}
		if !word(i).isName() || !word(i+1).isWord("TO") || !word(i+2).isName() {
			return alterAction{}, false
		}
		return alterAction{op: renameColumn, name: unquote(word(i).text), newName: unquote(word(i + 2).text)}, true
	case "ALTER":
		if word(i).isWord("COLUMN") {
			i++
		}
		if !word(i).isName() {
			return alterAction{}, false
		}
		name := unquote(word(i).text)
		modify := p.columnModifier(items[i+1:])
		if modify == nil {
			return alterAction{}, false
		}
		return alterAction{op: modifyColumn, name: name, modify: modify}, true
	}
	return alterAction{}, false
}

// columnModifier interprets ALTER COLUMN sub-actions.
func (p *parser) columnModifier(items []lexeme) func(*model.Column) {
	at := func(i int) lexeme {
		if i < len(items) {
			return items[i]
		}
		return noLexeme
	}
	typeFrom := -1
	switch {
	case at(0).isWord("TYPE"):
		typeFrom = 1
	case at(0).isWord("SET") && at(1).isWord("DATA") && at(2).isWord("TYPE"):
		typeFrom = 3
	case at(0).isWord("SET") && at(1).isWord("NOT") && at(2).isWord("NULL"):
		return func(c *model.Column) { c.Nullable = false }
	case at(0).isWord("DROP") && at(1).isWord("NOT") && at(2).isWord("NULL"):
		return func(c *model.Column) { c.Nullable = true }
	case at(0).isWord("DROP") && at(1).isWord("DEFAULT"):
		return func(c *model.Column) { c.Default = nil }
	case at(0).isWord("SET") && at(1).isWord("DEFAULT") && len(items) > 2:
		expr := p.span(items[2:])
		return func(c *model.Column) { c.Default = &expr }
	}
	if typeFrom < 0 || typeFrom >= len(items) {
		return nil
	}
	end := typeFrom
	for end < len(items) && !items[end].isWord("USING") && !items[end].isWord("COLLATE") {
		end++
	}
	if end == typeFrom {
		return nil
	}
	typ := collapse(p.span(items[typeFrom:end]))
	return func(c *model.Column) { c.DeclaredType = typ }
}

// ---------------------------------------------------------------------------
// Column definitions
// ---------------------------------------------------------------------------

var constraintPrefixes = [][]string{
	{"PRIMARY", "KEY"},
	{"FOREIGN", "KEY"},
	{"UNIQUE"},
	{"CHECK"},
	{"CONSTRAINT"},
	{"EXCLUDE"},
	{"LIKE"},
}

func isTableConstraint(chunk []lexeme) bool {
	for _, prefix := range constraintPrefixes {
		if len(chunk) < len(prefix) {
			continue
		}
		match := true
		for i, w := range prefix {
			if !chunk[i].isWord(w) {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}

// columnKeywords end a column type and a DEFAULT expression.
var columnKeywords = map[string]bool{
	"NOT":            true,
	"NULL":           true,
	"DEFAULT":        true,
	"PRIMARY":        true,
	"REFERENCES":     true,
	"UNIQUE":         true,
	"CHECK":          true,
	"CONSTRAINT":     true,
	"GENERATED":      true,
	"COLLATE":        true,
	"IDENTITY":       true,
	"AUTO_INCREMENT": true,
	"AUTOINCREMENT":  true,
	"COMMENT":        true,
	"ON":             true,
	"AFTER":          true,
	"FIRST":          true,
}

var fallbackColumn = regexp.MustCompile("^[\"`]?([A-Za-z_][A-Za-z0-9_$]*)[\"`]?\\s+([A-Za-z_][A-Za-z0-9_$]*)")

// parseColumn parses "name type [modifiers]" and falls back to a bare
// "name type" match.
func (p *parser) parseColumn(chunk []lexeme) (model.Column, bool) {
	if col, ok := p.parseColumnDefinition(chunk); ok {
		return col, true
	}
	if len(chunk) == 0 {
		return model.Column{}, false
	}
	m := fallbackColumn.FindStringSubmatch(p.span(chunk))
	if m == nil {
		return model.Column{}, false
	}
	return model.Column{Name: m[1], DeclaredType: m[2], Nullable: true}, true
}

func (p *parser) parseColumnDefinition(chunk []lexeme) (model.Column, bool) {
	if len(chunk) < 2 || !chunk[0].isName() {
		return model.Column{}, false
	}
	i, depth := 1, 0
	for ; i < len(chunk); i++ {
		l := chunk[i]
		if depth == 0 && columnKeywords[l.upper()] {
			break
		}
		switch {
		case l.isByte('('):
			depth++
		case l.isByte(')'):
			depth--
		}
	}
	if i == 1 {
		return model.Column{}, false
	}
	col := model.Column{
		Name:         unquote(chunk[0].text),
		DeclaredType: collapse(p.span(chunk[1:i])),
		Nullable:     true,
	}

	depth = 0
	for i < len(chunk) {
		l := chunk[i]
		switch {
		case l.isByte('('):
			depth++
		case l.isByte(')'):
			depth--
		}
		if depth != 0 {
			i++
			continue
		}
		next := noLexeme
		if i+1 < len(chunk) {
			next = chunk[i+1]
		}
		switch l.upper() {
		case "NOT":
			if next.isWord("NULL") {
				col.Nullable = false
				i += 2
				continue
			}
		case "PRIMARY":
			if next.isWord("KEY") {
				col.Nullable = false
				i += 2
				continue
			}
		case "DEFAULT":
			if i+1 >= len(chunk) {
				break
			}
			j := p.expressionEnd(chunk, i+1)
			expr := p.span(chunk[i+1 : j])
			col.Default = &expr
			i = j
			continue
		}
		i++
	}
	return col, true
}

// expressionEnd returns the index after a DEFAULT expression starting at from.
// The first token always belongs to the expression.
func (p *parser) expressionEnd(chunk []lexeme, from int) int {
	depth := 0
	for j := from; j < len(chunk); j++ {
		l := chunk[j]
		if j > from && depth == 0 && columnKeywords[l.upper()] {
			return j
		}
		switch {
		case l.isByte('('):
			depth++
		case l.isByte(')'):
			depth--
		}
	}
	return len(chunk)
}
