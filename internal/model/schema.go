package model

import (
	"sort"
	"strings"
)

// Location points at a line in a source artifact.
type Location struct {
	File string `json:"file"`
	Line int    `json:"line"`
}

// Column describes a single column declared in a table.
type Column struct {
	Name         string  `json:"name"`
	DeclaredType string  `json:"declared_type"`
	Nullable     bool    `json:"nullable"`
	Default      *string `json:"default,omitempty"`
}

// Table is an immutable table record. Columns keep declaration order.
type Table struct {
	Name    string   `json:"name"`
	Columns []Column `json:"columns"`
	Source  Location `json:"source"`

	index map[string]int
}

// NewTable builds a table record. A column declared twice keeps its first
// position and its last definition.
func NewTable(name string, columns []Column, source Location) *Table {
	t := &Table{Name: name, Source: source, index: make(map[string]int, len(columns))}
	for _, c := range columns {
		if i, ok := t.index[c.Name]; ok {
			t.Columns[i] = c
			continue
		}
		t.index[c.Name] = len(t.Columns)
		t.Columns = append(t.Columns, c)
	}
	return t
}

// Column looks up a column by its exact name.
func (t *Table) Column(name string) (Column, bool) {
	if t.index == nil {
		for _, c := range t.Columns {
			if c.Name == name {
				return c, true
			}
		}
		return Column{}, false
	}
	i, ok := t.index[name]
	if !ok {
		return Column{}, false
	}
	return t.Columns[i], true
}

// HasColumn reports whether the table declares the named column.
func (t *Table) HasColumn(name string) bool {
	_, ok := t.Column(name)
	return ok
}

// ColumnNames returns column names in declaration order.
func (t *Table) ColumnNames() []string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	return names
}

// Catalog indexes the tables declared by a set of schema sources.
type Catalog struct {
	Tables map[string]*Table `json:"tables"`
}

// NewCatalog returns an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{Tables: make(map[string]*Table)}
}

// Table looks up a table by exact name.
func (c *Catalog) Table(name string) (*Table, bool) {
	if c == nil {
		return nil, false
	}
	t, ok := c.Tables[name]
	return t, ok
}

// TableNames returns the sorted table names.
func (c *Catalog) TableNames() []string {
	if c == nil {
		return nil
	}
	names := make([]string, 0, len(c.Tables))
	for name := range c.Tables {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of tables.
func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.Tables)
}

// ProcedureParam describes a single parameter of a stored procedure or function.
type ProcedureParam struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// Procedure describes a stored procedure or function definition.
type Procedure struct {
	Name       string           `json:"name"`
	Kind       string           `json:"kind"` // "function" or "procedure"
	Parameters []ProcedureParam `json:"parameters"`
	Returns    string           `json:"returns,omitempty"`
	Language   string           `json:"language,omitempty"`
	Body       string           `json:"-"`
	BodyLine   int              `json:"body_line,omitempty"`
	Source     Location         `json:"source"`
}

// ProcedureCatalog indexes procedures by lower-cased name.
type ProcedureCatalog struct {
	Procedures map[string]*Procedure `json:"procedures"`
}

// NewProcedureCatalog returns an empty procedure catalog.
func NewProcedureCatalog() *ProcedureCatalog {
	return &ProcedureCatalog{Procedures: make(map[string]*Procedure)}
}

// Put stores p, replacing any procedure with the same case-insensitive name.
func (c *ProcedureCatalog) Put(p *Procedure) {
	c.Procedures[strings.ToLower(p.Name)] = p
}

// Lookup finds a procedure by name, ignoring case.
func (c *ProcedureCatalog) Lookup(name string) (*Procedure, bool) {
	if c == nil {
		return nil, false
	}
	p, ok := c.Procedures[strings.ToLower(name)]
	return p, ok
}

// Names returns the declared procedure names, sorted.
func (c *ProcedureCatalog) Names() []string {
	if c == nil {
		return nil
	}
	names := make([]string, 0, len(c.Procedures))
	for _, p := range c.Procedures {
		names = append(names, p.Name)
	}
	sort.Strings(names)
	return names
}

// Sorted returns the procedures ordered by name.
func (c *ProcedureCatalog) Sorted() []*Procedure {
	if c == nil {
		return nil
	}
	keys := make([]string, 0, len(c.Procedures))
	for k := range c.Procedures {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]*Procedure, len(keys))
	for i, k := range keys {
		out[i] = c.Procedures[k]
	}
	return out
}

// Len returns the number of procedures.
func (c *ProcedureCatalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.Procedures)
}
