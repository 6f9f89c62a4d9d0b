package connector

import (
	"fmt"
	"sort"
	"strings"

	"github.com/faucetdb/driftguard/internal/model"
)

// ColumnRow is one column as reported by a database's catalog views. Every
// driver scans its own query into this shape.
type ColumnRow struct {
	TableName  string  `db:"table_name"`
	ColumnName string  `db:"column_name"`
	DataType   string  `db:"data_type"`
	IsNullable string  `db:"is_nullable"`
	Default    *string `db:"column_default"`
	Position   int     `db:"ordinal_position"`
}

// RoutineRow is one stored function or procedure.
type RoutineRow struct {
	Name     string  `db:"routine_name"`
	Type     string  `db:"routine_type"`
	Returns  *string `db:"data_type"`
	Language *string `db:"routine_language"`
	Body     *string `db:"routine_definition"`
}

// ParamRow is one routine parameter.
type ParamRow struct {
	RoutineName string  `db:"routine_name"`
	Name        *string `db:"parameter_name"`
	DataType    string  `db:"data_type"`
	Mode        *string `db:"parameter_mode"`
	Position    int     `db:"ordinal_position"`
}

// SourceLocation is the location recorded for introspected entities.
func SourceLocation(driver, schema string) model.Location {
	if schema == "" {
		return model.Location{File: driver + ":"}
	}
	return model.Location{File: fmt.Sprintf("%s:%s", driver, schema)}
}

// BuildCatalog groups column rows into tables. Tables without columns are
// kept when listed in tables. Columns are ordered by position.
func BuildCatalog(source model.Location, tables []string, columns []ColumnRow) *model.Catalog {
	byTable := make(map[string][]ColumnRow)
	for _, t := range tables {
		byTable[t] = nil
	}
	for _, c := range columns {
		byTable[c.TableName] = append(byTable[c.TableName], c)
	}

	cat := model.NewCatalog()
	for name, rows := range byTable {
		sort.SliceStable(rows, func(i, j int) bool { return rows[i].Position < rows[j].Position })
		cols := make([]model.Column, 0, len(rows))
		for _, r := range rows {
			cols = append(cols, model.Column{
				Name:         r.ColumnName,
				DeclaredType: r.DataType,
				Nullable:     IsNullable(r.IsNullable),
				Default:      r.Default,
			})
		}
		cat.Tables[name] = model.NewTable(name, cols, source)
	}
	return cat
}

// BuildProcedures assembles routines and their parameters. Output parameters
// are left out of the parameter list.
func BuildProcedures(source model.Location, routines []RoutineRow, params []ParamRow) *model.ProcedureCatalog {
	byRoutine := make(map[string][]ParamRow)
	for _, p := range params {
		byRoutine[p.RoutineName] = append(byRoutine[p.RoutineName], p)
	}

	procs := model.NewProcedureCatalog()
	for _, r := range routines {
		p := &model.Procedure{
			Name:     r.Name,
			Kind:     routineKind(r.Type),
			Returns:  deref(r.Returns),
			Language: strings.ToLower(deref(r.Language)),
			Body:     deref(r.Body),
			Source:   source,
		}
		rows := byRoutine[r.Name]
		sort.SliceStable(rows, func(i, j int) bool { return rows[i].Position < rows[j].Position })
		for _, pr := range rows {
			if mode := strings.ToUpper(deref(pr.Mode)); mode == "OUT" {
				continue
			}
			p.Parameters = append(p.Parameters, model.ProcedureParam{Name: deref(pr.Name), Type: pr.DataType})
		}
		procs.Put(p)
	}
	return procs
}

// IsNullable interprets the nullability flags of the supported databases.
func IsNullable(flag string) bool {
	switch strings.ToUpper(strings.TrimSpace(flag)) {
	case "YES", "Y", "1", "TRUE":
		return true
	}
	return false
}

func routineKind(t string) string {
	if strings.EqualFold(t, "PROCEDURE") {
		return "procedure"
	}
	return "function"
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
