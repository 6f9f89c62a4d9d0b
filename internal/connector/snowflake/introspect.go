package snowflake

import (
	"context"
	"fmt"
	"strings"

	"github.com/faucetdb/driftguard/internal/connector"
	"github.com/faucetdb/driftguard/internal/model"
)

// procedureRow holds a row of INFORMATION_SCHEMA.PROCEDURES or FUNCTIONS.
// Snowflake has no PARAMETERS view; arguments come from the signature text.
type procedureRow struct {
	Name      string  `db:"routine_name"`
	Signature string  `db:"argument_signature"`
	Returns   *string `db:"data_type"`
	Language  *string `db:"routine_language"`
	Body      *string `db:"routine_definition"`
}

// IntrospectCatalog returns the tables and views of the configured schema.
func (c *SnowflakeConnector) IntrospectCatalog(ctx context.Context) (*model.Catalog, error) {
	tables, err := c.fetchTables(ctx)
	if err != nil {
		return nil, fmt.Errorf("introspect tables: %w", err)
	}

	const query = `SELECT
			c.TABLE_NAME AS "table_name",
			c.COLUMN_NAME AS "column_name",
			c.DATA_TYPE AS "data_type",
			c.IS_NULLABLE AS "is_nullable",
			c.COLUMN_DEFAULT AS "column_default",
			c.ORDINAL_POSITION AS "ordinal_position"
		FROM INFORMATION_SCHEMA.COLUMNS c
		WHERE c.TABLE_SCHEMA = ?
		ORDER BY c.TABLE_NAME, c.ORDINAL_POSITION`

	var columns []connector.ColumnRow
	if err := c.Select(ctx, &columns, query, c.Schema()); err != nil {
		return nil, fmt.Errorf("introspect columns: %w", err)
	}
	return connector.BuildCatalog(c.Source(c.DriverName()), tables, columns), nil
}

// IntrospectProcedures returns the procedures and user functions of the
// configured schema.
func (c *SnowflakeConnector) IntrospectProcedures(ctx context.Context) (*model.ProcedureCatalog, error) {
	var routines []connector.RoutineRow
	var params []connector.ParamRow

	for _, kind := range []string{"PROCEDURE", "FUNCTION"} {
		rows, err := c.fetchRoutines(ctx, kind)
		if err != nil {
			return nil, fmt.Errorf("introspect %s: %w", strings.ToLower(kind)+"s", err)
		}
		for _, r := range rows {
			routines = append(routines, connector.RoutineRow{
				Name:     r.Name,
				Type:     kind,
				Returns:  r.Returns,
				Language: r.Language,
				Body:     r.Body,
			})
			params = append(params, parseSignature(r.Name, r.Signature)...)
		}
	}
	return connector.BuildProcedures(c.Source(c.DriverName()), routines, params), nil
}

// GetTableNames returns a list of all table names in the configured schema.
func (c *SnowflakeConnector) GetTableNames(ctx context.Context) ([]string, error) {
	const query = `SELECT TABLE_NAME FROM INFORMATION_SCHEMA.TABLES
		WHERE TABLE_SCHEMA = ? AND TABLE_TYPE = 'BASE TABLE'
		ORDER BY TABLE_NAME`

	var names []string
	if err := c.Select(ctx, &names, query, c.Schema()); err != nil {
		return nil, fmt.Errorf("get table names: %w", err)
	}
	return names, nil
}

// --- internal fetch helpers ---

func (c *SnowflakeConnector) fetchTables(ctx context.Context) ([]string, error) {
	const query = `SELECT TABLE_NAME
		FROM INFORMATION_SCHEMA.TABLES
		WHERE TABLE_SCHEMA = ? AND TABLE_TYPE IN ('BASE TABLE', 'VIEW')
		ORDER BY TABLE_NAME`

	var names []string
	if err := c.Select(ctx, &names, query, c.Schema()); err != nil {
		return nil, err
	}
	return names, nil
}

func (c *SnowflakeConnector) fetchRoutines(ctx context.Context, kind string) ([]procedureRow, error) {
	view := "PROCEDURES"
	if kind == "FUNCTION" {
		view = "FUNCTIONS"
	}
	query := fmt.Sprintf(`SELECT
			%[1]s_NAME AS "routine_name",
			ARGUMENT_SIGNATURE AS "argument_signature",
			DATA_TYPE AS "data_type",
			%[1]s_LANGUAGE AS "routine_language",
			%[1]s_DEFINITION AS "routine_definition"
		FROM INFORMATION_SCHEMA.%[2]s
		WHERE %[1]s_SCHEMA = ?
		ORDER BY %[1]s_NAME`, kind, view)

	var rows []procedureRow
	if err := c.Select(ctx, &rows, query, c.Schema()); err != nil {
		return nil, err
	}
	return rows, nil
}

// parseSignature splits an argument signature such as
// "(ID NUMBER, LABEL VARCHAR)" into parameter rows. Commas inside type
// parentheses do not split arguments.
func parseSignature(routine, signature string) []connector.ParamRow {
	inner := strings.TrimSpace(signature)
	inner = strings.TrimPrefix(inner, "(")
	inner = strings.TrimSuffix(inner, ")")
	if strings.TrimSpace(inner) == "" {
		return nil
	}

	var parts []string
	depth, start := 0, 0
	for i, r := range inner {
		switch r {
		case '(':
			depth++
		case ')':
			depth--
		case ',':
			if depth == 0 {
				parts = append(parts, inner[start:i])
				start = i + 1
			}
		}
	}
	parts = append(parts, inner[start:])

	rows := make([]connector.ParamRow, 0, len(parts))
	for i, part := range parts {
		fields := strings.Fields(part)
		if len(fields) == 0 {
			continue
		}
		name := fields[0]
		row := connector.ParamRow{
			RoutineName: routine,
			Name:        &name,
			Position:    i + 1,
		}
		if len(fields) > 1 {
			row.DataType = strings.Join(fields[1:], " ")
		}
		rows = append(rows, row)
	}
	return rows
}
