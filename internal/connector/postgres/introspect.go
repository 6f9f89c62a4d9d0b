package postgres

import (
	"context"
	"fmt"

	"github.com/faucetdb/driftguard/internal/connector"
	"github.com/faucetdb/driftguard/internal/model"
)

// IntrospectCatalog returns the tables and views of the configured schema.
// Array and user-defined columns report their underlying type name.
func (c *PostgresConnector) IntrospectCatalog(ctx context.Context) (*model.Catalog, error) {
	tables, err := c.fetchTables(ctx)
	if err != nil {
		return nil, fmt.Errorf("introspect tables: %w", err)
	}

	const query = `SELECT
			c.table_name,
			c.column_name,
			CASE WHEN c.data_type IN ('ARRAY', 'USER-DEFINED') THEN c.udt_name ELSE c.data_type END AS data_type,
			c.is_nullable,
			c.column_default,
			c.ordinal_position
		FROM information_schema.columns c
		WHERE c.table_schema = $1
		ORDER BY c.table_name, c.ordinal_position`

	var columns []connector.ColumnRow
	if err := c.Select(ctx, &columns, query, c.Schema()); err != nil {
		return nil, fmt.Errorf("introspect columns: %w", err)
	}
	return connector.BuildCatalog(c.Source(c.DriverName()), tables, columns), nil
}

// IntrospectProcedures returns the functions and procedures of the configured
// schema with their input parameters and bodies.
func (c *PostgresConnector) IntrospectProcedures(ctx context.Context) (*model.ProcedureCatalog, error) {
	const routineQuery = `SELECT
			routine_name,
			routine_type,
			data_type,
			external_language AS routine_language,
			routine_definition
		FROM information_schema.routines
		WHERE routine_schema = $1
		ORDER BY routine_name`

	var routines []connector.RoutineRow
	if err := c.Select(ctx, &routines, routineQuery, c.Schema()); err != nil {
		return nil, fmt.Errorf("introspect routines: %w", err)
	}

	const paramQuery = `SELECT
			r.routine_name,
			p.parameter_name,
			p.data_type,
			p.parameter_mode,
			p.ordinal_position
		FROM information_schema.parameters p
		JOIN information_schema.routines r
			ON p.specific_schema = r.specific_schema
			AND p.specific_name = r.specific_name
		WHERE r.routine_schema = $1
		ORDER BY r.routine_name, p.ordinal_position`

	var params []connector.ParamRow
	if err := c.Select(ctx, &params, paramQuery, c.Schema()); err != nil {
		return nil, fmt.Errorf("introspect parameters: %w", err)
	}
	return connector.BuildProcedures(c.Source(c.DriverName()), routines, params), nil
}

// GetTableNames returns a list of all table names in the configured schema.
func (c *PostgresConnector) GetTableNames(ctx context.Context) ([]string, error) {
	const query = `SELECT table_name FROM information_schema.tables
		WHERE table_schema = $1 AND table_type = 'BASE TABLE'
		ORDER BY table_name`

	var names []string
	if err := c.Select(ctx, &names, query, c.Schema()); err != nil {
		return nil, fmt.Errorf("get table names: %w", err)
	}
	return names, nil
}

// fetchTables lists base tables and views; handlers query both.
func (c *PostgresConnector) fetchTables(ctx context.Context) ([]string, error) {
	const query = `SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = $1 AND table_type IN ('BASE TABLE', 'VIEW')
		ORDER BY table_name`

	var names []string
	if err := c.Select(ctx, &names, query, c.Schema()); err != nil {
		return nil, err
	}
	return names, nil
}
