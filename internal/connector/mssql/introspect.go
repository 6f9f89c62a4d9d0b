package mssql

import (
	"context"
	"fmt"

	"github.com/faucetdb/driftguard/internal/connector"
	"github.com/faucetdb/driftguard/internal/model"
)

// IntrospectCatalog returns the tables and views of the configured schema.
// Character and decimal types carry their length or precision.
func (c *MSSQLConnector) IntrospectCatalog(ctx context.Context) (*model.Catalog, error) {
	tables, err := c.fetchTables(ctx)
	if err != nil {
		return nil, fmt.Errorf("introspect tables: %w", err)
	}

	const query = `SELECT
			c.TABLE_NAME AS table_name,
			c.COLUMN_NAME AS column_name,
			CASE
				WHEN c.CHARACTER_MAXIMUM_LENGTH = -1 THEN c.DATA_TYPE + '(max)'
				WHEN c.CHARACTER_MAXIMUM_LENGTH IS NOT NULL THEN c.DATA_TYPE + '(' + CAST(c.CHARACTER_MAXIMUM_LENGTH AS varchar(10)) + ')'
				WHEN c.DATA_TYPE IN ('decimal', 'numeric') THEN c.DATA_TYPE + '(' + CAST(c.NUMERIC_PRECISION AS varchar(10)) + ',' + CAST(c.NUMERIC_SCALE AS varchar(10)) + ')'
				ELSE c.DATA_TYPE
			END AS data_type,
			c.IS_NULLABLE AS is_nullable,
			c.COLUMN_DEFAULT AS column_default,
			c.ORDINAL_POSITION AS ordinal_position
		FROM INFORMATION_SCHEMA.COLUMNS c
		WHERE c.TABLE_SCHEMA = @p1
		ORDER BY c.TABLE_NAME, c.ORDINAL_POSITION`

	var columns []connector.ColumnRow
	if err := c.Select(ctx, &columns, query, c.Schema()); err != nil {
		return nil, fmt.Errorf("introspect columns: %w", err)
	}
	return connector.BuildCatalog(c.Source(c.DriverName()), tables, columns), nil
}

// IntrospectProcedures returns the stored procedures and functions of the
// configured schema. SQL Server parameter names keep their leading "@".
func (c *MSSQLConnector) IntrospectProcedures(ctx context.Context) (*model.ProcedureCatalog, error) {
	const routineQuery = `SELECT
			ROUTINE_NAME AS routine_name,
			ROUTINE_TYPE AS routine_type,
			DATA_TYPE AS data_type,
			ROUTINE_BODY AS routine_language,
			ROUTINE_DEFINITION AS routine_definition
		FROM INFORMATION_SCHEMA.ROUTINES
		WHERE ROUTINE_SCHEMA = @p1
		ORDER BY ROUTINE_NAME`

	var routines []connector.RoutineRow
	if err := c.Select(ctx, &routines, routineQuery, c.Schema()); err != nil {
		return nil, fmt.Errorf("introspect routines: %w", err)
	}

	const paramQuery = `SELECT
			SPECIFIC_NAME AS routine_name,
			PARAMETER_NAME AS parameter_name,
			DATA_TYPE AS data_type,
			PARAMETER_MODE AS parameter_mode,
			ORDINAL_POSITION AS ordinal_position
		FROM INFORMATION_SCHEMA.PARAMETERS
		WHERE SPECIFIC_SCHEMA = @p1 AND ORDINAL_POSITION > 0
		ORDER BY SPECIFIC_NAME, ORDINAL_POSITION`

	var params []connector.ParamRow
	if err := c.Select(ctx, &params, paramQuery, c.Schema()); err != nil {
		return nil, fmt.Errorf("introspect parameters: %w", err)
	}
	return connector.BuildProcedures(c.Source(c.DriverName()), routines, params), nil
}

// GetTableNames returns a list of all table names in the configured schema.
func (c *MSSQLConnector) GetTableNames(ctx context.Context) ([]string, error) {
	const query = `SELECT TABLE_NAME FROM INFORMATION_SCHEMA.TABLES
		WHERE TABLE_SCHEMA = @p1 AND TABLE_TYPE = 'BASE TABLE'
		ORDER BY TABLE_NAME`

	var names []string
	if err := c.Select(ctx, &names, query, c.Schema()); err != nil {
		return nil, fmt.Errorf("get table names: %w", err)
	}
	return names, nil
}

func (c *MSSQLConnector) fetchTables(ctx context.Context) ([]string, error) {
	const query = `SELECT TABLE_NAME
		FROM INFORMATION_SCHEMA.TABLES
		WHERE TABLE_SCHEMA = @p1 AND TABLE_TYPE IN ('BASE TABLE', 'VIEW')
		ORDER BY TABLE_NAME`

	var names []string
	if err := c.Select(ctx, &names, query, c.Schema()); err != nil {
		return nil, err
	}
	return names, nil
}
