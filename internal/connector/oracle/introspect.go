package oracle

import (
	"context"
	"fmt"

	"github.com/faucetdb/driftguard/internal/connector"
	"github.com/faucetdb/driftguard/internal/model"
)

// IntrospectCatalog returns the tables and views owned by the schema.
// Column defaults are not read: DATA_DEFAULT is a LONG column.
func (c *OracleConnector) IntrospectCatalog(ctx context.Context) (*model.Catalog, error) {
	owner, err := c.owner(ctx)
	if err != nil {
		return nil, err
	}

	const tableQuery = `SELECT TABLE_NAME FROM ALL_TABLES WHERE OWNER = :1
		UNION ALL
		SELECT VIEW_NAME FROM ALL_VIEWS WHERE OWNER = :1`

	var tables []string
	if err := c.Select(ctx, &tables, tableQuery, owner); err != nil {
		return nil, fmt.Errorf("introspect tables: %w", err)
	}

	const columnQuery = `SELECT
			TABLE_NAME AS "table_name",
			COLUMN_NAME AS "column_name",
			CASE
				WHEN DATA_TYPE IN ('VARCHAR2', 'NVARCHAR2', 'CHAR', 'NCHAR') THEN DATA_TYPE || '(' || CHAR_LENGTH || ')'
				WHEN DATA_TYPE = 'NUMBER' AND DATA_PRECISION IS NOT NULL THEN DATA_TYPE || '(' || DATA_PRECISION || ',' || NVL(DATA_SCALE, 0) || ')'
				ELSE DATA_TYPE
			END AS "data_type",
			NULLABLE AS "is_nullable",
			COLUMN_ID AS "ordinal_position"
		FROM ALL_TAB_COLUMNS
		WHERE OWNER = :1
		ORDER BY TABLE_NAME, COLUMN_ID`

	var columns []connector.ColumnRow
	if err := c.Select(ctx, &columns, columnQuery, owner); err != nil {
		return nil, fmt.Errorf("introspect columns: %w", err)
	}
	return connector.BuildCatalog(connector.SourceLocation("oracle", owner), tables, columns), nil
}

// IntrospectProcedures returns standalone procedures and functions of the
// schema. Package members are not listed.
func (c *OracleConnector) IntrospectProcedures(ctx context.Context) (*model.ProcedureCatalog, error) {
	owner, err := c.owner(ctx)
	if err != nil {
		return nil, err
	}

	const routineQuery = `SELECT
			p.OBJECT_NAME AS "routine_name",
			p.OBJECT_TYPE AS "routine_type",
			(SELECT a.DATA_TYPE FROM ALL_ARGUMENTS a
				WHERE a.OWNER = p.OWNER AND a.OBJECT_NAME = p.OBJECT_NAME
				AND a.PACKAGE_NAME IS NULL AND a.POSITION = 0 AND ROWNUM = 1) AS "data_type",
			'plsql' AS "routine_language"
		FROM ALL_PROCEDURES p
		WHERE p.OWNER = :1 AND p.OBJECT_TYPE IN ('PROCEDURE', 'FUNCTION')
		ORDER BY p.OBJECT_NAME`

	var routines []connector.RoutineRow
	if err := c.Select(ctx, &routines, routineQuery, owner); err != nil {
		return nil, fmt.Errorf("introspect routines: %w", err)
	}

	const paramQuery = `SELECT
			OBJECT_NAME AS "routine_name",
			ARGUMENT_NAME AS "parameter_name",
			DATA_TYPE AS "data_type",
			IN_OUT AS "parameter_mode",
			POSITION AS "ordinal_position"
		FROM ALL_ARGUMENTS
		WHERE OWNER = :1 AND PACKAGE_NAME IS NULL AND POSITION > 0 AND DATA_LEVEL = 0
		ORDER BY OBJECT_NAME, POSITION`

	var params []connector.ParamRow
	if err := c.Select(ctx, &params, paramQuery, owner); err != nil {
		return nil, fmt.Errorf("introspect parameters: %w", err)
	}
	return connector.BuildProcedures(connector.SourceLocation("oracle", owner), routines, params), nil
}

// GetTableNames returns a list of all table names owned by the schema.
func (c *OracleConnector) GetTableNames(ctx context.Context) ([]string, error) {
	owner, err := c.owner(ctx)
	if err != nil {
		return nil, err
	}

	var names []string
	if err := c.Select(ctx, &names, `SELECT TABLE_NAME FROM ALL_TABLES WHERE OWNER = :1 ORDER BY TABLE_NAME`, owner); err != nil {
		return nil, fmt.Errorf("get table names: %w", err)
	}
	return names, nil
}
