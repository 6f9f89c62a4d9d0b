package sqlite

import (
	"context"
	"fmt"

	"github.com/faucetdb/driftguard/internal/connector"
	"github.com/faucetdb/driftguard/internal/model"
)

// tableInfoRow holds a row from PRAGMA table_info().
type tableInfoRow struct {
	CID     int     `db:"cid"`
	Name    string  `db:"name"`
	Type    string  `db:"type"`
	NotNull int     `db:"notnull"`
	Default *string `db:"dflt_value"`
	PK      int     `db:"pk"`
}

// IntrospectCatalog returns the tables and views of the database. Primary
// key columns are reported as not nullable.
func (c *SQLiteConnector) IntrospectCatalog(ctx context.Context) (*model.Catalog, error) {
	const query = `SELECT name FROM sqlite_master
		WHERE type IN ('table', 'view') AND name NOT LIKE 'sqlite_%'
		ORDER BY name`

	var tables []string
	if err := c.Select(ctx, &tables, query); err != nil {
		return nil, fmt.Errorf("introspect tables: %w", err)
	}

	var columns []connector.ColumnRow
	for _, table := range tables {
		var rows []tableInfoRow
		pragma := fmt.Sprintf("PRAGMA %s.table_info(%s)", c.QuoteIdentifier(c.Schema()), c.QuoteIdentifier(table))
		if err := c.Select(ctx, &rows, pragma); err != nil {
			return nil, fmt.Errorf("introspect columns of %q: %w", table, err)
		}
		for _, r := range rows {
			nullable := "YES"
			if r.NotNull == 1 || r.PK > 0 {
				nullable = "NO"
			}
			columns = append(columns, connector.ColumnRow{
				TableName:  table,
				ColumnName: r.Name,
				DataType:   r.Type,
				IsNullable: nullable,
				Default:    r.Default,
				Position:   r.CID + 1,
			})
		}
	}
	return connector.BuildCatalog(c.Source(c.DriverName()), tables, columns), nil
}

// IntrospectProcedures returns an empty catalog: SQLite has no stored
// procedures.
func (c *SQLiteConnector) IntrospectProcedures(_ context.Context) (*model.ProcedureCatalog, error) {
	return model.NewProcedureCatalog(), nil
}

// GetTableNames returns a list of all table names in the database.
func (c *SQLiteConnector) GetTableNames(ctx context.Context) ([]string, error) {
	const query = `SELECT name FROM sqlite_master
		WHERE type = 'table' AND name NOT LIKE 'sqlite_%'
		ORDER BY name`

	var names []string
	if err := c.Select(ctx, &names, query); err != nil {
		return nil, fmt.Errorf("get table names: %w", err)
	}
	return names, nil
}
