package mysql

import (
	"context"
	"time"

	_ "github.com/go-sql-driver/mysql"

	"github.com/faucetdb/driftguard/internal/connector"
)

// MySQLConnector reads tables and routines from one MySQL database. MySQL
// has no schemas below the database, so the database name is the schema.
type MySQLConnector struct {
	connector.Session
}

func New() connector.Connector {
	return &MySQLConnector{}
}

// Connect opens the pool. Without a configured schema the DSN's default
// database is introspected.
func (c *MySQLConnector) Connect(cfg connector.ConnectionConfig) error {
	if err := c.Open("mysql", "mysql", cfg.DSN, cfg, ""); err != nil {
		return err
	}
	if c.Schema() != "" {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	var dbName string
	if err := c.DB().GetContext(ctx, &dbName, "SELECT DATABASE()"); err == nil && dbName != "" {
		c.SetSchema(dbName)
	}
	return nil
}

func (c *MySQLConnector) DriverName() string { return "mysql" }

func (c *MySQLConnector) QuoteIdentifier(name string) string {
	return connector.Quote(name, '`', '`')
}
