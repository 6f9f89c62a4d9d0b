package sqlite

import (
	_ "modernc.org/sqlite"

	"github.com/faucetdb/driftguard/internal/connector"
)

// SQLiteConnector reads tables from a SQLite file. The DSN is a path,
// optionally with modernc query parameters; the schema is an attached
// database name and defaults to main.
type SQLiteConnector struct {
	connector.Session
}

func New() connector.Connector {
	return &SQLiteConnector{}
}

func (c *SQLiteConnector) Connect(cfg connector.ConnectionConfig) error {
	return c.Open("sqlite", "sqlite", cfg.DSN, cfg, "main")
}

func (c *SQLiteConnector) DriverName() string { return "sqlite" }

func (c *SQLiteConnector) QuoteIdentifier(name string) string {
	return connector.Quote(name, '"', '"')
}
