package postgres

import (
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/faucetdb/driftguard/internal/connector"
)

// PostgresConnector reads tables and routines from one PostgreSQL schema
// through the pgx stdlib driver.
type PostgresConnector struct {
	connector.Session
}

func New() connector.Connector {
	return &PostgresConnector{}
}

// Connect opens the pool. The schema defaults to public.
func (c *PostgresConnector) Connect(cfg connector.ConnectionConfig) error {
	return c.Open("postgres", "pgx", cfg.DSN, cfg, "public")
}

func (c *PostgresConnector) DriverName() string { return "postgres" }

func (c *PostgresConnector) QuoteIdentifier(name string) string {
	return connector.Quote(name, '"', '"')
}
