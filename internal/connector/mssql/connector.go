package mssql

import (
	_ "github.com/microsoft/go-mssqldb"

	"github.com/faucetdb/driftguard/internal/connector"
)

// MSSQLConnector reads tables and procedures from one SQL Server schema.
type MSSQLConnector struct {
	connector.Session
}

func New() connector.Connector {
	return &MSSQLConnector{}
}

// Connect opens the pool with a sqlserver:// DSN. The schema defaults to dbo.
func (c *MSSQLConnector) Connect(cfg connector.ConnectionConfig) error {
	return c.Open("mssql", "sqlserver", cfg.DSN, cfg, "dbo")
}

func (c *MSSQLConnector) DriverName() string { return "mssql" }

// QuoteIdentifier uses T-SQL brackets.
func (c *MSSQLConnector) QuoteIdentifier(name string) string {
	return connector.Quote(name, '[', ']')
}
