package connector

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/faucetdb/driftguard/internal/model"
)

// ConnectionConfig holds everything a driver needs to open an introspection
// session.
type ConnectionConfig struct {
	Driver          string
	DSN             string
	SchemaName      string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	PrivateKeyPath  string // PEM key for Snowflake key-pair auth
}

// Connector reads one schema of a live database into the same catalog types
// the DDL parser produces. Connectors only ever run read queries against
// the system catalogs.
type Connector interface {
	Connect(cfg ConnectionConfig) error
	Disconnect() error
	Ping(ctx context.Context) error
	DB() *sqlx.DB

	IntrospectCatalog(ctx context.Context) (*model.Catalog, error)
	IntrospectProcedures(ctx context.Context) (*model.ProcedureCatalog, error)
	GetTableNames(ctx context.Context) ([]string, error)

	DriverName() string
	QuoteIdentifier(name string) string
}

// ConfigFromService converts a registered service into connection
// parameters, normalizing its DSN for the driver.
func ConfigFromService(svc model.ServiceConfig) ConnectionConfig {
	return ConnectionConfig{
		Driver:          svc.Driver,
		DSN:             NormalizeDSN(svc.Driver, svc.DSN),
		SchemaName:      svc.Schema,
		MaxOpenConns:    svc.Pool.MaxOpenConns,
		MaxIdleConns:    svc.Pool.MaxIdleConns,
		ConnMaxLifetime: svc.Pool.ConnMaxLifetime,
		ConnMaxIdleTime: svc.Pool.ConnMaxIdleTime,
		PrivateKeyPath:  svc.PrivateKeyPath,
	}
}
