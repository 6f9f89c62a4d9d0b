package snowflake

import (
	_ "github.com/snowflakedb/gosnowflake"

	"github.com/faucetdb/driftguard/internal/connector"
)

// SnowflakeConnector reads tables and routines from one Snowflake schema.
// Unquoted Snowflake identifiers fold to upper case, so the default schema
// is PUBLIC.
type SnowflakeConnector struct {
	connector.Session
}

func New() connector.Connector {
	return &SnowflakeConnector{}
}

// Connect opens the pool. With cfg.PrivateKeyPath set, the password in the
// DSN is replaced by key-pair (JWT) authentication.
func (c *SnowflakeConnector) Connect(cfg connector.ConnectionConfig) error {
	dsn := cfg.DSN
	if cfg.PrivateKeyPath != "" {
		var err error
		if dsn, err = keyPairDSN(cfg.DSN, cfg.PrivateKeyPath); err != nil {
			return err
		}
	}
	return c.Open("snowflake", "snowflake", dsn, cfg, "PUBLIC")
}

func (c *SnowflakeConnector) DriverName() string { return "snowflake" }

// QuoteIdentifier quotes name; quoted Snowflake identifiers are case-sensitive.
func (c *SnowflakeConnector) QuoteIdentifier(name string) string {
	return connector.Quote(name, '"', '"')
}
