package connector

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/faucetdb/driftguard/internal/model"
)

// introspectionConns caps the pool when a service sets no limit. Catalog
// reads run a handful of sequential queries, so more connections only cost
// the remote server.
const introspectionConns = 2

var errNotConnected = errors.New("not connected")

// Session holds the pool and target schema shared by every driver. Drivers
// embed it and add their own Connect, DriverName and QuoteIdentifier.
type Session struct {
	db     *sqlx.DB
	schema string
}

// Open connects through the database/sql driver registered as sqlDriver and
// applies the pool limits from cfg. An empty cfg.SchemaName selects fallback.
// Errors are prefixed with the connector's driver name.
func (s *Session) Open(driver, sqlDriver, dsn string, cfg ConnectionConfig, fallback string) error {
	db, err := sqlx.Connect(sqlDriver, dsn)
	if err != nil {
		return fmt.Errorf("%s connect: %w", driver, err)
	}

	maxOpen := cfg.MaxOpenConns
	if maxOpen <= 0 {
		maxOpen = introspectionConns
	}
	db.SetMaxOpenConns(maxOpen)
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(min(cfg.MaxIdleConns, maxOpen))
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}
	if cfg.ConnMaxIdleTime > 0 {
		db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)
	}

	s.db = db
	s.schema = fallback
	if cfg.SchemaName != "" {
		s.schema = cfg.SchemaName
	}
	return nil
}

// Disconnect closes the pool. Closing an unopened session is a no-op.
func (s *Session) Disconnect() error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func (s *Session) Ping(ctx context.Context) error {
	if s.db == nil {
		return errNotConnected
	}
	return s.db.PingContext(ctx)
}

// DB returns the pool, nil before Open.
func (s *Session) DB() *sqlx.DB { return s.db }

// Schema is the schema (or database, or owner) being introspected.
func (s *Session) Schema() string { return s.schema }

// SetSchema replaces the schema once a driver has resolved the server default.
func (s *Session) SetSchema(schema string) { s.schema = schema }

// Source is the location stamped on every live entity read by driver.
func (s *Session) Source(driver string) model.Location {
	return SourceLocation(driver, s.schema)
}

// Select runs an introspection query, failing cleanly when not connected.
func (s *Session) Select(ctx context.Context, dest interface{}, query string, args ...interface{}) error {
	if s.db == nil {
		return errNotConnected
	}
	return s.db.SelectContext(ctx, dest, query, args...)
}

// Quote wraps an identifier in left/right delimiters, doubling any embedded
// right delimiter.
func Quote(name string, left, right byte) string {
	r := string(right)
	return string(left) + strings.ReplaceAll(name, r, r+r) + r
}
