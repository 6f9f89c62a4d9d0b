package config

import (
	"context"
	"fmt"
	"time"

	"github.com/faucetdb/driftguard/internal/model"
)

// serviceRow flattens model.ServiceConfig for the services table.
type serviceRow struct {
	ID                int64     `db:"id"`
	Name              string    `db:"name"`
	Label             string    `db:"label"`
	Driver            string    `db:"driver"`
	DSN               string    `db:"dsn"`
	PrivateKeyPath    string    `db:"private_key_path"`
	SchemaName        string    `db:"schema_name"`
	IsActive          bool      `db:"is_active"`
	MaxOpenConns      int       `db:"max_open_conns"`
	MaxIdleConns      int       `db:"max_idle_conns"`
	ConnMaxLifetimeMs int64     `db:"conn_max_lifetime_ms"`
	ConnMaxIdleTimeMs int64     `db:"conn_max_idle_time_ms"`
	CreatedAt         time.Time `db:"created_at"`
	UpdatedAt         time.Time `db:"updated_at"`
}

func newServiceRow(svc *model.ServiceConfig) serviceRow {
	return serviceRow{
		ID:                svc.ID,
		Name:              svc.Name,
		Label:             svc.Label,
		Driver:            svc.Driver,
		DSN:               svc.DSN,
		PrivateKeyPath:    svc.PrivateKeyPath,
		SchemaName:        svc.Schema,
		IsActive:          svc.IsActive,
		MaxOpenConns:      svc.Pool.MaxOpenConns,
		MaxIdleConns:      svc.Pool.MaxIdleConns,
		ConnMaxLifetimeMs: svc.Pool.ConnMaxLifetime.Milliseconds(),
		ConnMaxIdleTimeMs: svc.Pool.ConnMaxIdleTime.Milliseconds(),
		CreatedAt:         svc.CreatedAt,
		UpdatedAt:         svc.UpdatedAt,
	}
}

func (r serviceRow) service() model.ServiceConfig {
	return model.ServiceConfig{
		ID:             r.ID,
		Name:           r.Name,
		Label:          r.Label,
		Driver:         r.Driver,
		DSN:            r.DSN,
		PrivateKeyPath: r.PrivateKeyPath,
		Schema:         r.SchemaName,
		IsActive:       r.IsActive,
		Pool: model.PoolConfig{
			MaxOpenConns:    r.MaxOpenConns,
			MaxIdleConns:    r.MaxIdleConns,
			ConnMaxLifetime: time.Duration(r.ConnMaxLifetimeMs) * time.Millisecond,
			ConnMaxIdleTime: time.Duration(r.ConnMaxIdleTimeMs) * time.Millisecond,
		},
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

const insertService = `INSERT INTO services
	(name, label, driver, dsn, private_key_path, schema_name, is_active,
	 max_open_conns, max_idle_conns, conn_max_lifetime_ms, conn_max_idle_time_ms,
	 created_at, updated_at)
	VALUES
	(:name, :label, :driver, :dsn, :private_key_path, :schema_name, :is_active,
	 :max_open_conns, :max_idle_conns, :conn_max_lifetime_ms, :conn_max_idle_time_ms,
	 :created_at, :updated_at)`

// replaceService keeps the row id and creation time, and with them the
// cached snapshot, when a service is registered again.
const replaceService = insertService + `
	ON CONFLICT(name) DO UPDATE SET
		label = excluded.label, driver = excluded.driver, dsn = excluded.dsn,
		private_key_path = excluded.private_key_path, schema_name = excluded.schema_name,
		is_active = excluded.is_active, max_open_conns = excluded.max_open_conns,
		max_idle_conns = excluded.max_idle_conns,
		conn_max_lifetime_ms = excluded.conn_max_lifetime_ms,
		conn_max_idle_time_ms = excluded.conn_max_idle_time_ms,
		updated_at = excluded.updated_at`

// CreateService registers a new service and fills in its ID and timestamps.
// A taken name yields ErrConflict.
func (s *Store) CreateService(ctx context.Context, svc *model.ServiceConfig) error {
	return s.putService(ctx, svc, insertService)
}

// ReplaceService registers svc, overwriting the connection settings of an
// existing service with the same name.
func (s *Store) ReplaceService(ctx context.Context, svc *model.ServiceConfig) error {
	return s.putService(ctx, svc, replaceService)
}

func (s *Store) putService(ctx context.Context, svc *model.ServiceConfig, query string) error {
	now := time.Now().UTC()
	svc.CreatedAt, svc.UpdatedAt = now, now

	if _, err := s.db.NamedExecContext(ctx, query, newServiceRow(svc)); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("service %q: %w", svc.Name, ErrConflict)
		}
		return fmt.Errorf("save service: %w", err)
	}

	// Re-read so upserts report the surviving id and creation time.
	saved, err := s.GetServiceByName(ctx, svc.Name)
	if err != nil {
		return err
	}
	*svc = *saved
	return nil
}

// GetServiceByName returns a service by its unique name.
func (s *Store) GetServiceByName(ctx context.Context, name string) (*model.ServiceConfig, error) {
	var row serviceRow
	if err := s.db.GetContext(ctx, &row, "SELECT * FROM services WHERE name = ?", name); err != nil {
		return nil, lookupErr(err, "service "+name)
	}
	svc := row.service()
	return &svc, nil
}

// ListServices returns every registered service ordered by name.
func (s *Store) ListServices(ctx context.Context) ([]model.ServiceConfig, error) {
	var rows []serviceRow
	if err := s.db.SelectContext(ctx, &rows, "SELECT * FROM services ORDER BY name"); err != nil {
		return nil, fmt.Errorf("list services: %w", err)
	}
	services := make([]model.ServiceConfig, len(rows))
	for i, r := range rows {
		services[i] = r.service()
	}
	return services, nil
}

// DeleteServiceByName removes a service; its cached snapshot cascades.
func (s *Store) DeleteServiceByName(ctx context.Context, name string) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM services WHERE name = ?", name)
	if err != nil {
		return fmt.Errorf("delete service %q: %w", name, err)
	}
	return affected(result)
}
