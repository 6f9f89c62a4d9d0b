package config

import (
	"context"
	"fmt"
)

// migrations are applied in order; PRAGMA user_version records how many
// have run. Append only.
var migrations = []string{
	`CREATE TABLE services (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT UNIQUE NOT NULL,
		label TEXT NOT NULL DEFAULT '',
		driver TEXT NOT NULL,
		dsn TEXT NOT NULL,
		private_key_path TEXT NOT NULL DEFAULT '',
		schema_name TEXT NOT NULL DEFAULT '',
		is_active INTEGER NOT NULL DEFAULT 1,
		max_open_conns INTEGER NOT NULL DEFAULT 2,
		max_idle_conns INTEGER NOT NULL DEFAULT 1,
		conn_max_lifetime_ms INTEGER NOT NULL DEFAULT 300000,
		conn_max_idle_time_ms INTEGER NOT NULL DEFAULT 60000,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,

	`CREATE TABLE baselines (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		project TEXT NOT NULL,
		fingerprint TEXT NOT NULL,
		category TEXT NOT NULL,
		file TEXT NOT NULL,
		message TEXT NOT NULL,
		accepted_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(project, fingerprint)
	)`,

	`CREATE TABLE runs (
		id TEXT PRIMARY KEY,
		project TEXT NOT NULL,
		origin TEXT NOT NULL DEFAULT 'cli',
		status TEXT NOT NULL,
		errors INTEGER NOT NULL DEFAULT 0,
		warnings INTEGER NOT NULL DEFAULT 0,
		suppressed INTEGER NOT NULL DEFAULT 0,
		stats_json TEXT NOT NULL DEFAULT '{}',
		started_at DATETIME NOT NULL,
		duration_ms INTEGER NOT NULL DEFAULT 0
	)`,

	`CREATE INDEX idx_runs_project_started ON runs(project, started_at)`,

	`CREATE TABLE schema_snapshots (
		service_name TEXT PRIMARY KEY REFERENCES services(name) ON DELETE CASCADE,
		catalog_json TEXT NOT NULL,
		procedures_json TEXT NOT NULL DEFAULT '{}',
		captured_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
}

// migrate brings the schema up to date inside one transaction.
func (s *Store) migrate(ctx context.Context) error {
	var version int
	if err := s.db.GetContext(ctx, &version, "PRAGMA user_version"); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if version > len(migrations) {
		return fmt.Errorf("state database is at version %d, newer than this binary (%d)", version, len(migrations))
	}
	if version == len(migrations) {
		return nil
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck

	for i := version; i < len(migrations); i++ {
		if _, err := tx.ExecContext(ctx, migrations[i]); err != nil {
			return fmt.Errorf("migration %d: %w", i+1, err)
		}
	}
	// PRAGMA does not accept bound parameters.
	if _, err := tx.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", len(migrations))); err != nil {
		return fmt.Errorf("record schema version: %w", err)
	}
	return tx.Commit()
}
