package config

import (
	"context"
	"fmt"

	"github.com/faucetdb/driftguard/internal/baseline"
)

// SaveBaseline adds entries to a project's baseline. Entries already accepted
// keep their original acceptance time. It returns the number of new entries.
func (s *Store) SaveBaseline(ctx context.Context, project string, entries []baseline.Entry) (int, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	const q = `INSERT INTO baselines (project, fingerprint, category, file, message, accepted_at)
		VALUES (:project, :fingerprint, :category, :file, :message, :accepted_at)
		ON CONFLICT(project, fingerprint) DO NOTHING`

	added := 0
	for _, e := range entries {
		e.Project = project
		result, err := tx.NamedExecContext(ctx, q, e)
		if err != nil {
			return 0, fmt.Errorf("insert baseline entry: %w", err)
		}
		n, _ := result.RowsAffected()
		added += int(n)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit baseline: %w", err)
	}
	return added, nil
}

// ListBaseline returns the accepted entries of a project ordered by file.
func (s *Store) ListBaseline(ctx context.Context, project string) ([]baseline.Entry, error) {
	var entries []baseline.Entry
	const q = `SELECT id, project, fingerprint, category, file, message, accepted_at
		FROM baselines WHERE project = ? ORDER BY file, fingerprint`
	if err := s.db.SelectContext(ctx, &entries, q, project); err != nil {
		return nil, fmt.Errorf("list baseline: %w", err)
	}
	return entries, nil
}

// ClearBaseline removes every accepted entry of a project.
func (s *Store) ClearBaseline(ctx context.Context, project string) (int64, error) {
	result, err := s.db.ExecContext(ctx, "DELETE FROM baselines WHERE project = ?", project)
	if err != nil {
		return 0, fmt.Errorf("clear baseline: %w", err)
	}
	n, _ := result.RowsAffected()
	return n, nil
}

// DeleteBaselineEntry removes a single accepted entry.
func (s *Store) DeleteBaselineEntry(ctx context.Context, project, fingerprint string) error {
	result, err := s.db.ExecContext(ctx,
		"DELETE FROM baselines WHERE project = ? AND fingerprint = ?", project, fingerprint)
	if err != nil {
		return fmt.Errorf("delete baseline entry: %w", err)
	}
	return affected(result)
}
