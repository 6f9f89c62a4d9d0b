package config

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/faucetdb/driftguard/internal/model"
)

// RunRecord is the persisted summary of a validation run.
type RunRecord struct {
	ID         string         `json:"id" db:"id"`
	Project    string         `json:"project" db:"project"`
	Origin     string         `json:"origin" db:"origin"` // cli, api, mcp
	Status     model.Status   `json:"status" db:"status"`
	Errors     int            `json:"errors" db:"errors"`
	Warnings   int            `json:"warnings" db:"warnings"`
	Suppressed int            `json:"suppressed" db:"suppressed"`
	Stats      model.RunStats `json:"stats"`
	StatsJSON  string         `json:"-" db:"stats_json"`
	StartedAt  time.Time      `json:"started_at" db:"started_at"`
	DurationMs int64          `json:"duration_ms" db:"duration_ms"`
}

// NewRunRecord summarizes report for storage.
func NewRunRecord(project, origin string, report *model.Report) RunRecord {
	return RunRecord{
		ID:         report.RunID,
		Project:    project,
		Origin:     origin,
		Status:     report.Status,
		Errors:     report.Count(model.SeverityError),
		Warnings:   report.Count(model.SeverityWarning),
		Suppressed: report.Suppressed,
		Stats:      report.Stats,
		StartedAt:  report.StartedAt,
		DurationMs: report.Duration.Milliseconds(),
	}
}

// RecordRun stores a run summary.
func (s *Store) RecordRun(ctx context.Context, run *RunRecord) error {
	statsJSON, err := json.Marshal(run.Stats)
	if err != nil {
		return fmt.Errorf("marshal run stats: %w", err)
	}
	run.StatsJSON = string(statsJSON)

	const q = `INSERT INTO runs
		(id, project, origin, status, errors, warnings, suppressed, stats_json, started_at, duration_ms)
		VALUES
		(:id, :project, :origin, :status, :errors, :warnings, :suppressed, :stats_json, :started_at, :duration_ms)`
	if _, err := s.db.NamedExecContext(ctx, q, run); err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// GetRun returns a run by ID.
func (s *Store) GetRun(ctx context.Context, id string) (*RunRecord, error) {
	var run RunRecord
	if err := s.db.GetContext(ctx, &run, "SELECT * FROM runs WHERE id = ?", id); err != nil {
		return nil, lookupErr(err, "run")
	}
	if err := json.Unmarshal([]byte(run.StatsJSON), &run.Stats); err != nil {
		return nil, fmt.Errorf("unmarshal run stats: %w", err)
	}
	return &run, nil
}

// ListRuns returns the most recent runs of a project, newest first. An empty
// project lists every project. A limit of zero or less means 50.
func (s *Store) ListRuns(ctx context.Context, project string, limit int) ([]RunRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	var runs []RunRecord
	var err error
	if project == "" {
		err = s.db.SelectContext(ctx, &runs, "SELECT * FROM runs ORDER BY started_at DESC, id DESC LIMIT ?", limit)
	} else {
		err = s.db.SelectContext(ctx, &runs,
			"SELECT * FROM runs WHERE project = ? ORDER BY started_at DESC, id DESC LIMIT ?", project, limit)
	}
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	for i := range runs {
		if err := json.Unmarshal([]byte(runs[i].StatsJSON), &runs[i].Stats); err != nil {
			return nil, fmt.Errorf("unmarshal stats of run %s: %w", runs[i].ID, err)
		}
	}
	return runs, nil
}
