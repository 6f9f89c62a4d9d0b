// Package baseline records accepted diagnostics so later runs report only what
// is new, and compares declared schemas against live snapshots.
package baseline

import (
	"time"

	"github.com/faucetdb/driftguard/internal/model"
)

// Entry is one accepted diagnostic.
type Entry struct {
	ID          int64          `json:"id" db:"id"`
	Project     string         `json:"project" db:"project"`
	Fingerprint string         `json:"fingerprint" db:"fingerprint"`
	Category    model.Category `json:"category" db:"category"`
	File        string         `json:"file" db:"file"`
	Message     string         `json:"message" db:"message"`
	AcceptedAt  time.Time      `json:"accepted_at" db:"accepted_at"`
}

// Result is a report filtered through a baseline.
type Result struct {
	// Diagnostics holds the diagnostics the baseline does not cover.
	Diagnostics []model.Diagnostic `json:"diagnostics"`
	Suppressed  int                `json:"suppressed"`
	// Resolved lists accepted entries no longer produced by the run.
	Resolved []Entry `json:"resolved"`
}

// ChangeType classifies a difference between a declared and a live schema.
type ChangeType string

const (
	// ChangeAdditive means the live database has something the schema files lack.
	ChangeAdditive ChangeType = "additive"
	// ChangeBreaking means the schema files declare something the live database
	// does not match.
	ChangeBreaking ChangeType = "breaking"
)

// Change describes one difference between two catalogs.
type Change struct {
	Type        ChangeType `json:"type"`
	Category    string     `json:"category"` // table_added, table_removed, column_added, column_removed, type_changed, nullable_changed
	TableName   string     `json:"table_name"`
	ColumnName  string     `json:"column_name,omitempty"`
	OldValue    string     `json:"old_value,omitempty"`
	NewValue    string     `json:"new_value,omitempty"`
	Description string     `json:"description"`
}

// SchemaDiff summarizes the differences between two catalogs.
type SchemaDiff struct {
	HasDrift      bool      `json:"has_drift"`
	HasBreaking   bool      `json:"has_breaking"`
	AdditiveCount int       `json:"additive_count"`
	BreakingCount int       `json:"breaking_count"`
	Changes       []Change  `json:"changes"`
	CheckedAt     time.Time `json:"checked_at"`
}
