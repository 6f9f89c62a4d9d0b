package config

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/faucetdb/driftguard/internal/model"
)

// Snapshot is an introspected catalog cached for a service.
type Snapshot struct {
	ServiceName    string                  `json:"service_name" db:"service_name"`
	Catalog        *model.Catalog          `json:"catalog"`
	Procedures     *model.ProcedureCatalog `json:"procedures"`
	CatalogJSON    string                  `json:"-" db:"catalog_json"`
	ProceduresJSON string                  `json:"-" db:"procedures_json"`
	CapturedAt     time.Time               `json:"captured_at" db:"captured_at"`
}

// SaveSnapshot creates or replaces the cached catalog of a service.
func (s *Store) SaveSnapshot(ctx context.Context, serviceName string, cat *model.Catalog, procs *model.ProcedureCatalog) (*Snapshot, error) {
	if cat == nil {
		cat = model.NewCatalog()
	}
	if procs == nil {
		procs = model.NewProcedureCatalog()
	}
	catalogJSON, err := json.Marshal(cat)
	if err != nil {
		return nil, fmt.Errorf("marshal catalog: %w", err)
	}
	procsJSON, err := json.Marshal(procs)
	if err != nil {
		return nil, fmt.Errorf("marshal procedures: %w", err)
	}

	now := time.Now().UTC()
	const q = `INSERT INTO schema_snapshots (service_name, catalog_json, procedures_json, captured_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(service_name) DO UPDATE SET
			catalog_json = excluded.catalog_json,
			procedures_json = excluded.procedures_json,
			captured_at = excluded.captured_at`
	if _, err := s.db.ExecContext(ctx, q, serviceName, string(catalogJSON), string(procsJSON), now); err != nil {
		return nil, fmt.Errorf("save snapshot: %w", err)
	}
	return &Snapshot{
		ServiceName:    serviceName,
		Catalog:        cat,
		Procedures:     procs,
		CatalogJSON:    string(catalogJSON),
		ProceduresJSON: string(procsJSON),
		CapturedAt:     now,
	}, nil
}

// GetSnapshot returns the cached catalog of a service.
func (s *Store) GetSnapshot(ctx context.Context, serviceName string) (*Snapshot, error) {
	var snap Snapshot
	const q = `SELECT service_name, catalog_json, procedures_json, captured_at
		FROM schema_snapshots WHERE service_name = ?`
	if err := s.db.GetContext(ctx, &snap, q, serviceName); err != nil {
		return nil, lookupErr(err, "snapshot")
	}
	snap.Catalog = model.NewCatalog()
	if err := json.Unmarshal([]byte(snap.CatalogJSON), snap.Catalog); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot catalog: %w", err)
	}
	snap.Procedures = model.NewProcedureCatalog()
	if err := json.Unmarshal([]byte(snap.ProceduresJSON), snap.Procedures); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot procedures: %w", err)
	}
	return &snap, nil
}
