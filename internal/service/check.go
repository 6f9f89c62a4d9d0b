package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/afero"

	"github.com/faucetdb/driftguard/internal/baseline"
	"github.com/faucetdb/driftguard/internal/config"
	"github.com/faucetdb/driftguard/internal/connector"
	"github.com/faucetdb/driftguard/internal/engine"
	"github.com/faucetdb/driftguard/internal/model"
	"github.com/faucetdb/driftguard/internal/naming"
	"github.com/faucetdb/driftguard/internal/similarity"
)

// Run origins recorded in the run history.
const (
	OriginCLI = "cli"
	OriginAPI = "api"
	OriginMCP = "mcp"
)

// ErrUnknownService is returned, wrapped with the name, when a check names a
// service that is not registered.
var ErrUnknownService = errors.New("unknown service")

// CheckRequest names the inputs of one run. When it names no paths and no
// service, the configured inputs are used.
type CheckRequest struct {
	Schema     []string `json:"schema,omitempty"`
	Procedures []string `json:"procedures,omitempty"`
	Handlers   []string `json:"handlers,omitempty"`
	Routes     []string `json:"routes,omitempty"`
	// Service selects a registered database as the schema source.
	Service string `json:"service,omitempty"`
	// Refresh re-introspects the service instead of using its cached snapshot.
	Refresh bool `json:"refresh,omitempty"`
	// Baseline suppresses accepted diagnostics.
	Baseline bool `json:"baseline,omitempty"`
}

func (r CheckRequest) empty() bool {
	return len(r.Schema) == 0 && len(r.Procedures) == 0 && len(r.Handlers) == 0 &&
		len(r.Routes) == 0 && r.Service == ""
}

// CheckResult is a report plus the baseline entries the run no longer
// produces.
type CheckResult struct {
	Report   *model.Report    `json:"report"`
	Resolved []baseline.Entry `json:"resolved,omitempty"`
}

// CheckService runs checks for every front end. It records each run and
// caches introspected catalogs in the store.
type CheckService struct {
	cfg      *config.YAMLConfig
	engine   *engine.Engine
	store    *config.Store
	registry *connector.Registry
	logger   *slog.Logger
}

// NewCheckService builds the engine for cfg reading inputs from fsys.
func NewCheckService(cfg *config.YAMLConfig, fsys afero.Fs, store *config.Store, registry *connector.Registry, logger *slog.Logger) (*CheckService, error) {
	if logger == nil {
		logger = slog.Default()
	}
	eng, err := engine.New(fsys, cfg.EngineOptions(), logger)
	if err != nil {
		return nil, fmt.Errorf("build engine: %w", err)
	}
	return &CheckService{
		cfg:      cfg,
		engine:   eng,
		store:    store,
		registry: registry,
		logger:   logger,
	}, nil
}

// Project is the project runs and baselines are stored under.
func (s *CheckService) Project() string { return s.cfg.Store.Project }

// Check validates the inputs of req and records the run under origin.
func (s *CheckService) Check(ctx context.Context, req CheckRequest, origin string) (*CheckResult, error) {
	in, err := s.inputs(ctx, req)
	if err != nil {
		return nil, err
	}

	report, err := s.engine.Run(ctx, in)
	if err != nil {
		return nil, err
	}

	result := &CheckResult{Report: report}
	if req.Baseline {
		accepted, err := s.store.ListBaseline(ctx, s.Project())
		if err != nil {
			return nil, err
		}
		res := baseline.Apply(report, accepted)
		result.Resolved = res.Resolved
		s.logger.Debug("baseline applied", "suppressed", res.Suppressed, "resolved", len(res.Resolved))
	}

	run := config.NewRunRecord(s.Project(), origin, report)
	if err := s.store.RecordRun(ctx, &run); err != nil {
		s.logger.Warn("failed to record run", "run_id", report.RunID, "error", err)
	}
	return result, nil
}

// Catalogs builds the schema and procedure catalogs named by req. Handler
// and route inputs are ignored.
func (s *CheckService) Catalogs(ctx context.Context, req CheckRequest) (*model.Catalog, *model.ProcedureCatalog, []model.Diagnostic, error) {
	in, err := s.inputs(ctx, req)
	if err != nil {
		return nil, nil, nil, err
	}
	in.Handlers, in.Routes = nil, nil
	return s.engine.Catalogs(ctx, in)
}

// inputs resolves req against the configured defaults and the live schema.
func (s *CheckService) inputs(ctx context.Context, req CheckRequest) (engine.Inputs, error) {
	if req.empty() {
		defaults := s.cfg.EngineInputs()
		req.Schema = defaults.Schema
		req.Procedures = defaults.Procedures
		req.Handlers = defaults.Handlers
		req.Routes = defaults.Routes
		req.Service = s.cfg.Inputs.Service
	}

	in := engine.Inputs{
		Schema:     req.Schema,
		Procedures: req.Procedures,
		Handlers:   req.Handlers,
		Routes:     req.Routes,
	}
	if req.Service != "" {
		cat, procs, err := s.LiveCatalog(ctx, req.Service, req.Refresh)
		if err != nil {
			return engine.Inputs{}, err
		}
		in.Schema = nil
		in.Catalog = cat
		in.ProcedureCatalog = procs
	}
	return in, nil
}

// LiveCatalog returns the catalog of a registered service from its cached
// snapshot, introspecting the database when there is none or refresh is set.
func (s *CheckService) LiveCatalog(ctx context.Context, name string, refresh bool) (*model.Catalog, *model.ProcedureCatalog, error) {
	if !refresh {
		snap, err := s.store.GetSnapshot(ctx, name)
		if err == nil {
			s.logger.Debug("using cached snapshot", "service", name, "captured_at", snap.CapturedAt)
			return snap.Catalog, snap.Procedures, nil
		}
		if !errors.Is(err, config.ErrNotFound) {
			return nil, nil, err
		}
	}

	svc, err := s.store.GetServiceByName(ctx, name)
	if err != nil {
		if errors.Is(err, config.ErrNotFound) {
			return nil, nil, fmt.Errorf("%w: %s", ErrUnknownService, name)
		}
		return nil, nil, err
	}
	if !svc.IsActive {
		return nil, nil, fmt.Errorf("service %q is disabled", name)
	}

	start := time.Now()
	cat, procs, err := s.registry.Introspect(ctx, *svc)
	if err != nil {
		return nil, nil, err
	}
	if _, err := s.store.SaveSnapshot(ctx, name, cat, procs); err != nil {
		return nil, nil, err
	}
	s.logger.Info("introspected service", "service", name, "driver", svc.Driver,
		"tables", cat.Len(), "procedures", procs.Len(), "duration", time.Since(start))
	return cat, procs, nil
}

// AcceptBaseline stores the diagnostics of report as accepted and returns the
// number of new entries.
func (s *CheckService) AcceptBaseline(ctx context.Context, report *model.Report) (int, error) {
	entries := baseline.FromDiagnostics(s.Project(), report.Diagnostics, time.Now())
	return s.store.SaveBaseline(ctx, s.Project(), entries)
}

// Suggest ranks candidates by similarity to name. Zero threshold and limit
// select the configured values.
func (s *CheckService) Suggest(name string, candidates []string, threshold float64, limit int) []similarity.Match {
	if threshold <= 0 {
		threshold = s.cfg.Matching.Threshold
	}
	if limit <= 0 {
		limit = s.cfg.Matching.MaxSuggestions
	}
	matches := similarity.Suggest(name, candidates, threshold, limit)
	if matches == nil {
		matches = []similarity.Match{}
	}
	return matches
}

// Rules returns the naming rule table in effect.
func (s *CheckService) Rules() naming.Rules { return s.engine.Rules() }

// Runs lists the most recent runs of the project.
func (s *CheckService) Runs(ctx context.Context, limit int) ([]config.RunRecord, error) {
	return s.store.ListRuns(ctx, s.Project(), limit)
}
