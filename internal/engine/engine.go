// Package engine runs one validation: it discovers the input files, builds
// the catalogs, extracts call sites and key usage from handlers, loads routes
// and hands everything to the consistency checker.
package engine

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/afero"

	"github.com/faucetdb/driftguard/internal/callsite"
	"github.com/faucetdb/driftguard/internal/catalog"
	"github.com/faucetdb/driftguard/internal/checker"
	"github.com/faucetdb/driftguard/internal/model"
	"github.com/faucetdb/driftguard/internal/naming"
	"github.com/faucetdb/driftguard/internal/source"
)

var (
	// ErrNoInputs is returned when a run names no inputs or discovers no files.
	ErrNoInputs = errors.New("no input files")
	// ErrPathNotFound is returned, wrapped with the path, for a missing input.
	ErrPathNotFound = errors.New("input path not found")
)

// Inputs names what one run validates. Paths may be files or directories.
type Inputs struct {
	Schema     []string `json:"schema,omitempty"`
	Procedures []string `json:"procedures,omitempty"`
	Handlers   []string `json:"handlers,omitempty"`
	Routes     []string `json:"routes,omitempty"`

	// Catalog, when set, is used instead of parsing Schema, e.g. a catalog
	// introspected from a live database.
	Catalog *model.Catalog `json:"-"`
	// ProcedureCatalog, when set and Procedures is empty, enables the
	// procedure checks against an introspected catalog.
	ProcedureCatalog *model.ProcedureCatalog `json:"-"`
}

func (in Inputs) empty() bool {
	return len(in.Schema) == 0 && len(in.Procedures) == 0 && len(in.Handlers) == 0 &&
		len(in.Routes) == 0 && in.Catalog == nil
}

// Files is the discovered file set of a run.
type Files struct {
	Schema     []string `json:"schema"`
	Procedures []string `json:"procedures"`
	Handlers   []string `json:"handlers"`
	Routes     []string `json:"routes"`
}

// Len returns the number of distinct files.
func (f Files) Len() int {
	all := make([]string, 0, len(f.Schema)+len(f.Procedures)+len(f.Handlers)+len(f.Routes))
	all = append(all, f.Schema...)
	all = append(all, f.Procedures...)
	all = append(all, f.Handlers...)
	all = append(all, f.Routes...)
	return len(source.SortedUnique(all))
}

// Options configures an Engine.
type Options struct {
	// Schemas lists the retained schema qualifiers. Defaults to "public".
	Schemas     []string
	Concurrency int
	Vocabulary  callsite.Vocabulary
	Rules       naming.Rules
	// Threshold and MaxSuggestions tune similarity suggestions; zero values
	// select the defaults.
	Threshold      float64
	MaxSuggestions int
}

// DefaultOptions returns the default vocabulary and naming rules.
func DefaultOptions() Options {
	return Options{
		Concurrency: source.DefaultConcurrency,
		Vocabulary:  callsite.DefaultVocabulary(),
		Rules:       naming.DefaultRules(),
	}
}

// Engine runs validations. It holds no per-run state; concurrent runs are
// independent.
type Engine struct {
	fs        afero.Fs
	opts      Options
	extractor *callsite.Extractor
	checker   *checker.Checker
	logger    *slog.Logger
	now       func() time.Time
}

// New returns an Engine reading inputs from fsys.
func New(fsys afero.Fs, opts Options, logger *slog.Logger) (*Engine, error) {
	if logger == nil {
		logger = slog.Default()
	}
	ex, err := callsite.New(opts.Vocabulary, logger)
	if err != nil {
		return nil, err
	}
	chk := checker.New(opts.Rules, logger)
	if opts.Threshold > 0 {
		chk.Threshold = opts.Threshold
	}
	if opts.MaxSuggestions > 0 {
		chk.MaxSuggestions = opts.MaxSuggestions
	}
	chk.CatalogOptions = catalog.Options{Schemas: opts.Schemas}
	return &Engine{
		fs:        fsys,
		opts:      opts,
		extractor: ex,
		checker:   chk,
		logger:    logger,
		now:       time.Now,
	}, nil
}

func (e *Engine) catalogOptions() catalog.Options {
	return catalog.Options{Schemas: e.opts.Schemas, Concurrency: e.opts.Concurrency, Logger: e.logger}
}

// Discover expands the input paths into files. A missing path yields
// ErrPathNotFound; no inputs at all yields ErrNoInputs.
func (e *Engine) Discover(in Inputs) (Files, error) {
	if in.empty() {
		return Files{}, ErrNoInputs
	}
	var files Files
	var err error
	if in.Catalog == nil {
		if files.Schema, err = e.discover(in.Schema, source.KindSchema); err != nil {
			return Files{}, err
		}
	}
	if files.Procedures, err = e.discover(in.Procedures, source.KindProcedure); err != nil {
		return Files{}, err
	}
	if files.Handlers, err = e.discover(in.Handlers, source.KindHandler); err != nil {
		return Files{}, err
	}
	if files.Routes, err = e.discover(in.Routes, source.KindRoute); err != nil {
		return Files{}, err
	}
	if files.Len() == 0 && in.Catalog == nil {
		return Files{}, ErrNoInputs
	}
	return files, nil
}

func (e *Engine) discover(paths []string, kind source.Kind) ([]string, error) {
	var out []string
	for _, p := range paths {
		found, err := source.Discover(e.fs, []string{p}, kind)
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrPathNotFound, p)
		}
		if err != nil {
			return nil, fmt.Errorf("discover %s files: %w", kind, err)
		}
		out = append(out, found...)
	}
	return source.SortedUnique(out), nil
}

// Run validates in and returns the report. Parse failures become warnings;
// only configuration errors and cancellation fail the run.
func (e *Engine) Run(ctx context.Context, in Inputs) (*model.Report, error) {
	started := e.now()
	files, err := e.Discover(in)
	if err != nil {
		return nil, err
	}
	e.logger.Debug("inputs discovered",
		"schema", len(files.Schema), "procedures", len(files.Procedures),
		"handlers", len(files.Handlers), "routes", len(files.Routes))

	var diags []model.Diagnostic
	stats := model.RunStats{
		FilesScanned:   files.Len(),
		SchemaFiles:    len(files.Schema),
		ProcedureFiles: len(files.Procedures),
		HandlerFiles:   len(files.Handlers),
		RouteFiles:     len(files.Routes),
	}

	// Without schema inputs the table checks are skipped, as the procedure
	// checks are without procedure inputs.
	schema := in.Catalog
	if schema == nil && len(files.Schema) > 0 {
		var failures []model.Diagnostic
		schema, failures, err = catalog.BuildCatalog(ctx, e.fs, files.Schema, e.catalogOptions())
		if err != nil {
			return nil, err
		}
		diags = append(diags, failures...)
	}

	procs := in.ProcedureCatalog
	if len(files.Procedures) > 0 {
		var failures []model.Diagnostic
		procs, failures, err = catalog.BuildProcedures(ctx, e.fs, files.Procedures, e.catalogOptions())
		if err != nil {
			return nil, err
		}
		diags = append(diags, failures...)
	}

	handlers, err := e.analyzeHandlers(ctx, files.Handlers)
	if err != nil {
		return nil, err
	}
	diags = append(diags, handlers.failures...)

	routes, failures, err := e.loadRoutes(ctx, files.Routes)
	if err != nil {
		return nil, err
	}
	diags = append(diags, failures...)

	diags = append(diags, e.checker.Check(checker.Input{
		Schema:     schema,
		Procedures: procs,
		CallSites:  handlers.sites,
		KeyEvents:  handlers.keys,
		Routes:     routes,
		Handlers:   handlers.functions,
	})...)
	diags = checker.Finalize(diags)

	stats.CallSites = len(handlers.sites)
	for _, evs := range handlers.keys {
		stats.KeyEvents += len(evs)
	}
	stats.Tables = schema.Len()
	stats.Procedures = procs.Len()
	stats.Routes = len(routes)
	for _, d := range diags {
		if d.Category == model.CategoryParseFailure {
			stats.ParseFailures++
		}
	}

	report := &model.Report{
		RunID:       newRunID(),
		Status:      model.StatusOf(diags),
		Stats:       stats,
		Diagnostics: diags,
		StartedAt:   started.UTC(),
		Duration:    e.now().Sub(started),
	}
	e.logger.Info("run complete",
		"run_id", report.RunID,
		"status", report.Status,
		"errors", report.Count(model.SeverityError),
		"warnings", report.Count(model.SeverityWarning),
		"duration", report.Duration)
	return report, nil
}

// Catalogs builds only the schema and procedure catalogs of in.
func (e *Engine) Catalogs(ctx context.Context, in Inputs) (*model.Catalog, *model.ProcedureCatalog, []model.Diagnostic, error) {
	files, err := e.Discover(in)
	if err != nil {
		return nil, nil, nil, err
	}
	var diags []model.Diagnostic
	schema := in.Catalog
	if schema == nil {
		var failures []model.Diagnostic
		if schema, failures, err = catalog.BuildCatalog(ctx, e.fs, files.Schema, e.catalogOptions()); err != nil {
			return nil, nil, nil, err
		}
		diags = append(diags, failures...)
	}
	procs := in.ProcedureCatalog
	if len(files.Procedures) > 0 {
		var failures []model.Diagnostic
		if procs, failures, err = catalog.BuildProcedures(ctx, e.fs, files.Procedures, e.catalogOptions()); err != nil {
			return nil, nil, nil, err
		}
		diags = append(diags, failures...)
	}
	return schema, procs, checker.Finalize(diags), nil
}

// Rules returns the naming rule table in effect.
func (e *Engine) Rules() naming.Rules { return e.opts.Rules }

func newRunID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}
