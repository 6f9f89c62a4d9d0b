package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/faucetdb/driftguard/internal/keyusage"
	"github.com/faucetdb/driftguard/internal/model"
	"github.com/faucetdb/driftguard/internal/openapi"
	"github.com/faucetdb/driftguard/internal/pyast"
	"github.com/faucetdb/driftguard/internal/source"
)

// handlerFacts is what the handler files of a run contribute.
type handlerFacts struct {
	sites     []model.CallSite
	keys      map[string][]model.KeyEvent
	functions map[string]model.Location
	failures  []model.Diagnostic
}

// analyzeHandlers parses handler files in parallel and merges their facts in
// path order.
func (e *Engine) analyzeHandlers(ctx context.Context, paths []string) (handlerFacts, error) {
	facts := handlerFacts{
		keys:      make(map[string][]model.KeyEvent),
		functions: make(map[string]model.Location),
	}
	results, err := source.ParseAll(ctx, e.fs, paths, e.opts.Concurrency, pyast.Parse)
	if err != nil {
		return facts, err
	}
	for _, r := range results {
		if r.Err != nil {
			facts.failures = append(facts.failures, handlerFailure(r.Path, r.Err))
			e.logger.Warn("handler not parsed", "path", r.Path, "error", r.Err)
			continue
		}
		mod := r.Value
		facts.sites = append(facts.sites, e.extractor.Extract(mod)...)
		if evs := keyusage.Analyze(mod); len(evs) > 0 {
			facts.keys[r.Path] = evs
		}
		for _, fn := range pyast.Functions(mod) {
			if _, ok := facts.functions[fn.Name]; !ok {
				facts.functions[fn.Name] = model.Location{File: r.Path, Line: fn.DefPos.Line}
			}
		}
	}
	return facts, nil
}

func handlerFailure(path string, err error) model.Diagnostic {
	d := model.Diagnostic{
		Severity: model.SeverityWarning,
		Category: model.CategoryParseFailure,
		File:     path,
		Message:  err.Error(),
	}
	var syntaxErr *pyast.SyntaxError
	if errors.As(err, &syntaxErr) {
		d.Line = syntaxErr.Pos.Line
		d.Message = fmt.Sprintf("handler not analyzed: %s", syntaxErr.Msg)
	}
	return d
}

// loadRoutes parses routing documents in parallel.
func (e *Engine) loadRoutes(ctx context.Context, paths []string) ([]model.Route, []model.Diagnostic, error) {
	parse := func(path string, data []byte) ([]model.Route, error) {
		return openapi.ParseRoutes(ctx, path, data)
	}
	results, err := source.ParseAll(ctx, e.fs, paths, e.opts.Concurrency, parse)
	if err != nil {
		return nil, nil, err
	}
	var routes []model.Route
	var failures []model.Diagnostic
	for _, r := range results {
		if r.Err != nil {
			failures = append(failures, model.Diagnostic{
				Severity: model.SeverityWarning,
				Category: model.CategoryParseFailure,
				File:     r.Path,
				Message:  r.Err.Error(),
			})
			continue
		}
		routes = append(routes, r.Value...)
	}
	return routes, failures, nil
}
