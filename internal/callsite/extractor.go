package callsite

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/spf13/afero"

	"github.com/faucetdb/driftguard/internal/model"
	"github.com/faucetdb/driftguard/internal/pyast"
)

// Shape names, reported on each call site.
const (
	ShapeProcedure = "procedure-call"
	ShapeChained   = "chained-builder"
	ShapeFlat      = "flat-call"
)

// scope is the context a matcher sees for one call.
type scope struct {
	path     string
	function string
}

// matcher recognizes one calling convention.
type matcher func(call *pyast.Call, sc scope) (model.CallSite, bool)

// Extractor finds data-access call sites in handler modules. It holds no
// per-run state and is safe for concurrent use.
type Extractor struct {
	vocab    *compiled
	matchers []matcher
	logger   *slog.Logger
}

// New returns an Extractor for the given vocabulary.
func New(vocab Vocabulary, logger *slog.Logger) (*Extractor, error) {
	c, err := vocab.compile()
	if err != nil {
		return nil, fmt.Errorf("callsite vocabulary: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	e := &Extractor{vocab: c, logger: logger}
	e.matchers = []matcher{e.matchProcedure, e.matchChained, e.matchFlat}
	return e, nil
}

// ExtractFile reads and parses the handler at path and returns its call
// sites. Syntax errors are returned as *pyast.SyntaxError.
func (e *Extractor) ExtractFile(ctx context.Context, fsys afero.Fs, path string) ([]model.CallSite, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := afero.ReadFile(fsys, path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	mod, err := pyast.Parse(path, data)
	if err != nil {
		return nil, err
	}
	return e.Extract(mod), nil
}

// Extract returns the call sites of a parsed module ordered by line, then
// column.
func (e *Extractor) Extract(mod *pyast.Module) []model.CallSite {
	sites := e.visit(mod, scope{path: mod.Path})
	sort.SliceStable(sites, func(i, j int) bool {
		if sites[i].Source.Line != sites[j].Source.Line {
			return sites[i].Source.Line < sites[j].Source.Line
		}
		return sites[i].Column < sites[j].Column
	})
	return dedupe(sites)
}

// visit returns the call sites under n. Each function body is visited with
// the function's name as its scope; decorators, annotations and defaults
// belong to the enclosing scope.
func (e *Extractor) visit(n pyast.Node, sc scope) []model.CallSite {
	var out []model.CallSite
	switch n := n.(type) {
	case *pyast.FunctionDef:
		for _, d := range n.Decorators {
			out = append(out, e.visit(d, sc)...)
		}
		if n.Args != nil {
			for _, p := range n.Args.Params {
				out = append(out, e.visit(p, sc)...)
			}
		}
		if n.Returns != nil {
			out = append(out, e.visit(n.Returns, sc)...)
		}
		inner := scope{path: sc.path, function: n.Name}
		for _, s := range n.Body {
			out = append(out, e.visit(s, inner)...)
		}
		return out
	case *pyast.Call:
		for _, m := range e.matchers {
			if site, ok := m(n, sc); ok {
				out = append(out, site)
				break
			}
		}
	}
	for _, c := range pyast.Children(n) {
		out = append(out, e.visit(c, sc)...)
	}
	return out
}

func dedupe(sites []model.CallSite) []model.CallSite {
	type key struct {
		line, col   int
		op          model.Operation
		table, proc string
	}
	seen := make(map[key]bool, len(sites))
	out := sites[:0]
	for _, s := range sites {
		k := key{s.Source.Line, s.Column, s.Operation, s.Table, s.Procedure}
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, s)
	}
	return out
}
