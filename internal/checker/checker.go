// Package checker cross-references the schema catalog, the procedure catalog,
// handler call sites, record-key usage and routes, and reports the drift
// between them as diagnostics.
package checker

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/faucetdb/driftguard/internal/catalog"
	"github.com/faucetdb/driftguard/internal/model"
	"github.com/faucetdb/driftguard/internal/naming"
	"github.com/faucetdb/driftguard/internal/similarity"
)

// DefaultMaxSuggestions caps the candidates named in one suggestion.
const DefaultMaxSuggestions = 3

// Input is everything one consistency check looks at. A nil Schema skips the
// table, column and naming checks; a nil Procedures skips the procedure
// checks. Routes are only checked against Handlers when Routes is non-empty.
type Input struct {
	Schema     *model.Catalog
	Procedures *model.ProcedureCatalog
	CallSites  []model.CallSite
	// KeyEvents holds the key events of each handler file, by path.
	KeyEvents map[string][]model.KeyEvent
	Routes    []model.Route
	// Handlers indexes the functions defined across handler files.
	Handlers map[string]model.Location
}

// Checker runs the consistency rules. The zero value is usable: it applies
// no naming rules and the default similarity settings.
type Checker struct {
	Rules          naming.Rules
	// Threshold applies to table, column and handler suggestions. Procedure
	// suggestions always use similarity.DefaultThreshold.
	Threshold      float64
	MaxSuggestions int
	// CatalogOptions scopes the table references found in procedure bodies.
	CatalogOptions catalog.Options
	Logger         *slog.Logger
}

// New returns a Checker with the given naming rules and default settings.
func New(rules naming.Rules, logger *slog.Logger) *Checker {
	return &Checker{
		Rules:          rules,
		Threshold:      similarity.DefaultThreshold,
		MaxSuggestions: DefaultMaxSuggestions,
		Logger:         logger,
	}
}

func (c *Checker) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.Default()
}

func (c *Checker) threshold() float64 {
	if c.Threshold > 0 {
		return c.Threshold
	}
	return similarity.DefaultThreshold
}

func (c *Checker) limit() int {
	if c.MaxSuggestions > 0 {
		return c.MaxSuggestions
	}
	return DefaultMaxSuggestions
}

// suggest returns the closest candidates to name, best first.
func (c *Checker) suggest(name string, candidates []string) []string {
	return c.suggestAt(c.threshold(), name, candidates)
}

func (c *Checker) suggestAt(threshold float64, name string, candidates []string) []string {
	return similarity.Names(similarity.Suggest(name, candidates, threshold, c.limit()))
}

// Check runs every rule over in and returns the diagnostics ordered by file,
// line, category and message. Only the first diagnostic for a given file,
// line and category is kept.
func (c *Checker) Check(in Input) []model.Diagnostic {
	var diags []model.Diagnostic
	diags = append(diags, c.checkCallSites(in)...)
	diags = append(diags, c.checkNaming(in.Schema)...)
	diags = append(diags, c.checkProcedureBodies(in)...)
	diags = append(diags, c.checkKeys(in.KeyEvents)...)
	diags = append(diags, c.checkRoutes(in.Routes, in.Handlers)...)
	return Finalize(diags)
}

// Finalize drops repeated (file, line, category) diagnostics, keeping the
// first, and sorts the rest.
func Finalize(diags []model.Diagnostic) []model.Diagnostic {
	type key struct {
		file     string
		line     int
		category model.Category
	}
	seen := make(map[key]bool, len(diags))
	out := make([]model.Diagnostic, 0, len(diags))
	for _, d := range diags {
		k := key{d.File, d.Line, d.Category}
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, d)
	}
	Sort(out)
	return out
}

// Sort orders diagnostics by file, line, category and message.
func Sort(diags []model.Diagnostic) {
	sort.SliceStable(diags, func(i, j int) bool {
		a, b := diags[i], diags[j]
		if a.File != b.File {
			return a.File < b.File
		}
		if a.Line != b.Line {
			return a.Line < b.Line
		}
		if a.Category != b.Category {
			return a.Category < b.Category
		}
		return a.Message < b.Message
	})
}

// didYouMean renders candidate names as a suggestion, or "" when there are
// none.
func didYouMean(names []string) string {
	if len(names) == 0 {
		return ""
	}
	return "did you mean " + quoteList(names) + "?"
}

func quoteList(names []string) string {
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = fmt.Sprintf("%q", n)
	}
	return strings.Join(quoted, ", ")
}

func diagnostic(sev model.Severity, cat model.Category, loc model.Location, msg, suggestion string) model.Diagnostic {
	return model.Diagnostic{
		Severity:   sev,
		Category:   cat,
		File:       loc.File,
		Line:       loc.Line,
		Message:    msg,
		Suggestion: suggestion,
	}
}
