// Package report renders run reports and catalogs for people and machines.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"golang.org/x/term"

	"github.com/faucetdb/driftguard/internal/baseline"
	"github.com/faucetdb/driftguard/internal/model"
)

// Format selects an output encoding.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
)

// ParseFormat validates a --format value. Empty selects text.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(s)) {
	case "", FormatText:
		return FormatText, nil
	case FormatJSON:
		return FormatJSON, nil
	}
	return "", fmt.Errorf("unknown format %q (want text or json)", s)
}

// IsTerminal reports whether f is attached to a terminal.
func IsTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// ColorFor enables color for terminals unless NO_COLOR is set.
func ColorFor(f *os.File) bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	return IsTerminal(f)
}

const (
	ansiReset  = "\033[0m"
	ansiRed    = "\033[31m"
	ansiYellow = "\033[33m"
	ansiGreen  = "\033[32m"
	ansiDim    = "\033[2m"
)

type painter bool

func (p painter) paint(code, s string) string {
	if !p {
		return s
	}
	return code + s + ansiReset
}

// Printer writes reports in one format.
type Printer struct {
	Format Format
	Color  bool
}

// Report writes r. resolved lists baseline entries the run no longer
// produces and may be nil.
func (p Printer) Report(w io.Writer, r *model.Report, resolved []baseline.Entry) error {
	if p.Format == FormatJSON {
		return writeJSON(w, struct {
			*model.Report
			Resolved []baseline.Entry `json:"resolved,omitempty"`
		}{r, resolved})
	}
	return writeText(w, r, resolved, painter(p.Color))
}

func writeText(w io.Writer, r *model.Report, resolved []baseline.Entry, c painter) error {
	var b strings.Builder
	for _, d := range r.Diagnostics {
		sev := string(d.Severity)
		if d.Severity == model.SeverityError {
			sev = c.paint(ansiRed, sev)
		} else {
			sev = c.paint(ansiYellow, sev)
		}
		fmt.Fprintf(&b, "%s: %s [%s] %s", location(d), sev, d.Category, d.Message)
		if d.Suggestion != "" {
			fmt.Fprintf(&b, " (did you mean %s?)", d.Suggestion)
		}
		b.WriteByte('\n')
	}
	for _, e := range resolved {
		fmt.Fprintf(&b, "%s: %s [%s] %s\n", e.File, c.paint(ansiGreen, "resolved"), e.Category, e.Message)
	}
	if len(r.Diagnostics) > 0 || len(resolved) > 0 {
		b.WriteByte('\n')
	}
	b.WriteString(summary(r, c))
	b.WriteByte('\n')
	_, err := io.WriteString(w, b.String())
	return err
}

func location(d model.Diagnostic) string {
	if d.Line > 0 {
		return fmt.Sprintf("%s:%d", d.File, d.Line)
	}
	return d.File
}

func summary(r *model.Report, c painter) string {
	status := string(r.Status)
	switch r.Status {
	case model.StatusFailed:
		status = c.paint(ansiRed, status)
	case model.StatusPassedWithWarnings:
		status = c.paint(ansiYellow, status)
	default:
		status = c.paint(ansiGreen, status)
	}
	s := fmt.Sprintf("%s: %d error(s), %d warning(s)", status, r.Count(model.SeverityError), r.Count(model.SeverityWarning))
	if r.Suppressed > 0 {
		s += fmt.Sprintf(", %d suppressed by baseline", r.Suppressed)
	}
	s += c.paint(ansiDim, fmt.Sprintf(" (%d files, %d tables, %d call sites, %s)",
		r.Stats.FilesScanned, r.Stats.Tables, r.Stats.CallSites, r.Duration.Round(time.Millisecond)))
	return s
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
