package model

import "time"

// Severity ranks a diagnostic.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// ParseSeverity accepts "error" and "warning"; anything else falls back to def.
func ParseSeverity(s string, def Severity) Severity {
	switch Severity(s) {
	case SeverityError:
		return SeverityError
	case SeverityWarning:
		return SeverityWarning
	}
	return def
}

// Category is the defect class of a diagnostic.
type Category string

const (
	CategoryMissingTable     Category = "missing-table"
	CategoryMissingColumn    Category = "missing-column"
	CategoryUnresolvedTable  Category = "unresolved-table-reference"
	CategoryTableNaming      Category = "table-naming"
	CategoryMissingProcedure Category = "missing-procedure"
	CategoryKeyMismatch      Category = "key-mismatch"
	CategoryMissingHandler   Category = "missing-handler"
	CategoryParseFailure     Category = "parse-failure"
)

// Diagnostic is a single finding produced by a run.
type Diagnostic struct {
	Severity   Severity `json:"severity"`
	Category   Category `json:"category"`
	File       string   `json:"file"`
	Line       int      `json:"line"`
	Message    string   `json:"message"`
	Suggestion string   `json:"suggestion,omitempty"`
}

// Status summarizes a run.
type Status string

const (
	StatusPassed             Status = "passed"
	StatusPassedWithWarnings Status = "passed-with-warnings"
	StatusFailed             Status = "failed"
)

// StatusOf derives the run status from its diagnostics.
func StatusOf(diags []Diagnostic) Status {
	status := StatusPassed
	for _, d := range diags {
		if d.Severity == SeverityError {
			return StatusFailed
		}
		status = StatusPassedWithWarnings
	}
	return status
}

// RunStats holds run-level counters.
type RunStats struct {
	FilesScanned   int `json:"files_scanned"`
	SchemaFiles    int `json:"schema_files"`
	ProcedureFiles int `json:"procedure_files"`
	HandlerFiles   int `json:"handler_files"`
	RouteFiles     int `json:"route_files"`
	CallSites      int `json:"call_sites"`
	KeyEvents      int `json:"key_events"`
	Tables         int `json:"tables"`
	Procedures     int `json:"procedures"`
	Routes         int `json:"routes"`
	ParseFailures  int `json:"parse_failures"`
}

// Report is the complete result of a validation run.
type Report struct {
	RunID       string        `json:"run_id"`
	Status      Status        `json:"status"`
	Stats       RunStats      `json:"stats"`
	Diagnostics []Diagnostic  `json:"diagnostics"`
	Suppressed  int           `json:"suppressed,omitempty"`
	StartedAt   time.Time     `json:"started_at"`
	Duration    time.Duration `json:"duration"`
}

// Count returns the number of diagnostics with the given severity.
func (r *Report) Count(sev Severity) int {
	n := 0
	for _, d := range r.Diagnostics {
		if d.Severity == sev {
			n++
		}
	}
	return n
}
