package report

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/faucetdb/driftguard/internal/baseline"
	"github.com/faucetdb/driftguard/internal/model"
)

func sampleReport() *model.Report {
	diags := []model.Diagnostic{
		{Severity: model.SeverityError, Category: model.CategoryMissingTable, File: "handlers/orders.py", Line: 12, Message: `table "order" is not defined`, Suggestion: "orders"},
		{Severity: model.SeverityWarning, Category: model.CategoryParseFailure, File: "schema/bad.sql", Message: "unterminated statement"},
	}
	return &model.Report{
		RunID:       "run-1",
		Status:      model.StatusOf(diags),
		Stats:       model.RunStats{FilesScanned: 4, Tables: 2, CallSites: 7},
		Diagnostics: diags,
		Duration:    1500 * time.Microsecond,
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"", FormatText, false},
		{"text", FormatText, false},
		{"JSON", FormatJSON, false},
		{"xml", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFormat(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestTextReport(t *testing.T) {
	var buf bytes.Buffer
	if err := (Printer{Format: FormatText}).Report(&buf, sampleReport(), nil); err != nil {
		t.Fatal(err)
	}
	out := buf.String()

	wants := []string{
		`handlers/orders.py:12: error [missing-table] table "order" is not defined (did you mean orders?)`,
		"schema/bad.sql: warning [parse-failure] unterminated statement",
		"failed: 1 error(s), 1 warning(s) (4 files, 2 tables, 7 call sites, 2ms)",
	}
	for _, w := range wants {
		if !strings.Contains(out, w) {
			t.Errorf("output missing %q:\n%s", w, out)
		}
	}
	if strings.Contains(out, "\033[") {
		t.Error("uncolored output contains escape codes")
	}
}

func TestTextReportColor(t *testing.T) {
	var buf bytes.Buffer
	if err := (Printer{Format: FormatText, Color: true}).Report(&buf, sampleReport(), nil); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), ansiRed+"error"+ansiReset) {
		t.Errorf("expected red severity:\n%q", buf.String())
	}
}

func TestTextReportResolvedAndSuppressed(t *testing.T) {
	r := &model.Report{Status: model.StatusPassed, Suppressed: 2, Diagnostics: []model.Diagnostic{}}
	resolved := []baseline.Entry{{File: "h.py", Category: model.CategoryMissingColumn, Message: "gone"}}

	var buf bytes.Buffer
	if err := (Printer{}).Report(&buf, r, resolved); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if !strings.Contains(out, "h.py: resolved [missing-column] gone") {
		t.Errorf("missing resolved line:\n%s", out)
	}
	if !strings.Contains(out, "passed: 0 error(s), 0 warning(s), 2 suppressed by baseline") {
		t.Errorf("missing summary:\n%s", out)
	}
}

func TestJSONReport(t *testing.T) {
	var buf bytes.Buffer
	resolved := []baseline.Entry{{Fingerprint: "abc"}}
	if err := (Printer{Format: FormatJSON}).Report(&buf, sampleReport(), resolved); err != nil {
		t.Fatal(err)
	}

	var decoded struct {
		RunID       string             `json:"run_id"`
		Status      string             `json:"status"`
		Diagnostics []model.Diagnostic `json:"diagnostics"`
		Resolved    []baseline.Entry   `json:"resolved"`
	}
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("invalid JSON: %v\n%s", err, buf.String())
	}
	if decoded.RunID != "run-1" || decoded.Status != "failed" {
		t.Errorf("decoded = %+v", decoded)
	}
	if len(decoded.Diagnostics) != 2 || decoded.Diagnostics[0].Suggestion != "orders" {
		t.Errorf("diagnostics = %+v", decoded.Diagnostics)
	}
	if len(decoded.Resolved) != 1 || decoded.Resolved[0].Fingerprint != "abc" {
		t.Errorf("resolved = %+v", decoded.Resolved)
	}
}

func TestCatalogText(t *testing.T) {
	cat := model.NewCatalog()
	cat.Tables["orders"] = model.NewTable("orders", []model.Column{
		{Name: "id", DeclaredType: "UUID"},
		{Name: "total", DeclaredType: "NUMERIC", Nullable: true},
	}, model.Location{File: "schema/orders.sql", Line: 3})
	procs := model.NewProcedureCatalog()
	procs.Put(&model.Procedure{
		Name: "close_order", Kind: "function",
		Parameters: []model.ProcedureParam{{Name: "p_id", Type: "UUID"}},
		Source:     model.Location{File: "postgres:public"},
	})

	var buf bytes.Buffer
	if err := (Printer{}).Catalog(&buf, cat, procs); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, w := range []string{"orders", "schema/orders.sql:3", "NOT NULL", "function close_order(p_id UUID)", "postgres:public"} {
		if !strings.Contains(out, w) {
			t.Errorf("output missing %q:\n%s", w, out)
		}
	}
}

func TestCatalogJSONEmptyProcedures(t *testing.T) {
	var buf bytes.Buffer
	if err := (Printer{Format: FormatJSON}).Catalog(&buf, model.NewCatalog(), nil); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), `"procedures": []`) {
		t.Errorf("got %s", buf.String())
	}
}

func TestDiffText(t *testing.T) {
	var buf bytes.Buffer
	if err := (Printer{}).Diff(&buf, baseline.SchemaDiff{}); err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(buf.String()) != "no drift" {
		t.Errorf("got %q", buf.String())
	}

	buf.Reset()
	diff := baseline.SchemaDiff{
		HasDrift: true, BreakingCount: 1,
		Changes: []baseline.Change{{Type: baseline.ChangeBreaking, Category: "column_removed", Description: "column orders.status is missing from the live database"}},
	}
	if err := (Printer{}).Diff(&buf, diff); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "breaking column_removed: column orders.status") {
		t.Errorf("got %q", buf.String())
	}
}
