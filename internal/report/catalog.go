package report

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/faucetdb/driftguard/internal/baseline"
	"github.com/faucetdb/driftguard/internal/model"
)

// Catalog writes the tables and procedures of a catalog.
func (p Printer) Catalog(w io.Writer, cat *model.Catalog, procs *model.ProcedureCatalog) error {
	if p.Format == FormatJSON {
		tables := make([]*model.Table, 0, cat.Len())
		for _, name := range cat.TableNames() {
			t, _ := cat.Table(name)
			tables = append(tables, t)
		}
		return writeJSON(w, struct {
			Tables     []*model.Table     `json:"tables"`
			Procedures []*model.Procedure `json:"procedures"`
		}{tables, nonNilProcs(procs.Sorted())})
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, name := range cat.TableNames() {
		t, _ := cat.Table(name)
		fmt.Fprintf(tw, "%s\t%s\n", t.Name, locationOf(t.Source))
		for _, col := range t.Columns {
			null := "NOT NULL"
			if col.Nullable {
				null = "NULL"
			}
			fmt.Fprintf(tw, "  %s\t%s\t%s\n", col.Name, col.DeclaredType, null)
		}
	}
	for _, proc := range procs.Sorted() {
		params := make([]string, len(proc.Parameters))
		for i, prm := range proc.Parameters {
			params[i] = strings.TrimSpace(prm.Name + " " + prm.Type)
		}
		fmt.Fprintf(tw, "%s %s(%s)\t%s\n", proc.Kind, proc.Name, strings.Join(params, ", "), locationOf(proc.Source))
	}
	return tw.Flush()
}

// Diff writes a schema comparison.
func (p Printer) Diff(w io.Writer, diff baseline.SchemaDiff) error {
	if p.Format == FormatJSON {
		return writeJSON(w, diff)
	}
	c := painter(p.Color)
	if !diff.HasDrift {
		_, err := fmt.Fprintln(w, c.paint(ansiGreen, "no drift"))
		return err
	}
	for _, ch := range diff.Changes {
		kind := c.paint(ansiYellow, string(ch.Type))
		if ch.Type == baseline.ChangeBreaking {
			kind = c.paint(ansiRed, string(ch.Type))
		}
		if _, err := fmt.Fprintf(w, "%s %s: %s\n", kind, ch.Category, ch.Description); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintf(w, "\n%d breaking, %d additive\n", diff.BreakingCount, diff.AdditiveCount)
	return err
}

func locationOf(l model.Location) string {
	if l.Line > 0 {
		return fmt.Sprintf("%s:%d", l.File, l.Line)
	}
	return l.File
}

func nonNilProcs(p []*model.Procedure) []*model.Procedure {
	if p == nil {
		return []*model.Procedure{}
	}
	return p
}
