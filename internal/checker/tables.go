package checker

import (
	"fmt"
	"strings"

	"github.com/faucetdb/driftguard/internal/model"
)

func (c *Checker) checkCallSites(in Input) []model.Diagnostic {
	var diags []model.Diagnostic
	for _, site := range in.CallSites {
		if site.Operation == model.OpCall {
			if d, ok := c.checkProcedureCall(site, in.Procedures); ok {
				diags = append(diags, d)
			}
			continue
		}
		if in.Schema == nil {
			continue
		}
		if !site.Resolved() {
			diags = append(diags, diagnostic(model.SeverityWarning, model.CategoryUnresolvedTable, site.Source,
				fmt.Sprintf("table of %s call could not be resolved; its columns are not checked", site.Operation),
				"pass the table name as a string literal"))
			continue
		}
		table, ok := in.Schema.Table(site.Table)
		if !ok {
			diags = append(diags, diagnostic(model.SeverityError, model.CategoryMissingTable, site.Source,
				fmt.Sprintf("table %q is not defined in the schema", site.Table),
				didYouMean(c.suggest(site.Table, in.Schema.TableNames()))))
			continue
		}
		if d, ok := c.checkColumns(site, table); ok {
			diags = append(diags, d)
		}
	}
	return diags
}

// checkColumns reports every column of site that table does not declare in a
// single diagnostic.
func (c *Checker) checkColumns(site model.CallSite, table *model.Table) (model.Diagnostic, bool) {
	var missing, hints []string
	for _, col := range site.Columns {
		if table.HasColumn(col) {
			continue
		}
		missing = append(missing, col)
		if names := c.suggest(col, table.ColumnNames()); len(names) > 0 {
			hints = append(hints, fmt.Sprintf("%s for %q", quoteList(names), col))
		}
	}
	if len(missing) == 0 {
		return model.Diagnostic{}, false
	}
	noun := "column"
	if len(missing) > 1 {
		noun = "columns"
	}
	msg := fmt.Sprintf("%s %s not defined on table %q", noun, quoteList(missing), table.Name)
	var suggestion string
	if len(hints) > 0 {
		suggestion = "did you mean " + strings.Join(hints, "; ") + "?"
	}
	return diagnostic(model.SeverityError, model.CategoryMissingColumn, site.Source, msg, suggestion), true
}

// checkNaming applies the naming rule table to every declared table.
func (c *Checker) checkNaming(schema *model.Catalog) []model.Diagnostic {
	var diags []model.Diagnostic
	for _, name := range schema.TableNames() {
		table, _ := schema.Table(name)
		for _, v := range c.Rules.Check(name) {
			diags = append(diags, diagnostic(v.Severity, model.CategoryTableNaming, table.Source, v.Message, v.Suggestion))
		}
	}
	return diags
}
