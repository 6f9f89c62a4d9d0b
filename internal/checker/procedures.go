package checker

import (
	"fmt"
	"strings"

	"github.com/faucetdb/driftguard/internal/catalog"
	"github.com/faucetdb/driftguard/internal/model"
	"github.com/faucetdb/driftguard/internal/similarity"
)

func (c *Checker) checkProcedureCall(site model.CallSite, procs *model.ProcedureCatalog) (model.Diagnostic, bool) {
	if procs == nil {
		return model.Diagnostic{}, false
	}
	if _, ok := procs.Lookup(site.Procedure); ok {
		return model.Diagnostic{}, false
	}
	return diagnostic(model.SeverityError, model.CategoryMissingProcedure, site.Source,
		fmt.Sprintf("procedure %q is not defined", site.Procedure),
		didYouMean(c.suggestAt(similarity.DefaultThreshold, site.Procedure, procs.Names()))), true
}

// checkProcedureBodies reports tables that procedure bodies read or write but
// the schema does not declare.
func (c *Checker) checkProcedureBodies(in Input) []model.Diagnostic {
	if in.Procedures == nil || in.Schema == nil {
		return nil
	}
	folded := make(map[string]bool, in.Schema.Len())
	for _, name := range in.Schema.TableNames() {
		folded[strings.ToLower(name)] = true
	}
	var diags []model.Diagnostic
	for _, proc := range in.Procedures.Sorted() {
		kind := proc.Kind
		if kind == "" {
			kind = "procedure"
		}
		for _, ref := range catalog.BodyReferences(proc, c.CatalogOptions) {
			if _, ok := in.Schema.Table(ref.Name); ok || folded[strings.ToLower(ref.Name)] {
				continue
			}
			loc := model.Location{File: proc.Source.File, Line: ref.Line}
			diags = append(diags, diagnostic(model.SeverityWarning, model.CategoryMissingTable, loc,
				fmt.Sprintf("%s %q references table %q, which is not defined in the schema", kind, proc.Name, ref.Name),
				didYouMean(c.suggest(ref.Name, in.Schema.TableNames()))))
		}
	}
	c.logger().Debug("procedure bodies checked", "procedures", in.Procedures.Len(), "findings", len(diags))
	return diags
}
