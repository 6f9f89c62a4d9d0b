// Package callsite recognizes data-access calls in parsed handler modules.
package callsite

import (
	"fmt"
	"sort"

	"github.com/faucetdb/driftguard/internal/model"
)

// Vocabulary names the functions, methods and keyword arguments that make up
// the recognized calling conventions.
type Vocabulary struct {
	// TableSelectors start a builder chain: table("x"), from_("x").
	TableSelectors []string `yaml:"table_selectors" json:"table_selectors"`
	// ChainOps maps builder methods to the operation they perform.
	ChainOps map[string]string `yaml:"chain_ops" json:"chain_ops"`
	// ChainFilters are builder methods that narrow a query.
	ChainFilters []string `yaml:"chain_filters" json:"chain_filters"`
	// FlatOps maps helper functions that take the table as an argument.
	FlatOps map[string]string `yaml:"flat_ops" json:"flat_ops"`
	// ProcedureCalls invoke a stored procedure by name.
	ProcedureCalls []string `yaml:"procedure_calls" json:"procedure_calls"`

	ProcedureKeywords []string `yaml:"procedure_keywords" json:"procedure_keywords"`
	TableKeywords     []string `yaml:"table_keywords" json:"table_keywords"`
	SelectKeywords    []string `yaml:"select_keywords" json:"select_keywords"`
	DataKeywords      []string `yaml:"data_keywords" json:"data_keywords"`
	FilterKeywords    []string `yaml:"filter_keywords" json:"filter_keywords"`
	// ExpressionKeywords carry SQL-style filter strings.
	ExpressionKeywords []string `yaml:"expression_keywords" json:"expression_keywords"`
}

// DefaultVocabulary returns the conventions of the generated data-access
// layer and of PostgREST-style query builders.
func DefaultVocabulary() Vocabulary {
	return Vocabulary{
		TableSelectors: []string{"table", "from_"},
		ChainOps: map[string]string{
			"select": "select",
			"insert": "insert",
			"update": "update",
			"upsert": "upsert",
			"delete": "delete",
		},
		ChainFilters: []string{
			"eq", "neq", "gt", "gte", "lt", "lte",
			"like", "ilike", "is_", "in_",
			"contains", "contained_by", "overlaps",
			"range_gt", "range_gte", "range_lt", "range_lte", "range_adjacent",
			"text_search", "filter", "match", "order", "or_", "not_",
		},
		FlatOps: map[string]string{
			"find_many":   "select",
			"find_one":    "select",
			"find_all":    "select",
			"insert_one":  "insert",
			"insert_many": "insert",
			"update_one":  "update",
			"update_many": "update",
			"upsert_one":  "upsert",
			"delete_one":  "delete",
			"delete_many": "delete",
		},
		ProcedureCalls:     []string{"rpc", "call_procedure", "callproc"},
		ProcedureKeywords:  []string{"name", "function"},
		TableKeywords:      []string{"table", "table_name"},
		SelectKeywords:     []string{"select", "columns", "fields"},
		DataKeywords:       []string{"data", "values", "record"},
		FilterKeywords:     []string{"filters", "where"},
		ExpressionKeywords: []string{"filter"},
	}
}

// Merge returns v with every non-empty field of o replacing its counterpart.
func (v Vocabulary) Merge(o Vocabulary) Vocabulary {
	replace := func(dst *[]string, src []string) {
		if len(src) > 0 {
			*dst = src
		}
	}
	replace(&v.TableSelectors, o.TableSelectors)
	replace(&v.ChainFilters, o.ChainFilters)
	replace(&v.ProcedureCalls, o.ProcedureCalls)
	replace(&v.ProcedureKeywords, o.ProcedureKeywords)
	replace(&v.TableKeywords, o.TableKeywords)
	replace(&v.SelectKeywords, o.SelectKeywords)
	replace(&v.DataKeywords, o.DataKeywords)
	replace(&v.FilterKeywords, o.FilterKeywords)
	replace(&v.ExpressionKeywords, o.ExpressionKeywords)
	if len(o.ChainOps) > 0 {
		v.ChainOps = o.ChainOps
	}
	if len(o.FlatOps) > 0 {
		v.FlatOps = o.FlatOps
	}
	return v
}

// compiled is a Vocabulary prepared for lookups.
type compiled struct {
	selectors  set
	chainOps   map[string]model.Operation
	filters    set
	flatOps    map[string]model.Operation
	procedures set
	procKeys   []string
	tableKeys  []string
	selectKeys []string
	dataKeys   []string
	filterKeys []string
	exprKeys   []string
}

type set map[string]bool

func newSet(items []string) set {
	s := make(set, len(items))
	for _, item := range items {
		s[item] = true
	}
	return s
}

func (v Vocabulary) compile() (*compiled, error) {
	c := &compiled{
		selectors:  newSet(v.TableSelectors),
		filters:    newSet(v.ChainFilters),
		procedures: newSet(v.ProcedureCalls),
		procKeys:   v.ProcedureKeywords,
		tableKeys:  v.TableKeywords,
		selectKeys: v.SelectKeywords,
		dataKeys:   v.DataKeywords,
		filterKeys: v.FilterKeywords,
		exprKeys:   v.ExpressionKeywords,
	}
	var err error
	if c.chainOps, err = operations("chain_ops", v.ChainOps); err != nil {
		return nil, err
	}
	if c.flatOps, err = operations("flat_ops", v.FlatOps); err != nil {
		return nil, err
	}
	return c, nil
}

func operations(field string, in map[string]string) (map[string]model.Operation, error) {
	names := make([]string, 0, len(in))
	for name := range in {
		names = append(names, name)
	}
	sort.Strings(names)
	out := make(map[string]model.Operation, len(in))
	for _, name := range names {
		op, ok := model.ParseOperation(in[name])
		if !ok {
			return nil, fmt.Errorf("%s: %q maps to unknown operation %q", field, name, in[name])
		}
		out[name] = op
	}
	return out, nil
}
