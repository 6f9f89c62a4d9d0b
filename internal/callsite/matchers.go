package callsite

import (
	"github.com/faucetdb/driftguard/internal/model"
	"github.com/faucetdb/driftguard/internal/pyast"
	"github.com/faucetdb/driftguard/internal/query"
)

func (e *Extractor) site(call *pyast.Call, sc scope, op model.Operation, shape string) model.CallSite {
	pos := pyast.CalleePos(call)
	return model.CallSite{
		Source:    model.Location{File: sc.path, Line: pos.Line},
		Column:    pos.Col,
		Function:  sc.function,
		Operation: op,
		Shape:     shape,
		Columns:   []string{},
	}
}

// keyword returns the value of the first listed keyword present on call.
func keyword(call *pyast.Call, names []string) (pyast.Expr, bool) {
	for _, name := range names {
		if v, ok := call.KeywordValue(name); ok {
			return v, true
		}
	}
	return nil, false
}

func contains(names []string, name string) bool {
	for _, n := range names {
		if n == name {
			return true
		}
	}
	return false
}

// ---------------------------------------------------------------------------
// Procedure calls: x.rpc("name", ...), call_procedure(name="...")
// ---------------------------------------------------------------------------

func (e *Extractor) matchProcedure(call *pyast.Call, sc scope) (model.CallSite, bool) {
	if !e.vocab.procedures[pyast.CalleeName(call)] {
		return model.CallSite{}, false
	}
	nameExpr, ok := keyword(call, e.vocab.procKeys)
	if !ok && len(call.Args) > 0 {
		nameExpr = call.Args[0]
	}
	name, ok := pyast.StringValue(nameExpr)
	if !ok || name == "" {
		return model.CallSite{}, false
	}
	site := e.site(call, sc, model.OpCall, ShapeProcedure)
	site.Procedure = name
	return site, true
}

// ---------------------------------------------------------------------------
// Builder chains: client.table("x").select("a").eq("b", 1)
// ---------------------------------------------------------------------------

// chainRoot describes what the receiver chain of a builder call starts from.
type chainRoot struct {
	table     string
	selector  bool // a table selector call was found
	builder   bool // the receiver chain contains a call
	procedure bool // the chain starts from a procedure call
}

func (e *Extractor) resolveChain(recv pyast.Expr) chainRoot {
	var root chainRoot
	for recv != nil {
		switch r := recv.(type) {
		case *pyast.Call:
			root.builder = true
			name := pyast.CalleeName(r)
			if e.vocab.selectors[name] {
				root.selector = true
				if len(r.Args) > 0 {
					root.table, _ = pyast.StringValue(r.Args[0])
				}
				return root
			}
			if e.vocab.procedures[name] {
				root.procedure = true
				return root
			}
			attr, ok := r.Func.(*pyast.Attribute)
			if !ok {
				return root
			}
			recv = attr.Value
		case *pyast.Attribute:
			recv = r.Value
		case *pyast.Await:
			recv = r.Value
		default:
			return root
		}
	}
	return root
}

func (e *Extractor) matchChained(call *pyast.Call, sc scope) (model.CallSite, bool) {
	attr, ok := call.Func.(*pyast.Attribute)
	if !ok {
		return model.CallSite{}, false
	}
	method := attr.Attr
	op, isOp := e.vocab.chainOps[method]
	if !isOp {
		if !e.vocab.filters[method] {
			return model.CallSite{}, false
		}
		op = model.OpFilter
	}

	root := e.resolveChain(attr.Value)
	if root.procedure {
		return model.CallSite{}, false
	}
	if root.table == "" && !root.selector && !(root.builder && hasEvidence(call)) {
		return model.CallSite{}, false
	}

	site := e.site(call, sc, op, ShapeChained)
	site.Table = root.table
	site.Columns = e.chainColumns(call, method, op)
	return site, true
}

// hasEvidence reports whether a call carries data-access arguments.
func hasEvidence(call *pyast.Call) bool {
	for _, arg := range call.Args {
		if _, ok := pyast.StringValue(arg); ok {
			return true
		}
		if len(recordKeys(arg)) > 0 {
			return true
		}
	}
	return false
}

func (e *Extractor) chainColumns(call *pyast.Call, method string, op model.Operation) []string {
	var cols columnList
	switch op {
	case model.OpSelect:
		for _, arg := range call.Args {
			cols.add(selection(arg)...)
		}
	case model.OpInsert, model.OpUpdate, model.OpUpsert:
		if len(call.Args) > 0 {
			cols.add(recordKeys(call.Args[0])...)
		}
	case model.OpFilter:
		var first string
		if len(call.Args) > 0 {
			first, _ = pyast.StringValue(call.Args[0])
		}
		switch method {
		case "or_":
			cols.add(query.LogicColumns(first)...)
		case "match":
			if len(call.Args) > 0 {
				cols.add(recordKeys(call.Args[0])...)
			}
		case "order":
			clauses, err := query.ParseOrderClause(first)
			if err != nil {
				cols.add(first)
				break
			}
			for _, c := range clauses {
				cols.add(c.Column)
			}
		default:
			cols.add(first)
		}
	}
	e.keywordColumns(call, &cols)
	return cols.list()
}

// ---------------------------------------------------------------------------
// Flat calls: db.find_many("x", {"a": 1}, select="b")
// ---------------------------------------------------------------------------

func (e *Extractor) matchFlat(call *pyast.Call, sc scope) (model.CallSite, bool) {
	op, ok := e.vocab.flatOps[pyast.CalleeName(call)]
	if !ok {
		return model.CallSite{}, false
	}
	site := e.site(call, sc, op, ShapeFlat)

	// The first positional argument is the table slot, even when a table
	// keyword overrides it. With a keyword table, a leading record literal
	// is the filter mapping instead.
	args := call.Args
	kwTable, hasKW := keyword(call, e.vocab.tableKeys)
	if len(args) > 0 && !(hasKW && isRecord(args[0])) {
		site.Table, _ = pyast.StringValue(args[0])
		args = args[1:]
	}
	if hasKW {
		site.Table, _ = pyast.StringValue(kwTable)
	}

	var cols columnList
	switch op {
	case model.OpInsert, model.OpUpsert:
		if len(args) > 0 {
			cols.add(recordKeys(args[0])...)
		}
	case model.OpUpdate:
		if len(args) > 0 {
			cols.add(recordKeys(args[0])...)
		}
		if len(args) > 1 {
			cols.add(recordKeys(args[1])...)
		}
	default:
		if len(args) > 0 {
			cols.add(recordKeys(args[0])...)
		}
	}
	e.keywordColumns(call, &cols)
	site.Columns = cols.list()
	return site, true
}

// keywordColumns collects columns from selection, record, filter and filter
// expression keywords, in argument order.
func (e *Extractor) keywordColumns(call *pyast.Call, cols *columnList) {
	for _, kw := range call.Keywords {
		switch {
		case kw.Arg == "":
		case contains(e.vocab.selectKeys, kw.Arg):
			cols.add(selection(kw.Value)...)
		case contains(e.vocab.dataKeys, kw.Arg), contains(e.vocab.filterKeys, kw.Arg):
			cols.add(recordKeys(kw.Value)...)
		case contains(e.vocab.exprKeys, kw.Arg):
			expr, ok := pyast.StringValue(kw.Value)
			if !ok {
				continue
			}
			names, err := query.FilterColumns(expr)
			if err != nil {
				e.logger.Debug("filter expression not understood", "expr", expr, "error", err)
				continue
			}
			cols.add(names...)
		}
	}
}
