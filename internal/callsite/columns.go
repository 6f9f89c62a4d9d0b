package callsite

import (
	"github.com/faucetdb/driftguard/internal/pyast"
	"github.com/faucetdb/driftguard/internal/query"
)

// columnList accumulates column names in first-seen order.
type columnList struct {
	names []string
	seen  map[string]bool
}

func (c *columnList) add(names ...string) {
	for _, name := range names {
		if name == "" || name == "*" || c.seen[name] {
			continue
		}
		if c.seen == nil {
			c.seen = make(map[string]bool)
		}
		c.seen[name] = true
		c.names = append(c.names, name)
	}
}

func (c *columnList) list() []string {
	if c.names == nil {
		return []string{}
	}
	return c.names
}

// selection returns the columns of a selection argument: a comma-separated
// string or a list of strings.
func selection(e pyast.Expr) []string {
	if s, ok := pyast.StringValue(e); ok {
		return query.SelectColumns(s)
	}
	var out []string
	switch v := e.(type) {
	case *pyast.List:
		for _, elt := range v.Elts {
			out = append(out, selection(elt)...)
		}
	case *pyast.Tuple:
		for _, elt := range v.Elts {
			out = append(out, selection(elt)...)
		}
	}
	return out
}

// isRecord reports whether e is a dict literal or a dict(...) call.
func isRecord(e pyast.Expr) bool {
	switch v := e.(type) {
	case *pyast.Dict:
		return true
	case *pyast.Call:
		fn, ok := v.Func.(*pyast.Name)
		return ok && fn.ID == "dict"
	}
	return false
}

// recordKeys returns the constant string keys of a record literal: a dict
// display, dict(k=v), or a list of either.
func recordKeys(e pyast.Expr) []string {
	var out []string
	switch v := e.(type) {
	case *pyast.Dict:
		for _, k := range v.Keys {
			if s, ok := pyast.StringValue(k); ok {
				out = append(out, s)
			}
		}
	case *pyast.Call:
		if fn, ok := v.Func.(*pyast.Name); ok && fn.ID == "dict" {
			for _, kw := range v.Keywords {
				if kw.Arg != "" {
					out = append(out, kw.Arg)
				}
			}
		}
	case *pyast.List:
		for _, elt := range v.Elts {
			out = append(out, recordKeys(elt)...)
		}
	case *pyast.Tuple:
		for _, elt := range v.Elts {
			out = append(out, recordKeys(elt)...)
		}
	}
	return out
}
