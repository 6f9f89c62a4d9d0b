// Package keyusage records how handler code spells the keys of the records it
// builds and reads.
package keyusage

import (
	"sort"

	"github.com/faucetdb/driftguard/internal/model"
	"github.com/faucetdb/driftguard/internal/pyast"
)

// readMethods read a key from a mapping when called with a constant string.
var readMethods = map[string]bool{
	"get":        true,
	"pop":        true,
	"setdefault": true,
}

// Analyze returns the key events of a parsed module ordered by line. Events
// inside a def carry that function's name; module-level events carry none.
func Analyze(mod *pyast.Module) []model.KeyEvent {
	events := visit(mod, "")
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Line < events[j].Line
	})
	return events
}

func event(key string, kind model.KeyKind, fn string, pos pyast.Pos) model.KeyEvent {
	return model.KeyEvent{Key: key, Kind: kind, Function: fn, Line: pos.Line}
}

// visit returns the events under n in the scope of function fn.
func visit(n pyast.Node, fn string) []model.KeyEvent {
	if n == nil {
		return nil
	}
	var out []model.KeyEvent
	switch n := n.(type) {
	case *pyast.FunctionDef:
		for _, d := range n.Decorators {
			out = append(out, visit(d, fn)...)
		}
		if n.Args != nil {
			for _, p := range n.Args.Params {
				out = append(out, visit(p, fn)...)
			}
		}
		if n.Returns != nil {
			out = append(out, visit(n.Returns, fn)...)
		}
		for _, s := range n.Body {
			out = append(out, visit(s, n.Name)...)
		}
		return out

	case *pyast.Assign:
		for _, t := range n.Targets {
			out = append(out, target(t, fn)...)
		}
		return append(out, visit(n.Value, fn)...)
	case *pyast.AugAssign:
		out = append(out, target(n.Target, fn)...)
		return append(out, visit(n.Value, fn)...)
	case *pyast.AnnAssign:
		out = append(out, target(n.Target, fn)...)
		if n.Annotation != nil {
			out = append(out, visit(n.Annotation, fn)...)
		}
		if n.Value != nil {
			out = append(out, visit(n.Value, fn)...)
		}
		return out
	case *pyast.For:
		out = append(out, target(n.Target, fn)...)
		out = append(out, visit(n.Iter, fn)...)
		for _, s := range n.Body {
			out = append(out, visit(s, fn)...)
		}
		for _, s := range n.Orelse {
			out = append(out, visit(s, fn)...)
		}
		return out
	case *pyast.WithItem:
		out = append(out, visit(n.Context, fn)...)
		if n.Vars != nil {
			out = append(out, target(n.Vars, fn)...)
		}
		return out
	case *pyast.Delete:
		// del x["k"] neither reads nor writes the key.
		for _, t := range n.Targets {
			if s, ok := t.(*pyast.Subscript); ok {
				out = append(out, visit(s.Value, fn)...)
				continue
			}
			out = append(out, visit(t, fn)...)
		}
		return out

	case *pyast.Subscript:
		if key, ok := pyast.StringValue(n.Index); ok {
			out = append(out, event(key, model.KeySubscriptRead, fn, n.Index.Pos()))
		}
	case *pyast.Dict:
		for _, k := range n.Keys {
			if key, ok := pyast.StringValue(k); ok {
				out = append(out, event(key, model.KeyLiteralWrite, fn, k.Pos()))
			}
		}
	case *pyast.Call:
		out = append(out, callEvents(n, fn)...)
	}

	for _, c := range pyast.Children(n) {
		out = append(out, visit(c, fn)...)
	}
	return out
}

func callEvents(call *pyast.Call, fn string) []model.KeyEvent {
	var out []model.KeyEvent
	switch f := call.Func.(type) {
	case *pyast.Name:
		if f.ID != "dict" {
			return nil
		}
		for _, kw := range call.Keywords {
			if kw.Arg != "" {
				out = append(out, event(kw.Arg, model.KeyLiteralWrite, fn, kw.ArgPos))
			}
		}
	case *pyast.Attribute:
		if !readMethods[f.Attr] || len(call.Args) == 0 {
			return nil
		}
		if key, ok := pyast.StringValue(call.Args[0]); ok {
			out = append(out, event(key, model.KeyGetRead, fn, call.Args[0].Pos()))
		}
	}
	return out
}

// target returns the events of an assignment target. A constant-string
// subscript there writes its key; the subscripted value is still read.
func target(e pyast.Expr, fn string) []model.KeyEvent {
	switch t := e.(type) {
	case *pyast.Subscript:
		var out []model.KeyEvent
		if key, ok := pyast.StringValue(t.Index); ok {
			out = append(out, event(key, model.KeySubscriptWrite, fn, t.Index.Pos()))
		} else {
			out = append(out, visit(t.Index, fn)...)
		}
		return append(out, visit(t.Value, fn)...)
	case *pyast.Tuple:
		var out []model.KeyEvent
		for _, elt := range t.Elts {
			out = append(out, target(elt, fn)...)
		}
		return out
	case *pyast.List:
		var out []model.KeyEvent
		for _, elt := range t.Elts {
			out = append(out, target(elt, fn)...)
		}
		return out
	case *pyast.Starred:
		return target(t.Value, fn)
	}
	return visit(e, fn)
}
