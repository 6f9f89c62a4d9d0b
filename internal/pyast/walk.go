package pyast

// Children returns the direct child nodes of n in source order.
func Children(n Node) []Node {
	var out []Node
	expr := func(e Expr) {
		if e != nil {
			out = append(out, e)
		}
	}
	exprs := func(list []Expr) {
		for _, e := range list {
			expr(e)
		}
	}
	stmts := func(list []Stmt) {
		for _, s := range list {
			out = append(out, s)
		}
	}
	keywords := func(list []*Keyword) {
		for _, kw := range list {
			out = append(out, kw)
		}
	}
	args := func(a *Arguments) {
		if a == nil {
			return
		}
		for _, param := range a.Params {
			out = append(out, param)
		}
	}
	generators := func(list []*Comprehension) {
		for _, g := range list {
			out = append(out, g)
		}
	}

	switch n := n.(type) {
	case *Module:
		stmts(n.Body)
	case *FunctionDef:
		exprs(n.Decorators)
		args(n.Args)
		expr(n.Returns)
		stmts(n.Body)
	case *ClassDef:
		exprs(n.Decorators)
		exprs(n.Bases)
		keywords(n.Keywords)
		stmts(n.Body)
	case *Param:
		expr(n.Annotation)
		expr(n.Default)
	case *Return:
		expr(n.Value)
	case *Assign:
		exprs(n.Targets)
		expr(n.Value)
	case *AugAssign:
		expr(n.Target)
		expr(n.Value)
	case *AnnAssign:
		expr(n.Target)
		expr(n.Annotation)
		expr(n.Value)
	case *ExprStmt:
		expr(n.X)
	case *If:
		expr(n.Test)
		stmts(n.Body)
		stmts(n.Orelse)
	case *For:
		expr(n.Target)
		expr(n.Iter)
		stmts(n.Body)
		stmts(n.Orelse)
	case *While:
		expr(n.Test)
		stmts(n.Body)
		stmts(n.Orelse)
	case *With:
		for _, item := range n.Items {
			out = append(out, item)
		}
		stmts(n.Body)
	case *WithItem:
		expr(n.Context)
		expr(n.Vars)
	case *Try:
		stmts(n.Body)
		for _, h := range n.Handlers {
			out = append(out, h)
		}
		stmts(n.Orelse)
		stmts(n.Finalbody)
	case *ExceptHandler:
		expr(n.Type)
		stmts(n.Body)
	case *Raise:
		expr(n.Exc)
		expr(n.Cause)
	case *Assert:
		expr(n.Test)
		expr(n.Msg)
	case *Delete:
		exprs(n.Targets)
	case *Match:
		expr(n.Subject)
		for _, c := range n.Cases {
			out = append(out, c)
		}
	case *MatchCase:
		expr(n.Guard)
		stmts(n.Body)

	case *Attribute:
		expr(n.Value)
	case *Call:
		expr(n.Func)
		exprs(n.Args)
		keywords(n.Keywords)
	case *Keyword:
		expr(n.Value)
	case *Subscript:
		expr(n.Value)
		expr(n.Index)
	case *Slice:
		expr(n.Lower)
		expr(n.Upper)
		expr(n.Step)
	case *Dict:
		for i := range n.Values {
			expr(n.Keys[i])
			expr(n.Values[i])
		}
	case *Set:
		exprs(n.Elts)
	case *List:
		exprs(n.Elts)
	case *Tuple:
		exprs(n.Elts)
	case *Starred:
		expr(n.Value)
	case *BinOp:
		expr(n.Left)
		expr(n.Right)
	case *UnaryOp:
		expr(n.Operand)
	case *BoolOp:
		exprs(n.Values)
	case *Compare:
		expr(n.Left)
		exprs(n.Comparators)
	case *IfExp:
		expr(n.Body)
		expr(n.Test)
		expr(n.Orelse)
	case *Lambda:
		args(n.Args)
		expr(n.Body)
	case *Comprehension:
		expr(n.Target)
		expr(n.Iter)
		exprs(n.Ifs)
	case *ListComp:
		expr(n.Elt)
		generators(n.Generators)
	case *SetComp:
		expr(n.Elt)
		generators(n.Generators)
	case *GeneratorExp:
		expr(n.Elt)
		generators(n.Generators)
	case *DictComp:
		expr(n.Key)
		expr(n.Value)
		generators(n.Generators)
	case *Await:
		expr(n.Value)
	case *Yield:
		expr(n.Value)
	case *NamedExpr:
		expr(n.Target)
		expr(n.Value)
	}
	return out
}

// Inspect traverses the tree in depth-first order, calling f for each node.
// When f returns false the children of that node are skipped.
func Inspect(n Node, f func(Node) bool) {
	if n == nil || !f(n) {
		return
	}
	for _, c := range Children(n) {
		Inspect(c, f)
	}
}

// Functions returns every function definition in the module, including
// methods and nested functions, in source order.
func Functions(mod *Module) []*FunctionDef {
	var out []*FunctionDef
	Inspect(mod, func(n Node) bool {
		if fn, ok := n.(*FunctionDef); ok {
			out = append(out, fn)
		}
		return true
	})
	return out
}
