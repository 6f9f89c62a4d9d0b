package pyast

import "fmt"

// Parse parses source text into a Module. Syntax the parser cannot handle
// is reported as a *SyntaxError; no partial tree is returned.
func Parse(path string, src []byte) (mod *Module, err error) {
	tokens, err := tokenize(path, src)
	if err != nil {
		return nil, err
	}
	p := &parser{path: path, tokens: tokens}
	defer func() {
		if r := recover(); r != nil {
			b, ok := r.(bailout)
			if !ok {
				panic(r)
			}
			mod, err = nil, b.err
		}
	}()

	mod = &Module{Path: path}
	for p.tok().typ != tokEOF {
		if p.tok().typ == tokNewline {
			p.next()
			continue
		}
		mod.Body = append(mod.Body, p.parseStatement()...)
	}
	return mod, nil
}

// bailout carries a syntax error out of the recursive descent.
type bailout struct{ err error }

type parser struct {
	path   string
	tokens []token
	pos    int
}

var augOps = map[string]bool{
	"+=": true, "-=": true, "*=": true, "/=": true, "//=": true, "%=": true,
	"**=": true, ">>=": true, "<<=": true, "&=": true, "|=": true, "^=": true, "@=": true,
}

var compareOps = map[string]bool{
	"<": true, ">": true, "==": true, ">=": true, "<=": true, "!=": true,
}

// ---------------------------------------------------------------------------
// Statements
// ---------------------------------------------------------------------------

func (p *parser) parseStatement() []Stmt {
	t := p.tok()
	switch {
	case t.is(tokOp, "@"):
		return []Stmt{p.parseDecorated()}
	case t.typ == tokIndent:
		p.errorf(t.pos, "unexpected indent")
	case t.typ == tokName:
		switch t.value {
		case "def":
			return []Stmt{p.parseFunctionDef(nil, false)}
		case "class":
			return []Stmt{p.parseClassDef(nil)}
		case "if":
			return []Stmt{p.parseIf()}
		case "for":
			return []Stmt{p.parseFor(false)}
		case "while":
			return []Stmt{p.parseWhile()}
		case "with":
			return []Stmt{p.parseWith(false)}
		case "try":
			return []Stmt{p.parseTry()}
		case "async":
			p.next()
			switch {
			case p.isKeyword("def"):
				return []Stmt{p.parseFunctionDef(nil, true)}
			case p.isKeyword("for"):
				return []Stmt{p.parseFor(true)}
			case p.isKeyword("with"):
				return []Stmt{p.parseWith(true)}
			}
			p.unexpected()
		case "match":
			if p.isMatchStatement() {
				return []Stmt{p.parseMatch()}
			}
		}
	}
	return p.parseSimpleStatements()
}

func (p *parser) parseSimpleStatements() []Stmt {
	var out []Stmt
	for {
		out = append(out, p.parseSmallStatement())
		if !p.isOp(";") {
			break
		}
		p.next()
		if t := p.tok(); t.typ == tokNewline || t.typ == tokEOF {
			break
		}
	}
	p.expectNewline()
	return out
}

func (p *parser) parseSmallStatement() Stmt {
	t := p.tok()
	if t.typ == tokName {
		switch t.value {
		case "pass":
			p.next()
			return &Pass{KeywordPos: t.pos}
		case "break":
			p.next()
			return &Break{KeywordPos: t.pos}
		case "continue":
			p.next()
			return &Continue{KeywordPos: t.pos}
		case "return":
			p.next()
			ret := &Return{ReturnPos: t.pos}
			if !p.atExprEnd() {
				ret.Value = p.parseTestListStarExpr()
			}
			return ret
		case "raise":
			p.next()
			r := &Raise{RaisePos: t.pos}
			if !p.atExprEnd() {
				r.Exc = p.parseTest()
				if p.isKeyword("from") {
					p.next()
					r.Cause = p.parseTest()
				}
			}
			return r
		case "global", "nonlocal":
			p.next()
			g := &Global{KeywordPos: t.pos, Nonlocal: t.value == "nonlocal"}
			for {
				g.Names = append(g.Names, p.expectName().value)
				if !p.isOp(",") {
					break
				}
				p.next()
			}
			return g
		case "del":
			p.next()
			d := &Delete{DelPos: t.pos}
			target := p.parseTargetList()
			if tup, ok := target.(*Tuple); ok {
				d.Targets = tup.Elts
			} else {
				d.Targets = []Expr{target}
			}
			return d
		case "assert":
			p.next()
			a := &Assert{AssertPos: t.pos, Test: p.parseTest()}
			if p.isOp(",") {
				p.next()
				a.Msg = p.parseTest()
			}
			return a
		case "import":
			return p.parseImport()
		case "from":
			return p.parseImportFrom()
		case "type":
			if next := p.peek(1); next.typ == tokName && (p.peek(2).is(tokOp, "=") || p.peek(2).is(tokOp, "[")) {
				return p.parseTypeAlias()
			}
		}
	}
	return p.parseExprStatement()
}

func (p *parser) parseExprStatement() Stmt {
	var first Expr
	if p.isKeyword("yield") {
		first = p.parseYield()
	} else {
		first = p.parseTestListStarExpr()
	}

	if p.isOp(":") {
		p.next()
		ann := &AnnAssign{Target: first, Annotation: p.parseTest()}
		if p.isOp("=") {
			p.next()
			ann.Value = p.parseAssignValue()
		}
		return ann
	}
	if t := p.tok(); t.typ == tokOp && augOps[t.value] {
		p.next()
		return &AugAssign{Target: first, Op: t.value, Value: p.parseAssignValue()}
	}
	if p.isOp("=") {
		targets := []Expr{first}
		for p.isOp("=") {
			p.next()
			targets = append(targets, p.parseAssignValue())
		}
		return &Assign{Targets: targets[:len(targets)-1], Value: targets[len(targets)-1]}
	}
	return &ExprStmt{X: first}
}

func (p *parser) parseAssignValue() Expr {
	if p.isKeyword("yield") {
		return p.parseYield()
	}
	return p.parseTestListStarExpr()
}

// parseTypeAlias handles "type X[T] = value" as an assignment to X.
func (p *parser) parseTypeAlias() Stmt {
	p.next()
	name := p.expectName()
	if p.isOp("[") {
		p.skipBracketed()
	}
	p.expectOp("=")
	return &Assign{
		Targets: []Expr{&Name{NamePos: name.pos, ID: name.value}},
		Value:   p.parseTest(),
	}
}

func (p *parser) parseImport() Stmt {
	imp := &Import{ImportPos: p.next().pos}
	for {
		alias := &Alias{Name: p.parseDottedName()}
		if p.isKeyword("as") {
			p.next()
			alias.AsName = p.expectName().value
		}
		imp.Names = append(imp.Names, alias)
		if !p.isOp(",") {
			return imp
		}
		p.next()
	}
}

func (p *parser) parseImportFrom() Stmt {
	imp := &ImportFrom{FromPos: p.next().pos}
	for p.isOp(".") || p.isOp("...") {
		imp.Level += len(p.next().value)
	}
	if !p.isKeyword("import") {
		imp.Module = p.parseDottedName()
	}
	p.expectKeyword("import")

	if p.isOp("*") {
		p.next()
		imp.Names = []*Alias{{Name: "*"}}
		return imp
	}
	paren := p.isOp("(")
	if paren {
		p.next()
	}
	for {
		alias := &Alias{Name: p.expectName().value}
		if p.isKeyword("as") {
			p.next()
			alias.AsName = p.expectName().value
		}
		imp.Names = append(imp.Names, alias)
		if !p.isOp(",") {
			break
		}
		p.next()
		if paren && p.isOp(")") {
			break
		}
	}
	if paren {
		p.expectOp(")")
	}
	return imp
}

func (p *parser) parseDottedName() string {
	name := p.expectName().value
	for p.isOp(".") {
		p.next()
		name += "." + p.expectName().value
	}
	return name
}

func (p *parser) parseDecorated() Stmt {
	var decorators []Expr
	for p.isOp("@") {
		p.next()
		decorators = append(decorators, p.parseNamedExpr())
		p.expectNewline()
	}
	switch {
	case p.isKeyword("def"):
		return p.parseFunctionDef(decorators, false)
	case p.isKeyword("class"):
		return p.parseClassDef(decorators)
	case p.isKeyword("async"):
		p.next()
		return p.parseFunctionDef(decorators, true)
	}
	p.unexpected()
	return nil
}

func (p *parser) parseFunctionDef(decorators []Expr, isAsync bool) Stmt {
	fn := &FunctionDef{DefPos: p.expectKeyword("def").pos, Decorators: decorators, IsAsync: isAsync}
	fn.Name = p.expectName().value
	if p.isOp("[") {
		p.skipBracketed()
	}
	p.expectOp("(")
	fn.Args = p.parseParams(")", true)
	p.expectOp(")")
	if p.isOp("->") {
		p.next()
		fn.Returns = p.parseTest()
	}
	fn.Body = p.parseSuite()
	return fn
}

func (p *parser) parseClassDef(decorators []Expr) Stmt {
	cls := &ClassDef{ClassPos: p.expectKeyword("class").pos, Decorators: decorators}
	name := p.expectName()
	cls.Name = name.value
	if p.isOp("[") {
		p.skipBracketed()
	}
	if p.isOp("(") {
		call := p.parseCallArgs(&Name{NamePos: name.pos, ID: name.value})
		cls.Bases = call.Args
		cls.Keywords = call.Keywords
	}
	cls.Body = p.parseSuite()
	return cls
}

// parseParams parses a parameter list up to (not including) end.
// Annotations are only allowed in def signatures.
func (p *parser) parseParams(end string, annotations bool) *Arguments {
	args := &Arguments{}
	kind := ParamPositional
	for !p.isOp(end) {
		switch {
		case p.isOp("/"):
			p.next()
		case p.isOp("*"):
			p.next()
			if p.tok().typ == tokName {
				args.Params = append(args.Params, p.parseParam(ParamVarArgs, annotations))
			}
			kind = ParamKeywordOnly
		case p.isOp("**"):
			p.next()
			args.Params = append(args.Params, p.parseParam(ParamVarKeywords, annotations))
		default:
			param := p.parseParam(kind, annotations)
			if p.isOp("=") {
				p.next()
				param.Default = p.parseTest()
			}
			args.Params = append(args.Params, param)
		}
		if !p.isOp(",") {
			break
		}
		p.next()
	}
	return args
}

func (p *parser) parseParam(kind ParamKind, annotations bool) *Param {
	name := p.expectName()
	param := &Param{NamePos: name.pos, Name: name.value, Kind: kind}
	if annotations && p.isOp(":") {
		p.next()
		param.Annotation = p.parseTest()
	}
	return param
}

func (p *parser) parseSuite() []Stmt {
	p.expectOp(":")
	if p.tok().typ != tokNewline {
		return p.parseSimpleStatements()
	}
	p.next()
	if p.tok().typ != tokIndent {
		p.errorf(p.tok().pos, "expected an indented block")
	}
	p.next()
	var body []Stmt
	for p.tok().typ != tokDedent && p.tok().typ != tokEOF {
		if p.tok().typ == tokNewline {
			p.next()
			continue
		}
		body = append(body, p.parseStatement()...)
	}
	if p.tok().typ == tokDedent {
		p.next()
	}
	return body
}

func (p *parser) parseIf() Stmt {
	stmt := &If{IfPos: p.next().pos}
	stmt.Test = p.parseNamedExpr()
	stmt.Body = p.parseSuite()
	switch {
	case p.isKeyword("elif"):
		stmt.Orelse = []Stmt{p.parseIf()}
	case p.isKeyword("else"):
		p.next()
		stmt.Orelse = p.parseSuite()
	}
	return stmt
}

func (p *parser) parseFor(isAsync bool) Stmt {
	stmt := &For{ForPos: p.expectKeyword("for").pos, IsAsync: isAsync}
	stmt.Target = p.parseTargetList()
	p.expectKeyword("in")
	stmt.Iter = p.parseTestListStarExpr()
	stmt.Body = p.parseSuite()
	if p.isKeyword("else") {
		p.next()
		stmt.Orelse = p.parseSuite()
	}
	return stmt
}

func (p *parser) parseWhile() Stmt {
	stmt := &While{WhilePos: p.next().pos}
	stmt.Test = p.parseNamedExpr()
	stmt.Body = p.parseSuite()
	if p.isKeyword("else") {
		p.next()
		stmt.Orelse = p.parseSuite()
	}
	return stmt
}

func (p *parser) parseWith(isAsync bool) Stmt {
	stmt := &With{WithPos: p.expectKeyword("with").pos, IsAsync: isAsync}
	if p.isOp("(") && p.parenthesizedWithItems() {
		p.next()
		for !p.isOp(")") {
			stmt.Items = append(stmt.Items, p.parseWithItem())
			if !p.isOp(",") {
				break
			}
			p.next()
		}
		p.expectOp(")")
	} else {
		for {
			stmt.Items = append(stmt.Items, p.parseWithItem())
			if !p.isOp(",") {
				break
			}
			p.next()
		}
	}
	stmt.Body = p.parseSuite()
	return stmt
}

func (p *parser) parseWithItem() *WithItem {
	item := &WithItem{Context: p.parseTest()}
	if p.isKeyword("as") {
		p.next()
		item.Vars = p.parseTarget()
	}
	return item
}

// parenthesizedWithItems looks ahead from "(" to decide whether the
// parentheses group with-items ("with (a as b, c):") or open an expression.
func (p *parser) parenthesizedWithItems() bool {
	depth := 0
	sawAs := false
	for i := p.pos; i < len(p.tokens); i++ {
		t := p.tokens[i]
		switch {
		case t.typ == tokEOF, t.typ == tokNewline:
			return false
		case t.is(tokOp, "("), t.is(tokOp, "["), t.is(tokOp, "{"):
			depth++
		case t.is(tokOp, ")"), t.is(tokOp, "]"), t.is(tokOp, "}"):
			depth--
			if depth == 0 {
				return sawAs && i+1 < len(p.tokens) && p.tokens[i+1].is(tokOp, ":")
			}
		case depth == 1 && t.is(tokName, "as"):
			sawAs = true
		}
	}
	return false
}

func (p *parser) parseTry() Stmt {
	stmt := &Try{TryPos: p.next().pos}
	stmt.Body = p.parseSuite()
	for p.isKeyword("except") {
		h := &ExceptHandler{ExceptPos: p.next().pos}
		if p.isOp("*") {
			p.next()
		}
		if !p.isOp(":") {
			h.Type = p.parseTest()
			if p.isOp(",") {
				elts := []Expr{h.Type}
				for p.isOp(",") {
					p.next()
					elts = append(elts, p.parseTest())
				}
				h.Type = &Tuple{Start: elts[0].Pos(), Elts: elts}
			}
			if p.isKeyword("as") {
				p.next()
				h.Name = p.expectName().value
			}
		}
		h.Body = p.parseSuite()
		stmt.Handlers = append(stmt.Handlers, h)
	}
	if p.isKeyword("else") {
		p.next()
		stmt.Orelse = p.parseSuite()
	}
	if p.isKeyword("finally") {
		p.next()
		stmt.Finalbody = p.parseSuite()
	}
	if len(stmt.Handlers) == 0 && stmt.Finalbody == nil {
		p.errorf(p.tok().pos, "expected 'except' or 'finally' block")
	}
	return stmt
}

// isMatchStatement tells a soft-keyword match statement apart from an
// expression that uses "match" as a name.
func (p *parser) isMatchStatement() bool {
	next := p.peek(1)
	if next.typ == tokNewline || next.typ == tokEOF {
		return false
	}
	if next.typ == tokOp && (next.value == "=" || next.value == "." || next.value == ":" || next.value == "," || augOps[next.value]) {
		return false
	}
	for i := p.pos + 1; i < len(p.tokens); i++ {
		switch p.tokens[i].typ {
		case tokNewline:
			return p.tokens[i-1].is(tokOp, ":") && i+1 < len(p.tokens) && p.tokens[i+1].typ == tokIndent
		case tokEOF:
			return false
		}
	}
	return false
}

func (p *parser) parseMatch() Stmt {
	stmt := &Match{MatchPos: p.next().pos}
	stmt.Subject = p.parseTestListStarExpr()
	p.expectOp(":")
	p.expectNewline()
	if p.tok().typ != tokIndent {
		p.errorf(p.tok().pos, "expected an indented block")
	}
	p.next()
	for p.tok().typ != tokDedent && p.tok().typ != tokEOF {
		if p.tok().typ == tokNewline {
			p.next()
			continue
		}
		if !p.isKeyword("case") {
			p.unexpected()
		}
		c := &MatchCase{CasePos: p.next().pos}
		p.skipPattern()
		if p.isKeyword("if") {
			p.next()
			c.Guard = p.parseNamedExpr()
		}
		c.Body = p.parseSuite()
		stmt.Cases = append(stmt.Cases, c)
	}
	if p.tok().typ == tokDedent {
		p.next()
	}
	return stmt
}

// skipPattern consumes a case pattern up to its guard or colon.
func (p *parser) skipPattern() {
	depth := 0
	for {
		t := p.tok()
		switch {
		case t.typ == tokEOF, t.typ == tokNewline:
			p.unexpected()
		case depth == 0 && (t.is(tokOp, ":") || t.is(tokName, "if")):
			return
		case t.is(tokOp, "("), t.is(tokOp, "["), t.is(tokOp, "{"):
			depth++
		case t.is(tokOp, ")"), t.is(tokOp, "]"), t.is(tokOp, "}"):
			depth--
		}
		p.next()
	}
}

func (p *parser) skipBracketed() {
	depth := 0
	for {
		t := p.next()
		switch {
		case t.typ == tokEOF:
			p.unexpected()
		case t.is(tokOp, "["):
			depth++
		case t.is(tokOp, "]"):
			depth--
			if depth == 0 {
				return
			}
		}
	}
}

// ---------------------------------------------------------------------------
// Expressions
// ---------------------------------------------------------------------------

func (p *parser) parseTestListStarExpr() Expr {
	start := p.tok().pos
	first := p.parseStarOrNamed()
	if !p.isOp(",") {
		return first
	}
	elts := []Expr{first}
	for p.isOp(",") {
		p.next()
		if p.atExprEnd() {
			break
		}
		elts = append(elts, p.parseStarOrNamed())
	}
	return &Tuple{Start: start, Elts: elts}
}

func (p *parser) parseTargetList() Expr {
	start := p.tok().pos
	first := p.parseTarget()
	if !p.isOp(",") {
		return first
	}
	elts := []Expr{first}
	for p.isOp(",") {
		p.next()
		if p.atExprEnd() {
			break
		}
		elts = append(elts, p.parseTarget())
	}
	return &Tuple{Start: start, Elts: elts}
}

func (p *parser) parseTarget() Expr {
	if p.isOp("*") {
		star := p.next().pos
		return &Starred{Star: star, Value: p.parseBitOr()}
	}
	return p.parseBitOr()
}

func (p *parser) parseStarOrNamed() Expr {
	if p.isOp("*") {
		star := p.next().pos
		return &Starred{Star: star, Value: p.parseBitOr()}
	}
	return p.parseNamedExpr()
}

func (p *parser) parseNamedExpr() Expr {
	e := p.parseTest()
	if p.isOp(":=") {
		p.next()
		return &NamedExpr{Target: e, Value: p.parseTest()}
	}
	return e
}

func (p *parser) parseTest() Expr {
	if p.isKeyword("lambda") {
		return p.parseLambda()
	}
	e := p.parseOrTest()
	if p.isKeyword("if") {
		p.next()
		test := p.parseOrTest()
		p.expectKeyword("else")
		return &IfExp{Body: e, Test: test, Orelse: p.parseTest()}
	}
	return e
}

func (p *parser) parseLambda() Expr {
	lam := &Lambda{LambdaPos: p.next().pos}
	lam.Args = p.parseParams(":", false)
	p.expectOp(":")
	lam.Body = p.parseTest()
	return lam
}

func (p *parser) parseYield() Expr {
	y := &Yield{YieldPos: p.next().pos}
	if p.isKeyword("from") {
		p.next()
		y.From = true
		y.Value = p.parseTest()
		return y
	}
	if !p.atExprEnd() {
		y.Value = p.parseTestListStarExpr()
	}
	return y
}

func (p *parser) parseOrTest() Expr {
	return p.parseBoolOp("or", p.parseAndTest)
}

func (p *parser) parseAndTest() Expr {
	return p.parseBoolOp("and", p.parseNotTest)
}

func (p *parser) parseBoolOp(op string, operand func() Expr) Expr {
	first := operand()
	if !p.isKeyword(op) {
		return first
	}
	values := []Expr{first}
	for p.isKeyword(op) {
		p.next()
		values = append(values, operand())
	}
	return &BoolOp{Op: op, Values: values}
}

func (p *parser) parseNotTest() Expr {
	if p.isKeyword("not") {
		pos := p.next().pos
		return &UnaryOp{OpPos: pos, Op: "not", Operand: p.parseNotTest()}
	}
	return p.parseComparison()
}

func (p *parser) parseComparison() Expr {
	left := p.parseBitOr()
	cmp := &Compare{Left: left}
	for {
		t := p.tok()
		var op string
		switch {
		case t.typ == tokOp && compareOps[t.value]:
			op = t.value
			p.next()
		case t.is(tokName, "in"):
			op = "in"
			p.next()
		case t.is(tokName, "not") && p.peek(1).is(tokName, "in"):
			op = "not in"
			p.next()
			p.next()
		case t.is(tokName, "is"):
			p.next()
			op = "is"
			if p.isKeyword("not") {
				p.next()
				op = "is not"
			}
		}
		if op == "" {
			break
		}
		cmp.Ops = append(cmp.Ops, op)
		cmp.Comparators = append(cmp.Comparators, p.parseBitOr())
	}
	if len(cmp.Ops) == 0 {
		return left
	}
	return cmp
}

func (p *parser) parseBinary(operand func() Expr, ops ...string) Expr {
	left := operand()
	for {
		t := p.tok()
		if t.typ != tokOp || !containsOp(ops, t.value) {
			return left
		}
		p.next()
		left = &BinOp{Left: left, Op: t.value, Right: operand()}
	}
}

func (p *parser) parseBitOr() Expr  { return p.parseBinary(p.parseBitXor, "|") }
func (p *parser) parseBitXor() Expr { return p.parseBinary(p.parseBitAnd, "^") }
func (p *parser) parseBitAnd() Expr { return p.parseBinary(p.parseShift, "&") }
func (p *parser) parseShift() Expr  { return p.parseBinary(p.parseArith, "<<", ">>") }
func (p *parser) parseArith() Expr  { return p.parseBinary(p.parseTerm, "+", "-") }
func (p *parser) parseTerm() Expr {
	return p.parseBinary(p.parseFactor, "*", "/", "//", "%", "@")
}

func (p *parser) parseFactor() Expr {
	t := p.tok()
	if t.is(tokOp, "+") || t.is(tokOp, "-") || t.is(tokOp, "~") {
		p.next()
		return &UnaryOp{OpPos: t.pos, Op: t.value, Operand: p.parseFactor()}
	}
	return p.parsePower()
}

func (p *parser) parsePower() Expr {
	var e Expr
	if p.isKeyword("await") {
		pos := p.next().pos
		e = &Await{AwaitPos: pos, Value: p.parsePrimary()}
	} else {
		e = p.parsePrimary()
	}
	if p.isOp("**") {
		p.next()
		return &BinOp{Left: e, Op: "**", Right: p.parseFactor()}
	}
	return e
}

func (p *parser) parsePrimary() Expr {
	e := p.parseAtom()
	for {
		switch {
		case p.isOp("("):
			e = p.parseCallArgs(e)
		case p.isOp("["):
			lbrack := p.next().pos
			index := p.parseSubscriptList()
			p.expectOp("]")
			e = &Subscript{Value: e, Index: index, Lbrack: lbrack}
		case p.isOp("."):
			p.next()
			t := p.tok()
			if t.typ != tokName {
				p.unexpected()
			}
			p.next()
			e = &Attribute{Value: e, Attr: t.value, AttrPos: t.pos}
		default:
			return e
		}
	}
}

func (p *parser) parseCallArgs(fn Expr) *Call {
	call := &Call{Func: fn, Lparen: p.expectOp("(").pos}
	for !p.isOp(")") {
		switch {
		case p.isOp("*"):
			star := p.next().pos
			call.Args = append(call.Args, &Starred{Star: star, Value: p.parseTest()})
		case p.isOp("**"):
			pos := p.next().pos
			call.Keywords = append(call.Keywords, &Keyword{ArgPos: pos, Value: p.parseTest()})
		case p.tok().typ == tokName && p.peek(1).is(tokOp, "="):
			name := p.next()
			p.next()
			call.Keywords = append(call.Keywords, &Keyword{ArgPos: name.pos, Arg: name.value, Value: p.parseTest()})
		default:
			arg := p.parseNamedExpr()
			if p.isCompFor() {
				arg = &GeneratorExp{Start: arg.Pos(), Elt: arg, Generators: p.parseComprehensions()}
			}
			call.Args = append(call.Args, arg)
		}
		if !p.isOp(",") {
			break
		}
		p.next()
	}
	p.expectOp(")")
	return call
}

func (p *parser) parseSubscriptList() Expr {
	start := p.tok().pos
	first := p.parseSubscriptItem()
	if !p.isOp(",") {
		return first
	}
	elts := []Expr{first}
	for p.isOp(",") {
		p.next()
		if p.isOp("]") {
			break
		}
		elts = append(elts, p.parseSubscriptItem())
	}
	return &Tuple{Start: start, Elts: elts}
}

func (p *parser) parseSubscriptItem() Expr {
	var lower Expr
	if !p.isOp(":") {
		lower = p.parseStarOrNamed()
		if !p.isOp(":") {
			return lower
		}
	}
	sl := &Slice{Colon: p.next().pos, Lower: lower}
	if !p.isOp(":") && !p.isOp("]") && !p.isOp(",") {
		sl.Upper = p.parseTest()
	}
	if p.isOp(":") {
		p.next()
		if !p.isOp("]") && !p.isOp(",") {
			sl.Step = p.parseTest()
		}
	}
	return sl
}

func (p *parser) parseAtom() Expr {
	t := p.tok()
	switch t.typ {
	case tokName:
		switch t.value {
		case "True":
			p.next()
			return &Constant{ValuePos: t.pos, Kind: ConstTrue, Value: t.value}
		case "False":
			p.next()
			return &Constant{ValuePos: t.pos, Kind: ConstFalse, Value: t.value}
		case "None":
			p.next()
			return &Constant{ValuePos: t.pos, Kind: ConstNone, Value: t.value}
		}
		if reserved[t.value] {
			p.unexpected()
		}
		p.next()
		return &Name{NamePos: t.pos, ID: t.value}
	case tokNumber:
		p.next()
		return &Constant{ValuePos: t.pos, Kind: ConstNumber, Value: t.value}
	case tokString:
		return p.parseStrings()
	case tokOp:
		switch t.value {
		case "(":
			return p.parseParenAtom()
		case "[":
			return p.parseListAtom()
		case "{":
			return p.parseBraceAtom()
		case "...":
			p.next()
			return &Constant{ValuePos: t.pos, Kind: ConstEllipsis, Value: t.value}
		}
	}
	p.unexpected()
	return nil
}

// parseStrings joins adjacent string literals.
func (p *parser) parseStrings() Expr {
	start := p.tok().pos
	value := ""
	kind := strText
	for p.tok().typ == tokString {
		t := p.next()
		value += t.value
		if t.str == strFormat || (t.str == strBytes && kind != strFormat) {
			kind = t.str
		}
	}
	switch kind {
	case strFormat:
		return &FString{ValuePos: start, Raw: value}
	case strBytes:
		return &Constant{ValuePos: start, Kind: ConstBytes, Value: value}
	}
	return &Constant{ValuePos: start, Kind: ConstString, Value: value}
}

func (p *parser) parseParenAtom() Expr {
	lpar := p.next().pos
	if p.isOp(")") {
		p.next()
		return &Tuple{Start: lpar}
	}
	if p.isKeyword("yield") {
		y := p.parseYield()
		p.expectOp(")")
		return y
	}
	first := p.parseStarOrNamed()
	if p.isCompFor() {
		gen := &GeneratorExp{Start: lpar, Elt: first, Generators: p.parseComprehensions()}
		p.expectOp(")")
		return gen
	}
	if !p.isOp(",") {
		p.expectOp(")")
		return first
	}
	elts := []Expr{first}
	for p.isOp(",") {
		p.next()
		if p.isOp(")") {
			break
		}
		elts = append(elts, p.parseStarOrNamed())
	}
	p.expectOp(")")
	return &Tuple{Start: lpar, Elts: elts}
}

func (p *parser) parseListAtom() Expr {
	lbrack := p.next().pos
	if p.isOp("]") {
		p.next()
		return &List{Lbrack: lbrack}
	}
	first := p.parseStarOrNamed()
	if p.isCompFor() {
		comp := &ListComp{Lbrack: lbrack, Elt: first, Generators: p.parseComprehensions()}
		p.expectOp("]")
		return comp
	}
	list := &List{Lbrack: lbrack, Elts: []Expr{first}}
	for p.isOp(",") {
		p.next()
		if p.isOp("]") {
			break
		}
		list.Elts = append(list.Elts, p.parseStarOrNamed())
	}
	p.expectOp("]")
	return list
}

func (p *parser) parseBraceAtom() Expr {
	lbrace := p.next().pos
	if p.isOp("}") {
		p.next()
		return &Dict{Lbrace: lbrace}
	}
	if p.isOp("**") {
		p.next()
		return p.parseDictRest(&Dict{Lbrace: lbrace, Keys: []Expr{nil}, Values: []Expr{p.parseBitOr()}})
	}

	first := p.parseStarOrNamed()
	if p.isOp(":") {
		p.next()
		value := p.parseTest()
		if p.isCompFor() {
			comp := &DictComp{Lbrace: lbrace, Key: first, Value: value, Generators: p.parseComprehensions()}
			p.expectOp("}")
			return comp
		}
		return p.parseDictRest(&Dict{Lbrace: lbrace, Keys: []Expr{first}, Values: []Expr{value}})
	}

	if p.isCompFor() {
		comp := &SetComp{Lbrace: lbrace, Elt: first, Generators: p.parseComprehensions()}
		p.expectOp("}")
		return comp
	}
	set := &Set{Lbrace: lbrace, Elts: []Expr{first}}
	for p.isOp(",") {
		p.next()
		if p.isOp("}") {
			break
		}
		set.Elts = append(set.Elts, p.parseStarOrNamed())
	}
	p.expectOp("}")
	return set
}

// parseDictRest parses the remaining "key: value" or "**mapping" entries
// after the first one.
func (p *parser) parseDictRest(d *Dict) Expr {
	for p.isOp(",") {
		p.next()
		if p.isOp("}") {
			break
		}
		if p.isOp("**") {
			p.next()
			d.Keys = append(d.Keys, nil)
			d.Values = append(d.Values, p.parseBitOr())
			continue
		}
		key := p.parseTest()
		p.expectOp(":")
		d.Keys = append(d.Keys, key)
		d.Values = append(d.Values, p.parseTest())
	}
	p.expectOp("}")
	return d
}

func (p *parser) isCompFor() bool {
	return p.isKeyword("for") || (p.isKeyword("async") && p.peek(1).is(tokName, "for"))
}

func (p *parser) parseComprehensions() []*Comprehension {
	var gens []*Comprehension
	for p.isCompFor() {
		c := &Comprehension{}
		if p.isKeyword("async") {
			p.next()
			c.IsAsync = true
		}
		c.ForPos = p.expectKeyword("for").pos
		c.Target = p.parseTargetList()
		p.expectKeyword("in")
		c.Iter = p.parseOrTest()
		for p.isKeyword("if") {
			p.next()
			c.Ifs = append(c.Ifs, p.parseOrTest())
		}
		gens = append(gens, c)
	}
	return gens
}

// ---------------------------------------------------------------------------
// Token helpers
// ---------------------------------------------------------------------------

func (p *parser) tok() token { return p.tokens[p.pos] }

func (p *parser) peek(n int) token {
	if p.pos+n < len(p.tokens) {
		return p.tokens[p.pos+n]
	}
	return p.tokens[len(p.tokens)-1]
}

func (p *parser) next() token {
	t := p.tokens[p.pos]
	if t.typ != tokEOF {
		p.pos++
	}
	return t
}

func (p *parser) isOp(op string) bool { return p.tok().is(tokOp, op) }

func (p *parser) isKeyword(kw string) bool { return p.tok().is(tokName, kw) }

func (p *parser) atExprEnd() bool {
	t := p.tok()
	switch t.typ {
	case tokNewline, tokEOF, tokIndent, tokDedent:
		return true
	case tokOp:
		switch t.value {
		case ")", "]", "}", "=", ":", ";", "->":
			return true
		}
		return augOps[t.value]
	case tokName:
		return t.value == "in"
	}
	return false
}

func (p *parser) expectOp(op string) token {
	if !p.isOp(op) {
		p.errorf(p.tok().pos, "expected '%s', found %s", op, p.tok().describe())
	}
	return p.next()
}

func (p *parser) expectKeyword(kw string) token {
	if !p.isKeyword(kw) {
		p.errorf(p.tok().pos, "expected '%s', found %s", kw, p.tok().describe())
	}
	return p.next()
}

func (p *parser) expectName() token {
	t := p.tok()
	if t.typ != tokName || reserved[t.value] {
		p.errorf(t.pos, "expected a name, found %s", t.describe())
	}
	return p.next()
}

func (p *parser) expectNewline() {
	switch p.tok().typ {
	case tokNewline:
		p.next()
	case tokEOF:
	default:
		p.unexpected()
	}
}

func (p *parser) unexpected() {
	t := p.tok()
	p.errorf(t.pos, "invalid syntax: unexpected %s", t.describe())
}

func (p *parser) errorf(pos Pos, format string, args ...interface{}) {
	panic(bailout{err: &SyntaxError{Path: p.path, Pos: pos, Msg: fmt.Sprintf(format, args...)}})
}

func containsOp(ops []string, op string) bool {
	for _, o := range ops {
		if o == op {
			return true
		}
	}
	return false
}
