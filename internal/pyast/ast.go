package pyast

// Node is any syntax tree node.
type Node interface {
	Pos() Pos
}

// Expr is an expression node.
type Expr interface {
	Node
	exprNode()
}

// Stmt is a statement node.
type Stmt interface {
	Node
	stmtNode()
}

// ---------------------------------------------------------------------------
// Expressions
// ---------------------------------------------------------------------------

// ConstKind classifies constant literals.
type ConstKind int

const (
	ConstString ConstKind = iota
	ConstBytes
	ConstNumber
	ConstTrue
	ConstFalse
	ConstNone
	ConstEllipsis
)

type (
	// Name is a bare identifier.
	Name struct {
		NamePos Pos
		ID      string
	}

	// Constant is a literal. String values are decoded; adjacent literals
	// are concatenated.
	Constant struct {
		ValuePos Pos
		Kind     ConstKind
		Value    string
	}

	// FString is an f-string. Its value is not a constant.
	FString struct {
		ValuePos Pos
		Raw      string
	}

	// Attribute is Value.Attr.
	Attribute struct {
		Value   Expr
		Attr    string
		AttrPos Pos
	}

	// Call is Func(Args..., Keywords...).
	Call struct {
		Func     Expr
		Args     []Expr
		Keywords []*Keyword
		Lparen   Pos
	}

	// Keyword is a name=value call argument. Arg is empty for **value.
	Keyword struct {
		ArgPos Pos
		Arg    string
		Value  Expr
	}

	// Subscript is Value[Index].
	Subscript struct {
		Value  Expr
		Index  Expr
		Lbrack Pos
	}

	// Slice is lower:upper:step inside a subscript.
	Slice struct {
		Colon Pos
		Lower Expr
		Upper Expr
		Step  Expr
	}

	// Dict is a dict display. A nil key marks a **mapping entry.
	Dict struct {
		Lbrace Pos
		Keys   []Expr
		Values []Expr
	}

	Set struct {
		Lbrace Pos
		Elts   []Expr
	}

	List struct {
		Lbrack Pos
		Elts   []Expr
	}

	Tuple struct {
		Start Pos
		Elts  []Expr
	}

	Starred struct {
		Star  Pos
		Value Expr
	}

	BinOp struct {
		Left  Expr
		Op    string
		Right Expr
	}

	UnaryOp struct {
		OpPos   Pos
		Op      string
		Operand Expr
	}

	BoolOp struct {
		Op     string
		Values []Expr
	}

	Compare struct {
		Left        Expr
		Ops         []string
		Comparators []Expr
	}

	IfExp struct {
		Body   Expr
		Test   Expr
		Orelse Expr
	}

	Lambda struct {
		LambdaPos Pos
		Args      *Arguments
		Body      Expr
	}

	// Comprehension is one "for target in iter if ..." clause.
	Comprehension struct {
		ForPos  Pos
		Target  Expr
		Iter    Expr
		Ifs     []Expr
		IsAsync bool
	}

	ListComp struct {
		Lbrack     Pos
		Elt        Expr
		Generators []*Comprehension
	}

	SetComp struct {
		Lbrace     Pos
		Elt        Expr
		Generators []*Comprehension
	}

	GeneratorExp struct {
		Start      Pos
		Elt        Expr
		Generators []*Comprehension
	}

	DictComp struct {
		Lbrace     Pos
		Key        Expr
		Value      Expr
		Generators []*Comprehension
	}

	Await struct {
		AwaitPos Pos
		Value    Expr
	}

	// Yield is "yield value" or, with From set, "yield from value".
	Yield struct {
		YieldPos Pos
		Value    Expr
		From     bool
	}

	// NamedExpr is target := value.
	NamedExpr struct {
		Target Expr
		Value  Expr
	}
)

func (x *Name) Pos() Pos          { return x.NamePos }
func (x *Constant) Pos() Pos      { return x.ValuePos }
func (x *FString) Pos() Pos       { return x.ValuePos }
func (x *Attribute) Pos() Pos     { return x.Value.Pos() }
func (x *Call) Pos() Pos          { return x.Func.Pos() }
func (x *Keyword) Pos() Pos       { return x.ArgPos }
func (x *Subscript) Pos() Pos     { return x.Value.Pos() }
func (x *Slice) Pos() Pos         { return x.Colon }
func (x *Dict) Pos() Pos          { return x.Lbrace }
func (x *Set) Pos() Pos           { return x.Lbrace }
func (x *List) Pos() Pos          { return x.Lbrack }
func (x *Tuple) Pos() Pos         { return x.Start }
func (x *Starred) Pos() Pos       { return x.Star }
func (x *BinOp) Pos() Pos         { return x.Left.Pos() }
func (x *UnaryOp) Pos() Pos       { return x.OpPos }
func (x *BoolOp) Pos() Pos        { return x.Values[0].Pos() }
func (x *Compare) Pos() Pos       { return x.Left.Pos() }
func (x *IfExp) Pos() Pos         { return x.Body.Pos() }
func (x *Lambda) Pos() Pos        { return x.LambdaPos }
func (x *Comprehension) Pos() Pos { return x.ForPos }
func (x *ListComp) Pos() Pos      { return x.Lbrack }
func (x *SetComp) Pos() Pos       { return x.Lbrace }
func (x *GeneratorExp) Pos() Pos  { return x.Start }
func (x *DictComp) Pos() Pos      { return x.Lbrace }
func (x *Await) Pos() Pos         { return x.AwaitPos }
func (x *Yield) Pos() Pos         { return x.YieldPos }
func (x *NamedExpr) Pos() Pos     { return x.Target.Pos() }

func (*Name) exprNode()         {}
func (*Constant) exprNode()     {}
func (*FString) exprNode()      {}
func (*Attribute) exprNode()    {}
func (*Call) exprNode()         {}
func (*Subscript) exprNode()    {}
func (*Slice) exprNode()        {}
func (*Dict) exprNode()         {}
func (*Set) exprNode()          {}
func (*List) exprNode()         {}
func (*Tuple) exprNode()        {}
func (*Starred) exprNode()      {}
func (*BinOp) exprNode()        {}
func (*UnaryOp) exprNode()      {}
func (*BoolOp) exprNode()       {}
func (*Compare) exprNode()      {}
func (*IfExp) exprNode()        {}
func (*Lambda) exprNode()       {}
func (*ListComp) exprNode()     {}
func (*SetComp) exprNode()      {}
func (*GeneratorExp) exprNode() {}
func (*DictComp) exprNode()     {}
func (*Await) exprNode()        {}
func (*Yield) exprNode()        {}
func (*NamedExpr) exprNode()    {}

// StringValue returns the value of a constant string expression.
func StringValue(e Expr) (string, bool) {
	c, ok := e.(*Constant)
	if !ok || c.Kind != ConstString {
		return "", false
	}
	return c.Value, true
}

// CalleeName returns the called function or method name: "f" for f(...) and
// "m" for x.m(...).
func CalleeName(c *Call) string {
	switch fn := c.Func.(type) {
	case *Name:
		return fn.ID
	case *Attribute:
		return fn.Attr
	}
	return ""
}

// CalleePos is the position of the called name, which for a chained method
// call may sit on a later line than the receiver.
func CalleePos(c *Call) Pos {
	if a, ok := c.Func.(*Attribute); ok {
		return a.AttrPos
	}
	return c.Func.Pos()
}

// KeywordValue returns the value of the named keyword argument. When a
// keyword repeats, the last occurrence wins.
func (x *Call) KeywordValue(name string) (Expr, bool) {
	var found Expr
	for _, kw := range x.Keywords {
		if kw.Arg == name {
			found = kw.Value
		}
	}
	return found, found != nil
}

// ---------------------------------------------------------------------------
// Function arguments
// ---------------------------------------------------------------------------

// ParamKind distinguishes parameter flavors.
type ParamKind int

const (
	ParamPositional ParamKind = iota
	ParamVarArgs
	ParamKeywordOnly
	ParamVarKeywords
)

// Param is a single declared parameter.
type Param struct {
	NamePos    Pos
	Name       string
	Kind       ParamKind
	Annotation Expr
	Default    Expr
}

func (x *Param) Pos() Pos { return x.NamePos }

// Arguments is a function or lambda parameter list.
type Arguments struct {
	Params []*Param
}

// ---------------------------------------------------------------------------
// Statements
// ---------------------------------------------------------------------------

type (
	// Module is a parsed source file.
	Module struct {
		Path string
		Body []Stmt
	}

	FunctionDef struct {
		DefPos     Pos
		Name       string
		Args       *Arguments
		Returns    Expr
		Body       []Stmt
		Decorators []Expr
		IsAsync    bool
	}

	ClassDef struct {
		ClassPos   Pos
		Name       string
		Bases      []Expr
		Keywords   []*Keyword
		Body       []Stmt
		Decorators []Expr
	}

	Return struct {
		ReturnPos Pos
		Value     Expr
	}

	Assign struct {
		Targets []Expr
		Value   Expr
	}

	AugAssign struct {
		Target Expr
		Op     string
		Value  Expr
	}

	AnnAssign struct {
		Target     Expr
		Annotation Expr
		Value      Expr
	}

	ExprStmt struct {
		X Expr
	}

	If struct {
		IfPos  Pos
		Test   Expr
		Body   []Stmt
		Orelse []Stmt
	}

	For struct {
		ForPos  Pos
		Target  Expr
		Iter    Expr
		Body    []Stmt
		Orelse  []Stmt
		IsAsync bool
	}

	While struct {
		WhilePos Pos
		Test     Expr
		Body     []Stmt
		Orelse   []Stmt
	}

	WithItem struct {
		Context Expr
		Vars    Expr
	}

	With struct {
		WithPos Pos
		Items   []*WithItem
		Body    []Stmt
		IsAsync bool
	}

	ExceptHandler struct {
		ExceptPos Pos
		Type      Expr
		Name      string
		Body      []Stmt
	}

	Try struct {
		TryPos    Pos
		Body      []Stmt
		Handlers  []*ExceptHandler
		Orelse    []Stmt
		Finalbody []Stmt
	}

	Raise struct {
		RaisePos Pos
		Exc      Expr
		Cause    Expr
	}

	Assert struct {
		AssertPos Pos
		Test      Expr
		Msg       Expr
	}

	Delete struct {
		DelPos  Pos
		Targets []Expr
	}

	// Pass, Break and Continue carry only their keyword.
	Pass struct {
		KeywordPos Pos
	}
	Break struct {
		KeywordPos Pos
	}
	Continue struct {
		KeywordPos Pos
	}

	Alias struct {
		Name   string
		AsName string
	}

	Import struct {
		ImportPos Pos
		Names     []*Alias
	}

	ImportFrom struct {
		FromPos Pos
		Module  string
		Level   int
		Names   []*Alias
	}

	// Global also represents nonlocal declarations.
	Global struct {
		KeywordPos Pos
		Nonlocal   bool
		Names      []string
	}

	// MatchCase keeps only the guard and body; patterns are skipped.
	MatchCase struct {
		CasePos Pos
		Guard   Expr
		Body    []Stmt
	}

	Match struct {
		MatchPos Pos
		Subject  Expr
		Cases    []*MatchCase
	}
)

func (s *Module) Pos() Pos        { return Pos{Line: 1, Col: 1} }
func (s *FunctionDef) Pos() Pos   { return s.DefPos }
func (s *ClassDef) Pos() Pos      { return s.ClassPos }
func (s *Return) Pos() Pos        { return s.ReturnPos }
func (s *Assign) Pos() Pos        { return s.Targets[0].Pos() }
func (s *AugAssign) Pos() Pos     { return s.Target.Pos() }
func (s *AnnAssign) Pos() Pos     { return s.Target.Pos() }
func (s *ExprStmt) Pos() Pos      { return s.X.Pos() }
func (s *If) Pos() Pos            { return s.IfPos }
func (s *For) Pos() Pos           { return s.ForPos }
func (s *While) Pos() Pos         { return s.WhilePos }
func (s *WithItem) Pos() Pos      { return s.Context.Pos() }
func (s *With) Pos() Pos          { return s.WithPos }
func (s *ExceptHandler) Pos() Pos { return s.ExceptPos }
func (s *Try) Pos() Pos           { return s.TryPos }
func (s *Raise) Pos() Pos         { return s.RaisePos }
func (s *Assert) Pos() Pos        { return s.AssertPos }
func (s *Delete) Pos() Pos        { return s.DelPos }
func (s *Pass) Pos() Pos          { return s.KeywordPos }
func (s *Break) Pos() Pos         { return s.KeywordPos }
func (s *Continue) Pos() Pos      { return s.KeywordPos }
func (s *Import) Pos() Pos        { return s.ImportPos }
func (s *ImportFrom) Pos() Pos    { return s.FromPos }
func (s *Global) Pos() Pos        { return s.KeywordPos }
func (s *MatchCase) Pos() Pos     { return s.CasePos }
func (s *Match) Pos() Pos         { return s.MatchPos }

func (*FunctionDef) stmtNode() {}
func (*ClassDef) stmtNode()    {}
func (*Return) stmtNode()      {}
func (*Assign) stmtNode()      {}
func (*AugAssign) stmtNode()   {}
func (*AnnAssign) stmtNode()   {}
func (*ExprStmt) stmtNode()    {}
func (*If) stmtNode()          {}
func (*For) stmtNode()         {}
func (*While) stmtNode()       {}
func (*With) stmtNode()        {}
func (*Try) stmtNode()         {}
func (*Raise) stmtNode()       {}
func (*Assert) stmtNode()      {}
func (*Delete) stmtNode()      {}
func (*Pass) stmtNode()        {}
func (*Break) stmtNode()       {}
func (*Continue) stmtNode()    {}
func (*Import) stmtNode()      {}
func (*ImportFrom) stmtNode()  {}
func (*Global) stmtNode()      {}
func (*Match) stmtNode()       {}
