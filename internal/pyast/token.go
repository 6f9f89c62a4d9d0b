package pyast

import "fmt"

// Pos is a 1-based line and column in the source file.
type Pos struct {
	Line int `json:"line"`
	Col  int `json:"col"`
}

func (p Pos) String() string { return fmt.Sprintf("%d:%d", p.Line, p.Col) }

// SyntaxError reports source that could not be tokenized or parsed.
type SyntaxError struct {
	Path string
	Pos  Pos
	Msg  string
}

func (e *SyntaxError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("%d:%d: %s", e.Pos.Line, e.Pos.Col, e.Msg)
	}
	return fmt.Sprintf("%s:%d:%d: %s", e.Path, e.Pos.Line, e.Pos.Col, e.Msg)
}

// ---------------------------------------------------------------------------
// Token types
// ---------------------------------------------------------------------------

type tokenType int

const (
	tokEOF tokenType = iota
	tokNewline
	tokIndent
	tokDedent
	tokName
	tokNumber
	tokString
	tokOp
)

func (t tokenType) String() string {
	switch t {
	case tokEOF:
		return "end of file"
	case tokNewline:
		return "newline"
	case tokIndent:
		return "indent"
	case tokDedent:
		return "dedent"
	case tokName:
		return "name"
	case tokNumber:
		return "number"
	case tokString:
		return "string"
	}
	return "operator"
}

// strKind distinguishes string literal flavors.
type strKind int

const (
	strText strKind = iota
	strBytes
	strFormat
)

type token struct {
	typ   tokenType
	value string // Raw text; decoded contents for string tokens.
	pos   Pos
	str   strKind
}

func (t token) is(typ tokenType, value string) bool {
	return t.typ == typ && t.value == value
}

func (t token) describe() string {
	switch t.typ {
	case tokName, tokOp, tokNumber:
		return fmt.Sprintf("%q", t.value)
	}
	return t.typ.String()
}

// reserved words cannot be used as identifiers.
var reserved = map[string]bool{
	"False": true, "None": true, "True": true, "and": true, "as": true,
	"assert": true, "async": true, "await": true, "break": true, "class": true,
	"continue": true, "def": true, "del": true, "elif": true, "else": true,
	"except": true, "finally": true, "for": true, "from": true, "global": true,
	"if": true, "import": true, "in": true, "is": true, "lambda": true,
	"nonlocal": true, "not": true, "or": true, "pass": true, "raise": true,
	"return": true, "try": true, "while": true, "with": true, "yield": true,
}
