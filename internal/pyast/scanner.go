package pyast

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// ---------------------------------------------------------------------------
// Tokenizer
// ---------------------------------------------------------------------------

type bracket struct {
	ch  rune
	pos Pos
}

type scanner struct {
	path string
	src  []rune
	off  int
	line int
	col  int

	tokens        []token
	indents       []int
	brackets      []bracket
	atLineStart   bool
	lineHasTokens bool
}

var operators3 = []string{"**=", "//=", ">>=", "<<=", "..."}

var operators2 = []string{
	"->", ":=", "**", "//", "<<", ">>", "<=", ">=", "==", "!=",
	"+=", "-=", "*=", "/=", "%=", "&=", "|=", "^=", "@=",
}

const operators1 = "+-*/%@&|^~<>()[]{},:.;="

var closing = map[rune]rune{')': '(', ']': '[', '}': '{'}

// tokenize turns source text into a token stream with NEWLINE, INDENT and
// DEDENT tokens. Newlines inside brackets are not significant.
func tokenize(path string, src []byte) ([]token, error) {
	text := strings.TrimPrefix(string(src), "\ufeff")
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")

	s := &scanner{
		path:        path,
		src:         []rune(text),
		line:        1,
		col:         1,
		indents:     []int{0},
		atLineStart: true,
	}
	if err := s.run(); err != nil {
		return nil, err
	}
	return s.tokens, nil
}

func (s *scanner) run() error {
	for {
		if s.atLineStart && len(s.brackets) == 0 {
			if err := s.indentation(); err != nil {
				return err
			}
		}
		if s.off >= len(s.src) {
			break
		}
		c := s.src[s.off]
		switch {
		case c == '\n':
			if len(s.brackets) == 0 && s.lineHasTokens {
				s.emit(tokNewline, "\n", s.here())
				s.lineHasTokens = false
			}
			s.advance()
			if len(s.brackets) == 0 {
				s.atLineStart = true
			}
		case c == ' ' || c == '\t' || c == '\f':
			s.advance()
		case c == '#':
			for s.off < len(s.src) && s.src[s.off] != '\n' {
				s.advance()
			}
		case c == '\\':
			if s.peekAt(1) != '\n' {
				return s.errorf(s.here(), "unexpected character after line continuation character")
			}
			s.advance()
			s.advance()
		case isIdentStart(c):
			if err := s.scanName(); err != nil {
				return err
			}
		case isDigit(c) || (c == '.' && isDigit(s.peekAt(1))):
			s.scanNumber()
		case c == '\'' || c == '"':
			if err := s.scanString(s.here(), ""); err != nil {
				return err
			}
		default:
			if err := s.scanOperator(); err != nil {
				return err
			}
		}
	}

	if len(s.brackets) > 0 {
		open := s.brackets[len(s.brackets)-1]
		return s.errorf(open.pos, "'%c' was never closed", open.ch)
	}
	if s.lineHasTokens {
		s.emit(tokNewline, "\n", s.here())
	}
	for len(s.indents) > 1 {
		s.indents = s.indents[:len(s.indents)-1]
		s.emit(tokDedent, "", s.here())
	}
	s.emit(tokEOF, "", s.here())
	return nil
}

// indentation measures the leading whitespace of a physical line and emits
// INDENT/DEDENT tokens. Blank and comment-only lines are ignored.
func (s *scanner) indentation() error {
	s.atLineStart = false
	width := 0
measure:
	for s.off < len(s.src) {
		switch s.src[s.off] {
		case ' ':
			width++
		case '\t':
			width = (width/8 + 1) * 8
		case '\f':
			width = 0
		default:
			break measure
		}
		s.advance()
	}
	if s.off >= len(s.src) || s.src[s.off] == '\n' || s.src[s.off] == '#' {
		return nil
	}

	top := s.indents[len(s.indents)-1]
	switch {
	case width > top:
		s.indents = append(s.indents, width)
		s.emit(tokIndent, "", s.here())
	case width < top:
		for width < s.indents[len(s.indents)-1] {
			s.indents = s.indents[:len(s.indents)-1]
			s.emit(tokDedent, "", s.here())
		}
		if width != s.indents[len(s.indents)-1] {
			return s.errorf(s.here(), "unindent does not match any outer indentation level")
		}
	}
	return nil
}

func (s *scanner) scanName() error {
	start := s.here()
	begin := s.off
	for s.off < len(s.src) && isIdentPart(s.src[s.off]) {
		s.advance()
	}
	name := string(s.src[begin:s.off])
	if s.off < len(s.src) && (s.src[s.off] == '\'' || s.src[s.off] == '"') && isStringPrefix(name) {
		return s.scanString(start, name)
	}
	s.emit(tokName, name, start)
	return nil
}

func (s *scanner) scanNumber() {
	start := s.here()
	begin := s.off
	hex := s.src[s.off] == '0' && (s.peekAt(1) == 'x' || s.peekAt(1) == 'X')
	for s.off < len(s.src) {
		c := s.src[s.off]
		if (c == 'e' || c == 'E') && !hex && (s.peekAt(1) == '+' || s.peekAt(1) == '-') {
			s.advance()
			s.advance()
			continue
		}
		if isIdentPart(c) || c == '.' {
			s.advance()
			continue
		}
		break
	}
	s.emit(tokNumber, string(s.src[begin:s.off]), start)
}

func (s *scanner) scanString(start Pos, prefix string) error {
	lower := strings.ToLower(prefix)
	raw := strings.Contains(lower, "r")
	kind := strText
	switch {
	case strings.Contains(lower, "b"):
		kind = strBytes
	case strings.Contains(lower, "f"):
		kind = strFormat
	}

	q := s.src[s.off]
	triple := s.peekAt(1) == q && s.peekAt(2) == q
	if triple {
		s.advance()
		s.advance()
	}
	s.advance()

	var b strings.Builder
	for {
		if s.off >= len(s.src) {
			if triple {
				return s.errorf(start, "unterminated triple-quoted string literal")
			}
			return s.errorf(start, "unterminated string literal")
		}
		c := s.src[s.off]
		switch {
		case kind == strFormat && c == '{' && s.peekAt(1) == '{':
			b.WriteString("{{")
			s.advance()
			s.advance()
		case kind == strFormat && c == '{':
			s.advance()
			if err := s.scanReplacementField(&b, start); err != nil {
				return err
			}
		case c == q:
			if !triple {
				s.advance()
				s.emitString(b.String(), start, kind)
				return nil
			}
			if s.peekAt(1) == q && s.peekAt(2) == q {
				s.advance()
				s.advance()
				s.advance()
				s.emitString(b.String(), start, kind)
				return nil
			}
			b.WriteRune(c)
			s.advance()
		case c == '\n' && !triple:
			return s.errorf(start, "unterminated string literal")
		case c == '\\':
			if s.off+1 >= len(s.src) {
				return s.errorf(start, "unterminated string literal")
			}
			n := s.src[s.off+1]
			s.advance()
			s.advance()
			if raw {
				b.WriteRune('\\')
				b.WriteRune(n)
				continue
			}
			s.decodeEscape(&b, n, kind == strBytes)
		default:
			b.WriteRune(c)
			s.advance()
		}
	}
}

// scanReplacementField copies an f-string replacement field, whose opening
// brace has been consumed, through its closing brace. String literals in the
// expression may reuse the enclosing quote.
func (s *scanner) scanReplacementField(b *strings.Builder, start Pos) error {
	b.WriteRune('{')
	depth := 0
	spec := false
	for {
		if s.off >= len(s.src) {
			return s.errorf(start, "unterminated f-string replacement field")
		}
		c := s.src[s.off]
		switch {
		case c == '}' && depth == 0:
			b.WriteRune(c)
			s.advance()
			return nil
		case spec && c == '{':
			s.advance()
			if err := s.scanReplacementField(b, start); err != nil {
				return err
			}
			continue
		case spec:
		case c == '\'' || c == '"':
			if err := s.copyLiteral(b, start); err != nil {
				return err
			}
			continue
		case c == '(' || c == '[' || c == '{':
			depth++
		case c == ')' || c == ']' || c == '}':
			depth--
		case c == ':' && depth == 0:
			// The format spec is literal text apart from nested fields.
			spec = true
		}
		b.WriteRune(c)
		s.advance()
	}
}

// copyLiteral copies a string literal inside a replacement field verbatim.
func (s *scanner) copyLiteral(b *strings.Builder, start Pos) error {
	format := strings.ContainsAny(s.literalPrefix(), "fF")
	q := s.src[s.off]
	n := 1
	if s.peekAt(1) == q && s.peekAt(2) == q {
		n = 3
	}
	closeQuote := func() {
		for i := 0; i < n; i++ {
			b.WriteRune(q)
			s.advance()
		}
	}
	closeQuote()
	for {
		if s.off >= len(s.src) {
			return s.errorf(start, "unterminated string literal")
		}
		c := s.src[s.off]
		switch {
		case c == q && (n == 1 || s.peekAt(1) == q && s.peekAt(2) == q):
			closeQuote()
			return nil
		case c == '\n' && n == 1:
			return s.errorf(start, "unterminated string literal")
		case c == '\\' && s.off+1 < len(s.src):
			b.WriteRune(c)
			s.advance()
			b.WriteRune(s.src[s.off])
			s.advance()
		case format && c == '{' && s.peekAt(1) == '{':
			b.WriteString("{{")
			s.advance()
			s.advance()
		case format && c == '{':
			s.advance()
			if err := s.scanReplacementField(b, start); err != nil {
				return err
			}
		default:
			b.WriteRune(c)
			s.advance()
		}
	}
}

// literalPrefix returns the string prefix letters just before the quote at
// the current offset.
func (s *scanner) literalPrefix() string {
	begin := s.off
	for begin > 0 && s.off-begin < 2 && strings.ContainsRune("rRbBfFuU", s.src[begin-1]) {
		begin--
	}
	if begin > 0 && isIdentPart(s.src[begin-1]) {
		return ""
	}
	return string(s.src[begin:s.off])
}

// decodeEscape writes the value of the escape sequence introduced by n.
// Malformed numeric escapes are kept verbatim.
func (s *scanner) decodeEscape(b *strings.Builder, n rune, bytes bool) {
	switch n {
	case '\n':
	case '\\', '\'', '"':
		b.WriteRune(n)
	case 'n':
		b.WriteByte('\n')
	case 't':
		b.WriteByte('\t')
	case 'r':
		b.WriteByte('\r')
	case 'a':
		b.WriteByte(7)
	case 'b':
		b.WriteByte(8)
	case 'f':
		b.WriteByte(12)
	case 'v':
		b.WriteByte(11)
	case '0', '1', '2', '3', '4', '5', '6', '7':
		digits := string(n)
		for len(digits) < 3 && s.off < len(s.src) && s.src[s.off] >= '0' && s.src[s.off] <= '7' {
			digits += string(s.src[s.off])
			s.advance()
		}
		v, _ := strconv.ParseUint(digits, 8, 32)
		b.WriteRune(rune(v))
	case 'x':
		s.hexEscape(b, 'x', 2)
	case 'u', 'U':
		if bytes {
			b.WriteRune('\\')
			b.WriteRune(n)
			return
		}
		width := 4
		if n == 'U' {
			width = 8
		}
		s.hexEscape(b, n, width)
	default:
		b.WriteRune('\\')
		b.WriteRune(n)
	}
}

func (s *scanner) hexEscape(b *strings.Builder, n rune, width int) {
	if s.off+width > len(s.src) {
		b.WriteRune('\\')
		b.WriteRune(n)
		return
	}
	digits := string(s.src[s.off : s.off+width])
	v, err := strconv.ParseUint(digits, 16, 32)
	if err != nil {
		b.WriteRune('\\')
		b.WriteRune(n)
		return
	}
	for i := 0; i < width; i++ {
		s.advance()
	}
	b.WriteRune(rune(v))
}

func (s *scanner) scanOperator() error {
	start := s.here()
	rest := s.src[s.off:]
	for _, group := range [][]string{operators3, operators2} {
		for _, op := range group {
			if hasRunePrefix(rest, op) {
				for range op {
					s.advance()
				}
				s.emit(tokOp, op, start)
				return nil
			}
		}
	}

	c := s.src[s.off]
	if !strings.ContainsRune(operators1, c) {
		return s.errorf(start, "invalid character %q", c)
	}
	switch c {
	case '(', '[', '{':
		s.brackets = append(s.brackets, bracket{ch: c, pos: start})
	case ')', ']', '}':
		if len(s.brackets) == 0 {
			return s.errorf(start, "unmatched '%c'", c)
		}
		open := s.brackets[len(s.brackets)-1]
		if open.ch != closing[c] {
			return s.errorf(start, "closing parenthesis '%c' does not match opening parenthesis '%c' on line %d", c, open.ch, open.pos.Line)
		}
		s.brackets = s.brackets[:len(s.brackets)-1]
	}
	s.advance()
	s.emit(tokOp, string(c), start)
	return nil
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func (s *scanner) emit(typ tokenType, value string, pos Pos) {
	s.tokens = append(s.tokens, token{typ: typ, value: value, pos: pos})
	if typ != tokNewline && typ != tokIndent && typ != tokDedent && typ != tokEOF {
		s.lineHasTokens = true
	}
}

func (s *scanner) emitString(value string, pos Pos, kind strKind) {
	s.tokens = append(s.tokens, token{typ: tokString, value: value, pos: pos, str: kind})
	s.lineHasTokens = true
}

func (s *scanner) advance() {
	if s.src[s.off] == '\n' {
		s.line++
		s.col = 1
	} else {
		s.col++
	}
	s.off++
}

func (s *scanner) peekAt(n int) rune {
	if s.off+n < len(s.src) {
		return s.src[s.off+n]
	}
	return 0
}

func (s *scanner) here() Pos { return Pos{Line: s.line, Col: s.col} }

func (s *scanner) errorf(pos Pos, format string, args ...interface{}) error {
	return &SyntaxError{Path: s.path, Pos: pos, Msg: fmt.Sprintf(format, args...)}
}

func hasRunePrefix(src []rune, op string) bool {
	i := 0
	for _, r := range op {
		if i >= len(src) || src[i] != r {
			return false
		}
		i++
	}
	return true
}

func isStringPrefix(name string) bool {
	switch strings.ToLower(name) {
	case "r", "u", "b", "f", "br", "rb", "fr", "rf":
		return true
	}
	return false
}

func isIdentStart(c rune) bool { return c == '_' || unicode.IsLetter(c) }

func isIdentPart(c rune) bool { return isIdentStart(c) || unicode.IsDigit(c) }

func isDigit(c rune) bool { return c >= '0' && c <= '9' }
