package catalog

import (
	"sort"
	"strings"

	"github.com/viant/parsly"
	"github.com/viant/parsly/matcher"
)

const (
	whitespaceToken = iota
	lineCommentToken
	blockCommentToken
	singleQuotedToken
	doubleQuotedToken
	dollarQuotedToken
	identifierToken
	anyToken
)

var whitespaceMatcher = parsly.NewToken(whitespaceToken, "Whitespace", matcher.NewWhiteSpace())
var lineCommentMatcher = parsly.NewToken(lineCommentToken, "LineComment", &lineCommentMatch{})
var blockCommentMatcher = parsly.NewToken(blockCommentToken, "BlockComment", matcher.NewSeqBlock("/*", "*/"))
var singleQuotedMatcher = parsly.NewToken(singleQuotedToken, "SingleQuote", &quotedMatch{quote: '\''})
var doubleQuotedMatcher = parsly.NewToken(doubleQuotedToken, "DoubleQuote", &quotedMatch{quote: '"'})
var backtickQuotedMatcher = parsly.NewToken(doubleQuotedToken, "BacktickQuote", &quotedMatch{quote: '`'})
var dollarQuotedMatcher = parsly.NewToken(dollarQuotedToken, "DollarQuote", &dollarQuotedMatch{})
var identifierMatcher = parsly.NewToken(identifierToken, "Identifier", &identifierMatch{})
var anyMatcher = parsly.NewToken(anyToken, "Any", &anyMatch{})

type anyMatch struct{}

func (a *anyMatch) Match(cursor *parsly.Cursor) int {
	if cursor.Pos < cursor.InputSize {
		return 1
	}
	return 0
}

type identifierMatch struct{}

func (i *identifierMatch) Match(cursor *parsly.Cursor) int {
	if cursor.Pos >= cursor.InputSize {
		return 0
	}
	if !isIdentifierStart(cursor.Input[cursor.Pos]) {
		return 0
	}
	pos := cursor.Pos + 1
	for pos < cursor.InputSize && isIdentifierPart(cursor.Input[pos]) {
		pos++
	}
	return pos - cursor.Pos
}

func isIdentifierStart(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || b == '_'
}

func isIdentifierPart(b byte) bool {
	return isIdentifierStart(b) || (b >= '0' && b <= '9') || b == '$'
}

// lineCommentMatch matches "--" up to and excluding the end of line, or to
// the end of input.
type lineCommentMatch struct{}

func (l *lineCommentMatch) Match(cursor *parsly.Cursor) int {
	pos := cursor.Pos
	if pos+1 >= cursor.InputSize || cursor.Input[pos] != '-' || cursor.Input[pos+1] != '-' {
		return 0
	}
	end := pos + 2
	for end < cursor.InputSize && cursor.Input[end] != '\n' {
		end++
	}
	return end - pos
}

// quotedMatch matches a quoted literal where a doubled quote escapes itself.
// A backslash escapes the following byte inside single quotes.
type quotedMatch struct {
	quote byte
}

func (q *quotedMatch) Match(cursor *parsly.Cursor) int {
	pos := cursor.Pos
	if pos >= cursor.InputSize || cursor.Input[pos] != q.quote {
		return 0
	}
	for i := pos + 1; i < cursor.InputSize; i++ {
		switch cursor.Input[i] {
		case '\\':
			if q.quote == '\'' {
				i++
			}
		case q.quote:
			if i+1 < cursor.InputSize && cursor.Input[i+1] == q.quote {
				i++
				continue
			}
			return i + 1 - pos
		}
	}
	return 0
}

// dollarQuotedMatch matches $$...$$ and $tag$...$tag$. An unterminated body
// runs to the end of input; callers detect it with isTerminatedDollar.
type dollarQuotedMatch struct{}

func (d *dollarQuotedMatch) Match(cursor *parsly.Cursor) int {
	tag := dollarTag(cursor.Input[cursor.Pos:cursor.InputSize])
	if tag == "" {
		return 0
	}
	rest := cursor.Input[cursor.Pos+len(tag) : cursor.InputSize]
	if i := strings.Index(string(rest), tag); i >= 0 {
		return len(tag) + i + len(tag)
	}
	return cursor.InputSize - cursor.Pos
}

// dollarTag returns the opening delimiter at the start of input, or "".
func dollarTag(input []byte) string {
	if len(input) < 2 || input[0] != '$' {
		return ""
	}
	if input[1] == '$' {
		return "$$"
	}
	if !isIdentifierStart(input[1]) {
		return ""
	}
	for i := 2; i < len(input); i++ {
		switch {
		case input[i] == '$':
			return string(input[:i+1])
		case isIdentifierStart(input[i]) || (input[i] >= '0' && input[i] <= '9'):
		default:
			return ""
		}
	}
	return ""
}

func isTerminatedDollar(text string) bool {
	tag := dollarTag([]byte(text))
	return tag != "" && len(text) >= 2*len(tag) && strings.HasSuffix(text, tag)
}

// lexeme is a significant token: whitespace and comments are dropped.
type lexeme struct {
	code   int
	text   string
	offset int
}

func (l lexeme) isWord(word string) bool {
	return l.code == identifierToken && strings.EqualFold(l.text, word)
}

func (l lexeme) isByte(b byte) bool {
	return l.code == anyToken && len(l.text) == 1 && l.text[0] == b
}

func (l lexeme) isName() bool {
	return l.code == identifierToken || l.code == doubleQuotedToken
}

// upper returns the upper-cased identifier text, or "" for other tokens.
func (l lexeme) upper() string {
	if l.code != identifierToken {
		return ""
	}
	return strings.ToUpper(l.text)
}

// lex splits src into significant tokens.
func lex(src []byte) []lexeme {
	cursor := parsly.NewCursor("", src, 0)
	var out []lexeme
	for cursor.Pos < cursor.InputSize {
		offset := cursor.Pos
		matched := cursor.MatchAny(
			whitespaceMatcher,
			lineCommentMatcher,
			blockCommentMatcher,
			singleQuotedMatcher,
			doubleQuotedMatcher,
			backtickQuotedMatcher,
			dollarQuotedMatcher,
			identifierMatcher,
			anyMatcher,
		)
		switch matched.Code {
		case whitespaceToken, lineCommentToken, blockCommentToken:
			continue
		case parsly.EOF, parsly.Invalid:
			return out
		}
		out = append(out, lexeme{code: matched.Code, text: matched.Text(cursor), offset: offset})
	}
	return out
}

// lineIndex converts byte offsets into 1-based line numbers.
type lineIndex []int

func newLineIndex(src []byte) lineIndex {
	idx := lineIndex{0}
	for i, b := range src {
		if b == '\n' {
			idx = append(idx, i+1)
		}
	}
	return idx
}

func (l lineIndex) line(offset int) int {
	return sort.Search(len(l), func(i int) bool { return l[i] > offset })
}

// unquote strips identifier quotes and collapses doubled quote characters.
func unquote(s string) string {
	if len(s) >= 2 {
		q := s[0]
		if (q == '"' || q == '`') && s[len(s)-1] == q {
			return strings.ReplaceAll(s[1:len(s)-1], string([]byte{q, q}), string(q))
		}
	}
	return s
}

// stringValue decodes a single-quoted SQL literal.
func stringValue(s string) string {
	if len(s) >= 2 && s[0] == '\'' && s[len(s)-1] == '\'' {
		return strings.ReplaceAll(s[1:len(s)-1], "''", "'")
	}
	return s
}
