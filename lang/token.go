package lang

import (
	"maps"
	"slices"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/ardnew/stencil/diag"
)

type tokenKind int

const (
	tokEOF     tokenKind = iota
	tokText              // template text outside code blocks
	tokOpen              // {{
	tokClose             // }}
	tokNewline           // statement separator inside code
	tokIdent
	tokInt
	tokFloat
	tokString
	tokPunct
	tokError
)

func (k tokenKind) String() string {
	switch k {
	case tokEOF:
		return "end of template"
	case tokText:
		return "text"
	case tokOpen:
		return "{{"
	case tokClose:
		return "}}"
	case tokNewline:
		return "newline"
	case tokIdent:
		return "identifier"
	case tokInt, tokFloat:
		return "number"
	case tokString:
		return "string"
	case tokPunct:
		return "operator"
	default:
		return "error"
	}
}

// token is one lexical element. For strings, text holds the decoded value;
// for errors, the message.
type token struct {
	kind  tokenKind
	text  string
	pos   diag.Position
	end   diag.Position
	space bool // preceded by whitespace
	trim  bool // {{- or -}}
}

func (t token) is(kind tokenKind, text string) bool {
	return t.kind == kind && t.text == text
}

func (t token) punct(text string) bool { return t.is(tokPunct, text) }

func (t token) describe() string {
	switch t.kind {
	case tokEOF, tokNewline:
		return t.kind.String()
	case tokString:
		return strconv.Quote(t.text)
	default:
		return "`" + t.text + "`"
	}
}

var keywords = map[string]bool{
	"for": true, "in": true, "if": true, "else": true, "end": true,
	"break": true, "continue": true, "and": true, "or": true, "not": true,
	"true": true, "false": true, "null": true,
}

// Keywords returns the reserved words of the template language, sorted.
func Keywords() []string { return slices.Sorted(maps.Keys(keywords)) }

// operators are matched longest first.
var operators = []string{
	"..<", "..", "==", "!=", "<=", ">=", "&&", "||", "//",
	"+", "-", "*", "/", "%", "<", ">", "!", "=",
	"(", ")", "[", "]", ",", ":", ".", "|", ";",
}

// lexer splits a template into tokens.
type lexer struct {
	input []byte
	pos   int
	line  int
	col   int
	toks  []token
}

func lex(source string) []token {
	l := &lexer{input: []byte(source), line: 1, col: 1}
	l.run()
	l.trimText()

	return l.toks
}

func (l *lexer) run() {
	for !l.eof() {
		l.lexText()

		if l.eof() {
			break
		}

		l.lexCode()
	}

	l.emit(tokEOF, "", l.position(), false)
}

func (l *lexer) lexText() {
	start := l.position()
	end := strings.Index(string(l.input[l.pos:]), "{{")

	if end < 0 {
		end = len(l.input) - l.pos
	}

	text := string(l.input[l.pos : l.pos+end])
	for range utf8.RuneCountInString(text) {
		l.advance()
	}

	if text != "" {
		l.toks = append(l.toks, token{kind: tokText, text: text, pos: start, end: l.position()})
	}
}

func (l *lexer) lexCode() {
	start := l.position()

	l.advance()
	l.advance()

	open := token{kind: tokOpen, text: "{{", pos: start}
	if l.peek() == '-' && (l.pos+1 >= len(l.input) || isSpace(rune(l.input[l.pos+1]))) {
		l.advance()

		open.trim = true
	}

	open.end = l.position()
	l.toks = append(l.toks, open)

	space := true

	for {
		if l.eof() {
			l.emit(tokError, "Missing `}}` to close the code block", start, false)

			return
		}

		r := l.peek()

		switch {
		case r == '\n':
			pos := l.position()
			l.advance()
			l.emit(tokNewline, "\n", pos, false)

			space = true

			continue

		case isSpace(r):
			l.advance()

			space = true

			continue

		case r == '#':
			for !l.eof() && l.peek() != '\n' && l.peekN(2) != "}}" {
				l.advance()
			}

			continue

		case r == '}' && l.peekN(2) == "}}":
			l.close(false)

			return

		case r == '-' && l.peekN(3) == "-}}" && space:
			l.advance()
			l.close(true)

			return
		}

		l.lexToken(space)

		space = false
	}
}

func (l *lexer) close(trim bool) {
	pos := l.position()

	l.advance()
	l.advance()

	l.toks = append(l.toks, token{
		kind: tokClose, text: "}}", pos: pos, end: l.position(), trim: trim,
	})
}

func (l *lexer) lexToken(space bool) {
	pos := l.position()
	r := l.peek()

	switch {
	case isIdentStart(r):
		start := l.pos
		for !l.eof() && isIdentContinue(l.peek()) {
			l.advance()
		}

		l.emit(tokIdent, string(l.input[start:l.pos]), pos, space)

	case r >= '0' && r <= '9':
		l.lexNumber(pos, space)

	case r == '"' || r == '\'' || r == '`':
		l.lexString(pos, space)

	default:
		for _, op := range operators {
			if l.peekN(len(op)) == op {
				for range len(op) {
					l.advance()
				}

				l.emit(tokPunct, op, pos, space)

				return
			}
		}

		l.advance()
		l.emit(tokError, "Unexpected character `"+string(r)+"`", pos, space)
	}
}

func (l *lexer) lexNumber(pos diag.Position, space bool) {
	start := l.pos
	kind := tokInt

	digits := func() {
		for !l.eof() && (isDigit(l.peek()) || l.peek() == '_') {
			l.advance()
		}
	}

	digits()

	if l.peek() == '.' && l.pos+1 < len(l.input) && isDigit(rune(l.input[l.pos+1])) {
		kind = tokFloat

		l.advance()
		digits()
	}

	if c := l.peek(); c == 'e' || c == 'E' {
		save, line, col := l.pos, l.line, l.col

		l.advance()

		if c := l.peek(); c == '+' || c == '-' {
			l.advance()
		}

		if isDigit(l.peek()) {
			kind = tokFloat

			digits()
		} else {
			l.pos, l.line, l.col = save, line, col
		}
	}

	l.emit(kind, strings.ReplaceAll(string(l.input[start:l.pos]), "_", ""), pos, space)
}

func (l *lexer) lexString(pos diag.Position, space bool) {
	quote := l.peek()

	l.advance()

	var sb strings.Builder

	for !l.eof() {
		r := l.peek()

		if r == quote {
			l.advance()
			l.emit(tokString, sb.String(), pos, space)

			return
		}

		if r == '\\' && quote != '`' {
			l.advance()

			switch e := l.peek(); e {
			case 'n':
				sb.WriteByte('\n')
			case 't':
				sb.WriteByte('\t')
			case 'r':
				sb.WriteByte('\r')
			case '0':
				sb.WriteByte(0)
			default:
				sb.WriteRune(e)
			}

			l.advance()

			continue
		}

		sb.WriteRune(r)
		l.advance()
	}

	l.emit(tokError, "Unterminated string", pos, space)
}

// trimText applies {{- and -}} by trimming whitespace from the adjacent
// text.
func (l *lexer) trimText() {
	for i, t := range l.toks {
		switch {
		case t.kind == tokOpen && t.trim && i > 0 && l.toks[i-1].kind == tokText:
			l.toks[i-1].text = strings.TrimRightFunc(l.toks[i-1].text, unicode.IsSpace)

		case t.kind == tokClose && t.trim && i+1 < len(l.toks) && l.toks[i+1].kind == tokText:
			l.toks[i+1].text = strings.TrimLeftFunc(l.toks[i+1].text, unicode.IsSpace)
		}
	}
}

func (l *lexer) emit(kind tokenKind, text string, pos diag.Position, space bool) {
	l.toks = append(l.toks, token{
		kind: kind, text: text, pos: pos, end: l.position(), space: space,
	})
}

func (l *lexer) eof() bool { return l.pos >= len(l.input) }

func (l *lexer) peek() rune {
	if l.eof() {
		return 0
	}

	r, _ := utf8.DecodeRune(l.input[l.pos:])

	return r
}

func (l *lexer) peekN(n int) string {
	if l.pos+n > len(l.input) {
		return string(l.input[l.pos:])
	}

	return string(l.input[l.pos : l.pos+n])
}

func (l *lexer) advance() {
	if l.eof() {
		return
	}

	r, size := utf8.DecodeRune(l.input[l.pos:])

	l.pos += size
	if r == '\n' {
		l.line++
		l.col = 1
	} else {
		l.col++
	}
}

func (l *lexer) position() diag.Position {
	return diag.Position{Offset: l.pos, Line: l.line, Column: l.col}
}

func isSpace(r rune) bool { return r == ' ' || r == '\t' || r == '\r' }

func isDigit(r rune) bool { return r >= '0' && r <= '9' }

func isIdentStart(r rune) bool {
	return unicode.IsLetter(r) || r == '_'
}

func isIdentContinue(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_'
}
