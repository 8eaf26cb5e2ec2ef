package lang

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/ardnew/stencil/diag"
	"github.com/ardnew/stencil/log"
)

// parser builds statements from tokens. Errors are collected as
// diagnostics; after an error the parser skips to the next statement.
type parser struct {
	toks   []token
	i      int
	file   string
	diags  diag.Diagnostics
	logger log.Logger
}

// bail aborts the statement being parsed.
type bail struct{}

func parseTemplate(ctx context.Context, source, file string, logger log.Logger) *Template {
	p := &parser{toks: lex(source), file: file, logger: logger}

	body := p.parseBody(ctx)

	p.logger.TraceContext(ctx, "parse complete",
		slog.String("file", file),
		slog.Int("tokens", len(p.toks)),
		slog.Int("statements", len(body)),
		slog.Int("messages", len(p.diags)),
	)

	return &Template{File: file, Source: source, Body: body, Messages: p.diags}
}

// parseBody parses the top level and reports stray block keywords.
func (p *parser) parseBody(ctx context.Context) []Stmt {
	var body []Stmt

	for {
		stmts, stop := p.parseBlock(ctx)
		body = append(body, stmts...)

		if stop.kind == tokEOF {
			return body
		}

		p.errorf(stop.pos, "Unexpected `%s` without a matching statement", stop.text)
	}
}

// parseBlock parses statements until end, else, or EOF and returns the
// token that stopped it.
func (p *parser) parseBlock(ctx context.Context) ([]Stmt, token) {
	var stmts []Stmt

	for {
		t := p.peek()

		switch {
		case t.kind == tokEOF:
			return stmts, t

		case t.kind == tokText:
			p.next()

			stmts = append(stmts, &TextStmt{span: span{t.pos, t.end}, Text: t.text})

		case t.kind == tokOpen, t.kind == tokClose, t.kind == tokNewline, t.punct(";"):
			p.next()

		case t.is(tokIdent, "end"), t.is(tokIdent, "else"):
			p.next()

			return stmts, t

		default:
			if s := p.statement(ctx); s != nil {
				stmts = append(stmts, s)
			}
		}
	}
}

// statement parses one statement, recovering from a parse error.
func (p *parser) statement(ctx context.Context) (s Stmt) {
	defer func() {
		if r := recover(); r != nil {
			if _, ok := r.(bail); !ok {
				panic(r)
			}

			p.skipStatement()

			s = nil
		}
	}()

	t := p.peek()

	switch {
	case t.is(tokIdent, "for") && !p.peekAt(1).punct("."):
		return p.parseFor(ctx)

	case t.is(tokIdent, "if"):
		return p.parseIf(ctx)

	case t.is(tokIdent, "break"), t.is(tokIdent, "continue"):
		p.next()
		p.endStatement()

		return &BranchStmt{span: span{t.pos, t.end}, Keyword: t.text}
	}

	x := p.parseExpr()

	if p.peek().punct("=") {
		p.next()

		switch x.(type) {
		case *Ident, *Member, *Index:
		default:
			p.errorf(x.Pos(), "Invalid assignment target")
			panic(bail{})
		}

		v := p.parseExpr()
		p.endStatement()

		return &AssignStmt{Target: x, Value: v}
	}

	p.endStatement()

	return &ExprStmt{X: x}
}

func (p *parser) parseFor(ctx context.Context) Stmt {
	kw := p.next()

	name := p.expectIdent()
	if !p.peek().is(tokIdent, "in") {
		p.unexpected(p.peek(), "`in`")
	}

	p.next()

	iter := p.parseExpr()
	p.endStatement()

	body, stop := p.parseBlock(ctx)
	p.closeBlock(kw, stop)

	return &ForStmt{span: span{kw.pos, stop.end}, Var: name, Iter: iter, Body: body}
}

func (p *parser) parseIf(ctx context.Context) Stmt {
	kw := p.next()

	cond := p.parseExpr()
	p.endStatement()

	then, stop := p.parseBlock(ctx)
	s := &IfStmt{span: span{kw.pos, stop.end}, Cond: cond, Then: then}

	if stop.is(tokIdent, "else") {
		if p.peek().is(tokIdent, "if") {
			s.Else = []Stmt{p.parseIf(ctx)}

			return s
		}

		p.endStatement()

		s.Else, stop = p.parseBlock(ctx)
		if stop.is(tokIdent, "else") {
			p.errorf(stop.pos, "Unexpected `else` after `else`")
		}
	}

	p.closeBlock(kw, stop)

	return s
}

// closeBlock checks that the block opened by kw was closed by end.
func (p *parser) closeBlock(kw, stop token) {
	if stop.kind == tokEOF {
		p.errorf(kw.pos, "Missing `end` for `%s` statement", kw.text)

		return
	}

	p.endStatement()
}

func (p *parser) parseExpr() Expr {
	x := p.parseOr()

	for p.peek().punct("|") {
		p.next()

		fun := p.parsePostfix(false)

		c, ok := fun.(*Call)
		if !ok {
			c = &Call{span: span{fun.Pos(), fun.End()}, Fun: fun}
			if p.startsArg(p.peek()) {
				c.Args = p.parseCommandArgs()
				c.end = p.prev().end
			}
		}

		c.Args = append([]Arg{{Value: x, Pos: x.Pos()}}, c.Args...)
		x = c
	}

	return x
}

func (p *parser) parseOr() Expr {
	x := p.parseAnd()

	for t := p.peek(); t.punct("||") || t.is(tokIdent, "or"); t = p.peek() {
		p.next()

		y := p.parseAnd()
		x = &Binary{span: span{x.Pos(), y.End()}, Op: "||", X: x, Y: y}
	}

	return x
}

func (p *parser) parseAnd() Expr {
	x := p.parseCompare()

	for t := p.peek(); t.punct("&&") || t.is(tokIdent, "and"); t = p.peek() {
		p.next()

		y := p.parseCompare()
		x = &Binary{span: span{x.Pos(), y.End()}, Op: "&&", X: x, Y: y}
	}

	return x
}

func (p *parser) parseCompare() Expr {
	x := p.parseRange()

	for {
		t := p.peek()
		if t.kind != tokPunct {
			return x
		}

		switch t.text {
		case "==", "!=", "<", "<=", ">", ">=":
		default:
			return x
		}

		p.next()

		y := p.parseRange()
		x = &Binary{span: span{x.Pos(), y.End()}, Op: t.text, X: x, Y: y}
	}
}

func (p *parser) parseRange() Expr {
	x := p.parseAdd()

	if t := p.peek(); t.punct("..") || t.punct("..<") {
		p.next()

		y := p.parseAdd()

		return &Range{span: span{x.Pos(), y.End()}, From: x, To: y, Exclusive: t.text == "..<"}
	}

	return x
}

func (p *parser) parseAdd() Expr {
	x := p.parseMul()

	for t := p.peek(); t.punct("+") || t.punct("-"); t = p.peek() {
		p.next()

		y := p.parseMul()
		x = &Binary{span: span{x.Pos(), y.End()}, Op: t.text, X: x, Y: y}
	}

	return x
}

func (p *parser) parseMul() Expr {
	x := p.parseUnary()

	for t := p.peek(); t.punct("*") || t.punct("/") || t.punct("//") || t.punct("%"); t = p.peek() {
		p.next()

		y := p.parseUnary()
		x = &Binary{span: span{x.Pos(), y.End()}, Op: t.text, X: x, Y: y}
	}

	return x
}

func (p *parser) parseUnary() Expr {
	t := p.peek()

	switch {
	case t.punct("!"), t.is(tokIdent, "not"):
		p.next()

		x := p.parseUnary()

		return &Unary{span: span{t.pos, x.End()}, Op: "!", X: x}

	case t.punct("-"):
		p.next()

		x := p.parseUnary()

		return &Unary{span: span{t.pos, x.End()}, Op: "-", X: x}
	}

	return p.parsePostfix(true)
}

// parsePostfix parses a primary expression followed by member, index and
// call suffixes. With command set, a callee followed by an argument becomes
// a command call: f a b name: c.
func (p *parser) parsePostfix(command bool) Expr {
	x := p.parsePrimary()

	for {
		t := p.peek()

		switch {
		case t.punct(".") && !t.space:
			p.next()

			name := p.peek()
			if name.kind != tokIdent {
				p.unexpected(name, "a member name")
			}

			p.next()

			x = &Member{span: span{x.Pos(), name.end}, X: x, Name: name.text}

		case t.punct("[") && !t.space:
			p.next()

			i := p.parseExpr()
			end := p.expectPunct("]")

			x = &Index{span: span{x.Pos(), end.end}, X: x, Index: i}

		case t.punct("(") && !t.space && callee(x):
			p.next()

			args := p.parseParenArgs()
			end := p.prev()

			x = &Call{span: span{x.Pos(), end.end}, Fun: x, Args: args}

		default:
			if command && callee(x) && p.startsArg(t) {
				args := p.parseCommandArgs()

				return &Call{span: span{x.Pos(), p.prev().end}, Fun: x, Args: args}
			}

			return x
		}
	}
}

func (p *parser) parsePrimary() Expr {
	t := p.peek()

	switch t.kind {
	case tokInt:
		p.next()

		n, err := strconv.ParseInt(t.text, 10, 64)
		if err != nil {
			p.errorf(t.pos, "Invalid number `%s`", t.text)
			panic(bail{})
		}

		return &Literal{span: span{t.pos, t.end}, Value: int(n)}

	case tokFloat:
		p.next()

		f, err := strconv.ParseFloat(t.text, 64)
		if err != nil {
			p.errorf(t.pos, "Invalid number `%s`", t.text)
			panic(bail{})
		}

		return &Literal{span: span{t.pos, t.end}, Value: f}

	case tokString:
		p.next()

		return &Literal{span: span{t.pos, t.end}, Value: t.text}

	case tokIdent:
		switch t.text {
		case "true", "false":
			p.next()

			return &Literal{span: span{t.pos, t.end}, Value: t.text == "true"}

		case "null":
			p.next()

			return &Literal{span: span{t.pos, t.end}}

		case "for":
			if !p.peekAt(1).punct(".") {
				p.unexpected(t, "an expression")
			}

		default:
			if keywords[t.text] {
				p.unexpected(t, "an expression")
			}
		}

		p.next()

		return &Ident{span: span{t.pos, t.end}, Name: t.text}

	case tokPunct:
		switch t.text {
		case "(":
			p.next()

			x := p.parseExpr()
			p.expectPunct(")")

			return x

		case "[":
			p.next()

			var elems []Expr

			for !p.peek().punct("]") {
				p.skipNewlines()

				if p.peek().punct("]") {
					break
				}

				elems = append(elems, p.parseExpr())

				p.skipNewlines()

				if !p.peek().punct(",") {
					break
				}

				p.next()
				p.skipNewlines()
			}

			end := p.expectPunct("]")

			return &ArrayLit{span: span{t.pos, end.end}, Elems: elems}
		}

	case tokError:
		p.errorf(t.pos, "%s", t.text)
		panic(bail{})
	}

	p.unexpected(t, "an expression")

	return nil
}

func (p *parser) parseParenArgs() []Arg {
	var args []Arg

	for {
		p.skipNewlines()

		if p.peek().punct(")") {
			p.next()

			return args
		}

		args = append(args, p.parseArg(p.parseExpr))

		p.skipNewlines()

		if p.peek().punct(",") {
			p.next()

			continue
		}

		p.expectPunct(")")

		return args
	}
}

func (p *parser) parseCommandArgs() []Arg {
	var args []Arg

	for p.startsArg(p.peek()) {
		args = append(args, p.parseArg(p.parseCommandValue))
	}

	return args
}

// parseCommandValue parses one command argument: a postfix expression,
// optionally negated.
func (p *parser) parseCommandValue() Expr {
	if t := p.peek(); t.punct("-") {
		p.next()

		x := p.parsePostfix(false)

		return &Unary{span: span{t.pos, x.End()}, Op: "-", X: x}
	}

	return p.parsePostfix(false)
}

// parseArg parses "name: value" or a positional value.
func (p *parser) parseArg(value func() Expr) Arg {
	t := p.peek()

	if t.kind == tokIdent && !keywords[t.text] && p.peekAt(1).punct(":") {
		p.next()
		p.next()

		return Arg{Name: t.text, Value: value(), Pos: t.pos}
	}

	x := value()

	return Arg{Value: x, Pos: x.Pos()}
}

// startsArg reports whether t can begin a command argument.
func (p *parser) startsArg(t token) bool {
	switch t.kind {
	case tokInt, tokFloat, tokString:
		return true

	case tokIdent:
		switch t.text {
		case "true", "false", "null":
			return true
		}

		return !keywords[t.text]

	case tokPunct:
		switch t.text {
		case "(", "[":
			return t.space
		case "-":
			// A negative number written as "f -1".
			n := p.peekAt(1)

			return t.space && !n.space && (n.kind == tokInt || n.kind == tokFloat)
		}
	}

	return false
}

// callee reports whether x can be called.
func callee(x Expr) bool {
	switch x.(type) {
	case *Ident, *Member, *Index:
		return true
	}

	return false
}

// endStatement requires a statement separator or the end of a code block.
func (p *parser) endStatement() {
	t := p.peek()

	switch {
	case t.kind == tokClose, t.kind == tokNewline, t.kind == tokEOF:
	case t.punct(";"):
		p.next()
	default:
		p.unexpected(t, "the end of the statement")
	}
}

func (p *parser) skipStatement() {
	for {
		t := p.peek()

		switch {
		case t.kind == tokEOF, t.kind == tokClose, t.kind == tokNewline:
			return
		case t.punct(";"):
			p.next()

			return
		}

		p.next()
	}
}

func (p *parser) skipNewlines() {
	for p.peek().kind == tokNewline {
		p.next()
	}
}

func (p *parser) expectIdent() string {
	t := p.peek()
	if t.kind != tokIdent || keywords[t.text] {
		p.unexpected(t, "an identifier")
	}

	p.next()

	return t.text
}

func (p *parser) expectPunct(s string) token {
	t := p.peek()
	if !t.punct(s) {
		p.unexpected(t, "`"+s+"`")
	}

	return p.next()
}

func (p *parser) unexpected(t token, want string) {
	if t.kind == tokError {
		p.errorf(t.pos, "%s", t.text)
	} else {
		p.errorf(t.pos, "Unexpected %s, expecting %s", t.describe(), want)
	}

	panic(bail{})
}

func (p *parser) errorf(pos diag.Position, format string, args ...any) {
	p.diags = append(p.diags, diag.Errorf(diag.KindParse, format, args...).
		At(p.file, pos).Diagnostic())
}

func (p *parser) peek() token { return p.peekAt(0) }

func (p *parser) peekAt(n int) token {
	if p.i+n >= len(p.toks) {
		return p.toks[len(p.toks)-1]
	}

	return p.toks[p.i+n]
}

func (p *parser) next() token {
	t := p.peek()
	if p.i < len(p.toks)-1 {
		p.i++
	}

	return t
}

func (p *parser) prev() token {
	if p.i == 0 {
		return p.toks[0]
	}

	return p.toks[p.i-1]
}
