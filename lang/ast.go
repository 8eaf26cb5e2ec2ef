package lang

import (
	"github.com/ardnew/stencil/diag"
)

// Stmt is a statement of a template.
type Stmt interface {
	Pos() diag.Position
}

// Expr is an expression. End is the position just past its last character.
type Expr interface {
	Pos() diag.Position
	End() diag.Position
}

type span struct {
	start, end diag.Position
}

func (s span) Pos() diag.Position { return s.start }
func (s span) End() diag.Position { return s.end }

// TextStmt is literal template text.
type TextStmt struct {
	span

	Text string
}

// ExprStmt renders the value of an expression.
type ExprStmt struct {
	X Expr
}

func (s *ExprStmt) Pos() diag.Position { return s.X.Pos() }

// AssignStmt stores a value into a variable, member or element.
type AssignStmt struct {
	Target Expr
	Value  Expr
}

func (s *AssignStmt) Pos() diag.Position { return s.Target.Pos() }

// ForStmt iterates over a list, map or sequence.
type ForStmt struct {
	span

	Var  string
	Iter Expr
	Body []Stmt
}

// IfStmt runs Then when Cond is truthy and Else otherwise.
type IfStmt struct {
	span

	Cond Expr
	Then []Stmt
	Else []Stmt
}

// BranchStmt is break or continue.
type BranchStmt struct {
	span

	Keyword string
}

// Literal is a constant value.
type Literal struct {
	span

	Value any
}

// Ident names a variable, global or namespace.
type Ident struct {
	span

	Name string
}

// Member selects a field, method or function by name.
type Member struct {
	span

	X    Expr
	Name string
}

// Index selects an element by position or key.
type Index struct {
	span

	X     Expr
	Index Expr
}

// Arg is one argument of a call. An empty Name marks a positional
// argument.
type Arg struct {
	Name  string
	Value Expr
	Pos   diag.Position
}

// Call invokes Fun. Its site spans from the start of the callee to the end
// of the callee name.
type Call struct {
	span

	Fun  Expr
	Args []Arg
}

// Site returns the call site reported in diagnostics.
func (c *Call) Site(file string) diag.Site {
	return diag.Site{File: file, Start: c.Fun.Pos(), End: c.Fun.End()}
}

// Unary applies a prefix operator.
type Unary struct {
	span

	Op string
	X  Expr
}

// Binary applies an infix operator.
type Binary struct {
	span

	Op   string
	X, Y Expr
}

// Range produces the integers from From to To. Exclusive omits To.
type Range struct {
	span

	From, To  Expr
	Exclusive bool
}

// ArrayLit builds a list.
type ArrayLit struct {
	span

	Elems []Expr
}
