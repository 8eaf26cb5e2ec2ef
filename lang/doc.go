// Package lang parses and renders text templates whose code calls into Go.
//
// Text outside code blocks is copied verbatim. Code inside {{ and }} is a
// sequence of statements separated by newlines or semicolons:
//
//	{{ name = user.display_name }}
//	Hello, {{ name | string.upcase }}!
//	{{ for item in user.items }}
//	  {{ for.index }}: {{ item }}
//	{{ end }}
//
// Functions are called with parentheses, f(a, b, name: c), or as commands,
// f a b name: c, at the start of a statement or after a pipe. A function
// named where a value is expected is called with no arguments.
//
// # Grammar
//
// Informal EBNF:
//
//	Template   → (Text | '{{' Block '}}')*
//	Block      → Statement (Sep Statement)*
//	Sep        → Newline | ';'
//	Statement  → For | If | Assign | Expr | 'break' | 'continue'
//	For        → 'for' Ident 'in' Expr Block 'end'
//	If         → 'if' Expr Block ('else' ('if' ...)? Block)? 'end'
//	Assign     → Postfix '=' Expr
//	Expr       → Or ('|' Postfix Args?)*
//	Or         → And (('||' | 'or') And)*
//	And        → Compare (('&&' | 'and') Compare)*
//	Compare    → Range (('==' | '!=' | '<' | '<=' | '>' | '>=') Range)*
//	Range      → Add (('..' | '..<') Add)?
//	Add        → Mul (('+' | '-') Mul)*
//	Mul        → Unary (('*' | '/' | '//' | '%') Unary)*
//	Unary      → ('!' | 'not' | '-') Unary | Postfix
//	Postfix    → Primary ('.' Ident | '[' Expr ']' | '(' Args ')')*
//
// # Host objects
//
// Values pushed with [Context.PushGlobal] expose their exported fields and
// methods under names produced by the [member.Renamer] in effect. Methods
// returning futures are awaited; methods returning iterators or channels
// produce one-shot sequences that a for loop consumes.
//
// # Diagnostics
//
// Parse errors are collected in [Template.Messages]. Render errors are
// returned as [*diag.Error] values formatted as
//
//	text(<line>,<column>) : error : <message>
package lang
