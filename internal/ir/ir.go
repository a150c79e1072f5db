// Package ir implements the administrative-normal-form intermediate
// representation (C5 / spec.md §4.1): a tree of `let v = atom in body`
// bindings produced by walking an external XPath or XSLT AST. Every
// non-trivial subexpression is named by a fresh let-binding before its value
// is consumed, so the lowerer (C6) never has to re-derive evaluation order.
package ir

import "github.com/arborxml/xpvm/internal/diagnostics"

// Expr is an ANF expression: a chain of lets terminating in a tail atom.
type Expr interface {
	Accept(v Visitor)
	Span() diagnostics.Span
}

// Atom is a minimal expression whose evaluation is trivial once its operand
// atoms are in hand — spec.md §4.1's enumerated atom kinds.
type Atom interface {
	Accept(v Visitor)
	Span() diagnostics.Span
}

// Let binds the value of atom to a fresh single-assignment variable name,
// then continues in Body.
type Let struct {
	SpanVal diagnostics.Span
	Var     string
	Value   Atom
	Body    Expr
}

func (l *Let) Accept(v Visitor)            { v.VisitLet(l) }
func (l *Let) Span() diagnostics.Span      { return l.SpanVal }

// Return is the tail of an Expr chain: the result of evaluating the whole
// Expr is the value of Value.
type Return struct {
	SpanVal diagnostics.Span
	Value   Atom
}

func (r *Return) Accept(v Visitor)       { v.VisitReturn(r) }
func (r *Return) Span() diagnostics.Span { return r.SpanVal }

// nameGen hands out fresh single-assignment variable names during IR
// construction (one per Scope, created fresh by NewScope).
type nameGen struct{ n int }

func (g *nameGen) fresh(prefix string) string {
	g.n++
	return prefix + "$" + itoa(g.n)
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	return string(buf[i:])
}
