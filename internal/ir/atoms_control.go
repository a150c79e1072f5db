package ir

import "github.com/arborxml/xpvm/internal/diagnostics"

// If evaluates Cond's effective boolean value and continues in Then or Else.
type If struct {
	SpanVal    diagnostics.Span
	Cond       Atom
	Then, Else Expr
}

func (i *If) Accept(v Visitor)       { v.VisitIf(i) }
func (i *If) Span() diagnostics.Span { return i.SpanVal }

// For binds Var to each item of Source in turn (cartesian iteration one
// variable at a time — a multi-variable `for` clause is desugared by the
// builder into nested single-variable Fors per spec.md §4.1) and evaluates
// Body once per binding, concatenating the results in order.
type For struct {
	SpanVal diagnostics.Span
	Var     string
	Source  Atom
	Body    Expr
}

func (f *For) Accept(v Visitor)       { v.VisitFor(f) }
func (f *For) Span() diagnostics.Span { return f.SpanVal }

// QuantifierKind distinguishes `some` from `every`.
type QuantifierKind uint8

const (
	QuantSome QuantifierKind = iota
	QuantEvery
)

// Quantified evaluates Test's effective boolean value once per binding of
// Var to an item of Source, short-circuiting as soon as the quantifier's
// outcome is determined.
type Quantified struct {
	SpanVal diagnostics.Span
	Kind    QuantifierKind
	Var     string
	Source  Atom
	Test    Expr
}

func (q *Quantified) Accept(v Visitor)       { v.VisitQuantified(q) }
func (q *Quantified) Span() diagnostics.Span { return q.SpanVal }
