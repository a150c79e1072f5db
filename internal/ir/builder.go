package ir

import "github.com/arborxml/xpvm/internal/diagnostics"

// Scope accumulates Let bindings for one ANF expression under construction.
// The external AST-to-IR walker (in internal/xpath and internal/xslt) opens
// a Scope per compiled body, calls Bind for every non-trivial subexpression
// it lowers, and calls Finish once with the final tail atom.
type Scope struct {
	gen    *nameGen
	prefix string
	pend   []pendingLet
}

type pendingLet struct {
	span diagnostics.Span
	v    string
	atom Atom
}

// NewScope opens a fresh binding scope; prefix namespaces the generated
// variable names (e.g. "t" for template bodies, "e" for expressions) purely
// for readability in disassembly/debug output.
func NewScope(prefix string) *Scope {
	return &Scope{gen: &nameGen{}, prefix: prefix}
}

// Bind names atom's value with a fresh variable and returns a VarRef to it.
// Trivial atoms (Const, VarRef, ContextItem/Position/Size) are returned
// unbound, since naming them would add a binding with no benefit.
func (s *Scope) Bind(span diagnostics.Span, atom Atom) Atom {
	switch atom.(type) {
	case *Const, *VarRef, *ContextItem, *ContextPosition, *ContextSize:
		return atom
	}
	v := s.gen.fresh(s.prefix)
	s.pend = append(s.pend, pendingLet{span: span, v: v, atom: atom})
	return &VarRef{SpanVal: span, Name: v}
}

// BindNamed binds atom under an explicit (user-source) variable name, used
// for `let`/`for`/parameter bindings where the name is not synthetic.
func (s *Scope) BindNamed(span diagnostics.Span, name string, atom Atom) Atom {
	s.pend = append(s.pend, pendingLet{span: span, v: name, atom: atom})
	return &VarRef{SpanVal: span, Name: name}
}

// Finish closes the scope, producing the Let-chain that evaluates every
// pending binding in emission order before yielding tail.
func (s *Scope) Finish(span diagnostics.Span, tail Atom) Expr {
	var expr Expr = &Return{SpanVal: span, Value: tail}
	for i := len(s.pend) - 1; i >= 0; i-- {
		p := s.pend[i]
		expr = &Let{SpanVal: p.span, Var: p.v, Value: p.atom, Body: expr}
	}
	return expr
}

// Fresh hands out a fresh synthetic variable name without binding anything,
// used for `for`/`quantified` loop variables whose binding is owned by the
// For/Quantified node itself rather than a Let.
func (s *Scope) Fresh(prefix string) string {
	return s.gen.fresh(prefix)
}
