package ir

import (
	"github.com/arborxml/xpvm/internal/diagnostics"
	"github.com/arborxml/xpvm/internal/name"
	"github.com/arborxml/xpvm/internal/xdmtype"
)

// ConversionKind distinguishes the four `as`-family operators.
type ConversionKind uint8

const (
	ConvCast ConversionKind = iota
	ConvCastable
	ConvTreat
	ConvInstanceOf
)

// Conversion applies cast/castable/treat/instance-of to Source against
// Target. Cast/Treat raise a dynamic error on mismatch; Castable/InstanceOf
// yield a boolean instead.
type Conversion struct {
	SpanVal  diagnostics.Span
	Kind     ConversionKind
	Source   Atom
	Target   xdmtype.SequenceType
	Optional bool // `cast as T?` allows the empty sequence
}

func (c *Conversion) Accept(v Visitor)       { v.VisitConversion(c) }
func (c *Conversion) Span() diagnostics.Span { return c.SpanVal }

// StaticCall invokes a function whose name and arity are known at build
// time — a built-in or an in-scope named function.
type StaticCall struct {
	SpanVal diagnostics.Span
	Name    name.Expanded
	Args    []Atom
}

func (s *StaticCall) Accept(v Visitor)       { v.VisitStaticCall(s) }
func (s *StaticCall) Span() diagnostics.Span { return s.SpanVal }

// DynamicCall invokes a function item value (the result of evaluating Fn)
// with Args — used for higher-order calls and fn:function-lookup results.
type DynamicCall struct {
	SpanVal diagnostics.Span
	Fn      Atom
	Args    []Atom
}

func (d *DynamicCall) Accept(v Visitor)       { v.VisitDynamicCall(d) }
func (d *DynamicCall) Span() diagnostics.Span { return d.SpanVal }

// PartialArg is one argument position in a partial-application call: either
// a bound atom, or a placeholder (`?`) that becomes a parameter of the
// resulting closure, in placeholder order.
type PartialArg struct {
	Placeholder bool
	Value       Atom // nil when Placeholder
}

// PartialApply constructs a new function item by fixing some positional
// arguments of Fn and leaving the `?` positions open.
type PartialApply struct {
	SpanVal diagnostics.Span
	Fn      Atom
	Args    []PartialArg
}

func (p *PartialApply) Accept(v Visitor)       { v.VisitPartialApply(p) }
func (p *PartialApply) Span() diagnostics.Span { return p.SpanVal }

// Param is one formal parameter of an InlineFunc.
type Param struct {
	Name string
	Type xdmtype.SequenceType
}

// InlineFunc is a closure literal: `function($x as xs:integer) as xs:integer
// { $x + 1 }` or an XSLT named-template-as-function. FreeVars is the set of
// variables referenced in Body but bound outside it, recorded by the builder
// (spec.md §4.1's "recording the set of free variables on every inline
// function definition") so the lowerer knows exactly what MakeClosure must
// snapshot.
type InlineFunc struct {
	SpanVal  diagnostics.Span
	Name     string // "" for an anonymous function literal
	Params   []Param
	Return   xdmtype.SequenceType
	FreeVars []string
	Body     Expr
}

func (f *InlineFunc) Accept(v Visitor)       { v.VisitInlineFunc(f) }
func (f *InlineFunc) Span() diagnostics.Span { return f.SpanVal }
