package ir

import (
	"github.com/arborxml/xpvm/internal/diagnostics"
	"github.com/arborxml/xpvm/internal/name"
	"github.com/arborxml/xpvm/internal/xdm"
	"github.com/arborxml/xpvm/internal/xdmtype"
)

// Const is a literal atomic value or the empty sequence.
type Const struct {
	SpanVal diagnostics.Span
	Value   xdm.Sequence
}

func (c *Const) Accept(v Visitor)       { v.VisitConst(c) }
func (c *Const) Span() diagnostics.Span { return c.SpanVal }

// VarRef reads a previously let-bound or parameter-bound variable.
type VarRef struct {
	SpanVal diagnostics.Span
	Name    string
}

func (r *VarRef) Accept(v Visitor)       { v.VisitVarRef(r) }
func (r *VarRef) Span() diagnostics.Span { return r.SpanVal }

// ContextItem reads `.`, the current context item.
type ContextItem struct {
	SpanVal diagnostics.Span
}

func (c *ContextItem) Accept(v Visitor)       { v.VisitContextItem(c) }
func (c *ContextItem) Span() diagnostics.Span { return c.SpanVal }

// ContextPosition reads fn:position(), ContextSize reads fn:last().
type ContextPosition struct{ SpanVal diagnostics.Span }
type ContextSize struct{ SpanVal diagnostics.Span }

func (c *ContextPosition) Accept(v Visitor)       { v.VisitContextPosition(c) }
func (c *ContextPosition) Span() diagnostics.Span { return c.SpanVal }
func (c *ContextSize) Accept(v Visitor)           { v.VisitContextSize(c) }
func (c *ContextSize) Span() diagnostics.Span     { return c.SpanVal }

// BinOpKind enumerates every binary operator lowered to a single IR node:
// arithmetic, value/general comparison, string concatenation, sequence
// union/intersect/except, range, simple-map, and sequence construction.
type BinOpKind uint8

const (
	OpAdd BinOpKind = iota
	OpSub
	OpMul
	OpDiv
	OpIDiv
	OpMod
	OpEq
	OpNe
	OpLt
	OpLe
	OpGt
	OpGe
	OpValueEq
	OpValueNe
	OpValueLt
	OpValueLe
	OpValueGt
	OpValueGe
	OpIs
	OpNodeBefore
	OpNodeAfter
	OpConcat    // string `||`
	OpUnion     // `|` / `union`
	OpIntersect
	OpExcept
	OpRange    // `to`
	OpSimpleMap // `!`
	OpSeq      // `,`
	OpAnd
	OpOr
)

// BinOp applies a binary operator to two already-named operand atoms.
type BinOp struct {
	SpanVal diagnostics.Span
	Op      BinOpKind
	Left    Atom
	Right   Atom
}

func (b *BinOp) Accept(v Visitor)       { v.VisitBinOp(b) }
func (b *BinOp) Span() diagnostics.Span { return b.SpanVal }

// UnaryOpKind enumerates unary operators (arithmetic negation, `not`).
type UnaryOpKind uint8

const (
	OpNeg UnaryOpKind = iota
	OpNot
)

type UnaryOp struct {
	SpanVal  diagnostics.Span
	Op       UnaryOpKind
	Operand  Atom
}

func (u *UnaryOp) Accept(v Visitor)       { v.VisitUnaryOp(u) }
func (u *UnaryOp) Span() diagnostics.Span { return u.SpanVal }

// Axis enumerates the XPath axes a PathStep may navigate.
type Axis uint8

const (
	AxisChild Axis = iota
	AxisDescendant
	AxisDescendantOrSelf
	AxisParent
	AxisAncestor
	AxisAncestorOrSelf
	AxisFollowing
	AxisFollowingSibling
	AxisPreceding
	AxisPrecedingSibling
	AxisAttribute
	AxisSelf
	AxisNamespace
)

// NodeTest filters the nodes a PathStep yields: by node kind, and optionally
// by an expanded QName (empty Local matches any name for that kind).
type NodeTest struct {
	Kind  xdmtype.NodeKind
	Name  name.Expanded // zero value (empty Local) means "any name"
	IsAny bool          // node() wildcard, ignores Name entirely
}

// PathStep navigates one axis step from Context, applying NodeTest and then
// each predicate in Predicates in turn (predicates are already normalized so
// a numeric predicate value compares to context position and any other
// value is coerced via effective boolean value — spec.md §4.1).
type PathStep struct {
	SpanVal    diagnostics.Span
	Axis       Axis
	Test       NodeTest
	Context    Atom
	Predicates []Expr
}

func (p *PathStep) Accept(v Visitor)       { v.VisitPathStep(p) }
func (p *PathStep) Span() diagnostics.Span { return p.SpanVal }
