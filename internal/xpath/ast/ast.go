// Package ast defines the concrete syntax tree produced by
// internal/xpath/parser, one level above internal/ir's ANF atoms: unlike ir,
// ast keeps the source-level shape (nested binary expressions, an explicit
// path-step list) so the parser stays a straightforward recursive-descent
// grammar walk; internal/xpath's builder flattens this into ir.Expr/ir.Atom.
package ast

import "github.com/arborxml/xpvm/internal/diagnostics"

// Node is implemented by every AST node, giving it a source span for error
// reporting.
type Node interface {
	Span() diagnostics.Span
}

type Base struct{ SpanVal diagnostics.Span }

func (b Base) Span() diagnostics.Span { return b.SpanVal }

// Expr is any XPath expression node.
type Expr interface {
	Node
	exprNode()
}

func (Base) exprNode() {}

type StringLiteral struct {
	Base
	Value string
}

type NumericLiteral struct {
	Base
	Text string // preserves the original lexical form for int/decimal/double dispatch
}

type VarRef struct {
	Base
	Name string // QName text, unresolved
}

type ContextItem struct{ Base }

// Seq is the top-level comma operator: `e1, e2, e3`.
type Seq struct {
	Base
	Items []Expr
}

type BinExpr struct {
	Base
	Op          string // operator spelling: "+", "and", "eq", "to", "!", ...
	Left, Right Expr
}

type UnaryExpr struct {
	Base
	Op      string // "-" or "+"
	Operand Expr
}

// ForBinding / LetBinding are one clause of a `for`/`let` expression.
type ForBinding struct {
	Var    string
	Source Expr
}

type ForExpr struct {
	Base
	Bindings []ForBinding
	Return   Expr
}

type LetBinding struct {
	Var   string
	Value Expr
}

type LetExpr struct {
	Base
	Bindings []LetBinding
	Return   Expr
}

type QuantifiedExpr struct {
	Base
	Every    bool
	Bindings []ForBinding
	Test     Expr
}

type IfExpr struct {
	Base
	Cond, Then, Else Expr
}

// NodeTest names what an axis step is allowed to match. When Kind is "" this
// is a NameTest: Any means "*", PrefixWildcard means "*:local", otherwise
// Prefix/Local name the QName (Prefix "" and LocalWildcard true means
// "prefix:*" with no prefix, i.e. a plain unqualified wildcard is Any).
type NodeTest struct {
	Kind string // "", "element", "attribute", "text", "comment", "processing-instruction", "document-node", "node", "namespace-node"

	Any            bool
	Prefix         string
	PrefixWildcard bool
	Local          string
	LocalWildcard  bool
}

// Step is one axis step of a path expression.
type Step struct {
	Base
	Axis       string // "child", "descendant", ..., matches ir.Axis names
	Test       NodeTest
	Predicates []Expr
}

// PathExpr is a sequence of steps, optionally rooted at the document ("/x")
// or starting with a descendant-or-self shorthand ("//x").
type PathExpr struct {
	Base
	Absolute       bool // leading "/"
	LeadingDescOrSelf bool // leading "//"
	Steps          []Step
}

// FilterExpr applies predicates/lookups to an arbitrary primary expression,
// e.g. `(1 to 5)[. mod 2 = 0]` or `$m?a`.
type FilterExpr struct {
	Base
	Primary    Expr
	Predicates []Expr
}

type FunctionCall struct {
	Base
	Name string // QName text; unprefixed calls default to the fn: namespace
	Args []Expr
}

// NamedFunctionRef is `prefix:local#arity`, a reference to a function item
// without calling it.
type NamedFunctionRef struct {
	Base
	Name  string
	Arity int
}

// DynamicCall applies a function-item-valued expression to Args, used for
// both `$f(1, 2)` and argument placeholders (`?`) producing a partial
// application when any Args entry is nil.
type DynamicCall struct {
	Base
	Fn   Expr
	Args []Expr
}

type Param struct {
	Name string
	Type *SequenceType // nil means untyped (item()*)
}

type InlineFunction struct {
	Base
	Params []Param
	Return *SequenceType
	Body   Expr // nil for an empty body ("function() {}")
}

type MapEntry struct {
	Key, Value Expr
}

type MapConstructor struct {
	Base
	Entries []MapEntry
}

type ArrayConstructor struct {
	Base
	IsCurly  bool
	Members  []Expr // square constructor: one member per Expr; curly: one content expr, none for `array{}`
}

// Lookup is `expr?key`, `expr?*`, or unary `?key` (Target == nil).
type Lookup struct {
	Base
	Target    Expr // nil for a unary lookup, filled in relative to the context item
	Key       Expr // nil when Wildcard
	Wildcard  bool
}

// SequenceType names a type used by cast/castable/treat/instance-of and
// inline function parameter/return annotations. Kept intentionally coarse:
// atomic types are the QName text ("xs:integer"); node kind tests reuse
// NodeTest.
type SequenceType struct {
	EmptySequence bool
	Atomic        string // QName text, empty if this is a node/item type
	Node          *NodeTest
	Item          bool // plain item()
	Occurrence    byte // 0 = one, '?' , '*', '+'
}

// ConversionExpr covers cast/castable/treat/instance-of, which all share the
// "operand, target SequenceType" shape.
type ConversionExpr struct {
	Base
	Kind   string // "cast", "castable", "treat", "instanceof"
	Operand Expr
	Target  SequenceType
}

