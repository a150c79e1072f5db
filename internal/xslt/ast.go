// Package xslt implements a minimal, functioning subset of XSLT 3.0:
// literal result elements, xsl:template match/call dispatch, xsl:value-of,
// xsl:apply-templates, xsl:for-each, xsl:if/xsl:choose, xsl:variable, and
// xsl:text, compiled against the same internal/xpath/internal/vm pipeline
// XPath queries use. It exists so the core compilation/execution pipeline
// is exercisable end-to-end, not as a complete processor (spec.md §6).
package xslt

import "github.com/arborxml/xpvm/internal/xpath/ast"

// Namespace is the fixed XSLT instruction namespace; elements outside it
// inside a template body are literal result elements.
const Namespace = "http://www.w3.org/1999/XSL/Transform"

// Stylesheet is a parsed xsl:stylesheet (or xsl:transform) document.
type Stylesheet struct {
	Version   string
	BaseURI   string
	Templates []*Template
}

// Template is one xsl:template: named, pattern-matched, or both.
type Template struct {
	Match       string
	MatchAST    ast.Expr
	Name        string
	Priority    float64
	HasPriority bool
	Params      []Param
	Body        []Instruction
}

// Param is an xsl:param inside a template.
type Param struct {
	Name    string
	Select  string
	Default []Instruction
}

// Instruction is one node of a template body.
type Instruction interface{ instr() }

// LiteralText is a text node copied verbatim from the stylesheet.
type LiteralText struct{ Value string }

// LiteralElement is a non-xsl: element in a template body, emitted to the
// result tree with its attributes (attribute value templates resolved at
// render time) and its own body re-processed as instructions.
type LiteralElement struct {
	Name  string
	Attrs []Attr
	Body  []Instruction
}

// Attr is one literal result element attribute, possibly containing
// "{expr}" attribute value template segments.
type Attr struct {
	Name  string
	Value string
}

// ValueOf is xsl:value-of.
type ValueOf struct {
	Select        string
	SeparatorText string
}

// Text is xsl:text.
type Text struct{ Value string }

// ApplyTemplates is xsl:apply-templates. An empty Select means child::node().
type ApplyTemplates struct{ Select string }

// CallTemplate is xsl:call-template.
type CallTemplate struct{ Name string }

// ForEach is xsl:for-each.
type ForEach struct {
	Select string
	Body   []Instruction
}

// If is xsl:if.
type If struct {
	Test string
	Body []Instruction
}

// Choose is xsl:choose.
type Choose struct {
	Whens     []*When
	Otherwise []Instruction
}

// When is one xsl:when branch of a Choose.
type When struct {
	Test string
	Body []Instruction
}

// Variable is xsl:variable (or xsl:param, outside a Template's own Params
// list, when it appears inside a body rather than directly under
// xsl:template).
type Variable struct {
	Name   string
	Select string
	Body   []Instruction
}

// Sequence is xsl:sequence.
type Sequence struct{ Select string }

func (LiteralText) instr()    {}
func (*LiteralElement) instr() {}
func (ValueOf) instr()        {}
func (Text) instr()           {}
func (ApplyTemplates) instr() {}
func (CallTemplate) instr()   {}
func (*ForEach) instr()        {}
func (*If) instr()              {}
func (*Choose) instr()          {}
func (*Variable) instr()        {}
func (Sequence) instr()       {}
