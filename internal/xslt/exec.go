package xslt

import (
	"context"
	"sort"
	"strings"

	"github.com/arborxml/xpvm/internal/convert"
	"github.com/arborxml/xpvm/internal/diagnostics"
	"github.com/arborxml/xpvm/internal/ir"
	"github.com/arborxml/xpvm/internal/runtimectx"
	"github.com/arborxml/xpvm/internal/stdlib"
	"github.com/arborxml/xpvm/internal/vm"
	"github.com/arborxml/xpvm/internal/xdm"
	"github.com/arborxml/xpvm/internal/xdmtype"
	"github.com/arborxml/xpvm/internal/xpath"
	"github.com/arborxml/xpvm/internal/xpath/ast"
	"github.com/arborxml/xpvm/internal/xpath/parser"
)

var resultType = xdmtype.SequenceType{Item: xdmtype.Item, Occurrence: xdmtype.ZeroOrMore}

// Processor runs one Stylesheet's templates against one source document.
// It is single-use and single-threaded, the same "fresh VM/DynamicContext
// per evaluation" rule spec.md §5 gives the CLI's batch mode and the RPC
// server.
type Processor struct {
	ss     *Stylesheet
	static *runtimectx.StaticContext
	dyn    *runtimectx.DynamicContext
	vm     *vm.VM
	ctx    context.Context

	vars map[string]xdm.Sequence

	selectCache map[string]*vm.Program
	predCache   map[ast.Expr]*vm.Program
}

// NewProcessor builds a Processor for ss, resolving fn:doc et al. through
// docs. The VM/Registry pair is constructed the same way pkg/engine builds
// one for a plain XPath evaluation: the resolver needs the VM to invoke
// higher-order callables, and the VM needs the resolver, so a forward
// declaration closes the cycle.
func NewProcessor(ss *Stylesheet, static *runtimectx.StaticContext, docs runtimectx.DocumentSet) *Processor {
	dyn := runtimectx.NewDynamicContext(docs, runtimectx.NewCollationProvider())
	var m *vm.VM
	invoke := func(fn xdm.Callable, args []xdm.Sequence) (xdm.Sequence, error) {
		return m.Invoke(fn, args)
	}
	registry := stdlib.NewRegistry(dyn, invoke)
	m = vm.New(static, dyn, registry)

	return &Processor{
		ss:          ss,
		static:      static,
		dyn:         dyn,
		vm:          m,
		vars:        make(map[string]xdm.Sequence),
		selectCache: make(map[string]*vm.Program),
		predCache:   make(map[ast.Expr]*vm.Program),
	}
}

// Transform applies template rules starting from root, per the built-in
// template rule for a document node, and returns the serialized result
// tree text.
func (p *Processor) Transform(ctx context.Context, root xdm.Node) (string, error) {
	p.ctx = ctx
	var out strings.Builder
	if err := p.applyTemplatesToNode(root.Handle, 1, 1, &out); err != nil {
		return "", err
	}
	return out.String(), nil
}

type ctxSnapshot struct {
	item xdm.Sequence
	pos  int
	size int
}

func (p *Processor) saveContext() ctxSnapshot {
	return ctxSnapshot{p.dyn.ContextItem, p.dyn.ContextPosition, p.dyn.ContextSize}
}

func (p *Processor) restoreContext(s ctxSnapshot) {
	p.dyn.ContextItem, p.dyn.ContextPosition, p.dyn.ContextSize = s.item, s.pos, s.size
}

func (p *Processor) withVar(name string, val xdm.Sequence, fn func() error) error {
	old, had := p.vars[name]
	p.vars[name] = val
	err := fn()
	if had {
		p.vars[name] = old
	} else {
		delete(p.vars, name)
	}
	return err
}

func (p *Processor) sortedVarNames() []string {
	names := make([]string, 0, len(p.vars))
	for name := range p.vars {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// compileWithScope compiles exprText as a program whose parameters are the
// variables currently in scope, since ir.VarRef only ever resolves against
// a compiled function's own parameter/local slots (spec.md §4.3) — there is
// no runtime variable-name lookup to hook xsl:variable into otherwise.
func (p *Processor) compileWithScope(exprText string, varNames []string) (*vm.Program, error) {
	key := strings.Join(varNames, ",") + "\x00" + exprText
	if prog, ok := p.selectCache[key]; ok {
		return prog, nil
	}
	e, err := parser.ParseNamed(exprText, "")
	if err != nil {
		return nil, err
	}
	body, err := xpath.BuildIR(e, p.static)
	if err != nil {
		return nil, err
	}
	params := make([]ir.Param, len(varNames))
	for i, name := range varNames {
		params[i] = ir.Param{Name: name, Type: resultType}
	}
	prog, err := vm.CompileProgram("xslt-select", params, resultType, body)
	if err != nil {
		return nil, err
	}
	p.selectCache[key] = prog
	return prog, nil
}

// evalSelect evaluates exprText against the current context item/position/
// size and the variables currently bound via xsl:variable/xsl:param. An
// empty exprText evaluates to the current context item, matching how
// xsl:value-of/xsl:sequence treat a missing select in this minimal
// implementation (xsl:apply-templates substitutes "node()" before calling
// here).
func (p *Processor) evalSelect(exprText string) (xdm.Sequence, error) {
	if exprText == "" {
		return p.dyn.ContextItem, nil
	}
	varNames := p.sortedVarNames()
	prog, err := p.compileWithScope(exprText, varNames)
	if err != nil {
		return xdm.Empty, err
	}
	args := make([]xdm.Sequence, len(varNames))
	for i, name := range varNames {
		args[i] = p.vars[name]
	}
	return p.vm.Run(p.ctx, prog, args)
}

func (p *Processor) evalTest(exprText string) (bool, error) {
	seq, err := p.evalSelect(exprText)
	if err != nil {
		return false, err
	}
	return convert.EffectiveBooleanValue(seq)
}

// evalPredicate implements predicateEvaluator for template pattern
// matching. Patterns are evaluated against the static context alone
// (no xsl:variable scope): the built-in template rule and initial
// apply-templates call both run before any variable is ever bound, so a
// pattern predicate referencing a stylesheet variable is out of scope for
// this minimal implementation.
func (p *Processor) evalPredicate(e ast.Expr, node xdm.NodeHandle) (bool, error) {
	prog, err := p.compilePredicateProgram(e)
	if err != nil {
		return false, err
	}
	saved := p.saveContext()
	p.dyn.ContextItem = xdm.Single(xdm.NewNode(node))
	p.dyn.ContextPosition = 1
	p.dyn.ContextSize = 1
	seq, err := p.vm.Run(p.ctx, prog, nil)
	p.restoreContext(saved)
	if err != nil {
		return false, err
	}
	return !seq.IsEmpty(), nil
}

func (p *Processor) compilePredicateProgram(e ast.Expr) (*vm.Program, error) {
	if prog, ok := p.predCache[e]; ok {
		return prog, nil
	}
	filter := &ast.FilterExpr{
		Base:       ast.Base{SpanVal: e.Span()},
		Primary:    &ast.ContextItem{Base: ast.Base{SpanVal: e.Span()}},
		Predicates: []ast.Expr{e},
	}
	body, err := xpath.BuildIR(filter, p.static)
	if err != nil {
		return nil, err
	}
	prog, err := vm.CompileProgram("xslt-pattern-predicate", nil, resultType, body)
	if err != nil {
		return nil, err
	}
	p.predCache[e] = prog
	return prog, nil
}

func (p *Processor) findTemplate(node xdm.NodeHandle) (*Template, error) {
	var best *Template
	var bestPriority float64
	for _, t := range p.ss.Templates {
		if t.MatchAST == nil {
			continue
		}
		ok, err := matchesPattern(t.MatchAST, node, p.static, p.evalPredicate)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		if best == nil || t.Priority >= bestPriority {
			best, bestPriority = t, t.Priority
		}
	}
	return best, nil
}

func (p *Processor) applyTemplatesToNode(h xdm.NodeHandle, pos, size int, out *strings.Builder) error {
	saved := p.saveContext()
	p.dyn.ContextItem = xdm.Single(xdm.NewNode(h))
	p.dyn.ContextPosition = pos
	p.dyn.ContextSize = size
	defer p.restoreContext(saved)

	tmpl, err := p.findTemplate(h)
	if err != nil {
		return err
	}
	if tmpl != nil {
		return p.bindParams(tmpl.Params, 0, tmpl.Body, out)
	}
	return p.builtinTemplateRule(h, out)
}

// builtinTemplateRule is XSLT's built-in template rule for element/
// document nodes (recurse into children), text/attribute nodes (copy the
// string value), and everything else (produce nothing).
func (p *Processor) builtinTemplateRule(h xdm.NodeHandle, out *strings.Builder) error {
	switch h.Kind() {
	case xdmtype.DocumentKind, xdmtype.ElementKind:
		children := h.Children()
		size := len(children)
		for i, c := range children {
			if err := p.applyTemplatesToNode(c, i+1, size, out); err != nil {
				return err
			}
		}
		return nil
	case xdmtype.TextKind, xdmtype.AttributeKind:
		out.WriteString(escapeText(h.StringValue()))
		return nil
	default:
		return nil
	}
}

func (p *Processor) executeInstructions(body []Instruction, out *strings.Builder) error {
	for i, instr := range body {
		if v, ok := instr.(*Variable); ok {
			val, err := p.evalVariable(v.Select, v.Body)
			if err != nil {
				return err
			}
			return p.withVar(v.Name, val, func() error {
				return p.executeInstructions(body[i+1:], out)
			})
		}
		if err := p.executeInstr(instr, out); err != nil {
			return err
		}
	}
	return nil
}

func (p *Processor) evalVariable(selectText string, body []Instruction) (xdm.Sequence, error) {
	if selectText != "" {
		return p.evalSelect(selectText)
	}
	var out strings.Builder
	if err := p.executeInstructions(body, &out); err != nil {
		return xdm.Empty, err
	}
	return xdm.Single(xdm.NewString(out.String())), nil
}

func (p *Processor) bindParams(params []Param, i int, body []Instruction, out *strings.Builder) error {
	if i >= len(params) {
		return p.executeInstructions(body, out)
	}
	param := params[i]
	val, err := p.evalVariable(param.Select, param.Default)
	if err != nil {
		return err
	}
	return p.withVar(param.Name, val, func() error {
		return p.bindParams(params, i+1, body, out)
	})
}

func (p *Processor) executeInstr(instr Instruction, out *strings.Builder) error {
	switch n := instr.(type) {
	case LiteralText:
		out.WriteString(escapeText(n.Value))
	case Text:
		out.WriteString(escapeText(n.Value))
	case *LiteralElement:
		return p.executeLiteralElement(n, out)
	case ValueOf:
		seq, err := p.evalSelect(n.Select)
		if err != nil {
			return err
		}
		sep := n.SeparatorText
		if sep == "" {
			sep = " "
		}
		s, err := sequenceToString(seq, sep)
		if err != nil {
			return err
		}
		out.WriteString(escapeText(s))
	case Sequence:
		seq, err := p.evalSelect(n.Select)
		if err != nil {
			return err
		}
		s, err := sequenceToString(seq, " ")
		if err != nil {
			return err
		}
		out.WriteString(s)
	case ApplyTemplates:
		return p.executeApplyTemplates(n, out)
	case CallTemplate:
		return p.executeCallTemplate(n, out)
	case *ForEach:
		return p.executeForEach(n, out)
	case *If:
		ok, err := p.evalTest(n.Test)
		if err != nil {
			return err
		}
		if ok {
			return p.executeInstructions(n.Body, out)
		}
		return nil
	case *Choose:
		return p.executeChoose(n, out)
	default:
		return diagnostics.New(diagnostics.XPST0003, "unsupported xslt instruction %T", instr)
	}
	return nil
}

func (p *Processor) executeApplyTemplates(n ApplyTemplates, out *strings.Builder) error {
	selectText := n.Select
	if selectText == "" {
		selectText = "node()"
	}
	seq, err := p.evalSelect(selectText)
	if err != nil {
		return err
	}
	items := seq.Items()
	size := len(items)
	for i, it := range items {
		node, ok := it.(xdm.Node)
		if !ok {
			return diagnostics.New(diagnostics.XPTY0004, "xsl:apply-templates select must produce nodes")
		}
		if err := p.applyTemplatesToNode(node.Handle, i+1, size, out); err != nil {
			return err
		}
	}
	return nil
}

func (p *Processor) executeCallTemplate(n CallTemplate, out *strings.Builder) error {
	for _, t := range p.ss.Templates {
		if t.Name == n.Name {
			return p.bindParams(t.Params, 0, t.Body, out)
		}
	}
	return diagnostics.New(diagnostics.XPST0003, "no template named %q", n.Name)
}

func (p *Processor) executeForEach(n *ForEach, out *strings.Builder) error {
	seq, err := p.evalSelect(n.Select)
	if err != nil {
		return err
	}
	items := seq.Items()
	size := len(items)
	saved := p.saveContext()
	defer p.restoreContext(saved)
	for i, it := range items {
		p.dyn.ContextItem = xdm.Single(it)
		p.dyn.ContextPosition = i + 1
		p.dyn.ContextSize = size
		if err := p.executeInstructions(n.Body, out); err != nil {
			return err
		}
	}
	return nil
}

func (p *Processor) executeChoose(n *Choose, out *strings.Builder) error {
	for _, w := range n.Whens {
		ok, err := p.evalTest(w.Test)
		if err != nil {
			return err
		}
		if ok {
			return p.executeInstructions(w.Body, out)
		}
	}
	return p.executeInstructions(n.Otherwise, out)
}

func (p *Processor) executeLiteralElement(n *LiteralElement, out *strings.Builder) error {
	out.WriteByte('<')
	out.WriteString(n.Name)
	for _, a := range n.Attrs {
		val, err := p.resolveAVT(a.Value)
		if err != nil {
			return err
		}
		out.WriteByte(' ')
		out.WriteString(a.Name)
		out.WriteString(`="`)
		out.WriteString(escapeAttr(val))
		out.WriteByte('"')
	}
	if len(n.Body) == 0 {
		out.WriteString("/>")
		return nil
	}
	out.WriteByte('>')
	if err := p.executeInstructions(n.Body, out); err != nil {
		return err
	}
	out.WriteString("</")
	out.WriteString(n.Name)
	out.WriteByte('>')
	return nil
}

// resolveAVT resolves an attribute value template's "{expr}" segments
// ("{{"/"}}" escape a literal brace). The scan is brace-counting rather
// than XPath-tokenizer-aware, so an expr containing a literal '}' inside a
// string literal is not supported — a scoping simplification acceptable
// for this minimal implementation.
func (p *Processor) resolveAVT(tmpl string) (string, error) {
	var out strings.Builder
	i := 0
	for i < len(tmpl) {
		c := tmpl[i]
		switch {
		case c == '{' && i+1 < len(tmpl) && tmpl[i+1] == '{':
			out.WriteByte('{')
			i += 2
		case c == '}' && i+1 < len(tmpl) && tmpl[i+1] == '}':
			out.WriteByte('}')
			i += 2
		case c == '{':
			end := strings.IndexByte(tmpl[i+1:], '}')
			if end < 0 {
				return "", diagnostics.New(diagnostics.XPST0003, "unterminated attribute value template in %q", tmpl)
			}
			expr := tmpl[i+1 : i+1+end]
			seq, err := p.evalSelect(expr)
			if err != nil {
				return "", err
			}
			s, err := sequenceToString(seq, " ")
			if err != nil {
				return "", err
			}
			out.WriteString(s)
			i += 1 + end + 1
		default:
			out.WriteByte(c)
			i++
		}
	}
	return out.String(), nil
}

func sequenceToString(seq xdm.Sequence, sep string) (string, error) {
	items := seq.Items()
	if len(items) == 0 {
		return "", nil
	}
	parts := make([]string, len(items))
	for i, it := range items {
		switch v := it.(type) {
		case xdm.Node:
			parts[i] = v.Handle.StringValue()
		case xdm.Atomic:
			casted, err := convert.CastAtomic(v, xdmtype.String)
			if err != nil {
				return "", err
			}
			parts[i] = casted.Str
		default:
			return "", diagnostics.New(diagnostics.XPTY0004, "cannot convert item to a string value")
		}
	}
	return strings.Join(parts, sep), nil
}

func escapeText(s string) string {
	r := strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")
	return r.Replace(s)
}

func escapeAttr(s string) string {
	r := strings.NewReplacer("&", "&amp;", "<", "&lt;", `"`, "&quot;")
	return r.Replace(s)
}
