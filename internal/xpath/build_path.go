package xpath

import (
	"github.com/arborxml/xpvm/internal/diagnostics"
	"github.com/arborxml/xpvm/internal/ir"
	"github.com/arborxml/xpvm/internal/name"
	"github.com/arborxml/xpvm/internal/xdmtype"
	"github.com/arborxml/xpvm/internal/xpath/ast"
)

var axisMap = map[string]ir.Axis{
	"child":              ir.AxisChild,
	"descendant":         ir.AxisDescendant,
	"descendant-or-self": ir.AxisDescendantOrSelf,
	"parent":             ir.AxisParent,
	"ancestor":           ir.AxisAncestor,
	"ancestor-or-self":   ir.AxisAncestorOrSelf,
	"following":          ir.AxisFollowing,
	"following-sibling":  ir.AxisFollowingSibling,
	"preceding":          ir.AxisPreceding,
	"preceding-sibling":  ir.AxisPrecedingSibling,
	"attribute":          ir.AxisAttribute,
	"self":               ir.AxisSelf,
	"namespace":          ir.AxisNamespace,
}

// axisImpliedKind is the node kind a bare name test matches on a given
// axis: attribute/namespace axes yield attributes/namespace nodes, every
// other axis (that can carry a name test at all) yields elements.
func axisImpliedKind(axis string) xdmtype.NodeKind {
	switch axis {
	case "attribute":
		return xdmtype.AttributeKind
	case "namespace":
		return xdmtype.NamespaceKind
	default:
		return xdmtype.ElementKind
	}
}

// resolveTestName expands a NameTest's prefix against the in-scope
// namespaces. `*` matches any name; `*:local` and `prefix:*` cannot be
// expressed exactly by ir.NodeTest (which pairs one fixed kind with at most
// one fixed expanded name), so both wildcard-with-one-part-fixed forms are
// downgraded: `*:local` matches only the no-namespace name `local`,
// `prefix:*` matches any name in any namespace (over-matching rather than
// under-matching, since silently excluding a whole namespace would be the
// more surprising failure mode).
func (b *builder) resolveTestName(axis string, nt ast.NodeTest, span diagnostics.Span) (name.Expanded, error) {
	if nt.Any {
		return name.Expanded{}, nil
	}
	if nt.PrefixWildcard {
		return name.New("", nt.Local), nil
	}
	if nt.LocalWildcard {
		return name.Expanded{}, nil
	}
	if nt.Prefix == "" {
		if axisImpliedKind(axis) == xdmtype.ElementKind {
			return name.New(b.sc.DefaultElementNamespace, nt.Local), nil
		}
		return name.New("", nt.Local), nil
	}
	uri, ok := b.sc.Namespaces.Resolve(nt.Prefix)
	if !ok {
		return name.Expanded{}, diagnostics.At(diagnostics.XPST0081, span, "unresolvable namespace prefix %q", nt.Prefix)
	}
	return name.New(uri, nt.Local).WithPrefix(nt.Prefix), nil
}

// buildNodeTest lowers one ast.Step's NodeTest to ir.NodeTest.
func (b *builder) buildNodeTest(axis string, nt ast.NodeTest, span diagnostics.Span) (ir.NodeTest, error) {
	if nt.Kind == "node" {
		return ir.NodeTest{IsAny: true}, nil
	}
	if nt.Kind != "" {
		kind, err := kindTestKind(nt.Kind)
		if err != nil {
			return ir.NodeTest{}, err
		}
		if nt.Local == "" {
			return ir.NodeTest{Kind: kind}, nil
		}
		return ir.NodeTest{Kind: kind, Name: name.New("", nt.Local)}, nil
	}
	nm, err := b.resolveTestName(axis, nt, span)
	if err != nil {
		return ir.NodeTest{}, err
	}
	return ir.NodeTest{Kind: axisImpliedKind(axis), Name: nm}, nil
}

// buildPath lowers an ast.PathExpr. An absolute path first narrows the
// context to the document-node ancestor-or-self of the context item (the
// tree root); "//" at the very start of a path additionally inserts a
// descendant-or-self::node() step, matching what an interior "//" expands
// to in parseRelativeSteps.
func (b *builder) buildPath(scope *ir.Scope, e *ast.PathExpr) (ir.Atom, error) {
	var ctx ir.Atom = &ir.ContextItem{SpanVal: e.SpanVal}
	if e.Absolute {
		ctx = &ir.PathStep{
			SpanVal: e.SpanVal,
			Axis:    ir.AxisAncestorOrSelf,
			Test:    ir.NodeTest{Kind: xdmtype.DocumentKind},
			Context: ctx,
		}
		if e.LeadingDescOrSelf {
			ctx = &ir.PathStep{
				SpanVal: e.SpanVal,
				Axis:    ir.AxisDescendantOrSelf,
				Test:    ir.NodeTest{IsAny: true},
				Context: ctx,
			}
		}
	}

	steps := e.Steps
	if len(steps) > 0 && steps[0].Axis == "" {
		primary, err := b.buildExpr(scope, steps[0].Predicates[0])
		if err != nil {
			return nil, err
		}
		ctx = primary
		steps = steps[1:]
	}

	for _, step := range steps {
		axis, ok := axisMap[step.Axis]
		if !ok {
			return nil, diagnostics.At(diagnostics.XPST0003, step.Span(), "unknown axis %q", step.Axis)
		}
		test, err := b.buildNodeTest(step.Axis, step.Test, step.Span())
		if err != nil {
			return nil, err
		}
		preds := make([]ir.Expr, len(step.Predicates))
		for i, p := range step.Predicates {
			predScope := ir.NewScope(b.prefix)
			atom, err := b.buildExpr(predScope, p)
			if err != nil {
				return nil, err
			}
			preds[i] = predScope.Finish(p.Span(), atom)
		}
		ctx = &ir.PathStep{SpanVal: step.Span(), Axis: axis, Test: test, Context: ctx, Predicates: preds}
	}
	return ctx, nil
}

// buildFilter lowers `primary[pred]...` (ast.FilterExpr): predicate
// filtering only exists in the IR attached to a PathStep's Predicates list,
// so a filter over an arbitrary primary is expressed as a self::node()
// step. This is exact when primary yields nodes (the common case — filtering
// path results, `.`, or a variable bound to a node sequence) and raises a
// runtime type error for a filtered atomic-value sequence such as
// `(1,2,3)[. = 2]`, since execAxisStep requires a node context item; there
// is no non-path predicate-filter instruction to fall back on.
func (b *builder) buildFilter(scope *ir.Scope, e *ast.FilterExpr) (ir.Atom, error) {
	primary, err := b.buildExpr(scope, e.Primary)
	if err != nil {
		return nil, err
	}
	preds := make([]ir.Expr, len(e.Predicates))
	for i, p := range e.Predicates {
		predScope := ir.NewScope(b.prefix)
		atom, err := b.buildExpr(predScope, p)
		if err != nil {
			return nil, err
		}
		preds[i] = predScope.Finish(p.Span(), atom)
	}
	return &ir.PathStep{
		SpanVal:    e.SpanVal,
		Axis:       ir.AxisSelf,
		Test:       ir.NodeTest{IsAny: true},
		Context:    primary,
		Predicates: preds,
	}, nil
}
