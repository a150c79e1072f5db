package xslt

import (
	"github.com/arborxml/xpvm/internal/diagnostics"
	"github.com/arborxml/xpvm/internal/runtimectx"
	"github.com/arborxml/xpvm/internal/xdm"
	"github.com/arborxml/xpvm/internal/xdmtype"
	"github.com/arborxml/xpvm/internal/xpath/ast"
)

// predicateEvaluator tests a step predicate against a candidate node,
// evaluated with that node as the context item; Processor.evalPredicate
// supplies the real implementation, backed by the compile/run pipeline.
type predicateEvaluator func(e ast.Expr, node xdm.NodeHandle) (bool, error)

// matchesPattern reports whether node matches the match pattern e, itself
// an ordinary XPath expression restricted (per XSLT 3.0 §5.5.3) to path
// expressions and unions of path expressions.
//
// Steps joined by the default "child"/"attribute" axes require an exact
// ancestor chain; a step reached via "descendant"/"descendant-or-self" (a
// pattern's "//" separator) searches the ancestor chain at any depth. Axes
// besides these two families do not arise in conforming patterns and are
// treated the same as "child" rather than rejected outright.
func matchesPattern(e ast.Expr, node xdm.NodeHandle, sc *runtimectx.StaticContext, eval predicateEvaluator) (bool, error) {
	switch n := e.(type) {
	case *ast.PathExpr:
		return matchesPath(n, node, sc, eval)
	case *ast.BinExpr:
		if n.Op != "union" {
			return false, diagnostics.At(diagnostics.XPST0003, n.Span(), "unsupported pattern operator %q", n.Op)
		}
		ok, err := matchesPattern(n.Left, node, sc, eval)
		if err != nil || ok {
			return ok, err
		}
		return matchesPattern(n.Right, node, sc, eval)
	default:
		return false, diagnostics.At(diagnostics.XPST0003, e.Span(), "unsupported pattern expression %T", e)
	}
}

func matchesPath(p *ast.PathExpr, node xdm.NodeHandle, sc *runtimectx.StaticContext, eval predicateEvaluator) (bool, error) {
	if len(p.Steps) == 0 {
		return false, nil
	}
	return matchSteps(p.Steps, len(p.Steps)-1, node, sc, eval)
}

func matchSteps(steps []ast.Step, idx int, node xdm.NodeHandle, sc *runtimectx.StaticContext, eval predicateEvaluator) (bool, error) {
	ok, err := testStep(steps[idx], node, sc, eval)
	if err != nil || !ok {
		return false, err
	}
	if idx == 0 {
		return true, nil
	}
	switch steps[idx].Axis {
	case "descendant", "descendant-or-self":
		cur := node
		if steps[idx].Axis == "descendant-or-self" {
			matched, err := matchSteps(steps, idx-1, node, sc, eval)
			if err != nil || matched {
				return matched, err
			}
		}
		for {
			parent, ok := cur.Parent()
			if !ok {
				return false, nil
			}
			matched, err := matchSteps(steps, idx-1, parent, sc, eval)
			if err != nil || matched {
				return matched, err
			}
			cur = parent
		}
	default:
		parent, ok := node.Parent()
		if !ok {
			return false, nil
		}
		return matchSteps(steps, idx-1, parent, sc, eval)
	}
}

func testStep(step ast.Step, node xdm.NodeHandle, sc *runtimectx.StaticContext, eval predicateEvaluator) (bool, error) {
	if !testKind(step, node, sc) {
		return false, nil
	}
	for _, pred := range step.Predicates {
		ok, err := eval(pred, node)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

func testKind(step ast.Step, node xdm.NodeHandle, sc *runtimectx.StaticContext) bool {
	t := step.Test
	switch t.Kind {
	case "":
		principal := xdmtype.ElementKind
		if step.Axis == "attribute" {
			principal = xdmtype.AttributeKind
		}
		if node.Kind() != principal {
			return false
		}
		if t.Any {
			return true
		}
		uri, local := node.Name()
		if t.LocalWildcard {
			return uri == resolveTestURI(sc, t.Prefix)
		}
		if t.PrefixWildcard {
			return local == t.Local
		}
		return uri == resolveTestURI(sc, t.Prefix) && local == t.Local
	case "node":
		return true
	case "text":
		return node.Kind() == xdmtype.TextKind
	case "comment":
		return node.Kind() == xdmtype.CommentKind
	case "processing-instruction":
		return node.Kind() == xdmtype.ProcessingInstructionKind
	case "document-node":
		return node.Kind() == xdmtype.DocumentKind
	case "element":
		return node.Kind() == xdmtype.ElementKind
	case "attribute":
		return node.Kind() == xdmtype.AttributeKind
	case "namespace-node":
		return node.Kind() == xdmtype.NamespaceKind
	default:
		return false
	}
}

func resolveTestURI(sc *runtimectx.StaticContext, prefix string) string {
	if prefix == "" {
		return sc.DefaultElementNamespace
	}
	if uri, ok := sc.Namespaces.Resolve(prefix); ok {
		return uri
	}
	return ""
}
