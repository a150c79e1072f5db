package xslt

import (
	"testing"

	"github.com/arborxml/xpvm/internal/runtimectx"
	"github.com/arborxml/xpvm/internal/tree"
	"github.com/arborxml/xpvm/internal/xdm"
	"github.com/arborxml/xpvm/internal/xpath/ast"
	"github.com/arborxml/xpvm/internal/xpath/parser"
)

func handleOf(t *testing.T, xml, xpath string) xdm.NodeHandle {
	t.Helper()
	docs := tree.NewDocumentSet()
	seq, err := docs.Load([]byte(xml), "")
	if err != nil {
		t.Fatalf("loading document: %v", err)
	}
	doc, ok := seq.First()
	if !ok {
		t.Fatal("empty document")
	}
	node := doc.(xdm.Node).Handle
	// xml's own root element is the document node's sole child; xpath
	// names the path from there down.
	children := node.Children()
	if len(children) == 0 {
		t.Fatal("document has no root element")
	}
	return selectOne(t, children[0], xpath)
}

// selectOne walks the document tree by hand for the small set of child
// paths these tests need, avoiding a dependency on the full VM pipeline for
// what is otherwise a pure tree-shape fixture.
func selectOne(t *testing.T, root xdm.NodeHandle, path string) xdm.NodeHandle {
	t.Helper()
	cur := root
	for _, seg := range splitPath(path) {
		found := false
		for _, c := range cur.Children() {
			uri, local := c.Name()
			_ = uri
			if local == seg {
				cur = c
				found = true
				break
			}
		}
		if !found {
			t.Fatalf("no child %q under path %q", seg, path)
		}
	}
	return cur
}

func splitPath(path string) []string {
	var out []string
	start := 0
	for i := 0; i <= len(path); i++ {
		if i == len(path) || path[i] == '/' {
			if i > start {
				out = append(out, path[start:i])
			}
			start = i + 1
		}
	}
	return out
}

func matches(t *testing.T, node xdm.NodeHandle, pattern string, eval predicateEvaluator) bool {
	t.Helper()
	e, err := parser.ParseNamed(pattern, "")
	if err != nil {
		t.Fatalf("parsing pattern %q: %v", pattern, err)
	}
	ok, err := matchesPattern(e, node, runtimectx.NewStaticContext(), eval)
	if err != nil {
		t.Fatalf("matching pattern %q: %v", pattern, err)
	}
	return ok
}

func trivialEval(e ast.Expr, node xdm.NodeHandle) (bool, error) { return true, nil }

func TestMatchesPatternElementName(t *testing.T) {
	item := handleOf(t, `<root><item/></root>`, "item")
	if !matches(t, item, "item", trivialEval) {
		t.Error("expected item to match \"item\"")
	}
	if matches(t, item, "other", trivialEval) {
		t.Error("expected item not to match \"other\"")
	}
}

func TestMatchesPatternWildcard(t *testing.T) {
	item := handleOf(t, `<root><item/></root>`, "item")
	if !matches(t, item, "*", trivialEval) {
		t.Error("expected item to match \"*\"")
	}
}

func TestMatchesPatternUnion(t *testing.T) {
	item := handleOf(t, `<root><item/></root>`, "item")
	if !matches(t, item, "other | item", trivialEval) {
		t.Error("expected item to match \"other | item\"")
	}
	if matches(t, item, "other | thing", trivialEval) {
		t.Error("expected item not to match \"other | thing\"")
	}
}

func TestMatchesPatternDescendantChain(t *testing.T) {
	title := handleOf(t, `<root><section><group><title/></group></section></root>`, "section/group/title")
	if !matches(t, title, "section//title", trivialEval) {
		t.Error("expected title to match \"section//title\" through the intervening group element")
	}
	if matches(t, title, "other//title", trivialEval) {
		t.Error("expected title not to match \"other//title\"")
	}
}

func TestMatchesPatternRejectsNonPathOperator(t *testing.T) {
	item := handleOf(t, `<root><item/></root>`, "item")
	e, err := parser.ParseNamed("item, item", "")
	if err != nil {
		t.Fatalf("parsing %q: %v", "item, item", err)
	}
	if _, err := matchesPattern(e, item, runtimectx.NewStaticContext(), trivialEval); err == nil {
		t.Error("expected a comma-joined expression to be rejected as a pattern, not silently matched")
	}
}
