package engine_test

import (
	"context"
	"testing"

	"github.com/arborxml/xpvm/internal/xdm"
	"github.com/arborxml/xpvm/pkg/engine"
)

func compileOrFail(t *testing.T, e *engine.Engine, src string) *engine.Program {
	t.Helper()
	prog, err := e.Compile(src)
	if err != nil {
		t.Fatalf("Compile(%q): %v", src, err)
	}
	return prog
}

func TestExecuteStandaloneArithmetic(t *testing.T) {
	e := engine.New(nil)
	prog := compileOrFail(t, e, "2 + 3 * 4")

	seq, err := e.ExecuteStandalone(context.Background(), prog)
	if err != nil {
		t.Fatalf("ExecuteStandalone: %v", err)
	}
	item, ok := seq.First()
	if !ok {
		t.Fatalf("expected a result item, got empty sequence")
	}
	atom, ok := item.(xdm.Atomic)
	if !ok {
		t.Fatalf("expected an atomic result, got %T", item)
	}
	if atom.Int == nil || atom.Int.Int64() != 14 {
		t.Fatalf("2 + 3 * 4 = %v, want 14", atom.Int)
	}
}

func TestExecuteAgainstDocument(t *testing.T) {
	e := engine.New(nil)
	prog := compileOrFail(t, e, "/root/item[2]/text()")

	doc := []byte(`<root><item>a</item><item>b</item></root>`)
	seq, err := e.Execute(context.Background(), prog, doc, "test.xml")
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	items := seq.Items()
	if len(items) != 1 {
		t.Fatalf("got %d items, want 1", len(items))
	}
	node, ok := items[0].(xdm.Node)
	if !ok {
		t.Fatalf("expected a node result, got %T", items[0])
	}
	if got := node.Handle.StringValue(); got != "b" {
		t.Fatalf("text() = %q, want %q", got, "b")
	}
}

func TestCompileRejectsSyntaxError(t *testing.T) {
	e := engine.New(nil)
	if _, err := e.Compile("1 +"); err == nil {
		t.Fatal("expected a compile error for a truncated expression")
	}
}

func TestIntrospectReportsDigestAndCounts(t *testing.T) {
	e := engine.New(nil)
	prog := compileOrFail(t, e, "1 to 5")

	info := engine.Introspect(prog)
	if info.Digest == "" {
		t.Fatal("expected a non-empty digest")
	}
	if info.Instructions == 0 {
		t.Fatal("expected at least one compiled instruction")
	}
	if info.ParamCount != 0 {
		t.Fatalf("ParamCount = %d, want 0 for a top-level expression", info.ParamCount)
	}
}

func TestExecuteStandaloneDocFails(t *testing.T) {
	e := engine.New(nil)
	prog := compileOrFail(t, e, "doc('x.xml')")

	if _, err := e.ExecuteStandalone(context.Background(), prog); err == nil {
		t.Fatal("expected fn:doc to fail with no document set configured")
	}
}

func TestFormatItemsNodesAndAtomics(t *testing.T) {
	e := engine.New(nil)
	prog := compileOrFail(t, e, "(1, 2, //item)")

	doc := []byte(`<root><item>a</item><item>b</item></root>`)
	seq, err := e.Execute(context.Background(), prog, doc, "test.xml")
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	lines, err := engine.FormatItems(seq)
	if err != nil {
		t.Fatalf("FormatItems: %v", err)
	}
	want := []string{"1", "2", "a", "b"}
	if len(lines) != len(want) {
		t.Fatalf("FormatItems = %v, want %v", lines, want)
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Fatalf("FormatItems[%d] = %q, want %q", i, lines[i], want[i])
		}
	}
}
