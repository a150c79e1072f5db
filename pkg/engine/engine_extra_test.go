package engine_test

import (
	"context"
	"testing"

	"github.com/arborxml/xpvm/internal/xdm"
	"github.com/arborxml/xpvm/pkg/engine"
)

func evalStandalone(t *testing.T, src string) xdm.Sequence {
	t.Helper()
	e := engine.New(nil)
	prog := compileOrFail(t, e, src)
	seq, err := e.ExecuteStandalone(context.Background(), prog)
	if err != nil {
		t.Fatalf("ExecuteStandalone(%q): %v", src, err)
	}
	return seq
}

func TestForExprBuildsASequence(t *testing.T) {
	seq := evalStandalone(t, "for $x in (1, 2, 3) return $x * $x")
	items := seq.Items()
	if len(items) != 3 {
		t.Fatalf("got %d items, want 3", len(items))
	}
	want := []int64{1, 4, 9}
	for i, it := range items {
		atom, ok := it.(xdm.Atomic)
		if !ok || atom.Int == nil || atom.Int.Int64() != want[i] {
			t.Fatalf("item %d = %v, want %d", i, it, want[i])
		}
	}
}

func TestLetExprWithMultipleBindings(t *testing.T) {
	seq := evalStandalone(t, "let $x := 2, $y := 3 return $x + $y")
	item, ok := seq.First()
	if !ok {
		t.Fatal("expected a result")
	}
	atom := item.(xdm.Atomic)
	if atom.Int == nil || atom.Int.Int64() != 5 {
		t.Fatalf("got %v, want 5", atom.Int)
	}
}

func TestIfExprTakesTheTrueBranch(t *testing.T) {
	seq := evalStandalone(t, "if (1 < 2) then 'yes' else 'no'")
	item, _ := seq.First()
	atom := item.(xdm.Atomic)
	if atom.Str != "yes" {
		t.Fatalf("got %q, want %q", atom.Str, "yes")
	}
}

func TestQuantifiedExprSomeAndEvery(t *testing.T) {
	seq := evalStandalone(t, "some $x in (1, 2, 3) satisfies $x = 2")
	item, _ := seq.First()
	if !item.(xdm.Atomic).Bool {
		t.Fatal("expected some $x = 2 to be true")
	}

	seq = evalStandalone(t, "every $x in (1, 2, 3) satisfies $x > 0")
	item, _ = seq.First()
	if !item.(xdm.Atomic).Bool {
		t.Fatal("expected every $x > 0 to be true")
	}
}

func TestMapConstructorAndLookup(t *testing.T) {
	seq := evalStandalone(t, `map{ 'a': 1, 'b': 2 }?b`)
	item, ok := seq.First()
	if !ok {
		t.Fatal("expected a result")
	}
	atom := item.(xdm.Atomic)
	if atom.Int == nil || atom.Int.Int64() != 2 {
		t.Fatalf("got %v, want 2", atom.Int)
	}
}

func TestArrayConstructorAndLookup(t *testing.T) {
	seq := evalStandalone(t, `[10, 20, 30]?2`)
	item, ok := seq.First()
	if !ok {
		t.Fatal("expected a result")
	}
	atom := item.(xdm.Atomic)
	if atom.Int == nil || atom.Int.Int64() != 20 {
		t.Fatalf("got %v, want 20", atom.Int)
	}
}

func TestInlineFunctionCallViaDynamicCall(t *testing.T) {
	seq := evalStandalone(t, "function($x) { $x + 1 }(41)")
	item, ok := seq.First()
	if !ok {
		t.Fatal("expected a result")
	}
	atom := item.(xdm.Atomic)
	if atom.Int == nil || atom.Int.Int64() != 42 {
		t.Fatalf("got %v, want 42", atom.Int)
	}
}

func TestPredicatesFilterAPathStep(t *testing.T) {
	e := engine.New(nil)
	prog := compileOrFail(t, e, "//person[@id = '2']/name/text()")
	doc := []byte(`<people>
		<person id="1"><name>Ada</name></person>
		<person id="2"><name>Grace</name></person>
	</people>`)
	seq, err := e.Execute(context.Background(), prog, doc, "people.xml")
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	items := seq.Items()
	if len(items) != 1 {
		t.Fatalf("got %d items, want 1", len(items))
	}
	if got := items[0].(xdm.Node).Handle.StringValue(); got != "Grace" {
		t.Fatalf("got %q, want %q", got, "Grace")
	}
}

func TestSimpleMapExprAppliesToEveryItem(t *testing.T) {
	seq := evalStandalone(t, "(1, 2, 3) ! (. * 10)")
	items := seq.Items()
	want := []int64{10, 20, 30}
	if len(items) != len(want) {
		t.Fatalf("got %d items, want %d", len(items), len(want))
	}
	for i, it := range items {
		atom := it.(xdm.Atomic)
		if atom.Int == nil || atom.Int.Int64() != want[i] {
			t.Fatalf("item %d = %v, want %d", i, atom.Int, want[i])
		}
	}
}

func TestCastAndInstanceOf(t *testing.T) {
	seq := evalStandalone(t, `"42" cast as xs:integer`)
	item, _ := seq.First()
	atom := item.(xdm.Atomic)
	if atom.Int == nil || atom.Int.Int64() != 42 {
		t.Fatalf("got %v, want 42", atom.Int)
	}

	seq = evalStandalone(t, "1 instance of xs:integer")
	item, _ = seq.First()
	if !item.(xdm.Atomic).Bool {
		t.Fatal("expected 1 instance of xs:integer to be true")
	}
}
