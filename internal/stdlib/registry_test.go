package stdlib

import (
	"testing"
	"time"

	"github.com/arborxml/xpvm/internal/diagnostics"
	"github.com/arborxml/xpvm/internal/runtimectx"
	"github.com/arborxml/xpvm/internal/xdm"
)

type fakeDocs struct {
	byURI map[string]xdm.Sequence
}

func (f fakeDocs) Load(source []byte, baseURI string) (xdm.Sequence, error) { return xdm.Empty, nil }
func (f fakeDocs) ByURI(uri string) (xdm.Sequence, bool) {
	s, ok := f.byURI[uri]
	return s, ok
}

func noopInvoke(fn xdm.Callable, args []xdm.Sequence) (xdm.Sequence, error) {
	return xdm.Empty, nil
}

func newTestRegistry() *Registry {
	dyn := runtimectx.NewDynamicContext(fakeDocs{byURI: map[string]xdm.Sequence{}}, nil)
	dyn.CurrentDateTime = time.Date(2026, 8, 2, 10, 30, 0, 0, time.UTC)
	return NewRegistry(dyn, noopInvoke)
}

const fnURI = "http://www.w3.org/2005/xpath-functions"
const mathURI = "http://www.w3.org/2005/xpath-functions/math"
const mapURI = "http://www.w3.org/2005/xpath-functions/map"
const arrayURI = "http://www.w3.org/2005/xpath-functions/array"

func resolve(t *testing.T, r *Registry, uri, local string, arity int) *Descriptor {
	t.Helper()
	fn, ok := r.Resolve(uri, local, arity)
	if !ok {
		t.Fatalf("%s:%s/%d not registered", uri, local, arity)
	}
	return fn.(*Descriptor)
}

func invoke(t *testing.T, d *Descriptor, args ...xdm.Sequence) xdm.Sequence {
	t.Helper()
	result, err := d.Invoke(args)
	if err != nil {
		t.Fatalf("%s/%d: unexpected error: %v", d.Name.Local, d.Arity(), err)
	}
	return result
}

func str(s string) xdm.Sequence { return xdm.Single(xdm.NewString(s)) }

func firstStr(t *testing.T, seq xdm.Sequence) string {
	t.Helper()
	it, ok := seq.First()
	if !ok {
		t.Fatal("expected a singleton result")
	}
	return it.(xdm.Atomic).Str
}

func firstInt(t *testing.T, seq xdm.Sequence) int64 {
	t.Helper()
	it, ok := seq.First()
	if !ok {
		t.Fatal("expected a singleton result")
	}
	return it.(xdm.Atomic).Int.Int64()
}

func TestResolveKeysOnNameAndArity(t *testing.T) {
	r := newTestRegistry()
	if _, ok := r.Resolve(fnURI, "upper-case", 1); !ok {
		t.Fatal("expected fn:upper-case/1 to resolve")
	}
	if _, ok := r.Resolve(fnURI, "upper-case", 2); ok {
		t.Fatal("fn:upper-case/2 should not exist")
	}
	if _, ok := r.Resolve(fnURI, "no-such-function", 0); ok {
		t.Fatal("unknown function name resolved unexpectedly")
	}
}

func TestStringFunctions(t *testing.T) {
	r := newTestRegistry()

	tests := []struct {
		name string
		args []xdm.Sequence
		want string
	}{
		{"upper-case", []xdm.Sequence{str("Hello")}, "HELLO"},
		{"lower-case", []xdm.Sequence{str("Hello")}, "hello"},
		{"normalize-space", []xdm.Sequence{str("  a   b  ")}, "a b"},
		{"substring-before", []xdm.Sequence{str("2026-08-02"), str("-")}, "2026"},
		{"substring-after", []xdm.Sequence{str("2026-08-02"), str("-")}, "08-02"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := resolve(t, r, fnURI, tt.name, len(tt.args))
			got := firstStr(t, invoke(t, d, tt.args...))
			if got != tt.want {
				t.Errorf("fn:%s = %q, want %q", tt.name, got, tt.want)
			}
		})
	}
}

func TestSubstring(t *testing.T) {
	r := newTestRegistry()
	d := resolve(t, r, fnURI, "substring", 3)

	got := firstStr(t, invoke(t, d, str("motor car"), xdm.Single(xdm.NewDouble(6)), xdm.Empty))
	if got != " car" {
		t.Errorf("fn:substring(\"motor car\", 6) = %q, want %q", got, " car")
	}

	got = firstStr(t, invoke(t, d, str("metadata"), xdm.Single(xdm.NewDouble(4)), xdm.Single(xdm.NewDouble(3))))
	if got != "ada" {
		t.Errorf("fn:substring(\"metadata\", 4, 3) = %q, want %q", got, "ada")
	}
}

func TestTokenizeAndStringJoin(t *testing.T) {
	r := newTestRegistry()

	tokenize := resolve(t, r, fnURI, "tokenize", 2)
	result := invoke(t, tokenize, str("a,b,c"), str(","))
	items := result.Items()
	if len(items) != 3 {
		t.Fatalf("fn:tokenize produced %d items, want 3", len(items))
	}
	for i, want := range []string{"a", "b", "c"} {
		if items[i].(xdm.Atomic).Str != want {
			t.Errorf("token %d = %q, want %q", i, items[i].(xdm.Atomic).Str, want)
		}
	}

	join := resolve(t, r, fnURI, "string-join", 2)
	got := firstStr(t, invoke(t, join, result, str("-")))
	if got != "a-b-c" {
		t.Errorf("fn:string-join = %q, want %q", got, "a-b-c")
	}
}

func TestNumericAbsPreservesIntegerSubtype(t *testing.T) {
	r := newTestRegistry()
	abs := resolve(t, r, fnURI, "abs", 1)
	got := firstInt(t, invoke(t, abs, xdm.Single(xdm.NewIntegerFromInt64(-7))))
	if got != 7 {
		t.Errorf("fn:abs(-7) = %d, want 7", got)
	}
}

func TestMathSqrtAndPow(t *testing.T) {
	r := newTestRegistry()

	sqrt := resolve(t, r, mathURI, "sqrt", 1)
	result := invoke(t, sqrt, xdm.Single(xdm.NewDouble(16)))
	a, _ := result.First()
	if a.(xdm.Atomic).Flt64 != 4 {
		t.Errorf("math:sqrt(16) = %v, want 4", a.(xdm.Atomic).Flt64)
	}

	pow := resolve(t, r, mathURI, "pow", 2)
	result = invoke(t, pow, xdm.Single(xdm.NewDouble(2)), xdm.Single(xdm.NewDouble(10)))
	a, _ = result.First()
	if a.(xdm.Atomic).Flt64 != 1024 {
		t.Errorf("math:pow(2, 10) = %v, want 1024", a.(xdm.Atomic).Flt64)
	}
}

func TestSequenceFunctions(t *testing.T) {
	r := newTestRegistry()
	seq := xdm.FromSlice([]xdm.Item{
		xdm.NewIntegerFromInt64(1), xdm.NewIntegerFromInt64(2), xdm.NewIntegerFromInt64(3),
	})

	count := resolve(t, r, fnURI, "count", 1)
	if got := firstInt(t, invoke(t, count, seq)); got != 3 {
		t.Errorf("fn:count = %d, want 3", got)
	}

	reverse := resolve(t, r, fnURI, "reverse", 1)
	items := invoke(t, reverse, seq).Items()
	if items[0].(xdm.Atomic).Int.Int64() != 3 || items[2].(xdm.Atomic).Int.Int64() != 1 {
		t.Errorf("fn:reverse did not reverse order: %v", items)
	}

	subsequence := resolve(t, r, fnURI, "subsequence", 3)
	items = invoke(t, subsequence, seq, xdm.Single(xdm.NewDouble(2)), xdm.Single(xdm.NewDouble(2))).Items()
	if len(items) != 2 || items[0].(xdm.Atomic).Int.Int64() != 2 || items[1].(xdm.Atomic).Int.Int64() != 3 {
		t.Errorf("fn:subsequence(seq, 2, 2) = %v, want [2, 3]", items)
	}
}

func TestMapOperations(t *testing.T) {
	r := newTestRegistry()
	m := xdm.EmptyMap.Put(xdm.NewString("a"), xdm.Single(xdm.NewIntegerFromInt64(1)))

	size := resolve(t, r, mapURI, "size", 1)
	if got := firstInt(t, invoke(t, size, xdm.Single(m))); got != 1 {
		t.Errorf("map:size = %d, want 1", got)
	}

	get := resolve(t, r, mapURI, "get", 2)
	if got := firstInt(t, invoke(t, get, xdm.Single(m), str("a"))); got != 1 {
		t.Errorf("map:get(m, 'a') = %d, want 1", got)
	}
}

func TestArrayOperations(t *testing.T) {
	r := newTestRegistry()
	arr := xdm.NewArray([]xdm.Sequence{
		xdm.Single(xdm.NewIntegerFromInt64(10)),
		xdm.Single(xdm.NewIntegerFromInt64(20)),
	})

	size := resolve(t, r, arrayURI, "size", 1)
	if got := firstInt(t, invoke(t, size, xdm.Single(arr))); got != 2 {
		t.Errorf("array:size = %d, want 2", got)
	}

	get := resolve(t, r, arrayURI, "get", 2)
	if got := firstInt(t, invoke(t, get, xdm.Single(arr), xdm.Single(xdm.NewIntegerFromInt64(1)))); got != 10 {
		t.Errorf("array:get(arr, 1) = %d, want 10", got)
	}

	_, err := get.Invoke([]xdm.Sequence{xdm.Single(arr), xdm.Single(xdm.NewIntegerFromInt64(9))})
	if err == nil {
		t.Fatal("array:get out of bounds should fail")
	}
	if derr, ok := err.(*diagnostics.Error); !ok || derr.Code != diagnostics.FOAR0001 {
		t.Errorf("array:get out of bounds error = %v, want FOAR0001", err)
	}
}

func TestDocResolvesRegisteredURI(t *testing.T) {
	docSeq := xdm.Single(xdm.NewString("stand-in-root"))
	dyn := runtimectx.NewDynamicContext(fakeDocs{byURI: map[string]xdm.Sequence{"file:///a.xml": docSeq}}, nil)
	r := NewRegistry(dyn, noopInvoke)

	doc := resolve(t, r, fnURI, "doc", 1)
	got := firstStr(t, invoke(t, doc, str("file:///a.xml")))
	if got != "stand-in-root" {
		t.Errorf("fn:doc returned wrong document: %q", got)
	}

	_, err := doc.Invoke([]xdm.Sequence{str("file:///missing.xml")})
	if err == nil {
		t.Fatal("fn:doc on unregistered URI should fail")
	}
	if derr, ok := err.(*diagnostics.Error); !ok || derr.Code != diagnostics.FODC0002 {
		t.Errorf("fn:doc missing-document error = %v, want FODC0002", err)
	}
}

// TestForEachInvokesCallback checks that fn:for-each routes each item
// through the Invoker bound at registry construction (vm_invoke.go's
// (*VM).Invoke in production) rather than evaluating the action itself.
func TestForEachInvokesCallback(t *testing.T) {
	var seen []int64
	callback := func(fn xdm.Callable, args []xdm.Sequence) (xdm.Sequence, error) {
		a, _ := args[0].First()
		seen = append(seen, a.(xdm.Atomic).Int.Int64())
		return args[0], nil
	}
	dyn := runtimectx.NewDynamicContext(fakeDocs{byURI: map[string]xdm.Sequence{}}, nil)
	r := NewRegistry(dyn, callback)

	// Any registered function item satisfies the action parameter's
	// xdm.Callable type check; fn:for-each never calls it directly, only
	// through the injected Invoker above.
	action := resolve(t, r, fnURI, "abs", 1)

	forEach := resolve(t, r, fnURI, "for-each", 2)
	seq := xdm.FromSlice([]xdm.Item{xdm.NewIntegerFromInt64(1), xdm.NewIntegerFromInt64(2)})
	invoke(t, forEach, seq, xdm.Single(action))

	if len(seen) != 2 || seen[0] != 1 || seen[1] != 2 {
		t.Errorf("fn:for-each invoked callback with %v, want [1 2]", seen)
	}
}
