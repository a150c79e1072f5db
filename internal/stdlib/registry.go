package stdlib

import (
	"github.com/arborxml/xpvm/internal/runtimectx"
	"github.com/arborxml/xpvm/internal/xdm"
)

// Registry is a FunctionResolver (vm.FunctionResolver's structural
// counterpart) over every standard function Descriptor, keyed by (name,
// arity) exactly as spec.md §4.5 requires ("descriptors are keyed on
// (name, arity) and registered independently").
type Registry struct {
	byKey map[string]*Descriptor
}

func key(uri, local string, arity int) string {
	return uri + "}" + local + "#" + itoa(arity)
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	return string(buf[i:])
}

// NewRegistry builds the full standard library bound against one VM
// evaluation's dynamic context and re-entrant call hook: dyn backs the
// `context`-flagged functions (fn:doc, fn:current-dateTime), invoke backs
// the higher-order functions (fn:for-each, fn:filter, fn:fold-left,
// map:for-each, array:for-each) that call back into a user-supplied
// function item.
func NewRegistry(dyn *runtimectx.DynamicContext, invoke Invoker) *Registry {
	r := &Registry{byKey: make(map[string]*Descriptor, 128)}
	groups := [][]*Descriptor{
		accessorFuncs(),
		numericFuncs(),
		stringFuncs(),
		sequenceFuncs(invoke),
		nodeFuncs(),
		qnameFuncs(),
		mapFuncs(invoke),
		arrayFuncs(invoke),
		contextFuncs(dyn),
		constructorFuncs(),
	}
	for _, g := range groups {
		for _, d := range g {
			r.byKey[key(d.Name.URI, d.Name.Local, d.Arity())] = d
		}
	}
	for _, d := range functionLookupFuncs(r) {
		r.byKey[key(d.Name.URI, d.Name.Local, d.Arity())] = d
	}
	return r
}

// Resolve implements vm.FunctionResolver.
func (r *Registry) Resolve(uri, local string, arity int) (xdm.Callable, bool) {
	d, ok := r.byKey[key(uri, local, arity)]
	return d, ok
}

// Descriptors returns every registered descriptor, for introspection.
func (r *Registry) Descriptors() []*Descriptor {
	out := make([]*Descriptor, 0, len(r.byKey))
	for _, d := range r.byKey {
		out = append(out, d)
	}
	return out
}
