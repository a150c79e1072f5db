package runtimectx

import (
	"github.com/arborxml/xpvm/internal/name"
	"github.com/arborxml/xpvm/internal/xdmtype"
)

// FunctionSignature is what the static context knows about one (name,
// arity) overload of an in-scope function, independent of how it is
// ultimately implemented (built-in adapter vs. user-defined closure).
type FunctionSignature struct {
	Name   name.Expanded
	Arity  int
	Params []xdmtype.SequenceType
	Return xdmtype.SequenceType
}

// StaticContext carries everything known about a query/stylesheet at
// compile time: in-scope namespace bindings, the function signature table,
// and the default element/type/function namespaces (spec.md §4.3).
type StaticContext struct {
	Namespaces *name.NamespaceContext
	Functions  map[string]*FunctionSignature // keyed by "uri}local#arity"

	DefaultElementNamespace  string
	DefaultFunctionNamespace string
	DefaultCollation         string

	BaseURI string
}

// NewStaticContext returns a context seeded with the standard fn/xs/math
// namespace bindings and the default (codepoint) collation.
func NewStaticContext() *StaticContext {
	return &StaticContext{
		Namespaces:       name.NewNamespaceContext(),
		Functions:        make(map[string]*FunctionSignature),
		DefaultCollation: UnicodeCodepointURI,
	}
}

func signatureKey(n name.Expanded, arity int) string {
	return n.URI + "}" + n.Local + "#" + itoa(arity)
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

// Declare registers a function signature, overwriting any previous
// declaration at the same (name, arity).
func (sc *StaticContext) Declare(sig *FunctionSignature) {
	sc.Functions[signatureKey(sig.Name, sig.Arity)] = sig
}

// Lookup resolves a (name, arity) pair to its declared signature.
func (sc *StaticContext) Lookup(n name.Expanded, arity int) (*FunctionSignature, bool) {
	sig, ok := sc.Functions[signatureKey(n, arity)]
	return sig, ok
}
