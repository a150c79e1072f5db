package runtimectx

import (
	"time"

	"github.com/arborxml/xpvm/internal/xdm"
)

// DynamicContext is the mutable evaluation state the VM thread through one
// frame's execution: context item/position/size, variable bindings, the
// owning document set, the collation provider, and the implicit current
// date-time (spec.md §4.3). The VM keeps one DynamicContext per evaluation
// and saves and restores its context triple in place around each predicate
// and simple-map operand (OpPushContext/OpPopContext); one DynamicContext is
// never shared between two concurrently running VMs.
type DynamicContext struct {
	ContextItem     xdm.Sequence // singleton; empty if there is no context item
	ContextPosition int
	ContextSize     int

	Variables map[string]xdm.Sequence

	Documents DocumentSet

	Collations      CollationProvider
	CurrentDateTime time.Time
	ImplicitTZMin   int
}

// DocumentSet is the minimal surface the VM and stdlib need from the C10
// tree adapter's document owner, kept as an interface here (mirroring
// xdm.NodeHandle) so internal/runtimectx never imports internal/tree.
type DocumentSet interface {
	// Load parses and registers a document from source, returning its root
	// node as a Sequence singleton (used by fn:doc/fn:parse-xml).
	Load(source []byte, baseURI string) (xdm.Sequence, error)
	// ByURI returns a previously loaded document by its base URI, if any.
	ByURI(uri string) (xdm.Sequence, bool)
}

// NewDynamicContext returns a context with a fresh, empty variable frame.
func NewDynamicContext(docs DocumentSet, collations CollationProvider) *DynamicContext {
	return &DynamicContext{
		Variables:  make(map[string]xdm.Sequence),
		Documents:  docs,
		Collations: collations,
	}
}

// Fork returns a shallow copy suitable for entering a nested scope (a `for`
// iteration or path step): the variable map is shared by reference since IR
// bindings are single-assignment and never shadow in place; ContextItem/
// Position/Size are copied by value so the caller's copy is unaffected by
// the callee mutating its own context triple.
func (dc *DynamicContext) Fork() *DynamicContext {
	cp := *dc
	return &cp
}

// WithVariable returns a forked context with name bound to value — the
// variable map is always copied, so the parent's bindings are never modified.
func (dc *DynamicContext) WithVariable(name string, value xdm.Sequence) *DynamicContext {
	cp := dc.Fork()
	next := make(map[string]xdm.Sequence, len(dc.Variables)+1)
	for k, v := range dc.Variables {
		next[k] = v
	}
	next[name] = value
	cp.Variables = next
	return cp
}
