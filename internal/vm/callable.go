package vm

import (
	"github.com/arborxml/xpvm/internal/xdm"
	"github.com/arborxml/xpvm/internal/xdmtype"
)

// FuncDesc is the compiled form of one function body — a top-level query,
// an inline function literal, or an XSLT named template compiled as a
// function — an entry point into a Chunk plus its formal parameter types
// and recorded free-variable names (spec.md §4.1's InlineFunc.FreeVars
// carried through to the VM). Distinct user functions may share a Chunk
// (the whole program lowers into one Chunk with multiple entry points,
// exactly as the teacher's compiler emits one function body after another
// into a single bytecode stream).
type FuncDesc struct {
	Name       string
	Entry      int // instruction offset of the function's first instruction
	Params     []xdmtype.SequenceType
	Return     xdmtype.SequenceType
	FreeVars   []string // names captured by MakeClosure, in snapshot order
	LocalSlots int       // total local variable slots this body's frame reserves
}

func (f *FuncDesc) Arity() int { return len(f.Params) }

// NamedFunction is a Callable bound directly to a FuncDesc with no captured
// environment — a top-level named function or template referenced by
// fn:function-lookup or a static call compiled before any closures exist.
type NamedFunction struct {
	Desc  *FuncDesc
	Chunk *Chunk
}

func (f *NamedFunction) ItemKind() xdm.ItemKind { return xdm.KindFunction }
func (f *NamedFunction) Inspect() string        { return "function(" + f.Desc.Name + ")" }
func (f *NamedFunction) Hash() uint32            { return hashString(f.Desc.Name) }
func (f *NamedFunction) Arity() int               { return f.Desc.Arity() }
func (f *NamedFunction) FunctionName() string     { return f.Desc.Name }
func (f *NamedFunction) Signature() xdmtype.ItemType {
	return functionSignatureType(f.Desc.Params, f.Desc.Return)
}
func (f *NamedFunction) XDMType() xdmtype.ItemType { return f.Signature() }

// Closure is a Callable over a FuncDesc plus a snapshot of its free
// variables' values, taken by MakeClosure at creation time — capture is by
// value, never by reference, since every XDM value is immutable (spec.md
// §4.3 "Closures: created by a MakeClosure instruction that snapshots the
// listed captured variables").
type Closure struct {
	Desc     *FuncDesc
	Chunk    *Chunk
	Captured []xdm.Sequence // parallel to Desc.FreeVars
}

func (c *Closure) ItemKind() xdm.ItemKind { return xdm.KindFunction }
func (c *Closure) Inspect() string {
	name := c.Desc.Name
	if name == "" {
		name = "anonymous"
	}
	return "function(" + name + ")"
}
func (c *Closure) Hash() uint32        { return hashString(c.Desc.Name) + uint32(len(c.Captured)) }
func (c *Closure) Arity() int          { return c.Desc.Arity() }
func (c *Closure) FunctionName() string { return c.Desc.Name }
func (c *Closure) Signature() xdmtype.ItemType {
	return functionSignatureType(c.Desc.Params, c.Desc.Return)
}
func (c *Closure) XDMType() xdmtype.ItemType { return c.Signature() }

// capturedValue returns the snapshotted value for a free variable by name,
// used by the VM when resolving an upvalue reference inside the closure's
// body.
func (c *Closure) capturedValue(varName string) (xdm.Sequence, bool) {
	for i, n := range c.Desc.FreeVars {
		if n == varName {
			return c.Captured[i], true
		}
	}
	return xdm.Sequence{}, false
}

// boundArg is one fixed positional argument in a PartialApplication, or a
// placeholder left open for the eventual call.
type boundArg struct {
	placeholder bool
	value       xdm.Sequence
}

// PartialApplication wraps an underlying Callable with some arguments fixed
// and the `?` positions left open, constructed by OpPartialApply.
type PartialApplication struct {
	Underlying xdm.Callable
	Bound      []boundArg
}

func (p *PartialApplication) ItemKind() xdm.ItemKind { return xdm.KindFunction }
func (p *PartialApplication) Inspect() string {
	return "function(" + p.Underlying.FunctionName() + "/partial)"
}
func (p *PartialApplication) Hash() uint32 { return p.Underlying.Hash() ^ uint32(len(p.Bound)) }
func (p *PartialApplication) Arity() int {
	n := 0
	for _, b := range p.Bound {
		if b.placeholder {
			n++
		}
	}
	return n
}
func (p *PartialApplication) FunctionName() string { return p.Underlying.FunctionName() }
func (p *PartialApplication) XDMType() xdmtype.ItemType { return p.Underlying.Signature() }
func (p *PartialApplication) Signature() xdmtype.ItemType {
	return p.Underlying.Signature()
}

// materialize combines the caller-supplied placeholder arguments (in
// placeholder order) with the bound ones, producing the full argument list
// for the underlying callable.
func (p *PartialApplication) materialize(supplied []xdm.Sequence) []xdm.Sequence {
	out := make([]xdm.Sequence, len(p.Bound))
	si := 0
	for i, b := range p.Bound {
		if b.placeholder {
			out[i] = supplied[si]
			si++
		} else {
			out[i] = b.value
		}
	}
	return out
}

func functionSignatureType(params []xdmtype.SequenceType, ret xdmtype.SequenceType) xdmtype.ItemType {
	r := ret
	return xdmtype.ItemType{Kind: xdmtype.KindFunction, Params: params, Return: &r}
}

func hashString(s string) uint32 {
	var h uint32 = 2166136261
	for i := 0; i < len(s); i++ {
		h ^= uint32(s[i])
		h *= 16777619
	}
	return h
}

var (
	_ xdm.Callable = (*NamedFunction)(nil)
	_ xdm.Callable = (*Closure)(nil)
	_ xdm.Callable = (*PartialApplication)(nil)
)
