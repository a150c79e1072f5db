package vm

import "github.com/arborxml/xpvm/internal/xdm"

// CallFrame is one ongoing function activation: the function being run, its
// program counter, and the base index into the VM's value stack where its
// local slots begin — the same shape as the teacher's CallFrame, minus the
// open-upvalue bookkeeping (unneeded here since closures capture by value).
type CallFrame struct {
	fn    xdm.Callable // *NamedFunction or *Closure
	chunk *Chunk
	pc    int
	base  int
}

func frameDesc(fn xdm.Callable) *FuncDesc {
	switch f := fn.(type) {
	case *NamedFunction:
		return f.Desc
	case *Closure:
		return f.Desc
	default:
		return nil
	}
}

func frameChunk(fn xdm.Callable) *Chunk {
	switch f := fn.(type) {
	case *NamedFunction:
		return f.Chunk
	case *Closure:
		return f.Chunk
	default:
		return nil
	}
}

// iterFrame is one entry on the VM's dedicated iterator stack: a live
// sequence iterator used by `for`, path steps, and quantified expressions
// (spec.md §4.3's "iterator stack alongside the value stack").
type iterFrame struct {
	it *xdm.Iterator
}
