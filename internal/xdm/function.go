package xdm

import "github.com/arborxml/xpvm/internal/xdmtype"

// Callable is the common surface of the three function-item variants spec.md
// §3/§9 describes: named (index into a function table), inline (bytecode
// entry + captured environment), and partial (underlying function + bound
// arguments). The concrete types live in package vm (they need the bytecode
// entry point / captured-cell machinery that only the VM owns — mirroring
// the teacher's ObjClosure, which likewise lives in package vm rather than
// package evaluator even though it implements evaluator.Object); xdm only
// needs to know a function item exists and has an arity, so XDM-level code
// (atomization, sequence printing, map/array element holding a function) has
// no compile-time dependency on the VM.
type Callable interface {
	Item
	Arity() int
	FunctionName() string // "" for an anonymous inline function
	Signature() xdmtype.ItemType
}

// FunctionItem wraps a Callable as an Item. Most call sites just use the
// Callable directly; this wrapper exists so `var _ Item = FunctionItem{}`
// reads naturally at call sites that only have an Item in hand.
type FunctionItem struct {
	Callable
}

func (f FunctionItem) ItemKind() ItemKind          { return KindFunction }
func (f FunctionItem) XDMType() xdmtype.ItemType   { return f.Callable.Signature() }
func (f FunctionItem) Inspect() string {
	name := f.Callable.FunctionName()
	if name == "" {
		name = "anonymous"
	}
	return "function(" + name + "#" + itoa(f.Callable.Arity()) + ")"
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}
