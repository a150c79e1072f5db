package stdlib

import (
	"hash/fnv"

	"github.com/arborxml/xpvm/internal/convert"
	"github.com/arborxml/xpvm/internal/name"
	"github.com/arborxml/xpvm/internal/xdm"
	"github.com/arborxml/xpvm/internal/xdmtype"
)

// Impl is a standard-library function body: its arguments have already been
// converted to the Descriptor's declared parameter types (spec.md §4.4's
// conversion rules) by the time Impl sees them.
type Impl func(args []xdm.Sequence) (xdm.Sequence, error)

// Descriptor is one (name, arity) overload of a standard function,
// implementing vm.NativeCallable directly so the resolver can hand it
// straight to OpResolveFunc's caller without an intermediate wrapper type —
// mirrors funxy's Builtin{Fn, Name} value acting as its own registration
// entry, generalized to carry a typed signature.
type Descriptor struct {
	Name   name.Expanded
	Params []xdmtype.SequenceType
	Return xdmtype.SequenceType
	Impl   Impl
}

func newDescriptor(sig string, impl Impl) *Descriptor {
	n, params, ret := parseSignature(sig)
	return &Descriptor{Name: n, Params: params, Return: ret, Impl: impl}
}

func (d *Descriptor) ItemKind() xdm.ItemKind { return xdm.KindFunction }

func (d *Descriptor) Inspect() string {
	return "function(" + d.Name.String() + ")"
}

func (d *Descriptor) Hash() uint32 {
	h := fnv.New32a()
	h.Write([]byte(d.Name.URI))
	h.Write([]byte(d.Name.Local))
	return h.Sum32() ^ uint32(len(d.Params))
}

func (d *Descriptor) Arity() int           { return len(d.Params) }
func (d *Descriptor) FunctionName() string { return d.Name.Local }

func (d *Descriptor) Signature() xdmtype.ItemType {
	r := d.Return
	return xdmtype.ItemType{Kind: xdmtype.KindFunction, Params: d.Params, Return: &r}
}

func (d *Descriptor) XDMType() xdmtype.ItemType { return d.Signature() }

// Invoke applies the function-conversion rules to each argument against its
// declared parameter type, then calls Impl. This is the one place every
// standard function's argument handling funnels through, so Impl bodies
// never repeat atomization/promotion/occurrence-checking logic themselves.
func (d *Descriptor) Invoke(args []xdm.Sequence) (xdm.Sequence, error) {
	converted := make([]xdm.Sequence, len(args))
	for i, a := range args {
		c, err := convert.ConvertArgument(a, d.Params[i])
		if err != nil {
			return xdm.Empty, err
		}
		converted[i] = c
	}
	return d.Impl(converted)
}

var _ xdm.Callable = (*Descriptor)(nil)
