package xdm

import "github.com/arborxml/xpvm/internal/xdmtype"

// Array is the immutable XDM array item: a 1-indexed sequence of sequences.
type Array struct {
	members []Sequence
}

var EmptyArray = Array{}

func NewArray(members []Sequence) Array {
	cp := make([]Sequence, len(members))
	copy(cp, members)
	return Array{members: cp}
}

// Size returns the array's length.
func (a Array) Size() int { return len(a.members) }

// Get returns the 1-indexed member at position i (XPath arrays are
// 1-indexed; callers pass the XPath-visible index directly).
func (a Array) Get(i int) (Sequence, bool) {
	if i < 1 || i > len(a.members) {
		return Sequence{}, false
	}
	return a.members[i-1], true
}

// Members returns the backing members in order (0-indexed Go slice).
func (a Array) Members() []Sequence { return a.members }

// Append returns a new array with value appended.
func (a Array) Append(value Sequence) Array {
	out := make([]Sequence, len(a.members)+1)
	copy(out, a.members)
	out[len(a.members)] = value
	return Array{members: out}
}

// Put returns a new array with the 1-indexed position i replaced.
func (a Array) Put(i int, value Sequence) (Array, bool) {
	if i < 1 || i > len(a.members) {
		return Array{}, false
	}
	out := make([]Sequence, len(a.members))
	copy(out, a.members)
	out[i-1] = value
	return Array{members: out}, true
}

func (a Array) ItemKind() ItemKind { return KindArray }

func (a Array) XDMType() xdmtype.ItemType {
	st := xdmtype.EmptySequenceType
	return xdmtype.ItemType{Kind: xdmtype.KindArray, ArrayElem: &st}
}

func (a Array) Inspect() string { return "array(" + itoa(len(a.members)) + " members)" }

func (a Array) Hash() uint32 {
	var h uint32 = 2166136261
	for _, m := range a.members {
		for _, it := range m.Items() {
			h = (h ^ it.Hash()) * 16777619
		}
	}
	return h
}
