package vm

import (
	"github.com/arborxml/xpvm/internal/convert"
	"github.com/arborxml/xpvm/internal/xdm"
	"github.com/arborxml/xpvm/internal/xdmtype"
)

// execMakeMap pops n key/value pairs (value on top of its key, pushed in
// entry order) and builds a Map, per spec.md's map constructor semantics:
// a later duplicate key overwrites an earlier one.
func (m *VM) execMakeMap(n int) error {
	keys := make([]xdm.Atomic, n)
	values := make([]xdm.Sequence, n)
	pairs := make([][2]xdm.Sequence, n)
	for i := n - 1; i >= 0; i-- {
		value := m.pop()
		key := m.pop()
		pairs[i] = [2]xdm.Sequence{key, value}
	}
	for i, p := range pairs {
		k, err := convert.AtomizeToSingle(p[0])
		if err != nil {
			return err
		}
		keys[i] = k
		values[i] = p[1]
	}
	m.push(xdm.Single(xdm.NewMap(keys, values)))
	return nil
}

// execMakeArray pops n member sequences and builds an array; used for
// square-array-constructor members (each already a full sequence). A curly
// array constructor compiles to OpArrayAppend instead.
func (m *VM) execMakeArray(n int) error {
	members := make([]xdm.Sequence, n)
	for i := n - 1; i >= 0; i-- {
		members[i] = m.pop()
	}
	m.push(xdm.Single(xdm.NewArray(members)))
	return nil
}

// execArrayAppend implements the curly array constructor: pop the content
// sequence and build one array member per item, flattening the sequence
// rather than wrapping it whole.
func (m *VM) execArrayAppend() error {
	content := m.pop()
	items := content.Items()
	members := make([]xdm.Sequence, len(items))
	for i, it := range items {
		members[i] = xdm.Single(it)
	}
	m.push(xdm.Single(xdm.NewArray(members)))
	return nil
}

// execLookup implements `?key` / `?1` postfix lookup on a map or array,
// applied pointwise over the target sequence per spec.md's lookup rules.
func (m *VM) execLookup() error {
	keySeq := m.pop()
	target := m.pop()
	key, err := convert.AtomizeToSingle(keySeq)
	if err != nil {
		return err
	}
	var out []xdm.Item
	for _, it := range target.Items() {
		switch v := it.(type) {
		case xdm.Map:
			if val, ok := v.Get(key); ok {
				out = append(out, val.Items()...)
			}
		case xdm.Array:
			idx, err := convert.CastAtomic(key, xdmtype.Integer)
			if err != nil {
				return m.typeError("array lookup key must be numeric")
			}
			if val, ok := v.Get(int(idx.Int.Int64())); ok {
				out = append(out, val.Items()...)
			}
		default:
			return m.typeError("?key lookup requires a map or array")
		}
	}
	m.push(xdm.FromSlice(out))
	return nil
}

// execLookupWildcard implements `?*`: every value of a map, or every member
// of an array, concatenated.
func (m *VM) execLookupWildcard() error {
	target := m.pop()
	var out []xdm.Item
	for _, it := range target.Items() {
		switch v := it.(type) {
		case xdm.Map:
			v.ForEach(func(_ xdm.Atomic, value xdm.Sequence) bool {
				out = append(out, value.Items()...)
				return true
			})
		case xdm.Array:
			for _, mem := range v.Members() {
				out = append(out, mem.Items()...)
			}
		default:
			return m.typeError("?* lookup requires a map or array")
		}
	}
	m.push(xdm.FromSlice(out))
	return nil
}
