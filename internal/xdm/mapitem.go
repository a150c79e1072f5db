package xdm

import "github.com/arborxml/xpvm/internal/xdmtype"

// mapEntry pairs an atomic key with its bound sequence, preserving the
// insertion order spec.md requires iteration to respect even though key
// equality (not insertion order) determines logical map identity.
type mapEntry struct {
	key   Atomic
	value Sequence
}

// Map is the immutable XDM map item: atomic-key to sequence, with XPath
// value-equality on keys. Immutable means every "mutation" (map:put, etc.)
// returns a new Map with its own copy of the entries slice.
type Map struct {
	entries []mapEntry
	// index speeds up Get/Put for maps beyond a handful of entries; built
	// lazily so tiny maps (the overwhelmingly common case) skip the
	// allocation entirely.
	index map[uint32][]int
}

// EmptyMap is the canonical zero-entry map.
var EmptyMap = Map{}

// NewMap builds a map from entries in insertion order; later duplicate keys
// overwrite earlier ones in place (matching map constructor semantics where
// the last occurrence of a duplicate key wins).
func NewMap(keys []Atomic, values []Sequence) Map {
	m := Map{}
	for i, k := range keys {
		m = m.Put(k, values[i])
	}
	return m
}

func (m Map) find(key Atomic) int {
	h := key.Hash()
	if m.index != nil {
		for _, i := range m.index[h] {
			if m.entries[i].key.ValueEqual(key) {
				return i
			}
		}
		return -1
	}
	for i, e := range m.entries {
		if e.key.ValueEqual(key) {
			return i
		}
	}
	return -1
}

// Get returns the sequence bound to key, or (nil, false) if absent.
func (m Map) Get(key Atomic) (Sequence, bool) {
	if i := m.find(key); i >= 0 {
		return m.entries[i].value, true
	}
	return Sequence{}, false
}

// Put returns a new Map with key bound to value, preserving key's original
// insertion position if it already existed.
func (m Map) Put(key Atomic, value Sequence) Map {
	entries := make([]mapEntry, len(m.entries))
	copy(entries, m.entries)
	if i := m.find(key); i >= 0 {
		entries[i] = mapEntry{key, value}
		return Map{entries: entries, index: m.index}.reindexed()
	}
	entries = append(entries, mapEntry{key, value})
	return Map{entries: entries}.reindexed()
}

// Remove returns a new Map without key.
func (m Map) Remove(key Atomic) Map {
	i := m.find(key)
	if i < 0 {
		return m
	}
	entries := make([]mapEntry, 0, len(m.entries)-1)
	entries = append(entries, m.entries[:i]...)
	entries = append(entries, m.entries[i+1:]...)
	return Map{entries: entries}.reindexed()
}

func (m Map) reindexed() Map {
	if len(m.entries) < 8 {
		m.index = nil
		return m
	}
	idx := make(map[uint32][]int, len(m.entries))
	for i, e := range m.entries {
		h := e.key.Hash()
		idx[h] = append(idx[h], i)
	}
	m.index = idx
	return m
}

// Size returns the number of entries.
func (m Map) Size() int { return len(m.entries) }

// Keys returns keys in insertion order.
func (m Map) Keys() []Atomic {
	out := make([]Atomic, len(m.entries))
	for i, e := range m.entries {
		out[i] = e.key
	}
	return out
}

// ForEach iterates entries in insertion order.
func (m Map) ForEach(fn func(key Atomic, value Sequence) bool) {
	for _, e := range m.entries {
		if !fn(e.key, e.value) {
			return
		}
	}
}

func (m Map) ItemKind() ItemKind { return KindMap }

func (m Map) XDMType() xdmtype.ItemType {
	if len(m.entries) == 0 {
		st := xdmtype.EmptySequenceType
		return xdmtype.ItemType{Kind: xdmtype.KindMap, MapKey: xdmtype.AnyAtomicType, MapValue: &st}
	}
	// Report the first key's type as a representative key type; XPath maps
	// are not required to be key-type-homogeneous but most are in practice.
	st := xdmtype.EmptySequenceType
	return xdmtype.ItemType{Kind: xdmtype.KindMap, MapKey: m.entries[0].key.Tag, MapValue: &st}
}

func (m Map) Inspect() string {
	return "map(" + itoa(len(m.entries)) + " entries)"
}

func (m Map) Hash() uint32 {
	var h uint32
	for _, e := range m.entries {
		h ^= e.key.Hash()
	}
	return h
}
