package stdlib

import (
	"github.com/arborxml/xpvm/internal/diagnostics"
	"github.com/arborxml/xpvm/internal/xdm"
)

// mapFuncs binds the map: namespace, per spec.md §4.6's "map/array
// operations" coverage, operating on xdm.Map's immutable Put/Remove/Get.
func mapFuncs(invoke Invoker) []*Descriptor {
	return []*Descriptor{
		newDescriptor("map:merge($maps as map(*)*) as map(*)", func(args []xdm.Sequence) (xdm.Sequence, error) {
			out := xdm.EmptyMap
			for _, it := range args[0].Items() {
				m, ok := it.(xdm.Map)
				if !ok {
					return xdm.Empty, diagnostics.New(diagnostics.XPTY0004, "map:merge argument must be a map")
				}
				m.ForEach(func(k xdm.Atomic, v xdm.Sequence) bool {
					out = out.Put(k, v)
					return true
				})
			}
			return xdm.Single(out), nil
		}),
		newDescriptor("map:size($map as map(*)) as xs:integer", func(args []xdm.Sequence) (xdm.Sequence, error) {
			m, err := requireMap(args[0])
			if err != nil {
				return xdm.Empty, err
			}
			return xdm.Single(xdm.NewIntegerFromInt64(int64(m.Size()))), nil
		}),
		newDescriptor("map:keys($map as map(*)) as xs:anyAtomicType*", func(args []xdm.Sequence) (xdm.Sequence, error) {
			m, err := requireMap(args[0])
			if err != nil {
				return xdm.Empty, err
			}
			keys := m.Keys()
			out := make([]xdm.Item, len(keys))
			for i, k := range keys {
				out[i] = k
			}
			return xdm.FromSlice(out), nil
		}),
		newDescriptor("map:contains($map as map(*), $key as xs:anyAtomicType) as xs:boolean", func(args []xdm.Sequence) (xdm.Sequence, error) {
			m, err := requireMap(args[0])
			if err != nil {
				return xdm.Empty, err
			}
			key, err := requireAtomic(args[1])
			if err != nil {
				return xdm.Empty, err
			}
			_, ok := m.Get(key)
			return xdm.Single(xdm.NewBoolean(ok)), nil
		}),
		newDescriptor("map:get($map as map(*), $key as xs:anyAtomicType) as item()*", func(args []xdm.Sequence) (xdm.Sequence, error) {
			m, err := requireMap(args[0])
			if err != nil {
				return xdm.Empty, err
			}
			key, err := requireAtomic(args[1])
			if err != nil {
				return xdm.Empty, err
			}
			v, ok := m.Get(key)
			if !ok {
				return xdm.Empty, nil
			}
			return v, nil
		}),
		newDescriptor("map:put($map as map(*), $key as xs:anyAtomicType, $value as item()*) as map(*)", func(args []xdm.Sequence) (xdm.Sequence, error) {
			m, err := requireMap(args[0])
			if err != nil {
				return xdm.Empty, err
			}
			key, err := requireAtomic(args[1])
			if err != nil {
				return xdm.Empty, err
			}
			return xdm.Single(m.Put(key, args[2])), nil
		}),
		newDescriptor("map:remove($map as map(*), $key as xs:anyAtomicType) as map(*)", func(args []xdm.Sequence) (xdm.Sequence, error) {
			m, err := requireMap(args[0])
			if err != nil {
				return xdm.Empty, err
			}
			key, err := requireAtomic(args[1])
			if err != nil {
				return xdm.Empty, err
			}
			return xdm.Single(m.Remove(key)), nil
		}),
		newDescriptor("map:for-each($map as map(*), $action as function(xs:anyAtomicType, item()*) as item()*) as item()*", func(args []xdm.Sequence) (xdm.Sequence, error) {
			m, err := requireMap(args[0])
			if err != nil {
				return xdm.Empty, err
			}
			fn, err := requireCallable(args[1])
			if err != nil {
				return xdm.Empty, err
			}
			var out []xdm.Item
			var callErr error
			m.ForEach(func(k xdm.Atomic, v xdm.Sequence) bool {
				r, err := invoke(fn, []xdm.Sequence{xdm.Single(k), v})
				if err != nil {
					callErr = err
					return false
				}
				out = append(out, r.Items()...)
				return true
			})
			if callErr != nil {
				return xdm.Empty, callErr
			}
			return xdm.FromSlice(out), nil
		}),
	}
}

func requireMap(seq xdm.Sequence) (xdm.Map, error) {
	it, ok := seq.First()
	if !ok {
		return xdm.Map{}, diagnostics.New(diagnostics.XPTY0004, "expected a single map")
	}
	m, ok := it.(xdm.Map)
	if !ok {
		return xdm.Map{}, diagnostics.New(diagnostics.XPTY0004, "expected a map, got %v", it.Inspect())
	}
	return m, nil
}
