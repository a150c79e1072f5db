package vm

import (
	"math"

	"github.com/arborxml/xpvm/internal/convert"
	"github.com/arborxml/xpvm/internal/diagnostics"
	"github.com/arborxml/xpvm/internal/xdm"
	"github.com/arborxml/xpvm/internal/xdmtype"
)

// execGeneralComparison implements = != < <= > >= between sequences: the
// comparison holds if it holds for at least one pair of atomized items
// drawn from the two operand sequences (spec.md §4.4's general comparison).
func (m *VM) execGeneralComparison(op Opcode) error {
	right := m.pop()
	left := m.pop()
	la, err := convert.Atomize(left)
	if err != nil {
		return err
	}
	ra, err := convert.Atomize(right)
	if err != nil {
		return err
	}
	for _, li := range la.Items() {
		lAtomic := li.(xdm.Atomic)
		for _, ri := range ra.Items() {
			rAtomic := ri.(xdm.Atomic)
			ok, err := m.generalPairHolds(op, lAtomic, rAtomic)
			if err != nil {
				return err
			}
			if ok {
				m.push(xdm.Single(xdm.NewBoolean(true)))
				return nil
			}
		}
	}
	m.push(xdm.Single(xdm.NewBoolean(false)))
	return nil
}

func (m *VM) generalPairHolds(op Opcode, a, b xdm.Atomic) (bool, error) {
	a, b = generalComparisonCoerce(a, b)
	cmp, err := m.atomicCompare(a, b)
	if err != nil {
		return false, err
	}
	switch op {
	case OpGeneralEq:
		return cmp == cmpEqual, nil
	case OpGeneralNe:
		return cmp != cmpEqual, nil
	case OpGeneralLt:
		return cmp == cmpLess, nil
	case OpGeneralLe:
		return cmp == cmpLess || cmp == cmpEqual, nil
	case OpGeneralGt:
		return cmp == cmpGreater, nil
	case OpGeneralGe:
		return cmp == cmpGreater || cmp == cmpEqual, nil
	default:
		return false, diagnostics.New(diagnostics.XPVM0005, "not a general comparison opcode")
	}
}

// generalComparisonCoerce applies the untypedAtomic coercion rule: if
// exactly one side is xs:untypedAtomic and the other is numeric, the
// untypedAtomic side casts to xs:double before comparison (spec.md §4.4).
func generalComparisonCoerce(a, b xdm.Atomic) (xdm.Atomic, xdm.Atomic) {
	if a.Tag == xdmtype.UntypedAtomic && xdmtype.IsNumeric(b.Tag) {
		if casted, err := convert.CastAtomic(a, xdmtype.Double); err == nil {
			a = casted
		}
	}
	if b.Tag == xdmtype.UntypedAtomic && xdmtype.IsNumeric(a.Tag) {
		if casted, err := convert.CastAtomic(b, xdmtype.Double); err == nil {
			b = casted
		}
	}
	return a, b
}

// execValueComparison implements eq ne lt le gt ge: both sides must already
// be (at most) singletons, per spec.md §4.4's value comparison.
func (m *VM) execValueComparison(op Opcode) error {
	right := m.pop()
	left := m.pop()
	if left.IsEmpty() || right.IsEmpty() {
		m.push(xdm.Empty)
		return nil
	}
	la, err := convert.AtomizeToSingle(left)
	if err != nil {
		return err
	}
	ra, err := convert.AtomizeToSingle(right)
	if err != nil {
		return err
	}
	cmp, err := m.atomicCompare(la, ra)
	if err != nil {
		return err
	}
	var result bool
	switch op {
	case OpValueEq:
		result = cmp == cmpEqual
	case OpValueNe:
		result = cmp != cmpEqual
	case OpValueLt:
		result = cmp == cmpLess
	case OpValueLe:
		result = cmp == cmpLess || cmp == cmpEqual
	case OpValueGt:
		result = cmp == cmpGreater
	case OpValueGe:
		result = cmp == cmpGreater || cmp == cmpEqual
	default:
		return diagnostics.New(diagnostics.XPVM0005, "not a value comparison opcode")
	}
	m.push(xdm.Single(xdm.NewBoolean(result)))
	return nil
}

type compareResult int

const (
	cmpLess compareResult = iota
	cmpEqual
	cmpGreater
	cmpUnordered // NaN on either side
)

// atomicCompare orders two atomic values: numerics compare numerically
// (after promotion), strings/anyURI/untypedAtomic compare under the
// static context's default collation (through the dynamic context's
// collation provider), booleans order false < true.
func (m *VM) atomicCompare(a, b xdm.Atomic) (compareResult, error) {
	switch {
	case xdmtype.IsNumeric(a.Tag) && xdmtype.IsNumeric(b.Tag):
		pa, pb, err := convert.PromoteNumericPair(a, b)
		if err != nil {
			return cmpUnordered, err
		}
		return numericCompare(pa, pb)
	case a.Tag == xdmtype.Boolean && b.Tag == xdmtype.Boolean:
		switch {
		case a.Bool == b.Bool:
			return cmpEqual, nil
		case !a.Bool:
			return cmpLess, nil
		default:
			return cmpGreater, nil
		}
	default:
		collationURI := m.static.DefaultCollation
		if collationURI == "" {
			collationURI = "http://www.w3.org/2005/xpath-functions/collation/codepoint"
		}
		n, err := m.dynamic.Collations.Compare(collationURI, stringOf(a), stringOf(b))
		if err != nil {
			return cmpUnordered, err
		}
		switch {
		case n < 0:
			return cmpLess, nil
		case n > 0:
			return cmpGreater, nil
		default:
			return cmpEqual, nil
		}
	}
}

func stringOf(a xdm.Atomic) string {
	if a.Tag == xdmtype.AnyURI || a.Tag == xdmtype.QName || a.Tag == xdmtype.String || a.Tag == xdmtype.UntypedAtomic {
		return a.Str
	}
	return a.Inspect()
}

func numericCompare(pa, pb xdm.Atomic) (compareResult, error) {
	var af, bf float64
	switch pa.Tag {
	case xdmtype.Decimal:
		c := pa.Dec.Cmp(pb.Dec)
		switch {
		case c < 0:
			return cmpLess, nil
		case c > 0:
			return cmpGreater, nil
		default:
			return cmpEqual, nil
		}
	case xdmtype.Float:
		af, bf = float64(pa.Flt32), float64(pb.Flt32)
	case xdmtype.Double:
		af, bf = pa.Flt64, pb.Flt64
	default:
		return cmpUnordered, diagnostics.New(diagnostics.XPTY0004, "unexpected promoted numeric tag %s", pa.Tag)
	}
	if math.IsNaN(af) || math.IsNaN(bf) {
		return cmpUnordered, nil
	}
	switch {
	case af < bf:
		return cmpLess, nil
	case af > bf:
		return cmpGreater, nil
	default:
		return cmpEqual, nil
	}
}

// execNodeComparison implements `is`, `<<`, `>>`.
func (m *VM) execNodeComparison(op Opcode) error {
	right := m.pop()
	left := m.pop()
	if left.IsEmpty() || right.IsEmpty() {
		m.push(xdm.Empty)
		return nil
	}
	ln, lok := singletonNode(left)
	rn, rok := singletonNode(right)
	if !lok || !rok {
		return m.typeError("node comparison requires node operands")
	}
	var result bool
	switch op {
	case OpIs:
		result = ln.Handle.Identity() == rn.Handle.Identity()
	case OpNodeBefore:
		result = xdm.DocumentOrderLess(ln, rn)
	case OpNodeAfter:
		result = xdm.DocumentOrderLess(rn, ln)
	default:
		return diagnostics.New(diagnostics.XPVM0005, "not a node comparison opcode")
	}
	m.push(xdm.Single(xdm.NewBoolean(result)))
	return nil
}

func singletonNode(s xdm.Sequence) (xdm.Node, bool) {
	if s.Len() != 1 {
		return xdm.Node{}, false
	}
	n, ok := s.At(0).(xdm.Node)
	return n, ok
}

// execStringConcat implements the || operator: atomize both sides to
// strings (via fn:string semantics) and concatenate.
func (m *VM) execStringConcat() error {
	right := m.pop()
	left := m.pop()
	ls, err := sequenceStringValue(left)
	if err != nil {
		return err
	}
	rs, err := sequenceStringValue(right)
	if err != nil {
		return err
	}
	m.push(xdm.Single(xdm.NewString(ls + rs)))
	return nil
}

func sequenceStringValue(s xdm.Sequence) (string, error) {
	if s.IsEmpty() {
		return "", nil
	}
	a, err := convert.AtomizeToSingle(s)
	if err != nil {
		return "", err
	}
	if a.Tag == xdmtype.String || a.Tag == xdmtype.UntypedAtomic || a.Tag == xdmtype.AnyURI {
		return a.Str, nil
	}
	casted, err := convert.CastAtomic(a, xdmtype.String)
	if err != nil {
		return "", err
	}
	return casted.Str, nil
}

// execNodeSetOp implements union/intersect/except over node sequences,
// deduplicating by identity and returning the result in document order.
func (m *VM) execNodeSetOp(op Opcode) error {
	right := m.pop()
	left := m.pop()
	lset, err := nodeSet(left)
	if err != nil {
		return err
	}
	rset, err := nodeSet(right)
	if err != nil {
		return err
	}
	rids := map[uint64]bool{}
	for _, n := range rset {
		rids[n.Handle.Identity()] = true
	}
	seen := map[uint64]bool{}
	var out []xdm.Node
	switch op {
	case OpUnion:
		for _, n := range append(append([]xdm.Node{}, lset...), rset...) {
			if !seen[n.Handle.Identity()] {
				seen[n.Handle.Identity()] = true
				out = append(out, n)
			}
		}
	case OpIntersect:
		for _, n := range lset {
			if rids[n.Handle.Identity()] && !seen[n.Handle.Identity()] {
				seen[n.Handle.Identity()] = true
				out = append(out, n)
			}
		}
	case OpExcept:
		for _, n := range lset {
			if !rids[n.Handle.Identity()] && !seen[n.Handle.Identity()] {
				seen[n.Handle.Identity()] = true
				out = append(out, n)
			}
		}
	}
	sortNodesByDocumentOrder(out)
	items := make([]xdm.Item, len(out))
	for i, n := range out {
		items[i] = n
	}
	m.push(xdm.FromSlice(items))
	return nil
}

func nodeSet(s xdm.Sequence) ([]xdm.Node, error) {
	items := s.Items()
	out := make([]xdm.Node, 0, len(items))
	for _, it := range items {
		n, ok := it.(xdm.Node)
		if !ok {
			return nil, diagnostics.New(diagnostics.XPTY0004, "operand to a node set operator must be a sequence of nodes")
		}
		out = append(out, n)
	}
	return out, nil
}

func sortNodesByDocumentOrder(nodes []xdm.Node) {
	for i := 1; i < len(nodes); i++ {
		for j := i; j > 0 && xdm.DocumentOrderLess(nodes[j], nodes[j-1]); j-- {
			nodes[j], nodes[j-1] = nodes[j-1], nodes[j]
		}
	}
}

// execRange implements the `to` operator.
func (m *VM) execRange() error {
	right := m.pop()
	left := m.pop()
	if left.IsEmpty() || right.IsEmpty() {
		m.push(xdm.Empty)
		return nil
	}
	la, err := convert.AtomizeToSingle(left)
	if err != nil {
		return err
	}
	ra, err := convert.AtomizeToSingle(right)
	if err != nil {
		return err
	}
	lc, err := convert.CastAtomic(la, xdmtype.Integer)
	if err != nil {
		return err
	}
	rc, err := convert.CastAtomic(ra, xdmtype.Integer)
	if err != nil {
		return err
	}
	lo, hi := lc.Int.Int64(), rc.Int.Int64()
	if lo > hi {
		m.push(xdm.Empty)
		return nil
	}
	items := make([]xdm.Item, 0, hi-lo+1)
	for v := lo; v <= hi; v++ {
		items = append(items, xdm.NewIntegerFromInt64(v))
	}
	m.push(xdm.FromSlice(items))
	return nil
}

// execEBV reduces the top-of-stack sequence to its effective boolean value.
func (m *VM) execEBV() error {
	v := m.pop()
	b, err := convert.EffectiveBooleanValue(v)
	if err != nil {
		return err
	}
	m.push(xdm.Single(xdm.NewBoolean(b)))
	return nil
}

func (m *VM) execNot() error {
	v := m.pop()
	b, err := convert.EffectiveBooleanValue(v)
	if err != nil {
		return err
	}
	m.push(xdm.Single(xdm.NewBoolean(!b)))
	return nil
}

func boolOf(s xdm.Sequence) (bool, error) {
	return convert.EffectiveBooleanValue(s)
}
