package vm

import (
	"github.com/arborxml/xpvm/internal/convert"
	"github.com/arborxml/xpvm/internal/diagnostics"
	"github.com/arborxml/xpvm/internal/xdm"
	"github.com/arborxml/xpvm/internal/xdmtype"
)

// execIterNew pops a sequence and pushes a fresh iterator frame positioned
// before its first item onto the dedicated iterator stack (spec.md §4.3/§9:
// "every path step is an iterator").
func (m *VM) execIterNew() error {
	seq := m.pop()
	m.iterStack = append(m.iterStack, iterFrame{it: seq.NewIterator()})
	return nil
}

func (m *VM) topIter() (*iterFrame, error) {
	if len(m.iterStack) == 0 {
		return nil, diagnostics.New(diagnostics.XPVM0005, "iterator stack underflow")
	}
	return &m.iterStack[len(m.iterStack)-1], nil
}

// execIterNext advances the top iterator and pushes a boolean hasNext; the
// compiler follows this with OpJumpIfFalse to leave the loop once
// exhausted, and OpIterCurrent to read the item IterNext just advanced to.
func (m *VM) execIterNext() error {
	top, err := m.topIter()
	if err != nil {
		return err
	}
	_, ok := top.it.Next()
	m.push(xdm.Single(xdm.NewBoolean(ok)))
	return nil
}

// execIterCurrent pushes the item at the iterator's current cursor as a
// singleton sequence.
func (m *VM) execIterCurrent() error {
	top, err := m.topIter()
	if err != nil {
		return err
	}
	item, ok := top.it.Current()
	if !ok {
		return diagnostics.New(diagnostics.XPVM0005, "iterator current called with no advanced position")
	}
	m.push(xdm.Single(item))
	return nil
}

func (m *VM) execIterPop() error {
	if len(m.iterStack) == 0 {
		return diagnostics.New(diagnostics.XPVM0005, "iterator stack underflow")
	}
	m.iterStack = m.iterStack[:len(m.iterStack)-1]
	return nil
}

func (m *VM) execIterPosition() error {
	top, err := m.topIter()
	if err != nil {
		return err
	}
	m.push(xdm.Single(xdm.NewIntegerFromInt64(int64(top.it.Position()))))
	return nil
}

func (m *VM) execIterSize() error {
	top, err := m.topIter()
	if err != nil {
		return err
	}
	m.push(xdm.Single(xdm.NewIntegerFromInt64(int64(top.it.Size()))))
	return nil
}

// execPredicateKeep implements a predicate's keep/drop decision for the
// item the top iterator currently sits on: a singleton numeric predicate
// result is position-equality (`a[3]`); anything else reduces to effective
// boolean value (spec.md §4.4's predicate truth test).
func (m *VM) execPredicateKeep() error {
	predSeq := m.pop()
	top, err := m.topIter()
	if err != nil {
		return err
	}
	keep, err := predicateHolds(predSeq, top.it.Position())
	if err != nil {
		return err
	}
	m.push(xdm.Single(xdm.NewBoolean(keep)))
	return nil
}

func predicateHolds(predSeq xdm.Sequence, position int) (bool, error) {
	if predSeq.Len() == 1 {
		if a, ok := predSeq.At(0).(xdm.Atomic); ok && xdmtype.IsNumeric(a.Tag) {
			asInt, err := convert.CastAtomic(a, xdmtype.Integer)
			if err != nil {
				return false, nil // non-integral numeric predicate never matches a position
			}
			return asInt.Int.Int64() == int64(position), nil
		}
	}
	return convert.EffectiveBooleanValue(predSeq)
}
