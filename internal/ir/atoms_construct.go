package ir

import "github.com/arborxml/xpvm/internal/diagnostics"

// MapEntry is one key/value pair in a MapCtor literal.
type MapEntry struct {
	Key   Atom
	Value Atom
}

// MapCtor constructs an XDM map item: `map{ "a": 1, "b": 2 }`.
type MapCtor struct {
	SpanVal diagnostics.Span
	Entries []MapEntry
}

func (m *MapCtor) Accept(v Visitor)       { v.VisitMapCtor(m) }
func (m *MapCtor) Span() diagnostics.Span { return m.SpanVal }

// ArrayCtor constructs an XDM array item: `[1, 2, 3]` or `array{ expr }`.
type ArrayCtor struct {
	SpanVal  diagnostics.Span
	Members  []Atom
	IsCurly  bool // array{ expr } flattens expr's sequence into one member per item
}

func (a *ArrayCtor) Accept(v Visitor)       { v.VisitArrayCtor(a) }
func (a *ArrayCtor) Span() diagnostics.Span { return a.SpanVal }

// Lookup evaluates a map or array lookup: `$m?key`, `$a?1`, `$a?*`.
type Lookup struct {
	SpanVal diagnostics.Span
	Target  Atom
	Key     Atom // nil when IsWildcard
	IsWildcard bool
}

func (l *Lookup) Accept(v Visitor)       { v.VisitLookup(l) }
func (l *Lookup) Span() diagnostics.Span { return l.SpanVal }
