package stdlib

import (
	"github.com/arborxml/xpvm/internal/diagnostics"
	"github.com/arborxml/xpvm/internal/runtimectx"
	"github.com/arborxml/xpvm/internal/xdm"
	"github.com/arborxml/xpvm/internal/xdmtype"
)

// contextFuncs binds the functions spec.md §4.5 calls out as needing the
// `context` flag injected — fn:current-dateTime/current-date/current-time
// read the dynamic context's implicit clock, fn:doc looks up a document
// already loaded into its DocumentSet by URI (fn:collection is not
// provided), and fn:trace is a documented no-op (spec.md
// §4.6: "deterministic and free of observable side effects, apart from
// fn:trace, which may be no-op").
func contextFuncs(dyn *runtimectx.DynamicContext) []*Descriptor {
	return []*Descriptor{
		newDescriptor("fn:current-dateTime() as xs:dateTime", func(args []xdm.Sequence) (xdm.Sequence, error) {
			t := dyn.CurrentDateTime
			tv := xdm.TimeValue{
				Year: t.Year(), Month: int(t.Month()), Day: t.Day(),
				Hour: t.Hour(), Minute: t.Minute(), Second: t.Second(), Nanosecond: t.Nanosecond(),
				TZOffsetMinutes: dyn.ImplicitTZMin, HasTZ: true,
			}
			return xdm.Single(xdm.Atomic{Tag: xdmtype.DateTime, Time: tv}), nil
		}),
		newDescriptor("fn:current-date() as xs:date", func(args []xdm.Sequence) (xdm.Sequence, error) {
			t := dyn.CurrentDateTime
			tv := xdm.TimeValue{Year: t.Year(), Month: int(t.Month()), Day: t.Day(), TZOffsetMinutes: dyn.ImplicitTZMin, HasTZ: true}
			return xdm.Single(xdm.Atomic{Tag: xdmtype.Date, Time: tv}), nil
		}),
		newDescriptor("fn:current-time() as xs:time", func(args []xdm.Sequence) (xdm.Sequence, error) {
			t := dyn.CurrentDateTime
			tv := xdm.TimeValue{Hour: t.Hour(), Minute: t.Minute(), Second: t.Second(), Nanosecond: t.Nanosecond(), TZOffsetMinutes: dyn.ImplicitTZMin, HasTZ: true}
			return xdm.Single(xdm.Atomic{Tag: xdmtype.Time, Time: tv}), nil
		}),
		newDescriptor("fn:doc($uri as xs:string?) as document-node()?", func(args []xdm.Sequence) (xdm.Sequence, error) {
			uri := optString(args[0], "")
			if uri == "" {
				return xdm.Empty, nil
			}
			if doc, ok := dyn.Documents.ByURI(uri); ok {
				return doc, nil
			}
			return xdm.Empty, diagnostics.New(diagnostics.FODC0002, "document not found: %s", uri)
		}),
		newDescriptor("fn:trace($value as item()*, $label as xs:string) as item()*", func(args []xdm.Sequence) (xdm.Sequence, error) {
			return args[0], nil
		}),
	}
}
