// Package engine is the public Go API over the compile/execute pipeline:
// Compile turns source text into an immutable Program, Execute runs a
// Program against a document, and Introspect reports what a Program needs
// without running it. cmd/xpath and internal/rpcserver are both thin
// wrappers over this package — neither talks to internal/vm directly.
package engine

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/arborxml/xpvm/internal/config"
	"github.com/arborxml/xpvm/internal/convert"
	"github.com/arborxml/xpvm/internal/diagnostics"
	"github.com/arborxml/xpvm/internal/runtimectx"
	"github.com/arborxml/xpvm/internal/stdlib"
	"github.com/arborxml/xpvm/internal/tree"
	"github.com/arborxml/xpvm/internal/vm"
	"github.com/arborxml/xpvm/internal/xdm"
	"github.com/arborxml/xpvm/internal/xdmtype"
	"github.com/arborxml/xpvm/internal/xpath"
	"github.com/arborxml/xpvm/internal/xpath/parser"
)

// Engine holds the static context one or more Programs are compiled
// against. It is immutable after construction and safe to share across
// concurrently running Executes (spec.md §5): each Execute builds its own
// DocumentSet, DynamicContext and VM.
type Engine struct {
	static *runtimectx.StaticContext
}

// New builds an Engine from an optional config (nil uses built-in
// defaults: codepoint collation, the fixed xml/xs/fn/math/map/array/xsl
// namespace bindings).
func New(cfg *config.Config) *Engine {
	return &Engine{static: cfg.NewStaticContext()}
}

var resultType = xdmtype.SequenceType{Item: xdmtype.Item, Occurrence: xdmtype.ZeroOrMore}

// Program is a compiled XPath expression, immutable and safe to Execute
// concurrently any number of times.
type Program struct {
	source string
	prog   *vm.Program
	digest string
}

// Digest is the SHA-256 hex digest of the program's source text exactly as
// passed to Compile.
func (p *Program) Digest() string { return p.digest }

// Source returns the original expression text the Program was compiled from.
func (p *Program) Source() string { return p.source }

// Info summarizes a compiled Program without running it.
type Info struct {
	Source        string
	Digest        string
	Instructions  int
	ParamCount    int
	Return        xdmtype.SequenceType
	ConstantCount int
}

// Introspect reports structural facts about a compiled Program.
func Introspect(p *Program) Info {
	return Info{
		Source:        p.source,
		Digest:        p.digest,
		Instructions:  len(p.prog.Chunk.Code),
		ParamCount:    p.prog.Entry.Arity(),
		Return:        p.prog.Entry.Return,
		ConstantCount: len(p.prog.Chunk.Constants),
	}
}

// Compile parses and lowers source into a Program, ready for repeated
// Execute calls. A syntax or static error surfaces as a *diagnostics.Error.
func (e *Engine) Compile(source string) (*Program, error) {
	expr, err := parser.ParseNamed(source, "")
	if err != nil {
		return nil, err
	}
	body, err := xpath.BuildIR(expr, e.static)
	if err != nil {
		return nil, err
	}
	compiled, err := vm.CompileProgram("main", nil, resultType, body)
	if err != nil {
		return nil, err
	}
	return &Program{source: source, prog: compiled, digest: digest(source)}, nil
}

func digest(source string) string {
	sum := sha256.Sum256([]byte(source))
	return hex.EncodeToString(sum[:])
}

// Execute runs prog against doc (an XML document's bytes), with doc's root
// node as the initial context item, and returns the resulting sequence.
// Execute constructs a fresh DocumentSet/DynamicContext/VM, per spec.md
// §5's "no VM or DynamicContext is shared between concurrent evaluations".
func (e *Engine) Execute(ctx context.Context, prog *Program, doc []byte, baseURI string) (xdm.Sequence, error) {
	docs := tree.NewDocumentSet()
	root, err := docs.Load(doc, baseURI)
	if err != nil {
		return xdm.Empty, diagnostics.Wrap(diagnostics.FODC0002, err, "loading document %q", baseURI)
	}
	dyn := runtimectx.NewDynamicContext(docs, runtimectx.NewCollationProvider())
	dyn.ContextItem = root
	dyn.ContextPosition = 1
	dyn.ContextSize = 1

	return e.run(ctx, prog, dyn, nil)
}

// ExecuteStandalone runs prog with no context item at all (an expression
// that never references `.`, e.g. a pure arithmetic or constructor
// expression), again with a fresh VM/DynamicContext per call.
func (e *Engine) ExecuteStandalone(ctx context.Context, prog *Program) (xdm.Sequence, error) {
	dyn := runtimectx.NewDynamicContext(noDocuments{}, runtimectx.NewCollationProvider())
	return e.run(ctx, prog, dyn, nil)
}

func (e *Engine) run(ctx context.Context, prog *Program, dyn *runtimectx.DynamicContext, args []xdm.Sequence) (xdm.Sequence, error) {
	var m *vm.VM
	invoke := func(fn xdm.Callable, callArgs []xdm.Sequence) (xdm.Sequence, error) {
		return m.Invoke(fn, callArgs)
	}
	registry := stdlib.NewRegistry(dyn, invoke)
	m = vm.New(e.static, dyn, registry)
	return m.Run(ctx, prog.prog, args)
}

// noDocuments is a DocumentSet that has never loaded anything, used by
// ExecuteStandalone where fn:doc has nothing to resolve against.
type noDocuments struct{}

func (noDocuments) Load(source []byte, baseURI string) (xdm.Sequence, error) {
	return xdm.Empty, fmt.Errorf("fn:doc: no document set configured for this evaluation")
}

func (noDocuments) ByURI(uri string) (xdm.Sequence, bool) { return xdm.Empty, false }

// FormatItems renders seq's items as fn:string-style text, one per line —
// a node's string value, an atomic's cast-to-xs:string representation —
// the same conversion cmd/xpath and internal/rpcserver both use to print a
// result, so there is exactly one "how do we show the user a sequence"
// implementation rather than one per caller.
func FormatItems(seq xdm.Sequence) ([]string, error) {
	items := seq.Items()
	out := make([]string, len(items))
	for i, it := range items {
		switch v := it.(type) {
		case xdm.Node:
			out[i] = v.Handle.StringValue()
		case xdm.Atomic:
			s, err := convert.CastAtomic(v, xdmtype.String)
			if err != nil {
				return nil, err
			}
			out[i] = s.Str
		default:
			out[i] = it.Inspect()
		}
	}
	return out, nil
}
