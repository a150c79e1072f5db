package pipeline

import (
	"github.com/arborxml/xpvm/internal/diagnostics"
	"github.com/arborxml/xpvm/internal/vm"
	"github.com/arborxml/xpvm/internal/xdmtype"
	"github.com/arborxml/xpvm/internal/xpath"
	"github.com/arborxml/xpvm/internal/xpath/parser"
)

// asError wraps a plain error as a diagnostics.Error if it isn't already
// one, so Errors stays a uniform []*diagnostics.Error regardless of which
// stage raised it.
func asError(err error) *diagnostics.Error {
	if de, ok := err.(*diagnostics.Error); ok {
		return de
	}
	return diagnostics.Wrap(diagnostics.XPST0003, err, "stage failed")
}

// ParseProcessor lexes and parses ctx.Source into ctx.AST.
type ParseProcessor struct{}

func (ParseProcessor) Process(ctx *PipelineContext) *PipelineContext {
	e, err := parser.ParseNamed(ctx.Source, ctx.FilePath)
	if err != nil {
		ctx.AddError(asError(err))
		return ctx
	}
	ctx.AST = e
	return ctx
}

// BuildProcessor lowers ctx.AST into ctx.IR against ctx.Static.
type BuildProcessor struct{}

func (BuildProcessor) Process(ctx *PipelineContext) *PipelineContext {
	if ctx.AST == nil {
		ctx.AddError(diagnostics.New(diagnostics.XPST0003, "no parsed expression to build from"))
		return ctx
	}
	sc := ctx.Static
	if sc == nil {
		sc = defaultStatic()
	}
	body, err := xpath.BuildIR(ctx.AST, sc)
	if err != nil {
		ctx.AddError(asError(err))
		return ctx
	}
	ctx.IR = body
	return ctx
}

// LowerProcessor compiles ctx.IR into ctx.Program.
type LowerProcessor struct{}

func (LowerProcessor) Process(ctx *PipelineContext) *PipelineContext {
	if ctx.IR == nil {
		ctx.AddError(diagnostics.New(diagnostics.XPST0003, "no built IR to lower"))
		return ctx
	}
	ret := xdmtype.SequenceType{Item: xdmtype.Item, Occurrence: xdmtype.ZeroOrMore}
	prog, err := vm.CompileProgram("main", nil, ret, ctx.IR)
	if err != nil {
		ctx.AddError(asError(err))
		return ctx
	}
	ctx.Program = prog
	return ctx
}
