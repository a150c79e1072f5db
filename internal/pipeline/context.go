package pipeline

import (
	"github.com/arborxml/xpvm/internal/diagnostics"
	"github.com/arborxml/xpvm/internal/ir"
	"github.com/arborxml/xpvm/internal/runtimectx"
	"github.com/arborxml/xpvm/internal/vm"
	"github.com/arborxml/xpvm/internal/xpath/ast"
)

// PipelineContext is threaded through every Processor stage: source text in,
// compiled program out, with every intermediate artifact (AST, IR) and every
// stage's diagnostics kept on the way.
type PipelineContext struct {
	Source   string
	FilePath string
	BaseURI  string

	Static *runtimectx.StaticContext

	AST     ast.Expr
	IR      ir.Expr
	Program *vm.Program

	Errors []*diagnostics.Error
}

// NewPipelineContext returns a context ready for the first stage.
func NewPipelineContext(source string) *PipelineContext {
	return &PipelineContext{Source: source, Static: runtimectx.NewStaticContext()}
}

// AddError appends a diagnostic without interrupting the pipeline.
func (c *PipelineContext) AddError(err *diagnostics.Error) {
	c.Errors = append(c.Errors, err)
}

func defaultStatic() *runtimectx.StaticContext {
	return runtimectx.NewStaticContext()
}
