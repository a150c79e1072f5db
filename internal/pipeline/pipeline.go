// Package pipeline carries a PipelineContext through a sequence of
// Processor stages — lex/parse, build-IR, lower — the way the teacher's
// lexer/parser/analyzer chain does for its own language. Every stage runs
// even after an earlier one records an error, so REPL/LSP-style callers get
// every diagnostic a single pass can produce rather than stopping at the
// first failure.
package pipeline

// Processor is one stage of a Pipeline: it consumes and returns a
// PipelineContext, typically by reading one of its populated fields and
// setting the next.
type Processor interface {
	Process(ctx *PipelineContext) *PipelineContext
}

// Pipeline represents a sequence of processing stages.
type Pipeline struct {
	processors []Processor
}

func New(processors ...Processor) *Pipeline {
	return &Pipeline{processors: processors}
}

// Run executes the pipeline.
func (p *Pipeline) Run(initialCtx *PipelineContext) *PipelineContext {
	ctx := initialCtx
	for _, processor := range p.processors {
		ctx = processor.Process(ctx)
		// Continue on errors to collect diagnostics from all stages
		// (e.g. LSP needs both parse and semantic errors).
	}
	return ctx
}
