package ir

// Visitor is implemented by every IR consumer (the lowerer, a pretty-printer,
// a free-variable collector) that needs to dispatch on concrete node type,
// mirroring the external XPath/XSLT AST's own Accept(v Visitor) convention.
type Visitor interface {
	VisitLet(*Let)
	VisitReturn(*Return)

	VisitConst(*Const)
	VisitVarRef(*VarRef)
	VisitContextItem(*ContextItem)
	VisitContextPosition(*ContextPosition)
	VisitContextSize(*ContextSize)
	VisitBinOp(*BinOp)
	VisitUnaryOp(*UnaryOp)
	VisitPathStep(*PathStep)

	VisitIf(*If)
	VisitFor(*For)
	VisitQuantified(*Quantified)

	VisitConversion(*Conversion)
	VisitStaticCall(*StaticCall)
	VisitDynamicCall(*DynamicCall)
	VisitPartialApply(*PartialApply)
	VisitInlineFunc(*InlineFunc)

	VisitMapCtor(*MapCtor)
	VisitArrayCtor(*ArrayCtor)
	VisitLookup(*Lookup)
}

// BaseVisitor implements Visitor with no-op methods so callers that only
// care about a handful of node kinds can embed it and override selectively,
// same convention as funxy's evaluator visitors.
type BaseVisitor struct{}

func (BaseVisitor) VisitLet(*Let)                           {}
func (BaseVisitor) VisitReturn(*Return)                      {}
func (BaseVisitor) VisitConst(*Const)                        {}
func (BaseVisitor) VisitVarRef(*VarRef)                      {}
func (BaseVisitor) VisitContextItem(*ContextItem)            {}
func (BaseVisitor) VisitContextPosition(*ContextPosition)    {}
func (BaseVisitor) VisitContextSize(*ContextSize)            {}
func (BaseVisitor) VisitBinOp(*BinOp)                        {}
func (BaseVisitor) VisitUnaryOp(*UnaryOp)                    {}
func (BaseVisitor) VisitPathStep(*PathStep)                  {}
func (BaseVisitor) VisitIf(*If)                              {}
func (BaseVisitor) VisitFor(*For)                             {}
func (BaseVisitor) VisitQuantified(*Quantified)               {}
func (BaseVisitor) VisitConversion(*Conversion)               {}
func (BaseVisitor) VisitStaticCall(*StaticCall)                {}
func (BaseVisitor) VisitDynamicCall(*DynamicCall)               {}
func (BaseVisitor) VisitPartialApply(*PartialApply)             {}
func (BaseVisitor) VisitInlineFunc(*InlineFunc)                 {}
func (BaseVisitor) VisitMapCtor(*MapCtor)                       {}
func (BaseVisitor) VisitArrayCtor(*ArrayCtor)                    {}
func (BaseVisitor) VisitLookup(*Lookup)                          {}
