// Package vm implements the bytecode lowering (C6) and stack-based virtual
// machine (C7) that execute compiled XPath/XSLT programs. Mechanically this
// is the teacher's own chunk/opcode/frame-stack VM design, generalized so
// every stack cell holds an xdm.Sequence instead of a scalar-or-boxed-object
// Value union — spec.md §4.3 requires exactly that uniform representation.
package vm

// Opcode is a single VM instruction. Grouped per spec.md §4.2's instruction
// taxonomy (push / arithmetic-comparison-logical / control / iteration /
// path navigation / conversion / aggregation), the same grouping-by-comment
// convention as the teacher's opcodes.go.
type Opcode byte

const (
	// Push
	OpConst Opcode = iota
	OpLoadLocal
	OpLoadUpvalue
	OpContextItem
	OpContextPosition
	OpContextSize
	OpResolveFunc // operand: function-name const index (2 bytes) + arity (1 byte)
	OpPop
	OpPopBelow // discard the value N slots below top, per teacher's OP_POP_BELOW
	OpDup

	// Arithmetic / comparison / logical
	OpAdd
	OpSub
	OpMul
	OpDiv
	OpIDiv
	OpMod
	OpNeg
	OpGeneralEq
	OpGeneralNe
	OpGeneralLt
	OpGeneralLe
	OpGeneralGt
	OpGeneralGe
	OpValueEq
	OpValueNe
	OpValueLt
	OpValueLe
	OpValueGt
	OpValueGe
	OpIs
	OpNodeBefore
	OpNodeAfter
	OpStringConcat
	OpUnion
	OpIntersect
	OpExcept
	OpRange
	OpSeqConcat
	OpEBV // convert top-of-stack sequence to a singleton xs:boolean via effective boolean value
	OpNot

	// Control
	OpJump
	OpJumpIfFalse
	OpLoop // unconditional backward jump
	OpCall
	OpTailCall
	OpReturn
	OpMakeClosure
	OpPartialApply

	// Iteration
	OpIterNew
	OpIterNext // pushes an xs:boolean hasNext onto the value stack
	OpIterCurrent
	OpIterPop
	OpIterPosition
	OpIterSize
	OpPushContext // sets context item/position/size from the top iterator's cursor, saving the previous triple
	OpPopContext  // restores the triple OpPushContext saved

	// Path navigation
	OpAxisStep     // operand: axis byte + node-test const index (2 bytes)
	OpPredicateKeep

	// Conversion
	OpAtomize
	OpCastAs
	OpCastableAs
	OpTreatAs
	OpInstanceOf

	// Aggregation / construction
	OpMakeMap
	OpMakeArray
	OpArrayAppend
	OpLookup
	OpLookupWildcard

	numOpcodes
)

var opcodeNames = [numOpcodes]string{
	OpConst: "CONST", OpLoadLocal: "LOAD_LOCAL", OpLoadUpvalue: "LOAD_UPVALUE",
	OpContextItem: "CONTEXT_ITEM", OpContextPosition: "CONTEXT_POSITION", OpContextSize: "CONTEXT_SIZE",
	OpResolveFunc: "RESOLVE_FUNC",
	OpPop:         "POP", OpPopBelow: "POP_BELOW", OpDup: "DUP",
	OpAdd: "ADD", OpSub: "SUB", OpMul: "MUL", OpDiv: "DIV", OpIDiv: "IDIV", OpMod: "MOD", OpNeg: "NEG",
	OpGeneralEq: "GENERAL_EQ", OpGeneralNe: "GENERAL_NE", OpGeneralLt: "GENERAL_LT",
	OpGeneralLe: "GENERAL_LE", OpGeneralGt: "GENERAL_GT", OpGeneralGe: "GENERAL_GE",
	OpValueEq: "VALUE_EQ", OpValueNe: "VALUE_NE", OpValueLt: "VALUE_LT",
	OpValueLe: "VALUE_LE", OpValueGt: "VALUE_GT", OpValueGe: "VALUE_GE",
	OpIs: "IS", OpNodeBefore: "NODE_BEFORE", OpNodeAfter: "NODE_AFTER",
	OpStringConcat: "STRING_CONCAT", OpUnion: "UNION", OpIntersect: "INTERSECT", OpExcept: "EXCEPT",
	OpRange: "RANGE", OpSeqConcat: "SEQ_CONCAT", OpEBV: "EBV", OpNot: "NOT",
	OpJump: "JUMP", OpJumpIfFalse: "JUMP_IF_FALSE", OpLoop: "LOOP",
	OpCall: "CALL", OpTailCall: "TAIL_CALL", OpReturn: "RETURN",
	OpMakeClosure: "MAKE_CLOSURE", OpPartialApply: "PARTIAL_APPLY",
	OpIterNew: "ITER_NEW", OpIterNext: "ITER_NEXT", OpIterCurrent: "ITER_CURRENT",
	OpIterPop: "ITER_POP", OpIterPosition: "ITER_POSITION", OpIterSize: "ITER_SIZE",
	OpPushContext: "PUSH_CONTEXT", OpPopContext: "POP_CONTEXT",
	OpAxisStep: "AXIS_STEP", OpPredicateKeep: "PREDICATE_KEEP",
	OpAtomize: "ATOMIZE", OpCastAs: "CAST_AS", OpCastableAs: "CASTABLE_AS",
	OpTreatAs: "TREAT_AS", OpInstanceOf: "INSTANCE_OF",
	OpMakeMap: "MAKE_MAP", OpMakeArray: "MAKE_ARRAY", OpArrayAppend: "ARRAY_APPEND",
	OpLookup: "LOOKUP", OpLookupWildcard: "LOOKUP_WILDCARD",
}

func (op Opcode) String() string {
	if int(op) < len(opcodeNames) && opcodeNames[op] != "" {
		return opcodeNames[op]
	}
	return "UNKNOWN"
}
