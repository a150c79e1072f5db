package vm

import (
	"github.com/arborxml/xpvm/internal/ir"
	"github.com/arborxml/xpvm/internal/name"
	"github.com/arborxml/xpvm/internal/xdm"
	"github.com/arborxml/xpvm/internal/xdmtype"
)

// Chunk is a lowered program fragment: a flat byte-code stream, its constant
// pool, and a line/column table for error spans — the same shape as the
// teacher's vm.Chunk, with the constant pool holding xdm.Sequence literals
// and FuncDescs instead of evaluator.Object values.
type Chunk struct {
	Code    []byte
	Lines   []int
	Columns []int

	Constants []xdm.Sequence
	Funcs     []*FuncDesc
	NodeTests []ir.NodeTest
	SeqTypes  []xdmtype.SequenceType
	FuncNames []name.Expanded

	File string
}

// NewChunk returns an empty chunk with the teacher's starting capacities.
func NewChunk() *Chunk {
	return &Chunk{
		Code:      make([]byte, 0, 256),
		Lines:     make([]int, 0, 256),
		Columns:   make([]int, 0, 256),
		Constants: make([]xdm.Sequence, 0, 64),
	}
}

func (c *Chunk) Write(b byte, line, col int) {
	c.Code = append(c.Code, b)
	c.Lines = append(c.Lines, line)
	c.Columns = append(c.Columns, col)
}

func (c *Chunk) WriteOp(op Opcode, line, col int) {
	c.Write(byte(op), line, col)
}

// AddConstant interns value into the constant pool, returning its index.
func (c *Chunk) AddConstant(value xdm.Sequence) int {
	c.Constants = append(c.Constants, value)
	return len(c.Constants) - 1
}

// WriteConstant emits OpConst followed by a 2-byte constant index.
func (c *Chunk) WriteConstant(value xdm.Sequence, line, col int) {
	idx := c.AddConstant(value)
	c.WriteOp(OpConst, line, col)
	c.Write(byte(idx>>8), line, col)
	c.Write(byte(idx), line, col)
}

// AddFunc interns a function descriptor, returning its index.
func (c *Chunk) AddFunc(fd *FuncDesc) int {
	c.Funcs = append(c.Funcs, fd)
	return len(c.Funcs) - 1
}

// AddNodeTest interns a node test, returning its index.
func (c *Chunk) AddNodeTest(t ir.NodeTest) int {
	c.NodeTests = append(c.NodeTests, t)
	return len(c.NodeTests) - 1
}

// AddSeqType interns a SequenceType operand for cast/castable/treat/
// instance-of instructions, returning its index.
func (c *Chunk) AddSeqType(st xdmtype.SequenceType) int {
	c.SeqTypes = append(c.SeqTypes, st)
	return len(c.SeqTypes) - 1
}

// AddFuncName interns a static-call target name, returning its index.
func (c *Chunk) AddFuncName(n name.Expanded) int {
	c.FuncNames = append(c.FuncNames, n)
	return len(c.FuncNames) - 1
}

func (c *Chunk) ReadU16(offset int) int {
	return int(c.Code[offset])<<8 | int(c.Code[offset+1])
}

func (c *Chunk) WriteU16(v int, line, col int) {
	c.Write(byte(v>>8), line, col)
	c.Write(byte(v), line, col)
}

// PatchU16 overwrites the 2-byte operand at offset, used by the lowerer's
// second jump-resolution pass.
func (c *Chunk) PatchU16(offset, v int) {
	c.Code[offset] = byte(v >> 8)
	c.Code[offset+1] = byte(v)
}

func (c *Chunk) Len() int { return len(c.Code) }

// LineAt / ColAt report the source position an instruction offset maps to,
// used to attach a diagnostics.Span to a runtime error.
func (c *Chunk) LineAt(offset int) int {
	if offset < 0 || offset >= len(c.Lines) {
		return 0
	}
	return c.Lines[offset]
}

func (c *Chunk) ColAt(offset int) int {
	if offset < 0 || offset >= len(c.Columns) {
		return 0
	}
	return c.Columns[offset]
}
