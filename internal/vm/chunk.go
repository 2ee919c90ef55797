package vm

import (
	"encoding/binary"

	"github.com/joomcode/errorx"
)

// lineRun is one entry of the run-length line table
type lineRun struct {
	Line  int
	Count int
}

// Chunk represents a sequence of bytecode instructions
type Chunk struct {
	// Code is the bytecode instructions
	Code []byte

	// Constants pool - literals, function prototypes, global names
	Constants []Value

	// lines maps bytecode offset to source line, run-length encoded.
	// Lines are appended in non-decreasing order.
	lines []lineRun

	// Lookup cache: the run containing the last looked-up offset and the
	// offset that run starts at.
	cacheRun   int
	cacheStart int
}

// NewChunk creates a new empty chunk
func NewChunk() *Chunk {
	return &Chunk{
		Code:      make([]byte, 0, 64),
		Constants: make([]Value, 0, 16),
	}
}

// Write adds a byte to the chunk with line info
func (c *Chunk) Write(b byte, line int) {
	c.Code = append(c.Code, b)

	if n := len(c.lines); n > 0 {
		last := &c.lines[n-1]
		if last.Line == line {
			last.Count++
			return
		}
		if line < last.Line {
			panic(errorx.IllegalState.New("line %d written after line %d at offset %d", line, last.Line, len(c.Code)-1))
		}
	}
	c.lines = append(c.lines, lineRun{Line: line, Count: 1})
}

// WriteOp writes an opcode to the chunk
func (c *Chunk) WriteOp(op Opcode, line int) {
	c.Write(byte(op), line)
}

// AddConstant adds a constant to the pool and returns its index.
// The caller enforces the pool size limit.
func (c *Chunk) AddConstant(value Value) int {
	c.Constants = append(c.Constants, value)
	return len(c.Constants) - 1
}

// ReadShort reads a 16-bit operand at offset
func (c *Chunk) ReadShort(offset int) uint16 {
	return binary.LittleEndian.Uint16(c.Code[offset:])
}

// PutShort overwrites the 16-bit operand at offset
func (c *Chunk) PutShort(offset int, v uint16) {
	binary.LittleEndian.PutUint16(c.Code[offset:], v)
}

// Line returns the source line of the instruction at offset
func (c *Chunk) Line(offset int) int {
	if offset < 0 || offset >= len(c.Code) {
		panic(errorx.IllegalArgument.New("offset %d out of range [0, %d)", offset, len(c.Code)))
	}

	run, start := 0, 0
	if offset >= c.cacheStart && c.cacheRun < len(c.lines) {
		run, start = c.cacheRun, c.cacheStart
	}
	for start+c.lines[run].Count <= offset {
		start += c.lines[run].Count
		run++
	}
	c.cacheRun, c.cacheStart = run, start
	return c.lines[run].Line
}

// LineRuns returns the number of entries in the line table
func (c *Chunk) LineRuns() int {
	return len(c.lines)
}

// Len returns the number of bytes in the chunk
func (c *Chunk) Len() int {
	return len(c.Code)
}
