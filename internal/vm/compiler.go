package vm

import (
	"fmt"
	"io"

	"github.com/funvibe/glox/internal/config"
	"github.com/funvibe/glox/internal/parser"
	"github.com/funvibe/glox/internal/token"
	"github.com/joomcode/errorx"
)

// Local represents a local variable during compilation
type Local struct {
	Name       token.Token
	Depth      int  // Scope depth, or uninitialized until the declaration completes
	IsCaptured bool // True if captured by a nested function (needs to become upvalue)
}

// uninitialized marks a declared local whose initializer is still compiling
const uninitialized = -1

// Upvalue represents a captured variable from an enclosing scope
type Upvalue struct {
	Index   uint8 // Index of the local/upvalue in enclosing scope
	IsLocal bool  // True if captures a local, false if captures another upvalue
}

// FunctionType distinguishes top-level code from functions
type FunctionType int

const (
	TYPE_SCRIPT FunctionType = iota
	TYPE_FUNCTION
)

// funcState is the compile state of one function body. Nested functions
// sit above their enclosing function on Compiler.states.
type funcState struct {
	function FunctionRef
	funcType FunctionType

	locals     []Local
	scopeDepth int // 0 = global

	upvalues []Upvalue
}

// Compiler compiles source text straight to bytecode in a single pass
type Compiler struct {
	heap   *Heap
	parser *parser.Parser

	// states is the chain of functions being compiled, innermost last
	states []*funcState

	// codeOut receives a disassembly of every function that compiles
	// cleanly; nil disables it
	codeOut io.Writer

	// globals are the global names known from earlier successful compiles
	// and from the host. declared collects the current compile's top-level
	// declarations, merged into globals only on success.
	globals  map[string]struct{}
	declared []string
}

// NewCompiler creates a compiler that allocates into heap
func NewCompiler(heap *Heap) *Compiler {
	return &Compiler{heap: heap, globals: make(map[string]struct{})}
}

// DeclareGlobal tells the compiler a global exists that no compiled code
// declared, such as a native
func (c *Compiler) DeclareGlobal(name string) {
	c.globals[name] = struct{}{}
}

// isKnownGlobal reports whether name was declared as a global before the
// current token
func (c *Compiler) isKnownGlobal(name string) bool {
	if _, ok := c.globals[name]; ok {
		return true
	}
	for _, d := range c.declared {
		if d == name {
			return true
		}
	}
	return false
}

// SetPrintCode enables disassembly of compiled functions to w
func (c *Compiler) SetPrintCode(w io.Writer) {
	c.codeOut = w
}

// Compile compiles a whole program into the top-level script function.
// On failure it returns every diagnostic found and no function.
func (c *Compiler) Compile(source string) (FunctionRef, error) {
	if len(c.states) != 0 {
		panic(errorx.IllegalState.New("compiler is not reentrant"))
	}

	c.parser = parser.New(source)
	c.declared = c.declared[:0]
	c.heap.AddRoot(c)
	defer func() {
		c.heap.RemoveRoot(c)
		c.states = c.states[:0]
	}()

	c.beginFunction(TYPE_SCRIPT)
	c.parser.Advance()
	for !c.parser.Match(token.EOF) {
		c.declaration()
	}
	fn, _ := c.endFunction()

	if err := c.parser.Errors(); err != nil {
		return FunctionRef{}, err
	}
	for _, name := range c.declared {
		c.globals[name] = struct{}{}
	}
	return fn, nil
}

// MarkRoots keeps every function under construction alive
func (c *Compiler) MarkRoots(h *Heap) {
	for _, st := range c.states {
		h.MarkHandle(st.function.Handle)
	}
}

// beginFunction pushes a fresh function state. For named functions the
// name is the previous token.
func (c *Compiler) beginFunction(funcType FunctionType) {
	fn := c.heap.NewFunction()
	st := &funcState{
		function: fn,
		funcType: funcType,
		locals:   make([]Local, 0, 8),
	}
	// Slot 0 holds the callee itself
	st.locals = append(st.locals, Local{Name: token.Synthetic(""), Depth: 0})
	c.states = append(c.states, st)

	if funcType != TYPE_SCRIPT {
		c.heap.Function(fn).Name = c.heap.Intern(c.parser.Previous.Lexeme)
	}
}

// endFunction finishes the innermost function and pops its state
func (c *Compiler) endFunction() (FunctionRef, []Upvalue) {
	c.emitReturn()
	st := c.current()

	if c.codeOut != nil && !c.parser.HadError() {
		fmt.Fprint(c.codeOut, DisassembleFunction(c.heap, st.function))
	}

	c.states = c.states[:len(c.states)-1]
	return st.function, st.upvalues
}

func (c *Compiler) current() *funcState {
	return c.states[len(c.states)-1]
}

func (c *Compiler) currentFunction() *ObjFunction {
	return c.heap.Function(c.current().function)
}

func (c *Compiler) currentChunk() *Chunk {
	return c.currentFunction().Chunk
}

// emit helpers

func (c *Compiler) emitByte(b byte) {
	c.currentChunk().Write(b, c.parser.Previous.Line)
}

func (c *Compiler) emitOp(op Opcode) {
	c.emitByte(byte(op))
}

func (c *Compiler) emitOpByte(op Opcode, operand byte) {
	c.emitOp(op)
	c.emitByte(operand)
}

func (c *Compiler) emitReturn() {
	c.emitOp(OP_NIL)
	c.emitOp(OP_RETURN)
}

func (c *Compiler) makeConstant(value Value) byte {
	idx := c.currentChunk().AddConstant(value)
	if idx >= config.MaxConstants {
		c.parser.Error("Too many constants in one chunk.")
		return 0
	}
	return byte(idx)
}

func (c *Compiler) emitConstant(value Value) {
	c.emitOpByte(OP_CONSTANT, c.makeConstant(value))
}

// identifierConstant stores a global's name in the constant pool
func (c *Compiler) identifierConstant(name token.Token) byte {
	return c.makeConstant(StringVal(c.heap.Intern(name.Lexeme)))
}
