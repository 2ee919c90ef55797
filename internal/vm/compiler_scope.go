package vm

import (
	"github.com/funvibe/glox/internal/config"
	"github.com/funvibe/glox/internal/token"
	"golang.org/x/exp/slices"
)

// beginScope starts a new scope
func (c *Compiler) beginScope() {
	c.current().scopeDepth++
}

// endScope ends the current scope and emits cleanup code. Captured locals
// are closed rather than popped.
func (c *Compiler) endScope() {
	st := c.current()
	st.scopeDepth--

	for len(st.locals) > 0 && st.locals[len(st.locals)-1].Depth > st.scopeDepth {
		if st.locals[len(st.locals)-1].IsCaptured {
			c.emitOp(OP_CLOSE_UPVALUE)
		} else {
			c.emitOp(OP_POP)
		}
		st.locals = st.locals[:len(st.locals)-1]
	}
}

// parseVariable consumes a variable name. Globals are referenced by a name
// constant; locals need none and return 0.
func (c *Compiler) parseVariable(errorMessage string) byte {
	c.parser.Consume(token.IDENTIFIER, errorMessage)

	c.declareVariable()
	if c.current().scopeDepth > 0 {
		return 0
	}

	c.declared = append(c.declared, c.parser.Previous.Lexeme)
	return c.identifierConstant(c.parser.Previous)
}

// declareVariable records a new local in the current scope
func (c *Compiler) declareVariable() {
	st := c.current()
	if st.scopeDepth == 0 {
		return
	}

	name := c.parser.Previous
	for i := len(st.locals) - 1; i >= 0; i-- {
		local := &st.locals[i]
		if local.Depth != uninitialized && local.Depth < st.scopeDepth {
			break
		}
		if local.Name.Lexeme == name.Lexeme {
			c.parser.Error("Already a variable with this name in this scope.")
		}
	}

	c.addLocal(name)
}

// addLocal adds a local variable to the current scope, uninitialized
func (c *Compiler) addLocal(name token.Token) {
	st := c.current()
	if len(st.locals) == config.MaxLocals {
		c.parser.Error("Too many local variables in function.")
		return
	}
	st.locals = append(st.locals, Local{Name: name, Depth: uninitialized})
}

func (c *Compiler) markInitialized() {
	st := c.current()
	if st.scopeDepth == 0 {
		return
	}
	st.locals[len(st.locals)-1].Depth = st.scopeDepth
}

func (c *Compiler) defineVariable(global byte) {
	if c.current().scopeDepth > 0 {
		c.markInitialized()
		return
	}
	c.emitOpByte(OP_DEFINE_GLOBAL, global)
}

// resolveLocal looks up an initialized local by name, innermost first.
// A local still in its own initializer is skipped so the name resolves
// outside it; inInitializer reports that one was skipped.
func (c *Compiler) resolveLocal(st *funcState, name token.Token) (slot int, inInitializer bool) {
	for i := len(st.locals) - 1; i >= 0; i-- {
		local := &st.locals[i]
		if local.Name.Lexeme != name.Lexeme {
			continue
		}
		if local.Depth == uninitialized {
			inInitializer = true
			continue
		}
		return i, inInitializer
	}
	return -1, inInitializer
}

// resolveUpvalue looks for a variable in the functions enclosing
// states[level], capturing it through every level in between
func (c *Compiler) resolveUpvalue(level int, name token.Token) int {
	if level == 0 {
		return -1
	}
	enclosing := c.states[level-1]

	if local, _ := c.resolveLocal(enclosing, name); local != -1 {
		enclosing.locals[local].IsCaptured = true
		return c.addUpvalue(c.states[level], uint8(local), true)
	}

	if upvalue := c.resolveUpvalue(level-1, name); upvalue != -1 {
		return c.addUpvalue(c.states[level], uint8(upvalue), false)
	}

	return -1
}

// addUpvalue adds an upvalue to the function's upvalue list, reusing an
// existing entry for the same variable
func (c *Compiler) addUpvalue(st *funcState, index uint8, isLocal bool) int {
	uv := Upvalue{Index: index, IsLocal: isLocal}
	if i := slices.Index(st.upvalues, uv); i >= 0 {
		return i
	}

	if len(st.upvalues) == config.MaxUpvalues {
		c.parser.Error("Too many closure variables in function.")
		return 0
	}

	st.upvalues = append(st.upvalues, uv)
	c.heap.Function(st.function).UpvalueCount = len(st.upvalues)
	return len(st.upvalues) - 1
}

// emitJump emits a forward jump with a placeholder offset and returns the
// operand's position for patchJump
func (c *Compiler) emitJump(op Opcode) int {
	c.emitOp(op)
	c.emitByte(0xff)
	c.emitByte(0xff)
	return c.currentChunk().Len() - 2
}

// patchJump points the jump operand at offset to the current position
func (c *Compiler) patchJump(offset int) {
	chunk := c.currentChunk()
	jump := chunk.Len() - offset - 2

	if jump > config.MaxJump {
		c.parser.Error("Too much code to jump over.")
		return
	}

	chunk.PutShort(offset, uint16(jump))
}
