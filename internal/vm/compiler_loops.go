package vm

import (
	"github.com/funvibe/glox/internal/config"
	"github.com/funvibe/glox/internal/token"
)

// whileStatement compiles:
//
//	start: <cond> JUMP_IF_FALSE exit; POP; <body>; LOOP start
//	exit:  POP
func (c *Compiler) whileStatement() {
	loopStart := c.currentChunk().Len()

	c.parser.Consume(token.LEFT_PAREN, "Expect '(' after 'while'.")
	c.expression()
	c.parser.Consume(token.RIGHT_PAREN, "Expect ')' after condition.")

	exitJump := c.emitJump(OP_JUMP_IF_FALSE)
	c.emitOp(OP_POP)
	c.statement()
	c.emitLoop(loopStart)

	c.patchJump(exitJump)
	c.emitOp(OP_POP)
}

// forStatement desugars into a while loop inside its own scope. The
// increment is compiled before the body but runs after it: the body jumps
// back to the increment, which loops back to the condition.
func (c *Compiler) forStatement() {
	c.beginScope()

	c.parser.Consume(token.LEFT_PAREN, "Expect '(' after 'for'.")
	switch {
	case c.parser.Match(token.SEMICOLON):
		// No initializer.
	case c.parser.Match(token.VAR):
		c.varDeclaration()
	default:
		c.expressionStatement()
	}

	loopStart := c.currentChunk().Len()

	exitJump := -1
	if !c.parser.Match(token.SEMICOLON) {
		c.expression()
		c.parser.Consume(token.SEMICOLON, "Expect ';' after loop condition.")

		exitJump = c.emitJump(OP_JUMP_IF_FALSE)
		c.emitOp(OP_POP)
	}

	if !c.parser.Match(token.RIGHT_PAREN) {
		bodyJump := c.emitJump(OP_JUMP)

		incrementStart := c.currentChunk().Len()
		c.expression()
		c.emitOp(OP_POP)
		c.parser.Consume(token.RIGHT_PAREN, "Expect ')' after for clauses.")

		c.emitLoop(loopStart)
		loopStart = incrementStart
		c.patchJump(bodyJump)
	}

	c.statement()
	c.emitLoop(loopStart)

	if exitJump != -1 {
		c.patchJump(exitJump)
		c.emitOp(OP_POP)
	}

	c.endScope()
}

// emitLoop emits a backward jump to loopStart. The offset is known now,
// so there is nothing to patch.
func (c *Compiler) emitLoop(loopStart int) {
	c.emitOp(OP_LOOP)

	offset := c.currentChunk().Len() - loopStart + 2
	if offset > config.MaxJump {
		c.parser.Error("Loop body too large.")
		offset = 0
	}

	c.emitByte(0)
	c.emitByte(0)
	chunk := c.currentChunk()
	chunk.PutShort(chunk.Len()-2, uint16(offset))
}
