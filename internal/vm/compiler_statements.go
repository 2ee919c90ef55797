package vm

import (
	"github.com/funvibe/glox/internal/config"
	"github.com/funvibe/glox/internal/token"
)

func (c *Compiler) declaration() {
	switch {
	case c.parser.Match(token.FUN):
		c.funDeclaration()
	case c.parser.Match(token.VAR):
		c.varDeclaration()
	default:
		c.statement()
	}

	if c.parser.PanicMode() {
		c.parser.Synchronize()
	}
}

func (c *Compiler) statement() {
	switch {
	case c.parser.Match(token.PRINT):
		c.printStatement()
	case c.parser.Match(token.IF):
		c.ifStatement()
	case c.parser.Match(token.RETURN):
		c.returnStatement()
	case c.parser.Match(token.WHILE):
		c.whileStatement()
	case c.parser.Match(token.FOR):
		c.forStatement()
	case c.parser.Match(token.LEFT_BRACE):
		c.beginScope()
		c.block()
		c.endScope()
	default:
		c.expressionStatement()
	}
}

func (c *Compiler) block() {
	for !c.parser.Check(token.RIGHT_BRACE) && !c.parser.Check(token.EOF) {
		c.declaration()
	}
	c.parser.Consume(token.RIGHT_BRACE, "Expect '}' after block.")
}

func (c *Compiler) varDeclaration() {
	global := c.parseVariable("Expect variable name.")

	if c.parser.Match(token.EQUAL) {
		c.expression()
	} else {
		c.emitOp(OP_NIL)
	}
	c.parser.Consume(token.SEMICOLON, "Expect ';' after variable declaration.")

	c.defineVariable(global)
}

// funDeclaration marks the name initialized before compiling the body so
// a local function can refer to itself recursively
func (c *Compiler) funDeclaration() {
	global := c.parseVariable("Expect function name.")
	c.markInitialized()
	c.function(TYPE_FUNCTION)
	c.defineVariable(global)
}

// function compiles a parameter list and body, then emits the closure
// along with one (isLocal, index) pair per captured variable
func (c *Compiler) function(funcType FunctionType) {
	c.beginFunction(funcType)
	c.beginScope()

	c.parser.Consume(token.LEFT_PAREN, "Expect '(' after function name.")
	if !c.parser.Check(token.RIGHT_PAREN) {
		for {
			fn := c.currentFunction()
			fn.Arity++
			if fn.Arity > config.MaxParams {
				c.parser.ErrorAtCurrent("Can't have more than 255 parameters.")
			}
			constant := c.parseVariable("Expect parameter name.")
			c.defineVariable(constant)
			if !c.parser.Match(token.COMMA) {
				break
			}
		}
	}
	c.parser.Consume(token.RIGHT_PAREN, "Expect ')' after parameters.")
	c.parser.Consume(token.LEFT_BRACE, "Expect '{' before function body.")
	c.block()

	fn, upvalues := c.endFunction()
	c.emitOpByte(OP_CLOSURE, c.makeConstant(FunctionVal(fn)))

	for _, uv := range upvalues {
		var isLocal byte
		if uv.IsLocal {
			isLocal = 1
		}
		c.emitByte(isLocal)
		c.emitByte(uv.Index)
	}
}

func (c *Compiler) expressionStatement() {
	c.expression()
	c.parser.Consume(token.SEMICOLON, "Expect ';' after expression.")
	c.emitOp(OP_POP)
}

func (c *Compiler) printStatement() {
	c.expression()
	c.parser.Consume(token.SEMICOLON, "Expect ';' after value.")
	c.emitOp(OP_PRINT)
}

func (c *Compiler) ifStatement() {
	c.parser.Consume(token.LEFT_PAREN, "Expect '(' after 'if'.")
	c.expression()
	c.parser.Consume(token.RIGHT_PAREN, "Expect ')' after condition.")

	thenJump := c.emitJump(OP_JUMP_IF_FALSE)
	c.emitOp(OP_POP)
	c.statement()

	elseJump := c.emitJump(OP_JUMP)

	c.patchJump(thenJump)
	c.emitOp(OP_POP)

	if c.parser.Match(token.ELSE) {
		c.statement()
	}
	c.patchJump(elseJump)
}

func (c *Compiler) returnStatement() {
	if c.current().funcType == TYPE_SCRIPT {
		c.parser.Error("Can't return from top-level code.")
	}

	if c.parser.Match(token.SEMICOLON) {
		c.emitReturn()
		return
	}

	c.expression()
	c.parser.Consume(token.SEMICOLON, "Expect ';' after return value.")
	c.emitOp(OP_RETURN)
}
