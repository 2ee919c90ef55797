package vm

import (
	"strconv"

	"github.com/funvibe/glox/internal/config"
	"github.com/funvibe/glox/internal/token"
)

// Precedence levels, lowest to highest
type Precedence int

const (
	PREC_NONE       Precedence = iota
	PREC_ASSIGNMENT            // =
	PREC_OR                    // or
	PREC_AND                   // and
	PREC_EQUALITY              // == !=
	PREC_COMPARISON            // < > <= >=
	PREC_TERM                  // + -
	PREC_FACTOR                // * /
	PREC_UNARY                 // ! -
	PREC_CALL                  // ()
	PREC_PRIMARY
)

type parseFn func(c *Compiler, canAssign bool)

// ParseRule is one row of the Pratt table
type ParseRule struct {
	Prefix     parseFn
	Infix      parseFn
	Precedence Precedence
}

// rules is filled in init: the parse functions refer back to the table.
var rules [token.Count]ParseRule

func init() {
	rules = [token.Count]ParseRule{
		token.LEFT_PAREN:    {(*Compiler).grouping, (*Compiler).call, PREC_CALL},
		token.MINUS:         {(*Compiler).unary, (*Compiler).binary, PREC_TERM},
		token.PLUS:          {nil, (*Compiler).binary, PREC_TERM},
		token.SLASH:         {nil, (*Compiler).binary, PREC_FACTOR},
		token.STAR:          {nil, (*Compiler).binary, PREC_FACTOR},
		token.BANG:          {(*Compiler).unary, nil, PREC_NONE},
		token.BANG_EQUAL:    {nil, (*Compiler).binary, PREC_EQUALITY},
		token.EQUAL_EQUAL:   {nil, (*Compiler).binary, PREC_EQUALITY},
		token.GREATER:       {nil, (*Compiler).binary, PREC_COMPARISON},
		token.GREATER_EQUAL: {nil, (*Compiler).binary, PREC_COMPARISON},
		token.LESS:          {nil, (*Compiler).binary, PREC_COMPARISON},
		token.LESS_EQUAL:    {nil, (*Compiler).binary, PREC_COMPARISON},
		token.IDENTIFIER:    {(*Compiler).variable, nil, PREC_NONE},
		token.STRING:        {(*Compiler).string, nil, PREC_NONE},
		token.NUMBER:        {(*Compiler).number, nil, PREC_NONE},
		token.AND:           {nil, (*Compiler).and, PREC_AND},
		token.OR:            {nil, (*Compiler).or, PREC_OR},
		token.FALSE:         {(*Compiler).literal, nil, PREC_NONE},
		token.NIL:           {(*Compiler).literal, nil, PREC_NONE},
		token.TRUE:          {(*Compiler).literal, nil, PREC_NONE},
	}
}

func getRule(t token.TokenType) *ParseRule {
	return &rules[t]
}

func (c *Compiler) expression() {
	c.parsePrecedence(PREC_ASSIGNMENT)
}

// parsePrecedence parses an expression whose operators bind at least as
// tightly as prec
func (c *Compiler) parsePrecedence(prec Precedence) {
	c.parser.Advance()
	prefix := getRule(c.parser.Previous.Type).Prefix
	if prefix == nil {
		c.parser.Error("Expect expression.")
		return
	}

	canAssign := prec <= PREC_ASSIGNMENT
	prefix(c, canAssign)

	for prec <= getRule(c.parser.Current.Type).Precedence {
		c.parser.Advance()
		infix := getRule(c.parser.Previous.Type).Infix
		infix(c, canAssign)
	}

	if canAssign && c.parser.Match(token.EQUAL) {
		c.parser.Error("Invalid assignment target.")
	}
}

func (c *Compiler) number(bool) {
	n, err := strconv.ParseFloat(c.parser.Previous.Lexeme, 64)
	if err != nil {
		c.parser.Error("Invalid number literal.")
		return
	}
	c.emitConstant(NumberVal(n))
}

func (c *Compiler) string(bool) {
	lexeme := c.parser.Previous.Lexeme
	c.emitConstant(StringVal(c.heap.Intern(lexeme[1 : len(lexeme)-1])))
}

func (c *Compiler) literal(bool) {
	switch c.parser.Previous.Type {
	case token.FALSE:
		c.emitOp(OP_FALSE)
	case token.NIL:
		c.emitOp(OP_NIL)
	case token.TRUE:
		c.emitOp(OP_TRUE)
	}
}

func (c *Compiler) grouping(bool) {
	c.expression()
	c.parser.Consume(token.RIGHT_PAREN, "Expect ')' after expression.")
}

func (c *Compiler) unary(bool) {
	operator := c.parser.Previous.Type

	c.parsePrecedence(PREC_UNARY)

	switch operator {
	case token.BANG:
		c.emitOp(OP_NOT)
	case token.MINUS:
		c.emitOp(OP_NEGATE)
	}
}

// binary compiles the right operand one level tighter, so operators of
// equal precedence associate to the left
func (c *Compiler) binary(bool) {
	operator := c.parser.Previous.Type
	rule := getRule(operator)
	c.parsePrecedence(rule.Precedence + 1)

	switch operator {
	case token.BANG_EQUAL:
		c.emitOp(OP_EQUAL)
		c.emitOp(OP_NOT)
	case token.EQUAL_EQUAL:
		c.emitOp(OP_EQUAL)
	case token.GREATER:
		c.emitOp(OP_GREATER)
	case token.GREATER_EQUAL:
		c.emitOp(OP_LESS)
		c.emitOp(OP_NOT)
	case token.LESS:
		c.emitOp(OP_LESS)
	case token.LESS_EQUAL:
		c.emitOp(OP_GREATER)
		c.emitOp(OP_NOT)
	case token.PLUS:
		c.emitOp(OP_ADD)
	case token.MINUS:
		c.emitOp(OP_SUBTRACT)
	case token.STAR:
		c.emitOp(OP_MULTIPLY)
	case token.SLASH:
		c.emitOp(OP_DIVIDE)
	}
}

// and leaves the left operand as the result when it is falsey
func (c *Compiler) and(bool) {
	endJump := c.emitJump(OP_JUMP_IF_FALSE)

	c.emitOp(OP_POP)
	c.parsePrecedence(PREC_AND)

	c.patchJump(endJump)
}

// or leaves the left operand as the result when it is truthy
func (c *Compiler) or(bool) {
	endJump := c.emitJump(OP_JUMP_IF_TRUE)

	c.emitOp(OP_POP)
	c.parsePrecedence(PREC_OR)

	c.patchJump(endJump)
}

func (c *Compiler) variable(canAssign bool) {
	c.namedVariable(c.parser.Previous, canAssign)
}

// namedVariable emits a read or, if an assignment follows, a write of
// name: a local slot, an upvalue, or a global by name
func (c *Compiler) namedVariable(name token.Token, canAssign bool) {
	var getOp, setOp Opcode
	level := len(c.states) - 1

	arg, inInitializer := c.resolveLocal(c.current(), name)
	switch {
	case arg != -1:
		getOp, setOp = OP_GET_LOCAL, OP_SET_LOCAL
	default:
		arg = c.resolveUpvalue(level, name)
		if arg != -1 {
			getOp, setOp = OP_GET_UPVALUE, OP_SET_UPVALUE
			break
		}
		// A local's initializer may name an outer global, but not the
		// local itself.
		if inInitializer && !c.isKnownGlobal(name.Lexeme) {
			c.parser.Error("Can't read local variable in its own initializer.")
		}
		arg = int(c.identifierConstant(name))
		getOp, setOp = OP_GET_GLOBAL, OP_SET_GLOBAL
	}

	if canAssign && c.parser.Match(token.EQUAL) {
		c.expression()
		c.emitOpByte(setOp, byte(arg))
	} else {
		c.emitOpByte(getOp, byte(arg))
	}
}

func (c *Compiler) call(bool) {
	argCount := c.argumentList()
	c.emitOpByte(OP_CALL, argCount)
}

func (c *Compiler) argumentList() byte {
	argCount := 0
	if !c.parser.Check(token.RIGHT_PAREN) {
		for {
			c.expression()
			if argCount == config.MaxArgs {
				c.parser.Error("Can't have more than 255 arguments.")
			}
			if argCount < config.MaxArgs {
				argCount++
			}
			if !c.parser.Match(token.COMMA) {
				break
			}
		}
	}
	c.parser.Consume(token.RIGHT_PAREN, "Expect ')' after arguments.")
	return byte(argCount)
}
