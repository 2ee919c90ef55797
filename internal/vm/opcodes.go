// Package vm implements the bytecode compiler, heap and virtual machine for glox
package vm

// Opcode represents a single VM instruction
type Opcode byte

const (
	// Constants and literals
	OP_CONSTANT Opcode = iota // Push constant from pool: [idx]
	OP_NIL
	OP_TRUE
	OP_FALSE

	OP_POP // Discard top of stack

	// Variables
	OP_GET_LOCAL     // [slot]
	OP_SET_LOCAL     // [slot]
	OP_GET_GLOBAL    // [name idx]
	OP_DEFINE_GLOBAL // [name idx]
	OP_SET_GLOBAL    // [name idx]
	OP_GET_UPVALUE   // [upvalue idx]
	OP_SET_UPVALUE   // [upvalue idx]

	// Comparison
	OP_EQUAL
	OP_GREATER
	OP_LESS

	// Arithmetic
	OP_ADD
	OP_SUBTRACT
	OP_MULTIPLY
	OP_DIVIDE
	OP_NOT
	OP_NEGATE

	OP_PRINT

	// Control flow. Offsets are 16-bit little-endian.
	OP_JUMP          // [lo hi] forward
	OP_JUMP_IF_FALSE // [lo hi] forward, peeks condition
	OP_JUMP_IF_TRUE  // [lo hi] forward, peeks condition
	OP_LOOP          // [lo hi] backward

	// Functions
	OP_CALL          // [argc]
	OP_CLOSURE       // [fn idx] then (isLocal, index) per upvalue
	OP_CLOSE_UPVALUE // Close upvalue at top of stack and pop it
	OP_RETURN
)

// OpcodeNames maps opcodes to their names for debugging
var OpcodeNames = map[Opcode]string{
	OP_CONSTANT: "CONSTANT",
	OP_NIL:      "NIL",
	OP_TRUE:     "TRUE",
	OP_FALSE:    "FALSE",
	OP_POP:      "POP",

	OP_GET_LOCAL:     "GET_LOCAL",
	OP_SET_LOCAL:     "SET_LOCAL",
	OP_GET_GLOBAL:    "GET_GLOBAL",
	OP_DEFINE_GLOBAL: "DEFINE_GLOBAL",
	OP_SET_GLOBAL:    "SET_GLOBAL",
	OP_GET_UPVALUE:   "GET_UPVALUE",
	OP_SET_UPVALUE:   "SET_UPVALUE",

	OP_EQUAL:   "EQUAL",
	OP_GREATER: "GREATER",
	OP_LESS:    "LESS",

	OP_ADD:      "ADD",
	OP_SUBTRACT: "SUBTRACT",
	OP_MULTIPLY: "MULTIPLY",
	OP_DIVIDE:   "DIVIDE",
	OP_NOT:      "NOT",
	OP_NEGATE:   "NEGATE",

	OP_PRINT: "PRINT",

	OP_JUMP:          "JUMP",
	OP_JUMP_IF_FALSE: "JUMP_IF_FALSE",
	OP_JUMP_IF_TRUE:  "JUMP_IF_TRUE",
	OP_LOOP:          "LOOP",

	OP_CALL:          "CALL",
	OP_CLOSURE:       "CLOSURE",
	OP_CLOSE_UPVALUE: "CLOSE_UPVALUE",
	OP_RETURN:        "RETURN",
}

// String returns the opcode name
func (op Opcode) String() string {
	if name, ok := OpcodeNames[op]; ok {
		return name
	}
	return "UNKNOWN"
}
