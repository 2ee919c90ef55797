package vm

import (
	"fmt"
	"strings"

	"github.com/funvibe/glox/internal/config"
)

// DisassembleFunction disassembles a compiled function's chunk
func DisassembleFunction(h *Heap, ref FunctionRef) string {
	fn := h.Function(ref)
	name := "<" + config.ScriptName + ">"
	if !fn.Name.IsZero() {
		name = h.String(fn.Name).Chars
	}
	return Disassemble(h, fn.Chunk, name)
}

// Disassemble returns a human-readable representation of the bytecode
func Disassemble(h *Heap, chunk *Chunk, name string) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("== %s ==\n", name))

	offset := 0
	for offset < len(chunk.Code) {
		offset = disassembleInstruction(&sb, h, chunk, offset)
	}

	return sb.String()
}

// DisassembleInstruction renders the single instruction at offset
func DisassembleInstruction(h *Heap, chunk *Chunk, offset int) string {
	var sb strings.Builder
	disassembleInstruction(&sb, h, chunk, offset)
	return sb.String()
}

// disassembleInstruction writes one instruction and returns the next offset
func disassembleInstruction(sb *strings.Builder, h *Heap, chunk *Chunk, offset int) int {
	sb.WriteString(fmt.Sprintf("%04d ", offset))

	// Print line number
	if offset > 0 && chunk.Line(offset) == chunk.Line(offset-1) {
		sb.WriteString("   | ")
	} else {
		sb.WriteString(fmt.Sprintf("%4d ", chunk.Line(offset)))
	}

	op := Opcode(chunk.Code[offset])

	switch op {
	case OP_CONSTANT, OP_GET_GLOBAL, OP_DEFINE_GLOBAL, OP_SET_GLOBAL:
		return constantInstruction(sb, h, op.String(), chunk, offset)

	case OP_NIL, OP_TRUE, OP_FALSE, OP_POP,
		OP_EQUAL, OP_GREATER, OP_LESS,
		OP_ADD, OP_SUBTRACT, OP_MULTIPLY, OP_DIVIDE, OP_NOT, OP_NEGATE,
		OP_PRINT, OP_CLOSE_UPVALUE, OP_RETURN:
		return simpleInstruction(sb, op.String(), offset)

	case OP_GET_LOCAL, OP_SET_LOCAL, OP_GET_UPVALUE, OP_SET_UPVALUE, OP_CALL:
		return byteInstruction(sb, op.String(), chunk, offset)

	case OP_JUMP, OP_JUMP_IF_FALSE, OP_JUMP_IF_TRUE:
		return jumpInstruction(sb, op.String(), 1, chunk, offset)
	case OP_LOOP:
		return jumpInstruction(sb, op.String(), -1, chunk, offset)

	case OP_CLOSURE:
		return closureInstruction(sb, h, op.String(), chunk, offset)

	default:
		sb.WriteString(fmt.Sprintf("Unknown opcode %d\n", op))
		return offset + 1
	}
}

func simpleInstruction(sb *strings.Builder, name string, offset int) int {
	sb.WriteString(fmt.Sprintf("%s\n", name))
	return offset + 1
}

func constantInstruction(sb *strings.Builder, h *Heap, name string, chunk *Chunk, offset int) int {
	idx := int(chunk.Code[offset+1])

	if idx < len(chunk.Constants) {
		sb.WriteString(fmt.Sprintf("%-16s %4d '%s'\n", name, idx, h.Inspect(chunk.Constants[idx])))
	} else {
		sb.WriteString(fmt.Sprintf("%-16s %4d (invalid)\n", name, idx))
	}

	return offset + 2
}

func byteInstruction(sb *strings.Builder, name string, chunk *Chunk, offset int) int {
	slot := chunk.Code[offset+1]
	sb.WriteString(fmt.Sprintf("%-16s %4d\n", name, slot))
	return offset + 2
}

func jumpInstruction(sb *strings.Builder, name string, sign int, chunk *Chunk, offset int) int {
	jump := int(chunk.ReadShort(offset + 1))
	target := offset + 3 + sign*jump
	sb.WriteString(fmt.Sprintf("%-16s %4d -> %d\n", name, offset, target))
	return offset + 3
}

func closureInstruction(sb *strings.Builder, h *Heap, name string, chunk *Chunk, offset int) int {
	idx := int(chunk.Code[offset+1])
	offset += 2

	if idx >= len(chunk.Constants) || chunk.Constants[idx].Type != ValFunction {
		sb.WriteString(fmt.Sprintf("%-16s %4d (not a function)\n", name, idx))
		return offset
	}

	value := chunk.Constants[idx]
	sb.WriteString(fmt.Sprintf("%-16s %4d %s\n", name, idx, h.Inspect(value)))

	// Print upvalue info
	fn := h.Function(value.AsFunction())
	for i := 0; i < fn.UpvalueCount; i++ {
		isLocal := chunk.Code[offset]
		index := chunk.Code[offset+1]

		localStr := "upvalue"
		if isLocal == 1 {
			localStr = "local"
		}
		sb.WriteString(fmt.Sprintf("%04d      |                     %s %d\n", offset, localStr, index))
		offset += 2
	}

	return offset
}
