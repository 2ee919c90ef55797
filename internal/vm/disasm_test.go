package vm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDisassemble(t *testing.T) {
	h, fn := compile(t, "print 1 + 2;\nprint -3;")

	expected := "== <script> ==\n" +
		"0000    1 CONSTANT            0 '1'\n" +
		"0002    | CONSTANT            1 '2'\n" +
		"0004    | ADD\n" +
		"0005    | PRINT\n" +
		"0006    2 CONSTANT            2 '3'\n" +
		"0008    | NEGATE\n" +
		"0009    | PRINT\n" +
		"0010    | NIL\n" +
		"0011    | RETURN\n"
	assert.Equal(t, expected, DisassembleFunction(h, fn))
}

func TestDisassemble_Jumps(t *testing.T) {
	h, fn := compile(t, "true and false;\nwhile (false) nil;")

	listing := DisassembleFunction(h, fn)
	assert.Contains(t, listing, "0001    | JUMP_IF_FALSE       1 -> 6\n")
	assert.Contains(t, listing, "0008    | JUMP_IF_FALSE       8 -> 17\n")
	assert.Contains(t, listing, "0014    | LOOP               14 -> 7\n")
}

func TestDisassemble_Closure(t *testing.T) {
	h, script := compile(t, "fun f() { var x; var y; fun g() { x; y; } }")
	f := findFunction(t, h, script, "f")

	listing := DisassembleFunction(h, f)
	assert.Contains(t, listing, "== f ==\n")
	assert.Contains(t, listing, "0002    | CLOSURE             0 <fn g>\n")
	assert.Contains(t, listing, "0004      |                     local 1\n")
	assert.Contains(t, listing, "0006      |                     local 2\n")
	assert.Contains(t, listing, "0008    | NIL\n")
}

func TestDisassembleInstruction(t *testing.T) {
	h, fn := compile(t, "{ var a = 1; a = 2; }")
	chunk := h.Function(fn).Chunk

	assert.Equal(t, "0000    1 CONSTANT            0 '1'\n", DisassembleInstruction(h, chunk, 0))
	assert.Equal(t, "0004    | SET_LOCAL           1\n", DisassembleInstruction(h, chunk, 4))

	chunk.Write(0xfe, 1)
	assert.Equal(t, "0010    | Unknown opcode 254\n", DisassembleInstruction(h, chunk, 10))
}
