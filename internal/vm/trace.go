package vm

import (
	"fmt"
	"strings"
)

// traceInstruction prints the operand stack and the instruction about to
// execute
func (vm *VM) traceInstruction() {
	var sb strings.Builder
	sb.WriteString("          ")
	for _, v := range vm.stack[:vm.sp] {
		sb.WriteString("[ ")
		sb.WriteString(vm.heap.Inspect(v))
		sb.WriteString(" ]")
	}
	sb.WriteString("\n")
	disassembleInstruction(&sb, vm.heap, vm.frame.chunk, vm.frame.ip)
	fmt.Fprint(vm.traceOut, sb.String())
}
