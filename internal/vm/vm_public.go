package vm

import (
	"golang.org/x/exp/slices"
)

// StackDepth returns the number of values on the operand stack
func (vm *VM) StackDepth() int {
	return vm.sp
}

// FrameDepth returns the number of active call frames
func (vm *VM) FrameDepth() int {
	return vm.frameCount
}

// Global returns the value of a global variable, if defined
func (vm *VM) Global(name string) (Value, bool) {
	ref, ok := vm.heap.strings[name]
	if !ok {
		return Value{}, false
	}
	v, ok := vm.globals[ref]
	return v, ok
}

// SetGlobal defines or overwrites a global. Heap values must come from
// this VM's heap.
func (vm *VM) SetGlobal(name string, value Value) {
	vm.push(value)
	vm.globals[vm.heap.Intern(name)] = value
	vm.pop()
	vm.compiler.DeclareGlobal(name)
}

// GlobalNames returns the names of all defined globals, sorted
func (vm *VM) GlobalNames() []string {
	names := make([]string, 0, len(vm.globals))
	for ref := range vm.globals {
		names = append(names, vm.heap.String(ref).Chars)
	}
	slices.Sort(names)
	return names
}

// Inspect renders a value the way print shows it
func (vm *VM) Inspect(v Value) string {
	return vm.heap.Inspect(v)
}
