package vm

import (
	"time"

	"github.com/funvibe/glox/internal/config"
)

// now is replaced in tests
var now = time.Now

// RegisterBuiltins installs the built-in natives as globals
func (vm *VM) RegisterBuiltins() {
	vm.DefineNative(config.ClockFuncName, 0, clockNative)
}

// DefineNative installs a host function as a global. Name and function
// stay on the stack while they are allocated.
func (vm *VM) DefineNative(name string, arity int, fn NativeFn) {
	vm.push(StringVal(vm.heap.Intern(name)))
	vm.push(NativeVal(vm.heap.NewNative(name, arity, fn)))
	vm.globals[vm.peek(1).AsString()] = vm.peek(0)
	vm.pop()
	vm.pop()
	vm.compiler.DeclareGlobal(name)
}

// clockNative returns whole seconds since the Unix epoch
func clockNative([]Value) (Value, error) {
	return NumberVal(float64(now().Unix())), nil
}
