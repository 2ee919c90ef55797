package vm

import "github.com/funvibe/glox/internal/config"

// callValue calls the callee sitting below argCount arguments
func (vm *VM) callValue(callee Value, argCount int) error {
	switch callee.Type {
	case ValClosure:
		return vm.call(callee.AsClosure(), argCount)
	case ValNative:
		return vm.callNative(callee.AsNative(), argCount)
	default:
		return vm.runtimeError("Can only call functions.")
	}
}

// call pushes a frame for closure. Guest calls never recurse on the host
// stack: run simply continues in the new frame.
func (vm *VM) call(ref ClosureRef, argCount int) error {
	closure := vm.heap.Closure(ref)
	fn := vm.heap.Function(closure.Function)

	if argCount != fn.Arity {
		return vm.runtimeError("Expected %d arguments but got %d.", fn.Arity, argCount)
	}
	if vm.frameCount == config.FramesMax {
		return vm.runtimeError("Stack overflow.")
	}

	frame := &vm.frames[vm.frameCount]
	vm.frameCount++
	frame.closureRef = ref
	frame.closure = closure
	frame.function = fn
	frame.chunk = fn.Chunk
	frame.ip = 0
	frame.base = vm.sp - argCount - 1

	vm.frame = frame
	return nil
}

// callNative runs a host function against the argument slice and replaces
// the callee and arguments with its result
func (vm *VM) callNative(ref NativeRef, argCount int) error {
	native := vm.heap.Native(ref)
	if argCount != native.Arity {
		return vm.runtimeError("Expected %d arguments but got %d.", native.Arity, argCount)
	}

	result, err := native.Fn(vm.stack[vm.sp-argCount : vm.sp])
	if err != nil {
		return vm.runtimeError("%s", err.Error())
	}

	vm.sp -= argCount + 1
	vm.push(result)
	return nil
}

// makeClosure reads the capture descriptors following OP_CLOSURE. The
// closure is pushed before capturing so it is rooted while upvalues are
// allocated.
func (vm *VM) makeClosure(fnRef FunctionRef) {
	fn := vm.heap.Function(fnRef)
	ref := vm.heap.NewClosure(fnRef, fn.UpvalueCount)
	vm.push(ClosureVal(ref))

	closure := vm.heap.Closure(ref)
	for i := range closure.Upvalues {
		isLocal := vm.readByte()
		index := int(vm.readByte())
		if isLocal == 1 {
			closure.Upvalues[i] = vm.captureUpvalue(vm.frame.base + index)
		} else {
			closure.Upvalues[i] = vm.frame.closure.Upvalues[index]
		}
	}
}
