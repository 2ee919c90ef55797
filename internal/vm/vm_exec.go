package vm

import (
	"fmt"

	"github.com/joomcode/errorx"
)

// run executes until the outermost frame returns or a runtime error aborts
func (vm *VM) run() (err error) {
	defer func() {
		if r := recover(); r != nil {
			if r == errStackOverflow {
				err = vm.runtimeError("Stack overflow.")
				return
			}
			panic(r)
		}
	}()

	for {
		if vm.traceOut != nil {
			vm.traceInstruction()
		}

		op := Opcode(vm.readByte())
		switch op {
		case OP_CONSTANT:
			vm.push(vm.readConstant())
		case OP_NIL:
			vm.push(NilVal())
		case OP_TRUE:
			vm.push(BoolVal(true))
		case OP_FALSE:
			vm.push(BoolVal(false))
		case OP_POP:
			vm.pop()

		case OP_GET_LOCAL:
			slot := int(vm.readByte())
			vm.push(vm.stack[vm.frame.base+slot])
		case OP_SET_LOCAL:
			slot := int(vm.readByte())
			vm.stack[vm.frame.base+slot] = vm.peek(0)

		case OP_GET_GLOBAL:
			name := vm.readConstant().AsString()
			value, ok := vm.globals[name]
			if !ok {
				return vm.runtimeError("Undefined variable '%s'.", vm.heap.String(name).Chars)
			}
			vm.push(value)
		case OP_DEFINE_GLOBAL:
			name := vm.readConstant().AsString()
			vm.globals[name] = vm.peek(0)
			vm.pop()
		case OP_SET_GLOBAL:
			name := vm.readConstant().AsString()
			if _, ok := vm.globals[name]; !ok {
				return vm.runtimeError("Undefined variable '%s'.", vm.heap.String(name).Chars)
			}
			vm.globals[name] = vm.peek(0)

		case OP_GET_UPVALUE:
			slot := vm.readByte()
			vm.push(vm.heap.Upvalue(vm.frame.closure.Upvalues[slot]).Get(vm.stack))
		case OP_SET_UPVALUE:
			slot := vm.readByte()
			vm.heap.Upvalue(vm.frame.closure.Upvalues[slot]).Set(vm.stack, vm.peek(0))

		case OP_EQUAL:
			b := vm.pop()
			a := vm.pop()
			vm.push(BoolVal(a.Equals(b)))
		case OP_GREATER, OP_LESS, OP_SUBTRACT, OP_MULTIPLY, OP_DIVIDE:
			if err := vm.binaryOp(op); err != nil {
				return err
			}
		case OP_ADD:
			if err := vm.add(); err != nil {
				return err
			}
		case OP_NOT:
			vm.push(BoolVal(vm.pop().IsFalsey()))
		case OP_NEGATE:
			if !vm.peek(0).IsNumber() {
				return vm.runtimeError("Operand must be a number.")
			}
			vm.push(NumberVal(-vm.pop().AsNumber()))

		case OP_PRINT:
			fmt.Fprintln(vm.out, vm.heap.Inspect(vm.pop()))

		case OP_JUMP:
			offset := vm.readShort()
			vm.frame.ip += offset
		case OP_JUMP_IF_FALSE:
			offset := vm.readShort()
			if vm.peek(0).IsFalsey() {
				vm.frame.ip += offset
			}
		case OP_JUMP_IF_TRUE:
			offset := vm.readShort()
			if !vm.peek(0).IsFalsey() {
				vm.frame.ip += offset
			}
		case OP_LOOP:
			offset := vm.readShort()
			vm.frame.ip -= offset

		case OP_CALL:
			argCount := int(vm.readByte())
			if err := vm.callValue(vm.peek(argCount), argCount); err != nil {
				return err
			}
		case OP_CLOSURE:
			vm.makeClosure(vm.readConstant().AsFunction())
		case OP_CLOSE_UPVALUE:
			vm.closeUpvalues(vm.sp - 1)
			vm.pop()

		case OP_RETURN:
			result := vm.pop()
			vm.closeUpvalues(vm.frame.base)
			vm.frameCount--
			if vm.frameCount == 0 {
				vm.sp = 0
				vm.frame = nil
				return nil
			}

			vm.sp = vm.frame.base
			vm.push(result)
			vm.frame = &vm.frames[vm.frameCount-1]

		default:
			panic(errorx.IllegalState.New("unknown opcode %d at offset %d", op, vm.frame.ip-1))
		}
	}
}
