package vm

// binaryOp executes a numeric binary operator
func (vm *VM) binaryOp(op Opcode) error {
	if !vm.peek(0).IsNumber() || !vm.peek(1).IsNumber() {
		return vm.runtimeError("Operands must be numbers.")
	}
	b := vm.pop().AsNumber()
	a := vm.pop().AsNumber()

	switch op {
	case OP_GREATER:
		vm.push(BoolVal(a > b))
	case OP_LESS:
		vm.push(BoolVal(a < b))
	case OP_SUBTRACT:
		vm.push(NumberVal(a - b))
	case OP_MULTIPLY:
		vm.push(NumberVal(a * b))
	case OP_DIVIDE:
		// IEEE semantics: x/0 is ±Inf or NaN
		vm.push(NumberVal(a / b))
	}
	return nil
}

// add adds two numbers or concatenates two strings
func (vm *VM) add() error {
	a, b := vm.peek(1), vm.peek(0)
	switch {
	case a.IsString() && b.IsString():
		vm.concatenate()
	case a.IsNumber() && b.IsNumber():
		vm.pop()
		vm.pop()
		vm.push(NumberVal(a.AsNumber() + b.AsNumber()))
	default:
		return vm.runtimeError("Operands must be two numbers or two strings.")
	}
	return nil
}

// concatenate interns the result before popping the operands, which keeps
// them rooted if interning collects
func (vm *VM) concatenate() {
	a := vm.heap.String(vm.peek(1).AsString()).Chars
	b := vm.heap.String(vm.peek(0).AsString()).Chars

	result := vm.heap.Intern(a + b)
	vm.pop()
	vm.pop()
	vm.push(StringVal(result))
}
