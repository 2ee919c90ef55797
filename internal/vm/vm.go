package vm

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/funvibe/glox/internal/config"
	"github.com/funvibe/glox/internal/diagnostics"
	"github.com/sirupsen/logrus"
	"golang.org/x/exp/slices"
)

var errStackOverflow = errors.New("stack overflow")

// InterpretResult is the outcome of one top-level execution
type InterpretResult int

const (
	InterpretOK InterpretResult = iota
	InterpretCompileError
	InterpretRuntimeError
)

func (r InterpretResult) String() string {
	switch r {
	case InterpretOK:
		return "ok"
	case InterpretCompileError:
		return "compile error"
	case InterpretRuntimeError:
		return "runtime error"
	default:
		return "unknown"
	}
}

// CallFrame represents a single ongoing function call
type CallFrame struct {
	closureRef ClosureRef  // Rooted by the frame
	closure    *ObjClosure // The closure being executed
	function   *ObjFunction
	chunk      *Chunk // Shortcut to function.Chunk
	ip         int    // Instruction pointer within this frame's chunk
	base       int    // Stack slot of the callee; locals follow it
}

// openUpvalue is an entry of the VM's open upvalue list
type openUpvalue struct {
	slot int
	ref  UpvalueRef
}

// NativeDef describes a host function installed as a global
type NativeDef struct {
	Name  string
	Arity int
	Fn    NativeFn
}

// Options configure a VM
type Options struct {
	Stdout io.Writer // print output, defaults to os.Stdout
	Stderr io.Writer // diagnostics, defaults to os.Stderr
	Logger logrus.FieldLogger

	GC GCPolicy

	// PrintCode disassembles each function after it compiles cleanly.
	PrintCode bool
	// TraceExecution prints the stack and each instruction before it runs.
	TraceExecution bool
	// TraceOut receives disassembly and trace output, defaults to Stdout.
	TraceOut io.Writer

	// Natives are installed after the built-in ones.
	Natives []NativeDef
}

// OptionsFromConfig converts a configuration into VM options
func OptionsFromConfig(cfg *config.Config, log logrus.FieldLogger) Options {
	return Options{
		Logger:         log,
		GC:             PolicyFromConfig(cfg.GC),
		PrintCode:      cfg.Debug.PrintCode,
		TraceExecution: cfg.Debug.TraceExecution,
	}
}

// VM is the virtual machine that executes bytecode
type VM struct {
	heap     *Heap
	compiler *Compiler

	stack []Value
	sp    int // Stack pointer (points to next free slot)

	frames     [config.FramesMax]CallFrame
	frameCount int

	// Current frame (for convenience)
	frame *CallFrame

	globals map[StringRef]Value

	// Open upvalues sorted by stack slot, lowest first
	openUpvalues []openUpvalue

	out      io.Writer
	errOut   io.Writer
	traceOut io.Writer // nil unless tracing execution

	log logrus.FieldLogger
}

// New creates a new VM instance with the built-in natives installed
func New(opts Options) *VM {
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}
	if opts.Logger == nil {
		opts.Logger = config.DiscardLogger()
	}
	if opts.TraceOut == nil {
		opts.TraceOut = opts.Stdout
	}

	vm := &VM{
		heap:    NewHeap(opts.GC, opts.Logger),
		stack:   make([]Value, config.StackMax),
		globals: make(map[StringRef]Value),
		out:     opts.Stdout,
		errOut:  opts.Stderr,
		log:     opts.Logger,
	}
	vm.heap.AddRoot(vm)

	vm.compiler = NewCompiler(vm.heap)
	if opts.PrintCode {
		vm.compiler.SetPrintCode(opts.TraceOut)
	}
	if opts.TraceExecution {
		vm.traceOut = opts.TraceOut
	}

	vm.RegisterBuiltins()
	for _, n := range opts.Natives {
		vm.DefineNative(n.Name, n.Arity, n.Fn)
	}
	return vm
}

// Heap returns the heap the VM allocates into
func (vm *VM) Heap() *Heap {
	return vm.heap
}

// SetOutput sets the writer print statements go to
func (vm *VM) SetOutput(w io.Writer) {
	vm.out = w
}

// Interpret compiles and runs source as one top-level execution.
// Diagnostics are also written to the VM's error writer. Globals persist
// between calls.
func (vm *VM) Interpret(source string) (InterpretResult, error) {
	fn, err := vm.compiler.Compile(source)
	if err != nil {
		diagnostics.Report(vm.errOut, err)
		vm.log.WithField("result", InterpretCompileError).Debug("interpret")
		return InterpretCompileError, err
	}

	// Root the function while its closure is allocated
	vm.push(FunctionVal(fn))
	closure := vm.heap.NewClosure(fn, 0)
	vm.pop()
	vm.push(ClosureVal(closure))
	err = vm.call(closure, 0)
	if err == nil {
		err = vm.run()
	}
	if err != nil {
		diagnostics.Report(vm.errOut, err)
		vm.log.WithField("result", InterpretRuntimeError).Debug("interpret")
		return InterpretRuntimeError, err
	}
	return InterpretOK, nil
}

// MarkRoots marks everything the VM can still reach
func (vm *VM) MarkRoots(h *Heap) {
	for _, v := range vm.stack[:vm.sp] {
		h.MarkValue(v)
	}
	for i := 0; i < vm.frameCount; i++ {
		h.MarkHandle(vm.frames[i].closureRef.Handle)
	}
	for _, uv := range vm.openUpvalues {
		h.MarkHandle(uv.ref.Handle)
	}
	for name, v := range vm.globals {
		h.MarkHandle(name.Handle)
		h.MarkValue(v)
	}
}

// Stack operations

func (vm *VM) push(v Value) {
	if vm.sp >= len(vm.stack) {
		panic(errStackOverflow)
	}
	vm.stack[vm.sp] = v
	vm.sp++
}

func (vm *VM) pop() Value {
	vm.sp--
	return vm.stack[vm.sp]
}

func (vm *VM) peek(distance int) Value {
	return vm.stack[vm.sp-1-distance]
}

// Read helpers

func (vm *VM) readByte() byte {
	b := vm.frame.chunk.Code[vm.frame.ip]
	vm.frame.ip++
	return b
}

func (vm *VM) readShort() int {
	v := vm.frame.chunk.ReadShort(vm.frame.ip)
	vm.frame.ip += 2
	return int(v)
}

func (vm *VM) readConstant() Value {
	return vm.frame.chunk.Constants[vm.readByte()]
}

// runtimeError builds the error with a trace of every active frame,
// innermost first, then resets the execution state
func (vm *VM) runtimeError(format string, args ...interface{}) error {
	err := &diagnostics.RuntimeError{Message: fmt.Sprintf(format, args...)}

	for i := vm.frameCount - 1; i >= 0; i-- {
		frame := &vm.frames[i]
		f := diagnostics.Frame{Line: frame.chunk.Line(max(frame.ip-1, 0))}
		if !frame.function.Name.IsZero() {
			f.Function = vm.heap.String(frame.function.Name).Chars
		}
		err.Trace = append(err.Trace, f)
	}

	vm.resetStack()
	return err
}

// resetStack drops every frame and stack slot. Upvalues still open are
// closed first so closures that escaped into globals stay valid.
func (vm *VM) resetStack() {
	vm.closeUpvalues(0)
	vm.sp = 0
	vm.frameCount = 0
	vm.frame = nil
}

// captureUpvalue creates or reuses the open upvalue for a stack slot
func (vm *VM) captureUpvalue(slot int) UpvalueRef {
	i, found := slices.BinarySearchFunc(vm.openUpvalues, slot, func(uv openUpvalue, s int) int {
		return uv.slot - s
	})
	if found {
		return vm.openUpvalues[i].ref
	}

	created := vm.heap.NewUpvalue(slot)
	vm.openUpvalues = slices.Insert(vm.openUpvalues, i, openUpvalue{slot: slot, ref: created})
	return created
}

// closeUpvalues closes every open upvalue at or above lastSlot
func (vm *VM) closeUpvalues(lastSlot int) {
	for n := len(vm.openUpvalues); n > 0 && vm.openUpvalues[n-1].slot >= lastSlot; n-- {
		uv := vm.openUpvalues[n-1]
		vm.heap.Upvalue(uv.ref).Close(vm.stack[uv.slot])
		vm.openUpvalues = vm.openUpvalues[:n-1]
	}
}
