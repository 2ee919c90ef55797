package vm

import (
	"hash/fnv"

	"github.com/joomcode/errorx"
)

// ObjectType identifies the concrete heap object behind a handle
type ObjectType uint8

const (
	ObjTypeString ObjectType = iota
	ObjTypeFunction
	ObjTypeClosure
	ObjTypeUpvalue
	ObjTypeNative
)

// Object is anything the heap owns. trace marks the handles it refers to.
type Object interface {
	Type() ObjectType
	trace(h *Heap)
}

// ObjString is immutable interned text
type ObjString struct {
	Chars string
	Hash  uint32
}

func (s *ObjString) Type() ObjectType { return ObjTypeString }
func (s *ObjString) trace(*Heap)      {}

func hashString(s string) uint32 {
	h := fnv.New32a()
	h.Write([]byte(s))
	return h.Sum32()
}

// ObjFunction is a compiled function prototype. Immutable once its
// compilation finishes.
type ObjFunction struct {
	Arity        int
	UpvalueCount int
	Chunk        *Chunk
	Name         StringRef // zero for the top-level script
}

func (f *ObjFunction) Type() ObjectType { return ObjTypeFunction }

func (f *ObjFunction) trace(h *Heap) {
	if !f.Name.IsZero() {
		h.MarkHandle(f.Name.Handle)
	}
	for _, c := range f.Chunk.Constants {
		h.MarkValue(c)
	}
}

// ObjClosure pairs a function with the upvalues it captured
type ObjClosure struct {
	Function FunctionRef
	Upvalues []UpvalueRef
}

func (c *ObjClosure) Type() ObjectType { return ObjTypeClosure }

func (c *ObjClosure) trace(h *Heap) {
	h.MarkHandle(c.Function.Handle)
	for _, uv := range c.Upvalues {
		// Slots are filled in after the closure is rooted.
		if !uv.IsZero() {
			h.MarkHandle(uv.Handle)
		}
	}
}

type upvalueState uint8

const (
	upvalueOpen upvalueState = iota
	upvalueClosed
)

// ObjUpvalue is a capture cell. While open it aliases a live operand stack
// slot; once closed it owns a copy of the value. Closing happens once.
type ObjUpvalue struct {
	state  upvalueState
	slot   int
	closed Value
}

func newOpenUpvalue(slot int) *ObjUpvalue {
	return &ObjUpvalue{state: upvalueOpen, slot: slot}
}

func (u *ObjUpvalue) Type() ObjectType { return ObjTypeUpvalue }

func (u *ObjUpvalue) trace(h *Heap) {
	if u.state == upvalueClosed {
		h.MarkValue(u.closed)
	}
}

func (u *ObjUpvalue) IsOpen() bool { return u.state == upvalueOpen }

// Slot returns the stack slot of an open upvalue
func (u *ObjUpvalue) Slot() int {
	if u.state != upvalueOpen {
		panic(errorx.IllegalState.New("slot of a closed upvalue"))
	}
	return u.slot
}

// Get reads through the cell; stack is consulted only while open
func (u *ObjUpvalue) Get(stack []Value) Value {
	if u.state == upvalueOpen {
		return stack[u.slot]
	}
	return u.closed
}

func (u *ObjUpvalue) Set(stack []Value, v Value) {
	if u.state == upvalueOpen {
		stack[u.slot] = v
		return
	}
	u.closed = v
}

// Close detaches the cell from the stack, taking v as its value
func (u *ObjUpvalue) Close(v Value) {
	if u.state != upvalueOpen {
		panic(errorx.IllegalState.New("upvalue closed twice"))
	}
	u.state = upvalueClosed
	u.closed = v
	u.slot = -1
}

// NativeFn is a host function callable from guest code.
// An error aborts execution as a runtime error.
type NativeFn func(args []Value) (Value, error)

// ObjNative wraps a host function
type ObjNative struct {
	Name  string
	Arity int
	Fn    NativeFn
}

func (n *ObjNative) Type() ObjectType { return ObjTypeNative }
func (n *ObjNative) trace(*Heap)      {}
