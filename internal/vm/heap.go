package vm

import (
	"fmt"

	"github.com/funvibe/glox/internal/config"
	"github.com/joomcode/errorx"
	"github.com/sirupsen/logrus"
	"golang.org/x/exp/slices"
)

// Handle addresses a heap slot. A handle outlives its object only as a
// stale value: the slot's generation moves on when the object is freed.
// The zero Handle never refers to anything.
type Handle struct {
	index uint32
	gen   uint32
}

func (h Handle) IsZero() bool { return h.gen == 0 }

func (h Handle) String() string {
	return fmt.Sprintf("#%d.%d", h.index, h.gen)
}

// Typed handles

type StringRef struct{ Handle }
type FunctionRef struct{ Handle }
type ClosureRef struct{ Handle }
type UpvalueRef struct{ Handle }
type NativeRef struct{ Handle }

// RootSource reports the handles it keeps alive
type RootSource interface {
	MarkRoots(h *Heap)
}

// GCPolicy decides when the heap collects
type GCPolicy struct {
	// Stress collects before every allocation.
	Stress bool
	// Log traces every allocation and free.
	Log bool
	// InitialThreshold is the live count that triggers the first collection.
	InitialThreshold int
	// GrowthFactor scales the survivors into the next threshold.
	GrowthFactor int
}

// PolicyFromConfig converts the gc section of the configuration
func PolicyFromConfig(cfg config.GCConfig) GCPolicy {
	return GCPolicy{
		Stress:           cfg.Stress,
		Log:              cfg.Log,
		InitialThreshold: cfg.InitialThreshold,
		GrowthFactor:     cfg.GrowthFactor,
	}
}

type slot struct {
	obj    Object
	gen    uint32
	marked bool
}

// Heap owns every object. Collection is stop-the-world mark and sweep.
type Heap struct {
	slots []slot
	free  []uint32
	live  int

	// strings interns text to its unique ObjString. Weak: collection drops
	// entries nothing else reaches.
	strings map[string]StringRef

	roots []RootSource
	gray  []Handle

	policy GCPolicy
	nextGC int

	collections int
	freed       int

	log logrus.FieldLogger
}

// NewHeap creates an empty heap
func NewHeap(policy GCPolicy, log logrus.FieldLogger) *Heap {
	if policy.InitialThreshold < 1 {
		policy.InitialThreshold = config.DefaultInitialGC
	}
	if policy.GrowthFactor < 1 {
		policy.GrowthFactor = config.DefaultGrowthFactor
	}
	if log == nil {
		log = config.DiscardLogger()
	}
	return &Heap{
		strings: make(map[string]StringRef),
		policy:  policy,
		nextGC:  policy.InitialThreshold,
		log:     log,
	}
}

// AddRoot registers a root source for every following collection
func (h *Heap) AddRoot(r RootSource) {
	h.roots = append(h.roots, r)
}

func (h *Heap) RemoveRoot(r RootSource) {
	if i := slices.Index(h.roots, r); i >= 0 {
		h.roots = slices.Delete(h.roots, i, i+1)
	}
}

// allocate stores obj, collecting first when the policy says so. obj
// itself is not reachable during that collection, so anything it refers
// to must already be rooted.
func (h *Heap) allocate(obj Object) Handle {
	if h.policy.Stress || h.live >= h.nextGC {
		h.Collect()
	}

	var idx uint32
	if n := len(h.free); n > 0 {
		idx = h.free[n-1]
		h.free = h.free[:n-1]
	} else {
		h.slots = append(h.slots, slot{gen: 1})
		idx = uint32(len(h.slots) - 1)
	}
	s := &h.slots[idx]
	s.obj = obj
	s.marked = false
	h.live++

	handle := Handle{index: idx, gen: s.gen}
	if h.policy.Log {
		h.log.WithFields(logrus.Fields{"handle": handle, "type": obj.Type()}).Trace("allocate")
	}
	return handle
}

// get dereferences a handle. Stale or foreign handles are VM bugs.
func (h *Heap) get(handle Handle) Object {
	if int(handle.index) >= len(h.slots) {
		panic(errorx.IllegalArgument.New("handle %s out of range", handle))
	}
	s := &h.slots[handle.index]
	if s.obj == nil || s.gen != handle.gen {
		panic(errorx.IllegalState.New("stale handle %s (slot generation %d)", handle, s.gen))
	}
	return s.obj
}

// Valid reports whether handle still refers to a live object
func (h *Heap) Valid(handle Handle) bool {
	if handle.IsZero() || int(handle.index) >= len(h.slots) {
		return false
	}
	s := &h.slots[handle.index]
	return s.obj != nil && s.gen == handle.gen
}

// Typed dereference

func (h *Heap) String(r StringRef) *ObjString       { return h.get(r.Handle).(*ObjString) }
func (h *Heap) Function(r FunctionRef) *ObjFunction { return h.get(r.Handle).(*ObjFunction) }
func (h *Heap) Closure(r ClosureRef) *ObjClosure    { return h.get(r.Handle).(*ObjClosure) }
func (h *Heap) Upvalue(r UpvalueRef) *ObjUpvalue    { return h.get(r.Handle).(*ObjUpvalue) }
func (h *Heap) Native(r NativeRef) *ObjNative       { return h.get(r.Handle).(*ObjNative) }

// Typed allocation

// Intern returns the unique string with the given text
func (h *Heap) Intern(text string) StringRef {
	if ref, ok := h.strings[text]; ok {
		return ref
	}
	ref := StringRef{h.allocate(&ObjString{Chars: text, Hash: hashString(text)})}
	h.strings[text] = ref
	return ref
}

// NewFunction allocates an empty, unnamed function prototype
func (h *Heap) NewFunction() FunctionRef {
	return FunctionRef{h.allocate(&ObjFunction{Chunk: NewChunk()})}
}

// NewClosure allocates a closure with upvalueCount empty capture slots.
// fn must be rooted by the caller.
func (h *Heap) NewClosure(fn FunctionRef, upvalueCount int) ClosureRef {
	return ClosureRef{h.allocate(&ObjClosure{
		Function: fn,
		Upvalues: make([]UpvalueRef, upvalueCount),
	})}
}

func (h *Heap) NewUpvalue(stackSlot int) UpvalueRef {
	return UpvalueRef{h.allocate(newOpenUpvalue(stackSlot))}
}

func (h *Heap) NewNative(name string, arity int, fn NativeFn) NativeRef {
	return NativeRef{h.allocate(&ObjNative{Name: name, Arity: arity, Fn: fn})}
}

// Marking

// MarkValue marks the object v refers to, if any
func (h *Heap) MarkValue(v Value) {
	if v.IsObj() {
		h.MarkHandle(v.Ref)
	}
}

// MarkHandle greys the object behind handle
func (h *Heap) MarkHandle(handle Handle) {
	if handle.IsZero() {
		return
	}
	h.get(handle)
	s := &h.slots[handle.index]
	if s.marked {
		return
	}
	s.marked = true
	h.gray = append(h.gray, handle)
}

// Collect runs a full collection
func (h *Heap) Collect() {
	before := h.live
	h.log.WithFields(logrus.Fields{"live": before, "next": h.nextGC}).Debug("gc begin")

	for _, r := range h.roots {
		r.MarkRoots(h)
	}
	h.traceReferences()
	h.removeWhiteStrings()
	h.sweep()

	h.nextGC = max(h.policy.InitialThreshold, h.live*h.policy.GrowthFactor)
	h.collections++
	h.freed += before - h.live

	h.log.WithFields(logrus.Fields{
		"collected": before - h.live,
		"live":      h.live,
		"next":      h.nextGC,
	}).Debug("gc end")
}

func (h *Heap) traceReferences() {
	for len(h.gray) > 0 {
		handle := h.gray[len(h.gray)-1]
		h.gray = h.gray[:len(h.gray)-1]
		h.slots[handle.index].obj.trace(h)
	}
}

func (h *Heap) removeWhiteStrings() {
	for text, ref := range h.strings {
		if !h.slots[ref.index].marked {
			delete(h.strings, text)
		}
	}
}

func (h *Heap) sweep() {
	for i := range h.slots {
		s := &h.slots[i]
		if s.obj == nil {
			continue
		}
		if s.marked {
			s.marked = false
			continue
		}
		if h.policy.Log {
			h.log.WithFields(logrus.Fields{
				"handle": Handle{index: uint32(i), gen: s.gen},
				"type":   s.obj.Type(),
			}).Trace("free")
		}
		s.obj = nil
		s.gen++
		h.free = append(h.free, uint32(i))
		h.live--
	}
}

// Stats

// Live returns the number of live objects
func (h *Heap) Live() int { return h.live }

// Collections returns how many collections have run
func (h *Heap) Collections() int { return h.collections }

// Freed returns how many objects collections have reclaimed
func (h *Heap) Freed() int { return h.freed }

// Interned returns how many strings the intern table holds
func (h *Heap) Interned() int { return len(h.strings) }

// Printing

// Inspect renders v the way print shows it
func (h *Heap) Inspect(v Value) string {
	switch v.Type {
	case ValNil:
		return "nil"
	case ValBool:
		if v.AsBool() {
			return "true"
		}
		return "false"
	case ValNumber:
		return formatNumber(v.AsNumber())
	case ValString:
		return h.String(v.AsString()).Chars
	case ValFunction:
		return h.functionName(v.AsFunction())
	case ValClosure:
		return h.functionName(h.Closure(v.AsClosure()).Function)
	case ValNative:
		return "<native fn>"
	default:
		return "<?>"
	}
}

func (h *Heap) functionName(r FunctionRef) string {
	fn := h.Function(r)
	if fn.Name.IsZero() {
		return "<" + config.ScriptName + ">"
	}
	return "<fn " + h.String(fn.Name).Chars + ">"
}

func (t ObjectType) String() string {
	switch t {
	case ObjTypeString:
		return "string"
	case ObjTypeFunction:
		return "function"
	case ObjTypeClosure:
		return "closure"
	case ObjTypeUpvalue:
		return "upvalue"
	case ObjTypeNative:
		return "native"
	default:
		return "unknown"
	}
}
