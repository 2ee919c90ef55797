package vm

import (
	"math"
	"strconv"

	"github.com/joomcode/errorx"
)

// ValueType identifies the type of value stored in the Value struct
type ValueType uint8

const (
	ValNil ValueType = iota
	ValBool
	ValNumber
	ValString
	ValFunction
	ValNative
	ValClosure
)

var valueTypeNames = [...]string{
	ValNil:      "nil",
	ValBool:     "bool",
	ValNumber:   "number",
	ValString:   "string",
	ValFunction: "function",
	ValNative:   "native",
	ValClosure:  "closure",
}

func (t ValueType) String() string {
	if int(t) < len(valueTypeNames) {
		return valueTypeNames[t]
	}
	return "unknown"
}

// Value is a fixed-size tagged union.
// Scalars live in Data; heap variants carry a handle in Ref.
type Value struct {
	Type ValueType
	Data uint64 // float64 bits or bool (0/1)
	Ref  Handle
}

// Constructors

func NilVal() Value {
	return Value{Type: ValNil}
}

func BoolVal(v bool) Value {
	var data uint64
	if v {
		data = 1
	}
	return Value{Type: ValBool, Data: data}
}

func NumberVal(v float64) Value {
	return Value{Type: ValNumber, Data: math.Float64bits(v)}
}

func StringVal(r StringRef) Value     { return Value{Type: ValString, Ref: r.Handle} }
func FunctionVal(r FunctionRef) Value { return Value{Type: ValFunction, Ref: r.Handle} }
func NativeVal(r NativeRef) Value     { return Value{Type: ValNative, Ref: r.Handle} }
func ClosureVal(r ClosureRef) Value   { return Value{Type: ValClosure, Ref: r.Handle} }

// Type checking helpers

func (v Value) IsNil() bool    { return v.Type == ValNil }
func (v Value) IsBool() bool   { return v.Type == ValBool }
func (v Value) IsNumber() bool { return v.Type == ValNumber }
func (v Value) IsString() bool { return v.Type == ValString }

// IsObj reports whether the value refers to a heap object
func (v Value) IsObj() bool { return v.Type >= ValString }

// Accessors. Asking for the wrong variant is a bug in the VM, not a
// guest error, so it panics.

func (v Value) AsBool() bool {
	v.expect(ValBool)
	return v.Data == 1
}

func (v Value) AsNumber() float64 {
	v.expect(ValNumber)
	return math.Float64frombits(v.Data)
}

func (v Value) AsString() StringRef {
	v.expect(ValString)
	return StringRef{v.Ref}
}

func (v Value) AsFunction() FunctionRef {
	v.expect(ValFunction)
	return FunctionRef{v.Ref}
}

func (v Value) AsNative() NativeRef {
	v.expect(ValNative)
	return NativeRef{v.Ref}
}

func (v Value) AsClosure() ClosureRef {
	v.expect(ValClosure)
	return ClosureRef{v.Ref}
}

func (v Value) expect(t ValueType) {
	if v.Type != t {
		panic(errorx.IllegalState.New("value is %s, not %s", v.Type, t))
	}
}

// IsFalsey reports whether v is nil or false. Everything else is truthy,
// including 0 and NaN.
func (v Value) IsFalsey() bool {
	return v.Type == ValNil || (v.Type == ValBool && v.Data == 0)
}

// Equals compares values of the same variant; different variants are never
// equal. Numbers use IEEE equality and heap values use handle identity.
func (v Value) Equals(other Value) bool {
	if v.Type != other.Type {
		return false
	}
	switch v.Type {
	case ValNil:
		return true
	case ValBool:
		return v.Data == other.Data
	case ValNumber:
		return math.Float64frombits(v.Data) == math.Float64frombits(other.Data)
	default:
		return v.Ref == other.Ref
	}
}

// formatNumber renders a number the way a C++ stream does by default:
// six significant digits, shortest of fixed or exponent form.
func formatNumber(n float64) string {
	switch {
	case math.IsNaN(n):
		return "nan"
	case math.IsInf(n, 1):
		return "inf"
	case math.IsInf(n, -1):
		return "-inf"
	}
	return strconv.FormatFloat(n, 'g', 6, 64)
}
