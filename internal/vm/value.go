package vm

import (
	"fmt"
	"strconv"
)

// ValueKind tags the payload of a Value.
type ValueKind uint8

const (
	VKInvalid ValueKind = iota
	VKInt
	VKFloat
	VKBool
	VKString
	VKMem
	VKQreg
	VKQubit
)

func (k ValueKind) String() string {
	switch k {
	case VKInt:
		return "int"
	case VKFloat:
		return "float"
	case VKBool:
		return "bool"
	case VKString:
		return "string"
	case VKMem:
		return "mem"
	case VKQreg:
		return "qreg"
	case VKQubit:
		return "qubit"
	}
	return "invalid"
}

// Handle identifies a qubit register owned by the Runtime.
type Handle uint64

// Qubit addresses one qubit of a register.
type Qubit struct {
	Reg   Handle
	Index int64
}

func (q Qubit) String() string { return fmt.Sprintf("r%d[%d]", q.Reg, q.Index) }

// Memory is a region of cells created by an alloc instruction.
type Memory struct {
	Cells []Value
}

// Value is a runtime value. Kind selects the meaningful fields.
type Value struct {
	Kind  ValueKind
	Int   int64
	Float float64
	Bool  bool
	Str   string
	Mem   *Memory
	Reg   Handle
	Size  int64 // register size for VKQreg
	Qubit Qubit
}

func IntValue(v int64) Value     { return Value{Kind: VKInt, Int: v} }
func FloatValue(v float64) Value { return Value{Kind: VKFloat, Float: v} }
func BoolValue(v bool) Value     { return Value{Kind: VKBool, Bool: v} }
func StringValue(v string) Value { return Value{Kind: VKString, Str: v} }

// RegValue wraps a register handle of size qubits.
func RegValue(h Handle, size int64) Value { return Value{Kind: VKQreg, Reg: h, Size: size} }

func (v Value) String() string {
	switch v.Kind {
	case VKInt:
		return strconv.FormatInt(v.Int, 10)
	case VKFloat:
		return strconv.FormatFloat(v.Float, 'g', -1, 64)
	case VKBool:
		return strconv.FormatBool(v.Bool)
	case VKString:
		return v.Str
	case VKMem:
		if v.Mem == nil {
			return "mem(nil)"
		}
		return fmt.Sprintf("mem(%d)", len(v.Mem.Cells))
	case VKQreg:
		return fmt.Sprintf("qreg(r%d, %d)", v.Reg, v.Size)
	case VKQubit:
		return v.Qubit.String()
	}
	return "<invalid>"
}

// asFloat widens numeric values for gate parameters.
func (v Value) asFloat() (float64, bool) {
	switch v.Kind {
	case VKFloat:
		return v.Float, true
	case VKInt:
		return float64(v.Int), true
	}
	return 0, false
}
