package mir

type (
	FuncID  int32
	BlockID int32
	ValueID int32
)

const (
	NoFuncID  FuncID  = -1
	NoBlockID BlockID = -1
	NoValueID ValueID = -1
)

func (id BlockID) IsValid() bool { return id >= 0 }

func (id ValueID) IsValid() bool { return id >= 0 }

// Type is the machine-level type of a MIR value.
type Type uint8

const (
	TypeVoid Type = iota
	TypeInt       // i64
	TypeFloat     // f64
	TypeBool      // i1
	TypeQubit     // single qubit handle
	TypeQreg      // qubit register handle
	TypeMem       // memory region of cells
	TypeString
)

func (t Type) String() string {
	switch t {
	case TypeVoid:
		return "void"
	case TypeInt:
		return "i64"
	case TypeFloat:
		return "f64"
	case TypeBool:
		return "i1"
	case TypeQubit:
		return "qubit"
	case TypeQreg:
		return "qreg"
	case TypeMem:
		return "mem"
	case TypeString:
		return "str"
	}
	return "?"
}

// IsNumeric reports whether arithmetic applies to t.
func (t Type) IsNumeric() bool { return t == TypeInt || t == TypeFloat }

// ValueRef names a value across functions.
type ValueRef struct {
	Func  FuncID
	Value ValueID
}
