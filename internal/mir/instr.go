package mir

import "qlower/internal/source"

// InstrKind enumerates instruction kinds in MIR.
type InstrKind uint8

const (
	InstrConst InstrKind = iota
	InstrAlloc
	InstrLoad
	InstrStore
	InstrBinary
	InstrUnary
	InstrCompare
	InstrCast
	InstrCall
	InstrQAlloc
	InstrQDealloc
	InstrQExtract
	InstrGate
	InstrMeasure
	InstrReset
	InstrRuntime
	InstrPrint
)

var instrNames = [...]string{
	InstrConst:    "const",
	InstrAlloc:    "alloc",
	InstrLoad:     "load",
	InstrStore:    "store",
	InstrBinary:   "binary",
	InstrUnary:    "unary",
	InstrCompare:  "cmp",
	InstrCast:     "cast",
	InstrCall:     "call",
	InstrQAlloc:   "qalloc",
	InstrQDealloc: "qdealloc",
	InstrQExtract: "qextract",
	InstrGate:     "gate",
	InstrMeasure:  "measure",
	InstrReset:    "reset",
	InstrRuntime:  "runtime",
	InstrPrint:    "print",
}

func (k InstrKind) String() string {
	if int(k) < len(instrNames) {
		return instrNames[k]
	}
	return "?"
}

// Instr is a MIR instruction. Kind selects which payload field is
// meaningful. Type is the result type; TypeVoid means no result and Dst
// stays NoValueID.
type Instr struct {
	Kind InstrKind
	Type Type
	Dst  ValueID
	Span source.Span

	Const    ConstInstr
	Alloc    AllocInstr
	Load     LoadInstr
	Store    StoreInstr
	Binary   BinaryInstr
	Unary    UnaryInstr
	Compare  CompareInstr
	Cast     CastInstr
	Call     CallInstr
	QAlloc   QAllocInstr
	QDealloc QDeallocInstr
	QExtract QExtractInstr
	Gate     GateInstr
	Measure  MeasureInstr
	Reset    ResetInstr
	Runtime  RuntimeInstr
	Print    PrintInstr
}

type ConstInstr struct {
	Int   int64
	Float float64
	Bool  bool
	Str   string
}

// AllocInstr reserves Count cells of Elem.
type AllocInstr struct {
	Elem  Type
	Count int64
}

// LoadInstr reads Mem[Index]; Index NoValueID means cell 0.
type LoadInstr struct {
	Mem   ValueID
	Index ValueID
}

// StoreInstr writes Value into Mem[Index]; Index NoValueID means cell 0.
type StoreInstr struct {
	Mem   ValueID
	Index ValueID
	Value ValueID
}

type BinOp uint8

const (
	BinAdd BinOp = iota
	BinSub
	BinMul
	BinDiv
	BinRem
	BinAnd
	BinOr
)

func (op BinOp) String() string {
	switch op {
	case BinAdd:
		return "add"
	case BinSub:
		return "sub"
	case BinMul:
		return "mul"
	case BinDiv:
		return "div"
	case BinRem:
		return "rem"
	case BinAnd:
		return "and"
	case BinOr:
		return "or"
	}
	return "?"
}

type BinaryInstr struct {
	Op    BinOp
	Left  ValueID
	Right ValueID
}

type UnOp uint8

const (
	UnNeg UnOp = iota
	UnNot
)

func (op UnOp) String() string {
	if op == UnNot {
		return "not"
	}
	return "neg"
}

type UnaryInstr struct {
	Op      UnOp
	Operand ValueID
}

// Pred is a comparison predicate. Comparisons are signed for integers and
// ordered for floats.
type Pred uint8

const (
	PredEq Pred = iota
	PredNe
	PredLt
	PredLe
	PredGt
	PredGe
)

func (p Pred) String() string {
	switch p {
	case PredEq:
		return "eq"
	case PredNe:
		return "ne"
	case PredLt:
		return "slt"
	case PredLe:
		return "sle"
	case PredGt:
		return "sgt"
	case PredGe:
		return "sge"
	}
	return "?"
}

type CompareInstr struct {
	Pred  Pred
	Left  ValueID
	Right ValueID
}

// CastInstr converts Value to the instruction's result Type.
type CastInstr struct {
	Value ValueID
}

type CallInstr struct {
	Callee string
	Args   []ValueID
}

// QAllocInstr allocates a register of Size qubits.
type QAllocInstr struct {
	Size int64
	Name string
}

type QDeallocInstr struct {
	Reg ValueID
}

type QExtractInstr struct {
	Reg   ValueID
	Index ValueID
}

type GateInstr struct {
	Name   string
	Params []ValueID
	Qubits []ValueID
}

// MeasureInstr yields the measured bit as TypeInt (0 or 1).
type MeasureInstr struct {
	Qubit ValueID
}

type ResetInstr struct {
	Qubit ValueID
}

// RuntimeOp selects a runtime service call.
type RuntimeOp uint8

const (
	RuntimeInit RuntimeOp = iota
	RuntimeFinalize
	RuntimeSetQreg
)

func (op RuntimeOp) String() string {
	switch op {
	case RuntimeInit:
		return "init"
	case RuntimeFinalize:
		return "finalize"
	case RuntimeSetQreg:
		return "set_qreg"
	}
	return "?"
}

type RuntimeInstr struct {
	Op   RuntimeOp
	Args []ValueID
}

type PrintInstr struct {
	Args []ValueID
}

// Operands lists every value the instruction reads, in a fixed order.
func (ins *Instr) Operands() []ValueID {
	switch ins.Kind {
	case InstrLoad:
		return optional(ins.Load.Mem, ins.Load.Index)
	case InstrStore:
		return optional(ins.Store.Mem, ins.Store.Index, ins.Store.Value)
	case InstrBinary:
		return []ValueID{ins.Binary.Left, ins.Binary.Right}
	case InstrUnary:
		return []ValueID{ins.Unary.Operand}
	case InstrCompare:
		return []ValueID{ins.Compare.Left, ins.Compare.Right}
	case InstrCast:
		return []ValueID{ins.Cast.Value}
	case InstrCall:
		return ins.Call.Args
	case InstrQDealloc:
		return []ValueID{ins.QDealloc.Reg}
	case InstrQExtract:
		return []ValueID{ins.QExtract.Reg, ins.QExtract.Index}
	case InstrGate:
		out := make([]ValueID, 0, len(ins.Gate.Params)+len(ins.Gate.Qubits))
		out = append(out, ins.Gate.Params...)
		return append(out, ins.Gate.Qubits...)
	case InstrMeasure:
		return []ValueID{ins.Measure.Qubit}
	case InstrReset:
		return []ValueID{ins.Reset.Qubit}
	case InstrRuntime:
		return ins.Runtime.Args
	case InstrPrint:
		return ins.Print.Args
	}
	return nil
}

func optional(ids ...ValueID) []ValueID {
	out := ids[:0:0]
	for _, id := range ids {
		if id.IsValid() {
			out = append(out, id)
		}
	}
	return out
}
