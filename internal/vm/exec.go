package vm

import (
	"cmp"
	"fmt"
	"math"

	"qlower/internal/mir"
)

func (vm *VM) exec(fr *frame, ins *mir.Instr) *VMError {
	var (
		res Value
		err *VMError
	)
	switch ins.Kind {
	case mir.InstrConst:
		res = constValue(ins)
	case mir.InstrAlloc:
		res = Value{Kind: VKMem, Mem: &Memory{Cells: zeroCells(ins.Alloc.Elem, ins.Alloc.Count)}}
	case mir.InstrLoad:
		var cell *Value
		if cell, err = vm.cell(fr, ins.Load.Mem, ins.Load.Index); err == nil {
			res = *cell
		}
	case mir.InstrStore:
		var cell *Value
		if cell, err = vm.cell(fr, ins.Store.Mem, ins.Store.Index); err == nil {
			*cell = fr.regs[ins.Store.Value]
		}
	case mir.InstrBinary:
		res, err = vm.binary(ins.Binary.Op, fr.regs[ins.Binary.Left], fr.regs[ins.Binary.Right])
	case mir.InstrUnary:
		res, err = vm.unary(ins.Unary.Op, fr.regs[ins.Unary.Operand])
	case mir.InstrCompare:
		res, err = vm.compare(ins.Compare.Pred, fr.regs[ins.Compare.Left], fr.regs[ins.Compare.Right])
	case mir.InstrCast:
		res, err = vm.cast(fr.regs[ins.Cast.Value], ins.Type)
	case mir.InstrCall:
		args := make([]Value, len(ins.Call.Args))
		for i, a := range ins.Call.Args {
			args[i] = fr.regs[a]
		}
		res, err = vm.call(ins.Call.Callee, args)
	case mir.InstrQAlloc:
		h, rtErr := vm.RT.Alloc(ins.QAlloc.Size)
		if rtErr != nil {
			return vm.runtimeFailure("qalloc", rtErr)
		}
		res = RegValue(h, ins.QAlloc.Size)
	case mir.InstrQDealloc:
		reg := fr.regs[ins.QDealloc.Reg]
		if reg.Kind != VKQreg {
			return vm.typeMismatch("qreg", reg)
		}
		if rtErr := vm.RT.Release(reg.Reg); rtErr != nil {
			return vm.makeError(PanicReleased, fmt.Sprintf("qdealloc: %v", rtErr))
		}
	case mir.InstrQExtract:
		res, err = vm.extract(fr.regs[ins.QExtract.Reg], fr.regs[ins.QExtract.Index])
	case mir.InstrGate:
		err = vm.gate(fr, ins)
	case mir.InstrMeasure:
		q := fr.regs[ins.Measure.Qubit]
		if q.Kind != VKQubit {
			return vm.typeMismatch("qubit", q)
		}
		bit, rtErr := vm.RT.Measure(q.Qubit)
		if rtErr != nil {
			return vm.runtimeFailure("measure", rtErr)
		}
		res = IntValue(bit)
	case mir.InstrReset:
		q := fr.regs[ins.Reset.Qubit]
		if q.Kind != VKQubit {
			return vm.typeMismatch("qubit", q)
		}
		if rtErr := vm.RT.Reset(q.Qubit); rtErr != nil {
			return vm.runtimeFailure("reset", rtErr)
		}
	case mir.InstrRuntime:
		err = vm.runtimeOp(fr, ins)
	case mir.InstrPrint:
		vals := make([]Value, len(ins.Print.Args))
		for i, a := range ins.Print.Args {
			vals[i] = fr.regs[a]
		}
		if rtErr := vm.RT.Print(vals); rtErr != nil {
			return vm.runtimeFailure("print", rtErr)
		}
	default:
		return vm.unimplemented("instruction " + ins.Kind.String())
	}
	if err != nil {
		return err
	}
	if ins.Dst.IsValid() {
		fr.regs[ins.Dst] = res
	}
	return nil
}

func constValue(ins *mir.Instr) Value {
	switch ins.Type {
	case mir.TypeFloat:
		return FloatValue(ins.Const.Float)
	case mir.TypeBool:
		return BoolValue(ins.Const.Bool)
	case mir.TypeString:
		return StringValue(ins.Const.Str)
	}
	return IntValue(ins.Const.Int)
}

// zeroCells returns count zero values of elem.
func zeroCells(elem mir.Type, count int64) []Value {
	cells := make([]Value, max(count, 0))
	var zero Value
	switch elem {
	case mir.TypeFloat:
		zero = FloatValue(0)
	case mir.TypeBool:
		zero = BoolValue(false)
	default:
		zero = IntValue(0)
	}
	for i := range cells {
		cells[i] = zero
	}
	return cells
}

func (vm *VM) cell(fr *frame, memID, indexID mir.ValueID) (*Value, *VMError) {
	mem := fr.regs[memID]
	if mem.Kind != VKMem || mem.Mem == nil {
		return nil, vm.typeMismatch("mem", mem)
	}
	var idx int64
	if indexID.IsValid() {
		iv := fr.regs[indexID]
		if iv.Kind != VKInt {
			return nil, vm.typeMismatch("int", iv)
		}
		idx = iv.Int
	}
	n := int64(len(mem.Mem.Cells))
	if idx < 0 || idx >= n {
		return nil, vm.outOfBounds(idx, n)
	}
	return &mem.Mem.Cells[idx], nil
}

func (vm *VM) extract(reg, index Value) (Value, *VMError) {
	if reg.Kind != VKQreg {
		return Value{}, vm.typeMismatch("qreg", reg)
	}
	if index.Kind != VKInt {
		return Value{}, vm.typeMismatch("int", index)
	}
	if index.Int < 0 || (reg.Size > 0 && index.Int >= reg.Size) {
		return Value{}, vm.outOfBounds(index.Int, reg.Size)
	}
	return Value{Kind: VKQubit, Qubit: Qubit{Reg: reg.Reg, Index: index.Int}}, nil
}

func (vm *VM) gate(fr *frame, ins *mir.Instr) *VMError {
	params := make([]float64, len(ins.Gate.Params))
	for i, p := range ins.Gate.Params {
		f, ok := fr.regs[p].asFloat()
		if !ok {
			return vm.typeMismatch("float", fr.regs[p])
		}
		params[i] = f
	}
	qubits := make([]Qubit, len(ins.Gate.Qubits))
	for i, q := range ins.Gate.Qubits {
		v := fr.regs[q]
		if v.Kind != VKQubit {
			return vm.typeMismatch("qubit", v)
		}
		qubits[i] = v.Qubit
	}
	if err := vm.RT.Gate(ins.Gate.Name, params, qubits); err != nil {
		return vm.runtimeFailure("gate "+ins.Gate.Name, err)
	}
	return nil
}

func (vm *VM) runtimeOp(fr *frame, ins *mir.Instr) *VMError {
	var err error
	switch ins.Runtime.Op {
	case mir.RuntimeInit:
		var argc int64
		if len(ins.Runtime.Args) > 0 {
			argc = fr.regs[ins.Runtime.Args[0]].Int
		}
		err = vm.RT.Init(argc)
	case mir.RuntimeFinalize:
		err = vm.RT.Finalize()
	case mir.RuntimeSetQreg:
		if len(ins.Runtime.Args) != 1 {
			return vm.makeError(PanicBadArity, "set_qreg expects one register")
		}
		reg := fr.regs[ins.Runtime.Args[0]]
		if reg.Kind != VKQreg {
			return vm.typeMismatch("qreg", reg)
		}
		err = vm.RT.SetQreg(reg.Reg, reg.Size)
	default:
		return vm.unimplemented("runtime op " + ins.Runtime.Op.String())
	}
	if err != nil {
		return vm.runtimeFailure(ins.Runtime.Op.String(), err)
	}
	return nil
}

func (vm *VM) binary(op mir.BinOp, l, r Value) (Value, *VMError) {
	if l.Kind != r.Kind {
		return Value{}, vm.typeMismatch(l.Kind.String(), r)
	}
	switch l.Kind {
	case VKInt:
		a, b := l.Int, r.Int
		switch op {
		case mir.BinAdd:
			return IntValue(a + b), nil
		case mir.BinSub:
			return IntValue(a - b), nil
		case mir.BinMul:
			return IntValue(a * b), nil
		case mir.BinDiv, mir.BinRem:
			if b == 0 {
				return Value{}, vm.makeError(PanicDivByZero, "integer division by zero")
			}
			if op == mir.BinDiv {
				return IntValue(a / b), nil
			}
			return IntValue(a % b), nil
		}
	case VKFloat:
		a, b := l.Float, r.Float
		switch op {
		case mir.BinAdd:
			return FloatValue(a + b), nil
		case mir.BinSub:
			return FloatValue(a - b), nil
		case mir.BinMul:
			return FloatValue(a * b), nil
		case mir.BinDiv:
			return FloatValue(a / b), nil
		case mir.BinRem:
			return FloatValue(math.Mod(a, b)), nil
		}
	case VKBool:
		switch op {
		case mir.BinAnd:
			return BoolValue(l.Bool && r.Bool), nil
		case mir.BinOr:
			return BoolValue(l.Bool || r.Bool), nil
		}
	}
	return Value{}, vm.unimplemented(fmt.Sprintf("%s on %s", op, l.Kind))
}

func (vm *VM) unary(op mir.UnOp, v Value) (Value, *VMError) {
	switch {
	case op == mir.UnNot && v.Kind == VKBool:
		return BoolValue(!v.Bool), nil
	case op == mir.UnNeg && v.Kind == VKInt:
		return IntValue(-v.Int), nil
	case op == mir.UnNeg && v.Kind == VKFloat:
		return FloatValue(-v.Float), nil
	}
	return Value{}, vm.unimplemented(fmt.Sprintf("%s on %s", op, v.Kind))
}

func (vm *VM) compare(p mir.Pred, l, r Value) (Value, *VMError) {
	if l.Kind != r.Kind {
		return Value{}, vm.typeMismatch(l.Kind.String(), r)
	}
	var c int
	switch l.Kind {
	case VKInt:
		c = cmp.Compare(l.Int, r.Int)
	case VKFloat:
		c = cmp.Compare(l.Float, r.Float)
	case VKBool:
		c = cmp.Compare(b2i(l.Bool), b2i(r.Bool))
	default:
		return Value{}, vm.unimplemented("compare on " + l.Kind.String())
	}
	switch p {
	case mir.PredEq:
		return BoolValue(c == 0), nil
	case mir.PredNe:
		return BoolValue(c != 0), nil
	case mir.PredLt:
		return BoolValue(c < 0), nil
	case mir.PredLe:
		return BoolValue(c <= 0), nil
	case mir.PredGt:
		return BoolValue(c > 0), nil
	case mir.PredGe:
		return BoolValue(c >= 0), nil
	}
	return Value{}, vm.unimplemented("predicate " + p.String())
}

func (vm *VM) cast(v Value, to mir.Type) (Value, *VMError) {
	switch to {
	case mir.TypeInt:
		switch v.Kind {
		case VKInt:
			return v, nil
		case VKFloat:
			return IntValue(int64(v.Float)), nil
		case VKBool:
			return IntValue(b2i(v.Bool)), nil
		}
	case mir.TypeFloat:
		if f, ok := v.asFloat(); ok {
			return FloatValue(f), nil
		}
		if v.Kind == VKBool {
			return FloatValue(float64(b2i(v.Bool))), nil
		}
	case mir.TypeBool:
		switch v.Kind {
		case VKBool:
			return v, nil
		case VKInt:
			return BoolValue(v.Int != 0), nil
		case VKFloat:
			return BoolValue(v.Float != 0), nil
		}
	}
	return Value{}, vm.unimplemented(fmt.Sprintf("cast %s to %s", v.Kind, to))
}

func b2i(b bool) int64 {
	if b {
		return 1
	}
	return 0
}
