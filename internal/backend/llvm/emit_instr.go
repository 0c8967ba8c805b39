package llvm

import (
	"fmt"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/enum"
	"github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"

	"qlower/internal/mir"
)

func (fe *funcEmitter) emitInstr(blk *ir.Block, ins *mir.Instr) error {
	var (
		res value.Value
		err error
	)
	switch ins.Kind {
	case mir.InstrConst:
		res, err = fe.constant(ins)
	case mir.InstrAlloc:
		res, err = fe.alloc(blk, ins)
	case mir.InstrLoad:
		var ptr value.Value
		var elem types.Type
		if ptr, elem, err = fe.cellPtr(blk, ins.Load.Mem, ins.Load.Index); err == nil {
			res = blk.NewLoad(elem, ptr)
		}
	case mir.InstrStore:
		var ptr, v value.Value
		if ptr, _, err = fe.cellPtr(blk, ins.Store.Mem, ins.Store.Index); err != nil {
			return err
		}
		if v, err = fe.value(ins.Store.Value); err != nil {
			return err
		}
		blk.NewStore(v, ptr)
	case mir.InstrBinary:
		res, err = fe.binary(blk, ins)
	case mir.InstrUnary:
		res, err = fe.unary(blk, ins)
	case mir.InstrCompare:
		res, err = fe.compare(blk, ins)
	case mir.InstrCast:
		res, err = fe.cast(blk, ins)
	case mir.InstrCall:
		res, err = fe.call(blk, ins)
	case mir.InstrQAlloc:
		call := blk.NewCall(fe.e.rt(rtQubitAllocateArray), constant.NewInt(types.I64, ins.QAlloc.Size))
		if ins.QAlloc.Name != "" {
			call.SetName(fe.localName(ins.Dst, ins.QAlloc.Name))
		}
		res = call
	case mir.InstrQDealloc:
		var reg value.Value
		if reg, err = fe.value(ins.QDealloc.Reg); err == nil {
			blk.NewCall(fe.e.rt(rtQubitReleaseArray), reg)
		}
	case mir.InstrQExtract:
		res, err = fe.extract(blk, ins)
	case mir.InstrGate:
		err = fe.gate(blk, ins)
	case mir.InstrMeasure:
		var q value.Value
		if q, err = fe.value(ins.Measure.Qubit); err == nil {
			r := blk.NewCall(fe.e.rt(qisMz), q)
			one := blk.NewCall(fe.e.rt(rtResultGetOne))
			eq := blk.NewCall(fe.e.rt(rtResultEqual), r, one)
			res = blk.NewZExt(eq, types.I64)
		}
	case mir.InstrReset:
		var q value.Value
		if q, err = fe.value(ins.Reset.Qubit); err == nil {
			blk.NewCall(fe.e.rt(qisReset), q)
		}
	case mir.InstrRuntime:
		err = fe.runtimeOp(blk, ins)
	case mir.InstrPrint:
		err = fe.print(blk, ins)
	default:
		return fmt.Errorf("unsupported instruction %s", ins.Kind)
	}
	if err != nil {
		return err
	}
	if ins.Dst.IsValid() {
		if res == nil {
			return fmt.Errorf("%s produced no value", ins.Kind)
		}
		fe.vals[ins.Dst] = res
	}
	return nil
}

func (fe *funcEmitter) constant(ins *mir.Instr) (value.Value, error) {
	switch ins.Type {
	case mir.TypeInt:
		return constant.NewInt(types.I64, ins.Const.Int), nil
	case mir.TypeFloat:
		return constant.NewFloat(types.Double, ins.Const.Float), nil
	case mir.TypeBool:
		return constant.NewBool(ins.Const.Bool), nil
	case mir.TypeString:
		return fe.e.stringPtr(ins.Const.Str), nil
	}
	return nil, fmt.Errorf("no constant of type %s", ins.Type)
}

// alloc hoists the stack slot into the entry block and zero-fills it where
// the MIR alloc stood, so loops re-entering a scope see fresh cells.
func (fe *funcEmitter) alloc(blk *ir.Block, ins *mir.Instr) (value.Value, error) {
	elem, err := fe.e.llType(ins.Alloc.Elem)
	if err != nil {
		return nil, err
	}
	slot := memSlot{elem: elem}
	var init constant.Constant
	if ins.Alloc.Count > 1 {
		slot.array = types.NewArray(uint64(ins.Alloc.Count), elem)
		a := ir.NewAlloca(slot.array)
		a.SetName(fe.localName(ins.Dst, "mem"))
		slot.ptr = a
		init = constant.NewZeroInitializer(slot.array)
	} else {
		a := ir.NewAlloca(elem)
		a.SetName(fe.localName(ins.Dst, "mem"))
		slot.ptr = a
		init = zero(elem)
	}
	fe.allocs = append(fe.allocs, slot.ptr.(ir.Instruction))
	blk.NewStore(init, slot.ptr)
	fe.mems[ins.Dst] = slot
	return slot.ptr, nil
}

// cellPtr addresses one cell of a memory region.
func (fe *funcEmitter) cellPtr(blk *ir.Block, mem, index mir.ValueID) (value.Value, types.Type, error) {
	slot, ok := fe.mems[mem]
	if !ok {
		return nil, nil, fmt.Errorf("%%%d is not a memory region", mem)
	}
	if slot.array == nil {
		if index.IsValid() {
			idx, err := fe.value(index)
			if err != nil {
				return nil, nil, err
			}
			return blk.NewGetElementPtr(slot.elem, slot.ptr, idx), slot.elem, nil
		}
		return slot.ptr, slot.elem, nil
	}
	var idx value.Value = constant.NewInt(types.I64, 0)
	if index.IsValid() {
		var err error
		if idx, err = fe.value(index); err != nil {
			return nil, nil, err
		}
	}
	return blk.NewGetElementPtr(slot.array, slot.ptr, constant.NewInt(types.I64, 0), idx), slot.elem, nil
}

func (fe *funcEmitter) binary(blk *ir.Block, ins *mir.Instr) (value.Value, error) {
	l, err := fe.value(ins.Binary.Left)
	if err != nil {
		return nil, err
	}
	r, err := fe.value(ins.Binary.Right)
	if err != nil {
		return nil, err
	}
	if ins.Type == mir.TypeFloat {
		switch ins.Binary.Op {
		case mir.BinAdd:
			return blk.NewFAdd(l, r), nil
		case mir.BinSub:
			return blk.NewFSub(l, r), nil
		case mir.BinMul:
			return blk.NewFMul(l, r), nil
		case mir.BinDiv:
			return blk.NewFDiv(l, r), nil
		case mir.BinRem:
			return blk.NewFRem(l, r), nil
		}
		return nil, fmt.Errorf("%s on f64", ins.Binary.Op)
	}
	switch ins.Binary.Op {
	case mir.BinAdd:
		return blk.NewAdd(l, r), nil
	case mir.BinSub:
		return blk.NewSub(l, r), nil
	case mir.BinMul:
		return blk.NewMul(l, r), nil
	case mir.BinDiv:
		return blk.NewSDiv(l, r), nil
	case mir.BinRem:
		return blk.NewSRem(l, r), nil
	case mir.BinAnd:
		return blk.NewAnd(l, r), nil
	case mir.BinOr:
		return blk.NewOr(l, r), nil
	}
	return nil, fmt.Errorf("unknown binary op %s", ins.Binary.Op)
}

func (fe *funcEmitter) unary(blk *ir.Block, ins *mir.Instr) (value.Value, error) {
	v, err := fe.value(ins.Unary.Operand)
	if err != nil {
		return nil, err
	}
	switch {
	case ins.Unary.Op == mir.UnNot:
		return blk.NewXor(v, constant.True), nil
	case ins.Type == mir.TypeFloat:
		return blk.NewFNeg(v), nil
	default:
		return blk.NewSub(constant.NewInt(types.I64, 0), v), nil
	}
}

var intPreds = map[mir.Pred]enum.IPred{
	mir.PredEq: enum.IPredEQ,
	mir.PredNe: enum.IPredNE,
	mir.PredLt: enum.IPredSLT,
	mir.PredLe: enum.IPredSLE,
	mir.PredGt: enum.IPredSGT,
	mir.PredGe: enum.IPredSGE,
}

var floatPreds = map[mir.Pred]enum.FPred{
	mir.PredEq: enum.FPredOEQ,
	mir.PredNe: enum.FPredONE,
	mir.PredLt: enum.FPredOLT,
	mir.PredLe: enum.FPredOLE,
	mir.PredGt: enum.FPredOGT,
	mir.PredGe: enum.FPredOGE,
}

func (fe *funcEmitter) compare(blk *ir.Block, ins *mir.Instr) (value.Value, error) {
	l, err := fe.value(ins.Compare.Left)
	if err != nil {
		return nil, err
	}
	r, err := fe.value(ins.Compare.Right)
	if err != nil {
		return nil, err
	}
	if fe.f.ValueType(ins.Compare.Left) == mir.TypeFloat {
		p, ok := floatPreds[ins.Compare.Pred]
		if !ok {
			return nil, fmt.Errorf("unknown predicate %s", ins.Compare.Pred)
		}
		return blk.NewFCmp(p, l, r), nil
	}
	p, ok := intPreds[ins.Compare.Pred]
	if !ok {
		return nil, fmt.Errorf("unknown predicate %s", ins.Compare.Pred)
	}
	return blk.NewICmp(p, l, r), nil
}

func (fe *funcEmitter) cast(blk *ir.Block, ins *mir.Instr) (value.Value, error) {
	v, err := fe.value(ins.Cast.Value)
	if err != nil {
		return nil, err
	}
	from, to := fe.f.ValueType(ins.Cast.Value), ins.Type
	if from == to {
		return v, nil
	}
	switch {
	case from == mir.TypeInt && to == mir.TypeFloat:
		return blk.NewSIToFP(v, types.Double), nil
	case from == mir.TypeFloat && to == mir.TypeInt:
		return blk.NewFPToSI(v, types.I64), nil
	case from == mir.TypeBool && to == mir.TypeInt:
		return blk.NewZExt(v, types.I64), nil
	case from == mir.TypeBool && to == mir.TypeFloat:
		return blk.NewUIToFP(v, types.Double), nil
	case from == mir.TypeInt && to == mir.TypeBool:
		return blk.NewICmp(enum.IPredNE, v, constant.NewInt(types.I64, 0)), nil
	case from == mir.TypeFloat && to == mir.TypeBool:
		return blk.NewFCmp(enum.FPredONE, v, constant.NewFloat(types.Double, 0)), nil
	}
	return nil, fmt.Errorf("cannot cast %s to %s", from, to)
}

func (fe *funcEmitter) call(blk *ir.Block, ins *mir.Instr) (value.Value, error) {
	callee, ok := fe.e.funcs[ins.Call.Callee]
	if !ok {
		return nil, fmt.Errorf("call to unknown function %s", ins.Call.Callee)
	}
	args, err := fe.values(ins.Call.Args)
	if err != nil {
		return nil, err
	}
	if len(args) != len(callee.Params) {
		return nil, fmt.Errorf("%s expects %d arguments, got %d", ins.Call.Callee, len(callee.Params), len(args))
	}
	return blk.NewCall(callee, args...), nil
}

// extract loads the qubit pointer at index from a register array.
func (fe *funcEmitter) extract(blk *ir.Block, ins *mir.Instr) (value.Value, error) {
	reg, err := fe.value(ins.QExtract.Reg)
	if err != nil {
		return nil, err
	}
	idx, err := fe.value(ins.QExtract.Index)
	if err != nil {
		return nil, err
	}
	raw := blk.NewCall(fe.e.rt(rtArrayGetElementPtr), reg, idx)
	slot := blk.NewBitCast(raw, types.NewPointer(fe.e.qubitPtr))
	return blk.NewLoad(fe.e.qubitPtr, slot), nil
}

func (fe *funcEmitter) gate(blk *ir.Block, ins *mir.Instr) error {
	fn, err := fe.e.gate(ins.Gate.Name, len(ins.Gate.Params), len(ins.Gate.Qubits))
	if err != nil {
		return err
	}
	args := make([]value.Value, 0, len(ins.Gate.Params)+len(ins.Gate.Qubits))
	for _, p := range ins.Gate.Params {
		v, err := fe.value(p)
		if err != nil {
			return err
		}
		if fe.f.ValueType(p) == mir.TypeInt {
			v = blk.NewSIToFP(v, types.Double)
		}
		args = append(args, v)
	}
	qubits, err := fe.values(ins.Gate.Qubits)
	if err != nil {
		return err
	}
	blk.NewCall(fn, append(args, qubits...)...)
	return nil
}

func (fe *funcEmitter) runtimeOp(blk *ir.Block, ins *mir.Instr) error {
	args, err := fe.values(ins.Runtime.Args)
	if err != nil {
		return err
	}
	switch ins.Runtime.Op {
	case mir.RuntimeInit:
		var argc value.Value = constant.NewInt(types.I32, 0)
		var argv value.Value = constant.NewNull(types.NewPointer(types.I8Ptr))
		if len(args) > 0 {
			argc = narrowI32(blk, args[0])
		}
		if len(args) > 1 {
			argv = args[1]
		}
		blk.NewCall(fe.e.rt(rtInitialize), argc, argv)
	case mir.RuntimeFinalize:
		blk.NewCall(fe.e.rt(rtFinalize))
	case mir.RuntimeSetQreg:
		if len(args) != 1 {
			return fmt.Errorf("set_qreg expects one register")
		}
		blk.NewCall(fe.e.rt(rtSetQreg), args[0])
	default:
		return fmt.Errorf("unknown runtime op %s", ins.Runtime.Op)
	}
	return nil
}

// print records each argument through the typed output functions.
func (fe *funcEmitter) print(blk *ir.Block, ins *mir.Instr) error {
	label := constant.NewNull(types.I8Ptr)
	for _, id := range ins.Print.Args {
		v, err := fe.value(id)
		if err != nil {
			return err
		}
		switch t := fe.f.ValueType(id); t {
		case mir.TypeInt:
			blk.NewCall(fe.e.rt(rtIntRecordOutput), v, label)
		case mir.TypeFloat:
			blk.NewCall(fe.e.rt(rtDoubleRecordOutput), v, label)
		case mir.TypeBool:
			blk.NewCall(fe.e.rt(rtBoolRecordOutput), v, label)
		case mir.TypeString:
			blk.NewCall(fe.e.rt(rtMessage), v)
		default:
			return fmt.Errorf("cannot print %s", t)
		}
	}
	return nil
}
