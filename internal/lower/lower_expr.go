package lower

import (
	"fmt"

	"qlower/internal/ast"
	"qlower/internal/consteval"
	"qlower/internal/mir"
	"qlower/internal/source"
	"qlower/internal/symbols"
)

// value is a lowered expression result.
type value struct {
	id  mir.ValueID
	typ mir.Type
}

var voidValue = value{id: mir.NoValueID, typ: mir.TypeVoid}

// lowerValue lowers e and rejects expressions without a result.
func (l *Lowerer) lowerValue(e *ast.Expr) (value, error) {
	v, err := l.lowerExpr(e)
	if err != nil {
		return value{}, err
	}
	if v.typ == mir.TypeVoid {
		return value{}, errorf(ErrType, e.Span, "expression has no value")
	}
	return v, nil
}

// lowerCond lowers e as a branch condition.
func (l *Lowerer) lowerCond(e *ast.Expr) (value, error) {
	v, err := l.lowerValue(e)
	if err != nil {
		return value{}, err
	}
	return l.coerce(v, mir.TypeBool, e.Span)
}

func (l *Lowerer) lowerExpr(e *ast.Expr) (value, error) {
	if e == nil {
		return voidValue, nil
	}
	switch e.Kind {
	case ast.ExprIntLit:
		return value{id: l.b.ConstInt(e.Data.(ast.IntLitData).Value, e.Span), typ: mir.TypeInt}, nil
	case ast.ExprFloatLit:
		return value{id: l.b.ConstFloat(e.Data.(ast.FloatLitData).Value, e.Span), typ: mir.TypeFloat}, nil
	case ast.ExprBoolLit:
		return value{id: l.b.ConstBool(e.Data.(ast.BoolLitData).Value, e.Span), typ: mir.TypeBool}, nil
	case ast.ExprStringLit:
		return value{id: l.b.ConstString(e.Data.(ast.StringLitData).Value, e.Span), typ: mir.TypeString}, nil
	case ast.ExprIdent:
		return l.lowerIdent(e)
	case ast.ExprParen:
		return l.lowerExpr(e.Data.(ast.ParenData).Inner)
	case ast.ExprUnary:
		return l.lowerUnary(e)
	case ast.ExprBinary:
		return l.lowerBinary(e)
	case ast.ExprIndex:
		return l.lowerIndexExpr(e)
	case ast.ExprCall:
		return l.lowerCall(e)
	case ast.ExprMeasure:
		q, err := l.singleQubit(e.Data.(ast.MeasureData).Qubit)
		if err != nil {
			return value{}, err
		}
		return value{id: l.measure(q, e.Span), typ: mir.TypeInt}, nil
	}
	return value{}, errorf(ErrUnsupported, e.Span, "expression kind %s", e.Kind)
}

func (l *Lowerer) lowerIdent(e *ast.Expr) (value, error) {
	name := e.Data.(ast.IdentData).Name
	b, ok := l.tab.Lookup(name)
	if !ok {
		return value{}, errorf(ErrUndefined, e.Span, "undefined name %s", name)
	}
	switch b.Kind {
	case symbols.SymbolConst:
		return value{id: l.b.ConstInt(b.Const, e.Span), typ: mir.TypeInt}, nil
	case symbols.SymbolVar:
		if b.Attrs&symbols.FlagRegister != 0 {
			return value{}, errorf(ErrType, e.Span, "register %s cannot be used as a value", name)
		}
		return value{id: l.b.Load(b.Type, b.Value, mir.NoValueID, e.Span), typ: b.Type}, nil
	case symbols.SymbolValue, symbols.SymbolQubit, symbols.SymbolQreg:
		return value{id: b.Value, typ: b.Type}, nil
	}
	return value{}, errorf(ErrType, e.Span, "%s cannot be used as a value", name)
}

func (l *Lowerer) lowerUnary(e *ast.Expr) (value, error) {
	data := e.Data.(ast.UnaryData)
	v, err := l.lowerValue(data.Operand)
	if err != nil {
		return value{}, err
	}
	switch data.Op {
	case ast.UnaryNot:
		if v, err = l.coerce(v, mir.TypeBool, e.Span); err != nil {
			return value{}, err
		}
		id := l.b.Emit(mir.Instr{Kind: mir.InstrUnary, Type: mir.TypeBool, Span: e.Span, Unary: mir.UnaryInstr{Op: mir.UnNot, Operand: v.id}})
		return value{id: id, typ: mir.TypeBool}, nil
	case ast.UnaryPlus, ast.UnaryNeg:
		if v.typ == mir.TypeBool {
			if v, err = l.coerce(v, mir.TypeInt, e.Span); err != nil {
				return value{}, err
			}
		}
		if !v.typ.IsNumeric() {
			return value{}, errorf(ErrType, e.Span, "operator %s needs a numeric operand, got %s", data.Op, v.typ)
		}
		if data.Op == ast.UnaryPlus {
			return v, nil
		}
		id := l.b.Emit(mir.Instr{Kind: mir.InstrUnary, Type: v.typ, Span: e.Span, Unary: mir.UnaryInstr{Op: mir.UnNeg, Operand: v.id}})
		return value{id: id, typ: v.typ}, nil
	}
	return value{}, errorf(ErrUnsupported, e.Span, "unary operator %s", data.Op)
}

var binOps = map[ast.BinaryOp]mir.BinOp{
	ast.BinAdd: mir.BinAdd,
	ast.BinSub: mir.BinSub,
	ast.BinMul: mir.BinMul,
	ast.BinDiv: mir.BinDiv,
	ast.BinMod: mir.BinRem,
}

var predicates = map[ast.BinaryOp]mir.Pred{
	ast.BinEq: mir.PredEq,
	ast.BinNe: mir.PredNe,
	ast.BinLt: mir.PredLt,
	ast.BinLe: mir.PredLe,
	ast.BinGt: mir.PredGt,
	ast.BinGe: mir.PredGe,
}

// lowerBinary evaluates both operands; && and || do not short-circuit.
func (l *Lowerer) lowerBinary(e *ast.Expr) (value, error) {
	data := e.Data.(ast.BinaryData)
	left, err := l.lowerValue(data.Left)
	if err != nil {
		return value{}, err
	}
	right, err := l.lowerValue(data.Right)
	if err != nil {
		return value{}, err
	}
	switch {
	case data.Op.IsLogical():
		if left, err = l.coerce(left, mir.TypeBool, data.Left.Span); err != nil {
			return value{}, err
		}
		if right, err = l.coerce(right, mir.TypeBool, data.Right.Span); err != nil {
			return value{}, err
		}
		op := mir.BinAnd
		if data.Op == ast.BinOr {
			op = mir.BinOr
		}
		return value{id: l.b.Binary(op, mir.TypeBool, left.id, right.id, e.Span), typ: mir.TypeBool}, nil
	case data.Op.IsComparison():
		left, right, t, err := l.unify(left, right, e.Span)
		if err != nil {
			return value{}, err
		}
		pred := predicates[data.Op]
		if t == mir.TypeBool && pred != mir.PredEq && pred != mir.PredNe {
			return value{}, errorf(ErrType, e.Span, "operator %s is not defined on bool", data.Op)
		}
		return value{id: l.b.Compare(pred, left.id, right.id, e.Span), typ: mir.TypeBool}, nil
	}
	op, ok := binOps[data.Op]
	if !ok {
		return value{}, errorf(ErrUnsupported, e.Span, "binary operator %s", data.Op)
	}
	return l.arith(op, left, right, e.Span)
}

// arith applies an arithmetic operator after numeric promotion.
func (l *Lowerer) arith(op mir.BinOp, left, right value, span source.Span) (value, error) {
	if left.typ == mir.TypeBool {
		left = value{id: l.cast(left.id, mir.TypeInt, span), typ: mir.TypeInt}
	}
	if right.typ == mir.TypeBool {
		right = value{id: l.cast(right.id, mir.TypeInt, span), typ: mir.TypeInt}
	}
	left, right, t, err := l.unify(left, right, span)
	if err != nil {
		return value{}, err
	}
	if !t.IsNumeric() {
		return value{}, errorf(ErrType, span, "operator %s needs numeric operands, got %s", op, t)
	}
	if op == mir.BinRem && t == mir.TypeFloat {
		return value{}, errorf(ErrType, span, "operator %% is not defined on float")
	}
	return value{id: l.b.Binary(op, t, left.id, right.id, span), typ: t}, nil
}

// unify brings both operands to a common type: float wins over int, and
// int wins over bool.
func (l *Lowerer) unify(a, b value, span source.Span) (value, value, mir.Type, error) {
	for _, v := range [...]value{a, b} {
		switch v.typ {
		case mir.TypeInt, mir.TypeFloat, mir.TypeBool:
		default:
			return a, b, mir.TypeVoid, errorf(ErrType, span, "%s operand in arithmetic or comparison", v.typ)
		}
	}
	t := mir.TypeBool
	switch {
	case a.typ == mir.TypeFloat || b.typ == mir.TypeFloat:
		t = mir.TypeFloat
	case a.typ == mir.TypeInt || b.typ == mir.TypeInt:
		t = mir.TypeInt
	}
	var err error
	if a, err = l.coerce(a, t, span); err != nil {
		return a, b, t, err
	}
	if b, err = l.coerce(b, t, span); err != nil {
		return a, b, t, err
	}
	return a, b, t, nil
}

// coerce converts v to t. Numbers convert to bool by comparing with zero.
func (l *Lowerer) coerce(v value, t mir.Type, span source.Span) (value, error) {
	if v.typ == t {
		return v, nil
	}
	switch {
	case t == mir.TypeBool && v.typ == mir.TypeInt:
		return value{id: l.b.Compare(mir.PredNe, v.id, l.b.ConstInt(0, span), span), typ: t}, nil
	case t == mir.TypeBool && v.typ == mir.TypeFloat:
		return value{id: l.b.Compare(mir.PredNe, v.id, l.b.ConstFloat(0, span), span), typ: t}, nil
	case t.IsNumeric() && (v.typ.IsNumeric() || v.typ == mir.TypeBool):
		return value{id: l.cast(v.id, t, span), typ: t}, nil
	}
	return value{}, errorf(ErrType, span, "cannot convert %s to %s", v.typ, t)
}

func (l *Lowerer) cast(v mir.ValueID, t mir.Type, span source.Span) mir.ValueID {
	return l.b.Emit(mir.Instr{Kind: mir.InstrCast, Type: t, Span: span, Cast: mir.CastInstr{Value: v}})
}

func (l *Lowerer) lowerIndexExpr(e *ast.Expr) (value, error) {
	data := e.Data.(ast.IndexData)
	base := ast.Unparen(data.Base)
	if base == nil || base.Kind != ast.ExprIdent {
		return value{}, errorf(ErrType, e.Span, "only named registers can be indexed")
	}
	name := base.Data.(ast.IdentData).Name
	b, ok := l.tab.Lookup(name)
	if !ok {
		return value{}, errorf(ErrUndefined, base.Span, "undefined name %s", name)
	}
	switch {
	case b.Kind == symbols.SymbolQreg:
		idx, err := l.lowerIndex(data.Index, name, b.Size)
		if err != nil {
			return value{}, err
		}
		return value{id: l.extract(b.Value, idx, e.Span), typ: mir.TypeQubit}, nil
	case b.Kind == symbols.SymbolVar && b.Attrs&symbols.FlagRegister != 0:
		idx, err := l.lowerIndex(data.Index, name, b.Size)
		if err != nil {
			return value{}, err
		}
		return value{id: l.b.Load(b.Type, b.Value, idx, e.Span), typ: b.Type}, nil
	}
	return value{}, errorf(ErrType, e.Span, "%s is not a register", name)
}

// lowerIndex lowers a register index, rejecting constants out of range.
func (l *Lowerer) lowerIndex(e *ast.Expr, name string, size int64) (mir.ValueID, error) {
	if n, ok := consteval.Eval(e, l.tab); ok && size > 0 && (n < 0 || n >= size) {
		return mir.NoValueID, errorf(ErrType, e.Span, "index %d out of range for %s[%d]", n, name, size)
	}
	v, err := l.lowerValue(e)
	if err != nil {
		return mir.NoValueID, err
	}
	if v.typ != mir.TypeInt {
		if v.typ != mir.TypeBool {
			return mir.NoValueID, errorf(ErrType, e.Span, "index of %s must be an integer, got %s", name, v.typ)
		}
		if v, err = l.coerce(v, mir.TypeInt, e.Span); err != nil {
			return mir.NoValueID, err
		}
	}
	return v.id, nil
}

func (l *Lowerer) lowerCall(e *ast.Expr) (value, error) {
	data, ok := e.Data.(ast.CallData)
	if !ok {
		return value{}, fmt.Errorf("lower: call: unexpected payload %T", e.Data)
	}
	if data.Name == "print" {
		args := make([]mir.ValueID, 0, len(data.Args))
		for _, a := range data.Args {
			v, err := l.lowerValue(a)
			if err != nil {
				return value{}, err
			}
			args = append(args, v.id)
		}
		l.b.Emit(mir.Instr{Kind: mir.InstrPrint, Span: e.Span, Print: mir.PrintInstr{Args: args}})
		return voidValue, nil
	}

	callee, ok := l.mod.Func(data.Name)
	if !ok {
		return value{}, errorf(ErrUndefined, e.Span, "undefined subroutine %s", data.Name)
	}
	if len(callee.Params) != len(data.Args) {
		return value{}, errorf(ErrType, e.Span, "%s expects %d arguments, got %d", data.Name, len(callee.Params), len(data.Args))
	}
	args := make([]mir.ValueID, 0, len(data.Args))
	for i, p := range callee.Params {
		arg := data.Args[i]
		switch p.Type {
		case mir.TypeQubit:
			q, err := l.singleQubit(arg)
			if err != nil {
				return value{}, err
			}
			args = append(args, q)
		case mir.TypeQreg:
			v, err := l.lowerValue(arg)
			if err != nil {
				return value{}, err
			}
			if v.typ != mir.TypeQreg {
				return value{}, errorf(ErrType, arg.Span, "argument %d of %s must be a qubit register", i+1, data.Name)
			}
			args = append(args, v.id)
		default:
			v, err := l.lowerValue(arg)
			if err != nil {
				return value{}, err
			}
			if v, err = l.coerce(v, p.Type, arg.Span); err != nil {
				return value{}, err
			}
			args = append(args, v.id)
		}
	}
	id := l.b.Emit(mir.Instr{Kind: mir.InstrCall, Type: callee.Result, Span: e.Span, Call: mir.CallInstr{Callee: callee.Name, Args: args}})
	return value{id: id, typ: callee.Result}, nil
}
