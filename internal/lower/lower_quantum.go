package lower

import (
	"fmt"

	"qlower/internal/ast"
	"qlower/internal/mir"
	"qlower/internal/source"
	"qlower/internal/symbols"
)

func (l *Lowerer) extract(reg, index mir.ValueID, span source.Span) mir.ValueID {
	return l.b.Emit(mir.Instr{
		Kind:     mir.InstrQExtract,
		Type:     mir.TypeQubit,
		Span:     span,
		QExtract: mir.QExtractInstr{Reg: reg, Index: index},
	})
}

func (l *Lowerer) measure(q mir.ValueID, span source.Span) mir.ValueID {
	return l.b.Emit(mir.Instr{Kind: mir.InstrMeasure, Type: mir.TypeInt, Span: span, Measure: mir.MeasureInstr{Qubit: q}})
}

// qubitOperand resolves a gate operand. A whole register expands to one
// qubit per index and reports register=true.
func (l *Lowerer) qubitOperand(e *ast.Expr) (qubits []mir.ValueID, register bool, err error) {
	e = ast.Unparen(e)
	switch e.Kind {
	case ast.ExprIdent:
		name := e.Data.(ast.IdentData).Name
		b, ok := l.tab.Lookup(name)
		if !ok {
			return nil, false, errorf(ErrUndefined, e.Span, "undefined name %s", name)
		}
		switch b.Kind {
		case symbols.SymbolQubit:
			return []mir.ValueID{b.Value}, false, nil
		case symbols.SymbolQreg:
			out := make([]mir.ValueID, 0, b.Size)
			for i := range b.Size {
				out = append(out, l.extract(b.Value, l.b.ConstInt(i, e.Span), e.Span))
			}
			return out, true, nil
		}
		return nil, false, errorf(ErrType, e.Span, "%s is not a qubit", name)
	case ast.ExprIndex:
		v, err := l.lowerIndexExpr(e)
		if err != nil {
			return nil, false, err
		}
		if v.typ != mir.TypeQubit {
			return nil, false, errorf(ErrType, e.Span, "operand is not a qubit")
		}
		return []mir.ValueID{v.id}, false, nil
	}
	return nil, false, errorf(ErrType, e.Span, "operand is not a qubit")
}

func (l *Lowerer) singleQubit(e *ast.Expr) (mir.ValueID, error) {
	qs, register, err := l.qubitOperand(e)
	if err != nil {
		return mir.NoValueID, err
	}
	if register || len(qs) != 1 {
		return mir.NoValueID, errorf(ErrType, e.Span, "expected a single qubit")
	}
	return qs[0], nil
}

// operands resolves every operand and computes the broadcast width: the
// common size of the register operands, or 1 without any.
func (l *Lowerer) operands(exprs []*ast.Expr, span source.Span) ([][]mir.ValueID, int, error) {
	ops := make([][]mir.ValueID, 0, len(exprs))
	width := 0
	for _, e := range exprs {
		qs, register, err := l.qubitOperand(e)
		if err != nil {
			return nil, 0, err
		}
		if register {
			if width != 0 && width != len(qs) {
				return nil, 0, errorf(ErrType, e.Span, "register operands have different sizes %d and %d", width, len(qs))
			}
			width = len(qs)
		}
		ops = append(ops, qs)
	}
	if len(ops) == 0 {
		return nil, 0, errorf(ErrType, span, "no qubit operands")
	}
	if width == 0 {
		width = 1
	}
	return ops, width, nil
}

// pick returns operand j for broadcast lane i.
func pick(ops []mir.ValueID, i int) mir.ValueID {
	if len(ops) == 1 {
		return ops[0]
	}
	return ops[i]
}

func (l *Lowerer) lowerGate(st *ast.Stmt) error {
	data, ok := st.Data.(ast.GateData)
	if !ok {
		return fmt.Errorf("lower: gate: unexpected payload %T", st.Data)
	}
	params := make([]mir.ValueID, 0, len(data.Params))
	for _, p := range data.Params {
		v, err := l.lowerValue(p)
		if err != nil {
			return err
		}
		if v, err = l.coerce(v, mir.TypeFloat, p.Span); err != nil {
			return err
		}
		params = append(params, v.id)
	}
	ops, width, err := l.operands(data.Qubits, st.Span)
	if err != nil {
		return err
	}
	for i := range width {
		qubits := make([]mir.ValueID, len(ops))
		for j := range ops {
			qubits[j] = pick(ops[j], i)
		}
		l.b.Emit(mir.Instr{
			Kind: mir.InstrGate,
			Span: st.Span,
			Gate: mir.GateInstr{Name: data.Name, Params: params, Qubits: qubits},
		})
	}
	return nil
}

func (l *Lowerer) lowerReset(st *ast.Stmt) error {
	data, ok := st.Data.(ast.ResetData)
	if !ok {
		return fmt.Errorf("lower: reset: unexpected payload %T", st.Data)
	}
	qs, _, err := l.qubitOperand(data.Qubit)
	if err != nil {
		return err
	}
	for _, q := range qs {
		l.b.Emit(mir.Instr{Kind: mir.InstrReset, Span: st.Span, Reset: mir.ResetInstr{Qubit: q}})
	}
	return nil
}

// lowerBarrier only checks its operands; the runtime has no barrier.
func (l *Lowerer) lowerBarrier(st *ast.Stmt) error {
	data, ok := st.Data.(ast.BarrierData)
	if !ok {
		return fmt.Errorf("lower: barrier: unexpected payload %T", st.Data)
	}
	for _, e := range data.Qubits {
		base := ast.Unparen(e)
		if base != nil && base.Kind == ast.ExprIndex {
			base = ast.Unparen(base.Data.(ast.IndexData).Base)
		}
		if base == nil || base.Kind != ast.ExprIdent {
			return errorf(ErrType, e.Span, "barrier operand is not a qubit")
		}
		name := base.Data.(ast.IdentData).Name
		b, ok := l.tab.Lookup(name)
		if !ok {
			return errorf(ErrUndefined, base.Span, "undefined name %s", name)
		}
		if b.Kind != symbols.SymbolQreg && b.Kind != symbols.SymbolQubit {
			return errorf(ErrType, base.Span, "%s is not a qubit", name)
		}
	}
	return nil
}

// measureInto measures qubit into target, bit by bit for registers. A nil
// target discards the results.
func (l *Lowerer) measureInto(target, qubit *ast.Expr, span source.Span) error {
	qs, _, err := l.qubitOperand(qubit)
	if err != nil {
		return err
	}
	if target == nil {
		for _, q := range qs {
			l.measure(q, span)
		}
		return nil
	}
	cells, err := l.cells(target)
	if err != nil {
		return err
	}
	if len(cells) != len(qs) {
		return errorf(ErrType, span, "cannot measure %d qubits into %d bits", len(qs), len(cells))
	}
	for i, q := range qs {
		bit := value{id: l.measure(q, span), typ: mir.TypeInt}
		c := cells[i]
		if bit, err = l.coerce(bit, c.typ, span); err != nil {
			return err
		}
		l.b.Store(c.mem, c.index, bit.id, span)
	}
	return nil
}
