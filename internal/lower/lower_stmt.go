package lower

import (
	"fmt"

	"qlower/internal/ast"
	"qlower/internal/consteval"
	"qlower/internal/mir"
	"qlower/internal/source"
	"qlower/internal/symbols"
)

func (l *Lowerer) lowerDecl(st *ast.Stmt) error {
	data, ok := st.Data.(ast.DeclData)
	if !ok || data.Type == nil {
		return fmt.Errorf("lower: decl: unexpected payload %T", st.Data)
	}
	if data.Type.IsQuantum() {
		return l.lowerQubitDecl(data, st.Span)
	}
	if data.Type.Kind == ast.TypeBit && data.Type.IsRegister() {
		if data.Init != nil {
			return errorf(ErrUnsupported, data.Init.Span, "initializer for bit register %s", data.Name)
		}
		size, err := l.designator(data.Type.Size, data.Name)
		if err != nil {
			return err
		}
		mem := l.b.Alloc(mir.TypeInt, size, st.Span)
		return l.bind(data.Name, symbols.Binding{
			Kind: symbols.SymbolVar, Value: mem, Type: mir.TypeInt, Size: size,
			Attrs: symbols.FlagRegister, Span: st.Span,
		})
	}

	typ, err := scalarType(data.Type)
	if err != nil {
		return err
	}
	if data.Const && typ == mir.TypeInt && data.Type.Kind != ast.TypeBit {
		if data.Init == nil {
			return errorf(ErrNotConstant, st.Span, "constant %s has no value", data.Name)
		}
		v, bad := consteval.EvalErr(data.Init, l.tab)
		if bad != nil {
			return errorf(ErrNotConstant, data.Init.Span, "initializer of constant %s is not a compile-time integer", data.Name)
		}
		return l.bind(data.Name, symbols.Binding{
			Kind: symbols.SymbolConst, Value: mir.NoValueID, Type: mir.TypeInt, Const: v,
			Attrs: symbols.FlagReadOnly, Span: st.Span,
		})
	}

	// The initializer is evaluated before the name is visible.
	var init value
	if data.Init != nil {
		v, err := l.lowerValue(data.Init)
		if err != nil {
			return err
		}
		if init, err = l.coerce(v, typ, data.Init.Span); err != nil {
			return err
		}
	}
	mem := l.b.Alloc(typ, 1, st.Span)
	if data.Init != nil {
		l.b.Store(mem, mir.NoValueID, init.id, st.Span)
	}
	var attrs symbols.SymbolFlags
	if data.Const {
		attrs |= symbols.FlagReadOnly
	}
	return l.bind(data.Name, symbols.Binding{Kind: symbols.SymbolVar, Value: mem, Type: typ, Attrs: attrs, Span: st.Span})
}

// lowerQubitDecl allocates a register and schedules its release at the end
// of the program body.
func (l *Lowerer) lowerQubitDecl(data ast.DeclData, span source.Span) error {
	if !l.opts.TopLevel || l.tab.Depth() != 1 {
		return errorf(ErrUnsupported, span, "qubit %s can only be declared at global scope", data.Name)
	}
	if data.Init != nil {
		return errorf(ErrType, data.Init.Span, "qubit %s cannot be initialized", data.Name)
	}
	size := int64(1)
	if data.Type.IsRegister() {
		var err error
		if size, err = l.designator(data.Type.Size, data.Name); err != nil {
			return err
		}
	}
	reg := l.b.Emit(mir.Instr{
		Kind:   mir.InstrQAlloc,
		Type:   mir.TypeQreg,
		Span:   span,
		QAlloc: mir.QAllocInstr{Size: size, Name: data.Name},
	})
	l.tab.RegisterCleanup(mir.ValueRef{Func: l.fn.ID, Value: reg})
	if data.Type.IsRegister() {
		return l.bind(data.Name, symbols.Binding{
			Kind: symbols.SymbolQreg, Value: reg, Type: mir.TypeQreg, Size: size,
			Attrs: symbols.FlagRegister, Span: span,
		})
	}
	q := l.extract(reg, l.b.ConstInt(0, span), span)
	return l.bind(data.Name, symbols.Binding{Kind: symbols.SymbolQubit, Value: q, Type: mir.TypeQubit, Span: span})
}

func (l *Lowerer) lowerAssign(st *ast.Stmt) error {
	data, ok := st.Data.(ast.AssignData)
	if !ok {
		return fmt.Errorf("lower: assign: unexpected payload %T", st.Data)
	}
	if m := ast.Unparen(data.Value); m != nil && m.Kind == ast.ExprMeasure && data.Op == ast.AssignSet {
		md, ok := m.Data.(ast.MeasureData)
		if !ok {
			return fmt.Errorf("lower: measure: unexpected payload %T", m.Data)
		}
		return l.measureInto(data.Target, md.Qubit, st.Span)
	}
	cells, err := l.cells(data.Target)
	if err != nil {
		return err
	}
	if len(cells) != 1 {
		return errorf(ErrType, data.Target.Span, "cannot assign a single value to a whole register")
	}
	c := cells[0]
	v, err := l.lowerValue(data.Value)
	if err != nil {
		return err
	}
	if data.Op != ast.AssignSet {
		old := value{id: l.b.Load(c.typ, c.mem, c.index, st.Span), typ: c.typ}
		op := mir.BinAdd
		if data.Op == ast.AssignSub {
			op = mir.BinSub
		}
		if v, err = l.arith(op, old, v, st.Span); err != nil {
			return err
		}
	}
	if v, err = l.coerce(v, c.typ, data.Value.Span); err != nil {
		return err
	}
	l.b.Store(c.mem, c.index, v.id, st.Span)
	return nil
}

// cell is one assignable memory slot.
type cell struct {
	mem   mir.ValueID
	index mir.ValueID
	typ   mir.Type
}

// cells resolves an assignment target. A whole bit register yields one
// cell per bit.
func (l *Lowerer) cells(target *ast.Expr) ([]cell, error) {
	var (
		name  string
		index *ast.Expr
	)
	switch target.Kind {
	case ast.ExprIdent:
		name = target.Data.(ast.IdentData).Name
	case ast.ExprIndex:
		data := target.Data.(ast.IndexData)
		base := ast.Unparen(data.Base)
		if base == nil || base.Kind != ast.ExprIdent {
			return nil, errorf(ErrType, target.Span, "invalid assignment target")
		}
		name, index = base.Data.(ast.IdentData).Name, data.Index
	default:
		return nil, errorf(ErrType, target.Span, "invalid assignment target")
	}

	b, ok := l.tab.Lookup(name)
	if !ok {
		return nil, errorf(ErrUndefined, target.Span, "undefined name %s", name)
	}
	switch {
	case b.IsLoopVar:
		return nil, errorf(ErrAssignLoopVar, target.Span, "cannot assign to loop variable %s", name)
	case b.Kind == symbols.SymbolQreg || b.Kind == symbols.SymbolQubit:
		return nil, errorf(ErrType, target.Span, "cannot assign to qubit %s", name)
	case !b.Assignable():
		return nil, errorf(ErrType, target.Span, "cannot assign to constant %s", name)
	}

	if index != nil {
		if b.Attrs&symbols.FlagRegister == 0 {
			return nil, errorf(ErrType, target.Span, "%s is not a register", name)
		}
		idx, err := l.lowerIndex(index, name, b.Size)
		if err != nil {
			return nil, err
		}
		return []cell{{mem: b.Value, index: idx, typ: b.Type}}, nil
	}
	if b.Attrs&symbols.FlagRegister == 0 {
		return []cell{{mem: b.Value, index: mir.NoValueID, typ: b.Type}}, nil
	}
	out := make([]cell, 0, b.Size)
	for i := range b.Size {
		out = append(out, cell{mem: b.Value, index: l.b.ConstInt(i, target.Span), typ: b.Type})
	}
	return out, nil
}

func (l *Lowerer) lowerIf(st *ast.Stmt) error {
	data, ok := st.Data.(ast.IfData)
	if !ok {
		return fmt.Errorf("lower: if: unexpected payload %T", st.Data)
	}
	cond, err := l.lowerCond(data.Cond)
	if err != nil {
		return err
	}
	thenBB := l.b.NewBlock()
	elseBB := mir.NoBlockID
	if data.Else != nil {
		elseBB = l.b.NewBlock()
	}
	join := l.b.NewBlock()
	if elseBB == mir.NoBlockID {
		l.b.If(cond.id, thenBB, join)
	} else {
		l.b.If(cond.id, thenBB, elseBB)
	}

	l.b.SetInsertionPoint(thenBB)
	if err := l.scoped(func() error { return l.LowerStmts(data.Then) }); err != nil {
		return err
	}
	l.b.Goto(join)

	if elseBB != mir.NoBlockID {
		l.b.SetInsertionPoint(elseBB)
		if err := l.scoped(func() error { return l.LowerStmts(data.Else) }); err != nil {
			return err
		}
		l.b.Goto(join)
	}

	l.b.SetInsertionPoint(join)
	l.tab.SetLastBlock(join)
	return nil
}

func (l *Lowerer) lowerReturn(st *ast.Stmt) error {
	data, ok := st.Data.(ast.ReturnData)
	if !ok {
		return fmt.Errorf("lower: return: unexpected payload %T", st.Data)
	}
	if l.fn.Result == mir.TypeVoid {
		if data.Value != nil {
			return errorf(ErrType, data.Value.Span, "%s does not return a value", l.fn.Name)
		}
		if l.opts.TopLevel {
			l.EmitCleanups()
		}
		l.b.Terminate(mir.Return())
		return nil
	}
	if data.Value == nil {
		return errorf(ErrType, st.Span, "%s must return a %s value", l.fn.Name, l.fn.Result)
	}
	v, err := l.lowerValue(data.Value)
	if err != nil {
		return err
	}
	if v, err = l.coerce(v, l.fn.Result, data.Value.Span); err != nil {
		return err
	}
	l.b.Terminate(mir.ReturnValue(v.id))
	return nil
}

// scalarType maps a classical declared type to its MIR type. Bits are
// stored as integer cells.
func scalarType(t *ast.Type) (mir.Type, error) {
	switch t.Kind {
	case ast.TypeInt, ast.TypeUint, ast.TypeBit:
		return mir.TypeInt, nil
	case ast.TypeFloat:
		return mir.TypeFloat, nil
	case ast.TypeBool:
		return mir.TypeBool, nil
	}
	return mir.TypeVoid, errorf(ErrType, t.Span, "%s is not a classical scalar type", t.Kind)
}
