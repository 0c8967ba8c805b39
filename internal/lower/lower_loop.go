package lower

import (
	"fmt"
	"math"

	"fortio.org/safecast"

	"qlower/internal/ast"
	"qlower/internal/consteval"
	"qlower/internal/mir"
	"qlower/internal/source"
	"qlower/internal/symbols"
	"qlower/internal/trace"
)

func (l *Lowerer) lowerLoop(st *ast.Stmt) error {
	data, ok := st.Data.(ast.LoopData)
	if !ok {
		return fmt.Errorf("lower: loop: unexpected payload %T", st.Data)
	}
	if data.Sig == nil {
		return errorf(ErrBadLoopSignature, st.Span, "loop has no signature")
	}
	span := trace.Begin(l.opts.Tracer, trace.ScopeNode, "loop."+data.Sig.Kind.String(), l.opts.ParentSpan)
	defer span.End("")

	switch data.Sig.Kind {
	case ast.SigSet:
		if sig, ok := data.Sig.Data.(ast.SetSig); ok {
			return l.lowerSetLoop(sig, data.Body, st.Span)
		}
	case ast.SigRange:
		if sig, ok := data.Sig.Data.(ast.RangeSig); ok {
			return l.lowerRangeLoop(sig, data.Body, st.Span)
		}
	case ast.SigCond:
		if sig, ok := data.Sig.Data.(ast.CondSig); ok {
			return l.lowerWhileLoop(sig, data.Body, st.Span)
		}
	}
	return errorf(ErrBadLoopSignature, data.Sig.Span, "unrecognized loop signature %s", data.Sig.Kind)
}

// lowerSetLoop lowers `for x in {e1, e2, ...}`.
//
//	pre:    elems = alloc; elems[i] = ei; idx = 0; goto header
//	header: if idx < n then body else exit
//	body:   x = elems[idx]; ...; goto inc
//	inc:    idx = idx + 1; goto header
func (l *Lowerer) lowerSetLoop(sig ast.SetSig, body []*ast.Stmt, span source.Span) error {
	elemType := mir.TypeInt
	if sig.Var.Type != nil {
		t, err := scalarType(sig.Var.Type)
		if err != nil {
			return err
		}
		elemType = t
	}

	// Elements see the enclosing scope only.
	vals := make([]value, 0, len(sig.Elems))
	for _, e := range sig.Elems {
		v, err := l.lowerValue(e)
		if err != nil {
			return err
		}
		if sig.Var.Type == nil && v.typ == mir.TypeFloat {
			elemType = mir.TypeFloat
		}
		vals = append(vals, v)
	}
	count := int64(len(vals))
	elems := l.b.Alloc(elemType, count, span)
	for i, v := range vals {
		cv, err := l.coerce(v, elemType, sig.Elems[i].Span)
		if err != nil {
			return err
		}
		l.b.Store(elems, l.b.ConstInt(int64(i), span), cv.id, span)
	}

	l.tab.EnterScope()
	defer l.tab.ExitScope()

	counter := l.b.Alloc(mir.TypeInt, 1, span)
	l.b.Store(counter, mir.NoValueID, l.b.ConstInt(0, span), span)

	header := l.b.NewBlock()
	bodyBB := l.b.NewBlock()
	inc := l.b.NewBlock()
	exit := l.b.NewBlock()
	l.b.Goto(header)

	l.b.SetInsertionPoint(header)
	idx := l.b.Load(mir.TypeInt, counter, mir.NoValueID, span)
	cond := l.b.Compare(mir.PredLt, idx, l.b.ConstInt(count, span), span)
	l.b.If(cond, bodyBB, exit)

	l.b.SetInsertionPoint(bodyBB)
	cur := l.b.Load(mir.TypeInt, counter, mir.NoValueID, span)
	elem := l.b.Load(elemType, elems, cur, span)
	if err := l.bindLoopVar(sig.Var, value{id: elem, typ: elemType}); err != nil {
		return err
	}
	if err := l.lowerLoopBody(body, symbols.LoopContext{Exit: exit, Continue: inc}); err != nil {
		return err
	}
	l.b.Goto(inc)

	l.b.SetInsertionPoint(inc)
	l.increment(counter, 1, header, span)

	l.b.SetInsertionPoint(exit)
	l.tab.SetLastBlock(exit)
	return nil
}

// lowerRangeLoop lowers `for x in [start:step:end]`. Bounds must be
// compile-time integers and are validated before any block is created.
func (l *Lowerer) lowerRangeLoop(sig ast.RangeSig, body []*ast.Stmt, span source.Span) error {
	start, err := l.rangeBound(sig.Start, "start", span)
	if err != nil {
		return err
	}
	step := int64(1)
	if sig.Step != nil {
		if step, err = l.rangeBound(sig.Step, "step", span); err != nil {
			return err
		}
	}
	end, err := l.rangeBound(sig.End, "end", span)
	if err != nil {
		return err
	}
	switch {
	case start < 0:
		return errorf(ErrRangeStart, boundSpan(sig.Start, span), "range start %d must not be negative", start)
	case step < 1:
		return errorf(ErrRangeStep, boundSpan(sig.Step, span), "range step %d must be at least 1", step)
	case end < start:
		return errorf(ErrRangeEnd, boundSpan(sig.End, span), "range end %d is before start %d", end, start)
	case step > math.MaxInt64-end:
		// The counter steps past end once; that step must fit in int64.
		return errorf(ErrRangeStep, boundSpan(sig.Step, span), "range step %d overflows past end %d", step, end)
	}

	l.tab.EnterScope()
	defer l.tab.ExitScope()

	cell := l.b.Alloc(mir.TypeInt, 1, span)
	l.b.Store(cell, mir.NoValueID, l.b.ConstInt(start, span), span)

	header := l.b.NewBlock()
	bodyBB := l.b.NewBlock()
	inc := l.b.NewBlock()
	exit := l.b.NewBlock()
	l.b.Goto(header)

	l.b.SetInsertionPoint(header)
	cur := l.b.Load(mir.TypeInt, cell, mir.NoValueID, span)
	cond := l.b.Compare(mir.PredLt, cur, l.b.ConstInt(end, span), span)
	l.b.If(cond, bodyBB, exit)

	l.b.SetInsertionPoint(bodyBB)
	iv := l.b.Load(mir.TypeInt, cell, mir.NoValueID, span)
	if err := l.bindLoopVar(sig.Var, value{id: iv, typ: mir.TypeInt}); err != nil {
		return err
	}
	if err := l.lowerLoopBody(body, symbols.LoopContext{Exit: exit, Continue: inc}); err != nil {
		return err
	}
	l.b.Goto(inc)

	l.b.SetInsertionPoint(inc)
	l.increment(cell, step, header, span)

	l.b.SetInsertionPoint(exit)
	l.tab.SetLastBlock(exit)
	return nil
}

// lowerWhileLoop lowers `while (cond)`; continue re-enters the header.
func (l *Lowerer) lowerWhileLoop(sig ast.CondSig, body []*ast.Stmt, span source.Span) error {
	l.tab.EnterScope()
	defer l.tab.ExitScope()

	header := l.b.NewBlock()
	bodyBB := l.b.NewBlock()
	exit := l.b.NewBlock()
	l.b.Goto(header)

	l.b.SetInsertionPoint(header)
	cond, err := l.lowerCond(sig.Cond)
	if err != nil {
		return err
	}
	l.b.If(cond.id, bodyBB, exit)

	l.b.SetInsertionPoint(bodyBB)
	if err := l.lowerLoopBody(body, symbols.LoopContext{Exit: exit, Continue: header}); err != nil {
		return err
	}
	l.b.Goto(header)

	l.b.SetInsertionPoint(exit)
	l.tab.SetLastBlock(exit)
	return nil
}

func (l *Lowerer) lowerLoopBody(body []*ast.Stmt, ctx symbols.LoopContext) error {
	l.tab.PushLoop(ctx)
	defer l.tab.PopLoop()
	return l.LowerStmts(body)
}

// increment adds step to the counter cell and jumps back to header.
func (l *Lowerer) increment(cell mir.ValueID, step int64, header mir.BlockID, span source.Span) {
	cur := l.b.Load(mir.TypeInt, cell, mir.NoValueID, span)
	next := l.b.Binary(mir.BinAdd, mir.TypeInt, cur, l.b.ConstInt(step, span), span)
	l.b.Store(cell, mir.NoValueID, next, span)
	l.b.Goto(header)
}

func (l *Lowerer) bindLoopVar(v ast.LoopVar, val value) error {
	if v.Type != nil {
		t, err := scalarType(v.Type)
		if err != nil {
			return err
		}
		if val, err = l.coerce(val, t, v.Span); err != nil {
			return err
		}
	}
	return l.bind(v.Name, symbols.Binding{
		Kind:      symbols.SymbolValue,
		Value:     val.id,
		Type:      val.typ,
		Attrs:     symbols.FlagReadOnly,
		IsLoopVar: true,
		Span:      v.Span,
	})
}

// rangeBound resolves one range field: a literal as written, otherwise a
// constant expression over names bound before the loop.
func (l *Lowerer) rangeBound(b *ast.RangeBound, field string, span source.Span) (int64, error) {
	if b == nil || b.Expr == nil {
		return 0, errorf(ErrBadLoopSignature, span, "range %s is missing", field)
	}
	if b.IsLiteral() {
		if lit, ok := b.Expr.Data.(ast.IntLitData); ok {
			return lit.Value, nil
		}
	}
	v, bad := consteval.EvalErr(b.Expr, l.tab)
	if bad != nil {
		at := bad.Span
		if at.Empty() {
			at = b.Expr.Span
		}
		return 0, errorf(ErrNotConstant, at, "range %s %q is not a compile-time constant", field, b.Text)
	}
	return v, nil
}

func boundSpan(b *ast.RangeBound, fallback source.Span) source.Span {
	if b == nil || b.Expr == nil {
		return fallback
	}
	return b.Expr.Span
}

func (l *Lowerer) lowerBreak(st *ast.Stmt) error {
	ctx, ok := l.tab.CurrentLoop()
	if !ok {
		return errorf(ErrBreakOutsideLoop, st.Span, "break statement outside of a loop")
	}
	l.b.Goto(ctx.Exit)
	return nil
}

func (l *Lowerer) lowerContinue(st *ast.Stmt) error {
	ctx, ok := l.tab.CurrentLoop()
	if !ok {
		return errorf(ErrContinueOutsideLoop, st.Span, "continue statement has no valid target")
	}
	l.b.Goto(ctx.Continue)
	return nil
}

// designator evaluates a register size.
func (l *Lowerer) designator(e *ast.Expr, name string) (int64, error) {
	n, bad := consteval.EvalErr(e, l.tab)
	if bad != nil {
		return 0, errorf(ErrNotConstant, e.Span, "size of %s is not a compile-time constant", name)
	}
	if n < 1 {
		return 0, errorf(ErrType, e.Span, "size of %s must be positive, got %d", name, n)
	}
	if _, err := safecast.Conv[int32](n); err != nil {
		return 0, errorf(ErrType, e.Span, "size of %s is too large: %v", name, err)
	}
	return n, nil
}
