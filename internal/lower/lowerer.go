// Package lower turns the syntax tree into MIR.
//
// A Lowerer works on one function at a time. Structured control flow is
// lowered into blocks through a mir.Builder; names, loop contexts and
// pending cleanups live in a symbols.Table. The first error stops
// lowering and is returned as *Error.
package lower

import (
	"fmt"

	"qlower/internal/ast"
	"qlower/internal/mir"
	"qlower/internal/symbols"
	"qlower/internal/trace"
)

type Options struct {
	Tracer     trace.Tracer
	ParentSpan uint64
	// TopLevel marks the program body function. Only there may qubits be
	// declared and subroutines defined.
	TopLevel bool
}

type Lowerer struct {
	mod  *mir.Module
	fn   *mir.Func
	b    *mir.Builder
	tab  *symbols.Table
	opts Options
}

func New(mod *mir.Module, b *mir.Builder, tab *symbols.Table, opts Options) *Lowerer {
	if opts.Tracer == nil {
		opts.Tracer = trace.Nop
	}
	return &Lowerer{mod: mod, fn: b.Func(), b: b, tab: tab, opts: opts}
}

// LowerStmts lowers stmts in order. Statements after a terminator in the
// same block are unreachable and skipped.
func (l *Lowerer) LowerStmts(stmts []*ast.Stmt) error {
	for _, st := range stmts {
		if l.b.Terminated() {
			return nil
		}
		if err := l.lowerStmt(st); err != nil {
			return err
		}
	}
	return nil
}

func (l *Lowerer) lowerStmt(st *ast.Stmt) error {
	if st == nil {
		return nil
	}
	trace.Point(l.opts.Tracer, trace.ScopeNode, "stmt."+st.Kind.String(), st.Span.String(), l.opts.ParentSpan)

	switch st.Kind {
	case ast.StmtDecl:
		return l.lowerDecl(st)
	case ast.StmtAssign:
		return l.lowerAssign(st)
	case ast.StmtExpr:
		data, ok := st.Data.(ast.ExprStmtData)
		if !ok {
			return fmt.Errorf("lower: expr stmt: unexpected payload %T", st.Data)
		}
		_, err := l.lowerExpr(data.Expr)
		return err
	case ast.StmtGate:
		return l.lowerGate(st)
	case ast.StmtMeasure:
		data, ok := st.Data.(ast.MeasureStmtData)
		if !ok {
			return fmt.Errorf("lower: measure: unexpected payload %T", st.Data)
		}
		return l.measureInto(data.Target, data.Qubit, st.Span)
	case ast.StmtReset:
		return l.lowerReset(st)
	case ast.StmtBarrier:
		return l.lowerBarrier(st)
	case ast.StmtIf:
		return l.lowerIf(st)
	case ast.StmtLoop:
		return l.lowerLoop(st)
	case ast.StmtBreak:
		return l.lowerBreak(st)
	case ast.StmtContinue:
		return l.lowerContinue(st)
	case ast.StmtReturn:
		return l.lowerReturn(st)
	case ast.StmtBlock:
		data, ok := st.Data.(ast.BlockData)
		if !ok {
			return fmt.Errorf("lower: block: unexpected payload %T", st.Data)
		}
		return l.scoped(func() error { return l.LowerStmts(data.Stmts) })
	case ast.StmtDef:
		data, ok := st.Data.(ast.DefData)
		if !ok {
			return fmt.Errorf("lower: def: unexpected payload %T", st.Data)
		}
		if !l.opts.TopLevel || l.tab.Depth() != 1 {
			return errorf(ErrUnsupported, st.Span, "subroutine %s must be defined at global scope", data.Name)
		}
		// Lowered into its own function by the driver.
		return nil
	}
	return errorf(ErrUnsupported, st.Span, "statement kind %s", st.Kind)
}

// scoped runs fn inside a fresh scope.
func (l *Lowerer) scoped(fn func() error) error {
	l.tab.EnterScope()
	defer l.tab.ExitScope()
	return fn()
}

func (l *Lowerer) bind(name string, b symbols.Binding) error {
	if err := l.tab.Bind(name, b); err != nil {
		return errorf(ErrRedeclared, b.Span, "%s is already declared in this scope", name)
	}
	if bound, ok := l.tab.Lookup(name); ok {
		trace.Point(l.opts.Tracer, trace.ScopeNode, "bind."+name, bound.Describe(), l.opts.ParentSpan)
	}
	return nil
}

// Resume moves the cursor to the last recorded block, or to the entry
// block when no construct recorded one.
func (l *Lowerer) Resume() {
	if last, ok := l.tab.LastBlock(); ok {
		l.b.SetInsertionPoint(last)
		return
	}
	l.b.SetInsertionPoint(l.fn.Entry)
}

// EmitCleanups deallocates every register this function registered so far.
func (l *Lowerer) EmitCleanups() {
	for _, reg := range l.tab.Registry().CleanupsFor(l.fn.ID) {
		l.b.Emit(mir.Instr{Kind: mir.InstrQDealloc, QDealloc: mir.QDeallocInstr{Reg: reg}})
	}
}
