// Package driver runs the lowering pipeline over whole programs and files.
//
// Generate turns one parsed program into a validated MIR module: it creates
// the entry scaffolding, lowers subroutines into their own functions, walks
// the program body and finalizes it by releasing every qubit register the
// body allocated. CompileFile and GenerateFiles wrap Generate with loading,
// parsing, diagnostics, timings and the disk cache.
package driver

import (
	"context"
	"fmt"

	"qlower/internal/ast"
	"qlower/internal/lower"
	"qlower/internal/mir"
	"qlower/internal/symbols"
	"qlower/internal/trace"
)

// BodyPrefix names the function holding the lowered program body.
const BodyPrefix = "__internal_qasm_"

// DefaultEntryPoint is used when Options.EntryPoint is empty.
const DefaultEntryPoint = "qasm_main"

// Options configures Generate.
type Options struct {
	// EntryPoint names the wrapper function taking the qubit register.
	EntryPoint string
	// AddMain adds main(argc, argv) driving the runtime around the body.
	AddMain bool
	// Simplify runs mir.SimplifyCFG over every function before validation.
	Simplify bool
	Tracer   trace.Tracer
}

func (o Options) entry() string {
	if o.EntryPoint == "" {
		return DefaultEntryPoint
	}
	return o.EntryPoint
}

// Result is a lowered program.
type Result struct {
	Module *mir.Module
	// FunctionNames lists the scaffolding functions followed by the
	// subroutines in definition order.
	FunctionNames []string
}

// BodyName returns the body function name for the given entry point.
func BodyName(entry string) string { return BodyPrefix + entry }

// Generate lowers prog. The first lowering error stops generation and is
// returned as is (a *lower.Error for source problems); no partial module is
// returned.
func Generate(ctx context.Context, prog *ast.Program, opts Options) (*Result, error) {
	if prog == nil {
		return nil, fmt.Errorf("driver: nil program")
	}
	tracer := opts.Tracer
	if tracer == nil {
		tracer = trace.FromContext(ctx)
	}
	entry := opts.entry()
	span := trace.Begin(tracer, trace.ScopePass, "generate", trace.CurrentSpan(ctx))
	defer span.End(entry)

	g := &generator{
		mod:    mir.NewModule(entry),
		reg:    symbols.NewRegistry(),
		opts:   opts,
		tracer: tracer,
		parent: span.ID(),
	}
	body, err := g.scaffold(entry)
	if err != nil {
		return nil, err
	}
	defs, err := g.declareSubroutines(prog.Stmts)
	if err != nil {
		return nil, err
	}
	consts, err := g.lowerBody(body, prog.Stmts)
	if err != nil {
		return nil, err
	}
	for _, d := range defs {
		if err := g.lowerSubroutine(d, consts); err != nil {
			return nil, err
		}
	}
	if opts.Simplify {
		mir.SimplifyModule(g.mod)
	}
	if err := mir.Validate(g.mod); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidIR, err)
	}
	return &Result{Module: g.mod, FunctionNames: g.reg.FunctionNames()}, nil
}

type generator struct {
	mod    *mir.Module
	reg    *symbols.Registry
	opts   Options
	tracer trace.Tracer
	parent uint64
}

type subroutine struct {
	fn  *mir.Func
	def ast.DefData
}

// addFunc creates a function and records its name in the registry.
func (g *generator) addFunc(name string, result mir.Type) (*mir.Func, error) {
	f, err := g.mod.AddFunc(name, result)
	if err != nil {
		return nil, err
	}
	g.reg.AddFunctionName(name)
	return f, nil
}

// scaffold creates main (optionally), the body function and the entry
// wrapper, in that order, and returns the body function.
func (g *generator) scaffold(entry string) (*mir.Func, error) {
	var mainFn *mir.Func
	if g.opts.AddMain {
		f, err := g.addFunc("main", mir.TypeInt)
		if err != nil {
			return nil, err
		}
		mainFn = f
	}
	body, err := g.addFunc(BodyName(entry), mir.TypeVoid)
	if err != nil {
		return nil, err
	}
	wrapper, err := g.addFunc(entry, mir.TypeVoid)
	if err != nil {
		return nil, err
	}

	if mainFn != nil {
		b := mir.NewBuilder(mainFn)
		argc := b.AddParam("argc", mir.TypeInt)
		argv := b.AddParam("argv", mir.TypeMem)
		b.Emit(mir.Instr{Kind: mir.InstrRuntime, Runtime: mir.RuntimeInstr{Op: mir.RuntimeInit, Args: []mir.ValueID{argc, argv}}})
		b.Emit(mir.Instr{Kind: mir.InstrCall, Type: mir.TypeVoid, Call: mir.CallInstr{Callee: body.Name}})
		b.Emit(mir.Instr{Kind: mir.InstrRuntime, Runtime: mir.RuntimeInstr{Op: mir.RuntimeFinalize}})
		b.Terminate(mir.ReturnValue(b.ConstInt(0, mainFn.Span)))
	}

	b := mir.NewBuilder(wrapper)
	qreg := b.AddParam("qreg", mir.TypeQreg)
	b.Emit(mir.Instr{Kind: mir.InstrRuntime, Runtime: mir.RuntimeInstr{Op: mir.RuntimeSetQreg, Args: []mir.ValueID{qreg}}})
	b.Emit(mir.Instr{Kind: mir.InstrCall, Type: mir.TypeVoid, Call: mir.CallInstr{Callee: body.Name}})
	b.Emit(mir.Instr{Kind: mir.InstrRuntime, Runtime: mir.RuntimeInstr{Op: mir.RuntimeFinalize}})
	b.Terminate(mir.Return())
	return body, nil
}

// declareSubroutines creates a function with typed parameters for every
// top-level def so calls may precede definitions.
func (g *generator) declareSubroutines(stmts []*ast.Stmt) ([]subroutine, error) {
	var defs []subroutine
	for _, st := range stmts {
		if st == nil || st.Kind != ast.StmtDef {
			continue
		}
		data, ok := st.Data.(ast.DefData)
		if !ok {
			return nil, fmt.Errorf("driver: def: unexpected payload %T", st.Data)
		}
		if data.Name == "print" {
			return nil, &lower.Error{Kind: lower.ErrRedeclared, Span: st.Span, Msg: "print is a builtin and cannot be redefined"}
		}
		if g.reg.HasFunction(data.Name) {
			return nil, &lower.Error{Kind: lower.ErrRedeclared, Span: st.Span, Msg: fmt.Sprintf("function %s is already defined", data.Name)}
		}
		result, err := lower.ResultType(data.Result)
		if err != nil {
			return nil, err
		}
		f, err := g.addFunc(data.Name, result)
		if err != nil {
			return nil, err
		}
		f.Span = st.Span
		b := mir.NewBuilder(f)
		for _, p := range data.Params {
			t, err := lower.ParamType(p.Type)
			if err != nil {
				return nil, err
			}
			b.AddParam(p.Name, t)
		}
		defs = append(defs, subroutine{fn: f, def: data})
	}
	return defs, nil
}

// lowerBody walks the program into the body function and finalizes it.
// The returned map holds the global constants subroutines may see.
func (g *generator) lowerBody(body *mir.Func, stmts []*ast.Stmt) (map[string]int64, error) {
	span := trace.Begin(g.tracer, trace.ScopeFunc, body.Name, g.parent)
	defer span.End("")

	tab := symbols.NewTable(g.reg)
	b := mir.NewBuilder(body)
	l := lower.New(g.mod, b, tab, lower.Options{Tracer: g.tracer, ParentSpan: span.ID(), TopLevel: true})
	if err := l.LowerStmts(stmts); err != nil {
		return nil, err
	}
	l.Resume()
	if !b.Terminated() {
		l.EmitCleanups()
		b.Terminate(mir.Return())
	}
	return tab.Constants(), nil
}

func (g *generator) lowerSubroutine(d subroutine, consts map[string]int64) error {
	span := trace.Begin(g.tracer, trace.ScopeFunc, d.fn.Name, g.parent)
	defer span.End("")

	tab := symbols.NewTable(g.reg)
	tab.SeedConstants(consts)
	l := lower.New(g.mod, mir.NewBuilder(d.fn), tab, lower.Options{Tracer: g.tracer, ParentSpan: span.ID()})
	return l.LowerSubroutine(d.def)
}
