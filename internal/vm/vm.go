// Package vm interprets MIR modules. Quantum operations and printing are
// delegated to a Runtime, so tests can observe exactly what a lowered
// program does.
package vm

import (
	"fmt"

	"qlower/internal/mir"
	"qlower/internal/source"
	"qlower/internal/trace"
)

const (
	defaultStepLimit = 1_000_000
	maxCallDepth     = 1024
)

// Options configures VM execution.
type Options struct {
	// StepLimit bounds executed instructions plus terminators per Call;
	// 0 selects the default, negative disables the limit.
	StepLimit int64
	Tracer    trace.Tracer
}

// VM is a direct MIR interpreter.
type VM struct {
	M     *mir.Module
	RT    Runtime
	opts  Options
	stack []*frame
	steps int64
}

type frame struct {
	fn   *mir.Func
	regs []Value
	span source.Span
}

// New creates a VM executing m against rt.
func New(m *mir.Module, rt Runtime, opts Options) *VM {
	if opts.StepLimit == 0 {
		opts.StepLimit = defaultStepLimit
	}
	if opts.Tracer == nil {
		opts.Tracer = trace.Nop
	}
	return &VM{M: m, RT: rt, opts: opts}
}

// Steps reports how many steps the last Call executed.
func (vm *VM) Steps() int64 { return vm.steps }

// Call runs the named function to completion. Errors are *VMError.
func (vm *VM) Call(name string, args ...Value) (Value, error) {
	vm.steps = 0
	vm.stack = vm.stack[:0]
	res, vmErr := vm.call(name, args)
	if vmErr != nil {
		return Value{}, vmErr
	}
	return res, nil
}

func (vm *VM) call(name string, args []Value) (Value, *VMError) {
	fn, ok := vm.M.Func(name)
	if !ok {
		return Value{}, vm.makeError(PanicUnknownFunction, fmt.Sprintf("unknown function %s", name))
	}
	if len(args) != len(fn.Params) {
		return Value{}, vm.makeError(PanicBadArity, fmt.Sprintf("%s expects %d arguments, got %d", name, len(fn.Params), len(args)))
	}
	if len(vm.stack) >= maxCallDepth {
		return Value{}, vm.makeError(PanicStackOverflow, fmt.Sprintf("call depth exceeds %d", maxCallDepth))
	}

	fr := &frame{fn: fn, regs: make([]Value, len(fn.Values)), span: fn.Span}
	for i, p := range fn.Params {
		fr.regs[p.Value] = args[i]
	}
	vm.stack = append(vm.stack, fr)
	defer func() { vm.stack = vm.stack[:len(vm.stack)-1] }()

	span := trace.Begin(vm.opts.Tracer, trace.ScopeFunc, "vm.call", 0).WithExtra("func", name)
	res, err := vm.run(fr)
	if err != nil {
		span.End(err.Error())
	} else {
		span.End("")
	}
	return res, err
}

func (vm *VM) step() *VMError {
	vm.steps++
	if vm.opts.StepLimit > 0 && vm.steps > vm.opts.StepLimit {
		return vm.makeError(PanicStepLimit, fmt.Sprintf("%s after %d steps", ErrStepLimit, vm.opts.StepLimit))
	}
	return nil
}

func (vm *VM) run(fr *frame) (Value, *VMError) {
	bb := fr.fn.Entry
	for {
		block := fr.fn.Block(bb)
		if block == nil {
			return Value{}, vm.makeError(PanicOutOfBounds, fmt.Sprintf("%s: no block bb%d", fr.fn.Name, bb))
		}
		for i := range block.Instrs {
			ins := &block.Instrs[i]
			fr.span = ins.Span
			if err := vm.step(); err != nil {
				return Value{}, err
			}
			if err := vm.exec(fr, ins); err != nil {
				return Value{}, err
			}
		}
		if err := vm.step(); err != nil {
			return Value{}, err
		}
		term := &block.Term
		switch term.Kind {
		case mir.TermReturn:
			if term.Return.HasValue {
				return fr.regs[term.Return.Value], nil
			}
			return Value{}, nil
		case mir.TermGoto:
			bb = term.Goto.Target
		case mir.TermIf:
			cond := fr.regs[term.If.Cond]
			if cond.Kind != VKBool {
				return Value{}, vm.typeMismatch("bool", cond)
			}
			if cond.Bool {
				bb = term.If.Then
			} else {
				bb = term.If.Else
			}
		case mir.TermUnreachable:
			return Value{}, vm.makeError(PanicUnreachable, "reached unreachable code in "+fr.fn.Name)
		default:
			return Value{}, vm.unimplemented("terminator " + mir.FormatTerm(term))
		}
	}
}
