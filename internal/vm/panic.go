package vm

import (
	"errors"
	"fmt"
	"strings"

	"qlower/internal/source"
)

// PanicCode identifies the type of VM panic.
type PanicCode int

// Stable panic codes - do not change values.
const (
	PanicTypeMismatch    PanicCode = 1003 // VM1003: type mismatch
	PanicOutOfBounds     PanicCode = 1004 // VM1004: out of bounds
	PanicDivByZero       PanicCode = 1005 // VM1005: integer division by zero
	PanicUnknownFunction PanicCode = 1006 // VM1006: call to a missing function
	PanicBadArity        PanicCode = 1007 // VM1007: wrong number of arguments
	PanicReleased        PanicCode = 1008 // VM1008: use of a released qubit register
	PanicStackOverflow   PanicCode = 1009 // VM1009: call depth exceeded
	PanicStepLimit       PanicCode = 1010 // VM1010: step limit exceeded
	PanicUnreachable     PanicCode = 1011 // VM1011: reached an unreachable terminator
	PanicRuntime         PanicCode = 1012 // VM1012: runtime service failed
	PanicUnimplemented   PanicCode = 1999 // VM1999: unimplemented opcode/terminator
)

// ErrStepLimit matches VM errors raised when Options.StepLimit is exceeded.
var ErrStepLimit = errors.New("step limit exceeded")

// String returns the code as "VM1004" format.
func (c PanicCode) String() string {
	return fmt.Sprintf("VM%d", c)
}

// BacktraceFrame represents one frame in the panic backtrace.
type BacktraceFrame struct {
	FuncName string
	Span     source.Span
}

// VMError represents a runtime panic in the VM.
type VMError struct {
	Code      PanicCode
	Message   string
	Span      source.Span      // Location where panic occurred
	Backtrace []BacktraceFrame // Stack frames from top to bottom
	cause     error
}

// Error implements the error interface.
func (p *VMError) Error() string {
	return fmt.Sprintf("panic %s: %s", p.Code, p.Message)
}

func (p *VMError) Unwrap() error {
	if p.Code == PanicStepLimit {
		return ErrStepLimit
	}
	return p.cause
}

// FormatWithFiles formats the panic with resolved file:line:col information.
func (p *VMError) FormatWithFiles(files *source.FileSet) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "panic %s: %s\n", p.Code, p.Message)
	sb.WriteString("at ")
	sb.WriteString(formatSpan(p.Span, files))
	sb.WriteString("\n")

	if len(p.Backtrace) > 0 {
		sb.WriteString("backtrace:\n")
		for i, frame := range p.Backtrace {
			fmt.Fprintf(&sb, "  %d: %s at %s\n", i, frame.FuncName, formatSpan(frame.Span, files))
		}
	}
	return sb.String()
}

// formatSpan formats a span as "file:line:col" or "<no-span>" if empty.
func formatSpan(span source.Span, files *source.FileSet) string {
	if files == nil || (span.Start == 0 && span.End == 0) {
		return "<no-span>"
	}
	if files.Get(span.File) == nil {
		return "<no-span>"
	}
	return files.Position(span).String()
}

// makeError builds a VMError carrying the current call stack.
func (vm *VM) makeError(code PanicCode, msg string) *VMError {
	e := &VMError{Code: code, Message: msg}
	if n := len(vm.stack); n > 0 {
		e.Span = vm.stack[n-1].span
		e.Backtrace = make([]BacktraceFrame, n)
		for i := n - 1; i >= 0; i-- {
			fr := vm.stack[i]
			e.Backtrace[n-1-i] = BacktraceFrame{FuncName: fr.fn.Name, Span: fr.span}
		}
	}
	return e
}

func (vm *VM) typeMismatch(expected string, got Value) *VMError {
	return vm.makeError(PanicTypeMismatch, fmt.Sprintf("expected %s, got %s", expected, got.Kind))
}

func (vm *VM) outOfBounds(index, length int64) *VMError {
	return vm.makeError(PanicOutOfBounds, fmt.Sprintf("index %d out of bounds for length %d", index, length))
}

func (vm *VM) runtimeFailure(op string, err error) *VMError {
	e := vm.makeError(PanicRuntime, fmt.Sprintf("%s: %v", op, err))
	e.cause = err
	return e
}

func (vm *VM) unimplemented(what string) *VMError {
	return vm.makeError(PanicUnimplemented, "unimplemented: "+what)
}
