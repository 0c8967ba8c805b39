package driver

import (
	"errors"

	"qlower/internal/diag"
	"qlower/internal/lower"
	"qlower/internal/source"
)

// ErrInvalidIR wraps validator failures of a generated module.
var ErrInvalidIR = errors.New("generated MIR is invalid")

var lowerCodes = map[lower.ErrorKind]diag.Code{
	lower.ErrBreakOutsideLoop:    diag.LowBreakOutsideLoop,
	lower.ErrContinueOutsideLoop: diag.LowContinueOutsideLoop,
	lower.ErrBadLoopSignature:    diag.LowBadLoopSignature,
	lower.ErrRangeStart:          diag.LowRangeStart,
	lower.ErrRangeStep:           diag.LowRangeStep,
	lower.ErrRangeEnd:            diag.LowRangeEnd,
	lower.ErrNotConstant:         diag.LowNotConstant,
	lower.ErrUndefined:           diag.LowUndefined,
	lower.ErrRedeclared:          diag.LowRedeclared,
	lower.ErrAssignLoopVar:       diag.LowAssignLoopVar,
	lower.ErrType:                diag.LowType,
	lower.ErrUnsupported:         diag.LowUnsupported,
}

// CodeFor returns the diagnostic code of a lowering error kind.
func CodeFor(kind lower.ErrorKind) diag.Code {
	if code, ok := lowerCodes[kind]; ok {
		return code
	}
	return diag.UnknownCode
}

// Diagnostic converts a Generate error into a diagnostic. Lowering errors
// keep their span; anything else is reported without a location.
func Diagnostic(err error) diag.Diagnostic {
	if lerr, ok := lower.AsError(err); ok {
		return diag.NewError(CodeFor(lerr.Kind), lerr.Span, lerr.Msg)
	}
	if errors.Is(err, ErrInvalidIR) {
		return diag.NewError(diag.LowInvalidIR, source.Span{}, err.Error())
	}
	return diag.NewError(diag.UnknownCode, source.Span{}, err.Error())
}

// addOrGrow adds d to bag, growing the bag when it is already full so
// that pipeline-level diagnostics are never lost.
func addOrGrow(bag *diag.Bag, d diag.Diagnostic) {
	if bag == nil || bag.Add(d) {
		return
	}
	overflow := diag.NewBag(bag.Len() + 1)
	overflow.Add(d)
	bag.Merge(overflow)
}
