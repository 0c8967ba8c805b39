package lower

import (
	"errors"
	"fmt"

	"qlower/internal/source"
)

// ErrorKind classifies lowering failures.
type ErrorKind uint8

const (
	ErrBreakOutsideLoop ErrorKind = iota + 1
	ErrContinueOutsideLoop
	ErrBadLoopSignature
	ErrRangeStart
	ErrRangeStep
	ErrRangeEnd
	ErrNotConstant
	ErrUndefined
	ErrRedeclared
	ErrAssignLoopVar
	ErrType
	ErrUnsupported
)

var kindNames = [...]string{
	ErrBreakOutsideLoop:    "break outside loop",
	ErrContinueOutsideLoop: "continue outside loop",
	ErrBadLoopSignature:    "bad loop signature",
	ErrRangeStart:          "invalid range start",
	ErrRangeStep:           "invalid range step",
	ErrRangeEnd:            "invalid range end",
	ErrNotConstant:         "not a constant",
	ErrUndefined:           "undefined name",
	ErrRedeclared:          "redeclared name",
	ErrAssignLoopVar:       "assignment to loop variable",
	ErrType:                "type error",
	ErrUnsupported:         "unsupported construct",
}

func (k ErrorKind) String() string {
	if int(k) < len(kindNames) && kindNames[k] != "" {
		return kindNames[k]
	}
	return fmt.Sprintf("ErrorKind(%d)", uint8(k))
}

// Error is the failure of lowering one compilation unit.
type Error struct {
	Kind ErrorKind
	Span source.Span
	Msg  string
}

func (e *Error) Error() string {
	return e.Kind.String() + ": " + e.Msg
}

func errorf(kind ErrorKind, span source.Span, format string, args ...any) *Error {
	return &Error{Kind: kind, Span: span, Msg: fmt.Sprintf(format, args...)}
}

// AsError extracts the lowering error from err.
func AsError(err error) (*Error, bool) {
	var le *Error
	if errors.As(err, &le) {
		return le, true
	}
	return nil, false
}

// KindOf returns the kind of a lowering error, or 0.
func KindOf(err error) ErrorKind {
	if le, ok := AsError(err); ok {
		return le.Kind
	}
	return 0
}
