package symbols

import (
	"strings"

	"qlower/internal/mir"
	"qlower/internal/source"
)

// SymbolKind classifies what a binding names.
type SymbolKind uint8

const (
	SymbolInvalid SymbolKind = iota
	SymbolConst              // compile-time integer, no IR value
	SymbolVar                // classical variable living in a memory region
	SymbolValue              // read-only SSA value (loop variables)
	SymbolQreg               // qubit register handle
	SymbolQubit              // single qubit handle
)

func (k SymbolKind) String() string {
	switch k {
	case SymbolConst:
		return "const"
	case SymbolVar:
		return "var"
	case SymbolValue:
		return "value"
	case SymbolQreg:
		return "qreg"
	case SymbolQubit:
		return "qubit"
	default:
		return "invalid"
	}
}

// SymbolFlags encode misc attributes for quick checks.
type SymbolFlags uint8

const (
	FlagReadOnly SymbolFlags = 1 << iota
	FlagRegister             // indexable register rather than a scalar
	FlagParam
	FlagGlobal
)

// Strings returns a slice of textual flag labels.
func (f SymbolFlags) Strings() []string {
	if f == 0 {
		return nil
	}
	labels := make([]string, 0, 4)
	if f&FlagReadOnly != 0 {
		labels = append(labels, "readonly")
	}
	if f&FlagRegister != 0 {
		labels = append(labels, "register")
	}
	if f&FlagParam != 0 {
		labels = append(labels, "param")
	}
	if f&FlagGlobal != 0 {
		labels = append(labels, "global")
	}
	return labels
}

// Binding is what a name resolves to.
type Binding struct {
	Kind  SymbolKind
	Value mir.ValueID
	// Type is the value type, or the cell type for SymbolVar.
	Type      mir.Type
	Size      int64 // register length, 0 for scalars
	Const     int64 // value of a SymbolConst
	Attrs     SymbolFlags
	IsLoopVar bool
	Span      source.Span
}

// Describe renders the kind and flags, e.g. "var readonly,global".
func (b Binding) Describe() string {
	flags := b.Attrs.Strings()
	if len(flags) == 0 {
		return b.Kind.String()
	}
	return b.Kind.String() + " " + strings.Join(flags, ",")
}

// Assignable reports whether the name may appear on the left of `=`.
func (b Binding) Assignable() bool {
	return b.Kind == SymbolVar && b.Attrs&FlagReadOnly == 0 && !b.IsLoopVar
}
