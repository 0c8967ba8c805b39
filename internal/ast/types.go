package ast

import "qlower/internal/source"

// TypeKind enumerates declarable types.
type TypeKind uint8

const (
	TypeInvalid TypeKind = iota
	TypeQubit
	TypeBit
	TypeInt
	TypeUint
	TypeFloat
	TypeBool
)

func (k TypeKind) String() string {
	switch k {
	case TypeQubit:
		return "qubit"
	case TypeBit:
		return "bit"
	case TypeInt:
		return "int"
	case TypeUint:
		return "uint"
	case TypeFloat:
		return "float"
	case TypeBool:
		return "bool"
	default:
		return "invalid"
	}
}

// Type is a declared type with an optional size designator.
// For qubit and bit the designator is the register length; for numeric
// types it is the bit width and is ignored by lowering.
type Type struct {
	Kind TypeKind
	Size *Expr // nil when absent
	Span source.Span
}

// IsQuantum reports whether values of the type live on the quantum runtime.
func (t *Type) IsQuantum() bool { return t != nil && t.Kind == TypeQubit }

// IsRegister reports whether the type carries a size designator and denotes
// a register rather than a scalar.
func (t *Type) IsRegister() bool {
	return t != nil && t.Size != nil && (t.Kind == TypeQubit || t.Kind == TypeBit)
}
