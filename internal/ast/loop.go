package ast

import "qlower/internal/source"

// SigKind tells the loop forms apart.
type SigKind uint8

const (
	SigSet   SigKind = iota + 1 // for x in {a, b, c}
	SigRange                    // for x in [start:step:end]
	SigCond                     // while (cond)
)

func (k SigKind) String() string {
	switch k {
	case SigSet:
		return "set"
	case SigRange:
		return "range"
	case SigCond:
		return "cond"
	}
	return "unknown"
}

// LoopSignature is the header of a loop.
type LoopSignature struct {
	Kind SigKind
	Span source.Span
	Data SigData
}

type SigData interface {
	sigData()
}

// LoopVar is the induction variable of a for loop.
type LoopVar struct {
	Name string
	Type *Type // nil when untyped
	Span source.Span
}

type SetSig struct {
	Var   LoopVar
	Elems []*Expr
}

func (SetSig) sigData() {}

// RangeBound keeps the bound expression and its raw source text.
type RangeBound struct {
	Expr *Expr
	Text string
}

// IsLiteral reports whether the bound is written as a plain integer.
func (b *RangeBound) IsLiteral() bool {
	return b != nil && b.Expr != nil && b.Expr.Kind == ExprIntLit
}

type RangeSig struct {
	Var   LoopVar
	Start *RangeBound
	Step  *RangeBound // nil means 1
	End   *RangeBound
}

func (RangeSig) sigData() {}

type CondSig struct {
	Cond *Expr
}

func (CondSig) sigData() {}
