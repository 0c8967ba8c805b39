package ast

import "qlower/internal/source"

// ExprKind enumerates expression kinds.
type ExprKind uint8

const (
	ExprIntLit ExprKind = iota
	ExprFloatLit
	ExprBoolLit
	ExprStringLit
	ExprIdent
	ExprUnary
	ExprBinary
	ExprParen
	ExprIndex
	ExprCall
	ExprMeasure
)

func (k ExprKind) String() string {
	switch k {
	case ExprIntLit:
		return "IntLit"
	case ExprFloatLit:
		return "FloatLit"
	case ExprBoolLit:
		return "BoolLit"
	case ExprStringLit:
		return "StringLit"
	case ExprIdent:
		return "Ident"
	case ExprUnary:
		return "Unary"
	case ExprBinary:
		return "Binary"
	case ExprParen:
		return "Paren"
	case ExprIndex:
		return "Index"
	case ExprCall:
		return "Call"
	case ExprMeasure:
		return "Measure"
	default:
		return "Unknown"
	}
}

// Expr is an expression node.
type Expr struct {
	Kind ExprKind
	Span source.Span
	Data ExprData
}

// ExprData is implemented by every expression payload.
type ExprData interface {
	exprData()
}

type IntLitData struct {
	Value int64
	Text  string
}

func (IntLitData) exprData() {}

type FloatLitData struct {
	Value float64
	Text  string
}

func (FloatLitData) exprData() {}

type BoolLitData struct{ Value bool }

func (BoolLitData) exprData() {}

type StringLitData struct{ Value string }

func (StringLitData) exprData() {}

type IdentData struct{ Name string }

func (IdentData) exprData() {}

// UnaryOp enumerates prefix operators.
type UnaryOp uint8

const (
	UnaryNeg UnaryOp = iota
	UnaryPlus
	UnaryNot
)

func (op UnaryOp) String() string {
	switch op {
	case UnaryNeg:
		return "-"
	case UnaryPlus:
		return "+"
	case UnaryNot:
		return "!"
	}
	return "?"
}

type UnaryData struct {
	Op      UnaryOp
	Operand *Expr
}

func (UnaryData) exprData() {}

// BinaryOp enumerates infix operators.
type BinaryOp uint8

const (
	BinAdd BinaryOp = iota
	BinSub
	BinMul
	BinDiv
	BinMod
	BinEq
	BinNe
	BinLt
	BinLe
	BinGt
	BinGe
	BinAnd
	BinOr
)

var binaryOpText = [...]string{
	BinAdd: "+", BinSub: "-", BinMul: "*", BinDiv: "/", BinMod: "%",
	BinEq: "==", BinNe: "!=", BinLt: "<", BinLe: "<=", BinGt: ">", BinGe: ">=",
	BinAnd: "&&", BinOr: "||",
}

func (op BinaryOp) String() string {
	if int(op) < len(binaryOpText) {
		return binaryOpText[op]
	}
	return "?"
}

// IsComparison reports whether op yields a boolean from two operands.
func (op BinaryOp) IsComparison() bool { return op >= BinEq && op <= BinGe }

// IsLogical reports whether op is && or ||.
func (op BinaryOp) IsLogical() bool { return op == BinAnd || op == BinOr }

type BinaryData struct {
	Op    BinaryOp
	Left  *Expr
	Right *Expr
}

func (BinaryData) exprData() {}

type ParenData struct{ Inner *Expr }

func (ParenData) exprData() {}

// IndexData is base[index], used for qubit and bit registers.
type IndexData struct {
	Base  *Expr
	Index *Expr
}

func (IndexData) exprData() {}

type CallData struct {
	Name string
	Args []*Expr
}

func (CallData) exprData() {}

// MeasureData is the `measure q` expression.
type MeasureData struct{ Qubit *Expr }

func (MeasureData) exprData() {}

// Unparen strips any number of enclosing parentheses.
func Unparen(e *Expr) *Expr {
	for e != nil && e.Kind == ExprParen {
		e = e.Data.(ParenData).Inner
	}
	return e
}
