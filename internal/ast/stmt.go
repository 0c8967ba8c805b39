package ast

import "qlower/internal/source"

// StmtKind enumerates statement kinds.
type StmtKind uint8

const (
	StmtDecl StmtKind = iota
	StmtAssign
	StmtExpr
	StmtGate
	StmtMeasure
	StmtReset
	StmtBarrier
	StmtIf
	StmtLoop
	StmtBreak
	StmtContinue
	StmtReturn
	StmtBlock
	StmtDef
)

func (k StmtKind) String() string {
	switch k {
	case StmtDecl:
		return "Decl"
	case StmtAssign:
		return "Assign"
	case StmtExpr:
		return "Expr"
	case StmtGate:
		return "Gate"
	case StmtMeasure:
		return "Measure"
	case StmtReset:
		return "Reset"
	case StmtBarrier:
		return "Barrier"
	case StmtIf:
		return "If"
	case StmtLoop:
		return "Loop"
	case StmtBreak:
		return "Break"
	case StmtContinue:
		return "Continue"
	case StmtReturn:
		return "Return"
	case StmtBlock:
		return "Block"
	case StmtDef:
		return "Def"
	default:
		return "Unknown"
	}
}

// Stmt is a statement node.
type Stmt struct {
	Kind StmtKind
	Span source.Span
	Data StmtData
}

// StmtData is implemented by every statement payload.
type StmtData interface {
	stmtData()
}

// DeclData covers qubit/qreg/bit/creg and classical declarations.
type DeclData struct {
	Name   string
	Type   *Type
	Init   *Expr // nil when absent
	Const  bool
	Legacy bool // declared with qreg/creg
}

func (DeclData) stmtData() {}

// AssignOp enumerates assignment operators.
type AssignOp uint8

const (
	AssignSet AssignOp = iota
	AssignAdd
	AssignSub
)

func (op AssignOp) String() string {
	switch op {
	case AssignAdd:
		return "+="
	case AssignSub:
		return "-="
	}
	return "="
}

type AssignData struct {
	Target *Expr
	Op     AssignOp
	Value  *Expr
}

func (AssignData) stmtData() {}

type ExprStmtData struct{ Expr *Expr }

func (ExprStmtData) stmtData() {}

// GateData is a gate application such as `rx(theta) q[0];`.
type GateData struct {
	Name   string
	Params []*Expr
	Qubits []*Expr
}

func (GateData) stmtData() {}

// MeasureStmtData is `measure q -> c;`; Target is nil for a bare measure.
type MeasureStmtData struct {
	Qubit  *Expr
	Target *Expr
}

func (MeasureStmtData) stmtData() {}

type ResetData struct{ Qubit *Expr }

func (ResetData) stmtData() {}

type BarrierData struct{ Qubits []*Expr }

func (BarrierData) stmtData() {}

type IfData struct {
	Cond *Expr
	Then []*Stmt
	Else []*Stmt // nil without else
}

func (IfData) stmtData() {}

// LoopData covers for and while loops; Sig tells them apart.
type LoopData struct {
	Sig  *LoopSignature
	Body []*Stmt
}

func (LoopData) stmtData() {}

type BreakData struct{}

func (BreakData) stmtData() {}

type ContinueData struct{}

func (ContinueData) stmtData() {}

type ReturnData struct{ Value *Expr }

func (ReturnData) stmtData() {}

type BlockData struct{ Stmts []*Stmt }

func (BlockData) stmtData() {}

// DefData is a subroutine definition.
type DefData struct {
	Name   string
	Params []Param
	Result *Type // nil for no return value
	Body   []*Stmt
}

func (DefData) stmtData() {}
