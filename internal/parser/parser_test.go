package parser_test

import (
	"fmt"
	"strings"
	"testing"

	"qlower/internal/ast"
	"qlower/internal/diag"
	"qlower/internal/lexer"
	"qlower/internal/parser"
	"qlower/internal/source"
)

func parse(t *testing.T, src string) (*ast.Program, *diag.Bag) {
	t.Helper()
	fs := source.NewFileSet()
	file := fs.Get(fs.AddVirtual("test.qasm", []byte(src)))
	bag := diag.NewBag(32)
	rep := diag.BagReporter{Bag: bag}
	lx := lexer.New(file, lexer.Options{Reporter: rep})
	res := parser.ParseFile(file, lx, parser.Options{Reporter: rep, MaxErrors: 32})
	return res.Program, bag
}

func diagnosticsSummary(bag *diag.Bag) string {
	if bag.Len() == 0 {
		return "<none>"
	}
	lines := make([]string, 0, bag.Len())
	for _, d := range bag.Items() {
		lines = append(lines, fmt.Sprintf("[%s] %s", d.Code.ID(), d.Message))
	}
	return strings.Join(lines, "; ")
}

func mustParse(t *testing.T, src string) *ast.Program {
	t.Helper()
	prog, bag := parse(t, src)
	if bag.Len() != 0 {
		t.Fatalf("unexpected diagnostics: %s", diagnosticsSummary(bag))
	}
	return prog
}

func TestHeaderAndIncludes(t *testing.T) {
	prog := mustParse(t, `OPENQASM 3;
include "stdgates.inc";
qubit q;`)
	if prog.Version != "3" {
		t.Fatalf("version = %q", prog.Version)
	}
	if len(prog.Includes) != 1 || prog.Includes[0] != "stdgates.inc" {
		t.Fatalf("includes = %v", prog.Includes)
	}
	if len(prog.Stmts) != 1 {
		t.Fatalf("stmts = %d", len(prog.Stmts))
	}
}

func TestDeclarations(t *testing.T) {
	prog := mustParse(t, `qubit[4] q; qreg r[2]; bit c; creg d[3]; const int n = 4; float theta = 0.5; bool ok;`)
	tests := []struct {
		name     string
		kind     ast.TypeKind
		register bool
		isConst  bool
		legacy   bool
		hasInit  bool
	}{
		{"q", ast.TypeQubit, true, false, false, false},
		{"r", ast.TypeQubit, true, false, true, false},
		{"c", ast.TypeBit, false, false, false, false},
		{"d", ast.TypeBit, true, false, true, false},
		{"n", ast.TypeInt, false, true, false, true},
		{"theta", ast.TypeFloat, false, false, false, true},
		{"ok", ast.TypeBool, false, false, false, false},
	}
	if len(prog.Stmts) != len(tests) {
		t.Fatalf("stmts = %d, want %d", len(prog.Stmts), len(tests))
	}
	for i, tt := range tests {
		s := prog.Stmts[i]
		if s.Kind != ast.StmtDecl {
			t.Fatalf("stmt %d kind = %v", i, s.Kind)
		}
		d := s.Data.(ast.DeclData)
		if d.Name != tt.name || d.Type.Kind != tt.kind || d.Type.IsRegister() != tt.register ||
			d.Const != tt.isConst || d.Legacy != tt.legacy || (d.Init != nil) != tt.hasInit {
			t.Fatalf("stmt %d = %+v (type %+v), want %+v", i, d, d.Type, tt)
		}
	}
}

func TestRangeLoopKeepsBoundText(t *testing.T) {
	prog := mustParse(t, `const int n = 8;
for int i in [0:2:n] { h q[i]; }`)
	loop := prog.Stmts[1].Data.(ast.LoopData)
	if loop.Sig.Kind != ast.SigRange {
		t.Fatalf("sig kind = %v", loop.Sig.Kind)
	}
	r := loop.Sig.Data.(ast.RangeSig)
	if r.Var.Name != "i" || r.Var.Type == nil || r.Var.Type.Kind != ast.TypeInt {
		t.Fatalf("loop var = %+v", r.Var)
	}
	if r.Start.Text != "0" || r.Step.Text != "2" || r.End.Text != "n" {
		t.Fatalf("bounds = %q %q %q", r.Start.Text, r.Step.Text, r.End.Text)
	}
	if !r.Start.IsLiteral() || r.End.IsLiteral() {
		t.Fatal("literal classification wrong")
	}
	if len(loop.Body) != 1 || loop.Body[0].Kind != ast.StmtGate {
		t.Fatalf("body = %+v", loop.Body)
	}
}

func TestTwoFieldRangeHasNoStep(t *testing.T) {
	prog := mustParse(t, `for i in [1:4] {}`)
	r := prog.Stmts[0].Data.(ast.LoopData).Sig.Data.(ast.RangeSig)
	if r.Step != nil || r.Start.Text != "1" || r.End.Text != "4" || r.Var.Type != nil {
		t.Fatalf("range = %+v", r)
	}
}

func TestSetAndWhileLoops(t *testing.T) {
	prog := mustParse(t, `for x in {1, 2, 3} { print(x); }
while (i < 10) { i += 1; if (i == 5) break; else continue; }`)
	set := prog.Stmts[0].Data.(ast.LoopData)
	if set.Sig.Kind != ast.SigSet || len(set.Sig.Data.(ast.SetSig).Elems) != 3 {
		t.Fatalf("set sig = %+v", set.Sig)
	}
	call := set.Body[0].Data.(ast.ExprStmtData).Expr
	if call.Kind != ast.ExprCall || call.Data.(ast.CallData).Name != "print" {
		t.Fatalf("body call = %+v", call)
	}

	wh := prog.Stmts[1].Data.(ast.LoopData)
	if wh.Sig.Kind != ast.SigCond {
		t.Fatalf("while sig = %v", wh.Sig.Kind)
	}
	cond := wh.Sig.Data.(ast.CondSig).Cond
	if cond.Kind != ast.ExprBinary || cond.Data.(ast.BinaryData).Op != ast.BinLt {
		t.Fatalf("cond = %+v", cond)
	}
	ifs := wh.Body[1].Data.(ast.IfData)
	if ifs.Then[0].Kind != ast.StmtBreak || ifs.Else[0].Kind != ast.StmtContinue {
		t.Fatalf("if = %+v", ifs)
	}
	if wh.Body[0].Data.(ast.AssignData).Op != ast.AssignAdd {
		t.Fatal("expected +=")
	}
}

func TestQuantumStatements(t *testing.T) {
	prog := mustParse(t, `h q[0]; cx q[0], q[1]; rx(theta / 2) q[2];
c[0] = measure q[0]; measure q[1] -> c[1]; reset q[0]; barrier q;`)
	kinds := []ast.StmtKind{ast.StmtGate, ast.StmtGate, ast.StmtGate, ast.StmtAssign, ast.StmtMeasure, ast.StmtReset, ast.StmtBarrier}
	for i, k := range kinds {
		if prog.Stmts[i].Kind != k {
			t.Fatalf("stmt %d = %v, want %v", i, prog.Stmts[i].Kind, k)
		}
	}
	rx := prog.Stmts[2].Data.(ast.GateData)
	if rx.Name != "rx" || len(rx.Params) != 1 || len(rx.Qubits) != 1 {
		t.Fatalf("rx = %+v", rx)
	}
	cx := prog.Stmts[1].Data.(ast.GateData)
	if len(cx.Qubits) != 2 || cx.Qubits[1].Kind != ast.ExprIndex {
		t.Fatalf("cx = %+v", cx)
	}
	if prog.Stmts[3].Data.(ast.AssignData).Value.Kind != ast.ExprMeasure {
		t.Fatal("expected measure expression")
	}
	if prog.Stmts[4].Data.(ast.MeasureStmtData).Target == nil {
		t.Fatal("measure arrow target lost")
	}
}

func TestPrecedence(t *testing.T) {
	prog := mustParse(t, `x = 1 + 2 * 3 < 7 && !b;`)
	v := prog.Stmts[0].Data.(ast.AssignData).Value
	and := v.Data.(ast.BinaryData)
	if and.Op != ast.BinAnd {
		t.Fatalf("top op = %v", and.Op)
	}
	lt := and.Left.Data.(ast.BinaryData)
	if lt.Op != ast.BinLt {
		t.Fatalf("left op = %v", lt.Op)
	}
	add := lt.Left.Data.(ast.BinaryData)
	if add.Op != ast.BinAdd || add.Right.Data.(ast.BinaryData).Op != ast.BinMul {
		t.Fatal("multiplication must bind tighter than addition")
	}
	if and.Right.Kind != ast.ExprUnary {
		t.Fatal("expected unary not")
	}
}

func TestDef(t *testing.T) {
	prog := mustParse(t, `def flip(int k, qubit a) -> bit { x a; return measure a; }`)
	d := prog.Stmts[0].Data.(ast.DefData)
	if d.Name != "flip" || len(d.Params) != 2 || d.Params[1].Type.Kind != ast.TypeQubit || d.Result.Kind != ast.TypeBit {
		t.Fatalf("def = %+v", d)
	}
	if len(d.Body) != 2 || d.Body[1].Kind != ast.StmtReturn {
		t.Fatalf("body = %+v", d.Body)
	}
}

func TestSyntaxErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		code diag.Code
	}{
		{"missing semicolon", "qubit q", diag.SynExpectSemicolon},
		{"for without in", "for i {1} {}", diag.SynForMissingIn},
		{"bad range", "for i in [1] {}", diag.SynForBadHeader},
		{"bad header", "for i in 3 {}", diag.SynForBadHeader},
		{"const without init", "const int n;", diag.SynExpectExpression},
		{"version", "OPENQASM 2.0;", diag.SynBadVersion},
		{"unclosed block", "while (true) { h q;", diag.SynUnclosedDelimiter},
		{"stray brace", "} h q;", diag.SynUnexpectedToken},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, bag := parse(t, tt.src)
			if bag.Len() == 0 || bag.Items()[0].Code != tt.code {
				t.Fatalf("got %s, want %s", diagnosticsSummary(bag), tt.code.ID())
			}
		})
	}
}

func TestRecoveryContinuesAfterError(t *testing.T) {
	prog, bag := parse(t, "qubit q\nh q; x q;")
	if bag.Len() != 1 {
		t.Fatalf("diagnostics: %s", diagnosticsSummary(bag))
	}
	if len(prog.Stmts) == 0 || prog.Stmts[len(prog.Stmts)-1].Kind != ast.StmtGate {
		t.Fatalf("parser did not recover: %+v", prog.Stmts)
	}
}

func TestMaxErrorsStopsParsing(t *testing.T) {
	fs := source.NewFileSet()
	file := fs.Get(fs.AddVirtual("e.qasm", []byte("1; 2; 3; 4;")))
	bag := diag.NewBag(10)
	lx := lexer.New(file, lexer.Options{})
	res := parser.ParseFile(file, lx, parser.Options{Reporter: diag.BagReporter{Bag: bag}, MaxErrors: 2})
	if bag.Len() != 2 || res.Errors != 2 {
		t.Fatalf("bag = %d, errors = %d", bag.Len(), res.Errors)
	}
}
