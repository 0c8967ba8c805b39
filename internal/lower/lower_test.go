package lower_test

import (
	"fmt"
	"strings"
	"testing"

	"qlower/internal/ast"
	"qlower/internal/diag"
	"qlower/internal/lexer"
	"qlower/internal/lower"
	"qlower/internal/mir"
	"qlower/internal/parser"
	"qlower/internal/source"
	"qlower/internal/symbols"
	"qlower/internal/trace"
)

func parseProgram(t *testing.T, src string) *ast.Program {
	t.Helper()
	fs := source.NewFileSet()
	file := fs.Get(fs.AddVirtual("test.qasm", []byte(src)))
	bag := diag.NewBag(16)
	rep := diag.BagReporter{Bag: bag}
	res := parser.ParseFile(file, lexer.New(file, lexer.Options{Reporter: rep}), parser.Options{Reporter: rep, MaxErrors: 16})
	if bag.Len() != 0 {
		var sb strings.Builder
		for _, d := range bag.Items() {
			fmt.Fprintf(&sb, "%s; ", d.Message)
		}
		t.Fatalf("parse errors: %s", sb.String())
	}
	return res.Program
}

type lowered struct {
	mod *mir.Module
	fn  *mir.Func
	tab *symbols.Table
}

// lowerSource lowers src as a program body and finalizes it the way the
// driver does.
func lowerSource(t *testing.T, src string) (lowered, error) {
	t.Helper()
	prog := parseProgram(t, src)
	mod := mir.NewModule("test")
	fn, err := mod.AddFunc("body", mir.TypeVoid)
	if err != nil {
		t.Fatalf("AddFunc: %v", err)
	}
	b := mir.NewBuilder(fn)
	tab := symbols.NewTable(nil)
	l := lower.New(mod, b, tab, lower.Options{TopLevel: true})
	if err := l.LowerStmts(prog.Stmts); err != nil {
		return lowered{mod: mod, fn: fn, tab: tab}, err
	}
	l.Resume()
	l.EmitCleanups()
	b.Terminate(mir.Return())
	return lowered{mod: mod, fn: fn, tab: tab}, nil
}

func mustLower(t *testing.T, src string) lowered {
	t.Helper()
	res, err := lowerSource(t, src)
	if err != nil {
		t.Fatalf("lower: %v", err)
	}
	if err := mir.Validate(res.mod); err != nil {
		t.Fatalf("validate: %v", err)
	}
	return res
}

func expectGoto(t *testing.T, f *mir.Func, from, to mir.BlockID) {
	t.Helper()
	term := f.Blocks[from].Term
	if term.Kind != mir.TermGoto || term.Goto.Target != to {
		t.Fatalf("bb%d: got %s, want goto bb%d", from, mir.FormatTerm(&term), to)
	}
}

func expectIf(t *testing.T, f *mir.Func, from, then, els mir.BlockID) {
	t.Helper()
	term := f.Blocks[from].Term
	if term.Kind != mir.TermIf || term.If.Then != then || term.If.Else != els {
		t.Fatalf("bb%d: got %s, want if then bb%d else bb%d", from, mir.FormatTerm(&term), then, els)
	}
}

func TestRangeLoopBlockLayout(t *testing.T) {
	res := mustLower(t, `for i in [0:4] { }`)
	f := res.fn
	if len(f.Blocks) != 5 {
		t.Fatalf("blocks = %d, want entry+header+body+inc+exit", len(f.Blocks))
	}
	expectGoto(t, f, 0, 1)
	expectIf(t, f, 1, 2, 4)
	expectGoto(t, f, 2, 3)
	expectGoto(t, f, 3, 1)
	if f.Blocks[4].Term.Kind != mir.TermReturn {
		t.Fatalf("exit block does not return: %s", mir.FormatTerm(&f.Blocks[4].Term))
	}
	if bb, ok := res.tab.LastBlock(); !ok || bb != 4 {
		t.Fatalf("last block = %d, %v; want exit bb4", bb, ok)
	}
}

func TestRangeLoopStepIsAddedInIncrement(t *testing.T) {
	res := mustLower(t, `for i in [1:3:10] { }`)
	inc := res.fn.Blocks[3]
	var step int64 = -1
	for _, ins := range inc.Instrs {
		if ins.Kind == mir.InstrConst {
			step = ins.Const.Int
		}
	}
	if step != 3 {
		t.Fatalf("increment adds %d, want 3", step)
	}
}

func TestBreakAndContinueTargets(t *testing.T) {
	brk := mustLower(t, `for i in [0:4] { break; }`)
	expectGoto(t, brk.fn, 2, 4)

	cont := mustLower(t, `for i in {1, 2} { continue; }`)
	expectGoto(t, cont.fn, 2, 3)

	while := mustLower(t, `int i = 0; while (i < 3) { i += 1; continue; }`)
	if len(while.fn.Blocks) != 4 {
		t.Fatalf("while blocks = %d, want entry+header+body+exit", len(while.fn.Blocks))
	}
	expectIf(t, while.fn, 1, 2, 3)
	expectGoto(t, while.fn, 2, 1)
}

func TestNestedLoopsTargetInnermost(t *testing.T) {
	res := mustLower(t, `
for i in [0:2] {
	for j in [0:2] {
		break;
	}
	continue;
}`)
	f := res.fn
	// outer: header 1, body 2, inc 3, exit 4; inner: header 5, body 6, inc 7, exit 8
	expectGoto(t, f, 6, 8)
	expectGoto(t, f, 8, 3)
	expectIf(t, f, 1, 2, 4)
}

func TestStatementsAfterBreakAreSkipped(t *testing.T) {
	res := mustLower(t, `qubit q; for i in [0:2] { break; h q; }`)
	for _, bb := range res.fn.Blocks {
		for _, ins := range bb.Instrs {
			if ins.Kind == mir.InstrGate {
				t.Fatalf("gate after break was lowered")
			}
		}
	}
}

func TestRangeValidation(t *testing.T) {
	tests := []struct {
		src  string
		kind lower.ErrorKind
	}{
		{`for i in [-1:5] { }`, lower.ErrRangeStart},
		{`for i in [0:0:5] { }`, lower.ErrRangeStep},
		{`for i in [5:2] { }`, lower.ErrRangeEnd},
		{`for i in [0:5:9223372036854775807] { }`, lower.ErrRangeStep},
		{`int n = 3; for i in [0:n] { }`, lower.ErrNotConstant},
		{`for i in [0:m] { }`, lower.ErrNotConstant},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			res, err := lowerSource(t, tt.src)
			if got := lower.KindOf(err); got != tt.kind {
				t.Fatalf("error = %v, want kind %s", err, tt.kind)
			}
			if len(res.fn.Blocks) != 1 {
				t.Fatalf("%d blocks created before the range was rejected", len(res.fn.Blocks))
			}
		})
	}
}

func TestRangeBoundsFromConstants(t *testing.T) {
	res := mustLower(t, `const int n = 4; const int s = n / 2; for i in [n - 4:s:n * 2] { }`)
	var sawEnd bool
	for _, ins := range res.fn.Blocks[1].Instrs {
		if ins.Kind == mir.InstrConst && ins.Const.Int == 8 {
			sawEnd = true
		}
	}
	if !sawEnd {
		t.Fatalf("header does not compare against 8")
	}
}

func TestRangeErrorSpanPointsAtBound(t *testing.T) {
	_, err := lowerSource(t, `for i in [0:-2:3] { }`)
	le, ok := lower.AsError(err)
	if !ok || le.Kind != lower.ErrRangeStep {
		t.Fatalf("err = %v", err)
	}
	if le.Span.Start != 12 || le.Span.End != 14 {
		t.Fatalf("span = %d..%d, want the step field", le.Span.Start, le.Span.End)
	}
}

func TestBreakContinueOutsideLoop(t *testing.T) {
	for _, tc := range []struct {
		src  string
		kind lower.ErrorKind
	}{
		{`break;`, lower.ErrBreakOutsideLoop},
		{`continue;`, lower.ErrContinueOutsideLoop},
		{`if (true) { break; }`, lower.ErrBreakOutsideLoop},
	} {
		res, err := lowerSource(t, tc.src)
		if lower.KindOf(err) != tc.kind {
			t.Fatalf("%s: err = %v, want %s", tc.src, err, tc.kind)
		}
		if res.fn.Blocks[0].Term.Kind == mir.TermGoto {
			t.Fatalf("%s: branch emitted despite the error", tc.src)
		}
	}
}

func TestLoopVariableScope(t *testing.T) {
	_, err := lowerSource(t, `for i in [0:2] { } int x = i;`)
	if lower.KindOf(err) != lower.ErrUndefined {
		t.Fatalf("err = %v, want undefined i", err)
	}
	_, err = lowerSource(t, `for i in [0:2] { i = 3; }`)
	if lower.KindOf(err) != lower.ErrAssignLoopVar {
		t.Fatalf("err = %v, want assignment to loop variable", err)
	}
	// Shadowing an outer variable is fine and does not leak.
	mustLower(t, `int i = 7; for i in {1, 2} { print(i); } i = 1;`)
}

func TestSetLoopElementsEvaluatedBeforeScope(t *testing.T) {
	res := mustLower(t, `int x = 5; for x in {x, x + 1, 3} { print(x); }`)
	entry := res.fn.Blocks[0]
	var region *mir.Instr
	stores := 0
	for i := range entry.Instrs {
		ins := &entry.Instrs[i]
		if ins.Kind == mir.InstrAlloc && ins.Alloc.Count == 3 {
			region = ins
		}
		if region != nil && ins.Kind == mir.InstrStore && ins.Store.Mem == region.Dst {
			stores++
		}
	}
	if region == nil || stores != 3 {
		t.Fatalf("element region = %v, stores = %d", region, stores)
	}
}

func TestEmptySetLoop(t *testing.T) {
	res := mustLower(t, `for i in {} { print(i); }`)
	expectIf(t, res.fn, 1, 2, 4)
}

func TestDeclarations(t *testing.T) {
	tests := []struct {
		name string
		src  string
		kind lower.ErrorKind
	}{
		{"redeclared", `int x; float x;`, lower.ErrRedeclared},
		{"qubit in loop", `for i in [0:1] { qubit q; }`, lower.ErrUnsupported},
		{"non-constant size", `int n = 2; qubit[n] q;`, lower.ErrNotConstant},
		{"zero size", `qubit[0] q;`, lower.ErrType},
		{"const needs constant", `int n = 2; const int m = n;`, lower.ErrNotConstant},
		{"assign const", `const int n = 2; n = 3;`, lower.ErrType},
		{"undefined", `y = 1;`, lower.ErrUndefined},
		{"index out of range", `qubit[2] q; h q[2];`, lower.ErrType},
		{"register size mismatch", `qubit[2] a; qubit[3] b; cx a, b;`, lower.ErrType},
		{"nested def", `if (true) { def f() { } }`, lower.ErrUnsupported},
		{"undefined call", `f(1);`, lower.ErrUndefined},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := lowerSource(t, tt.src)
			if got := lower.KindOf(err); got != tt.kind {
				t.Fatalf("error = %v, want kind %s", err, tt.kind)
			}
		})
	}
}

func TestQubitCleanupAndBroadcast(t *testing.T) {
	res := mustLower(t, `qubit[3] q; bit[3] c; h q; c = measure q;`)
	var gates, measures, deallocs int
	for _, bb := range res.fn.Blocks {
		for _, ins := range bb.Instrs {
			switch ins.Kind {
			case mir.InstrGate:
				gates++
			case mir.InstrMeasure:
				measures++
			case mir.InstrQDealloc:
				deallocs++
			}
		}
	}
	if gates != 3 || measures != 3 || deallocs != 1 {
		t.Fatalf("gates=%d measures=%d deallocs=%d, want 3/3/1", gates, measures, deallocs)
	}
	if got := len(res.tab.Cleanups()); got != 1 {
		t.Fatalf("cleanups = %d, want 1", got)
	}
}

func TestReturnInBodyReleasesQubits(t *testing.T) {
	res := mustLower(t, `qubit q; if (measure q == 1) { return; } h q;`)
	var ret *mir.Block
	for i := range res.fn.Blocks {
		bb := &res.fn.Blocks[i]
		if bb.Term.Kind == mir.TermReturn && bb.ID != mir.BlockID(len(res.fn.Blocks)-1) {
			ret = bb
		}
	}
	if ret == nil {
		t.Fatalf("no early return block")
	}
	last := ret.Instrs[len(ret.Instrs)-1]
	if last.Kind != mir.InstrQDealloc {
		t.Fatalf("early return does not release the register: %s", mir.FormatInstr(&last))
	}
}

func TestIfElseLayout(t *testing.T) {
	res := mustLower(t, `int x = 1; if (x > 0) { x = 2; } else { x = 3; } print(x);`)
	f := res.fn
	// then 1, else 2, join 3
	expectIf(t, f, 0, 1, 2)
	expectGoto(t, f, 1, 3)
	expectGoto(t, f, 2, 3)
	if n := len(f.Blocks[3].Instrs); n == 0 {
		t.Fatalf("print not lowered into the join block")
	}
}

func TestExpressionTyping(t *testing.T) {
	res := mustLower(t, `float f = 1; int i = 2; bool b = i > f; f = f * i; i += 1; bool nb = !b && true;`)
	var casts int
	for _, ins := range res.fn.Blocks[0].Instrs {
		if ins.Kind == mir.InstrCast {
			casts++
		}
	}
	if casts < 3 {
		t.Fatalf("casts = %d, want int to float promotions", casts)
	}
	if _, err := lowerSource(t, `float f = 1.5; int m = f % 2;`); lower.KindOf(err) != lower.ErrType {
		t.Fatalf("float remainder accepted: %v", err)
	}
	if _, err := lowerSource(t, `qubit q; int x = q + 1;`); lower.KindOf(err) != lower.ErrType {
		t.Fatalf("qubit arithmetic accepted: %v", err)
	}
}

func TestErrorMessage(t *testing.T) {
	_, err := lowerSource(t, `break;`)
	if err == nil || !strings.Contains(err.Error(), "break outside loop") {
		t.Fatalf("err = %v", err)
	}
}

func TestBindingsAreTraced(t *testing.T) {
	prog := parseProgram(t, "int x = 1;\nfor int i in [0:2] { x = i; }\n")
	mod := mir.NewModule("test")
	fn, err := mod.AddFunc("body", mir.TypeVoid)
	if err != nil {
		t.Fatalf("AddFunc: %v", err)
	}
	ring := trace.NewRingTracer(256, trace.LevelDebug)
	l := lower.New(mod, mir.NewBuilder(fn), symbols.NewTable(nil), lower.Options{Tracer: ring, TopLevel: true})
	if err := l.LowerStmts(prog.Stmts); err != nil {
		t.Fatalf("lower: %v", err)
	}
	got := make(map[string]string)
	for _, ev := range ring.Snapshot() {
		if strings.HasPrefix(ev.Name, "bind.") {
			got[ev.Name] = ev.Detail
		}
	}
	if got["bind.x"] != "var global" {
		t.Errorf("bind.x detail = %q, want %q", got["bind.x"], "var global")
	}
	if got["bind.i"] != "value readonly" {
		t.Errorf("bind.i detail = %q, want %q", got["bind.i"], "value readonly")
	}
}
