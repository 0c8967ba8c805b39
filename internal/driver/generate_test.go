package driver_test

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"testing"

	"qlower/internal/ast"
	"qlower/internal/diag"
	"qlower/internal/driver"
	"qlower/internal/lower"
	"qlower/internal/mir"
	"qlower/internal/source"
)

func parse(t *testing.T, src string) *ast.Program {
	t.Helper()
	fs := source.NewFileSet()
	id := fs.AddVirtual("test.qasm", []byte(src))
	prog, bag, err := driver.ParseFile(fs, id, 16)
	if err != nil {
		t.Fatalf("ParseFile: %v", err)
	}
	if bag.HasErrors() {
		var sb strings.Builder
		for _, d := range bag.Items() {
			fmt.Fprintf(&sb, "%s; ", d.Message)
		}
		t.Fatalf("parse errors: %s", sb.String())
	}
	return prog
}

func generate(t *testing.T, src string, opts driver.Options) *driver.Result {
	t.Helper()
	res, err := driver.Generate(context.Background(), parse(t, src), opts)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	return res
}

func mustFunc(t *testing.T, m *mir.Module, name string) *mir.Func {
	t.Helper()
	f, ok := m.Func(name)
	if !ok {
		t.Fatalf("function %s missing; have %v", name, m.FuncNames())
	}
	return f
}

func countKind(f *mir.Func, kind mir.InstrKind) int {
	n := 0
	for _, bb := range f.Blocks {
		for _, ins := range bb.Instrs {
			if ins.Kind == kind {
				n++
			}
		}
	}
	return n
}

func TestFunctionNamesOrder(t *testing.T) {
	src := `
def flip(qubit a) { x a; }
qubit q;
flip(q);
def twice(int n) -> int { return n * 2; }
`
	res := generate(t, src, driver.Options{EntryPoint: "bell", AddMain: true})
	want := []string{"main", "__internal_qasm_bell", "bell", "flip", "twice"}
	if !slices.Equal(res.FunctionNames, want) {
		t.Fatalf("names = %v, want %v", res.FunctionNames, want)
	}

	res = generate(t, src, driver.Options{})
	want = []string{"__internal_qasm_" + driver.DefaultEntryPoint, driver.DefaultEntryPoint, "flip", "twice"}
	if !slices.Equal(res.FunctionNames, want) {
		t.Fatalf("names = %v, want %v", res.FunctionNames, want)
	}
}

func TestEntryScaffolding(t *testing.T) {
	res := generate(t, `qubit q; h q;`, driver.Options{EntryPoint: "bell", AddMain: true})
	m := res.Module

	mainFn := mustFunc(t, m, "main")
	if mainFn.Result != mir.TypeInt || len(mainFn.Params) != 2 {
		t.Fatalf("main signature: result %s, %d params", mainFn.Result, len(mainFn.Params))
	}
	entry := mainFn.Blocks[mainFn.Entry]
	var ops []string
	for _, ins := range entry.Instrs {
		switch ins.Kind {
		case mir.InstrRuntime:
			ops = append(ops, ins.Runtime.Op.String())
		case mir.InstrCall:
			ops = append(ops, "call "+ins.Call.Callee)
		}
	}
	wantOps := []string{mir.RuntimeInit.String(), "call __internal_qasm_bell", mir.RuntimeFinalize.String()}
	if !slices.Equal(ops, wantOps) {
		t.Fatalf("main ops = %v, want %v", ops, wantOps)
	}
	if entry.Term.Kind != mir.TermReturn || !entry.Term.Return.HasValue {
		t.Fatalf("main must return a value, got %s", mir.FormatTerm(&entry.Term))
	}

	wrapper := mustFunc(t, m, "bell")
	if len(wrapper.Params) != 1 || wrapper.Params[0].Type != mir.TypeQreg {
		t.Fatalf("wrapper params = %+v", wrapper.Params)
	}
	first := wrapper.Blocks[wrapper.Entry].Instrs[0]
	if first.Kind != mir.InstrRuntime || first.Runtime.Op != mir.RuntimeSetQreg {
		t.Fatalf("wrapper starts with %s", mir.FormatInstr(&first))
	}
}

func TestBodyFinalizationReleasesRegisters(t *testing.T) {
	src := `
qubit[2] q;
qubit r;
for int i in [0:2] { h q[i]; }
cx q[0], r;
`
	res := generate(t, src, driver.Options{EntryPoint: "e"})
	body := mustFunc(t, res.Module, driver.BodyName("e"))
	if got := countKind(body, mir.InstrQDealloc); got != 2 {
		t.Fatalf("qdealloc = %d, want 2", got)
	}
	// Finalization happens in the loop exit block, the last one recorded.
	last := body.Blocks[len(body.Blocks)-1]
	if last.Term.Kind != mir.TermReturn {
		t.Fatalf("last block ends with %s", mir.FormatTerm(&last.Term))
	}
	n := len(last.Instrs)
	if n < 2 || last.Instrs[n-1].Kind != mir.InstrQDealloc || last.Instrs[n-2].Kind != mir.InstrQDealloc {
		t.Fatalf("last block does not end with the deallocations")
	}
}

func TestBodyWithoutStatementsReturnsFromEntry(t *testing.T) {
	res := generate(t, ``, driver.Options{EntryPoint: "e"})
	body := mustFunc(t, res.Module, driver.BodyName("e"))
	if len(body.Blocks) != 1 || body.Blocks[0].Term.Kind != mir.TermReturn {
		t.Fatalf("empty body: %d blocks", len(body.Blocks))
	}
}

func TestSubroutines(t *testing.T) {
	src := `
const int n = 3;
int total = 0;
for int i in [0:n] { total += scale(i); }
print(total);
def scale(int x) -> int { return x * n; }
def nothing(qubit[2] pair) { h pair; }
def fallthrough(float f) -> float { f = f + 1.0; }
`
	res := generate(t, src, driver.Options{EntryPoint: "e"})
	scale := mustFunc(t, res.Module, "scale")
	if scale.Result != mir.TypeInt || len(scale.Params) != 1 {
		t.Fatalf("scale signature")
	}
	pair := mustFunc(t, res.Module, "nothing")
	if pair.Params[0].Type != mir.TypeQreg || countKind(pair, mir.InstrGate) != 2 {
		t.Fatalf("register parameter not broadcast")
	}
	ff := mustFunc(t, res.Module, "fallthrough")
	lastTerm := ff.Blocks[len(ff.Blocks)-1].Term
	if lastTerm.Kind != mir.TermReturn || !lastTerm.Return.HasValue {
		t.Fatalf("fall-through must return the zero value")
	}
}

func TestGenerateErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		kind lower.ErrorKind
		code diag.Code
	}{
		{"break outside loop", `break;`, lower.ErrBreakOutsideLoop, diag.LowBreakOutsideLoop},
		{"continue outside loop", `int x = 0; continue;`, lower.ErrContinueOutsideLoop, diag.LowContinueOutsideLoop},
		{"zero step", `for i in [0:0:4] { }`, lower.ErrRangeStep, diag.LowRangeStep},
		{"print redefined", `def print(int x) { }`, lower.ErrRedeclared, diag.LowRedeclared},
		{"duplicate def", `def f() { } def f() { }`, lower.ErrRedeclared, diag.LowRedeclared},
		{"entry clash", `def e() { }`, lower.ErrRedeclared, diag.LowRedeclared},
		{"undefined call", `g(1);`, lower.ErrUndefined, diag.LowUndefined},
		{"loop var assigned", `for i in {1, 2} { i = 3; }`, lower.ErrAssignLoopVar, diag.LowAssignLoopVar},
		{"qubit in def", `def f() { qubit q; }`, lower.ErrUnsupported, diag.LowUnsupported},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := driver.Generate(context.Background(), parse(t, tt.src), driver.Options{EntryPoint: "e"})
			if err == nil {
				t.Fatalf("expected error, got module with %v", res.FunctionNames)
			}
			if res != nil {
				t.Fatalf("partial result returned with error")
			}
			if got := lower.KindOf(err); got != tt.kind {
				t.Fatalf("kind = %s, want %s (%v)", got, tt.kind, err)
			}
			d := driver.Diagnostic(err)
			if d.Code != tt.code || d.Severity != diag.SevError {
				t.Fatalf("diagnostic = %s %s", d.Severity, d.Code.ID())
			}
			if d.Primary.Empty() {
				t.Fatalf("diagnostic has no span")
			}
		})
	}
}

func TestSimplifyKeepsModuleValid(t *testing.T) {
	src := `
int x = 0;
while (x < 4) { if (x == 2) { break; } x += 1; }
print(x);
`
	plain := generate(t, src, driver.Options{EntryPoint: "e"})
	simple := generate(t, src, driver.Options{EntryPoint: "e", Simplify: true})
	name := driver.BodyName("e")
	if len(mustFunc(t, simple.Module, name).Blocks) > len(mustFunc(t, plain.Module, name).Blocks) {
		t.Fatalf("simplification grew the CFG")
	}
}

func TestEntryPointFor(t *testing.T) {
	tests := map[string]string{
		"bell.qasm":           "bell",
		"dir/ghz-state.qasm":  "ghz_state",
		"3qubits.qasm":        "_3qubits",
		".qasm":               driver.DefaultEntryPoint,
		"/tmp/teleport.v2.qasm": "teleport_v2",
	}
	for in, want := range tests {
		if got := driver.EntryPointFor(in); got != want {
			t.Errorf("EntryPointFor(%q) = %q, want %q", in, got, want)
		}
	}
}
