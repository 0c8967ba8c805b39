package llvm_test

import (
	"context"
	"strings"
	"testing"

	"qlower/internal/backend/llvm"
	"qlower/internal/driver"
	"qlower/internal/mir"
)

func emit(t *testing.T, src string, opts driver.Options) string {
	t.Helper()
	if opts.EntryPoint == "" {
		opts.EntryPoint = "prog"
	}
	_, res, err := driver.CompileSource(context.Background(), "prog.qasm", []byte(src), driver.CompileOptions{Options: opts, MaxDiagnostics: 8})
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	if res.Failed() {
		t.Fatalf("compile failed: %v", res.Bag.Items())
	}
	text, err := llvm.EmitText(res.Result.Module)
	if err != nil {
		t.Fatalf("emit: %v", err)
	}
	return text
}

func requireContains(t *testing.T, text string, want ...string) {
	t.Helper()
	for _, w := range want {
		if !strings.Contains(text, w) {
			t.Fatalf("output missing %q:\n%s", w, text)
		}
	}
}

func TestEmitBellCircuit(t *testing.T) {
	text := emit(t, `
qubit[2] q;
bit[2] c;
h q[0];
cx q[0], q[1];
c = measure q;
`, driver.Options{})
	requireContains(t, text,
		"%Qubit = type opaque",
		"%Array = type opaque",
		"%Result = type opaque",
		"define void @__internal_qasm_prog()",
		"define void @prog(%Array* %qreg)",
		"call %Array* @__quantum__rt__qubit_allocate_array(i64 2)",
		"call i8* @__quantum__rt__array_get_element_ptr_1d(",
		"call void @__quantum__qis__h__body(%Qubit*",
		"call void @__quantum__qis__cnot__body(%Qubit*",
		"call %Result* @__quantum__qis__mz__body(%Qubit*",
		"call i1 @__quantum__rt__result_equal(",
		"call void @__quantum__rt__qubit_release_array(%Array*",
		"declare void @__quantum__qis__cnot__body(%Qubit* %0, %Qubit* %1)",
		"call void @__quantum__rt__set_qreg(%Array* %qreg)",
		"call void @__quantum__rt__finalize()",
	)
	if strings.Contains(text, "define i32 @main") {
		t.Fatalf("main emitted without AddMain")
	}
}

func TestEmitMain(t *testing.T) {
	text := emit(t, `qubit q; x q;`, driver.Options{AddMain: true})
	requireContains(t, text,
		"define i32 @main(i32 %argc, i8** %argv)",
		"call void @__quantum__rt__initialize(i32 %argc, i8** %argv)",
		"call void @__internal_qasm_prog()",
		"ret i32 0",
	)
	mainText := text[strings.Index(text, "define i32 @main("):]
	mainText = mainText[:strings.Index(mainText, "\n}")]
	for _, conv := range []string{"sext ", "trunc "} {
		if strings.Contains(mainText, conv) {
			t.Fatalf("main converts argc or its result:\n%s", mainText)
		}
	}
	if strings.Index(text, "@main(") > strings.Index(text, "define void @__internal_qasm_prog") {
		t.Fatalf("main must precede the body:\n%s", text)
	}
}

func TestEmitLoopControlFlow(t *testing.T) {
	text := emit(t, `for i in [0:4] { if (i == 2) { continue; } print(i); }`, driver.Options{})
	requireContains(t, text,
		"icmp slt i64",
		"icmp eq i64",
		"br i1",
		"add i64",
		"call void @__quantum__rt__int_record_output(i64",
	)
	// Stack slots are hoisted ahead of everything else in the entry block.
	body := text[strings.Index(text, "define void @__internal_qasm_prog"):]
	entry := body[strings.Index(body, "bb0:"):]
	lines := strings.Split(entry, "\n")
	if len(lines) < 2 || !strings.Contains(lines[1], "alloca") {
		t.Fatalf("entry block does not start with alloca:\n%s", entry)
	}
}

func TestEmitExpressionsAndSubroutines(t *testing.T) {
	text := emit(t, `
float f = 1;
f = f / 4 + 0.5;
bool b = !(f > 1.0);
int n = sq(3);
qubit r;
rz(f) r;
def sq(int x) -> int { return x * x; }
`, driver.Options{})
	requireContains(t, text,
		"fdiv double",
		"fcmp ogt double",
		"xor i1",
		"define i64 @sq(i64 %x)",
		"call i64 @sq(i64 3)",
		"mul i64",
		"ret i64",
		"call void @__quantum__qis__rz__body(double",
	)
}

func TestEmitBitRegisterZeroFill(t *testing.T) {
	text := emit(t, `bit[3] c; c[1] = 1; print(c[1]);`, driver.Options{})
	requireContains(t, text,
		"alloca [3 x i64]",
		"store [3 x i64] zeroinitializer",
		"getelementptr [3 x i64], [3 x i64]*",
	)
}

func TestEmitRejectsBrokenModules(t *testing.T) {
	tests := []struct {
		name string
		mod  func() *mir.Module
	}{
		{"nil", func() *mir.Module { return nil }},
		{"unknown callee", func() *mir.Module {
			m := mir.NewModule("bad")
			f, _ := m.AddFunc("f", mir.TypeVoid)
			b := mir.NewBuilder(f)
			b.Emit(mir.Instr{Kind: mir.InstrCall, Call: mir.CallInstr{Callee: "missing"}})
			b.Terminate(mir.Return())
			return m
		}},
		{"unterminated", func() *mir.Module {
			m := mir.NewModule("bad")
			f, _ := m.AddFunc("f", mir.TypeVoid)
			mir.NewBuilder(f)
			return m
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := llvm.EmitModule(tt.mod()); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}

func TestGateSymbol(t *testing.T) {
	tests := map[string]string{
		"h":   "__quantum__qis__h__body",
		"cx":  "__quantum__qis__cnot__body",
		"sdg": "__quantum__qis__s__adj",
		"rx":  "__quantum__qis__rx__body",
	}
	for in, want := range tests {
		if got := llvm.GateSymbol(in); got != want {
			t.Errorf("GateSymbol(%q) = %q, want %q", in, got, want)
		}
	}
}
