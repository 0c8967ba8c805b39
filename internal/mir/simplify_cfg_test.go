package mir_test

import (
	"bytes"
	"strings"
	"testing"

	"qlower/internal/mir"
	"qlower/internal/source"
)

func TestSimplifyCFGTrivialGoto(t *testing.T) {
	// bb0 (const) -> bb1 (empty goto) -> bb2 (return)
	m, f, b := newFunc(t, "f")
	mid := b.NewBlock()
	end := b.NewBlock()
	b.ConstInt(1, source.Span{})
	b.Goto(mid)
	b.SetInsertionPoint(mid)
	b.Goto(end)
	b.SetInsertionPoint(end)
	b.Terminate(mir.Return())

	mir.SimplifyCFG(f)

	if len(f.Blocks) != 2 {
		t.Fatalf("expected 2 blocks, got %d", len(f.Blocks))
	}
	if f.Blocks[0].Term.Goto.Target != 1 || f.Blocks[1].Term.Kind != mir.TermReturn {
		t.Fatalf("bad wiring: %s / %s", mir.FormatTerm(&f.Blocks[0].Term), mir.FormatTerm(&f.Blocks[1].Term))
	}
	if err := mir.Validate(m); err != nil {
		t.Fatalf("Validate after simplify: %v", err)
	}
}

func TestSimplifyCFGDropsUnreachable(t *testing.T) {
	_, f, b := newFunc(t, "f")
	dead := b.NewBlock()
	b.Terminate(mir.Return())
	b.SetInsertionPoint(dead)
	b.ConstInt(5, source.Span{})
	b.Terminate(mir.Return())

	mir.SimplifyCFG(f)
	if len(f.Blocks) != 1 || f.Entry != 0 {
		t.Fatalf("blocks=%d entry=%d, want 1 block at entry 0", len(f.Blocks), f.Entry)
	}
}

func TestSimplifyCFGEmptyLoopTerminates(t *testing.T) {
	// while (true) {} produces a goto cycle of empty blocks.
	_, f, b := newFunc(t, "f")
	a := b.NewBlock()
	c := b.NewBlock()
	b.Goto(a)
	b.SetInsertionPoint(a)
	b.Goto(c)
	b.SetInsertionPoint(c)
	b.Goto(a)

	mir.SimplifyCFG(f)
	if len(f.Blocks) == 0 {
		t.Fatalf("all blocks removed")
	}
	for i := range f.Blocks {
		for _, s := range f.Blocks[i].Term.Successors() {
			if f.Block(s) == nil {
				t.Fatalf("dangling successor bb%d", s)
			}
		}
	}
}

func TestDumpModule(t *testing.T) {
	m, _, b := newFunc(t, "main")
	reg := b.Emit(mir.Instr{Kind: mir.InstrQAlloc, Type: mir.TypeQreg, QAlloc: mir.QAllocInstr{Size: 2, Name: "q"}})
	idx := b.ConstInt(0, source.Span{})
	q := b.Emit(mir.Instr{Kind: mir.InstrQExtract, Type: mir.TypeQubit, QExtract: mir.QExtractInstr{Reg: reg, Index: idx}})
	b.Emit(mir.Instr{Kind: mir.InstrGate, Gate: mir.GateInstr{Name: "h", Qubits: []mir.ValueID{q}}})
	b.Emit(mir.Instr{Kind: mir.InstrQDealloc, QDealloc: mir.QDeallocInstr{Reg: reg}})
	b.Terminate(mir.Return())

	var buf bytes.Buffer
	if err := mir.DumpModule(&buf, m, mir.DumpOptions{}); err != nil {
		t.Fatalf("DumpModule: %v", err)
	}
	out := buf.String()
	for _, want := range []string{
		"fn main() -> void entry=bb0:",
		`%0: qreg = qalloc 2 "q"`,
		"%2: qubit = qextract %0[%1]",
		"gate h %2",
		"qdealloc %0",
		"    return",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("dump missing %q:\n%s", want, out)
		}
	}
}
