package mir_test

import (
	"testing"

	"qlower/internal/mir"
	"qlower/internal/source"
)

func newFunc(t *testing.T, name string) (*mir.Module, *mir.Func, *mir.Builder) {
	t.Helper()
	m := mir.NewModule("test")
	f, err := m.AddFunc(name, mir.TypeVoid)
	if err != nil {
		t.Fatalf("AddFunc: %v", err)
	}
	return m, f, mir.NewBuilder(f)
}

func TestBuilderCreatesEntry(t *testing.T) {
	_, f, b := newFunc(t, "f")
	if f.Entry != 0 || len(f.Blocks) != 1 {
		t.Fatalf("entry=%d blocks=%d, want entry 0 and one block", f.Entry, len(f.Blocks))
	}
	if b.CurrentBlock() != f.Entry {
		t.Fatalf("cursor at bb%d, want entry", b.CurrentBlock())
	}
}

func TestBuilderBlocksAreMonotonic(t *testing.T) {
	_, _, b := newFunc(t, "f")
	var prev mir.BlockID
	for i := range 5 {
		id := b.NewBlock()
		if int(id) != i+1 {
			t.Fatalf("block %d got id %d", i, id)
		}
		if id <= prev {
			t.Fatalf("ids not increasing: %d after %d", id, prev)
		}
		prev = id
	}
	if b.CurrentBlock() != 0 {
		t.Fatalf("NewBlock moved the cursor to bb%d", b.CurrentBlock())
	}
}

func TestBuilderSaveRestore(t *testing.T) {
	_, _, b := newFunc(t, "f")
	other := b.NewBlock()
	ip := b.SaveInsertionPoint()
	b.SetInsertionPoint(other)
	if b.CurrentBlock() != other {
		t.Fatalf("cursor at bb%d, want bb%d", b.CurrentBlock(), other)
	}
	b.RestoreInsertionPoint(ip)
	if b.CurrentBlock() != 0 {
		t.Fatalf("restore left cursor at bb%d", b.CurrentBlock())
	}
}

func TestBuilderDropsAfterTerminator(t *testing.T) {
	_, f, b := newFunc(t, "f")
	exit := b.NewBlock()
	c := b.ConstInt(1, source.Span{})
	if !c.IsValid() {
		t.Fatalf("const produced no value")
	}
	b.Goto(exit)
	if !b.Terminated() {
		t.Fatalf("block not terminated after Goto")
	}
	if got := b.ConstInt(2, source.Span{}); got != mir.NoValueID {
		t.Fatalf("emit into terminated block returned %d", got)
	}
	b.Terminate(mir.Return())
	entry := f.Block(f.Entry)
	if len(entry.Instrs) != 1 {
		t.Fatalf("entry has %d instrs, want 1", len(entry.Instrs))
	}
	if entry.Term.Kind != mir.TermGoto || entry.Term.Goto.Target != exit {
		t.Fatalf("terminator overwritten: %s", mir.FormatTerm(&entry.Term))
	}
}

func TestBuilderVoidInstrHasNoResult(t *testing.T) {
	_, f, b := newFunc(t, "f")
	mem := b.Alloc(mir.TypeInt, 1, source.Span{})
	val := b.ConstInt(3, source.Span{})
	b.Store(mem, mir.NoValueID, val, source.Span{})
	ins := f.Block(f.Entry).Instrs[2]
	if ins.Kind != mir.InstrStore || ins.Dst != mir.NoValueID {
		t.Fatalf("store = %s, want no result", mir.FormatInstr(&ins))
	}
	if len(f.Values) != 2 {
		t.Fatalf("values = %d, want 2", len(f.Values))
	}
}

func TestSetInsertionPointForeignBlockPanics(t *testing.T) {
	_, _, b := newFunc(t, "f")
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic for out-of-range block")
		}
	}()
	b.SetInsertionPoint(42)
}

func TestModuleDuplicateFunc(t *testing.T) {
	m := mir.NewModule("m")
	if _, err := m.AddFunc("a", mir.TypeVoid); err != nil {
		t.Fatalf("AddFunc: %v", err)
	}
	if _, err := m.AddFunc("a", mir.TypeVoid); err == nil {
		t.Fatalf("expected duplicate error")
	}
	if f, ok := m.Func("a"); !ok || f.ID != 0 {
		t.Fatalf("lookup failed: %v %v", f, ok)
	}
}
