package diag_test

import (
	"strings"
	"testing"

	"qlower/internal/diag"
	"qlower/internal/source"
)

func TestCodeID(t *testing.T) {
	tests := []struct {
		code diag.Code
		want string
	}{
		{diag.LexUnknownChar, "LEX1001"},
		{diag.SynExpectSemicolon, "SYN2002"},
		{diag.LowBreakOutsideLoop, "LOW3001"},
		{diag.IOLoadFileError, "IO4001"},
		{diag.ProjToolchainVersion, "PRJ5002"},
		{diag.UnknownCode, "E0000"},
	}
	for _, tt := range tests {
		if got := tt.code.ID(); got != tt.want {
			t.Errorf("%d.ID() = %q, want %q", tt.code, got, tt.want)
		}
	}
	if diag.Code(3999).Title() != "Unknown error" {
		t.Error("unregistered code must fall back to the unknown title")
	}
}

func TestBagLimitAndSort(t *testing.T) {
	bag := diag.NewBag(2)
	sp := func(start uint32) source.Span { return source.Span{Start: start, End: start + 1} }
	bag.Add(diag.NewError(diag.LowUndefined, sp(10), "b"))
	bag.Add(diag.New(diag.SevWarning, diag.LowType, sp(2), "a"))
	if bag.Add(diag.NewError(diag.LowType, sp(1), "dropped")) {
		t.Fatal("bag accepted a diagnostic past its limit")
	}
	if !bag.Full() || !bag.HasErrors() {
		t.Fatal("bag state wrong")
	}
	bag.Sort()
	if bag.Items()[0].Message != "a" {
		t.Fatalf("sort order wrong: %+v", bag.Items())
	}
}

func TestReportBuilderEmitsOnce(t *testing.T) {
	bag := diag.NewBag(10)
	r := diag.NewDedupReporter(diag.BagReporter{Bag: bag})
	b := diag.ReportError(r, diag.SynExpectSemicolon, source.Span{}, "expected ';'").WithNote(source.Span{}, "here")
	b.Emit()
	b.Emit()
	diag.ReportError(r, diag.SynExpectSemicolon, source.Span{}, "expected ';'").Emit()
	if bag.Len() != 1 {
		t.Fatalf("len = %d, want 1", bag.Len())
	}
	if len(bag.Items()[0].Notes) != 1 {
		t.Fatal("note lost")
	}
}

func TestFormatShort(t *testing.T) {
	fs := source.NewFileSet()
	id := fs.AddVirtual("loop.qasm", []byte("qubit q;\nbreak;\n"))
	d := diag.NewError(diag.LowBreakOutsideLoop, source.Span{File: id, Start: 9, End: 15}, "break statement outside of a loop").
		WithNote(source.Span{File: id, Start: 0, End: 1}, "program starts here")

	out := diag.FormatShort([]diag.Diagnostic{d}, fs, true)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d lines:\n%s", len(lines), out)
	}
	if lines[0] != "loop.qasm:1:1: NOTE LOW3001: program starts here" {
		t.Fatalf("line 0 = %q", lines[0])
	}
	if lines[1] != "loop.qasm:2:1: ERROR LOW3001: break statement outside of a loop" {
		t.Fatalf("line 1 = %q", lines[1])
	}
}
