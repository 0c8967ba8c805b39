package source_test

import (
	"os"
	"path/filepath"
	"testing"

	"qlower/internal/source"
)

func TestSpanCover(t *testing.T) {
	a := source.Span{File: 1, Start: 4, End: 8}
	b := source.Span{File: 1, Start: 2, End: 6}
	if got := a.Cover(b); got.Start != 2 || got.End != 8 {
		t.Fatalf("Cover = %v", got)
	}
	other := source.Span{File: 2, Start: 0, End: 100}
	if got := a.Cover(other); got != a {
		t.Fatalf("cross-file Cover = %v, want %v", got, a)
	}
	if a.Len() != 4 || a.Empty() {
		t.Fatalf("Len/Empty wrong for %v", a)
	}
	if z := a.ZeroideToEnd(); !z.Empty() || z.Start != 8 {
		t.Fatalf("ZeroideToEnd = %v", z)
	}
}

func TestPositionResolvesLineAndColumn(t *testing.T) {
	fs := source.NewFileSet()
	id := fs.AddVirtual("prog.qasm", []byte("OPENQASM 3;\r\nqubit q;\nh q;\n"))

	tests := []struct {
		off  uint32
		line uint32
		col  uint32
	}{
		{0, 1, 1},
		{9, 1, 10},
		{12, 2, 1},
		{18, 2, 7},
		{21, 3, 1},
	}
	for _, tt := range tests {
		pos := fs.Position(source.Span{File: id, Start: tt.off, End: tt.off})
		if pos.Line != tt.line || pos.Col != tt.col {
			t.Fatalf("offset %d: got %d:%d, want %d:%d", tt.off, pos.Line, pos.Col, tt.line, tt.col)
		}
	}
	if got := fs.Position(source.Span{File: id, Start: 12}).String(); got != "prog.qasm:2:1" {
		t.Fatalf("String() = %q", got)
	}
	if got := fs.Position(source.Span{File: 99}); got.Path != "" {
		t.Fatalf("unknown file resolved to %v", got)
	}
}

func TestGetLine(t *testing.T) {
	fs := source.NewFileSet()
	f := fs.Get(fs.AddVirtual("x", []byte("a\nbb\nccc")))
	for i, want := range []string{"a", "bb", "ccc", ""} {
		if got := f.GetLine(uint32(i + 1)); got != want {
			t.Fatalf("line %d = %q, want %q", i+1, got, want)
		}
	}
	if f.GetLine(0) != "" {
		t.Fatal("line 0 must be empty")
	}
}

func TestLoadStripsBOMAndCRLF(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bom.qasm")
	if err := os.WriteFile(path, []byte("\xEF\xBB\xBFqubit q;\r\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	fs := source.NewFileSet()
	id, err := fs.Load(path)
	if err != nil {
		t.Fatal(err)
	}
	f := fs.Get(id)
	if string(f.Content) != "qubit q;\n" {
		t.Fatalf("content = %q", f.Content)
	}
	if f.Flags&source.FileHadBOM == 0 || f.Flags&source.FileNormalizedCRLF == 0 {
		t.Fatalf("flags = %b", f.Flags)
	}
	if got, ok := fs.GetLatest(path); !ok || got != id {
		t.Fatalf("GetLatest = %v, %v", got, ok)
	}
	if fs.Text(source.Span{File: id, Start: 0, End: 5}) != "qubit" {
		t.Fatal("Text mismatch")
	}
}
