package diagfmt

import (
	"bytes"
	"strings"
	"testing"

	"qlower/internal/diag"
	"qlower/internal/source"
)

func breakOutsideLoop(t *testing.T) (*source.FileSet, *diag.Bag) {
	t.Helper()
	fs := source.NewFileSet()
	fileID := fs.AddVirtual("/work/proj/src/prog.qasm", []byte("qubit q;\nbreak;\nh q;\n"))
	bag := diag.NewBag(10)
	d := diag.NewError(diag.LowBreakOutsideLoop, source.Span{File: fileID, Start: 9, End: 15}, "break outside of a loop").
		WithNote(source.Span{File: fileID, Start: 0, End: 8}, "program body starts here")
	bag.Add(d)
	return fs, bag
}

func TestPrettyHeaderAndUnderline(t *testing.T) {
	fs, bag := breakOutsideLoop(t)
	var buf bytes.Buffer
	Pretty(&buf, bag, fs, PrettyOpts{PathMode: PathModeBasename})

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	want := []string{
		"prog.qasm:2:1: ERROR LOW3001: break outside of a loop",
		"2 | break;",
		"  | ^~~~~~",
	}
	if len(lines) != len(want) {
		t.Fatalf("got %d lines:\n%s", len(lines), buf.String())
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Errorf("line %d = %q, want %q", i, lines[i], want[i])
		}
	}
}

func TestPrettyNotesAndContext(t *testing.T) {
	fs, bag := breakOutsideLoop(t)
	var buf bytes.Buffer
	Pretty(&buf, bag, fs, PrettyOpts{PathMode: PathModeBasename, ShowNotes: true, Context: 1})
	out := buf.String()
	for _, want := range []string{
		"1 | qubit q;\n2 | break;\n",
		"prog.qasm:1:1: note: program body starts here",
		"^~~~~~~",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in:\n%s", want, out)
		}
	}
}

func TestPrettyColor(t *testing.T) {
	fs, bag := breakOutsideLoop(t)
	var plain, colored bytes.Buffer
	Pretty(&plain, bag, fs, PrettyOpts{})
	Pretty(&colored, bag, fs, PrettyOpts{Color: true})
	if strings.Contains(plain.String(), "\x1b[") {
		t.Fatalf("plain output has escape codes: %q", plain.String())
	}
	if !strings.Contains(colored.String(), "\x1b[") {
		t.Fatalf("colored output has no escape codes: %q", colored.String())
	}
}

func TestPathModes(t *testing.T) {
	tests := []struct {
		name string
		mode PathMode
		base string
		want string
	}{
		{"basename", PathModeBasename, "", "prog.qasm"},
		{"relative", PathModeRelative, "/work/proj", "src/prog.qasm"},
		{"auto inside base", PathModeAuto, "/work/proj", "src/prog.qasm"},
		{"auto outside base", PathModeAuto, "/elsewhere", "/work/proj/src/prog.qasm"},
		{"absolute", PathModeAbsolute, "", "/work/proj/src/prog.qasm"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := formatPath("/work/proj/src/prog.qasm", tt.mode, tt.base); got != tt.want {
				t.Fatalf("formatPath = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDisplayWidth(t *testing.T) {
	tests := map[string]int{
		"abc":      3,
		"\tx":      5,
		"日本":       4,
		"e\u0301": 1,
	}
	for in, want := range tests {
		if got := displayWidth(in); got != want {
			t.Errorf("displayWidth(%q) = %d, want %d", in, got, want)
		}
	}
}
