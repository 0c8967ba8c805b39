package project_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"qlower/internal/project"
)

func writeManifest(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, project.ManifestName)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write manifest: %v", err)
	}
	return path
}

func TestLoadManifestDefaults(t *testing.T) {
	dir := t.TempDir()
	path := writeManifest(t, dir, "[package]\nname = \"bell\"\n")

	m, err := project.LoadManifest(path)
	if err != nil {
		t.Fatalf("LoadManifest: %v", err)
	}
	if m.Build.Emit != project.EmitLLVM {
		t.Errorf("emit = %q, want llvm", m.Build.Emit)
	}
	if got := m.SourceDirs(); len(got) != 1 || got[0] != dir {
		t.Errorf("sources = %v, want [%s]", got, dir)
	}
	if m.OutPath() != filepath.Join(dir, "build") {
		t.Errorf("out = %s", m.OutPath())
	}
}

func TestLoadManifestErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"no package", "[build]\nemit = \"mir\"\n", "missing [package]"},
		{"bad name", "[package]\nname = \"9lives\"\n", "invalid [package].name"},
		{"bad emit", "[package]\nname = \"a\"\n[build]\nemit = \"wasm\"\n", "invalid [build].emit"},
		{"bad entry", "[package]\nname = \"a\"\n[build]\nentry_point = \"a-b\"\n", "invalid [build].entry_point"},
		{"bad constraint", "[package]\nname = \"a\"\n[toolchain]\nversion = \"~>banana\"\n", "invalid [toolchain].version"},
		{"escaping source", "[package]\nname = \"a\"\nsources = [\"../x\"]\n", "escapes project root"},
		{"unknown key", "[package]\nname = \"a\"\ncolour = 1\n", "unknown key"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeManifest(t, t.TempDir(), tt.body)
			_, err := project.LoadManifest(path)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("err = %v, want %q", err, tt.want)
			}
		})
	}
}

func TestCheckToolchain(t *testing.T) {
	m := &project.Manifest{Toolchain: project.Toolchain{Version: ">=0.1.0, <0.3.0"}}
	for _, v := range []string{"0.1.0", "0.2.5", "0.1.0-dev"} {
		if err := m.CheckToolchain(v); err != nil {
			t.Errorf("CheckToolchain(%s) = %v", v, err)
		}
	}
	err := m.CheckToolchain("0.3.0")
	if !errors.Is(err, project.ErrToolchainMismatch) {
		t.Fatalf("CheckToolchain(0.3.0) = %v, want mismatch", err)
	}
	if err := (&project.Manifest{}).CheckToolchain("garbage"); err != nil {
		t.Fatalf("empty constraint rejected: %v", err)
	}
}

func TestInitWritesLoadableManifest(t *testing.T) {
	dir := t.TempDir()
	path, err := project.Init(dir, "teleport", "0.1.0-dev")
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	m, err := project.LoadManifest(path)
	if err != nil {
		t.Fatalf("LoadManifest: %v", err)
	}
	if m.Package.Name != "teleport" || m.Build.EntryPoint != "teleport" || !m.Build.AddMain {
		t.Fatalf("manifest = %+v", m)
	}
	if m.Toolchain.Version != ">=0.1.0" {
		t.Fatalf("toolchain = %q", m.Toolchain.Version)
	}
	if _, err := project.Init(dir, "teleport", "0.1.0"); err == nil {
		t.Fatal("second Init overwrote the manifest")
	}

	sub := filepath.Join(dir, "a", "b")
	if err := os.MkdirAll(sub, 0o755); err != nil {
		t.Fatal(err)
	}
	root, ok, err := project.FindProjectRoot(sub)
	if err != nil || !ok {
		t.Fatalf("FindProjectRoot: ok=%t err=%v", ok, err)
	}
	if resolved, _ := filepath.EvalSymlinks(root); resolved != mustEval(t, dir) {
		t.Fatalf("root = %s, want %s", root, dir)
	}
}

func mustEval(t *testing.T, p string) string {
	t.Helper()
	r, err := filepath.EvalSymlinks(p)
	if err != nil {
		t.Fatal(err)
	}
	return r
}

func TestCombineIsOrderSensitive(t *testing.T) {
	a, b := project.Sum([]byte("a")), project.Sum([]byte("b"))
	if project.Combine(a, b) == project.Combine(b, a) {
		t.Fatal("Combine ignored order")
	}
	if project.Combine(a, b) != project.Combine(a, b) {
		t.Fatal("Combine is not deterministic")
	}
	if !(project.Digest{}).IsZero() || a.IsZero() {
		t.Fatal("IsZero")
	}
}
