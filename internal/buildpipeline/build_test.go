package buildpipeline_test

import (
	"context"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"qlower/internal/buildpipeline"
	"qlower/internal/driver"
	"qlower/internal/project"
)

func writeSource(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestBuildWritesOutputs(t *testing.T) {
	src := t.TempDir()
	out := t.TempDir()
	writeSource(t, src, "bell.qasm", "qubit[2] q; h q[0]; cx q[0], q[1];")
	writeSource(t, src, "nested/loop.qasm", "for i in [0:3] { print(i); }")
	writeSource(t, src, "notes.txt", "ignored")

	collector := &buildpipeline.Collector{}
	res, err := buildpipeline.Build(context.Background(), &buildpipeline.BuildRequest{
		CompileRequest: buildpipeline.CompileRequest{
			Targets:  []string{src},
			Options:  driver.CompileOptions{MaxDiagnostics: 8},
			Jobs:     2,
			Progress: collector,
		},
		Emit:   project.EmitBoth,
		OutDir: out,
	})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if res.Failed() {
		t.Fatalf("unexpected failure: %v", res.Bag(8).Items())
	}
	if len(res.Files) != 2 || len(res.Outputs) != 4 {
		t.Fatalf("files=%d outputs=%+v", len(res.Files), res.Outputs)
	}

	ll, err := os.ReadFile(filepath.Join(out, "bell.ll"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(ll), "define void @bell(%Array* %qreg)") {
		t.Fatalf("bell.ll:\n%s", ll)
	}
	dump, err := os.ReadFile(filepath.Join(out, "loop.mir"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(dump), "module ") {
		t.Fatalf("loop.mir:\n%s", dump)
	}

	var emitted []string
	for _, ev := range collector.Events() {
		if ev.Stage == buildpipeline.StageEmit && ev.Status == buildpipeline.StatusDone {
			emitted = append(emitted, filepath.Base(ev.File))
		}
	}
	slices.Sort(emitted)
	if !slices.Equal(emitted, []string{"bell.qasm", "loop.qasm"}) {
		t.Fatalf("emit events = %q", emitted)
	}
	if !res.Timings.Has(buildpipeline.StageLower) || !res.Timings.Has(buildpipeline.StageEmit) {
		t.Fatalf("missing stage timings")
	}
}

func TestBuildSkipsFailedFiles(t *testing.T) {
	src := t.TempDir()
	out := t.TempDir()
	good := writeSource(t, src, "good.qasm", "qubit q; x q;")
	bad := writeSource(t, src, "bad.qasm", "break;")

	collector := &buildpipeline.Collector{}
	res, err := buildpipeline.Build(context.Background(), &buildpipeline.BuildRequest{
		CompileRequest: buildpipeline.CompileRequest{
			Targets:  []string{good, bad},
			Options:  driver.CompileOptions{MaxDiagnostics: 8},
			Progress: collector,
		},
		OutDir: out,
	})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if !res.Failed() {
		t.Fatalf("expected failure")
	}
	if len(res.Outputs) != 1 || filepath.Base(res.Outputs[0].Path) != "good.ll" {
		t.Fatalf("outputs = %+v", res.Outputs)
	}
	if _, err := os.Stat(filepath.Join(out, "bad.ll")); !os.IsNotExist(err) {
		t.Fatalf("bad.ll written: %v", err)
	}
	sawError := slices.ContainsFunc(collector.Events(), func(ev buildpipeline.Event) bool {
		return ev.Status == buildpipeline.StatusError && strings.HasSuffix(ev.File, "bad.qasm")
	})
	if !sawError {
		t.Fatalf("no error event for bad.qasm")
	}
}

func TestBuildRequestErrors(t *testing.T) {
	ctx := context.Background()
	if _, err := buildpipeline.Build(ctx, nil); err == nil {
		t.Fatal("nil request accepted")
	}
	if _, err := buildpipeline.Build(ctx, &buildpipeline.BuildRequest{Emit: "asm", CompileRequest: buildpipeline.CompileRequest{Targets: []string{"."}}}); err == nil {
		t.Fatal("unknown emit kind accepted")
	}
	if _, err := buildpipeline.Build(ctx, &buildpipeline.BuildRequest{CompileRequest: buildpipeline.CompileRequest{Targets: []string{t.TempDir()}}}); err == nil {
		t.Fatal("empty directory accepted")
	}
}

func TestCollectSourcesDeduplicates(t *testing.T) {
	dir := t.TempDir()
	a := writeSource(t, dir, "a.qasm", "")
	writeSource(t, dir, "b.qasm", "")
	files, err := buildpipeline.CollectSources([]string{dir, a})
	if err != nil {
		t.Fatal(err)
	}
	if len(files) != 2 {
		t.Fatalf("files = %q", files)
	}
}
