package watch_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"qlower/internal/watch"
)

func TestRelevant(t *testing.T) {
	tests := map[string]bool{
		"a/prog.qasm":   true,
		"qlower.toml":   true,
		"a/notes.txt":   false,
		"a/.prog.qasm":  false,
		"build/prog.ll": false,
	}
	for path, want := range tests {
		if got := watch.Relevant(path); got != want {
			t.Errorf("Relevant(%q) = %t, want %t", path, got, want)
		}
	}
}

func TestRunReportsChanges(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "sub")
	if err := os.Mkdir(sub, 0o755); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	changes := make(chan []string, 4)
	errc := make(chan error, 1)
	go func() {
		errc <- watch.Run(ctx, []string{dir}, watch.Options{Debounce: 20 * time.Millisecond}, func(changed []string) {
			changes <- changed
		})
	}()

	// Give the watcher time to register before writing.
	time.Sleep(100 * time.Millisecond)
	target := filepath.Join(sub, "prog.qasm")
	if err := os.WriteFile(filepath.Join(sub, "ignored.txt"), []byte("x"), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(target, []byte("qubit q;"), 0o600); err != nil {
		t.Fatal(err)
	}

	select {
	case got := <-changes:
		if len(got) != 1 || got[0] != target {
			t.Fatalf("changed = %q, want [%s]", got, target)
		}
	case err := <-errc:
		t.Fatalf("Run returned early: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("no change reported")
	}

	cancel()
	select {
	case err := <-errc:
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not stop after cancel")
	}
}

func TestRunMissingRoot(t *testing.T) {
	err := watch.Run(context.Background(), []string{filepath.Join(t.TempDir(), "missing")}, watch.Options{}, func([]string) {})
	if err == nil {
		t.Fatal("expected error for missing root")
	}
}
