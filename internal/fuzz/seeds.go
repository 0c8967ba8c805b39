package fuzztests

import (
	"io/fs"
	"os"
	"path/filepath"
	"testing"
)

const maxSeedBytes = 64 << 10

const maxFuzzInput = 1 << 16

// snippets cover every statement form plus a few malformed inputs that
// exercise error recovery.
var snippets = []string{
	"",
	"OPENQASM 3;",
	"qubit[2] q; h q[0]; cx q[0], q[1];",
	"bit[2] c; qubit[2] q; c = measure q; measure q[1] -> c[1];",
	"for int i in [0:4] { if (i == 2) { break; } print(i); }",
	"for i in {1, 2, 3} { continue; }",
	"int k = 0; while (k < 3) { k += 1; }",
	"def f(int x, qubit a) { rx(x * 0.5) a; return; } qubit q; f(2, q);",
	"const int n = 2 * 3 - 1; for i in [n:-1:0] { print(i); }",
	"qubit q; barrier q; reset q;",
	"for i in [0:",
	"while (true { }",
	"def (",
	"c[0] = = measure",
	"\"unterminated",
	"break; continue; return;",
	"{ { { { } } } }",
	"qubit[1000000000000000000000] q;",
}

func addCorpusSeeds(f *testing.F) {
	for _, s := range snippets {
		f.Add([]byte(s))
	}
	addTestdataSeeds(f)
}

func addTestdataSeeds(f *testing.F) {
	root := filepath.Join("..", "..", "testdata")
	if _, err := os.Stat(root); err != nil {
		return
	}
	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil || d.IsDir() || filepath.Ext(path) != ".qasm" {
			return nil
		}
		// #nosec G304 -- path comes from repository testdata walk
		src, err := os.ReadFile(path)
		if err != nil {
			return nil
		}
		f.Add(clampSeed(src))
		return nil
	})
}

func clampSeed(src []byte) []byte {
	if len(src) > maxSeedBytes {
		src = src[:maxSeedBytes]
	}
	return append([]byte(nil), src...)
}

func clampInput(input []byte) []byte {
	if len(input) > maxFuzzInput {
		input = input[:maxFuzzInput]
	}
	return append([]byte(nil), input...)
}
