package fuzztests

import (
	"context"
	"testing"
	"time"

	"qlower/internal/diag"
	"qlower/internal/driver"
	"qlower/internal/lexer"
	"qlower/internal/parser"
	"qlower/internal/source"
)

// stepTimeout bounds a single parse or compile; exceeding it signals an
// infinite loop in error recovery.
const stepTimeout = 5 * time.Second

func FuzzParserNoHang(f *testing.F) {
	addCorpusSeeds(f)
	f.Fuzz(func(t *testing.T, input []byte) {
		input = clampInput(input)

		done := make(chan struct{})
		go func() {
			defer close(done)
			fs := source.NewFileSet()
			file := fs.Get(fs.AddVirtual("fuzz.qasm", input))
			bag := diag.NewBag(128)
			reporter := diag.BagReporter{Bag: bag}
			lx := lexer.New(file, lexer.Options{Reporter: reporter})
			res := parser.ParseFile(file, lx, parser.Options{Reporter: reporter, MaxErrors: 128})
			if res.Program == nil {
				t.Error("parser returned a nil program")
			}
		}()

		select {
		case <-done:
		case <-time.After(stepTimeout):
			t.Fatalf("parser hung on input (len=%d): %q", len(input), truncateForLog(input))
		}
	})
}

// FuzzCompileSource runs the whole lowering pipeline. Any input must end
// in either a valid module or diagnostics.
func FuzzCompileSource(f *testing.F) {
	addCorpusSeeds(f)
	f.Fuzz(func(t *testing.T, input []byte) {
		input = clampInput(input)

		ctx, cancel := context.WithTimeout(context.Background(), stepTimeout)
		defer cancel()
		_, res, err := driver.CompileSource(ctx, "fuzz.qasm", input, driver.CompileOptions{MaxDiagnostics: 64})
		if err != nil {
			t.Fatalf("internal error: %v", err)
		}
		if res.Result == nil && !res.Bag.HasErrors() {
			t.Fatalf("no module and no errors for %q", truncateForLog(input))
		}
	})
}

func truncateForLog(input []byte) []byte {
	const maxLen = 200
	if len(input) > maxLen {
		return input[:maxLen]
	}
	return input
}
