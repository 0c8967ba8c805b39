package fuzztests

import (
	"testing"

	"qlower/internal/diag"
	"qlower/internal/lexer"
	"qlower/internal/source"
	"qlower/internal/token"
)

func FuzzLexerTokens(f *testing.F) {
	addCorpusSeeds(f)
	f.Fuzz(func(t *testing.T, input []byte) {
		input = clampInput(input)

		fs := source.NewFileSet()
		file := fs.Get(fs.AddVirtual("fuzz.qasm", input))

		bag := diag.NewBag(64)
		lx := lexer.New(file, lexer.Options{Reporter: diag.BagReporter{Bag: bag}})
		// Tokens consume input, so a count far above the byte length
		// means the lexer is stuck.
		limit := 2*len(input) + 2
		for n := 0; ; n++ {
			tok := lx.Next()
			if tok.Kind == token.EOF {
				break
			}
			if n > limit {
				t.Fatalf("lexer produced over %d tokens for %d bytes", limit, len(input))
			}
		}
	})
}
