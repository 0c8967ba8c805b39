package driver

import (
	"qlower/internal/diag"
	"qlower/internal/lexer"
	"qlower/internal/source"
	"qlower/internal/token"
)

// TokenizeResult is the token stream of one file. Tokens always ends with
// EOF, even when lexing reported errors.
type TokenizeResult struct {
	FileSet *source.FileSet
	File    *source.File
	Tokens  []token.Token
	Bag     *diag.Bag
}

// Tokenize lexes the file at path.
func Tokenize(path string, maxDiagnostics int) (*TokenizeResult, error) {
	fs := source.NewFileSet()
	id, err := fs.Load(path)
	if err != nil {
		return nil, err
	}
	return lexAll(fs, id, maxDiagnostics), nil
}

// TokenizeSource lexes an in-memory program.
func TokenizeSource(name string, src []byte, maxDiagnostics int) *TokenizeResult {
	fs := source.NewFileSet()
	return lexAll(fs, fs.AddVirtual(name, src), maxDiagnostics)
}

func lexAll(fs *source.FileSet, id source.FileID, maxDiagnostics int) *TokenizeResult {
	res := &TokenizeResult{FileSet: fs, File: fs.Get(id), Bag: diag.NewBag(maxDiagnostics)}
	lx := lexer.New(res.File, lexer.Options{Reporter: diag.BagReporter{Bag: res.Bag}})
	for tok := lx.Next(); ; tok = lx.Next() {
		res.Tokens = append(res.Tokens, tok)
		if tok.Kind == token.EOF {
			return res
		}
	}
}
