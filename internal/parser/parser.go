package parser

import (
	"slices"

	"qlower/internal/ast"
	"qlower/internal/diag"
	"qlower/internal/lexer"
	"qlower/internal/source"
	"qlower/internal/token"
)

type Options struct {
	MaxErrors     uint
	CurrentErrors uint
	Reporter      diag.Reporter
}

// Enough reports whether the error limit was reached.
func (o *Options) Enough() bool {
	if o.MaxErrors == 0 {
		return false
	}
	return o.CurrentErrors >= o.MaxErrors
}

type Result struct {
	Program *ast.Program
	Errors  uint
}

// Parser holds the state for parsing one file.
type Parser struct {
	lx       *lexer.Lexer
	file     *source.File
	opts     Options
	lastSpan source.Span // span of the last consumed token
}

// ParseFile parses the whole file behind lx. Syntax errors go to
// opts.Reporter; the returned program contains every statement that parsed.
func ParseFile(file *source.File, lx *lexer.Lexer, opts Options) Result {
	p := Parser{
		lx:       lx,
		file:     file,
		opts:     opts,
		lastSpan: source.Span{File: file.ID},
	}
	prog := &ast.Program{File: file.ID}
	p.parseHeader(prog)
	for !p.at(token.EOF) && !p.opts.Enough() {
		if p.at(token.KwInclude) {
			p.parseInclude(prog)
			continue
		}
		stmt, ok := p.parseStmt()
		if !ok {
			p.resyncStmt()
			if p.at(token.RBrace) {
				p.advance()
			}
			continue
		}
		prog.Stmts = append(prog.Stmts, stmt)
	}
	return Result{Program: prog, Errors: p.opts.CurrentErrors}
}

func (p *Parser) at(k token.Kind) bool {
	return p.lx.Peek().Kind == k
}

func (p *Parser) atOr(kinds ...token.Kind) bool {
	return slices.Contains(kinds, p.lx.Peek().Kind)
}

// parseHeader consumes an optional `OPENQASM 3;`.
func (p *Parser) parseHeader(prog *ast.Program) {
	if !p.at(token.KwOpenQASM) {
		return
	}
	p.advance()
	ver := p.lx.Peek()
	if ver.Kind != token.IntLit && ver.Kind != token.FloatLit {
		p.err(diag.SynBadVersion, "expected version number after OPENQASM")
		p.resyncStmt()
		return
	}
	p.advance()
	if ver.Text != "3" && ver.Text != "3.0" {
		p.report(diag.SynBadVersion, diag.SevError, ver.Span, "unsupported OPENQASM version "+ver.Text)
	}
	prog.Version = ver.Text
	p.expectSemicolon()
}

func (p *Parser) parseInclude(prog *ast.Program) {
	p.advance()
	path, ok := p.expect(token.StringLit, diag.SynUnexpectedToken, "expected include path string")
	if !ok {
		p.resyncStmt()
		return
	}
	prog.Includes = append(prog.Includes, unquote(path.Text))
	p.expectSemicolon()
}

// resyncStmt skips to the next ';' (consumed) or '}' (kept) or EOF.
func (p *Parser) resyncStmt() {
	for !p.atOr(token.EOF, token.Semicolon, token.RBrace) {
		p.advance()
	}
	if p.at(token.Semicolon) {
		p.advance()
	}
}

func unquote(s string) string {
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		return s[1 : len(s)-1]
	}
	return s
}
