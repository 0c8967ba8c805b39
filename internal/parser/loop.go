package parser

import (
	"qlower/internal/ast"
	"qlower/internal/diag"
	"qlower/internal/token"
)

// parseFor parses `for type? ident in {..} | [..] body`.
func (p *Parser) parseFor() (*ast.Stmt, bool) {
	kw := p.advance()
	var v ast.LoopVar
	if p.lx.Peek().IsTypeKeyword() {
		typ, ok := p.parseType()
		if !ok {
			return nil, false
		}
		v.Type = typ
	}
	name, ok := p.expectIdent()
	if !ok {
		return nil, false
	}
	v.Name, v.Span = name.Text, name.Span
	if _, ok = p.expect(token.KwIn, diag.SynForMissingIn, "expected 'in' after loop variable"); !ok {
		return nil, false
	}

	var sig *ast.LoopSignature
	switch {
	case p.at(token.LBrace):
		sig, ok = p.parseSetSig(v)
	case p.at(token.LBracket):
		sig, ok = p.parseRangeSig(v)
	default:
		p.err(diag.SynForBadHeader, "expected '{' set or '[' range after 'in'")
		return nil, false
	}
	if !ok {
		return nil, false
	}
	body, ok := p.parseBody()
	if !ok {
		return nil, false
	}
	return &ast.Stmt{Kind: ast.StmtLoop, Span: kw.Span.Cover(p.lastSpan), Data: ast.LoopData{Sig: sig, Body: body}}, true
}

func (p *Parser) parseSetSig(v ast.LoopVar) (*ast.LoopSignature, bool) {
	open := p.advance()
	var elems []*ast.Expr
	for !p.atOr(token.RBrace, token.EOF) {
		e, ok := p.parseExpr()
		if !ok {
			return nil, false
		}
		elems = append(elems, e)
		if !p.at(token.Comma) {
			break
		}
		p.advance()
	}
	if _, ok := p.expect(token.RBrace, diag.SynUnclosedDelimiter, "expected '}' to close set"); !ok {
		return nil, false
	}
	return &ast.LoopSignature{
		Kind: ast.SigSet,
		Span: open.Span.Cover(p.lastSpan),
		Data: ast.SetSig{Var: v, Elems: elems},
	}, true
}

// parseRangeSig parses `[start:end]` or `[start:step:end]`.
func (p *Parser) parseRangeSig(v ast.LoopVar) (*ast.LoopSignature, bool) {
	open := p.advance()
	var bounds []*ast.RangeBound
	for {
		e, ok := p.parseExpr()
		if !ok {
			return nil, false
		}
		bounds = append(bounds, &ast.RangeBound{Expr: e, Text: p.text(e.Span)})
		if !p.at(token.Colon) {
			break
		}
		p.advance()
	}
	if _, ok := p.expect(token.RBracket, diag.SynUnclosedDelimiter, "expected ']' to close range"); !ok {
		return nil, false
	}
	sig := ast.RangeSig{Var: v}
	switch len(bounds) {
	case 2:
		sig.Start, sig.End = bounds[0], bounds[1]
	case 3:
		sig.Start, sig.Step, sig.End = bounds[0], bounds[1], bounds[2]
	default:
		p.report(diag.SynForBadHeader, diag.SevError, open.Span.Cover(p.lastSpan), "range needs two or three fields")
		return nil, false
	}
	return &ast.LoopSignature{Kind: ast.SigRange, Span: open.Span.Cover(p.lastSpan), Data: sig}, true
}

func (p *Parser) parseWhile() (*ast.Stmt, bool) {
	kw := p.advance()
	condStart := p.lx.Peek().Span
	cond, ok := p.parseParenCond()
	if !ok {
		return nil, false
	}
	sig := &ast.LoopSignature{Kind: ast.SigCond, Span: condStart.Cover(p.lastSpan), Data: ast.CondSig{Cond: cond}}
	body, ok := p.parseBody()
	if !ok {
		return nil, false
	}
	return &ast.Stmt{Kind: ast.StmtLoop, Span: kw.Span.Cover(p.lastSpan), Data: ast.LoopData{Sig: sig, Body: body}}, true
}
