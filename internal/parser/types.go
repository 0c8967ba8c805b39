package parser

import (
	"qlower/internal/ast"
	"qlower/internal/diag"
	"qlower/internal/token"
)

var typeKeywords = map[token.Kind]ast.TypeKind{
	token.KwQubit: ast.TypeQubit,
	token.KwBit:   ast.TypeBit,
	token.KwInt:   ast.TypeInt,
	token.KwUint:  ast.TypeUint,
	token.KwFloat: ast.TypeFloat,
	token.KwBool:  ast.TypeBool,
}

// parseType parses `kw` or `kw[size]`.
func (p *Parser) parseType() (*ast.Type, bool) {
	tok := p.lx.Peek()
	kind, ok := typeKeywords[tok.Kind]
	if !ok {
		p.err(diag.SynExpectType, "expected type")
		return nil, false
	}
	p.advance()
	typ := &ast.Type{Kind: kind, Span: tok.Span}
	if p.at(token.LBracket) {
		if kind == ast.TypeBool {
			p.err(diag.SynBadDesignator, "bool takes no size designator")
			return nil, false
		}
		if typ.Size, ok = p.parseDesignator(); !ok {
			return nil, false
		}
		typ.Span = typ.Span.Cover(p.lastSpan)
	}
	return typ, true
}

func (p *Parser) parseDesignator() (*ast.Expr, bool) {
	p.advance()
	size, ok := p.parseExpr()
	if !ok {
		return nil, false
	}
	if _, ok := p.expect(token.RBracket, diag.SynBadDesignator, "expected ']' after size"); !ok {
		return nil, false
	}
	return size, true
}
