package parser

import (
	"strconv"
	"strings"

	"qlower/internal/ast"
	"qlower/internal/diag"
	"qlower/internal/token"
)

const (
	precLogicalOr      = 1 // ||
	precLogicalAnd     = 2 // &&
	precEquality       = 3 // == !=
	precComparison     = 4 // < <= > >=
	precAdditive       = 5 // + -
	precMultiplicative = 6 // * / %
)

var binaryOps = map[token.Kind]struct {
	op   ast.BinaryOp
	prec int
}{
	token.OrOr:    {ast.BinOr, precLogicalOr},
	token.AndAnd:  {ast.BinAnd, precLogicalAnd},
	token.EqEq:    {ast.BinEq, precEquality},
	token.BangEq:  {ast.BinNe, precEquality},
	token.Lt:      {ast.BinLt, precComparison},
	token.LtEq:    {ast.BinLe, precComparison},
	token.Gt:      {ast.BinGt, precComparison},
	token.GtEq:    {ast.BinGe, precComparison},
	token.Plus:    {ast.BinAdd, precAdditive},
	token.Minus:   {ast.BinSub, precAdditive},
	token.Star:    {ast.BinMul, precMultiplicative},
	token.Slash:   {ast.BinDiv, precMultiplicative},
	token.Percent: {ast.BinMod, precMultiplicative},
}

func (p *Parser) parseExpr() (*ast.Expr, bool) {
	return p.parseBinary(precLogicalOr)
}

// parseBinary is precedence climbing; all operators are left-associative.
func (p *Parser) parseBinary(minPrec int) (*ast.Expr, bool) {
	left, ok := p.parseUnary()
	if !ok {
		return nil, false
	}
	for {
		info, isOp := binaryOps[p.lx.Peek().Kind]
		if !isOp || info.prec < minPrec {
			return left, true
		}
		p.advance()
		right, ok := p.parseBinary(info.prec + 1)
		if !ok {
			return nil, false
		}
		left = &ast.Expr{
			Kind: ast.ExprBinary,
			Span: left.Span.Cover(right.Span),
			Data: ast.BinaryData{Op: info.op, Left: left, Right: right},
		}
	}
}

func (p *Parser) parseUnary() (*ast.Expr, bool) {
	var op ast.UnaryOp
	switch p.lx.Peek().Kind {
	case token.Minus:
		op = ast.UnaryNeg
	case token.Plus:
		op = ast.UnaryPlus
	case token.Bang:
		op = ast.UnaryNot
	default:
		return p.parsePostfix()
	}
	tok := p.advance()
	operand, ok := p.parseUnary()
	if !ok {
		return nil, false
	}
	return &ast.Expr{Kind: ast.ExprUnary, Span: tok.Span.Cover(operand.Span), Data: ast.UnaryData{Op: op, Operand: operand}}, true
}

// parsePostfix parses a primary followed by any number of [index] suffixes.
func (p *Parser) parsePostfix() (*ast.Expr, bool) {
	prim, ok := p.parsePrimary()
	if !ok {
		return nil, false
	}
	return p.parseIndexSuffix(prim)
}

func (p *Parser) parseIndexSuffix(base *ast.Expr) (*ast.Expr, bool) {
	for p.at(token.LBracket) {
		p.advance()
		idx, ok := p.parseExpr()
		if !ok {
			return nil, false
		}
		if _, ok := p.expect(token.RBracket, diag.SynUnclosedDelimiter, "expected ']'"); !ok {
			return nil, false
		}
		base = &ast.Expr{Kind: ast.ExprIndex, Span: base.Span.Cover(p.lastSpan), Data: ast.IndexData{Base: base, Index: idx}}
	}
	return base, true
}

func (p *Parser) parsePrimary() (*ast.Expr, bool) {
	tok := p.lx.Peek()
	switch tok.Kind {
	case token.IntLit:
		p.advance()
		v, err := strconv.ParseInt(strings.ReplaceAll(tok.Text, "_", ""), 10, 64)
		if err != nil {
			p.report(diag.LexBadNumber, diag.SevError, tok.Span, "integer literal out of range: "+tok.Text)
			return nil, false
		}
		return &ast.Expr{Kind: ast.ExprIntLit, Span: tok.Span, Data: ast.IntLitData{Value: v, Text: tok.Text}}, true
	case token.FloatLit:
		p.advance()
		v, err := strconv.ParseFloat(strings.ReplaceAll(tok.Text, "_", ""), 64)
		if err != nil {
			p.report(diag.LexBadNumber, diag.SevError, tok.Span, "malformed float literal: "+tok.Text)
			return nil, false
		}
		return &ast.Expr{Kind: ast.ExprFloatLit, Span: tok.Span, Data: ast.FloatLitData{Value: v, Text: tok.Text}}, true
	case token.KwTrue, token.KwFalse:
		p.advance()
		return &ast.Expr{Kind: ast.ExprBoolLit, Span: tok.Span, Data: ast.BoolLitData{Value: tok.Kind == token.KwTrue}}, true
	case token.StringLit:
		p.advance()
		return &ast.Expr{Kind: ast.ExprStringLit, Span: tok.Span, Data: ast.StringLitData{Value: unquote(tok.Text)}}, true
	case token.Ident:
		p.advance()
		if p.at(token.LParen) {
			args, ok := p.parseArgs()
			if !ok {
				return nil, false
			}
			return &ast.Expr{Kind: ast.ExprCall, Span: tok.Span.Cover(p.lastSpan), Data: ast.CallData{Name: tok.Text, Args: args}}, true
		}
		return &ast.Expr{Kind: ast.ExprIdent, Span: tok.Span, Data: ast.IdentData{Name: tok.Text}}, true
	case token.KwMeasure:
		p.advance()
		q, ok := p.parsePostfix()
		if !ok {
			return nil, false
		}
		return &ast.Expr{Kind: ast.ExprMeasure, Span: tok.Span.Cover(q.Span), Data: ast.MeasureData{Qubit: q}}, true
	case token.LParen:
		p.advance()
		inner, ok := p.parseExpr()
		if !ok {
			return nil, false
		}
		if _, ok := p.expect(token.RParen, diag.SynUnclosedDelimiter, "expected ')'"); !ok {
			return nil, false
		}
		return &ast.Expr{Kind: ast.ExprParen, Span: tok.Span.Cover(p.lastSpan), Data: ast.ParenData{Inner: inner}}, true
	default:
		p.err(diag.SynExpectExpression, "expected expression")
		return nil, false
	}
}

// parseArgs parses `( expr, ... )`.
func (p *Parser) parseArgs() ([]*ast.Expr, bool) {
	p.advance()
	var args []*ast.Expr
	for !p.atOr(token.RParen, token.EOF) {
		e, ok := p.parseExpr()
		if !ok {
			return nil, false
		}
		args = append(args, e)
		if !p.at(token.Comma) {
			break
		}
		p.advance()
	}
	if _, ok := p.expect(token.RParen, diag.SynUnclosedDelimiter, "expected ')'"); !ok {
		return nil, false
	}
	return args, true
}
