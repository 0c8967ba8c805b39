package parser

import (
	"qlower/internal/ast"
	"qlower/internal/diag"
	"qlower/internal/source"
	"qlower/internal/token"
)

// parseStmt dispatches on the first token of a statement.
func (p *Parser) parseStmt() (*ast.Stmt, bool) {
	tok := p.lx.Peek()
	switch tok.Kind {
	case token.KwQubit, token.KwBit, token.KwInt, token.KwUint, token.KwFloat, token.KwBool:
		return p.parseDecl(false)
	case token.KwConst:
		p.advance()
		return p.parseDeclFrom(tok.Span, true)
	case token.KwQreg, token.KwCreg:
		return p.parseLegacyDecl()
	case token.KwIf:
		return p.parseIf()
	case token.KwFor:
		return p.parseFor()
	case token.KwWhile:
		return p.parseWhile()
	case token.KwBreak:
		return p.parseBareKeyword(ast.StmtBreak, ast.BreakData{})
	case token.KwContinue:
		return p.parseBareKeyword(ast.StmtContinue, ast.ContinueData{})
	case token.KwReturn:
		return p.parseReturn()
	case token.KwDef:
		return p.parseDef()
	case token.KwMeasure:
		return p.parseMeasureStmt()
	case token.KwReset:
		return p.parseReset()
	case token.KwBarrier:
		return p.parseBarrier()
	case token.LBrace:
		start := tok.Span
		body, ok := p.parseBlock()
		if !ok {
			return nil, false
		}
		return &ast.Stmt{Kind: ast.StmtBlock, Span: start.Cover(p.lastSpan), Data: ast.BlockData{Stmts: body}}, true
	case token.Ident:
		return p.parseIdentStmt()
	default:
		p.err(diag.SynUnexpectedToken, "unexpected "+tok.Kind.String()+" at start of statement")
		return nil, false
	}
}

// parseBlock parses `{ stmt* }`.
func (p *Parser) parseBlock() ([]*ast.Stmt, bool) {
	open, ok := p.expect(token.LBrace, diag.SynUnexpectedToken, "expected '{'")
	if !ok {
		return nil, false
	}
	stmts := make([]*ast.Stmt, 0, 4)
	for !p.atOr(token.RBrace, token.EOF) && !p.opts.Enough() {
		s, ok := p.parseStmt()
		if !ok {
			p.resyncStmt()
			continue
		}
		stmts = append(stmts, s)
	}
	if !p.at(token.RBrace) {
		p.report(diag.SynUnclosedDelimiter, diag.SevError, open.Span, "unclosed '{'")
		return stmts, false
	}
	p.advance()
	return stmts, true
}

// parseBody accepts either a block or a single statement.
func (p *Parser) parseBody() ([]*ast.Stmt, bool) {
	if p.at(token.LBrace) {
		return p.parseBlock()
	}
	s, ok := p.parseStmt()
	if !ok {
		return nil, false
	}
	return []*ast.Stmt{s}, true
}

func (p *Parser) parseDecl(isConst bool) (*ast.Stmt, bool) {
	return p.parseDeclFrom(p.lx.Peek().Span, isConst)
}

// parseDeclFrom parses `type name (= expr)? ;` with the type at the cursor.
func (p *Parser) parseDeclFrom(start source.Span, isConst bool) (*ast.Stmt, bool) {
	typ, ok := p.parseType()
	if !ok {
		return nil, false
	}
	name, ok := p.expectIdent()
	if !ok {
		return nil, false
	}
	data := ast.DeclData{Name: name.Text, Type: typ, Const: isConst}
	if p.at(token.Assign) {
		p.advance()
		data.Init, ok = p.parseExpr()
		if !ok {
			return nil, false
		}
	}
	if isConst && data.Init == nil {
		p.err(diag.SynExpectExpression, "const declaration requires an initializer")
		return nil, false
	}
	if !p.expectSemicolon() {
		return nil, false
	}
	return &ast.Stmt{Kind: ast.StmtDecl, Span: start.Cover(p.lastSpan), Data: data}, true
}

// parseLegacyDecl parses `qreg q[4];` and `creg c[2];`.
func (p *Parser) parseLegacyDecl() (*ast.Stmt, bool) {
	kw := p.advance()
	kind := ast.TypeQubit
	if kw.Kind == token.KwCreg {
		kind = ast.TypeBit
	}
	name, ok := p.expectIdent()
	if !ok {
		return nil, false
	}
	typ := &ast.Type{Kind: kind, Span: kw.Span}
	if p.at(token.LBracket) {
		typ.Size, ok = p.parseDesignator()
		if !ok {
			return nil, false
		}
	}
	if !p.expectSemicolon() {
		return nil, false
	}
	return &ast.Stmt{
		Kind: ast.StmtDecl,
		Span: kw.Span.Cover(p.lastSpan),
		Data: ast.DeclData{Name: name.Text, Type: typ, Legacy: true},
	}, true
}

func (p *Parser) parseIf() (*ast.Stmt, bool) {
	kw := p.advance()
	cond, ok := p.parseParenCond()
	if !ok {
		return nil, false
	}
	then, ok := p.parseBody()
	if !ok {
		return nil, false
	}
	data := ast.IfData{Cond: cond, Then: then}
	if p.at(token.KwElse) {
		p.advance()
		data.Else, ok = p.parseBody()
		if !ok {
			return nil, false
		}
	}
	return &ast.Stmt{Kind: ast.StmtIf, Span: kw.Span.Cover(p.lastSpan), Data: data}, true
}

func (p *Parser) parseParenCond() (*ast.Expr, bool) {
	if _, ok := p.expect(token.LParen, diag.SynUnexpectedToken, "expected '('"); !ok {
		return nil, false
	}
	cond, ok := p.parseExpr()
	if !ok {
		return nil, false
	}
	if _, ok := p.expect(token.RParen, diag.SynUnclosedDelimiter, "expected ')'"); !ok {
		return nil, false
	}
	return cond, true
}

func (p *Parser) parseBareKeyword(kind ast.StmtKind, data ast.StmtData) (*ast.Stmt, bool) {
	kw := p.advance()
	if !p.expectSemicolon() {
		return nil, false
	}
	return &ast.Stmt{Kind: kind, Span: kw.Span.Cover(p.lastSpan), Data: data}, true
}

func (p *Parser) parseReturn() (*ast.Stmt, bool) {
	kw := p.advance()
	var data ast.ReturnData
	if !p.at(token.Semicolon) {
		var ok bool
		data.Value, ok = p.parseExpr()
		if !ok {
			return nil, false
		}
	}
	if !p.expectSemicolon() {
		return nil, false
	}
	return &ast.Stmt{Kind: ast.StmtReturn, Span: kw.Span.Cover(p.lastSpan), Data: data}, true
}

// parseDef parses `def name(type a, qubit q) -> type { ... }`.
func (p *Parser) parseDef() (*ast.Stmt, bool) {
	kw := p.advance()
	name, ok := p.expectIdent()
	if !ok {
		return nil, false
	}
	if _, ok = p.expect(token.LParen, diag.SynUnexpectedToken, "expected '(' after subroutine name"); !ok {
		return nil, false
	}
	var params []ast.Param
	for !p.atOr(token.RParen, token.EOF) {
		typ, ok := p.parseType()
		if !ok {
			return nil, false
		}
		pname, ok := p.expectIdent()
		if !ok {
			return nil, false
		}
		params = append(params, ast.Param{Name: pname.Text, Type: typ, Span: typ.Span.Cover(pname.Span)})
		if !p.at(token.Comma) {
			break
		}
		p.advance()
	}
	if _, ok = p.expect(token.RParen, diag.SynUnclosedDelimiter, "expected ')'"); !ok {
		return nil, false
	}
	data := ast.DefData{Name: name.Text, Params: params}
	if p.at(token.Arrow) {
		p.advance()
		if data.Result, ok = p.parseType(); !ok {
			return nil, false
		}
	}
	if data.Body, ok = p.parseBlock(); !ok {
		return nil, false
	}
	return &ast.Stmt{Kind: ast.StmtDef, Span: kw.Span.Cover(p.lastSpan), Data: data}, true
}

// parseMeasureStmt parses `measure q;` and `measure q -> c;`.
func (p *Parser) parseMeasureStmt() (*ast.Stmt, bool) {
	kw := p.advance()
	q, ok := p.parsePostfix()
	if !ok {
		return nil, false
	}
	data := ast.MeasureStmtData{Qubit: q}
	if p.at(token.Arrow) {
		p.advance()
		if data.Target, ok = p.parsePostfix(); !ok {
			return nil, false
		}
	}
	if !p.expectSemicolon() {
		return nil, false
	}
	return &ast.Stmt{Kind: ast.StmtMeasure, Span: kw.Span.Cover(p.lastSpan), Data: data}, true
}

func (p *Parser) parseReset() (*ast.Stmt, bool) {
	kw := p.advance()
	q, ok := p.parsePostfix()
	if !ok || !p.expectSemicolon() {
		return nil, false
	}
	return &ast.Stmt{Kind: ast.StmtReset, Span: kw.Span.Cover(p.lastSpan), Data: ast.ResetData{Qubit: q}}, true
}

func (p *Parser) parseBarrier() (*ast.Stmt, bool) {
	kw := p.advance()
	var qubits []*ast.Expr
	if !p.at(token.Semicolon) {
		var ok bool
		if qubits, ok = p.parseOperandList(); !ok {
			return nil, false
		}
	}
	if !p.expectSemicolon() {
		return nil, false
	}
	return &ast.Stmt{Kind: ast.StmtBarrier, Span: kw.Span.Cover(p.lastSpan), Data: ast.BarrierData{Qubits: qubits}}, true
}

// parseIdentStmt handles statements starting with an identifier: gate
// applications, subroutine calls and assignments.
func (p *Parser) parseIdentStmt() (*ast.Stmt, bool) {
	name := p.advance()
	switch {
	case p.at(token.Ident):
		// h q;
		qubits, ok := p.parseOperandList()
		if !ok || !p.expectSemicolon() {
			return nil, false
		}
		return &ast.Stmt{Kind: ast.StmtGate, Span: name.Span.Cover(p.lastSpan), Data: ast.GateData{Name: name.Text, Qubits: qubits}}, true

	case p.at(token.LParen):
		args, ok := p.parseArgs()
		if !ok {
			return nil, false
		}
		if p.at(token.Semicolon) {
			p.advance()
			call := &ast.Expr{Kind: ast.ExprCall, Span: name.Span.Cover(p.lastSpan), Data: ast.CallData{Name: name.Text, Args: args}}
			return &ast.Stmt{Kind: ast.StmtExpr, Span: call.Span, Data: ast.ExprStmtData{Expr: call}}, true
		}
		// rx(theta) q;
		qubits, ok := p.parseOperandList()
		if !ok || !p.expectSemicolon() {
			return nil, false
		}
		return &ast.Stmt{
			Kind: ast.StmtGate,
			Span: name.Span.Cover(p.lastSpan),
			Data: ast.GateData{Name: name.Text, Params: args, Qubits: qubits},
		}, true
	}

	target := &ast.Expr{Kind: ast.ExprIdent, Span: name.Span, Data: ast.IdentData{Name: name.Text}}
	var ok bool
	if target, ok = p.parseIndexSuffix(target); !ok {
		return nil, false
	}
	var op ast.AssignOp
	switch p.lx.Peek().Kind {
	case token.Assign:
		op = ast.AssignSet
	case token.PlusAssign:
		op = ast.AssignAdd
	case token.MinusAssign:
		op = ast.AssignSub
	default:
		p.err(diag.SynUnexpectedToken, "expected assignment, gate or call after "+name.Text)
		return nil, false
	}
	p.advance()
	value, ok := p.parseExpr()
	if !ok || !p.expectSemicolon() {
		return nil, false
	}
	return &ast.Stmt{
		Kind: ast.StmtAssign,
		Span: name.Span.Cover(p.lastSpan),
		Data: ast.AssignData{Target: target, Op: op, Value: value},
	}, true
}

// parseOperandList parses `q, r[1], s`.
func (p *Parser) parseOperandList() ([]*ast.Expr, bool) {
	var out []*ast.Expr
	for {
		e, ok := p.parsePostfix()
		if !ok {
			return nil, false
		}
		out = append(out, e)
		if !p.at(token.Comma) {
			return out, true
		}
		p.advance()
	}
}
