package consteval_test

import (
	"math"
	"testing"

	"qlower/internal/ast"
	"qlower/internal/consteval"
)

func lit(v int64) *ast.Expr {
	return &ast.Expr{Kind: ast.ExprIntLit, Data: ast.IntLitData{Value: v}}
}

func ident(name string) *ast.Expr {
	return &ast.Expr{Kind: ast.ExprIdent, Data: ast.IdentData{Name: name}}
}

func bin(op ast.BinaryOp, l, r *ast.Expr) *ast.Expr {
	return &ast.Expr{Kind: ast.ExprBinary, Data: ast.BinaryData{Op: op, Left: l, Right: r}}
}

func neg(e *ast.Expr) *ast.Expr {
	return &ast.Expr{Kind: ast.ExprUnary, Data: ast.UnaryData{Op: ast.UnaryNeg, Operand: e}}
}

var consts = consteval.LookupFunc(func(name string) (int64, bool) {
	switch name {
	case "n":
		return 4, true
	case "big":
		return math.MaxInt64, true
	}
	return 0, false
})

func TestEval(t *testing.T) {
	tests := []struct {
		name string
		expr *ast.Expr
		want int64
		ok   bool
	}{
		{"literal", lit(7), 7, true},
		{"constant ident", ident("n"), 4, true},
		{"unknown ident", ident("i"), 0, false},
		{"negation", neg(lit(1)), -1, true},
		{"paren", &ast.Expr{Kind: ast.ExprParen, Data: ast.ParenData{Inner: ident("n")}}, 4, true},
		{"arith", bin(ast.BinSub, bin(ast.BinMul, ident("n"), lit(3)), lit(2)), 10, true},
		{"div", bin(ast.BinDiv, lit(9), lit(2)), 4, true},
		{"mod", bin(ast.BinMod, lit(9), lit(4)), 1, true},
		{"div by zero", bin(ast.BinDiv, lit(1), lit(0)), 0, false},
		{"mod by zero", bin(ast.BinMod, lit(1), lit(0)), 0, false},
		{"add overflow", bin(ast.BinAdd, ident("big"), lit(1)), 0, false},
		{"mul overflow", bin(ast.BinMul, ident("big"), lit(2)), 0, false},
		{"comparison", bin(ast.BinLt, lit(1), lit(2)), 0, false},
		{"float", &ast.Expr{Kind: ast.ExprFloatLit, Data: ast.FloatLitData{Value: 1}}, 0, false},
		{"nil", nil, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := consteval.Eval(tt.expr, consts)
			if ok != tt.ok || (ok && got != tt.want) {
				t.Fatalf("Eval = (%d, %v), want (%d, %v)", got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestEvalErrReportsOffendingNode(t *testing.T) {
	bad := ident("i")
	_, at := consteval.EvalErr(bin(ast.BinAdd, lit(1), bad), consts)
	if at != bad {
		t.Fatalf("EvalErr pointed at %v, want the identifier", at)
	}
}

func TestEvalNilLookup(t *testing.T) {
	if _, ok := consteval.Eval(ident("n"), nil); ok {
		t.Fatalf("identifier resolved without a lookup")
	}
}
