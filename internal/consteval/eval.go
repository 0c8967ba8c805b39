// Package consteval folds integer expressions known at compile time.
//
// It only reads bindings through Lookup and never emits IR, so it can be
// consulted while a loop header is still being planned.
package consteval

import (
	"math"

	"qlower/internal/ast"
)

// Lookup resolves a name to a compile-time integer constant.
type Lookup interface {
	LookupConst(name string) (int64, bool)
}

// LookupFunc adapts a function to Lookup.
type LookupFunc func(name string) (int64, bool)

func (f LookupFunc) LookupConst(name string) (int64, bool) { return f(name) }

// Eval returns the value of expr when it is a compile-time integer.
func Eval(expr *ast.Expr, lookup Lookup) (int64, bool) {
	v, bad := EvalErr(expr, lookup)
	return v, bad == nil
}

// EvalErr is Eval that also returns the first sub-expression that is not
// constant. The returned expression is nil on success.
func EvalErr(expr *ast.Expr, lookup Lookup) (int64, *ast.Expr) {
	if expr == nil {
		return 0, &ast.Expr{}
	}
	switch expr.Kind {
	case ast.ExprIntLit:
		return expr.Data.(ast.IntLitData).Value, nil
	case ast.ExprIdent:
		if lookup == nil {
			return 0, expr
		}
		v, ok := lookup.LookupConst(expr.Data.(ast.IdentData).Name)
		if !ok {
			return 0, expr
		}
		return v, nil
	case ast.ExprParen:
		return EvalErr(expr.Data.(ast.ParenData).Inner, lookup)
	case ast.ExprUnary:
		data := expr.Data.(ast.UnaryData)
		v, bad := EvalErr(data.Operand, lookup)
		if bad != nil {
			return 0, bad
		}
		switch data.Op {
		case ast.UnaryPlus:
			return v, nil
		case ast.UnaryNeg:
			if v == math.MinInt64 {
				return 0, expr
			}
			return -v, nil
		}
		return 0, expr
	case ast.ExprBinary:
		data := expr.Data.(ast.BinaryData)
		l, bad := EvalErr(data.Left, lookup)
		if bad != nil {
			return 0, bad
		}
		r, bad := EvalErr(data.Right, lookup)
		if bad != nil {
			return 0, bad
		}
		v, ok := fold(data.Op, l, r)
		if !ok {
			return 0, expr
		}
		return v, nil
	}
	return 0, expr
}

// fold applies op with overflow and division checks.
func fold(op ast.BinaryOp, l, r int64) (int64, bool) {
	switch op {
	case ast.BinAdd:
		s := l + r
		if (s > l) != (r > 0) {
			return 0, false
		}
		return s, true
	case ast.BinSub:
		d := l - r
		if (d < l) != (r > 0) {
			return 0, false
		}
		return d, true
	case ast.BinMul:
		if l == 0 || r == 0 {
			return 0, true
		}
		p := l * r
		if p/r != l || (l == -1 && r == math.MinInt64) || (r == -1 && l == math.MinInt64) {
			return 0, false
		}
		return p, true
	case ast.BinDiv:
		if r == 0 || (l == math.MinInt64 && r == -1) {
			return 0, false
		}
		return l / r, true
	case ast.BinMod:
		if r == 0 || (l == math.MinInt64 && r == -1) {
			return 0, false
		}
		return l % r, true
	}
	return 0, false
}
