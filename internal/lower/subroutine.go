package lower

import (
	"qlower/internal/ast"
	"qlower/internal/mir"
	"qlower/internal/source"
	"qlower/internal/symbols"
)

// ParamType maps a subroutine parameter type to its MIR type.
func ParamType(t *ast.Type) (mir.Type, error) {
	if t == nil {
		return mir.TypeVoid, errorf(ErrType, source.Span{}, "parameter has no type")
	}
	if t.IsQuantum() {
		if t.IsRegister() {
			return mir.TypeQreg, nil
		}
		return mir.TypeQubit, nil
	}
	if t.IsRegister() {
		return mir.TypeVoid, errorf(ErrUnsupported, t.Span, "bit register parameters")
	}
	return scalarType(t)
}

// ResultType maps a subroutine result type; nil means no result.
func ResultType(t *ast.Type) (mir.Type, error) {
	if t == nil {
		return mir.TypeVoid, nil
	}
	if t.IsQuantum() || t.IsRegister() {
		return mir.TypeVoid, errorf(ErrType, t.Span, "subroutines cannot return %s", t.Kind)
	}
	return scalarType(t)
}

// LowerSubroutine binds the parameters already declared on the function,
// lowers the body and terminates a fall-through with a return. Functions
// with a result return its zero value when control falls off the end.
func (l *Lowerer) LowerSubroutine(def ast.DefData) error {
	if len(def.Params) != len(l.fn.Params) {
		return errorf(ErrType, l.fn.Span, "%s declares %d parameters, function has %d", def.Name, len(def.Params), len(l.fn.Params))
	}
	for i, p := range def.Params {
		fp := l.fn.Params[i]
		var b symbols.Binding
		switch fp.Type {
		case mir.TypeQubit:
			b = symbols.Binding{Kind: symbols.SymbolQubit, Value: fp.Value, Type: fp.Type}
		case mir.TypeQreg:
			size, err := l.designator(p.Type.Size, p.Name)
			if err != nil {
				return err
			}
			b = symbols.Binding{Kind: symbols.SymbolQreg, Value: fp.Value, Type: fp.Type, Size: size, Attrs: symbols.FlagRegister}
		default:
			// Classical parameters are copied so the body may assign them.
			mem := l.b.Alloc(fp.Type, 1, p.Span)
			l.b.Store(mem, mir.NoValueID, fp.Value, p.Span)
			b = symbols.Binding{Kind: symbols.SymbolVar, Value: mem, Type: fp.Type}
		}
		b.Attrs |= symbols.FlagParam
		b.Span = p.Span
		if err := l.bind(p.Name, b); err != nil {
			return err
		}
	}
	if err := l.LowerStmts(def.Body); err != nil {
		return err
	}
	l.Resume()
	if l.b.Terminated() {
		return nil
	}
	switch l.fn.Result {
	case mir.TypeVoid:
		l.b.Terminate(mir.Return())
	case mir.TypeFloat:
		l.b.Terminate(mir.ReturnValue(l.b.ConstFloat(0, l.fn.Span)))
	case mir.TypeBool:
		l.b.Terminate(mir.ReturnValue(l.b.ConstBool(false, l.fn.Span)))
	default:
		l.b.Terminate(mir.ReturnValue(l.b.ConstInt(0, l.fn.Span)))
	}
	return nil
}
