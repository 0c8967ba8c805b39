// Package llvm emits QIR-flavoured LLVM IR for MIR modules using
// github.com/llir/llvm. Qubit registers become %Array*, qubits %Qubit*,
// measurement results %Result*; every quantum operation is a call into the
// QIR runtime.
package llvm

import (
	"fmt"
	"strings"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/types"

	"qlower/internal/mir"
)

type Emitter struct {
	mod *mir.Module
	out *ir.Module

	qubitPtr  types.Type
	arrayPtr  types.Type
	resultPtr types.Type

	funcs    map[string]*ir.Func
	runtime  map[string]*ir.Func
	decls    map[string]builtinDecl
	gates    map[string]*ir.Func
	strConst map[string]*ir.Global
}

// EmitModule translates a validated MIR module. Functions keep their MIR
// order and every MIR block becomes one LLVM block of the same index.
func EmitModule(mod *mir.Module) (*ir.Module, error) {
	if mod == nil {
		return nil, fmt.Errorf("llvm: nil module")
	}
	e := newEmitter(mod)
	if err := e.prepareFunctions(); err != nil {
		return nil, err
	}
	for _, f := range mod.Funcs {
		if err := e.emitFunc(f); err != nil {
			return nil, fmt.Errorf("llvm: function %s: %w", f.Name, err)
		}
	}
	return e.out, nil
}

// EmitText renders EmitModule's result as textual IR.
func EmitText(mod *mir.Module) (string, error) {
	m, err := EmitModule(mod)
	if err != nil {
		return "", err
	}
	return m.String(), nil
}

func newEmitter(mod *mir.Module) *Emitter {
	out := ir.NewModule()
	out.SourceFilename = mod.Name
	e := &Emitter{
		mod:      mod,
		out:      out,
		funcs:    make(map[string]*ir.Func, len(mod.Funcs)),
		runtime:  make(map[string]*ir.Func),
		decls:    make(map[string]builtinDecl),
		gates:    make(map[string]*ir.Func),
		strConst: make(map[string]*ir.Global),
	}
	e.qubitPtr = types.NewPointer(out.NewTypeDef("Qubit", &types.StructType{Opaque: true}))
	e.arrayPtr = types.NewPointer(out.NewTypeDef("Array", &types.StructType{Opaque: true}))
	e.resultPtr = types.NewPointer(out.NewTypeDef("Result", &types.StructType{Opaque: true}))
	for _, d := range runtimeDecls() {
		e.decls[d.name] = d
	}
	return e
}

// typeOf resolves the symbolic type names of builtinDecl.
func (e *Emitter) typeOf(name string) types.Type {
	switch name {
	case "void":
		return types.Void
	case "i1":
		return types.I1
	case "i32":
		return types.I32
	case "i64":
		return types.I64
	case "double":
		return types.Double
	case "i8*":
		return types.I8Ptr
	case "i8**":
		return types.NewPointer(types.I8Ptr)
	case "qubit":
		return e.qubitPtr
	case "array":
		return e.arrayPtr
	case "result":
		return e.resultPtr
	}
	panic(fmt.Sprintf("llvm: unknown builtin type %q", name))
}

// llType maps a MIR value type. Memory regions have no element type of
// their own; callers that need one use cellType.
func (e *Emitter) llType(t mir.Type) (types.Type, error) {
	switch t {
	case mir.TypeVoid:
		return types.Void, nil
	case mir.TypeInt:
		return types.I64, nil
	case mir.TypeFloat:
		return types.Double, nil
	case mir.TypeBool:
		return types.I1, nil
	case mir.TypeQubit:
		return e.qubitPtr, nil
	case mir.TypeQreg:
		return e.arrayPtr, nil
	case mir.TypeString:
		return types.I8Ptr, nil
	}
	return nil, fmt.Errorf("no LLVM type for %s", t)
}

// isMain reports whether f is the C entry point created by AddMain.
func isMain(f *mir.Func) bool {
	return f.Name == "main" && f.Result == mir.TypeInt && len(f.Params) == 2 &&
		f.Params[0].Type == mir.TypeInt && f.Params[1].Type == mir.TypeMem
}

// prepareFunctions declares every MIR function first so calls can refer
// to functions defined later.
func (e *Emitter) prepareFunctions() error {
	for _, f := range e.mod.Funcs {
		var (
			ret    types.Type
			params []*ir.Param
		)
		if isMain(f) {
			ret = types.I32
			params = []*ir.Param{ir.NewParam("argc", types.I32), ir.NewParam("argv", types.NewPointer(types.I8Ptr))}
		} else {
			var err error
			if ret, err = e.llType(f.Result); err != nil {
				return fmt.Errorf("llvm: function %s: %w", f.Name, err)
			}
			for _, p := range f.Params {
				t, err := e.llType(p.Type)
				if err != nil {
					return fmt.Errorf("llvm: function %s param %s: %w", f.Name, p.Name, err)
				}
				params = append(params, ir.NewParam(p.Name, t))
			}
		}
		e.funcs[f.Name] = e.out.NewFunc(f.Name, ret, params...)
	}
	return nil
}

// rt returns the declaration of a runtime function, adding it on first use.
func (e *Emitter) rt(name string) *ir.Func {
	if fn, ok := e.runtime[name]; ok {
		return fn
	}
	d, ok := e.decls[name]
	if !ok {
		panic(fmt.Sprintf("llvm: undeclared runtime function %s", name))
	}
	params := make([]*ir.Param, len(d.params))
	for i, p := range d.params {
		params[i] = ir.NewParam("", e.typeOf(p))
	}
	fn := e.out.NewFunc(name, e.typeOf(d.ret), params...)
	e.runtime[name] = fn
	return fn
}

// gate returns the intrinsic for a gate with the given operand counts.
func (e *Emitter) gate(name string, nparams, nqubits int) (*ir.Func, error) {
	sym := GateSymbol(name)
	if fn, ok := e.gates[sym]; ok {
		if len(fn.Params) != nparams+nqubits {
			return nil, fmt.Errorf("gate %s used with %d operands, declared with %d", name, nparams+nqubits, len(fn.Params))
		}
		return fn, nil
	}
	params := make([]*ir.Param, 0, nparams+nqubits)
	for range nparams {
		params = append(params, ir.NewParam("", types.Double))
	}
	for range nqubits {
		params = append(params, ir.NewParam("", e.qubitPtr))
	}
	fn := e.out.NewFunc(sym, types.Void, params...)
	e.gates[sym] = fn
	return fn, nil
}

// stringPtr returns an i8* to a NUL-terminated global holding s.
func (e *Emitter) stringPtr(s string) constant.Constant {
	g, ok := e.strConst[s]
	if !ok {
		name := fmt.Sprintf(".str.%d", len(e.strConst))
		g = e.out.NewGlobalDef(name, constant.NewCharArrayFromString(s+"\x00"))
		g.Immutable = true
		e.strConst[s] = g
	}
	zero := constant.NewInt(types.I64, 0)
	return constant.NewGetElementPtr(g.ContentType, g, zero, zero)
}

// blockName is the LLVM label of a MIR block.
func blockName(id mir.BlockID) string {
	return fmt.Sprintf("bb%d", id)
}

// sanitize keeps value names readable in the emitted text.
func sanitize(name string) string {
	return strings.Map(func(r rune) rune {
		if r == '_' || r == '.' || ('a' <= r && r <= 'z') || ('A' <= r && r <= 'Z') || ('0' <= r && r <= '9') {
			return r
		}
		return '_'
	}, name)
}
