package llvm

import (
	"fmt"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"

	"qlower/internal/mir"
)

// memSlot describes the storage behind a TypeMem value.
type memSlot struct {
	ptr   value.Value
	elem  types.Type
	array *types.ArrayType // non-nil for multi-cell regions
}

type funcEmitter struct {
	e      *Emitter
	f      *mir.Func
	fn     *ir.Func
	main   bool
	blocks []*ir.Block // indexed by MIR block id
	entry  *ir.Block
	vals   []value.Value
	mems   map[mir.ValueID]memSlot
	allocs []ir.Instruction
}

func (e *Emitter) emitFunc(f *mir.Func) error {
	fe := &funcEmitter{
		e:      e,
		f:      f,
		fn:     e.funcs[f.Name],
		main:   isMain(f),
		blocks: make([]*ir.Block, len(f.Blocks)),
		vals:   make([]value.Value, len(f.Values)),
		mems:   make(map[mir.ValueID]memSlot),
	}
	if len(f.Blocks) == 0 {
		return fmt.Errorf("no blocks")
	}
	order := blockOrder(f)
	for _, id := range order {
		fe.blocks[id] = fe.fn.NewBlock(blockName(id))
	}
	fe.entry = fe.blocks[f.Entry]
	fe.bindParams()

	for _, id := range order {
		bb := f.Block(id)
		blk := fe.blocks[id]
		for i := range bb.Instrs {
			if err := fe.emitInstr(blk, &bb.Instrs[i]); err != nil {
				return fmt.Errorf("bb%d: %s: %w", id, mir.FormatInstr(&bb.Instrs[i]), err)
			}
		}
		if err := fe.emitTerm(blk, &bb.Term); err != nil {
			return fmt.Errorf("bb%d: %w", id, err)
		}
	}
	if len(fe.allocs) > 0 {
		fe.entry.Insts = append(fe.allocs, fe.entry.Insts...)
	}
	return nil
}

// bindParams maps MIR parameters to LLVM ones. main keeps its i32 argc;
// the only consumer is the runtime initialize call, which takes an i32.
func (fe *funcEmitter) bindParams() {
	for i, p := range fe.f.Params {
		param := fe.fn.Params[i]
		switch {
		case p.Type == mir.TypeMem:
			fe.vals[p.Value] = param
			fe.mems[p.Value] = memSlot{ptr: param, elem: types.I8Ptr}
		default:
			fe.vals[p.Value] = param
		}
	}
}

// narrowI32 converts an int operand for an i32 slot. Constants are
// rebuilt and i32 values pass through; anything else is truncated.
func narrowI32(blk *ir.Block, v value.Value) value.Value {
	if v.Type().Equal(types.I32) {
		return v
	}
	if c, ok := v.(*constant.Int); ok {
		return constant.NewInt(types.I32, c.X.Int64())
	}
	return blk.NewTrunc(v, types.I32)
}

// blockOrder lists reachable blocks in reverse postorder from the entry,
// followed by unreachable ones in id order, so every definition is emitted
// before its dominated uses.
func blockOrder(f *mir.Func) []mir.BlockID {
	seen := make([]bool, len(f.Blocks))
	var post []mir.BlockID
	var visit func(id mir.BlockID)
	visit = func(id mir.BlockID) {
		if f.Block(id) == nil || seen[id] {
			return
		}
		seen[id] = true
		for _, s := range f.Block(id).Term.Successors() {
			visit(s)
		}
		post = append(post, id)
	}
	visit(f.Entry)

	order := make([]mir.BlockID, 0, len(f.Blocks))
	for i := len(post) - 1; i >= 0; i-- {
		order = append(order, post[i])
	}
	for i := range f.Blocks {
		if !seen[i] {
			order = append(order, mir.BlockID(i))
		}
	}
	return order
}

func (fe *funcEmitter) value(id mir.ValueID) (value.Value, error) {
	if !id.IsValid() || int(id) >= len(fe.vals) || fe.vals[id] == nil {
		return nil, fmt.Errorf("use of undefined value %%%d", id)
	}
	return fe.vals[id], nil
}

func (fe *funcEmitter) values(ids []mir.ValueID) ([]value.Value, error) {
	out := make([]value.Value, len(ids))
	for i, id := range ids {
		v, err := fe.value(id)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (fe *funcEmitter) localName(id mir.ValueID, fallback string) string {
	name := fe.f.Values[id].Name
	if name == "" {
		name = fallback
	}
	return fmt.Sprintf("%s.%d", sanitize(name), id)
}

// zero returns the zero constant of a scalar cell type.
func zero(t types.Type) constant.Constant {
	switch t {
	case types.Double:
		return constant.NewFloat(types.Double, 0)
	case types.I1:
		return constant.False
	}
	return constant.NewInt(types.I64, 0)
}
