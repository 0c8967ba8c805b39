package llvm

import (
	"fmt"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"

	"qlower/internal/mir"
)

func (fe *funcEmitter) emitTerm(blk *ir.Block, term *mir.Terminator) error {
	switch term.Kind {
	case mir.TermReturn:
		return fe.emitReturn(blk, term)
	case mir.TermGoto:
		target, err := fe.block(term.Goto.Target)
		if err != nil {
			return err
		}
		blk.NewBr(target)
	case mir.TermIf:
		cond, err := fe.value(term.If.Cond)
		if err != nil {
			return err
		}
		then, err := fe.block(term.If.Then)
		if err != nil {
			return err
		}
		els, err := fe.block(term.If.Else)
		if err != nil {
			return err
		}
		blk.NewCondBr(cond, then, els)
	case mir.TermUnreachable:
		blk.NewUnreachable()
	default:
		return fmt.Errorf("unsupported terminator %s", term.Kind)
	}
	return nil
}

func (fe *funcEmitter) emitReturn(blk *ir.Block, term *mir.Terminator) error {
	if !term.Return.HasValue {
		if fe.main {
			blk.NewRet(constant.NewInt(types.I32, 0))
		} else {
			blk.NewRet(nil)
		}
		return nil
	}
	var v value.Value
	v, err := fe.value(term.Return.Value)
	if err != nil {
		return err
	}
	if fe.main {
		v = narrowI32(blk, v)
	}
	blk.NewRet(v)
	return nil
}

func (fe *funcEmitter) block(id mir.BlockID) (*ir.Block, error) {
	if id < 0 || int(id) >= len(fe.blocks) || fe.blocks[id] == nil {
		return nil, fmt.Errorf("branch to missing block bb%d", id)
	}
	return fe.blocks[id], nil
}
