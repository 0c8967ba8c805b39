package mir

import (
	"fmt"

	"fortio.org/safecast"

	"qlower/internal/source"
)

// Builder appends blocks and instructions to one function. Callers only
// ever hold BlockID handles; the arena may grow under them.
type Builder struct {
	f   *Func
	cur BlockID
}

// InsertPoint is a saved builder cursor.
type InsertPoint struct {
	Block BlockID
}

// NewBuilder creates the entry block of f and positions the cursor in it.
func NewBuilder(f *Func) *Builder {
	b := &Builder{f: f, cur: NoBlockID}
	if f.Entry == NoBlockID || len(f.Blocks) == 0 {
		f.Entry = b.NewBlock()
	}
	b.cur = f.Entry
	return b
}

// Func returns the function being built.
func (b *Builder) Func() *Func { return b.f }

// NewBlock appends an open, unlinked block and returns its handle.
// The insertion point does not move.
func (b *Builder) NewBlock() BlockID {
	raw, err := safecast.Conv[int32](len(b.f.Blocks))
	if err != nil {
		panic(fmt.Errorf("mir: block id overflow: %w", err))
	}
	id := BlockID(raw)
	b.f.Blocks = append(b.f.Blocks, Block{ID: id, Term: Terminator{Kind: TermNone}})
	return id
}

// SetInsertionPoint moves the cursor to bb, which must belong to this
// function.
func (b *Builder) SetInsertionPoint(bb BlockID) {
	if b.f.Block(bb) == nil {
		panic(fmt.Sprintf("mir: block %d is not in function %s", bb, b.f.Name))
	}
	b.cur = bb
}

func (b *Builder) CurrentBlock() BlockID { return b.cur }

func (b *Builder) SaveInsertionPoint() InsertPoint { return InsertPoint{Block: b.cur} }

func (b *Builder) RestoreInsertionPoint(ip InsertPoint) { b.SetInsertionPoint(ip.Block) }

// Terminated reports whether the current block already has a terminator.
func (b *Builder) Terminated() bool { return b.f.Block(b.cur).Terminated() }

// NewValue allocates a fresh value of type t.
func (b *Builder) NewValue(t Type, name string) ValueID {
	raw, err := safecast.Conv[int32](len(b.f.Values))
	if err != nil {
		panic(fmt.Errorf("mir: value id overflow: %w", err))
	}
	b.f.Values = append(b.f.Values, Value{Type: t, Name: name})
	return ValueID(raw)
}

// AddParam declares a function parameter and returns its value.
func (b *Builder) AddParam(name string, t Type) ValueID {
	v := b.NewValue(t, name)
	b.f.Params = append(b.f.Params, Param{Name: name, Type: t, Value: v})
	return v
}

// Emit appends ins to the current block and returns its result value
// (NoValueID for void instructions). Instructions emitted after the block
// is terminated are unreachable and dropped.
func (b *Builder) Emit(ins Instr) ValueID {
	bb := b.f.Block(b.cur)
	if bb == nil || bb.Terminated() {
		return NoValueID
	}
	ins.Dst = NoValueID
	if ins.Type != TypeVoid {
		ins.Dst = b.NewValue(ins.Type, "")
	}
	// NewValue never touches Blocks, so bb is still valid.
	bb.Instrs = append(bb.Instrs, ins)
	return ins.Dst
}

// Terminate sets the terminator of the current block unless one is
// already present.
func (b *Builder) Terminate(t Terminator) {
	bb := b.f.Block(b.cur)
	if bb == nil || bb.Terminated() {
		return
	}
	bb.Term = t
}

// Convenience emitters.

func (b *Builder) ConstInt(v int64, span source.Span) ValueID {
	return b.Emit(Instr{Kind: InstrConst, Type: TypeInt, Span: span, Const: ConstInstr{Int: v}})
}

func (b *Builder) ConstFloat(v float64, span source.Span) ValueID {
	return b.Emit(Instr{Kind: InstrConst, Type: TypeFloat, Span: span, Const: ConstInstr{Float: v}})
}

func (b *Builder) ConstBool(v bool, span source.Span) ValueID {
	return b.Emit(Instr{Kind: InstrConst, Type: TypeBool, Span: span, Const: ConstInstr{Bool: v}})
}

func (b *Builder) ConstString(v string, span source.Span) ValueID {
	return b.Emit(Instr{Kind: InstrConst, Type: TypeString, Span: span, Const: ConstInstr{Str: v}})
}

// Alloc reserves a memory region of count cells.
func (b *Builder) Alloc(elem Type, count int64, span source.Span) ValueID {
	return b.Emit(Instr{Kind: InstrAlloc, Type: TypeMem, Span: span, Alloc: AllocInstr{Elem: elem, Count: count}})
}

// Load reads mem[index]; pass NoValueID as index for a single cell.
func (b *Builder) Load(t Type, mem, index ValueID, span source.Span) ValueID {
	return b.Emit(Instr{Kind: InstrLoad, Type: t, Span: span, Load: LoadInstr{Mem: mem, Index: index}})
}

func (b *Builder) Store(mem, index, value ValueID, span source.Span) {
	b.Emit(Instr{Kind: InstrStore, Span: span, Store: StoreInstr{Mem: mem, Index: index, Value: value}})
}

func (b *Builder) Binary(op BinOp, t Type, l, r ValueID, span source.Span) ValueID {
	return b.Emit(Instr{Kind: InstrBinary, Type: t, Span: span, Binary: BinaryInstr{Op: op, Left: l, Right: r}})
}

func (b *Builder) Compare(p Pred, l, r ValueID, span source.Span) ValueID {
	return b.Emit(Instr{Kind: InstrCompare, Type: TypeBool, Span: span, Compare: CompareInstr{Pred: p, Left: l, Right: r}})
}

func (b *Builder) Goto(target BlockID) { b.Terminate(Goto(target)) }

func (b *Builder) If(cond ValueID, then, els BlockID) { b.Terminate(If(cond, then, els)) }
