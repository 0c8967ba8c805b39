package mir

import "qlower/internal/source"

// Value describes one SSA value of a function.
type Value struct {
	Type Type
	Name string // optional hint for dumps
}

type Param struct {
	Name  string
	Type  Type
	Value ValueID
}

type Func struct {
	ID     FuncID
	Name   string
	Span   source.Span
	Params []Param
	Result Type

	Values []Value
	Blocks []Block
	Entry  BlockID
}

// Block returns the block for id, or nil when id is out of range.
func (f *Func) Block(id BlockID) *Block {
	if f == nil || id < 0 || int(id) >= len(f.Blocks) {
		return nil
	}
	return &f.Blocks[id]
}

// ValueType returns the type of v, or TypeVoid for unknown values.
func (f *Func) ValueType(v ValueID) Type {
	if f == nil || v < 0 || int(v) >= len(f.Values) {
		return TypeVoid
	}
	return f.Values[v].Type
}
