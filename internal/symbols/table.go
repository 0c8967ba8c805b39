// Package symbols is the scoped symbol table used while lowering one
// function: a scope stack, a loop-context stack, the last-block slot and a
// handle to the module-wide Registry.
package symbols

import (
	"errors"
	"fmt"
	"maps"
	"slices"

	"qlower/internal/mir"
)

// ErrRedeclared is returned by Bind when the innermost scope already has
// the name.
var ErrRedeclared = errors.New("name already declared in this scope")

// Table is per function and not safe for concurrent use.
type Table struct {
	scopes []*scope
	loops  []LoopContext
	last   mir.BlockID
	reg    *Registry
}

// NewTable returns a table with its root scope entered. A nil registry
// gets a private one.
func NewTable(reg *Registry) *Table {
	if reg == nil {
		reg = NewRegistry()
	}
	return &Table{
		scopes: []*scope{newScope()},
		last:   mir.NoBlockID,
		reg:    reg,
	}
}

func (t *Table) Registry() *Registry { return t.reg }

// EnterScope pushes an empty scope.
func (t *Table) EnterScope() {
	t.scopes = append(t.scopes, newScope())
}

// ExitScope pops the innermost scope; its bindings become unreachable.
// The root scope cannot be popped.
func (t *Table) ExitScope() {
	if len(t.scopes) <= 1 {
		panic("symbols: ExitScope on root scope")
	}
	top := len(t.scopes) - 1
	t.scopes[top] = nil
	t.scopes = t.scopes[:top]
}

// Depth is the number of scopes on the stack, the root included.
func (t *Table) Depth() int { return len(t.scopes) }

// Bind inserts name into the innermost scope.
func (t *Table) Bind(name string, b Binding) error {
	s := t.scopes[len(t.scopes)-1]
	if _, exists := s.names[name]; exists {
		return fmt.Errorf("%w: %s", ErrRedeclared, name)
	}
	if len(t.scopes) == 1 {
		b.Attrs |= FlagGlobal
	}
	s.names[name] = b
	return nil
}

// Lookup searches from the innermost scope outwards.
func (t *Table) Lookup(name string) (Binding, bool) {
	for i := len(t.scopes) - 1; i >= 0; i-- {
		if b, ok := t.scopes[i].names[name]; ok {
			return b, true
		}
	}
	return Binding{}, false
}

// LookupConst resolves name to a compile-time integer constant.
func (t *Table) LookupConst(name string) (int64, bool) {
	b, ok := t.Lookup(name)
	if !ok || b.Kind != SymbolConst {
		return 0, false
	}
	return b.Const, true
}

// Constants returns the compile-time constants of the root scope, used to
// seed subroutine tables.
func (t *Table) Constants() map[string]int64 {
	out := make(map[string]int64)
	for name, b := range t.scopes[0].names {
		if b.Kind == SymbolConst {
			out[name] = b.Const
		}
	}
	return out
}

// SeedConstants binds every entry of consts in the root scope.
func (t *Table) SeedConstants(consts map[string]int64) {
	root := t.scopes[0]
	for _, name := range sortedKeys(consts) {
		if _, exists := root.names[name]; exists {
			continue
		}
		root.names[name] = Binding{Kind: SymbolConst, Const: consts[name], Value: mir.NoValueID, Attrs: FlagReadOnly | FlagGlobal}
	}
}

func (t *Table) PushLoop(ctx LoopContext) {
	t.loops = append(t.loops, ctx)
}

// PopLoop removes the innermost loop context.
func (t *Table) PopLoop() {
	if len(t.loops) == 0 {
		panic("symbols: PopLoop without loop")
	}
	t.loops = t.loops[:len(t.loops)-1]
}

// CurrentLoop returns the innermost loop context.
func (t *Table) CurrentLoop() (LoopContext, bool) {
	if len(t.loops) == 0 {
		return LoopContext{}, false
	}
	return t.loops[len(t.loops)-1], true
}

func (t *Table) LoopDepth() int { return len(t.loops) }

// SetLastBlock records where emission resumes after the tree walk.
func (t *Table) SetLastBlock(bb mir.BlockID) { t.last = bb }

// LastBlock returns the recorded block, if any.
func (t *Table) LastBlock() (mir.BlockID, bool) {
	return t.last, t.last != mir.NoBlockID
}

func (t *Table) RegisterCleanup(ref mir.ValueRef) { t.reg.RegisterCleanup(ref) }

func (t *Table) Cleanups() []mir.ValueRef { return t.reg.Cleanups() }

func (t *Table) AddFunctionName(name string) bool { return t.reg.AddFunctionName(name) }

func (t *Table) FunctionNames() []string { return t.reg.FunctionNames() }

func sortedKeys(m map[string]int64) []string {
	return slices.Sorted(maps.Keys(m))
}
