package symbols

import "qlower/internal/mir"

// scope is one level of the scope stack.
type scope struct {
	names map[string]Binding
}

func newScope() *scope {
	return &scope{names: make(map[string]Binding)}
}

// LoopContext is what break and continue resolve against.
type LoopContext struct {
	Exit mir.BlockID
	// Continue is the increment block of a counted loop or the header of
	// a condition loop.
	Continue mir.BlockID
}
