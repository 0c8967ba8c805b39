package symbols

import "qlower/internal/mir"

// Registry holds the module-wide, append-only state shared by every
// function table of one compilation unit. It has a single writer.
type Registry struct {
	funcNames []string
	seen      map[string]struct{}
	cleanups  []mir.ValueRef
}

func NewRegistry() *Registry {
	return &Registry{seen: make(map[string]struct{})}
}

// AddFunctionName records name once and reports whether it was new.
func (r *Registry) AddFunctionName(name string) bool {
	if _, ok := r.seen[name]; ok {
		return false
	}
	r.seen[name] = struct{}{}
	r.funcNames = append(r.funcNames, name)
	return true
}

// HasFunction reports whether name was recorded.
func (r *Registry) HasFunction(name string) bool {
	_, ok := r.seen[name]
	return ok
}

// FunctionNames lists recorded names in insertion order.
func (r *Registry) FunctionNames() []string {
	return append([]string(nil), r.funcNames...)
}

func (r *Registry) RegisterCleanup(ref mir.ValueRef) {
	r.cleanups = append(r.cleanups, ref)
}

// Cleanups lists pending cleanups in registration order.
func (r *Registry) Cleanups() []mir.ValueRef {
	return append([]mir.ValueRef(nil), r.cleanups...)
}

// CleanupsFor returns the cleanups registered by function fn.
func (r *Registry) CleanupsFor(fn mir.FuncID) []mir.ValueID {
	var out []mir.ValueID
	for _, ref := range r.cleanups {
		if ref.Func == fn {
			out = append(out, ref.Value)
		}
	}
	return out
}
