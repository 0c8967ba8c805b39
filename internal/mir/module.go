package mir

import (
	"fmt"

	"fortio.org/safecast"
)

// Module owns every function produced for one compilation unit.
// Funcs keeps creation order.
type Module struct {
	Name  string
	Funcs []*Func

	byName map[string]FuncID
}

func NewModule(name string) *Module {
	return &Module{Name: name, byName: make(map[string]FuncID)}
}

// AddFunc appends an empty function. Names must be unique.
func (m *Module) AddFunc(name string, result Type) (*Func, error) {
	if m.byName == nil {
		m.Reindex()
	}
	if _, exists := m.byName[name]; exists {
		return nil, fmt.Errorf("mir: duplicate function %q", name)
	}
	raw, err := safecast.Conv[int32](len(m.Funcs))
	if err != nil {
		return nil, fmt.Errorf("mir: function id overflow: %w", err)
	}
	f := &Func{ID: FuncID(raw), Name: name, Result: result, Entry: NoBlockID}
	m.Funcs = append(m.Funcs, f)
	m.byName[name] = f.ID
	return f, nil
}

// Func looks a function up by name.
func (m *Module) Func(name string) (*Func, bool) {
	if m == nil {
		return nil, false
	}
	if m.byName == nil {
		m.Reindex()
	}
	id, ok := m.byName[name]
	if !ok {
		return nil, false
	}
	return m.Funcs[id], true
}

// FuncByID returns nil for unknown ids.
func (m *Module) FuncByID(id FuncID) *Func {
	if m == nil || id < 0 || int(id) >= len(m.Funcs) {
		return nil
	}
	return m.Funcs[id]
}

// Reindex rebuilds the name index, e.g. after decoding from the cache.
func (m *Module) Reindex() {
	m.byName = make(map[string]FuncID, len(m.Funcs))
	for i, f := range m.Funcs {
		if f == nil {
			continue
		}
		f.ID = FuncID(i) //nolint:gosec // bounded by len(m.Funcs), checked in AddFunc
		m.byName[f.Name] = f.ID
	}
}

// FuncNames lists function names in creation order.
func (m *Module) FuncNames() []string {
	out := make([]string, 0, len(m.Funcs))
	for _, f := range m.Funcs {
		out = append(out, f.Name)
	}
	return out
}
