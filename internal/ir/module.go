package ir

import (
	"slices"
	"sync"
)

// Module maps function names to lowered functions.
//
// Inserts are guarded so functions lowered concurrently can be added to the
// same module. A second Put for the same name replaces the first.
type Module struct {
	Name string

	mu    sync.RWMutex
	funcs map[string]*Function
}

// NewModule creates an empty module.
func NewModule(name string) *Module {
	return &Module{Name: name, funcs: make(map[string]*Function)}
}

// Put inserts fn under name and reports whether an earlier entry was replaced.
func (m *Module) Put(name string, fn *Function) (replaced bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.funcs == nil {
		m.funcs = make(map[string]*Function)
	}
	_, replaced = m.funcs[name]
	m.funcs[name] = fn
	return replaced
}

// Get returns the function stored under name.
func (m *Module) Get(name string) (*Function, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	fn, ok := m.funcs[name]
	return fn, ok
}

// Len returns the number of functions.
func (m *Module) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.funcs)
}

// Names returns function names in sorted order.
func (m *Module) Names() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, 0, len(m.funcs))
	for name := range m.funcs {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Functions returns the functions ordered by name.
func (m *Module) Functions() []*Function {
	names := m.Names()
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Function, 0, len(names))
	for _, name := range names {
		out = append(out, m.funcs[name])
	}
	return out
}
