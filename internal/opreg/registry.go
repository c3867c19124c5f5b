package opreg

import (
	"fmt"
	"slices"
	"sync"
)

// Variadic is the arity of an operator that accepts any argument count.
const Variadic = -1

// DefaultLevel is the priority of a registration without an explicit level.
const DefaultLevel = 10

// Op describes a primitive operator.
type Op struct {
	Name    string
	Arity   int
	Pattern Pattern
	Level   int
	Attrs   map[string]string
	Doc     string
}

// Registry maps operator names to descriptors. It is safe for concurrent use.
type Registry struct {
	mu  sync.RWMutex
	ops map[string]*Op
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{ops: make(map[string]*Op)}
}

// Register adds op. An existing registration is replaced only by one with a
// higher level; equal levels conflict.
func (r *Registry) Register(op *Op) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if prev, ok := r.ops[op.Name]; ok {
		if prev.Level == op.Level {
			return fmt.Errorf("operator %q already registered at level %d", op.Name, op.Level)
		}
		if prev.Level > op.Level {
			return nil
		}
	}
	r.ops[op.Name] = op
	return nil
}

// Lookup returns the operator registered under name.
func (r *Registry) Lookup(name string) (*Op, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	op, ok := r.ops[name]
	return op, ok
}

// Names returns every registered name in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.ops))
	for name := range r.ops {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Len returns the number of registered operators.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.ops)
}

// ValidateOp checks that name is registered and accepts argc arguments.
func (r *Registry) ValidateOp(name string, argc int) error {
	op, ok := r.Lookup(name)
	if !ok {
		return fmt.Errorf("unknown operator `%s`", name)
	}
	if op.Arity != Variadic && op.Arity != argc {
		return fmt.Errorf("operator `%s` takes %d arguments, got %d", name, op.Arity, argc)
	}
	return nil
}
