package compiler

import (
	"context"

	"github.com/roach88/tessera/internal/ir"
)

// Scope maps in-scope names to IR variables for the function being lowered.
// Declaring a name again shadows the earlier variable.
type Scope struct {
	ids  ir.IDGenerator
	vars map[string]*ir.Var
}

// NewScope returns an empty scope drawing variable ids from ids.
func NewScope(ids ir.IDGenerator) *Scope {
	return &Scope{ids: ids, vars: make(map[string]*ir.Var)}
}

// Declare creates a fresh variable and binds name to it.
func (s *Scope) Declare(name string, ty ir.Type, span ir.Span) *ir.Var {
	v := ir.NewVar(s.ids, name, ty, span)
	s.vars[name] = v
	return v
}

// Lookup returns the most recently declared variable for name.
func (s *Scope) Lookup(name string) (*ir.Var, bool) {
	v, ok := s.vars[name]
	return v, ok
}

// DefinitionScope exposes already-lowered sibling functions by name.
type DefinitionScope interface {
	// Resolve returns the function exported under name. A missing name is
	// (nil, false, nil); err is reserved for lookup failures.
	Resolve(ctx context.Context, name string) (*ir.Function, bool, error)
}

// ModuleScope exposes the functions of already-lowered modules. Later
// modules shadow earlier ones.
type ModuleScope struct {
	modules []*ir.Module
}

// NewModuleScope returns a scope over mods, searched last to first.
func NewModuleScope(mods ...*ir.Module) *ModuleScope {
	return &ModuleScope{modules: mods}
}

// Add makes m visible, shadowing every module added before it.
func (s *ModuleScope) Add(m *ir.Module) {
	s.modules = append(s.modules, m)
}

func (s *ModuleScope) Resolve(_ context.Context, name string) (*ir.Function, bool, error) {
	for i := len(s.modules) - 1; i >= 0; i-- {
		if fn, ok := s.modules[i].Get(name); ok {
			return fn, true, nil
		}
	}
	return nil, false, nil
}

// ChainScope consults each scope in order and returns the first hit.
type ChainScope []DefinitionScope

func (c ChainScope) Resolve(ctx context.Context, name string) (*ir.Function, bool, error) {
	for _, s := range c {
		if s == nil {
			continue
		}
		fn, ok, err := s.Resolve(ctx, name)
		if err != nil || ok {
			return fn, ok, err
		}
	}
	return nil, false, nil
}

// OpValidator is an optional early check of primitive-operator calls. Without
// one, unknown names are deferred to the downstream compiler.
type OpValidator interface {
	ValidateOp(name string, argc int) error
}
