package store

import (
	"context"
	"sync"

	"github.com/roach88/tessera/internal/ir"
)

// Scope exposes stored modules as a definition scope for lowering.
//
// Resolved functions are cached so every caller importing a name gets the
// same *ir.Function. Modules written after the first lookup of a name are
// not seen for that name.
type Scope struct {
	store *Store

	mu    sync.Mutex
	cache map[string]*ir.Function
}

// Scope returns a definition scope backed by s.
func (s *Store) Scope() *Scope {
	return &Scope{store: s, cache: make(map[string]*ir.Function)}
}

// Resolve implements compiler.DefinitionScope.
func (sc *Scope) Resolve(ctx context.Context, name string) (*ir.Function, bool, error) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	if fn, ok := sc.cache[name]; ok {
		return fn, true, nil
	}
	fn, ok, err := sc.store.LookupFunction(ctx, name)
	if err != nil || !ok {
		return nil, false, err
	}
	sc.cache[name] = fn
	return fn, true, nil
}
