package testutil

import (
	"fmt"
	"sync"
)

// SequenceGenerator hands out deterministic variable ids: prefix1, prefix2, ...
//
// Unlike ir.UUIDv7Generator, SequenceGenerator can be reset for test reuse,
// so the same lowering run twice produces identical ids.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type SequenceGenerator struct {
	mu     sync.Mutex
	prefix string
	seq    int64
}

// NewSequenceGenerator creates a generator whose first id is prefix+"1".
// An empty prefix defaults to "v".
func NewSequenceGenerator(prefix string) *SequenceGenerator {
	if prefix == "" {
		prefix = "v"
	}
	return &SequenceGenerator{prefix: prefix}
}

// Generate returns the next id.
//
// Implements ir.IDGenerator.
func (g *SequenceGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.seq++
	return fmt.Sprintf("%s%d", g.prefix, g.seq)
}

// Count returns how many ids have been generated since the last reset.
func (g *SequenceGenerator) Count() int64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.seq
}

// Reset restarts the sequence. The next Generate returns prefix+"1".
func (g *SequenceGenerator) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.seq = 0
}
