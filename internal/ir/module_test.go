package ir

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestModulePutGet(t *testing.T) {
	m := NewModule("m")
	f := shapeFunction(&seqIDs{})

	assert.False(t, m.Put("f", f))
	got, ok := m.Get("f")
	require.True(t, ok)
	assert.Same(t, f, got)

	_, ok = m.Get("missing")
	assert.False(t, ok)
}

func TestModulePutReplaces(t *testing.T) {
	m := NewModule("m")
	first := shapeFunction(&seqIDs{})
	second := addFunction(&seqIDs{})

	m.Put("f", first)
	assert.True(t, m.Put("f", second))

	got, _ := m.Get("f")
	assert.Same(t, second, got, "last writer wins")
	assert.Equal(t, 1, m.Len())
}

func TestModuleNamesSorted(t *testing.T) {
	m := NewModule("m")
	for _, name := range []string{"zeta", "alpha", "mid"} {
		m.Put(name, shapeFunction(&seqIDs{}))
	}
	assert.Equal(t, []string{"alpha", "mid", "zeta"}, m.Names())

	funcs := m.Functions()
	require.Len(t, funcs, 3)
}

func TestModuleConcurrentPut(t *testing.T) {
	m := NewModule("m")
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			m.Put(fmt.Sprintf("f%d", i), shapeFunction(UUIDv7Generator{}))
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 32, m.Len())
}

func TestZeroModulePut(t *testing.T) {
	var m Module
	m.Put("f", shapeFunction(&seqIDs{}))
	assert.Equal(t, 1, m.Len())
}
