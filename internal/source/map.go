// Package source registers the text of a compilation unit's source files and
// rebases AST spans onto that registry.
package source

import (
	"fmt"
	"strings"
	"sync"

	"github.com/roach88/tessera/internal/ast"
	"github.com/roach88/tessera/internal/ir"
)

// UnregisteredSourceError is the panic value of Translate when a span names a
// file that was never added. It signals a broken caller, not bad user input.
type UnregisteredSourceError struct {
	File string
}

func (e *UnregisteredSourceError) Error() string {
	return fmt.Sprintf("source %q was not registered before span translation", e.File)
}

type entry struct {
	name  string
	text  string
	lines []string
}

// Map is the source table of one compilation unit. Ids start at 1.
// A Map is safe for concurrent use.
type Map struct {
	mu      sync.RWMutex
	byName  map[string]ir.SourceID
	entries []entry
}

// NewMap returns an empty source table.
func NewMap() *Map {
	return &Map{byName: make(map[string]ir.SourceID)}
}

// Add registers text under name and returns its id. Adding a name again
// replaces its text and keeps the id.
func (m *Map) Add(name, text string) ir.SourceID {
	m.mu.Lock()
	defer m.mu.Unlock()

	e := entry{name: name, text: text, lines: strings.Split(text, "\n")}
	if id, ok := m.byName[name]; ok {
		m.entries[id-1] = e
		return id
	}
	m.entries = append(m.entries, e)
	id := ir.SourceID(len(m.entries))
	m.byName[name] = id
	return id
}

// Lookup returns the id registered for name.
func (m *Map) Lookup(name string) (ir.SourceID, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.byName[name]
	return id, ok
}

// Translate rebases span onto the table.
//
// Panics with *UnregisteredSourceError if span.File was never added.
func (m *Map) Translate(span ast.Span) ir.Span {
	id, ok := m.Lookup(span.File)
	if !ok {
		panic(&UnregisteredSourceError{File: span.File})
	}
	return ir.Span{
		Source:    id,
		StartLine: span.StartLine,
		EndLine:   span.EndLine,
		StartCol:  span.StartCol,
		EndCol:    span.EndCol,
	}
}

func (m *Map) get(id ir.SourceID) (entry, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if id < 1 || int(id) > len(m.entries) {
		return entry{}, false
	}
	return m.entries[id-1], true
}

// Name returns the file name of id, or "" if unknown.
func (m *Map) Name(id ir.SourceID) string {
	e, _ := m.get(id)
	return e.name
}

// Text returns the full text of id, or "" if unknown.
func (m *Map) Text(id ir.SourceID) string {
	e, _ := m.get(id)
	return e.text
}

// Line returns the 1-based line n of id.
func (m *Map) Line(id ir.SourceID, n int) (string, bool) {
	e, ok := m.get(id)
	if !ok || n < 1 || n > len(e.lines) {
		return "", false
	}
	return e.lines[n-1], true
}

// Len returns the number of registered sources.
func (m *Map) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}
