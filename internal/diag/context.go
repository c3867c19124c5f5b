package diag

import (
	"errors"
	"fmt"
	"sync"

	"github.com/roach88/tessera/internal/ir"
)

// ErrAborted matches every *AbortError.
var ErrAborted = errors.New("compilation aborted")

// AbortError is returned by Render when an error or bug was recorded.
type AbortError struct {
	// First is the first aborting diagnostic of the flush.
	First Diagnostic
	Count int
}

func (e *AbortError) Error() string {
	if e.First.Code != "" {
		return fmt.Sprintf("compilation aborted: %s[%s]: %s", e.First.Level, e.First.Code, e.First.Message)
	}
	return fmt.Sprintf("compilation aborted: %s: %s", e.First.Level, e.First.Message)
}

func (e *AbortError) Is(target error) bool {
	return target == ErrAborted
}

// Context accumulates diagnostics for one compilation unit and forwards them
// to a Renderer. A Context is safe for concurrent use.
type Context struct {
	mu       sync.Mutex
	renderer Renderer
	pending  []Diagnostic
	aborted  bool
}

// NewContext creates a Context that flushes to r. A nil r discards.
func NewContext(r Renderer) *Context {
	if r == nil {
		r = discard{}
	}
	return &Context{renderer: r}
}

// Emit records a diagnostic without a code.
//
// Panics if span is not valid: every diagnostic must point into a source.
func (c *Context) Emit(level Level, message string, span ir.Span) {
	c.EmitCode(level, "", message, span)
}

// EmitCode records a diagnostic with a stable code.
func (c *Context) EmitCode(level Level, code Code, message string, span ir.Span) {
	if !span.IsValid() {
		panic(fmt.Sprintf("diag: span must not be null (%s: %s)", level, message))
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pending = append(c.pending, Diagnostic{Level: level, Code: code, Message: message, Span: span})
}

// Render flushes recorded diagnostics in emission order. It returns an
// *AbortError if any flushed diagnostic is an error or a bug. A renderer
// failure is returned as-is.
func (c *Context) Render() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	pending := c.pending
	c.pending = nil

	var abort *AbortError
	for _, d := range pending {
		if err := c.renderer.Render(d); err != nil {
			return fmt.Errorf("render diagnostic: %w", err)
		}
		if d.Level.Aborts() {
			if abort == nil {
				abort = &AbortError{First: d}
			}
			abort.Count++
		}
	}
	if abort != nil {
		c.aborted = true
		return abort
	}
	return nil
}

// Aborted reports whether any Render call has aborted.
func (c *Context) Aborted() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.aborted
}
