package diag

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/roach88/tessera/internal/source"
)

// Renderer is the reporting engine diagnostics are flushed to.
type Renderer interface {
	Render(d Diagnostic) error
}

type discard struct{}

func (discard) Render(Diagnostic) error { return nil }

// Collector keeps every rendered diagnostic in order.
type Collector struct {
	mu    sync.Mutex
	items []Diagnostic
}

func (c *Collector) Render(d Diagnostic) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = append(c.items, d)
	return nil
}

// Diagnostics returns a copy of the collected diagnostics.
func (c *Collector) Diagnostics() []Diagnostic {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Diagnostic, len(c.items))
	copy(out, c.items)
	return out
}

// Tee renders to every renderer in order, stopping at the first failure.
type Tee []Renderer

func (t Tee) Render(d Diagnostic) error {
	for _, r := range t {
		if err := r.Render(d); err != nil {
			return err
		}
	}
	return nil
}

// TextRenderer writes diagnostics in a Rust-style format with the offending
// source line and a caret underline:
//
//	error[UNBOUND_NAME]: unbound name `z`
//	  --> kernel.py:2:12
//	   |
//	 2 |     return z
//	   |            ^
//	   |
type TextRenderer struct {
	W       io.Writer
	Sources *source.Map
}

func (r *TextRenderer) Render(d Diagnostic) error {
	var b strings.Builder
	if d.Code != "" {
		fmt.Fprintf(&b, "%s[%s]: %s\n", d.Level, d.Code, d.Message)
	} else {
		fmt.Fprintf(&b, "%s: %s\n", d.Level, d.Message)
	}

	name := fmt.Sprintf("#%d", d.Span.Source)
	if r.Sources != nil {
		if n := r.Sources.Name(d.Span.Source); n != "" {
			name = n
		}
	}
	fmt.Fprintf(&b, "  --> %s:%d:%d\n", name, d.Span.StartLine, d.Span.StartCol)

	var line string
	var ok bool
	if r.Sources != nil {
		line, ok = r.Sources.Line(d.Span.Source, d.Span.StartLine)
	}
	if ok {
		num := fmt.Sprintf("%d", d.Span.StartLine)
		pad := strings.Repeat(" ", len(num))
		fmt.Fprintf(&b, " %s |\n", pad)
		fmt.Fprintf(&b, " %s | %s\n", num, line)
		fmt.Fprintf(&b, " %s | %s\n", pad, underline(line, d))
		fmt.Fprintf(&b, " %s |\n", pad)
	}

	_, err := io.WriteString(r.W, b.String())
	return err
}

// underline marks the span's columns on its first line. Multi-line spans
// are underlined to the end of the line.
func underline(line string, d Diagnostic) string {
	start := max(0, d.Span.StartCol-1)
	end := len(line)
	if d.Span.EndLine == d.Span.StartLine && d.Span.EndCol > d.Span.StartCol {
		end = min(len(line), d.Span.EndCol-1)
	}
	if start > len(line) {
		start = len(line)
	}
	width := max(1, end-start)
	return strings.Repeat(" ", start) + strings.Repeat("^", width)
}
