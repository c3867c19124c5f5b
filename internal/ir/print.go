package ir

import (
	"fmt"
	"io"
	"strings"
)

// Fprint writes a human-readable rendering of fn:
//
//	fn f(%x: Tensor) {
//	  %y = shape_of(%x)
//	  %y
//	}
//
// Shadowed names are disambiguated with a numeric suffix (%y, %y1, ...).
func Fprint(w io.Writer, fn *Function) error {
	p := &printer{names: make(map[string]string), used: make(map[string]int)}
	p.function(fn)
	_, err := io.WriteString(w, p.buf.String())
	return err
}

// FunctionString returns the Fprint rendering of fn.
func FunctionString(fn *Function) string {
	var sb strings.Builder
	_ = Fprint(&sb, fn)
	return sb.String()
}

type printer struct {
	buf   strings.Builder
	names map[string]string // var id -> display name
	used  map[string]int
}

func (p *printer) name(v *Var) string {
	if n, ok := p.names[v.ID]; ok {
		return n
	}
	base := v.Name
	if base == "" {
		base = "v"
	}
	n := "%" + base
	if count := p.used[base]; count > 0 {
		n = fmt.Sprintf("%%%s%d", base, count)
	}
	p.used[base]++
	p.names[v.ID] = n
	return n
}

func (p *printer) indent(depth int) {
	p.buf.WriteString(strings.Repeat("  ", depth))
}

func (p *printer) function(fn *Function) {
	fmt.Fprintf(&p.buf, "fn %s(", fn.Name)
	for i, param := range fn.Params {
		if i > 0 {
			p.buf.WriteString(", ")
		}
		p.buf.WriteString(p.name(param))
		if param.Type != nil {
			fmt.Fprintf(&p.buf, ": %s", typeString(param.Type))
		}
	}
	p.buf.WriteString(") {\n")
	if fn.Body != nil {
		p.letBody(fn.Body, 1)
	}
	p.buf.WriteString("}\n")
}

func (p *printer) letBody(let *Let, depth int) {
	for _, b := range let.Bindings {
		// Render the value first so a shadowing binding's own name does not
		// leak into its value.
		value := p.expr(b.Value, depth)
		p.indent(depth)
		fmt.Fprintf(&p.buf, "%s = %s\n", p.name(b.Var), value)
	}
	p.indent(depth)
	p.buf.WriteString(p.expr(let.Result, depth))
	p.buf.WriteString("\n")
}

func typeString(t Type) string {
	if tt, ok := t.(*TensorType); ok {
		return tt.String()
	}
	return "?"
}

func (p *printer) list(xs []Expr, depth int) string {
	parts := make([]string, len(xs))
	for i, x := range xs {
		parts[i] = p.expr(x, depth)
	}
	return strings.Join(parts, ", ")
}

func (p *printer) expr(x Expr, depth int) string {
	switch ex := x.(type) {
	case *Var:
		return p.name(ex)
	case *Call:
		var callee string
		switch c := ex.Callee.(type) {
		case *GlobalVar:
			callee = "@" + c.Name
		case *Op:
			callee = c.Name
		case *Var:
			callee = p.name(c)
		}
		return fmt.Sprintf("%s(%s)", callee, p.list(ex.Args, depth))
	case *Add:
		return fmt.Sprintf("add(%s, %s)", p.expr(ex.LHS, depth), p.expr(ex.RHS, depth))
	case *TensorSlice:
		return fmt.Sprintf("%s[%s]", p.expr(ex.Tensor, depth), p.list(ex.Indices, depth))
	case *ShapeOf:
		return fmt.Sprintf("shape_of(%s)", p.expr(ex.Tensor, depth))
	case *BroadcastShape:
		return fmt.Sprintf("broadcast_shape(%s, %s)", p.expr(ex.LHS, depth), p.expr(ex.RHS, depth))
	case *Compute:
		return fmt.Sprintf("compute(%s, %s)", p.expr(ex.Shape, depth), p.expr(ex.Body, depth))
	case *Let:
		inner := &printer{names: p.names, used: p.used}
		inner.buf.WriteString("let {\n")
		inner.letBody(ex, depth+1)
		inner.indent(depth)
		inner.buf.WriteString("}")
		return inner.buf.String()
	default:
		return fmt.Sprintf("<%T>", x)
	}
}
