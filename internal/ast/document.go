package ast

import (
	"bytes"
	"fmt"
	"os"

	"golang.org/x/text/unicode/norm"
	"gopkg.in/yaml.v3"
)

// SourceFile is a source text shipped with an AST document. Sources must be
// registered with the compilation unit's source map before lowering.
type SourceFile struct {
	Name string `yaml:"name"`
	Text string `yaml:"text"`
}

// Document is a serialized compilation unit: the sources it was parsed from
// plus the parsed module.
type Document struct {
	Sources []SourceFile
	Module  *Module
}

// DocumentError reports a malformed AST document. Path locates the node,
// e.g. "module.funcs[0].body.stmts[2].rhs".
type DocumentError struct {
	File    string
	Path    string
	Message string
}

func (e *DocumentError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("%s: %s", e.File, e.Message)
	}
	return fmt.Sprintf("%s: %s: %s", e.File, e.Path, e.Message)
}

// LoadDocument reads and decodes an AST document from a YAML file.
func LoadDocument(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read AST document: %w", err)
	}
	return ParseDocument(path, data)
}

// ParseDocument decodes an AST document. Unknown fields are rejected. Nodes
// without a span inherit the span of their nearest ancestor, so every node the
// compiler may report on carries one.
func ParseDocument(name string, data []byte) (*Document, error) {
	var raw rawDocument
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&raw); err != nil {
		return nil, &DocumentError{File: name, Message: fmt.Sprintf("failed to parse YAML: %v", err)}
	}

	d := &docDecoder{file: name, sources: make(map[string]bool, len(raw.Sources))}
	for _, src := range raw.Sources {
		d.sources[src.Name] = true
	}
	doc := &Document{Sources: raw.Sources}

	var fallback Span
	if len(raw.Sources) > 0 {
		fallback = Span{File: raw.Sources[0].Name, StartLine: 1, StartCol: 1, EndLine: 1, EndCol: 1}
	}
	moduleSpan, err := d.span("module", raw.Module.Span, fallback)
	if err != nil {
		return nil, err
	}

	module := &Module{Name: ident(raw.Module.Name)}
	if module.Name == "" {
		return nil, d.errorf("module.name", "module name is required")
	}
	for i, rf := range raw.Module.Funcs {
		fn, err := d.function(fmt.Sprintf("module.funcs[%d]", i), rf, moduleSpan)
		if err != nil {
			return nil, err
		}
		module.Funcs = append(module.Funcs, fn)
	}
	doc.Module = module
	return doc, nil
}

type rawDocument struct {
	Sources []SourceFile `yaml:"sources"`
	Module  rawModule    `yaml:"module"`
}

type rawModule struct {
	Name  string        `yaml:"name"`
	Funcs []rawFunction `yaml:"funcs"`
	Span  *Span         `yaml:"span"`
}

type rawFunction struct {
	Name    string     `yaml:"name"`
	Params  []rawParam `yaml:"params"`
	Returns *rawType   `yaml:"returns"`
	Body    rawBlock   `yaml:"body"`
	Span    *Span      `yaml:"span"`
}

type rawParam struct {
	Name string   `yaml:"name"`
	Type *rawType `yaml:"type"`
	Span *Span    `yaml:"span"`
}

type rawBlock struct {
	Stmts []rawStmt `yaml:"stmts"`
	Span  *Span     `yaml:"span"`
}

type rawStmt struct {
	Kind  string   `yaml:"kind"`
	LHS   *rawExpr `yaml:"lhs"`
	RHS   *rawExpr `yaml:"rhs"`
	Value *rawExpr `yaml:"value"`
	Span  *Span    `yaml:"span"`
}

type rawExpr struct {
	Kind     string       `yaml:"kind"`
	Name     string       `yaml:"name"`
	Func     *rawExpr     `yaml:"func"`
	Op       string       `yaml:"op"`
	Args     []*rawExpr   `yaml:"args"`
	Object   *rawExpr     `yaml:"object"`
	Field    string       `yaml:"field"`
	Values   []*rawExpr   `yaml:"values"`
	Value    *int64       `yaml:"value"`
	Function *rawFunction `yaml:"function"`
	Span     *Span        `yaml:"span"`
}

type rawType struct {
	Kind   string     `yaml:"kind"`
	Name   string     `yaml:"name"`
	Params []*rawType `yaml:"params"`
	Value  *int64     `yaml:"value"`
	Types  []*rawType `yaml:"types"`
	Span   *Span      `yaml:"span"`
}

type docDecoder struct {
	file    string
	sources map[string]bool
}

func (d *docDecoder) errorf(path, format string, args ...any) error {
	return &DocumentError{File: d.file, Path: path, Message: fmt.Sprintf(format, args...)}
}

// span returns own when present, otherwise the inherited parent span. An
// explicit span must be valid and point into one of the document's sources.
func (d *docDecoder) span(path string, own *Span, parent Span) (Span, error) {
	if own == nil {
		return parent, nil
	}
	if !own.IsValid() {
		return Span{}, d.errorf(path+".span", "span needs a file, a start line and a start column, all 1-based")
	}
	if !d.sources[own.File] {
		return Span{}, d.errorf(path+".span", "span file %q is not one of the document's sources", own.File)
	}
	return *own, nil
}

// ident normalizes identifiers to NFC so visually identical names bind to
// the same symbol.
func ident(s string) string {
	return norm.NFC.String(s)
}

func (d *docDecoder) function(path string, rf rawFunction, parent Span) (*Function, error) {
	span, err := d.span(path, rf.Span, parent)
	if err != nil {
		return nil, err
	}
	if !span.IsValid() {
		return nil, d.errorf(path, "function span is required when the document has no sources")
	}
	fn := &Function{Name: ident(rf.Name), Span: span}
	if fn.Name == "" {
		return nil, d.errorf(path+".name", "function name is required")
	}

	for i, rp := range rf.Params {
		ppath := fmt.Sprintf("%s.params[%d]", path, i)
		pspan, err := d.span(ppath, rp.Span, span)
		if err != nil {
			return nil, err
		}
		param := &Param{Name: ident(rp.Name), Span: pspan}
		if param.Name == "" {
			return nil, d.errorf(ppath+".name", "parameter name is required")
		}
		if rp.Type != nil {
			ty, err := d.typ(ppath+".type", rp.Type, pspan)
			if err != nil {
				return nil, err
			}
			param.Type = ty
		}
		fn.Params = append(fn.Params, param)
	}

	if rf.Returns != nil {
		ty, err := d.typ(path+".returns", rf.Returns, span)
		if err != nil {
			return nil, err
		}
		fn.RetType = ty
	}

	body, err := d.block(path+".body", rf.Body, span)
	if err != nil {
		return nil, err
	}
	fn.Body = body
	return fn, nil
}

func (d *docDecoder) block(path string, rb rawBlock, parent Span) (*Block, error) {
	span, err := d.span(path, rb.Span, parent)
	if err != nil {
		return nil, err
	}
	block := &Block{Span: span}
	for i, rs := range rb.Stmts {
		stmt, err := d.stmt(fmt.Sprintf("%s.stmts[%d]", path, i), rs, span)
		if err != nil {
			return nil, err
		}
		block.Stmts = append(block.Stmts, stmt)
	}
	return block, nil
}

func (d *docDecoder) stmt(path string, rs rawStmt, parent Span) (Stmt, error) {
	span, err := d.span(path, rs.Span, parent)
	if err != nil {
		return nil, err
	}
	switch rs.Kind {
	case "assign":
		if rs.LHS == nil || rs.RHS == nil {
			return nil, d.errorf(path, "assign requires lhs and rhs")
		}
		lhs, err := d.expr(path+".lhs", rs.LHS, span)
		if err != nil {
			return nil, err
		}
		rhs, err := d.expr(path+".rhs", rs.RHS, span)
		if err != nil {
			return nil, err
		}
		return &Assign{LHS: lhs, RHS: rhs, Span: span}, nil
	case "return":
		if rs.Value == nil {
			return nil, d.errorf(path, "return requires a value")
		}
		value, err := d.expr(path+".value", rs.Value, span)
		if err != nil {
			return nil, err
		}
		return &Return{Value: value, Span: span}, nil
	case "expr":
		if rs.Value == nil {
			return nil, d.errorf(path, "expression statement requires a value")
		}
		value, err := d.expr(path+".value", rs.Value, span)
		if err != nil {
			return nil, err
		}
		return &ExprStmt{Value: value, Span: span}, nil
	default:
		return nil, d.errorf(path+".kind", "unknown statement kind %q", rs.Kind)
	}
}

func (d *docDecoder) exprs(path string, raws []*rawExpr, parent Span) ([]Expr, error) {
	out := make([]Expr, 0, len(raws))
	for i, re := range raws {
		e, err := d.expr(fmt.Sprintf("%s[%d]", path, i), re, parent)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

func (d *docDecoder) expr(path string, re *rawExpr, parent Span) (Expr, error) {
	if re == nil {
		return nil, d.errorf(path, "expression is required")
	}
	span, err := d.span(path, re.Span, parent)
	if err != nil {
		return nil, err
	}
	switch re.Kind {
	case "var":
		if re.Name == "" {
			return nil, d.errorf(path+".name", "var name is required")
		}
		return &Var{Name: ident(re.Name), Span: span}, nil

	case "call":
		call := &Call{Span: span}
		switch {
		case re.Func != nil:
			fn, err := d.expr(path+".func", re.Func, span)
			if err != nil {
				return nil, err
			}
			call.Func = fn
		case re.Op != "":
			op := BuiltinOp(re.Op)
			if !ValidBuiltinOps[op] {
				return nil, d.errorf(path+".op", "unknown builtin operator %q", re.Op)
			}
			call.Func = &Op{Name: op, Span: span}
		case re.Name != "":
			call.Func = &Var{Name: ident(re.Name), Span: span}
		default:
			return nil, d.errorf(path, "call requires one of func, op or name")
		}
		args, err := d.exprs(path+".args", re.Args, span)
		if err != nil {
			return nil, err
		}
		call.Args = args
		return call, nil

	case "op":
		op := BuiltinOp(re.Op)
		if !ValidBuiltinOps[op] {
			return nil, d.errorf(path+".op", "unknown builtin operator %q", re.Op)
		}
		return &Op{Name: op, Span: span}, nil

	case "attr":
		if re.Object == nil || re.Field == "" {
			return nil, d.errorf(path, "attr requires object and field")
		}
		obj, err := d.expr(path+".object", re.Object, span)
		if err != nil {
			return nil, err
		}
		return &Attr{Object: obj, Field: ident(re.Field), Span: span}, nil

	case "tuple":
		values, err := d.exprs(path+".values", re.Values, span)
		if err != nil {
			return nil, err
		}
		return &Tuple{Values: values, Span: span}, nil

	case "const":
		if re.Value == nil {
			return nil, d.errorf(path+".value", "constant value is required")
		}
		return &Constant{Value: *re.Value, Span: span}, nil

	case "lambda":
		if re.Function == nil {
			return nil, d.errorf(path+".function", "lambda requires a function")
		}
		fn, err := d.function(path+".function", *re.Function, span)
		if err != nil {
			return nil, err
		}
		return &Lambda{Func: fn, Span: span}, nil

	default:
		return nil, d.errorf(path+".kind", "unknown expression kind %q", re.Kind)
	}
}

func (d *docDecoder) typ(path string, rt *rawType, parent Span) (Type, error) {
	if rt == nil {
		return nil, d.errorf(path, "type is required")
	}
	span, err := d.span(path, rt.Span, parent)
	if err != nil {
		return nil, err
	}
	switch rt.Kind {
	case "var":
		if rt.Name == "" {
			return nil, d.errorf(path+".name", "type name is required")
		}
		return &TypeVar{Name: ident(rt.Name), Span: span}, nil
	case "apply":
		if rt.Name == "" {
			return nil, d.errorf(path+".name", "type name is required")
		}
		ty := &TypeApply{Name: ident(rt.Name), Span: span}
		for i, rp := range rt.Params {
			p, err := d.typ(fmt.Sprintf("%s.params[%d]", path, i), rp, span)
			if err != nil {
				return nil, err
			}
			ty.Params = append(ty.Params, p)
		}
		return ty, nil
	case "const":
		if rt.Value == nil {
			return nil, d.errorf(path+".value", "type constant value is required")
		}
		return &TypeConstant{Value: *rt.Value, Span: span}, nil
	case "tuple":
		ty := &TypeTuple{Span: span}
		for i, rp := range rt.Types {
			p, err := d.typ(fmt.Sprintf("%s.types[%d]", path, i), rp, span)
			if err != nil {
				return nil, err
			}
			ty.Types = append(ty.Types, p)
		}
		return ty, nil
	default:
		return nil, d.errorf(path+".kind", "unknown type kind %q", rt.Kind)
	}
}
