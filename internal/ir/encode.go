package ir

import (
	"fmt"
)

// Encoded node kinds. These are the "kind" discriminators of the canonical
// encoding and must stay stable: function hashes depend on them.
const (
	KindFunction       = "function"
	KindVar            = "var"
	KindGlobal         = "global"
	KindOp             = "op"
	KindCall           = "call"
	KindAdd            = "add"
	KindTensorSlice    = "tensor_slice"
	KindShapeOf        = "shape_of"
	KindBroadcastShape = "broadcast_shape"
	KindCompute        = "compute"
	KindLet            = "let"
	KindTensor         = "tensor"
)

// EncodeFunction converts fn to a map[string]any suitable for
// MarshalCanonical.
//
// Spans are omitted and variable ids are replaced by positional ids (%0, %1,
// ...) in declaration order, so two structurally identical functions encode
// identically regardless of the id generator that produced them.
func EncodeFunction(fn *Function) (map[string]any, error) {
	enc := &encoder{ids: make(map[string]string)}
	return enc.function(fn)
}

// MarshalFunction returns the canonical JSON encoding of fn.
func MarshalFunction(fn *Function) ([]byte, error) {
	obj, err := EncodeFunction(fn)
	if err != nil {
		return nil, err
	}
	return MarshalCanonical(obj)
}

// EncodeModule encodes every function of m keyed by name.
func EncodeModule(m *Module) (map[string]any, error) {
	funcs := make(map[string]any, m.Len())
	for _, name := range m.Names() {
		fn, _ := m.Get(name)
		obj, err := EncodeFunction(fn)
		if err != nil {
			return nil, fmt.Errorf("function %q: %w", name, err)
		}
		funcs[name] = obj
	}
	return map[string]any{
		"name":      m.Name,
		"functions": funcs,
	}, nil
}

// MarshalModule returns the canonical JSON encoding of m.
func MarshalModule(m *Module) ([]byte, error) {
	obj, err := EncodeModule(m)
	if err != nil {
		return nil, err
	}
	return MarshalCanonical(obj)
}

type encoder struct {
	ids  map[string]string
	next int
}

// declare assigns the next positional id to v.
func (e *encoder) declare(v *Var) (map[string]any, error) {
	if v == nil {
		return nil, fmt.Errorf("nil variable")
	}
	id := fmt.Sprintf("%%%d", e.next)
	e.next++
	e.ids[v.ID] = id

	obj := map[string]any{
		"id":   id,
		"name": v.Name,
	}
	if v.Type != nil {
		ty, err := encodeType(v.Type)
		if err != nil {
			return nil, fmt.Errorf("variable %q: %w", v.Name, err)
		}
		obj["type"] = ty
	}
	return obj, nil
}

func (e *encoder) ref(v *Var) (map[string]any, error) {
	id, ok := e.ids[v.ID]
	if !ok {
		return nil, fmt.Errorf("variable %q referenced before declaration", v.Name)
	}
	return map[string]any{"kind": KindVar, "id": id, "name": v.Name}, nil
}

func encodeType(t Type) (map[string]any, error) {
	switch ty := t.(type) {
	case *TensorType:
		obj := map[string]any{"kind": KindTensor}
		if ty.Ranked {
			dims := make([]any, len(ty.Dims))
			for i, d := range ty.Dims {
				dims[i] = int64(d.Value)
			}
			obj["shape"] = dims
		}
		if ty.DType != "" {
			obj["dtype"] = ty.DType
		}
		return obj, nil
	default:
		return nil, fmt.Errorf("unknown type %T", t)
	}
}

func (e *encoder) function(fn *Function) (map[string]any, error) {
	params := make([]any, len(fn.Params))
	for i, p := range fn.Params {
		obj, err := e.declare(p)
		if err != nil {
			return nil, fmt.Errorf("param[%d]: %w", i, err)
		}
		params[i] = obj
	}
	if fn.Body == nil {
		return nil, fmt.Errorf("function %q has no body", fn.Name)
	}
	body, err := e.expr(fn.Body)
	if err != nil {
		return nil, err
	}
	obj := map[string]any{
		"kind":   KindFunction,
		"name":   fn.Name,
		"params": params,
		"body":   body,
	}
	if fn.RetType != nil {
		ty, err := encodeType(fn.RetType)
		if err != nil {
			return nil, err
		}
		obj["ret_type"] = ty
	}
	return obj, nil
}

func (e *encoder) exprs(list []Expr) ([]any, error) {
	out := make([]any, len(list))
	for i, x := range list {
		obj, err := e.expr(x)
		if err != nil {
			return nil, fmt.Errorf("[%d]: %w", i, err)
		}
		out[i] = obj
	}
	return out, nil
}

func (e *encoder) pair(kind, lname string, l Expr, rname string, r Expr) (map[string]any, error) {
	lobj, err := e.expr(l)
	if err != nil {
		return nil, fmt.Errorf("%s.%s: %w", kind, lname, err)
	}
	robj, err := e.expr(r)
	if err != nil {
		return nil, fmt.Errorf("%s.%s: %w", kind, rname, err)
	}
	return map[string]any{"kind": kind, lname: lobj, rname: robj}, nil
}

func (e *encoder) expr(x Expr) (map[string]any, error) {
	switch ex := x.(type) {
	case *Var:
		return e.ref(ex)

	case *Call:
		var callee map[string]any
		switch c := ex.Callee.(type) {
		case *GlobalVar:
			callee = map[string]any{"kind": KindGlobal, "name": c.Name}
		case *Op:
			callee = map[string]any{"kind": KindOp, "name": c.Name}
		case *Var:
			ref, err := e.ref(c)
			if err != nil {
				return nil, fmt.Errorf("call.callee: %w", err)
			}
			callee = ref
		default:
			return nil, fmt.Errorf("unknown callee %T", ex.Callee)
		}
		args, err := e.exprs(ex.Args)
		if err != nil {
			return nil, fmt.Errorf("call.args%w", err)
		}
		obj := map[string]any{"kind": KindCall, "callee": callee, "args": args}
		if ex.CheckCallable {
			obj["check_callable"] = true
		}
		return obj, nil

	case *Add:
		return e.pair(KindAdd, "lhs", ex.LHS, "rhs", ex.RHS)

	case *TensorSlice:
		tensor, err := e.expr(ex.Tensor)
		if err != nil {
			return nil, fmt.Errorf("tensor_slice.tensor: %w", err)
		}
		indices, err := e.exprs(ex.Indices)
		if err != nil {
			return nil, fmt.Errorf("tensor_slice.indices%w", err)
		}
		return map[string]any{"kind": KindTensorSlice, "tensor": tensor, "indices": indices}, nil

	case *ShapeOf:
		tensor, err := e.expr(ex.Tensor)
		if err != nil {
			return nil, fmt.Errorf("shape_of.tensor: %w", err)
		}
		return map[string]any{"kind": KindShapeOf, "tensor": tensor}, nil

	case *BroadcastShape:
		return e.pair(KindBroadcastShape, "lhs", ex.LHS, "rhs", ex.RHS)

	case *Compute:
		return e.pair(KindCompute, "shape", ex.Shape, "body", ex.Body)

	case *Let:
		bindings := make([]any, len(ex.Bindings))
		for i, b := range ex.Bindings {
			// The value is encoded before the variable is declared: a
			// binding cannot reference itself.
			value, err := e.expr(b.Value)
			if err != nil {
				return nil, fmt.Errorf("let.bindings[%d]: %w", i, err)
			}
			v, err := e.declare(b.Var)
			if err != nil {
				return nil, fmt.Errorf("let.bindings[%d]: %w", i, err)
			}
			bindings[i] = map[string]any{"var": v, "value": value}
		}
		if ex.Result == nil {
			return nil, fmt.Errorf("let has no result")
		}
		result, err := e.expr(ex.Result)
		if err != nil {
			return nil, fmt.Errorf("let.result: %w", err)
		}
		return map[string]any{"kind": KindLet, "bindings": bindings, "result": result}, nil

	case nil:
		return nil, fmt.Errorf("nil expression")

	default:
		return nil, fmt.Errorf("unknown expression %T", x)
	}
}
