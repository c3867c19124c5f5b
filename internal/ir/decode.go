package ir

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
)

// DecodeFunction parses the canonical encoding produced by MarshalFunction.
//
// Variables keep their positional ids (%0, %1, ...) and references resolve to
// the same *Var as their declaration. Spans are not part of the encoding and
// are left zero.
func DecodeFunction(data []byte) (*Function, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode function: %w", err)
	}
	d := &decoder{vars: make(map[string]*Var)}
	fn, err := d.function(raw)
	if err != nil {
		return nil, fmt.Errorf("decode function: %w", err)
	}
	return fn, nil
}

type decoder struct {
	vars map[string]*Var
}

func field[T any](obj map[string]any, key string) (T, error) {
	var zero T
	v, ok := obj[key]
	if !ok {
		return zero, fmt.Errorf("missing field %q", key)
	}
	t, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("field %q: unexpected %T", key, v)
	}
	return t, nil
}

func (d *decoder) function(obj map[string]any) (*Function, error) {
	if kind, _ := obj["kind"].(string); kind != KindFunction {
		return nil, fmt.Errorf("expected kind %q, got %q", KindFunction, kind)
	}
	name, err := field[string](obj, "name")
	if err != nil {
		return nil, err
	}
	fn := &Function{Name: name}

	params, err := field[[]any](obj, "params")
	if err != nil {
		return nil, err
	}
	for i, p := range params {
		pobj, ok := p.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("params[%d]: unexpected %T", i, p)
		}
		v, err := d.declare(pobj)
		if err != nil {
			return nil, fmt.Errorf("params[%d]: %w", i, err)
		}
		fn.Params = append(fn.Params, v)
	}

	if rt, ok := obj["ret_type"].(map[string]any); ok {
		ty, err := decodeType(rt)
		if err != nil {
			return nil, fmt.Errorf("ret_type: %w", err)
		}
		fn.RetType = ty
	}

	bodyObj, err := field[map[string]any](obj, "body")
	if err != nil {
		return nil, err
	}
	body, err := d.expr(bodyObj)
	if err != nil {
		return nil, fmt.Errorf("body: %w", err)
	}
	let, ok := body.(*Let)
	if !ok {
		return nil, fmt.Errorf("body: expected let, got %T", body)
	}
	fn.Body = let
	return fn, nil
}

func (d *decoder) declare(obj map[string]any) (*Var, error) {
	id, err := field[string](obj, "id")
	if err != nil {
		return nil, err
	}
	name, err := field[string](obj, "name")
	if err != nil {
		return nil, err
	}
	v := &Var{ID: id, Name: name}
	if tobj, ok := obj["type"].(map[string]any); ok {
		ty, err := decodeType(tobj)
		if err != nil {
			return nil, fmt.Errorf("variable %q: %w", name, err)
		}
		v.Type = ty
	}
	d.vars[id] = v
	return v, nil
}

func decodeType(obj map[string]any) (Type, error) {
	kind, _ := obj["kind"].(string)
	if kind != KindTensor {
		return nil, fmt.Errorf("unknown type kind %q", kind)
	}
	ty := &TensorType{}
	if dtype, ok := obj["dtype"].(string); ok {
		ty.DType = dtype
	}
	shape, ok := obj["shape"].([]any)
	if !ok {
		return ty, nil
	}
	ty.Ranked = true
	ty.Dims = make([]Dim, 0, len(shape))
	for i, s := range shape {
		n, ok := s.(json.Number)
		if !ok {
			return nil, fmt.Errorf("shape[%d]: unexpected %T", i, s)
		}
		v, err := n.Int64()
		if err != nil || v < math.MinInt32 || v > math.MaxInt32 {
			return nil, fmt.Errorf("shape[%d]: %s is not a 32-bit integer", i, n)
		}
		ty.Dims = append(ty.Dims, Dim{Value: int32(v)})
	}
	return ty, nil
}

func (d *decoder) ref(obj map[string]any) (*Var, error) {
	id, err := field[string](obj, "id")
	if err != nil {
		return nil, err
	}
	v, ok := d.vars[id]
	if !ok {
		return nil, fmt.Errorf("reference to undeclared variable %s", id)
	}
	return v, nil
}

func (d *decoder) exprs(list []any) ([]Expr, error) {
	out := make([]Expr, 0, len(list))
	for i, item := range list {
		obj, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("[%d]: unexpected %T", i, item)
		}
		x, err := d.expr(obj)
		if err != nil {
			return nil, fmt.Errorf("[%d]: %w", i, err)
		}
		out = append(out, x)
	}
	return out, nil
}

func (d *decoder) sub(obj map[string]any, key string) (Expr, error) {
	child, err := field[map[string]any](obj, key)
	if err != nil {
		return nil, err
	}
	x, err := d.expr(child)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", key, err)
	}
	return x, nil
}

func (d *decoder) expr(obj map[string]any) (Expr, error) {
	kind, _ := obj["kind"].(string)
	switch kind {
	case KindVar:
		return d.ref(obj)

	case KindCall:
		calleeObj, err := field[map[string]any](obj, "callee")
		if err != nil {
			return nil, err
		}
		call := &Call{}
		switch ck, _ := calleeObj["kind"].(string); ck {
		case KindGlobal:
			name, err := field[string](calleeObj, "name")
			if err != nil {
				return nil, err
			}
			call.Callee = &GlobalVar{Name: name}
		case KindOp:
			name, err := field[string](calleeObj, "name")
			if err != nil {
				return nil, err
			}
			call.Callee = &Op{Name: name}
		case KindVar:
			v, err := d.ref(calleeObj)
			if err != nil {
				return nil, err
			}
			call.Callee = v
		default:
			return nil, fmt.Errorf("unknown callee kind %q", ck)
		}
		args, err := field[[]any](obj, "args")
		if err != nil {
			return nil, err
		}
		call.Args, err = d.exprs(args)
		if err != nil {
			return nil, fmt.Errorf("args%w", err)
		}
		call.CheckCallable, _ = obj["check_callable"].(bool)
		return call, nil

	case KindAdd:
		lhs, err := d.sub(obj, "lhs")
		if err != nil {
			return nil, err
		}
		rhs, err := d.sub(obj, "rhs")
		if err != nil {
			return nil, err
		}
		return &Add{LHS: lhs, RHS: rhs}, nil

	case KindTensorSlice:
		tensor, err := d.sub(obj, "tensor")
		if err != nil {
			return nil, err
		}
		list, err := field[[]any](obj, "indices")
		if err != nil {
			return nil, err
		}
		indices, err := d.exprs(list)
		if err != nil {
			return nil, fmt.Errorf("indices%w", err)
		}
		return &TensorSlice{Tensor: tensor, Indices: indices}, nil

	case KindShapeOf:
		tensor, err := d.sub(obj, "tensor")
		if err != nil {
			return nil, err
		}
		return &ShapeOf{Tensor: tensor}, nil

	case KindBroadcastShape:
		lhs, err := d.sub(obj, "lhs")
		if err != nil {
			return nil, err
		}
		rhs, err := d.sub(obj, "rhs")
		if err != nil {
			return nil, err
		}
		return &BroadcastShape{LHS: lhs, RHS: rhs}, nil

	case KindCompute:
		shape, err := d.sub(obj, "shape")
		if err != nil {
			return nil, err
		}
		body, err := d.sub(obj, "body")
		if err != nil {
			return nil, err
		}
		return &Compute{Shape: shape, Body: body}, nil

	case KindLet:
		list, err := field[[]any](obj, "bindings")
		if err != nil {
			return nil, err
		}
		let := &Let{}
		for i, item := range list {
			bobj, ok := item.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("bindings[%d]: unexpected %T", i, item)
			}
			value, err := d.sub(bobj, "value")
			if err != nil {
				return nil, fmt.Errorf("bindings[%d]: %w", i, err)
			}
			vobj, err := field[map[string]any](bobj, "var")
			if err != nil {
				return nil, fmt.Errorf("bindings[%d]: %w", i, err)
			}
			v, err := d.declare(vobj)
			if err != nil {
				return nil, fmt.Errorf("bindings[%d]: %w", i, err)
			}
			let.Bindings = append(let.Bindings, Binding{Var: v, Value: value})
		}
		let.Result, err = d.sub(obj, "result")
		if err != nil {
			return nil, err
		}
		return let, nil

	default:
		return nil, fmt.Errorf("unknown expression kind %q", kind)
	}
}
