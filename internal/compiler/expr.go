package compiler

import (
	"fmt"

	"github.com/roach88/tessera/internal/ast"
	"github.com/roach88/tessera/internal/diag"
	"github.com/roach88/tessera/internal/ir"
)

// Intrinsic names with dedicated two-operand IR nodes.
const (
	IntrinsicBroadcastShape = "broadcast_shape"
	IntrinsicCompute        = "compute"
)

const shapeField = "shape"

func (fs *funcState) lowerExpr(e ast.Expr) (ir.Expr, error) {
	switch ex := e.(type) {
	case *ast.Var:
		v, ok := fs.scope.Lookup(ex.Name)
		if !ok {
			return nil, fs.fail(diag.CodeUnboundName, ex.Span, "unbound name `%s`", ex.Name)
		}
		return v, nil

	case *ast.Call:
		return fs.lowerCall(ex)

	case *ast.Attr:
		// The object is lowered first so an unbound object is reported
		// before an unsupported field.
		obj, err := fs.lowerExpr(ex.Object)
		if err != nil {
			return nil, err
		}
		if ex.Field != shapeField {
			return nil, fs.fail(diag.CodeUnsupportedConstruct, ex.Span,
				"unsupported attribute `.%s`; only `.shape` is supported", ex.Field)
		}
		return &ir.ShapeOf{Tensor: obj, Span: fs.span(ex.Span)}, nil

	case *ast.Tuple:
		return nil, fs.fail(diag.CodeUnsupportedConstruct, ex.Span, "tuple expressions are not supported")

	case *ast.Constant:
		return nil, fs.fail(diag.CodeUnsupportedConstruct, ex.Span, "integer literals are not supported")

	case *ast.Lambda:
		return nil, fs.fail(diag.CodeUnsupportedConstruct, ex.Span, "nested functions are not supported")

	case *ast.Op:
		return nil, fs.fail(diag.CodeUnsupportedConstruct, ex.Span, "operator `%s` used as a value", ex.Name)

	default:
		return nil, fs.fail(diag.CodeUnsupportedConstruct, e.NodeSpan(), "unsupported expression")
	}
}

func (fs *funcState) lowerExprs(list []ast.Expr) ([]ir.Expr, error) {
	out := make([]ir.Expr, 0, len(list))
	for _, e := range list {
		x, err := fs.lowerExpr(e)
		if err != nil {
			return nil, err
		}
		out = append(out, x)
	}
	return out, nil
}

func (fs *funcState) lowerCall(call *ast.Call) (ir.Expr, error) {
	switch callee := call.Func.(type) {
	case *ast.Var:
		return fs.lowerNamedCall(call, callee.Name)
	case *ast.Op:
		return fs.lowerOpCall(call, callee)
	default:
		return nil, fs.fail(diag.CodeUnsupportedConstruct, call.Span, "unsupported call target; callee must be a plain name")
	}
}

func (fs *funcState) lowerNamedCall(call *ast.Call, name string) (ir.Expr, error) {
	args, err := fs.lowerExprs(call.Args)
	if err != nil {
		return nil, err
	}
	span := fs.span(call.Span)

	switch name {
	case IntrinsicBroadcastShape, IntrinsicCompute:
		if len(args) != 2 {
			return nil, fs.fail(diag.CodeWrongArgumentCount, call.Span,
				"wrong argument count for `%s`: expected 2, got %d", name, len(args))
		}
		if name == IntrinsicBroadcastShape {
			return &ir.BroadcastShape{LHS: args[0], RHS: args[1], Span: span}, nil
		}
		return &ir.Compute{Shape: args[0], Body: args[1], Span: span}, nil
	}

	if v, ok := fs.scope.Lookup(name); ok {
		return &ir.Call{Callee: v, Args: args, CheckCallable: true, Span: span}, nil
	}

	if fs.l.scope != nil {
		fn, ok, err := fs.l.scope.Resolve(fs.ctx, name)
		if err != nil {
			return nil, fmt.Errorf("resolve %q in definition scope: %w", name, err)
		}
		if ok {
			fs.imports[name] = fn
			fs.l.logger.Debug("imported sibling function", "function", fs.fnName, "callee", name)
			return &ir.Call{Callee: &ir.GlobalVar{Name: name}, Args: args, Span: span}, nil
		}
	}

	// Unknown names are deferred to the operator registry.
	if fs.l.ops != nil {
		if err := fs.l.ops.ValidateOp(name, len(args)); err != nil {
			return nil, fs.fail(diag.CodeUnknownOperator, call.Span, "%s", err.Error())
		}
	}
	return &ir.Call{Callee: &ir.Op{Name: name}, Args: args, Span: span}, nil
}

func (fs *funcState) lowerOpCall(call *ast.Call, op *ast.Op) (ir.Expr, error) {
	span := fs.span(call.Span)
	switch op.Name {
	case ast.OpSubscript:
		if len(call.Args) != 2 {
			return nil, fs.fail(diag.CodeUnsupportedConstruct, call.Span,
				"malformed `subscript`: expected a tensor and an index, got %d operands", len(call.Args))
		}
		tensor, err := fs.lowerExpr(call.Args[0])
		if err != nil {
			return nil, err
		}
		var indices []ir.Expr
		if tuple, ok := call.Args[1].(*ast.Tuple); ok {
			indices, err = fs.lowerExprs(tuple.Values)
		} else {
			var idx ir.Expr
			idx, err = fs.lowerExpr(call.Args[1])
			indices = []ir.Expr{idx}
		}
		if err != nil {
			return nil, err
		}
		return &ir.TensorSlice{Tensor: tensor, Indices: indices, Span: span}, nil

	case ast.OpAdd:
		args, err := fs.lowerExprs(call.Args)
		if err != nil {
			return nil, err
		}
		if len(args) != 2 {
			return nil, fs.fail(diag.CodeUnsupportedConstruct, call.Span,
				"malformed `add`: expected 2 operands, got %d", len(args))
		}
		return &ir.Add{LHS: args[0], RHS: args[1], Span: span}, nil

	default:
		return nil, fs.fail(diag.CodeUnsupportedConstruct, call.Span,
			"unsupported operator `%s`; only subscript and add are supported", op.Name)
	}
}
