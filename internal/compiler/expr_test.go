package compiler

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/tessera/internal/ast"
	"github.com/roach88/tessera/internal/diag"
	"github.com/roach88/tessera/internal/ir"
)

func requireCode(t *testing.T, err error, code diag.Code) *CompileError {
	t.Helper()
	require.Error(t, err)
	var cerr *CompileError
	require.True(t, errors.As(err, &cerr), "expected *CompileError, got %T: %v", err, err)
	assert.Equal(t, code, cerr.Code)
	assert.True(t, errors.Is(err, diag.ErrAborted))
	return cerr
}

func TestUnboundName(t *testing.T) {
	f := newFixture(t, Config{})
	_, err := f.lowerModule(t, function("f", params("x"), ret(ref("z"))))
	cerr := requireCode(t, err, diag.CodeUnboundName)
	assert.Equal(t, "unbound name `z`", cerr.Message)
}

func TestNameUsableAfterDeclaration(t *testing.T) {
	f := newFixture(t, Config{})
	fn := f.mustLower(t, function("f", params("x"),
		assign("y", attr(ref("x"), "shape")),
		assign("z", attr(ref("y"), "shape")),
		ret(ref("z")),
	))
	assert.Len(t, fn.Body.Bindings, 2)
}

func TestNameUnusableBeforeDeclaration(t *testing.T) {
	f := newFixture(t, Config{})
	_, err := f.lowerModule(t, function("f", params("x"),
		assign("y", attr(ref("z"), "shape")),
		assign("z", attr(ref("x"), "shape")),
		ret(ref("y")),
	))
	requireCode(t, err, diag.CodeUnboundName)
}

func TestIntrinsicArity(t *testing.T) {
	for _, name := range []string{IntrinsicBroadcastShape, IntrinsicCompute} {
		for argc := 0; argc <= 5; argc++ {
			t.Run(fmt.Sprintf("%s/%d", name, argc), func(t *testing.T) {
				f := newFixture(t, Config{})
				args := make([]ast.Expr, argc)
				names := make([]string, argc)
				for i := range args {
					names[i] = fmt.Sprintf("a%d", i)
					args[i] = ref(names[i])
				}
				_, err := f.lowerModule(t, function("f", params(names...), ret(call(name, args...))))
				if argc == 2 {
					require.NoError(t, err)
					return
				}
				cerr := requireCode(t, err, diag.CodeWrongArgumentCount)
				assert.Equal(t, fmt.Sprintf("wrong argument count for `%s`: expected 2, got %d", name, argc), cerr.Message)
			})
		}
	}
}

func TestIntrinsicNodes(t *testing.T) {
	f := newFixture(t, Config{})
	fn := f.mustLower(t, function("f", params("a", "b"),
		assign("s", call(IntrinsicBroadcastShape, attr(ref("a"), "shape"), attr(ref("b"), "shape"))),
		ret(call(IntrinsicCompute, ref("s"), ref("a"))),
	))

	bs, ok := fn.Body.Bindings[0].Value.(*ir.BroadcastShape)
	require.True(t, ok)
	assert.IsType(t, &ir.ShapeOf{}, bs.LHS)

	c, ok := fn.Body.Result.(*ir.Compute)
	require.True(t, ok)
	assert.Same(t, fn.Body.Bindings[0].Var, c.Shape)
	assert.Same(t, fn.Params[0], c.Body)
}

func TestIntrinsicShadowsLocalName(t *testing.T) {
	f := newFixture(t, Config{})
	fn := f.mustLower(t, function("f", params("compute", "a"),
		ret(call(IntrinsicCompute, ref("a"), ref("a"))),
	))
	assert.IsType(t, &ir.Compute{}, fn.Body.Result)
}

func TestArgumentsLoweredBeforeClassification(t *testing.T) {
	f := newFixture(t, Config{})
	_, err := f.lowerModule(t, function("f", nil, ret(call(IntrinsicCompute, ref("missing")))))
	requireCode(t, err, diag.CodeUnboundName)
}

func TestLocalCallee(t *testing.T) {
	f := newFixture(t, Config{})
	fn := f.mustLower(t, function("f", params("k", "x"), ret(call("k", ref("x")))))

	c, ok := fn.Body.Result.(*ir.Call)
	require.True(t, ok)
	assert.Same(t, fn.Params[0], c.Callee)
	assert.True(t, c.CheckCallable)
	require.Len(t, c.Args, 1)
	assert.Same(t, fn.Params[1], c.Args[0])
}

func TestLocalBeatsDefinitionScope(t *testing.T) {
	f := newFixture(t, Config{Scope: NewModuleScope(siblingModule("helper"))})
	mod, err := f.lowerModule(t, function("f", params("helper", "x"), ret(call("helper", ref("x")))))
	require.NoError(t, err)

	fn, _ := mod.Get("f")
	c := fn.Body.Result.(*ir.Call)
	assert.IsType(t, &ir.Var{}, c.Callee)
	_, imported := mod.Get("helper")
	assert.False(t, imported, "a local callee must not import the sibling")
}

func TestDefinitionScopeImport(t *testing.T) {
	siblings := siblingModule("helper")
	f := newFixture(t, Config{Scope: NewModuleScope(siblings)})
	mod, err := f.lowerModule(t, function("f", params("x"), ret(call("helper", ref("x")))))
	require.NoError(t, err)

	fn, _ := mod.Get("f")
	c := fn.Body.Result.(*ir.Call)
	assert.Equal(t, &ir.GlobalVar{Name: "helper"}, c.Callee)
	assert.False(t, c.CheckCallable)

	imported, ok := mod.Get("helper")
	require.True(t, ok, "sibling is imported under the same name")
	want, _ := siblings.Get("helper")
	assert.Same(t, want, imported)
}

func TestDefinitionScopeFailure(t *testing.T) {
	f := newFixture(t, Config{Scope: failingScope{}})
	_, err := f.lowerModule(t, function("f", params("x"), ret(call("helper", ref("x")))))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database is locked")
}

func TestOperatorFallthrough(t *testing.T) {
	f := newFixture(t, Config{})
	fn := f.mustLower(t, function("f", params("x"), ret(call("definitely_not_an_op", ref("x")))))

	c := fn.Body.Result.(*ir.Call)
	assert.Equal(t, &ir.Op{Name: "definitely_not_an_op"}, c.Callee)
	assert.Empty(t, f.diags.Diagnostics(), "unknown operators are deferred downstream")
}

type stubOps map[string]int

func (s stubOps) ValidateOp(name string, argc int) error {
	arity, ok := s[name]
	if !ok {
		return fmt.Errorf("unknown operator `%s`", name)
	}
	if arity != argc {
		return fmt.Errorf("operator `%s` takes %d arguments, got %d", name, arity, argc)
	}
	return nil
}

func TestOperatorValidationHook(t *testing.T) {
	ops := stubOps{"relu": 1}

	f := newFixture(t, Config{Ops: ops})
	f.mustLower(t, function("f", params("x"), ret(call("relu", ref("x")))))

	f = newFixture(t, Config{Ops: ops})
	_, err := f.lowerModule(t, function("f", params("x"), ret(call("gelu", ref("x")))))
	cerr := requireCode(t, err, diag.CodeUnknownOperator)
	assert.Contains(t, cerr.Message, "gelu")

	f = newFixture(t, Config{Ops: ops})
	_, err = f.lowerModule(t, function("f", params("x"), ret(call("relu", ref("x"), ref("x")))))
	requireCode(t, err, diag.CodeUnknownOperator)
}

func TestValidationHookSkipsSiblings(t *testing.T) {
	f := newFixture(t, Config{Ops: stubOps{}, Scope: NewModuleScope(siblingModule("helper"))})
	_, err := f.lowerModule(t, function("f", params("x"), ret(call("helper", ref("x")))))
	require.NoError(t, err)
}

func TestComputedCallee(t *testing.T) {
	f := newFixture(t, Config{})
	target := &ast.Call{Func: attr(ref("x"), "shape"), Args: nil, Span: at(3, 5)}
	_, err := f.lowerModule(t, function("f", params("x"), ret(target)))
	cerr := requireCode(t, err, diag.CodeUnsupportedConstruct)
	assert.Equal(t, 3, cerr.Span.StartLine)
	assert.Equal(t, 5, cerr.Span.StartCol)
}

func TestSubscript(t *testing.T) {
	f := newFixture(t, Config{})
	index := &ast.Tuple{Values: []ast.Expr{ref("i"), ref("j"), ref("i")}, Span: at(1, 1)}
	fn := f.mustLower(t, function("f", params("x", "i", "j"), ret(opCall(ast.OpSubscript, ref("x"), index))))

	slice, ok := fn.Body.Result.(*ir.TensorSlice)
	require.True(t, ok)
	assert.Same(t, fn.Params[0], slice.Tensor)
	require.Len(t, slice.Indices, 3)
	assert.Same(t, fn.Params[1], slice.Indices[0])
	assert.Same(t, fn.Params[2], slice.Indices[1])
	assert.Same(t, fn.Params[1], slice.Indices[2])
}

func TestSubscriptSingleIndex(t *testing.T) {
	f := newFixture(t, Config{})
	fn := f.mustLower(t, function("f", params("x", "i"), ret(opCall(ast.OpSubscript, ref("x"), ref("i")))))

	slice := fn.Body.Result.(*ir.TensorSlice)
	require.Len(t, slice.Indices, 1)
	assert.Same(t, fn.Params[1], slice.Indices[0])
}

func TestAdd(t *testing.T) {
	f := newFixture(t, Config{})
	fn := f.mustLower(t, function("f", params("a", "b"), ret(opCall(ast.OpAdd, ref("a"), ref("b")))))

	add, ok := fn.Body.Result.(*ir.Add)
	require.True(t, ok)
	assert.Same(t, fn.Params[0], add.LHS)
	assert.Same(t, fn.Params[1], add.RHS)
}

func TestOperatorFormErrors(t *testing.T) {
	tests := []struct {
		name string
		expr ast.Expr
		code diag.Code
	}{
		{"add with one operand", opCall(ast.OpAdd, ref("a")), diag.CodeUnsupportedConstruct},
		{"add with three operands", opCall(ast.OpAdd, ref("a"), ref("a"), ref("a")), diag.CodeUnsupportedConstruct},
		{"subscript without index", opCall(ast.OpSubscript, ref("a")), diag.CodeUnsupportedConstruct},
		{"sub", opCall(ast.OpSub, ref("a"), ref("a")), diag.CodeUnsupportedConstruct},
		{"mul", opCall(ast.OpMul, ref("a"), ref("a")), diag.CodeUnsupportedConstruct},
		{"neg", opCall(ast.OpNeg, ref("a")), diag.CodeUnsupportedConstruct},
		{"unbound operand", opCall(ast.OpAdd, ref("a"), ref("nope")), diag.CodeUnboundName},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, Config{})
			_, err := f.lowerModule(t, function("f", params("a"), ret(tt.expr)))
			requireCode(t, err, tt.code)
		})
	}
}

func TestAttributeAccess(t *testing.T) {
	f := newFixture(t, Config{})
	fn := f.mustLower(t, function("f", params("x"), ret(attr(ref("x"), "shape"))))
	so, ok := fn.Body.Result.(*ir.ShapeOf)
	require.True(t, ok)
	assert.Same(t, fn.Params[0], so.Tensor)

	f = newFixture(t, Config{})
	_, err := f.lowerModule(t, function("f", params("x"), ret(attr(ref("x"), "dtype"))))
	cerr := requireCode(t, err, diag.CodeUnsupportedConstruct)
	assert.Contains(t, cerr.Message, "`.dtype`")

	// The object is lowered before the field is checked.
	f = newFixture(t, Config{})
	_, err = f.lowerModule(t, function("f", nil, ret(attr(ref("ghost"), "dtype"))))
	requireCode(t, err, diag.CodeUnboundName)
}

func TestUnsupportedExpressions(t *testing.T) {
	tests := []struct {
		name string
		expr ast.Expr
	}{
		{"tuple", &ast.Tuple{Values: []ast.Expr{ref("x")}, Span: at(1, 1)}},
		{"constant", &ast.Constant{Value: 1, Span: at(1, 1)}},
		{"lambda", &ast.Lambda{Func: function("inner", nil, ret(ref("x"))), Span: at(1, 1)}},
		{"bare operator", &ast.Op{Name: ast.OpAdd, Span: at(1, 1)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, Config{})
			_, err := f.lowerModule(t, function("f", params("x"), ret(tt.expr)))
			requireCode(t, err, diag.CodeUnsupportedConstruct)
		})
	}
}

func TestSpansAreTranslated(t *testing.T) {
	f := newFixture(t, Config{})
	body := &ast.Call{Func: ref(IntrinsicCompute), Args: []ast.Expr{ref("x"), ref("x")}, Span: at(4, 12)}
	fn, err := f.lowerer.LowerFunction(context.Background(), function("f", params("x"), ret(body)), nil)
	require.NoError(t, err)

	id, _ := f.sources.Lookup(testFile)
	assert.Equal(t, ir.Span{Source: id, StartLine: 4, EndLine: 4, StartCol: 12, EndCol: 13}, fn.Body.Result.ExprSpan())
}
