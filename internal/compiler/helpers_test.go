package compiler

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/tessera/internal/ast"
	"github.com/roach88/tessera/internal/diag"
	"github.com/roach88/tessera/internal/ir"
	"github.com/roach88/tessera/internal/source"
	"github.com/roach88/tessera/internal/testutil"
)

const testFile = "kernel.py"

type fixture struct {
	lowerer *Lowerer
	sources *source.Map
	diags   *diag.Collector
	ids     *testutil.SequenceGenerator
}

// newFixture builds a Lowerer over a registered kernel.py. cfg may set
// Scope, Ops, Redefinition and Parallel; the rest is filled in.
func newFixture(t *testing.T, cfg Config) *fixture {
	t.Helper()
	f := &fixture{
		sources: source.NewMap(),
		diags:   &diag.Collector{},
		ids:     testutil.NewSequenceGenerator("v"),
	}
	f.sources.Add(testFile, "")
	cfg.Sources = f.sources
	cfg.Diag = diag.NewContext(f.diags)
	cfg.IDs = f.ids
	f.lowerer = New(cfg)
	return f
}

func (f *fixture) lowerModule(t *testing.T, funcs ...*ast.Function) (*ir.Module, error) {
	t.Helper()
	return f.lowerer.LowerModule(context.Background(), &ast.Module{Name: "m", Funcs: funcs})
}

func (f *fixture) mustLower(t *testing.T, fn *ast.Function) *ir.Function {
	t.Helper()
	out, err := f.lowerer.LowerFunction(context.Background(), fn, nil)
	require.NoError(t, err)
	return out
}

// lastDiagnostic returns the most recent rendered diagnostic.
func (f *fixture) lastDiagnostic(t *testing.T) diag.Diagnostic {
	t.Helper()
	ds := f.diags.Diagnostics()
	require.NotEmpty(t, ds, "expected a diagnostic")
	return ds[len(ds)-1]
}

func at(line, col int) ast.Span {
	return ast.Span{File: testFile, StartLine: line, StartCol: col, EndLine: line, EndCol: col + 1}
}

func ref(name string) *ast.Var { return &ast.Var{Name: name, Span: at(1, 1)} }

func call(name string, args ...ast.Expr) *ast.Call {
	return &ast.Call{Func: ref(name), Args: args, Span: at(1, 1)}
}

func opCall(op ast.BuiltinOp, args ...ast.Expr) *ast.Call {
	return &ast.Call{Func: &ast.Op{Name: op, Span: at(1, 1)}, Args: args, Span: at(1, 1)}
}

func attr(obj ast.Expr, field string) *ast.Attr {
	return &ast.Attr{Object: obj, Field: field, Span: at(1, 1)}
}

func assign(name string, rhs ast.Expr) *ast.Assign {
	return &ast.Assign{LHS: ref(name), RHS: rhs, Span: at(1, 1)}
}

func ret(e ast.Expr) *ast.Return { return &ast.Return{Value: e, Span: at(1, 1)} }

func param(name string, ty ast.Type) *ast.Param {
	return &ast.Param{Name: name, Type: ty, Span: at(1, 1)}
}

func tensor() ast.Type { return &ast.TypeVar{Name: "Tensor", Span: at(1, 1)} }

func tensorOf(dims ...int64) ast.Type {
	params := make([]ast.Type, len(dims))
	for i, d := range dims {
		params[i] = &ast.TypeConstant{Value: d, Span: at(1, 1)}
	}
	return &ast.TypeApply{Name: "Tensor", Params: params, Span: at(1, 1)}
}

func function(name string, params []*ast.Param, stmts ...ast.Stmt) *ast.Function {
	return &ast.Function{
		Name:   name,
		Params: params,
		Body:   &ast.Block{Stmts: stmts, Span: at(1, 1)},
		Span:   at(1, 1),
	}
}

func params(names ...string) []*ast.Param {
	out := make([]*ast.Param, len(names))
	for i, n := range names {
		out[i] = param(n, nil)
	}
	return out
}

// siblingModule returns a module exporting fn name(%t: Tensor) { %t }.
func siblingModule(name string) *ir.Module {
	ids := testutil.NewSequenceGenerator("s")
	t := ir.NewVar(ids, "t", ir.UnrankedTensor(ir.Span{}), ir.Span{})
	m := ir.NewModule("siblings")
	m.Put(name, &ir.Function{Name: name, Params: []*ir.Var{t}, Body: &ir.Let{Result: t}})
	return m
}
