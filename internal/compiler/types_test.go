package compiler

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/tessera/internal/ast"
	"github.com/roach88/tessera/internal/diag"
	"github.com/roach88/tessera/internal/ir"
)

func paramType(t *testing.T, f *fixture, ty ast.Type) ir.Type {
	t.Helper()
	fn := f.mustLower(t, function("f", []*ast.Param{param("x", ty)}, ret(ref("x"))))
	return fn.Params[0].Type
}

func TestLowerTypeUnannotated(t *testing.T) {
	f := newFixture(t, Config{})
	assert.Nil(t, paramType(t, f, nil))
}

func TestLowerTypeUnrankedTensor(t *testing.T) {
	f := newFixture(t, Config{})
	ty, ok := paramType(t, f, tensor()).(*ir.TensorType)
	require.True(t, ok)
	assert.False(t, ty.Ranked)
	assert.Equal(t, -1, ty.Rank())
	assert.Empty(t, ty.DType)
	assert.True(t, ty.Span.IsValid())
}

func TestLowerTypeRankedTensor(t *testing.T) {
	tests := []struct {
		name string
		dims []int64
	}{
		{"rank 0", nil},
		{"rank 1", []int64{7}},
		{"rank 2", []int64{2, 3}},
		{"rank 4", []int64{1, 3, 224, 224}},
		{"negative and zero", []int64{-1, 0}},
		{"int32 bounds", []int64{-2147483648, 2147483647}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, Config{})
			ty, ok := paramType(t, f, tensorOf(tt.dims...)).(*ir.TensorType)
			require.True(t, ok)
			assert.True(t, ty.Ranked)
			require.Equal(t, len(tt.dims), ty.Rank())
			for i, d := range tt.dims {
				assert.Equal(t, int32(d), ty.Dims[i].Value)
			}
		})
	}
}

func TestLowerTypeUnsupported(t *testing.T) {
	tests := []struct {
		name string
		ty   ast.Type
		want string
	}{
		{"other named type", &ast.TypeVar{Name: "Scalar", Span: at(2, 9)}, "unsupported type `Scalar`"},
		{"other applied type", &ast.TypeApply{Name: "List", Params: []ast.Type{&ast.TypeConstant{Value: 2, Span: at(2, 9)}}, Span: at(2, 9)}, "unsupported type `List[...]`"},
		{"symbolic dim", &ast.TypeApply{Name: "Tensor", Params: []ast.Type{&ast.TypeVar{Name: "n", Span: at(2, 9)}}, Span: at(2, 9)}, "integer literals"},
		{"dim too wide", tensorOf(1 << 40), "does not fit in 32 bits"},
		{"bare constant", &ast.TypeConstant{Value: 3, Span: at(2, 9)}, "not a type"},
		{"tuple type", &ast.TypeTuple{Span: at(2, 9)}, "tuple types"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, Config{})
			fn := function("f", []*ast.Param{param("x", tt.ty)}, ret(ref("x")))
			_, err := f.lowerModule(t, fn)
			require.Error(t, err)
			assert.True(t, errors.Is(err, diag.ErrAborted))

			var cerr *CompileError
			require.True(t, errors.As(err, &cerr))
			assert.Equal(t, diag.CodeUnsupportedConstruct, cerr.Code)
			assert.Contains(t, cerr.Message, tt.want)
			assert.Equal(t, cerr.Message, f.lastDiagnostic(t).Message)
		})
	}
}
