package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFprintShape(t *testing.T) {
	expected := "fn f(%x: Tensor) {\n" +
		"  %y = shape_of(%x)\n" +
		"  %y\n" +
		"}\n"
	assert.Equal(t, expected, FunctionString(shapeFunction(&seqIDs{})))
}

func TestFprintAdd(t *testing.T) {
	expected := "fn g(%a: Tensor[2, 3], %b: Tensor[2, 3]) {\n" +
		"  add(%a, %b)\n" +
		"}\n"
	assert.Equal(t, expected, FunctionString(addFunction(&seqIDs{})))
}

func TestFprintShadowedNames(t *testing.T) {
	ids := &seqIDs{}
	x := NewVar(ids, "x", nil, Span{})
	y1 := NewVar(ids, "y", nil, Span{})
	y2 := NewVar(ids, "y", nil, Span{})
	fn := &Function{
		Name:   "s",
		Params: []*Var{x},
		Body: &Let{
			Bindings: []Binding{
				{Var: y1, Value: &ShapeOf{Tensor: x}},
				{Var: y2, Value: &Call{Callee: &Op{Name: "relu"}, Args: []Expr{y1}}},
			},
			Result: &TensorSlice{Tensor: y2, Indices: []Expr{x, y1}},
		},
	}

	expected := "fn s(%x) {\n" +
		"  %y = shape_of(%x)\n" +
		"  %y1 = relu(%y)\n" +
		"  %y1[%x, %y]\n" +
		"}\n"
	assert.Equal(t, expected, FunctionString(fn))
}

func TestFprintCallees(t *testing.T) {
	ids := &seqIDs{}
	k := NewVar(ids, "k", nil, Span{})
	fn := &Function{
		Name:   "c",
		Params: []*Var{k},
		Body: &Let{Result: &Compute{
			Shape: &Call{Callee: &GlobalVar{Name: "sib"}, Args: []Expr{k}},
			Body:  &Call{Callee: k, Args: nil, CheckCallable: true},
		}},
	}
	assert.Contains(t, FunctionString(fn), "compute(@sib(%k), %k())")
}
