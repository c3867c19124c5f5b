package ir

import "fmt"

// seqIDs hands out v1, v2, ... so tests are deterministic.
type seqIDs struct{ n int }

func (s *seqIDs) Generate() string {
	s.n++
	return fmt.Sprintf("v%d", s.n)
}

// shapeFunction builds fn f(%x: Tensor) { %y = shape_of(%x); %y }.
func shapeFunction(ids IDGenerator) *Function {
	x := NewVar(ids, "x", UnrankedTensor(Span{}), Span{})
	y := NewVar(ids, "y", nil, Span{})
	return &Function{
		Name:   "f",
		Params: []*Var{x},
		Body: &Let{
			Bindings: []Binding{{Var: y, Value: &ShapeOf{Tensor: x}}},
			Result:   y,
		},
	}
}

// addFunction builds fn g(%a: Tensor[2, 3], %b: Tensor[2, 3]) { add(%a, %b) }.
func addFunction(ids IDGenerator) *Function {
	dims := []Dim{{Value: 2}, {Value: 3}}
	a := NewVar(ids, "a", RankedTensor(dims, Span{}), Span{})
	b := NewVar(ids, "b", RankedTensor(dims, Span{}), Span{})
	return &Function{
		Name:   "g",
		Params: []*Var{a, b},
		Body:   &Let{Result: &Add{LHS: a, RHS: b}},
	}
}
