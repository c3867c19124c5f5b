package ir

import "fmt"

// SourceID identifies a source registered with a compilation unit's source
// map. The zero value means "no source".
type SourceID int

// Span is a source range rebased onto a compilation unit's source map.
type Span struct {
	Source    SourceID
	StartLine int
	EndLine   int
	StartCol  int
	EndCol    int
}

// IsValid reports whether the span points into a registered source.
func (s Span) IsValid() bool {
	return s.Source > 0 && s.StartLine > 0
}

func (s Span) String() string {
	return fmt.Sprintf("#%d:%d:%d", s.Source, s.StartLine, s.StartCol)
}

// Type is a sealed interface over IR types.
type Type interface {
	irType()
}

// Dim is a single dimension of a tensor shape. Only fixed-width integer
// literals are supported; there are no symbolic dimensions.
type Dim struct {
	Value int32
}

// TensorType describes a tensor value.
//
// Ranked is false for an unranked tensor, in which case Dims is empty.
// DType is reserved for the element kind and is always empty today.
type TensorType struct {
	Ranked bool
	Dims   []Dim
	DType  string
	Span   Span
}

func (*TensorType) irType() {}

// UnrankedTensor returns a tensor type with no shape information.
func UnrankedTensor(span Span) *TensorType {
	return &TensorType{Span: span}
}

// RankedTensor returns a tensor type with the given dimensions in order.
func RankedTensor(dims []Dim, span Span) *TensorType {
	return &TensorType{Ranked: true, Dims: dims, Span: span}
}

// Rank returns the number of dimensions, or -1 for an unranked tensor.
func (t *TensorType) Rank() int {
	if !t.Ranked {
		return -1
	}
	return len(t.Dims)
}

func (t *TensorType) String() string {
	if !t.Ranked {
		return "Tensor"
	}
	s := "Tensor["
	for i, d := range t.Dims {
		if i > 0 {
			s += ", "
		}
		s += fmt.Sprintf("%d", d.Value)
	}
	return s + "]"
}

// Expr is a sealed interface over IR expressions.
//
// Expression types:
//   - *Var: reference to a parameter or binding
//   - *Call: call of a global function, primitive operator or local value
//   - *Add: element-wise addition
//   - *TensorSlice: indexing a tensor by an ordered index list
//   - *ShapeOf: a tensor's shape as a value
//   - *BroadcastShape, *Compute: fixed two-operand intrinsics
//   - *Let: ordered bindings followed by a result
type Expr interface {
	irExpr()
	ExprSpan() Span
}

// Callee is a sealed interface over call targets: *GlobalVar, *Op or *Var.
type Callee interface {
	irCallee()
}

// Var is a variable introduced by a parameter or a binding.
// ID is unique within the function; Name is the source-level hint.
type Var struct {
	ID   string
	Name string
	Type Type // nil when not annotated
	Span Span
}

// NewVar creates a variable with a fresh id.
func NewVar(ids IDGenerator, name string, ty Type, span Span) *Var {
	return &Var{ID: ids.Generate(), Name: name, Type: ty, Span: span}
}

// GlobalVar references a function in the enclosing IR module by name.
type GlobalVar struct {
	Name string
}

// Op references a primitive operator in the external registry by name.
type Op struct {
	Name string
}

func (*Var) irCallee()       {}
func (*GlobalVar) irCallee() {}
func (*Op) irCallee()        {}

// Call applies a callee to arguments.
//
// CheckCallable is set when the callee is a locally bound value: the frontend
// does not prove that value is callable, so the downstream compiler must.
type Call struct {
	Callee        Callee
	Args          []Expr
	CheckCallable bool
	Span          Span
}

// Add is element-wise addition of two tensors.
type Add struct {
	LHS  Expr
	RHS  Expr
	Span Span
}

// TensorSlice indexes Tensor by Indices, outermost dimension first.
type TensorSlice struct {
	Tensor  Expr
	Indices []Expr
	Span    Span
}

// ShapeOf extracts the shape of Tensor as a value.
type ShapeOf struct {
	Tensor Expr
	Span   Span
}

// BroadcastShape computes the broadcast of two shapes.
type BroadcastShape struct {
	LHS  Expr
	RHS  Expr
	Span Span
}

// Compute builds a tensor of the given Shape from Body.
type Compute struct {
	Shape Expr
	Body  Expr
	Span  Span
}

// Binding binds Var to the value of Value. Bindings evaluate in order.
type Binding struct {
	Var   *Var
	Value Expr
}

// Let evaluates Bindings in order, then Result.
type Let struct {
	Bindings []Binding
	Result   Expr
	Span     Span
}

func (*Var) irExpr()            {}
func (*Call) irExpr()           {}
func (*Add) irExpr()            {}
func (*TensorSlice) irExpr()    {}
func (*ShapeOf) irExpr()        {}
func (*BroadcastShape) irExpr() {}
func (*Compute) irExpr()        {}
func (*Let) irExpr()            {}

func (e *Var) ExprSpan() Span            { return e.Span }
func (e *Call) ExprSpan() Span           { return e.Span }
func (e *Add) ExprSpan() Span            { return e.Span }
func (e *TensorSlice) ExprSpan() Span    { return e.Span }
func (e *ShapeOf) ExprSpan() Span        { return e.Span }
func (e *BroadcastShape) ExprSpan() Span { return e.Span }
func (e *Compute) ExprSpan() Span        { return e.Span }
func (e *Let) ExprSpan() Span            { return e.Span }

// Function is a lowered function definition.
//
// RetType is left nil by the frontend; return types are inferred downstream.
type Function struct {
	Name    string
	Params  []*Var
	Body    *Let
	RetType Type
	Span    Span
}
