package ast

import "fmt"

// Span is a source range attached to a node. Lines and columns are 1-based.
type Span struct {
	File      string `yaml:"file"`
	StartLine int    `yaml:"start_line"`
	StartCol  int    `yaml:"start_col"`
	EndLine   int    `yaml:"end_line"`
	EndCol    int    `yaml:"end_col"`
}

// IsValid reports whether the span names a file and a starting position.
func (s Span) IsValid() bool {
	return s.File != "" && s.StartLine > 0 && s.StartCol > 0
}

func (s Span) String() string {
	return fmt.Sprintf("%s:%d:%d", s.File, s.StartLine, s.StartCol)
}

// Module is one compilation unit: named function definitions in source order.
type Module struct {
	Name  string
	Funcs []*Function
}

// Function is a function definition.
type Function struct {
	Name    string
	Params  []*Param
	RetType Type // nil when unannotated
	Body    *Block
	Span    Span
}

// Param is a named, optionally typed parameter.
type Param struct {
	Name string
	Type Type // nil when unannotated
	Span Span
}

// Block is an ordered statement sequence.
type Block struct {
	Stmts []Stmt
	Span  Span
}

// Stmt is a sealed interface over statement kinds.
type Stmt interface {
	stmtNode()
	NodeSpan() Span
}

// Assign is `lhs = rhs`.
type Assign struct {
	LHS  Expr
	RHS  Expr
	Span Span
}

// Return is `return value`.
type Return struct {
	Value Expr
	Span  Span
}

// ExprStmt is an expression evaluated for effect, e.g. a bare call.
type ExprStmt struct {
	Value Expr
	Span  Span
}

func (*Assign) stmtNode()   {}
func (*Return) stmtNode()   {}
func (*ExprStmt) stmtNode() {}

func (s *Assign) NodeSpan() Span   { return s.Span }
func (s *Return) NodeSpan() Span   { return s.Span }
func (s *ExprStmt) NodeSpan() Span { return s.Span }

// Expr is a sealed interface over expression kinds.
type Expr interface {
	exprNode()
	NodeSpan() Span
}

// Var is a plain name reference.
type Var struct {
	Name string
	Span Span
}

// Call applies Func to Args. Func is a *Var for named calls and an *Op when
// the source used an infix or indexing operator.
type Call struct {
	Func Expr
	Args []Expr
	Span Span
}

// Op names a builtin operator used as a call target.
type Op struct {
	Name BuiltinOp
	Span Span
}

// Attr is `object.field`.
type Attr struct {
	Object Expr
	Field  string
	Span   Span
}

// Tuple is a tuple literal; also the index list of a subscript.
type Tuple struct {
	Values []Expr
	Span   Span
}

// Constant is an integer literal.
type Constant struct {
	Value int64
	Span  Span
}

// Lambda is a nested function definition used as an expression.
type Lambda struct {
	Func *Function
	Span Span
}

func (*Var) exprNode()      {}
func (*Call) exprNode()     {}
func (*Op) exprNode()       {}
func (*Attr) exprNode()     {}
func (*Tuple) exprNode()    {}
func (*Constant) exprNode() {}
func (*Lambda) exprNode()   {}

func (e *Var) NodeSpan() Span      { return e.Span }
func (e *Call) NodeSpan() Span     { return e.Span }
func (e *Op) NodeSpan() Span       { return e.Span }
func (e *Attr) NodeSpan() Span     { return e.Span }
func (e *Tuple) NodeSpan() Span    { return e.Span }
func (e *Constant) NodeSpan() Span { return e.Span }
func (e *Lambda) NodeSpan() Span   { return e.Span }

// BuiltinOp identifies an operator-form call.
type BuiltinOp string

const (
	OpAdd       BuiltinOp = "add"
	OpSub       BuiltinOp = "sub"
	OpMul       BuiltinOp = "mul"
	OpDiv       BuiltinOp = "div"
	OpSubscript BuiltinOp = "subscript"
	OpEq        BuiltinOp = "eq"
	OpLT        BuiltinOp = "lt"
	OpGT        BuiltinOp = "gt"
	OpNeg       BuiltinOp = "neg"
	OpNot       BuiltinOp = "not"
)

// ValidBuiltinOps lists every operator the AST can carry.
var ValidBuiltinOps = map[BuiltinOp]bool{
	OpAdd:       true,
	OpSub:       true,
	OpMul:       true,
	OpDiv:       true,
	OpSubscript: true,
	OpEq:        true,
	OpLT:        true,
	OpGT:        true,
	OpNeg:       true,
	OpNot:       true,
}

// Type is a sealed interface over type-annotation kinds.
type Type interface {
	typeNode()
	NodeSpan() Span
}

// TypeVar is a bare named type, e.g. `Tensor`.
type TypeVar struct {
	Name string
	Span Span
}

// TypeApply is a parameterized type, e.g. `Tensor[2, 3]`.
type TypeApply struct {
	Name   string
	Params []Type
	Span   Span
}

// TypeConstant is an integer literal in type position.
type TypeConstant struct {
	Value int64
	Span  Span
}

// TypeTuple is a tuple of types.
type TypeTuple struct {
	Types []Type
	Span  Span
}

func (*TypeVar) typeNode()      {}
func (*TypeApply) typeNode()    {}
func (*TypeConstant) typeNode() {}
func (*TypeTuple) typeNode()    {}

func (t *TypeVar) NodeSpan() Span      { return t.Span }
func (t *TypeApply) NodeSpan() Span    { return t.Span }
func (t *TypeConstant) NodeSpan() Span { return t.Span }
func (t *TypeTuple) NodeSpan() Span    { return t.Span }
