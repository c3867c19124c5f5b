package compiler

import (
	"github.com/roach88/tessera/internal/ast"
	"github.com/roach88/tessera/internal/diag"
	"github.com/roach88/tessera/internal/ir"
)

func (fs *funcState) enterBlock() {
	fs.blocks = append(fs.blocks, nil)
}

func (fs *funcState) exitBlock() []ir.Binding {
	top := fs.blocks[len(fs.blocks)-1]
	fs.blocks = fs.blocks[:len(fs.blocks)-1]
	return top
}

func (fs *funcState) bind(b ir.Binding) {
	fs.blocks[len(fs.blocks)-1] = append(fs.blocks[len(fs.blocks)-1], b)
}

// lowerBlock normalizes a statement block into a let: every statement but
// the last is `name = expr`, and the last is a return.
func (fs *funcState) lowerBlock(b *ast.Block) (*ir.Let, error) {
	if len(b.Stmts) == 0 {
		return nil, fs.fail(diag.CodeUnsupportedConstruct, b.Span, "empty block; a block must end with a return")
	}

	fs.enterBlock()
	last := len(b.Stmts) - 1
	for _, stmt := range b.Stmts[:last] {
		if err := fs.lowerBinding(stmt); err != nil {
			return nil, err
		}
	}

	result, err := fs.lowerReturn(b.Stmts[last])
	if err != nil {
		return nil, err
	}
	return &ir.Let{Bindings: fs.exitBlock(), Result: result, Span: fs.span(b.Span)}, nil
}

func (fs *funcState) lowerBinding(stmt ast.Stmt) error {
	if err := fs.ctx.Err(); err != nil {
		return err
	}
	switch s := stmt.(type) {
	case *ast.Assign:
		lhs, ok := s.LHS.(*ast.Var)
		if !ok {
			return fs.fail(diag.CodeUnsupportedConstruct, s.Span, "only variable left-hand sides are supported")
		}
		value, err := fs.lowerExpr(s.RHS)
		if err != nil {
			return err
		}
		v := fs.scope.Declare(lhs.Name, nil, fs.span(lhs.Span))
		fs.bind(ir.Binding{Var: v, Value: value})
		fs.l.logger.Debug("bound variable", "function", fs.fnName, "name", lhs.Name)
		return nil

	case *ast.Return:
		return fs.fail(diag.CodeUnsupportedConstruct, s.Span, "return must be the last statement of a block")

	case *ast.ExprStmt:
		return fs.fail(diag.CodeUnsupportedConstruct, s.Span, "expression statements are not supported; assign the result to a name")

	default:
		return fs.fail(diag.CodeUnsupportedConstruct, stmt.NodeSpan(), "unsupported statement")
	}
}

func (fs *funcState) lowerReturn(stmt ast.Stmt) (ir.Expr, error) {
	ret, ok := stmt.(*ast.Return)
	if !ok {
		return nil, fs.fail(diag.CodeUnsupportedConstruct, stmt.NodeSpan(), "a block must end with a return")
	}
	if ret.Value == nil {
		return nil, fs.fail(diag.CodeUnsupportedConstruct, ret.Span, "return without a value")
	}
	return fs.lowerExpr(ret.Value)
}
