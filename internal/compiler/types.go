package compiler

import (
	"math"

	"github.com/roach88/tessera/internal/ast"
	"github.com/roach88/tessera/internal/diag"
	"github.com/roach88/tessera/internal/ir"
)

const tensorTypeName = "Tensor"

// lowerType parses a parameter annotation. A nil annotation is no type.
//
//	Tensor           -> unranked tensor
//	Tensor[2, 3]     -> tensor with dims [2, 3]
func (fs *funcState) lowerType(t ast.Type) (ir.Type, error) {
	if t == nil {
		return nil, nil
	}
	switch ty := t.(type) {
	case *ast.TypeVar:
		if ty.Name != tensorTypeName {
			return nil, fs.fail(diag.CodeUnsupportedConstruct, ty.Span, "unsupported type `%s`", ty.Name)
		}
		return ir.UnrankedTensor(fs.span(ty.Span)), nil

	case *ast.TypeApply:
		if ty.Name != tensorTypeName {
			return nil, fs.fail(diag.CodeUnsupportedConstruct, ty.Span, "unsupported type `%s[...]`", ty.Name)
		}
		dims := make([]ir.Dim, 0, len(ty.Params))
		for _, p := range ty.Params {
			c, ok := p.(*ast.TypeConstant)
			if !ok {
				return nil, fs.fail(diag.CodeUnsupportedConstruct, p.NodeSpan(),
					"tensor dimensions must be integer literals")
			}
			if c.Value < math.MinInt32 || c.Value > math.MaxInt32 {
				return nil, fs.fail(diag.CodeUnsupportedConstruct, c.Span,
					"tensor dimension %d does not fit in 32 bits", c.Value)
			}
			dims = append(dims, ir.Dim{Value: int32(c.Value)})
		}
		return ir.RankedTensor(dims, fs.span(ty.Span)), nil

	case *ast.TypeConstant:
		return nil, fs.fail(diag.CodeUnsupportedConstruct, ty.Span, "integer literal is not a type")

	case *ast.TypeTuple:
		return nil, fs.fail(diag.CodeUnsupportedConstruct, ty.Span, "tuple types are not supported")

	default:
		return nil, fs.fail(diag.CodeUnsupportedConstruct, t.NodeSpan(), "unsupported type annotation")
	}
}
