package harness

import (
	"context"
	"fmt"
	"strings"

	"github.com/roach88/tessera/internal/ir"
	"github.com/roach88/tessera/internal/store"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string // Assertion type for categorization
	Expected string // Human-readable expected outcome
	Actual   string // Human-readable actual outcome
	Listing  string // Printed IR of the function under test, if any
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if e.Listing != "" {
		fmt.Fprintf(&buf, "\nFunction:\n%s", e.Listing)
	}
	return buf.String()
}

// AssertionContext carries what assertions need beyond the result.
type AssertionContext struct {
	Store *store.Store
	Ctx   context.Context
}

// EvaluateAssertions runs every assertion and returns the failure messages.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var errs []string
	for i, a := range assertions {
		var err error
		switch a.Type {
		case AssertFunction:
			err = assertFunction(result.Module, a)
		case AssertCall:
			err = assertCall(result.Module, a)
		case AssertDiagnostic:
			err = assertDiagnostic(result, a)
		case AssertStored:
			err = assertStored(actx, result.Module)
		default:
			err = fmt.Errorf("unknown assertion type %q", a.Type)
		}
		if err != nil {
			errs = append(errs, fmt.Sprintf("assertions[%d]: %v", i, err))
		}
	}
	return errs
}

func lookupFunction(m *ir.Module, typ, name string) (*ir.Function, error) {
	if m == nil {
		return nil, &AssertionError{
			Type:     typ,
			Expected: fmt.Sprintf("function %s", name),
			Actual:   "lowering aborted, no module",
		}
	}
	fn, ok := m.Get(name)
	if !ok {
		return nil, &AssertionError{
			Type:     typ,
			Expected: fmt.Sprintf("function %s", name),
			Actual:   fmt.Sprintf("module has %v", m.Names()),
		}
	}
	return fn, nil
}

// assertFunction checks the shape of a lowered function.
func assertFunction(m *ir.Module, a Assertion) error {
	fn, err := lookupFunction(m, AssertFunction, a.Function)
	if err != nil {
		return err
	}
	fail := func(expected, actual string) error {
		return &AssertionError{
			Type:     AssertFunction,
			Expected: expected,
			Actual:   actual,
			Listing:  ir.FunctionString(fn),
		}
	}

	if a.Params != nil && len(fn.Params) != *a.Params {
		return fail(fmt.Sprintf("%d params", *a.Params), fmt.Sprintf("%d params", len(fn.Params)))
	}
	if a.Bindings != nil && len(fn.Body.Bindings) != *a.Bindings {
		return fail(fmt.Sprintf("%d bindings", *a.Bindings), fmt.Sprintf("%d bindings", len(fn.Body.Bindings)))
	}
	if a.Result != "" {
		if got := ExprKind(fn.Body.Result); got != a.Result {
			return fail(fmt.Sprintf("result of kind %s", a.Result), fmt.Sprintf("result of kind %s", got))
		}
	}
	return nil
}

// assertCall checks that some call in the function targets the callee.
func assertCall(m *ir.Module, a Assertion) error {
	fn, err := lookupFunction(m, AssertCall, a.Function)
	if err != nil {
		return err
	}

	found := false
	walkCalls(fn.Body, func(c *ir.Call) {
		kind, name := calleeOf(c)
		if kind != a.Callee || name != a.Name {
			return
		}
		if a.CheckCallable != nil && c.CheckCallable != *a.CheckCallable {
			return
		}
		found = true
	})
	if found {
		return nil
	}

	expected := fmt.Sprintf("call of %s %s", a.Callee, a.Name)
	if a.CheckCallable != nil {
		expected += fmt.Sprintf(" with check_callable=%t", *a.CheckCallable)
	}
	return &AssertionError{
		Type:     AssertCall,
		Expected: expected,
		Actual:   "no matching call",
		Listing:  ir.FunctionString(fn),
	}
}

// assertDiagnostic counts rendered diagnostics with the given code and,
// when set, level.
func assertDiagnostic(r *Result, a Assertion) error {
	count := 0
	for _, d := range r.Diagnostics {
		if string(d.Code) != a.Code {
			continue
		}
		if a.Level != "" && d.Level.String() != a.Level {
			continue
		}
		count++
	}
	if count != a.Count {
		what := a.Code
		if a.Level != "" {
			what = a.Level + " " + what
		}
		return &AssertionError{
			Type:     AssertDiagnostic,
			Expected: fmt.Sprintf("%d occurrences of %s", a.Count, what),
			Actual:   fmt.Sprintf("%d occurrences", count),
		}
	}
	return nil
}

// assertStored writes the module to the store, reads it back and compares
// module hashes.
func assertStored(actx *AssertionContext, m *ir.Module) error {
	if m == nil {
		return &AssertionError{
			Type:     AssertStored,
			Expected: "a stored module",
			Actual:   "lowering aborted, no module",
		}
	}
	info, err := actx.Store.WriteModule(actx.Ctx, m)
	if err != nil {
		return fmt.Errorf("write module: %w", err)
	}
	back, err := actx.Store.ReadModule(actx.Ctx, m.Name)
	if err != nil {
		return fmt.Errorf("read module: %w", err)
	}
	hash, err := ir.ModuleHash(back)
	if err != nil {
		return fmt.Errorf("hash module: %w", err)
	}
	if hash != info.Hash {
		return &AssertionError{
			Type:     AssertStored,
			Expected: fmt.Sprintf("module hash %s after round trip", info.Hash),
			Actual:   fmt.Sprintf("module hash %s", hash),
		}
	}
	return nil
}

// ExprKind returns the canonical encoding kind of x, e.g. "add" or "let".
func ExprKind(x ir.Expr) string {
	switch x.(type) {
	case *ir.Var:
		return ir.KindVar
	case *ir.Call:
		return ir.KindCall
	case *ir.Add:
		return ir.KindAdd
	case *ir.TensorSlice:
		return ir.KindTensorSlice
	case *ir.ShapeOf:
		return ir.KindShapeOf
	case *ir.BroadcastShape:
		return ir.KindBroadcastShape
	case *ir.Compute:
		return ir.KindCompute
	case *ir.Let:
		return ir.KindLet
	default:
		return fmt.Sprintf("%T", x)
	}
}

func calleeOf(c *ir.Call) (kind, name string) {
	switch callee := c.Callee.(type) {
	case *ir.GlobalVar:
		return "global", callee.Name
	case *ir.Op:
		return "op", callee.Name
	case *ir.Var:
		return "var", callee.Name
	}
	return "", ""
}

// walkCalls visits every call reachable from x, outermost first.
func walkCalls(x ir.Expr, visit func(*ir.Call)) {
	switch ex := x.(type) {
	case *ir.Call:
		visit(ex)
		for _, arg := range ex.Args {
			walkCalls(arg, visit)
		}
	case *ir.Add:
		walkCalls(ex.LHS, visit)
		walkCalls(ex.RHS, visit)
	case *ir.TensorSlice:
		walkCalls(ex.Tensor, visit)
		for _, idx := range ex.Indices {
			walkCalls(idx, visit)
		}
	case *ir.ShapeOf:
		walkCalls(ex.Tensor, visit)
	case *ir.BroadcastShape:
		walkCalls(ex.LHS, visit)
		walkCalls(ex.RHS, visit)
	case *ir.Compute:
		walkCalls(ex.Shape, visit)
		walkCalls(ex.Body, visit)
	case *ir.Let:
		for _, b := range ex.Bindings {
			walkCalls(b.Value, visit)
		}
		walkCalls(ex.Result, visit)
	}
}
