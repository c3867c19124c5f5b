package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/roach88/tessera/internal/ast"
	"github.com/roach88/tessera/internal/compiler"
	"github.com/roach88/tessera/internal/diag"
	"github.com/roach88/tessera/internal/ir"
	"github.com/roach88/tessera/internal/opreg"
	"github.com/roach88/tessera/internal/source"
	"github.com/roach88/tessera/internal/store"
	"github.com/roach88/tessera/internal/testutil"
)

// Harness is the scenario execution environment. It owns the compilation
// unit shared by the scope documents and the document under test.
type Harness struct {
	store     *store.Store
	sources   *source.Map
	collector *diag.Collector
	diag      *diag.Context
	ids       *testutil.SequenceGenerator
	ops       compiler.OpValidator
	policy    compiler.RedefinitionPolicy
	logger    *slog.Logger
}

// Run executes a scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database for isolation.
//
// Execution flow:
//  1. Create fresh in-memory database
//  2. Lower each scope document in order and write it to the store
//  3. Lower the document under test with the store as definition scope
//  4. Check the expectation and evaluate assertions
//
// The returned error reports a broken scenario (unreadable document, failing
// scope); a lowering failure of the document under test is part of the
// result.
func Run(scenario *Scenario) (*Result, error) {
	return RunContext(context.Background(), scenario)
}

// RunContext is Run with a caller-supplied context.
func RunContext(ctx context.Context, scenario *Scenario) (*Result, error) {
	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	collector := &diag.Collector{}
	h := &Harness{
		store:     st,
		sources:   source.NewMap(),
		collector: collector,
		diag:      diag.NewContext(collector),
		ids:       testutil.NewSequenceGenerator("v"),
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)), // Suppress logs in tests
	}
	if scenario.Strict {
		h.policy = compiler.RedefinitionReject
	}
	if scenario.CheckOps {
		reg, err := opreg.Default()
		if err != nil {
			return nil, fmt.Errorf("failed to load operator registry: %w", err)
		}
		h.ops = reg
	}

	for _, path := range scenario.Scope {
		mod, err := h.lowerFile(ctx, path)
		if err != nil {
			return nil, fmt.Errorf("scope %s: %w", path, err)
		}
		if _, err := st.WriteModule(ctx, mod); err != nil {
			return nil, fmt.Errorf("scope %s: %w", path, err)
		}
	}

	doc, err := h.load(scenario.AST)
	if err != nil {
		return nil, err
	}
	result := NewResult()
	result.Sources = h.sources
	result.Module, result.Err = h.lowerer().LowerModule(ctx, doc.Module)
	result.Diagnostics = collector.Diagnostics()

	for _, msg := range checkExpectation(result, scenario.Expect) {
		result.AddError(msg)
	}

	actx := &AssertionContext{
		Store: st,
		Ctx:   ctx,
	}
	for _, msg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(msg)
	}
	return result, nil
}

// load reads an AST document and registers its sources.
func (h *Harness) load(path string) (*ast.Document, error) {
	doc, err := ast.LoadDocument(path)
	if err != nil {
		return nil, err
	}
	for _, src := range doc.Sources {
		h.sources.Add(src.Name, src.Text)
	}
	return doc, nil
}

func (h *Harness) lowerFile(ctx context.Context, path string) (*ir.Module, error) {
	doc, err := h.load(path)
	if err != nil {
		return nil, err
	}
	return h.lowerer().LowerModule(ctx, doc.Module)
}

// lowerer builds a Lowerer that sees everything stored so far.
func (h *Harness) lowerer() *compiler.Lowerer {
	return compiler.New(compiler.Config{
		Sources:      h.sources,
		Diag:         h.diag,
		Scope:        h.store.Scope(),
		Ops:          h.ops,
		IDs:          h.ids,
		Logger:       h.logger,
		Redefinition: h.policy,
	})
}

// checkExpectation compares the lowering outcome with exp.
func checkExpectation(r *Result, exp Expectation) []string {
	var errs []string
	if got := r.Status(); got != exp.Status {
		msg := fmt.Sprintf("expected status %s, got %s", exp.Status, got)
		if r.Err != nil {
			msg += ": " + r.Err.Error()
		}
		return append(errs, msg)
	}
	if exp.Status != StatusError {
		return nil
	}

	d, ok := r.Aborting()
	if !ok {
		return append(errs, "expected an error diagnostic, none was rendered")
	}
	if exp.Code != "" && string(d.Code) != exp.Code {
		errs = append(errs, fmt.Sprintf("expected code %s, got %s", exp.Code, d.Code))
	}
	if exp.Message != "" && !strings.Contains(d.Message, exp.Message) {
		errs = append(errs, fmt.Sprintf("expected message containing %q, got %q", exp.Message, d.Message))
	}
	if exp.Line != 0 && d.Span.StartLine != exp.Line {
		errs = append(errs, fmt.Sprintf("expected line %d, got %d", exp.Line, d.Span.StartLine))
	}
	return errs
}
