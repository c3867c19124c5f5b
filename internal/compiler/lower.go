package compiler

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"runtime"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/roach88/tessera/internal/ast"
	"github.com/roach88/tessera/internal/diag"
	"github.com/roach88/tessera/internal/ir"
	"github.com/roach88/tessera/internal/source"
)

// RedefinitionPolicy decides what happens when a module defines a function
// name twice.
type RedefinitionPolicy int

const (
	// RedefinitionOverwrite keeps the last definition and emits a warning.
	RedefinitionOverwrite RedefinitionPolicy = iota
	// RedefinitionReject aborts with a REDEFINITION error.
	RedefinitionReject
)

// Config configures a Lowerer. Sources must already hold every file the AST
// spans reference.
type Config struct {
	Sources *source.Map
	Diag    *diag.Context

	// Scope resolves sibling functions. Nil means no definition scope.
	Scope DefinitionScope
	// Ops, when set, validates calls that fall through to the operator
	// registry.
	Ops OpValidator

	IDs          ir.IDGenerator
	Logger       *slog.Logger
	Redefinition RedefinitionPolicy

	// Parallel lowers the functions of a module concurrently.
	Parallel bool
}

// Lowerer turns AST modules into IR modules.
type Lowerer struct {
	sources *source.Map
	diag    *diag.Context
	scope   DefinitionScope
	ops     OpValidator
	ids     ir.IDGenerator
	logger  *slog.Logger
	policy  RedefinitionPolicy
	par     bool

	// failMu keeps each emit+render pair together when functions are
	// lowered concurrently. It also guards the lowerRun shared by the
	// functions of one call.
	failMu sync.Mutex
}

// New creates a Lowerer. Missing Sources, Diag, IDs and Logger get defaults.
func New(cfg Config) *Lowerer {
	l := &Lowerer{
		sources: cfg.Sources,
		diag:    cfg.Diag,
		scope:   cfg.Scope,
		ops:     cfg.Ops,
		ids:     cfg.IDs,
		logger:  cfg.Logger,
		policy:  cfg.Redefinition,
		par:     cfg.Parallel,
	}
	if l.sources == nil {
		l.sources = source.NewMap()
	}
	if l.diag == nil {
		l.diag = diag.NewContext(nil)
	}
	if l.ids == nil {
		l.ids = ir.UUIDv7Generator{}
	}
	if l.logger == nil {
		l.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return l
}

// lowered is the result of lowering one function.
type lowered struct {
	fn      *ir.Function
	imports map[string]*ir.Function
}

// LowerModule lowers every function of m in AST order. On failure no module
// is returned.
//
// Duplicate names are checked in AST order before any body is lowered.
// Functions imported from the definition scope are inserted first; the
// module's own definitions are inserted after them in AST order and win on
// a name clash.
func (l *Lowerer) LowerModule(ctx context.Context, m *ast.Module) (*ir.Module, error) {
	l.logger.Debug("lowering module", "module", m.Name, "functions", len(m.Funcs), "parallel", l.par)

	defined := make(map[string]bool, len(m.Funcs))
	for _, fn := range m.Funcs {
		if defined[fn.Name] {
			if err := l.redefined(fn); err != nil {
				return nil, err
			}
		}
		defined[fn.Name] = true
	}

	var results []lowered
	var err error
	if l.par {
		results, err = l.lowerParallel(ctx, m)
	} else {
		results, err = l.lowerSequential(ctx, m)
	}
	if err != nil {
		return nil, err
	}

	mod := ir.NewModule(m.Name)
	imported := 0
	for _, r := range results {
		for name, fn := range r.imports {
			if !mod.Put(name, fn) {
				imported++
			}
		}
	}
	for _, r := range results {
		mod.Put(r.fn.Name, r.fn)
	}

	l.logger.Info("lowered module", "module", m.Name, "functions", len(defined), "imports", imported)
	return mod, nil
}

func (l *Lowerer) lowerSequential(ctx context.Context, m *ast.Module) ([]lowered, error) {
	results := make([]lowered, 0, len(m.Funcs))
	run := new(lowerRun)
	for _, fn := range m.Funcs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		r, err := l.lower(ctx, fn, run)
		if err != nil {
			return nil, err
		}
		results = append(results, r)
	}
	return results, nil
}

func (l *Lowerer) lowerParallel(ctx context.Context, m *ast.Module) ([]lowered, error) {
	results := make([]lowered, len(m.Funcs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	run := new(lowerRun)
	for i, fn := range m.Funcs {
		i, fn := i, fn
		g.Go(func() error {
			r, err := l.lower(gctx, fn, run)
			if err != nil {
				return err
			}
			results[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		if first := run.firstError(&l.failMu); first != nil {
			return nil, first
		}
		return nil, err
	}
	return results, nil
}

// LowerFunction lowers fn on its own. When mod is non-nil, fn and anything
// it imports are inserted into mod.
func (l *Lowerer) LowerFunction(ctx context.Context, fn *ast.Function, mod *ir.Module) (*ir.Function, error) {
	r, err := l.lower(ctx, fn, new(lowerRun))
	if err != nil {
		return nil, err
	}
	if mod != nil {
		for name, imp := range r.imports {
			mod.Put(name, imp)
		}
		mod.Put(r.fn.Name, r.fn)
	}
	return r.fn, nil
}

func (l *Lowerer) redefined(fn *ast.Function) error {
	span := l.sources.Translate(fn.Span)
	msg := fmt.Sprintf("function `%s` is defined more than once", fn.Name)
	l.failMu.Lock()
	defer l.failMu.Unlock()
	if l.policy == RedefinitionReject {
		l.diag.EmitCode(diag.LevelError, diag.CodeRedefinition, msg, span)
		return &CompileError{Code: diag.CodeRedefinition, Message: msg, Span: span, Err: l.diag.Render()}
	}
	l.diag.EmitCode(diag.LevelWarning, diag.CodeRedefinition, msg+"; the last definition wins", span)
	if err := l.diag.Render(); err != nil {
		return err
	}
	return nil
}

// funcState is the mutable lowering context of one function.
type funcState struct {
	l       *Lowerer
	ctx     context.Context
	fnName  string
	scope   *Scope
	blocks  [][]ir.Binding
	imports map[string]*ir.Function

	run     *lowerRun
}

// lowerRun is shared by the functions lowered in one call. first holds the
// error of the first failure; guarded by Lowerer.failMu.
type lowerRun struct {
	first error
}

func (r *lowerRun) firstError(mu *sync.Mutex) error {
	mu.Lock()
	defer mu.Unlock()
	return r.first
}

func (l *Lowerer) lower(ctx context.Context, fn *ast.Function, run *lowerRun) (lowered, error) {
	fs := &funcState{
		l:       l,
		ctx:     ctx,
		run:     run,
		fnName:  fn.Name,
		scope:   NewScope(l.ids),
		imports: make(map[string]*ir.Function),
	}
	l.logger.Debug("lowering function", "function", fn.Name, "params", len(fn.Params))

	out, err := fs.function(fn)
	if err != nil {
		return lowered{}, err
	}
	return lowered{fn: out, imports: fs.imports}, nil
}

func (fs *funcState) span(s ast.Span) ir.Span {
	return fs.l.sources.Translate(s)
}

// fail emits an error diagnostic, renders it and returns the abort. Only the
// first failure of a run is emitted; later ones, from siblings lowered
// concurrently, return ErrAborted without touching the diagnostics.
func (fs *funcState) fail(code diag.Code, span ast.Span, format string, args ...any) error {
	if err := fs.ctx.Err(); err != nil {
		return err
	}
	msg := fmt.Sprintf(format, args...)
	irSpan := fs.span(span)

	fs.l.failMu.Lock()
	defer fs.l.failMu.Unlock()
	if fs.run.first != nil {
		return diag.ErrAborted
	}
	fs.l.diag.EmitCode(diag.LevelError, code, msg, irSpan)
	fs.run.first = &CompileError{Code: code, Message: msg, Span: irSpan, Err: fs.l.diag.Render()}
	return fs.run.first
}

func (fs *funcState) function(fn *ast.Function) (*ir.Function, error) {
	params := make([]*ir.Var, 0, len(fn.Params))
	for _, p := range fn.Params {
		ty, err := fs.lowerType(p.Type)
		if err != nil {
			return nil, err
		}
		params = append(params, fs.scope.Declare(p.Name, ty, fs.span(p.Span)))
	}

	if fn.Body == nil {
		return nil, fs.fail(diag.CodeUnsupportedConstruct, fn.Span, "function `%s` has no body", fn.Name)
	}
	body, err := fs.lowerBlock(fn.Body)
	if err != nil {
		return nil, err
	}

	return &ir.Function{
		Name:   fn.Name,
		Params: params,
		Body:   body,
		Span:   fs.span(fn.Span),
	}, nil
}
