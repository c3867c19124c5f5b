package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/tessera/internal/compiler"
	"github.com/roach88/tessera/internal/diag"
	"github.com/roach88/tessera/internal/ir"
	"github.com/roach88/tessera/internal/source"
	"github.com/roach88/tessera/internal/store"
)

// LowerOptions holds flags for the lower and validate commands.
type LowerOptions struct {
	*RootOptions
	Output   string // output file path (lower only)
	DB       string // module store path
	Ops      string // operator manifest path
	CheckOps bool   // validate operator calls against the registry
	Strict   bool   // reject duplicate function names
	Parallel bool   // lower the functions of a module concurrently
}

// ModuleSummary describes one lowered module.
type ModuleSummary struct {
	Name      string         `json:"name"`
	Hash      string         `json:"hash"`
	Functions []string       `json:"functions"`
	IR        map[string]any `json:"ir,omitempty"`
	Seq       int64          `json:"seq,omitempty"` // set when written to --db
}

// LowerResult is the payload of a successful lower command.
type LowerResult struct {
	Modules     []ModuleSummary  `json:"modules"`
	Diagnostics []DiagnosticJSON `json:"diagnostics,omitempty"`
}

// NewLowerCommand creates the lower command.
func NewLowerCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &LowerOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "lower <ast.yaml>...",
		Short: "Lower AST documents to IR",
		Long: `Lower AST documents to the functional IR.

Documents are lowered in order. Each document sees the modules lowered
before it, and the modules stored in --db, as its definition scope. The
first error aborts the run and no IR is written.

Exit codes:
  0 - All documents lowered
  1 - Lowering aborted with an error diagnostic
  2 - Command error (missing files, malformed documents, etc.)`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true, // Don't print usage on errors - we handle our own error output
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLower(cmd.Context(), opts, args, cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "write canonical IR JSON to this file")
	addLowerFlags(cmd, opts)

	return cmd
}

func addLowerFlags(cmd *cobra.Command, opts *LowerOptions) {
	cmd.Flags().StringVar(&opts.DB, "db", "", "module store (SQLite) used as definition scope")
	cmd.Flags().StringVar(&opts.Ops, "ops", "", "operator manifest (.cue file or directory)")
	cmd.Flags().BoolVar(&opts.CheckOps, "check-ops", false, "reject calls to operators missing from the registry")
	cmd.Flags().BoolVar(&opts.Strict, "strict", false, "reject duplicate function names")
	cmd.Flags().BoolVar(&opts.Parallel, "parallel", false, "lower functions concurrently")
}

// session is one compilation unit: every document shares the source map and
// sees the modules lowered before it.
type session struct {
	sources   *source.Map
	collector *diag.Collector
	renderer  diag.Renderer
	modules   *compiler.ModuleScope
	scope     compiler.DefinitionScope
	ops       compiler.OpValidator
	policy    compiler.RedefinitionPolicy
	parallel  bool
	logger    *slog.Logger
}

// newSession opens the registry and store named by opts. The caller closes
// the returned store, which is nil without --db.
// With echo set, text-mode diagnostics are also rendered to stderr as they
// are emitted.
func newSession(opts *LowerOptions, formatter *OutputFormatter, echo bool) (*session, *store.Store, error) {
	s := &session{
		sources:   source.NewMap(),
		collector: &diag.Collector{},
		modules:   compiler.NewModuleScope(),
		parallel:  opts.Parallel,
		logger:    newLogger(opts.RootOptions, formatter.GetErrWriter()),
	}
	s.renderer = s.collector
	if echo && formatter.Format != "json" {
		s.renderer = diag.Tee{&diag.TextRenderer{W: formatter.GetErrWriter(), Sources: s.sources}, s.collector}
	}
	if opts.Strict {
		s.policy = compiler.RedefinitionReject
	}
	if opts.CheckOps || opts.Ops != "" {
		reg, err := LoadRegistry(opts.Ops)
		if err != nil {
			return nil, nil, err
		}
		if opts.CheckOps {
			s.ops = reg
		}
		formatter.VerboseLog("Loaded %d operator(s)", reg.Len())
	}

	chain := compiler.ChainScope{s.modules}
	var st *store.Store
	if opts.DB != "" {
		var err error
		st, err = store.Open(opts.DB)
		if err != nil {
			return nil, nil, &LoadError{Code: ErrCodeStore, Message: err.Error()}
		}
		chain = append(chain, st.Scope())
	}
	s.scope = chain
	return s, st, nil
}

// lower lowers one document with a fresh diagnostic context and, on success,
// makes its functions visible to later documents.
func (s *session) lower(ctx context.Context, path string) (*ir.Module, error) {
	doc, err := LoadDocument(path, s.sources)
	if err != nil {
		return nil, err
	}
	l := compiler.New(compiler.Config{
		Sources:      s.sources,
		Diag:         diag.NewContext(s.renderer),
		Scope:        s.scope,
		Ops:          s.ops,
		Logger:       s.logger,
		Redefinition: s.policy,
		Parallel:     s.parallel,
	})
	mod, err := l.LowerModule(ctx, doc.Module)
	if err != nil {
		return nil, err
	}
	s.modules.Add(mod)
	return mod, nil
}

func runLower(ctx context.Context, opts *LowerOptions, paths []string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	s, st, err := newSession(opts, formatter, true)
	if err != nil {
		code, msg := parseError(err)
		return formatter.fail(ExitCommandError, code, msg, nil)
	}
	if st != nil {
		defer st.Close()
	}

	var mods []*ir.Module
	for _, path := range paths {
		formatter.VerboseLog("Lowering %s", path)
		mod, err := s.lower(ctx, path)
		if err != nil {
			return lowerFailure(formatter, s, path, err)
		}
		mods = append(mods, mod)
	}

	result := LowerResult{Diagnostics: diagnosticsJSON(s.collector.Diagnostics(), s.sources)}
	for _, mod := range mods {
		summary, err := summarize(mod)
		if err != nil {
			return formatter.fail(ExitCommandError, ErrCodeGeneric, err.Error(), nil)
		}
		if st != nil {
			info, err := st.WriteModule(ctx, mod)
			if err != nil {
				return formatter.fail(ExitCommandError, ErrCodeStore, err.Error(), nil)
			}
			summary.Seq = info.Seq
		}
		result.Modules = append(result.Modules, summary)
	}

	if opts.Output != "" {
		if err := writeIRToFile(mods, opts.Output); err != nil {
			return formatter.fail(ExitCommandError, ErrCodeWriteFailed, fmt.Sprintf("writing output file: %v", err), nil)
		}
	}

	if formatter.Format == "json" {
		return formatter.Success(result)
	}
	return outputLowerText(formatter.Writer, mods, result, opts)
}

// lowerFailure reports why lowering stopped. An aborted lowering is a
// failure; anything else is a command error.
func lowerFailure(formatter *OutputFormatter, s *session, path string, err error) error {
	code, msg := parseError(err)
	var compileErr *compiler.CompileError
	if !errors.As(err, &compileErr) {
		return formatter.fail(ExitCommandError, code, msg, nil)
	}

	if formatter.Format == "json" {
		_ = formatter.Error(code, msg, diagnosticsJSON(s.collector.Diagnostics(), s.sources))
	} else {
		// Diagnostics were already rendered to stderr.
		fmt.Fprintf(formatter.Writer, "✗ Lowering failed: %s\n", path)
	}
	return WrapExitError(ExitFailure, fmt.Sprintf("lowering %s failed", path), err)
}

func summarize(mod *ir.Module) (ModuleSummary, error) {
	hash, err := ir.ModuleHash(mod)
	if err != nil {
		return ModuleSummary{}, err
	}
	enc, err := ir.EncodeModule(mod)
	if err != nil {
		return ModuleSummary{}, err
	}
	return ModuleSummary{Name: mod.Name, Hash: hash, Functions: mod.Names(), IR: enc}, nil
}

func outputLowerText(w io.Writer, mods []*ir.Module, result LowerResult, opts *LowerOptions) error {
	for i, mod := range mods {
		summary := result.Modules[i]
		fmt.Fprintf(w, "✓ Lowered module %s: %d function(s)\n", mod.Name, mod.Len())
		if summary.Seq != 0 {
			fmt.Fprintf(w, "  stored in %s (seq %d)\n", opts.DB, summary.Seq)
		}
		fmt.Fprintln(w)
		for _, fn := range mod.Functions() {
			if err := ir.Fprint(w, fn); err != nil {
				return err
			}
			fmt.Fprintln(w)
		}
	}
	if opts.Output != "" {
		fmt.Fprintf(w, "Wrote canonical IR to %s\n", opts.Output)
	}
	return nil
}

// writeIRToFile writes the modules as a canonical JSON array.
func writeIRToFile(mods []*ir.Module, filename string) error {
	list := make([]any, len(mods))
	for i, mod := range mods {
		enc, err := ir.EncodeModule(mod)
		if err != nil {
			return fmt.Errorf("encoding module %s: %w", mod.Name, err)
		}
		list[i] = enc
	}
	data, err := ir.MarshalCanonical(list)
	if err != nil {
		return fmt.Errorf("marshaling IR: %w", err)
	}
	if err := os.WriteFile(filename, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("writing file: %w", err)
	}
	return nil
}
