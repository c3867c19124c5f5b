package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/tessera/internal/ir"
	"github.com/roach88/tessera/internal/store"
)

// ShowOptions holds flags for the show command.
type ShowOptions struct {
	*RootOptions
	DB string
}

// NewShowCommand creates the show command.
func NewShowCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ShowOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "show [module]",
		Short: "Print modules from the module store",
		Long: `Print a stored module's IR, or list every stored module when no
module name is given.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return runList(opts, cmd)
			}
			return runShow(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.DB, "db", "", "module store (SQLite)")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func openStore(formatter *OutputFormatter, path string) (*store.Store, error) {
	st, err := store.Open(path)
	if err != nil {
		return nil, formatter.fail(ExitCommandError, ErrCodeStore, err.Error(), nil)
	}
	return st, nil
}

func runList(opts *ShowOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())
	st, err := openStore(formatter, opts.DB)
	if err != nil {
		return err
	}
	defer st.Close()

	mods, err := st.ListModules(cmd.Context())
	if err != nil {
		return formatter.fail(ExitCommandError, ErrCodeStore, err.Error(), nil)
	}

	if formatter.Format == "json" {
		return formatter.Success(mods)
	}
	if len(mods) == 0 {
		fmt.Fprintln(formatter.Writer, "No modules stored")
		return nil
	}
	for _, m := range mods {
		fmt.Fprintf(formatter.Writer, "%4d  %-24s %2d function(s)  %s\n", m.Seq, m.Name, m.Functions, shortHash(m.Hash))
	}
	return nil
}

func runShow(opts *ShowOptions, name string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())
	st, err := openStore(formatter, opts.DB)
	if err != nil {
		return err
	}
	defer st.Close()

	mod, err := st.ReadModule(cmd.Context(), name)
	if errors.Is(err, store.ErrModuleNotFound) {
		return formatter.fail(ExitCommandError, ErrCodeNotFound, fmt.Sprintf("module not found: %s", name), nil)
	}
	if err != nil {
		return formatter.fail(ExitCommandError, ErrCodeStore, err.Error(), nil)
	}

	summary, err := summarize(mod)
	if err != nil {
		return formatter.fail(ExitCommandError, ErrCodeGeneric, err.Error(), nil)
	}
	if formatter.Format == "json" {
		return formatter.Success(summary)
	}

	fmt.Fprintf(formatter.Writer, "module %s (%s)\n\n", mod.Name, shortHash(summary.Hash))
	for _, fn := range mod.Functions() {
		if err := ir.Fprint(formatter.Writer, fn); err != nil {
			return err
		}
		fmt.Fprintln(formatter.Writer)
	}
	return nil
}

func shortHash(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return h
}
