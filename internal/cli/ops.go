package cli

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/roach88/tessera/internal/opreg"
)

// OpJSON is the JSON form of a registered operator.
type OpJSON struct {
	Name    string            `json:"name"`
	Arity   int               `json:"arity"` // -1 for variadic operators
	Pattern string            `json:"pattern"`
	Fusable bool              `json:"fusable"`
	Level   int               `json:"level"`
	Attrs   map[string]string `json:"attrs,omitempty"`
	Doc     string            `json:"doc,omitempty"`
}

// OpsResult is the payload of the ops command.
type OpsResult struct {
	Manifest string   `json:"manifest"`
	Ops      []OpJSON `json:"ops"`
}

// NewOpsCommand creates the ops command.
func NewOpsCommand(rootOpts *RootOptions) *cobra.Command {
	var manifest string

	cmd := &cobra.Command{
		Use:   "ops",
		Short: "List the operator registry",
		Long: `List every operator in the registry with its arity and fusion pattern.

Without --ops the embedded default manifest is listed.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOps(rootOpts, manifest, cmd)
		},
	}

	cmd.Flags().StringVar(&manifest, "ops", "", "operator manifest (.cue file or directory)")

	return cmd
}

func runOps(opts *RootOptions, manifest string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd.OutOrStdout(), cmd.ErrOrStderr())

	reg, err := LoadRegistry(manifest)
	if err != nil {
		code, msg := parseError(err)
		return formatter.fail(ExitCommandError, code, msg, nil)
	}

	result := OpsResult{Manifest: manifest, Ops: make([]OpJSON, 0, reg.Len())}
	if result.Manifest == "" {
		result.Manifest = "default"
	}
	for _, name := range reg.Names() {
		op, _ := reg.Lookup(name)
		result.Ops = append(result.Ops, opJSON(op))
	}

	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	tw := tabwriter.NewWriter(formatter.Writer, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tARITY\tPATTERN\tATTRS\tDOC")
	for _, op := range result.Ops {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", op.Name, arityString(op.Arity), op.Pattern, attrsString(op.Attrs), op.Doc)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(formatter.Writer, "\n%d operator(s) from %s\n", len(result.Ops), result.Manifest)
	return nil
}

func opJSON(op *opreg.Op) OpJSON {
	return OpJSON{
		Name:    op.Name,
		Arity:   op.Arity,
		Pattern: op.Pattern.String(),
		Fusable: op.Pattern.Fusable(),
		Level:   op.Level,
		Attrs:   op.Attrs,
		Doc:     op.Doc,
	}
}

func arityString(arity int) string {
	if arity == opreg.Variadic {
		return "*"
	}
	return strconv.Itoa(arity)
}

func attrsString(attrs map[string]string) string {
	if len(attrs) == 0 {
		return "-"
	}
	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + ":" + attrs[k]
	}
	return strings.Join(parts, ",")
}
