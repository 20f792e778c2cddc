package cli

import (
	"context"

	"github.com/spf13/cobra"
)

// PostCheckoutOptions holds the parsed flags and arguments for
// "post-checkout". Args are the hook arguments: old, new, flag.
type PostCheckoutOptions struct {
	Args       []string
	WorkingDir string
	SchemaDir  string
	LoadSchema string
	Debug      bool
}

// PostCheckoutRunFunc is the handler for "post-checkout", injected by
// cmd/hookup.
type PostCheckoutRunFunc func(ctx context.Context, opts PostCheckoutOptions) error

// NewPostCheckoutCmd creates the "post-checkout" subcommand.
func NewPostCheckoutCmd(runFunc PostCheckoutRunFunc) *cobra.Command {
	var opts PostCheckoutOptions

	cmd := &cobra.Command{
		Use:     CommandPostCheckout.String() + " [old] [new] [flag]",
		Aliases: CommandPostCheckout.Aliases(),
		Short:   "Run the checkout transition",
		Long: "Called by git's post-checkout hook with the previous HEAD, the new HEAD " +
			"and a flag that is 1 for branch checkouts and 0 for file checkouts.",
		Args: cobra.MaximumNArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.Args = args
			return runFunc(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVarP(&opts.WorkingDir, "working-dir", "C", "", "Run as if started in this directory")
	cmd.Flags().StringVar(&opts.SchemaDir, "schema-dir", "", "Directory holding the schema and migrate/ (default \"db\")")
	cmd.Flags().StringVar(&opts.LoadSchema, "load-schema", "", "Command run when the schema is out of sync after migrating")
	cmd.Flags().BoolVar(&opts.Debug, "debug", false, "Log every external command")

	return cmd
}
