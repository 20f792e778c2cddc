package cli

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/emenda-labs/hookup/core/mergedriver"
)

// ResolveOptions holds the arguments of "resolve-schema-conflict", in the
// order git passes them to a merge driver (%A %O %B %L).
type ResolveOptions struct {
	Current    string
	Base       string
	Other      string
	MarkerSize int
	Debug      bool
}

// ResolveRunFunc is the handler for "resolve-schema-conflict", injected by
// cmd/hookup.
type ResolveRunFunc func(ctx context.Context, opts ResolveOptions) error

// NewResolveCmd creates the "resolve-schema-conflict" subcommand.
func NewResolveCmd(runFunc ResolveRunFunc) *cobra.Command {
	var opts ResolveOptions

	cmd := &cobra.Command{
		Use:     CommandResolveSchemaConflict.String() + " <current> <base> <other> [marker-size]",
		Aliases: CommandResolveSchemaConflict.Aliases(),
		Short:   "Merge driver for schema snapshots",
		Args:    cobra.RangeArgs(3, 4),
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return parseResolveArgs(args, &opts)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFunc(cmd.Context(), opts)
		},
	}

	cmd.Flags().BoolVar(&opts.Debug, "debug", false, "Log every external command")

	return cmd
}

func parseResolveArgs(args []string, opts *ResolveOptions) error {
	opts.Current, opts.Base, opts.Other = args[0], args[1], args[2]
	opts.MarkerSize = mergedriver.DefaultMarkerSize
	if len(args) < 4 {
		return nil
	}

	size, err := strconv.Atoi(args[3])
	if err != nil || size <= 0 {
		return fmt.Errorf("%w: %q", mergedriver.ErrInvalidMarkerSize, args[3])
	}
	opts.MarkerSize = size
	return nil
}
