package cli

import (
	"context"

	"github.com/spf13/cobra"
)

// InstallOptions holds the parsed flags for "install".
type InstallOptions struct {
	WorkingDir string
	Debug      bool
}

// InstallRunFunc is the handler for "install", injected by cmd/hookup.
type InstallRunFunc func(ctx context.Context, opts InstallOptions) error

// NewInstallCmd creates the "install" subcommand.
func NewInstallCmd(runFunc InstallRunFunc) *cobra.Command {
	var opts InstallOptions

	cmd := &cobra.Command{
		Use:   CommandInstall.String(),
		Short: "Install the post-checkout hook and schema merge driver",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFunc(cmd.Context(), opts)
		},
	}

	addInstallFlags(cmd, &opts)

	return cmd
}

func addInstallFlags(cmd *cobra.Command, opts *InstallOptions) {
	cmd.Flags().StringVarP(&opts.WorkingDir, "working-dir", "C", ".", "Run as if started in this directory")
	cmd.Flags().BoolVar(&opts.Debug, "debug", false, "Log every external command")
}
