package cli

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/emenda-labs/hookup/core/mergedriver"
)

// Exit statuses returned by the hookup binary.
const (
	ExitOK         = 0
	ExitError      = 1
	ExitUnresolved = 2
)

// NewRootCmd creates the top-level hookup command. Run without arguments it
// installs the hook, like `hookup install`.
func NewRootCmd(version string, install InstallRunFunc) *cobra.Command {
	var opts InstallOptions

	cmd := &cobra.Command{
		Use:   "hookup",
		Short: "Keep a Rails checkout in sync across branch switches",
		Long: "Hookup runs from git's post-checkout hook. It installs dependencies, " +
			"rolls back migrations that only exist on the previous branch, runs " +
			"new ones, and settles schema version conflicts during merges.",
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return install(cmd.Context(), opts)
			}
			if _, err := ParseCommand(args[0]); err != nil {
				return err
			}
			return errors.New("unexpected arguments")
		},
	}

	cmd.Version = version
	addInstallFlags(cmd, &opts)

	return cmd
}

// ExitCode maps an error returned by the command tree to a process exit
// status.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	var failure *mergedriver.Failure
	if errors.As(err, &failure) {
		return ExitUnresolved
	}
	return ExitError
}
