// Package git implements the version-control collaborators on top of the git
// command line.
package git

import (
	"context"
	"fmt"
	"strconv"

	"github.com/emenda-labs/hookup/core/driver"
	"github.com/emenda-labs/hookup/pkg/shell"
)

var (
	_ driver.VCS       = (*Git)(nil)
	_ driver.MergeTool = (*Git)(nil)
)

// Git runs git subcommands in a working directory.
type Git struct {
	runner *shell.Runner
}

// New creates a Git using runner for every invocation.
func New(runner *shell.Runner) *Git {
	return &Git{runner: runner}
}

func withPaths(args []string, paths []string) []string {
	if len(paths) == 0 {
		return args
	}
	return append(append(args, "--"), paths...)
}

// Diff returns `git diff --relative --name-status old new [-- paths]`.
// Paths are relative to the runner's directory and changes outside it are
// left out, so they can be handed back to CheckoutFiles and RemoveFiles.
func (g *Git) Diff(ctx context.Context, oldRev, newRev string, paths ...string) (string, error) {
	args := withPaths([]string{"diff", "--relative", "--name-status", oldRev, newRev}, paths)
	out, err := g.runner.Output(ctx, shell.Command{Name: "git", Args: args})
	if err != nil {
		return "", fmt.Errorf("git diff failed: %w", err)
	}
	return out, nil
}

// DiffWorkTree returns `git diff --relative --name-status rev [-- paths]`.
func (g *Git) DiffWorkTree(ctx context.Context, rev string, paths ...string) (string, error) {
	args := withPaths([]string{"diff", "--relative", "--name-status", rev}, paths)
	out, err := g.runner.Output(ctx, shell.Command{Name: "git", Args: args})
	if err != nil {
		return "", fmt.Errorf("git diff failed: %w", err)
	}
	return out, nil
}

// CheckoutFiles runs `git checkout rev -- paths`.
func (g *Git) CheckoutFiles(ctx context.Context, rev string, paths ...string) error {
	args := withPaths([]string{"checkout", rev}, paths)
	if err := g.runner.Run(ctx, shell.Command{Name: "git", Args: args}); err != nil {
		return fmt.Errorf("git checkout failed: %w", err)
	}
	return nil
}

// RemoveFiles runs `git rm --force --quiet -- paths`.
func (g *Git) RemoveFiles(ctx context.Context, paths ...string) error {
	args := withPaths([]string{"rm", "--force", "--quiet"}, paths)
	if err := g.runner.Run(ctx, shell.Command{Name: "git", Args: args}); err != nil {
		return fmt.Errorf("git rm failed: %w", err)
	}
	return nil
}

// SyncSubmodules runs `git submodule update --init --recursive`.
func (g *Git) SyncSubmodules(ctx context.Context) error {
	args := []string{"submodule", "update", "--init", "--recursive"}
	if err := g.runner.Run(ctx, shell.Command{Name: "git", Args: args}); err != nil {
		return fmt.Errorf("git submodule update failed: %w", err)
	}
	return nil
}

// MergeFile runs `git merge-file`, which exits with the number of conflicts
// (capped at 127). Conflicts are left in current and are not an error.
func (g *Git) MergeFile(ctx context.Context, current, base, other string, markerSize int) error {
	args := []string{"merge-file", "--marker-size=" + strconv.Itoa(markerSize), current, base, other}
	err := g.runner.Run(ctx, shell.Command{Name: "git", Args: args})
	if code := shell.ExitCode(err); err == nil || (code > 0 && code < 128) {
		return nil
	}
	return fmt.Errorf("git merge-file failed: %w", err)
}
