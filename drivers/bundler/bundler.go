// Package bundler installs Ruby gems for the checked-out revision.
package bundler

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/emenda-labs/hookup/core/driver"
	"github.com/emenda-labs/hookup/pkg/envscope"
	"github.com/emenda-labs/hookup/pkg/shell"
)

const (
	// Marker is the manifest whose presence enables the installer.
	Marker = "Gemfile"

	name = "bundler"
)

// ManifestPattern matches changed paths that call for a reinstall.
var ManifestPattern = regexp.MustCompile(`^Gemfile|\.gemspec$`)

var _ driver.DependencyInstaller = (*Installer)(nil)

// Installer runs bundler in the working dir.
type Installer struct {
	workingDir string
	shell      *shell.Runner
}

// New creates an Installer.
func New(workingDir string, sh *shell.Runner) *Installer {
	return &Installer{workingDir: workingDir, shell: sh}
}

// Name implements driver.DependencyInstaller.
func (i *Installer) Name() string { return name }

// Satisfied reports whether `bundle check` passes.
func (i *Installer) Satisfied(ctx context.Context) (bool, error) {
	return i.shell.Succeeds(ctx, shell.Command{Name: "bundle", Args: []string{"check"}, Dir: i.workingDir})
}

// Install runs `bundle install` with GIT_DIR unset, so that gems fetched
// from git do not operate on the enclosing repository.
func (i *Installer) Install(ctx context.Context) error {
	restore, err := envscope.Unset("GIT_DIR")
	if err != nil {
		return err
	}
	defer restore()

	cmd := shell.Command{Name: "bundle", Args: []string{"install"}, Dir: i.workingDir, Drop: Quiet}
	if err := i.shell.Run(ctx, cmd); err != nil {
		return fmt.Errorf("bundle install: %w", err)
	}
	return nil
}

// Quiet reports whether a bundler output line is routine noise.
func Quiet(line string) bool {
	return strings.HasPrefix(line, "Using ") || strings.Contains(line, " is complete")
}
