// Package npm installs front-end packages with the tool that owns the lock
// file.
package npm

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/emenda-labs/hookup/core/driver"
	"github.com/emenda-labs/hookup/pkg/shell"
)

var _ driver.PackageInstaller = (*Installer)(nil)

// Installer picks yarn, npm or pnpm from the lock file name.
type Installer struct {
	shell *shell.Runner
}

func New(sh *shell.Runner) *Installer {
	return &Installer{shell: sh}
}

// InstallPackages runs the package manager in the lock file's directory.
func (i *Installer) InstallPackages(ctx context.Context, lockFile string) error {
	cmd, err := Command(lockFile)
	if err != nil {
		return err
	}
	if err := i.shell.Run(ctx, cmd); err != nil {
		return fmt.Errorf("installing packages for %s: %w", lockFile, err)
	}
	return nil
}

// Command returns the install command for lockFile.
func Command(lockFile string) (shell.Command, error) {
	dir := filepath.Dir(lockFile)
	switch filepath.Base(lockFile) {
	case "yarn.lock":
		return shell.Command{Name: "yarn", Args: []string{"install"}, Dir: dir}, nil
	case "package-lock.json":
		return shell.Command{Name: "npm", Args: []string{"install"}, Dir: dir}, nil
	case "pnpm-lock.yaml":
		return shell.Command{Name: "pnpm", Args: []string{"install"}, Dir: dir}, nil
	}
	return shell.Command{}, fmt.Errorf("unsupported lock file %s", lockFile)
}
