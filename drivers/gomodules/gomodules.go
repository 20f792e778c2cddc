// Package gomodules downloads Go module dependencies for the checked-out
// revision.
package gomodules

import (
	"context"
	"fmt"
	"regexp"

	"go.uber.org/zap"

	"github.com/emenda-labs/hookup/core/driver"
	"github.com/emenda-labs/hookup/pkg/gomod"
	"github.com/emenda-labs/hookup/pkg/shell"
)

// Marker is the manifest whose presence enables the installer.
const Marker = "go.mod"

// ManifestPattern matches changed paths that call for a download.
var ManifestPattern = regexp.MustCompile(`(^|/)go\.(mod|sum)$`)

var _ driver.DependencyInstaller = (*Installer)(nil)

// Installer runs `go mod download` when the module cache lacks a requirement.
type Installer struct {
	workingDir string
	modCache   string
	shell      *shell.Runner
	log        *zap.Logger
}

// New creates an Installer. An empty modCache means the go command's default.
func New(workingDir, modCache string, sh *shell.Runner, log *zap.Logger) *Installer {
	if modCache == "" {
		modCache = gomod.DefaultModCache()
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Installer{workingDir: workingDir, modCache: modCache, shell: sh, log: log}
}

func (i *Installer) Name() string { return "go modules" }

// Satisfied reports whether every requirement is already extracted in the
// module cache.
func (i *Installer) Satisfied(ctx context.Context) (bool, error) {
	missing, err := gomod.MissingFromCache(i.workingDir, i.modCache)
	if err != nil {
		return false, err
	}
	if len(missing) > 0 {
		i.log.Debug("modules missing from cache", zap.Int("count", len(missing)), zap.String("first", missing[0].String()))
	}
	return len(missing) == 0, nil
}

func (i *Installer) Install(ctx context.Context) error {
	cmd := shell.Command{Name: "go", Args: []string{"mod", "download"}, Dir: i.workingDir}
	if err := i.shell.Run(ctx, cmd); err != nil {
		return fmt.Errorf("go mod download: %w", err)
	}
	return nil
}
