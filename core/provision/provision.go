// Package provision brings dependencies and containers in line with a newly
// checked-out revision.
package provision

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"regexp"

	"github.com/spf13/afero"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/emenda-labs/hookup/core/changeset"
	"github.com/emenda-labs/hookup/core/driver"
)

var (
	// ComposeFiles mark a container-based workflow.
	ComposeFiles = []string{"docker-compose.yml", "docker-compose.yaml", "compose.yml", "compose.yaml"}

	// LockFiles mark a front-end package directory.
	LockFiles = []string{"yarn.lock", "package-lock.json", "pnpm-lock.yaml"}

	// skippedDirs are never searched for lock files.
	skippedDirs = map[string]bool{"node_modules": true, "vendor": true, ".git": true}
)

// Manager ties a dependency installer to the manifest that gates it.
type Manager struct {
	// Marker is the manifest file that must exist in the working dir.
	Marker string
	// Pattern matches changed paths that require a reinstall.
	Pattern   *regexp.Regexp
	Installer driver.DependencyInstaller
}

// Step names a provisioning step in a Report.
type Step string

const (
	StepSubmodules Step = "submodules"
	StepDependency Step = "dependencies"
	StepPackages   Step = "packages"
	StepContainers Step = "containers"
)

// Report describes which steps ran.
type Report struct {
	Ran      []Step `json:"ran"`
	Failures error  `json:"-"`
}

func (r *Report) fail(step Step, err error) {
	r.Failures = multierr.Append(r.Failures, fmt.Errorf("%s: %w", step, err))
}

// Provisioner runs the provisioning steps in order: submodules, dependency
// install, front-end install, container rebuild. A failing step is logged and
// recorded, and the next step still runs.
type Provisioner struct {
	fs         afero.Fs
	workingDir string
	submodules driver.SubmoduleSyncer
	managers   []Manager
	packages   driver.PackageInstaller
	containers driver.ContainerRebuilder
	log        *zap.Logger
}

// Options wires the collaborators of a Provisioner. Nil collaborators
// disable their step.
type Options struct {
	WorkingDir string
	Submodules driver.SubmoduleSyncer
	Managers   []Manager
	Packages   driver.PackageInstaller
	Containers driver.ContainerRebuilder
}

// New creates a Provisioner reading marker files from fs.
func New(fs afero.Fs, opts Options, log *zap.Logger) *Provisioner {
	if log == nil {
		log = zap.NewNop()
	}
	if opts.WorkingDir == "" {
		opts.WorkingDir = "."
	}
	return &Provisioner{
		fs:         fs,
		workingDir: opts.WorkingDir,
		submodules: opts.Submodules,
		managers:   opts.Managers,
		packages:   opts.Packages,
		containers: opts.Containers,
		log:        log.Named("provision"),
	}
}

// Provision runs every applicable step for changes.
func (p *Provisioner) Provision(ctx context.Context, changes changeset.ChangeSet) Report {
	var report Report
	containerized := p.containerized()

	if p.submodules != nil {
		report.Ran = append(report.Ran, StepSubmodules)
		if err := p.submodules.SyncSubmodules(ctx); err != nil {
			p.log.Warn("submodule sync failed", zap.Error(err))
			report.fail(StepSubmodules, err)
		}
	}

	if !containerized {
		for _, m := range p.managers {
			ran, err := p.installDependencies(ctx, m, changes)
			if ran {
				report.Ran = append(report.Ran, StepDependency)
			}
			if err != nil {
				p.log.Warn("dependency install failed", zap.String("installer", m.Installer.Name()), zap.Error(err))
				report.fail(StepDependency, err)
			}
		}

		if p.packages != nil {
			lockFiles, err := p.lockFiles()
			if err != nil {
				p.log.Warn("searching lock files failed", zap.Error(err))
				report.fail(StepPackages, err)
			}
			for _, lockFile := range lockFiles {
				report.Ran = append(report.Ran, StepPackages)
				p.log.Info("installing packages", zap.String("lockfile", lockFile))
				if err := p.packages.InstallPackages(ctx, lockFile); err != nil {
					p.log.Warn("package install failed", zap.String("lockfile", lockFile), zap.Error(err))
					report.fail(StepPackages, err)
				}
			}
		}
	}

	if containerized && p.containers != nil {
		report.Ran = append(report.Ran, StepContainers)
		p.log.Info("rebuilding containers")
		if err := p.containers.Rebuild(ctx); err != nil {
			p.log.Warn("container rebuild failed", zap.Error(err))
			report.fail(StepContainers, err)
		}
	}

	return report
}

// installDependencies reports whether the installer ran.
func (p *Provisioner) installDependencies(ctx context.Context, m Manager, changes changeset.ChangeSet) (bool, error) {
	if !p.exists(m.Marker) {
		return false, nil
	}
	if changes.Filter(m.Pattern).Empty() {
		return false, nil
	}

	ok, err := m.Installer.Satisfied(ctx)
	if err != nil {
		return false, fmt.Errorf("probing %s: %w", m.Installer.Name(), err)
	}
	if ok {
		p.log.Debug("dependencies satisfied", zap.String("installer", m.Installer.Name()))
		return false, nil
	}

	p.log.Info("installing dependencies", zap.String("installer", m.Installer.Name()))
	if err := m.Installer.Install(ctx); err != nil {
		return true, fmt.Errorf("installing with %s: %w", m.Installer.Name(), err)
	}
	return true, nil
}

func (p *Provisioner) containerized() bool {
	for _, name := range ComposeFiles {
		if p.exists(name) {
			return true
		}
	}
	return false
}

func (p *Provisioner) exists(name string) bool {
	ok, _ := afero.Exists(p.fs, filepath.Join(p.workingDir, name))
	return ok
}

// lockFiles returns one lock file per directory, in walk order. When a
// directory holds several, LockFiles order decides.
func (p *Provisioner) lockFiles() ([]string, error) {
	byDir := make(map[string]string)
	var dirs []string

	err := afero.Walk(p.fs, p.workingDir, func(path string, info fs.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			if path != p.workingDir && skippedDirs[info.Name()] {
				return filepath.SkipDir
			}
			return nil
		}

		dir := filepath.Dir(path)
		current, seen := byDir[dir]
		switch {
		case !isLockFile(info.Name()):
		case !seen:
			byDir[dir] = path
			dirs = append(dirs, dir)
		case lockRank(info.Name()) < lockRank(filepath.Base(current)):
			byDir[dir] = path
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking %s: %w", p.workingDir, err)
	}

	files := make([]string, len(dirs))
	for i, dir := range dirs {
		files[i] = byDir[dir]
	}
	return files, nil
}

func isLockFile(name string) bool {
	return lockRank(name) >= 0
}

func lockRank(name string) int {
	for i, lf := range LockFiles {
		if lf == name {
			return i
		}
	}
	return -1
}
