// Package drivertest provides a recording fake of the driver interfaces.
package drivertest

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/emenda-labs/hookup/core/driver"
)

var (
	_ driver.VCS                = (*Fake)(nil)
	_ driver.MergeTool          = (*Fake)(nil)
	_ driver.TaskRunner         = (*Fake)(nil)
	_ driver.CommandRunner      = (*Fake)(nil)
	_ driver.PackageInstaller   = (*Fake)(nil)
	_ driver.ContainerRebuilder = (*Fake)(nil)
)

// Fake records every call as a single line in Calls, in invocation order.
// Lines look like `task migrate-down VERSION=003_x.rb` or
// `checkout OLD -- db/migrate/003_x.rb`.
type Fake struct {
	mu    sync.Mutex
	Calls []string

	// Diffs maps "old..new" (or "rev..worktree") to raw diff text.
	Diffs map[string]string
	// Fail maps a call line prefix to the error returned for it.
	Fail map[string]error
	// Panic holds call line prefixes that panic instead of returning.
	Panic map[string]bool
	// OnMerge, when set, runs as the body of MergeFile.
	OnMerge func(current, base, other string, markerSize int) error
}

// New returns an empty Fake.
func New() *Fake {
	return &Fake{
		Diffs: make(map[string]string),
		Fail:  make(map[string]error),
		Panic: make(map[string]bool),
	}
}

func (f *Fake) record(line string) error {
	f.mu.Lock()
	f.Calls = append(f.Calls, line)
	f.mu.Unlock()

	for prefix := range f.Panic {
		if strings.HasPrefix(line, prefix) {
			panic(fmt.Sprintf("drivertest: %s", line))
		}
	}
	for prefix, err := range f.Fail {
		if strings.HasPrefix(line, prefix) {
			return err
		}
	}
	return nil
}

// CallsWithPrefix returns the recorded calls starting with prefix.
func (f *Fake) CallsWithPrefix(prefix string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []string
	for _, c := range f.Calls {
		if strings.HasPrefix(c, prefix) {
			out = append(out, c)
		}
	}
	return out
}

func join(head string, paths []string) string {
	if len(paths) == 0 {
		return head
	}
	return head + " -- " + strings.Join(paths, " ")
}

func (f *Fake) Diff(ctx context.Context, oldRev, newRev string, paths ...string) (string, error) {
	if err := f.record(join("diff "+oldRev+" "+newRev, paths)); err != nil {
		return "", err
	}
	return f.Diffs[oldRev+".."+newRev], nil
}

func (f *Fake) DiffWorkTree(ctx context.Context, rev string, paths ...string) (string, error) {
	if err := f.record(join("diff-worktree "+rev, paths)); err != nil {
		return "", err
	}
	return f.Diffs[rev+"..worktree"], nil
}

func (f *Fake) CheckoutFiles(ctx context.Context, rev string, paths ...string) error {
	return f.record(join("checkout "+rev, paths))
}

func (f *Fake) RemoveFiles(ctx context.Context, paths ...string) error {
	return f.record(join("rm", paths))
}

func (f *Fake) SyncSubmodules(ctx context.Context) error {
	return f.record("submodules")
}

func (f *Fake) MergeFile(ctx context.Context, current, base, other string, markerSize int) error {
	if err := f.record(fmt.Sprintf("merge-file %d %s %s %s", markerSize, current, base, other)); err != nil {
		return err
	}
	if f.OnMerge != nil {
		return f.OnMerge(current, base, other, markerSize)
	}
	return nil
}

func (f *Fake) RunTask(ctx context.Context, task driver.Task, args ...string) error {
	line := "task " + string(task)
	if len(args) > 0 {
		line += " " + strings.Join(args, " ")
	}
	return f.record(line)
}

func (f *Fake) RunCommand(ctx context.Context, command string) error {
	return f.record("command " + command)
}

func (f *Fake) InstallPackages(ctx context.Context, lockFile string) error {
	return f.record("packages " + lockFile)
}

func (f *Fake) Rebuild(ctx context.Context) error {
	return f.record("rebuild")
}

// Installer is a fake driver.DependencyInstaller sharing its Fake's call log.
type Installer struct {
	Fake         *Fake
	InstallName  string
	IsSatisfied  bool
	SatisfiedErr error
}

var _ driver.DependencyInstaller = (*Installer)(nil)

func (i *Installer) Name() string { return i.InstallName }

func (i *Installer) Satisfied(ctx context.Context) (bool, error) {
	if err := i.Fake.record("probe " + i.InstallName); err != nil {
		return false, err
	}
	return i.IsSatisfied, i.SatisfiedErr
}

func (i *Installer) Install(ctx context.Context) error {
	return i.Fake.record("install " + i.InstallName)
}
