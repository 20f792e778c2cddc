package driver

import (
	"context"
)

// DiffSource produces raw `--name-status` diff text. Callers parse it with
// changeset.Parse.
type DiffSource interface {
	// Diff compares two revisions, optionally restricted to paths.
	Diff(ctx context.Context, oldRev, newRev string, paths ...string) (string, error)

	// DiffWorkTree compares rev against the working tree, optionally
	// restricted to paths.
	DiffWorkTree(ctx context.Context, rev string, paths ...string) (string, error)
}

// WorkTree mutates files in the working tree and index.
type WorkTree interface {
	// CheckoutFiles writes the content of paths at rev into the working
	// tree and index.
	CheckoutFiles(ctx context.Context, rev string, paths ...string) error

	// RemoveFiles deletes paths from the working tree and index.
	RemoveFiles(ctx context.Context, paths ...string) error
}

// VCS is the full set of version-control primitives the orchestrator consumes.
type VCS interface {
	DiffSource
	WorkTree
	SubmoduleSyncer
}

// SubmoduleSyncer brings submodules in line with the checked-out revision.
type SubmoduleSyncer interface {
	SyncSubmodules(ctx context.Context) error
}

// MergeTool runs a three-way text merge and writes the result into current.
// Leftover conflicts are not an error; the result then contains markers.
type MergeTool interface {
	MergeFile(ctx context.Context, current, base, other string, markerSize int) error
}

// Task identifies a task-runner action.
type Task string

const (
	TaskCreate      Task = "create"
	TaskMigrateDown Task = "migrate-down"
	TaskMigrateAll  Task = "migrate-up-all"
)

// TaskRunner applies database tasks. Args are KEY=value pairs.
type TaskRunner interface {
	RunTask(ctx context.Context, task Task, args ...string) error
}

// CommandRunner runs a free-form shell command, such as the schema reload
// fallback.
type CommandRunner interface {
	RunCommand(ctx context.Context, command string) error
}

// DependencyInstaller installs the dependencies declared by a manifest.
type DependencyInstaller interface {
	// Name identifies the installer in logs.
	Name() string

	// Satisfied is a cheap probe reporting whether installing is unnecessary.
	Satisfied(ctx context.Context) (bool, error)

	// Install installs the dependencies.
	Install(ctx context.Context) error
}

// PackageInstaller installs front-end packages for the lock file at lockFile.
type PackageInstaller interface {
	InstallPackages(ctx context.Context, lockFile string) error
}

// ContainerRebuilder rebuilds the development containers.
type ContainerRebuilder interface {
	Rebuild(ctx context.Context) error
}
