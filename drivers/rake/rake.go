// Package rake runs database tasks through the project's rake.
package rake

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/afero"

	"github.com/emenda-labs/hookup/core/driver"
	"github.com/emenda-labs/hookup/pkg/shell"
)

var _ driver.TaskRunner = (*Runner)(nil)

var taskNames = map[driver.Task]string{
	driver.TaskCreate:      "db:create",
	driver.TaskMigrateDown: "db:migrate:down",
	driver.TaskMigrateAll:  "db:migrate",
}

// Runner maps driver tasks onto rake tasks, run from the working dir.
type Runner struct {
	fs         afero.Fs
	workingDir string
	shell      *shell.Runner
}

// New creates a Runner. fs is consulted to pick the rake executable.
func New(fs afero.Fs, workingDir string, sh *shell.Runner) *Runner {
	return &Runner{fs: fs, workingDir: workingDir, shell: sh}
}

// RunTask runs the rake task for task with args appended.
func (r *Runner) RunTask(ctx context.Context, task driver.Task, args ...string) error {
	name, ok := taskNames[task]
	if !ok {
		return fmt.Errorf("unknown task %q", task)
	}

	cmd := r.Command(append([]string{name}, args...)...)
	if err := r.shell.Run(ctx, cmd); err != nil {
		return fmt.Errorf("rake %s: %w", name, err)
	}
	return nil
}

// Command picks bin/rake when it is executable, `bundle exec rake` when the
// project uses bundler, and plain rake otherwise.
func (r *Runner) Command(args ...string) shell.Command {
	binstub := filepath.Join(r.workingDir, "bin", "rake")
	if info, err := r.fs.Stat(binstub); err == nil && !info.IsDir() && info.Mode().Perm()&0o111 != 0 {
		return shell.Command{Name: filepath.Join("bin", "rake"), Args: args, Dir: r.workingDir}
	}
	if ok, _ := afero.Exists(r.fs, filepath.Join(r.workingDir, "Gemfile")); ok {
		return shell.Command{Name: "bundle", Args: append([]string{"exec", "rake"}, args...), Dir: r.workingDir}
	}
	return shell.Command{Name: "rake", Args: args, Dir: r.workingDir}
}
