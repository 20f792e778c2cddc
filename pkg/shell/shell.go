// Package shell runs external commands on behalf of the drivers.
package shell

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"go.uber.org/zap"
)

// Command describes a single subprocess invocation.
type Command struct {
	Name string
	Args []string
	// Dir is the working directory. Empty means the runner's directory.
	Dir string
	// Drop, when set, hides stdout lines for which it returns true.
	Drop func(line string) bool
}

func (c Command) String() string {
	return strings.Join(append([]string{c.Name}, c.Args...), " ")
}

// Runner executes commands, streaming their output to Stdout and Stderr.
type Runner struct {
	Dir    string
	Stdout io.Writer
	Stderr io.Writer
	Log    *zap.Logger
}

// NewRunner returns a Runner rooted at dir writing to the process streams.
func NewRunner(dir string, log *zap.Logger) *Runner {
	if log == nil {
		log = zap.NewNop()
	}
	return &Runner{Dir: dir, Stdout: os.Stdout, Stderr: os.Stderr, Log: log}
}

func (r *Runner) command(ctx context.Context, c Command) *exec.Cmd {
	cmd := exec.CommandContext(ctx, c.Name, c.Args...)
	cmd.Dir = r.Dir
	if c.Dir != "" {
		cmd.Dir = c.Dir
	}
	r.Log.Debug("exec", zap.String("cmd", c.String()), zap.String("dir", cmd.Dir))
	return cmd
}

// Run executes c and returns an error if it could not start or exited non-zero.
func (r *Runner) Run(ctx context.Context, c Command) error {
	cmd := r.command(ctx, c)
	cmd.Stderr = r.Stderr

	if c.Drop == nil {
		cmd.Stdout = r.Stdout
		if err := cmd.Run(); err != nil {
			return fmt.Errorf("running %s: %w", c.Name, err)
		}
		return nil
	}

	pipe, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("piping %s: %w", c.Name, err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("starting %s: %w", c.Name, err)
	}
	scanner := bufio.NewScanner(pipe)
	for scanner.Scan() {
		line := scanner.Text()
		if !c.Drop(line) {
			fmt.Fprintln(r.Stdout, line)
		}
	}
	if err := cmd.Wait(); err != nil {
		return fmt.Errorf("running %s: %w", c.Name, err)
	}
	return nil
}

// Output executes c and returns its stdout. Stderr is included in the error.
func (r *Runner) Output(ctx context.Context, c Command) (string, error) {
	cmd := r.command(ctx, c)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	out, err := cmd.Output()
	if err != nil {
		return string(out), fmt.Errorf("running %s: %w (output: %s)", c.String(), err, strings.TrimSpace(stderr.String()))
	}
	return string(out), nil
}

// Succeeds runs c quietly and reports whether it exited zero. Only a failure
// to start the command is returned as an error.
func (r *Runner) Succeeds(ctx context.Context, c Command) (bool, error) {
	cmd := r.command(ctx, c)
	err := cmd.Run()
	if err == nil {
		return true, nil
	}
	if ExitCode(err) > 0 {
		return false, nil
	}
	return false, fmt.Errorf("running %s: %w", c.Name, err)
}

// RunCommand runs a shell command line through sh -c.
func (r *Runner) RunCommand(ctx context.Context, command string) error {
	return r.Run(ctx, Command{Name: "sh", Args: []string{"-c", command}})
}

// ExitCode returns the exit status carried by err, or -1 if err does not come
// from an exited process.
func ExitCode(err error) int {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return -1
}
