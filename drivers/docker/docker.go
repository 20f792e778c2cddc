// Package docker rebuilds compose-managed development containers.
package docker

import (
	"context"
	"fmt"

	dockerclient "github.com/docker/docker/client"
	"go.uber.org/zap"

	"github.com/emenda-labs/hookup/core/driver"
	"github.com/emenda-labs/hookup/pkg/shell"
)

var _ driver.ContainerRebuilder = (*Rebuilder)(nil)

// PingFunc checks that the container daemon is reachable.
type PingFunc func(ctx context.Context) error

// Rebuilder runs `docker compose build` after checking the daemon is up.
type Rebuilder struct {
	workingDir string
	ping       PingFunc
	shell      *shell.Runner
	log        *zap.Logger
}

// New creates a Rebuilder that pings the daemon configured by the
// environment (DOCKER_HOST and friends).
func New(workingDir string, sh *shell.Runner, log *zap.Logger) *Rebuilder {
	return NewWithPing(workingDir, PingDaemon, sh, log)
}

// NewWithPing creates a Rebuilder using ping for the daemon check.
func NewWithPing(workingDir string, ping PingFunc, sh *shell.Runner, log *zap.Logger) *Rebuilder {
	if log == nil {
		log = zap.NewNop()
	}
	return &Rebuilder{workingDir: workingDir, ping: ping, shell: sh, log: log}
}

// PingDaemon connects to the docker daemon and pings it.
func PingDaemon(ctx context.Context) error {
	cli, err := dockerclient.NewClientWithOpts(dockerclient.FromEnv, dockerclient.WithAPIVersionNegotiation())
	if err != nil {
		return fmt.Errorf("creating docker client: %w", err)
	}
	defer cli.Close()

	if _, err := cli.Ping(ctx); err != nil {
		return fmt.Errorf("pinging docker daemon: %w", err)
	}
	return nil
}

// Rebuild builds the compose services in the working dir.
func (r *Rebuilder) Rebuild(ctx context.Context) error {
	if r.ping != nil {
		if err := r.ping(ctx); err != nil {
			return err
		}
	}
	r.log.Info("rebuilding containers", zap.String("dir", r.workingDir))
	if err := r.shell.Run(ctx, Command(r.workingDir)); err != nil {
		return fmt.Errorf("docker compose build: %w", err)
	}
	return nil
}

// Command returns the compose build invocation for dir.
func Command(dir string) shell.Command {
	return shell.Command{Name: "docker", Args: []string{"compose", "build"}, Dir: dir}
}
