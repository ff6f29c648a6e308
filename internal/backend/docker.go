package backend

import (
	"context"
	"fmt"
	"os/exec"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/client"
)

// DockerBackend runs channel commands inside an already-provisioned
// container via `docker exec`. The Docker client SDK is used only for
// the container's lifecycle (inspect/start); the PTY-attached child
// itself is the `docker` CLI binary, so every channel spawned against
// this backend still fits the same os/exec.Cmd contract that
// pty.Start expects.
type DockerBackend struct {
	cli         *client.Client
	containerID string
}

// NewDockerBackend connects to the local Docker daemon using the
// standard environment (DOCKER_HOST, DOCKER_CERT_PATH, ...) and targets
// containerID for subsequent channel spawns.
func NewDockerBackend(containerID string) (*DockerBackend, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("backend: docker client: %w", err)
	}
	return &DockerBackend{cli: cli, containerID: containerID}, nil
}

func (b *DockerBackend) Name() string { return "docker:" + b.containerID }

// EnsureRunning inspects the target container and starts it if it is
// present but stopped. Called once before the first channel is spawned
// against this backend; cheap enough to call again on every spawn.
func (b *DockerBackend) EnsureRunning(ctx context.Context) error {
	info, err := b.cli.ContainerInspect(ctx, b.containerID)
	if err != nil {
		return fmt.Errorf("backend: inspect %s: %w", b.containerID, err)
	}
	if info.State != nil && info.State.Running {
		return nil
	}
	if err := b.cli.ContainerStart(ctx, b.containerID, container.StartOptions{}); err != nil {
		return fmt.Errorf("backend: start %s: %w", b.containerID, err)
	}
	return nil
}

func (b *DockerBackend) Command(ctx context.Context, argv []string, cwd string, env []string) (*exec.Cmd, error) {
	if len(argv) == 0 {
		return nil, fmt.Errorf("backend: empty argv")
	}

	args := []string{"exec", "-i", "-t"}
	if cwd != "" {
		args = append(args, "-w", cwd)
	}
	for _, kv := range env {
		args = append(args, "-e", kv)
	}
	args = append(args, b.containerID)
	args = append(args, argv...)

	return exec.CommandContext(ctx, "docker", args...), nil
}

var _ Backend = (*DockerBackend)(nil)
