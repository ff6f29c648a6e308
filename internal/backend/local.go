package backend

import (
	"context"
	"fmt"
	"os"
	"os/exec"
)

// LocalBackend runs channel commands directly on the host; it is the
// default backend.
type LocalBackend struct {
	defaultCWD string
}

// NewLocalBackend returns a backend rooted at defaultCWD. If defaultCWD
// is empty, the server's own working directory is used.
func NewLocalBackend(defaultCWD string) *LocalBackend {
	return &LocalBackend{defaultCWD: defaultCWD}
}

func (b *LocalBackend) Name() string { return "local" }

func (b *LocalBackend) Command(ctx context.Context, argv []string, cwd string, env []string) (*exec.Cmd, error) {
	if len(argv) == 0 {
		return nil, fmt.Errorf("backend: empty argv")
	}

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)

	if cwd == "" {
		cwd = b.defaultCWD
	}
	if cwd != "" {
		if _, err := os.Stat(cwd); err != nil {
			return nil, fmt.Errorf("backend: cwd %q: %w", cwd, err)
		}
		cmd.Dir = cwd
	}

	cmd.Env = mergeEnv(os.Environ(), append([]string{"TERM=xterm-256color"}, env...))
	return cmd, nil
}

var _ Backend = (*LocalBackend)(nil)
