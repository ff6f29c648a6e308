package main

import (
	"errors"
	"fmt"
	"net"
	"os"
	"os/exec"
	"time"

	"github.com/nexus-term/nexus/internal/client"
	"github.com/nexus-term/nexus/internal/config"
	"github.com/nexus-term/nexus/internal/server"
	"github.com/nexus-term/nexus/internal/term"
)

// attach connects to session's server, auto-spawning it if nothing is
// listening yet (§4.4 auto-spawn contract), then runs the client event
// engine until quit, disconnect, Ctrl-D, or Ctrl-\.
func attach(session string) (int, error) {
	cfg, err := config.Load()
	if err != nil {
		return 1, fmt.Errorf("attach: load config: %w", err)
	}
	if cfg.Server.SocketDir != "" {
		os.Setenv("XDG_RUNTIME_DIR", cfg.Server.SocketDir)
	}

	sockPath, err := server.SocketPath(session)
	if err != nil {
		return 1, fmt.Errorf("attach: socket path: %w", err)
	}

	fd := term.Stdin()
	cols, rows := term.Size(fd)

	conn, err := client.Dial(sockPath, uint16(rows), uint16(cols))
	if err != nil {
		if err := spawnServer(session); err != nil {
			return 1, fmt.Errorf("attach: spawn server: %w", err)
		}
		conn, err = dialWithRetry(sockPath, uint16(rows), uint16(cols), 2*time.Second)
		if err != nil {
			return 1, fmt.Errorf("attach: connect: %w", err)
		}
	}

	raw, err := term.EnterRaw(fd)
	if err != nil {
		return 1, fmt.Errorf("attach: raw mode: %w", err)
	}
	defer raw.Restore()

	stop := make(chan struct{})
	keys := term.ReadKeys(os.Stdin, stop)
	resize := term.WatchResize(fd, stop)

	renderer := client.NewTextRenderer(os.Stdout)
	renderer.Rows = rows
	engine := client.NewEngine(conn, renderer, cfg.Client.ScrollbackLines)

	code := engine.Run(keys, resize)
	if code == 1 {
		// Connection lost (not a user-initiated quit): one reconnect
		// attempt (§7, §8 scenario 6).
		conn2, err := dialWithRetry(sockPath, uint16(rows), uint16(cols), 1*time.Second)
		if err == nil {
			engine.Reconnect(conn2)
			code = engine.Run(keys, resize)
		}
	}

	close(stop)
	return code, nil
}

func spawnServer(session string) error {
	exe, err := os.Executable()
	if err != nil {
		return err
	}
	cmd := exec.Command(exe, "serve", session)
	cmd.Stdin = nil
	cmd.Stdout = nil
	cmd.Stderr = nil
	return cmd.Start()
}

func dialWithRetry(path string, rows, cols uint16, timeout time.Duration) (*client.Conn, error) {
	deadline := time.Now().Add(timeout)
	var lastErr error
	for time.Now().Before(deadline) {
		conn, err := client.Dial(path, rows, cols)
		if err == nil {
			return conn, nil
		}
		lastErr = err
		if !errors.Is(err, net.ErrClosed) {
			time.Sleep(50 * time.Millisecond)
		}
	}
	return nil, lastErr
}
