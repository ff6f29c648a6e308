package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/nexus-term/nexus/internal/backend"
	"github.com/nexus-term/nexus/internal/config"
	"github.com/nexus-term/nexus/internal/server"
)

// serve runs the session daemon in the foreground: bind the socket,
// accept connections, and shut down gracefully on SIGINT/SIGTERM
// (§4.4, §5). It auto-spawns as `nexus serve <session>` from attach()
// when no server is listening yet.
func serve(session, debugAddr string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("serve: load config: %w", err)
	}
	if err := cfg.EnsureDataDir(); err != nil {
		return fmt.Errorf("serve: data dir: %w", err)
	}

	if cfg.Server.SocketDir != "" {
		os.Setenv("XDG_RUNTIME_DIR", cfg.Server.SocketDir)
	}
	if cfg.Client.Shell != "" {
		os.Setenv("SHELL", cfg.Client.Shell)
	}
	sockPath, err := server.SocketPath(session)
	if err != nil {
		return fmt.Errorf("serve: socket path: %w", err)
	}

	be, err := resolveBackend(cfg)
	if err != nil {
		return err
	}

	cwd, _ := os.Getwd()
	srv := server.New(server.Config{
		SocketPath: sockPath,
		Backend:    be,
		DefaultCwd: cwd,
		DebugAddr:  debugAddr,
	})

	if err := srv.Listen(); err != nil {
		if errors.Is(err, server.ErrAlreadyRunning) {
			log.Printf("serve: session %q already has a live server, exiting", session)
			return nil
		}
		return fmt.Errorf("serve: listen: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Printf("serve: shutting down")
		cancel()
	}()

	if err := srv.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("serve: %w", err)
	}
	return nil
}

func resolveBackend(cfg *config.Config) (backend.Backend, error) {
	switch cfg.Server.Backend {
	case "", "local":
		cwd, _ := os.Getwd()
		return backend.NewLocalBackend(cwd), nil
	case "docker":
		if cfg.Server.DockerContainer == "" {
			return nil, fmt.Errorf("serve: docker backend requires docker_container to be set")
		}
		be, err := backend.NewDockerBackend(cfg.Server.DockerContainer)
		if err != nil {
			return nil, err
		}
		if err := be.EnsureRunning(context.Background()); err != nil {
			return nil, err
		}
		return be, nil
	default:
		return nil, fmt.Errorf("serve: unknown backend %q", cfg.Server.Backend)
	}
}
