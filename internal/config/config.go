// Package config implements Nexus's layered TOML configuration,
// following the teacher's load order: built-in defaults, then a
// system file, then a user file, then environment variables, then a
// data-dir runtime file written by the server itself.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/BurntSushi/toml"
)

type Config struct {
	Client ClientConfig `toml:"client"`
	Server ServerConfig `toml:"server"`
}

// ClientConfig holds the knobs C6/C7 read at startup.
type ClientConfig struct {
	// ScrollbackLines bounds each channel's ClientBuffer ring (§3).
	ScrollbackLines int `toml:"scrollback_lines"`
	// Shell is the default argv used for channels created without an
	// explicit command, overriding $SHELL when set.
	Shell string `toml:"shell"`
}

// ServerConfig holds knobs the session daemon reads at startup.
type ServerConfig struct {
	// SocketDir, when set, replaces $XDG_RUNTIME_DIR while the socket
	// path is resolved, so sockets are created under <socket_dir>/nexus
	// (ignored on macOS, where $TMPDIR/nexus is used).
	SocketDir string `toml:"socket_dir"`
	// DataDir holds the runtime config file and any future
	// persisted state; defaults under the user's XDG data dir.
	DataDir string `toml:"data_dir"`
	// IdleTimeoutSeconds is loaded (default 60) but not passed to the
	// server: idle shutdown always uses the fixed server.IdleTimeout.
	IdleTimeoutSeconds int `toml:"idle_timeout_seconds"`
	// Backend selects the channel backend: "local" or "docker".
	Backend string `toml:"backend"`
	// DockerContainer names the container channels run in when
	// Backend is "docker".
	DockerContainer string `toml:"docker_container"`
}

func DefaultConfig() *Config {
	dataDir := "/var/lib/nexus"
	if home, err := os.UserHomeDir(); err == nil {
		dataDir = filepath.Join(home, ".local", "share", "nexus")
	}

	return &Config{
		Client: ClientConfig{
			ScrollbackLines: 10000,
			Shell:           "",
		},
		Server: ServerConfig{
			DataDir:            dataDir,
			IdleTimeoutSeconds: 60,
			Backend:            "local",
		},
	}
}

// Load reads defaults, then /etc/nexus/config.toml, then
// ~/.config/nexus/config.toml, then environment overrides, then
// <data_dir>/config.toml, each layer overriding the last.
func Load() (*Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat("/etc/nexus/config.toml"); err == nil {
		if _, err := toml.DecodeFile("/etc/nexus/config.toml", cfg); err != nil {
			return nil, fmt.Errorf("config: system config: %w", err)
		}
	}

	if home, err := os.UserHomeDir(); err == nil {
		userConfig := filepath.Join(home, ".config", "nexus", "config.toml")
		if _, err := os.Stat(userConfig); err == nil {
			if _, err := toml.DecodeFile(userConfig, cfg); err != nil {
				return nil, fmt.Errorf("config: user config: %w", err)
			}
		}
	}

	applyEnv(cfg)

	dataDirConfig := filepath.Join(cfg.Server.DataDir, "config.toml")
	if _, err := os.Stat(dataDirConfig); err == nil {
		if _, err := toml.DecodeFile(dataDirConfig, cfg); err != nil {
			return nil, fmt.Errorf("config: data dir config: %w", err)
		}
	}

	return cfg, nil
}

func applyEnv(cfg *Config) {
	if shell := os.Getenv("NEXUS_SHELL"); shell != "" {
		cfg.Client.Shell = shell
	}
	if dir := os.Getenv("NEXUS_SOCKET_DIR"); dir != "" {
		cfg.Server.SocketDir = dir
	}
	if dir := os.Getenv("NEXUS_DATA_DIR"); dir != "" {
		cfg.Server.DataDir = dir
	}
	if backend := os.Getenv("NEXUS_BACKEND"); backend != "" {
		cfg.Server.Backend = backend
	}
	if container := os.Getenv("NEXUS_DOCKER_CONTAINER"); container != "" {
		cfg.Server.DockerContainer = container
	}
	if n := os.Getenv("NEXUS_SCROLLBACK_LINES"); n != "" {
		if v, err := strconv.Atoi(n); err == nil && v > 0 {
			cfg.Client.ScrollbackLines = v
		}
	}
}

// EnsureDataDir creates the server's data directory if missing.
func (c *Config) EnsureDataDir() error {
	return os.MkdirAll(c.Server.DataDir, 0755)
}
