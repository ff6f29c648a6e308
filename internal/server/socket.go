package server

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
)

// SocketDir resolves the directory Nexus sockets live in, following
// §6: on Linux, $XDG_RUNTIME_DIR/nexus or /tmp/nexus-$UID; on macOS,
// $TMPDIR/nexus. NEXUS_SOCKET, if set, overrides the whole path (and
// SocketPath returns it verbatim rather than joining a session name).
func SocketDir() (string, error) {
	if runtime.GOOS == "darwin" {
		tmp := os.Getenv("TMPDIR")
		if tmp == "" {
			tmp = os.TempDir()
		}
		return filepath.Join(tmp, "nexus"), nil
	}

	if rt := os.Getenv("XDG_RUNTIME_DIR"); rt != "" {
		return filepath.Join(rt, "nexus"), nil
	}
	return fmt.Sprintf("/tmp/nexus-%d", os.Getuid()), nil
}

// SocketPath returns the socket path for a named session, honoring
// NEXUS_SOCKET as a full-path override.
func SocketPath(session string) (string, error) {
	if override := os.Getenv("NEXUS_SOCKET"); override != "" {
		return override, nil
	}
	if session == "" {
		session = "default"
	}
	dir, err := SocketDir()
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		return "", fmt.Errorf("server: create socket dir %s: %w", dir, err)
	}
	return filepath.Join(dir, session+".sock"), nil
}

// LockPath returns the PID/liveness lock file path that sits alongside
// a session's socket (§4.4, §A.2).
func LockPath(socketPath string) string {
	return socketPath + ".lock"
}
