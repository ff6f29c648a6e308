package server

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// writeLock writes a "<pid>\n<nonce>\n" lock file next to the socket.
// The nonce lets a future server instance tell "this PID was recycled
// by an unrelated process" apart from "this is still my own listener"
// when inspecting a lock left behind by an unclean exit; the socket
// dial/rebind dance in Listen remains the authority on actual
// liveness, and Listen never reads this file: it is bookkeeping only.
func writeLock(path string) (nonce string, err error) {
	nonce = uuid.NewString()
	content := fmt.Sprintf("%d\n%s\n", os.Getpid(), nonce)
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		return "", fmt.Errorf("server: write lock: %w", err)
	}
	return nonce, nil
}

func readLock(path string) (pid int, nonce string, err error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, "", err
	}
	lines := strings.SplitN(string(data), "\n", 3)
	if len(lines) < 2 {
		return 0, "", fmt.Errorf("server: malformed lock file %s", path)
	}
	pid, err = strconv.Atoi(strings.TrimSpace(lines[0]))
	if err != nil {
		return 0, "", fmt.Errorf("server: malformed lock pid in %s: %w", path, err)
	}
	return pid, strings.TrimSpace(lines[1]), nil
}

func removeLock(path string) {
	_ = os.Remove(path)
}
