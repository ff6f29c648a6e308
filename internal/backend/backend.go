// Package backend abstracts over where a channel's process actually runs.
// Every channel is spawned through a Backend so the PTY and bus machinery
// in package channel never has to know whether the child lives on the
// host or inside a container.
package backend

import (
	"context"
	"os/exec"
)

// Backend produces an *exec.Cmd ready to be handed to pty.Start. The
// returned command has not been started; the caller (package channel)
// owns its lifecycle from that point on.
type Backend interface {
	// Name identifies the backend for status reporting ("local", "docker").
	Name() string

	// Command builds the child process for argv, rooted at cwd (empty
	// means the backend's default), with env applied on top of the
	// backend's base environment.
	Command(ctx context.Context, argv []string, cwd string, env []string) (*exec.Cmd, error)
}

// mergeEnv overlays extra key=value pairs onto base, with extra taking
// precedence for duplicate keys. Order of base is preserved; extra
// entries not already present in base are appended.
func mergeEnv(base, extra []string) []string {
	if len(extra) == 0 {
		return base
	}
	keys := make(map[string]int, len(base))
	for i, kv := range base {
		if k := key(kv); k != "" {
			keys[k] = i
		}
	}
	out := append([]string(nil), base...)
	for _, kv := range extra {
		k := key(kv)
		if k == "" {
			continue
		}
		if idx, ok := keys[k]; ok {
			out[idx] = kv
			continue
		}
		keys[k] = len(out)
		out = append(out, kv)
	}
	return out
}

func key(kv string) string {
	for i := 0; i < len(kv); i++ {
		if kv[i] == '=' {
			return kv[:i]
		}
	}
	return ""
}
