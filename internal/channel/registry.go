package channel

import (
	"context"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/nexus-term/nexus/internal/backend"
)

// Registry is a name-indexed set of channels, guarded against
// concurrent mutation (§4.2). Long work (spawn/kill) happens outside
// the lock; the lock only ever guards map access.
type Registry struct {
	mu       sync.RWMutex
	order    []string
	channels map[string]*Channel
}

func NewRegistry() *Registry {
	return &Registry{channels: make(map[string]*Channel)}
}

// Create spawns a new channel under name. Fails with ErrAlreadyExists
// if the name is taken.
func (r *Registry) Create(ctx context.Context, be backend.Backend, pub Publisher, name string, argv []string, cwd string, env []string, rows, cols uint16) (*Channel, error) {
	r.mu.Lock()
	if _, exists := r.channels[name]; exists {
		r.mu.Unlock()
		return nil, ErrAlreadyExists
	}
	// Reserve the name before the (slow, syscall-heavy) spawn so two
	// concurrent creates for the same name can't both succeed.
	r.channels[name] = nil
	r.mu.Unlock()

	ch, err := Spawn(ctx, be, pub, name, argv, cwd, env, rows, cols)
	if err != nil {
		r.mu.Lock()
		delete(r.channels, name)
		r.mu.Unlock()
		return nil, err
	}

	r.mu.Lock()
	r.channels[name] = ch
	r.order = append(r.order, name)
	r.mu.Unlock()

	return ch, nil
}

// Get returns the channel for name, or nil.
func (r *Registry) Get(name string) *Channel {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.channels[name]
}

// List returns a value-copy snapshot of every channel's Info, ordered
// by creation time (§4.2).
func (r *Registry) List() []Info {
	r.mu.RLock()
	defer r.mu.RUnlock()

	infos := make([]Info, 0, len(r.order))
	for _, name := range r.order {
		if ch := r.channels[name]; ch != nil {
			infos = append(infos, ch.Info())
		}
	}
	sort.SliceStable(infos, func(i, j int) bool {
		return infos[i].CreatedAt.Before(infos[j].CreatedAt)
	})
	return infos
}

// Kill terminates the channel and waits for it to exit. The channel
// remains in the registry as a tombstone (§3) until Remove is called.
func (r *Registry) Kill(name string, sig os.Signal) error {
	ch := r.Get(name)
	if ch == nil {
		return ErrNotFound
	}
	if err := ch.Kill(sig); err != nil {
		return err
	}
	ch.Wait()
	return nil
}

// Remove drops a tombstoned channel from the registry. No further
// Output events will be delivered for this name (§8).
func (r *Registry) Remove(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.channels, name)
	for i, n := range r.order {
		if n == name {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
}

// HasLive reports whether any channel is still running (not yet
// exited); used by the server's idle-shutdown watchdog (§4.4).
func (r *Registry) HasLive() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, name := range r.order {
		if ch := r.channels[name]; ch != nil && ch.State() != StateExited {
			return true
		}
	}
	return false
}

// Names returns every known channel name, in creation order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order...)
}

// CloseAll kills every live channel; used on server shutdown (§5).
func (r *Registry) CloseAll(grace time.Duration) {
	r.mu.RLock()
	names := append([]string(nil), r.order...)
	r.mu.RUnlock()

	var wg sync.WaitGroup
	for _, name := range names {
		ch := r.Get(name)
		if ch == nil || ch.State() == StateExited {
			continue
		}
		wg.Add(1)
		go func(c *Channel) {
			defer wg.Done()
			c.Kill(hangupSignal())
		}(ch)
	}

	done := make(chan struct{})
	go func() { wg.Wait(); close(done) }()
	select {
	case <-done:
	case <-time.After(grace):
	}
}
