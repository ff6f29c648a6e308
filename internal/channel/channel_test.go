package channel

import (
	"bytes"
	"context"
	"sync"
	"syscall"
	"testing"
	"time"

	"github.com/nexus-term/nexus/internal/backend"
)

type fakePublisher struct {
	mu     sync.Mutex
	chunks map[string][]byte
}

func newFakePublisher() *fakePublisher {
	return &fakePublisher{chunks: make(map[string][]byte)}
}

func (p *fakePublisher) Publish(name string, seq uint64, data []byte) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.chunks[name] = append(p.chunks[name], data...)
}

func (p *fakePublisher) snapshot(name string) []byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]byte(nil), p.chunks[name]...)
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not met before timeout")
}

func TestSpawnCapturesOutput(t *testing.T) {
	pub := newFakePublisher()
	be := backend.NewLocalBackend("/tmp")

	ch, err := Spawn(context.Background(), be, pub, "echoer", []string{"echo", "hello from channel test"}, "/tmp", nil, 24, 80)
	if err != nil {
		t.Fatalf("Spawn: %v", err)
	}

	waitFor(t, 2*time.Second, func() bool {
		return bytes.Contains(pub.snapshot("echoer"), []byte("hello from channel test"))
	})

	code, err := ch.Wait()
	if err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if code != 0 {
		t.Fatalf("expected exit code 0, got %d", code)
	}
	if ch.State() != StateExited {
		t.Fatalf("expected StateExited, got %v", ch.State())
	}
}

func TestWriteEchoesThroughPTY(t *testing.T) {
	pub := newFakePublisher()
	be := backend.NewLocalBackend("/tmp")

	ch, err := Spawn(context.Background(), be, pub, "cat", []string{"cat"}, "/tmp", nil, 24, 80)
	if err != nil {
		t.Fatalf("Spawn: %v", err)
	}
	defer ch.Kill(syscall.SIGTERM)

	if err := ch.Write([]byte("ping\n")); err != nil {
		t.Fatalf("Write: %v", err)
	}

	waitFor(t, 2*time.Second, func() bool {
		return bytes.Contains(pub.snapshot("cat"), []byte("ping"))
	})
}

func TestKillTerminatesProcess(t *testing.T) {
	pub := newFakePublisher()
	be := backend.NewLocalBackend("/tmp")

	ch, err := Spawn(context.Background(), be, pub, "sleeper", []string{"sleep", "30"}, "/tmp", nil, 24, 80)
	if err != nil {
		t.Fatalf("Spawn: %v", err)
	}

	if err := ch.Kill(syscall.SIGTERM); err != nil {
		t.Fatalf("Kill: %v", err)
	}
	if ch.State() != StateExited {
		t.Fatalf("expected StateExited after Kill, got %v", ch.State())
	}
}

func TestWriteAfterExitFails(t *testing.T) {
	pub := newFakePublisher()
	be := backend.NewLocalBackend("/tmp")

	ch, err := Spawn(context.Background(), be, pub, "true", []string{"true"}, "/tmp", nil, 24, 80)
	if err != nil {
		t.Fatalf("Spawn: %v", err)
	}
	ch.Wait()

	if err := ch.Write([]byte("x")); err != ErrChannelGone {
		t.Fatalf("expected ErrChannelGone, got %v", err)
	}
}

func TestRegistryCreateDuplicateNameFails(t *testing.T) {
	pub := newFakePublisher()
	be := backend.NewLocalBackend("/tmp")
	r := NewRegistry()

	if _, err := r.Create(context.Background(), be, pub, "dup", []string{"sleep", "5"}, "/tmp", nil, 24, 80); err != nil {
		t.Fatalf("first Create: %v", err)
	}
	defer r.Kill("dup", syscall.SIGTERM)

	if _, err := r.Create(context.Background(), be, pub, "dup", []string{"sleep", "5"}, "/tmp", nil, 24, 80); err != ErrAlreadyExists {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}
}

func TestRegistryTombstoneUntilRemove(t *testing.T) {
	pub := newFakePublisher()
	be := backend.NewLocalBackend("/tmp")
	r := NewRegistry()

	ch, err := r.Create(context.Background(), be, pub, "short", []string{"true"}, "/tmp", nil, 24, 80)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	ch.Wait()

	waitFor(t, time.Second, func() bool { return r.Get("short") != nil && r.Get("short").State() == StateExited })

	if r.HasLive() {
		t.Fatal("expected HasLive to be false once the only channel exited")
	}

	r.Remove("short")
	if r.Get("short") != nil {
		t.Fatal("expected channel to be gone after Remove")
	}
}
