// Package channel implements the PTY-backed channel abstraction (the
// spec's C1 PTY Channel and C2 Channel Registry): a named child process
// hosted inside its own pseudo-terminal, streaming output to a Publisher
// and accepting stdin writes, resizes, and signals.
package channel

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"sync"
	"sync/atomic"
	"time"

	"github.com/creack/pty"

	"github.com/nexus-term/nexus/internal/backend"
)

// State is a channel's lifecycle stage.
type State int

const (
	StateStarting State = iota
	StateRunning
	StateExited
)

func (s State) String() string {
	switch s {
	case StateStarting:
		return "starting"
	case StateRunning:
		return "running"
	case StateExited:
		return "exited"
	default:
		return "unknown"
	}
}

var (
	ErrAlreadyExists     = errors.New("channel: already exists")
	ErrNotFound          = errors.New("channel: not found")
	ErrChannelGone       = errors.New("channel: gone")
	ErrWriteBackpressure = errors.New("channel: write backpressure")
	ErrExecFailed        = errors.New("channel: exec failed")
)

// maxQueuedWriteBytes bounds the write queue per §4.1: beyond this the
// caller must retry, data is never silently dropped.
const maxQueuedWriteBytes = 1 << 20 // 1 MiB

// readChunkSize is the pump's read buffer; also the spec's boundary
// case (§8): a read that fills all 64 KiB is published as two chunks.
const readChunkSize = 64 * 1024

// killGrace is how long kill() waits after signalling before escalating
// to SIGKILL (§4.1).
const killGrace = 2 * time.Second

// Publisher receives output chunks as they are read off a channel's
// master fd. Implemented by package bus; kept as an interface here so
// channel never imports bus.
type Publisher interface {
	Publish(name string, seq uint64, data []byte)
}

// Info is an immutable value-copy snapshot of a Channel's metadata,
// the kind of thing Registry.List hands to callers (§4.2: "a list
// snapshot returned to clients is a value copy").
type Info struct {
	Name        string
	PID         int
	State       State
	ExitCode    int
	HasExit     bool
	Argv        []string
	Cwd         string
	Env         []string
	CreatedAt   time.Time
	LastExit    time.Time
	HasLastExit bool
}

// Channel owns one child process and its PTY master fd.
type Channel struct {
	name      string
	argv      []string
	cwd       string
	env       []string
	createdAt time.Time

	master *os.File
	cmd    *exec.Cmd
	pid    int

	mu         sync.Mutex
	state      State
	exitCode   int
	hasExit    bool
	lastExitAt time.Time

	pub Publisher
	seq uint64

	writeCh    chan []byte
	queuedByte int64

	waitCh  chan struct{}
	waitErr error

	closeOnce sync.Once
}

// Spawn allocates a PTY, execs argv under be, and starts the output
// pump and write drain goroutines. rows/cols of 0 leave the PTY at the
// backend's default size.
func Spawn(ctx context.Context, be backend.Backend, pub Publisher, name string, argv []string, cwd string, env []string, rows, cols uint16) (*Channel, error) {
	if name == "" {
		return nil, fmt.Errorf("channel: name must not be empty")
	}
	if len(argv) == 0 {
		return nil, fmt.Errorf("channel: argv must not be empty")
	}

	cmd, err := be.Command(ctx, argv, cwd, env)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExecFailed, err)
	}

	var master *os.File
	if rows > 0 && cols > 0 {
		master, err = pty.StartWithSize(cmd, &pty.Winsize{Rows: rows, Cols: cols})
	} else {
		master, err = pty.Start(cmd)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExecFailed, err)
	}

	c := &Channel{
		name:      name,
		argv:      argv,
		cwd:       cwd,
		env:       env,
		createdAt: time.Now(),
		master:    master,
		cmd:       cmd,
		pid:       cmd.Process.Pid,
		state:     StateRunning,
		pub:       pub,
		writeCh:   make(chan []byte, 256),
		waitCh:    make(chan struct{}),
	}

	go c.pumpOutput()
	go c.drainWrites()
	go c.waitProcess()

	return c, nil
}

func (c *Channel) Name() string { return c.name }
func (c *Channel) PID() int     { return c.pid }

func (c *Channel) Info() Info {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Info{
		Name:        c.name,
		PID:         c.pid,
		State:       c.state,
		ExitCode:    c.exitCode,
		HasExit:     c.hasExit,
		Argv:        append([]string(nil), c.argv...),
		Cwd:         c.cwd,
		Env:         append([]string(nil), c.env...),
		CreatedAt:   c.createdAt,
		LastExit:    c.lastExitAt,
		HasLastExit: c.hasExit,
	}
}

func (c *Channel) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Write enqueues bytes for the PTY master. Fails with
// ErrWriteBackpressure once the queue exceeds maxQueuedWriteBytes;
// fails with ErrChannelGone once the channel has exited.
func (c *Channel) Write(p []byte) error {
	c.mu.Lock()
	if c.state == StateExited {
		c.mu.Unlock()
		return ErrChannelGone
	}
	c.mu.Unlock()

	if atomic.LoadInt64(&c.queuedByte)+int64(len(p)) > maxQueuedWriteBytes {
		return ErrWriteBackpressure
	}

	buf := append([]byte(nil), p...)
	select {
	case c.writeCh <- buf:
		atomic.AddInt64(&c.queuedByte, int64(len(buf)))
		return nil
	default:
		return ErrWriteBackpressure
	}
}

// Resize issues a window-size ioctl. Idempotent; last writer wins.
// Because pty.Start execs synchronously there is no window where the
// child is not yet execed, so there is nothing to queue here (unlike
// an async spawn path).
func (c *Channel) Resize(rows, cols uint16) error {
	c.mu.Lock()
	exited := c.state == StateExited
	c.mu.Unlock()
	if exited {
		return ErrChannelGone
	}
	return pty.Setsize(c.master, &pty.Winsize{Rows: rows, Cols: cols})
}

// Kill sends sig to the process group, escalating to SIGKILL after
// killGrace if the child is still alive.
func (c *Channel) Kill(sig os.Signal) error {
	if err := signalProcessGroup(c.pid, sig); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return err
	}

	select {
	case <-c.waitCh:
		return nil
	case <-time.After(killGrace):
	}

	select {
	case <-c.waitCh:
	default:
		signalProcessGroup(c.pid, os.Kill)
	}
	return nil
}

// Wait blocks until the child has exited, returning the cached result
// on subsequent calls (§4.1: "observers after resolution receive the
// cached status").
func (c *Channel) Wait() (exitCode int, err error) {
	<-c.waitCh
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.exitCode, c.waitErr
}

func (c *Channel) pumpOutput() {
	buf := make([]byte, readChunkSize)
	publish := func(p []byte) {
		chunk := append([]byte(nil), p...)
		seq := atomic.AddUint64(&c.seq, 1) - 1
		c.pub.Publish(c.name, seq, chunk)
	}
	for {
		n, err := c.master.Read(buf)
		if n == readChunkSize {
			publish(buf[:n/2])
			publish(buf[n/2 : n])
		} else if n > 0 {
			publish(buf[:n])
		}
		if err != nil {
			return
		}
	}
}

func (c *Channel) drainWrites() {
	for buf := range c.writeCh {
		atomic.AddInt64(&c.queuedByte, -int64(len(buf)))
		if _, err := c.master.Write(buf); err != nil {
			return
		}
	}
}

func (c *Channel) waitProcess() {
	err := c.cmd.Wait()
	code := exitCodeFromError(err)

	c.mu.Lock()
	c.state = StateExited
	c.exitCode = code
	c.hasExit = true
	c.lastExitAt = time.Now()
	if _, ok := err.(*exec.ExitError); !ok {
		c.waitErr = err
	}
	c.mu.Unlock()

	c.closeOnce.Do(func() {
		close(c.writeCh)
		c.master.Close()
	})
	close(c.waitCh)
}

func exitCodeFromError(err error) int {
	if err == nil {
		return 0
	}
	if ee, ok := err.(*exec.ExitError); ok {
		return ee.ExitCode()
	}
	return -1
}
