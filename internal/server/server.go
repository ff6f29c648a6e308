// Package server implements the Nexus session daemon (§4.4): it owns
// the channel registry and output bus for one session, accepts
// connections on a Unix domain socket, and speaks the wire protocol
// with each connected client.
package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"os"
	"sync"
	"time"

	"github.com/nexus-term/nexus/internal/backend"
	"github.com/nexus-term/nexus/internal/bus"
	"github.com/nexus-term/nexus/internal/channel"
	"github.com/nexus-term/nexus/internal/wire"
)

// IdleTimeout is how long a server waits with zero sessions and zero
// live channels before shutting itself down (§4.4, §6).
const IdleTimeout = 60 * time.Second

// KillGrace bounds how long graceful shutdown waits for channels to
// reap after SIGHUP before exiting unconditionally (§4.4, §7).
const KillGrace = 5 * time.Second

// Shell is the default argv used for channels created without an
// explicit command, read from $SHELL on each call (§6), falling back
// to /bin/sh.
func Shell() []string {
	if sh := os.Getenv("SHELL"); sh != "" {
		return []string{sh}
	}
	return []string{"/bin/sh"}
}

// Config carries the knobs a Server needs beyond its socket path.
type Config struct {
	SocketPath string
	Backend    backend.Backend
	DefaultCwd string
	DebugAddr  string // loopback debug inspector bind address; empty disables it
}

type Server struct {
	cfg      Config
	registry *channel.Registry
	bus      *bus.Bus

	mu            sync.Mutex
	sessions      map[int]*Session
	nextSessionID int
	idleSince     time.Time
	idle          bool

	listener  net.Listener
	lockPath  string
	debugSrv  *debugServer
	closeOnce sync.Once
	done      chan struct{}
}

func New(cfg Config) *Server {
	return &Server{
		cfg:      cfg,
		registry: channel.NewRegistry(),
		bus:      bus.New(),
		sessions: make(map[int]*Session),
		lockPath: LockPath(cfg.SocketPath),
		done:     make(chan struct{}),
	}
}

// Listen binds the session's Unix socket, unlinking a stale socket
// left behind by a crashed server. If a server is already live at
// this path, Listen returns ErrAlreadyRunning and the caller should
// exit cleanly rather than bind (§4.4 auto-spawn contract).
var ErrAlreadyRunning = errors.New("server: session already has a live server")

func (s *Server) Listen() error {
	l, err := net.Listen("unix", s.cfg.SocketPath)
	if err == nil {
		if err := os.Chmod(s.cfg.SocketPath, 0600); err != nil {
			log.Printf("server: warning: chmod socket: %v", err)
		}
		s.listener = l
		if _, lockErr := writeLock(s.lockPath); lockErr != nil {
			log.Printf("server: warning: %v", lockErr)
		}
		return nil
	}

	// Listen only fails this way if the socket path already exists (a
	// permission error would also land here, but os.Remove below then
	// fails loudly rather than silently). Probe it: if something
	// answers, a live server owns this session and we should step aside.
	conn, dialErr := net.DialTimeout("unix", s.cfg.SocketPath, 500*time.Millisecond)
	if dialErr == nil {
		conn.Close()
		return ErrAlreadyRunning
	}

	// Nothing answered: the socket is stale. Remove it and retry once.
	if rmErr := os.Remove(s.cfg.SocketPath); rmErr != nil && !os.IsNotExist(rmErr) {
		return fmt.Errorf("server: remove stale socket: %w", rmErr)
	}
	l, err = net.Listen("unix", s.cfg.SocketPath)
	if err != nil {
		return fmt.Errorf("server: listen after stale cleanup: %w", err)
	}
	if err := os.Chmod(s.cfg.SocketPath, 0600); err != nil {
		log.Printf("server: warning: chmod socket: %v", err)
	}
	s.listener = l
	if _, lockErr := writeLock(s.lockPath); lockErr != nil {
		log.Printf("server: warning: %v", lockErr)
	}
	return nil
}

// Serve accepts connections until ctx is canceled or Shutdown is
// called. It also runs the idle-timeout watchdog.
func (s *Server) Serve(ctx context.Context) error {
	if s.cfg.DebugAddr != "" {
		s.debugSrv = newDebugServer(s.cfg.DebugAddr, s)
		go func() {
			if err := s.debugSrv.Run(); err != nil {
				log.Printf("server: debug inspector stopped: %v", err)
			}
		}()
	}

	go s.watchIdle(ctx)

	acceptErr := make(chan error, 1)
	go func() {
		for {
			conn, err := s.listener.Accept()
			if err != nil {
				acceptErr <- err
				return
			}
			go s.handleConn(conn)
		}
	}()

	select {
	case <-ctx.Done():
		s.shutdown()
		return ctx.Err()
	case err := <-acceptErr:
		if errors.Is(err, net.ErrClosed) {
			return nil
		}
		return err
	case <-s.done:
		return nil
	}
}

func (s *Server) watchIdle(ctx context.Context) {
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.done:
			return
		case <-ticker.C:
			if s.checkIdle() {
				log.Printf("server: idle for %s, shutting down", IdleTimeout)
				s.shutdown()
				return
			}
		}
	}
}

// checkIdle reports whether the server should shut down now.
func (s *Server) checkIdle() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	empty := len(s.sessions) == 0 && !s.registry.HasLive()
	if !empty {
		s.idle = false
		return false
	}
	if !s.idle {
		s.idle = true
		s.idleSince = time.Now()
		return false
	}
	return time.Since(s.idleSince) >= IdleTimeout
}

func (s *Server) handleConn(conn net.Conn) {
	sess := newSession(s, conn)
	s.mu.Lock()
	s.nextSessionID++
	id := s.nextSessionID
	s.sessions[id] = sess
	s.mu.Unlock()
	sess.id = id

	sess.run()

	s.mu.Lock()
	delete(s.sessions, id)
	s.mu.Unlock()
}

// broadcast sends an unsolicited event to every connected session,
// independent of their subscription sets (§4.6: channel lifecycle
// events are global, not subscription-filtered).
func (s *Server) broadcast(msg wire.Message) {
	s.mu.Lock()
	targets := make([]*Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		targets = append(targets, sess)
	}
	s.mu.Unlock()

	for _, sess := range targets {
		sess.enqueueEvent(msg)
	}
}

// watchExit waits for a channel to exit and broadcasts exactly one
// ChannelExited event for it, regardless of whether the exit was
// natural or triggered by :kill (§8: "ChannelExited is emitted
// exactly once and is the last event for that channel").
func (s *Server) watchExit(ch *channel.Channel) {
	code, _ := ch.Wait()
	s.broadcast(&wire.ChannelExitedEvent{Name: ch.Name(), Code: code})
}

// Shutdown performs the graceful-shutdown sequence (§4.4, §7):
// broadcast isn't strictly required by spec beyond closing sessions,
// signal every channel's process group, wait up to KillGrace for them
// to reap, then return.
func (s *Server) Shutdown() {
	s.shutdown()
}

func (s *Server) shutdown() {
	s.closeOnce.Do(func() {
		if s.listener != nil {
			s.listener.Close()
		}
		if s.debugSrv != nil {
			s.debugSrv.Close()
		}

		s.mu.Lock()
		for _, sess := range s.sessions {
			sess.close()
		}
		s.mu.Unlock()

		s.registry.CloseAll(KillGrace)
		removeLock(s.lockPath)
		os.Remove(s.cfg.SocketPath)
		close(s.done)
	})
}
