package server

import (
	"errors"
	"log"
	"net"
	"strconv"
	"sync"

	"github.com/nexus-term/nexus/internal/bus"
	"github.com/nexus-term/nexus/internal/wire"
)

// eventQueueSize bounds each session's unsolicited-event backlog
// (ChannelCreated/ChannelExited); these are rare compared to Output
// traffic, which instead flows through the bus's own bounded queue
// (as do the drop counts that become DropNotice events).
const eventQueueSize = 64

// Session is one connected client (§3): its socket, subscription set,
// and reported window size.
type Session struct {
	id   int
	srv  *Server
	conn net.Conn
	sub  *bus.Subscription

	rows, cols uint16

	writeMu sync.Mutex

	events    chan wire.Message
	closeOnce sync.Once
	done      chan struct{}
}

func newSession(s *Server, conn net.Conn) *Session {
	return &Session{
		srv:    s,
		conn:   conn,
		sub:    s.bus.Subscribe(),
		events: make(chan wire.Message, eventQueueSize),
		done:   make(chan struct{}),
	}
}

// run drives the session until the connection closes: handshake, then
// concurrently read requests and pump output/events.
func (s *Session) run() {
	defer s.close()

	if err := s.handshake(); err != nil {
		log.Printf("server: session %d handshake failed: %v", s.id, err)
		return
	}

	go s.pumpOutput()

	for {
		payload, err := wire.ReadFrame(s.conn)
		if err != nil {
			return
		}
		msg, err := wire.Decode(payload)
		if err != nil {
			log.Printf("server: session %d: bad frame: %v", s.id, err)
			continue
		}
		s.dispatch(msg)
	}
}

func (s *Session) handshake() error {
	payload, err := wire.ReadFrame(s.conn)
	if err != nil {
		return err
	}
	msg, err := wire.Decode(payload)
	if err != nil {
		return err
	}
	hs, ok := msg.(*wire.Handshake)
	if !ok {
		return errors.New("expected handshake")
	}
	if hs.ProtocolVersion != wire.ProtocolVersion {
		s.send(&wire.ErrResp{ErrKind: "VersionMismatch", Message: "server speaks protocol version " + strconv.Itoa(int(wire.ProtocolVersion))})
		return errors.New("protocol version mismatch")
	}
	s.rows, s.cols = hs.Rows, hs.Cols

	reply := &wire.Handshake{ProtocolVersion: wire.ProtocolVersion, Rows: hs.Rows, Cols: hs.Cols}
	return s.send(reply)
}

// pumpOutput forwards bus chunks (and the queue's own drop notices) to
// this session until it closes.
func (s *Session) pumpOutput() {
	for {
		select {
		case <-s.done:
			return
		case <-s.sub.Wake():
			chunks, dropped := s.sub.Drain()
			for _, c := range chunks {
				if err := s.send(&wire.OutputEvent{Name: c.Channel, Seq: c.Seq, Data: c.Data}); err != nil {
					return
				}
			}
			for name, n := range dropped {
				if err := s.send(&wire.DropNoticeEvent{Name: name, BytesDropped: n}); err != nil {
					return
				}
			}
		case msg, ok := <-s.events:
			if !ok {
				return
			}
			if err := s.send(msg); err != nil {
				return
			}
		}
	}
}

func (s *Session) enqueueEvent(msg wire.Message) {
	select {
	case s.events <- msg:
	case <-s.done:
	}
}

func (s *Session) send(msg wire.Message) error {
	payload, err := wire.Encode(msg)
	if err != nil {
		return err
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return wire.WriteFrame(s.conn, payload)
}

func (s *Session) close() {
	s.closeOnce.Do(func() {
		close(s.done)
		s.sub.Close()
		s.conn.Close()
	})
}
