// Package client implements the Client Event Engine (C6): a
// single-threaded cooperative loop fusing keyboard input, server
// events, and timers into one consistent view of every running
// channel.
package client

import (
	"fmt"
	"net"
	"sync/atomic"
	"time"

	"github.com/nexus-term/nexus/internal/wire"
)

// Conn is the client side of the wire protocol: one Unix socket, framed
// messages, and a correlation-id allocator for request/response matching.
type Conn struct {
	nc     net.Conn
	nextID uint64
}

// Dial connects to path and performs the handshake, closing the
// connection and returning an error if the server rejects the
// handshake or replies with a different protocol version (§4.4).
func Dial(path string, rows, cols uint16) (*Conn, error) {
	nc, err := net.Dial("unix", path)
	if err != nil {
		return nil, err
	}
	c := &Conn{nc: nc}

	payloadOut, err := wire.Encode(&wire.Handshake{ProtocolVersion: wire.ProtocolVersion, Rows: rows, Cols: cols})
	if err != nil {
		nc.Close()
		return nil, err
	}
	if err := wire.WriteFrame(nc, payloadOut); err != nil {
		nc.Close()
		return nil, fmt.Errorf("client: handshake: %w", err)
	}

	payload, err := wire.ReadFrame(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("client: handshake reply: %w", err)
	}
	msg, err := wire.Decode(payload)
	if err != nil {
		nc.Close()
		return nil, err
	}
	if errResp, ok := msg.(*wire.ErrResp); ok {
		nc.Close()
		return nil, fmt.Errorf("client: handshake rejected: %s: %s", errResp.ErrKind, errResp.Message)
	}
	hs, ok := msg.(*wire.Handshake)
	if !ok {
		nc.Close()
		return nil, fmt.Errorf("client: expected handshake, got %T", msg)
	}
	if hs.ProtocolVersion != wire.ProtocolVersion {
		nc.Close()
		return nil, fmt.Errorf("client: protocol version mismatch: server=%d client=%d", hs.ProtocolVersion, wire.ProtocolVersion)
	}

	return c, nil
}

// NextCorr allocates the next correlation id for an outgoing request.
func (c *Conn) NextCorr() uint64 { return atomic.AddUint64(&c.nextID, 1) }

// Send writes one frame.
func (c *Conn) Send(msg wire.Message) error {
	payload, err := wire.Encode(msg)
	if err != nil {
		return err
	}
	return wire.WriteFrame(c.nc, payload)
}

// Recv blocks for the next frame, which may be an event or a response.
func (c *Conn) Recv() (wire.Message, error) {
	payload, err := wire.ReadFrame(c.nc)
	if err != nil {
		return nil, err
	}
	return wire.Decode(payload)
}

func (c *Conn) Close() error { return c.nc.Close() }

// SetDeadline sets the read/write deadline on the underlying socket.
func (c *Conn) SetDeadline(d time.Time) error { return c.nc.SetDeadline(d) }
