package server

import (
	"bytes"
	"context"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/nexus-term/nexus/internal/backend"
	"github.com/nexus-term/nexus/internal/wire"
)

type testClient struct {
	t    *testing.T
	conn net.Conn
	next uint64
}

func dialTestClient(t *testing.T, sockPath string) *testClient {
	t.Helper()
	nc, err := net.Dial("unix", sockPath)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	tc := &testClient{t: t, conn: nc}

	tc.sendRaw(&wire.Handshake{ProtocolVersion: wire.ProtocolVersion, Rows: 24, Cols: 80})
	msg := tc.recvRaw()
	if _, ok := msg.(*wire.Handshake); !ok {
		t.Fatalf("expected handshake reply, got %T", msg)
	}
	return tc
}

func (c *testClient) sendRaw(msg wire.Message) {
	c.t.Helper()
	payload, err := wire.Encode(msg)
	if err != nil {
		c.t.Fatalf("encode: %v", err)
	}
	if err := wire.WriteFrame(c.conn, payload); err != nil {
		c.t.Fatalf("write frame: %v", err)
	}
}

func (c *testClient) recvRaw() wire.Message {
	c.t.Helper()
	c.conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	payload, err := wire.ReadFrame(c.conn)
	if err != nil {
		c.t.Fatalf("read frame: %v", err)
	}
	msg, err := wire.Decode(payload)
	if err != nil {
		c.t.Fatalf("decode: %v", err)
	}
	return msg
}

func (c *testClient) corr() uint64 {
	c.next++
	return c.next
}

// recvUntil reads frames until it finds one matching pred, skipping
// intervening Output/ChannelCreated events (they race with responses).
func (c *testClient) recvUntil(pred func(wire.Message) bool) wire.Message {
	c.t.Helper()
	for i := 0; i < 50; i++ {
		msg := c.recvRaw()
		if pred(msg) {
			return msg
		}
	}
	c.t.Fatal("expected message not seen within 50 frames")
	return nil
}

func newTestServer(t *testing.T) (*Server, string) {
	t.Helper()
	dir := t.TempDir()
	sockPath := filepath.Join(dir, "test.sock")

	srv := New(Config{
		SocketPath: sockPath,
		Backend:    backend.NewLocalBackend(dir),
		DefaultCwd: dir,
	})
	if err := srv.Listen(); err != nil {
		t.Fatalf("Listen: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	go srv.Serve(ctx)
	t.Cleanup(func() {
		cancel()
		srv.Shutdown()
	})
	return srv, sockPath
}

func TestHandshakeRejectsVersionMismatch(t *testing.T) {
	_, sockPath := newTestServer(t)
	nc, err := net.Dial("unix", sockPath)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer nc.Close()

	payload, err := wire.Encode(&wire.Handshake{ProtocolVersion: wire.ProtocolVersion + 1, Rows: 24, Cols: 80})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if err := wire.WriteFrame(nc, payload); err != nil {
		t.Fatalf("write frame: %v", err)
	}

	nc.SetReadDeadline(time.Now().Add(3 * time.Second))
	respPayload, err := wire.ReadFrame(nc)
	if err != nil {
		t.Fatalf("read frame: %v", err)
	}
	msg, err := wire.Decode(respPayload)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	errResp, ok := msg.(*wire.ErrResp)
	if !ok || errResp.ErrKind != "VersionMismatch" {
		t.Fatalf("expected VersionMismatch ErrResp, got %T %+v", msg, msg)
	}

	if _, err := wire.ReadFrame(nc); err == nil {
		t.Fatalf("expected server to close the connection after version mismatch")
	}
}

func TestCreateChannelAndReceiveOutput(t *testing.T) {
	_, sockPath := newTestServer(t)
	tc := dialTestClient(t, sockPath)
	defer tc.conn.Close()

	tc.sendRaw(&wire.SubscribeReq{Corr: tc.corr(), Names: []string{"*"}})
	tc.recvUntil(func(m wire.Message) bool { _, ok := m.(*wire.OkResp); return ok })

	corr := tc.corr()
	tc.sendRaw(&wire.CreateChannelReq{Corr: corr, Name: "echoer", Argv: []string{"echo", "hello nexus"}})

	ok := tc.recvUntil(func(m wire.Message) bool {
		r, isOk := m.(*wire.OkResp)
		return isOk && r.Corr == corr
	})
	if _, ok := ok.(*wire.OkResp); !ok {
		t.Fatalf("expected Ok for CreateChannel, got %T", ok)
	}

	out := tc.recvUntil(func(m wire.Message) bool {
		o, isOutput := m.(*wire.OutputEvent)
		return isOutput && o.Name == "echoer"
	}).(*wire.OutputEvent)

	if !bytes.Contains(out.Data, []byte("hello nexus")) {
		t.Fatalf("expected output to contain greeting, got %q", out.Data)
	}
}

func TestCreateChannelDuplicateNameReturnsErr(t *testing.T) {
	_, sockPath := newTestServer(t)
	tc := dialTestClient(t, sockPath)
	defer tc.conn.Close()

	tc.sendRaw(&wire.CreateChannelReq{Corr: tc.corr(), Name: "dup", Argv: []string{"sleep", "2"}})
	tc.recvUntil(func(m wire.Message) bool { _, ok := m.(*wire.OkResp); return ok })

	corr2 := tc.corr()
	tc.sendRaw(&wire.CreateChannelReq{Corr: corr2, Name: "dup", Argv: []string{"sleep", "2"}})
	resp := tc.recvUntil(func(m wire.Message) bool {
		e, ok := m.(*wire.ErrResp)
		return ok && e.Corr == corr2
	}).(*wire.ErrResp)

	if resp.ErrKind != wire.ErrAlreadyExists {
		t.Fatalf("expected AlreadyExists, got %s", resp.ErrKind)
	}
}

func TestListChannelsReturnsCreatedChannel(t *testing.T) {
	_, sockPath := newTestServer(t)
	tc := dialTestClient(t, sockPath)
	defer tc.conn.Close()

	tc.sendRaw(&wire.CreateChannelReq{Corr: tc.corr(), Name: "lister", Argv: []string{"sleep", "2"}})
	tc.recvUntil(func(m wire.Message) bool { _, ok := m.(*wire.OkResp); return ok })

	listCorr := tc.corr()
	tc.sendRaw(&wire.ListChannelsReq{Corr: listCorr})
	resp := tc.recvUntil(func(m wire.Message) bool {
		r, ok := m.(*wire.OkResp)
		return ok && r.Corr == listCorr
	}).(*wire.OkResp)

	channels, _ := resp.Payload["channels"].([]interface{})
	if len(channels) != 1 {
		t.Fatalf("expected 1 channel listed, got %d", len(channels))
	}
}

func TestKillChannelThenWriteInputFails(t *testing.T) {
	_, sockPath := newTestServer(t)
	tc := dialTestClient(t, sockPath)
	defer tc.conn.Close()

	tc.sendRaw(&wire.CreateChannelReq{Corr: tc.corr(), Name: "killme", Argv: []string{"sleep", "30"}})
	tc.recvUntil(func(m wire.Message) bool { _, ok := m.(*wire.OkResp); return ok })

	killCorr := tc.corr()
	tc.sendRaw(&wire.KillChannelReq{Corr: killCorr, Name: "killme"})
	tc.recvUntil(func(m wire.Message) bool {
		r, ok := m.(*wire.OkResp)
		return ok && r.Corr == killCorr
	})

	writeCorr := tc.corr()
	tc.sendRaw(&wire.WriteInputReq{Corr: writeCorr, Name: "killme", Bytes: []byte("x")})
	resp := tc.recvUntil(func(m wire.Message) bool {
		e, ok := m.(*wire.ErrResp)
		return ok && e.Corr == writeCorr
	}).(*wire.ErrResp)

	if resp.ErrKind != wire.ErrNotFound {
		t.Fatalf("expected NotFound after Remove, got %s", resp.ErrKind)
	}
}

func TestListenRebindsStaleSocket(t *testing.T) {
	dir := t.TempDir()
	sockPath := filepath.Join(dir, "stale.sock")

	l, err := net.Listen("unix", sockPath)
	if err != nil {
		t.Fatalf("seed listener: %v", err)
	}
	l.(*net.UnixListener).SetUnlinkOnClose(false)
	l.Close() // leaves the socket file behind without anyone listening

	if _, err := os.Stat(sockPath); err != nil {
		t.Fatalf("expected stale socket file to exist: %v", err)
	}

	srv := New(Config{SocketPath: sockPath, Backend: backend.NewLocalBackend(dir), DefaultCwd: dir})
	if err := srv.Listen(); err != nil {
		t.Fatalf("expected Listen to recover from a stale socket, got: %v", err)
	}
	srv.Shutdown()
}

func TestListenReturnsErrAlreadyRunningForLiveServer(t *testing.T) {
	srv, sockPath := newTestServer(t)
	_ = srv

	other := New(Config{SocketPath: sockPath})
	err := other.Listen()
	if err != ErrAlreadyRunning {
		t.Fatalf("expected ErrAlreadyRunning, got %v", err)
	}
}
