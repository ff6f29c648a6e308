package server

import (
	"context"
	"errors"
	"os"
	"syscall"

	"github.com/nexus-term/nexus/internal/channel"
	"github.com/nexus-term/nexus/internal/wire"
)

// dispatch routes a decoded request to its handler and writes back
// exactly one Ok or Err response, correlated by Corr (§4.5).
func (s *Session) dispatch(msg wire.Message) {
	var resp wire.Message

	switch req := msg.(type) {
	case *wire.CreateChannelReq:
		resp = s.handleCreateChannel(req)
	case *wire.KillChannelReq:
		resp = s.handleKillChannel(req)
	case *wire.ListChannelsReq:
		resp = s.handleListChannels(req)
	case *wire.ChannelStatusReq:
		resp = s.handleChannelStatus(req)
	case *wire.SubscribeReq:
		s.sub.Subs().Add(req.Names)
		resp = &wire.OkResp{Corr: req.Corr}
	case *wire.UnsubscribeReq:
		s.sub.Subs().Remove(req.Names)
		resp = &wire.OkResp{Corr: req.Corr}
	case *wire.WriteInputReq:
		resp = s.handleWriteInput(req)
	case *wire.ResizeReq:
		resp = s.handleResize(req)
	case *wire.PingReq:
		resp = &wire.OkResp{Corr: req.Corr, Payload: map[string]interface{}{"nonce": req.Nonce}}
	default:
		resp = &wire.ErrResp{ErrKind: wire.ErrUnknownRequest, Message: "unexpected message kind"}
	}

	if resp != nil {
		_ = s.send(resp)
	}
}

func (s *Session) handleCreateChannel(req *wire.CreateChannelReq) wire.Message {
	argv := req.Argv
	if len(argv) == 0 {
		argv = Shell()
	}
	cwd := req.Cwd
	if cwd == "" {
		cwd = s.srv.cfg.DefaultCwd
	}

	ch, err := s.srv.registry.Create(context.Background(), s.srv.cfg.Backend, s.srv.bus, req.Name, argv, cwd, req.Env, s.rows, s.cols)
	if err != nil {
		return errResp(req.Corr, err)
	}

	go s.srv.watchExit(ch)
	s.srv.broadcast(&wire.ChannelCreatedEvent{Name: ch.Name(), Command: argv})

	return &wire.OkResp{Corr: req.Corr, Payload: map[string]interface{}{"pid": int64(ch.PID())}}
}

func (s *Session) handleKillChannel(req *wire.KillChannelReq) wire.Message {
	sig := os.Signal(syscall.SIGTERM)
	if req.Signal != 0 {
		sig = unixSignal(req.Signal)
	}
	if err := s.srv.registry.Kill(req.Name, sig); err != nil {
		return errResp(req.Corr, err)
	}
	s.srv.registry.Remove(req.Name)
	s.srv.bus.Prune(req.Name)
	return &wire.OkResp{Corr: req.Corr}
}

func (s *Session) handleListChannels(req *wire.ListChannelsReq) wire.Message {
	infos := s.srv.registry.List()
	list := make([]interface{}, 0, len(infos))
	for _, info := range infos {
		list = append(list, infoToMap(info))
	}
	return &wire.OkResp{Corr: req.Corr, Payload: map[string]interface{}{"channels": list}}
}

func (s *Session) handleChannelStatus(req *wire.ChannelStatusReq) wire.Message {
	if req.Name == "" {
		return s.handleListChannels(&wire.ListChannelsReq{Corr: req.Corr})
	}
	ch := s.srv.registry.Get(req.Name)
	if ch == nil {
		return &wire.ErrResp{Corr: req.Corr, ErrKind: wire.ErrNotFound, Message: "no such channel: " + req.Name}
	}
	return &wire.OkResp{Corr: req.Corr, Payload: infoToMap(ch.Info())}
}

func (s *Session) handleWriteInput(req *wire.WriteInputReq) wire.Message {
	ch := s.srv.registry.Get(req.Name)
	if ch == nil {
		return &wire.ErrResp{Corr: req.Corr, ErrKind: wire.ErrNotFound, Message: "no such channel: " + req.Name}
	}
	if err := ch.Write(req.Bytes); err != nil {
		return errResp(req.Corr, err)
	}
	return &wire.OkResp{Corr: req.Corr}
}

func (s *Session) handleResize(req *wire.ResizeReq) wire.Message {
	if req.Name == "" {
		s.rows, s.cols = req.Rows, req.Cols
		for _, name := range s.srv.registry.Names() {
			if ch := s.srv.registry.Get(name); ch != nil {
				ch.Resize(req.Rows, req.Cols)
			}
		}
		return &wire.OkResp{Corr: req.Corr}
	}
	ch := s.srv.registry.Get(req.Name)
	if ch == nil {
		return &wire.ErrResp{Corr: req.Corr, ErrKind: wire.ErrNotFound, Message: "no such channel: " + req.Name}
	}
	if err := ch.Resize(req.Rows, req.Cols); err != nil {
		return errResp(req.Corr, err)
	}
	return &wire.OkResp{Corr: req.Corr}
}

func infoToMap(info channel.Info) map[string]interface{} {
	m := map[string]interface{}{
		"name":  info.Name,
		"pid":   int64(info.PID),
		"state": info.State.String(),
		"argv":  stringsToAny(info.Argv),
		"cwd":   info.Cwd,
	}
	if info.HasExit {
		m["exit_code"] = int64(info.ExitCode)
	}
	return m
}

func stringsToAny(ss []string) []interface{} {
	out := make([]interface{}, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}

// errResp maps a channel package sentinel error to its wire error
// kind (§6).
func errResp(corr uint64, err error) *wire.ErrResp {
	kind := wire.ErrInternal
	switch {
	case errors.Is(err, channel.ErrAlreadyExists):
		kind = wire.ErrAlreadyExists
	case errors.Is(err, channel.ErrNotFound):
		kind = wire.ErrNotFound
	case errors.Is(err, channel.ErrChannelGone):
		kind = wire.ErrChannelGone
	case errors.Is(err, channel.ErrWriteBackpressure):
		kind = wire.ErrWriteBackpressure
	case errors.Is(err, channel.ErrExecFailed):
		kind = wire.ErrExecFailed
	}
	return &wire.ErrResp{Corr: corr, ErrKind: kind, Message: err.Error()}
}

// unixSignal maps a wire signal code (the POSIX signal number) to an
// os.Signal for Kill.
func unixSignal(n uint8) os.Signal {
	return syscall.Signal(n)
}
