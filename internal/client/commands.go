package client

import (
	"fmt"
	"strings"
	"time"

	"github.com/nexus-term/nexus/internal/wire"
)

// errQuit is returned by dispatchCommand for :quit/:exit so the engine
// loop knows to stop rather than treating it as any other command.
var errQuit = fmt.Errorf("client: quit requested")

// dispatchCommand executes one parsed control command. Commands that
// need server state send a request and register a follow-up to run
// when the matching Ok/Err arrives; purely local commands (§6 "local")
// run immediately and return nil.
func (e *Engine) dispatchCommand(a Action) error {
	switch a.Command {
	case "new":
		return e.cmdNew(a.Args)
	case "kill":
		return e.cmdKill(a.Args)
	case "list":
		return e.cmdList(a.Args)
	case "status":
		return e.cmdStatus(a.Args)
	case "sub":
		return e.cmdSubscribe(a.Args, true)
	case "unsub":
		return e.cmdSubscribe(a.Args, false)
	case "subs":
		return e.cmdSubs()
	case "clear":
		return e.cmdClear()
	case "quit", "exit":
		return errQuit
	default:
		e.notifyf("unknown command: :%s", a.Command)
		return nil
	}
}

func (e *Engine) cmdNew(args []string) error {
	if len(args) == 0 {
		e.notify("usage: :new <name> [argv...]")
		return nil
	}
	name := args[0]
	argv := args[1:]
	req := &wire.CreateChannelReq{Corr: e.conn.NextCorr(), Name: name, Argv: argv}
	return e.request(req, func(resp wire.Message) {
		if errR, ok := resp.(*wire.ErrResp); ok {
			e.notifyf("new %s: %s", name, errR.Message)
		}
	})
}

func (e *Engine) cmdKill(args []string) error {
	if len(args) == 0 {
		e.notify("usage: :kill <name>")
		return nil
	}
	name := args[0]
	req := &wire.KillChannelReq{Corr: e.conn.NextCorr(), Name: name}
	return e.request(req, func(resp wire.Message) {
		switch r := resp.(type) {
		case *wire.OkResp:
			e.state.RemoveChannel(name)
		case *wire.ErrResp:
			e.notifyf("kill %s: %s", name, r.Message)
		}
	})
}

func (e *Engine) cmdList(_ []string) error {
	req := &wire.ListChannelsReq{Corr: e.conn.NextCorr()}
	return e.request(req, func(resp wire.Message) {
		if errR, ok := resp.(*wire.ErrResp); ok {
			e.notifyf("list: %s", errR.Message)
		}
	})
}

func (e *Engine) cmdStatus(args []string) error {
	name := ""
	if len(args) > 0 {
		name = args[0]
	}
	req := &wire.ChannelStatusReq{Corr: e.conn.NextCorr(), Name: name}
	return e.request(req, func(resp wire.Message) {
		if errR, ok := resp.(*wire.ErrResp); ok {
			e.notifyf("status: %s", errR.Message)
		}
	})
}

func (e *Engine) cmdSubscribe(args []string, subscribe bool) error {
	if len(args) == 0 {
		e.notify("usage: :sub <names...|*>")
		return nil
	}
	if subscribe {
		e.subs.Add(args)
		req := &wire.SubscribeReq{Corr: e.conn.NextCorr(), Names: args}
		return e.request(req, nil)
	}
	e.subs.Remove(args)
	req := &wire.UnsubscribeReq{Corr: e.conn.NextCorr(), Names: args}
	return e.request(req, nil)
}

func (e *Engine) cmdSubs() error {
	wildcard, names := e.subs.Snapshot()
	if wildcard {
		e.notify("subscribed: * " + strings.Join(names, " "))
		return nil
	}
	if len(names) == 0 {
		e.notify("subscribed: (none)")
		return nil
	}
	e.notify("subscribed: " + strings.Join(names, " "))
	return nil
}

func (e *Engine) cmdClear() error {
	if e.state.Active == "" {
		return nil
	}
	if b, ok := e.state.Buffers[e.state.Active]; ok {
		b.Clear()
	}
	return nil
}

func (e *Engine) notify(text string) {
	e.state.Notifications.Push(text, 5*time.Second)
}

func (e *Engine) notifyf(format string, args ...interface{}) {
	e.notify(fmt.Sprintf(format, args...))
}

// writeInput sends a line of stdin to a named channel, used for both
// @name: rest routing and plain-line-to-active routing (§4.6).
func (e *Engine) writeInput(name, text string) error {
	if name == "" {
		e.notify("no active channel")
		return nil
	}
	req := &wire.WriteInputReq{Corr: e.conn.NextCorr(), Name: name, Bytes: []byte(text + "\n")}
	return e.request(req, func(resp wire.Message) {
		if errR, ok := resp.(*wire.ErrResp); ok {
			e.notifyf("write %s: %s", name, errR.Message)
		}
	})
}
