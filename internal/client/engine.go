package client

import (
	"log"
	"sync"
	"time"

	"github.com/nexus-term/nexus/internal/bus"
	"github.com/nexus-term/nexus/internal/term"
	"github.com/nexus-term/nexus/internal/wire"
)

// redrawCoalesce is how long the engine batches state changes before
// asking the renderer to redraw (§4.6).
const redrawCoalesce = 16 * time.Millisecond

// Renderer applies a redraw given a read-only state snapshot. Its
// implementation (actual layout, colors, status bar rendering) is
// external to this spec; the engine calls it at most once per
// coalescing window, except that a resize event redraws immediately.
type Renderer interface {
	Redraw(s *State)
}

// Engine is the C6 loop: the sole mutator of State, fed by keyboard,
// server, and timer events.
type Engine struct {
	conn     *Conn
	state    *State
	subs     *bus.SubscriptionSet
	renderer Renderer

	reqMu    sync.Mutex
	pending  map[uint64]func(wire.Message)

	redrawPending bool
}

func NewEngine(conn *Conn, renderer Renderer, bufCap int) *Engine {
	return &Engine{
		conn:     conn,
		state:    NewState(bufCap),
		subs:     bus.NewSubscriptionSet(),
		renderer: renderer,
		pending:  make(map[uint64]func(wire.Message)),
	}
}

// Reconnect swaps in a freshly dialed connection after the previous
// one was lost, and refreshes the channel list from the server (§8
// scenario 6: "on success, the channel list is refreshed from
// ListChannels"). Buffers and notifications from before the drop are
// kept as-is; only channel lifecycle state is resynced.
func (e *Engine) Reconnect(conn *Conn) {
	e.conn = conn
	e.notify("reconnected")
	e.request(&wire.ListChannelsReq{Corr: e.conn.NextCorr()}, func(resp wire.Message) {
		ok, isOk := resp.(*wire.OkResp)
		if !isOk || ok.Payload == nil {
			return
		}
		raw, _ := ok.Payload["channels"].([]interface{})
		for _, item := range raw {
			m, ok := item.(map[string]interface{})
			if !ok {
				continue
			}
			name, _ := m["name"].(string)
			if name == "" {
				continue
			}
			if _, known := e.state.channelByName[name]; !known {
				e.state.OnChannelCreated(name, nil)
			}
		}
	})
}

// request sends req and, once its Ok/Err response arrives, invokes
// onResp (which may be nil if the caller doesn't care).
func (e *Engine) request(req wire.Message, onResp func(wire.Message)) error {
	corr := corrOf(req)
	if onResp != nil {
		e.reqMu.Lock()
		e.pending[corr] = onResp
		e.reqMu.Unlock()
	}
	return e.conn.Send(req)
}

func corrOf(msg wire.Message) uint64 {
	switch r := msg.(type) {
	case *wire.CreateChannelReq:
		return r.Corr
	case *wire.KillChannelReq:
		return r.Corr
	case *wire.ListChannelsReq:
		return r.Corr
	case *wire.ChannelStatusReq:
		return r.Corr
	case *wire.SubscribeReq:
		return r.Corr
	case *wire.UnsubscribeReq:
		return r.Corr
	case *wire.WriteInputReq:
		return r.Corr
	case *wire.ResizeReq:
		return r.Corr
	case *wire.PingReq:
		return r.Corr
	default:
		return 0
	}
}

// Run drives the engine until the server connection is lost (returns
// 1; the caller decides whether to reconnect), :quit is issued or
// Ctrl-D is pressed (returns 0), or Ctrl-\ is pressed (returns 130).
// Ctrl-C only clears the prompt line. Returns the process exit code (§6).
func (e *Engine) Run(keys <-chan term.KeyEvent, resize <-chan term.ResizeEvent) int {
	serverMsgs, serverErr := e.readServer()

	redrawTimer := time.NewTicker(redrawCoalesce)
	defer redrawTimer.Stop()
	expireTimer := time.NewTicker(50 * time.Millisecond)
	defer expireTimer.Stop()

	e.scheduleRedraw()

	for {
		select {
		case k, ok := <-keys:
			if !ok {
				return 0
			}
			if code, stop := e.handleKey(k); stop {
				return code
			}

		case msg, ok := <-serverMsgs:
			if !ok {
				continue
			}
			e.handleServerMessage(msg)

		case err := <-serverErr:
			log.Printf("client: server connection lost: %v", err)
			e.notify("server connection lost")
			return 1

		case rs, ok := <-resize:
			if !ok {
				continue
			}
			e.conn.Send(&wire.ResizeReq{Corr: e.conn.NextCorr(), Rows: rs.Rows, Cols: rs.Cols})
			e.redrawNow()

		case <-redrawTimer.C:
			if e.redrawPending {
				e.redrawNow()
			}

		case <-expireTimer.C:
			e.state.ExpirePending()
		}
	}
}

func (e *Engine) readServer() (<-chan wire.Message, <-chan error) {
	msgs := make(chan wire.Message, 64)
	errs := make(chan error, 1)
	go func() {
		for {
			msg, err := e.conn.Recv()
			if err != nil {
				errs <- err
				return
			}
			msgs <- msg
		}
	}()
	return msgs, errs
}

func (e *Engine) handleServerMessage(msg wire.Message) {
	switch m := msg.(type) {
	case *wire.OkResp:
		e.resolve(m.Corr, m)
	case *wire.ErrResp:
		e.resolve(m.Corr, m)
	case *wire.OutputEvent:
		e.state.OnOutput(m.Name, m.Data)
	case *wire.ChannelCreatedEvent:
		e.state.OnChannelCreated(m.Name, m.Command)
	case *wire.ChannelExitedEvent:
		e.state.OnChannelExited(m.Name, m.Code)
	case *wire.DropNoticeEvent:
		e.state.OnDropNotice(m.Name, m.BytesDropped)
	}
	e.scheduleRedraw()
}

func (e *Engine) resolve(corr uint64, resp wire.Message) {
	e.reqMu.Lock()
	fn, ok := e.pending[corr]
	if ok {
		delete(e.pending, corr)
	}
	e.reqMu.Unlock()
	if ok && fn != nil {
		fn(resp)
	}
}

// handleKey applies one decoded keypress to the editor/state, returning
// (exitCode, stop).
func (e *Engine) handleKey(k term.KeyEvent) (int, bool) {
	switch k.Kind {
	case term.KeyCtrlC:
		e.state.Editor.Clear()
	case term.KeyCtrlD:
		return 0, true
	case term.KeyCtrlBackslash:
		return 130, true
	case term.KeyCtrlN:
		e.state.CycleNext()
	case term.KeyCtrlP:
		e.state.CyclePrev()
	case term.KeyEnter:
		line := e.state.Editor.Submit()
		if err := e.submitLine(line); err != nil {
			if err == errQuit {
				return 0, true
			}
			e.notifyf("%v", err)
		}
	case term.KeyBackspace:
		e.state.Editor.Backspace()
	case term.KeyLeft:
		e.state.Editor.MoveLeft()
	case term.KeyRight:
		e.state.Editor.MoveRight()
	case term.KeyUp:
		e.state.Editor.HistoryUp()
	case term.KeyDown:
		e.state.Editor.HistoryDown()
	case term.KeyTab:
		e.state.Editor.ApplyCompletion()
	case term.KeyRune:
		e.state.Editor.InsertRune(k.Rune)
	}
	e.scheduleRedraw()
	return 0, false
}

func (e *Engine) submitLine(line string) error {
	a := ParseLine(line)
	switch a.Kind {
	case ActionNone:
		return nil
	case ActionCommand:
		return e.dispatchCommand(a)
	case ActionSwitchActive:
		e.state.Active = a.Target
		if b, ok := e.state.Buffers[a.Target]; ok {
			b.Unread = false
		}
		return nil
	case ActionWriteNamed:
		return e.writeInput(a.Target, a.Text)
	case ActionWriteActive:
		return e.writeInput(e.state.Active, a.Text)
	}
	return nil
}

func (e *Engine) scheduleRedraw() {
	e.redrawPending = true
}

func (e *Engine) redrawNow() {
	if e.renderer != nil {
		e.renderer.Redraw(e.state)
	}
	e.redrawPending = false
}
