package client

import (
	"strconv"
	"time"
)

// ChannelState mirrors the server's channel lifecycle client-side,
// driven entirely by ChannelCreated/ChannelExited events (§4.6).
type ChannelState struct {
	Name    string
	Command []string
	Exited  bool
	Code    int
}

// pendingOutput holds Output/DropNotice events that arrived for a
// channel name the client hasn't seen a ChannelCreated for yet (§4.6:
// buffered up to 250ms, then discarded with a warning).
type pendingOutput struct {
	name     string
	arrived  time.Time
	outputs  [][]byte
	seqs     []uint64
	dropBytes uint64
}

// State is the client's entire mutable model: the C6 loop is its sole
// mutator, rendering only ever reads a snapshot.
type State struct {
	Channels      []*ChannelState
	channelByName map[string]*ChannelState
	Active        string // "" means none

	Buffers map[string]*ClientBuffer
	bufCap  int

	Editor        *LineEditor
	Notifications NotificationQueue

	pending map[string]*pendingOutput

	LastError string
}

func NewState(bufCap int) *State {
	return &State{
		channelByName: make(map[string]*ChannelState),
		Buffers:       make(map[string]*ClientBuffer),
		bufCap:        bufCap,
		Editor:        NewLineEditor(),
		pending:       make(map[string]*pendingOutput),
	}
}

func (s *State) bufferFor(name string) *ClientBuffer {
	b, ok := s.Buffers[name]
	if !ok {
		b = NewClientBuffer(s.bufCap)
		s.Buffers[name] = b
	}
	return b
}

// OnChannelCreated appends name to the channel list and flushes any
// output that arrived before this event (§A.3 reconnect/late-event
// handling).
func (s *State) OnChannelCreated(name string, command []string) {
	if _, exists := s.channelByName[name]; exists {
		return
	}
	cs := &ChannelState{Name: name, Command: command}
	s.Channels = append(s.Channels, cs)
	s.channelByName[name] = cs

	if s.Active == "" {
		s.Active = name
	}

	if p, ok := s.pending[name]; ok {
		buf := s.bufferFor(name)
		for _, chunk := range p.outputs {
			buf.Append(chunk)
		}
		if p.dropBytes > 0 {
			buf.AppendLine(dropNoticeLine(name, p.dropBytes))
		}
		delete(s.pending, name)
	}
}

func (s *State) OnChannelExited(name string, code int) {
	if cs, ok := s.channelByName[name]; ok {
		cs.Exited = true
		cs.Code = code
		s.Notifications.Push(name+" exited ("+strconv.Itoa(code)+")", 5*time.Second)
		return
	}
	// Exit for a channel we never saw created: nothing useful to attach
	// it to; the pending window will expire it with the rest.
	s.touchPending(name)
}

// OnOutput appends to name's buffer, or buffers it pending a
// ChannelCreated if the channel isn't known yet.
func (s *State) OnOutput(name string, data []byte) {
	if _, ok := s.channelByName[name]; !ok {
		p := s.touchPending(name)
		p.outputs = append(p.outputs, append([]byte(nil), data...))
		return
	}
	buf := s.bufferFor(name)
	buf.Append(data)
	if name != s.Active {
		buf.Unread = true
	}
}

func (s *State) OnDropNotice(name string, bytesDropped uint64) {
	if _, ok := s.channelByName[name]; !ok {
		p := s.touchPending(name)
		p.dropBytes += bytesDropped
		return
	}
	s.bufferFor(name).AppendLine(dropNoticeLine(name, bytesDropped))
}

func (s *State) touchPending(name string) *pendingOutput {
	p, ok := s.pending[name]
	if !ok {
		p = &pendingOutput{name: name, arrived: time.Now()}
		s.pending[name] = p
	}
	return p
}

// PendingWindow is how long an unrecognized channel's events are held
// before being discarded (§4.6).
const PendingWindow = 250 * time.Millisecond

// ExpirePending drops any buffered events older than PendingWindow,
// called on each timer tick.
func (s *State) ExpirePending() {
	now := time.Now()
	for name, p := range s.pending {
		if now.Sub(p.arrived) > PendingWindow {
			delete(s.pending, name)
		}
	}
}

// CycleNext/CyclePrev rotate Active through Channels in creation order
// (§4.6). Exited channels are included unless removed from the list
// entirely (Nexus never removes a client-side entry on exit, only when
// the Ok response to an explicit :kill calls RemoveChannel).
func (s *State) CycleNext() {
	s.cycle(1)
}

func (s *State) CyclePrev() {
	s.cycle(-1)
}

func (s *State) cycle(dir int) {
	if len(s.Channels) == 0 {
		return
	}
	idx := 0
	for i, c := range s.Channels {
		if c.Name == s.Active {
			idx = i
			break
		}
	}
	idx = (idx + dir + len(s.Channels)) % len(s.Channels)
	s.Active = s.Channels[idx].Name
	if b, ok := s.Buffers[s.Active]; ok {
		b.Unread = false
	}
}

// RemoveChannel drops a killed channel from the client's model
// entirely, matching the server-side Remove (§3 invariant iii:
// subscriptions never retain removed-channel names either).
func (s *State) RemoveChannel(name string) {
	delete(s.channelByName, name)
	delete(s.Buffers, name)
	delete(s.pending, name)
	for i, c := range s.Channels {
		if c.Name == name {
			s.Channels = append(s.Channels[:i], s.Channels[i+1:]...)
			break
		}
	}
	if s.Active == name {
		s.Active = ""
		if len(s.Channels) > 0 {
			s.Active = s.Channels[0].Name
		}
	}
}

func dropNoticeLine(name string, n uint64) string {
	return "[... " + strconv.FormatUint(n, 10) + " bytes dropped on " + name + " ...]"
}
