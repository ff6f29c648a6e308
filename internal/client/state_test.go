package client

import "testing"

func TestOnChannelCreatedSetsFirstActive(t *testing.T) {
	s := NewState(100)
	s.OnChannelCreated("build", []string{"make"})
	if s.Active != "build" {
		t.Fatalf("expected first created channel to become active, got %q", s.Active)
	}
	s.OnChannelCreated("test", []string{"go", "test"})
	if s.Active != "build" {
		t.Fatalf("expected active to stay on first channel, got %q", s.Active)
	}
}

func TestOutputBeforeChannelCreatedIsBufferedThenFlushed(t *testing.T) {
	s := NewState(100)
	s.OnOutput("build", []byte("line one\n"))

	if _, ok := s.Buffers["build"]; ok {
		t.Fatal("expected no buffer yet for an unknown channel")
	}

	s.OnChannelCreated("build", nil)
	buf, ok := s.Buffers["build"]
	if !ok {
		t.Fatal("expected buffer to exist after ChannelCreated flush")
	}
	lines := buf.Lines()
	if len(lines) != 1 || lines[0] != "line one" {
		t.Fatalf("expected flushed pending output, got %v", lines)
	}
}

func TestExpirePendingDropsStaleEntries(t *testing.T) {
	s := NewState(100)
	s.OnOutput("ghost", []byte("x"))
	p := s.pending["ghost"]
	p.arrived = p.arrived.Add(-2 * PendingWindow)

	s.ExpirePending()
	if _, ok := s.pending["ghost"]; ok {
		t.Fatal("expected stale pending entry to be dropped")
	}
}

func TestOnChannelExitedMarksState(t *testing.T) {
	s := NewState(100)
	s.OnChannelCreated("build", nil)
	s.OnChannelExited("build", 2)

	cs := s.channelByName["build"]
	if !cs.Exited || cs.Code != 2 {
		t.Fatalf("expected exited state with code 2, got %+v", cs)
	}
}

func TestCycleNextWrapsAround(t *testing.T) {
	s := NewState(100)
	s.OnChannelCreated("a", nil)
	s.OnChannelCreated("b", nil)
	s.OnChannelCreated("c", nil)
	s.Active = "c"

	s.CycleNext()
	if s.Active != "a" {
		t.Fatalf("expected cycle to wrap to first channel, got %q", s.Active)
	}
	s.CyclePrev()
	if s.Active != "c" {
		t.Fatalf("expected cycle-prev to wrap back, got %q", s.Active)
	}
}

func TestRemoveChannelPicksNewActive(t *testing.T) {
	s := NewState(100)
	s.OnChannelCreated("a", nil)
	s.OnChannelCreated("b", nil)
	s.Active = "a"

	s.RemoveChannel("a")
	if _, ok := s.channelByName["a"]; ok {
		t.Fatal("expected channel to be fully removed")
	}
	if s.Active != "b" {
		t.Fatalf("expected active to fall back to remaining channel, got %q", s.Active)
	}
}

func TestOnDropNoticeAppendsMarkerLine(t *testing.T) {
	s := NewState(100)
	s.OnChannelCreated("build", nil)
	s.OnDropNotice("build", 4096)

	lines := s.Buffers["build"].Lines()
	if len(lines) != 1 {
		t.Fatalf("expected one marker line, got %v", lines)
	}
}
