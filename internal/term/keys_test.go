package term

import (
	"strings"
	"testing"
	"time"
)

func collect(t *testing.T, input string, n int) []KeyEvent {
	t.Helper()
	stop := make(chan struct{})
	defer close(stop)
	events := ReadKeys(strings.NewReader(input), stop)

	var got []KeyEvent
	for len(got) < n {
		select {
		case ev, ok := <-events:
			if !ok {
				t.Fatalf("channel closed early, got %d of %d events", len(got), n)
			}
			got = append(got, ev)
		case <-time.After(time.Second):
			t.Fatalf("timed out waiting for events, got %d of %d", len(got), n)
		}
	}
	return got
}

func TestReadKeysPlainRunes(t *testing.T) {
	got := collect(t, "hi", 2)
	if got[0].Kind != KeyRune || got[0].Rune != 'h' {
		t.Fatalf("unexpected first event: %+v", got[0])
	}
	if got[1].Kind != KeyRune || got[1].Rune != 'i' {
		t.Fatalf("unexpected second event: %+v", got[1])
	}
}

func TestReadKeysControlChars(t *testing.T) {
	got := collect(t, "\r\x7f\x03\x04\t", 5)
	wantKinds := []KeyKind{KeyEnter, KeyBackspace, KeyCtrlC, KeyCtrlD, KeyTab}
	for i, w := range wantKinds {
		if got[i].Kind != w {
			t.Fatalf("event %d: expected kind %v, got %v", i, w, got[i].Kind)
		}
	}
}

func TestReadKeysArrowEscapes(t *testing.T) {
	got := collect(t, "\x1b[A\x1b[B\x1b[C\x1b[D", 4)
	wantKinds := []KeyKind{KeyUp, KeyDown, KeyRight, KeyLeft}
	for i, w := range wantKinds {
		if got[i].Kind != w {
			t.Fatalf("event %d: expected kind %v, got %v", i, w, got[i].Kind)
		}
	}
}

func TestReadKeysChannelCycleAndQuit(t *testing.T) {
	got := collect(t, "\x1c\x0e\x10", 3)
	wantKinds := []KeyKind{KeyCtrlBackslash, KeyCtrlN, KeyCtrlP}
	for i, w := range wantKinds {
		if got[i].Kind != w {
			t.Fatalf("event %d: expected kind %v, got %v", i, w, got[i].Kind)
		}
	}
}

func TestReadKeysMultiByteUTF8(t *testing.T) {
	got := collect(t, "é", 1)
	if got[0].Kind != KeyRune || got[0].Rune != 'é' {
		t.Fatalf("expected decoded UTF-8 rune, got %+v", got[0])
	}
}

func TestReadKeysUnknownEscape(t *testing.T) {
	got := collect(t, "\x1b[Z", 1)
	if got[0].Kind != KeyUnknown {
		t.Fatalf("expected KeyUnknown for unrecognized CSI sequence, got %+v", got[0])
	}
}
