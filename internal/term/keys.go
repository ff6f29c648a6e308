package term

import (
	"bufio"
	"io"
)

// KeyKind identifies the class of a decoded keypress. Raw mode hands
// us a byte stream with no line editing, so even ordinary character
// input has to be decoded here rather than left to the OS tty layer.
type KeyKind int

const (
	KeyRune KeyKind = iota
	KeyEnter
	KeyBackspace
	KeyLeft
	KeyRight
	KeyUp
	KeyDown
	KeyCtrlC
	KeyCtrlD
	KeyCtrlBackslash
	KeyCtrlN
	KeyCtrlP
	KeyTab
	KeyUnknown
)

type KeyEvent struct {
	Kind KeyKind
	Rune rune
}

// ReadKeys decodes r's byte stream into KeyEvents and sends them on
// the returned channel until r returns an error (EOF, closed fd, or
// the read loop is told to stop via stop). The channel is closed on
// exit.
func ReadKeys(r io.Reader, stop <-chan struct{}) <-chan KeyEvent {
	out := make(chan KeyEvent, 16)
	br := bufio.NewReader(r)

	go func() {
		defer close(out)
		for {
			ev, ok := readOne(br)
			if !ok {
				return
			}
			select {
			case out <- ev:
			case <-stop:
				return
			}
		}
	}()

	return out
}

func readOne(br *bufio.Reader) (KeyEvent, bool) {
	b, err := br.ReadByte()
	if err != nil {
		return KeyEvent{}, false
	}

	switch b {
	case '\r', '\n':
		return KeyEvent{Kind: KeyEnter}, true
	case 0x7f, 0x08:
		return KeyEvent{Kind: KeyBackspace}, true
	case 0x03:
		return KeyEvent{Kind: KeyCtrlC}, true
	case 0x04:
		return KeyEvent{Kind: KeyCtrlD}, true
	case 0x1c:
		return KeyEvent{Kind: KeyCtrlBackslash}, true
	case 0x0e:
		return KeyEvent{Kind: KeyCtrlN}, true
	case 0x10:
		return KeyEvent{Kind: KeyCtrlP}, true
	case '\t':
		return KeyEvent{Kind: KeyTab}, true
	case 0x1b:
		return readEscape(br)
	}

	if b < 0x80 {
		return KeyEvent{Kind: KeyRune, Rune: rune(b)}, true
	}

	// Multi-byte UTF-8: reassemble via UnreadByte + rune decode.
	br.UnreadByte()
	r, _, err := br.ReadRune()
	if err != nil {
		return KeyEvent{}, false
	}
	return KeyEvent{Kind: KeyRune, Rune: r}, true
}

// readEscape decodes the common CSI arrow-key sequences (ESC [ A/B/C/D).
// Anything else is reported as KeyUnknown rather than guessed at.
func readEscape(br *bufio.Reader) (KeyEvent, bool) {
	b1, err := br.ReadByte()
	if err != nil {
		return KeyEvent{}, false
	}
	if b1 != '[' {
		return KeyEvent{Kind: KeyUnknown}, true
	}
	b2, err := br.ReadByte()
	if err != nil {
		return KeyEvent{}, false
	}
	switch b2 {
	case 'A':
		return KeyEvent{Kind: KeyUp}, true
	case 'B':
		return KeyEvent{Kind: KeyDown}, true
	case 'C':
		return KeyEvent{Kind: KeyRight}, true
	case 'D':
		return KeyEvent{Kind: KeyLeft}, true
	default:
		return KeyEvent{Kind: KeyUnknown}, true
	}
}
