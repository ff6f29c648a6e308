// Package term implements the Terminal I/O Adapter (C7): raw-mode
// enter/exit, resize detection, and a keyboard byte decoder. It is
// deliberately thin — rendering and layout are external to this
// spec — and exposes only the contract C6 needs: a queue of
// keyboard/resize events, and a guarantee that cooked mode is
// restored on any exit path.
package term

import (
	"fmt"
	"os"

	"golang.org/x/term"
)

// RawTerminal owns the transition into and out of raw mode for one fd,
// following the teacher-adjacent pattern of MakeRaw/defer Restore.
type RawTerminal struct {
	fd       int
	oldState *term.State
}

// EnterRaw puts fd into raw mode. If fd is not a terminal (e.g. piped
// input in tests), it is a no-op and Restore is a no-op too.
func EnterRaw(fd int) (*RawTerminal, error) {
	if !term.IsTerminal(fd) {
		return &RawTerminal{fd: fd}, nil
	}
	old, err := term.MakeRaw(fd)
	if err != nil {
		return nil, fmt.Errorf("term: enter raw mode: %w", err)
	}
	return &RawTerminal{fd: fd, oldState: old}, nil
}

// Restore returns the terminal to its prior (cooked) mode. Safe to
// call multiple times and safe to call from a deferred panic handler.
func (t *RawTerminal) Restore() {
	if t == nil || t.oldState == nil {
		return
	}
	term.Restore(t.fd, t.oldState)
	t.oldState = nil
}

// Size returns the current terminal window size, falling back to a
// conservative 80x24 when fd is not a terminal.
func Size(fd int) (cols, rows int) {
	if !term.IsTerminal(fd) {
		return 80, 24
	}
	w, h, err := term.GetSize(fd)
	if err != nil {
		return 80, 24
	}
	return w, h
}

// Stdin is the fd C7 reads keyboard bytes from and watches for resize.
func Stdin() int { return int(os.Stdin.Fd()) }
