package client

import (
	"fmt"
	"io"
	"strings"
)

// TextRenderer is a minimal Renderer: it prints the active channel's
// most recent lines plus a one-line status bar. Actual layout and
// visual polish are external to this spec (§1); this exists only so
// the engine has a working default outside of tests.
type TextRenderer struct {
	w    io.Writer
	Rows int
}

func NewTextRenderer(w io.Writer) *TextRenderer {
	return &TextRenderer{w: w, Rows: 24}
}

func (r *TextRenderer) Redraw(s *State) {
	fmt.Fprint(r.w, "\x1b[2J\x1b[H")

	if s.Active != "" {
		if buf, ok := s.Buffers[s.Active]; ok {
			lines := buf.Lines()
			start := 0
			if len(lines) > r.Rows-2 {
				start = len(lines) - (r.Rows - 2)
			}
			for _, line := range lines[start:] {
				fmt.Fprintln(r.w, line)
			}
		}
	}

	fmt.Fprintln(r.w, strings.Repeat("-", 40))
	fmt.Fprintln(r.w, r.statusLine(s))
	fmt.Fprintf(r.w, "[%s] %s", s.Active, s.Editor.Text())
}

func (r *TextRenderer) statusLine(s *State) string {
	var parts []string
	for _, c := range s.Channels {
		label := c.Name
		if c.Exited {
			label += "!"
		}
		if buf, ok := s.Buffers[c.Name]; ok && buf.Unread && c.Name != s.Active {
			label += "*"
		}
		if c.Name == s.Active {
			label = "[" + label + "]"
		}
		parts = append(parts, label)
	}
	status := strings.Join(parts, " ")
	for _, n := range s.Notifications.Active() {
		status += "  " + n.Text
	}
	return status
}
