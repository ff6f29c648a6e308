package client

import "bytes"

// ClientBuffer is a per-channel ring of lines with a hard cap (§3).
// Output chunks are not line-aligned, so the buffer holds a trailing
// partial line until a newline completes it.
type ClientBuffer struct {
	lines        []string
	cap          int
	partial      []byte
	ScrollOffset int
	Unread       bool
}

func NewClientBuffer(cap int) *ClientBuffer {
	if cap <= 0 {
		cap = 10000
	}
	return &ClientBuffer{cap: cap}
}

// Append feeds raw output bytes in, splitting on '\n' into complete
// lines and carrying any trailing partial line forward.
func (b *ClientBuffer) Append(data []byte) {
	buf := append(b.partial, data...)
	for {
		i := bytes.IndexByte(buf, '\n')
		if i < 0 {
			break
		}
		b.pushLine(string(buf[:i]))
		buf = buf[i+1:]
	}
	b.partial = append([]byte(nil), buf...)
}

// AppendLine inserts a synthetic line directly (e.g. a DropNotice
// marker), without going through the partial-line reassembly path.
func (b *ClientBuffer) AppendLine(line string) {
	b.pushLine(line)
}

func (b *ClientBuffer) pushLine(line string) {
	b.lines = append(b.lines, line)
	if len(b.lines) > b.cap {
		b.lines = b.lines[len(b.lines)-b.cap:]
	}
}

// Lines returns every complete line currently retained, oldest first.
func (b *ClientBuffer) Lines() []string {
	return append([]string(nil), b.lines...)
}

// Clear empties the buffer (the `:clear` command), leaving any
// in-flight partial line intact since it hasn't been observed yet.
func (b *ClientBuffer) Clear() {
	b.lines = nil
	b.ScrollOffset = 0
}
