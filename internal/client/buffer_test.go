package client

import "testing"

func TestAppendSplitsOnNewlineAndCarriesPartial(t *testing.T) {
	b := NewClientBuffer(100)
	b.Append([]byte("hello "))
	b.Append([]byte("world\npartial"))

	lines := b.Lines()
	if len(lines) != 1 || lines[0] != "hello world" {
		t.Fatalf("expected one completed line, got %v", lines)
	}

	b.Append([]byte(" line\n"))
	lines = b.Lines()
	if len(lines) != 2 || lines[1] != "partial line" {
		t.Fatalf("expected partial line to be carried across Append calls, got %v", lines)
	}
}

func TestBufferCapEvictsOldest(t *testing.T) {
	b := NewClientBuffer(3)
	for i := 0; i < 5; i++ {
		b.AppendLine(string(rune('a' + i)))
	}
	lines := b.Lines()
	if len(lines) != 3 {
		t.Fatalf("expected cap of 3 lines, got %d", len(lines))
	}
	if lines[0] != "c" || lines[2] != "e" {
		t.Fatalf("expected oldest lines evicted, got %v", lines)
	}
}

func TestClearEmptiesLines(t *testing.T) {
	b := NewClientBuffer(10)
	b.AppendLine("one")
	b.Clear()
	if len(b.Lines()) != 0 {
		t.Fatal("expected Clear to empty the buffer")
	}
}
