package term

import (
	"os"
	"os/signal"
	"syscall"

	mobyterm "github.com/moby/term"
)

// ResizeEvent carries a new window size, delivered to C6's event queue.
type ResizeEvent struct {
	Rows uint16
	Cols uint16
}

// WatchResize subscribes to SIGWINCH and emits the terminal's current
// size on each one (plus an initial size on start), until stop is
// closed. Uses moby/term's Winsize ioctl wrapper rather than x/term's
// GetSize so the poll and the raw-mode fd come from the same library
// family the teacher's Docker integration already depends on.
func WatchResize(fd int, stop <-chan struct{}) <-chan ResizeEvent {
	out := make(chan ResizeEvent, 1)

	if ws, err := mobyterm.GetWinsize(uintptr(fd)); err == nil {
		out <- ResizeEvent{Rows: ws.Height, Cols: ws.Width}
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGWINCH)

	go func() {
		defer signal.Stop(sigCh)
		defer close(out)
		for {
			select {
			case <-stop:
				return
			case <-sigCh:
				ws, err := mobyterm.GetWinsize(uintptr(fd))
				if err != nil {
					continue
				}
				select {
				case out <- ResizeEvent{Rows: ws.Height, Cols: ws.Width}:
				case <-stop:
					return
				}
			}
		}
	}()

	return out
}
