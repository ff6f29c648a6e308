//go:build unix

package channel

import (
	"os"
	"syscall"
)

// signalProcessGroup signals the process group led by pid, matching
// the teacher's PTY.Close (syscall.Kill(-pid, ...)): the PTY's child is
// always its own process group leader (creack/pty sets Setsid), so
// negating the pid reaches any descendants it forked too.
func signalProcessGroup(pid int, sig os.Signal) error {
	s, ok := sig.(syscall.Signal)
	if !ok {
		s = syscall.SIGTERM
	}
	if err := syscall.Kill(-pid, s); err != nil {
		if err == syscall.ESRCH {
			return os.ErrProcessDone
		}
		return err
	}
	return nil
}
