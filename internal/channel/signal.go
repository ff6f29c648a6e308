package channel

import (
	"os"
	"syscall"
)

func hangupSignal() os.Signal { return syscall.SIGHUP }
