//go:build !windows

package monitor

import (
	"os"
	"os/signal"

	"golang.org/x/sys/unix"
)

// reapLimit bounds a single drain pass so a stuck wait status can
// never spin the goroutine at 100% CPU.
const reapLimit = 1000

// StartReaper installs a SIGCHLD listener whose only job is to drain
// already-exited children so nothing stays zombied. It never touches
// the registry: all bookkeeping happens in the synchronous
// reconciliation pass, where it can be done without signal-safety
// restrictions.
func StartReaper() (stop func()) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, unix.SIGCHLD)
	done := make(chan struct{})

	go func() {
		for {
			select {
			case <-done:
				return
			case <-sigCh:
				drainExited()
			}
		}
	}()

	return func() {
		signal.Stop(sigCh)
		close(done)
	}
}

func drainExited() {
	var status unix.WaitStatus
	for i := 0; i < reapLimit; i++ {
		pid, err := unix.Wait4(-1, &status, unix.WNOHANG, nil)
		if err != nil || pid <= 0 {
			return
		}
	}
}
