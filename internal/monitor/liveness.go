//go:build !windows

package monitor

import (
	"errors"

	"github.com/shirou/gopsutil/v3/process"
	"golang.org/x/sys/unix"
)

// processAlive is a non-destructive existence check.
func processAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	if exists, err := process.PidExists(int32(pid)); err == nil {
		return exists
	}
	// Fall back to the classic kill-0 probe; EPERM still means the
	// process exists, it just isn't ours.
	err := unix.Kill(pid, 0)
	return err == nil || errors.Is(err, unix.EPERM)
}

// terminate force-kills a session's process. Termination of an
// already-dead process is not an error.
func terminate(pid int) {
	if pid <= 0 {
		return
	}
	if err := unix.Kill(pid, 0); err == nil || errors.Is(err, unix.EPERM) {
		_ = unix.Kill(pid, unix.SIGKILL)
	}
}
