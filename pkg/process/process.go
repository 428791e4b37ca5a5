// Package process inspects and signals the framefill daemon process.
package process

import (
	"os"
	"syscall"
	"time"
)

// IsProcessAlive reports whether a process with the given PID exists.
// Signal 0 probes for existence; EPERM still means the process is alive.
func IsProcessAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	p, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	err = p.Signal(syscall.Signal(0))
	return err == nil || os.IsPermission(err)
}

// Terminate sends SIGTERM to pid and waits up to timeout for it to exit.
// It returns true once the process is gone.
func Terminate(pid int, timeout time.Duration) (bool, error) {
	if !IsProcessAlive(pid) {
		return true, nil
	}
	p, err := os.FindProcess(pid)
	if err != nil {
		return false, err
	}
	if err := p.Signal(syscall.SIGTERM); err != nil {
		return false, err
	}

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if !IsProcessAlive(pid) {
			return true, nil
		}
		time.Sleep(50 * time.Millisecond)
	}
	return !IsProcessAlive(pid), nil
}
