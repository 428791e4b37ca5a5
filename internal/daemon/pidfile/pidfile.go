// Package pidfile guards against two daemons sharing one state directory.
package pidfile

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/grovetools/framefill/errors"
	"github.com/grovetools/framefill/pkg/process"
)

// Acquire creates path holding the current PID. The file is created
// exclusively; an existing file is only replaced when its process is gone.
func Acquire(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.IO(filepath.Dir(path), err)
	}

	for attempt := 0; attempt < 2; attempt++ {
		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if err == nil {
			_, werr := f.WriteString(strconv.Itoa(os.Getpid()))
			if cerr := f.Close(); werr == nil {
				werr = cerr
			}
			if werr != nil {
				_ = os.Remove(path)
				return errors.IO(path, werr)
			}
			return nil
		}
		if !os.IsExist(err) {
			return errors.IO(path, err)
		}

		pid, rerr := Read(path)
		if rerr == nil && pid != os.Getpid() && process.IsProcessAlive(pid) {
			return errors.New(errors.ErrCodeInternal, fmt.Sprintf("daemon already running with PID %d", pid)).
				WithDetail("pid", pid).
				WithDetail("pid_file", path)
		}
		if rerr == nil && pid == os.Getpid() {
			return errors.New(errors.ErrCodeInternal, "pid file already held by this process").
				WithDetail("pid_file", path)
		}
		// Stale or unreadable: remove and retry once.
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return errors.IO(path, err)
		}
	}
	return errors.New(errors.ErrCodeInternal, "could not acquire pid file").WithDetail("pid_file", path)
}

// Release removes the PID file. A missing file is not an error.
func Release(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return errors.IO(path, err)
	}
	return nil
}

// Read returns the PID stored in path.
func Read(path string) (int, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(content)))
	if err != nil {
		return 0, fmt.Errorf("malformed pid file %s: %w", path, err)
	}
	return pid, nil
}

// IsRunning reports whether the daemon recorded in path is alive.
func IsRunning(path string) (bool, int, error) {
	pid, err := Read(path)
	if os.IsNotExist(err) {
		return false, 0, nil
	}
	if err != nil {
		return false, 0, err
	}
	return process.IsProcessAlive(pid), pid, nil
}
