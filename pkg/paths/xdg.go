// Package paths provides XDG-compliant path resolution for framefill.
//
// Resolution order:
// 1. FRAMEFILL_HOME (portable root) → $FRAMEFILL_HOME/{config,state}
// 2. XDG env vars → $XDG_*_HOME/framefill
// 3. Platform defaults → ~/.config/framefill, ~/.local/state/framefill
package paths

import (
	"os"
	"path/filepath"
)

const appName = "framefill"

// base resolves one XDG base directory.
func base(portable, xdgVar string, fallback ...string) string {
	if home := os.Getenv("FRAMEFILL_HOME"); home != "" {
		return filepath.Join(home, portable)
	}
	if dir := os.Getenv(xdgVar); dir != "" {
		return filepath.Join(dir, appName)
	}
	if homeDir, err := os.UserHomeDir(); err == nil {
		parts := append([]string{homeDir}, fallback...)
		return filepath.Join(append(parts, appName)...)
	}
	return ""
}

// ConfigDir returns the configuration directory, where the global
// framefill.yml lives.
func ConfigDir() string {
	return base("config", "XDG_CONFIG_HOME", ".config")
}

// StateDir returns the state directory.
// Used for the daemon pid file and logs.
func StateDir() string {
	return base("state", "XDG_STATE_HOME", ".local", "state")
}

// LogDir returns the default directory for log files.
func LogDir() string {
	dir := StateDir()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, "logs")
}

// PidFilePath returns the path to the daemon PID file.
func PidFilePath() string {
	return filepath.Join(StateDir(), "framefilld.pid")
}

// EnsureDirs creates the framefill directories if they don't exist.
func EnsureDirs() error {
	for _, dir := range []string{ConfigDir(), StateDir(), LogDir()} {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return nil
}
