package daemon

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"

	"github.com/grovetools/framefill/config"
	"github.com/grovetools/framefill/logging"
)

// ReloadFunc receives the reloaded configuration. err is set when the
// changed file no longer loads or validates; cfg is nil in that case.
type ReloadFunc func(file string, cfg *config.Config, err error)

// ConfigWatcher watches the global and project config directories and
// reloads the configuration when a framefill config file changes.
type ConfigWatcher struct {
	watcher      *fsnotify.Watcher
	startDir     string
	debounce     time.Duration
	lastChange   time.Time
	mu           sync.Mutex
	logger       *logrus.Entry
	onReload     ReloadFunc
	targetToLink map[string]string // symlink target -> link path
}

// NewConfigWatcher watches the global config dir and startDir. Changes
// arriving within debounce of the previous one are dropped.
func NewConfigWatcher(startDir string, debounce time.Duration, onReload ReloadFunc) (*ConfigWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if debounce <= 0 {
		debounce = 100 * time.Millisecond
	}

	w := &ConfigWatcher{
		watcher:      watcher,
		startDir:     startDir,
		debounce:     debounce,
		logger:       logging.NewLogger("config-watcher"),
		onReload:     onReload,
		targetToLink: make(map[string]string),
	}

	dirs := []string{startDir}
	if global := config.GlobalConfigPath(); global != "" {
		dirs = append(dirs, filepath.Dir(global))
	}
	watched := make(map[string]bool)
	for _, dir := range dirs {
		if dir == "" || watched[dir] {
			continue
		}
		if err := watcher.Add(dir); err != nil {
			w.logger.WithError(err).WithField("dir", dir).Debug("Config directory not watched")
			continue
		}
		watched[dir] = true
		w.watchLinkTargets(dir, watched)
	}
	if len(watched) == 0 {
		watcher.Close()
		return nil, os.ErrNotExist
	}
	return w, nil
}

// watchLinkTargets adds the directories of symlinked config files, since
// fsnotify does not follow symlinks.
func (w *ConfigWatcher) watchLinkTargets(dir string, watched map[string]bool) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}
	for _, entry := range entries {
		if !isConfigFile(entry.Name()) || entry.Type()&os.ModeSymlink == 0 {
			continue
		}
		link := filepath.Join(dir, entry.Name())
		target, err := filepath.EvalSymlinks(link)
		if err != nil {
			w.logger.WithError(err).Warnf("Failed to resolve symlink %s", entry.Name())
			continue
		}
		w.targetToLink[target] = link

		targetDir := filepath.Dir(target)
		if watched[targetDir] {
			continue
		}
		if err := w.watcher.Add(targetDir); err != nil {
			w.logger.WithError(err).Warnf("Failed to watch symlink target dir %s", targetDir)
			continue
		}
		watched[targetDir] = true
		w.logger.Debugf("Watching symlink target directory: %s", targetDir)
	}
}

// Start begins watching for config changes. It blocks until the context is cancelled.
func (w *ConfigWatcher) Start(ctx context.Context) {
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.logger.Debugf("fsnotify event: %s op=%v", event.Name, event.Op)

			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 || !isConfigFile(event.Name) {
				continue
			}
			name := event.Name
			if link, ok := w.targetToLink[name]; ok {
				name = link
			}
			w.handleChange(name)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Errorf("Watcher error: %v", err)
		case <-ctx.Done():
			w.watcher.Close()
			return
		}
	}
}

// handleChange reloads the configuration with debouncing.
func (w *ConfigWatcher) handleChange(file string) {
	w.mu.Lock()
	elapsed := time.Since(w.lastChange)
	if elapsed < w.debounce {
		w.mu.Unlock()
		w.logger.Debugf("Debounced: %s (only %v since last change)", filepath.Base(file), elapsed)
		return
	}
	w.lastChange = time.Now()
	w.mu.Unlock()

	w.logger.Infof("Config changed: %s", filepath.Base(file))

	cfg, err := config.LoadFrom(w.startDir)
	if err != nil {
		w.logger.WithError(err).Warn("Reloaded config is invalid; keeping the running one")
		cfg = nil
	}
	if w.onReload != nil {
		w.onReload(file, cfg, err)
	}
}

// Close stops the watcher and releases resources.
func (w *ConfigWatcher) Close() error {
	return w.watcher.Close()
}

func isConfigFile(name string) bool {
	base := filepath.Base(name)
	if !strings.HasPrefix(base, "framefill") {
		return false
	}
	switch filepath.Ext(base) {
	case ".yml", ".yaml", ".toml":
		return true
	}
	return false
}
