package folder

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"

	"github.com/grovetools/framefill/errors"
	"github.com/grovetools/framefill/logging"
)

// DefaultDebounce is used when NewWatcher is given a non-positive window.
const DefaultDebounce = 500 * time.Millisecond

// Watcher reports changes to one directory at a time. Bursts of events are
// coalesced: onChange fires once the directory has been quiet for the
// debounce window.
type Watcher struct {
	watcher  *fsnotify.Watcher
	debounce time.Duration
	filter   func(name string) bool
	onChange func(dir string)
	logger   *logrus.Entry

	mu    sync.Mutex
	dir   string
	timer *time.Timer
}

// NewWatcher creates a watcher. filter, when set, decides which file names
// are worth reporting.
func NewWatcher(debounce time.Duration, filter func(name string) bool, onChange func(dir string)) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to create file watcher")
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Watcher{
		watcher:  fw,
		debounce: debounce,
		filter:   filter,
		onChange: onChange,
		logger:   logging.NewLogger("folder-watcher"),
	}, nil
}

// Watch switches the watched directory. An empty dir stops watching.
func (w *Watcher) Watch(dir string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if dir == w.dir {
		return nil
	}
	if w.dir != "" {
		_ = w.watcher.Remove(w.dir)
	}
	w.stopTimerLocked()
	w.dir = ""
	if dir == "" {
		return nil
	}
	if err := w.watcher.Add(dir); err != nil {
		return errors.IO(dir, err)
	}
	w.dir = dir
	w.logger.Debugf("Watching %s", dir)
	return nil
}

// Dir returns the watched directory.
func (w *Watcher) Dir() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.dir
}

// Run processes events until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) {
	defer w.Close()
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handle(event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.WithError(err).Debug("Watcher error")
		case <-ctx.Done():
			return
		}
	}
}

func (w *Watcher) handle(event fsnotify.Event) {
	if event.Op&(fsnotify.Create|fsnotify.Remove|fsnotify.Rename|fsnotify.Write) == 0 {
		return
	}
	if w.filter != nil && !w.filter(filepath.Base(event.Name)) {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.dir == "" || filepath.Dir(event.Name) != w.dir {
		return
	}
	if w.timer != nil {
		w.timer.Reset(w.debounce)
		return
	}
	dir := w.dir
	w.timer = time.AfterFunc(w.debounce, func() { w.fire(dir) })
}

func (w *Watcher) fire(dir string) {
	w.mu.Lock()
	current := w.dir
	w.timer = nil
	w.mu.Unlock()

	// The directory changed while the timer was pending.
	if current != dir {
		return
	}
	w.logger.Debugf("Folder changed: %s", dir)
	if w.onChange != nil {
		w.onChange(dir)
	}
}

func (w *Watcher) stopTimerLocked() {
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	w.mu.Lock()
	w.stopTimerLocked()
	w.mu.Unlock()
	return w.watcher.Close()
}
