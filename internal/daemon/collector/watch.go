package collector

import (
	"context"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/grovetools/framefill/internal/daemon/store"
	"github.com/grovetools/framefill/logging"
	"github.com/grovetools/framefill/pkg/collection"
	"github.com/grovetools/framefill/pkg/folder"
)

// FolderWatchCollector reloads the active collection on filesystem events.
// It follows the active collection as the user switches tabs.
type FolderWatchCollector struct {
	reg      *collection.Registry
	debounce time.Duration
	logger   *logrus.Entry
}

// NewFolderWatchCollector creates a new FolderWatchCollector.
func NewFolderWatchCollector(reg *collection.Registry, debounce time.Duration) *FolderWatchCollector {
	return &FolderWatchCollector{
		reg:      reg,
		debounce: debounce,
		logger:   logging.NewLogger("collector.watch"),
	}
}

// Name returns the collector's name.
func (c *FolderWatchCollector) Name() string { return "folder-watch" }

// Run watches until ctx is cancelled.
func (c *FolderWatchCollector) Run(ctx context.Context, st *store.Store, updates chan<- store.Update) error {
	exts := make(map[string]bool)
	for _, e := range c.reg.Options().Extensions {
		exts[strings.ToLower(e)] = true
	}
	filter := func(name string) bool {
		return exts[strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))]
	}

	changed := make(chan string, 1)
	w, err := folder.NewWatcher(c.debounce, filter, func(dir string) {
		select {
		case changed <- dir:
		default:
		}
	})
	if err != nil {
		return err
	}
	go w.Run(ctx)

	sub := st.Subscribe()
	defer st.Unsubscribe(sub)

	follow := func() {
		dir := ""
		if active, ok := c.reg.Active(); ok {
			dir = active.Path
		}
		if err := w.Watch(dir); err != nil {
			c.logger.WithError(err).Debug("Failed to watch active folder")
		}
	}
	follow()

	for {
		select {
		case <-ctx.Done():
			return nil
		case u, ok := <-sub:
			if !ok {
				return nil
			}
			if u.Type == store.UpdateCollections {
				follow()
			}
		case dir := <-changed:
			active, ok := c.reg.Active()
			if !ok || active.Path != dir {
				continue
			}
			if _, err := c.reg.Refresh(ctx, active.ID); err != nil {
				c.logger.WithError(err).Debug("Refresh after folder event failed")
				continue
			}
			emit(ctx, updates, store.Update{
				Type:    store.UpdateRefreshed,
				Source:  c.Name(),
				Scanned: 1,
				Payload: store.SnapshotOf(c.reg),
			})
		}
	}
}
