package collector

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/grovetools/framefill/internal/daemon/store"
	"github.com/grovetools/framefill/logging"
	"github.com/grovetools/framefill/pkg/collection"
)

// FolderDriftCollector polls the active collection's folder and reloads the
// collection when its image count changes. The first observation after a
// collection is opened or activated is taken as the baseline.
type FolderDriftCollector struct {
	reg      *collection.Registry
	interval time.Duration
	busy     atomic.Bool
	logger   *logrus.Entry

	mu         sync.Mutex
	generation uint64
	activeID   string
	baseline   int
	primed     bool
}

// NewFolderDriftCollector creates a new FolderDriftCollector.
func NewFolderDriftCollector(reg *collection.Registry, interval time.Duration) *FolderDriftCollector {
	if interval <= 0 {
		interval = 4 * time.Second
	}
	return &FolderDriftCollector{
		reg:      reg,
		interval: interval,
		logger:   logging.NewLogger("collector.folder"),
	}
}

// Name returns the collector's name.
func (c *FolderDriftCollector) Name() string { return "folder-drift" }

// Run starts the polling loop.
func (c *FolderDriftCollector) Run(ctx context.Context, st *store.Store, updates chan<- store.Update) error {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	scan := func() {
		if !c.Scan(ctx) {
			return
		}
		emit(ctx, updates, store.Update{
			Type:    store.UpdateRefreshed,
			Source:  c.Name(),
			Scanned: 1,
			Payload: store.SnapshotOf(c.reg),
		})
	}

	scan()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			scan()
		}
	}
}

// Scan runs one pass and reports whether the active collection was reloaded.
// Listing errors are logged and treated as no change.
func (c *FolderDriftCollector) Scan(ctx context.Context) bool {
	if !c.busy.CompareAndSwap(false, true) {
		return false
	}
	defer c.busy.Store(false)

	active, ok := c.reg.Active()
	if !ok {
		c.reset()
		return false
	}
	generation := c.reg.Generation()

	count, err := c.reg.Probe(ctx, active.ID)
	if err != nil {
		c.logger.WithError(err).WithField("collection", active.ID).Debug("Folder probe failed")
		return false
	}

	c.mu.Lock()
	if !c.primed || c.generation != generation || c.activeID != active.ID {
		c.primed = true
		c.generation = generation
		c.activeID = active.ID
		c.baseline = count
		c.mu.Unlock()
		c.reg.ObserveCount(active.ID, count)
		return false
	}
	if count == c.baseline {
		c.mu.Unlock()
		return false
	}
	previous := c.baseline
	c.baseline = count
	c.mu.Unlock()

	if _, err := c.reg.Refresh(ctx, active.ID); err != nil {
		c.logger.WithError(err).WithField("collection", active.ID).Debug("Folder refresh failed")
		return false
	}
	c.logger.WithFields(logrus.Fields{
		"collection": active.ID,
		"before":     previous,
		"after":      count,
	}).Info("Reloaded collection after folder change")
	return true
}

func (c *FolderDriftCollector) reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.primed = false
	c.activeID = ""
}
