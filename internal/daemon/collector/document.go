package collector

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/grovetools/framefill/internal/daemon/store"
	"github.com/grovetools/framefill/logging"
	"github.com/grovetools/framefill/pkg/collection"
	"github.com/grovetools/framefill/pkg/document"
	"github.com/grovetools/framefill/pkg/selection"
)

// DocumentDriftCollector releases resources whose placed element was
// deleted from the host document. It only reads the document.
type DocumentDriftCollector struct {
	reg      *collection.Registry
	doc      document.Document
	interval time.Duration
	busy     atomic.Bool
	logger   *logrus.Entry
}

// NewDocumentDriftCollector creates a new DocumentDriftCollector.
func NewDocumentDriftCollector(reg *collection.Registry, doc document.Document, interval time.Duration) *DocumentDriftCollector {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	return &DocumentDriftCollector{
		reg:      reg,
		doc:      doc,
		interval: interval,
		logger:   logging.NewLogger("collector.document"),
	}
}

// Name returns the collector's name.
func (c *DocumentDriftCollector) Name() string { return "document-drift" }

// Run starts the polling loop.
func (c *DocumentDriftCollector) Run(ctx context.Context, st *store.Store, updates chan<- store.Update) error {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	scan := func() {
		released, ok := c.Scan(ctx)
		if !ok || len(released) == 0 {
			return
		}
		emit(ctx, updates, store.Update{
			Type:    store.UpdateReleased,
			Source:  c.Name(),
			Scanned: len(released),
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

// Scan runs one pass and returns the released resources. ok is false when
// the pass was skipped because another one is still running.
func (c *DocumentDriftCollector) Scan(ctx context.Context) (released []selection.Entry, ok bool) {
	if !c.busy.CompareAndSwap(false, true) {
		return nil, false
	}
	defer c.busy.Store(false)

	ids, err := c.doc.ElementIDs(ctx)
	if err != nil {
		// The host may be busy or gone; try again next tick.
		c.logger.WithError(err).Debug("Failed to enumerate document elements")
		return nil, true
	}
	present := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		present[id] = struct{}{}
	}

	released = c.reg.ReleaseBindings(func(id string) bool {
		_, ok := present[id]
		return ok
	})
	if len(released) > 0 {
		c.logger.WithField("released", len(released)).Info("Released resources removed from the document")
	}
	return released, true
}
