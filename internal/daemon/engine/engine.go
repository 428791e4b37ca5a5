// Package engine runs the daemon's background collectors and funnels their
// updates into the store.
package engine

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/grovetools/framefill/internal/daemon/collector"
	"github.com/grovetools/framefill/internal/daemon/store"
	"github.com/grovetools/framefill/logging"
)

const (
	minRestartDelay = time.Second
	maxRestartDelay = 30 * time.Second
)

// Engine manages and runs all collectors.
type Engine struct {
	store        *store.Store
	collectors   []collector.Collector
	logger       *logrus.Entry
	restartDelay time.Duration
}

// New creates an engine publishing into st.
func New(st *store.Store, logger *logrus.Entry) *Engine {
	if logger == nil {
		logger = logging.NewLogger("engine")
	}
	return &Engine{store: st, logger: logger, restartDelay: minRestartDelay}
}

// Register adds a collector. Call before Start.
func (e *Engine) Register(c collector.Collector) {
	e.collectors = append(e.collectors, c)
}

// Collectors returns the registered collector names.
func (e *Engine) Collectors() []string {
	names := make([]string, len(e.collectors))
	for i, c := range e.collectors {
		names[i] = c.Name()
	}
	return names
}

// Store returns the engine's state store.
func (e *Engine) Store() *store.Store {
	return e.store
}

// Start runs every collector and applies their updates until ctx is
// cancelled. A collector that fails is restarted with exponential backoff.
func (e *Engine) Start(ctx context.Context) {
	updates := make(chan store.Update, 100)
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		for {
			select {
			case <-ctx.Done():
				return nil
			case u := <-updates:
				e.store.ApplyUpdate(u)
			}
		}
	})

	for _, c := range e.collectors {
		c := c
		g.Go(func() error {
			e.supervise(ctx, c, updates)
			return nil
		})
	}

	_ = g.Wait()
}

func (e *Engine) supervise(ctx context.Context, c collector.Collector, updates chan<- store.Update) {
	log := e.logger.WithField("collector", c.Name())
	delay := e.restartDelay

	for {
		log.Info("Starting collector")
		e.store.SetCollectorStatus(c.Name(), store.CollectorRunning, nil)
		err := c.Run(ctx, e.store, updates)
		if ctx.Err() != nil {
			e.store.SetCollectorStatus(c.Name(), store.CollectorStopped, nil)
			return
		}
		if err == nil {
			log.Info("Collector finished")
			e.store.SetCollectorStatus(c.Name(), store.CollectorStopped, nil)
			return
		}

		log.WithError(err).WithField("retry_in", delay).Error("Collector failed")
		e.store.SetCollectorStatus(c.Name(), store.CollectorFailed, err)
		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}
		delay *= 2
		if delay > maxRestartDelay {
			delay = maxRestartDelay
		}
	}
}
