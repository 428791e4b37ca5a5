package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grovetools/framefill/internal/daemon/store"
)

// stubCollector emits one update, then waits for cancellation.
type stubCollector struct {
	name string
	u    store.Update
}

func (s *stubCollector) Name() string { return s.name }

func (s *stubCollector) Run(ctx context.Context, st *store.Store, updates chan<- store.Update) error {
	updates <- s.u
	<-ctx.Done()
	return nil
}

func TestEngineAppliesCollectorUpdates(t *testing.T) {
	st := store.New()
	eng := New(st, nil)
	eng.Register(&stubCollector{name: "stub", u: store.Update{
		Type:    store.UpdateReleased,
		Scanned: 2,
		Payload: store.Snapshot{Active: "c1"},
	}})
	assert.Equal(t, []string{"stub"}, eng.Collectors())
	assert.Same(t, st, eng.Store())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		eng.Start(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool {
		return st.Get().Reconcile.Released == 2
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, "c1", st.Get().Active)

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("engine did not stop")
	}
}

// flakyCollector fails until it has run failures times.
type flakyCollector struct {
	failures int
	runs     int
}

func (f *flakyCollector) Name() string { return "flaky" }

func (f *flakyCollector) Run(ctx context.Context, st *store.Store, updates chan<- store.Update) error {
	f.runs++
	if f.runs <= f.failures {
		return errors.New("listing failed")
	}
	<-ctx.Done()
	return nil
}

func TestEngineRestartsFailedCollector(t *testing.T) {
	st := store.New()
	eng := New(st, nil)
	eng.restartDelay = 5 * time.Millisecond
	eng.Register(&flakyCollector{failures: 2})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		eng.Start(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool {
		s := st.Get().Collectors["flaky"]
		return s.State == store.CollectorRunning && s.Restarts == 2
	}, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, "listing failed", st.Get().Collectors["flaky"].LastError)

	cancel()
	<-done
	assert.Equal(t, store.CollectorStopped, st.Get().Collectors["flaky"].State)
}
