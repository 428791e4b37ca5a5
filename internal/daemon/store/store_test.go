package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grovetools/framefill/pkg/alert"
	"github.com/grovetools/framefill/pkg/collection"
	"github.com/grovetools/framefill/pkg/placement"
)

func TestApplyUpdateSnapshot(t *testing.T) {
	st := New()
	ch := st.Subscribe()
	defer st.Unsubscribe(ch)

	snap := Snapshot{Active: "c1", Selection: map[string][]string{"c1": {"/a.jpg"}}, Generation: 3}
	st.ApplyUpdate(Update{Type: UpdateCollections, Source: "session", Payload: snap})

	got := st.Get()
	assert.Equal(t, "c1", got.Active)
	assert.Equal(t, uint64(3), got.Generation)

	u := <-ch
	assert.Equal(t, UpdateCollections, u.Type)
	assert.Equal(t, "session", u.Source)
}

func TestReconcileStats(t *testing.T) {
	st := New()
	st.ApplyUpdate(Update{Type: UpdateReleased, Scanned: 2, Payload: Snapshot{}})
	st.ApplyUpdate(Update{Type: UpdateReleased, Scanned: 1, Payload: Snapshot{}})
	st.ApplyUpdate(Update{Type: UpdateRefreshed, Payload: Snapshot{}})

	assert.Equal(t, ReconcileStats{Released: 3, Refreshed: 1}, st.Get().Reconcile)
}

func TestPlacementAndAlerts(t *testing.T) {
	st := New()
	st.ApplyUpdate(Update{Type: UpdatePlacement, Payload: placement.Report{Placed: []placement.Placed{{Key: "k"}}}})
	require.NotNil(t, st.Get().LastReport)
	assert.Len(t, st.Get().LastReport.Placed, 1)

	var n alert.Notifier = st
	for i := 0; i < maxAlerts+5; i++ {
		n.Notify("Title", "message")
	}
	assert.Len(t, st.Get().Alerts, maxAlerts)
}

func TestSlowSubscriberDoesNotBlock(t *testing.T) {
	st := New()
	ch := st.Subscribe()
	for i := 0; i < 250; i++ {
		st.BroadcastConfigReload("framefill.yml")
	}
	assert.Len(t, ch, 100)

	st.Unsubscribe(ch)
	st.Unsubscribe(ch)
	n := 0
	for range ch {
		n++
	}
	assert.Equal(t, 100, n, "buffered updates remain readable after close")
}

func TestSnapshotOf(t *testing.T) {
	reg := collection.NewRegistry(collection.Options{}, nil, nil)
	reg.Selection().Toggle("c", "k")

	snap := SnapshotOf(reg)
	assert.Empty(t, snap.Collections)
	assert.Equal(t, map[string][]string{"c": {"k"}}, snap.Selection)
}
