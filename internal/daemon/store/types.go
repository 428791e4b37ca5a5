// Package store provides the in-memory state store for the framefill daemon.
package store

import (
	"time"

	"github.com/grovetools/framefill/pkg/alert"
	"github.com/grovetools/framefill/pkg/collection"
	"github.com/grovetools/framefill/pkg/placement"
)

// Snapshot is a consistent view of the open collections and the selection.
type Snapshot struct {
	Collections []collection.Collection `json:"collections"`
	Active      string                  `json:"active,omitempty"`
	Selection   map[string][]string     `json:"selection"`
	Generation  uint64                  `json:"generation"`
}

// SnapshotOf captures the registry and its selection model.
func SnapshotOf(reg *collection.Registry) Snapshot {
	return Snapshot{
		Collections: reg.List(),
		Active:      reg.ActiveID(),
		Selection:   reg.Selection().Snapshot(),
		Generation:  reg.Generation(),
	}
}

// ReconcileStats counts what the drift collectors changed.
type ReconcileStats struct {
	Released  int `json:"released"`
	Refreshed int `json:"refreshed"`
}

// CollectorState is the lifecycle phase of a background collector.
type CollectorState string

const (
	CollectorRunning CollectorState = "running"
	CollectorFailed  CollectorState = "failed"
	CollectorStopped CollectorState = "stopped"
)

// CollectorStatus is what the engine last reported for a collector.
type CollectorStatus struct {
	State     CollectorState `json:"state"`
	LastError string         `json:"last_error,omitempty"`
	Restarts  int            `json:"restarts"`
	Since     time.Time      `json:"since"`
}

// State represents the complete world view of the daemon.
type State struct {
	Snapshot
	LastReport *placement.Report          `json:"last_report,omitempty"`
	Reconcile  ReconcileStats             `json:"reconcile"`
	Collectors map[string]CollectorStatus `json:"collectors,omitempty"`
	Alerts     []alert.Alert              `json:"alerts,omitempty"`
}

// UpdateType defines what kind of data changed.
type UpdateType string

const (
	// UpdateCollections carries a Snapshot after a user action.
	UpdateCollections UpdateType = "collections"
	// UpdateReleased carries a Snapshot after document drift released resources.
	UpdateReleased UpdateType = "released"
	// UpdateRefreshed carries a Snapshot after folder drift reloaded the active collection.
	UpdateRefreshed UpdateType = "refreshed"
	// UpdatePlacement carries the placement.Report of a finished batch.
	UpdatePlacement    UpdateType = "placement"
	UpdateAlert        UpdateType = "alert"
	UpdateConfigReload UpdateType = "config_reload"
)

// Update represents a change to the state.
type Update struct {
	Type    UpdateType
	Source  string // Which collector or session action sent this update
	Scanned int    // Number of items the sender changed
	Payload interface{}
}
