package store

import (
	"sync"
	"time"

	"github.com/grovetools/framefill/pkg/alert"
	"github.com/grovetools/framefill/pkg/placement"
)

// maxAlerts bounds the alert history kept in State.
const maxAlerts = 20

// Store is the in-memory state store for the daemon.
// It is thread-safe and supports pub/sub for real-time updates.
type Store struct {
	mu          sync.RWMutex
	state       *State
	subscribers map[chan Update]struct{}
}

// New creates a new Store instance.
func New() *Store {
	return &Store{
		state: &State{
			Snapshot: Snapshot{Selection: map[string][]string{}},
		},
		subscribers: make(map[chan Update]struct{}),
	}
}

// Get returns a copy of the current state.
func (s *Store) Get() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st := *s.state
	st.Alerts = append([]alert.Alert(nil), s.state.Alerts...)
	if s.state.Collectors != nil {
		st.Collectors = make(map[string]CollectorStatus, len(s.state.Collectors))
		for k, v := range s.state.Collectors {
			st.Collectors[k] = v
		}
	}
	return st
}

// ApplyUpdate modifies the state and notifies subscribers.
func (s *Store) ApplyUpdate(u Update) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch u.Type {
	case UpdateCollections, UpdateReleased, UpdateRefreshed:
		if snap, ok := u.Payload.(Snapshot); ok {
			s.state.Snapshot = snap
		}
		if u.Type == UpdateReleased {
			s.state.Reconcile.Released += u.Scanned
		}
		if u.Type == UpdateRefreshed {
			s.state.Reconcile.Refreshed++
		}
	case UpdatePlacement:
		if report, ok := u.Payload.(placement.Report); ok {
			s.state.LastReport = &report
		}
	case UpdateAlert:
		if a, ok := u.Payload.(alert.Alert); ok {
			s.state.Alerts = append(s.state.Alerts, a)
			if len(s.state.Alerts) > maxAlerts {
				s.state.Alerts = s.state.Alerts[len(s.state.Alerts)-maxAlerts:]
			}
		}
	}

	s.broadcastLocked(u)
}

// Notify records an alert and pushes it to subscribers. It makes the store
// usable as an alert.Notifier.
func (s *Store) Notify(title, message string) {
	s.ApplyUpdate(Update{
		Type:    UpdateAlert,
		Source:  "session",
		Payload: alert.Alert{Title: title, Message: message},
	})
}

// SetCollectorStatus records the lifecycle state of a collector. Entering
// CollectorRunning after a failure counts as a restart.
func (s *Store) SetCollectorStatus(name string, state CollectorState, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.Collectors == nil {
		s.state.Collectors = make(map[string]CollectorStatus)
	}
	prev := s.state.Collectors[name]
	next := CollectorStatus{State: state, Restarts: prev.Restarts, LastError: prev.LastError, Since: time.Now()}
	if state == CollectorRunning && prev.State == CollectorFailed {
		next.Restarts++
	}
	if err != nil {
		next.LastError = err.Error()
	}
	s.state.Collectors[name] = next
}

// Subscribe creates a new subscription channel for state updates.
func (s *Store) Subscribe() chan Update {
	s.mu.Lock()
	defer s.mu.Unlock()
	ch := make(chan Update, 100) // Buffered
	s.subscribers[ch] = struct{}{}
	return ch
}

// Unsubscribe removes a subscription and closes its channel.
func (s *Store) Unsubscribe(ch chan Update) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.subscribers[ch]; !ok {
		return
	}
	delete(s.subscribers, ch)
	close(ch)
}

// BroadcastConfigReload sends a config reload notification to all subscribers.
func (s *Store) BroadcastConfigReload(file string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	s.broadcastLocked(Update{
		Type:    UpdateConfigReload,
		Source:  "config",
		Payload: file,
	})
}

func (s *Store) broadcastLocked(u Update) {
	for ch := range s.subscribers {
		select {
		case ch <- u:
		default:
			// Non-blocking send to prevent slow clients from stalling the daemon
		}
	}
}
