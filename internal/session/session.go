// Package session composes the collection registry, the selection model and
// the placement orchestrator behind the actions a user interface triggers.
package session

import (
	"context"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/grovetools/framefill/config"
	"github.com/grovetools/framefill/errors"
	"github.com/grovetools/framefill/internal/daemon/store"
	"github.com/grovetools/framefill/logging"
	"github.com/grovetools/framefill/pkg/alert"
	"github.com/grovetools/framefill/pkg/cache"
	"github.com/grovetools/framefill/pkg/collection"
	"github.com/grovetools/framefill/pkg/document"
	"github.com/grovetools/framefill/pkg/folder"
	"github.com/grovetools/framefill/pkg/placement"
	"github.com/grovetools/framefill/pkg/preview"
)

// Deps are the collaborators of a Session. Document and Tokens are
// required; the rest default to no-ops or fresh instances.
type Deps struct {
	Document document.Document
	Tokens   document.TokenIssuer
	Notifier alert.Notifier
	Store    *store.Store
	Cache    *cache.Cache[*preview.Preview]
}

// Modifiers are the keys held during a click.
type Modifiers struct {
	Toggle bool `json:"toggle"`
	Range  bool `json:"range"`
}

// Session is the single entry point for user actions. It is safe for
// concurrent use; placement batches run one at a time.
type Session struct {
	reg      *collection.Registry
	orc      *placement.Orchestrator
	doc      document.Document
	notifier alert.Notifier
	st       *store.Store
	exclude  []string
	logger   *logrus.Entry

	placing sync.Mutex
}

// New builds a session from configuration.
func New(cfg *config.Config, deps Deps) (*Session, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if deps.Document == nil || deps.Tokens == nil {
		return nil, errors.New(errors.ErrCodeInternal, "session requires a document and a token issuer")
	}
	opts, err := placement.OptionsFromConfig(cfg.Placement)
	if err != nil {
		return nil, err
	}
	if deps.Notifier == nil {
		deps.Notifier = alert.NewLogNotifier()
	}

	reg := collection.NewRegistry(collection.OptionsFromConfig(cfg.Collections), deps.Cache, nil)
	return &Session{
		reg:      reg,
		orc:      placement.New(reg, deps.Document, deps.Tokens, opts),
		doc:      deps.Document,
		notifier: deps.Notifier,
		st:       deps.Store,
		exclude:  cfg.Collections.Exclude,
		logger:   logging.NewLogger("session"),
	}, nil
}

// Registry returns the collection registry.
func (s *Session) Registry() *collection.Registry { return s.reg }

// OpenFolder opens dir as a new collection.
func (s *Session) OpenFolder(ctx context.Context, dir string) (collection.Collection, error) {
	f, err := folder.Open(dir, s.exclude)
	if err != nil {
		return collection.Collection{}, s.fail("Open folder", err)
	}
	c, err := s.reg.Open(ctx, f)
	if err != nil {
		return collection.Collection{}, s.fail("Open folder", err)
	}
	s.publish("open")
	return c, nil
}

// Activate switches the active collection.
func (s *Session) Activate(ctx context.Context, id string) (collection.Collection, error) {
	c, err := s.reg.Activate(ctx, id)
	if err != nil {
		return collection.Collection{}, s.fail("Switch folder", err)
	}
	s.publish("activate")
	return c, nil
}

// Close closes a collection.
func (s *Session) Close(id string) error {
	if err := s.reg.Close(id); err != nil {
		return s.fail("Close folder", err)
	}
	s.publish("close")
	return nil
}

// Refresh reloads a collection; an empty id means the active one.
func (s *Session) Refresh(ctx context.Context, id string) (collection.Collection, error) {
	if id == "" {
		id = s.reg.ActiveID()
	}
	c, err := s.reg.Refresh(ctx, id)
	if err != nil {
		return collection.Collection{}, s.fail("Refresh folder", err)
	}
	s.publish("refresh")
	return c, nil
}

// Click applies a click on a resource: plain replaces the selection, the
// toggle modifier flips membership and the range modifier extends from
// the anchor.
func (s *Session) Click(collectionID, key string, mods Modifiers) error {
	c, err := s.reg.Get(collectionID)
	if err != nil {
		return s.fail("Select", err)
	}
	if _, ok := c.Find(key); !ok {
		return s.fail("Select", errors.NotFound("resource", key))
	}

	sel := s.reg.Selection()
	switch {
	case mods.Range:
		sel.RangeSelect(collectionID, key, c.Keys())
	case mods.Toggle:
		sel.Toggle(collectionID, key)
	default:
		sel.Replace(collectionID, key)
	}
	s.publish("click")
	return nil
}

// Step moves the selection by delta positions in display order. With no
// anchor the first resource is selected. It returns the key now focused.
func (s *Session) Step(collectionID string, delta int, extend bool) (string, bool, error) {
	c, err := s.reg.Get(collectionID)
	if err != nil {
		return "", false, s.fail("Select", err)
	}
	keys := c.Keys()
	if len(keys) == 0 {
		return "", false, nil
	}

	sel := s.reg.Selection()
	from := sel.Anchor(collectionID)
	if from == "" {
		sel.Replace(collectionID, keys[0])
		s.publish("step")
		return keys[0], true, nil
	}
	key, ok := sel.StepMove(collectionID, keys, from, delta, extend)
	if ok {
		s.publish("step")
	}
	return key, ok, nil
}

// PlaceSelected places the aggregated selection into the frames selected
// in the document.
func (s *Session) PlaceSelected(ctx context.Context) (placement.Report, error) {
	s.placing.Lock()
	defer s.placing.Unlock()

	targets, err := s.doc.ActiveTargets(ctx)
	if err != nil {
		return placement.Report{}, s.fail("Place", errors.ExternalAPI("targets", err))
	}
	report, err := s.orc.Place(ctx, targets)
	return s.finish(report, err)
}

// PlaceSingle places one resource into the single selected frame.
func (s *Session) PlaceSingle(ctx context.Context, collectionID, key string) (placement.Report, error) {
	s.placing.Lock()
	defer s.placing.Unlock()

	report, err := s.orc.PlaceSingle(ctx, collectionID, key)
	return s.finish(report, err)
}

func (s *Session) finish(report placement.Report, err error) (placement.Report, error) {
	if err != nil {
		return report, s.fail("Place", err)
	}
	if report.Rejected() {
		s.fail("Place", report.Err())
		return report, nil
	}
	if s.st != nil {
		s.st.ApplyUpdate(store.Update{Type: store.UpdatePlacement, Source: "place", Scanned: report.Attempted(), Payload: report})
	}
	s.publish("place")
	if len(report.Failed) > 0 {
		s.notifier.Notify("Place", fmt.Sprintf("%d of %d images placed", len(report.Placed), report.Attempted()))
	}
	return report, nil
}

// Snapshot returns the current collections and selection.
func (s *Session) Snapshot() store.Snapshot {
	return store.SnapshotOf(s.reg)
}

// Stats summarizes one collection.
func (s *Session) Stats(id string) (collection.Stats, error) {
	return s.reg.Stats(id)
}

// fail routes user-facing errors to the notifier and logs the rest.
func (s *Session) fail(title string, err error) error {
	if errors.IsValidation(err) {
		s.notifier.Notify(title, message(err))
	} else {
		s.logger.WithError(err).WithField("action", title).Error("Action failed")
	}
	return err
}

// publish pushes a snapshot to the daemon store, when there is one.
func (s *Session) publish(source string) {
	if s.st == nil {
		return
	}
	s.st.ApplyUpdate(store.Update{
		Type:    store.UpdateCollections,
		Source:  source,
		Payload: store.SnapshotOf(s.reg),
	})
}

func message(err error) string {
	if fe, ok := errors.As(err); ok {
		return fe.Message
	}
	return err.Error()
}
