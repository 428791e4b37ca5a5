package session

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/grovetools/framefill/errors"
	"github.com/grovetools/framefill/internal/daemon/store"
	"github.com/grovetools/framefill/pkg/document"
	"github.com/grovetools/framefill/version"
)

// Diagnostics is a dump of the document and the session state.
type Diagnostics struct {
	Targets  []document.Target  `json:"targets"`
	Tree     []document.Element `json:"tree,omitempty"`
	Snapshot store.Snapshot     `json:"snapshot"`
	Build    version.Info       `json:"build"`
}

// Diagnostics collects the document element tree and the active frames and
// writes them to the log.
func (s *Session) Diagnostics(ctx context.Context) (Diagnostics, error) {
	targets, err := s.doc.ActiveTargets(ctx)
	if err != nil {
		return Diagnostics{}, errors.ExternalAPI("targets", err)
	}
	d := Diagnostics{Targets: targets, Snapshot: s.Snapshot(), Build: version.GetInfo()}

	if describer, ok := s.doc.(document.Describer); ok {
		tree, err := describer.Describe(ctx)
		if err != nil {
			return d, errors.ExternalAPI("describe", err)
		}
		d.Tree = tree
	}

	for _, t := range targets {
		s.logger.WithFields(logrus.Fields{"id": t.ID, "bounds": t.Bounds.String()}).Info("Active frame")
	}
	var walk func(nodes []document.Element, depth int)
	walk = func(nodes []document.Element, depth int) {
		for _, n := range nodes {
			s.logger.WithFields(logrus.Fields{
				"id":     n.ID,
				"kind":   n.Kind,
				"name":   n.Name,
				"depth":  depth,
				"bounds": n.Bounds.String(),
			}).Info("Element")
			walk(n.Children, depth+1)
		}
	}
	walk(d.Tree, 0)
	return d, nil
}
