// Package placement pairs selected images with selected frames and drives
// the host document through import, fit and clip for each pair.
package placement

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/grovetools/framefill/config"
	"github.com/grovetools/framefill/errors"
	"github.com/grovetools/framefill/logging"
	"github.com/grovetools/framefill/pkg/collection"
	"github.com/grovetools/framefill/pkg/document"
	"github.com/grovetools/framefill/pkg/geometry"
	"github.com/grovetools/framefill/pkg/selection"
)

// Options configures an Orchestrator.
type Options struct {
	Policy geometry.Policy
	// Truncate places the first min(selected, targets) pairs on a count
	// mismatch instead of rejecting the batch.
	Truncate bool
	Label    string
}

// OptionsFromConfig maps the placement config section to Options.
func OptionsFromConfig(c config.PlacementConfig) (Options, error) {
	policy, err := geometry.ParsePolicy(c.FitPolicy)
	if err != nil {
		return Options{}, errors.Wrap(err, errors.ErrCodeConfigValidation, "invalid fit policy")
	}
	return Options{
		Policy:   policy,
		Truncate: c.Mismatch == config.MismatchTruncate,
		Label:    c.Label,
	}, nil
}

// Orchestrator places the aggregated selection. Batches never overlap.
type Orchestrator struct {
	reg    *collection.Registry
	doc    document.Document
	tokens document.TokenIssuer
	opts   Options
	logger *logrus.Entry
}

// New creates an orchestrator.
func New(reg *collection.Registry, doc document.Document, tokens document.TokenIssuer, opts Options) *Orchestrator {
	if opts.Policy == "" {
		opts.Policy = geometry.PolicyFill
	}
	if opts.Label == "" {
		opts.Label = config.DefaultBatchLabel
	}
	return &Orchestrator{
		reg:    reg,
		doc:    doc,
		tokens: tokens,
		opts:   opts,
		logger: logging.NewLogger("placement"),
	}
}

// Options returns the effective options.
func (o *Orchestrator) Options() Options { return o.opts }

type pair struct {
	entry  selection.Entry
	target document.Target
}

// Place pairs the aggregated selection with targets positionally and places
// each pair. Validation failures return before the document is touched. A
// count mismatch is not an error: the report carries the counts and no pair
// is attempted, unless truncation is enabled. Per-pair failures are collected
// in the report; pairs already placed are kept.
func (o *Orchestrator) Place(ctx context.Context, targets []document.Target) (Report, error) {
	if err := ctx.Err(); err != nil {
		return Report{}, err
	}

	selected := o.reg.Aggregate()
	if len(selected) == 0 {
		return Report{}, errors.NothingSelected()
	}
	if len(targets) == 0 {
		return Report{}, errors.NoTargets()
	}

	var report Report
	n := len(selected)
	if len(selected) != len(targets) {
		report.Mismatch = &Mismatch{SelectedCount: len(selected), TargetCount: len(targets)}
		if !o.opts.Truncate {
			o.logger.WithFields(logrus.Fields{
				"selected": len(selected),
				"targets":  len(targets),
			}).Info("Rejected placement with mismatched counts")
			return report, nil
		}
		n = min(len(selected), len(targets))
		report.Truncated = true
	}

	pairs := make([]pair, n)
	for i := range pairs {
		pairs[i] = pair{entry: selected[i], target: targets[i]}
	}
	return o.run(ctx, pairs, report)
}

// PlaceSingle places one resource into the single selected frame.
func (o *Orchestrator) PlaceSingle(ctx context.Context, collectionID, key string) (Report, error) {
	if err := ctx.Err(); err != nil {
		return Report{}, err
	}
	if _, err := o.reg.Resource(collectionID, key); err != nil {
		return Report{}, err
	}

	targets, err := o.doc.ActiveTargets(ctx)
	if err != nil {
		return Report{}, errors.ExternalAPI("targets", err)
	}
	switch {
	case len(targets) == 0:
		return Report{}, errors.NoTarget()
	case len(targets) > 1:
		return Report{}, errors.AmbiguousTarget(len(targets))
	}

	entry := selection.Entry{CollectionID: collectionID, Key: key}
	return o.run(ctx, []pair{{entry: entry, target: targets[0]}}, Report{})
}

func (o *Orchestrator) run(ctx context.Context, pairs []pair, report Report) (Report, error) {
	logger := o.logger.WithFields(logrus.Fields{
		"pairs":  len(pairs),
		"policy": o.opts.Policy,
	})
	logger.Info("Starting placement")

	err := o.doc.RunExclusive(ctx, o.opts.Label, func(ctx context.Context, s document.Scope) error {
		for _, p := range pairs {
			placed, stage, err := o.placeOne(ctx, s, p)
			if err != nil {
				logger.WithError(err).WithFields(logrus.Fields{
					"key":    p.entry.Key,
					"target": p.target.ID,
					"stage":  stage,
				}).Warn("Placement failed")
				report.Failed = append(report.Failed, newFailure(p.entry.Key, p.entry.CollectionID, p.target.ID, stage, err))
				continue
			}
			o.commit(placed)
			report.Placed = append(report.Placed, placed)
		}
		return nil
	})
	if err != nil {
		return report, errors.ExternalAPI("exclusive", err)
	}

	logger.WithFields(logrus.Fields{
		"placed": len(report.Placed),
		"failed": len(report.Failed),
	}).Info("Placement finished")
	return report, nil
}

// placeOne drives one pair through the host. It returns the stage that
// failed along with the error.
func (o *Orchestrator) placeOne(ctx context.Context, s document.Scope, p pair) (Placed, document.Stage, error) {
	out := Placed{Key: p.entry.Key, CollectionID: p.entry.CollectionID, TargetID: p.target.ID}

	token, err := o.tokens.CreateAccessToken(ctx, p.entry.Key)
	if err != nil {
		return out, document.StageToken, errors.ExternalAPI(string(document.StageToken), err)
	}
	if err := s.SelectTarget(ctx, p.target.ID); err != nil {
		return out, document.StageSelect, errors.ExternalAPI(string(document.StageSelect), err)
	}
	elementID, err := s.ImportAndEmbed(ctx, token)
	if err != nil {
		return out, document.StageImport, errors.ExternalAPI(string(document.StageImport), err)
	}
	out.ElementID = elementID

	src, err := s.Bounds(ctx, elementID)
	if err != nil {
		return out, document.StageBounds, errors.ExternalAPI(string(document.StageBounds), err)
	}
	t, err := geometry.ComputeFit(src, p.target.Bounds, o.opts.Policy)
	if err != nil {
		return out, document.StageFit, err
	}
	out.Transform = t

	px, py := t.Percent()
	if err := s.Scale(ctx, elementID, px, py); err != nil {
		return out, document.StageScale, errors.ExternalAPI(string(document.StageScale), err)
	}
	if err := s.Translate(ctx, elementID, t.TranslateX, t.TranslateY); err != nil {
		return out, document.StageTranslate, errors.ExternalAPI(string(document.StageTranslate), err)
	}
	if err := s.Rasterize(ctx, elementID); err != nil {
		return out, document.StageRasterize, errors.ExternalAPI(string(document.StageRasterize), err)
	}
	if err := s.ClipToEnclosing(ctx, elementID); err != nil {
		return out, document.StageClip, errors.ExternalAPI(string(document.StageClip), err)
	}
	return out, "", nil
}

// commit records a placed pair and drops it from the selection.
func (o *Orchestrator) commit(p Placed) {
	if err := o.reg.MarkPlaced(p.CollectionID, p.Key, p.TargetID, p.ElementID); err != nil {
		// The collection was closed mid-batch; the element stays in the document.
		o.logger.WithError(err).WithField("key", p.Key).Debug("Placed resource no longer tracked")
	}
	o.reg.Selection().Remove(p.CollectionID, p.Key)
}
