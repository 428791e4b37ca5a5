// Package document defines the boundary to the host document that images
// are placed into.
package document

import (
	"context"

	"github.com/grovetools/framefill/pkg/geometry"
)

// Target is a frame selected in the host document.
type Target struct {
	ID     string        `json:"id"`
	Bounds geometry.Rect `json:"bounds"`
}

// Document is the read side of the host plus its exclusive edit scope.
type Document interface {
	// ActiveTargets returns the currently selected frames, in selection order.
	ActiveTargets(ctx context.Context) ([]Target, error)
	// ElementIDs enumerates every element id present in the document.
	ElementIDs(ctx context.Context) ([]string, error)
	// RunExclusive runs fn as one undoable edit labelled label. Mutations are
	// only allowed through the Scope passed to fn.
	RunExclusive(ctx context.Context, label string, fn func(ctx context.Context, s Scope) error) error
}

// Scope holds the mutation primitives available inside RunExclusive.
type Scope interface {
	SelectTarget(ctx context.Context, id string) error
	// ImportAndEmbed places the file behind token into the selected target
	// and returns the id of the new element.
	ImportAndEmbed(ctx context.Context, token string) (string, error)
	Bounds(ctx context.Context, id string) (geometry.Rect, error)
	// Scale resizes an element about its center by percentages.
	Scale(ctx context.Context, id string, percentX, percentY float64) error
	Translate(ctx context.Context, id string, dx, dy float64) error
	Rasterize(ctx context.Context, id string) error
	ClipToEnclosing(ctx context.Context, id string) error
}

// TokenIssuer grants the host access to a local file.
type TokenIssuer interface {
	CreateAccessToken(ctx context.Context, path string) (string, error)
}

// Element is one node of a document tree dump.
type Element struct {
	ID       string        `json:"id"`
	Name     string        `json:"name,omitempty"`
	Kind     string        `json:"kind"`
	Bounds   geometry.Rect `json:"bounds"`
	Children []Element     `json:"children,omitempty"`
}

// Describer is implemented by hosts that can dump their element tree.
type Describer interface {
	Describe(ctx context.Context) ([]Element, error)
}

// Stage names one host interaction of a placement. Failures carry the stage
// they happened in.
type Stage string

const (
	StageToken     Stage = "token"
	StageSelect    Stage = "select"
	StageImport    Stage = "import"
	StageBounds    Stage = "bounds"
	StageFit       Stage = "fit"
	StageScale     Stage = "scale"
	StageTranslate Stage = "translate"
	StageRasterize Stage = "rasterize"
	StageClip      Stage = "clip"
)
