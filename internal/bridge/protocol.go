package bridge

import (
	"github.com/grovetools/framefill/internal/daemon/store"
	"github.com/grovetools/framefill/internal/session"
)

// Core to host requests.
const (
	MethodActiveTargets   = "doc.activeTargets"
	MethodElementIDs      = "doc.elementIds"
	MethodDescribe        = "doc.describe"
	MethodBeginExclusive  = "doc.beginExclusive"
	MethodEndExclusive    = "doc.endExclusive"
	MethodSelectTarget    = "doc.selectTarget"
	MethodImportAndEmbed  = "doc.importAndEmbed"
	MethodBounds          = "doc.bounds"
	MethodScale           = "doc.scale"
	MethodTranslate       = "doc.translate"
	MethodRasterize       = "doc.rasterize"
	MethodClipToEnclosing = "doc.clipToEnclosing"
	MethodCreateToken     = "storage.createToken"
)

// Core to host notifications.
const (
	MethodAlert        = "ui.alert"
	MethodStateChanged = "state.changed"
)

// Host to core requests.
const (
	MethodOpenFolder  = "session.openFolder"
	MethodActivate    = "session.activate"
	MethodClose       = "session.close"
	MethodClick       = "session.click"
	MethodStep        = "session.step"
	MethodPlace       = "session.place"
	MethodPlaceSingle = "session.placeSingle"
	MethodRefresh     = "session.refresh"
	MethodSnapshot    = "session.snapshot"
	MethodStats       = "session.stats"
	MethodDiagnostics = "session.diagnostics"
)

type PathParams struct {
	Path string `json:"path"`
}

type TokenResult struct {
	Token string `json:"token"`
}

type BeginParams struct {
	Label string `json:"label"`
}

type BeginResult struct {
	Scope string `json:"scope"`
}

// EndParams closes a scope. Error is set when the batch failed as a whole.
type EndParams struct {
	Scope string `json:"scope"`
	Error string `json:"error,omitempty"`
}

type ElementParams struct {
	Scope string `json:"scope"`
	ID    string `json:"id"`
}

type ElementResult struct {
	ID string `json:"id"`
}

type ImportParams struct {
	Scope string `json:"scope"`
	Token string `json:"token"`
}

type ScaleParams struct {
	Scope    string  `json:"scope"`
	ID       string  `json:"id"`
	PercentX float64 `json:"percentX"`
	PercentY float64 `json:"percentY"`
}

type TranslateParams struct {
	Scope string  `json:"scope"`
	ID    string  `json:"id"`
	DX    float64 `json:"dx"`
	DY    float64 `json:"dy"`
}

type StateChanged struct {
	Source   string         `json:"source"`
	Snapshot store.Snapshot `json:"snapshot"`
}

type CollectionParams struct {
	CollectionID string `json:"collectionId"`
}

type ClickParams struct {
	CollectionID string `json:"collectionId"`
	Key          string `json:"key"`
	session.Modifiers
}

type StepParams struct {
	CollectionID string `json:"collectionId"`
	Delta        int    `json:"delta"`
	Extend       bool   `json:"extend"`
}

type StepResult struct {
	Key   string `json:"key"`
	Moved bool   `json:"moved"`
}

type PlaceSingleParams struct {
	CollectionID string `json:"collectionId"`
	Key          string `json:"key"`
}
