package errors

import (
	"fmt"
)

// NothingSelected creates an error for a placement started with an empty selection
func NothingSelected() *FrameError {
	return New(ErrCodeNothingSelected, "no images are selected")
}

// NoTargets creates an error for a placement started without frames
func NoTargets() *FrameError {
	return New(ErrCodeNoTargets, "no frames are selected in the document")
}

// Mismatch creates an error describing a selected/target count mismatch
func Mismatch(selected, targets int) *FrameError {
	return New(ErrCodeMismatch,
		fmt.Sprintf("%d images selected but %d frames selected", selected, targets)).
		WithDetail("selectedCount", selected).
		WithDetail("targetCount", targets)
}

// LimitExceeded creates an error for opening more collections than allowed
func LimitExceeded(limit int) *FrameError {
	return New(ErrCodeLimitExceeded, fmt.Sprintf("at most %d folders can be open at once", limit)).
		WithDetail("limit", limit)
}

// AmbiguousTarget creates an error for single placement with several frames selected
func AmbiguousTarget(count int) *FrameError {
	return New(ErrCodeAmbiguousTarget, fmt.Sprintf("%d frames are selected, select exactly one", count)).
		WithDetail("targetCount", count)
}

// NoTarget creates an error for single placement with no frame selected
func NoTarget() *FrameError {
	return New(ErrCodeNoTarget, "select a frame in the document first")
}

// NotFound creates an error for an unknown collection or resource
func NotFound(kind, id string) *FrameError {
	return New(ErrCodeNotFound, fmt.Sprintf("%s '%s' not found", kind, id)).
		WithDetail("kind", kind).
		WithDetail("id", id)
}

// DegenerateRect creates an error for a zero-area source or target rectangle
func DegenerateRect(which string, width, height float64) *FrameError {
	return New(ErrCodeDegenerateRect,
		fmt.Sprintf("%s rectangle has zero area (%gx%g)", which, width, height)).
		WithDetail("rect", which)
}

// ExternalAPI wraps a host document failure with the sub-step that failed
func ExternalAPI(stage string, err error) *FrameError {
	return Wrap(err, ErrCodeExternalAPI, fmt.Sprintf("document call failed during %s", stage)).
		WithDetail("stage", stage)
}

// IO wraps a folder listing or file read failure
func IO(path string, err error) *FrameError {
	return Wrap(err, ErrCodeIO, fmt.Sprintf("cannot read %s", path)).
		WithDetail("path", path)
}

// ConfigNotFound creates a configuration not found error
func ConfigNotFound(path string) *FrameError {
	return New(ErrCodeConfigNotFound, fmt.Sprintf("configuration file not found: %s", path)).
		WithDetail("path", path)
}

// ConfigInvalid creates an invalid configuration error
func ConfigInvalid(reason string) *FrameError {
	return New(ErrCodeConfigInvalid, fmt.Sprintf("invalid configuration: %s", reason))
}
