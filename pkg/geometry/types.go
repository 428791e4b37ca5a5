// Package geometry computes the transforms that fit an image layer into a frame.
package geometry

import (
	"fmt"
	"strings"
)

// Tolerance is the absolute slack used when comparing computed coordinates.
const Tolerance = 1e-9

// Point2D represents a 2D point with floating-point coordinates.
type Point2D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Rect is an axis-aligned rectangle in document pixels.
type Rect struct {
	Left   float64 `json:"left"`
	Top    float64 `json:"top"`
	Right  float64 `json:"right"`
	Bottom float64 `json:"bottom"`
}

// NewRect creates a Rect from an origin and a size.
func NewRect(x, y, width, height float64) Rect {
	return Rect{Left: x, Top: y, Right: x + width, Bottom: y + height}
}

// Width returns the horizontal extent. It is negative for an unnormalized rect.
func (r Rect) Width() float64 { return r.Right - r.Left }

// Height returns the vertical extent. It is negative for an unnormalized rect.
func (r Rect) Height() float64 { return r.Bottom - r.Top }

// Center returns the center point of the rectangle.
func (r Rect) Center() Point2D {
	return Point2D{X: (r.Left + r.Right) / 2, Y: (r.Top + r.Bottom) / 2}
}

// Normalize swaps coordinates so that Left <= Right and Top <= Bottom.
func (r Rect) Normalize() Rect {
	if r.Right < r.Left {
		r.Left, r.Right = r.Right, r.Left
	}
	if r.Bottom < r.Top {
		r.Top, r.Bottom = r.Bottom, r.Top
	}
	return r
}

// Empty reports whether the rectangle has zero width or height.
func (r Rect) Empty() bool {
	return r.Width() == 0 || r.Height() == 0
}

func (r Rect) String() string {
	return fmt.Sprintf("[%g,%g %gx%g]", r.Left, r.Top, r.Width(), r.Height())
}

// Policy selects how a source is scaled into a target.
type Policy string

const (
	// PolicyFill covers the target; the source may be cropped.
	PolicyFill Policy = "fill"
	// PolicyFit keeps the whole source inside the target; may letterbox.
	PolicyFit Policy = "fit"
	// PolicyStretchWidth leaves the horizontal axis at 100% and matches the height.
	PolicyStretchWidth Policy = "stretchWidth"
)

// ParsePolicy converts a configuration string to a Policy.
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "fill", "cover":
		return PolicyFill, nil
	case "fit", "contain":
		return PolicyFit, nil
	case "stretchwidth", "stretch_width", "w":
		return PolicyStretchWidth, nil
	}
	return "", fmt.Errorf("unknown fit policy %q", s)
}

// Transform scales a source about its own center, then translates it.
type Transform struct {
	ScaleX     float64 `json:"scale_x"`
	ScaleY     float64 `json:"scale_y"`
	TranslateX float64 `json:"translate_x"`
	TranslateY float64 `json:"translate_y"`
}

// Scale returns the uniform scale factor. For anisotropic transforms it is ScaleY,
// the axis that was actually fitted.
func (t Transform) Scale() float64 {
	return t.ScaleY
}

// Uniform reports whether both axes use the same factor.
func (t Transform) Uniform() bool {
	return t.ScaleX == t.ScaleY
}

// Percent returns the scale factors as percentages, the unit host documents expect.
func (t Transform) Percent() (x, y float64) {
	return t.ScaleX * 100, t.ScaleY * 100
}
