package geometry

import (
	"math"

	"gonum.org/v1/gonum/floats/scalar"

	"github.com/grovetools/framefill/errors"
)

// ComputeFit returns the transform that centers src on tgt, scaled by policy.
// Rectangles with swapped coordinates are normalized first; zero-area inputs
// yield a DEGENERATE_RECT error.
func ComputeFit(src, tgt Rect, policy Policy) (Transform, error) {
	src = src.Normalize()
	tgt = tgt.Normalize()
	if src.Empty() {
		return Transform{}, errors.DegenerateRect("source", src.Width(), src.Height())
	}
	if tgt.Empty() {
		return Transform{}, errors.DegenerateRect("target", tgt.Width(), tgt.Height())
	}

	sx := tgt.Width() / src.Width()
	sy := tgt.Height() / src.Height()

	var t Transform
	switch policy {
	case PolicyFit:
		s := math.Min(sx, sy)
		t.ScaleX, t.ScaleY = s, s
	case PolicyStretchWidth:
		t.ScaleX, t.ScaleY = 1, sy
	case PolicyFill, "":
		s := math.Max(sx, sy)
		t.ScaleX, t.ScaleY = s, s
	default:
		return Transform{}, errors.New(errors.ErrCodeInvalidInput, "unknown fit policy").
			WithDetail("policy", string(policy))
	}

	sc, tc := src.Center(), tgt.Center()
	t.TranslateX = tc.X - sc.X
	t.TranslateY = tc.Y - sc.Y
	return t, nil
}

// Apply returns src after scaling about its center and translating by t.
func Apply(src Rect, t Transform) Rect {
	src = src.Normalize()
	c := src.Center()
	hw := src.Width() * t.ScaleX / 2
	hh := src.Height() * t.ScaleY / 2
	cx, cy := c.X+t.TranslateX, c.Y+t.TranslateY
	return Rect{Left: cx - hw, Top: cy - hh, Right: cx + hw, Bottom: cy + hh}
}

// Covers reports whether outer fully covers inner, allowing for float error.
func Covers(outer, inner Rect) bool {
	outer, inner = outer.Normalize(), inner.Normalize()
	return leq(outer.Left, inner.Left) && leq(outer.Top, inner.Top) &&
		leq(inner.Right, outer.Right) && leq(inner.Bottom, outer.Bottom)
}

// SameCenter reports whether two rectangles share a center point within Tolerance.
func SameCenter(a, b Rect) bool {
	ca, cb := a.Center(), b.Center()
	return scalar.EqualWithinAbsOrRel(ca.X, cb.X, Tolerance, Tolerance) &&
		scalar.EqualWithinAbsOrRel(ca.Y, cb.Y, Tolerance, Tolerance)
}

// FitBox returns the largest box with the photo's aspect ratio that fits inside
// frame, centered on it. Coordinates are rounded down to whole pixels.
func FitBox(frame Rect, photoWidth, photoHeight float64) (Rect, error) {
	frame = frame.Normalize()
	if frame.Empty() {
		return Rect{}, errors.DegenerateRect("frame", frame.Width(), frame.Height())
	}
	if photoWidth <= 0 || photoHeight <= 0 {
		return Rect{}, errors.DegenerateRect("photo", photoWidth, photoHeight)
	}

	photoAspect := photoWidth / photoHeight
	frameAspect := frame.Width() / frame.Height()

	w, h := frame.Width(), frame.Height()
	if photoAspect > frameAspect {
		h = math.Floor(w / photoAspect)
	} else {
		w = math.Floor(h * photoAspect)
	}
	left := frame.Left + math.Floor((frame.Width()-w)/2)
	top := frame.Top + math.Floor((frame.Height()-h)/2)
	return Rect{Left: left, Top: top, Right: left + w, Bottom: top + h}, nil
}

func leq(a, b float64) bool {
	return a <= b || scalar.EqualWithinAbsOrRel(a, b, Tolerance, Tolerance)
}
