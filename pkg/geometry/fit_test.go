package geometry

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grovetools/framefill/errors"
)

func randomRect(r *rand.Rand) Rect {
	x := r.Float64()*2000 - 1000
	y := r.Float64()*2000 - 1000
	w := 1 + r.Float64()*3000
	h := 1 + r.Float64()*3000
	return NewRect(x, y, w, h)
}

func TestComputeFitFillCoversTarget(t *testing.T) {
	r := rand.New(rand.NewSource(42))
	for i := 0; i < 500; i++ {
		src, tgt := randomRect(r), randomRect(r)

		tr, err := ComputeFit(src, tgt, PolicyFill)
		require.NoError(t, err)

		want := math.Max(tgt.Width()/src.Width(), tgt.Height()/src.Height())
		assert.InDelta(t, want, tr.Scale(), 1e-12)
		assert.True(t, tr.Uniform())

		placed := Apply(src, tr)
		assert.True(t, Covers(placed, tgt), "fill must cover target: src=%v tgt=%v placed=%v", src, tgt, placed)
		assert.True(t, SameCenter(placed, tgt), "centers differ: %v vs %v", placed, tgt)
	}
}

func TestComputeFitFitStaysInside(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	for i := 0; i < 500; i++ {
		src, tgt := randomRect(r), randomRect(r)

		tr, err := ComputeFit(src, tgt, PolicyFit)
		require.NoError(t, err)

		want := math.Min(tgt.Width()/src.Width(), tgt.Height()/src.Height())
		assert.InDelta(t, want, tr.Scale(), 1e-12)

		placed := Apply(src, tr)
		assert.True(t, Covers(tgt, placed), "fit must stay inside target: src=%v tgt=%v placed=%v", src, tgt, placed)
		assert.True(t, SameCenter(placed, tgt))
	}
}

func TestComputeFitStretchWidth(t *testing.T) {
	src := NewRect(0, 0, 100, 50)
	tgt := NewRect(200, 200, 300, 200)

	tr, err := ComputeFit(src, tgt, PolicyStretchWidth)
	require.NoError(t, err)
	assert.Equal(t, 1.0, tr.ScaleX)
	assert.Equal(t, 4.0, tr.ScaleY)
	assert.False(t, tr.Uniform())

	x, y := tr.Percent()
	assert.Equal(t, 100.0, x)
	assert.Equal(t, 400.0, y)
}

func TestComputeFitTranslation(t *testing.T) {
	src := NewRect(0, 0, 100, 100)
	tgt := NewRect(300, 100, 200, 50)

	tr, err := ComputeFit(src, tgt, PolicyFill)
	require.NoError(t, err)
	assert.Equal(t, 2.0, tr.Scale())
	assert.Equal(t, 350.0, tr.TranslateX)
	assert.Equal(t, 75.0, tr.TranslateY)
}

func TestComputeFitDegenerate(t *testing.T) {
	policies := []Policy{PolicyFill, PolicyFit, PolicyStretchWidth}
	cases := []struct {
		name string
		src  Rect
		tgt  Rect
	}{
		{"zero width source", NewRect(0, 0, 0, 10), NewRect(0, 0, 10, 10)},
		{"zero height source", NewRect(0, 0, 10, 0), NewRect(0, 0, 10, 10)},
		{"zero width target", NewRect(0, 0, 10, 10), NewRect(5, 5, 0, 10)},
	}

	for _, tc := range cases {
		for _, p := range policies {
			t.Run(tc.name+"/"+string(p), func(t *testing.T) {
				_, err := ComputeFit(tc.src, tc.tgt, p)
				require.Error(t, err)
				assert.True(t, errors.Is(err, errors.ErrCodeDegenerateRect))
			})
		}
	}
}

func TestComputeFitNormalizesNegativeDimensions(t *testing.T) {
	flipped := Rect{Left: 100, Top: 80, Right: 0, Bottom: 0}
	tgt := NewRect(0, 0, 50, 40)

	a, err := ComputeFit(flipped, tgt, PolicyFill)
	require.NoError(t, err)
	b, err := ComputeFit(flipped.Normalize(), tgt, PolicyFill)
	require.NoError(t, err)
	assert.Equal(t, b, a)
	assert.Equal(t, 0.5, a.Scale())
}

func TestComputeFitUnknownPolicy(t *testing.T) {
	_, err := ComputeFit(NewRect(0, 0, 1, 1), NewRect(0, 0, 1, 1), Policy("tile"))
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidInput))
}

func TestParsePolicy(t *testing.T) {
	cases := map[string]Policy{
		"":              PolicyFill,
		"fill":          PolicyFill,
		"FIT":           PolicyFit,
		"w":             PolicyStretchWidth,
		"stretch_width": PolicyStretchWidth,
		"stretchWidth":  PolicyStretchWidth,
	}
	for in, want := range cases {
		got, err := ParsePolicy(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParsePolicy("tile")
	assert.Error(t, err)
}

func TestFitBox(t *testing.T) {
	frame := NewRect(10, 20, 500, 500)

	// Landscape photo: full width, letterboxed vertically.
	box, err := FitBox(frame, 400, 200)
	require.NoError(t, err)
	assert.Equal(t, 500.0, box.Width())
	assert.Equal(t, 250.0, box.Height())
	assert.Equal(t, 10.0, box.Left)
	assert.Equal(t, 145.0, box.Top)

	// Portrait photo: full height.
	box, err = FitBox(frame, 100, 200)
	require.NoError(t, err)
	assert.Equal(t, 250.0, box.Width())
	assert.Equal(t, 500.0, box.Height())
	assert.True(t, Covers(frame, box))

	_, err = FitBox(frame, 0, 10)
	assert.True(t, errors.Is(err, errors.ErrCodeDegenerateRect))
}
