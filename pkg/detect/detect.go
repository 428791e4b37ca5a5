// Package detect finds empty frames in a page image and plans how photos
// fit into them.
package detect

import (
	"image"
	"sort"

	"github.com/grovetools/framefill/errors"
	"github.com/grovetools/framefill/pkg/geometry"
)

// Options tunes edge detection and the size filter.
type Options struct {
	// MinWidth and MinHeight are exclusive lower bounds in pixels.
	MinWidth  int `json:"min_width"`
	MinHeight int `json:"min_height"`
	// BlurKernel is the Gaussian kernel size applied before edge detection.
	// Zero disables the blur; even sizes are rounded up.
	BlurKernel int `json:"blur_kernel"`
	// LowThreshold and HighThreshold are the Canny hysteresis thresholds.
	LowThreshold  float32 `json:"low_threshold"`
	HighThreshold float32 `json:"high_threshold"`
}

// Kernel returns the odd blur kernel size, or 0 when blurring is off.
func (o Options) Kernel() int {
	if o.BlurKernel <= 0 {
		return 0
	}
	if o.BlurKernel%2 == 0 {
		return o.BlurKernel + 1
	}
	return o.BlurKernel
}

// Func finds frame boxes in an encoded image. The OpenCV implementation
// lives in the cv subpackage so only binaries that need it link OpenCV.
type Func func(data []byte, opts Options) ([]geometry.Rect, error)

// DefaultOptions returns the thresholds used by the CLI and the daemon.
func DefaultOptions() Options {
	return Options{MinWidth: 100, MinHeight: 100, BlurKernel: 5, LowThreshold: 50, HighThreshold: 150}
}

// Filter keeps bounding boxes strictly larger than the minimum size and
// strictly smaller than the image, dropping duplicates. The result is
// ordered top to bottom, then left to right.
func Filter(boxes []image.Rectangle, imgW, imgH int, opts Options) []geometry.Rect {
	seen := make(map[image.Rectangle]bool, len(boxes))
	var kept []image.Rectangle
	for _, b := range boxes {
		b = b.Canon()
		w, h := b.Dx(), b.Dy()
		if w <= opts.MinWidth || w >= imgW || h <= opts.MinHeight || h >= imgH {
			continue
		}
		if seen[b] {
			continue
		}
		seen[b] = true
		kept = append(kept, b)
	}
	sort.Slice(kept, func(i, j int) bool {
		if kept[i].Min.Y != kept[j].Min.Y {
			return kept[i].Min.Y < kept[j].Min.Y
		}
		return kept[i].Min.X < kept[j].Min.X
	})

	out := make([]geometry.Rect, len(kept))
	for i, b := range kept {
		out[i] = geometry.NewRect(float64(b.Min.X), float64(b.Min.Y), float64(b.Dx()), float64(b.Dy()))
	}
	return out
}

// Size is a photo's pixel size.
type Size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Slot is one planned photo box.
type Slot struct {
	Frame geometry.Rect `json:"frame"`
	Box   geometry.Rect `json:"box"`
}

// Plan pairs frames with photos positionally and returns the largest
// aspect-preserving box for each pair. Counts must match.
func Plan(frames []geometry.Rect, photos []Size) ([]Slot, error) {
	if len(frames) != len(photos) {
		return nil, errors.Mismatch(len(photos), len(frames))
	}
	slots := make([]Slot, len(frames))
	for i, f := range frames {
		box, err := geometry.FitBox(f, photos[i].Width, photos[i].Height)
		if err != nil {
			return nil, err
		}
		slots[i] = Slot{Frame: f, Box: box}
	}
	return slots, nil
}
