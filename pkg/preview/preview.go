// Package preview decodes staged image files into small display thumbnails.
package preview

import (
	"bytes"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/grovetools/framefill/errors"
)

// DefaultMaxEdge is the longest thumbnail edge when none is configured.
const DefaultMaxEdge = 256

// Preview is the decoded, display-only form of a resource.
type Preview struct {
	Format      string `json:"format"`
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	ThumbWidth  int    `json:"thumb_width"`
	ThumbHeight int    `json:"thumb_height"`
	Bytes       int64  `json:"bytes"`

	Thumbnail image.Image `json:"-"`
}

// Decode reads an encoded image and scales it so its longest edge is at
// most maxEdge. Images already smaller are kept at their size.
func Decode(data []byte, maxEdge int) (*Preview, error) {
	if maxEdge <= 0 {
		maxEdge = DefaultMaxEdge
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInvalidInput, "failed to decode image")
	}

	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w == 0 || h == 0 {
		return nil, errors.DegenerateRect("image", float64(w), float64(h))
	}

	tw, th := ThumbSize(w, h, maxEdge)
	thumb := image.NewRGBA(image.Rect(0, 0, tw, th))
	draw.ApproxBiLinear.Scale(thumb, thumb.Bounds(), img, b, draw.Src, nil)

	return &Preview{
		Format:      format,
		Width:       w,
		Height:      h,
		ThumbWidth:  tw,
		ThumbHeight: th,
		Bytes:       int64(len(data)),
		Thumbnail:   thumb,
	}, nil
}

// ThumbSize scales w×h down to fit maxEdge, keeping the aspect ratio and
// never returning a zero dimension.
func ThumbSize(w, h, maxEdge int) (int, int) {
	if w <= maxEdge && h <= maxEdge {
		return w, h
	}
	if w >= h {
		th := h * maxEdge / w
		if th < 1 {
			th = 1
		}
		return maxEdge, th
	}
	tw := w * maxEdge / h
	if tw < 1 {
		tw = 1
	}
	return tw, maxEdge
}

// PNG encodes the thumbnail.
func (p *Preview) PNG() ([]byte, error) {
	if p == nil || p.Thumbnail == nil {
		return nil, errors.New(errors.ErrCodeNotFound, "no thumbnail")
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, p.Thumbnail); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to encode thumbnail")
	}
	return buf.Bytes(), nil
}

// Landscape reports whether the source image is wider than tall.
func (p *Preview) Landscape() bool {
	return p.Width > p.Height
}
