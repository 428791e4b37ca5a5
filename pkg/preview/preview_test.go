package preview

import (
	"bytes"
	"image"
	"image/color"
	"image/gif"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grovetools/framefill/errors"
)

func solid(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: 200, G: 40, B: 40, A: 255})
		}
	}
	return img
}

func encodePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, solid(w, h)))
	return buf.Bytes()
}

func TestDecodeFormats(t *testing.T) {
	img := solid(40, 20)

	var pngBuf, jpgBuf, gifBuf bytes.Buffer
	require.NoError(t, png.Encode(&pngBuf, img))
	require.NoError(t, jpeg.Encode(&jpgBuf, img, nil))
	require.NoError(t, gif.Encode(&gifBuf, img, nil))

	cases := map[string][]byte{
		"png":  pngBuf.Bytes(),
		"jpeg": jpgBuf.Bytes(),
		"gif":  gifBuf.Bytes(),
	}
	for format, data := range cases {
		t.Run(format, func(t *testing.T) {
			p, err := Decode(data, 256)
			require.NoError(t, err)
			assert.Equal(t, format, p.Format)
			assert.Equal(t, 40, p.Width)
			assert.Equal(t, 20, p.Height)
			assert.Equal(t, 40, p.ThumbWidth)
			assert.Equal(t, int64(len(data)), p.Bytes)
			assert.True(t, p.Landscape())
		})
	}
}

func TestDecodeScalesDown(t *testing.T) {
	p, err := Decode(encodePNG(t, 400, 100), 64)
	require.NoError(t, err)
	assert.Equal(t, 64, p.ThumbWidth)
	assert.Equal(t, 16, p.ThumbHeight)
	assert.Equal(t, image.Rect(0, 0, 64, 16), p.Thumbnail.Bounds())

	out, err := p.PNG()
	require.NoError(t, err)
	cfg, err := png.DecodeConfig(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, 64, cfg.Width)
}

func TestDecodeGarbage(t *testing.T) {
	_, err := Decode([]byte("not an image"), 64)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidInput))
}

func TestThumbSize(t *testing.T) {
	cases := []struct {
		w, h, max    int
		wantW, wantH int
	}{
		{100, 50, 200, 100, 50},
		{1000, 500, 100, 100, 50},
		{500, 1000, 100, 50, 100},
		{10000, 1, 100, 100, 1},
		{1, 10000, 100, 1, 100},
	}
	for _, tc := range cases {
		w, h := ThumbSize(tc.w, tc.h, tc.max)
		assert.Equal(t, tc.wantW, w)
		assert.Equal(t, tc.wantH, h)
	}
}

func TestNilPreviewPNG(t *testing.T) {
	var p *Preview
	_, err := p.PNG()
	assert.True(t, errors.Is(err, errors.ErrCodeNotFound))
}
