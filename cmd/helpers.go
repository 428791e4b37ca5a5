package cmd

import (
	"fmt"
	"image"
	"os"
	"strconv"
	"strings"

	"github.com/grovetools/framefill/config"
	"github.com/grovetools/framefill/errors"
	"github.com/grovetools/framefill/pkg/detect"
	"github.com/grovetools/framefill/pkg/geometry"
)

// parseRect reads "x,y,w,h".
func parseRect(s string) (geometry.Rect, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return geometry.Rect{}, errors.New(errors.ErrCodeInvalidInput, fmt.Sprintf("rect %q must be x,y,w,h", s))
	}
	var v [4]float64
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return geometry.Rect{}, errors.Wrap(err, errors.ErrCodeInvalidInput, fmt.Sprintf("rect %q", s))
		}
		v[i] = f
	}
	return geometry.NewRect(v[0], v[1], v[2], v[3]), nil
}

// parseRects reads every value with parseRect.
func parseRects(values []string) ([]geometry.Rect, error) {
	out := make([]geometry.Rect, 0, len(values))
	for _, s := range values {
		r, err := parseRect(s)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

// imageSize reads the pixel size of an image file without decoding it.
func imageSize(path string) (detect.Size, error) {
	f, err := os.Open(path)
	if err != nil {
		return detect.Size{}, errors.IO(path, err)
	}
	defer f.Close()
	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return detect.Size{}, errors.Wrap(err, errors.ErrCodeInvalidInput, "failed to read image header").WithDetail("path", path)
	}
	return detect.Size{Width: float64(cfg.Width), Height: float64(cfg.Height)}, nil
}

// listenAddr is where the daemon for cfg listens.
func listenAddr(cfg *config.Config) string {
	if cfg.Server.Listen != "" {
		return cfg.Server.Listen
	}
	return config.DefaultListen
}
