// Package cv runs frame detection with OpenCV.
package cv

import (
	"image"

	"gocv.io/x/gocv"

	"github.com/grovetools/framefill/errors"
	"github.com/grovetools/framefill/pkg/detect"
	"github.com/grovetools/framefill/pkg/geometry"
)

// DetectFile reads an image from disk and returns its frames.
func DetectFile(path string, opts detect.Options) ([]geometry.Rect, error) {
	img := gocv.IMRead(path, gocv.IMReadColor)
	if img.Empty() {
		return nil, errors.New(errors.ErrCodeInvalidInput, "cannot decode image").WithDetail("path", path)
	}
	defer img.Close()
	return detectMat(img, opts), nil
}

// Detect decodes an encoded image and returns its frames.
func Detect(data []byte, opts detect.Options) ([]geometry.Rect, error) {
	img, err := gocv.IMDecode(data, gocv.IMReadColor)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInvalidInput, "cannot decode image")
	}
	defer img.Close()
	if img.Empty() {
		return nil, errors.New(errors.ErrCodeInvalidInput, "cannot decode image")
	}
	return detectMat(img, opts), nil
}

func detectMat(img gocv.Mat, opts detect.Options) []geometry.Rect {
	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(img, &gray, gocv.ColorBGRToGray)
	if k := opts.Kernel(); k > 0 {
		gocv.GaussianBlur(gray, &gray, image.Pt(k, k), 0, 0, gocv.BorderDefault)
	}

	edges := gocv.NewMat()
	defer edges.Close()
	gocv.Canny(gray, &edges, opts.LowThreshold, opts.HighThreshold)

	contours := gocv.FindContours(edges, gocv.RetrievalExternal, gocv.ChainApproxSimple)
	defer contours.Close()

	boxes := make([]image.Rectangle, 0, contours.Size())
	for i := 0; i < contours.Size(); i++ {
		boxes = append(boxes, gocv.BoundingRect(contours.At(i)))
	}
	return detect.Filter(boxes, img.Cols(), img.Rows(), opts)
}
