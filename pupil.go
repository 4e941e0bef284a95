package gaze

import (
	"image"
	"math"
	"sort"

	"github.com/esimov/gaze/imop"
)

// Pupil is the estimated pupil position relative to its eye region origin.
type Pupil struct {
	image.Point
	// Threshold is the binarization threshold the pupil was located with.
	Threshold int
	// Found is false when no iris blob could be isolated.
	Found bool
}

// IrisLocator segments the iris inside an eye region and estimates the
// pupil as the centroid of the iris blob.
type IrisLocator struct {
	cfg LocatorConfig
}

// NewIrisLocator creates a locator using the provided filter settings.
func NewIrisLocator(cfg LocatorConfig) *IrisLocator {
	return &IrisLocator{cfg: cfg}
}

// Prepare smooths the eye region and erodes it, which removes the noise
// and closes the specular highlights inside the iris.
func (l *IrisLocator) Prepare(region EyeRegion) *image.NRGBA {
	img := imop.Bilateral(region.Frame, l.cfg.BilateralDiameter, l.cfg.SigmaColor, l.cfg.SigmaSpace)
	return imop.Erode(img, l.cfg.ErodeKernel, l.cfg.ErodeIterations)
}

// Binarize separates the dark iris (black) from the rest (white).
func (l *IrisLocator) Binarize(prepared *image.NRGBA, threshold int) *image.Gray {
	return imop.Binarize(prepared, threshold)
}

// Locate returns the pupil position found in the region using the given
// binarization threshold. The dark area surrounding the eye contour gives
// the largest blob, so the iris is taken to be the second largest one.
func (l *IrisLocator) Locate(region EyeRegion, threshold int) Pupil {
	pupil := Pupil{Threshold: threshold}
	if region.Frame == nil {
		return pupil
	}

	mask := l.Binarize(l.Prepare(region), threshold)
	contours := imop.FindContours(mask)
	if len(contours) < 2 {
		return pupil
	}
	sort.SliceStable(contours, func(i, j int) bool {
		return contours[i].Area() < contours[j].Area()
	})

	x, y, ok := imop.PolygonMoments(contours[len(contours)-2]).Centroid()
	if !ok {
		return pupil
	}
	pupil.Point = image.Pt(int(math.Floor(x)), int(math.Floor(y)))
	pupil.Found = true
	return pupil
}
