package gaze

import (
	"image"
	"math"

	"github.com/disintegration/imaging"
	"github.com/esimov/gaze/utils"
	"golang.org/x/image/vector"
)

// DefaultRegionMargin is the number of pixels added around the eye contour
// bounding box when the eye region is isolated.
const DefaultRegionMargin = 5

// EyeRegion is the isolated pixel region of one eye. Pixels which are inside
// the region bounds but outside the eye contour are painted opaque black.
type EyeRegion struct {
	// Frame is an owned copy of the region pixels, with its origin at (0, 0).
	Frame *image.NRGBA
	// Mask marks the pixels lying inside the eye contour with 0xff.
	Mask *image.Alpha
	// Origin is the top-left corner of the region in the source image.
	Origin image.Point
	// Center is the geometric center of the region.
	Center PointF
}

// Width returns the region width in pixels.
func (r EyeRegion) Width() int { return r.Frame.Bounds().Dx() }

// Height returns the region height in pixels.
func (r EyeRegion) Height() int { return r.Frame.Bounds().Dy() }

// MaskArea returns the number of pixels inside the eye contour.
func (r EyeRegion) MaskArea() int {
	var n int
	for _, a := range r.Mask.Pix {
		if a != 0 {
			n++
		}
	}
	return n
}

// IsolateEye cuts out the region of the requested eye from the face image.
// The region is the bounding box of the six eye contour points grown by
// margin on every side and clamped to the image. It reports false when the
// landmarks are missing or the clamped region is empty. The source image
// is never modified.
func IsolateEye(src *image.NRGBA, lm Landmarks, side Side, margin int) (EyeRegion, bool) {
	pts, ok := lm.EyeContour(side)
	if !ok || src == nil {
		return EyeRegion{}, false
	}

	minX, minY := pts[0].X, pts[0].Y
	maxX, maxY := minX, minY
	for _, p := range pts[1:] {
		minX, maxX = utils.Min(minX, p.X), utils.Max(maxX, p.X)
		minY, maxY = utils.Min(minY, p.Y), utils.Max(maxY, p.Y)
	}
	rect := image.Rect(minX-margin, minY-margin, maxX+margin, maxY+margin).Intersect(src.Bounds())
	if rect.Empty() {
		return EyeRegion{}, false
	}

	frame := imaging.Crop(src, rect)
	mask := polygonMask(pts[:], rect)

	for y := 0; y < rect.Dy(); y++ {
		for x := 0; x < rect.Dx(); x++ {
			if mask.Pix[mask.PixOffset(x, y)] != 0 {
				continue
			}
			i := frame.PixOffset(x, y)
			frame.Pix[i+0] = 0
			frame.Pix[i+1] = 0
			frame.Pix[i+2] = 0
			frame.Pix[i+3] = 0xff
		}
	}

	return EyeRegion{
		Frame:  frame,
		Mask:   mask,
		Origin: rect.Min,
		Center: PointF{X: float64(rect.Dx()) / 2, Y: float64(rect.Dy()) / 2},
	}, true
}

// polygonMask rasterizes the closed polygon into a mask covering rect.
// A pixel belongs to the polygon when at least half of it is covered,
// landmark coordinates being taken as pixel centers.
func polygonMask(pts []image.Point, rect image.Rectangle) *image.Alpha {
	w, h := rect.Dx(), rect.Dy()
	mask := image.NewAlpha(image.Rect(0, 0, w, h))

	pt := func(p image.Point) (float32, float32) {
		return float32(p.X-rect.Min.X) + 0.5, float32(p.Y-rect.Min.Y) + 0.5
	}
	r := vector.NewRasterizer(w, h)
	r.MoveTo(pt(pts[0]))
	for _, p := range pts[1:] {
		r.LineTo(pt(p))
	}
	r.ClosePath()
	r.Draw(mask, mask.Bounds(), image.Opaque, image.Point{})

	for i, a := range mask.Pix {
		if a >= 0x80 {
			mask.Pix[i] = 0xff
		} else {
			mask.Pix[i] = 0
		}
	}
	return mask
}

// BlinkRatio is the ratio between the width and the height of an eye.
// It grows as the eye closes. Valid is false when the eye height is zero.
type BlinkRatio struct {
	Value float64
	Valid bool
}

// EyeBlinkRatio computes the blink ratio of the requested eye from its
// contour points: the distance between the two corners divided by the
// distance between the middle of the upper lid and the middle of the lower lid.
func EyeBlinkRatio(lm Landmarks, side Side) BlinkRatio {
	pts, ok := lm.EyeContour(side)
	if !ok {
		return BlinkRatio{}
	}
	left, right := pts[0], pts[3]
	top := middlePoint(pts[1], pts[2])
	bottom := middlePoint(pts[5], pts[4])

	width := math.Hypot(float64(left.X-right.X), float64(left.Y-right.Y))
	height := math.Hypot(float64(top.X-bottom.X), float64(top.Y-bottom.Y))
	if height == 0 {
		return BlinkRatio{}
	}
	return BlinkRatio{Value: width / height, Valid: true}
}

func middlePoint(p1, p2 image.Point) image.Point {
	return image.Pt(utils.FloorDiv(p1.X+p2.X, 2), utils.FloorDiv(p1.Y+p2.Y, 2))
}

// Eye gathers everything measured on one eye during a frame.
type Eye struct {
	Side   Side
	Region EyeRegion
	Blink  BlinkRatio
	Pupil  Pupil
	// Isolated is false when no region could be cut out for this eye.
	Isolated bool
}

// AbsolutePupil returns the pupil position in the coordinates of the frame.
func (e Eye) AbsolutePupil() (image.Point, bool) {
	if !e.Isolated || !e.Pupil.Found {
		return image.Point{}, false
	}
	return e.Region.Origin.Add(e.Pupil.Point), true
}
