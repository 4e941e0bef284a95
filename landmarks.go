package gaze

import "image"

// NumLandmarks is the number of facial landmark points expected per face.
const NumLandmarks = 68

// Landmarks holds the ordered facial landmark points of a single face,
// following the 68 point iBUG 300-W annotation scheme. A nil or short
// slice means that no face was detected on the frame.
type Landmarks []image.Point

// Valid reports whether the landmarks describe a face.
func (lm Landmarks) Valid() bool {
	return len(lm) >= NumLandmarks
}

// Side identifies one of the two eyes, as seen on the image.
type Side int

const (
	LeftEye Side = iota
	RightEye
)

func (s Side) String() string {
	switch s {
	case LeftEye:
		return "left"
	case RightEye:
		return "right"
	}
	return "unknown"
}

// eyeIndices lists, per side, the landmark indices of the eye contour:
// outer corner, two upper lid points, inner corner, two lower lid points.
// The first index is always the image-left corner of the eye.
var eyeIndices = [2][6]int{
	{36, 37, 38, 39, 40, 41},
	{42, 43, 44, 45, 46, 47},
}

// Sub returns a copy of the landmarks translated by -p.
func (lm Landmarks) Sub(p image.Point) Landmarks {
	if lm == nil {
		return nil
	}
	out := make(Landmarks, len(lm))
	for i, q := range lm {
		out[i] = q.Sub(p)
	}
	return out
}

// EyeContour returns the six contour points of the requested eye.
func (lm Landmarks) EyeContour(side Side) ([6]image.Point, bool) {
	var pts [6]image.Point
	if !lm.Valid() || (side != LeftEye && side != RightEye) {
		return pts, false
	}
	for i, idx := range eyeIndices[side] {
		pts[i] = lm[idx]
	}
	return pts, true
}

// PointF is a point with floating point coordinates.
type PointF struct {
	X, Y float64
}
