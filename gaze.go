package gaze

import (
	"image"

	"github.com/esimov/gaze/utils"
	"gonum.org/v1/gonum/stat"
)

// Result is the outcome of the analysis of one frame.
// The optional values are nil when they could not be computed.
type Result struct {
	PupilsLocated bool `json:"pupils_located"`
	// PupilLeft and PupilRight are the pupil positions in frame coordinates.
	PupilLeft  *image.Point `json:"pupil_left"`
	PupilRight *image.Point `json:"pupil_right"`
	// HorizontalRatio goes from 0.0 (extreme right) to 1.0 (extreme left).
	HorizontalRatio *float64 `json:"horizontal_ratio"`
	// VerticalRatio goes from 0.0 (extreme top) to 1.0 (extreme bottom).
	VerticalRatio *float64 `json:"vertical_ratio"`

	// The direction flags are mutually exclusive, and exactly one of them is
	// set whenever HorizontalRatio is present. A located pair of pupils in a
	// degenerate eye region has no ratio and none of the flags set.
	IsLeft     bool `json:"is_left"`
	IsRight    bool `json:"is_right"`
	IsCenter   bool `json:"is_center"`
	IsBlinking bool `json:"is_blinking"`

	Dwell DwellEvent `json:"dwell"`
}

// GazeCell maps the gaze ratios onto a 3x3 grid. Row and column are
// clamped to the grid even when the ratios fall outside of [0, 1].
func (r Result) GazeCell() (Cell, bool) {
	if r.HorizontalRatio == nil || r.VerticalRatio == nil {
		return Cell{}, false
	}
	return Cell{
		Row: utils.Clamp(int(*r.VerticalRatio*gridSize), 0, gridSize-1),
		Col: utils.Clamp(int(*r.HorizontalRatio*gridSize), 0, gridSize-1),
	}, true
}

// Aggregate combines the measurements of both eyes into the gaze direction
// and the blink state. Nothing is reported unless both pupils were located.
func Aggregate(left, right Eye, cfg GazeConfig) Result {
	lp, lok := left.AbsolutePupil()
	rp, rok := right.AbsolutePupil()
	if !lok || !rok {
		return Result{}
	}
	res := Result{PupilsLocated: true, PupilLeft: &lp, PupilRight: &rp}

	hl, ok1 := axisRatio(left.Pupil.X, left.Region.Center.X, cfg.EdgeMargin)
	hr, ok2 := axisRatio(right.Pupil.X, right.Region.Center.X, cfg.EdgeMargin)
	if ok1 && ok2 {
		h := stat.Mean([]float64{hl, hr}, nil)
		res.HorizontalRatio = &h

		res.IsRight = h <= cfg.RightMax
		res.IsLeft = h >= cfg.LeftMin
		res.IsCenter = !res.IsRight && !res.IsLeft
	}

	vl, ok1 := axisRatio(left.Pupil.Y, left.Region.Center.Y, cfg.EdgeMargin)
	vr, ok2 := axisRatio(right.Pupil.Y, right.Region.Center.Y, cfg.EdgeMargin)
	if ok1 && ok2 {
		v := stat.Mean([]float64{vl, vr}, nil)
		res.VerticalRatio = &v
	}

	res.IsBlinking = isBlinking(left.Blink, right.Blink, cfg)
	return res
}

// axisRatio normalizes the pupil coordinate along one axis of its region,
// leaving out a margin near the region edges the pupil never reaches.
func axisRatio(pos int, center, margin float64) (float64, bool) {
	span := center*2 - margin
	if span <= 0 {
		return 0, false
	}
	return float64(pos) / span, true
}

func isBlinking(left, right BlinkRatio, cfg GazeConfig) bool {
	var ratios []float64
	for _, b := range []BlinkRatio{left, right} {
		if b.Valid {
			ratios = append(ratios, b.Value)
		}
	}
	if len(ratios) == 0 || (cfg.BlinkPolicy != BlinkAvailable && len(ratios) < 2) {
		return false
	}
	return stat.Mean(ratios, nil) > cfg.BlinkThreshold
}
