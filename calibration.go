package gaze

import (
	"image"
	"math"

	"gonum.org/v1/gonum/floats"
)

// CalibrationSample records the outcome of one threshold evaluation.
type CalibrationSample struct {
	Threshold int
	// WhiteFraction is the share of the eye surface left white after binarization.
	WhiteFraction float64
}

// Calibration finds, for each eye, the binarization threshold which leaves
// the iris covering the expected share of the eye surface. Each evaluated
// frame tries the next threshold of a fixed sweep, so the outcome only
// depends on the sequence of frames it has seen.
type Calibration struct {
	cfg        CalibrationConfig
	locator    *IrisLocator
	thresholds []int
	sides      [2]sideCalibration
}

type sideCalibration struct {
	samples []CalibrationSample
	cursor  int
}

// NewCalibration creates an empty calibration. The locator provides the
// same preprocessing as the one used to find the pupils.
func NewCalibration(cfg CalibrationConfig, locator *IrisLocator) *Calibration {
	return &Calibration{
		cfg:        cfg,
		locator:    locator,
		thresholds: cfg.thresholds(),
	}
}

// IsComplete reports whether both eyes are calibrated.
func (c *Calibration) IsComplete() bool {
	return c.Complete(LeftEye) && c.Complete(RightEye)
}

// Complete reports whether the eye collected all of its samples.
func (c *Calibration) Complete(side Side) bool {
	if !validSide(side) {
		return false
	}
	return len(c.sides[side].samples) >= c.cfg.Samples
}

// Samples returns a copy of the samples recorded for the eye.
func (c *Calibration) Samples(side Side) []CalibrationSample {
	if !validSide(side) {
		return nil
	}
	return append([]CalibrationSample(nil), c.sides[side].samples...)
}

// Reset forgets every recorded sample.
func (c *Calibration) Reset() {
	c.sides = [2]sideCalibration{}
}

// Evaluate binarizes the eye region with the next candidate threshold and
// records how much of the eye surface stays white. It does nothing once the
// eye is calibrated or when the eye contour covers no pixel.
func (c *Calibration) Evaluate(region EyeRegion, side Side) {
	if !validSide(side) || c.Complete(side) || len(c.thresholds) == 0 {
		return
	}
	if region.Frame == nil || region.Mask == nil || region.MaskArea() == 0 {
		return
	}

	s := &c.sides[side]
	threshold := c.thresholds[s.cursor%len(c.thresholds)]
	s.cursor++

	bin := c.locator.Binarize(c.locator.Prepare(region), threshold)
	s.samples = append(s.samples, CalibrationSample{
		Threshold:     threshold,
		WhiteFraction: whiteFraction(bin, region.Mask),
	})
	if len(s.samples) > c.cfg.Samples {
		s.samples = s.samples[len(s.samples)-c.cfg.Samples:]
	}
}

// Threshold returns the best threshold known so far for the eye. Before any
// sample was recorded it returns the middle of the sweep.
func (c *Calibration) Threshold(side Side) int {
	if !validSide(side) || len(c.sides[side].samples) == 0 {
		if len(c.thresholds) == 0 {
			return (c.cfg.ThresholdMin + c.cfg.ThresholdMax) / 2
		}
		return c.thresholds[(len(c.thresholds)-1)/2]
	}

	samples := c.sides[side].samples
	dist := make([]float64, len(samples))
	for i, s := range samples {
		dist[i] = math.Abs((1 - s.WhiteFraction) - c.cfg.IrisTarget)
	}
	return samples[floats.MinIdx(dist)].Threshold
}

// whiteFraction returns the share of white pixels among the pixels
// selected by the mask.
func whiteFraction(bin *image.Gray, mask *image.Alpha) float64 {
	var total, white int
	for y := 0; y < mask.Rect.Dy(); y++ {
		for x := 0; x < mask.Rect.Dx(); x++ {
			if mask.Pix[mask.PixOffset(x, y)] == 0 {
				continue
			}
			total++
			if bin.Pix[bin.PixOffset(x, y)] != 0 {
				white++
			}
		}
	}
	if total == 0 {
		return 0
	}
	return float64(white) / float64(total)
}

func validSide(side Side) bool {
	return side == LeftEye || side == RightEye
}
