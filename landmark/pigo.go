// Package landmark provides a facial landmark detector backed by the pigo
// pixel intensity comparison cascades. Pigo locates the face, the pupils and a
// handful of eye corner points; the remaining points of the 68 point layout
// expected by the gaze package are derived from them.
package landmark

import (
	"errors"
	"fmt"
	"image"
	"math"
	"os"
	"sort"
	"sync"

	"github.com/esimov/gaze"
	"github.com/esimov/gaze/utils"
	pigo "github.com/esimov/pigo/core"
)

// ErrNoCascade is returned when a required cascade file is not provided.
var ErrNoCascade = errors.New("cascade file not provided")

// eyeCascades are the facial landmark cascades placed around the eyes.
var eyeCascades = []string{"lp46", "lp44", "lp42", "lp38", "lp312"}

// Config holds the detector settings.
type Config struct {
	FaceCascade   string
	PuplocCascade string
	// FlpDir is the directory of the facial landmark point cascades. When it
	// is empty, the eye corners are estimated from the pupil positions.
	FlpDir string

	MinSize      int
	MaxSize      int
	ShiftFactor  float64
	ScaleFactor  float64
	IoUThreshold float64
	// MinScore is the minimum detection score a face must reach.
	MinScore float32
	Angle    float64
	Perturbs int
	// Openness is the eye height relative to its width used to place the lid points.
	Openness float64
}

// DefaultConfig returns the detector settings used by the pigo examples.
func DefaultConfig() Config {
	return Config{
		MinSize:      60,
		MaxSize:      1000,
		ShiftFactor:  0.1,
		ScaleFactor:  1.1,
		IoUThreshold: 0.2,
		MinScore:     5.0,
		Perturbs:     63,
		Openness:     0.3,
	}
}

// PigoDetector implements gaze.LandmarkDetector.
type PigoDetector struct {
	mu     sync.Mutex
	cfg    Config
	face   *pigo.Pigo
	puploc *pigo.PuplocCascade
	flp    map[string][]*pigo.FlpCascade
}

// NewPigoDetector unpacks the cascade files named in the configuration.
func NewPigoDetector(cfg Config) (*PigoDetector, error) {
	if cfg.FaceCascade == "" {
		return nil, fmt.Errorf("face cascade: %w", ErrNoCascade)
	}
	if cfg.PuplocCascade == "" {
		return nil, fmt.Errorf("pupil localization cascade: %w", ErrNoCascade)
	}

	data, err := os.ReadFile(cfg.FaceCascade)
	if err != nil {
		return nil, fmt.Errorf("error reading the face cascade file: %w", err)
	}
	face, err := pigo.NewPigo().Unpack(data)
	if err != nil {
		return nil, fmt.Errorf("error unpacking the face cascade file: %w", err)
	}

	data, err = os.ReadFile(cfg.PuplocCascade)
	if err != nil {
		return nil, fmt.Errorf("error reading the pupil localization cascade file: %w", err)
	}
	plc, err := pigo.NewPuplocCascade().UnpackCascade(data)
	if err != nil {
		return nil, fmt.Errorf("error unpacking the pupil localization cascade file: %w", err)
	}

	d := &PigoDetector{cfg: cfg, face: face, puploc: plc}
	if cfg.FlpDir != "" {
		d.flp, err = plc.ReadCascadeDir(cfg.FlpDir)
		if err != nil {
			return nil, fmt.Errorf("error reading the facial landmark cascades: %w", err)
		}
	}
	return d, nil
}

// Detect returns the landmarks of the highest scoring face of the image,
// or nil when no face reaches the minimum score.
func (d *PigoDetector) Detect(img *image.NRGBA) (gaze.Landmarks, error) {
	bounds := img.Bounds()
	imgParams := pigo.ImageParams{
		Pixels: gaze.Grayscale(img).Pix,
		Rows:   bounds.Dy(),
		Cols:   bounds.Dx(),
		Dim:    bounds.Dx(),
	}
	cParams := pigo.CascadeParams{
		MinSize:     d.cfg.MinSize,
		MaxSize:     utils.Min(d.cfg.MaxSize, utils.Max(bounds.Dx(), bounds.Dy())),
		ShiftFactor: d.cfg.ShiftFactor,
		ScaleFactor: d.cfg.ScaleFactor,
		ImageParams: imgParams,
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	dets := d.face.RunCascade(cParams, d.cfg.Angle)
	dets = d.face.ClusterDetections(dets, d.cfg.IoUThreshold)

	best, ok := bestFace(dets, d.cfg.MinScore)
	if !ok {
		return nil, nil
	}

	scale := float32(best.Scale)
	leftGuess := pigo.Puploc{
		Row:      best.Row - int(0.085*scale),
		Col:      best.Col - int(0.185*scale),
		Scale:    scale * 0.4,
		Perturbs: d.cfg.Perturbs,
	}
	rightGuess := leftGuess
	rightGuess.Col = best.Col + int(0.185*scale)

	leftEye := d.puploc.RunDetector(leftGuess, imgParams, d.cfg.Angle, false)
	rightEye := d.puploc.RunDetector(rightGuess, imgParams, d.cfg.Angle, false)
	leftPupil := pupilPoint(leftEye, leftGuess)
	rightPupil := pupilPoint(rightEye, rightGuess)

	var flps []image.Point
	if leftEye != nil && rightEye != nil && leftEye.Row > 0 && rightEye.Row > 0 {
		for _, name := range eyeCascades {
			for _, c := range d.flp[name] {
				for _, flipV := range []bool{false, true} {
					p := c.GetLandmarkPoint(leftEye, rightEye, imgParams, d.cfg.Perturbs, flipV)
					if p != nil && p.Row > 0 && p.Col > 0 {
						flps = append(flps, image.Pt(p.Col, p.Row))
					}
				}
			}
		}
	}

	la, lb, ra, rb := eyeCorners(leftPupil, rightPupil, flps)
	return buildLandmarks(
		image.Pt(best.Col, best.Row),
		eyeContour(la, lb, d.cfg.Openness),
		eyeContour(ra, rb, d.cfg.Openness),
	), nil
}

// bestFace returns the highest scoring detection above the minimum score.
func bestFace(dets []pigo.Detection, minScore float32) (pigo.Detection, bool) {
	var (
		best  pigo.Detection
		found bool
	)
	for _, det := range dets {
		if det.Q > minScore && (!found || det.Q > best.Q) {
			best, found = det, true
		}
	}
	return best, found
}

func pupilPoint(p *pigo.Puploc, guess pigo.Puploc) image.Point {
	if p == nil || p.Row <= 0 || p.Col <= 0 {
		return image.Pt(guess.Col, guess.Row)
	}
	return image.Pt(p.Col, p.Row)
}

// eyeCorners returns the image-left and image-right corners of both eyes.
// The landmark points are split between the eyes by the pupils midpoint
// and the extreme points along the x axis are taken as corners. An eye
// with less than two points gets corners placed along the inter-pupil line.
func eyeCorners(leftPupil, rightPupil image.Point, points []image.Point) (la, lb, ra, rb image.Point) {
	mid := (leftPupil.X + rightPupil.X) / 2

	var left, right []image.Point
	for _, p := range points {
		if p.X < mid {
			left = append(left, p)
		} else {
			right = append(right, p)
		}
	}

	dx := float64(rightPupil.X - leftPupil.X)
	dy := float64(rightPupil.Y - leftPupil.Y)
	half := 0.45 * math.Hypot(dx, dy) / 2
	ux, uy := 1.0, 0.0
	if n := math.Hypot(dx, dy); n > 0 {
		ux, uy = dx/n, dy/n
	}
	fallback := func(p image.Point) (image.Point, image.Point) {
		ox, oy := int(math.Round(ux*half)), int(math.Round(uy*half))
		return image.Pt(p.X-ox, p.Y-oy), image.Pt(p.X+ox, p.Y+oy)
	}
	extremes := func(pts []image.Point, pupil image.Point) (image.Point, image.Point) {
		if len(pts) < 2 {
			return fallback(pupil)
		}
		sort.SliceStable(pts, func(i, j int) bool { return pts[i].X < pts[j].X })
		return pts[0], pts[len(pts)-1]
	}

	la, lb = extremes(left, leftPupil)
	ra, rb = extremes(right, rightPupil)
	return la, lb, ra, rb
}

// eyeContour places the six eye contour points between the two corners:
// the lids are set at one and two thirds of the corner line, moved by half
// the eye height along the line normal.
func eyeContour(a, b image.Point, openness float64) [6]image.Point {
	dx, dy := float64(b.X-a.X), float64(b.Y-a.Y)
	length := math.Hypot(dx, dy)

	// normal pointing up in image coordinates
	var nx, ny float64
	if length > 0 {
		nx, ny = dy/length, -dx/length
	}
	h := openness * length / 2

	at := func(t, side float64) image.Point {
		return image.Pt(
			int(math.Round(float64(a.X)+dx*t+nx*h*side)),
			int(math.Round(float64(a.Y)+dy*t+ny*h*side)),
		)
	}
	return [6]image.Point{a, at(1.0/3, 1), at(2.0/3, 1), b, at(2.0/3, -1), at(1.0/3, -1)}
}

// buildLandmarks lays out the eye contours at their place in the 68 point
// scheme. The points pigo cannot locate are set to the face center.
func buildLandmarks(center image.Point, left, right [6]image.Point) gaze.Landmarks {
	lm := make(gaze.Landmarks, gaze.NumLandmarks)
	for i := range lm {
		lm[i] = center
	}
	copy(lm[36:42], left[:])
	copy(lm[42:48], right[:])
	return lm
}
