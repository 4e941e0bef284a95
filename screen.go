package gaze

import (
	"encoding/json"
	"image"
	"time"

	"github.com/esimov/gaze/utils"
)

// gridSize is the number of rows and columns the screen is divided into.
const gridSize = 3

// Cell is a cell of the screen grid.
type Cell struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

// TargetCell is the grid cell whose occupancy is timed.
var TargetCell = Cell{Row: 1, Col: 2}

// DwellState is the state of the dwell tracker.
type DwellState int

const (
	DwellIdle DwellState = iota
	Dwelling
	DwellFired
)

func (s DwellState) String() string {
	switch s {
	case DwellIdle:
		return "idle"
	case Dwelling:
		return "dwelling"
	case DwellFired:
		return "fired"
	}
	return "unknown"
}

// MarshalText encodes the state by its name.
func (s DwellState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// DwellEvent is the outcome of one dwell tracker update.
type DwellEvent struct {
	State DwellState
	// Fired is true on the single update completing a dwell.
	Fired bool
	// Elapsed is the time spent in the target cell so far.
	Elapsed time.Duration
}

// MarshalJSON encodes the elapsed time in milliseconds.
func (e DwellEvent) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		State     DwellState `json:"state"`
		Fired     bool       `json:"fired"`
		ElapsedMs int64      `json:"elapsed_ms"`
	}{e.State, e.Fired, e.Elapsed.Milliseconds()})
}

// DwellTracker detects when the gaze stays inside the target cell of the
// screen grid for at least the configured hold time. A dwell fires once,
// after which the tracker starts over.
type DwellTracker struct {
	cfg   DwellConfig
	clock utils.Clock
	state DwellState
	since time.Time
}

// NewDwellTracker creates an idle tracker reading the time from clock.
func NewDwellTracker(cfg DwellConfig, clock utils.Clock) *DwellTracker {
	if clock == nil {
		clock = utils.RealClock{}
	}
	return &DwellTracker{cfg: cfg, clock: clock}
}

// CellAt returns the grid cell containing the screen point. Points outside
// of the screen are assigned to the nearest border cell.
func (d *DwellTracker) CellAt(p image.Point) Cell {
	gw := utils.Max(d.cfg.ScreenWidth/gridSize, 1)
	gh := utils.Max(d.cfg.ScreenHeight/gridSize, 1)
	return Cell{
		Row: utils.Clamp(utils.FloorDiv(p.Y, gh), 0, gridSize-1),
		Col: utils.Clamp(utils.FloorDiv(p.X, gw), 0, gridSize-1),
	}
}

// Track updates the tracker with the current gaze point; ok is false when
// there is no gaze point for the frame.
func (d *DwellTracker) Track(p image.Point, ok bool) DwellEvent {
	if !ok || d.CellAt(p) != TargetCell {
		d.Reset()
		return DwellEvent{State: DwellIdle}
	}

	now := d.clock.Now()
	if d.state != Dwelling {
		d.state, d.since = Dwelling, now
		return DwellEvent{State: Dwelling}
	}

	elapsed := now.Sub(d.since)
	if elapsed >= d.cfg.Hold.Duration {
		d.Reset()
		return DwellEvent{State: DwellFired, Fired: true, Elapsed: elapsed}
	}
	return DwellEvent{State: Dwelling, Elapsed: elapsed}
}

// State returns the current state of the tracker.
func (d *DwellTracker) State() DwellState {
	return d.state
}

// Reset drops any running timer.
func (d *DwellTracker) Reset() {
	d.state, d.since = DwellIdle, time.Time{}
}

// GazePoint selects the screen point fed into the tracker from the frame result.
func (d *DwellTracker) GazePoint(r Result) (image.Point, bool) {
	switch d.cfg.Source {
	case SourceRatio:
		if r.HorizontalRatio == nil || r.VerticalRatio == nil {
			return image.Point{}, false
		}
		return image.Pt(
			int(*r.HorizontalRatio*float64(d.cfg.ScreenWidth)),
			int(*r.VerticalRatio*float64(d.cfg.ScreenHeight)),
		), true
	default:
		if r.PupilRight == nil || !r.PupilsLocated {
			return image.Point{}, false
		}
		return *r.PupilRight, true
	}
}
