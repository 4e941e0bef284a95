package gaze

import (
	"encoding/json"
	"image"
	"math/rand"
	"testing"
	"time"

	"github.com/esimov/gaze/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTracker(w, h int) (*DwellTracker, *utils.ManualClock) {
	cfg := DefaultConfig().Dwell
	cfg.ScreenWidth, cfg.ScreenHeight = w, h
	clock := utils.NewManualClock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	return NewDwellTracker(cfg, clock), clock
}

// inTarget is a point of the (row 1, col 2) cell of a 1920x1080 screen.
var inTarget = image.Pt(1500, 500)

func TestDwellTracker_CellAlwaysOnGrid(t *testing.T) {
	rnd := rand.New(rand.NewSource(42))
	sizes := [][2]int{{1920, 1080}, {1, 1}, {2, 2}, {3, 3}, {640, 1}, {7, 5000}}

	for _, size := range sizes {
		d, _ := newTestTracker(size[0], size[1])
		for i := 0; i < 500; i++ {
			p := image.Pt(rnd.Intn(20000)-10000, rnd.Intn(20000)-10000)
			cell := d.CellAt(p)
			assert.True(t, cell.Row >= 0 && cell.Row <= 2, "row %d for %v on %v", cell.Row, p, size)
			assert.True(t, cell.Col >= 0 && cell.Col <= 2, "col %d for %v on %v", cell.Col, p, size)
		}
	}
}

func TestDwellTracker_CellAt(t *testing.T) {
	d, _ := newTestTracker(1920, 1080)

	assert.Equal(t, Cell{0, 0}, d.CellAt(image.Pt(0, 0)))
	assert.Equal(t, Cell{0, 0}, d.CellAt(image.Pt(639, 359)))
	assert.Equal(t, Cell{1, 1}, d.CellAt(image.Pt(640, 360)))
	assert.Equal(t, TargetCell, d.CellAt(inTarget))
	assert.Equal(t, Cell{2, 2}, d.CellAt(image.Pt(5000, 5000)))
	assert.Equal(t, Cell{0, 0}, d.CellAt(image.Pt(-1, -1)))
}

func TestDwellTracker_Fires(t *testing.T) {
	const eps = time.Millisecond

	for _, tt := range []struct {
		name  string
		after time.Duration
		fired int
	}{
		{"before hold", 2*time.Second - eps, 0},
		{"after hold", 2*time.Second + eps, 1},
	} {
		t.Run(tt.name, func(t *testing.T) {
			d, clock := newTestTracker(1920, 1080)

			ev := d.Track(inTarget, true)
			assert.Equal(t, Dwelling, ev.State)
			assert.False(t, ev.Fired)

			fired := 0
			clock.Advance(tt.after)
			if ev := d.Track(inTarget, true); ev.Fired {
				fired++
				assert.Equal(t, DwellFired, ev.State)
				assert.Equal(t, tt.after, ev.Elapsed)
			} else {
				assert.Equal(t, Dwelling, ev.State)
			}
			assert.Equal(t, tt.fired, fired)
		})
	}
}

func TestDwellTracker_FiresOnce(t *testing.T) {
	d, clock := newTestTracker(1920, 1080)

	fired := 0
	for i := 0; i <= 70; i++ {
		if d.Track(inTarget, true).Fired {
			fired++
		}
		clock.Advance(33 * time.Millisecond)
	}
	// 71 frames span 2.31s, a single dwell completes after 61 frames
	assert.Equal(t, 1, fired)
	assert.Equal(t, Dwelling, d.State())
}

func TestDwellTracker_LeavingResets(t *testing.T) {
	d, clock := newTestTracker(1920, 1080)

	d.Track(inTarget, true)
	clock.Advance(1500 * time.Millisecond)
	assert.Equal(t, 1500*time.Millisecond, d.Track(inTarget, true).Elapsed)

	ev := d.Track(image.Pt(10, 10), true)
	assert.Equal(t, DwellIdle, ev.State)
	assert.Zero(t, ev.Elapsed)

	d.Track(inTarget, true)
	clock.Advance(1500 * time.Millisecond)
	ev = d.Track(inTarget, true)
	assert.False(t, ev.Fired)
	assert.Equal(t, 1500*time.Millisecond, ev.Elapsed)

	// a frame without gaze point resets as well
	assert.Equal(t, DwellIdle, d.Track(image.Point{}, false).State)
	clock.Advance(time.Second)
	assert.Equal(t, Dwelling, d.Track(inTarget, true).State)
	assert.Zero(t, d.Track(inTarget, true).Elapsed)
}

func TestDwellTracker_GazePoint(t *testing.T) {
	d, _ := newTestTracker(1920, 1080)
	p := image.Pt(1500, 500)

	got, ok := d.GazePoint(Result{PupilsLocated: true, PupilRight: &p})
	require.True(t, ok)
	assert.Equal(t, p, got)

	_, ok = d.GazePoint(Result{})
	assert.False(t, ok)

	cfg := DefaultConfig().Dwell
	cfg.Source = SourceRatio
	d = NewDwellTracker(cfg, nil)
	h, v := 0.8, 0.5
	got, ok = d.GazePoint(Result{PupilsLocated: true, HorizontalRatio: &h, VerticalRatio: &v})
	require.True(t, ok)
	assert.Equal(t, image.Pt(1536, 540), got)
	assert.Equal(t, TargetCell, d.CellAt(got))
}

func TestDwellEvent_JSON(t *testing.T) {
	data, err := json.Marshal(DwellEvent{State: DwellFired, Fired: true, Elapsed: 2034 * time.Millisecond})
	require.NoError(t, err)
	assert.JSONEq(t, `{"state":"fired","fired":true,"elapsed_ms":2034}`, string(data))
}
