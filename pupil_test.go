package gaze

import (
	"image"
	"image/color"
	"image/draw"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIrisLocator_Locate(t *testing.T) {
	src, lm := syntheticFace()
	locator := NewIrisLocator(DefaultConfig().Locator)

	for side, want := range map[Side]image.Point{LeftEye: {80, 60}, RightEye: {220, 60}} {
		region, ok := IsolateEye(src, lm, side, DefaultRegionMargin)
		require.True(t, ok)

		pupil := locator.Locate(region, 50)
		require.True(t, pupil.Found, "pupil not found on the %s eye", side)
		assert.Equal(t, 50, pupil.Threshold)

		abs := region.Origin.Add(pupil.Point)
		assert.InDelta(t, want.X, abs.X, 1)
		assert.InDelta(t, want.Y, abs.Y, 1)
	}
}

func TestIrisLocator_NoIris(t *testing.T) {
	src, lm := syntheticFace()
	draw.Draw(src, src.Bounds(), &image.Uniform{scleraColor}, image.Point{}, draw.Src)
	locator := NewIrisLocator(DefaultConfig().Locator)

	region, ok := IsolateEye(src, lm, LeftEye, DefaultRegionMargin)
	require.True(t, ok)

	// only the area around the eye contour is dark
	pupil := locator.Locate(region, 50)
	assert.False(t, pupil.Found)

	// the iris is lighter than the threshold
	src, lm = syntheticFace()
	region, _ = IsolateEye(src, lm, LeftEye, DefaultRegionMargin)
	assert.False(t, locator.Locate(region, 10).Found)

	assert.False(t, locator.Locate(EyeRegion{}, 50).Found)
}

func TestIrisLocator_PrepareDoesNotAlias(t *testing.T) {
	src, lm := syntheticFace()
	region, ok := IsolateEye(src, lm, RightEye, DefaultRegionMargin)
	require.True(t, ok)
	before := append([]uint8(nil), region.Frame.Pix...)

	locator := NewIrisLocator(DefaultConfig().Locator)
	prepared := locator.Prepare(region)
	require.Equal(t, region.Frame.Bounds(), prepared.Bounds())
	prepared.Pix[0] = 99

	assert.Equal(t, before, region.Frame.Pix)
	// erosion grows the dark border into the contour
	assert.Equal(t, color.NRGBA{A: 255}, prepared.NRGBAAt(7, 35))
}

func BenchmarkIrisLocator_Locate(b *testing.B) {
	src, lm := syntheticFace()
	region, _ := IsolateEye(src, lm, LeftEye, DefaultRegionMargin)
	locator := NewIrisLocator(DefaultConfig().Locator)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		locator.Locate(region, 50)
	}
}

func TestIrisLocator_IrisNearUpperLid(t *testing.T) {
	locator := NewIrisLocator(DefaultConfig().Locator)

	tests := []struct {
		name  string
		cy    int
		found bool
	}{
		{"centered", 60, true},
		{"raised", 54, true},
		// the erosion closes the sclera band left above the iris
		{"touching the lid", 52, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src, lm := syntheticFace()
			draw.Draw(src, image.Rect(20, 30, 141, 91), &image.Uniform{scleraColor}, image.Point{}, draw.Src)
			fillCircle(src, 80, tt.cy, irisRadius, irisColor)

			region, ok := IsolateEye(src, lm, LeftEye, DefaultRegionMargin)
			require.True(t, ok)

			pupil := locator.Locate(region, 50)
			require.Equal(t, tt.found, pupil.Found)
			if tt.found {
				abs := region.Origin.Add(pupil.Point)
				assert.InDelta(t, 80, abs.X, 1)
				assert.InDelta(t, tt.cy, abs.Y, 2)
			}
		})
	}
}
