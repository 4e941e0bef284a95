package gaze

import (
	"image"
	"image/color"
	"image/draw"
)

var (
	skinColor   = color.NRGBA{R: 190, G: 150, B: 130, A: 255}
	scleraColor = color.NRGBA{R: 255, G: 255, B: 255, A: 255}
	irisColor   = color.NRGBA{R: 20, G: 20, B: 20, A: 255}
)

const irisRadius = 15

// eyeOutline returns a hexagonal eye contour 120px wide and 60px tall
// whose image-left corner is at (x, y).
func eyeOutline(x, y int) [6]image.Point {
	return [6]image.Point{
		{x, y},
		{x + 40, y - 30},
		{x + 80, y - 30},
		{x + 120, y},
		{x + 80, y + 30},
		{x + 40, y + 30},
	}
}

func fillCircle(img *image.NRGBA, cx, cy, r int, c color.NRGBA) {
	for y := cy - r; y <= cy+r; y++ {
		for x := cx - r; x <= cx+r; x++ {
			if (x-cx)*(x-cx)+(y-cy)*(y-cy) <= r*r {
				img.SetNRGBA(x, y, c)
			}
		}
	}
}

func landmarksFor(left, right [6]image.Point) Landmarks {
	lm := make(Landmarks, NumLandmarks)
	for i := range lm {
		lm[i] = image.Pt(150, 110)
	}
	copy(lm[36:42], left[:])
	copy(lm[42:48], right[:])
	return lm
}

// syntheticFace draws two eyes with their iris centered at (80, 60) and
// (220, 60) on a 300x120 frame and returns the matching landmarks.
func syntheticFace() (*image.NRGBA, Landmarks) {
	img := image.NewNRGBA(image.Rect(0, 0, 300, 120))
	draw.Draw(img, img.Bounds(), &image.Uniform{skinColor}, image.Point{}, draw.Src)

	for _, x := range []int{20, 160} {
		draw.Draw(img, image.Rect(x, 30, x+121, 91), &image.Uniform{scleraColor}, image.Point{}, draw.Src)
		fillCircle(img, x+60, 60, irisRadius, irisColor)
	}
	return img, landmarksFor(eyeOutline(20, 60), eyeOutline(160, 60))
}
