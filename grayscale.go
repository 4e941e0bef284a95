package gaze

import (
	"image"

	"github.com/esimov/gaze/imop"
)

// Grayscale converts the image to a single channel luma image.
func Grayscale(src *image.NRGBA) *image.Gray {
	bounds := src.Bounds()
	dst := image.NewGray(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))

	for y := 0; y < bounds.Dy(); y++ {
		si := src.PixOffset(bounds.Min.X, bounds.Min.Y+y)
		di := dst.PixOffset(0, y)
		for x := 0; x < bounds.Dx(); x++ {
			dst.Pix[di+x] = imop.Luma(src.Pix[si], src.Pix[si+1], src.Pix[si+2])
			si += 4
		}
	}
	return dst
}
