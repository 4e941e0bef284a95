package imop

import (
	"image"
	"math"
)

// Luma returns the perceived brightness of a color using the Rec. 601 weights.
func Luma(r, g, b uint8) uint8 {
	return uint8(math.Round(0.299*float64(r) + 0.587*float64(g) + 0.114*float64(b)))
}

// Binarize converts the image into a black and white mask: every pixel
// whose luma is at least the threshold becomes white (255), all the
// other pixels become black (0).
func Binarize(src *image.NRGBA, threshold int) *image.Gray {
	bounds := src.Bounds()
	dst := image.NewGray(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))

	for y := 0; y < bounds.Dy(); y++ {
		si := src.PixOffset(bounds.Min.X, bounds.Min.Y+y)
		di := dst.PixOffset(0, y)
		for x := 0; x < bounds.Dx(); x++ {
			if int(Luma(src.Pix[si], src.Pix[si+1], src.Pix[si+2])) >= threshold {
				dst.Pix[di] = 0xff
			}
			si += 4
			di++
		}
	}
	return dst
}
