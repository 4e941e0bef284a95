package imop

import (
	"image"

	"github.com/esimov/gaze/utils"
)

// Erode applies a morphological erosion with a ksize×ksize rectangular
// structuring element, repeated the given number of times. Each channel of
// the output pixel takes the minimum value found under the element; pixels
// falling outside the image do not take part in the minimum.
func Erode(src *image.NRGBA, ksize, iterations int) *image.NRGBA {
	bounds := src.Bounds()
	w, h := bounds.Dx(), bounds.Dy()

	cur := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		si := src.PixOffset(bounds.Min.X, bounds.Min.Y+y)
		copy(cur.Pix[y*cur.Stride:y*cur.Stride+w*4], src.Pix[si:si+w*4])
	}
	if ksize < 2 {
		return cur
	}
	r := ksize / 2

	for it := 0; it < iterations; it++ {
		next := image.NewNRGBA(cur.Rect)
		for y := 0; y < h; y++ {
			y0, y1 := utils.Max(y-r, 0), utils.Min(y+r, h-1)
			for x := 0; x < w; x++ {
				x0, x1 := utils.Max(x-r, 0), utils.Min(x+r, w-1)

				low := [4]uint8{0xff, 0xff, 0xff, 0xff}
				for yy := y0; yy <= y1; yy++ {
					for xx := x0; xx <= x1; xx++ {
						i := yy*cur.Stride + xx*4
						for c := 0; c < 4; c++ {
							low[c] = utils.Min(low[c], cur.Pix[i+c])
						}
					}
				}
				di := y*next.Stride + x*4
				copy(next.Pix[di:di+4], low[:])
			}
		}
		cur = next
	}
	return cur
}
