package imop

import (
	"image"
	"math"

	"github.com/esimov/gaze/utils"
)

// Bilateral smooths the image while preserving edges. Each output pixel is the
// weighted mean of the pixels found inside a circular window of the given
// diameter, where the weight decays with both the spatial distance and the
// color distance (sum of the absolute channel differences) to the center pixel.
// Pixels outside the image are mirrored without repeating the border pixel.
// The alpha channel is copied from the source.
func Bilateral(src *image.NRGBA, diameter int, sigmaColor, sigmaSpace float64) *image.NRGBA {
	bounds := src.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	w, h := bounds.Dx(), bounds.Dy()
	if w == 0 || h == 0 {
		return dst
	}
	if sigmaColor <= 0 {
		sigmaColor = 1
	}
	if sigmaSpace <= 0 {
		sigmaSpace = 1
	}
	radius := diameter / 2
	if diameter <= 0 {
		radius = int(math.Round(sigmaSpace * 1.5))
	}
	radius = utils.Max(radius, 1)

	type tap struct {
		dx, dy int
		weight float64
	}
	var window []tap
	spaceCoeff := -0.5 / (sigmaSpace * sigmaSpace)
	for dy := -radius; dy <= radius; dy++ {
		for dx := -radius; dx <= radius; dx++ {
			r2 := float64(dx*dx + dy*dy)
			if math.Sqrt(r2) > float64(radius) {
				continue
			}
			window = append(window, tap{dx: dx, dy: dy, weight: math.Exp(r2 * spaceCoeff)})
		}
	}

	colorCoeff := -0.5 / (sigmaColor * sigmaColor)
	colorWeight := make([]float64, 3*255+1)
	for i := range colorWeight {
		colorWeight[i] = math.Exp(float64(i*i) * colorCoeff)
	}

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			ci := src.PixOffset(bounds.Min.X+x, bounds.Min.Y+y)
			r0, g0, b0 := int(src.Pix[ci]), int(src.Pix[ci+1]), int(src.Pix[ci+2])

			var sumR, sumG, sumB, wsum float64
			for _, t := range window {
				sx := reflect101(x+t.dx, w)
				sy := reflect101(y+t.dy, h)
				si := src.PixOffset(bounds.Min.X+sx, bounds.Min.Y+sy)
				r, g, b := int(src.Pix[si]), int(src.Pix[si+1]), int(src.Pix[si+2])

				diff := utils.Abs(r-r0) + utils.Abs(g-g0) + utils.Abs(b-b0)
				wt := t.weight * colorWeight[diff]
				sumR += float64(r) * wt
				sumG += float64(g) * wt
				sumB += float64(b) * wt
				wsum += wt
			}
			di := dst.PixOffset(x, y)
			dst.Pix[di+0] = uint8(utils.Clamp(math.Round(sumR/wsum), 0, 255))
			dst.Pix[di+1] = uint8(utils.Clamp(math.Round(sumG/wsum), 0, 255))
			dst.Pix[di+2] = uint8(utils.Clamp(math.Round(sumB/wsum), 0, 255))
			dst.Pix[di+3] = src.Pix[ci+3]
		}
	}
	return dst
}

// reflect101 mirrors an out of range index back into [0, n) without
// duplicating the edge element: -1 maps to 1, n maps to n-2.
func reflect101(i, n int) int {
	if n == 1 {
		return 0
	}
	for i < 0 || i >= n {
		if i < 0 {
			i = -i
		}
		if i >= n {
			i = 2*(n-1) - i
		}
	}
	return i
}
