package imop

import (
	"image"
	"math"
)

// Contour is the closed boundary of a blob, as an ordered list of the
// boundary pixels. The last point connects back to the first one.
type Contour []image.Point

// Area returns the area enclosed by the contour polygon.
// Contours with less than three points enclose no area.
func (c Contour) Area() float64 {
	return math.Abs(c.signedArea())
}

func (c Contour) signedArea() float64 {
	if len(c) < 3 {
		return 0
	}
	var sum float64
	for i, p := range c {
		q := c[(i+1)%len(c)]
		sum += float64(p.X*q.Y - q.X*p.Y)
	}
	return sum / 2
}

// neighbours lists the 8 neighbour offsets in clockwise order, starting west.
var neighbours = [8]image.Point{
	{-1, 0}, {-1, -1}, {0, -1}, {1, -1},
	{1, 0}, {1, 1}, {0, 1}, {-1, 1},
}

func neighbourIndex(p image.Point) int {
	for i, n := range neighbours {
		if n == p {
			return i
		}
	}
	return 0
}

// FindContours traces the outer boundary of every 8-connected group of
// black pixels (value below 128) found in the mask. The contours are
// returned in the raster order of their top-left pixel.
func FindContours(mask *image.Gray) []Contour {
	bounds := mask.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	labels := make([]int, w*h)

	dark := func(x, y int) bool {
		return mask.Pix[mask.PixOffset(bounds.Min.X+x, bounds.Min.Y+y)] < 128
	}

	var (
		contours []Contour
		label    int
		queue    []image.Point
	)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if labels[y*w+x] != 0 || !dark(x, y) {
				continue
			}
			label++
			labels[y*w+x] = label
			queue = append(queue[:0], image.Pt(x, y))
			for len(queue) > 0 {
				p := queue[len(queue)-1]
				queue = queue[:len(queue)-1]
				for _, n := range neighbours {
					q := p.Add(n)
					if q.X < 0 || q.Y < 0 || q.X >= w || q.Y >= h {
						continue
					}
					if labels[q.Y*w+q.X] == 0 && dark(q.X, q.Y) {
						labels[q.Y*w+q.X] = label
						queue = append(queue, q)
					}
				}
			}
			contours = append(contours, trace(labels, w, h, image.Pt(x, y), label))
		}
	}
	return contours
}

// trace follows the boundary of the labeled component clockwise with the
// Moore neighbour algorithm. The start pixel has to be the first pixel of the
// component in raster order, so its west neighbour is known to be outside.
func trace(labels []int, w, h int, start image.Point, label int) Contour {
	inside := func(p image.Point) bool {
		return p.X >= 0 && p.Y >= 0 && p.X < w && p.Y < h && labels[p.Y*w+p.X] == label
	}

	contour := Contour{start}
	cur, back := start, 0
	var second image.Point

	for steps := 0; steps < 4*w*h+8; steps++ {
		next, dir, found := image.Point{}, 0, false
		for i := 1; i <= 8; i++ {
			d := (back + i) % 8
			if n := cur.Add(neighbours[d]); inside(n) {
				next, dir, found = n, d, true
				break
			}
		}
		if !found {
			// isolated pixel
			return contour
		}
		if steps == 0 {
			second = next
		} else if cur == start && next == second {
			break
		}
		// the neighbour examined right before the move is outside,
		// the search around the next pixel resumes from it
		b := cur.Add(neighbours[(dir+7)%8])
		back = neighbourIndex(b.Sub(next))
		cur = next
		contour = append(contour, cur)
	}
	if len(contour) > 1 && contour[len(contour)-1] == start {
		contour = contour[:len(contour)-1]
	}
	return contour
}
