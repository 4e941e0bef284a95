package imop

// Moments holds the spatial moments up to the first order of a polygon.
type Moments struct {
	M00, M10, M01 float64
}

// Centroid returns the center of mass. It reports false for degenerate
// polygons enclosing no area.
func (m Moments) Centroid() (x, y float64, ok bool) {
	if m.M00 == 0 {
		return 0, 0, false
	}
	return m.M10 / m.M00, m.M01 / m.M00, true
}

// PolygonMoments computes the moments of the area enclosed by the contour
// using Green's theorem over its edges. The result does not depend on the
// orientation in which the contour was traced.
func PolygonMoments(c Contour) Moments {
	var m Moments
	if len(c) < 3 {
		return m
	}
	for i, p := range c {
		q := c[(i+1)%len(c)]
		xi, yi := float64(p.X), float64(p.Y)
		xj, yj := float64(q.X), float64(q.Y)
		cross := xi*yj - xj*yi

		m.M00 += cross
		m.M10 += (xi + xj) * cross
		m.M01 += (yi + yj) * cross
	}
	m.M00 /= 2
	m.M10 /= 6
	m.M01 /= 6

	if m.M00 < 0 {
		m.M00, m.M10, m.M01 = -m.M00, -m.M10, -m.M01
	}
	return m
}
