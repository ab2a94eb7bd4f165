package beamprofiler

import "math"

// symEigen2 decomposes the symmetric 2x2 tensor [[sxx, sxy], [sxy, syy]] in
// closed form. l1 is the eigenvalue belonging to the axis closer to x and l2
// the one closer to y (not sorted by magnitude), so a nearly axis-aligned
// ellipse keeps its x/y assignment. phi is the principal-axis angle in
// (-pi/4, pi/4], with the sign of sxy deciding the degenerate sxx == syy case.
func symEigen2(sxx, syy, sxy float64) (l1, l2, phi float64) {
	g := sign(sxx - syy)
	disc := math.Sqrt((sxx-syy)*(sxx-syy) + 4*sxy*sxy)
	l1 = (sxx + syy + g*disc) / 2
	l2 = (sxx + syy - g*disc) / 2
	if sxx == syy {
		phi = math.Pi / 4 * sign(sxy)
	} else {
		phi = math.Atan(2*sxy/(sxx-syy)) / 2
	}
	return l1, l2, phi
}

func sign(v float64) float64 {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	default:
		return 0
	}
}
