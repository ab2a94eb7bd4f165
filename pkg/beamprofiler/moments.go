package beamprofiler

import "fmt"

// MomentSet holds intensity-weighted image moments. Units follow the
// coordinate scales used to compute them: first moments are lengths,
// second moments are lengths squared.
type MomentSet struct {
	AvgX   float64
	AvgY   float64
	Sig2X  float64
	Sig2Y  float64
	Sig2XY float64
}

// Scale returns a copy with first moments multiplied by s and second moments
// by s squared, converting pixel-unit moments to physical units.
func (m MomentSet) Scale(s float64) MomentSet {
	return MomentSet{
		AvgX:   m.AvgX * s,
		AvgY:   m.AvgY * s,
		Sig2X:  m.Sig2X * s * s,
		Sig2Y:  m.Sig2Y * s * s,
		Sig2XY: m.Sig2XY * s * s,
	}
}

// Moments computes intensity-weighted first moments (centroid), and second
// central moments when secondMoments is set, of a non-negative 2D intensity
// map. Coordinates are scaleX*column and scaleY*row; the weight of each
// sample is data*dx*dy with dx, dy the local differential element widths
// obtained from a discrete gradient of the axis coordinates, so moments stay
// correct under scaled or non-uniform sampling.
//
// Returns ErrZeroIntensity when the total weighted intensity is zero.
func Moments(f *Frame, scaleX, scaleY float64, secondMoments bool) (MomentSet, error) {
	rows, cols := f.Rows(), f.Cols()
	if rows == 0 || cols == 0 {
		return MomentSet{}, fmt.Errorf("moments of %dx%d frame: %w", rows, cols, ErrZeroIntensity)
	}

	x := make([]float64, cols)
	for j := range x {
		x[j] = scaleX * float64(j)
	}
	y := make([]float64, rows)
	for i := range y {
		y[i] = scaleY * float64(i)
	}
	dx := gradient(x)
	dy := gradient(y)

	var a float64
	for i := 0; i < rows; i++ {
		row := f.Row(i)
		for j, v := range row {
			a += v * dx[j] * dy[i]
		}
	}
	if a == 0 {
		return MomentSet{}, fmt.Errorf("moments of %dx%d frame: %w", rows, cols, ErrZeroIntensity)
	}

	var sx, sy float64
	for i := 0; i < rows; i++ {
		row := f.Row(i)
		for j, v := range row {
			w := v * dx[j] * dy[i]
			sx += w * x[j]
			sy += w * y[i]
		}
	}
	m := MomentSet{AvgX: sx / a, AvgY: sy / a}

	if !secondMoments {
		return m, nil
	}

	var sxx, syy, sxy float64
	for i := 0; i < rows; i++ {
		row := f.Row(i)
		cy := y[i] - m.AvgY
		for j, v := range row {
			w := v * dx[j] * dy[i]
			cx := x[j] - m.AvgX
			sxx += w * cx * cx
			syy += w * cy * cy
			sxy += w * cx * cy
		}
	}
	m.Sig2X = sxx / a
	m.Sig2Y = syy / a
	m.Sig2XY = sxy / a
	return m, nil
}

// gradient returns central differences with one-sided differences at the
// edges. A single-sample axis gets a unit element width.
func gradient(xs []float64) []float64 {
	n := len(xs)
	g := make([]float64, n)
	if n == 1 {
		g[0] = 1
		return g
	}
	g[0] = xs[1] - xs[0]
	g[n-1] = xs[n-1] - xs[n-2]
	for i := 1; i < n-1; i++ {
		g[i] = (xs[i+1] - xs[i-1]) / 2
	}
	return g
}
