package beamprofiler

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// Measurement is a nominal value with its one-sigma standard deviation.
type Measurement struct {
	Value  float64
	StdDev float64
}

func (m Measurement) String() string {
	return fmt.Sprintf("%.6g +/- %.3g", m.Value, m.StdDev)
}

// Correlated is a vector of random variables with a full covariance matrix.
// Derived scalar quantities get their variance from first-order propagation
// honoring the off-diagonal covariances, g' Sigma g, not the
// independent-error approximation.
type Correlated struct {
	vals []float64
	cov  *mat.SymDense
}

// NewCorrelated wraps nominal values and their covariance. The covariance
// dimension must match len(vals).
func NewCorrelated(vals []float64, cov *mat.SymDense) (*Correlated, error) {
	if cov.SymmetricDim() != len(vals) {
		return nil, fmt.Errorf("covariance is %dx%d for %d values",
			cov.SymmetricDim(), cov.SymmetricDim(), len(vals))
	}
	return &Correlated{vals: vals, cov: cov}, nil
}

// Value returns the i-th nominal value.
func (c *Correlated) Value(i int) float64 { return c.vals[i] }

// Dim returns the number of variables.
func (c *Correlated) Dim() int { return len(c.vals) }

// Derive propagates the covariance through a scalar function with the given
// nominal value and gradient with respect to the underlying variables.
func (c *Correlated) Derive(nominal float64, grad []float64) Measurement {
	if len(grad) != len(c.vals) {
		panic("beamprofiler: gradient dimension mismatch")
	}
	g := mat.NewVecDense(len(grad), grad)
	v := mat.Inner(g, c.cov, g)
	if v < 0 {
		// Round-off on a near-singular covariance can push the quadratic
		// form slightly negative.
		v = 0
	}
	return Measurement{Value: nominal, StdDev: math.Sqrt(v)}
}
