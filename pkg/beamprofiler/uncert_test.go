package beamprofiler

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestCorrelatedDerive(t *testing.T) {
	cov := mat.NewSymDense(2, []float64{
		0.04, 0.01,
		0.01, 0.09,
	})
	cor, err := NewCorrelated([]float64{2, 3}, cov)
	require.NoError(t, err)

	// f = x + y: var = 0.04 + 0.09 + 2*0.01 = 0.15.
	sum := cor.Derive(5, []float64{1, 1})
	require.Equal(t, 5.0, sum.Value)
	require.InDelta(t, math.Sqrt(0.15), sum.StdDev, 1e-12)

	// f = x * y: grad (3, 2), var = 9*0.04 + 4*0.09 + 2*6*0.01 = 0.84.
	prod := cor.Derive(6, []float64{3, 2})
	require.InDelta(t, math.Sqrt(0.84), prod.StdDev, 1e-12)
}

func TestCorrelatedDerive3x3(t *testing.T) {
	cov := mat.NewSymDense(3, []float64{
		1.0, 0.5, 0.2,
		0.5, 2.0, 0.3,
		0.2, 0.3, 1.5,
	})
	cor, err := NewCorrelated([]float64{1, 2, 3}, cov)
	require.NoError(t, err)

	// grad (1, -1, 2):
	// var = 1 + 2 + 4*1.5 + 2*(-0.5) + 4*0.2 + 2*(-2)*0.3 = 7.6.
	m := cor.Derive(5, []float64{1, -1, 2})
	require.InDelta(t, math.Sqrt(7.6), m.StdDev, 1e-12)
}

func TestCorrelatedAnticorrelation(t *testing.T) {
	// Perfectly anticorrelated variables: their sum carries no variance.
	cov := mat.NewSymDense(2, []float64{
		1, -1,
		-1, 1,
	})
	cor, err := NewCorrelated([]float64{1, -1}, cov)
	require.NoError(t, err)

	sum := cor.Derive(0, []float64{1, 1})
	require.Equal(t, 0.0, sum.StdDev)
}

func TestNewCorrelatedDimensionMismatch(t *testing.T) {
	cov := mat.NewSymDense(3, nil)
	_, err := NewCorrelated([]float64{1, 2}, cov)
	require.Error(t, err)
}

func TestMeasurementString(t *testing.T) {
	m := Measurement{Value: 1.23456, StdDev: 0.01}
	require.Equal(t, "1.23456 +/- 0.01", m.String())
}
