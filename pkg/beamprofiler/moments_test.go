package beamprofiler

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMomentsSinglePixel(t *testing.T) {
	f := NewFrame(20, 30)
	f.Set(3, 7, 5.0)

	m, err := Moments(f, 1, 1, true)
	require.NoError(t, err)
	require.InDelta(t, 7, m.AvgX, 1e-12)
	require.InDelta(t, 3, m.AvgY, 1e-12)
	require.InDelta(t, 0, m.Sig2X, 1e-12)
	require.InDelta(t, 0, m.Sig2Y, 1e-12)
	require.InDelta(t, 0, m.Sig2XY, 1e-12)
}

func TestMomentsAxisScale(t *testing.T) {
	f := NewFrame(20, 30)
	f.Set(3, 7, 1.0)

	m, err := Moments(f, 2.5, 0.5, false)
	require.NoError(t, err)
	require.InDelta(t, 7*2.5, m.AvgX, 1e-12)
	require.InDelta(t, 3*0.5, m.AvgY, 1e-12)
}

func TestMomentsGaussian(t *testing.T) {
	const (
		sx = 10.0
		sy = 6.0
	)
	f := gaussianFrame(201, 201, 100, 100, sx, sy, 0, 0)

	m, err := Moments(f, 1, 1, true)
	require.NoError(t, err)
	require.InEpsilon(t, 100, m.AvgX, 1e-6)
	require.InEpsilon(t, 100, m.AvgY, 1e-6)
	require.InEpsilon(t, sx*sx, m.Sig2X, 0.01)
	require.InEpsilon(t, sy*sy, m.Sig2Y, 0.01)
	require.InDelta(t, 0, m.Sig2XY, 1e-6)
}

func TestMomentsZeroIntensity(t *testing.T) {
	f := NewFrame(10, 10)
	_, err := Moments(f, 1, 1, true)
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrZeroIntensity))
}

func TestMomentSetScale(t *testing.T) {
	m := MomentSet{AvgX: 2, AvgY: 3, Sig2X: 4, Sig2Y: 5, Sig2XY: -1}
	s := m.Scale(2e-6)
	require.InDelta(t, 4e-6, s.AvgX, 1e-18)
	require.InDelta(t, 6e-6, s.AvgY, 1e-18)
	require.InDelta(t, 16e-12, s.Sig2X, 1e-24)
	require.InDelta(t, 20e-12, s.Sig2Y, 1e-24)
	require.InDelta(t, -4e-12, s.Sig2XY, 1e-24)
}

func TestGradient(t *testing.T) {
	g := gradient([]float64{0, 1, 3, 6})
	want := []float64{1, 1.5, 2.5, 3}
	for i := range want {
		if math.Abs(g[i]-want[i]) > 1e-12 {
			t.Fatalf("gradient[%d] = %v, want %v", i, g[i], want[i])
		}
	}

	if g := gradient([]float64{5}); g[0] != 1 {
		t.Fatalf("single-sample gradient = %v, want 1", g[0])
	}
}
