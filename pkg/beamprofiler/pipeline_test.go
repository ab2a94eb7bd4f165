package beamprofiler

import (
	"bufio"
	"bytes"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// writeSyntheticScan lays out a scan directory: 16-bit PGM frames of a
// circular Gaussian following the propagation law, plus the position sidecar.
// The position lines are deliberately not z-ordered.
func writeSyntheticScan(t *testing.T, zr float64) (dir string, zSorted []float64) {
	t.Helper()
	dir = t.TempDir()

	zSorted = make([]float64, 12)
	for i := range zSorted {
		zSorted[i] = -0.04 + 0.08*float64(i)/11
	}
	perm := []int{7, 2, 11, 0, 5, 9, 3, 8, 1, 10, 4, 6}

	var positions bytes.Buffer
	positions.WriteString("stage scan\nunit = mm\n")
	for k, pi := range perm {
		z := zSorted[pi]
		sigma := 10 * math.Sqrt(1+z*z/(zr*zr))
		frame := gaussianPGM16(256, 256, sigma)
		name := fmt.Sprintf("frame_%02d.pgm", k)
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), frame, 0o644))
		// The stage reading is half the optical path in millimeters.
		fmt.Fprintf(&positions, "%.9f\n", z/2*1e3)
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "position.txt"), positions.Bytes(), 0o644))
	return dir, zSorted
}

func pgmDecoder(path string) (*RawImage, error) {
	return ReadPGM(path)
}

func TestAnalyzeSyntheticScan(t *testing.T) {
	const (
		pitch = 4e-6
		wl    = 1.030e-6
		d0    = 160e-6 // 4 * (10 px) * pitch at the waist
	)
	zr := math.Pi * d0 * d0 / 4 / wl
	dir, zSorted := writeSyntheticScan(t, zr)

	cfg := DefaultConfig(dir)
	cfg.PixelSize = pitch
	cfg.Wavelength = wl
	cfg.Workers = 4

	a, err := Analyze(cfg, pgmDecoder)
	require.NoError(t, err)
	require.Len(t, a.Samples, 12)

	// Samples come back in ascending z regardless of file order.
	for i, s := range a.Samples {
		require.NotNil(t, s)
		require.InDelta(t, zSorted[i], s.Z, 1e-9)
		require.True(t, s.Converged)
	}

	require.NoError(t, a.ErrX)
	require.NoError(t, a.ErrY)
	require.InDelta(t, 0, a.FitX.Z0.Value, 1e-3)
	require.InEpsilon(t, d0, a.FitX.D0.Value, 0.01)
	require.InEpsilon(t, 1.0, a.FitX.M2.Value, 0.01)
	require.InEpsilon(t, zr, a.FitX.ZR.Value, 0.01)
	require.InEpsilon(t, d0, a.FitY.D0.Value, 0.01)
}

func TestAnalyzeSkipsZeroIntensityFrame(t *testing.T) {
	const (
		pitch = 4e-6
		wl    = 1.030e-6
		d0    = 160e-6
	)
	zr := math.Pi * d0 * d0 / 4 / wl
	dir, _ := writeSyntheticScan(t, zr)

	cfg := DefaultConfig(dir)
	cfg.PixelSize = pitch
	cfg.Wavelength = wl

	// One dead frame in the batch must not take down the scan.
	dead := filepath.Join(dir, "frame_05.pgm")
	decode := func(path string) (*RawImage, error) {
		if path == dead {
			return nil, fmt.Errorf("blank capture: %w", ErrZeroIntensity)
		}
		return ReadPGM(path)
	}

	a, err := Analyze(cfg, decode)
	require.NoError(t, err)

	skipped := 0
	for _, s := range a.Samples {
		if s == nil {
			skipped++
		}
	}
	require.Equal(t, 1, skipped)
	require.NoError(t, a.ErrX)
	require.InEpsilon(t, d0, a.FitX.D0.Value, 0.01)
}

func TestAnalyzeCountMismatch(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.pgm"), gaussianPGM16(16, 16, 3), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.pgm"), gaussianPGM16(16, 16, 3), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "position.txt"),
		[]byte("scan\nunit = mm\n1\n2\n3\n"), 0o644))

	_, err := Analyze(DefaultConfig(dir), pgmDecoder)
	require.ErrorIs(t, err, ErrCountMismatch)
}

func TestAnalyzeNoFrames(t *testing.T) {
	_, err := Analyze(DefaultConfig(t.TempDir()), pgmDecoder)
	require.ErrorIs(t, err, ErrNoFrames)
}

func TestAnalyzeMissingPositions(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.pgm"), gaussianPGM16(16, 16, 3), 0o644))
	_, err := Analyze(DefaultConfig(dir), pgmDecoder)
	require.ErrorIs(t, err, ErrMissingMetadata)
}

func TestConfigApplyFile(t *testing.T) {
	cfg := DefaultConfig("scan")
	path := filepath.Join(t.TempDir(), "tuning.json")
	require.NoError(t, os.WriteFile(path,
		[]byte(`{"pixel_size_m": 5.5e-6, "patterns": ["*.pgm"], "workers": 2}`), 0o644))

	require.NoError(t, cfg.ApplyFile(path))
	require.Equal(t, 5.5e-6, cfg.PixelSize)
	require.Equal(t, []string{"*.pgm"}, cfg.Patterns)
	require.Equal(t, 2, cfg.Workers)
	// Untouched fields keep their defaults.
	require.Equal(t, 1.030e-6, cfg.Wavelength)
	require.Equal(t, "position.txt", cfg.PositionFile)
}

func TestConfigApplyFileRejectsNonJSON(t *testing.T) {
	cfg := DefaultConfig("scan")
	require.Error(t, cfg.ApplyFile("tuning.yaml"))
}

func TestReadPGMFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "f.pgm")
	require.NoError(t, os.WriteFile(path, gaussianPGM16(9, 9, 2), 0o644))

	img, err := ReadPGM(path)
	require.NoError(t, err)
	require.Equal(t, 9, img.Width)

	r := bufio.NewReader(bytes.NewReader(gaussianPGM16(9, 9, 2)))
	img2, err := DecodePGM(r)
	require.NoError(t, err)
	require.Equal(t, img.Channels[0], img2.Channels[0])
}
