package beamprofiler

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writePositionFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "position.txt")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestReadPositions(t *testing.T) {
	// Stage positions are doubled for the folded optical path.
	path := writePositionFile(t, "stage log\nunit = um\n1\n2\n3\n")
	z, err := ReadPositions(path)
	require.NoError(t, err)
	require.Equal(t, []float64{2e-6, 4e-6, 6e-6}, z)
}

func TestReadPositionsDefaultUnit(t *testing.T) {
	// Unknown units fall back to millimeters.
	path := writePositionFile(t, "stage log\nunit = furlong\n1.5\n")
	z, err := ReadPositions(path)
	require.NoError(t, err)
	require.InDelta(t, 3e-3, z[0], 1e-15)
}

func TestReadPositionsSkipsBlankLines(t *testing.T) {
	path := writePositionFile(t, "stage log\nunit = m\n0.5\n\n1.0\n")
	z, err := ReadPositions(path)
	require.NoError(t, err)
	require.Equal(t, []float64{1, 2}, z)
}

func TestReadPositionsErrors(t *testing.T) {
	_, err := ReadPositions(filepath.Join(t.TempDir(), "missing.txt"))
	require.ErrorIs(t, err, ErrMissingMetadata)

	_, err = ReadPositions(writePositionFile(t, "only one line\n"))
	require.ErrorIs(t, err, ErrMissingMetadata)

	_, err = ReadPositions(writePositionFile(t, "stage log\nunit = mm\nnot-a-number\n"))
	require.ErrorIs(t, err, ErrMissingMetadata)

	_, err = ReadPositions(writePositionFile(t, "stage log\nunit = mm\n"))
	require.ErrorIs(t, err, ErrMissingMetadata)
}
