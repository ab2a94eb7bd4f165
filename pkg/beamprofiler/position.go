package beamprofiler

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// positionHeaderLines is the number of header lines before the z values; the
// last header line declares the unit as "unit = <m|mm|um|nm|pm>".
const positionHeaderLines = 2

var positionUnitScale = map[string]float64{
	"m":  1,
	"mm": 1e-3,
	"um": 1e-6,
	"nm": 1e-9,
	"pm": 1e-12,
}

// ReadPositions parses a position sidecar file: a two-line header whose
// second line declares the unit, then one z value per line. The returned
// values are doubled -- the stage travels the optical path twice in the
// double-pass configuration -- and converted to meters. An unrecognized unit
// falls back to millimeters.
func ReadPositions(path string) ([]float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMissingMetadata, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	var header []string
	for len(header) < positionHeaderLines && scanner.Scan() {
		header = append(header, scanner.Text())
	}
	if len(header) < positionHeaderLines {
		return nil, fmt.Errorf("%w: %s: truncated header", ErrMissingMetadata, path)
	}

	scale := 1e-3 // default mm
	if _, unit, ok := strings.Cut(header[positionHeaderLines-1], "="); ok {
		if s, known := positionUnitScale[strings.ToLower(strings.TrimSpace(unit))]; known {
			scale = s
		}
	}

	var z []float64
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		v, err := strconv.ParseFloat(line, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: bad position %q", ErrMissingMetadata, path, line)
		}
		z = append(z, 2*scale*v)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMissingMetadata, path, err)
	}
	if len(z) == 0 {
		return nil, fmt.Errorf("%w: %s: no position entries", ErrMissingMetadata, path)
	}
	return z, nil
}
