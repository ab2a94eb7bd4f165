package beamprofiler

import "math"

const (
	// widthTolerance is the relative diameter change below which the
	// iterative window refinement is considered converged.
	widthTolerance = 1e-4

	// maxWidthIterations caps the refinement loop. Hitting the cap flags the
	// sample as non-converged; the last iterate is still used.
	maxWidthIterations = 5

	// windowGrowth sizes the next window as a multiple of the current
	// diameter, generous enough to avoid premature truncation.
	windowGrowth = 3.0
)

// BeamWidthSample is the per-frame measurement: D4-sigma diameters along the
// principal axes, ellipse tilt, the final refinement window and the physical
// second-moment tensor. Z is the optical-axis position, filled in by the
// pipeline. Immutable once produced.
type BeamWidthSample struct {
	Z          float64   // m
	DX         float64   // m, D4-sigma diameter along the x-adjacent principal axis
	DY         float64   // m, along the y-adjacent principal axis
	Phi        float64   // rad, ellipse tilt
	ROI        ROI       // final window, pixel units
	Moments    MomentSet // physical units (m, m^2)
	Converged  bool
	Iterations int
}

// MeasureBeamWidth extracts a stable beam-width sample from one intensity
// frame using iteratively refined second-moment windows.
//
// Each pass crops the current window, computes second moments over the crop,
// derives D4-sigma diameters dx = 4*sqrt(sig2x), dy = 4*sqrt(sig2y), and
// re-centers a window of windowGrowth times the new diameters on the moment
// centroid. The centroid is mapped back to frame coordinates through the
// clamped integer origin of the window actually cropped, not the requested
// fractional origin, so the recentering stays consistent with the data the
// moments were computed from; the two differ by sub-pixel amounts, more when
// the window clamps at a frame edge. The loop stops when both diameters
// change by less than
// widthTolerance relative to the previous pass, or after maxWidthIterations
// passes with the sample flagged non-converged.
//
// pixelSize is the physical pixel pitch in meters; the returned diameters,
// tilt and moments are in physical units. A blank crop surfaces
// ErrZeroIntensity.
func MeasureBeamWidth(f *Frame, pixelSize float64) (*BeamWidthSample, error) {
	d0x := float64(f.Cols())
	d0y := float64(f.Rows())
	next := FullROI(f)

	var (
		roi       ROI
		m         MomentSet
		converged bool
		iters     int
	)
	for {
		roi = next
		crop, left, bottom := ExtractROI(f, roi)
		var err error
		m, err = Moments(crop, 1, 1, true)
		if err != nil {
			return nil, err
		}

		dx := 4 * math.Sqrt(m.Sig2X)
		dy := 4 * math.Sqrt(m.Sig2Y)
		errX := math.Abs(dx-d0x) / d0x
		errY := math.Abs(dy-d0y) / d0y
		d0x, d0y = dx, dy

		next = ROI{
			CenterX: m.AvgX + float64(left),
			Width:   windowGrowth * dx,
			CenterY: m.AvgY + float64(bottom),
			Height:  windowGrowth * dy,
		}

		iters++
		if errX < widthTolerance && errY < widthTolerance {
			converged = true
			break
		}
		if iters >= maxWidthIterations {
			break
		}
	}

	phys := m.Scale(pixelSize)
	l1, l2, phi := symEigen2(phys.Sig2X, phys.Sig2Y, phys.Sig2XY)

	return &BeamWidthSample{
		DX:         4 * math.Sqrt(l1),
		DY:         4 * math.Sqrt(l2),
		Phi:        phi,
		ROI:        roi,
		Moments:    phys,
		Converged:  converged,
		Iterations: iters,
	}, nil
}
