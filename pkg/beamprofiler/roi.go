package beamprofiler

import "math"

// ROI is a rectangular region of interest given as center plus extent in
// fractional pixel units. A NaN Width or Height selects the full frame
// extent on that axis.
type ROI struct {
	CenterX float64
	Width   float64
	CenterY float64
	Height  float64
}

// FullROI returns the ROI covering the whole frame.
func FullROI(f *Frame) ROI {
	return ROI{
		CenterX: float64(f.Cols()) / 2,
		Width:   float64(f.Cols()),
		CenterY: float64(f.Rows()) / 2,
		Height:  float64(f.Rows()),
	}
}

// ExtractROI crops a sub-window of f and returns the view together with its
// integral origin (left column, bottom row) in f's pixel coordinates.
//
// Clamping policy:
//   - a left/bottom edge at or below 0 is pinned to 0 and the extent shrinks
//     by the overshoot, preserving the far edge rather than re-centering;
//   - a NaN extent (or NaN-propagated edge) selects the full axis extent;
//   - an extent reaching past the frame is clipped to the remaining extent.
//
// The result always holds at least one row and one column and never exceeds
// the frame bounds.
func ExtractROI(f *Frame, roi ROI) (view *Frame, left, bottom int) {
	cols, rows := f.Cols(), f.Rows()

	leftF := roi.CenterX - roi.Width/2
	bottomF := roi.CenterY - roi.Height/2
	widthF := roi.Width
	heightF := roi.Height

	left, widthF = clampAxisOrigin(leftF, widthF, cols)
	bottom, heightF = clampAxisOrigin(bottomF, heightF, rows)

	width := clampAxisExtent(left, widthF, cols)
	height := clampAxisExtent(bottom, heightF, rows)

	return f.View(bottom, left, height, width), left, bottom
}

// clampAxisOrigin pins the low edge inside [0, size-2] and shrinks the extent
// by any overshoot below zero. NaN edges fall back to 0.
func clampAxisOrigin(edge, extent float64, size int) (int, float64) {
	edge = math.Min(edge, float64(size-2))
	switch {
	case edge <= 0:
		return 0, extent + edge
	case math.IsNaN(edge):
		return 0, extent
	default:
		return int(edge), extent
	}
}

// clampAxisExtent clips the extent to what remains of the axis; NaN selects
// the full axis. At least one sample is always kept.
func clampAxisExtent(origin int, extent float64, size int) int {
	var n int
	switch {
	case float64(origin)+extent > float64(size):
		n = size - origin
	case math.IsNaN(extent):
		n = size
	default:
		n = int(extent)
	}
	if n > size-origin {
		n = size - origin
	}
	if n < 1 {
		n = 1
	}
	return n
}
