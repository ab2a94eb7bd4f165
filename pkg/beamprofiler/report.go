package beamprofiler

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"math"
	"os"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// GaussianBeamDiameter evaluates the propagation law at z: the D4-sigma
// diameter of a beam with waist diameter d0 at z0, quality factor m2 and
// wavelength wl, all in meters.
func GaussianBeamDiameter(z, z0, d0, m2, wl float64) float64 {
	w0 := d0 / 2
	t := m2 * wl / (math.Pi * w0) * (z - z0)
	return 2 * math.Sqrt(w0*w0+t*t)
}

// WriteSummary prints the per-axis fit results and sample statistics in a
// terminal-friendly block.
func WriteSummary(w io.Writer, a *Analysis) {
	measured := 0
	nonConverged := 0
	for _, s := range a.Samples {
		if s == nil {
			continue
		}
		measured++
		if !s.Converged {
			nonConverged++
		}
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "=== Beam Propagation Results ===")
	fmt.Fprintf(w, "  Frames measured: %d of %d\n", measured, len(a.Samples))
	if nonConverged > 0 {
		fmt.Fprintf(w, "  Non-converged:   %d\n", nonConverged)
	}
	writeAxisSummary(w, "X", a.FitX, a.ErrX)
	writeAxisSummary(w, "Y", a.FitY, a.ErrY)
	fmt.Fprintln(w, "================================")
}

func writeAxisSummary(w io.Writer, axis string, fit *FitResult, err error) {
	fmt.Fprintf(w, "  --- %s axis ---\n", axis)
	if err != nil {
		fmt.Fprintf(w, "  fit failed: %v\n", err)
		return
	}
	fmt.Fprintf(w, "  z0:    %9.3f +/- %.3f mm\n", fit.Z0.Value*1e3, fit.Z0.StdDev*1e3)
	fmt.Fprintf(w, "  d0:    %9.3f +/- %.3f um\n", fit.D0.Value*1e6, fit.D0.StdDev*1e6)
	fmt.Fprintf(w, "  M2:    %9.3f +/- %.3f\n", fit.M2.Value, fit.M2.StdDev)
	fmt.Fprintf(w, "  theta: %9.4f +/- %.4f mrad\n", fit.Theta.Value*1e3, fit.Theta.StdDev*1e3)
	fmt.Fprintf(w, "  zR:    %9.3f +/- %.3f mm\n", fit.ZR.Value*1e3, fit.ZR.StdDev*1e3)
}

// FocusIndex returns the index of the measured sample closest to the fitted
// x-axis focus (falling back to y when the x fit failed), or -1 when neither
// fit produced one.
func FocusIndex(a *Analysis) int {
	var z0 float64
	switch {
	case a.ErrX == nil && a.FitX != nil:
		z0 = a.FitX.Z0.Value
	case a.ErrY == nil && a.FitY != nil:
		z0 = a.FitY.Z0.Value
	default:
		return -1
	}
	best := -1
	bestDist := math.Inf(1)
	for i, s := range a.Samples {
		if s == nil {
			continue
		}
		if d := math.Abs(s.Z - z0); d < bestDist {
			bestDist = d
			best = i
		}
	}
	return best
}

// RenderFocusOverlay writes a grayscale PNG of the frame nearest the focus
// with the final measurement window outlined and the measured diameters
// printed in the corner.
func RenderFocusOverlay(frame *Frame, sample *BeamWidthSample, path string) error {
	img := renderFocusImage(frame, sample)
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create overlay file: %w", err)
	}
	defer f.Close()
	return png.Encode(f, img)
}

func renderFocusImage(frame *Frame, sample *BeamWidthSample) *image.RGBA {
	rows, cols := frame.Rows(), frame.Cols()
	img := image.NewRGBA(image.Rect(0, 0, cols, rows))

	// Frame values are normalized [0, 1]; map straight to gray.
	for y := 0; y < rows; y++ {
		for x := 0; x < cols; x++ {
			v := frame.At(y, x)
			if v < 0 {
				v = 0
			}
			if v > 1 {
				v = 1
			}
			g := uint8(v * 255)
			img.Set(x, y, color.RGBA{g, g, g, 255})
		}
	}

	// Outline the final measurement window.
	view, left, bottom := ExtractROI(frame, sample.ROI)
	boxColor := color.RGBA{80, 220, 80, 255}
	drawRect(img, left, bottom, view.Cols(), view.Rows(), boxColor)

	face := basicfont.Face7x13
	label := fmt.Sprintf("dx=%.1fum dy=%.1fum phi=%.1fdeg",
		sample.DX*1e6, sample.DY*1e6, sample.Phi*180/math.Pi)
	drawText(img, face, label, 6, rows-8, color.RGBA{255, 255, 255, 255})
	return img
}

// drawRect draws a 1px rectangle outline with origin (left, bottom) in image
// coordinates.
func drawRect(img *image.RGBA, left, bottom, width, height int, c color.RGBA) {
	for x := left; x < left+width; x++ {
		img.Set(x, bottom, c)
		img.Set(x, bottom+height-1, c)
	}
	for y := bottom; y < bottom+height; y++ {
		img.Set(left, y, c)
		img.Set(left+width-1, y, c)
	}
}

// drawText draws a string at (x, y) using the given font face.
func drawText(img *image.RGBA, face font.Face, s string, x, y int, c color.RGBA) {
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(c),
		Face: face,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(s)
}
