package beamprofiler

import (
	"fmt"
	"image/color"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// causticCurveSamples is the number of points used to draw each fitted curve.
const causticCurveSamples = 200

// RenderCausticPlot writes the caustic chart: measured D4-sigma diameters per
// axis against z, with the fitted propagation curves overlaid for every axis
// whose fit succeeded. Positions are shown in mm, diameters in um.
func RenderCausticPlot(a *Analysis, path string) error {
	p := plot.New()
	p.Title.Text = "Beam caustic"
	p.X.Label.Text = "z (mm)"
	p.Y.Label.Text = "D4sigma diameter (um)"

	var ptsX, ptsY plotter.XYs
	zMin, zMax := 0.0, 0.0
	for _, s := range a.Samples {
		if s == nil {
			continue
		}
		if len(ptsX) == 0 || s.Z < zMin {
			zMin = s.Z
		}
		if len(ptsX) == 0 || s.Z > zMax {
			zMax = s.Z
		}
		ptsX = append(ptsX, plotter.XY{X: s.Z * 1e3, Y: s.DX * 1e6})
		ptsY = append(ptsY, plotter.XY{X: s.Z * 1e3, Y: s.DY * 1e6})
	}
	if len(ptsX) == 0 {
		return fmt.Errorf("caustic plot: no measured samples")
	}

	scatterX, err := plotter.NewScatter(ptsX)
	if err != nil {
		return fmt.Errorf("caustic plot: %w", err)
	}
	scatterX.Color = color.RGBA{B: 255, A: 255}
	p.Add(scatterX)
	p.Legend.Add("x measured", scatterX)

	scatterY, err := plotter.NewScatter(ptsY)
	if err != nil {
		return fmt.Errorf("caustic plot: %w", err)
	}
	scatterY.Color = color.RGBA{G: 160, A: 255}
	p.Add(scatterY)
	p.Legend.Add("y measured", scatterY)

	if a.ErrX == nil && a.FitX != nil {
		line, err := fitCurve(a.FitX, a.Wavelength, zMin, zMax, color.RGBA{B: 255, A: 255})
		if err != nil {
			return err
		}
		p.Add(line)
		p.Legend.Add("x fit", line)
	}
	if a.ErrY == nil && a.FitY != nil {
		line, err := fitCurve(a.FitY, a.Wavelength, zMin, zMax, color.RGBA{G: 160, A: 255})
		if err != nil {
			return err
		}
		p.Add(line)
		p.Legend.Add("y fit", line)
	}

	p.Legend.Top = true
	if err := p.Save(8*vg.Inch, 5*vg.Inch, path); err != nil {
		return fmt.Errorf("saving caustic plot: %w", err)
	}
	return nil
}

func fitCurve(fit *FitResult, wl, zMin, zMax float64, c color.RGBA) (*plotter.Line, error) {
	pts := make(plotter.XYs, causticCurveSamples)
	for i := range pts {
		z := zMin + (zMax-zMin)*float64(i)/float64(causticCurveSamples-1)
		d := GaussianBeamDiameter(z, fit.Z0.Value, fit.D0.Value, fit.M2.Value, wl)
		pts[i] = plotter.XY{X: z * 1e3, Y: d * 1e6}
	}
	line, err := plotter.NewLine(pts)
	if err != nil {
		return nil, fmt.Errorf("caustic plot: %w", err)
	}
	line.Color = c
	line.Width = vg.Points(1)
	return line, nil
}
