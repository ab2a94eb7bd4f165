package beamprofiler

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
)

// gaussianFrame builds a rows x cols frame with an elliptical Gaussian blob:
// unit peak, centered at (cx, cy) pixels, standard deviations (sx, sy) along
// axes rotated by theta, on a constant pedestal.
func gaussianFrame(rows, cols int, cx, cy, sx, sy, theta, pedestal float64) *Frame {
	f := NewFrame(rows, cols)
	cosT, sinT := math.Cos(theta), math.Sin(theta)
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			dx := float64(c) - cx
			dy := float64(r) - cy
			u := dx*cosT + dy*sinT
			v := -dx*sinT + dy*cosT
			f.Set(r, c, pedestal+math.Exp(-u*u/(2*sx*sx)-v*v/(2*sy*sy)))
		}
	}
	return f
}

// gaussianPGM16 encodes a centered circular Gaussian as a 16-bit binary PGM.
func gaussianPGM16(rows, cols int, sigma float64) []byte {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "P5\n%d %d\n65535\n", cols, rows)
	cx := float64(cols-1) / 2
	cy := float64(rows-1) / 2
	px := make([]byte, 2)
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			dx := float64(c) - cx
			dy := float64(r) - cy
			v := math.Exp(-(dx*dx + dy*dy) / (2 * sigma * sigma))
			binary.BigEndian.PutUint16(px, uint16(v*65000))
			buf.Write(px)
		}
	}
	return buf.Bytes()
}

// propagationDiameters samples the beam law d(z) for a given waist.
func propagationDiameters(z []float64, z0, d0, m2, wl float64) []float64 {
	d := make([]float64, len(z))
	for i, zi := range z {
		d[i] = GaussianBeamDiameter(zi, z0, d0, m2, wl)
	}
	return d
}
