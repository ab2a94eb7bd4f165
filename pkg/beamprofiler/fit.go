package beamprofiler

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

const (
	// fitTolerance is the relative cost improvement below which the
	// Levenberg-Marquardt iteration stops.
	fitTolerance = 1e-12

	// fitGradientTolerance is the gradient norm, relative to the cost, below
	// which the fit is considered converged.
	fitGradientTolerance = 1e-10

	// maxFitIterations caps the outer Levenberg-Marquardt loop.
	maxFitIterations = 200

	// minCurvature is the curvature coefficient c = theta^2 below which the
	// beam is treated as collimated: z0, theta and zR are undefined there.
	// Corresponds to a half divergence of 1 nrad.
	minCurvature = 1e-18
)

// FitResult holds the propagation parameters for one transverse axis with
// their correlated one-sigma uncertainties, along with the underlying
// quadratic coefficients d(z)^2 = a + b*z + c*z^2 and their covariance.
type FitResult struct {
	Z0    Measurement // m, waist location
	D0    Measurement // m, waist diameter
	M2    Measurement // beam quality factor
	Theta Measurement // rad, far-field half divergence
	ZR    Measurement // m, Rayleigh length

	A, B, C float64
	Cov     *mat.SymDense
}

// FitPropagation fits the beam propagation law to ordered (z, d) samples for
// one transverse axis. z is the optical-axis position in meters, d the
// measured D4-sigma diameter in meters, wavelength in meters.
//
// The physical law w(z)^2 = w0^2 + M^4*(wl/(pi*w0))^2*(z-z0)^2 is fitted in
// the quadratic reparameterization d(z)^2 = a + b*z + c*z^2, which is convex
// in the coefficients and regular where a direct (z0, w0, M2) fit is not.
// Bounds a >= 0 and c >= 0 keep the waist and divergence real; b is free.
// The covariance of (a, b, c) is propagated to the physical parameters with
// full first-order correlation.
func FitPropagation(z, d []float64, wavelength float64) (*FitResult, error) {
	if len(z) != len(d) {
		return nil, fmt.Errorf("fit: %d positions for %d diameters", len(z), len(d))
	}
	if len(z) < 4 {
		return nil, fmt.Errorf("fit: need at least 4 samples, got %d", len(z))
	}
	if wavelength <= 0 {
		return nil, fmt.Errorf("fit: non-positive wavelength %g", wavelength)
	}

	p0 := bootstrapCoefficients(z, d)
	p, cov, err := fitQuadraticDiameter(z, d, p0)
	if err != nil {
		return nil, err
	}
	return propagateCoefficients(p, cov, wavelength)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// bootstrapCoefficients derives the initial (a, b, c) from the samples with
// the minimum and maximum diameter: the secant slope between the two, run
// through atan and squared, approximates the far-field curvature; b and a
// follow from re-centering the quadratic on the minimum.
func bootstrapCoefficients(z, d []float64) [3]float64 {
	iMin, iMax := 0, 0
	for i := range d {
		if d[i] < d[iMin] {
			iMin = i
		}
		if d[i] > d[iMax] {
			iMax = i
		}
	}
	zi, di := z[iMin], d[iMin]
	zm, dm := z[iMax], d[iMax]

	var c0 float64
	if zm != zi {
		t := math.Atan((dm - di) / (zm - zi))
		c0 = t * t
	}
	// zm == zi only when every diameter is equal; a flat bootstrap is exact.
	b0 := -2 * zi * c0
	a0 := di*di + c0*zi*zi
	return [3]float64{a0, b0, c0}
}

// fitQuadraticDiameter runs a bound-constrained Levenberg-Marquardt fit of
// sqrt(a + b*z + c*z^2) against the measured diameters and returns the
// best-fit coefficients with their scaled covariance s^2 * (J'J)^-1.
func fitQuadraticDiameter(z, d []float64, p0 [3]float64) ([3]float64, *mat.SymDense, error) {
	const n = 3
	m := len(z)

	lower := [3]float64{0, math.Inf(-1), 0}
	upper := [3]float64{math.Inf(1), math.Inf(1), math.Inf(1)}

	p := p0
	for j := 0; j < n; j++ {
		p[j] = clamp(p[j], lower[j], upper[j])
	}

	res := make([]float64, m)
	jac := mat.NewDense(m, n, nil)
	cost := quadResiduals(z, d, p, res, jac)

	lambda := 1e-3
	nu := 2.0
	converged := false

	jtj := mat.NewSymDense(n, nil)
	g := mat.NewVecDense(n, nil)
	a := mat.NewSymDense(n, nil)
	step := mat.NewVecDense(n, nil)
	resNew := make([]float64, m)
	var chol mat.Cholesky

	for iter := 0; iter < maxFitIterations; iter++ {
		normalEquations(jac, res, jtj, g)

		if mat.Norm(g, 2) <= fitGradientTolerance*(cost+fitGradientTolerance) {
			converged = true
			break
		}

		stepped := false
		for tries := 0; tries < 20; tries++ {
			// Marquardt damping scaled by the diagonal of J'J.
			for i := 0; i < n; i++ {
				for j := i; j < n; j++ {
					a.SetSym(i, j, jtj.At(i, j))
				}
				diag := jtj.At(i, i)
				if diag <= 0 {
					diag = 1
				}
				a.SetSym(i, i, jtj.At(i, i)+lambda*diag)
			}
			if ok := chol.Factorize(a); !ok {
				lambda *= nu
				continue
			}
			if err := chol.SolveVecTo(step, g); err != nil {
				lambda *= nu
				continue
			}

			var pNew [3]float64
			for j := 0; j < n; j++ {
				pNew[j] = clamp(p[j]-step.AtVec(j), lower[j], upper[j])
			}
			costNew := quadResiduals(z, d, pNew, resNew, nil)

			if costNew < cost {
				improvement := (cost - costNew) / (cost + fitTolerance)
				p = pNew
				copy(res, resNew)
				cost = quadResiduals(z, d, p, res, jac)
				lambda = math.Max(lambda/3, 1e-15)
				nu = 2.0
				stepped = true
				if improvement < fitTolerance {
					converged = true
				}
				break
			}
			lambda *= nu
			nu *= 2
			if lambda > 1e16 {
				break
			}
		}
		if converged {
			break
		}
		if !stepped {
			// Damping saturated without an acceptable step: the iterate is a
			// (possibly bound-constrained) stationary point.
			converged = true
			break
		}
	}
	if !converged {
		return p, nil, fmt.Errorf("after %d iterations: %w", maxFitIterations, ErrFitNotConverged)
	}

	// Covariance of the coefficients: s^2 * (J'J)^-1 with the residual
	// variance s^2 = RSS / (m - n).
	if m <= n {
		return p, nil, fmt.Errorf("covariance needs more than %d samples: %w", n, ErrSingularCovariance)
	}
	quadResiduals(z, d, p, res, jac)
	normalEquations(jac, res, jtj, g)
	if ok := chol.Factorize(jtj); !ok {
		return p, nil, ErrSingularCovariance
	}
	cov := mat.NewSymDense(n, nil)
	if err := chol.InverseTo(cov); err != nil {
		return p, nil, fmt.Errorf("inverting normal equations: %w", ErrSingularCovariance)
	}
	s2 := cost / float64(m-n)
	cov.ScaleSym(s2, cov)
	return p, cov, nil
}

// quadResiduals fills res with sqrt(a+b*z+c*z^2)-d and, when jac is non-nil,
// the Jacobian of the model at each sample. Returns the summed squared
// residuals. Negative quadratic values yield NaN residuals, which the step
// control rejects as non-improving.
func quadResiduals(z, d []float64, p [3]float64, res []float64, jac *mat.Dense) float64 {
	var cost float64
	for k := range z {
		q := p[0] + p[1]*z[k] + p[2]*z[k]*z[k]
		f := math.Sqrt(q)
		res[k] = f - d[k]
		cost += res[k] * res[k]
		if jac != nil {
			den := 2 * f
			if den < 1e-300 {
				den = 1e-300
			}
			jac.Set(k, 0, 1/den)
			jac.Set(k, 1, z[k]/den)
			jac.Set(k, 2, z[k]*z[k]/den)
		}
	}
	return cost
}

// normalEquations computes J'J and the gradient J'r.
func normalEquations(jac *mat.Dense, res []float64, jtj *mat.SymDense, g *mat.VecDense) {
	m, n := jac.Dims()
	for i := 0; i < n; i++ {
		var gi float64
		for k := 0; k < m; k++ {
			gi += jac.At(k, i) * res[k]
		}
		g.SetVec(i, gi)
		for j := i; j < n; j++ {
			var s float64
			for k := 0; k < m; k++ {
				s += jac.At(k, i) * jac.At(k, j)
			}
			jtj.SetSym(i, j, s)
		}
	}
}

// propagateCoefficients converts the fitted quadratic coefficients and their
// covariance into the physical parameters:
//
//	z0    = -b/(2c)
//	d0    = sqrt(4ac-b^2) / (2*sqrt(c))
//	M2    = (pi/(8*wl)) * sqrt(4ac-b^2)
//	theta = sqrt(c)
//	zR    = sqrt(4ac-b^2) / (2c)
//
// each with a gradient-propagated standard deviation over the full (a, b, c)
// covariance.
func propagateCoefficients(p [3]float64, cov *mat.SymDense, wavelength float64) (*FitResult, error) {
	a, b, c := p[0], p[1], p[2]

	if c < minCurvature {
		return nil, fmt.Errorf("fitted curvature %g: %w", c, ErrCollimatedBeam)
	}
	disc := 4*a*c - b*b
	if disc <= 0 {
		return nil, fmt.Errorf("4ac-b^2 = %g: %w", disc, ErrDegenerateFit)
	}

	cor, err := NewCorrelated(p[:], cov)
	if err != nil {
		return nil, err
	}

	s := math.Sqrt(disc)
	sqrtC := math.Sqrt(c)
	k := math.Pi / (8 * wavelength)

	z0 := cor.Derive(-b/(2*c), []float64{
		0,
		-1 / (2 * c),
		b / (2 * c * c),
	})
	d0 := cor.Derive(s/(2*sqrtC), []float64{
		sqrtC / s,
		-b / (2 * s * sqrtC),
		b * b / (4 * c * sqrtC * s),
	})
	m2 := cor.Derive(k*s, []float64{
		k * 2 * c / s,
		-k * b / s,
		k * 2 * a / s,
	})
	theta := cor.Derive(sqrtC, []float64{
		0,
		0,
		1 / (2 * sqrtC),
	})
	zr := cor.Derive(s/(2*c), []float64{
		1 / s,
		-b / (2 * c * s),
		(b*b - 2*a*c) / (2 * c * c * s),
	})

	return &FitResult{
		Z0:    z0,
		D0:    d0,
		M2:    m2,
		Theta: theta,
		ZR:    zr,
		A:     a,
		B:     b,
		C:     c,
		Cov:   cov,
	}, nil
}
