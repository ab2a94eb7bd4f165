package beamprofiler

import "errors"

// Sentinel errors for the analysis pipeline. Callers discriminate with
// errors.Is; wrapped variants carry file/axis context.
var (
	// ErrNoFrames indicates frame discovery matched nothing; fatal at startup.
	ErrNoFrames = errors.New("no input frames found")

	// ErrMissingMetadata indicates the position file is missing or unparseable.
	ErrMissingMetadata = errors.New("position metadata missing or unparseable")

	// ErrCountMismatch indicates the frame count and position-entry count differ.
	ErrCountMismatch = errors.New("frame count does not match position entries")

	// ErrZeroIntensity indicates a zero total weighted intensity during moment
	// computation (blank frame). Surfaced, never silently divided.
	ErrZeroIntensity = errors.New("zero total intensity")

	// ErrFitNotConverged indicates the bounded regression hit its iteration
	// cap without meeting tolerance.
	ErrFitNotConverged = errors.New("propagation fit did not converge")

	// ErrSingularCovariance indicates the normal-equation matrix could not be
	// inverted, so no parameter uncertainties exist.
	ErrSingularCovariance = errors.New("singular fit covariance")

	// ErrCollimatedBeam indicates the fitted curvature coefficient is
	// effectively zero, leaving z0, theta and zR undefined.
	ErrCollimatedBeam = errors.New("collimated beam: curvature coefficient is zero")

	// ErrDegenerateFit indicates the fitted coefficients give a negative
	// discriminant 4ac-b^2, i.e. no real waist.
	ErrDegenerateFit = errors.New("degenerate fit: negative discriminant")
)
