package beamprofiler

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"sync"

	"github.com/rs/zerolog"
)

// FrameDecoder turns a file path into a raw multi-channel capture. The CLI
// supplies a gocv- or stdlib-backed implementation depending on build tags.
type FrameDecoder func(path string) (*RawImage, error)

// Config carries everything one analysis run needs. No process-wide state:
// construct with DefaultConfig and thread it through Analyze.
type Config struct {
	// Dir is the scan directory holding the frames and the position file.
	Dir string

	// PositionFile is the sidecar name inside Dir.
	PositionFile string

	// Patterns are the frame glob patterns, relative to Dir.
	Patterns []string

	// PixelSize is the physical pixel pitch in meters.
	PixelSize float64

	// Wavelength is the laser wavelength in meters.
	Wavelength float64

	// SaturationLimit is the allowed fraction of saturated over nonzero
	// pixels per channel before the channel is excluded.
	SaturationLimit float64

	// Workers bounds the per-frame worker pool; <= 0 means NumCPU.
	Workers int

	Logger zerolog.Logger
}

// DefaultConfig returns the measured defaults of the profiling bench:
// 1.745 um pixels, 1030 nm source.
func DefaultConfig(dir string) Config {
	return Config{
		Dir:             dir,
		PositionFile:    "position.txt",
		Patterns:        []string{"*.jpg", "*.jpeg", "*.png", "*.tif", "*.tiff", "*.pgm"},
		PixelSize:       1.745e-6,
		Wavelength:      1.030e-6,
		SaturationLimit: 0.001,
		Workers:         0,
		Logger:          zerolog.Nop(),
	}
}

// fileConfig mirrors the tunable Config fields for JSON overlay. Pointer
// fields distinguish "absent" from zero, so partial files are safe.
type fileConfig struct {
	PositionFile    *string  `json:"position_file,omitempty"`
	Patterns        []string `json:"patterns,omitempty"`
	PixelSize       *float64 `json:"pixel_size_m,omitempty"`
	Wavelength      *float64 `json:"wavelength_m,omitempty"`
	SaturationLimit *float64 `json:"saturation_limit,omitempty"`
	Workers         *int     `json:"workers,omitempty"`
}

// ApplyFile overlays settings from a JSON tuning file onto the config.
// Fields omitted from the file keep their current values.
func (c *Config) ApplyFile(path string) error {
	if ext := filepath.Ext(filepath.Clean(path)); ext != ".json" {
		return fmt.Errorf("config file must have .json extension, got %q", ext)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config: %w", err)
	}
	var fc fileConfig
	if err := json.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("parsing config: %w", err)
	}
	if fc.PositionFile != nil {
		c.PositionFile = *fc.PositionFile
	}
	if fc.Patterns != nil {
		c.Patterns = fc.Patterns
	}
	if fc.PixelSize != nil {
		c.PixelSize = *fc.PixelSize
	}
	if fc.Wavelength != nil {
		c.Wavelength = *fc.Wavelength
	}
	if fc.SaturationLimit != nil {
		c.SaturationLimit = *fc.SaturationLimit
	}
	if fc.Workers != nil {
		c.Workers = *fc.Workers
	}
	return nil
}

// Analysis is the outcome of one scan: the z-ordered per-frame samples and
// the per-axis propagation fits. A fit failure on one axis is reported in
// its Err field and leaves the other axis intact.
type Analysis struct {
	Files      []string
	Samples    []*BeamWidthSample // z-ascending; nil where the frame was skipped
	Saturation [][]bool           // per frame, per channel exclusion flags

	FitX, FitY *FitResult
	ErrX, ErrY error

	Wavelength float64
	PixelSize  float64
}

// Analyze runs the whole estimation pipeline: discover frames, parse
// positions, jointly sort by z, measure every frame on a worker pool, and
// fit the propagation law per transverse axis.
//
// Frames are mutually independent, so per-frame measurement runs
// concurrently; samples are kept in z order regardless of completion order.
// A frame with zero total intensity is logged, skipped and excluded from the
// fits; metadata and decode failures abort the run.
func Analyze(cfg Config, decode FrameDecoder) (*Analysis, error) {
	log := cfg.Logger

	files, err := discoverFrames(cfg)
	if err != nil {
		return nil, err
	}
	z, err := ReadPositions(filepath.Join(cfg.Dir, cfg.PositionFile))
	if err != nil {
		return nil, err
	}
	if len(z) != len(files) {
		return nil, fmt.Errorf("%w: %d frames, %d positions", ErrCountMismatch, len(files), len(z))
	}

	// Joint ascending sort by z before any fitting.
	order := make([]int, len(z))
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool { return z[order[a]] < z[order[b]] })
	sortedZ := make([]float64, len(z))
	sortedFiles := make([]string, len(files))
	for i, idx := range order {
		sortedZ[i] = z[idx]
		sortedFiles[i] = files[idx]
	}

	workers := cfg.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	samples := make([]*BeamWidthSample, len(sortedFiles))
	saturation := make([][]bool, len(sortedFiles))
	frameErrs := make([]error, len(sortedFiles))

	var wg sync.WaitGroup
	sem := make(chan struct{}, workers)
	for i := range sortedFiles {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			// The frame array lives only inside this call; just the scalar
			// sample survives.
			samples[i], saturation[i], frameErrs[i] = measureFrame(cfg, decode, sortedFiles[i], sortedZ[i])
		}(i)
	}
	wg.Wait()

	var zFit, dxFit, dyFit []float64
	for i, s := range samples {
		if err := frameErrs[i]; err != nil {
			if isFrameIsolatable(err) {
				log.Warn().Str("frame", sortedFiles[i]).Err(err).Msg("skipping degenerate frame")
				samples[i] = nil
				continue
			}
			return nil, fmt.Errorf("frame %s: %w", sortedFiles[i], err)
		}
		if !s.Converged {
			log.Warn().Str("frame", sortedFiles[i]).Int("iterations", s.Iterations).
				Msg("beam width did not converge, using last iterate")
		}
		zFit = append(zFit, s.Z)
		dxFit = append(dxFit, s.DX)
		dyFit = append(dyFit, s.DY)
	}

	a := &Analysis{
		Files:      sortedFiles,
		Samples:    samples,
		Saturation: saturation,
		Wavelength: cfg.Wavelength,
		PixelSize:  cfg.PixelSize,
	}

	// The two transverse axes are independent fits.
	var fitWG sync.WaitGroup
	fitWG.Add(2)
	go func() {
		defer fitWG.Done()
		a.FitX, a.ErrX = FitPropagation(zFit, dxFit, cfg.Wavelength)
	}()
	go func() {
		defer fitWG.Done()
		a.FitY, a.ErrY = FitPropagation(zFit, dyFit, cfg.Wavelength)
	}()
	fitWG.Wait()

	if a.ErrX != nil {
		log.Error().Err(a.ErrX).Msg("x-axis fit failed")
	}
	if a.ErrY != nil {
		log.Error().Err(a.ErrY).Msg("y-axis fit failed")
	}
	return a, nil
}

func measureFrame(cfg Config, decode FrameDecoder, path string, z float64) (*BeamWidthSample, []bool, error) {
	raw, err := decode(path)
	if err != nil {
		return nil, nil, fmt.Errorf("decoding: %w", err)
	}
	frame, saturated, err := Flatten(raw, cfg.SaturationLimit, cfg.Logger)
	if err != nil {
		return nil, saturated, err
	}
	sample, err := MeasureBeamWidth(frame, cfg.PixelSize)
	if err != nil {
		return nil, saturated, err
	}
	sample.Z = z
	return sample, saturated, nil
}

// isFrameIsolatable reports whether a per-frame failure may be skipped
// without corrupting the rest of the batch.
func isFrameIsolatable(err error) bool {
	return errors.Is(err, ErrZeroIntensity)
}

func discoverFrames(cfg Config) ([]string, error) {
	var files []string
	for _, pat := range cfg.Patterns {
		matches, err := filepath.Glob(filepath.Join(cfg.Dir, pat))
		if err != nil {
			return nil, fmt.Errorf("bad frame pattern %q: %w", pat, err)
		}
		files = append(files, matches...)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoFrames, cfg.Dir)
	}
	sort.Strings(files)
	return files, nil
}
