package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/rs/zerolog"

	bp "beamprofiler/pkg/beamprofiler"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	fs := flag.NewFlagSet("beamprofiler", flag.ContinueOnError)
	var (
		dir        = fs.String("dir", ".", "scan directory with frames and position.txt")
		configPath = fs.String("config", "", "optional JSON tuning file")
		pixelSize  = fs.Float64("pixel", 0, "pixel pitch in meters (overrides config)")
		wavelength = fs.Float64("wavelength", 0, "wavelength in meters (overrides config)")
		satLim     = fs.Float64("satlim", -1, "saturated/nonzero pixel fraction limit (overrides config)")
		workers    = fs.Int("workers", 0, "per-frame worker count, 0 = NumCPU")
		plotPath   = fs.String("plot", "", "write caustic plot PNG to this path")
		focusPath  = fs.String("focus", "", "write focus-frame overlay PNG to this path")
		verbose    = fs.Bool("v", false, "debug logging")
	)
	if err := fs.Parse(args); err != nil {
		return err
	}

	level := zerolog.InfoLevel
	if *verbose {
		level = zerolog.DebugLevel
	}
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(level).
		With().Timestamp().Logger()

	cfg := bp.DefaultConfig(*dir)
	cfg.Logger = log
	if *configPath != "" {
		if err := cfg.ApplyFile(*configPath); err != nil {
			return err
		}
	}
	if *pixelSize > 0 {
		cfg.PixelSize = *pixelSize
	}
	if *wavelength > 0 {
		cfg.Wavelength = *wavelength
	}
	if *satLim >= 0 {
		cfg.SaturationLimit = *satLim
	}
	if *workers > 0 {
		cfg.Workers = *workers
	}

	log.Info().Str("dir", cfg.Dir).
		Float64("pixel_m", cfg.PixelSize).
		Float64("wavelength_m", cfg.Wavelength).
		Msg("analyzing scan")

	analysis, err := bp.Analyze(cfg, decodeFrame)
	if err != nil {
		return err
	}

	bp.WriteSummary(os.Stdout, analysis)

	if *plotPath != "" {
		if err := bp.RenderCausticPlot(analysis, *plotPath); err != nil {
			return err
		}
		log.Info().Str("path", *plotPath).Msg("caustic plot written")
	}

	if *focusPath != "" {
		if err := writeFocusOverlay(cfg, analysis, *focusPath); err != nil {
			return err
		}
		log.Info().Str("path", *focusPath).Msg("focus overlay written")
	}
	return nil
}

// writeFocusOverlay re-decodes the frame nearest the fitted focus and renders
// it with its final measurement window.
func writeFocusOverlay(cfg bp.Config, analysis *bp.Analysis, path string) error {
	idx := bp.FocusIndex(analysis)
	if idx < 0 {
		return fmt.Errorf("no fitted focus to render")
	}
	raw, err := decodeFrame(analysis.Files[idx])
	if err != nil {
		return fmt.Errorf("decoding focus frame: %w", err)
	}
	frame, _, err := bp.Flatten(raw, cfg.SaturationLimit, cfg.Logger)
	if err != nil {
		return err
	}
	return bp.RenderFocusOverlay(frame, analysis.Samples[idx], path)
}
