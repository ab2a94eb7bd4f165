package beamprofiler

import (
	"fmt"

	"github.com/rs/zerolog"
)

// RawImage is decoded camera output before flattening: one or more
// row-major channel planes of width*height samples at a known bit depth.
type RawImage struct {
	Width    int
	Height   int
	BitDepth int
	Channels [][]uint16
}

// Flatten sums the channel planes of a raw capture into a single normalized
// [0, 1] intensity frame, excluding saturated channels first. A channel is
// saturated when its fraction of full-scale pixels over nonzero pixels
// exceeds satLim; the returned flags mark excluded channels per input
// channel. The exclusion happens before any moment computation downstream.
func Flatten(img *RawImage, satLim float64, log zerolog.Logger) (*Frame, []bool, error) {
	if img.Width <= 0 || img.Height <= 0 || len(img.Channels) == 0 {
		return nil, nil, fmt.Errorf("flatten: empty %dx%dx%d image", img.Width, img.Height, len(img.Channels))
	}
	n := img.Width * img.Height
	full := uint16(1<<uint(img.BitDepth) - 1)

	saturated := make([]bool, len(img.Channels))
	sum := make([]float64, n)
	for ch, plane := range img.Channels {
		if len(plane) != n {
			return nil, nil, fmt.Errorf("flatten: channel %d has %d samples, want %d", ch, len(plane), n)
		}
		var nonzero, sat int
		for _, v := range plane {
			if v != 0 {
				nonzero++
			}
			if v >= full {
				sat++
			}
		}
		if nonzero == 0 || float64(sat)/float64(nonzero) > satLim {
			saturated[ch] = true
			log.Warn().Int("channel", ch).Int("saturated_pixels", sat).
				Msg("excluding saturated channel")
			continue
		}
		for i, v := range plane {
			sum[i] += float64(v)
		}
	}

	normalize(sum, log)
	return NewFrameFromData(img.Height, img.Width, sum), saturated, nil
}

// normalize rescales data to [0, 1] in place by min-max. A constant array has
// no usable range and is set to all ones with a warning.
func normalize(data []float64, log zerolog.Logger) {
	lo, hi := data[0], data[0]
	for _, v := range data[1:] {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	if hi == lo {
		log.Warn().Float64("value", lo).Msg("degenerate intensity range, normalizing to 1")
		for i := range data {
			data[i] = 1
		}
		return
	}
	scale := hi - lo
	for i := range data {
		data[i] = (data[i] - lo) / scale
	}
}
