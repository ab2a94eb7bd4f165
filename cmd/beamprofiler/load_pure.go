//go:build purego

package main

import (
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"strings"

	_ "golang.org/x/image/tiff"

	bp "beamprofiler/pkg/beamprofiler"
)

// decodeFrame loads a camera frame with the stdlib decoders (plus TIFF).
// Channels come out as 16-bit planes from RGBA(). PGM raw dumps use the
// library reader.
func decodeFrame(path string) (*bp.RawImage, error) {
	if strings.EqualFold(filepath.Ext(path), ".pgm") {
		return bp.ReadPGM(path)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening image: %w", err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}

	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	planes := [3][]uint16{
		make([]uint16, w*h),
		make([]uint16, w*h),
		make([]uint16, w*h),
	}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r, g, b, _ := img.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
			i := y*w + x
			planes[0][i] = uint16(r)
			planes[1][i] = uint16(g)
			planes[2][i] = uint16(b)
		}
	}

	return &bp.RawImage{
		Width:    w,
		Height:   h,
		BitDepth: 16,
		Channels: planes[:],
	}, nil
}
