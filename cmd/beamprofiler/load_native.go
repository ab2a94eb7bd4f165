//go:build !purego

package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"gocv.io/x/gocv"

	bp "beamprofiler/pkg/beamprofiler"
)

// decodeFrame loads a camera frame through OpenCV, preserving channel count
// and bit depth. PGM raw dumps bypass OpenCV and use the library reader.
func decodeFrame(path string) (*bp.RawImage, error) {
	if strings.EqualFold(filepath.Ext(path), ".pgm") {
		return bp.ReadPGM(path)
	}

	src := gocv.IMRead(path, gocv.IMReadUnchanged)
	if src.Empty() {
		return nil, fmt.Errorf("could not load image: %s", path)
	}
	defer src.Close()

	w, h := src.Cols(), src.Rows()
	channels := gocv.Split(src)
	defer func() {
		for i := range channels {
			channels[i].Close()
		}
	}()

	img := &bp.RawImage{Width: w, Height: h}
	for _, ch := range channels {
		plane := make([]uint16, w*h)
		switch ch.Type() {
		case gocv.MatTypeCV8U:
			data, err := ch.DataPtrUint8()
			if err != nil {
				return nil, fmt.Errorf("reading 8-bit channel of %s: %w", path, err)
			}
			for i, v := range data[:w*h] {
				plane[i] = uint16(v)
			}
			img.BitDepth = 8
		case gocv.MatTypeCV16U:
			data, err := ch.DataPtrUint16()
			if err != nil {
				return nil, fmt.Errorf("reading 16-bit channel of %s: %w", path, err)
			}
			copy(plane, data[:w*h])
			img.BitDepth = 16
		default:
			return nil, fmt.Errorf("%s: unsupported channel type %v", path, ch.Type())
		}
		img.Channels = append(img.Channels, plane)
	}
	return img, nil
}
