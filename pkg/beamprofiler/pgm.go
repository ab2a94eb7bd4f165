package beamprofiler

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"
)

// ReadPGM reads a binary (P5) portable graymap, the raw dump format of the
// profiling cameras. Maxval up to 255 decodes as 8-bit, larger as 16-bit
// big-endian per the netpbm convention. The result is a single-channel
// RawImage.
func ReadPGM(path string) (*RawImage, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening pgm: %w", err)
	}
	defer f.Close()
	return DecodePGM(bufio.NewReader(f))
}

// DecodePGM decodes a binary PGM stream.
func DecodePGM(r *bufio.Reader) (*RawImage, error) {
	magic, err := pgmToken(r)
	if err != nil {
		return nil, fmt.Errorf("pgm header: %w", err)
	}
	if magic != "P5" {
		return nil, fmt.Errorf("pgm header: unsupported magic %q", magic)
	}

	var dims [3]int
	for i := range dims {
		tok, err := pgmToken(r)
		if err != nil {
			return nil, fmt.Errorf("pgm header: %w", err)
		}
		n := 0
		if _, err := fmt.Sscanf(tok, "%d", &n); err != nil || n <= 0 {
			return nil, fmt.Errorf("pgm header: bad field %q", tok)
		}
		dims[i] = n
	}
	width, height, maxval := dims[0], dims[1], dims[2]
	if maxval >= 1<<16 {
		return nil, fmt.Errorf("pgm header: maxval %d out of range", maxval)
	}

	bitDepth := 8
	if maxval > 255 {
		bitDepth = 16
	}

	n := width * height
	pixels := make([]uint16, n)
	if bitDepth == 8 {
		buf := make([]byte, n)
		if _, err := io.ReadFull(r, buf); err != nil {
			return nil, fmt.Errorf("pgm pixels: %w", err)
		}
		for i, b := range buf {
			pixels[i] = uint16(b)
		}
	} else {
		buf := make([]byte, 2*n)
		if _, err := io.ReadFull(r, buf); err != nil {
			return nil, fmt.Errorf("pgm pixels: %w", err)
		}
		for i := 0; i < n; i++ {
			pixels[i] = binary.BigEndian.Uint16(buf[2*i:])
		}
	}

	return &RawImage{
		Width:    width,
		Height:   height,
		BitDepth: bitDepth,
		Channels: [][]uint16{pixels},
	}, nil
}

// pgmToken reads the next whitespace-delimited header token, skipping
// '#' comments through end of line.
func pgmToken(r *bufio.Reader) (string, error) {
	var tok []byte
	inComment := false
	for {
		b, err := r.ReadByte()
		if err != nil {
			if err == io.EOF && len(tok) > 0 {
				return string(tok), nil
			}
			return "", err
		}
		switch {
		case inComment:
			if b == '\n' {
				inComment = false
			}
		case b == '#':
			inComment = true
		case b == ' ' || b == '\t' || b == '\n' || b == '\r':
			if len(tok) > 0 {
				return string(tok), nil
			}
		default:
			tok = append(tok, b)
		}
	}
}
