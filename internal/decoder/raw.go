package decoder

import (
	"fmt"

	"github.com/junsooki/rgbview/internal/pixel"
)

// RawDecoder decodes unpadded, row-major buffers in a fixed channel layout.
type RawDecoder struct {
	layout pixel.Layout
}

// NewRawDecoder creates a decoder for the given layout.
func NewRawDecoder(layout pixel.Layout) (*RawDecoder, error) {
	if !layout.Valid() {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedChannelCount, layout)
	}
	return &RawDecoder{layout: layout}, nil
}

// Layout returns the channel layout the decoder expects.
func (d *RawDecoder) Layout() pixel.Layout {
	return d.layout
}

// Decode validates the buffer against width*height*channels and converts it
// to ARGB. Nothing is allocated unless the buffer is valid.
func (d *RawDecoder) Decode(data []byte, width, height int) (*pixel.Image, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: got %dx%d", ErrInvalidDimensions, width, height)
	}
	if len(data) == 0 {
		return nil, ErrNullBuffer
	}
	want, ok := d.layout.BufferSize(width, height)
	if !ok {
		if !d.layout.Valid() {
			return nil, fmt.Errorf("%w: %s", ErrUnsupportedChannelCount, d.layout)
		}
		return nil, fmt.Errorf("%w: %dx%d overflows", ErrSizeMismatch, width, height)
	}
	if len(data) != want {
		return nil, fmt.Errorf("%w: got %d bytes, want %d (%dx%d %s)",
			ErrSizeMismatch, len(data), want, width, height, d.layout)
	}

	img := pixel.NewImage(width, height)
	pix := img.Pix
	switch d.layout {
	case pixel.Gray:
		for i, y := range data {
			pix[i] = pixel.ARGB(pixel.Opaque, y, y, y)
		}
	case pixel.RGB:
		for i, j := 0, 0; i < len(pix); i, j = i+1, j+3 {
			pix[i] = pixel.ARGB(pixel.Opaque, data[j], data[j+1], data[j+2])
		}
	case pixel.BGR:
		for i, j := 0, 0; i < len(pix); i, j = i+1, j+3 {
			pix[i] = pixel.ARGB(pixel.Opaque, data[j+2], data[j+1], data[j])
		}
	case pixel.RGBA:
		for i, j := 0, 0; i < len(pix); i, j = i+1, j+4 {
			pix[i] = pixel.ARGB(data[j+3], data[j], data[j+1], data[j+2])
		}
	case pixel.BGRA:
		for i, j := 0, 0; i < len(pix); i, j = i+1, j+4 {
			pix[i] = pixel.ARGB(data[j+3], data[j+2], data[j+1], data[j])
		}
	}
	return img, nil
}

var _ Decoder = (*RawDecoder)(nil)
