package encoder

import (
	"errors"
	"fmt"

	"github.com/junsooki/rgbview/internal/pixel"
)

var ErrInvalidImage = errors.New("encoder: image pixels do not match its dimensions")

// RawEncoder writes images as unpadded, row-major buffers in a channel layout.
type RawEncoder struct {
	layout pixel.Layout
}

// NewRawEncoder creates an encoder for the given layout.
func NewRawEncoder(layout pixel.Layout) (*RawEncoder, error) {
	if !layout.Valid() {
		return nil, fmt.Errorf("encoder: unsupported layout %s", layout)
	}
	return &RawEncoder{layout: layout}, nil
}

func (e *RawEncoder) Encode(img *pixel.Image) ([]byte, error) {
	if img == nil || img.Width <= 0 || img.Height <= 0 || len(img.Pix) != img.Width*img.Height {
		return nil, ErrInvalidImage
	}
	size, ok := e.layout.BufferSize(img.Width, img.Height)
	if !ok {
		return nil, fmt.Errorf("encoder: unsupported layout %s", e.layout)
	}
	return e.AppendEncoded(make([]byte, 0, size), img), nil
}

// AppendEncoded appends the encoded pixels of img to dst.
func (e *RawEncoder) AppendEncoded(dst []byte, img *pixel.Image) []byte {
	for _, v := range img.Pix {
		a, r, g, b := pixel.Components(v)
		switch e.layout {
		case pixel.Gray:
			dst = append(dst, luma(r, g, b))
		case pixel.RGB:
			dst = append(dst, r, g, b)
		case pixel.BGR:
			dst = append(dst, b, g, r)
		case pixel.RGBA:
			dst = append(dst, r, g, b, a)
		case pixel.BGRA:
			dst = append(dst, b, g, r, a)
		}
	}
	return dst
}

// luma uses the JFIF coefficients; 19595 + 38470 + 7471 equals 65536.
func luma(r, g, b uint8) uint8 {
	y := (19595*uint32(r) + 38470*uint32(g) + 7471*uint32(b) + 1<<15) >> 16
	return uint8(y)
}

var _ Encoder = (*RawEncoder)(nil)
