package encoder

import "github.com/junsooki/rgbview/internal/pixel"

// Encoder encodes a pixel image into a raw driver buffer.
type Encoder interface {
	Encode(img *pixel.Image) ([]byte, error)
}
