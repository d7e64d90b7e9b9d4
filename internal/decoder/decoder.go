package decoder

import "github.com/junsooki/rgbview/internal/pixel"

// Decoder turns a raw driver buffer of known dimensions into a pixel image.
type Decoder interface {
	Decode(data []byte, width, height int) (*pixel.Image, error)
}
