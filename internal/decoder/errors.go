package decoder

import "errors"

// Decode errors. Failures are wrapped with details, match them with errors.Is.
var (
	ErrSizeMismatch            = errors.New("decoder: buffer size does not match dimensions")
	ErrUnsupportedChannelCount = errors.New("decoder: unsupported channel count")
	ErrNullBuffer              = errors.New("decoder: empty buffer")
	ErrInvalidDimensions       = errors.New("decoder: width and height must be positive")
)
