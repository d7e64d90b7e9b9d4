// Package driver defines the image driver capability and the drivers this
// module ships: a synthetic test pattern and a remote driver fed over a
// frame transport.
package driver

import (
	"errors"
	"fmt"

	"github.com/junsooki/rgbview/internal/pixel"
)

// CapabilityRGBImage is the capability name of raw RGB image drivers.
const CapabilityRGBImage = "rgbimage"

// Driver errors.
var (
	ErrInvalidConfig = errors.New("driver: invalid configuration")
	ErrNoFrame       = errors.New("driver: no frame received yet")
	ErrDisconnected  = errors.New("driver: disconnected")
)

// ImageDriver exposes fixed image dimensions and produces raw pixel buffers.
//
// The returned buffer belongs to the caller for the duration of the call only.
type ImageDriver interface {
	Width() int
	Height() int
	RawVisualData() ([]byte, error)
}

// FormatReporter is implemented by drivers that declare their buffer layout.
// Drivers that don't are assumed to produce pixel.RGB.
type FormatReporter interface {
	Layout() pixel.Layout
}

// LayoutOf returns the declared layout of d, defaulting to pixel.RGB.
func LayoutOf(d ImageDriver) pixel.Layout {
	if f, ok := d.(FormatReporter); ok {
		return f.Layout()
	}
	return pixel.RGB
}

// Descriptor is the static description of a driver session.
type Descriptor struct {
	Width  int          `json:"width"`
	Height int          `json:"height"`
	Layout pixel.Layout `json:"layout"`
}

// Describe captures the dimensions and layout of d.
func Describe(d ImageDriver) Descriptor {
	return Descriptor{
		Width:  d.Width(),
		Height: d.Height(),
		Layout: LayoutOf(d),
	}
}

// Validate checks that the descriptor names a decodable buffer.
func (d Descriptor) Validate() error {
	if _, ok := d.Layout.BufferSize(d.Width, d.Height); !ok {
		return fmt.Errorf("%w: %dx%d %s", ErrInvalidConfig, d.Width, d.Height, d.Layout)
	}
	return nil
}

// FrameSize returns the expected raw buffer length.
func (d Descriptor) FrameSize() int {
	n, _ := d.Layout.BufferSize(d.Width, d.Height)
	return n
}
