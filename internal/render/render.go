// Package render drives the per-tick decode and display cycle.
package render

import "github.com/junsooki/rgbview/internal/pixel"

// Sink receives decoded frames. Submit places img with its top-left corner
// at (x, y) on the display surface; the sink owns img afterwards.
type Sink interface {
	Submit(img *pixel.Image, x, y int)
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(img *pixel.Image, x, y int)

func (f SinkFunc) Submit(img *pixel.Image, x, y int) { f(img, x, y) }

// Reporter receives setup and per-frame failures.
type Reporter interface {
	FrameFailed(err error)
	SetupFailed(err error)
}

type nopReporter struct{}

func (nopReporter) FrameFailed(error) {}
func (nopReporter) SetupFailed(error) {}

// State of the loop between and during ticks.
type State int32

const (
	Idle State = iota
	Rendering
)

func (s State) String() string {
	if s == Rendering {
		return "rendering"
	}
	return "idle"
}

// Stats counts what the loop has done so far.
type Stats struct {
	Ticks    int
	Rendered int
	Failed   int
	Skipped  int
	LastErr  error
}
