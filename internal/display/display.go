// Package display shows rendered frames in a desktop window.
package display

import "github.com/junsooki/rgbview/internal/render"

// Display runs a host loop that ticks a render loop and shows its frames.
type Display interface {
	render.Sink
	Run(loop Loop) error
}

// Loop is the part of render.Loop a display drives.
type Loop interface {
	Tick()
	Dimensions() (w, h int, ok bool)
}

var _ Loop = (*render.Loop)(nil)
