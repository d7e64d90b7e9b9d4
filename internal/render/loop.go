package render

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/junsooki/rgbview/internal/decoder"
	"github.com/junsooki/rgbview/internal/driver"
	"github.com/junsooki/rgbview/internal/pixel"
	"github.com/junsooki/rgbview/internal/provider"
)

// ErrAlreadySetUp is returned by Setup on a loop that already holds a driver.
var ErrAlreadySetUp = errors.New("render: loop already set up")

// Option configures a Loop.
type Option func(*Loop)

// WithLogger sets the loop's logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(l *Loop) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// WithReporter sets where failures are reported in addition to the log.
func WithReporter(r Reporter) Option {
	return func(l *Loop) {
		if r != nil {
			l.reporter = r
		}
	}
}

// WithLayout sets the buffer layout the loop expects drivers to produce.
// Without it the decoder's layout is used, or pixel.RGB if the decoder does
// not declare one.
func WithLayout(layout pixel.Layout) Option {
	return func(l *Loop) { l.layout = layout }
}

// Loop pulls a raw buffer from a driver on every tick, decodes it and
// submits the image to a sink at the origin.
//
// Ticks are expected to be serialized by the host; a tick that arrives while
// another is still rendering is skipped.
type Loop struct {
	dec      decoder.Decoder
	sink     Sink
	reporter Reporter
	logger   *slog.Logger
	layout   pixel.Layout

	state atomic.Int32

	mu     sync.Mutex
	drv    driver.ImageDriver
	width  int
	height int
	stats  Stats
}

// New creates a loop. It renders nothing until Setup succeeds.
func New(dec decoder.Decoder, sink Sink, opts ...Option) *Loop {
	l := &Loop{
		dec:      dec,
		sink:     sink,
		reporter: nopReporter{},
		logger:   slog.Default(),
	}
	if f, ok := dec.(interface{ Layout() pixel.Layout }); ok {
		l.layout = f.Layout()
	} else {
		l.layout = pixel.RGB
	}
	for _, opt := range opts {
		opt(l)
	}
	l.logger = l.logger.With("component", "render")
	return l
}

// Setup acquires the capability from p and caches the driver's dimensions.
// A driver rejected after acquisition is closed. On failure the loop stays
// uninitialized; nothing is retried.
func (l *Loop) Setup(ctx context.Context, p provider.Provider, capability string) error {
	err := l.setup(ctx, p, capability)
	if err != nil {
		l.mu.Lock()
		l.stats.LastErr = err
		l.mu.Unlock()
		l.logger.Error("setup failed", "capability", capability, "err", err)
		l.reporter.SetupFailed(err)
	}
	return err
}

func (l *Loop) setup(ctx context.Context, p provider.Provider, capability string) error {
	if l.dec == nil || l.sink == nil {
		return fmt.Errorf("render: loop needs a decoder and a sink")
	}

	if _, _, ok := l.Dimensions(); ok {
		return ErrAlreadySetUp
	}

	a := provider.Query(ctx, p, capability)
	if a.Outcome != provider.Found {
		return fmt.Errorf("render: acquire %q: %w", capability, a.Err)
	}

	d := a.Driver
	w, h := d.Width(), d.Height()
	if w <= 0 || h <= 0 {
		release(d)
		return fmt.Errorf("render: %w: driver reports %dx%d",
			provider.ErrInvalidConfiguration, w, h)
	}
	if got := driver.LayoutOf(d); got != l.layout {
		release(d)
		return fmt.Errorf("render: %w: driver produces %s, decoder expects %s",
			provider.ErrInvalidConfiguration, got, l.layout)
	}

	l.mu.Lock()
	if l.drv != nil {
		l.mu.Unlock()
		release(d)
		return ErrAlreadySetUp
	}
	l.drv, l.width, l.height = d, w, h
	l.mu.Unlock()

	l.logger.Info("driver ready",
		"capability", capability,
		"width", w,
		"height", h,
		"layout", l.layout.String(),
	)
	return nil
}

// Tick runs one decode and submit cycle. A failed frame is reported and
// dropped; the next tick proceeds normally.
func (l *Loop) Tick() {
	l.mu.Lock()
	l.stats.Ticks++
	d, w, h := l.drv, l.width, l.height
	if d == nil {
		l.stats.Skipped++
		l.mu.Unlock()
		return
	}
	l.mu.Unlock()

	if !l.state.CompareAndSwap(int32(Idle), int32(Rendering)) {
		l.mu.Lock()
		l.stats.Skipped++
		l.mu.Unlock()
		l.logger.Debug("tick skipped while rendering")
		return
	}
	defer l.state.Store(int32(Idle))

	img, err := l.render(d, w, h)
	if err != nil {
		l.mu.Lock()
		l.stats.Failed++
		l.stats.LastErr = err
		l.mu.Unlock()
		if errors.Is(err, driver.ErrNoFrame) {
			l.logger.Debug("frame dropped", "err", err)
		} else {
			l.logger.Warn("frame dropped", "err", err)
		}
		l.reporter.FrameFailed(err)
		return
	}

	l.sink.Submit(img, 0, 0)
	l.mu.Lock()
	l.stats.Rendered++
	l.mu.Unlock()
}

func (l *Loop) render(d driver.ImageDriver, w, h int) (*pixel.Image, error) {
	data, err := d.RawVisualData()
	if err != nil {
		return nil, fmt.Errorf("render: read frame: %w", err)
	}
	img, err := l.dec.Decode(data, w, h)
	if err != nil {
		return nil, fmt.Errorf("render: decode frame: %w", err)
	}
	return img, nil
}

// Dimensions returns the cached driver dimensions; ok is false until Setup
// has succeeded.
func (l *Loop) Dimensions() (w, h int, ok bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.width, l.height, l.drv != nil
}

// Layout returns the buffer layout the loop expects.
func (l *Loop) Layout() pixel.Layout {
	return l.layout
}

func (l *Loop) State() State {
	return State(l.state.Load())
}

func (l *Loop) Stats() Stats {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.stats
}

// Close releases the driver if it holds resources, such as a remote
// connection. The loop renders nothing afterwards.
func (l *Loop) Close() error {
	l.mu.Lock()
	d := l.drv
	l.drv = nil
	l.mu.Unlock()
	return release(d)
}

func release(d driver.ImageDriver) error {
	if c, ok := d.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
