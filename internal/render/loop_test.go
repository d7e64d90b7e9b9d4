package render

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/junsooki/rgbview/internal/decoder"
	"github.com/junsooki/rgbview/internal/driver"
	"github.com/junsooki/rgbview/internal/pixel"
	"github.com/junsooki/rgbview/internal/provider"
)

// scriptedDriver returns its buffers in order, repeating the last one.
type scriptedDriver struct {
	width, height int
	layout        pixel.Layout
	frames        [][]byte
	errs          []error
	calls         int
}

func (d *scriptedDriver) Width() int           { return d.width }
func (d *scriptedDriver) Height() int          { return d.height }
func (d *scriptedDriver) Layout() pixel.Layout { return d.layout }

func (d *scriptedDriver) RawVisualData() ([]byte, error) {
	i := min(d.calls, len(d.frames)-1)
	d.calls++
	if i < len(d.errs) && d.errs[i] != nil {
		return nil, d.errs[i]
	}
	return d.frames[i], nil
}

type submission struct {
	img  *pixel.Image
	x, y int
}

type recordingSink struct {
	got []submission
}

func (s *recordingSink) Submit(img *pixel.Image, x, y int) {
	s.got = append(s.got, submission{img, x, y})
}

type countingReporter struct {
	frames []error
	setups []error
}

func (r *countingReporter) FrameFailed(err error) { r.frames = append(r.frames, err) }
func (r *countingReporter) SetupFailed(err error) { r.setups = append(r.setups, err) }

func registryWith(t *testing.T, d driver.ImageDriver) provider.Provider {
	t.Helper()
	r := provider.NewRegistry()
	require.NoError(t, r.Register(driver.CapabilityRGBImage, func(context.Context) (driver.ImageDriver, error) {
		return d, nil
	}))
	return r
}

func rgbDecoder(t *testing.T) *decoder.RawDecoder {
	t.Helper()
	dec, err := decoder.NewRawDecoder(pixel.RGB)
	require.NoError(t, err)
	return dec
}

func TestTickSubmitsDecodedFrameAtOrigin(t *testing.T) {
	d := &scriptedDriver{width: 2, height: 2, layout: pixel.RGB, frames: [][]byte{
		{255, 0, 0, 0, 255, 0, 0, 0, 255, 255, 255, 255},
	}}
	sink := &recordingSink{}
	l := New(rgbDecoder(t), sink)

	require.NoError(t, l.Setup(context.Background(), registryWith(t, d), driver.CapabilityRGBImage))
	w, h, ok := l.Dimensions()
	require.True(t, ok)
	assert.Equal(t, 2, w)
	assert.Equal(t, 2, h)

	l.Tick()
	require.Len(t, sink.got, 1)
	s := sink.got[0]
	assert.Equal(t, 0, s.x)
	assert.Equal(t, 0, s.y)
	assert.Equal(t, []uint32{0xFFFF0000, 0xFF00FF00, 0xFF0000FF, 0xFFFFFFFF}, s.img.Pix)
	assert.Equal(t, Idle, l.State())
	assert.Equal(t, Stats{Ticks: 1, Rendered: 1}, l.Stats())
}

func TestShortBufferDropsOneFrame(t *testing.T) {
	good := make([]byte, 4*3*3)
	d := &scriptedDriver{width: 4, height: 3, layout: pixel.RGB, frames: [][]byte{
		good[:len(good)-3],
		good,
	}}
	sink := &recordingSink{}
	rep := &countingReporter{}
	l := New(rgbDecoder(t), sink, WithReporter(rep))
	require.NoError(t, l.Setup(context.Background(), registryWith(t, d), driver.CapabilityRGBImage))

	l.Tick()
	assert.Empty(t, sink.got)
	require.Len(t, rep.frames, 1)
	assert.ErrorIs(t, rep.frames[0], decoder.ErrSizeMismatch)
	assert.Equal(t, Idle, l.State())

	l.Tick()
	require.Len(t, sink.got, 1)
	assert.Len(t, sink.got[0].img.Pix, 12)

	stats := l.Stats()
	assert.Equal(t, 2, stats.Ticks)
	assert.Equal(t, 1, stats.Rendered)
	assert.Equal(t, 1, stats.Failed)
	assert.ErrorIs(t, stats.LastErr, decoder.ErrSizeMismatch)
}

func TestDriverErrorDropsFrame(t *testing.T) {
	lost := errors.New("sensor timeout")
	d := &scriptedDriver{width: 1, height: 1, layout: pixel.RGB,
		frames: [][]byte{nil, {1, 2, 3}},
		errs:   []error{lost},
	}
	sink := &recordingSink{}
	rep := &countingReporter{}
	l := New(rgbDecoder(t), sink, WithReporter(rep))
	require.NoError(t, l.Setup(context.Background(), registryWith(t, d), driver.CapabilityRGBImage))

	l.Tick()
	l.Tick()
	require.Len(t, rep.frames, 1)
	assert.ErrorIs(t, rep.frames[0], lost)
	require.Len(t, sink.got, 1)
	assert.Equal(t, pixel.ARGB(0xFF, 1, 2, 3), sink.got[0].img.Pix[0])
}

func TestSetupFailureNeverRenders(t *testing.T) {
	tests := []struct {
		name string
		p    provider.Provider
		want error
	}{
		{"capability not found", provider.NewRegistry(), provider.ErrCapabilityNotFound},
		{"no provider", nil, provider.ErrUnknownDriver},
		{"connectivity", providerFunc(func(context.Context, string) (driver.ImageDriver, error) {
			return nil, provider.ErrConnectivity
		}), provider.ErrConnectivity},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			sink := &recordingSink{}
			rep := &countingReporter{}
			l := New(rgbDecoder(t), sink, WithReporter(rep))

			err := l.Setup(context.Background(), test.p, driver.CapabilityRGBImage)
			assert.ErrorIs(t, err, test.want)
			require.Len(t, rep.setups, 1)
			assert.ErrorIs(t, rep.setups[0], test.want)

			for i := 0; i < 5; i++ {
				l.Tick()
			}
			assert.Empty(t, sink.got)
			assert.Empty(t, rep.frames)
			_, _, ok := l.Dimensions()
			assert.False(t, ok)

			stats := l.Stats()
			assert.Equal(t, 5, stats.Ticks)
			assert.Equal(t, 5, stats.Skipped)
			assert.Zero(t, stats.Rendered)
		})
	}
}

func TestSetupLayoutMismatch(t *testing.T) {
	d := &scriptedDriver{width: 2, height: 2, layout: pixel.BGR, frames: [][]byte{make([]byte, 12)}}
	l := New(rgbDecoder(t), &recordingSink{})

	err := l.Setup(context.Background(), registryWith(t, d), driver.CapabilityRGBImage)
	assert.ErrorIs(t, err, provider.ErrInvalidConfiguration)
	_, _, ok := l.Dimensions()
	assert.False(t, ok)
}

func TestWithLayoutOverridesDecoder(t *testing.T) {
	dec, err := decoder.NewRawDecoder(pixel.BGR)
	require.NoError(t, err)
	assert.Equal(t, pixel.BGR, New(dec, &recordingSink{}).Layout())
	assert.Equal(t, pixel.RGBA, New(dec, &recordingSink{}, WithLayout(pixel.RGBA)).Layout())
}

func TestPatternDriverThroughRegistry(t *testing.T) {
	r := provider.NewRegistry()
	require.NoError(t, r.Register(driver.CapabilityRGBImage,
		provider.PatternFactory(driver.PatternConfig{Width: 8, Height: 4, Layout: pixel.RGB})))

	sink := &recordingSink{}
	l := New(rgbDecoder(t), sink)
	require.NoError(t, l.Setup(context.Background(), r, driver.CapabilityRGBImage))

	for i := 0; i < 3; i++ {
		l.Tick()
	}
	require.Len(t, sink.got, 3)
	assert.NotEqual(t, sink.got[0].img.Pix, sink.got[1].img.Pix, "pattern advances each frame")
}

func TestReentrantTickSkipped(t *testing.T) {
	d := &scriptedDriver{width: 1, height: 1, layout: pixel.RGB, frames: [][]byte{{9, 9, 9}}}
	var l *Loop
	var states []State
	sink := SinkFunc(func(img *pixel.Image, x, y int) {
		states = append(states, l.State())
		l.Tick()
	})
	l = New(rgbDecoder(t), sink)
	require.NoError(t, l.Setup(context.Background(), registryWith(t, d), driver.CapabilityRGBImage))

	l.Tick()
	assert.Equal(t, []State{Rendering}, states)
	assert.Equal(t, Idle, l.State())
	stats := l.Stats()
	assert.Equal(t, 2, stats.Ticks)
	assert.Equal(t, 1, stats.Rendered)
	assert.Equal(t, 1, stats.Skipped)
}

func TestNilDecoderFailsSetup(t *testing.T) {
	l := New(nil, &recordingSink{})
	d := &scriptedDriver{width: 1, height: 1, layout: pixel.RGB, frames: [][]byte{{1, 2, 3}}}
	assert.Error(t, l.Setup(context.Background(), registryWith(t, d), driver.CapabilityRGBImage))
	l.Tick()
	assert.Equal(t, 1, l.Stats().Skipped)
}

type providerFunc func(ctx context.Context, capability string) (driver.ImageDriver, error)

func (f providerFunc) Acquire(ctx context.Context, capability string) (driver.ImageDriver, error) {
	return f(ctx, capability)
}

type closingDriver struct {
	scriptedDriver
	closed int
}

func (d *closingDriver) Close() error {
	d.closed++
	return nil
}

func TestCloseReleasesDriver(t *testing.T) {
	d := &closingDriver{scriptedDriver: scriptedDriver{width: 1, height: 1, layout: pixel.RGB, frames: [][]byte{{1, 2, 3}}}}
	sink := &recordingSink{}
	l := New(rgbDecoder(t), sink)
	require.NoError(t, l.Setup(context.Background(), registryWith(t, d), driver.CapabilityRGBImage))

	require.NoError(t, l.Close())
	assert.Equal(t, 1, d.closed)
	l.Tick()
	assert.Empty(t, sink.got)
	require.NoError(t, l.Close())
	assert.Equal(t, 1, d.closed)
}

func TestSetupRejectionClosesDriver(t *testing.T) {
	tests := map[string]*closingDriver{
		"layout mismatch": {scriptedDriver: scriptedDriver{width: 2, height: 2, layout: pixel.BGR, frames: [][]byte{make([]byte, 12)}}},
		"zero width":      {scriptedDriver: scriptedDriver{width: 0, height: 2, layout: pixel.RGB, frames: [][]byte{nil}}},
	}
	for name, d := range tests {
		t.Run(name, func(t *testing.T) {
			sink := &recordingSink{}
			l := New(rgbDecoder(t), sink)

			err := l.Setup(context.Background(), registryWith(t, d), driver.CapabilityRGBImage)
			assert.ErrorIs(t, err, provider.ErrInvalidConfiguration)
			assert.Equal(t, 1, d.closed)

			require.NoError(t, l.Close())
			l.Tick()
			assert.Equal(t, 1, d.closed)
			assert.Empty(t, sink.got)
		})
	}
}

func TestSecondSetupKeepsFirstDriver(t *testing.T) {
	first := &closingDriver{scriptedDriver: scriptedDriver{width: 1, height: 1, layout: pixel.RGB, frames: [][]byte{{1, 2, 3}}}}
	second := &closingDriver{scriptedDriver: scriptedDriver{width: 1, height: 1, layout: pixel.RGB, frames: [][]byte{{4, 5, 6}}}}
	sink := &recordingSink{}
	l := New(rgbDecoder(t), sink)

	require.NoError(t, l.Setup(context.Background(), registryWith(t, first), driver.CapabilityRGBImage))
	err := l.Setup(context.Background(), registryWith(t, second), driver.CapabilityRGBImage)
	assert.ErrorIs(t, err, ErrAlreadySetUp)
	assert.Zero(t, second.calls, "second driver never acquired")

	l.Tick()
	require.Len(t, sink.got, 1)
	assert.Equal(t, pixel.ARGB(0xFF, 1, 2, 3), sink.got[0].img.Pix[0])

	require.NoError(t, l.Close())
	assert.Equal(t, 1, first.closed)
	assert.Zero(t, second.closed)
}
