package driver

import (
	"fmt"
	"sync"

	"github.com/junsooki/rgbview/internal/encoder"
	"github.com/junsooki/rgbview/internal/pixel"
)

// PatternConfig configures a synthetic test pattern driver.
type PatternConfig struct {
	Width  int
	Height int

	// Layout of the produced buffers, pixel.RGB when zero.
	Layout pixel.Layout
}

// DefaultPatternConfig is a VGA sized RGB pattern.
var DefaultPatternConfig = PatternConfig{
	Width:  640,
	Height: 480,
	Layout: pixel.RGB,
}

// Pattern produces an animated gradient, advancing one step per frame.
type Pattern struct {
	mu     sync.Mutex
	desc   Descriptor
	enc    *encoder.RawEncoder
	img    *pixel.Image
	offset int
}

// NewPattern creates a test pattern driver.
func NewPattern(config *PatternConfig) (*Pattern, error) {
	if config == nil {
		config = new(PatternConfig)
		*config = DefaultPatternConfig
	}
	desc := Descriptor{
		Width:  config.Width,
		Height: config.Height,
		Layout: config.Layout,
	}
	if desc.Layout == pixel.LayoutUnknown {
		desc.Layout = pixel.RGB
	}
	if err := desc.Validate(); err != nil {
		return nil, err
	}
	enc, err := encoder.NewRawEncoder(desc.Layout)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return &Pattern{
		desc: desc,
		enc:  enc,
		img:  pixel.NewImage(desc.Width, desc.Height),
	}, nil
}

func (p *Pattern) Width() int           { return p.desc.Width }
func (p *Pattern) Height() int          { return p.desc.Height }
func (p *Pattern) Layout() pixel.Layout { return p.desc.Layout }

func (p *Pattern) String() string {
	return fmt.Sprintf("pattern %dx%d %s", p.desc.Width, p.desc.Height, p.desc.Layout)
}

// RawVisualData renders the next frame into a fresh buffer.
func (p *Pattern) RawVisualData() ([]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	off := p.offset
	for y := 0; y < p.desc.Height; y++ {
		row := p.img.Pix[y*p.desc.Width : (y+1)*p.desc.Width]
		for x := range row {
			row[x] = PatternAt(x, y, off)
		}
	}
	p.offset++
	return p.enc.AppendEncoded(make([]byte, 0, p.desc.FrameSize()), p.img), nil
}

// PatternAt is the pattern color at (x, y) for animation step offset.
func PatternAt(x, y, offset int) uint32 {
	return pixel.ARGB(pixel.Opaque,
		uint8(x+y+offset),
		uint8(x-y+offset),
		uint8(x+y-offset),
	)
}

var (
	_ ImageDriver    = (*Pattern)(nil)
	_ FormatReporter = (*Pattern)(nil)
)
