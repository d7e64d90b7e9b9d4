package pixel

import (
	"fmt"
	"strings"
)

// Layout describes the channel order of a raw, row-major, unpadded buffer.
type Layout int

const (
	LayoutUnknown Layout = iota
	Gray
	RGB
	BGR
	RGBA
	BGRA
)

var layoutNames = map[Layout]string{
	Gray: "gray",
	RGB:  "rgb",
	BGR:  "bgr",
	RGBA: "rgba",
	BGRA: "bgra",
}

// Channels returns the number of bytes per pixel, or 0 for an unsupported layout.
func (l Layout) Channels() int {
	switch l {
	case Gray:
		return 1
	case RGB, BGR:
		return 3
	case RGBA, BGRA:
		return 4
	default:
		return 0
	}
}

// HasAlpha reports whether the layout carries an alpha channel.
func (l Layout) HasAlpha() bool {
	return l == RGBA || l == BGRA
}

// Valid reports whether the layout is one of the supported layouts.
func (l Layout) Valid() bool {
	return l.Channels() > 0
}

func (l Layout) String() string {
	if name, ok := layoutNames[l]; ok {
		return name
	}
	return fmt.Sprintf("layout(%d)", int(l))
}

// ParseLayout parses a layout name such as "rgb" or "bgra".
func ParseLayout(s string) (Layout, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for l, n := range layoutNames {
		if n == name {
			return l, nil
		}
	}
	return LayoutUnknown, fmt.Errorf("pixel: unknown layout %q", s)
}

// BufferSize returns width*height*channels, or false if the layout is
// unsupported, a dimension is not positive, or the product overflows int.
func (l Layout) BufferSize(width, height int) (int, bool) {
	ch := l.Channels()
	if ch == 0 || width <= 0 || height <= 0 {
		return 0, false
	}
	const maxInt = int(^uint(0) >> 1)
	if width > maxInt/height {
		return 0, false
	}
	n := width * height
	if n > maxInt/ch {
		return 0, false
	}
	return n * ch, true
}

func (l Layout) MarshalText() ([]byte, error) {
	if !l.Valid() {
		return nil, fmt.Errorf("pixel: cannot marshal %s", l)
	}
	return []byte(l.String()), nil
}

func (l *Layout) UnmarshalText(text []byte) error {
	v, err := ParseLayout(string(text))
	if err != nil {
		return err
	}
	*l = v
	return nil
}
