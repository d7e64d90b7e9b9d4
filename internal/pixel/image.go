package pixel

import (
	"image"
	"image/color"
)

// Opaque is the alpha value used for layouts without an alpha channel.
const Opaque = 0xFF

// ARGB packs the components into a 0xAARRGGBB value.
func ARGB(a, r, g, b uint8) uint32 {
	return uint32(a)<<24 | uint32(r)<<16 | uint32(g)<<8 | uint32(b)
}

// Components unpacks a 0xAARRGGBB value.
func Components(v uint32) (a, r, g, b uint8) {
	return uint8(v >> 24), uint8(v >> 16), uint8(v >> 8), uint8(v)
}

// Image is a decoded frame with one ARGB value per pixel, row-major.
type Image struct {
	Width  int
	Height int

	// Pix holds Width*Height pixels; the pixel at (x, y) is Pix[y*Width+x].
	Pix []uint32
}

// NewImage allocates a zeroed w×h image.
func NewImage(w, h int) *Image {
	return &Image{
		Width:  w,
		Height: h,
		Pix:    make([]uint32, w*h),
	}
}

// ARGBAt returns the packed pixel at (x, y), or 0 outside the image.
func (p *Image) ARGBAt(x, y int) uint32 {
	if x < 0 || y < 0 || x >= p.Width || y >= p.Height {
		return 0
	}
	return p.Pix[y*p.Width+x]
}

func (p *Image) ColorModel() color.Model {
	return color.NRGBAModel
}

func (p *Image) Bounds() image.Rectangle {
	return image.Rect(0, 0, p.Width, p.Height)
}

func (p *Image) At(x, y int) color.Color {
	if !(image.Point{X: x, Y: y}).In(p.Bounds()) {
		return color.NRGBA{}
	}
	a, r, g, b := Components(p.Pix[y*p.Width+x])
	return color.NRGBA{R: r, G: g, B: b, A: a}
}

// AppendRGBA appends the image as alpha-premultiplied RGBA bytes to dst, the
// format expected by image.RGBA.Pix and GPU texture uploads.
func (p *Image) AppendRGBA(dst []byte) []byte {
	for _, v := range p.Pix {
		a, r, g, b := Components(v)
		if a != Opaque {
			r = uint8(uint16(r) * uint16(a) / 0xFF)
			g = uint8(uint16(g) * uint16(a) / 0xFF)
			b = uint8(uint16(b) * uint16(a) / 0xFF)
		}
		dst = append(dst, r, g, b, a)
	}
	return dst
}

// Equal reports whether both images have the same size and pixels.
func (p *Image) Equal(o *Image) bool {
	if p == nil || o == nil {
		return p == o
	}
	if p.Width != o.Width || p.Height != o.Height || len(p.Pix) != len(o.Pix) {
		return false
	}
	for i := range p.Pix {
		if p.Pix[i] != o.Pix[i] {
			return false
		}
	}
	return true
}

var _ image.Image = (*Image)(nil)
