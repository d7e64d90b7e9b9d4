package display

import (
	"errors"
	"sync"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"

	"github.com/junsooki/rgbview/internal/pixel"
)

// ErrNotReady is returned by Run when the loop has no driver dimensions.
var ErrNotReady = errors.New("display: render loop not set up")

type placed struct {
	img  *pixel.Image
	x, y int
}

// Ebiten shows frames with Ebitengine. Each game update is one render tick;
// frames are drawn 1:1 at their submitted position.
type Ebiten struct {
	title string
	loop  Loop

	mu      sync.Mutex
	pending *placed

	width, height int
	ebitenImage   *ebiten.Image
	rgba          []byte
}

// NewEbiten creates an Ebitengine display with the given window title.
func NewEbiten(title string) *Ebiten {
	return &Ebiten{title: title}
}

// Submit queues img for the next Draw. Called by the render loop.
func (d *Ebiten) Submit(img *pixel.Image, x, y int) {
	d.mu.Lock()
	d.pending = &placed{img: img, x: x, y: y}
	d.mu.Unlock()
}

// Run sizes the window to the loop's dimensions and starts the Ebitengine
// game loop. Must be called from the main goroutine.
func (d *Ebiten) Run(loop Loop) error {
	w, h, ok := loop.Dimensions()
	if !ok {
		return ErrNotReady
	}
	d.loop, d.width, d.height = loop, w, h

	ebiten.SetWindowSize(w, h)
	ebiten.SetWindowTitle(d.title)
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	return ebiten.RunGame(d)
}

// --- ebiten.Game interface ---

// Update drops the previous frame and runs one tick, so a failed tick shows
// nothing rather than the last good frame.
func (d *Ebiten) Update() error {
	if inpututil.IsKeyJustPressed(ebiten.KeyEscape) {
		return ebiten.Termination
	}
	d.mu.Lock()
	d.pending = nil
	d.mu.Unlock()

	d.loop.Tick()
	return nil
}

func (d *Ebiten) Draw(screen *ebiten.Image) {
	d.mu.Lock()
	p := d.pending
	d.mu.Unlock()
	if p == nil {
		return
	}

	if d.ebitenImage == nil ||
		d.ebitenImage.Bounds().Dx() != p.img.Width ||
		d.ebitenImage.Bounds().Dy() != p.img.Height {
		d.ebitenImage = ebiten.NewImage(p.img.Width, p.img.Height)
	}
	d.rgba = p.img.AppendRGBA(d.rgba[:0])
	d.ebitenImage.WritePixels(d.rgba)

	op := &ebiten.DrawImageOptions{}
	op.GeoM.Translate(float64(p.x), float64(p.y))
	screen.DrawImage(d.ebitenImage, op)
}

// Layout keeps the logical screen at the driver's size regardless of the
// window size.
func (d *Ebiten) Layout(outsideWidth, outsideHeight int) (int, int) {
	return d.width, d.height
}

var _ Display = (*Ebiten)(nil)
