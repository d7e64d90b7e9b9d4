package headless

import (
	"errors"
	"fmt"
	"image"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"

	"github.com/junsooki/rgbview/internal/pixel"
)

// ErrNoFrame is returned by Snapshot before anything was submitted.
var ErrNoFrame = errors.New("headless: no frame submitted")

// Recorder is a render sink that keeps the last submitted frame.
type Recorder struct {
	mu    sync.Mutex
	last  *pixel.Image
	x, y  int
	count int
}

func (r *Recorder) Submit(img *pixel.Image, x, y int) {
	r.mu.Lock()
	r.last, r.x, r.y = img, x, y
	r.count++
	r.mu.Unlock()
}

// Last returns the most recent submission; ok is false if there is none.
func (r *Recorder) Last() (img *pixel.Image, x, y int, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.last, r.x, r.y, r.last != nil
}

// Count returns the number of submissions.
func (r *Recorder) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.count
}

// Snapshot writes the last frame to path. The format follows the file
// extension: .bmp, .tif/.tiff, anything else is PNG.
func (r *Recorder) Snapshot(path string) error {
	img, _, _, ok := r.Last()
	if !ok {
		return ErrNoFrame
	}
	encode := encoderFor(path)

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create snapshot: %w", err)
	}
	if err := encode(f, img); err != nil {
		f.Close()
		return fmt.Errorf("encode snapshot: %w", err)
	}
	return f.Close()
}

type encodeFunc func(w io.Writer, img image.Image) error

func encoderFor(path string) encodeFunc {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".bmp":
		return func(w io.Writer, img image.Image) error { return bmp.Encode(w, img) }
	case ".tif", ".tiff":
		return func(w io.Writer, img image.Image) error {
			return tiff.Encode(w, img, &tiff.Options{Compression: tiff.Deflate})
		}
	}
	return func(w io.Writer, img image.Image) error { return png.Encode(w, img) }
}
