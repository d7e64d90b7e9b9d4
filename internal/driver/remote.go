package driver

import (
	"sync"

	"github.com/junsooki/rgbview/internal/pixel"
	"github.com/junsooki/rgbview/internal/transport"
)

// Remote is a driver whose frames arrive over a transport from another
// process. It keeps a private copy of the most recent frame.
type Remote struct {
	desc Descriptor

	mu      sync.Mutex
	latest  []byte
	frames  int
	dropped int
	closed  bool
	close   func() error
}

// NewRemote creates a driver for a remote session described by desc.
// closeFn, if not nil, is called once by Close to tear down the session.
func NewRemote(desc Descriptor, frames transport.FrameReceiver, closeFn func() error) (*Remote, error) {
	if err := desc.Validate(); err != nil {
		return nil, err
	}
	r := &Remote{
		desc:  desc,
		close: closeFn,
	}
	frames.OnFrame(r.push)
	return r, nil
}

func (r *Remote) Width() int           { return r.desc.Width }
func (r *Remote) Height() int          { return r.desc.Height }
func (r *Remote) Layout() pixel.Layout { return r.desc.Layout }

// Frames returns the number of frames received so far.
func (r *Remote) Frames() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.frames
}

// Dropped returns the number of received frames discarded because their
// length did not match the descriptor.
func (r *Remote) Dropped() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.dropped
}

// RawVisualData returns a copy of the latest frame.
func (r *Remote) RawVisualData() ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil, ErrDisconnected
	}
	if r.latest == nil {
		return nil, ErrNoFrame
	}
	return append([]byte(nil), r.latest...), nil
}

// Close disconnects the driver. Later RawVisualData calls fail with ErrDisconnected.
func (r *Remote) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	r.latest = nil
	closeFn := r.close
	r.mu.Unlock()

	if closeFn != nil {
		return closeFn()
	}
	return nil
}

func (r *Remote) push(data []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	if len(data) != r.desc.FrameSize() {
		r.dropped++
		return
	}
	if cap(r.latest) >= len(data) {
		r.latest = append(r.latest[:0], data...)
	} else {
		r.latest = append([]byte(nil), data...)
	}
	r.frames++
}

var (
	_ ImageDriver    = (*Remote)(nil)
	_ FormatReporter = (*Remote)(nil)
)
