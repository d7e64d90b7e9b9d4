package transport

import (
	"errors"
	"fmt"
	"sync"

	"github.com/pion/webrtc/v4"
)

// FramesLabel is the data channel label carrying raw frames.
const FramesLabel = "frames"

// maxBuffered bounds the bytes queued on the channel before frames are dropped.
const maxBuffered = 4 << 20

var (
	ErrNoChannel = errors.New("transport: frames data channel not set")
	ErrNotOpen   = errors.New("transport: frames data channel not open")
	ErrCongested = errors.New("transport: frames data channel congested")
)

// DataChannelTransport sends and receives chunked raw frames over a WebRTC
// DataChannel.
type DataChannelTransport struct {
	mu        sync.Mutex
	framesDC  *webrtc.DataChannel
	seq       uint32
	asm       Assembler
	chunkSize int

	onFrame func(data []byte)
}

// NewDataChannelTransport wraps the frames DataChannel, which may be nil and
// set later with SetFramesChannel.
func NewDataChannelTransport(framesDC *webrtc.DataChannel) *DataChannelTransport {
	t := &DataChannelTransport{chunkSize: DefaultChunkSize}
	if framesDC != nil {
		t.SetFramesChannel(framesDC)
	}
	return t
}

// SendFrame splits data into chunks and queues them on the channel. Frames
// are dropped with ErrCongested while the peer is not keeping up.
func (t *DataChannelTransport) SendFrame(data []byte) error {
	t.mu.Lock()
	dc := t.framesDC
	t.seq++
	seq := t.seq
	t.mu.Unlock()

	if dc == nil {
		return ErrNoChannel
	}
	if dc.ReadyState() != webrtc.DataChannelStateOpen {
		return ErrNotOpen
	}
	if dc.BufferedAmount() > maxBuffered {
		return ErrCongested
	}

	chunks, err := Split(seq, data, t.chunkSize)
	if err != nil {
		return err
	}
	for _, chunk := range chunks {
		if err := dc.Send(chunk); err != nil {
			return fmt.Errorf("send frame %d: %w", seq, err)
		}
	}
	return nil
}

func (t *DataChannelTransport) OnFrame(cb func(data []byte)) {
	t.mu.Lock()
	t.onFrame = cb
	t.mu.Unlock()
}

// SetFramesChannel sets or replaces the frames DataChannel (used when the
// channel is announced by the remote peer).
func (t *DataChannelTransport) SetFramesChannel(dc *webrtc.DataChannel) {
	t.mu.Lock()
	t.framesDC = dc
	t.mu.Unlock()
	dc.OnMessage(func(msg webrtc.DataChannelMessage) {
		t.receive(msg.Data)
	})
}

// Dropped returns the number of incomplete frames discarded by the receiver.
func (t *DataChannelTransport) Dropped() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.asm.Dropped
}

// Close closes the frames DataChannel, if any.
func (t *DataChannelTransport) Close() error {
	t.mu.Lock()
	dc := t.framesDC
	t.framesDC = nil
	t.mu.Unlock()
	if dc == nil {
		return nil
	}
	return dc.Close()
}

func (t *DataChannelTransport) receive(chunk []byte) {
	t.mu.Lock()
	frame, err := t.asm.Add(chunk)
	cb := t.onFrame
	t.mu.Unlock()

	if err != nil || frame == nil || cb == nil {
		return
	}
	cb(frame)
}

var (
	_ FrameSender   = (*DataChannelTransport)(nil)
	_ FrameReceiver = (*DataChannelTransport)(nil)
)
