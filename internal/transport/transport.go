package transport

// FrameSender sends raw driver frames.
type FrameSender interface {
	SendFrame(data []byte) error
}

// FrameReceiver delivers raw driver frames to a callback.
type FrameReceiver interface {
	OnFrame(callback func(data []byte))
}
