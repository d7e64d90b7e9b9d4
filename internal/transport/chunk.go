package transport

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// Chunk header: seq uint32 | index uint16 | count uint16, big endian.
const (
	HeaderSize = 8

	// DefaultChunkSize keeps every message well below the SCTP message size
	// limits of common WebRTC stacks.
	DefaultChunkSize = 16 * 1024

	maxChunks = 1<<16 - 1
)

var (
	ErrFrameTooLarge = errors.New("transport: frame needs too many chunks")
	ErrShortChunk    = errors.New("transport: chunk shorter than header")
	ErrBadChunk      = errors.New("transport: malformed chunk header")
)

// Split cuts frame into chunks of at most size payload bytes, each prefixed
// with a header. An empty frame is sent as a single empty chunk.
func Split(seq uint32, frame []byte, size int) ([][]byte, error) {
	if size <= 0 {
		size = DefaultChunkSize
	}
	count := (len(frame) + size - 1) / size
	if count == 0 {
		count = 1
	}
	if count > maxChunks {
		return nil, fmt.Errorf("%w: %d bytes in %d byte chunks", ErrFrameTooLarge, len(frame), size)
	}

	chunks := make([][]byte, 0, count)
	for i := 0; i < count; i++ {
		start := i * size
		end := min(start+size, len(frame))
		payload := frame[start:end]

		chunk := make([]byte, HeaderSize+len(payload))
		binary.BigEndian.PutUint32(chunk[0:4], seq)
		binary.BigEndian.PutUint16(chunk[4:6], uint16(i))
		binary.BigEndian.PutUint16(chunk[6:8], uint16(count))
		copy(chunk[HeaderSize:], payload)
		chunks = append(chunks, chunk)
	}
	return chunks, nil
}

// Assembler rebuilds frames from chunks. Only one frame is assembled at a
// time: a chunk of a newer sequence discards the incomplete frame, chunks of
// older sequences are ignored.
type Assembler struct {
	active   bool
	seq      uint32
	count    int
	received int
	parts    [][]byte

	completed bool
	last      uint32

	// Dropped counts frames discarded before completion.
	Dropped int
}

// Add consumes one chunk and returns the frame it completes, if any.
func (a *Assembler) Add(chunk []byte) ([]byte, error) {
	if len(chunk) < HeaderSize {
		return nil, ErrShortChunk
	}
	seq := binary.BigEndian.Uint32(chunk[0:4])
	index := int(binary.BigEndian.Uint16(chunk[4:6]))
	count := int(binary.BigEndian.Uint16(chunk[6:8]))
	if count == 0 || index >= count {
		return nil, fmt.Errorf("%w: index %d of %d", ErrBadChunk, index, count)
	}

	if a.completed && int32(seq-a.last) <= 0 {
		return nil, nil
	}
	if a.active {
		switch diff := int32(seq - a.seq); {
		case diff < 0:
			return nil, nil
		case diff > 0:
			a.Dropped++
			a.reset(seq, count)
		case count != a.count:
			a.Dropped++
			a.reset(seq, count)
		}
	} else {
		a.reset(seq, count)
	}

	if a.parts[index] != nil {
		return nil, nil
	}
	a.parts[index] = append(make([]byte, 0, len(chunk)-HeaderSize), chunk[HeaderSize:]...)
	a.received++
	if a.received < a.count {
		return nil, nil
	}

	size := 0
	for _, p := range a.parts {
		size += len(p)
	}
	frame := make([]byte, 0, size)
	for _, p := range a.parts {
		frame = append(frame, p...)
	}
	a.active = false
	a.parts = nil
	a.completed = true
	a.last = seq
	return frame, nil
}

func (a *Assembler) reset(seq uint32, count int) {
	a.active = true
	a.seq = seq
	a.count = count
	a.received = 0
	a.parts = make([][]byte, count)
}
