package detection

import (
	"sync"

	"github.com/teslashibe/go-balltrack/pkg/frame"
)

// FrameBuffer is a fixed-capacity ring of frames ordered oldest to newest.
// Pushing into a full buffer evicts the oldest frame. It is safe for
// concurrent use.
type FrameBuffer struct {
	mu     sync.Mutex
	frames []frame.Frame
	head   int // index of the oldest frame
	size   int
}

// NewFrameBuffer creates an empty buffer holding up to capacity frames.
func NewFrameBuffer(capacity int) *FrameBuffer {
	if capacity < 1 {
		capacity = 1
	}
	return &FrameBuffer{frames: make([]frame.Frame, capacity)}
}

// Push appends f, evicting the oldest frame when full.
func (b *FrameBuffer) Push(f frame.Frame) {
	b.mu.Lock()
	defer b.mu.Unlock()

	n := len(b.frames)
	if b.size < n {
		b.frames[(b.head+b.size)%n] = f
		b.size++
		return
	}
	b.frames[b.head] = f
	b.head = (b.head + 1) % n
}

// Snapshot returns the buffered frames oldest first. Pixel data is shared,
// so pushed frames must not be mutated afterwards.
func (b *FrameBuffer) Snapshot() []frame.Frame {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]frame.Frame, b.size)
	for i := range out {
		out[i] = b.frames[(b.head+i)%len(b.frames)]
	}
	return out
}

// Len returns the number of buffered frames.
func (b *FrameBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.size
}

// Cap returns the buffer capacity.
func (b *FrameBuffer) Cap() int {
	return len(b.frames)
}

// Full reports whether the buffer holds Cap frames.
func (b *FrameBuffer) Full() bool {
	return b.Len() == b.Cap()
}

// Clear drops every buffered frame.
func (b *FrameBuffer) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	clear(b.frames)
	b.head = 0
	b.size = 0
}
