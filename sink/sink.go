package sink

import (
	"image"
	"sync"
	"time"
)

// FrameSink is a bounded queue of annotated frames awaiting consumption by
// the streaming layer. When full, the oldest frame is dropped to admit the
// newest so the producing worker never blocks on a slow consumer.
type FrameSink struct {
	mu     sync.Mutex
	frames chan *image.RGBA
}

// New creates a frame sink with the given capacity
func New(capacity int) *FrameSink {
	if capacity <= 0 {
		capacity = 1
	}
	return &FrameSink{
		frames: make(chan *image.RGBA, capacity),
	}
}

// Push appends a frame, evicting the oldest entries if the sink is full.
// It reports whether any frame was dropped.
func (s *FrameSink) Push(frame *image.RGBA) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	dropped := false
	for {
		select {
		case s.frames <- frame:
			return dropped
		default:
			// full: evict the oldest and retry. The consumer may race us
			// for the eviction, which is fine either way.
			select {
			case <-s.frames:
				dropped = true
			default:
			}
		}
	}
}

// Pop removes and returns the oldest frame, blocking up to timeout.
// The second return value is false when no frame arrived in time.
func (s *FrameSink) Pop(timeout time.Duration) (*image.RGBA, bool) {
	select {
	case frame := <-s.frames:
		return frame, true
	case <-time.After(timeout):
		return nil, false
	}
}

// Drain discards all queued frames
func (s *FrameSink) Drain() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for {
		select {
		case <-s.frames:
		default:
			return
		}
	}
}

// Len returns the number of queued frames
func (s *FrameSink) Len() int {
	return len(s.frames)
}
