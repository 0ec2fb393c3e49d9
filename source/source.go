package source

import (
	"errors"
	"image"
	"time"

	"fallwatch/vision"
)

// ErrFrameTimeout reports that no frame arrived within the Next timeout.
// It is transient: the caller may simply try again.
var ErrFrameTimeout = errors.New("frame timeout")

// Frame is one decoded image handed to the camera pipeline.
//
// Detections is non-nil when the source fabricates its own detections (the
// synthetic IP camera acts as a fused source+detector); the pipeline then
// skips the detector for that frame.
type Frame struct {
	Image      *image.RGBA
	Detections []vision.Detection
	Timestamp  time.Time
}

// Source produces frames until exhausted or closed.
type Source interface {
	// Open prepares the source. It must be called before Next.
	Open() error

	// Next returns the next frame, blocking up to timeout. It returns
	// io.EOF when the source is exhausted.
	Next(timeout time.Duration) (*Frame, error)

	// Interval is the target delay between consecutive frames.
	Interval() time.Duration

	// Close releases the source. Safe to call more than once.
	Close() error
}
