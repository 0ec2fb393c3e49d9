package camera

import "sync/atomic"

// RunningStats accumulates per-frame people counts for the lifetime of one
// pipeline instance. The counters are never reset by Stop: only constructing
// a new pipeline for the slot starts them over.
type RunningStats struct {
	totalPeople atomic.Uint64
	frames      atomic.Uint64
	maxPeople   atomic.Uint32
}

// Update folds one frame's people count into the running counters
func (s *RunningStats) Update(count int) {
	if count < 0 {
		count = 0
	}
	s.totalPeople.Add(uint64(count))
	s.frames.Add(1)

	for {
		max := s.maxPeople.Load()
		if uint32(count) <= max {
			return
		}
		if s.maxPeople.CompareAndSwap(max, uint32(count)) {
			return
		}
	}
}

// Frames returns the number of frames folded in so far
func (s *RunningStats) Frames() uint64 {
	return s.frames.Load()
}

// TotalPeople returns the cumulative sum of per-frame people counts
func (s *RunningStats) TotalPeople() uint64 {
	return s.totalPeople.Load()
}

// Max returns the largest single-frame people count seen
func (s *RunningStats) Max() uint32 {
	return s.maxPeople.Load()
}

// Avg returns the mean people count per frame, 0 before the first frame
func (s *RunningStats) Avg() float64 {
	frames := s.frames.Load()
	if frames == 0 {
		return 0
	}
	return float64(s.totalPeople.Load()) / float64(frames)
}
