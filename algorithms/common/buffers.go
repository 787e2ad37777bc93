package common

import (
	"fmt"
)

// SlidingWindow cuts a stream of samples into analysis windows of windowSize
// samples, starting a new window every hopSize samples. Windows overlap when
// hopSize < windowSize; samples between windows are skipped when
// hopSize > windowSize.
//
// A SlidingWindow is stateful and not safe for concurrent use. The windows it
// returns are fresh copies owned by the caller.
type SlidingWindow struct {
	buffer     []float64
	windowSize int
	hopSize    int
	writePos   int
	skip       int // samples still to drop before the next window starts
}

// NewSlidingWindow creates a new sliding window
func NewSlidingWindow(windowSize, hopSize int) (*SlidingWindow, error) {
	if windowSize <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidWindowSize, windowSize)
	}
	if hopSize <= 0 {
		return nil, fmt.Errorf("hop size must be positive: %d", hopSize)
	}

	return &SlidingWindow{
		buffer:     make([]float64, windowSize),
		windowSize: windowSize,
		hopSize:    hopSize,
	}, nil
}

// AddSamples adds samples and returns every window completed by them
func (sw *SlidingWindow) AddSamples(samples []float64) [][]float64 {
	var frames [][]float64

	for _, sample := range samples {
		if sw.skip > 0 {
			sw.skip--
			continue
		}

		sw.buffer[sw.writePos] = sample
		sw.writePos++

		if sw.writePos < sw.windowSize {
			continue
		}

		frame := make([]float64, sw.windowSize)
		copy(frame, sw.buffer)
		frames = append(frames, frame)

		if sw.hopSize < sw.windowSize {
			// Overlap: keep the tail that the next window shares
			copy(sw.buffer, sw.buffer[sw.hopSize:])
			sw.writePos = sw.windowSize - sw.hopSize
		} else {
			sw.writePos = 0
			sw.skip = sw.hopSize - sw.windowSize
		}
	}

	return frames
}

// Buffered returns the number of samples held for the next window
func (sw *SlidingWindow) Buffered() int {
	return sw.writePos
}

// Reset clears the sliding window
func (sw *SlidingWindow) Reset() {
	sw.writePos = 0
	sw.skip = 0
	for i := range sw.buffer {
		sw.buffer[i] = 0.0
	}
}
