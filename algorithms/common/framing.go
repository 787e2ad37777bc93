package common

import (
	"errors"
	"fmt"
)

// Errors returned by framing helpers.
var (
	ErrInsufficientSamples = errors.New("insufficient samples for analysis window")
	ErrInvalidWindowSize   = errors.New("analysis window size must be positive")
)

// Frame returns the first windowSize samples of signal as the analysis window.
//
// The returned slice shares storage with signal but has its capacity capped at
// windowSize, so appending to it can never overwrite the caller's samples.
// Callers must supply at least windowSize samples; the input is never padded.
func Frame(signal []float64, windowSize int) ([]float64, error) {
	if windowSize <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidWindowSize, windowSize)
	}
	if len(signal) < windowSize {
		return nil, fmt.Errorf("%w: have %d samples, need %d", ErrInsufficientSamples, len(signal), windowSize)
	}

	return signal[:windowSize:windowSize], nil
}

// ResolveWindowSize maps a requested window length to the one actually used:
// zero or negative means "the whole block".
func ResolveWindowSize(requested, blockLength int) int {
	if requested <= 0 {
		return blockLength
	}
	return requested
}
