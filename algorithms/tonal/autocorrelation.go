package tonal

import (
	"fmt"
	"math"

	"github.com/RyanBlaney/sonido-tuner/algorithms/common"
	"github.com/RyanBlaney/sonido-tuner/algorithms/spectral"
	"github.com/RyanBlaney/sonido-tuner/algorithms/stats"
)

// Default search bounds for the autocorrelation estimator
const (
	DefaultAutocorrMinFreq = 70.0
	DefaultAutocorrMaxFreq = 350.0
)

// AutocorrelationEstimator picks the lag of the strongest autocorrelation
// peak inside a frequency-bounded lag range.
//
// Reference: Rabiner, L.R. (1977). "On the use of autocorrelation analysis for pitch detection"
//
// It is the fastest and least precise estimator: the period is an integer
// lag with no sub-sample refinement.
type AutocorrelationEstimator struct {
	MinFreq    float64 // lowest frequency searched (Hz)
	MaxFreq    float64 // highest frequency searched (Hz)
	WindowSize int     // samples analysed; 0 uses the whole block

	autocorr *stats.AutoCorrelation
}

// NewAutocorrelationEstimator creates an estimator with the default 70-350 Hz bounds
func NewAutocorrelationEstimator() *AutocorrelationEstimator {
	return NewAutocorrelationEstimatorWithParams(DefaultAutocorrMinFreq, DefaultAutocorrMaxFreq, 0)
}

// NewAutocorrelationEstimatorWithParams creates an estimator with custom bounds
func NewAutocorrelationEstimatorWithParams(minFreq, maxFreq float64, windowSize int) *AutocorrelationEstimator {
	return &AutocorrelationEstimator{
		MinFreq:    minFreq,
		MaxFreq:    maxFreq,
		WindowSize: windowSize,
		autocorr:   stats.NewAutoCorrelationWithParams(stats.TimeDomain, spectral.BackendGoDSP),
	}
}

// Validate checks the frequency bounds
func (e *AutocorrelationEstimator) Validate() error {
	if !(e.MinFreq > 0) || !(e.MaxFreq > e.MinFreq) || math.IsInf(e.MaxFreq, 0) {
		return fmt.Errorf("%w: min %.2f Hz, max %.2f Hz", ErrInvalidFrequencyRange, e.MinFreq, e.MaxFreq)
	}
	if e.WindowSize < 0 {
		return fmt.Errorf("%w: window size %d", ErrInvalidParameter, e.WindowSize)
	}
	return nil
}

// LagRange returns the inclusive lag search range [⌈sr/fmax⌉, ⌊sr/fmin⌋]
// for a block of n samples. The upper bound is clamped to n-1.
func (e *AutocorrelationEstimator) LagRange(sampleRate, n int) (minLag, maxLag int, err error) {
	if err := e.Validate(); err != nil {
		return 0, 0, err
	}
	if sampleRate <= 0 {
		return 0, 0, fmt.Errorf("%w: %d", ErrInvalidSampleRate, sampleRate)
	}

	sr := float64(sampleRate)
	minLag = int(math.Ceil(sr / e.MaxFreq))
	maxLag = int(math.Floor(sr / e.MinFreq))
	if minLag < 1 {
		minLag = 1
	}
	if maxLag < minLag {
		return 0, 0, fmt.Errorf("%w: empty lag range [%d, %d] at %d Hz",
			ErrInvalidFrequencyRange, minLag, maxLag, sampleRate)
	}

	if n-1 < minLag {
		return 0, 0, fmt.Errorf("%w: minimum lag %d needs %d samples, have %d",
			ErrInsufficientSamples, minLag, minLag+1, n)
	}
	if maxLag > n-1 {
		maxLag = n - 1
	}

	return minLag, maxLag, nil
}

// Estimate returns the pitch of signal in Hz, or 0 when no pitch is found
func (e *AutocorrelationEstimator) Estimate(signal []float64, sampleRate int) (float64, error) {
	frame, err := frameBlock(signal, e.WindowSize)
	if err != nil {
		return 0, err
	}

	minLag, maxLag, err := e.LagRange(sampleRate, len(frame))
	if err != nil {
		return 0, err
	}

	if common.Energy(frame) == 0 {
		return 0, nil
	}

	ac := e.autocorr
	if ac == nil {
		ac = stats.NewAutoCorrelationWithParams(stats.TimeDomain, spectral.BackendGoDSP)
	}

	// Non-negative half of the full linear autocorrelation, up to maxLag
	corr, err := ac.Compute(frame, maxLag+1)
	if err != nil {
		return 0, err
	}

	peakLag := minLag + common.ArgMax(corr[minLag:maxLag+1])
	if !(corr[peakLag] > 0) {
		return 0, nil
	}

	return finitePitch(float64(sampleRate) / float64(peakLag)), nil
}
