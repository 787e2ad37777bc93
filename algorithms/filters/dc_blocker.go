package filters

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidCutoff is returned when a cutoff cannot be realised by a stable pole.
var ErrInvalidCutoff = errors.New("invalid DC blocker cutoff")

// DCBlocker is a one-pole, one-zero high-pass filter that removes the DC
// component of a signal:
//
//	y[n] = x[n] - x[n-1] + R·y[n-1]
//
// References:
//   - Julius O. Smith III, "Introduction to Digital Filters with Audio Applications"
//     https://ccrma.stanford.edu/~jos/filters/DC_Blocker.html
//
// A DC offset adds c²·(N-τ) to every autocorrelation lag, which pulls lag
// based estimators towards short periods. The filter state is per value, so
// one DCBlocker must not be shared between goroutines.
type DCBlocker struct {
	pole float64 // R, 0 < R < 1

	x1 float64 // previous input sample x[n-1]
	y1 float64 // previous output sample y[n-1]
}

// NewDCBlocker creates a DC blocker with the given -3 dB cutoff.
// The pole is R = 1 - 2π·fc/fs, valid for fc well below fs/2.
func NewDCBlocker(sampleRate int, cutoffHz float64) (*DCBlocker, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("%w: sample rate %d", ErrInvalidCutoff, sampleRate)
	}

	pole := 1.0 - 2.0*math.Pi*cutoffHz/float64(sampleRate)
	if !(cutoffHz > 0) || !(pole > 0) || pole >= 1 {
		return nil, fmt.Errorf("%w: %.2f Hz at %d Hz", ErrInvalidCutoff, cutoffHz, sampleRate)
	}

	return &DCBlocker{pole: pole}, nil
}

// Process filters a single sample
func (dc *DCBlocker) Process(input float64) float64 {
	output := input - dc.x1 + dc.pole*dc.y1

	dc.x1 = input
	dc.y1 = output

	return output
}

// Prime seeds the filter history with the first sample of a block so the
// block's offset does not show up as a step at its start.
func (dc *DCBlocker) Prime(first float64) {
	dc.x1 = first
	dc.y1 = 0.0
}

// ProcessBlock filters an independent block into a new slice, priming the
// filter with the block's first sample. The input is left untouched.
func (dc *DCBlocker) ProcessBlock(input []float64) []float64 {
	output := make([]float64, len(input))
	if len(input) == 0 {
		return output
	}

	dc.Prime(input[0])
	for i, sample := range input {
		output[i] = dc.Process(sample)
	}
	return output
}

// Reset clears the filter's internal state
func (dc *DCBlocker) Reset() {
	dc.x1 = 0.0
	dc.y1 = 0.0
}

// Pole returns the pole location R
func (dc *DCBlocker) Pole() float64 {
	return dc.pole
}

// CutoffFrequency returns the approximate -3 dB cutoff, fc ≈ (1-R)·fs/(2π)
func (dc *DCBlocker) CutoffFrequency(sampleRate int) float64 {
	if sampleRate <= 0 {
		return 0.0
	}
	return (1.0 - dc.pole) * float64(sampleRate) / (2.0 * math.Pi)
}

// FrequencyResponse returns the magnitude and phase (radians) of
// H(e^jw) = (1 - e^-jw) / (1 - R·e^-jw) at frequency.
func (dc *DCBlocker) FrequencyResponse(frequency float64, sampleRate int) (magnitude, phase float64) {
	w := 2.0 * math.Pi * frequency / float64(sampleRate)

	cosW := math.Cos(w)
	sinW := math.Sin(w)

	numReal := 1.0 - cosW
	numImag := sinW
	denReal := 1.0 - dc.pole*cosW
	denImag := dc.pole * sinW

	denMagSq := denReal*denReal + denImag*denImag
	hReal := (numReal*denReal + numImag*denImag) / denMagSq
	hImag := (numImag*denReal - numReal*denImag) / denMagSq

	return math.Hypot(hReal, hImag), math.Atan2(hImag, hReal)
}
