package tonal

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

// Default YIN parameters
const (
	DefaultYinThreshold = 0.1
	DefaultYinMinFreq   = 50.0
)

// YinEstimator implements the YIN fundamental frequency estimator.
//
// Reference: de Cheveigné, A., Kawahara, H. (2002). "YIN, a fundamental frequency estimator for speech and music"
//
// The period is reported at integer-lag resolution; no parabolic refinement
// is applied to the accepted dip.
type YinEstimator struct {
	WindowSize int     // integration window W; 0 uses the whole block
	Threshold  float64 // absolute threshold on the normalised difference
	MinFreq    float64 // lowest frequency searched; maxTau = min(⌊sr/MinFreq⌋, len(block))
}

// NewYinEstimator creates a YIN estimator with threshold 0.1 and a 50 Hz floor
func NewYinEstimator() *YinEstimator {
	return NewYinEstimatorWithParams(0, DefaultYinThreshold, DefaultYinMinFreq)
}

// NewYinEstimatorWithParams creates a YIN estimator with custom parameters
func NewYinEstimatorWithParams(windowSize int, threshold, minFreq float64) *YinEstimator {
	return &YinEstimator{
		WindowSize: windowSize,
		Threshold:  threshold,
		MinFreq:    minFreq,
	}
}

// Validate checks the estimator parameters
func (y *YinEstimator) Validate() error {
	if !(y.Threshold > 0) || math.IsInf(y.Threshold, 0) {
		return fmt.Errorf("%w: YIN threshold %v", ErrInvalidParameter, y.Threshold)
	}
	if !(y.MinFreq > 0) || math.IsInf(y.MinFreq, 0) {
		return fmt.Errorf("%w: YIN min frequency %v", ErrInvalidFrequencyRange, y.MinFreq)
	}
	if y.WindowSize < 0 {
		return fmt.Errorf("%w: window size %d", ErrInvalidParameter, y.WindowSize)
	}
	return nil
}

// Estimate returns the pitch of signal in Hz, or 0 when no dip clears the threshold
func (y *YinEstimator) Estimate(signal []float64, sampleRate int) (float64, error) {
	if err := y.Validate(); err != nil {
		return 0, err
	}
	if sampleRate <= 0 {
		return 0, fmt.Errorf("%w: %d", ErrInvalidSampleRate, sampleRate)
	}

	frame, err := frameBlock(signal, y.WindowSize)
	if err != nil {
		return 0, err
	}

	// Lags past the end of the block only compare the window with the zero
	// extension, so the search stops there
	maxTau := int(min(float64(sampleRate)/y.MinFreq, float64(len(signal))))
	d := DifferenceFunction(signal, len(frame), maxTau)
	cmndf := CumulativeMeanNormalizedDifference(d)

	tau := AbsoluteThreshold(cmndf, y.Threshold)
	if tau == 0 {
		return 0, nil
	}

	return finitePitch(float64(sampleRate) / float64(tau)), nil
}

// DifferenceFunction computes d(τ) = Σ_{i<W} (x[i] - x̃[i+τ])² for τ in
// [0, maxTau), where x̃ is x extended with zeros past its end. d(0) is 0.
// The whole block x is compared, so samples beyond the window still take
// part in the shifted term.
func DifferenceFunction(x []float64, windowSize, maxTau int) []float64 {
	if maxTau <= 0 {
		return []float64{}
	}

	d := make([]float64, maxTau)
	if windowSize > len(x) {
		windowSize = len(x)
	}
	if windowSize <= 0 {
		return d
	}

	diff := make([]float64, windowSize)
	for tau := 1; tau < maxTau; tau++ {
		// Indices i with i+tau inside x pair with real samples
		overlap := max(min(windowSize, len(x)-tau), 0)
		sum := 0.0
		if overlap > 0 {
			floats.SubTo(diff[:overlap], x[:overlap], x[tau:tau+overlap])
			sum = floats.Dot(diff[:overlap], diff[:overlap])
		}

		// The rest pair with the zero extension
		tail := x[overlap:windowSize]
		sum += floats.Dot(tail, tail)

		d[tau] = sum
	}

	return d
}

// CumulativeMeanNormalizedDifference computes d'(0) = 1 and
// d'(τ) = d(τ)·τ / Σ_{j=1..τ} d(j). A zero cumulative sum yields 1, so a
// silent block never falls below any threshold.
func CumulativeMeanNormalizedDifference(d []float64) []float64 {
	cmndf := make([]float64, len(d))
	if len(d) == 0 {
		return cmndf
	}

	cmndf[0] = 1
	runningSum := 0.0
	for tau := 1; tau < len(d); tau++ {
		runningSum += d[tau]
		if runningSum == 0 {
			cmndf[tau] = 1
			continue
		}

		v := d[tau] * float64(tau) / runningSum
		if math.IsNaN(v) || math.IsInf(v, 0) {
			v = 1
		}
		cmndf[tau] = v
	}

	return cmndf
}

// yinSearchState tracks the absolute threshold scan
type yinSearchState int

const (
	seekingDip yinSearchState = iota
	descendingDip
	dipAccepted
)

// AbsoluteThreshold scans cmndf from τ = 2 for the first value below
// threshold, then follows the dip down while the next value is strictly
// smaller. It returns the lag at the bottom of that dip, or 0 if the curve
// never drops below threshold.
func AbsoluteThreshold(cmndf []float64, threshold float64) int {
	state := seekingDip
	tau := 2

	for state != dipAccepted {
		switch state {
		case seekingDip:
			if tau >= len(cmndf) {
				return 0
			}
			if cmndf[tau] < threshold {
				state = descendingDip
				continue
			}
			tau++

		case descendingDip:
			if tau+1 < len(cmndf) && cmndf[tau+1] < cmndf[tau] {
				tau++
				continue
			}
			state = dipAccepted
		}
	}

	return tau
}
