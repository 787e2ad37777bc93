package tonal

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/RyanBlaney/sonido-tuner/algorithms/common"
	"github.com/RyanBlaney/sonido-tuner/algorithms/spectral"
	"github.com/RyanBlaney/sonido-tuner/algorithms/stats"
)

// DefaultMPMThreshold is the default key-maximum sensitivity k
const DefaultMPMThreshold = 0.9

// KeyMaximum is the highest point of one positive lobe of the NSDF
type KeyMaximum struct {
	Lag   int     `json:"lag"`
	Value float64 `json:"value"`
}

// MPMEstimator implements the McLeod Pitch Method on the Normalized Square
// Difference Function.
//
// Reference: McLeod, P., Wyvill, G. (2005). "A smarter way to find pitch"
type MPMEstimator struct {
	WindowSize int     // analysis window W; 0 uses the whole block
	Threshold  float64 // sensitivity k in (0, 1]

	autocorr *stats.AutoCorrelation
}

// NewMPMEstimator creates an MPM estimator with k = 0.9 on the go-dsp FFT
func NewMPMEstimator() *MPMEstimator {
	return NewMPMEstimatorWithParams(0, DefaultMPMThreshold, spectral.BackendGoDSP)
}

// NewMPMEstimatorWithParams creates an MPM estimator with a custom window,
// sensitivity and FFT backend
func NewMPMEstimatorWithParams(windowSize int, threshold float64, backend spectral.Backend) *MPMEstimator {
	return &MPMEstimator{
		WindowSize: windowSize,
		Threshold:  threshold,
		autocorr:   stats.NewAutoCorrelationWithParams(stats.FrequencyDomain, backend),
	}
}

// Validate checks the estimator parameters
func (m *MPMEstimator) Validate() error {
	if !(m.Threshold > 0) || m.Threshold > 1 {
		return fmt.Errorf("%w: MPM threshold %v outside (0, 1]", ErrInvalidParameter, m.Threshold)
	}
	if m.WindowSize < 0 {
		return fmt.Errorf("%w: window size %d", ErrInvalidParameter, m.WindowSize)
	}
	return nil
}

// Estimate returns the pitch of signal in Hz, or 0 when no key maximum
// reaches k times the global NSDF maximum
func (m *MPMEstimator) Estimate(signal []float64, sampleRate int) (float64, error) {
	if err := m.Validate(); err != nil {
		return 0, err
	}
	if sampleRate <= 0 {
		return 0, fmt.Errorf("%w: %d", ErrInvalidSampleRate, sampleRate)
	}

	window, err := frameBlock(signal, m.WindowSize)
	if err != nil {
		return 0, err
	}

	ac := m.autocorr
	if ac == nil {
		ac = stats.NewAutoCorrelation()
	}

	nsdf, err := NSDF(window, ac)
	if err != nil {
		return 0, err
	}

	lag := PickPeriod(nsdf, m.Threshold)
	if lag <= 0 {
		return 0, nil
	}

	return finitePitch(float64(sampleRate) / lag), nil
}

// NSDF computes nsdf(τ) = 2·r(τ)/m(τ) for τ in [0, W/2), where r is the
// FFT autocorrelation of the window and
// m(τ) = Σ_{i<W-τ} x[i]² + Σ_{i=τ}^{W-1} x[i]².
// Lags with m(τ) = 0 are reported as 0.
func NSDF(window []float64, ac *stats.AutoCorrelation) ([]float64, error) {
	r, err := ac.ComputeFFT(window)
	if err != nil {
		return nil, err
	}

	w := len(window)
	energy := common.CumulativeEnergy(window)
	total := energy[w]

	nsdf := make([]float64, len(r))
	for tau := range r {
		norm := energy[w-tau] + total - energy[tau]
		if norm == 0 {
			continue
		}

		v := 2 * r[tau] / norm
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		nsdf[tau] = v
	}

	return nsdf, nil
}

// keyMaxState tracks the positive-lobe scan over the NSDF
type keyMaxState int

const (
	seekingCrossing keyMaxState = iota
	trackingCandidate
)

// KeyMaxima returns the highest point of every positive lobe of nsdf, in
// ascending lag order. A lobe opens where the curve crosses from negative to
// non-negative and closes where it next goes negative; a lobe still open at
// the end of the curve is dropped. The lobe around lag 0 is never reported.
func KeyMaxima(nsdf []float64) []KeyMaximum {
	var maxima []KeyMaximum

	state := seekingCrossing
	var candidate KeyMaximum

	for i := 1; i < len(nsdf)-1; i++ {
		switch state {
		case seekingCrossing:
			if nsdf[i-1] < 0 && nsdf[i] >= 0 {
				candidate = KeyMaximum{Lag: i, Value: nsdf[i]}
				state = trackingCandidate
			}

		case trackingCandidate:
			if nsdf[i] > candidate.Value {
				candidate = KeyMaximum{Lag: i, Value: nsdf[i]}
			} else if nsdf[i] < 0 {
				maxima = append(maxima, candidate)
				state = seekingCrossing
			}
		}
	}

	return maxima
}

// PickPeriod selects the first key maximum whose value is at least k times
// the largest NSDF value past lag 0 and refines its lag with a parabola
// through its neighbours. It returns 0 when no key maximum qualifies.
func PickPeriod(nsdf []float64, k float64) float64 {
	if len(nsdf) < 3 {
		return 0
	}

	nmax := floats.Max(nsdf[1:])
	for _, km := range KeyMaxima(nsdf) {
		if km.Value < k*nmax {
			continue
		}

		return common.ParabolicPeak(nsdf, km.Lag)
	}

	return 0
}
