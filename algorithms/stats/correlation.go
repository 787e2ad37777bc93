package stats

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/floats"

	"github.com/RyanBlaney/sonido-tuner/algorithms/spectral"
)

// ErrEmptySignal is returned when a correlation is requested for an empty signal.
var ErrEmptySignal = errors.New("empty signal provided")

// CorrelationMethod represents different computational approaches
type CorrelationMethod int

const (
	// Direct time-domain calculation
	TimeDomain CorrelationMethod = iota

	// FFT-based frequency domain (faster for large signals)
	FrequencyDomain
)

func (m CorrelationMethod) String() string {
	switch m {
	case TimeDomain:
		return "time_domain"
	case FrequencyDomain:
		return "frequency_domain"
	default:
		return "unknown"
	}
}

// FullAutoCorrelation computes the full linear autocorrelation of x,
// r(τ) = Σ x[i]·x[i+τ], for lags -(N-1)..N-1. Index k holds lag k-(N-1), so
// the result has length 2N-1 and is symmetric about its centre.
func FullAutoCorrelation(x []float64) ([]float64, error) {
	half, err := DirectAutoCorrelation(x)
	if err != nil {
		return nil, err
	}

	n := len(x)
	full := make([]float64, 2*n-1)
	for tau, v := range half {
		full[n-1+tau] = v
		full[n-1-tau] = v
	}

	return full, nil
}

// DirectAutoCorrelation returns the non-negative lags 0..N-1 of the full
// autocorrelation, computed directly in the time domain.
func DirectAutoCorrelation(x []float64) ([]float64, error) {
	if len(x) == 0 {
		return nil, ErrEmptySignal
	}
	return directLags(x, len(x)), nil
}

// directLags evaluates r(τ) for τ in [0, maxLag) with one dot product per lag
func directLags(x []float64, maxLag int) []float64 {
	n := len(x)
	r := make([]float64, maxLag)
	for tau := 0; tau < maxLag; tau++ {
		r[tau] = floats.Dot(x[:n-tau], x[tau:])
	}
	return r
}

// AutoCorrelation computes the non-negative lags of a signal's linear
// autocorrelation, either directly or through the Wiener-Khinchin route
// (forward FFT, power spectrum, inverse FFT).
//
// References:
// - Rabiner, L. (1977). "On the use of autocorrelation analysis for pitch detection"
// - McLeod, P., Wyvill, G. (2005). "A smarter way to find pitch"
//
// The zero padding applied before the transform is always at least maxLag
// samples, so circular wrap-around never reaches the returned lags.
type AutoCorrelation struct {
	method CorrelationMethod
	fft    *spectral.FFT
	power  *spectral.PowerSpectrum
}

// NewAutoCorrelation creates an FFT-based auto-correlation calculator using
// the default go-dsp backend
func NewAutoCorrelation() *AutoCorrelation {
	return NewAutoCorrelationWithParams(FrequencyDomain, spectral.BackendGoDSP)
}

// NewAutoCorrelationWithParams creates an auto-correlation calculator with a
// specific method and FFT backend. The backend is ignored for TimeDomain.
func NewAutoCorrelationWithParams(method CorrelationMethod, backend spectral.Backend) *AutoCorrelation {
	return &AutoCorrelation{
		method: method,
		fft:    spectral.NewFFTWithBackend(backend),
		power:  spectral.NewPowerSpectrum(),
	}
}

// Method returns the computational approach in use
func (ac *AutoCorrelation) Method() CorrelationMethod {
	return ac.method
}

// Compute returns r(τ) for τ in [0, maxLag). A maxLag that is not positive or
// exceeds len(x) is treated as len(x).
func (ac *AutoCorrelation) Compute(x []float64, maxLag int) ([]float64, error) {
	if len(x) == 0 {
		return nil, ErrEmptySignal
	}
	if maxLag <= 0 || maxLag > len(x) {
		maxLag = len(x)
	}

	switch ac.method {
	case TimeDomain:
		return directLags(x, maxLag), nil
	case FrequencyDomain:
		return ac.computeFFT(x, maxLag)
	default:
		return nil, fmt.Errorf("unsupported correlation method: %d", ac.method)
	}
}

// ComputeFFT returns the first W/2 lags of the autocorrelation of a window of
// W samples, using the FFT route regardless of the configured method.
// The window is zero-padded with W/2 samples before the transform.
func (ac *AutoCorrelation) ComputeFFT(window []float64) ([]float64, error) {
	if len(window) == 0 {
		return nil, ErrEmptySignal
	}

	half := len(window) / 2
	if half == 0 {
		return []float64{}, nil
	}

	return ac.computeFFT(window, half)
}

func (ac *AutoCorrelation) computeFFT(x []float64, maxLag int) ([]float64, error) {
	size := ac.fft.Size(len(x) + maxLag)

	padded := make([]float64, size)
	copy(padded, x)

	spectrum, err := ac.fft.Compute(padded)
	if err != nil {
		return nil, fmt.Errorf("forward transform failed: %w", err)
	}

	timeDomain, err := ac.fft.ComputeInverseReal(ac.power.ComputeComplex(spectrum))
	if err != nil {
		return nil, fmt.Errorf("inverse transform failed: %w", err)
	}

	r := make([]float64, maxLag)
	copy(r, timeDomain[:maxLag])
	return r, nil
}
