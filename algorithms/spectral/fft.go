package spectral

import (
	"errors"
	"fmt"

	algofft "github.com/MeKo-Christian/algo-fft"
	"github.com/mjibson/go-dsp/fft"

	"github.com/RyanBlaney/sonido-tuner/algorithms/common"
)

// ErrUnsupportedSize is returned when a backend cannot transform the given length.
var ErrUnsupportedSize = errors.New("unsupported transform size")

// Backend selects the FFT implementation behind an FFT value
type Backend int

const (
	// BackendGoDSP uses mjibson/go-dsp, which accepts any length
	BackendGoDSP Backend = iota

	// BackendPlanned uses an algo-fft plan; lengths must be powers of two
	BackendPlanned
)

func (b Backend) String() string {
	switch b {
	case BackendGoDSP:
		return "go-dsp"
	case BackendPlanned:
		return "algo-fft"
	default:
		return "unknown"
	}
}

// FFT provides forward and inverse Fast Fourier Transforms.
// It carries no mutable state and is safe for concurrent use.
type FFT struct {
	backend Backend
}

// NewFFT creates a new FFT calculator using the go-dsp backend
func NewFFT() *FFT {
	return &FFT{backend: BackendGoDSP}
}

// NewFFTWithBackend creates an FFT calculator using the given backend
func NewFFTWithBackend(backend Backend) *FFT {
	return &FFT{backend: backend}
}

// Backend returns the selected backend
func (f *FFT) Backend() Backend {
	return f.backend
}

// Size returns the transform length the backend uses for an input that must
// hold at least n samples. Zero-padding up to this length never changes a
// linear correlation computed from the first n lags.
func (f *FFT) Size(n int) int {
	if f.backend == BackendPlanned {
		return common.NextPowerOfTwo(n)
	}
	return n
}

// Compute computes the forward transform of a real signal
func (f *FFT) Compute(x []float64) ([]complex128, error) {
	if len(x) == 0 {
		return []complex128{}, nil
	}

	switch f.backend {
	case BackendGoDSP:
		// mjibson/go-dsp handles all sizes, including non-power-of-2
		return fft.FFTReal(x), nil
	case BackendPlanned:
		in := make([]complex128, len(x))
		for i, v := range x {
			in[i] = complex(v, 0)
		}
		return f.planned(in, false)
	default:
		return nil, fmt.Errorf("unknown FFT backend %d", f.backend)
	}
}

// ComputeInverse computes the normalised inverse transform
func (f *FFT) ComputeInverse(x []complex128) ([]complex128, error) {
	if len(x) == 0 {
		return []complex128{}, nil
	}

	switch f.backend {
	case BackendGoDSP:
		return fft.IFFT(x), nil
	case BackendPlanned:
		return f.planned(x, true)
	default:
		return nil, fmt.Errorf("unknown FFT backend %d", f.backend)
	}
}

// ComputeInverseReal computes the inverse transform and returns the real part only
func (f *FFT) ComputeInverseReal(x []complex128) ([]float64, error) {
	result, err := f.ComputeInverse(x)
	if err != nil {
		return nil, err
	}

	realResult := make([]float64, len(result))
	for i, val := range result {
		realResult[i] = real(val)
	}

	return realResult, nil
}

// planned runs a one-shot algo-fft plan. Plans are built per call so the
// FFT value stays free of shared scratch buffers.
func (f *FFT) planned(x []complex128, inverse bool) ([]complex128, error) {
	n := len(x)
	if !common.IsPowerOfTwo(n) {
		return nil, fmt.Errorf("%w: %s needs a power of two, got %d", ErrUnsupportedSize, f.backend, n)
	}

	plan, err := algofft.NewPlan64(n)
	if err != nil {
		return nil, fmt.Errorf("failed to create FFT plan: %w", err)
	}

	out := make([]complex128, n)
	if inverse {
		err = plan.Inverse(out, x)
	} else {
		err = plan.Forward(out, x)
	}
	if err != nil {
		return nil, fmt.Errorf("FFT of size %d failed: %w", n, err)
	}

	return out, nil
}
