package stats

import (
	"errors"
	"math"
	"testing"

	"github.com/RyanBlaney/sonido-tuner/algorithms/spectral"
	"github.com/RyanBlaney/sonido-tuner/internal/testutil"
)

func TestFullAutoCorrelation(t *testing.T) {
	got, err := FullAutoCorrelation([]float64{1, 2, 3})
	if err != nil {
		t.Fatalf("FullAutoCorrelation: %v", err)
	}

	// numpy.correlate([1,2,3], [1,2,3], "full")
	want := []float64{3, 8, 14, 8, 3}
	if len(got) != len(want) {
		t.Fatalf("len = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("full[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestDirectAutoCorrelation(t *testing.T) {
	got, err := DirectAutoCorrelation([]float64{1, 2, 3})
	if err != nil {
		t.Fatalf("DirectAutoCorrelation: %v", err)
	}
	want := []float64{14, 8, 3}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("r[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestAutoCorrelationEmptySignal(t *testing.T) {
	if _, err := FullAutoCorrelation(nil); !errors.Is(err, ErrEmptySignal) {
		t.Errorf("FullAutoCorrelation(nil) error = %v", err)
	}
	if _, err := NewAutoCorrelation().Compute(nil, 4); !errors.Is(err, ErrEmptySignal) {
		t.Errorf("Compute(nil) error = %v", err)
	}
	if _, err := NewAutoCorrelation().ComputeFFT(nil); !errors.Is(err, ErrEmptySignal) {
		t.Errorf("ComputeFFT(nil) error = %v", err)
	}
}

func TestFFTMatchesDirect(t *testing.T) {
	tests := []struct {
		name    string
		backend spectral.Backend
		size    int
	}{
		{"go-dsp power of two", spectral.BackendGoDSP, 1024},
		{"go-dsp odd length", spectral.BackendGoDSP, 1001},
		{"planned power of two", spectral.BackendPlanned, 1024},
		{"planned odd length", spectral.BackendPlanned, 1001},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			x := testutil.DeterministicNoise(7, 1, tt.size)

			direct, err := DirectAutoCorrelation(x)
			if err != nil {
				t.Fatalf("DirectAutoCorrelation: %v", err)
			}

			fftLags, err := NewAutoCorrelationWithParams(FrequencyDomain, tt.backend).ComputeFFT(x)
			if err != nil {
				t.Fatalf("ComputeFFT: %v", err)
			}

			if len(fftLags) != tt.size/2 {
				t.Fatalf("len = %d, want %d", len(fftLags), tt.size/2)
			}
			scale := direct[0]
			for tau := range fftLags {
				if math.Abs(fftLags[tau]-direct[tau]) > 1e-9*scale {
					t.Fatalf("lag %d: fft %v, direct %v", tau, fftLags[tau], direct[tau])
				}
			}
		})
	}
}

func TestComputeMethodsAgree(t *testing.T) {
	x := testutil.DeterministicSine(220, 44100, 0.8, 2048)

	timeDomain, err := NewAutoCorrelationWithParams(TimeDomain, spectral.BackendGoDSP).Compute(x, 300)
	if err != nil {
		t.Fatalf("time domain: %v", err)
	}
	freqDomain, err := NewAutoCorrelation().Compute(x, 300)
	if err != nil {
		t.Fatalf("frequency domain: %v", err)
	}

	if len(timeDomain) != 300 || len(freqDomain) != 300 {
		t.Fatalf("lengths %d/%d, want 300", len(timeDomain), len(freqDomain))
	}
	testutil.RequireFinite(t, freqDomain)
	for tau := range timeDomain {
		if math.Abs(timeDomain[tau]-freqDomain[tau]) > 1e-8 {
			t.Fatalf("lag %d: %v vs %v", tau, timeDomain[tau], freqDomain[tau])
		}
	}
}

func TestComputeMaxLagClamp(t *testing.T) {
	x := []float64{1, 0, -1, 0}
	for _, maxLag := range []int{0, -3, 10} {
		r, err := NewAutoCorrelation().Compute(x, maxLag)
		if err != nil {
			t.Fatalf("maxLag %d: %v", maxLag, err)
		}
		if len(r) != len(x) {
			t.Errorf("maxLag %d: len = %d, want %d", maxLag, len(r), len(x))
		}
	}
}

func TestComputeFFTTinyWindow(t *testing.T) {
	r, err := NewAutoCorrelation().ComputeFFT([]float64{1})
	if err != nil {
		t.Fatalf("ComputeFFT: %v", err)
	}
	if len(r) != 0 {
		t.Errorf("single-sample window should give no lags, got %v", r)
	}
}

func TestComputeDoesNotMutateInput(t *testing.T) {
	x := testutil.DeterministicSine(100, 8000, 1, 256)
	orig := append([]float64(nil), x...)

	if _, err := NewAutoCorrelation().ComputeFFT(x); err != nil {
		t.Fatalf("ComputeFFT: %v", err)
	}
	for i := range x {
		if x[i] != orig[i] {
			t.Fatalf("input modified at %d", i)
		}
	}
}
