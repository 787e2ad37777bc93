package tonal

import (
	"errors"
	"math"
	"testing"

	"github.com/RyanBlaney/sonido-tuner/algorithms/spectral"
	"github.com/RyanBlaney/sonido-tuner/algorithms/stats"
	"github.com/RyanBlaney/sonido-tuner/internal/testutil"
)

func TestNSDFNormalisation(t *testing.T) {
	window := testutil.DeterministicNoise(11, 0.7, 2048)

	nsdf, err := NSDF(window, stats.NewAutoCorrelation())
	if err != nil {
		t.Fatalf("NSDF: %v", err)
	}

	if len(nsdf) != 1024 {
		t.Fatalf("len = %d, want 1024", len(nsdf))
	}
	if math.Abs(nsdf[0]-1) > 1e-12 {
		t.Errorf("nsdf[0] = %v, want 1", nsdf[0])
	}
	testutil.RequireFinite(t, nsdf)
	for tau, v := range nsdf {
		if v < -1-1e-12 || v > 1+1e-12 {
			t.Fatalf("nsdf[%d] = %v outside [-1, 1]", tau, v)
		}
	}
}

func TestNSDFSilence(t *testing.T) {
	nsdf, err := NSDF(testutil.Silence(512), stats.NewAutoCorrelation())
	if err != nil {
		t.Fatalf("NSDF: %v", err)
	}
	for tau, v := range nsdf {
		if v != 0 {
			t.Fatalf("nsdf[%d] = %v, want 0", tau, v)
		}
	}
}

func TestKeyMaxima(t *testing.T) {
	tests := []struct {
		name string
		nsdf []float64
		want []KeyMaximum
	}{
		{
			name: "unclosed trailing lobe dropped",
			nsdf: []float64{1, 0.5, -0.2, 0.3, 0.8, 0.6, -0.1, 0.2, 0.9, 0.95, 0.4},
			want: []KeyMaximum{{Lag: 4, Value: 0.8}},
		},
		{
			name: "crossing onto zero opens a lobe",
			nsdf: []float64{1, -0.5, 0, -0.1, 0.5, -0.2, 0},
			want: []KeyMaximum{{Lag: 2, Value: 0}, {Lag: 4, Value: 0.5}},
		},
		{
			name: "lobe at lag zero ignored",
			nsdf: []float64{1, 0.9, 0.8, 0.7, 0.6},
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := KeyMaxima(tt.nsdf)
			if len(got) != len(tt.want) {
				t.Fatalf("KeyMaxima = %v, want %v", got, tt.want)
			}
			for i := range tt.want {
				if got[i] != tt.want[i] {
					t.Errorf("KeyMaxima[%d] = %v, want %v", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestPickPeriod(t *testing.T) {
	nsdf := []float64{1, 0.5, -0.2, 0.3, 0.8, 0.6, -0.1, 0.2, 0.9, 0.95, 0.4}

	// nmax is 0.95 from the unclosed lobe; 0.8 < 0.9·0.95
	if got := PickPeriod(nsdf, 0.9); got != 0 {
		t.Errorf("PickPeriod(k=0.9) = %v, want 0", got)
	}

	want := 4 + 0.5*(0.3-0.6)/(0.3-1.6+0.6)
	if got := PickPeriod(nsdf, 0.8); math.Abs(got-want) > 1e-12 {
		t.Errorf("PickPeriod(k=0.8) = %v, want %v", got, want)
	}
	if math.Abs(want-4) > 0.5 {
		t.Fatalf("refinement moved more than half a lag: %v", want)
	}
}

func TestMPMEstimatorSines(t *testing.T) {
	for _, backend := range []spectral.Backend{spectral.BackendGoDSP, spectral.BackendPlanned} {
		m := NewMPMEstimatorWithParams(8192, DefaultMPMThreshold, backend)

		for _, freq := range []float64{100, 150, 220, 300} {
			signal := testutil.DeterministicSine(freq, 44100, 0.8, 8192)

			got, err := m.Estimate(signal, 44100)
			if err != nil {
				t.Fatalf("%s %v Hz: %v", backend, freq, err)
			}
			testutil.RequireWithinRelative(t, got, freq, 0.02)
		}
	}
}

func TestMPMEstimator440(t *testing.T) {
	signal := testutil.DeterministicSine(440, 44100, 0.5, 44100)

	got, err := NewMPMEstimatorWithParams(8192, DefaultMPMThreshold, spectral.BackendGoDSP).Estimate(signal, 44100)
	if err != nil {
		t.Fatalf("Estimate: %v", err)
	}
	if got < 435 || got > 445 {
		t.Errorf("pitch = %v, want within [435, 445]", got)
	}
}

func TestMPMEstimatorSilence(t *testing.T) {
	got, err := NewMPMEstimator().Estimate(testutil.Silence(4096), 44100)
	if err != nil {
		t.Fatalf("Estimate: %v", err)
	}
	if got != 0 {
		t.Errorf("silent block pitch = %v, want 0", got)
	}
}

func TestMPMEstimatorShortBlock(t *testing.T) {
	m := NewMPMEstimatorWithParams(8192, DefaultMPMThreshold, spectral.BackendGoDSP)

	_, err := m.Estimate(testutil.DeterministicSine(440, 44100, 1, 8191), 44100)
	if !errors.Is(err, ErrInsufficientSamples) {
		t.Fatalf("error = %v, want ErrInsufficientSamples", err)
	}
}

func TestMPMEstimatorValidate(t *testing.T) {
	for _, k := range []float64{0, -0.5, 1.5, math.NaN()} {
		if err := NewMPMEstimatorWithParams(0, k, spectral.BackendGoDSP).Validate(); !errors.Is(err, ErrInvalidParameter) {
			t.Errorf("k=%v: err = %v, want ErrInvalidParameter", k, err)
		}
	}
}
