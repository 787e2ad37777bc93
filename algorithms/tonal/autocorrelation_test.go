package tonal

import (
	"errors"
	"testing"

	"github.com/RyanBlaney/sonido-tuner/internal/testutil"
)

func TestAutocorrelationEstimatorSines(t *testing.T) {
	e := NewAutocorrelationEstimator()

	for _, freq := range []float64{100, 150, 220, 300} {
		signal := testutil.DeterministicSine(freq, 44100, 0.8, 8192)

		got, err := e.Estimate(signal, 44100)
		if err != nil {
			t.Fatalf("%v Hz: %v", freq, err)
		}
		testutil.RequireWithinRelative(t, got, freq, 0.02)
	}
}

func TestAutocorrelationEstimatorIntegerLag(t *testing.T) {
	// 220 Hz has a period of 200.45 samples; the estimate snaps to lag 200
	signal := testutil.DeterministicSine(220, 44100, 0.8, 8192)

	got, err := NewAutocorrelationEstimator().Estimate(signal, 44100)
	if err != nil {
		t.Fatalf("Estimate: %v", err)
	}
	if got != 44100.0/200 {
		t.Errorf("pitch = %v, want %v", got, 44100.0/200)
	}
}

func TestAutocorrelationEstimatorSilence(t *testing.T) {
	got, err := NewAutocorrelationEstimator().Estimate(testutil.Silence(4410), 44100)
	if err != nil {
		t.Fatalf("Estimate: %v", err)
	}
	if got != 0 {
		t.Errorf("silent block pitch = %v, want 0", got)
	}
}

func TestAutocorrelationLagRange(t *testing.T) {
	e := NewAutocorrelationEstimator()

	minLag, maxLag, err := e.LagRange(44100, 8192)
	if err != nil {
		t.Fatalf("LagRange: %v", err)
	}
	if minLag != 126 || maxLag != 630 {
		t.Errorf("range = [%d, %d], want [126, 630]", minLag, maxLag)
	}

	// Upper bound clamps to the block
	minLag, maxLag, err = e.LagRange(44100, 300)
	if err != nil {
		t.Fatalf("LagRange: %v", err)
	}
	if minLag != 126 || maxLag != 299 {
		t.Errorf("clamped range = [%d, %d], want [126, 299]", minLag, maxLag)
	}
}

func TestAutocorrelationEstimatorErrors(t *testing.T) {
	tests := []struct {
		name       string
		minFreq    float64
		maxFreq    float64
		length     int
		sampleRate int
		want       error
	}{
		{"inverted bounds", 400, 300, 4410, 44100, ErrInvalidFrequencyRange},
		{"zero min", 0, 300, 4410, 44100, ErrInvalidFrequencyRange},
		{"empty lag range", 348, 349, 4410, 44100, ErrInvalidFrequencyRange},
		{"block shorter than min lag", 70, 350, 100, 44100, ErrInsufficientSamples},
		{"empty block", 70, 350, 0, 44100, ErrInsufficientSamples},
		{"bad sample rate", 70, 350, 4410, 0, ErrInvalidSampleRate},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := NewAutocorrelationEstimatorWithParams(tt.minFreq, tt.maxFreq, 0)
			signal := testutil.DeterministicSine(200, 44100, 1, tt.length)

			_, err := e.Estimate(signal, tt.sampleRate)
			if !errors.Is(err, tt.want) {
				t.Fatalf("error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestAutocorrelationEstimatorZeroValue(t *testing.T) {
	// A struct literal without the constructor still works
	e := &AutocorrelationEstimator{MinFreq: 70, MaxFreq: 350}
	signal := testutil.DeterministicSine(150, 44100, 0.8, 4410)

	got, err := e.Estimate(signal, 44100)
	if err != nil {
		t.Fatalf("Estimate: %v", err)
	}
	testutil.RequireWithinRelative(t, got, 150, 0.02)
}
