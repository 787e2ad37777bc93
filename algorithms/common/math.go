package common

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// Basic numeric helpers shared by the estimators, backed by gonum

// Energy returns the sum of squared samples
func Energy(data []float64) float64 {
	if len(data) == 0 {
		return 0.0
	}
	return floats.Dot(data, data)
}

// RMS calculates root mean square
func RMS(data []float64) float64 {
	if len(data) == 0 {
		return 0.0
	}
	return math.Sqrt(Energy(data) / float64(len(data)))
}

// PeakAmplitude returns the largest absolute sample value
func PeakAmplitude(data []float64) float64 {
	if len(data) == 0 {
		return 0.0
	}
	return math.Max(math.Abs(floats.Max(data)), math.Abs(floats.Min(data)))
}

// NormalizePeak returns a copy of data scaled so that its peak amplitude is 1.
// A silent block is returned as an all-zero copy.
func NormalizePeak(data []float64) []float64 {
	normalized := make([]float64, len(data))
	copy(normalized, data)

	peak := PeakAmplitude(data)
	if peak == 0 || math.IsNaN(peak) || math.IsInf(peak, 0) {
		return normalized
	}

	floats.Scale(1/peak, normalized)
	return normalized
}

// ArgMax returns the index of the first maximum value, or -1 for empty data
func ArgMax(data []float64) int {
	if len(data) == 0 {
		return -1
	}
	return floats.MaxIdx(data)
}

// CumulativeEnergy returns prefix sums of squared samples: out[k] is the
// energy of data[:k], so len(out) == len(data)+1.
func CumulativeEnergy(data []float64) []float64 {
	out := make([]float64, len(data)+1)
	if len(data) == 0 {
		return out
	}

	squares := make([]float64, len(data))
	floats.MulTo(squares, data, data)
	floats.CumSum(out[1:], squares)
	return out
}

// IsFinite reports whether v is neither NaN nor infinite
func IsFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// Clamp constrains a value to a range
func Clamp(value, min, max float64) float64 {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}

// IsPowerOfTwo checks if n is a power of 2
func IsPowerOfTwo(n int) bool {
	return n > 0 && (n&(n-1)) == 0
}

// NextPowerOfTwo finds the next power of 2 >= n
func NextPowerOfTwo(n int) int {
	if n <= 0 {
		return 1
	}

	power := 1
	for power < n {
		power <<= 1
	}
	return power
}
