package spectral

import (
	vecmath "github.com/cwbudde/algo-vecmath"
)

// PowerSpectrum computes |X[k]|^2 = X[k]·conj(X[k]) for complex spectra
type PowerSpectrum struct {
	// No state needed - stateless calculation
}

// NewPowerSpectrum creates a new power spectrum calculator
func NewPowerSpectrum() *PowerSpectrum {
	return &PowerSpectrum{}
}

// Compute returns the power of every bin of spectrum
func (ps *PowerSpectrum) Compute(spectrum []complex128) []float64 {
	if len(spectrum) == 0 {
		return []float64{}
	}

	re := make([]float64, len(spectrum))
	im := make([]float64, len(spectrum))
	for i, c := range spectrum {
		re[i] = real(c)
		im[i] = imag(c)
	}

	power := make([]float64, len(spectrum))
	vecmath.Power(power, re, im)

	return power
}

// ComputeComplex returns the power spectrum as a real-valued complex slice,
// ready to be fed back into an inverse transform.
func (ps *PowerSpectrum) ComputeComplex(spectrum []complex128) []complex128 {
	power := ps.Compute(spectrum)

	out := make([]complex128, len(power))
	for i, p := range power {
		out[i] = complex(p, 0)
	}

	return out
}
