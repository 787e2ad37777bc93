package common

// ParabolicOffset returns the abscissa of the vertex of the parabola through
// (-1, alpha), (0, beta) and (1, gamma), relative to the middle point:
//
//	p = 0.5 * (alpha - gamma) / (alpha - 2*beta + gamma)
//
// For a local maximum (beta >= alpha, beta >= gamma, not all equal) the offset
// lies in [-0.5, 0.5]; the result is clamped to that cell so rounding on a
// shoulder cannot push it out. A flat triple has no vertex and yields 0.
func ParabolicOffset(alpha, beta, gamma float64) float64 {
	denominator := alpha - 2*beta + gamma
	if denominator == 0 {
		return 0
	}

	p := 0.5 * (alpha - gamma) / denominator
	if !IsFinite(p) {
		return 0
	}
	return Clamp(p, -0.5, 0.5)
}

// ParabolicPeak refines the integer peak position idx of data to sub-sample
// precision using its two neighbours. Positions 0 and 1 and the last position
// are returned unchanged, so lag 0 of a lag curve never acts as a neighbour.
func ParabolicPeak(data []float64, idx int) float64 {
	if idx <= 1 || idx >= len(data)-1 {
		return float64(idx)
	}

	return float64(idx) + ParabolicOffset(data[idx-1], data[idx], data[idx+1])
}
