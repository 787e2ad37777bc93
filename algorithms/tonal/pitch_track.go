package tonal

import (
	"math"
	"slices"

	"gonum.org/v1/gonum/stat"
)

// PitchTrackSummary describes how steady a sequence of estimates is, such as
// the windows of one held note returned by AnalyzeSignal
type PitchTrackSummary struct {
	Frames        int `json:"frames"`
	PitchedFrames int `json:"pitched_frames"` // frames with a non-zero estimate

	MeanPitch   float64 `json:"mean_pitch"`
	MedianPitch float64 `json:"median_pitch"`
	StdDev      float64 `json:"pitch_std_dev"`

	// Mean absolute change between consecutive pitched frames (Hz)
	Jitter float64 `json:"jitter"`

	// 1 / (1 + coefficient of variation); 1 is perfectly steady
	Stability float64 `json:"stability"`

	// Approximate pitch modulation rate (Hz), 0 when the track is too short
	VibratoRate float64 `json:"vibrato_rate"`
}

// minVibratoFrames is the shortest pitched track a modulation rate is estimated from
const minVibratoFrames = 10

// SummarizePitchTrack computes statistics over the pitched frames of a track.
// Frames without a pitch are counted but excluded from the statistics. The
// frame rate for the vibrato estimate is taken from the first two offsets.
func SummarizePitchTrack(results []*PitchDetectionResult) PitchTrackSummary {
	summary := PitchTrackSummary{Frames: len(results)}

	pitches := make([]float64, 0, len(results))
	frames := make([]int, 0, len(results))
	for i, r := range results {
		if r.HasPitch() {
			pitches = append(pitches, r.Pitch)
			frames = append(frames, i)
		}
	}
	summary.PitchedFrames = len(pitches)

	if len(pitches) < 2 {
		if len(pitches) == 1 {
			summary.MeanPitch = pitches[0]
			summary.MedianPitch = pitches[0]
			summary.Stability = 1
		}
		return summary
	}

	summary.MeanPitch, summary.StdDev = stat.MeanStdDev(pitches, nil)

	sorted := slices.Clone(pitches)
	slices.Sort(sorted)
	summary.MedianPitch = stat.Quantile(0.5, stat.Empirical, sorted, nil)

	jitter := 0.0
	for i := 1; i < len(pitches); i++ {
		jitter += math.Abs(pitches[i] - pitches[i-1])
	}
	summary.Jitter = jitter / float64(len(pitches)-1)
	summary.Stability = 1.0 / (1.0 + summary.StdDev/summary.MeanPitch)

	if frameRate := trackFrameRate(results); frameRate > 0 {
		summary.VibratoRate = vibratoRate(frames, pitches, frameRate)
	}

	return summary
}

// trackFrameRate returns windows per second from the spacing of the first two offsets
func trackFrameRate(results []*PitchDetectionResult) float64 {
	if len(results) < 2 || results[0] == nil || results[1] == nil || results[0].SampleRate <= 0 {
		return 0
	}

	hop := results[1].Offset - results[0].Offset
	if hop <= 0 {
		return 0
	}
	return float64(results[0].SampleRate) / float64(hop)
}

// vibratoRate counts zero crossings of the linearly detrended pitch track.
// frames holds the track index of each pitched estimate, so gaps of
// unpitched windows keep their place on the time axis.
func vibratoRate(frames []int, pitches []float64, frameRate float64) float64 {
	if len(pitches) < minVibratoFrames {
		return 0
	}

	times := make([]float64, len(frames))
	for i, f := range frames {
		times[i] = float64(f) / frameRate
	}
	intercept, slope := stat.LinearRegression(times, pitches, nil, false)

	crossings := 0
	prev := pitches[0] - (intercept + slope*times[0])
	for i := 1; i < len(pitches); i++ {
		cur := pitches[i] - (intercept + slope*times[i])
		if (cur > 0) != (prev > 0) {
			crossings++
		}
		prev = cur
	}

	// Two crossings per modulation cycle; the span covers first to last
	// pitched window inclusive
	duration := times[len(times)-1] - times[0] + 1.0/frameRate
	return float64(crossings) / (2.0 * duration)
}
