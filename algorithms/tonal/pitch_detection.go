package tonal

import (
	"context"
	"errors"
	"fmt"
	"math"
	"runtime"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/RyanBlaney/sonido-tuner/algorithms/common"
	"github.com/RyanBlaney/sonido-tuner/algorithms/filters"
	"github.com/RyanBlaney/sonido-tuner/algorithms/spectral"
	"github.com/RyanBlaney/sonido-tuner/logging"
)

var (
	// ErrInsufficientSamples is returned when a block is shorter than the analysis window
	ErrInsufficientSamples = common.ErrInsufficientSamples

	// ErrInvalidFrequencyRange is returned when frequency bounds yield an empty lag range
	ErrInvalidFrequencyRange = errors.New("invalid frequency range")

	ErrInvalidSampleRate = errors.New("invalid sample rate")
	ErrInvalidParameter  = errors.New("invalid pitch detection parameter")
	ErrUnsupportedMethod = errors.New("unsupported pitch detection method")
)

// PitchDetectionMethod represents different pitch detection algorithms
type PitchDetectionMethod int

const (
	// MethodAutocorrelation picks the strongest lag-bounded autocorrelation peak
	MethodAutocorrelation PitchDetectionMethod = iota

	// MethodYIN uses the cumulative mean normalized difference function
	MethodYIN

	// MethodMPM is the McLeod Pitch Method on the NSDF
	MethodMPM
)

// AllMethods lists every supported method in comparison order
func AllMethods() []PitchDetectionMethod {
	return []PitchDetectionMethod{MethodAutocorrelation, MethodYIN, MethodMPM}
}

func (m PitchDetectionMethod) String() string {
	switch m {
	case MethodAutocorrelation:
		return "autocorrelation"
	case MethodYIN:
		return "yin"
	case MethodMPM:
		return "mpm"
	default:
		return "unknown"
	}
}

// ParsePitchDetectionMethod parses a method name, case-insensitively
func ParsePitchDetectionMethod(name string) (PitchDetectionMethod, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "autocorrelation", "acf":
		return MethodAutocorrelation, nil
	case "yin":
		return MethodYIN, nil
	case "mpm", "nsdf", "mcleod":
		return MethodMPM, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnsupportedMethod, name)
	}
}

// MarshalText implements encoding.TextMarshaler
func (m PitchDetectionMethod) MarshalText() ([]byte, error) {
	if m < MethodAutocorrelation || m > MethodMPM {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedMethod, int(m))
	}
	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (m *PitchDetectionMethod) UnmarshalText(text []byte) error {
	parsed, err := ParsePitchDetectionMethod(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// Estimator is implemented by every pitch estimation algorithm.
// Estimate returns the fundamental frequency in Hz, or 0 when no pitch is
// found. Implementations never retain or modify signal.
type Estimator interface {
	Estimate(signal []float64, sampleRate int) (float64, error)
}

// PitchDetectionResult contains the outcome of one estimation
type PitchDetectionResult struct {
	Pitch  float64 `json:"pitch"`  // Pitch estimate (Hz), 0 when none was found
	Period float64 `json:"period"` // Period in samples, 0 when no pitch

	// Stream position of the analysed window, in samples
	Offset int `json:"offset"`

	// Computational details
	Method      PitchDetectionMethod `json:"method"`
	SampleRate  int                  `json:"sample_rate"`
	WindowSize  int                  `json:"window_size"`
	ProcessTime float64              `json:"process_time"` // Processing time in ms
}

// HasPitch reports whether a pitch was found
func (r *PitchDetectionResult) HasPitch() bool {
	return r != nil && r.Pitch > 0
}

// PitchDetectionParams contains parameters for pitch detection. Zero-valued
// estimator tunables take the package defaults.
type PitchDetectionParams struct {
	Method     PitchDetectionMethod `json:"method"`
	SampleRate int                  `json:"sample_rate"`
	WindowSize int                  `json:"window_size"` // 0 analyses the whole block
	HopSize    int                  `json:"hop_size"`    // AnalyzeSignal hop; 0 uses the window size

	// Autocorrelation search bounds
	MinFreq float64 `json:"min_freq"`
	MaxFreq float64 `json:"max_freq"`

	// YIN parameters
	YinThreshold float64 `json:"yin_threshold"`
	YinMinFreq   float64 `json:"yin_min_freq"`

	// MPM sensitivity k
	MPMThreshold float64 `json:"mpm_threshold"`

	// Use the planned power-of-two FFT for the NSDF instead of go-dsp
	PlannedFFT bool `json:"planned_fft"`

	// High-pass cutoff (Hz) for DC offset removal; 0 disables it
	DCCutoff float64 `json:"dc_cutoff"`

	// Peak-normalise a copy of the block before estimation
	NormalizeInput bool `json:"normalize_input"`

	// Concurrency limit for stream processing; 0 uses GOMAXPROCS
	MaxWorkers int `json:"max_workers"`
}

// DefaultPitchDetectionParams returns MPM parameters with the documented defaults
func DefaultPitchDetectionParams(sampleRate int) PitchDetectionParams {
	return PitchDetectionParams{
		Method:       MethodMPM,
		SampleRate:   sampleRate,
		MinFreq:      DefaultAutocorrMinFreq,
		MaxFreq:      DefaultAutocorrMaxFreq,
		YinThreshold: DefaultYinThreshold,
		YinMinFreq:   DefaultYinMinFreq,
		MPMThreshold: DefaultMPMThreshold,
	}
}

// Validate checks the parameters for the selected method
func (p PitchDetectionParams) Validate() error {
	if p.SampleRate <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidSampleRate, p.SampleRate)
	}
	if p.WindowSize < 0 || p.HopSize < 0 || p.MaxWorkers < 0 {
		return fmt.Errorf("%w: window %d, hop %d, workers %d",
			ErrInvalidParameter, p.WindowSize, p.HopSize, p.MaxWorkers)
	}

	if p.DCCutoff != 0 {
		if _, err := filters.NewDCBlocker(p.SampleRate, p.DCCutoff); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidParameter, err)
		}
	}

	estimator, err := p.newEstimator()
	if err != nil {
		return err
	}
	if v, ok := estimator.(interface{ Validate() error }); ok {
		return v.Validate()
	}
	return nil
}

// withDefaults fills zero-valued estimator tunables with their defaults, so
// a config naming only one method's fields still serves every method
func (p PitchDetectionParams) withDefaults() PitchDetectionParams {
	if p.MinFreq == 0 {
		p.MinFreq = DefaultAutocorrMinFreq
	}
	if p.MaxFreq == 0 {
		p.MaxFreq = DefaultAutocorrMaxFreq
	}
	if p.YinThreshold == 0 {
		p.YinThreshold = DefaultYinThreshold
	}
	if p.YinMinFreq == 0 {
		p.YinMinFreq = DefaultYinMinFreq
	}
	if p.MPMThreshold == 0 {
		p.MPMThreshold = DefaultMPMThreshold
	}
	return p
}

// newEstimator builds the estimator selected by Method
func (p PitchDetectionParams) newEstimator() (Estimator, error) {
	p = p.withDefaults()
	switch p.Method {
	case MethodAutocorrelation:
		return NewAutocorrelationEstimatorWithParams(p.MinFreq, p.MaxFreq, p.WindowSize), nil
	case MethodYIN:
		return NewYinEstimatorWithParams(p.WindowSize, p.YinThreshold, p.YinMinFreq), nil
	case MethodMPM:
		backend := spectral.BackendGoDSP
		if p.PlannedFFT {
			backend = spectral.BackendPlanned
		}
		return NewMPMEstimatorWithParams(p.WindowSize, p.MPMThreshold, backend), nil
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedMethod, int(p.Method))
	}
}

// PitchDetector dispatches blocks to the configured estimator.
//
// References:
// - de Cheveigné, A., Kawahara, H. (2002). "YIN, a fundamental frequency estimator for speech and music"
// - McLeod, P., Wyvill, G. (2005). "A smarter way to find pitch"
// - Rabiner, L.R. (1977). "On the use of autocorrelation analysis for pitch detection"
//
// A PitchDetector holds no per-call state and may be shared between goroutines.
type PitchDetector struct {
	params    PitchDetectionParams
	estimator Estimator
	logger    logging.Logger
}

// NewPitchDetector creates a new pitch detector with default parameters
func NewPitchDetector(sampleRate int) (*PitchDetector, error) {
	return NewPitchDetectorWithParams(DefaultPitchDetectionParams(sampleRate))
}

// NewPitchDetectorWithParams creates a pitch detector with custom parameters
func NewPitchDetectorWithParams(params PitchDetectionParams) (*PitchDetector, error) {
	logger := logging.WithFields(logging.Fields{
		"component": "pitch_detector",
		"method":    params.Method.String(),
	})

	if err := params.Validate(); err != nil {
		logger.Warn("rejected pitch detection parameters", logging.Fields{"error": err.Error()})
		return nil, err
	}

	estimator, err := params.newEstimator()
	if err != nil {
		return nil, err
	}

	return &PitchDetector{
		params:    params,
		estimator: estimator,
		logger:    logger,
	}, nil
}

// SetLogger replaces the detector's logger. Call it before sharing the detector.
func (pd *PitchDetector) SetLogger(logger logging.Logger) {
	if logger == nil {
		logger = &logging.NoOpLogger{}
	}
	pd.logger = logger
}

// GetParameters returns the current parameters
func (pd *PitchDetector) GetParameters() PitchDetectionParams {
	return pd.params
}

// Estimator returns the estimator the detector dispatches to
func (pd *PitchDetector) Estimator() Estimator {
	return pd.estimator
}

// DetectPitch estimates the pitch of one block. The block is never modified.
func (pd *PitchDetector) DetectPitch(signal []float64) (*PitchDetectionResult, error) {
	startTime := time.Now()

	block, err := pd.preprocess(signal)
	if err != nil {
		return nil, err
	}

	pitch, err := pd.estimator.Estimate(block, pd.params.SampleRate)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", pd.params.Method, err)
	}

	result := &PitchDetectionResult{
		Pitch:       pitch,
		Method:      pd.params.Method,
		SampleRate:  pd.params.SampleRate,
		WindowSize:  common.ResolveWindowSize(pd.params.WindowSize, len(signal)),
		ProcessTime: float64(time.Since(startTime).Microseconds()) / 1000.0,
	}
	if pitch > 0 {
		result.Period = float64(pd.params.SampleRate) / pitch
	}

	pd.logger.Debug("pitch estimated", logging.Fields{
		"pitch":        result.Pitch,
		"window_size":  result.WindowSize,
		"process_time": result.ProcessTime,
	})

	return result, nil
}

// ProcessAudioStream estimates a sequence of independent blocks on a bounded
// worker pool. Results keep the order of frames; the first failure cancels
// the remaining work and is reported with its frame index.
func (pd *PitchDetector) ProcessAudioStream(ctx context.Context, frames [][]float64) ([]*PitchDetectionResult, error) {
	results := make([]*PitchDetectionResult, len(frames))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(pd.workers())

	for i, frame := range frames {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			result, err := pd.DetectPitch(frame)
			if err != nil {
				return fmt.Errorf("error processing frame %d: %w", i, err)
			}
			results[i] = result
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		pd.logger.Error(err, "audio stream processing failed", logging.Fields{"frames": len(frames)})
		return nil, err
	}

	return results, nil
}

// AnalyzeSignal cuts a long signal into analysis windows every hopSize
// samples and estimates each one. Trailing samples that do not fill a window
// are ignored. A hopSize of 0 uses the configured hop, then the window size.
func (pd *PitchDetector) AnalyzeSignal(ctx context.Context, signal []float64, hopSize int) ([]*PitchDetectionResult, error) {
	windowSize := pd.params.WindowSize
	if windowSize <= 0 {
		// 100 ms blocks, the cadence of a live tuner
		windowSize = max(pd.params.SampleRate/10, 1)
	}
	if hopSize <= 0 {
		hopSize = pd.params.HopSize
	}
	if hopSize <= 0 {
		hopSize = windowSize
	}

	sw, err := common.NewSlidingWindow(windowSize, hopSize)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidParameter, err)
	}

	frames := sw.AddSamples(signal)
	if len(frames) == 0 {
		return nil, fmt.Errorf("%w: signal of %d samples is shorter than window %d",
			ErrInsufficientSamples, len(signal), windowSize)
	}

	results, err := pd.ProcessAudioStream(ctx, frames)
	if err != nil {
		return nil, err
	}
	for i, r := range results {
		r.Offset = i * hopSize
	}

	return results, nil
}

// ComparePitchMethods runs every method concurrently on the same block,
// sharing all other parameters, and returns the results in AllMethods order.
func (pd *PitchDetector) ComparePitchMethods(ctx context.Context, signal []float64) ([]*PitchDetectionResult, error) {
	methods := AllMethods()
	results := make([]*PitchDetectionResult, len(methods))

	detectors := make([]*PitchDetector, len(methods))
	for i, method := range methods {
		params := pd.params
		params.Method = method

		detector, err := NewPitchDetectorWithParams(params)
		if err != nil {
			return nil, err
		}
		detector.SetLogger(pd.logger.WithFields(logging.Fields{"method": method.String()}))
		detectors[i] = detector
	}

	g, ctx := errgroup.WithContext(ctx)
	for i, detector := range detectors {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			result, err := detector.DetectPitch(signal)
			if err != nil {
				return err
			}
			results[i] = result
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return results, nil
}

// preprocess applies the optional DC removal and peak normalisation to a
// copy of signal. Without either option the block is passed through as is.
func (pd *PitchDetector) preprocess(signal []float64) ([]float64, error) {
	block := signal

	if pd.params.DCCutoff > 0 {
		dc, err := filters.NewDCBlocker(pd.params.SampleRate, pd.params.DCCutoff)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidParameter, err)
		}
		block = dc.ProcessBlock(block)
	}

	if pd.params.NormalizeInput {
		block = common.NormalizePeak(block)
	}

	return block, nil
}

func (pd *PitchDetector) workers() int {
	if pd.params.MaxWorkers > 0 {
		return pd.params.MaxWorkers
	}
	return runtime.GOMAXPROCS(0)
}

// DetectPitch estimates the pitch of signal with method and default parameters
func DetectPitch(method PitchDetectionMethod, signal []float64, sampleRate int) (float64, error) {
	params := DefaultPitchDetectionParams(sampleRate)
	params.Method = method

	detector, err := NewPitchDetectorWithParams(params)
	if err != nil {
		return 0, err
	}

	result, err := detector.DetectPitch(signal)
	if err != nil {
		return 0, err
	}
	return result.Pitch, nil
}

// frameBlock returns the analysis window of signal; windowSize 0 selects the whole block
func frameBlock(signal []float64, windowSize int) ([]float64, error) {
	if len(signal) == 0 {
		return nil, fmt.Errorf("%w: empty block", ErrInsufficientSamples)
	}
	return common.Frame(signal, common.ResolveWindowSize(windowSize, len(signal)))
}

// finitePitch maps any non-finite or negative value to the no-pitch sentinel
func finitePitch(pitch float64) float64 {
	if math.IsNaN(pitch) || math.IsInf(pitch, 0) || pitch < 0 {
		return 0
	}
	return pitch
}
