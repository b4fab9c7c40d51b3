// Package spectral provides a three-feature adaptive-threshold VAD engine.
//
// Every 10 ms frame of the input is tapered with a Hann window and reduced to
// three features: short-time energy, dominant frequency and spectral flatness
// (SFM). The quietest values seen in the first 30 frames form a noise floor;
// a frame is voice when at least two features rise far enough above it. The
// energy floor keeps adapting as a running mean over silence frames. Finally
// short silence gaps (< 10 frames) are filled and short voice blips
// (< 5 frames) are removed.
//
// The detector needs the whole buffer up front. It holds no mutable state
// between calls and is safe for concurrent use.
//
// Usage:
//
//	det, err := spectral.NewDetector(vad.DefaultConfig(), spectral.WithWorkers(4))
//	decisions, err := det.DetectVoice(ctx, samples)
package spectral

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/MrWong99/spectravad/pkg/provider/vad"
)

// minFramesPerWorker bounds how finely feature extraction is split across
// workers.
const minFramesPerWorker = 256

// Option configures an [Engine] or [Detector].
type Option func(*options)

type options struct {
	workers int
}

// WithWorkers sets how many goroutines may extract frame features in
// parallel. Values below 1 are treated as 1. The default is 1.
func WithWorkers(n int) Option {
	return func(o *options) {
		if n >= 1 {
			o.workers = n
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{workers: 1}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Engine creates spectral detectors. The zero value is not usable; call [New].
type Engine struct {
	opts []Option
}

// New returns an Engine whose detectors are built with opts.
func New(opts ...Option) *Engine {
	return &Engine{opts: opts}
}

// NewDetector implements [vad.Engine].
func (e *Engine) NewDetector(cfg vad.Config) (vad.Detector, error) {
	return NewDetector(cfg, e.opts...)
}

// Ensure Engine implements vad.Engine at compile time.
var _ vad.Engine = (*Engine)(nil)

// Detector is the spectral VAD. It is immutable after construction.
type Detector struct {
	cfg     vad.Config
	window  []float64
	workers int
}

// NewDetector validates cfg and precomputes the Hann window for its frame size.
// Returns an error wrapping [vad.ErrInvalidConfig] when cfg yields a frame
// shorter than two samples.
func NewDetector(cfg vad.Config, opts ...Option) (*Detector, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("spectral: %w", err)
	}
	o := buildOptions(opts)
	return &Detector{
		cfg:     cfg,
		window:  HannWindow(cfg.FrameSize()),
		workers: o.workers,
	}, nil
}

// Config implements [vad.Detector].
func (d *Detector) Config() vad.Config {
	return d.cfg
}

// FrameSize returns the number of samples per analysis frame.
func (d *Detector) FrameSize() int {
	return len(d.window)
}

// Analysis is the full output of a detection pass.
type Analysis struct {
	// FrameSize is the number of samples per frame.
	FrameSize int `json:"frame_size"`

	// Features holds one feature vector per frame.
	Features []Features `json:"features"`

	// Raw is the decision sequence before smoothing.
	Raw vad.Decisions `json:"raw"`

	// Decisions is the smoothed decision sequence returned by DetectVoice.
	Decisions vad.Decisions `json:"decisions"`
}

// Analyze runs the detector and returns the per-frame features together with
// the raw and smoothed decisions. audio is not modified.
func (d *Detector) Analyze(ctx context.Context, audio []float32) (*Analysis, error) {
	feats, err := extractFeatures(ctx, audio, d.cfg.SampleRate, d.window, d.workers)
	if err != nil {
		return nil, fmt.Errorf("spectral: extract features: %w", err)
	}

	raw := decide(feats, d.cfg)
	smoothed := make(vad.Decisions, len(raw))
	copy(smoothed, raw)
	smoothDecisions(smoothed)

	slog.Debug("spectral: detection complete",
		"frames", len(smoothed),
		"frame_size", len(d.window),
		"voice_frames", smoothed.VoiceFrames(),
		"dropped_samples", len(audio)-len(smoothed)*len(d.window),
	)

	return &Analysis{
		FrameSize: len(d.window),
		Features:  feats,
		Raw:       raw,
		Decisions: smoothed,
	}, nil
}

// DetectVoice implements [vad.Detector].
func (d *Detector) DetectVoice(ctx context.Context, audio []float32) (vad.Decisions, error) {
	feats, err := extractFeatures(ctx, audio, d.cfg.SampleRate, d.window, d.workers)
	if err != nil {
		return nil, fmt.Errorf("spectral: extract features: %w", err)
	}
	decisions := decide(feats, d.cfg)
	smoothDecisions(decisions)
	return decisions, nil
}

// Ensure Detector implements vad.Detector at compile time.
var _ vad.Detector = (*Detector)(nil)
