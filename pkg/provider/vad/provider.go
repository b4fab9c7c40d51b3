// Package vad defines the Engine and Detector interfaces for offline Voice
// Activity Detection backends.
//
// A VAD detector classifies every 10 ms frame of a complete, already-captured
// mono audio buffer as voice or silence. Detection is whole-buffer:
// DetectVoice receives the entire clip and returns one decision per frame, so a
// backend may look at the opening frames to calibrate a noise floor before it
// classifies anything.
//
// Detectors hold only read-only configuration. Implementations must be safe
// for concurrent use: the same Detector may be invoked from many goroutines on
// disjoint buffers without synchronisation.
package vad

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"
)

// ErrInvalidConfig is returned when a [Config] cannot produce a usable frame
// layout or carries non-finite thresholds.
var ErrInvalidConfig = errors.New("vad: invalid config")

// FrameDurationMs is the fixed analysis frame length in milliseconds.
const FrameDurationMs = 10

// MinFrameSize is the smallest frame (in samples) a detector accepts. The Hann
// window divides by frameSize-1.
const MinFrameSize = 2

// Config holds the parameters of a detector. All thresholds are empirical
// sensitivity coefficients tuned against the amplitude scale of the input.
type Config struct {
	// SampleRate is the audio sample rate in Hz. Must match the rate of the
	// buffers passed to DetectVoice. Common values: 8000, 16000, 48000.
	SampleRate int

	// EnergyThresh scales the log of the noise-floor energy to obtain the
	// energy margin a frame must exceed. Typical: 0.30.
	EnergyThresh float64

	// FreqThresh is the margin in Hz a frame's dominant frequency must rise
	// above the quietest observed dominant frequency. Typical: 316.76.
	FreqThresh float64

	// SFMThresh is the margin in dB a frame's spectral flatness must rise above
	// the lowest observed flatness. Typical: 0.60.
	SFMThresh float64
}

// DefaultConfig returns the tuning used for 16 kHz speech.
func DefaultConfig() Config {
	return Config{
		SampleRate:   16000,
		EnergyThresh: 0.30,
		FreqThresh:   316.76,
		SFMThresh:    0.60,
	}
}

// FrameSize returns the number of samples in one analysis frame
// (floor(0.01 * SampleRate)).
func (c Config) FrameSize() int {
	if c.SampleRate <= 0 {
		return 0
	}
	return c.SampleRate * FrameDurationMs / 1000
}

// FrameDuration returns the exact length of one frame. It is slightly under
// 10 ms when the sample rate is not a multiple of 100.
func (c Config) FrameDuration() time.Duration {
	fs := c.FrameSize()
	if fs <= 0 {
		return 0
	}
	return time.Duration(fs) * time.Second / time.Duration(c.SampleRate)
}

// NumFrames returns how many complete frames fit in n samples. Trailing
// samples that do not fill a frame are not counted.
func (c Config) NumFrames(n int) int {
	fs := c.FrameSize()
	if fs <= 0 {
		return 0
	}
	return n / fs
}

// Validate reports whether c describes a usable detector. The returned error
// wraps [ErrInvalidConfig].
func (c Config) Validate() error {
	if c.SampleRate <= 0 {
		return fmt.Errorf("%w: sample rate must be positive, got %d", ErrInvalidConfig, c.SampleRate)
	}
	if fs := c.FrameSize(); fs < MinFrameSize {
		return fmt.Errorf("%w: sample rate %d Hz yields frame size %d, need at least %d",
			ErrInvalidConfig, c.SampleRate, fs, MinFrameSize)
	}
	thresholds := []struct {
		name string
		v    float64
	}{
		{"energy threshold", c.EnergyThresh},
		{"frequency threshold", c.FreqThresh},
		{"sfm threshold", c.SFMThresh},
	}
	for _, th := range thresholds {
		if math.IsNaN(th.v) || math.IsInf(th.v, 0) {
			return fmt.Errorf("%w: %s must be finite, got %v", ErrInvalidConfig, th.name, th.v)
		}
	}
	return nil
}

// Detector classifies the frames of a complete audio buffer.
type Detector interface {
	// DetectVoice returns one decision per complete frame of audio. A buffer
	// shorter than one frame yields an empty result and a nil error. The
	// buffer is not modified.
	//
	// Returns ctx.Err() if ctx is cancelled before detection finishes.
	DetectVoice(ctx context.Context, audio []float32) (Decisions, error)

	// Config returns the configuration the detector was built with.
	Config() Config
}

// Engine is the factory for detectors. It is the top-level interface
// implemented by each VAD backend.
//
// Implementations must be safe for concurrent use.
type Engine interface {
	// NewDetector validates cfg and returns a ready detector. Returns an error
	// wrapping [ErrInvalidConfig] if the configuration is unusable.
	NewDetector(cfg Config) (Detector, error)
}
