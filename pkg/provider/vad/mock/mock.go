// Package mock provides test doubles for the vad package interfaces.
//
// Use Engine to verify that detectors are created with the expected Config.
// Use Detector to inject canned decisions and inspect the buffers that were
// submitted for detection.
//
// Example:
//
//	det := &mock.Detector{Result: vad.Decisions{0, 1, 1}}
//	eng := &mock.Engine{Detector: det}
//	d, _ := eng.NewDetector(cfg)
package mock

import (
	"context"
	"sync"

	"github.com/MrWong99/spectravad/pkg/provider/vad"
)

// NewDetectorCall records a single invocation of Engine.NewDetector.
type NewDetectorCall struct {
	// Cfg is the Config passed to NewDetector.
	Cfg vad.Config
}

// Engine is a mock implementation of vad.Engine.
type Engine struct {
	mu sync.Mutex

	// Detector is returned by NewDetector. If nil, NewDetector returns a new
	// default Detector carrying the requested config.
	Detector *Detector

	// NewDetectorErr, if non-nil, is returned as the error from NewDetector.
	NewDetectorErr error

	// NewDetectorCalls records every call to NewDetector in order.
	NewDetectorCalls []NewDetectorCall
}

// NewDetector records the call and returns Detector, NewDetectorErr.
func (e *Engine) NewDetector(cfg vad.Config) (vad.Detector, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.NewDetectorCalls = append(e.NewDetectorCalls, NewDetectorCall{Cfg: cfg})
	if e.NewDetectorErr != nil {
		return nil, e.NewDetectorErr
	}
	if e.Detector != nil {
		return e.Detector, nil
	}
	return &Detector{Cfg: cfg}, nil
}

// Reset clears all recorded calls. Thread-safe.
func (e *Engine) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.NewDetectorCalls = nil
}

// Ensure Engine implements vad.Engine at compile time.
var _ vad.Engine = (*Engine)(nil)

// DetectVoiceCall records a single invocation of Detector.DetectVoice.
type DetectVoiceCall struct {
	// Audio is a copy of the buffer passed to DetectVoice.
	Audio []float32
}

// Detector is a mock implementation of vad.Detector.
type Detector struct {
	mu sync.Mutex

	// Cfg is returned by Config.
	Cfg vad.Config

	// Result is returned by every DetectVoice call. When nil, DetectVoice
	// returns one Silence decision per complete frame of Cfg.
	Result vad.Decisions

	// DetectErr, if non-nil, is returned by every DetectVoice call.
	DetectErr error

	// DetectVoiceCalls records every call to DetectVoice in order.
	DetectVoiceCalls []DetectVoiceCall
}

// DetectVoice records the call and returns Result, DetectErr.
func (d *Detector) DetectVoice(_ context.Context, audio []float32) (vad.Decisions, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	cp := make([]float32, len(audio))
	copy(cp, audio)
	d.DetectVoiceCalls = append(d.DetectVoiceCalls, DetectVoiceCall{Audio: cp})
	if d.DetectErr != nil {
		return nil, d.DetectErr
	}
	if d.Result != nil {
		return d.Result, nil
	}
	return make(vad.Decisions, d.Cfg.NumFrames(len(audio))), nil
}

// Config returns Cfg.
func (d *Detector) Config() vad.Config {
	return d.Cfg
}

// ResetCalls clears all recorded call history. Thread-safe.
func (d *Detector) ResetCalls() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.DetectVoiceCalls = nil
}

// Ensure Detector implements vad.Detector at compile time.
var _ vad.Detector = (*Detector)(nil)
