package config

import (
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/MrWong99/spectravad/pkg/provider/vad"
)

// ErrProviderNotRegistered is returned by Create* methods when no factory has
// been registered under the requested engine name.
var ErrProviderNotRegistered = errors.New("config: provider not registered")

// EngineFactory builds a [vad.Engine] from the detector section of the config.
type EngineFactory func(DetectorConfig) (vad.Engine, error)

// Registry maps engine names to their constructor functions.
// It is safe for concurrent use.
type Registry struct {
	mu  sync.RWMutex
	vad map[string]EngineFactory
}

// NewRegistry returns an empty, ready-to-use [Registry].
func NewRegistry() *Registry {
	return &Registry{
		vad: make(map[string]EngineFactory),
	}
}

// RegisterVAD registers a VAD engine factory under name.
// Subsequent calls with the same name overwrite the previous registration.
func (r *Registry) RegisterVAD(name string, factory EngineFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.vad[name] = factory
}

// VADNames returns the registered engine names in sorted order.
func (r *Registry) VADNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.vad))
	for name := range r.vad {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// CreateVAD instantiates the engine named by cfg.Engine.
// Returns [ErrProviderNotRegistered] if no factory has been registered for
// that name.
func (r *Registry) CreateVAD(cfg DetectorConfig) (vad.Engine, error) {
	r.mu.RLock()
	f, ok := r.vad[cfg.Engine]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: vad/%q", ErrProviderNotRegistered, cfg.Engine)
	}
	return f(cfg)
}

// CreateDetector instantiates the configured engine and builds a detector
// from the detector thresholds.
func (r *Registry) CreateDetector(cfg DetectorConfig) (vad.Detector, error) {
	eng, err := r.CreateVAD(cfg)
	if err != nil {
		return nil, err
	}
	det, err := eng.NewDetector(cfg.VAD())
	if err != nil {
		return nil, fmt.Errorf("config: create detector %q: %w", cfg.Engine, err)
	}
	return det, nil
}
