package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

// KnownEngines lists the detector engine names shipped with spectravad.
// Used by [Validate] to warn about unrecognised engine names.
var KnownEngines = []string{"spectral"}

// Load reads the YAML configuration file at path and returns a validated [Config].
// It is a convenience wrapper around [LoadFromReader] and [Validate].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r, applies defaults and validates
// the result. An empty document yields the default configuration.
// Useful in tests where configs are constructed from string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	ApplyDefaults(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	// Server
	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}
	if cfg.Server.MaxBodyBytes < 0 {
		errs = append(errs, fmt.Errorf("server.max_body_bytes %d must not be negative", cfg.Server.MaxBodyBytes))
	}
	if tls := cfg.Server.TLS; tls != nil && (tls.CertFile == "" || tls.KeyFile == "") {
		errs = append(errs, errors.New("server.tls requires both cert_file and key_file"))
	}

	// Detector
	det := cfg.Detector
	if det.Engine == "" {
		errs = append(errs, errors.New("detector.engine is required"))
	} else if !slices.Contains(KnownEngines, det.Engine) {
		slog.Warn("unknown detector engine, may be a typo or third-party engine",
			"engine", det.Engine,
			"known", KnownEngines,
		)
	}
	if err := det.VAD().Validate(); err != nil {
		errs = append(errs, fmt.Errorf("detector: %w", err))
	}
	if det.Workers < 0 {
		errs = append(errs, fmt.Errorf("detector.workers %d must not be negative", det.Workers))
	}
	if det.EnergyThresh < 0 || det.FreqThresh < 0 || det.SFMThresh < 0 {
		slog.Warn("negative detector threshold; most frames will vote voice",
			"energy_thresh", det.EnergyThresh,
			"f_thresh", det.FreqThresh,
			"sfm_thresh", det.SFMThresh,
		)
	}
	if det.SampleRate > 0 && det.FreqThresh >= float64(det.SampleRate)/2 {
		slog.Warn("detector.f_thresh is at or above the Nyquist frequency; the frequency test can never pass",
			"f_thresh", det.FreqThresh,
			"nyquist", det.SampleRate/2,
		)
	}

	return errors.Join(errs...)
}
