// Package config provides the configuration schema, loader, watcher and
// detector engine registry for the spectravad service.
package config

import "github.com/MrWong99/spectravad/pkg/provider/vad"

// LogLevel controls log verbosity for the spectravad server.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// Default values applied by [ApplyDefaults].
const (
	DefaultListenAddr   = ":8080"
	DefaultMaxBodyBytes = 32 << 20
	DefaultEngine       = "spectral"
	DefaultServiceName  = "spectravad"
)

// Config is the root configuration structure for spectravad.
// It is typically loaded from a YAML file using [Load] or [LoadFromReader].
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Detector  DetectorConfig  `yaml:"detector"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// ServerConfig holds network and logging settings for the HTTP service.
type ServerConfig struct {
	// ListenAddr is the TCP address the server listens on (e.g., ":8080").
	ListenAddr string `yaml:"listen_addr"`

	// LogLevel controls verbosity.
	LogLevel LogLevel `yaml:"log_level"`

	// MaxBodyBytes caps the size of an uploaded clip or WebSocket message.
	MaxBodyBytes int64 `yaml:"max_body_bytes"`

	// TLS configures TLS for the server. When nil, the server runs plain HTTP.
	TLS *TLSConfig `yaml:"tls"`
}

// TLSConfig holds TLS certificate paths for enabling HTTPS.
type TLSConfig struct {
	// CertFile is the path to the PEM-encoded TLS certificate.
	CertFile string `yaml:"cert_file"`

	// KeyFile is the path to the PEM-encoded TLS private key.
	KeyFile string `yaml:"key_file"`
}

// DetectorConfig selects the VAD engine and its tuning.
type DetectorConfig struct {
	// Engine selects the registered engine implementation (e.g., "spectral").
	Engine string `yaml:"engine"`

	// SampleRate is the rate in Hz every submitted clip must have.
	SampleRate int `yaml:"sample_rate"`

	// EnergyThresh scales the log noise-floor energy into an energy margin.
	EnergyThresh float64 `yaml:"energy_thresh"`

	// FreqThresh is the dominant-frequency margin in Hz.
	FreqThresh float64 `yaml:"f_thresh"`

	// SFMThresh is the spectral-flatness margin in dB.
	SFMThresh float64 `yaml:"sfm_thresh"`

	// Workers bounds parallel feature extraction per request. 0 or 1 means
	// sequential.
	Workers int `yaml:"workers"`
}

// VAD returns the detector parameters as a [vad.Config].
func (d DetectorConfig) VAD() vad.Config {
	return vad.Config{
		SampleRate:   d.SampleRate,
		EnergyThresh: d.EnergyThresh,
		FreqThresh:   d.FreqThresh,
		SFMThresh:    d.SFMThresh,
	}
}

// TelemetryConfig configures OpenTelemetry resource attributes.
type TelemetryConfig struct {
	// ServiceName is the service name reported in telemetry.
	ServiceName string `yaml:"service_name"`

	// ServiceVersion is the service version reported in telemetry.
	ServiceVersion string `yaml:"service_version"`
}

// Default returns a configuration that runs the spectral detector tuned for
// 16 kHz speech.
func Default() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults fills zero-valued fields of cfg with their defaults. Detector
// thresholds are only defaulted when all three are unset, so an explicit 0 in
// a partially specified block is respected.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.ListenAddr == "" {
		cfg.Server.ListenAddr = DefaultListenAddr
	}
	if cfg.Server.LogLevel == "" {
		cfg.Server.LogLevel = LogInfo
	}
	if cfg.Server.MaxBodyBytes == 0 {
		cfg.Server.MaxBodyBytes = DefaultMaxBodyBytes
	}

	def := vad.DefaultConfig()
	d := &cfg.Detector
	if d.Engine == "" {
		d.Engine = DefaultEngine
	}
	if d.SampleRate == 0 {
		d.SampleRate = def.SampleRate
	}
	if d.EnergyThresh == 0 && d.FreqThresh == 0 && d.SFMThresh == 0 {
		d.EnergyThresh = def.EnergyThresh
		d.FreqThresh = def.FreqThresh
		d.SFMThresh = def.SFMThresh
	}

	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = DefaultServiceName
	}
}
