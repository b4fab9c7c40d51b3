package config

// ConfigDiff describes what changed between two configs.
// Only fields that can be safely hot-reloaded are tracked.
type ConfigDiff struct {
	LogLevelChanged bool
	NewLogLevel     LogLevel

	// DetectorChanged is true when any detector field changed and the
	// active detector has to be rebuilt.
	DetectorChanged bool
	EngineChanged   bool
	TuningChanged   bool // sample rate or a threshold
	WorkersChanged  bool

	// RestartRequired lists settings that changed but only take effect
	// after a restart (e.g., "server.listen_addr").
	RestartRequired []string
}

// Diff compares old and new configs and returns what changed.
func Diff(old, new *Config) ConfigDiff {
	d := ConfigDiff{}

	// Log level
	if old.Server.LogLevel != new.Server.LogLevel {
		d.LogLevelChanged = true
		d.NewLogLevel = new.Server.LogLevel
	}

	// Detector
	od, nd := old.Detector, new.Detector
	d.EngineChanged = od.Engine != nd.Engine
	d.TuningChanged = od.VAD() != nd.VAD()
	d.WorkersChanged = od.Workers != nd.Workers
	d.DetectorChanged = d.EngineChanged || d.TuningChanged || d.WorkersChanged

	// Settings bound at startup.
	if old.Server.ListenAddr != new.Server.ListenAddr {
		d.RestartRequired = append(d.RestartRequired, "server.listen_addr")
	}
	if !equalTLS(old.Server.TLS, new.Server.TLS) {
		d.RestartRequired = append(d.RestartRequired, "server.tls")
	}
	if old.Server.MaxBodyBytes != new.Server.MaxBodyBytes {
		d.RestartRequired = append(d.RestartRequired, "server.max_body_bytes")
	}
	if old.Telemetry != new.Telemetry {
		d.RestartRequired = append(d.RestartRequired, "telemetry")
	}

	return d
}

func equalTLS(a, b *TLSConfig) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
