package config_test

import (
	"slices"
	"testing"

	"github.com/MrWong99/spectravad/internal/config"
)

func TestDiff_NoChange(t *testing.T) {
	t.Parallel()
	d := config.Diff(config.Default(), config.Default())
	if d.LogLevelChanged || d.DetectorChanged || len(d.RestartRequired) != 0 {
		t.Errorf("diff of identical configs = %+v, want empty", d)
	}
}

func TestDiff(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		mutate  func(*config.Config)
		check   func(config.ConfigDiff) bool
		restart []string
	}{
		{
			name:   "log level",
			mutate: func(c *config.Config) { c.Server.LogLevel = config.LogDebug },
			check: func(d config.ConfigDiff) bool {
				return d.LogLevelChanged && d.NewLogLevel == config.LogDebug && !d.DetectorChanged
			},
		},
		{
			name:   "threshold",
			mutate: func(c *config.Config) { c.Detector.SFMThresh = 2 },
			check: func(d config.ConfigDiff) bool {
				return d.DetectorChanged && d.TuningChanged && !d.EngineChanged && !d.WorkersChanged
			},
		},
		{
			name:   "engine",
			mutate: func(c *config.Config) { c.Detector.Engine = "other" },
			check: func(d config.ConfigDiff) bool {
				return d.DetectorChanged && d.EngineChanged && !d.TuningChanged
			},
		},
		{
			name:   "workers",
			mutate: func(c *config.Config) { c.Detector.Workers = 8 },
			check: func(d config.ConfigDiff) bool {
				return d.DetectorChanged && d.WorkersChanged && !d.TuningChanged
			},
		},
		{
			name: "startup-bound settings",
			mutate: func(c *config.Config) {
				c.Server.ListenAddr = ":9999"
				c.Server.TLS = &config.TLSConfig{CertFile: "c", KeyFile: "k"}
				c.Telemetry.ServiceName = "x"
			},
			check:   func(d config.ConfigDiff) bool { return !d.DetectorChanged && !d.LogLevelChanged },
			restart: []string{"server.listen_addr", "server.tls", "telemetry"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			newCfg := config.Default()
			tt.mutate(newCfg)
			d := config.Diff(config.Default(), newCfg)
			if !tt.check(d) {
				t.Errorf("unexpected diff %+v", d)
			}
			if !slices.Equal(d.RestartRequired, tt.restart) {
				t.Errorf("RestartRequired = %v, want %v", d.RestartRequired, tt.restart)
			}
		})
	}
}
