package config_test

import (
	"errors"
	"slices"
	"testing"

	"github.com/MrWong99/spectravad/internal/config"
	"github.com/MrWong99/spectravad/pkg/provider/vad"
	"github.com/MrWong99/spectravad/pkg/provider/vad/mock"
)

func TestLogLevel_IsValid(t *testing.T) {
	t.Parallel()
	for _, l := range []config.LogLevel{config.LogDebug, config.LogInfo, config.LogWarn, config.LogError} {
		if !l.IsValid() {
			t.Errorf("%q should be valid", l)
		}
	}
	for _, l := range []config.LogLevel{"", "trace", "INFO"} {
		if l.IsValid() {
			t.Errorf("%q should be invalid", l)
		}
	}
}

func TestDefault(t *testing.T) {
	t.Parallel()
	cfg := config.Default()
	if cfg.Server.ListenAddr != config.DefaultListenAddr {
		t.Errorf("listen_addr = %q, want %q", cfg.Server.ListenAddr, config.DefaultListenAddr)
	}
	if cfg.Detector.Engine != "spectral" || cfg.Detector.SampleRate != 16000 {
		t.Errorf("detector = %+v", cfg.Detector)
	}
	if cfg.Telemetry.ServiceName != "spectravad" {
		t.Errorf("service_name = %q", cfg.Telemetry.ServiceName)
	}
	if err := config.Validate(cfg); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestRegistry_UnknownVAD(t *testing.T) {
	t.Parallel()
	reg := config.NewRegistry()
	_, err := reg.CreateVAD(config.DetectorConfig{Engine: "nope"})
	if !errors.Is(err, config.ErrProviderNotRegistered) {
		t.Errorf("err = %v, want ErrProviderNotRegistered", err)
	}
	if _, err := reg.CreateDetector(config.DetectorConfig{Engine: "nope"}); !errors.Is(err, config.ErrProviderNotRegistered) {
		t.Errorf("CreateDetector err = %v, want ErrProviderNotRegistered", err)
	}
}

func TestRegistry_CreateDetector(t *testing.T) {
	t.Parallel()
	reg := config.NewRegistry()
	eng := &mock.Engine{}
	var gotCfg config.DetectorConfig
	reg.RegisterVAD("mock", func(c config.DetectorConfig) (vad.Engine, error) {
		gotCfg = c
		return eng, nil
	})

	dc := config.Default().Detector
	dc.Engine = "mock"
	dc.Workers = 3
	det, err := reg.CreateDetector(dc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if det == nil {
		t.Fatal("detector is nil")
	}
	if gotCfg != dc {
		t.Errorf("factory got %+v, want %+v", gotCfg, dc)
	}
	if len(eng.NewDetectorCalls) != 1 || eng.NewDetectorCalls[0].Cfg != dc.VAD() {
		t.Errorf("NewDetector calls = %+v, want one with %+v", eng.NewDetectorCalls, dc.VAD())
	}
}

func TestRegistry_FactoryError(t *testing.T) {
	t.Parallel()
	reg := config.NewRegistry()
	boom := errors.New("boom")
	reg.RegisterVAD("bad", func(config.DetectorConfig) (vad.Engine, error) { return nil, boom })
	if _, err := reg.CreateVAD(config.DetectorConfig{Engine: "bad"}); !errors.Is(err, boom) {
		t.Errorf("err = %v, want boom", err)
	}
}

func TestRegistry_DetectorError(t *testing.T) {
	t.Parallel()
	reg := config.NewRegistry()
	eng := &mock.Engine{NewDetectorErr: vad.ErrInvalidConfig}
	reg.RegisterVAD("mock", func(config.DetectorConfig) (vad.Engine, error) { return eng, nil })
	_, err := reg.CreateDetector(config.DetectorConfig{Engine: "mock"})
	if !errors.Is(err, vad.ErrInvalidConfig) {
		t.Errorf("err = %v, want ErrInvalidConfig", err)
	}
}

func TestRegistry_VADNames(t *testing.T) {
	t.Parallel()
	reg := config.NewRegistry()
	f := func(config.DetectorConfig) (vad.Engine, error) { return &mock.Engine{}, nil }
	reg.RegisterVAD("spectral", f)
	reg.RegisterVAD("mock", f)
	reg.RegisterVAD("spectral", f)
	if got := reg.VADNames(); !slices.Equal(got, []string{"mock", "spectral"}) {
		t.Errorf("VADNames = %v", got)
	}
}
