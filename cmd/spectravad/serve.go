package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/MrWong99/spectravad/internal/config"
	"github.com/MrWong99/spectravad/internal/observe"
	"github.com/MrWong99/spectravad/internal/server"
)

// shutdownTimeout bounds how long in-flight requests may take after a
// shutdown signal.
const shutdownTimeout = 15 * time.Second

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

func runServe(args []string, stderr io.Writer) int {
	fs := pflag.NewFlagSet("serve", pflag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.StringP("config", "c", "config.yaml", "path to the YAML configuration file")
	watchInterval := fs.Duration("watch-interval", config.DefaultWatchInterval, "how often to poll the config file for changes")
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return 0
		}
		return 2
	}

	// ── Logger ────────────────────────────────────────────────────────────────
	lvl := new(slog.LevelVar)
	slog.SetDefault(newLogger(stderr, lvl))

	// ── Engines ───────────────────────────────────────────────────────────────
	reg := config.NewRegistry()
	registerBuiltinEngines(reg)

	// ── Configuration ─────────────────────────────────────────────────────────
	cfg, err := config.Load(*configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(stderr, "spectravad: config file %q not found, copy configs/example.yaml to get started\n", *configPath)
		} else {
			fmt.Fprintf(stderr, "spectravad: %v\n", err)
		}
		return 1
	}
	lvl.Set(slogLevel(cfg.Server.LogLevel))

	slog.Info("spectravad starting",
		"config", *configPath,
		"listen_addr", cfg.Server.ListenAddr,
		"log_level", cfg.Server.LogLevel,
		"engine", cfg.Detector.Engine,
		"sample_rate", cfg.Detector.SampleRate,
	)

	ctx, stop := signalContext()
	defer stop()

	// ── Telemetry ─────────────────────────────────────────────────────────────
	tel, err := observe.InitProvider(ctx, observe.ProviderConfig{
		ServiceName:    cfg.Telemetry.ServiceName,
		ServiceVersion: cfg.Telemetry.ServiceVersion,
	})
	if err != nil {
		slog.Error("failed to initialise telemetry", "err", err)
		return 1
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := tel.Shutdown(shutdownCtx); err != nil {
			slog.Warn("telemetry shutdown error", "err", err)
		}
	}()

	// ── Detector and server ───────────────────────────────────────────────────
	det, err := reg.CreateDetector(cfg.Detector)
	if err != nil {
		slog.Error("failed to create detector", "err", err)
		return 1
	}
	srv := server.New(det,
		server.WithMetrics(tel.Metrics),
		server.WithMetricsHandler(observe.MetricsHandler(tel.Registry)),
		server.WithMaxBodyBytes(cfg.Server.MaxBodyBytes),
	)

	// ── Hot reload ────────────────────────────────────────────────────────────
	watcher, err := config.NewWatcher(*configPath, func(prev, next *config.Config) {
		applyReload(ctx, reg, srv, tel.Metrics, lvl, config.Diff(prev, next), next)
	}, config.WithInterval(*watchInterval))
	if err != nil {
		slog.Error("failed to watch config", "err", err)
		return 1
	}
	defer watcher.Stop()

	httpSrv := &http.Server{
		Addr:              cfg.Server.ListenAddr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		if tls := cfg.Server.TLS; tls != nil {
			err = httpSrv.ListenAndServeTLS(tls.CertFile, tls.KeyFile)
		} else {
			err = httpSrv.ListenAndServe()
		}
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutdown signal received, draining")
		srv.Health().SetDraining()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	})

	slog.Info("server ready", "addr", cfg.Server.ListenAddr)
	if err := g.Wait(); err != nil {
		slog.Error("server error", "err", err)
		return 1
	}
	slog.Info("goodbye")
	return 0
}

// applyReload applies the hot-reloadable parts of a config change.
func applyReload(ctx context.Context, reg *config.Registry, srv *server.Server, m *observe.Metrics, lvl *slog.LevelVar, d config.ConfigDiff, cfg *config.Config) {
	if d.LogLevelChanged {
		lvl.Set(slogLevel(d.NewLogLevel))
		slog.Info("log level changed", "level", d.NewLogLevel)
	}
	if d.DetectorChanged {
		det, err := reg.CreateDetector(cfg.Detector)
		if err != nil {
			m.RecordConfigReload(ctx, observe.StatusError)
			slog.Error("detector reload failed, keeping previous detector", "err", err)
		} else {
			srv.SetDetector(det)
			m.RecordConfigReload(ctx, observe.StatusOK)
			slog.Info("detector reloaded",
				"engine", cfg.Detector.Engine,
				"sample_rate", cfg.Detector.SampleRate,
				"workers", cfg.Detector.Workers,
			)
		}
	}
	if len(d.RestartRequired) > 0 {
		slog.Warn("config changes need a restart to take effect", "settings", d.RestartRequired)
	}
}
