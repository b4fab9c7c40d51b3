// Command spectravad classifies 10 ms frames of mono recordings as voice or
// silence.
//
// Usage:
//
//	spectravad detect [flags] clip.wav...
//	spectravad serve --config config.yaml
package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/MrWong99/spectravad/internal/config"
	"github.com/MrWong99/spectravad/pkg/provider/vad"
	"github.com/MrWong99/spectravad/pkg/provider/vad/spectral"
)

const usage = `usage: spectravad <command> [flags]

commands:
  detect   classify audio files and print per-frame decisions
  serve    run the HTTP/WebSocket detection service

run "spectravad <command> --help" for command flags
`

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprint(stderr, usage)
		return 2
	}
	switch args[0] {
	case "detect":
		return runDetect(args[1:], stdout, stderr)
	case "serve":
		return runServe(args[1:], stderr)
	case "-h", "--help", "help":
		fmt.Fprint(stdout, usage)
		return 0
	}
	fmt.Fprintf(stderr, "spectravad: unknown command %q\n\n%s", args[0], usage)
	return 2
}

// ── Engine wiring ────────────────────────────────────────────────────────────

// registerBuiltinEngines registers the detector engines that ship with
// spectravad.
func registerBuiltinEngines(reg *config.Registry) {
	reg.RegisterVAD("spectral", func(dc config.DetectorConfig) (vad.Engine, error) {
		return spectral.New(spectral.WithWorkers(dc.Workers)), nil
	})
}

// ── Logger ───────────────────────────────────────────────────────────────────

func slogLevel(level config.LogLevel) slog.Level {
	switch level {
	case config.LogDebug:
		return slog.LevelDebug
	case config.LogWarn:
		return slog.LevelWarn
	case config.LogError:
		return slog.LevelError
	}
	return slog.LevelInfo
}

// newLogger returns a text logger on w whose level can be changed later
// through lvl.
func newLogger(w io.Writer, lvl *slog.LevelVar) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl}))
}
