package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/MrWong99/spectravad/internal/config"
	"github.com/MrWong99/spectravad/internal/observe"
	"github.com/MrWong99/spectravad/internal/server"
	"github.com/MrWong99/spectravad/pkg/audio"
	"github.com/MrWong99/spectravad/pkg/provider/vad/spectral"
)

// detectOptions holds the parsed flags of the detect command.
type detectOptions struct {
	configPath string
	output     string
	features   bool
	jobs       int
	rawFormat  string
	sampleRate int
	logLevel   string

	// Threshold overrides; applied only when the flag was given.
	energyThresh float64
	freqThresh   float64
	sfmThresh    float64
	workers      int
}

// fileResult is one classified input file.
type fileResult struct {
	Path string `json:"path"`
	server.Response
	Features []spectral.Features `json:"features,omitempty"`
	Raw      string              `json:"raw_decisions,omitempty"`
}

func runDetect(args []string, stdout, stderr io.Writer) int {
	var opts detectOptions
	fs := newDetectFlagSet(&opts, stderr)
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return 0
		}
		return 2
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return 2
	}
	if opts.output != "text" && opts.output != "json" {
		fmt.Fprintf(stderr, "spectravad: unknown output format %q\n", opts.output)
		return 2
	}
	if opts.rawFormat != "" && !audio.Format(opts.rawFormat).IsValid() {
		fmt.Fprintf(stderr, "spectravad: unknown raw format %q\n", opts.rawFormat)
		return 2
	}

	lvl := new(slog.LevelVar)
	lvl.Set(slogLevel(config.LogLevel(opts.logLevel)))
	slog.SetDefault(newLogger(stderr, lvl))

	dc, err := detectorConfig(fs, opts)
	if err != nil {
		fmt.Fprintf(stderr, "spectravad: %v\n", err)
		return 1
	}

	reg := config.NewRegistry()
	registerBuiltinEngines(reg)

	ctx, stop := signalContext()
	defer stop()

	results, err := detectFiles(ctx, reg, dc, opts, fs.Args())
	if err != nil {
		fmt.Fprintf(stderr, "spectravad: %v\n", err)
		return 1
	}
	if err := writeResults(stdout, opts.output, results); err != nil {
		fmt.Fprintf(stderr, "spectravad: %v\n", err)
		return 1
	}
	return 0
}

// newDetectFlagSet declares the detect flags bound to opts.
func newDetectFlagSet(opts *detectOptions, stderr io.Writer) *pflag.FlagSet {
	fs := pflag.NewFlagSet("detect", pflag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVarP(&opts.configPath, "config", "c", "", "optional YAML config supplying detector settings")
	fs.StringVarP(&opts.output, "output", "o", "text", "output format: text or json")
	fs.BoolVar(&opts.features, "features", false, "include per-frame features and raw decisions")
	fs.IntVarP(&opts.jobs, "jobs", "j", runtime.GOMAXPROCS(0), "files processed concurrently")
	fs.StringVar(&opts.rawFormat, "raw-format", "", "decode non-WAV inputs as raw f32le or s16le")
	fs.IntVar(&opts.sampleRate, "sample-rate", 16000, "sample rate of raw inputs in Hz")
	fs.StringVar(&opts.logLevel, "log-level", "warn", "log level: debug, info, warn, error")
	fs.Float64Var(&opts.energyThresh, "energy-thresh", 0, "energy threshold multiplier")
	fs.Float64Var(&opts.freqThresh, "f-thresh", 0, "dominant frequency margin in Hz")
	fs.Float64Var(&opts.sfmThresh, "sfm-thresh", 0, "spectral flatness margin in dB")
	fs.IntVar(&opts.workers, "workers", 0, "feature extraction goroutines per file")
	fs.Usage = func() {
		fmt.Fprintln(stderr, "usage: spectravad detect [flags] file...")
		fs.PrintDefaults()
	}
	return fs
}

// detectorConfig merges the optional config file with flag overrides.
func detectorConfig(fs *pflag.FlagSet, opts detectOptions) (config.DetectorConfig, error) {
	cfg := config.Default()
	if opts.configPath != "" {
		var err error
		if cfg, err = config.Load(opts.configPath); err != nil {
			return config.DetectorConfig{}, err
		}
	}
	dc := cfg.Detector
	if fs.Changed("energy-thresh") {
		dc.EnergyThresh = opts.energyThresh
	}
	if fs.Changed("f-thresh") {
		dc.FreqThresh = opts.freqThresh
	}
	if fs.Changed("sfm-thresh") {
		dc.SFMThresh = opts.sfmThresh
	}
	if fs.Changed("workers") {
		dc.Workers = opts.workers
	}
	return dc, nil
}

// detectFiles classifies paths concurrently, at most opts.jobs at a time.
// Results keep the order of paths. The first failure cancels the rest.
func detectFiles(ctx context.Context, reg *config.Registry, dc config.DetectorConfig, opts detectOptions, paths []string) ([]fileResult, error) {
	results := make([]fileResult, len(paths))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(max(opts.jobs, 1))
	for i, path := range paths {
		g.Go(func() error {
			res, err := detectFile(ctx, reg, dc, opts, path)
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// detectFile decodes one file and classifies it with a detector built for the
// file's own sample rate.
func detectFile(ctx context.Context, reg *config.Registry, dc config.DetectorConfig, opts detectOptions, path string) (fileResult, error) {
	clip, err := readClip(path, opts)
	if err != nil {
		return fileResult{}, err
	}
	dc.SampleRate = clip.SampleRate
	det, err := reg.CreateDetector(dc)
	if err != nil {
		return fileResult{}, err
	}

	start := time.Now()
	res := fileResult{Path: path}
	if sd, ok := det.(*spectral.Detector); ok && opts.features {
		a, err := sd.Analyze(ctx, clip.Samples)
		if err != nil {
			return fileResult{}, err
		}
		res.Response = server.NewResponse(det.Config(), a.Decisions)
		res.Features = a.Features
		res.Raw = a.Raw.String()
	} else {
		d, err := det.DetectVoice(ctx, clip.Samples)
		if err != nil {
			return fileResult{}, err
		}
		res.Response = server.NewResponse(det.Config(), d)
	}

	observe.DefaultMetrics().RecordDetection(ctx, observe.Detection{
		Source:      "cli",
		Elapsed:     time.Since(start),
		Audio:       clip.Duration(),
		Frames:      res.Frames,
		VoiceFrames: res.VoiceFrames,
	})
	slog.Debug("file classified", "path", path, "frames", res.Frames, "voice_ratio", res.VoiceRatio)
	return res, nil
}

// readClip decodes path as WAV unless a raw format was requested for
// non-.wav files.
func readClip(path string, opts detectOptions) (audio.Clip, error) {
	isWAV := strings.EqualFold(filepath.Ext(path), ".wav")
	if isWAV || opts.rawFormat == "" {
		f, err := os.Open(path)
		if err != nil {
			return audio.Clip{}, err
		}
		defer f.Close()
		return audio.DecodeWAV(f)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return audio.Clip{}, err
	}
	samples, err := audio.Decode(audio.Format(opts.rawFormat), data)
	if err != nil {
		return audio.Clip{}, err
	}
	return audio.Clip{Samples: samples, SampleRate: opts.sampleRate}, nil
}

func writeResults(w io.Writer, format string, results []fileResult) error {
	if format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	}
	for _, r := range results {
		fmt.Fprintf(w, "%s: %d frames of %.2f ms, %d voice (%.1f%%)\n",
			r.Path, r.Frames, r.FrameDurationMs, r.VoiceFrames, 100*r.VoiceRatio)
		fmt.Fprintln(w, r.Decisions)
		for _, s := range r.Segments {
			fmt.Fprintf(w, "  voice %8.2fs - %8.2fs\n", s.StartMs/1000, s.EndMs/1000)
		}
		if r.Raw != "" {
			fmt.Fprintf(w, "raw: %s\n", r.Raw)
			for i, f := range r.Features {
				fmt.Fprintf(w, "  %5d energy=%.6g freq=%.1f sfm=%.3f\n", i, f.Energy, f.DominantFreq, f.SFM)
			}
		}
	}
	return nil
}
