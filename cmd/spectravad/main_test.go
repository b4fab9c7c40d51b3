package main

import (
	"bytes"
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/MrWong99/spectravad/pkg/audio"
)

// writeClip stores clip as a 16-bit WAV file in dir.
func writeClip(t *testing.T, dir, name string, clip audio.Clip) string {
	t.Helper()
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	defer f.Close()
	if err := audio.EncodeWAV(f, clip); err != nil {
		t.Fatalf("EncodeWAV: %v", err)
	}
	return path
}

// toneClip is 0.5 s of silence followed by 0.5 s of a 1 kHz tone.
func toneClip(rate int) audio.Clip {
	s := make([]float32, rate)
	for i := rate / 2; i < rate; i++ {
		s[i] = float32(0.5 * math.Sin(2*math.Pi*1000*float64(i)/float64(rate)))
	}
	return audio.Clip{Samples: s, SampleRate: rate}
}

func TestRun_Usage(t *testing.T) {
	t.Parallel()
	var out, errOut bytes.Buffer
	if code := run(nil, &out, &errOut); code != 2 {
		t.Errorf("no args: exit %d, want 2", code)
	}
	if code := run([]string{"bogus"}, &out, &errOut); code != 2 {
		t.Errorf("unknown command: exit %d, want 2", code)
	}
	if !strings.Contains(errOut.String(), `unknown command "bogus"`) {
		t.Errorf("stderr = %q", errOut.String())
	}
}

func TestRunDetect_JSON(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	silent := writeClip(t, dir, "silent.wav", audio.Clip{Samples: make([]float32, 16000), SampleRate: 16000})
	tone := writeClip(t, dir, "tone.wav", toneClip(8000))

	var out, errOut bytes.Buffer
	code := run([]string{"detect", "-o", "json", "--jobs", "2", silent, tone}, &out, &errOut)
	if code != 0 {
		t.Fatalf("exit %d, stderr %s", code, errOut.String())
	}

	var results []fileResult
	if err := json.Unmarshal(out.Bytes(), &results); err != nil {
		t.Fatalf("unmarshal: %v\n%s", err, out.String())
	}
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	if results[0].Path != silent || results[0].Decisions != strings.Repeat("0", 100) {
		t.Errorf("silent result = %+v", results[0].Response)
	}
	if results[1].Path != tone || results[1].SampleRate != 8000 || results[1].Frames != 100 {
		t.Errorf("tone result = %+v", results[1].Response)
	}
	if results[1].VoiceFrames == 0 {
		t.Errorf("tone result has no voice frames: %s", results[1].Decisions)
	}
	if results[0].Features != nil {
		t.Error("features included without --features")
	}
}

func TestRunDetect_FeaturesAndRaw(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	raw := filepath.Join(dir, "clip.f32")
	if err := os.WriteFile(raw, audio.EncodeFloat32LE(toneClip(16000).Samples), 0o644); err != nil {
		t.Fatal(err)
	}

	var out, errOut bytes.Buffer
	code := run([]string{"detect", "--raw-format", "f32le", "--sample-rate", "16000", "--features", raw}, &out, &errOut)
	if code != 0 {
		t.Fatalf("exit %d, stderr %s", code, errOut.String())
	}
	text := out.String()
	for _, want := range []string{"clip.f32: 100 frames of 10.00 ms", "raw: ", "energy="} {
		if !strings.Contains(text, want) {
			t.Errorf("output missing %q:\n%s", want, text)
		}
	}
}

func TestRunDetect_Errors(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	tiny := writeClip(t, dir, "tiny.wav", audio.Clip{Samples: make([]float32, 100), SampleRate: 100})

	tests := []struct {
		name string
		args []string
		want int
	}{
		{"no files", []string{"detect"}, 2},
		{"bad output", []string{"detect", "-o", "yaml", tiny}, 2},
		{"bad raw format", []string{"detect", "--raw-format", "mp3", tiny}, 2},
		{"missing file", []string{"detect", filepath.Join(dir, "nope.wav")}, 1},
		{"rate too low for a frame", []string{"detect", tiny}, 1},
		{"missing config", []string{"detect", "--config", filepath.Join(dir, "none.yaml"), tiny}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			var out, errOut bytes.Buffer
			if code := run(tt.args, &out, &errOut); code != tt.want {
				t.Errorf("exit %d, want %d (stderr %s)", code, tt.want, errOut.String())
			}
		})
	}
}

func TestDetectorConfig_FlagOverrides(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "c.yaml")
	if err := os.WriteFile(cfgPath, []byte("detector:\n  energy_thresh: 0.5\n  f_thresh: 100\n  sfm_thresh: 1\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	var opts detectOptions
	fs := newDetectFlagSet(&opts, &bytes.Buffer{})
	if err := fs.Parse([]string{"--config", cfgPath, "--f-thresh", "250", "x.wav"}); err != nil {
		t.Fatalf("parse: %v", err)
	}
	dc, err := detectorConfig(fs, opts)
	if err != nil {
		t.Fatalf("detectorConfig: %v", err)
	}
	if dc.EnergyThresh != 0.5 || dc.FreqThresh != 250 || dc.SFMThresh != 1 {
		t.Errorf("detector = %+v, want file values with f_thresh overridden", dc)
	}
}
