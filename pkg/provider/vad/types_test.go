package vad

import (
	"errors"
	"math"
	"testing"
	"time"
)

func TestConfig_FrameSize(t *testing.T) {
	t.Parallel()
	tests := []struct {
		rate int
		want int
	}{
		{16000, 160},
		{8000, 80},
		{44100, 441},
		{48000, 480},
		{199, 1},
		{0, 0},
		{-16000, 0},
	}
	for _, tt := range tests {
		if got := (Config{SampleRate: tt.rate}).FrameSize(); got != tt.want {
			t.Errorf("FrameSize(%d) = %d, want %d", tt.rate, got, tt.want)
		}
	}
}

func TestConfig_NumFrames(t *testing.T) {
	t.Parallel()
	cfg := DefaultConfig()
	if got := cfg.NumFrames(16000); got != 100 {
		t.Errorf("NumFrames(16000) = %d, want 100", got)
	}
	if got := cfg.NumFrames(16159); got != 100 {
		t.Errorf("NumFrames(16159) = %d, want 100", got)
	}
	if got := cfg.NumFrames(159); got != 0 {
		t.Errorf("NumFrames(159) = %d, want 0", got)
	}
}

func TestConfig_FrameDuration(t *testing.T) {
	t.Parallel()
	tests := []struct {
		rate int
		want time.Duration
	}{
		{16000, 10 * time.Millisecond},
		{8000, 10 * time.Millisecond},
		{22050, 220 * time.Second / 22050},
		{0, 0},
	}
	for _, tt := range tests {
		if got := (Config{SampleRate: tt.rate}).FrameDuration(); got != tt.want {
			t.Errorf("FrameDuration(%d) = %v, want %v", tt.rate, got, tt.want)
		}
	}
}

func TestConfig_Validate(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"default", DefaultConfig(), false},
		{"smallest usable rate", Config{SampleRate: 200}, false},
		{"frame size one", Config{SampleRate: 199}, true},
		{"zero rate", Config{SampleRate: 0}, true},
		{"negative rate", Config{SampleRate: -1}, true},
		{"nan energy", Config{SampleRate: 16000, EnergyThresh: math.NaN()}, true},
		{"inf freq", Config{SampleRate: 16000, FreqThresh: math.Inf(1)}, true},
		{"inf sfm", Config{SampleRate: 16000, SFMThresh: math.Inf(-1)}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := tt.cfg.Validate()
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidConfig) {
					t.Fatalf("Validate() = %v, want ErrInvalidConfig", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Validate() unexpected error: %v", err)
			}
		})
	}
}

func TestDecisions_StringAndRatio(t *testing.T) {
	t.Parallel()
	d := Decisions{0, 1, 1, 0}
	if got := d.String(); got != "0110" {
		t.Errorf("String() = %q, want %q", got, "0110")
	}
	if got := d.VoiceFrames(); got != 2 {
		t.Errorf("VoiceFrames() = %d, want 2", got)
	}
	if got := d.VoiceRatio(); got != 0.5 {
		t.Errorf("VoiceRatio() = %v, want 0.5", got)
	}
	if got := (Decisions{}).VoiceRatio(); got != 0 {
		t.Errorf("empty VoiceRatio() = %v, want 0", got)
	}
}

func TestDecisions_Segments(t *testing.T) {
	t.Parallel()
	frame := 10 * time.Millisecond
	tests := []struct {
		name string
		d    Decisions
		want []Segment
	}{
		{"empty", nil, nil},
		{"all silence", Decisions{0, 0, 0}, nil},
		{
			name: "interior run",
			d:    Decisions{0, 1, 1, 0},
			want: []Segment{{StartFrame: 1, EndFrame: 3, Start: 10 * time.Millisecond, End: 30 * time.Millisecond}},
		},
		{
			name: "runs touching both ends",
			d:    Decisions{1, 0, 0, 1, 1},
			want: []Segment{
				{StartFrame: 0, EndFrame: 1, Start: 0, End: 10 * time.Millisecond},
				{StartFrame: 3, EndFrame: 5, Start: 30 * time.Millisecond, End: 50 * time.Millisecond},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := tt.d.Segments(frame)
			if len(got) != len(tt.want) {
				t.Fatalf("Segments() len = %d, want %d (%v)", len(got), len(tt.want), got)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("segment[%d] = %+v, want %+v", i, got[i], tt.want[i])
				}
			}
		})
	}
}
