package spectral

import (
	"math/rand/v2"
	"strings"
	"testing"

	"github.com/MrWong99/spectravad/pkg/provider/vad"
)

// parseDecisions turns "0011" into Decisions{0,0,1,1}.
func parseDecisions(s string) vad.Decisions {
	d := make(vad.Decisions, len(s))
	for i, c := range s {
		if c == '1' {
			d[i] = vad.Voice
		}
	}
	return d
}

func TestSmooth(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name   string
		in     string
		label  byte
		minRun int
		want   string
	}{
		{"empty", "", vad.Silence, 10, ""},
		{"fills short interior gap", "1110011", vad.Silence, 3, "1111111"},
		{"keeps gap at threshold", "1100011", vad.Silence, 3, "1100011"},
		{"flips leading and trailing runs", "0011100", vad.Silence, 3, "1111111"},
		{"strips short voice blip", "0001000", vad.Voice, 2, "0000000"},
		{"leaves other label alone", "0101", vad.Voice, 1, "0101"},
		{"all runs too short", "1111", vad.Voice, 5, "0000"},
		{"each short run flips independently", "10100111", vad.Voice, 2, "00000111"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			d := parseDecisions(tt.in)
			Smooth(d, tt.label, tt.minRun)
			if got := d.String(); got != tt.want {
				t.Errorf("Smooth(%q, %d, %d) = %q, want %q", tt.in, tt.label, tt.minRun, got, tt.want)
			}
		})
	}
}

// runs returns the lengths of maximal runs equal to label.
func runs(d vad.Decisions, label byte) []int {
	var out []int
	n := 0
	for _, v := range d {
		if v == label {
			n++
			continue
		}
		if n > 0 {
			out = append(out, n)
		}
		n = 0
	}
	if n > 0 {
		out = append(out, n)
	}
	return out
}

func TestSmoothDecisions_RunLengthLaw(t *testing.T) {
	t.Parallel()
	r := rand.New(rand.NewPCG(42, 1))
	for trial := range 200 {
		d := make(vad.Decisions, 1+r.IntN(300))
		// Bursty sequences: runs of random length and label.
		for i := 0; i < len(d); {
			label := byte(r.IntN(2))
			n := 1 + r.IntN(15)
			for ; n > 0 && i < len(d); n-- {
				d[i] = label
				i++
			}
		}
		n := len(d)

		Smooth(d, vad.Silence, minSilenceRun)
		for _, l := range runs(d, vad.Silence) {
			if l < minSilenceRun {
				t.Fatalf("trial %d: silence run of %d after fill pass: %s", trial, l, d)
			}
		}

		Smooth(d, vad.Voice, minVoiceRun)
		for _, l := range runs(d, vad.Voice) {
			if l < minVoiceRun {
				t.Fatalf("trial %d: voice run of %d after strip pass: %s", trial, l, d)
			}
		}
		if len(d) != n {
			t.Fatalf("trial %d: length changed from %d to %d", trial, n, len(d))
		}
	}
}

func TestSmoothDecisions_Order(t *testing.T) {
	t.Parallel()
	// Two 3-frame voice runs separated by a 4-frame gap: the fill pass merges
	// them into a 10-frame run that then survives the strip pass.
	in := strings.Repeat("0", 12) + "111" + "0000" + "111" + strings.Repeat("0", 12)
	d := parseDecisions(in)
	smoothDecisions(d)
	want := strings.Repeat("0", 12) + strings.Repeat("1", 10) + strings.Repeat("0", 12)
	if got := d.String(); got != want {
		t.Errorf("smoothDecisions = %s, want %s", got, want)
	}

	// Reversed order strips both runs first and nothing is left to bridge.
	d = parseDecisions(in)
	Smooth(d, vad.Voice, minVoiceRun)
	Smooth(d, vad.Silence, minSilenceRun)
	if got := d.String(); got != strings.Repeat("0", len(in)) {
		t.Errorf("reversed order = %s, want all silence", got)
	}
}
