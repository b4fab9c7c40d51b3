package spectral

import "github.com/MrWong99/spectravad/pkg/provider/vad"

// Run lengths, in frames, for the two smoothing passes.
const (
	minSilenceRun = 10
	minVoiceRun   = 5
)

// Smooth flips, in place, every maximal run of label in d that is shorter
// than minRun to the opposite label. The scan is a single left-to-right pass:
// a flipped run is not re-examined or merged with its neighbours.
func Smooth(d vad.Decisions, label byte, minRun int) {
	flipped := vad.Voice
	if label == vad.Voice {
		flipped = vad.Silence
	}

	start := 0
	for start < len(d) {
		if d[start] != label {
			start++
			continue
		}
		end := start
		for end < len(d) && d[end] == label {
			end++
		}
		if end-start < minRun {
			for k := start; k < end; k++ {
				d[k] = flipped
			}
		}
		start = end
	}
}

// smoothDecisions fills short silence gaps and then strips short voice
// blips. The order matters.
func smoothDecisions(d vad.Decisions) {
	Smooth(d, vad.Silence, minSilenceRun)
	Smooth(d, vad.Voice, minVoiceRun)
}
