package spectral

import (
	"math"

	"github.com/MrWong99/spectravad/pkg/provider/vad"
)

// initFrames is the number of leading frames used to establish the noise floor.
const initFrames = 30

// baseline holds the feature minima observed over the opening frames. The
// frequency and SFM minima stay fixed for the whole pass.
type baseline struct {
	minEnergy float64
	minFreq   float64
	minSFM    float64
}

// initialBaseline returns the minima of the first min(initFrames, len(feats))
// frames. feats must not be empty.
func initialBaseline(feats []Features) baseline {
	b := baseline{
		minEnergy: math.Inf(1),
		minFreq:   math.Inf(1),
		minSFM:    math.Inf(1),
	}
	for _, f := range feats[:min(initFrames, len(feats))] {
		b.minEnergy = math.Min(b.minEnergy, f.Energy)
		b.minFreq = math.Min(b.minFreq, f.DominantFreq)
		b.minSFM = math.Min(b.minSFM, f.SFM)
	}
	return b
}

// noiseFloor is the accumulator carried through the decision pass: the
// running mean energy of silence frames and the energy threshold derived
// from it.
type noiseFloor struct {
	energy       float64
	silenceCount int
	threshold    float64
}

func newNoiseFloor(minEnergy, energyThresh float64) noiseFloor {
	return noiseFloor{
		energy:    minEnergy,
		threshold: energyThresh * math.Log(minEnergy+epsilon),
	}
}

// withSilence folds the energy of a silence frame into the floor.
func (nf noiseFloor) withSilence(energy, energyThresh float64) noiseFloor {
	n := float64(nf.silenceCount)
	nf.energy = (n*nf.energy + energy) / (n + 1)
	nf.silenceCount++
	nf.threshold = energyThresh * math.Log(nf.energy+epsilon)
	return nf
}

// votes counts how many of the three feature tests mark f as voice.
func votes(f Features, b baseline, nf noiseFloor, cfg vad.Config) int {
	n := 0
	if f.Energy-nf.energy >= nf.threshold {
		n++
	}
	if f.DominantFreq-b.minFreq >= cfg.FreqThresh {
		n++
	}
	if f.SFM-b.minSFM >= cfg.SFMThresh {
		n++
	}
	return n
}

// decide labels every frame in order. A frame is voice when at least two of
// the three tests hold; silence frames update the noise floor before the next
// frame is judged.
func decide(feats []Features, cfg vad.Config) vad.Decisions {
	decisions := make(vad.Decisions, len(feats))
	if len(feats) == 0 {
		return decisions
	}

	b := initialBaseline(feats)
	nf := newNoiseFloor(b.minEnergy, cfg.EnergyThresh)
	for i, f := range feats {
		if votes(f, b, nf, cfg) >= 2 {
			decisions[i] = vad.Voice
			continue
		}
		decisions[i] = vad.Silence
		nf = nf.withSilence(f.Energy, cfg.EnergyThresh)
	}
	return decisions
}
