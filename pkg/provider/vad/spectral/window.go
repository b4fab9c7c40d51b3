package spectral

import (
	"math"

	"github.com/MrWong99/spectravad/pkg/provider/vad"
)

// HannWindow returns the size coefficients of a symmetric Hann window,
// w[i] = 0.5 * (1 - cos(2πi / (size-1))). Both end points are zero.
// Returns nil when size is below [vad.MinFrameSize].
func HannWindow(size int) []float64 {
	if size < vad.MinFrameSize {
		return nil
	}
	w := make([]float64, size)
	denom := float64(size - 1)
	for i := range w {
		w[i] = 0.5 * (1 - math.Cos(2*math.Pi*float64(i)/denom))
	}
	return w
}

// frameAt returns the raw samples of frame i. The caller guarantees that the
// frame lies fully inside audio.
func frameAt(audio []float32, i, frameSize int) []float32 {
	start := i * frameSize
	return audio[start : start+frameSize]
}

// applyWindow writes frame[i]*window[i] into dst, which must have the same
// length as window.
func applyWindow(dst []float64, frame []float32, window []float64) {
	for i, w := range window {
		dst[i] = float64(frame[i]) * w
	}
}
