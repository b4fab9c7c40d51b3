package spectral

import (
	"context"
	"math"
	"math/cmplx"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/dsp/fourier"
)

// epsilon keeps logarithms and ratios finite for silent input.
const epsilon = 1e-12

// ctxCheckInterval is how many frames are analysed between context checks.
const ctxCheckInterval = 64

// Features is the per-frame feature vector used by the decision engine.
type Features struct {
	// Energy is the sum of squared Hann-windowed samples.
	Energy float64 `json:"energy"`

	// DominantFreq is the frequency in Hz of the strongest bin in the
	// non-negative half of the spectrum.
	DominantFreq float64 `json:"dominant_freq"`

	// SFM is the spectral flatness measure in dB. Low values indicate a
	// peaked, tonal spectrum; values near 0 dB indicate a flat, noise-like one.
	SFM float64 `json:"sfm"`
}

// analyzer turns raw frames into [Features]. It owns an FFT plan and scratch
// buffers, so one analyzer must not be shared between goroutines.
type analyzer struct {
	sampleRate int
	window     []float64
	fft        *fourier.FFT
	windowed   []float64
	coeffs     []complex128
	mags       []float64
}

func newAnalyzer(sampleRate int, window []float64) *analyzer {
	n := len(window)
	return &analyzer{
		sampleRate: sampleRate,
		window:     window,
		fft:        fourier.NewFFT(n),
		windowed:   make([]float64, n),
		coeffs:     make([]complex128, n/2+1),
		mags:       make([]float64, n/2),
	}
}

// analyze windows frame and extracts its energy, dominant frequency and SFM.
func (a *analyzer) analyze(frame []float32) Features {
	applyWindow(a.windowed, frame, a.window)

	energy := 0.0
	for _, x := range a.windowed {
		energy += x * x
	}

	a.coeffs = a.fft.Coefficients(a.coeffs, a.windowed)
	for k := range a.mags {
		a.mags[k] = cmplx.Abs(a.coeffs[k])
	}

	return Features{
		Energy:       energy,
		DominantFreq: dominantFrequency(a.mags, a.sampleRate, len(a.window)),
		SFM:          spectralFlatness(a.mags),
	}
}

// dominantFrequency returns the frequency of the first maximal bin in mags.
func dominantFrequency(mags []float64, sampleRate, frameSize int) float64 {
	if len(mags) == 0 {
		return 0
	}
	idx := 0
	for k := 1; k < len(mags); k++ {
		if mags[k] > mags[idx] {
			idx = k
		}
	}
	return float64(idx) * float64(sampleRate) / float64(frameSize)
}

// spectralFlatness returns 10*log10(geometric mean / arithmetic mean) of mags.
func spectralFlatness(mags []float64) float64 {
	if len(mags) == 0 {
		return 0
	}
	var logSum, sum float64
	for _, m := range mags {
		logSum += math.Log(m + epsilon)
		sum += m
	}
	n := float64(len(mags))
	geometric := math.Exp(logSum / n)
	arithmetic := sum / n
	return 10 * math.Log10(geometric/(arithmetic+epsilon))
}

// extractFeatures computes the features of every complete frame in audio.
// With workers > 1 the frames are split into contiguous chunks analysed
// concurrently; each chunk writes only its own slots of the result.
func extractFeatures(ctx context.Context, audio []float32, sampleRate int, window []float64, workers int) ([]Features, error) {
	frameSize := len(window)
	numFrames := len(audio) / frameSize
	feats := make([]Features, numFrames)
	if numFrames == 0 {
		return feats, ctx.Err()
	}

	chunks := workers
	if maxChunks := (numFrames + minFramesPerWorker - 1) / minFramesPerWorker; chunks > maxChunks {
		chunks = maxChunks
	}
	if chunks <= 1 {
		if err := analyzeRange(ctx, newAnalyzer(sampleRate, window), audio, feats, 0, numFrames); err != nil {
			return nil, err
		}
		return feats, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	per := (numFrames + chunks - 1) / chunks
	for lo := 0; lo < numFrames; lo += per {
		hi := min(lo+per, numFrames)
		g.Go(func() error {
			return analyzeRange(gctx, newAnalyzer(sampleRate, window), audio, feats, lo, hi)
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return feats, nil
}

// analyzeRange fills feats[lo:hi].
func analyzeRange(ctx context.Context, a *analyzer, audio []float32, feats []Features, lo, hi int) error {
	frameSize := len(a.window)
	for i := lo; i < hi; i++ {
		if (i-lo)%ctxCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		feats[i] = a.analyze(frameAt(audio, i, frameSize))
	}
	return nil
}
