package audio

import "time"

// Clip is a complete mono recording ready for detection. Samples are
// normalised to [-1, 1) unless the producer documents otherwise.
type Clip struct {
	// Samples holds one value per sample instant.
	Samples []float32

	// SampleRate in Hz (e.g., 16000 for speech, 48000 for studio captures).
	SampleRate int
}

// Duration returns the playing time of the clip, or 0 if the sample rate is
// unknown.
func (c Clip) Duration() time.Duration {
	if c.SampleRate <= 0 {
		return 0
	}
	return time.Duration(len(c.Samples)) * time.Second / time.Duration(c.SampleRate)
}
