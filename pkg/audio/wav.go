package audio

import (
	"errors"
	"fmt"
	"io"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

var (
	// ErrNotMono is returned for WAV files with more than one channel.
	ErrNotMono = errors.New("audio: expected a mono recording")

	// ErrInvalidWAV is returned when the input is not a readable RIFF/WAVE file.
	ErrInvalidWAV = errors.New("audio: invalid wav file")

	// ErrUnsupportedEncoding is returned for WAV files that are not integer PCM.
	ErrUnsupportedEncoding = errors.New("audio: unsupported wav encoding")
)

// wavFormatPCM is the WAVE format tag for integer PCM.
const wavFormatPCM = 1

// DecodeWAV reads a mono integer-PCM WAV file and returns its samples scaled
// to [-1, 1). 8-bit files are treated as unsigned, wider ones as signed.
func DecodeWAV(r io.ReadSeeker) (Clip, error) {
	dec := wav.NewDecoder(r)
	if !dec.IsValidFile() {
		return Clip{}, ErrInvalidWAV
	}
	if dec.WavAudioFormat != wavFormatPCM {
		return Clip{}, fmt.Errorf("%w: format tag %d", ErrUnsupportedEncoding, dec.WavAudioFormat)
	}
	if dec.NumChans != 1 {
		return Clip{}, fmt.Errorf("%w: got %d channels", ErrNotMono, dec.NumChans)
	}

	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return Clip{}, fmt.Errorf("%w: read pcm: %w", ErrInvalidWAV, err)
	}

	bitDepth := buf.SourceBitDepth
	if bitDepth == 0 {
		bitDepth = int(dec.BitDepth)
	}
	if bitDepth < 8 || bitDepth > 32 {
		return Clip{}, fmt.Errorf("%w: %d-bit samples", ErrUnsupportedEncoding, bitDepth)
	}

	return Clip{
		Samples:    normalise(buf.Data, bitDepth),
		SampleRate: int(dec.SampleRate),
	}, nil
}

// normalise scales integer PCM values of the given bit depth to [-1, 1).
func normalise(data []int, bitDepth int) []float32 {
	out := make([]float32, len(data))
	scale := float64(int64(1) << (bitDepth - 1))
	offset := 0
	if bitDepth == 8 {
		offset = 128
	}
	for i, v := range data {
		out[i] = float32(float64(v-offset) / scale)
	}
	return out
}

// EncodeWAV writes clip as a mono 16-bit PCM WAV file. Samples outside
// [-1, 1] are clamped.
func EncodeWAV(w io.WriteSeeker, clip Clip) error {
	if clip.SampleRate <= 0 {
		return fmt.Errorf("audio: encode wav: invalid sample rate %d", clip.SampleRate)
	}
	enc := wav.NewEncoder(w, clip.SampleRate, 16, 1, wavFormatPCM)

	data := make([]int, len(clip.Samples))
	for i, s := range clip.Samples {
		v := int(float64(s) * 32768)
		data[i] = max(-32768, min(32767, v))
	}
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: 1, SampleRate: clip.SampleRate},
		Data:           data,
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		return fmt.Errorf("audio: encode wav: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("audio: encode wav: %w", err)
	}
	return nil
}
