// Package audio decodes the audio payloads accepted by spectravad into mono
// float32 sample buffers.
//
// Three input encodings are supported: RIFF/WAVE files with integer PCM
// ([DecodeWAV]), raw little-endian 32-bit floats ([DecodeFloat32LE]) and raw
// little-endian signed 16-bit PCM ([DecodePCM16LE]). No resampling or channel
// mixing is performed: multi-channel input is rejected.
package audio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

// ErrMisaligned is returned when a raw payload's byte count is not a whole
// number of samples.
var ErrMisaligned = errors.New("audio: payload is not sample aligned")

// Format names a raw sample encoding.
type Format string

const (
	// FormatF32LE is little-endian IEEE-754 float32, one value per sample.
	FormatF32LE Format = "f32le"

	// FormatS16LE is little-endian signed 16-bit PCM.
	FormatS16LE Format = "s16le"
)

// IsValid reports whether f is a recognised raw format.
func (f Format) IsValid() bool {
	return f == FormatF32LE || f == FormatS16LE
}

// Decode converts a raw payload in format f to float32 samples.
func Decode(f Format, data []byte) ([]float32, error) {
	switch f {
	case FormatF32LE:
		return DecodeFloat32LE(data)
	case FormatS16LE:
		return DecodePCM16LE(data)
	default:
		return nil, fmt.Errorf("audio: unknown raw format %q", f)
	}
}

// DecodeFloat32LE interprets data as little-endian float32 samples. Values are
// passed through unscaled.
func DecodeFloat32LE(data []byte) ([]float32, error) {
	if len(data)%4 != 0 {
		return nil, fmt.Errorf("%w: %d bytes is not a multiple of 4", ErrMisaligned, len(data))
	}
	out := make([]float32, len(data)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return out, nil
}

// EncodeFloat32LE is the inverse of [DecodeFloat32LE].
func EncodeFloat32LE(samples []float32) []byte {
	out := make([]byte, len(samples)*4)
	for i, s := range samples {
		binary.LittleEndian.PutUint32(out[i*4:], math.Float32bits(s))
	}
	return out
}

// DecodePCM16LE interprets data as little-endian int16 samples and scales them
// to [-1, 1).
func DecodePCM16LE(data []byte) ([]float32, error) {
	if len(data)%2 != 0 {
		return nil, fmt.Errorf("%w: odd byte count %d for 16-bit PCM", ErrMisaligned, len(data))
	}
	out := make([]float32, len(data)/2)
	for i := range out {
		s := int16(binary.LittleEndian.Uint16(data[i*2:]))
		out[i] = float32(s) / 32768
	}
	return out, nil
}

// EncodePCM16LE converts samples in [-1, 1] to little-endian int16 PCM,
// clamping values outside that range.
func EncodePCM16LE(samples []float32) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		v := math.Round(float64(s) * 32768)
		if v > math.MaxInt16 {
			v = math.MaxInt16
		} else if v < math.MinInt16 {
			v = math.MinInt16
		}
		binary.LittleEndian.PutUint16(out[i*2:], uint16(int16(v)))
	}
	return out
}
