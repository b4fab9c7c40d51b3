package audio_test

import (
	"encoding/binary"
	"errors"
	"math"
	"testing"

	"github.com/MrWong99/spectravad/pkg/audio"
)

// samplesToBytes converts a slice of int16 samples to little-endian byte representation.
func samplesToBytes(samples []int16) []byte {
	buf := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(buf[i*2:], uint16(s))
	}
	return buf
}

func TestDecodePCM16LE(t *testing.T) {
	got, err := audio.DecodePCM16LE(samplesToBytes([]int16{0, 16384, -32768, 32767}))
	if err != nil {
		t.Fatalf("DecodePCM16LE: %v", err)
	}
	want := []float32{0, 0.5, -1, 32767.0 / 32768}
	if len(got) != len(want) {
		t.Fatalf("length mismatch: got %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("sample %d: got %v, want %v", i, got[i], want[i])
		}
	}
}

func TestDecodePCM16LE_OddByteCount(t *testing.T) {
	_, err := audio.DecodePCM16LE([]byte{1, 2, 3})
	if !errors.Is(err, audio.ErrMisaligned) {
		t.Errorf("err = %v, want ErrMisaligned", err)
	}
}

func TestEncodePCM16LE_Clamping(t *testing.T) {
	pcm := audio.EncodePCM16LE([]float32{2, -2, 0.5})
	got := []int16{
		int16(binary.LittleEndian.Uint16(pcm[0:])),
		int16(binary.LittleEndian.Uint16(pcm[2:])),
		int16(binary.LittleEndian.Uint16(pcm[4:])),
	}
	want := []int16{32767, -32768, 16384}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("sample %d: got %d, want %d", i, got[i], want[i])
		}
	}
}

func TestFloat32LE_RoundTrip(t *testing.T) {
	in := []float32{0, 1.5, -0.25, float32(math.Pi)}
	got, err := audio.DecodeFloat32LE(audio.EncodeFloat32LE(in))
	if err != nil {
		t.Fatalf("DecodeFloat32LE: %v", err)
	}
	for i := range in {
		if got[i] != in[i] {
			t.Errorf("sample %d: got %v, want %v", i, got[i], in[i])
		}
	}
}

func TestDecodeFloat32LE_Misaligned(t *testing.T) {
	_, err := audio.DecodeFloat32LE(make([]byte, 6))
	if !errors.Is(err, audio.ErrMisaligned) {
		t.Errorf("err = %v, want ErrMisaligned", err)
	}
}

func TestDecode_Dispatch(t *testing.T) {
	tests := []struct {
		format  audio.Format
		data    []byte
		want    int
		wantErr bool
	}{
		{audio.FormatF32LE, make([]byte, 16), 4, false},
		{audio.FormatS16LE, make([]byte, 16), 8, false},
		{audio.Format("u8"), make([]byte, 16), 0, true},
	}
	for _, tt := range tests {
		t.Run(string(tt.format), func(t *testing.T) {
			got, err := audio.Decode(tt.format, tt.data)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(got) != tt.want {
				t.Errorf("len = %d, want %d", len(got), tt.want)
			}
		})
	}
}

func TestFormat_IsValid(t *testing.T) {
	if !audio.FormatF32LE.IsValid() || !audio.FormatS16LE.IsValid() {
		t.Error("built-in formats should be valid")
	}
	if audio.Format("wav").IsValid() {
		t.Error(`Format("wav") should not be a raw format`)
	}
}

func TestClip_Duration(t *testing.T) {
	c := audio.Clip{Samples: make([]float32, 24000), SampleRate: 16000}
	if got := c.Duration().Milliseconds(); got != 1500 {
		t.Errorf("Duration = %dms, want 1500ms", got)
	}
	if got := (audio.Clip{Samples: make([]float32, 10)}).Duration(); got != 0 {
		t.Errorf("Duration without rate = %v, want 0", got)
	}
}
