package vad

import (
	"strings"
	"time"
)

// Decision values as emitted in a [Decisions] sequence.
const (
	// Silence marks a frame without speech.
	Silence byte = 0

	// Voice marks a frame containing speech.
	Voice byte = 1
)

// Decisions is the per-frame voice/silence sequence produced by a [Detector].
// Each element is either [Voice] or [Silence].
type Decisions []byte

// Bytes returns the decisions as a plain byte slice.
func (d Decisions) Bytes() []byte {
	return []byte(d)
}

// String renders the sequence as a string of '0' and '1' characters, one per
// frame.
func (d Decisions) String() string {
	var b strings.Builder
	b.Grow(len(d))
	for _, v := range d {
		if v == Voice {
			b.WriteByte('1')
		} else {
			b.WriteByte('0')
		}
	}
	return b.String()
}

// VoiceFrames returns the number of frames labelled [Voice].
func (d Decisions) VoiceFrames() int {
	n := 0
	for _, v := range d {
		if v == Voice {
			n++
		}
	}
	return n
}

// VoiceRatio returns the fraction of frames labelled [Voice], or 0 for an
// empty sequence.
func (d Decisions) VoiceRatio() float64 {
	if len(d) == 0 {
		return 0
	}
	return float64(d.VoiceFrames()) / float64(len(d))
}

// Segment is a maximal run of consecutive voice frames.
type Segment struct {
	// StartFrame is the index of the first voice frame.
	StartFrame int `json:"start_frame"`

	// EndFrame is one past the index of the last voice frame.
	EndFrame int `json:"end_frame"`

	// Start is the offset of the segment from the beginning of the buffer.
	Start time.Duration `json:"start"`

	// End is the offset just after the last voice frame.
	End time.Duration `json:"end"`
}

// Duration returns End - Start.
func (s Segment) Duration() time.Duration {
	return s.End - s.Start
}

// Segments groups consecutive voice frames into [Segment] values. frame is
// the duration of one frame (normally [FrameDurationMs] milliseconds).
func (d Decisions) Segments(frame time.Duration) []Segment {
	var segs []Segment
	start := -1
	for i, v := range d {
		switch {
		case v == Voice && start < 0:
			start = i
		case v != Voice && start >= 0:
			segs = append(segs, newSegment(start, i, frame))
			start = -1
		}
	}
	if start >= 0 {
		segs = append(segs, newSegment(start, len(d), frame))
	}
	return segs
}

func newSegment(start, end int, frame time.Duration) Segment {
	return Segment{
		StartFrame: start,
		EndFrame:   end,
		Start:      time.Duration(start) * frame,
		End:        time.Duration(end) * frame,
	}
}
