package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"
	"time"

	"github.com/MrWong99/spectravad/internal/observe"
	"github.com/MrWong99/spectravad/pkg/audio"
	"github.com/MrWong99/spectravad/pkg/provider/vad"
)

// Sources reported in the "source" metric attribute.
const (
	sourceHTTP = "http"
	sourceWS   = "ws"
)

// formatWAV selects RIFF/WAVE decoding for an upload.
const formatWAV = "wav"

var (
	// ErrRateMismatch is returned when a clip's sample rate differs from the
	// detector's. Clips are never resampled.
	ErrRateMismatch = errors.New("server: sample rate mismatch")

	// ErrUnsupportedFormat is returned for an unknown format parameter or
	// content type.
	ErrUnsupportedFormat = errors.New("server: unsupported audio format")
)

// Segment is one voiced stretch in a [Response].
type Segment struct {
	StartFrame int     `json:"start_frame"`
	EndFrame   int     `json:"end_frame"`
	StartMs    float64 `json:"start_ms"`
	EndMs      float64 `json:"end_ms"`
}

// Response is the JSON body returned for every classified clip.
type Response struct {
	SampleRate      int       `json:"sample_rate"`
	FrameSize       int       `json:"frame_size"`
	FrameDurationMs float64   `json:"frame_duration_ms"`
	Frames          int       `json:"frames"`
	VoiceFrames     int       `json:"voice_frames"`
	VoiceRatio      float64   `json:"voice_ratio"`
	Decisions       string    `json:"decisions"`
	Segments        []Segment `json:"segments"`
}

// errorResponse is the JSON body of a failed request.
type errorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

// NewResponse builds the response for decisions produced by a detector
// configured with cfg.
func NewResponse(cfg vad.Config, d vad.Decisions) Response {
	frame := cfg.FrameDuration()
	segs := d.Segments(frame)
	out := make([]Segment, len(segs))
	for i, s := range segs {
		out[i] = Segment{
			StartFrame: s.StartFrame,
			EndFrame:   s.EndFrame,
			StartMs:    millis(s.Start),
			EndMs:      millis(s.End),
		}
	}
	return Response{
		SampleRate:      cfg.SampleRate,
		FrameSize:       cfg.FrameSize(),
		FrameDurationMs: millis(frame),
		Frames:          len(d),
		VoiceFrames:     d.VoiceFrames(),
		VoiceRatio:      d.VoiceRatio(),
		Decisions:       d.String(),
		Segments:        out,
	}
}

func millis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

// detect classifies clip with the active detector and records metrics.
func (s *Server) detect(ctx context.Context, source string, clip audio.Clip) (Response, error) {
	det := s.Detector()
	if det == nil {
		return Response{}, ErrNoDetector
	}
	cfg := det.Config()
	if clip.SampleRate != cfg.SampleRate {
		return Response{}, fmt.Errorf("%w: clip is %d Hz, detector expects %d Hz", ErrRateMismatch, clip.SampleRate, cfg.SampleRate)
	}

	ctx, span := observe.StartSpan(ctx, "vad.detect")
	defer span.End()

	start := time.Now()
	d, err := det.DetectVoice(ctx, clip.Samples)
	if err != nil {
		observe.FailSpan(span, err)
		return Response{}, err
	}
	elapsed := time.Since(start)

	s.metrics.RecordDetection(ctx, observe.Detection{
		Source:      source,
		Elapsed:     elapsed,
		Audio:       clip.Duration(),
		Frames:      len(d),
		VoiceFrames: d.VoiceFrames(),
	})
	observe.Logger(ctx).Debug("clip classified",
		"source", source,
		"samples", len(clip.Samples),
		"frames", len(d),
		"voice_ratio", d.VoiceRatio(),
		"duration", elapsed,
	)
	return NewResponse(cfg, d), nil
}

func (s *Server) handleDetect(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	det := s.Detector()
	if det == nil {
		s.writeError(ctx, w, sourceHTTP, ErrNoDetector)
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.maxBody))
	if err != nil {
		s.writeError(ctx, w, sourceHTTP, err)
		return
	}
	format, err := requestFormat(r)
	if err != nil {
		s.writeError(ctx, w, sourceHTTP, err)
		return
	}
	rate, err := requestRate(r, det.Config().SampleRate)
	if err != nil {
		s.writeError(ctx, w, sourceHTTP, err)
		return
	}
	clip, err := decodeClip(format, body, rate)
	if err != nil {
		s.writeError(ctx, w, sourceHTTP, err)
		return
	}

	resp, err := s.detect(ctx, sourceHTTP, clip)
	if err != nil {
		s.writeError(ctx, w, sourceHTTP, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// requestFormat picks the payload format from the format query parameter,
// falling back to the Content-Type header. A request without either is
// treated as WAV.
func requestFormat(r *http.Request) (string, error) {
	if f := r.URL.Query().Get("format"); f != "" {
		if f == formatWAV || audio.Format(f).IsValid() {
			return f, nil
		}
		return "", fmt.Errorf("%w: format %q", ErrUnsupportedFormat, f)
	}
	ct := r.Header.Get("Content-Type")
	if ct == "" {
		return formatWAV, nil
	}
	mt, _, err := mime.ParseMediaType(ct)
	if err != nil {
		return "", fmt.Errorf("%w: content type %q", ErrUnsupportedFormat, ct)
	}
	switch mt {
	case "audio/wav", "audio/x-wav", "audio/wave", "audio/vnd.wave":
		return formatWAV, nil
	case "application/octet-stream":
		return string(audio.FormatF32LE), nil
	}
	return "", fmt.Errorf("%w: content type %q", ErrUnsupportedFormat, mt)
}

// requestRate reads the sample_rate query parameter used for raw payloads.
func requestRate(r *http.Request, def int) (int, error) {
	v := r.URL.Query().Get("sample_rate")
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%w: invalid sample_rate %q", errBadRequest, v)
	}
	return n, nil
}

// decodeClip turns an uploaded payload into a clip. rate only applies to raw
// formats; WAV files carry their own.
func decodeClip(format string, data []byte, rate int) (audio.Clip, error) {
	if format == formatWAV {
		return audio.DecodeWAV(bytes.NewReader(data))
	}
	samples, err := audio.Decode(audio.Format(format), data)
	if err != nil {
		return audio.Clip{}, err
	}
	return audio.Clip{Samples: samples, SampleRate: rate}, nil
}

// errBadRequest marks malformed request parameters.
var errBadRequest = errors.New("server: bad request")

// classify maps an error to its HTTP status and metric kind.
func classify(err error) (int, string) {
	var maxBytes *http.MaxBytesError
	switch {
	case errors.As(err, &maxBytes):
		return http.StatusRequestEntityTooLarge, "too_large"
	case errors.Is(err, ErrUnsupportedFormat):
		return http.StatusUnsupportedMediaType, "unsupported_format"
	case errors.Is(err, ErrRateMismatch):
		return http.StatusUnprocessableEntity, "rate_mismatch"
	case errors.Is(err, audio.ErrNotMono):
		return http.StatusUnprocessableEntity, "not_mono"
	case errors.Is(err, audio.ErrMisaligned),
		errors.Is(err, audio.ErrInvalidWAV),
		errors.Is(err, audio.ErrUnsupportedEncoding),
		errors.Is(err, errBadRequest):
		return http.StatusBadRequest, "decode"
	case errors.Is(err, ErrNoDetector):
		return http.StatusServiceUnavailable, "no_detector"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable, "canceled"
	}
	return http.StatusInternalServerError, "internal"
}

func (s *Server) writeError(ctx context.Context, w http.ResponseWriter, source string, err error) {
	status, kind := classify(err)
	s.metrics.RecordDetectError(ctx, source, kind)
	log := observe.Logger(ctx)
	if status >= http.StatusInternalServerError && kind != "no_detector" && kind != "canceled" {
		log.Error("detection failed", "source", source, "kind", kind, "err", err)
	} else {
		log.Debug("detection rejected", "source", source, "kind", kind, "err", err)
	}
	writeJSON(w, status, errorResponse{Error: err.Error(), Kind: kind})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
