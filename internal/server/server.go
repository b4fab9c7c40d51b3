// Package server exposes a [vad.Detector] over HTTP and WebSocket.
//
// Every request carries one complete clip and gets one JSON [Response]; there
// is no streaming detection. The active detector can be swapped at runtime
// with [Server.SetDetector], which is how config hot reload retunes a
// running service.
package server

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"

	"github.com/MrWong99/spectravad/internal/health"
	"github.com/MrWong99/spectravad/internal/observe"
	"github.com/MrWong99/spectravad/pkg/provider/vad"
)

// DefaultMaxBodyBytes caps uploads when no [WithMaxBodyBytes] option is given.
const DefaultMaxBodyBytes = 32 << 20

// ErrNoDetector is returned while no detector has been installed.
var ErrNoDetector = errors.New("server: no detector loaded")

// detectorRef boxes the interface so it can live in an atomic.Pointer.
type detectorRef struct {
	vad.Detector
}

// Server routes detection requests to the currently installed detector.
// It is safe for concurrent use.
type Server struct {
	det            atomic.Pointer[detectorRef]
	metrics        *observe.Metrics
	metricsHandler http.Handler
	maxBody        int64
	health         *health.Handler
	checkers       []health.Checker
}

// Option configures a [Server].
type Option func(*Server)

// WithMetrics sets the instruments detections are recorded to. The default
// is [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) Option {
	return func(s *Server) {
		if m != nil {
			s.metrics = m
		}
	}
}

// WithMetricsHandler mounts h at GET /metrics.
func WithMetricsHandler(h http.Handler) Option {
	return func(s *Server) { s.metricsHandler = h }
}

// WithMaxBodyBytes caps the size of an HTTP body or WebSocket message.
// Non-positive values are ignored.
func WithMaxBodyBytes(n int64) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxBody = n
		}
	}
}

// WithReadinessCheck adds c to the checks run by /readyz in addition to the
// built-in detector check.
func WithReadinessCheck(c health.Checker) Option {
	return func(s *Server) { s.checkers = append(s.checkers, c) }
}

// New returns a server using det. det may be nil, in which case detection
// requests fail with 503 until [Server.SetDetector] is called.
func New(det vad.Detector, opts ...Option) *Server {
	s := &Server{maxBody: DefaultMaxBodyBytes}
	for _, o := range opts {
		o(s)
	}
	if s.metrics == nil {
		s.metrics = observe.DefaultMetrics()
	}
	checks := append([]health.Checker{{Name: "detector", Check: s.checkDetector}}, s.checkers...)
	s.health = health.New(checks...)
	s.SetDetector(det)
	return s
}

// SetDetector atomically replaces the active detector. Requests already in
// flight finish on the detector they started with.
func (s *Server) SetDetector(det vad.Detector) {
	if det == nil {
		s.det.Store(nil)
		return
	}
	s.det.Store(&detectorRef{det})
}

// Detector returns the active detector, or nil.
func (s *Server) Detector() vad.Detector {
	ref := s.det.Load()
	if ref == nil {
		return nil
	}
	return ref.Detector
}

// Health exposes the liveness/readiness handler, e.g. to mark the server as
// draining during shutdown.
func (s *Server) Health() *health.Handler {
	return s.health
}

// Handler returns the routed, instrumented HTTP handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/detect", s.handleDetect)
	mux.HandleFunc("GET /v1/ws", s.handleWebSocket)
	s.health.Register(mux)
	if s.metricsHandler != nil {
		mux.Handle("GET /metrics", s.metricsHandler)
	}
	return observe.Middleware(s.metrics)(mux)
}

func (s *Server) checkDetector(context.Context) error {
	if s.Detector() == nil {
		return ErrNoDetector
	}
	return nil
}
