// Package observe provides observability primitives for spectravad:
// OpenTelemetry metrics, tracing helpers, trace-aware logging and the HTTP
// middleware that ties them together.
//
// Metrics are recorded through the OpenTelemetry Metrics API and bridged to
// Prometheus by [InitProvider]. A package-level [DefaultMetrics] instance is
// provided for convenience; tests should use [NewMetrics] with their own
// [metric.MeterProvider] to avoid cross-test pollution.
package observe

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all spectravad metrics.
const meterName = "github.com/MrWong99/spectravad"

// Status attribute values used with [Metrics.DetectRequests].
const (
	StatusOK    = "ok"
	StatusError = "error"
)

// Metrics holds all OpenTelemetry metric instruments for the application.
// The underlying OTel types handle their own synchronisation.
type Metrics struct {
	// DetectDuration tracks wall time spent classifying one clip. Use with
	// attribute.String("source", ...).
	DetectDuration metric.Float64Histogram

	// AudioDuration tracks the length of the classified clips.
	AudioDuration metric.Float64Histogram

	// DetectRequests counts classification requests. Use with attributes:
	//   attribute.String("source", ...), attribute.String("status", ...)
	DetectRequests metric.Int64Counter

	// Frames counts classified frames.
	Frames metric.Int64Counter

	// VoiceFrames counts frames that ended up labelled voice after smoothing.
	VoiceFrames metric.Int64Counter

	// DetectErrors counts failed requests. Use with attribute:
	//   attribute.String("kind", ...)
	DetectErrors metric.Int64Counter

	// ConfigReloads counts hot reloads of the detector. Use with attribute:
	//   attribute.String("status", ...)
	ConfigReloads metric.Int64Counter

	// ActiveConnections tracks open WebSocket sessions.
	ActiveConnections metric.Int64UpDownCounter

	// HTTPRequestDuration tracks HTTP request processing time. Use with attributes:
	//   attribute.String("method", ...), attribute.String("path", ...)
	HTTPRequestDuration metric.Float64Histogram
}

// latencyBuckets defines histogram bucket boundaries (in seconds). A minute
// of 16 kHz audio classifies in a few milliseconds on one core.
var latencyBuckets = []float64{
	0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5,
}

// audioBuckets defines clip-length bucket boundaries (in seconds).
var audioBuckets = []float64{
	0.1, 0.5, 1, 2, 5, 10, 30, 60, 300, 900,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	// Histograms.
	if met.DetectDuration, err = m.Float64Histogram("spectravad.detect.duration",
		metric.WithDescription("Wall time spent classifying one clip."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.AudioDuration, err = m.Float64Histogram("spectravad.detect.audio_duration",
		metric.WithDescription("Length of the classified audio clips."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(audioBuckets...),
	); err != nil {
		return nil, err
	}

	// Counters.
	if met.DetectRequests, err = m.Int64Counter("spectravad.detect.requests",
		metric.WithDescription("Total classification requests by source and status."),
	); err != nil {
		return nil, err
	}
	if met.Frames, err = m.Int64Counter("spectravad.detect.frames",
		metric.WithDescription("Total classified 10 ms frames."),
	); err != nil {
		return nil, err
	}
	if met.VoiceFrames, err = m.Int64Counter("spectravad.detect.voice_frames",
		metric.WithDescription("Total frames labelled voice."),
	); err != nil {
		return nil, err
	}
	if met.DetectErrors, err = m.Int64Counter("spectravad.detect.errors",
		metric.WithDescription("Total failed classification requests by error kind."),
	); err != nil {
		return nil, err
	}
	if met.ConfigReloads, err = m.Int64Counter("spectravad.config.reloads",
		metric.WithDescription("Total detector reloads by status."),
	); err != nil {
		return nil, err
	}

	// Gauges (UpDownCounters).
	if met.ActiveConnections, err = m.Int64UpDownCounter("spectravad.active_connections",
		metric.WithDescription("Number of open WebSocket sessions."),
	); err != nil {
		return nil, err
	}

	// HTTP middleware histogram.
	if met.HTTPRequestDuration, err = m.Float64Histogram("spectravad.http.request.duration",
		metric.WithDescription("HTTP request latency by method and path."),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	return met, nil
}

var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level [Metrics] instance, creating it on
// first call using [otel.GetMeterProvider]. Subsequent calls return the same
// pointer. Panics if instrument creation fails.
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: failed to create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}

// Attr is a convenience alias for [attribute.String] to reduce verbosity at
// call sites.
func Attr(key, value string) attribute.KeyValue {
	return attribute.String(key, value)
}

// Detection describes one successfully classified clip.
type Detection struct {
	Source      string // "http", "ws" or "cli"
	Elapsed     time.Duration
	Audio       time.Duration
	Frames      int
	VoiceFrames int
}

// RecordDetection records the request counter, latency, clip length and
// frame counters for a successful classification.
func (m *Metrics) RecordDetection(ctx context.Context, d Detection) {
	src := metric.WithAttributes(attribute.String("source", d.Source))
	m.DetectRequests.Add(ctx, 1, metric.WithAttributes(
		attribute.String("source", d.Source),
		attribute.String("status", StatusOK),
	))
	m.DetectDuration.Record(ctx, d.Elapsed.Seconds(), src)
	m.AudioDuration.Record(ctx, d.Audio.Seconds(), src)
	m.Frames.Add(ctx, int64(d.Frames), src)
	m.VoiceFrames.Add(ctx, int64(d.VoiceFrames), src)
}

// RecordDetectError records a failed request from source. kind is a short
// classification such as "decode" or "rate_mismatch".
func (m *Metrics) RecordDetectError(ctx context.Context, source, kind string) {
	m.DetectRequests.Add(ctx, 1, metric.WithAttributes(
		attribute.String("source", source),
		attribute.String("status", StatusError),
	))
	m.DetectErrors.Add(ctx, 1, metric.WithAttributes(
		attribute.String("source", source),
		attribute.String("kind", kind),
	))
}

// RecordConfigReload records a detector reload attempt.
func (m *Metrics) RecordConfigReload(ctx context.Context, status string) {
	m.ConfigReloads.Add(ctx, 1, metric.WithAttributes(attribute.String("status", status)))
}
