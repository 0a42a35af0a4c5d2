// Package observe wires OpenTelemetry metrics and tracing for the companion
// backend. Metrics are exported through a Prometheus bridge and scraped from
// /metrics. Tests should build their own Metrics with NewMetrics and a
// ManualReader-backed provider.
package observe

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/zhouzirui/empathai/backend"

// Metrics holds every instrument the service records. The OTel types handle
// their own synchronisation.
type Metrics struct {
	// ClassifyDuration tracks text emotion classification latency.
	ClassifyDuration metric.Float64Histogram

	// RespondDuration tracks empathetic response generation latency.
	RespondDuration metric.Float64Histogram

	// Submissions counts pipeline runs by attribute "status"
	// (complete, failed, rejected).
	Submissions metric.Int64Counter

	// FinalEmotions counts fused labels by attribute "emotion".
	FinalEmotions metric.Int64Counter

	// ProviderErrors counts remote model failures by "stage".
	ProviderErrors metric.Int64Counter

	// ActiveSessions and ActiveCameras are gauges kept as UpDownCounters.
	ActiveSessions metric.Int64UpDownCounter
	ActiveCameras  metric.Int64UpDownCounter

	// HTTPRequestDuration tracks request latency by "method" and "route".
	HTTPRequestDuration metric.Float64Histogram
}

// latencyBuckets are tuned for LLM round trips (seconds).
var latencyBuckets = []float64{
	0.05, 0.1, 0.25, 0.5, 1, 2, 4, 8, 15, 30,
}

// NewMetrics creates all instruments on the given provider.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.ClassifyDuration, err = m.Float64Histogram("empathai.classify.duration",
		metric.WithDescription("Latency of text emotion classification."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.RespondDuration, err = m.Float64Histogram("empathai.respond.duration",
		metric.WithDescription("Latency of empathetic response generation."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.Submissions, err = m.Int64Counter("empathai.submissions",
		metric.WithDescription("Text submissions by outcome."),
	); err != nil {
		return nil, err
	}
	if met.FinalEmotions, err = m.Int64Counter("empathai.final_emotions",
		metric.WithDescription("Fused final emotions by label."),
	); err != nil {
		return nil, err
	}
	if met.ProviderErrors, err = m.Int64Counter("empathai.provider.errors",
		metric.WithDescription("Remote model failures by pipeline stage."),
	); err != nil {
		return nil, err
	}
	if met.ActiveSessions, err = m.Int64UpDownCounter("empathai.active_sessions",
		metric.WithDescription("Number of live companion sessions."),
	); err != nil {
		return nil, err
	}
	if met.ActiveCameras, err = m.Int64UpDownCounter("empathai.active_cameras",
		metric.WithDescription("Number of running simulated cameras."),
	); err != nil {
		return nil, err
	}
	if met.HTTPRequestDuration, err = m.Float64Histogram("empathai.http.request.duration",
		metric.WithDescription("HTTP request latency by method and route."),
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

// DefaultMetrics returns a package-level instance bound to the global meter
// provider. Call it after InitProvider so instruments reach the exporter.
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

// RecordSubmission increments the submission counter for status.
func (m *Metrics) RecordSubmission(ctx context.Context, status string) {
	m.Submissions.Add(ctx, 1, metric.WithAttributes(attribute.String("status", status)))
}

// RecordFinalEmotion increments the per-label counter.
func (m *Metrics) RecordFinalEmotion(ctx context.Context, label string) {
	m.FinalEmotions.Add(ctx, 1, metric.WithAttributes(attribute.String("emotion", label)))
}

// RecordProviderError increments the provider error counter for stage.
func (m *Metrics) RecordProviderError(ctx context.Context, stage string) {
	m.ProviderErrors.Add(ctx, 1, metric.WithAttributes(attribute.String("stage", stage)))
}
