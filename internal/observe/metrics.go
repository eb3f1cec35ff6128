// Package observe provides OpenTelemetry metrics for the coaching pipeline.
//
// Metrics are recorded through the OTel Metrics API and exported through a
// Prometheus bridge set up by [InitProvider], so they can be scraped from the
// standard /metrics endpoint. A package-level default [Metrics] instance
// ([DefaultMetrics]) is provided for convenience; tests should use
// [NewMetrics] with their own [metric.MeterProvider] to avoid cross-test
// pollution.
package observe

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope for all LingoMirror metrics.
const meterName = "github.com/MrWong99/lingomirror"

// Metrics holds the metric instruments of the coaching pipeline. The
// underlying OTel types handle their own synchronisation.
type Metrics struct {
	// --- Latency histograms per pipeline stage ---

	// STTDuration tracks speech-to-text transcription latency.
	STTDuration metric.Float64Histogram

	// LLMDuration tracks completion latency of the coaching model.
	LLMDuration metric.Float64Histogram

	// TTSDuration tracks speech synthesis latency.
	TTSDuration metric.Float64Histogram

	// TurnDuration tracks end-to-end latency of one coaching turn, from
	// utterance received to decoded (and optionally vocalised) reply.
	TurnDuration metric.Float64Histogram

	// --- Counters ---

	// Turns counts completed coaching turns. Use with attributes:
	//   attribute.String("persona", ...), attribute.String("branch", "reply"|"feedback")
	Turns metric.Int64Counter

	// Hints counts hint requests. Use with attribute:
	//   attribute.String("level", ...)
	Hints metric.Int64Counter

	// DecodeFallbacks counts completions that missed the output contract and
	// were decoded through the whole-text fallback.
	DecodeFallbacks metric.Int64Counter

	// ProviderErrors counts backend errors. Use with attributes:
	//   attribute.String("provider", ...), attribute.String("kind", ...)
	ProviderErrors metric.Int64Counter

	// --- Score distribution ---

	// Scores tracks the persona-alignment scores awarded per turn.
	Scores metric.Int64Histogram
}

// latencyBuckets defines histogram boundaries (in seconds) sized for
// remote-inference latencies.
var latencyBuckets = []float64{
	0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10,
}

// scoreBuckets splits the 0-100 score range around the pass boundary.
var scoreBuckets = []float64{
	0, 20, 40, 60, 70, 80, 90, 100,
}

// NewMetrics creates a fully initialised [Metrics] using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	// Histograms.
	if met.STTDuration, err = m.Float64Histogram("lingomirror.stt.duration",
		metric.WithDescription("Latency of speech-to-text transcription."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.LLMDuration, err = m.Float64Histogram("lingomirror.llm.duration",
		metric.WithDescription("Latency of coaching completions."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.TTSDuration, err = m.Float64Histogram("lingomirror.tts.duration",
		metric.WithDescription("Latency of speech synthesis."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.TurnDuration, err = m.Float64Histogram("lingomirror.turn.duration",
		metric.WithDescription("End-to-end latency of one coaching turn."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.Scores, err = m.Int64Histogram("lingomirror.turn.score",
		metric.WithDescription("Persona-alignment scores awarded per turn."),
		metric.WithExplicitBucketBoundaries(scoreBuckets...),
	); err != nil {
		return nil, err
	}

	// Counters.
	if met.Turns, err = m.Int64Counter("lingomirror.turns",
		metric.WithDescription("Completed coaching turns by persona and branch."),
	); err != nil {
		return nil, err
	}
	if met.Hints, err = m.Int64Counter("lingomirror.hints",
		metric.WithDescription("Hint requests by diagnosed level."),
	); err != nil {
		return nil, err
	}
	if met.DecodeFallbacks, err = m.Int64Counter("lingomirror.decode.fallbacks",
		metric.WithDescription("Completions decoded through the whole-text fallback."),
	); err != nil {
		return nil, err
	}
	if met.ProviderErrors, err = m.Int64Counter("lingomirror.provider.errors",
		metric.WithDescription("Backend errors by provider and kind."),
	); err != nil {
		return nil, err
	}

	return met, nil
}

var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level [Metrics], creating it on first
// call from [otel.GetMeterProvider]. Panics if instrument creation fails,
// which cannot happen with the global provider.
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

// RecordTurn records one completed coaching turn with its branch and score.
func (m *Metrics) RecordTurn(ctx context.Context, persona string, isFeedback bool, score int) {
	branch := "reply"
	if isFeedback {
		branch = "feedback"
	}
	m.Turns.Add(ctx, 1, metric.WithAttributes(
		attribute.String("persona", persona),
		attribute.String("branch", branch),
	))
	m.Scores.Record(ctx, int64(score))
}

// RecordHint records one hint request.
func (m *Metrics) RecordHint(ctx context.Context, level string) {
	m.Hints.Add(ctx, 1, metric.WithAttributes(attribute.String("level", level)))
}

// RecordProviderError records one backend error.
func (m *Metrics) RecordProviderError(ctx context.Context, provider, kind string) {
	m.ProviderErrors.Add(ctx, 1, metric.WithAttributes(
		attribute.String("provider", provider),
		attribute.String("kind", kind),
	))
}
