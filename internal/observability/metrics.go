// Package observability provides tracing middleware and OTel metric
// instruments exported through Prometheus.
package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	metricRequestsTotal    = "legacyfix.requests.total"
	metricRequestDuration  = "legacyfix.request.duration.seconds"
	metricErrorsTotal      = "legacyfix.errors.total"
	metricInflightRequests = "legacyfix.inflight.requests"

	metricFilesTotal       = "legacyfix.analysis.files.total"
	metricFileDuration     = "legacyfix.analysis.file.duration.seconds"
	metricSuggestionsTotal = "legacyfix.analysis.suggestions.total"

	attrOp      = "op"
	attrStatus  = "status"
	attrOutcome = "outcome"

	statusOK    = "ok"
	statusError = "error"
)

// durationBucketBoundaries covers 10ms to 60s; suggestion calls dominate.
var durationBucketBoundaries = []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60}

// metricBuilder accumulates instrument creation errors so a set of
// instruments can be built with a single error check.
type metricBuilder struct {
	meter metric.Meter
	err   error
}

func newMetricBuilder(mt metric.Meter) *metricBuilder {
	return &metricBuilder{meter: mt}
}

func (b *metricBuilder) counter(name, desc, unit string) metric.Int64Counter {
	c, err := b.meter.Int64Counter(name, metric.WithDescription(desc), metric.WithUnit(unit))
	b.setErr(name, err)

	return c
}

func (b *metricBuilder) histogram(name, desc, unit string, bounds ...float64) metric.Float64Histogram {
	opts := []metric.Float64HistogramOption{
		metric.WithDescription(desc),
		metric.WithUnit(unit),
	}
	if len(bounds) > 0 {
		opts = append(opts, metric.WithExplicitBucketBoundaries(bounds...))
	}

	h, err := b.meter.Float64Histogram(name, opts...)
	b.setErr(name, err)

	return h
}

func (b *metricBuilder) upDownCounter(name, desc, unit string) metric.Int64UpDownCounter {
	c, err := b.meter.Int64UpDownCounter(name, metric.WithDescription(desc), metric.WithUnit(unit))
	b.setErr(name, err)

	return c
}

func (b *metricBuilder) setErr(name string, err error) {
	if err != nil && b.err == nil {
		b.err = fmt.Errorf("create %s: %w", name, err)
	}
}

// REDMetrics holds the Rate, Error, Duration instruments for HTTP routes.
type REDMetrics struct {
	requestsTotal    metric.Int64Counter
	requestDuration  metric.Float64Histogram
	errorsTotal      metric.Int64Counter
	inflightRequests metric.Int64UpDownCounter
}

// NewREDMetrics creates RED metric instruments from the given meter.
func NewREDMetrics(mt metric.Meter) (*REDMetrics, error) {
	b := newMetricBuilder(mt)

	rm := &REDMetrics{
		requestsTotal:    b.counter(metricRequestsTotal, "Total number of requests", "{request}"),
		requestDuration:  b.histogram(metricRequestDuration, "Request duration in seconds", "s", durationBucketBoundaries...),
		errorsTotal:      b.counter(metricErrorsTotal, "Total number of errors", "{error}"),
		inflightRequests: b.upDownCounter(metricInflightRequests, "Number of in-flight requests", "{request}"),
	}
	if b.err != nil {
		return nil, b.err
	}

	return rm, nil
}

// RecordRequest records a completed request. Safe on a nil receiver.
func (rm *REDMetrics) RecordRequest(ctx context.Context, op, status string, duration time.Duration) {
	if rm == nil {
		return
	}

	attrs := metric.WithAttributes(
		attribute.String(attrOp, op),
		attribute.String(attrStatus, status),
	)

	rm.requestsTotal.Add(ctx, 1, attrs)
	rm.requestDuration.Record(ctx, duration.Seconds(), attrs)

	if status == statusError {
		rm.errorsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String(attrOp, op)))
	}
}

// TrackInflight increments the in-flight gauge and returns the matching decrement.
func (rm *REDMetrics) TrackInflight(ctx context.Context, op string) func() {
	if rm == nil {
		return func() {}
	}

	attrs := metric.WithAttributes(attribute.String(attrOp, op))
	rm.inflightRequests.Add(ctx, 1, attrs)

	return func() {
		rm.inflightRequests.Add(ctx, -1, attrs)
	}
}

// AnalysisMetrics counts analyzed files by outcome.
type AnalysisMetrics struct {
	filesTotal       metric.Int64Counter
	fileDuration     metric.Float64Histogram
	suggestionsTotal metric.Int64Counter
}

// NewAnalysisMetrics creates the analysis instruments from the given meter.
func NewAnalysisMetrics(mt metric.Meter) (*AnalysisMetrics, error) {
	b := newMetricBuilder(mt)

	am := &AnalysisMetrics{
		filesTotal:       b.counter(metricFilesTotal, "Files analyzed by outcome", "{file}"),
		fileDuration:     b.histogram(metricFileDuration, "Per-file pipeline duration in seconds", "s", durationBucketBoundaries...),
		suggestionsTotal: b.counter(metricSuggestionsTotal, "Merged suggestions produced", "{suggestion}"),
	}
	if b.err != nil {
		return nil, b.err
	}

	return am, nil
}

// RecordFile records one finished file pipeline. Safe on a nil receiver.
func (am *AnalysisMetrics) RecordFile(ctx context.Context, outcome string, suggestions int, duration time.Duration) {
	if am == nil {
		return
	}

	attrs := metric.WithAttributes(attribute.String(attrOutcome, outcome))
	am.filesTotal.Add(ctx, 1, attrs)
	am.fileDuration.Record(ctx, duration.Seconds(), attrs)
	am.suggestionsTotal.Add(ctx, int64(suggestions))
}
