package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	otelmetric "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/sdk/metric"

	"risk-analytics/internal/common/logger"
)

// Observability owns the otel meter provider. Instruments are exported through
// the default prometheus registry alongside the promauto collectors.
type Observability struct {
	meterProvider *metric.MeterProvider
	jobCounter    otelmetric.Int64Counter
	jobDuration   otelmetric.Float64Histogram
	coverage      otelmetric.Float64Histogram
}

func New(serviceName string, log logger.Logger) *Observability {
	exporter, err := prometheus.New()
	if err != nil {
		log.Warn("failed to create prometheus exporter", map[string]interface{}{"error": err})
		return &Observability{}
	}

	provider := metric.NewMeterProvider(metric.WithReader(exporter))
	otel.SetMeterProvider(provider)

	meter := provider.Meter(serviceName)

	jobCounter, _ := meter.Int64Counter(
		"analytics.jobs.processed",
		otelmetric.WithDescription("Number of analytics jobs processed"),
	)
	jobDuration, _ := meter.Float64Histogram(
		"analytics.jobs.duration",
		otelmetric.WithDescription("Analytics job processing duration"),
		otelmetric.WithUnit("ms"),
	)
	coverage, _ := meter.Float64Histogram(
		"analytics.portfolio.coverage",
		otelmetric.WithDescription("Parameter coverage percentage of aggregated portfolios"),
		otelmetric.WithUnit("%"),
	)

	return &Observability{
		meterProvider: provider,
		jobCounter:    jobCounter,
		jobDuration:   jobDuration,
		coverage:      coverage,
	}
}

// NewNoop returns an Observability whose Record methods do nothing.
func NewNoop() *Observability {
	return &Observability{}
}

func (o *Observability) RecordJobProcessed(ctx context.Context, taskType, status string) {
	if o == nil || o.jobCounter == nil {
		return
	}
	o.jobCounter.Add(ctx, 1, otelmetric.WithAttributes(
		attribute.String("task_type", taskType),
		attribute.String("status", status),
	))
}

func (o *Observability) RecordJobDuration(ctx context.Context, taskType string, duration time.Duration) {
	if o == nil || o.jobDuration == nil {
		return
	}
	o.jobDuration.Record(ctx, float64(duration.Milliseconds()), otelmetric.WithAttributes(
		attribute.String("task_type", taskType),
	))
}

func (o *Observability) RecordCoverage(ctx context.Context, modelType string, pct float64) {
	if o == nil || o.coverage == nil {
		return
	}
	o.coverage.Record(ctx, pct, otelmetric.WithAttributes(
		attribute.String("model_type", modelType),
	))
}

func (o *Observability) Shutdown(ctx context.Context) error {
	if o == nil || o.meterProvider == nil {
		return nil
	}
	return o.meterProvider.Shutdown(ctx)
}
