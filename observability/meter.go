package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/kbukum/seqkit/logger"
)

// InitMeter initializes the OpenTelemetry meter provider and installs it
// globally. The caller shuts it down on exit.
func InitMeter(ctx context.Context, cfg Config) (*sdkmetric.MeterProvider, error) {
	opts := []otlpmetrichttp.Option{
		otlpmetrichttp.WithEndpoint(cfg.Endpoint),
	}
	if cfg.Insecure {
		opts = append(opts, otlpmetrichttp.WithInsecure())
	}

	exporter, err := otlpmetrichttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating metric exporter: %w", err)
	}

	res, err := newResource(cfg.ServiceName, cfg.ServiceVersion, cfg.Environment)
	if err != nil {
		return nil, fmt.Errorf("creating resource: %w", err)
	}

	var readerOpts []sdkmetric.PeriodicReaderOption
	if cfg.MetricInterval > 0 {
		readerOpts = append(readerOpts, sdkmetric.WithInterval(cfg.MetricInterval))
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, readerOpts...)),
		sdkmetric.WithResource(res),
	)

	otel.SetMeterProvider(mp)

	logger.Info("meter initialized", logger.Fields(
		"service", cfg.ServiceName,
		"endpoint", cfg.Endpoint,
		"interval", cfg.MetricInterval.String(),
	))

	return mp, nil
}

// Meter returns a named meter from the global provider.
func Meter(name string) metric.Meter {
	return otel.Meter(name)
}

// Instrument names.
const (
	MetricElements          = "pipeline.elements"
	MetricIteratorsActive   = "pipeline.iterators.active"
	MetricOperationDuration = "pipeline.operation.duration"
	MetricErrors            = "pipeline.errors"
)

// PipelineMetrics holds the instruments a pipeline reports through.
type PipelineMetrics struct {
	elements          metric.Int64Counter
	iteratorsActive   metric.Int64UpDownCounter
	operationDuration metric.Float64Histogram
	errors            metric.Int64Counter
}

// NewPipelineMetrics creates pipeline instruments on the given meter.
func NewPipelineMetrics(meter metric.Meter) (*PipelineMetrics, error) {
	elements, err := meter.Int64Counter(MetricElements,
		metric.WithDescription("Elements produced by instrumented pipelines"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating %s counter: %w", MetricElements, err)
	}

	active, err := meter.Int64UpDownCounter(MetricIteratorsActive,
		metric.WithDescription("Iterators opened and not yet closed"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating %s counter: %w", MetricIteratorsActive, err)
	}

	duration, err := meter.Float64Histogram(MetricOperationDuration,
		metric.WithDescription("Iterator lifetime from open to close in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating %s histogram: %w", MetricOperationDuration, err)
	}

	errorTotal, err := meter.Int64Counter(MetricErrors,
		metric.WithDescription("Errors surfaced by instrumented pipelines, by status"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating %s counter: %w", MetricErrors, err)
	}

	return &PipelineMetrics{
		elements:          elements,
		iteratorsActive:   active,
		operationDuration: duration,
		errors:            errorTotal,
	}, nil
}

// RecordOpen marks an iterator as active.
func (m *PipelineMetrics) RecordOpen(ctx context.Context, operator string) {
	m.iteratorsActive.Add(ctx, 1, metric.WithAttributes(attribute.String(AttrOperator, operator)))
}

// RecordElements adds n produced elements.
func (m *PipelineMetrics) RecordElements(ctx context.Context, operator string, n int64) {
	m.elements.Add(ctx, n, metric.WithAttributes(attribute.String(AttrOperator, operator)))
}

// RecordClose marks an iterator inactive and records its lifetime.
func (m *PipelineMetrics) RecordClose(ctx context.Context, operator, status string, lifetime time.Duration) {
	m.iteratorsActive.Add(ctx, -1, metric.WithAttributes(attribute.String(AttrOperator, operator)))
	m.operationDuration.Record(ctx, lifetime.Seconds(), metric.WithAttributes(
		attribute.String(AttrOperator, operator),
		attribute.String(AttrStatus, status),
	))
}

// RecordError counts an error or cancellation.
func (m *PipelineMetrics) RecordError(ctx context.Context, operator, status string) {
	m.errors.Add(ctx, 1, metric.WithAttributes(
		attribute.String(AttrOperator, operator),
		attribute.String(AttrStatus, status),
	))
}
