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

	"github.com/kbukum/recordbind/logger"
	"github.com/kbukum/recordbind/pipeline"
)

// MeterConfig configures the OpenTelemetry meter provider.
type MeterConfig struct {
	// ServiceName is the name of the service.
	ServiceName string
	// ServiceVersion is the version of the service.
	ServiceVersion string
	// Environment is the deployment environment (dev, staging, prod).
	Environment string
	// Endpoint is the OTLP HTTP endpoint host:port (e.g., "localhost:4318").
	Endpoint string
	// Insecure allows insecure connections (for development).
	Insecure bool
	// Interval is the metric export interval.
	Interval time.Duration
}

// InitMeter initializes the OpenTelemetry meter provider.
// Returns a MeterProvider that should be shut down on application exit.
func InitMeter(ctx context.Context, config *MeterConfig) (*sdkmetric.MeterProvider, error) {
	opts := []otlpmetrichttp.Option{
		otlpmetrichttp.WithEndpoint(config.Endpoint),
	}
	if config.Insecure {
		opts = append(opts, otlpmetrichttp.WithInsecure())
	}

	exporter, err := otlpmetrichttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating metric exporter: %w", err)
	}

	res, err := newResource(config.ServiceName, config.ServiceVersion, config.Environment)
	if err != nil {
		return nil, fmt.Errorf("creating resource: %w", err)
	}

	readerOpts := []sdkmetric.PeriodicReaderOption{}
	if config.Interval > 0 {
		readerOpts = append(readerOpts, sdkmetric.WithInterval(config.Interval))
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, readerOpts...)),
		sdkmetric.WithResource(res),
	)

	otel.SetMeterProvider(mp)

	logger.Info("meter initialized", logger.Fields(
		"service", config.ServiceName,
		"endpoint", config.Endpoint,
		"interval", config.Interval.String(),
	))

	return mp, nil
}

// Meter returns a named meter from the global provider.
func Meter(name string) metric.Meter {
	return otel.Meter(name)
}

// Metric instrument names.
const (
	MetricConversionTotal    = "recordbind.conversion.total"
	MetricConversionDuration = "recordbind.conversion.duration"
	MetricInFlight           = "recordbind.conversion.inflight"
	MetricCaptured           = "recordbind.conversion.captured"
	MetricTerminal           = "recordbind.pipeline.terminal"
)

var _ pipeline.Recorder = (*ConversionMetrics)(nil)

// ConversionMetrics records per-unit pipeline telemetry on OpenTelemetry
// instruments. It implements pipeline.Recorder.
type ConversionMetrics struct {
	component string
	total     metric.Int64Counter
	duration  metric.Float64Histogram
	inflight  metric.Int64UpDownCounter
	captured  metric.Int64Counter
	terminal  metric.Int64Counter
}

// NewConversionMetrics creates the instruments on meter. component labels
// every measurement, e.g. "reader" or "writer".
func NewConversionMetrics(meter metric.Meter, component string) (*ConversionMetrics, error) {
	total, err := meter.Int64Counter(MetricConversionTotal,
		metric.WithDescription("Conversion units processed, by outcome"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating %s counter: %w", MetricConversionTotal, err)
	}

	duration, err := meter.Float64Histogram(MetricConversionDuration,
		metric.WithDescription("Duration of one conversion unit in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating %s histogram: %w", MetricConversionDuration, err)
	}

	inflight, err := meter.Int64UpDownCounter(MetricInFlight,
		metric.WithDescription("Units submitted but not yet released to the consumer"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating %s gauge: %w", MetricInFlight, err)
	}

	captured, err := meter.Int64Counter(MetricCaptured,
		metric.WithDescription("Per-record errors suppressed by the error policy, by kind"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating %s counter: %w", MetricCaptured, err)
	}

	terminal, err := meter.Int64Counter(MetricTerminal,
		metric.WithDescription("Runs stopped by a terminal error, by kind"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating %s counter: %w", MetricTerminal, err)
	}

	return &ConversionMetrics{
		component: component,
		total:     total,
		duration:  duration,
		inflight:  inflight,
		captured:  captured,
		terminal:  terminal,
	}, nil
}

// RecordConversion records one finished unit.
func (m *ConversionMetrics) RecordConversion(ctx context.Context, status string, d time.Duration) {
	m.total.Add(ctx, 1, metric.WithAttributes(
		attribute.String("component", m.component),
		attribute.String("status", status),
	))
	m.duration.Record(ctx, d.Seconds(), metric.WithAttributes(
		attribute.String("component", m.component),
	))
}

// RecordCaptured records one suppressed per-record error.
func (m *ConversionMetrics) RecordCaptured(ctx context.Context, kind string) {
	m.captured.Add(ctx, 1, metric.WithAttributes(
		attribute.String("component", m.component),
		attribute.String("kind", kind),
	))
}

// RecordTerminal records the error that stopped a run.
func (m *ConversionMetrics) RecordTerminal(ctx context.Context, kind string) {
	m.terminal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("component", m.component),
		attribute.String("kind", kind),
	))
}

// AddInFlight adjusts the in-flight gauge.
func (m *ConversionMetrics) AddInFlight(ctx context.Context, delta int64) {
	m.inflight.Add(ctx, delta, metric.WithAttributes(
		attribute.String("component", m.component),
	))
}
