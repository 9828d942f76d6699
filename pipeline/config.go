package pipeline

import (
	"context"
	"runtime"
	"time"

	"github.com/google/uuid"

	"github.com/kbukum/recordbind/errors"
	"github.com/kbukum/recordbind/logger"
)

// Recorder receives conversion telemetry. observability.ConversionMetrics
// implements it on OpenTelemetry instruments.
type Recorder interface {
	RecordConversion(ctx context.Context, status string, d time.Duration)
	RecordCaptured(ctx context.Context, kind string)
	RecordTerminal(ctx context.Context, kind string)
	AddInFlight(ctx context.Context, delta int64)
}

// Config holds the runtime settings of a pipeline run.
type Config struct {
	// Ordered emits results in submission order when true (default).
	Ordered bool
	// Workers is the number of concurrent converters. Defaults to GOMAXPROCS.
	Workers int
	// QueueSize bounds the number of units waiting for a worker. Defaults to 2*Workers.
	QueueSize int
	// Policy decides the fate of per-record errors. Takes precedence over
	// WithThrowOnError when both are given.
	Policy ErrorPolicy
	// RunID tags log lines of this run. Generated when empty.
	RunID string
	// Logger receives pipeline lifecycle and captured-error logs.
	Logger *logger.Logger
	// Metrics receives conversion telemetry. Nil disables it.
	Metrics Recorder

	throwOnError *bool
}

// Option configures a pipeline.
type Option func(*Config)

// WithOrdered selects ordered (true) or unordered (false) emission.
func WithOrdered(ordered bool) Option {
	return func(c *Config) { c.Ordered = ordered }
}

// WithWorkers sets the number of concurrent converters.
func WithWorkers(n int) Option {
	return func(c *Config) { c.Workers = n }
}

// WithQueueSize sets how many submitted units may wait for a worker.
func WithQueueSize(n int) Option {
	return func(c *Config) { c.QueueSize = n }
}

// WithErrorPolicy installs a custom per-record error policy.
func WithErrorPolicy(p ErrorPolicy) Option {
	return func(c *Config) { c.Policy = p }
}

// WithThrowOnError selects ThrowPolicy (true) or CollectPolicy (false).
// Ignored when WithErrorPolicy is also given.
func WithThrowOnError(throw bool) Option {
	return func(c *Config) { c.throwOnError = &throw }
}

// WithLogger sets the logger for the run.
func WithLogger(l *logger.Logger) Option {
	return func(c *Config) { c.Logger = l }
}

// WithMetrics sets the telemetry recorder.
func WithMetrics(r Recorder) Option {
	return func(c *Config) { c.Metrics = r }
}

// WithRunID sets the run identifier used in logs.
func WithRunID(id string) Option {
	return func(c *Config) { c.RunID = id }
}

// NewConfig applies opts over the defaults.
func NewConfig(opts ...Option) Config {
	c := Config{Ordered: true}
	for _, opt := range opts {
		opt(&c)
	}
	c.ApplyDefaults()
	return c
}

// ApplyDefaults fills in zero-valued settings.
func (c *Config) ApplyDefaults() {
	if c.Workers <= 0 {
		c.Workers = runtime.GOMAXPROCS(0)
	}
	if c.QueueSize <= 0 {
		c.QueueSize = 2 * c.Workers
	}
	if c.Policy == nil {
		if c.throwOnError != nil && !*c.throwOnError {
			c.Policy = CollectPolicy
		} else {
			c.Policy = ThrowPolicy
		}
	}
	if c.RunID == "" {
		c.RunID = uuid.NewString()
	}
	if c.Logger == nil {
		c.Logger = logger.Get("pipeline")
	}
	c.Logger = c.Logger.WithFields(logger.Fields(logger.FieldRunID, c.RunID))
}

// Validate checks settings that cannot be defaulted.
func (c *Config) Validate() error {
	if c.Workers < 1 {
		return errors.BadConfiguration("workers must be at least 1")
	}
	if c.QueueSize < 1 {
		return errors.BadConfiguration("queue size must be at least 1")
	}
	return nil
}

// nopRecorder is used when no metrics recorder is configured.
type nopRecorder struct{}

func (nopRecorder) RecordConversion(context.Context, string, time.Duration) {}
func (nopRecorder) RecordCaptured(context.Context, string)                  {}
func (nopRecorder) RecordTerminal(context.Context, string)                  {}
func (nopRecorder) AddInFlight(context.Context, int64)                      {}

func (c *Config) recorder() Recorder {
	if c.Metrics == nil {
		return nopRecorder{}
	}
	return c.Metrics
}
