package bootstrap

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kbukum/recordbind/config"
	"github.com/kbukum/recordbind/logger"
	"github.com/kbukum/recordbind/observability"
	"github.com/kbukum/recordbind/pipeline"
	"github.com/kbukum/recordbind/version"
)

// App runs one conversion task with uniform setup and teardown: logging,
// optional OpenTelemetry export, signal cancellation and a closing summary.
//
// Example:
//
//	app, err := bootstrap.NewApp(&cfg)
//	err = app.RunTask(ctx, func(ctx context.Context) error {
//	    return convert(ctx, app.PipelineOptions("convert")...)
//	})
type App struct {
	Name    string
	Version string
	Cfg     *config.Config
	Logger  *logger.Logger
	Summary *Summary

	gracefulTimeout time.Duration
	recorder        pipeline.Recorder

	onStart []Hook
	onStop  []Hook
}

// NewApp applies defaults, validates the config and initializes the logger.
func NewApp(cfg *config.Config, opts ...Option) (*App, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	app := &App{
		Name:            cfg.Name,
		Version:         version.Get().Short(),
		Cfg:             cfg,
		gracefulTimeout: 15 * time.Second,
	}

	o := resolveOptions(opts)
	if o.gracefulTimeout != nil {
		app.gracefulTimeout = *o.gracefulTimeout
	}
	if o.logger != nil {
		app.Logger = o.logger
	} else {
		logger.Init(cfg.Logging)
		logger.RegisterDefaults()
		app.Logger = logger.GetGlobalLogger()
	}
	app.Summary = NewSummary(app.Name, app.Version)
	return app, nil
}

// PipelineOptions returns the configured pipeline options for a named run,
// with the app logger and, when export is enabled, the metrics recorder.
func (a *App) PipelineOptions(run string) []pipeline.Option {
	opts := a.Cfg.Pipeline.Options()
	opts = append(opts, pipeline.WithLogger(a.Logger.WithComponent(run)))
	if a.recorder != nil {
		opts = append(opts, pipeline.WithMetrics(a.recorder))
	}
	return opts
}

// RunTask runs task to completion. SIGINT and SIGTERM cancel the task's
// context; stop hooks run afterwards in every case.
func (a *App) RunTask(ctx context.Context, task func(ctx context.Context) error) error {
	start := time.Now()
	if err := a.startup(ctx); err != nil {
		return err
	}

	taskCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	go func() {
		select {
		case sig := <-sigCh:
			a.Logger.Info("received signal, cancelling task", logger.Fields("signal", sig.String()))
			cancel()
		case <-taskCtx.Done():
		}
	}()

	taskErr := task(taskCtx)
	a.Summary.SetDuration(time.Since(start))

	if stopErr := a.stop(); stopErr != nil && taskErr == nil {
		return stopErr
	}
	return taskErr
}

func (a *App) startup(ctx context.Context) error {
	a.Logger.Debug("starting", logger.Fields("name", a.Name, "version", a.Version))
	if a.Cfg.Observability.Enabled {
		if err := a.initObservability(ctx); err != nil {
			return fmt.Errorf("observability: %w", err)
		}
	}
	if err := runHooks(ctx, a.onStart); err != nil {
		return fmt.Errorf("onStart hook failed: %w", err)
	}
	return nil
}

func (a *App) initObservability(ctx context.Context) error {
	obs := a.Cfg.Observability
	obs.ServiceVersion = a.Version

	tp, err := observability.InitTracer(ctx, obs.TracerConfig())
	if err != nil {
		return err
	}
	a.OnStop(tp.Shutdown)

	mp, err := observability.InitMeter(ctx, obs.MeterConfig())
	if err != nil {
		return err
	}
	a.OnStop(mp.Shutdown)

	metrics, err := observability.NewConversionMetrics(observability.Meter(a.Name), a.Name)
	if err != nil {
		return err
	}
	a.recorder = metrics
	return nil
}

// stop runs stop hooks within the graceful timeout. Every hook runs; the
// first error is returned.
func (a *App) stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), a.gracefulTimeout)
	defer cancel()

	var firstErr error
	for i := len(a.onStop) - 1; i >= 0; i-- {
		if err := a.onStop[i](ctx); err != nil {
			a.Logger.Error("onStop hook error", logger.ErrorFields("shutdown", err))
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	a.Logger.Debug("shutdown complete")
	return firstErr
}
