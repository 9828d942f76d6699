// Package bootstrap wires the ambient stack around a recordbind conversion:
// configuration, logging, OpenTelemetry export and OS signal handling.
//
// # Quick Start
//
//	var cfg config.Config
//	_ = config.LoadConfig("recordbind", &cfg)
//	app, err := bootstrap.NewApp(&cfg)
//	if err != nil {
//	    return err
//	}
//	return app.RunTask(ctx, func(ctx context.Context) error {
//	    reader, _ := binding.NewReader(src, schema, app.PipelineOptions("convert")...)
//	    _, err := reader.Parse(ctx)
//	    return err
//	})
//
// After the task, app.Summary.Display prints a per-run report.
package bootstrap
