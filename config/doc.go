// Package config loads recordbind configuration from a YAML file, an optional
// .env file and RECORDBIND_* environment variables, using Viper.
//
// # Usage
//
//	var cfg config.Config
//	if err := config.LoadConfig("recordbind", &cfg, config.WithConfigFile(path)); err != nil {
//	    return err
//	}
//	cfg.ApplyDefaults()
//	if err := cfg.Validate(); err != nil {
//	    return err
//	}
//	p, err := pipeline.NewOrdered(stage, cfg.Pipeline.Options()...)
//
// Environment variables override file values with underscore-separated paths,
// e.g. RECORDBIND_PIPELINE_WORKERS=8.
package config
