package config

import (
	"fmt"
	"slices"

	"github.com/kbukum/recordbind/errors"
	"github.com/kbukum/recordbind/logger"
	"github.com/kbukum/recordbind/observability"
	"github.com/kbukum/recordbind/pipeline"
)

// Config is the root configuration of a recordbind process.
type Config struct {
	Name          string               `yaml:"name" mapstructure:"name"`
	Environment   string               `yaml:"environment" mapstructure:"environment"`
	Pipeline      PipelineConfig       `yaml:"pipeline" mapstructure:"pipeline"`
	CSV           CSVConfig            `yaml:"csv" mapstructure:"csv"`
	Logging       logger.Config        `yaml:"logging" mapstructure:"logging"`
	Observability observability.Config `yaml:"observability" mapstructure:"observability"`
}

// ApplyDefaults applies defaults to every section.
func (c *Config) ApplyDefaults() {
	if c.Name == "" {
		c.Name = "recordbind"
	}
	if c.Environment == "" {
		c.Environment = "development"
	}
	c.Pipeline.ApplyDefaults()
	c.CSV.ApplyDefaults()
	c.Logging.ApplyDefaults()
	if c.Observability.ServiceName == "" {
		c.Observability.ServiceName = c.Name
	}
	if c.Observability.Environment == "" {
		c.Observability.Environment = c.Environment
	}
	c.Observability.ApplyDefaults()
}

// Validate validates every section.
func (c *Config) Validate() error {
	validEnvs := []string{"development", "staging", "production", "test"}
	if !slices.Contains(validEnvs, c.Environment) {
		return errors.BadConfiguration(fmt.Sprintf("environment must be one of %v (got: %s)", validEnvs, c.Environment))
	}
	if err := c.Pipeline.Validate(); err != nil {
		return err
	}
	if err := c.CSV.Validate(); err != nil {
		return err
	}
	if err := c.Logging.Validate(); err != nil {
		return errors.BadConfiguration(err.Error())
	}
	if err := c.Observability.Validate(); err != nil {
		return errors.BadConfiguration(err.Error())
	}
	return nil
}

// PipelineConfig holds the conversion pipeline settings.
type PipelineConfig struct {
	// Ordered keeps output in input order. Defaults to true.
	Ordered *bool `yaml:"ordered" mapstructure:"ordered"`
	// Workers is the worker pool size; 0 means GOMAXPROCS.
	Workers int `yaml:"workers" mapstructure:"workers"`
	// QueueSize bounds queued units; 0 means 2*Workers.
	QueueSize int `yaml:"queue_size" mapstructure:"queue_size"`
	// ErrorPolicy is "throw" or "collect".
	ErrorPolicy string `yaml:"error_policy" mapstructure:"error_policy"`
	// Pull selects the sequential, consumer-driven pipeline.
	Pull bool `yaml:"pull" mapstructure:"pull"`
}

// ApplyDefaults applies pipeline defaults.
func (c *PipelineConfig) ApplyDefaults() {
	if c.Ordered == nil {
		ordered := true
		c.Ordered = &ordered
	}
	if c.ErrorPolicy == "" {
		c.ErrorPolicy = "throw"
	}
}

// Validate validates pipeline settings.
func (c *PipelineConfig) Validate() error {
	if c.Workers < 0 {
		return errors.BadConfiguration(fmt.Sprintf("pipeline.workers must not be negative (got: %d)", c.Workers))
	}
	if c.QueueSize < 0 {
		return errors.BadConfiguration(fmt.Sprintf("pipeline.queue_size must not be negative (got: %d)", c.QueueSize))
	}
	if _, err := pipeline.PolicyByName(c.ErrorPolicy); err != nil {
		return err
	}
	return nil
}

// Options converts the settings to pipeline options.
func (c *PipelineConfig) Options() []pipeline.Option {
	opts := []pipeline.Option{
		pipeline.WithWorkers(c.Workers),
		pipeline.WithQueueSize(c.QueueSize),
	}
	if c.Ordered != nil {
		opts = append(opts, pipeline.WithOrdered(*c.Ordered))
	}
	if policy, err := pipeline.PolicyByName(c.ErrorPolicy); err == nil {
		opts = append(opts, pipeline.WithErrorPolicy(policy))
	}
	return opts
}

// CSVConfig holds the CSV dialect.
type CSVConfig struct {
	Comma            string `yaml:"comma" mapstructure:"comma"`
	Comment          string `yaml:"comment" mapstructure:"comment"`
	LazyQuotes       bool   `yaml:"lazy_quotes" mapstructure:"lazy_quotes"`
	TrimLeadingSpace bool   `yaml:"trim_leading_space" mapstructure:"trim_leading_space"`
	SkipLines        int    `yaml:"skip_lines" mapstructure:"skip_lines"`
	UseCRLF          bool   `yaml:"use_crlf" mapstructure:"use_crlf"`
}

// ApplyDefaults applies the RFC 4180 dialect.
func (c *CSVConfig) ApplyDefaults() {
	if c.Comma == "" {
		c.Comma = ","
	}
}

// Validate checks that separators are single characters.
func (c *CSVConfig) Validate() error {
	if len([]rune(c.Comma)) != 1 {
		return errors.BadConfiguration(fmt.Sprintf("csv.comma must be a single character (got: %q)", c.Comma))
	}
	if c.Comment != "" && len([]rune(c.Comment)) != 1 {
		return errors.BadConfiguration(fmt.Sprintf("csv.comment must be a single character (got: %q)", c.Comment))
	}
	if c.SkipLines < 0 {
		return errors.BadConfiguration(fmt.Sprintf("csv.skip_lines must not be negative (got: %d)", c.SkipLines))
	}
	return nil
}

// CommaRune returns the field separator.
func (c *CSVConfig) CommaRune() rune { return []rune(c.Comma)[0] }

// CommentRune returns the comment marker, or 0 when comments are disabled.
func (c *CSVConfig) CommentRune() rune {
	if c.Comment == "" {
		return 0
	}
	return []rune(c.Comment)[0]
}
