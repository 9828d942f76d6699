package main

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/kbukum/recordbind/bootstrap"
	"github.com/kbukum/recordbind/config"
	"github.com/kbukum/recordbind/record"
)

// addRunFlags registers the flags shared by conversion commands. Flags the
// user sets override the config file and environment.
func addRunFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.Bool("ordered", true, "Emit results in input order")
	f.Int("workers", 0, "Worker pool size (0 = GOMAXPROCS)")
	f.Int("queue", 0, "Queued records bound (0 = 2*workers)")
	f.String("policy", "throw", "Per-record error policy: throw or collect")
	f.String("comma", ",", "Field separator")
	f.String("comment", "", "Comment line marker")
	f.Bool("lazy-quotes", false, "Accept bare quotes in fields")
	f.Bool("trim-leading-space", false, "Trim leading white space in fields")
	f.Int("skip-lines", 0, "Lines to skip before the first record")
	f.Bool("crlf", false, "Terminate written rows with \\r\\n")
	f.String("log-level", "", "Log level (debug, info, warn, error)")
	f.Bool("quiet", false, "Do not print the run summary")
}

// loadApp reads the configuration, applies explicitly set flags and builds
// the application.
func loadApp(cmd *cobra.Command) (*bootstrap.App, error) {
	var opts []config.LoaderOption
	if path, _ := cmd.Flags().GetString("config"); path != "" {
		opts = append(opts, config.WithConfigFile(path))
	}
	if path, _ := cmd.Flags().GetString("env-file"); path != "" {
		opts = append(opts, config.WithEnvFile(path))
	}

	var cfg config.Config
	if err := config.LoadConfig("recordbind", &cfg, opts...); err != nil {
		return nil, err
	}
	applyFlags(cmd, &cfg)
	return bootstrap.NewApp(&cfg)
}

func applyFlags(cmd *cobra.Command, cfg *config.Config) {
	f := cmd.Flags()
	if f.Changed("ordered") {
		ordered, _ := f.GetBool("ordered")
		cfg.Pipeline.Ordered = &ordered
	}
	if f.Changed("workers") {
		cfg.Pipeline.Workers, _ = f.GetInt("workers")
	}
	if f.Changed("queue") {
		cfg.Pipeline.QueueSize, _ = f.GetInt("queue")
	}
	if f.Changed("policy") {
		cfg.Pipeline.ErrorPolicy, _ = f.GetString("policy")
	}
	if f.Lookup("pull") != nil && f.Changed("pull") {
		cfg.Pipeline.Pull, _ = f.GetBool("pull")
	}
	if f.Changed("comma") {
		cfg.CSV.Comma, _ = f.GetString("comma")
	}
	if f.Changed("comment") {
		cfg.CSV.Comment, _ = f.GetString("comment")
	}
	if f.Changed("lazy-quotes") {
		cfg.CSV.LazyQuotes, _ = f.GetBool("lazy-quotes")
	}
	if f.Changed("trim-leading-space") {
		cfg.CSV.TrimLeadingSpace, _ = f.GetBool("trim-leading-space")
	}
	if f.Changed("skip-lines") {
		cfg.CSV.SkipLines, _ = f.GetInt("skip-lines")
	}
	if f.Changed("crlf") {
		cfg.CSV.UseCRLF, _ = f.GetBool("crlf")
	}
	if f.Changed("log-level") {
		level, _ := f.GetString("log-level")
		cfg.Logging.Level = strings.ToLower(level)
	}
}

// csvOptions maps the CSV dialect to record options.
func csvOptions(c config.CSVConfig) []record.CSVOption {
	return []record.CSVOption{
		record.WithComma(c.CommaRune()),
		record.WithComment(c.CommentRune()),
		record.WithLazyQuotes(c.LazyQuotes),
		record.WithTrimLeadingSpace(c.TrimLeadingSpace),
		record.WithSkipLines(c.SkipLines),
		record.WithCRLF(c.UseCRLF),
	}
}

func displaySummary(cmd *cobra.Command, app *bootstrap.App) {
	if quiet, _ := cmd.Flags().GetBool("quiet"); quiet {
		return
	}
	app.Summary.Display(cmd.ErrOrStderr())
}
