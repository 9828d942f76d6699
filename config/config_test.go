package config

import (
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/kbukum/recordbind/errors"
	"github.com/kbukum/recordbind/pipeline"
)

func TestConfigApplyDefaults(t *testing.T) {
	var cfg Config
	cfg.ApplyDefaults()

	if cfg.Name != "recordbind" {
		t.Errorf("expected name 'recordbind', got %q", cfg.Name)
	}
	if cfg.Environment != "development" {
		t.Errorf("expected 'development', got %q", cfg.Environment)
	}
	if cfg.Pipeline.Ordered == nil || !*cfg.Pipeline.Ordered {
		t.Error("expected ordered=true by default")
	}
	if cfg.Pipeline.ErrorPolicy != "throw" {
		t.Errorf("expected throw policy, got %q", cfg.Pipeline.ErrorPolicy)
	}
	if cfg.CSV.Comma != "," {
		t.Errorf("expected comma separator, got %q", cfg.CSV.Comma)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("expected info level, got %q", cfg.Logging.Level)
	}
	if cfg.Observability.ServiceName != "recordbind" {
		t.Errorf("expected observability service from name, got %q", cfg.Observability.ServiceName)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults must validate: %v", err)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		errMsg string
	}{
		{"bad environment", func(c *Config) { c.Environment = "qa" }, "environment must be one of"},
		{"negative workers", func(c *Config) { c.Pipeline.Workers = -1 }, "pipeline.workers"},
		{"negative queue", func(c *Config) { c.Pipeline.QueueSize = -2 }, "pipeline.queue_size"},
		{"unknown policy", func(c *Config) { c.Pipeline.ErrorPolicy = "ignore" }, "unknown error policy"},
		{"wide comma", func(c *Config) { c.CSV.Comma = ";;" }, "csv.comma"},
		{"wide comment", func(c *Config) { c.CSV.Comment = "##" }, "csv.comment"},
		{"negative skip", func(c *Config) { c.CSV.SkipLines = -1 }, "csv.skip_lines"},
		{"bad log level", func(c *Config) { c.Logging.Level = "loud" }, "logging.level"},
		{"bad sample rate", func(c *Config) { c.Observability.SampleRate = 2 }, "sample_rate"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var cfg Config
			cfg.ApplyDefaults()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tc.errMsg) {
				t.Errorf("expected error containing %q, got %q", tc.errMsg, err.Error())
			}
			if errors.KindOf(err) != errors.ErrCodeBadConfiguration {
				t.Errorf("expected BAD_CONFIGURATION, got %v", errors.KindOf(err))
			}
		})
	}
}

func TestPipelineOptions(t *testing.T) {
	ordered := false
	pc := PipelineConfig{Ordered: &ordered, Workers: 3, QueueSize: 7, ErrorPolicy: "collect"}
	got := pipeline.NewConfig(pc.Options()...)

	if got.Ordered {
		t.Error("expected unordered")
	}
	if got.Workers != 3 || got.QueueSize != 7 {
		t.Errorf("expected 3 workers / queue 7, got %d / %d", got.Workers, got.QueueSize)
	}
	if got.Policy(errors.RequiredField("x")) != pipeline.Suppress {
		t.Error("expected collect policy")
	}
}

func TestPipelineOptionsZeroValuesUseDefaults(t *testing.T) {
	var pc PipelineConfig
	pc.ApplyDefaults()
	got := pipeline.NewConfig(pc.Options()...)
	if !got.Ordered || got.Workers < 1 || got.QueueSize != 2*got.Workers {
		t.Errorf("unexpected defaults %+v", got)
	}
}

func TestCSVRunes(t *testing.T) {
	c := CSVConfig{Comma: ";", Comment: "#"}
	if c.CommaRune() != ';' || c.CommentRune() != '#' {
		t.Errorf("got %q %q", c.CommaRune(), c.CommentRune())
	}
	c.Comment = ""
	if c.CommentRune() != 0 {
		t.Error("expected no comment rune")
	}
}

func TestLoadConfigWithYAML(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "recordbind.yml")

	yamlContent := `
name: orders-import
environment: staging
pipeline:
  ordered: false
  workers: 4
  queue_size: 16
  error_policy: collect
csv:
  comma: ";"
  skip_lines: 1
logging:
  level: debug
  format: json
`
	if err := os.WriteFile(configPath, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	var cfg Config
	if err := LoadConfig("recordbind", &cfg, WithConfigFile(configPath)); err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	cfg.ApplyDefaults()

	if cfg.Name != "orders-import" || cfg.Environment != "staging" {
		t.Errorf("unexpected name/env %q/%q", cfg.Name, cfg.Environment)
	}
	if cfg.Pipeline.Ordered == nil || *cfg.Pipeline.Ordered {
		t.Error("expected ordered=false from file")
	}
	if cfg.Pipeline.Workers != 4 || cfg.Pipeline.QueueSize != 16 {
		t.Errorf("unexpected pipeline %+v", cfg.Pipeline)
	}
	if cfg.Pipeline.ErrorPolicy != "collect" {
		t.Errorf("expected collect, got %q", cfg.Pipeline.ErrorPolicy)
	}
	if cfg.CSV.Comma != ";" || cfg.CSV.SkipLines != 1 {
		t.Errorf("unexpected csv %+v", cfg.CSV)
	}
	if cfg.Logging.Format != "json" {
		t.Errorf("expected json logging, got %q", cfg.Logging.Format)
	}
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "recordbind.yml")
	if err := os.WriteFile(configPath, []byte("pipeline:\n  workers: 2\n"), 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("RECORDBIND_PIPELINE_WORKERS", "8")
	t.Setenv("RECORDBIND_PIPELINE_QUEUE_SIZE", "32")
	t.Setenv("RECORDBIND_LOGGING_LEVEL", "warn")
	t.Setenv("UNRELATED_PIPELINE_WORKERS", "99")

	var cfg Config
	if err := LoadConfig("recordbind", &cfg, WithConfigFile(configPath)); err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Pipeline.Workers != 8 {
		t.Errorf("expected env to override workers, got %d", cfg.Pipeline.Workers)
	}
	if cfg.Pipeline.QueueSize != 32 {
		t.Errorf("expected queue_size 32, got %d", cfg.Pipeline.QueueSize)
	}
	if cfg.Logging.Level != "warn" {
		t.Errorf("expected warn, got %q", cfg.Logging.Level)
	}
}

func TestLoadConfigEnvFile(t *testing.T) {
	dir := t.TempDir()
	envPath := filepath.Join(dir, ".env")
	if err := os.WriteFile(envPath, []byte("RECORDBIND_PIPELINE_ERROR_POLICY=collect\n"), 0644); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Unsetenv("RECORDBIND_PIPELINE_ERROR_POLICY") })

	var cfg Config
	if err := LoadConfig("recordbind", &cfg, WithEnvFile(envPath), WithFileSystem(&scopedFS{root: dir})); err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Pipeline.ErrorPolicy != "collect" {
		t.Errorf("expected policy from .env, got %q", cfg.Pipeline.ErrorPolicy)
	}
}

func TestLoadConfigMissingExplicitFile(t *testing.T) {
	var cfg Config
	err := LoadConfig("recordbind", &cfg, WithConfigFile("/nonexistent/path.yml"))
	if err == nil {
		t.Fatal("expected error for missing explicit config file")
	}
}

func TestLoadConfigNothingFound(t *testing.T) {
	var cfg Config
	if err := LoadConfig("recordbind", &cfg, WithFileSystem(&mockFS{})); err != nil {
		t.Fatalf("expected empty config without files, got %v", err)
	}
}

func TestResolverWithMockFS(t *testing.T) {
	fs := &mockFS{files: map[string]bool{
		"config/recordbind.yml": true,
		"config.yml":            true,
		".env":                  true,
	}}
	resolver := &Resolver{FileSystem: fs}
	files := resolver.ResolveFiles("recordbind", LoaderConfig{})
	if files.ConfigFile != "config.yml" {
		t.Errorf("expected working-directory config.yml first, got %q", files.ConfigFile)
	}
	if files.EnvFile != ".env" {
		t.Errorf("expected .env, got %q", files.EnvFile)
	}

	explicit := resolver.ResolveFiles("recordbind", LoaderConfig{ConfigFile: "x.yml", EnvFile: "y.env"})
	if explicit.ConfigFile != "x.yml" || explicit.EnvFile != "y.env" {
		t.Errorf("explicit paths must win, got %+v", explicit)
	}
}

func TestGenerateEnvKeyVariants(t *testing.T) {
	tests := []struct {
		key  string
		want []string
	}{
		{"NAME", []string{"name"}},
		{"LOGGING_LEVEL", []string{"logging.level"}},
		{"PIPELINE_QUEUE_SIZE", []string{"pipeline.queue_size", "pipeline.queue.size"}},
		{"CSV_TRIM_LEADING_SPACE", []string{"csv.trim_leading_space", "csv.trim.leading_space", "csv.trim.leading.space"}},
	}
	for _, tc := range tests {
		t.Run(tc.key, func(t *testing.T) {
			got := generateEnvKeyVariants(tc.key)
			if !slices.Equal(got, tc.want) {
				t.Errorf("got %v, want %v", got, tc.want)
			}
		})
	}
}

type mockFS struct {
	files map[string]bool
}

func (m *mockFS) Exists(path string) bool   { return m.files[path] }
func (m *mockFS) LoadEnv(path string) error { return nil }
func (m *mockFS) Getwd() (string, error)    { return "/mock", nil }

// scopedFS only sees files under root.
type scopedFS struct {
	RealFileSystem
	root string
}

func (s *scopedFS) Exists(path string) bool {
	return strings.HasPrefix(path, s.root) && s.RealFileSystem.Exists(path)
}
