package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestNewDefault(t *testing.T) {
	l := NewDefault("test-svc")
	if l == nil {
		t.Fatal("expected non-nil logger")
	}
	if l.service != "test-svc" {
		t.Errorf("expected service 'test-svc', got %q", l.service)
	}
}

func TestNewInvalidLevel(t *testing.T) {
	cfg := &Config{Level: "invalid-level", Format: "json"}
	l := New(cfg, "test")
	if l == nil {
		t.Fatal("expected logger to be created even with invalid level")
	}
}

func TestNewWithWriter_WritesJSON(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&buf, "debug").WithComponent("pipeline")
	l.Info("run finished", Fields(FieldRecords, 3, FieldRunID, "abc"))

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("expected JSON line, got %q: %v", buf.String(), err)
	}
	if entry[FieldComponent] != "pipeline" {
		t.Errorf("expected component=pipeline, got %v", entry[FieldComponent])
	}
	if entry[FieldRunID] != "abc" {
		t.Errorf("expected run_id=abc, got %v", entry[FieldRunID])
	}
	if entry["message"] != "run finished" {
		t.Errorf("unexpected message %v", entry["message"])
	}
}

func TestNewWithWriter_LevelFilter(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&buf, "warn")
	l.Debug("hidden")
	l.Info("hidden")
	if buf.Len() != 0 {
		t.Errorf("expected nothing below warn, got %q", buf.String())
	}
	l.Warn("shown")
	if !strings.Contains(buf.String(), "shown") {
		t.Errorf("expected warn line, got %q", buf.String())
	}
}

func TestWithFieldsAndError(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&buf, "info").
		WithFields(map[string]interface{}{FieldLine: 7}).
		WithError(errors.New("boom"))
	l.Error("failed")
	out := buf.String()
	if !strings.Contains(out, `"line":7`) {
		t.Errorf("expected line field, got %q", out)
	}
	if !strings.Contains(out, `"error":"boom"`) {
		t.Errorf("expected error field, got %q", out)
	}
}

func TestNop(t *testing.T) {
	l := Nop()
	l.Info("discarded")
	if l.Enabled("error") {
		t.Error("expected nop logger to be disabled")
	}
}

func TestGlobalLogger(t *testing.T) {
	old := globalLogger
	defer func() { globalLogger = old }()

	globalLogger = nil
	if GetGlobalLogger() == nil {
		t.Fatal("expected default global logger")
	}

	custom := Nop()
	SetGlobalLogger(custom)
	if GetGlobalLogger() != custom {
		t.Error("expected custom global logger")
	}
	Info("package-level call")
	WithComponent("x").Debug("component call")
}

func TestInit(t *testing.T) {
	old := globalLogger
	defer func() { globalLogger = old }()

	Init(Config{Level: "debug", Format: "json"})
	if globalLogger == nil {
		t.Fatal("expected global logger after Init")
	}
}

func TestConfigApplyDefaults(t *testing.T) {
	cfg := Config{}
	cfg.ApplyDefaults()
	if cfg.Level != "info" {
		t.Errorf("expected level info, got %q", cfg.Level)
	}
	if cfg.Format != "console" {
		t.Errorf("expected format console, got %q", cfg.Format)
	}
	if cfg.Output != "stderr" {
		t.Errorf("expected output stderr, got %q", cfg.Output)
	}
	if !cfg.Timestamp {
		t.Error("expected timestamp=true")
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"valid", Config{Level: "info", Format: "json"}, false},
		{"valid pretty", Config{Level: "debug", Format: "pretty"}, false},
		{"bad level", Config{Level: "loud", Format: "json"}, true},
		{"bad format", Config{Level: "info", Format: "xml"}, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.cfg.Validate()
			if (err != nil) != tc.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tc.wantErr)
			}
		})
	}
}

func TestRegisterAndGet(t *testing.T) {
	l := Nop()
	Register("custom", l)
	if Get("custom") != l {
		t.Error("expected registered logger")
	}
	if Get("unregistered-component") == nil {
		t.Error("expected fallback logger for unknown name")
	}
	RegisterDefaults()
	if Get("pipeline") == nil {
		t.Error("expected pipeline logger after RegisterDefaults")
	}
}

func TestFieldHelpers(t *testing.T) {
	f := Fields("a", 1, "b")
	if len(f) != 1 || f["a"] != 1 {
		t.Errorf("expected odd trailing key dropped, got %v", f)
	}
	ef := ErrorFields("parse", errors.New("bad"))
	if ef[FieldOperation] != "parse" || ef[FieldError] != "bad" {
		t.Errorf("unexpected error fields %v", ef)
	}
	df := DurationFields("parse", 1500*time.Millisecond)
	if df[FieldDuration] != int64(1500) {
		t.Errorf("expected 1500ms, got %v", df[FieldDuration])
	}
}
