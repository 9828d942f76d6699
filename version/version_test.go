package version

import (
	"strings"
	"testing"
	"time"
)

func restore(t *testing.T) {
	v, c, b := Version, GitCommit, BuildTime
	t.Cleanup(func() { Version, GitCommit, BuildTime = v, c, b })
}

func TestGetUsesLinkerValues(t *testing.T) {
	restore(t)
	Version = "1.4.0"
	GitCommit = "abcdef0123"
	BuildTime = "2024-01-15T10:30:00Z"

	info := Get()
	if info.Version != "1.4.0" {
		t.Errorf("expected 1.4.0, got %q", info.Version)
	}
	if info.GitCommit != "abcdef0" {
		t.Errorf("expected commit truncated to 7 chars, got %q", info.GitCommit)
	}
	want := time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)
	if !info.BuildDate.Equal(want) {
		t.Errorf("expected %v, got %v", want, info.BuildDate)
	}
}

func TestGetBadBuildTime(t *testing.T) {
	restore(t)
	BuildTime = "yesterday"
	GitCommit = "x"
	info := Get()
	if info.GitCommit != "x" {
		t.Errorf("linker commit must win, got %q", info.GitCommit)
	}
}

func TestInfoFormatting(t *testing.T) {
	tests := []struct {
		name     string
		info     Info
		short    string
		release  bool
		contains []string
	}{
		{
			name:     "dev",
			info:     Info{Version: "dev"},
			short:    "dev",
			release:  false,
			contains: []string{"recordbind dev"},
		},
		{
			name:     "release",
			info:     Info{Version: "1.0.0", GitCommit: "abc1234", GoVersion: "go1.26.0", BuildDate: time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)},
			short:    "1.0.0-abc1234",
			release:  true,
			contains: []string{"recordbind 1.0.0-abc1234", "go1.26.0", "(built 2024-01-15T10:30:00Z)"},
		},
		{
			name:     "dirty",
			info:     Info{Version: "1.0.0", GitCommit: "abc1234", Dirty: true},
			short:    "1.0.0-abc1234-dirty",
			release:  false,
			contains: []string{"-dirty"},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.info.Short(); got != tc.short {
				t.Errorf("Short() = %q, want %q", got, tc.short)
			}
			if got := tc.info.IsRelease(); got != tc.release {
				t.Errorf("IsRelease() = %v, want %v", got, tc.release)
			}
			s := tc.info.String()
			for _, c := range tc.contains {
				if !strings.Contains(s, c) {
					t.Errorf("String() = %q, missing %q", s, c)
				}
			}
		})
	}
}
