package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "premik.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDefaultIsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
addr: ":9090"
sweep_schedule: "*/10 * * * *"
due_soon_window: 72h
handoff_secret: s3cret
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Addr != ":9090" || cfg.SweepSchedule != "*/10 * * * *" || cfg.HandoffSecret != "s3cret" {
		t.Errorf("unexpected config: %+v", cfg)
	}
	if cfg.DueSoonWindow != 72*time.Hour {
		t.Errorf("expected 72h window, got %s", cfg.DueSoonWindow)
	}
	if cfg.DBPath != "premik.sqlite3" {
		t.Errorf("expected default db path to survive, got %q", cfg.DBPath)
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"bad yaml", "addr: [unclosed"},
		{"bad schedule", `sweep_schedule: "whenever"`},
		{"zero window", "due_soon_window: 0s"},
		{"empty addr", `addr: ""`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Load(writeConfig(t, tt.body)); err == nil {
				t.Error("expected error")
			}
		})
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}
