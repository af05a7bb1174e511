package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.IntervalMS != 500 {
		t.Errorf("IntervalMS = %d, want 500", cfg.IntervalMS)
	}
	if cfg.Language != "eng" {
		t.Errorf("Language = %q, want eng", cfg.Language)
	}
	if cfg.RegionSet() {
		t.Error("default config should have no region")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("SCREENWATCH_LANG", "deu")
	t.Setenv("SCREENWATCH_INTERVAL_MS", "250")
	t.Setenv("SCREENWATCH_HASH_SKIP", "false")
	t.Setenv("SCREENWATCH_REGION_X", "10")
	t.Setenv("SCREENWATCH_REGION_Y", "20")
	t.Setenv("SCREENWATCH_REGION_WIDTH", "300")
	t.Setenv("SCREENWATCH_REGION_HEIGHT", "100")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Language != "deu" {
		t.Errorf("Language = %q, want deu", cfg.Language)
	}
	if cfg.Interval() != 250*time.Millisecond {
		t.Errorf("Interval = %v, want 250ms", cfg.Interval())
	}
	if cfg.HashSkip {
		t.Error("HashSkip should be disabled")
	}
	if !cfg.RegionSet() || cfg.Region.X != 10 || cfg.Region.Width != 300 {
		t.Errorf("Region = %+v, want x=10 w=300", cfg.Region)
	}
}

func TestLoad_YAMLProfile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "watch.yaml")
	profile := `
language: fra
interval_ms: 1000
region:
  x: 5
  y: 6
  width: 200
  height: 80
`
	if err := os.WriteFile(path, []byte(profile), 0o644); err != nil {
		t.Fatalf("failed to write profile: %v", err)
	}
	t.Setenv("SCREENWATCH_CONFIG", path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Language != "fra" {
		t.Errorf("Language = %q, want fra", cfg.Language)
	}
	if cfg.IntervalMS != 1000 {
		t.Errorf("IntervalMS = %d, want 1000", cfg.IntervalMS)
	}
	if cfg.Region.Height != 80 {
		t.Errorf("Region.Height = %d, want 80", cfg.Region.Height)
	}
	// Untouched fields keep their defaults.
	if cfg.HTTPAddr != ":8130" {
		t.Errorf("HTTPAddr = %q, want default :8130", cfg.HTTPAddr)
	}
}

func TestLoad_EnvBeatsYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "watch.yaml")
	if err := os.WriteFile(path, []byte("language: fra\n"), 0o644); err != nil {
		t.Fatalf("failed to write profile: %v", err)
	}
	t.Setenv("SCREENWATCH_CONFIG", path)
	t.Setenv("SCREENWATCH_LANG", "spa")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Language != "spa" {
		t.Errorf("Language = %q, want spa (env over file)", cfg.Language)
	}
}

func TestLoad_MissingProfile(t *testing.T) {
	t.Setenv("SCREENWATCH_CONFIG", filepath.Join(t.TempDir(), "absent.yaml"))

	if _, err := Load(); err == nil {
		t.Fatal("Load should fail when the named profile is missing")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		wantOK bool
	}{
		{"default ok", func(*Config) {}, true},
		{"zero interval", func(c *Config) { c.IntervalMS = 0 }, false},
		{"zero min diff len", func(c *Config) { c.MinDiffLen = 0 }, false},
		{"zero event buffer", func(c *Config) { c.EventBuffer = 0 }, false},
		{"negative hash distance", func(c *Config) { c.HashMaxDistance = -1 }, false},
		{"valid region", func(c *Config) { c.Region.Width, c.Region.Height = 100, 100 }, true},
		{"bad region", func(c *Config) { c.Region.Width = 100 }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantOK && err != nil {
				t.Errorf("Validate() = %v, want nil", err)
			}
			if !tt.wantOK && err == nil {
				t.Error("Validate() = nil, want error")
			}
		})
	}
}

func TestInvalidEnvValueFallsBack(t *testing.T) {
	t.Setenv("SCREENWATCH_INTERVAL_MS", "not-a-number")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.IntervalMS != 500 {
		t.Errorf("IntervalMS = %d, want default 500", cfg.IntervalMS)
	}
}
