package app

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfigMissingFileGivesDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yml"))
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	def := DefaultConfig()
	if cfg.PageSize != def.PageSize || cfg.SendMinMillis != def.SendMinMillis ||
		cfg.ProbeSeconds != def.ProbeSeconds || cfg.ReconcilePolicy != def.ReconcilePolicy {
		t.Fatalf("missing file config = %+v, want defaults %+v", cfg, def)
	}
}

func TestLoadConfigFillsOmittedFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	partial := "base_url: http://localhost:9000/api\npage_size: 10\n"
	if err := os.WriteFile(path, []byte(partial), 0o644); err != nil {
		t.Fatalf("seed: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.BaseURL != "http://localhost:9000/api" {
		t.Fatalf("BaseURL = %q", cfg.BaseURL)
	}
	if cfg.PageSize != 10 {
		t.Fatalf("PageSize = %d, want 10", cfg.PageSize)
	}
	if cfg.SendMinMillis != 1000 || cfg.ProbeSeconds != 5 {
		t.Fatalf("omitted fields not defaulted: %+v", cfg)
	}
	if cfg.ReconcilePolicy != "always-persist" {
		t.Fatalf("ReconcilePolicy = %q", cfg.ReconcilePolicy)
	}
}

func TestLoadConfigClampsBadValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	bad := "page_size: -3\nsend_min_interval_ms: 0\n"
	if err := os.WriteFile(path, []byte(bad), 0o644); err != nil {
		t.Fatalf("seed: %v", err)
	}
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.PageSize != 5 || cfg.SendMinMillis != 1000 {
		t.Fatalf("invalid values not clamped to defaults: %+v", cfg)
	}
}

func TestSaveThenLoadRoundtrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "config.yml")
	want := DefaultConfig()
	want.PageSize = 20
	want.Debug = true
	if err := SaveConfig(want, path); err != nil {
		t.Fatalf("SaveConfig: %v", err)
	}
	got, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if got != want {
		t.Fatalf("roundtrip = %+v, want %+v", got, want)
	}
}
