package app

import (
	"errors"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"expense-cli/internal/chat"
)

type Config struct {
	BaseURL         string `yaml:"base_url"`
	PageSize        int    `yaml:"page_size"`
	SendMinMillis   int    `yaml:"send_min_interval_ms"`
	ProbeSeconds    int    `yaml:"probe_interval_seconds"`
	ReconcilePolicy string `yaml:"reconcile_policy"`
	LogFile         string `yaml:"log_file"`
	Debug           bool   `yaml:"debug"`
}

func DefaultConfig() Config {
	return Config{
		BaseURL:         "https://ai.rosmerta.dev/expense/api",
		PageSize:        5,
		SendMinMillis:   1000,
		ProbeSeconds:    5,
		ReconcilePolicy: string(chat.ReconcileAlwaysPersist),
		LogFile:         filepath.Join(configDir(), "xpa.log"),
	}
}

func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://ai.rosmerta.dev/expense/api"
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = 5
	}
	if cfg.SendMinMillis <= 0 {
		cfg.SendMinMillis = 1000
	}
	if cfg.ProbeSeconds <= 0 {
		cfg.ProbeSeconds = 5
	}
	if cfg.ReconcilePolicy == "" {
		cfg.ReconcilePolicy = string(chat.ReconcileAlwaysPersist)
	}
	if cfg.LogFile == "" {
		cfg.LogFile = filepath.Join(configDir(), "xpa.log")
	}
	return cfg, nil
}

func SaveConfig(cfg Config, path string) error {
	if path == "" {
		return errors.New("no path provided for config")
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func configDir() string {
	base, err := os.UserConfigDir()
	if err != nil {
		return os.TempDir()
	}
	return filepath.Join(base, "xpa")
}

func DefaultConfigPath() string {
	return filepath.Join(configDir(), "config.yml")
}

// DefaultCredentialsPath is where the login flow stores the token + profile.
func DefaultCredentialsPath() string {
	return filepath.Join(configDir(), "credentials.yml")
}
