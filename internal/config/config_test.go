package config

import "testing"

func TestDefaults(t *testing.T) {
	cfg := Defaults()
	if cfg.LogLevel != "INFO" || cfg.LogFormat != "text" {
		t.Errorf("Defaults() = %+v, want INFO/text", cfg)
	}
}

func TestLoadOverlaysEnvironment(t *testing.T) {
	t.Setenv("ADBSSI_LOG_LEVEL", "DEBUG")
	t.Setenv("ADBSSI_LOG_FORMAT", "json")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.LogLevel != "DEBUG" {
		t.Errorf("LogLevel = %q, want DEBUG", cfg.LogLevel)
	}
	if cfg.LogFormat != "json" {
		t.Errorf("LogFormat = %q, want json", cfg.LogFormat)
	}
}
