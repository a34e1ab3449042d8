package config

import (
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	dir := t.TempDir()
	cfg, err := LoadWithPath(dir)
	if err != nil {
		t.Fatalf("LoadWithPath failed: %v", err)
	}

	if cfg.Database.Driver != "sqlite" {
		t.Errorf("expected default driver sqlite, got %s", cfg.Database.Driver)
	}
	if cfg.Agent.MaxSteps != 100 {
		t.Errorf("expected default maxSteps 100, got %d", cfg.Agent.MaxSteps)
	}
	if cfg.Agent.Language != "en" {
		t.Errorf("expected default language en, got %s", cfg.Agent.Language)
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("ANDROIDCTL_MODEL_ENDPOINT", "https://vlm.example.com")
	t.Setenv("ANDROIDCTL_LOG_LEVEL", "debug")

	dir := t.TempDir()
	cfg, err := LoadWithPath(dir)
	if err != nil {
		t.Fatalf("LoadWithPath failed: %v", err)
	}

	if cfg.Model.Endpoint != "https://vlm.example.com" {
		t.Errorf("expected endpoint from env, got %q", cfg.Model.Endpoint)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("expected log level from env, got %q", cfg.Logging.Level)
	}
}

func TestValidateRejectsBadMaxSteps(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("ANDROIDCTL_AGENT_MAXSTEPS", "0")

	_, err := LoadWithPath(dir)
	if err == nil {
		t.Fatal("expected validation error for maxSteps=0")
	}
}

func TestDatabaseDSN(t *testing.T) {
	d := DatabaseConfig{Host: "localhost", Port: 5432, User: "u", Password: "p", DBName: "d", SSLMode: "disable"}
	dsn := d.DSN()
	if dsn == "" {
		t.Fatal("expected non-empty DSN")
	}
}
