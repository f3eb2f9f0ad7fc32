package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/doeshing/aibridge/internal/domain"
)

func TestLoadSeedsDefaultConfigWhenMissing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	loader := NewFileLoader(path)

	cfg, err := loader.Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Defaults.Provider != domain.DefaultProvider || cfg.Defaults.Layer != domain.DefaultLayer {
		t.Errorf("unexpected defaults %+v", cfg.Defaults)
	}
	if len(cfg.APIExecutors) == 0 || len(cfg.CLIExecutors) == 0 {
		t.Error("seeded config should declare executors")
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("default config file not written: %v", err)
	}
}

func TestLoadParsesExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `config_format_version: "1"
defaults:
  provider: gemini
  layer: cli
  cli_provider: gemini
routing:
  ai_intent_classification: false
session:
  max_messages: 10
  timeout: 3600
dedupe:
  cache_size: 50
api_executors:
  - provider: gemini
    auth_env_var: GEMINI_API_KEY
    model: gemini-2.0-flash
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := NewFileLoader(path).Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Defaults.Provider != "gemini" || cfg.Defaults.Layer != domain.LayerCLI {
		t.Errorf("unexpected defaults %+v", cfg.Defaults)
	}
	if cfg.Session.MaxMessages != 10 || cfg.Session.TimeoutSeconds != 3600 {
		t.Errorf("unexpected session settings %+v", cfg.Session)
	}
	if cfg.Dedupe.CacheSize != 50 {
		t.Errorf("CacheSize = %d, want 50", cfg.Dedupe.CacheSize)
	}
	if !cfg.HasProvider("gemini") || cfg.HasProvider("openai") {
		t.Error("HasProvider should reflect declared executor blocks")
	}
}

func TestLoadHydratesMissingFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("config_format_version: \"1\"\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := NewFileLoader(path).Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Defaults.Provider != domain.DefaultProvider {
		t.Errorf("Provider = %q, want hydrated default", cfg.Defaults.Provider)
	}
	if cfg.Session.MaxMessages == 0 || cfg.Session.TimeoutSeconds == 0 || cfg.Dedupe.CacheSize == 0 {
		t.Errorf("zero settings not hydrated: %+v", cfg)
	}
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("defaults: [not: a: mapping"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := NewFileLoader(path).Load(context.Background()); err == nil {
		t.Error("malformed YAML should fail loudly, not silently default")
	}
}
