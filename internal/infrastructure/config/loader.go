package config

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/doeshing/aibridge/internal/domain"
	"github.com/doeshing/aibridge/internal/infrastructure/session"
	"github.com/doeshing/aibridge/internal/pkg/dedupe"
	"github.com/doeshing/aibridge/internal/pkg/filesystem"
	"github.com/doeshing/aibridge/internal/ports"
)

// FileLoader loads YAML configuration from ~/.aibridge/config.yaml
// (overridable via AIBRIDGE_CONFIG).
type FileLoader struct {
	overridePath string
}

// NewFileLoader builds a new loader.
func NewFileLoader(path string) *FileLoader {
	return &FileLoader{overridePath: path}
}

// Load implements ports.ConfigProvider. A missing file is seeded with the
// default config so a fresh install gets a commented starting point.
func (l *FileLoader) Load(context.Context) (domain.Config, error) {
	path := l.resolvePath()
	if err := ensureConfigDir(path); err != nil {
		return domain.Config{}, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			cfg := defaultConfig()
			if err := writeDefault(path, cfg); err != nil {
				return domain.Config{}, err
			}
			return cfg, nil
		}
		return domain.Config{}, err
	}

	var cfg domain.Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return domain.Config{}, err
	}

	return hydrateDefaults(cfg), nil
}

func (l *FileLoader) resolvePath() string {
	if l.overridePath != "" {
		return l.overridePath
	}
	if custom := os.Getenv("AIBRIDGE_CONFIG"); custom != "" {
		return expandPath(custom)
	}
	return filepath.Join(filesystem.DataDir(), "config.yaml")
}

func ensureConfigDir(path string) error {
	dir := filepath.Dir(path)
	return os.MkdirAll(dir, 0o755)
}

func writeDefault(path string, cfg domain.Config) error {
	raw, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, raw, 0o600)
}

func defaultConfig() domain.Config {
	return domain.Config{
		ConfigFormatVersion: "1",
		Defaults: domain.RoutingDefaults{
			Provider: domain.DefaultProvider,
			Layer:    domain.DefaultLayer,
		},
		Routing: domain.RoutingSettings{
			AIIntentClassification: true,
		},
		Session: domain.SessionSettings{
			StoragePath:    filepath.Join(filesystem.DataDir(), "sessions.json"),
			MaxMessages:    session.DefaultMaxMessages,
			TimeoutSeconds: int(session.DefaultTimeout.Seconds()),
		},
		Dedupe: domain.DedupeSettings{
			CacheSize: dedupe.DefaultCapacity,
		},
		APIExecutors: []domain.APIExecutorSettings{
			{Provider: "claude", AuthEnvVar: "ANTHROPIC_API_KEY"},
			{Provider: "openai", AuthEnvVar: "OPENAI_API_KEY"},
			{Provider: "gemini", AuthEnvVar: "GEMINI_API_KEY"},
		},
		CLIExecutors: []domain.CLIExecutorSettings{
			{Provider: "claude", TargetDir: "."},
			{Provider: "gemini", TargetDir: "."},
		},
	}
}

func hydrateDefaults(cfg domain.Config) domain.Config {
	if cfg.Defaults.Provider == "" {
		cfg.Defaults.Provider = domain.DefaultProvider
	}
	if cfg.Defaults.Layer == "" {
		cfg.Defaults.Layer = domain.DefaultLayer
	}
	if cfg.Session.MaxMessages == 0 {
		cfg.Session.MaxMessages = session.DefaultMaxMessages
	}
	if cfg.Session.TimeoutSeconds == 0 {
		cfg.Session.TimeoutSeconds = int(session.DefaultTimeout.Seconds())
	}
	if cfg.Dedupe.CacheSize == 0 {
		cfg.Dedupe.CacheSize = dedupe.DefaultCapacity
	}
	return cfg
}

func expandPath(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	if len(path) > 1 && path[:2] == "~/" {
		return filepath.Join(filesystem.UserHome(), path[2:])
	}
	return filepath.Clean(path)
}

var _ ports.ConfigProvider = (*FileLoader)(nil)
