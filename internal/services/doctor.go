package services

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/doeshing/aibridge/internal/domain"
	"github.com/doeshing/aibridge/internal/ports"
)

// DoctorService runs environment diagnostics over the configured backends
// and storage paths.
type DoctorService struct {
	ConfigProvider ports.ConfigProvider
	Registry       *ExecutorRegistry
}

// Run executes checks and returns a report. The availability cache is
// cleared first so the report reflects the current environment.
func (s *DoctorService) Run(ctx context.Context) (domain.HealthReport, error) {
	var checks []domain.HealthCheck

	cfg, err := s.ConfigProvider.Load(ctx)
	if err != nil {
		checks = append(checks, fail("Config file", fmt.Sprintf("load failed: %v", err)))
		return domain.HealthReport{Checks: checks}, err
	}
	checks = append(checks, pass("Config file", fmt.Sprintf("format version %s", cfg.ConfigFormatVersion)))

	s.Registry.ClearAvailabilityCache()
	checks = append(checks, executorChecks(s.Registry, cfg)...)

	checks = append(checks, sessionStoreCheck(cfg.Session.StoragePath))
	checks = append(checks, defaultsCheck(cfg))

	return domain.HealthReport{Checks: checks}, nil
}

func executorChecks(registry *ExecutorRegistry, cfg domain.Config) []domain.HealthCheck {
	var checks []domain.HealthCheck

	for _, api := range cfg.APIExecutors {
		name := fmt.Sprintf("Executor %s/api", api.Provider)
		if registry.IsExecutorAvailable(api.Provider, domain.LayerAPI) {
			checks = append(checks, pass(name, fmt.Sprintf("key present in %s", api.AuthEnvVar)))
		} else {
			checks = append(checks, warn(name, fmt.Sprintf("%s not set", api.AuthEnvVar)))
		}
	}
	for _, cli := range cfg.CLIExecutors {
		name := fmt.Sprintf("Executor %s/cli", cli.Provider)
		if registry.IsExecutorAvailable(cli.Provider, domain.LayerCLI) {
			checks = append(checks, pass(name, fmt.Sprintf("target dir %s", cli.TargetDir)))
		} else {
			checks = append(checks, warn(name, fmt.Sprintf("target dir %s not accessible", cli.TargetDir)))
		}
	}

	available := registry.ListAvailableExecutors("")
	if len(available) == 0 {
		checks = append(checks, fail("Routing", "no executor available, every message would fail"))
	} else {
		checks = append(checks, pass("Routing", "available: "+strings.Join(available, ", ")))
	}
	return checks
}

func sessionStoreCheck(path string) domain.HealthCheck {
	if path == "" {
		return warn("Session store", "storage_path not configured, using default")
	}
	if info, err := os.Stat(path); err == nil {
		return pass("Session store", fmt.Sprintf("%s (%d bytes)", path, info.Size()))
	}
	return pass("Session store", fmt.Sprintf("%s (will be created on first message)", path))
}

func defaultsCheck(cfg domain.Config) domain.HealthCheck {
	if cfg.Defaults.Provider == "" || cfg.Defaults.Layer == "" {
		return warn("Routing defaults", "provider or layer missing, built-in defaults apply")
	}
	if !cfg.HasProvider(cfg.Defaults.Provider) {
		return warn("Routing defaults", fmt.Sprintf("default provider %q has no executor block", cfg.Defaults.Provider))
	}
	return pass("Routing defaults", fmt.Sprintf("%s/%s", cfg.Defaults.Provider, cfg.Defaults.Layer))
}

func pass(name, details string) domain.HealthCheck {
	return domain.HealthCheck{Name: name, Status: domain.HealthOK, Details: details}
}

func warn(name, details string) domain.HealthCheck {
	return domain.HealthCheck{Name: name, Status: domain.HealthWarn, Details: details}
}

func fail(name, details string) domain.HealthCheck {
	return domain.HealthCheck{Name: name, Status: domain.HealthError, Details: details}
}
