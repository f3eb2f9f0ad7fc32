package services

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/doeshing/aibridge/internal/domain"
	"github.com/doeshing/aibridge/internal/pkg/logger"
)

// stubExecutor implements ports.Executor for service-level tests.
type stubExecutor struct {
	name      string
	available bool
	probes    int
	calls     int
	result    domain.ExecutionResult
	err       error
}

func (s *stubExecutor) Execute(_ context.Context, _ string, _ []domain.Message, _ domain.ExecuteParams) (domain.ExecutionResult, error) {
	s.calls++
	return s.result, s.err
}

func (s *stubExecutor) IsAvailable() bool {
	s.probes++
	return s.available
}

func (s *stubExecutor) ProviderName() string {
	return s.name
}

func TestGetExecutorReturnsRegistered(t *testing.T) {
	registry := NewExecutorRegistry("", logger.NewStd(false))
	executor := &stubExecutor{name: "claude-api", available: true}
	registry.RegisterAPIExecutor("claude", executor, nil)

	got, err := registry.GetExecutor("claude", domain.LayerAPI)
	if err != nil {
		t.Fatalf("GetExecutor() error = %v", err)
	}
	if got.ProviderName() != "claude-api" {
		t.Errorf("ProviderName() = %q", got.ProviderName())
	}
}

func TestGetExecutorUnregisteredPair(t *testing.T) {
	registry := NewExecutorRegistry("", logger.NewStd(false))

	_, err := registry.GetExecutor("claude", domain.LayerAPI)
	var notAvailable *domain.NotAvailableError
	if !errors.As(err, &notAvailable) {
		t.Fatalf("expected NotAvailableError, got %v", err)
	}
	if notAvailable.Provider != "claude" || notAvailable.Layer != domain.LayerAPI {
		t.Errorf("error carries wrong pair: %+v", notAvailable)
	}
}

func TestAvailabilityIsMemoized(t *testing.T) {
	registry := NewExecutorRegistry("", logger.NewStd(false))
	executor := &stubExecutor{name: "claude-api", available: true}
	registry.RegisterAPIExecutor("claude", executor, nil)

	for i := 0; i < 3; i++ {
		if _, err := registry.GetExecutor("claude", domain.LayerAPI); err != nil {
			t.Fatalf("GetExecutor() error = %v", err)
		}
	}
	if executor.probes != 1 {
		t.Errorf("IsAvailable probed %d times, want 1", executor.probes)
	}

	registry.ClearAvailabilityCache()
	if _, err := registry.GetExecutor("claude", domain.LayerAPI); err != nil {
		t.Fatalf("GetExecutor() after cache clear error = %v", err)
	}
	if executor.probes != 2 {
		t.Errorf("IsAvailable probed %d times after cache clear, want 2", executor.probes)
	}
}

func TestUnavailableExecutorStaysUnavailableUntilCacheClear(t *testing.T) {
	registry := NewExecutorRegistry("", logger.NewStd(false))
	executor := &stubExecutor{name: "gemini-api", available: false}
	registry.RegisterAPIExecutor("gemini", executor, nil)

	if registry.IsExecutorAvailable("gemini", domain.LayerAPI) {
		t.Fatal("unavailable executor reported available")
	}

	// Environment changes (key exported) are only observed after a clear.
	executor.available = true
	if registry.IsExecutorAvailable("gemini", domain.LayerAPI) {
		t.Error("memoized result should still report unavailable")
	}
	registry.ClearAvailabilityCache()
	if !registry.IsExecutorAvailable("gemini", domain.LayerAPI) {
		t.Error("executor should be available after cache clear")
	}
}

func TestLastRegistrationWins(t *testing.T) {
	registry := NewExecutorRegistry("", logger.NewStd(false))
	first := &stubExecutor{name: "first", available: true}
	second := &stubExecutor{name: "second", available: true}
	registry.RegisterCLIExecutor("claude", first, nil)
	registry.RegisterCLIExecutor("claude", second, nil)

	got, err := registry.GetExecutor("claude", domain.LayerCLI)
	if err != nil {
		t.Fatalf("GetExecutor() error = %v", err)
	}
	if got.ProviderName() != "second" {
		t.Errorf("ProviderName() = %q, want the later registration", got.ProviderName())
	}
}

func TestListAvailableExecutors(t *testing.T) {
	registry := NewExecutorRegistry("", logger.NewStd(false))
	registry.RegisterAPIExecutor("openai", &stubExecutor{available: true}, nil)
	registry.RegisterAPIExecutor("claude", &stubExecutor{available: true}, nil)
	registry.RegisterAPIExecutor("gemini", &stubExecutor{available: false}, nil)
	registry.RegisterCLIExecutor("claude", &stubExecutor{available: true}, nil)

	got := registry.ListAvailableExecutors("")
	want := []string{"claude/api", "openai/api", "claude/cli"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ListAvailableExecutors mismatch (-want +got):\n%s", diff)
	}

	apiOnly := registry.ListAvailableExecutors(domain.LayerAPI)
	wantAPI := []string{"claude/api", "openai/api"}
	if diff := cmp.Diff(wantAPI, apiOnly); diff != "" {
		t.Errorf("ListAvailableExecutors(api) mismatch (-want +got):\n%s", diff)
	}
}

func TestUnavailabilityReasonFromMetadata(t *testing.T) {
	registry := NewExecutorRegistry("", logger.NewStd(false))
	meta := &domain.ExecutorMetadata{
		Provider:       "claude",
		Layer:          domain.LayerAPI,
		ConfigRequired: []string{"ANTHROPIC_API_KEY"},
	}
	registry.RegisterAPIExecutor("claude", &stubExecutor{available: false}, meta)

	_, err := registry.GetExecutor("claude", domain.LayerAPI)
	var notAvailable *domain.NotAvailableError
	if !errors.As(err, &notAvailable) {
		t.Fatalf("expected NotAvailableError, got %v", err)
	}
	want := "Missing required configuration: ANTHROPIC_API_KEY"
	if notAvailable.Reason != want {
		t.Errorf("Reason = %q, want %q", notAvailable.Reason, want)
	}
}

func TestLoadMetadataConfigSkipsMalformedEntries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "executors.json")
	content := `{"executors": [
		{"provider": "claude", "layer": "api", "config_required": ["ANTHROPIC_API_KEY"]},
		{"provider": "", "layer": "api"},
		{"provider": "gemini"}
	]}`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	registry := NewExecutorRegistry(path, logger.NewStd(false))

	meta, ok := registry.Metadata("claude", domain.LayerAPI)
	if !ok {
		t.Fatal("expected metadata for claude/api")
	}
	if meta.Name != "claude api" || meta.Version != "1.0.0" || meta.Priority != 10 {
		t.Errorf("defaults not applied: %+v", meta)
	}
	if _, ok := registry.Metadata("gemini", domain.LayerAPI); ok {
		t.Error("entry without layer should have been skipped")
	}
}

func TestLoadMetadataConfigToleratesCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "executors.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	registry := NewExecutorRegistry(path, logger.NewStd(false))
	if _, ok := registry.Metadata("claude", domain.LayerAPI); ok {
		t.Error("corrupt config should load no metadata")
	}
}
