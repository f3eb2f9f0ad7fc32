// Package services contains the decision layer of the bot: the executor
// registry, the smart router, the intent classifier, and the chat flow that
// ties them to sessions and deduplication.
package services

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/doeshing/aibridge/internal/domain"
	"github.com/doeshing/aibridge/internal/ports"
)

// ExecutorRegistry holds registered backends per layer and memoizes their
// availability. Executors are injected via the register calls and shared
// read-only with the router; the registry itself is safe for concurrent use.
type ExecutorRegistry struct {
	mu           sync.Mutex
	apiExecutors map[string]ports.Executor
	cliExecutors map[string]ports.Executor
	metadata     map[string]domain.ExecutorMetadata
	availability map[string]bool
	logger       ports.Logger
}

// NewExecutorRegistry builds an empty registry. When configPath names an
// executor metadata file it is loaded best-effort: malformed entries are
// skipped and read or parse failures degrade to an empty metadata set.
func NewExecutorRegistry(configPath string, log ports.Logger) *ExecutorRegistry {
	r := &ExecutorRegistry{
		apiExecutors: make(map[string]ports.Executor),
		cliExecutors: make(map[string]ports.Executor),
		metadata:     make(map[string]domain.ExecutorMetadata),
		availability: make(map[string]bool),
		logger:       log,
	}
	if configPath != "" {
		r.loadMetadataConfig(configPath)
	}
	return r
}

// RegisterAPIExecutor inserts an API-backed executor for the provider.
// The last registration for a (provider, layer) pair wins.
func (r *ExecutorRegistry) RegisterAPIExecutor(provider string, executor ports.Executor, metadata *domain.ExecutorMetadata) {
	r.register(provider, domain.LayerAPI, executor, metadata)
}

// RegisterCLIExecutor inserts a CLI-backed executor for the provider.
func (r *ExecutorRegistry) RegisterCLIExecutor(provider string, executor ports.Executor, metadata *domain.ExecutorMetadata) {
	r.register(provider, domain.LayerCLI, executor, metadata)
}

func (r *ExecutorRegistry) register(provider string, layer domain.Layer, executor ports.Executor, metadata *domain.ExecutorMetadata) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.executorsFor(layer)[provider] = executor
	if metadata != nil {
		r.metadata[cacheKey(provider, layer)] = *metadata
	}
	r.logger.Info("registered executor", map[string]interface{}{
		"provider": provider,
		"layer":    string(layer),
	})
}

// GetExecutor returns the executor for the pair, or *domain.NotAvailableError
// when the pair is unregistered or the executor reports unavailable. The
// underlying IsAvailable is invoked at most once per pair until
// ClearAvailabilityCache is called.
func (r *ExecutorRegistry) GetExecutor(provider string, layer domain.Layer) (ports.Executor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	executor, ok := r.executorsFor(layer)[provider]
	if !ok {
		return nil, &domain.NotAvailableError{Provider: provider, Layer: layer, Reason: "executor not registered"}
	}

	key := cacheKey(provider, layer)
	available, cached := r.availability[key]
	if !cached {
		available = executor.IsAvailable()
		r.availability[key] = available
	}
	if !available {
		return nil, &domain.NotAvailableError{
			Provider: provider,
			Layer:    layer,
			Reason:   r.unavailabilityReason(provider, layer),
		}
	}
	return executor, nil
}

// IsExecutorAvailable is the boolean variant of GetExecutor.
func (r *ExecutorRegistry) IsExecutorAvailable(provider string, layer domain.Layer) bool {
	_, err := r.GetExecutor(provider, layer)
	return err == nil
}

// ListAvailableExecutors returns "{provider}/{layer}" strings for every
// reachable executor, optionally filtered by layer. Layer "" means both.
func (r *ExecutorRegistry) ListAvailableExecutors(layer domain.Layer) []string {
	var available []string
	if layer == "" || layer == domain.LayerAPI {
		available = append(available, r.availableIn(domain.LayerAPI)...)
	}
	if layer == "" || layer == domain.LayerCLI {
		available = append(available, r.availableIn(domain.LayerCLI)...)
	}
	return available
}

func (r *ExecutorRegistry) availableIn(layer domain.Layer) []string {
	r.mu.Lock()
	providers := make([]string, 0, len(r.executorsFor(layer)))
	for provider := range r.executorsFor(layer) {
		providers = append(providers, provider)
	}
	r.mu.Unlock()
	sort.Strings(providers)

	var out []string
	for _, provider := range providers {
		if r.IsExecutorAvailable(provider, layer) {
			out = append(out, fmt.Sprintf("%s/%s", provider, layer))
		}
	}
	return out
}

// Metadata returns the metadata registered for the pair, if any.
func (r *ExecutorRegistry) Metadata(provider string, layer domain.Layer) (domain.ExecutorMetadata, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	meta, ok := r.metadata[cacheKey(provider, layer)]
	return meta, ok
}

// ClearAvailabilityCache forces the next lookup per pair to re-probe the
// executor. Availability is otherwise memoized for cheap, deterministic
// repeated lookups within a processing window.
func (r *ExecutorRegistry) ClearAvailabilityCache() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.availability = make(map[string]bool)
	r.logger.Debug("cleared executor availability cache", nil)
}

// unavailabilityReason prefers the config_required list from registered
// metadata, falling back to a generic layer-specific message.
// Caller holds r.mu.
func (r *ExecutorRegistry) unavailabilityReason(provider string, layer domain.Layer) string {
	if meta, ok := r.metadata[cacheKey(provider, layer)]; ok && len(meta.ConfigRequired) > 0 {
		return "Missing required configuration: " + strings.Join(meta.ConfigRequired, ", ")
	}
	if layer == domain.LayerAPI {
		return "API key not configured or invalid"
	}
	return "CLI tool not installed or target directory not accessible"
}

// executorsFor selects the per-layer map. Caller holds r.mu.
func (r *ExecutorRegistry) executorsFor(layer domain.Layer) map[string]ports.Executor {
	if layer == domain.LayerAPI {
		return r.apiExecutors
	}
	return r.cliExecutors
}

func cacheKey(provider string, layer domain.Layer) string {
	return provider + "_" + string(layer)
}

type executorConfigFile struct {
	Executors []domain.ExecutorMetadata `json:"executors"`
}

// loadMetadataConfig loads executor metadata from a JSON config file.
// Any failure leaves the metadata set empty rather than aborting startup.
func (r *ExecutorRegistry) loadMetadataConfig(path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			r.logger.Warn("failed to read executor config", map[string]interface{}{
				"path": path, "error": err.Error(),
			})
		}
		return
	}

	var cfg executorConfigFile
	if err := json.Unmarshal(data, &cfg); err != nil {
		r.logger.Warn("failed to parse executor config", map[string]interface{}{
			"path": path, "error": err.Error(),
		})
		return
	}

	for _, meta := range cfg.Executors {
		if meta.Provider == "" || meta.Layer == "" {
			continue
		}
		if meta.Name == "" {
			meta.Name = fmt.Sprintf("%s %s", meta.Provider, meta.Layer)
		}
		if meta.Version == "" {
			meta.Version = "1.0.0"
		}
		if meta.Priority == 0 {
			meta.Priority = 10
		}
		r.metadata[cacheKey(meta.Provider, meta.Layer)] = meta
	}
	r.logger.Info("loaded executor configuration", map[string]interface{}{
		"path": path, "entries": len(cfg.Executors),
	})
}
