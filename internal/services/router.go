package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/doeshing/aibridge/internal/domain"
	"github.com/doeshing/aibridge/internal/ports"
)

// Provider probe orders used by the router.
var (
	// classifierProviders orders API providers for intent classification;
	// lighter, cheaper backends first.
	classifierProviders = []string{"openai", "gemini", "claude"}
	// cliProviders orders CLI providers for auto-detection.
	cliProviders = []string{"claude", "gemini"}
)

// SmartRouter decides, per incoming message, which executor handles it.
//
// Routing strategy:
//  1. Explicit prefix wins: use the requested provider and layer directly.
//  2. Otherwise classify intent (AI preferred, keywords as fallback) to pick
//     the CLI layer or the configured defaults.
//  3. On unavailability, degrade through the fallback cascade: same provider
//     opposite layer, then other providers same layer, then other providers
//     opposite layer.
//
// Each Route call is a pure decision over current registry state; the router
// keeps no state between calls beyond the lazily built classifier.
type SmartRouter struct {
	registry            *ExecutorRegistry
	defaultProvider     string
	defaultLayer        domain.Layer
	defaultCLIProvider  string
	useAIClassification bool
	logger              ports.Logger

	classifierMu sync.Mutex
	classifier   *IntentClassifier
}

// RouterOptions configure a SmartRouter.
type RouterOptions struct {
	DefaultProvider     string
	DefaultLayer        domain.Layer
	DefaultCLIProvider  string // empty means auto-detect the first available CLI
	UseAIClassification bool
}

// NewSmartRouter builds a router over the registry.
func NewSmartRouter(registry *ExecutorRegistry, opts RouterOptions, log ports.Logger) *SmartRouter {
	if opts.DefaultProvider == "" {
		opts.DefaultProvider = domain.DefaultProvider
	}
	if opts.DefaultLayer == "" {
		opts.DefaultLayer = domain.DefaultLayer
	}
	return &SmartRouter{
		registry:            registry,
		defaultProvider:     opts.DefaultProvider,
		defaultLayer:        opts.DefaultLayer,
		defaultCLIProvider:  opts.DefaultCLIProvider,
		useAIClassification: opts.UseAIClassification,
		logger:              log,
	}
}

// Route selects the executor for a parsed command. It returns only executors
// that passed their (possibly memoized) availability check and never invents
// a provider/layer pair outside the registry's registered set. The only
// error returned is *domain.NotAvailableError.
func (r *SmartRouter) Route(ctx context.Context, cmd domain.ParsedCommand) (ports.Executor, error) {
	if cmd.Explicit {
		r.logger.Info("routing explicit prefix", map[string]interface{}{
			"provider": cmd.Provider, "layer": string(cmd.Layer),
		})
		executor, err := r.registry.GetExecutor(cmd.Provider, cmd.Layer)
		if err == nil {
			return executor, nil
		}
		var notAvailable *domain.NotAvailableError
		if !errors.As(err, &notAvailable) {
			return nil, err
		}
		r.logger.Warn("explicit executor not available, falling back", map[string]interface{}{
			"provider": cmd.Provider, "layer": string(cmd.Layer), "reason": notAvailable.Reason,
		})
		return r.fallback(cmd.Provider, cmd.Layer)
	}

	provider := r.defaultProvider
	layer := r.defaultLayer
	if r.needsCLI(ctx, cmd.Message) {
		layer = domain.LayerCLI
		if r.defaultCLIProvider != "" {
			provider = r.defaultCLIProvider
		} else {
			detected, ok := r.firstAvailableCLIProvider()
			if !ok {
				return nil, &domain.NotAvailableError{
					Provider: "cli",
					Layer:    domain.LayerCLI,
					Reason:   "No CLI executor configured. Install Claude Code CLI or Gemini CLI and configure a target directory.",
				}
			}
			provider = detected
		}
		r.logger.Info("intent classification selected CLI layer", map[string]interface{}{"provider": provider})
	} else {
		r.logger.Info("intent classification selected defaults", map[string]interface{}{
			"provider": provider, "layer": string(layer),
		})
	}

	executor, err := r.registry.GetExecutor(provider, layer)
	if err == nil {
		return executor, nil
	}
	var notAvailable *domain.NotAvailableError
	if !errors.As(err, &notAvailable) {
		return nil, err
	}
	r.logger.Warn("selected executor not available, falling back", map[string]interface{}{
		"provider": provider, "layer": string(layer), "reason": notAvailable.Reason,
	})
	return r.fallback(provider, layer)
}

// needsCLI decides whether the message needs the CLI layer, preferring the
// AI classifier and degrading to keyword detection when classification is
// disabled or no API backend can serve it.
func (r *SmartRouter) needsCLI(ctx context.Context, message string) bool {
	if !r.useAIClassification {
		return domain.DetectCLIKeywords(message)
	}

	classifier := r.lazyClassifier()
	if classifier == nil {
		return domain.DetectCLIKeywords(message)
	}
	return classifier.Classify(ctx, message).NeedsCLI
}

// lazyClassifier instantiates the classifier once over the first available
// API backend; while none is available it keeps retrying on later calls.
func (r *SmartRouter) lazyClassifier() *IntentClassifier {
	r.classifierMu.Lock()
	defer r.classifierMu.Unlock()
	if r.classifier != nil {
		return r.classifier
	}
	executor, ok := r.classificationExecutor()
	if !ok {
		r.logger.Warn("no API executor available for intent classification", nil)
		return nil
	}
	r.classifier = NewIntentClassifier(executor, true, r.logger)
	return r.classifier
}

// classificationExecutor picks the first available API executor from the
// classifier priority list.
func (r *SmartRouter) classificationExecutor() (ports.Executor, bool) {
	for _, provider := range classifierProviders {
		if executor, err := r.registry.GetExecutor(provider, domain.LayerAPI); err == nil {
			r.logger.Debug("selected classification backend", map[string]interface{}{"provider": provider})
			return executor, true
		}
	}
	return nil, false
}

// firstAvailableCLIProvider probes the CLI priority list.
func (r *SmartRouter) firstAvailableCLIProvider() (string, bool) {
	for _, provider := range cliProviders {
		if r.registry.IsExecutorAvailable(provider, domain.LayerCLI) {
			r.logger.Info("auto-detected CLI provider", map[string]interface{}{"provider": provider})
			return provider, true
		}
	}
	return "", false
}

// fallback degrades through alternate (provider, layer) pairs after the
// originally selected executor turned out unavailable, returning the first
// that succeeds.
func (r *SmartRouter) fallback(provider string, originalLayer domain.Layer) (ports.Executor, error) {
	oppositeLayer := originalLayer.Opposite()

	attempts := []struct {
		provider string
		layer    domain.Layer
	}{{provider, oppositeLayer}}

	var alternatives []string
	for _, alt := range domain.KnownProviders {
		if alt != provider {
			alternatives = append(alternatives, alt)
		}
	}
	for _, alt := range alternatives {
		attempts = append(attempts, struct {
			provider string
			layer    domain.Layer
		}{alt, originalLayer})
	}
	for _, alt := range alternatives {
		attempts = append(attempts, struct {
			provider string
			layer    domain.Layer
		}{alt, oppositeLayer})
	}

	tried := []string{fmt.Sprintf("%s/%s", provider, originalLayer)}
	for _, attempt := range attempts {
		executor, err := r.registry.GetExecutor(attempt.provider, attempt.layer)
		if err == nil {
			r.logger.Warn("fallback successful", map[string]interface{}{
				"provider": attempt.provider, "layer": string(attempt.layer),
			})
			return executor, nil
		}
		tried = append(tried, fmt.Sprintf("%s/%s", attempt.provider, attempt.layer))
	}

	return nil, &domain.NotAvailableError{
		Provider: provider,
		Layer:    originalLayer,
		Reason:   fmt.Sprintf("No executor available. Tried: %s.", strings.Join(tried, ", ")),
	}
}
