// Package domain defines core business entities and value objects for aibridge.
//
// The domain layer is independent of infrastructure concerns and represents
// pure business logic and data structures: executors and their results,
// sessions and messages, parsed commands, and intent classifications.
package domain

import "fmt"

// Layer identifies which execution path a backend uses.
type Layer string

const (
	// LayerAPI is a remote network call to a provider API.
	LayerAPI Layer = "api"
	// LayerCLI is a local subprocess invocation of a provider CLI tool.
	LayerCLI Layer = "cli"
)

// Opposite returns the other execution layer (api <-> cli).
func (l Layer) Opposite() Layer {
	if l == LayerAPI {
		return LayerCLI
	}
	return LayerAPI
}

// KnownProviders lists every provider the router may consider during
// fallback, in fallback probe order.
var KnownProviders = []string{"claude", "gemini", "openai"}

// ExecutionResult captures the outcome of a single executor invocation.
//
// Invariant: a failed result has empty Stdout and a non-empty ErrorMessage;
// a successful result has an empty ErrorMessage.
type ExecutionResult struct {
	Success       bool
	Stdout        string
	Stderr        string
	ErrorMessage  string
	ExecutionTime float64 // seconds
}

// SuccessResult builds a successful ExecutionResult.
func SuccessResult(stdout, stderr string, elapsed float64) ExecutionResult {
	return ExecutionResult{
		Success:       true,
		Stdout:        stdout,
		Stderr:        stderr,
		ExecutionTime: elapsed,
	}
}

// FailureResult builds a failed ExecutionResult.
func FailureResult(errorMessage, stderr string, elapsed float64) ExecutionResult {
	return ExecutionResult{
		Success:       false,
		Stderr:        stderr,
		ErrorMessage:  errorMessage,
		ExecutionTime: elapsed,
	}
}

// ExecuteParams carries optional per-call generation parameters.
// Zero values mean "use the executor's defaults".
type ExecuteParams struct {
	MaxTokens   int
	Temperature float64
	Model       string
}

// ExecutorMetadata describes a registered backend for diagnostics and
// unavailability explanations. Loaded from the registry config file at
// construction and never mutated afterward.
type ExecutorMetadata struct {
	Name            string   `json:"name"`
	Provider        string   `json:"provider"`
	Layer           Layer    `json:"layer"`
	Version         string   `json:"version"`
	Description     string   `json:"description"`
	Capabilities    []string `json:"capabilities"`
	CommandPrefixes []string `json:"command_prefixes"`
	Priority        int      `json:"priority"`
	ConfigRequired  []string `json:"config_required"`
}

// NotAvailableError reports that a specific backend cannot be used.
// It is the only error type the registry and router raise to callers.
type NotAvailableError struct {
	Provider string
	Layer    Layer
	Reason   string
}

func (e *NotAvailableError) Error() string {
	return fmt.Sprintf("executor %s/%s not available: %s", e.Provider, e.Layer, e.Reason)
}
