// Package ai implements the executor adapters: API executors speaking each
// provider's HTTP wire format, and CLI executors driving locally installed
// provider tools against a target project directory.
package ai

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/doeshing/aibridge/internal/domain"
	"github.com/doeshing/aibridge/internal/ports"
)

// defaultAPITimeout bounds one provider round-trip when the config does not
// set one. CLI coding-agent turns can run long, API calls should not.
const defaultAPITimeout = 600 * time.Second

// chatMessage is the provider-neutral turn shape adapters translate from.
type chatMessage struct {
	Role    string
	Content string
}

// providerAdapter captures the three points where provider HTTP APIs differ.
type providerAdapter struct {
	endpoint      func(cfg domain.APIExecutorSettings, apiKey, model string) string
	buildRequest  func(model string, params domain.ExecuteParams, messages []chatMessage) ([]byte, error)
	parseResponse func(body []byte) (string, error)
	setHeaders    func(req *http.Request, apiKey string)
}

// APIExecutor sends prompts to a remote provider API over HTTP. The API key
// is read from the configured environment variable on every call, never
// stored.
type APIExecutor struct {
	provider     string
	defaultModel string
	cfg          domain.APIExecutorSettings
	httpClient   *http.Client
	adapter      providerAdapter
	logger       ports.Logger
}

var _ ports.Executor = (*APIExecutor)(nil)

// NewAPIExecutor builds the HTTP executor for a configured provider. It
// returns an error for providers without a wire adapter.
func NewAPIExecutor(cfg domain.APIExecutorSettings, log ports.Logger) (*APIExecutor, error) {
	var adapter providerAdapter
	var defaultModel string
	switch cfg.Provider {
	case "claude":
		adapter = anthropicAdapter()
		defaultModel = defaultAnthropicModel
	case "openai":
		adapter = openaiAdapter()
		defaultModel = defaultOpenAIModel
	case "gemini":
		adapter = geminiAdapter()
		defaultModel = defaultGeminiModel
	default:
		return nil, fmt.Errorf("no API adapter for provider %q", cfg.Provider)
	}

	timeout := defaultAPITimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}

	return &APIExecutor{
		provider:     cfg.Provider,
		defaultModel: defaultModel,
		cfg:          cfg,
		httpClient:   &http.Client{Timeout: timeout},
		adapter:      adapter,
		logger:       log,
	}, nil
}

func (e *APIExecutor) ProviderName() string {
	return e.provider + "-api"
}

// IsAvailable reports whether the auth environment variable carries a value.
// It never performs a network probe.
func (e *APIExecutor) IsAvailable() bool {
	return os.Getenv(e.cfg.AuthEnvVar) != ""
}

// Execute sends the conversation plus the new prompt to the provider and
// returns the assistant text. Provider and transport failures come back as a
// failed ExecutionResult, not an error; the error return is reserved for
// programming mistakes such as an unmarshalable payload.
func (e *APIExecutor) Execute(ctx context.Context, prompt string, history []domain.Message, params domain.ExecuteParams) (domain.ExecutionResult, error) {
	start := time.Now()

	apiKey := os.Getenv(e.cfg.AuthEnvVar)
	if apiKey == "" {
		return domain.FailureResult(fmt.Sprintf("missing API key: %s not set", e.cfg.AuthEnvVar), "", secondsSince(start)), nil
	}

	model := params.Model
	if model == "" {
		model = e.cfg.Model
	}
	if model == "" {
		model = e.defaultModel
	}

	messages := buildMessages(history, prompt)
	body, err := e.adapter.buildRequest(model, params, messages)
	if err != nil {
		return domain.ExecutionResult{}, err
	}

	endpoint := e.adapter.endpoint(e.cfg, apiKey, model)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return domain.ExecutionResult{}, err
	}
	httpReq.Header.Set("content-type", "application/json")
	e.adapter.setHeaders(httpReq, apiKey)

	resp, err := e.httpClient.Do(httpReq)
	if err != nil {
		return domain.FailureResult(fmt.Sprintf("%s request failed: %v", e.ProviderName(), err), "", secondsSince(start)), nil
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return domain.FailureResult(fmt.Sprintf("%s response read failed: %v", e.ProviderName(), err), "", secondsSince(start)), nil
	}
	if resp.StatusCode >= 400 {
		e.logger.Warn("provider returned error status", map[string]interface{}{
			"provider": e.ProviderName(), "status": resp.Status,
		})
		return domain.FailureResult(fmt.Sprintf("%s: %s", e.ProviderName(), resp.Status), string(respBody), secondsSince(start)), nil
	}

	text, err := e.adapter.parseResponse(respBody)
	if err != nil {
		return domain.FailureResult(fmt.Sprintf("%s response parse failed: %v", e.ProviderName(), err), "", secondsSince(start)), nil
	}

	return domain.SuccessResult(text, "", secondsSince(start)), nil
}

// buildMessages renders the conversation history plus the new user turn in
// chronological order.
func buildMessages(history []domain.Message, prompt string) []chatMessage {
	messages := make([]chatMessage, 0, len(history)+1)
	for _, msg := range history {
		messages = append(messages, chatMessage{Role: msg.Role, Content: msg.Content})
	}
	return append(messages, chatMessage{Role: domain.RoleUser, Content: prompt})
}

func secondsSince(start time.Time) float64 {
	return time.Since(start).Seconds()
}
