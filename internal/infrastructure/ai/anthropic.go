package ai

import (
	"encoding/json"
	"net/http"

	"github.com/doeshing/aibridge/internal/domain"
)

const (
	defaultAnthropicModel    = "claude-3-5-sonnet-20241022"
	defaultAnthropicEndpoint = "https://api.anthropic.com/v1/messages"
	anthropicVersion         = "2023-06-01"
	anthropicMaxTokens       = 4096
)

func anthropicAdapter() providerAdapter {
	return providerAdapter{
		endpoint:      anthropicEndpoint,
		buildRequest:  buildAnthropicRequest,
		parseResponse: parseAnthropicResponse,
		setHeaders:    setAnthropicHeaders,
	}
}

func anthropicEndpoint(cfg domain.APIExecutorSettings, _ string, _ string) string {
	if cfg.BaseURL != "" {
		return cfg.BaseURL
	}
	return defaultAnthropicEndpoint
}

func buildAnthropicRequest(model string, params domain.ExecuteParams, messages []chatMessage) ([]byte, error) {
	chatMessages := make([]map[string]interface{}, 0, len(messages))
	for _, msg := range messages {
		chatMessages = append(chatMessages, map[string]interface{}{
			"role": msg.Role,
			"content": []map[string]string{
				{"type": "text", "text": msg.Content},
			},
		})
	}

	request := map[string]interface{}{
		"model":      model,
		"max_tokens": defaultInt(params.MaxTokens, anthropicMaxTokens),
		"messages":   chatMessages,
	}
	if params.Temperature > 0 {
		request["temperature"] = params.Temperature
	}
	return json.Marshal(request)
}

func parseAnthropicResponse(body []byte) (string, error) {
	var response struct {
		Content []struct {
			Text string `json:"text"`
		} `json:"content"`
	}
	if err := json.Unmarshal(body, &response); err != nil {
		return "", err
	}
	if len(response.Content) == 0 {
		return "", nil
	}
	return response.Content[0].Text, nil
}

func setAnthropicHeaders(req *http.Request, apiKey string) {
	req.Header.Set("x-api-key", apiKey)
	req.Header.Set("anthropic-version", anthropicVersion)
}

func defaultInt(value, fallback int) int {
	if value == 0 {
		return fallback
	}
	return value
}
