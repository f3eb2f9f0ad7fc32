package ai

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/doeshing/aibridge/internal/domain"
)

const (
	defaultOpenAIModel   = "gpt-4o-mini"
	defaultOpenAIBaseURL = "https://api.openai.com/v1"
)

func openaiAdapter() providerAdapter {
	return providerAdapter{
		endpoint:      openaiEndpoint,
		buildRequest:  buildChatCompletionRequest,
		parseResponse: parseChatCompletionResponse,
		setHeaders:    setOpenAIHeaders,
	}
}

// openaiEndpoint honors base_url overrides so OpenAI-compatible gateways
// work unchanged.
func openaiEndpoint(cfg domain.APIExecutorSettings, _ string, _ string) string {
	base := defaultOpenAIBaseURL
	if cfg.BaseURL != "" {
		base = strings.TrimSuffix(cfg.BaseURL, "/")
	}
	return base + "/chat/completions"
}

func buildChatCompletionRequest(model string, params domain.ExecuteParams, messages []chatMessage) ([]byte, error) {
	chatMessages := make([]map[string]string, 0, len(messages))
	for _, msg := range messages {
		chatMessages = append(chatMessages, map[string]string{
			"role":    msg.Role,
			"content": msg.Content,
		})
	}

	request := map[string]interface{}{
		"model":    model,
		"messages": chatMessages,
	}
	if params.MaxTokens > 0 {
		request["max_tokens"] = params.MaxTokens
	}
	if params.Temperature > 0 {
		request["temperature"] = params.Temperature
	}
	return json.Marshal(request)
}

func parseChatCompletionResponse(body []byte) (string, error) {
	var response struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(body, &response); err != nil {
		return "", err
	}
	if len(response.Choices) == 0 {
		return "", nil
	}
	return strings.TrimSpace(response.Choices[0].Message.Content), nil
}

func setOpenAIHeaders(req *http.Request, apiKey string) {
	req.Header.Set("authorization", "Bearer "+apiKey)
}
