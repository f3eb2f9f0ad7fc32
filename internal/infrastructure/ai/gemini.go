package ai

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/doeshing/aibridge/internal/domain"
)

const (
	defaultGeminiModel   = "gemini-2.0-flash"
	defaultGeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta"
)

func geminiAdapter() providerAdapter {
	return providerAdapter{
		endpoint:      geminiEndpoint,
		buildRequest:  buildGeminiRequest,
		parseResponse: parseGeminiResponse,
		setHeaders:    func(*http.Request, string) {},
	}
}

// geminiEndpoint carries the key as a query parameter, which is how the
// generativelanguage API authenticates.
func geminiEndpoint(cfg domain.APIExecutorSettings, apiKey, model string) string {
	base := defaultGeminiBaseURL
	if cfg.BaseURL != "" {
		base = strings.TrimSuffix(cfg.BaseURL, "/")
	}
	return fmt.Sprintf("%s/models/%s:generateContent?key=%s", base, model, apiKey)
}

func buildGeminiRequest(_ string, params domain.ExecuteParams, messages []chatMessage) ([]byte, error) {
	contents := make([]map[string]interface{}, 0, len(messages))
	for _, msg := range messages {
		role := "user"
		if msg.Role == domain.RoleAssistant {
			role = "model"
		}
		contents = append(contents, map[string]interface{}{
			"role": role,
			"parts": []map[string]string{
				{"text": msg.Content},
			},
		})
	}

	request := map[string]interface{}{"contents": contents}
	generation := map[string]interface{}{}
	if params.MaxTokens > 0 {
		generation["maxOutputTokens"] = params.MaxTokens
	}
	if params.Temperature > 0 {
		generation["temperature"] = params.Temperature
	}
	if len(generation) > 0 {
		request["generationConfig"] = generation
	}
	return json.Marshal(request)
}

func parseGeminiResponse(body []byte) (string, error) {
	var response struct {
		Candidates []struct {
			Content struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"content"`
		} `json:"candidates"`
	}
	if err := json.Unmarshal(body, &response); err != nil {
		return "", err
	}
	if len(response.Candidates) == 0 || len(response.Candidates[0].Content.Parts) == 0 {
		return "", nil
	}
	return strings.TrimSpace(response.Candidates[0].Content.Parts[0].Text), nil
}
