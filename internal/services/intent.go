package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/doeshing/aibridge/internal/domain"
	"github.com/doeshing/aibridge/internal/ports"
)

// classificationPrompt instructs the model to judge whether a message needs
// access to the local codebase (the CLI layer) and to answer in strict JSON.
const classificationPrompt = `You are a routing assistant. Decide whether the user's request requires access to a local code repository.

Requires local repository access (CLI layer):
- viewing, analyzing or modifying existing code files
- reading specific files inside the project
- analyzing project structure or architecture
- running local commands or scripts
- refactoring or optimizing existing code

Does NOT require local repository access (API layer):
- general questions ("who are you", "what is Python")
- concept explanations and theory
- generating new code without reading existing code
- translation, writing, summarization
- algorithm walkthroughs and example code

Answer with JSON only, no other text:
{"needs_cli": true/false, "confidence": 0.0-1.0, "reason": "...", "category": "..."}

User request: %s`

// Classification call parameters: short, deterministic output.
const (
	classificationMaxTokens   = 200
	classificationTemperature = 0.1
)

// IntentClassifier judges whether a message needs the CLI execution layer by
// asking a borrowed API executor, with keyword detection as the recovery
// path. Classification failures never surface to callers.
type IntentClassifier struct {
	executor ports.Executor
	useCache bool
	logger   ports.Logger

	mu    sync.Mutex
	cache map[string]domain.IntentClassification
}

// NewIntentClassifier builds a classifier around the given API executor,
// which may be nil to force the keyword path. useCache enables memoizing
// successful AI classifications by exact message text.
func NewIntentClassifier(executor ports.Executor, useCache bool, log ports.Logger) *IntentClassifier {
	return &IntentClassifier{
		executor: executor,
		useCache: useCache,
		logger:   log,
		cache:    make(map[string]domain.IntentClassification),
	}
}

// Classify returns the intent judgement for the message. The AI path is
// tried first; JSON parse failures, executor errors, and a missing executor
// all fall back to keyword detection.
func (c *IntentClassifier) Classify(ctx context.Context, message string) domain.IntentClassification {
	if c.useCache {
		c.mu.Lock()
		cached, ok := c.cache[message]
		c.mu.Unlock()
		if ok {
			c.logger.Debug("using cached intent classification", nil)
			return cached
		}
	}

	if c.executor != nil {
		if result, ok := c.classifyWithAI(ctx, message); ok {
			if c.useCache {
				c.mu.Lock()
				c.cache[message] = result
				c.mu.Unlock()
			}
			return result
		}
	}

	return classifyWithKeywords(message)
}

// ClearCache drops memoized classifications.
func (c *IntentClassifier) ClearCache() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cache = make(map[string]domain.IntentClassification)
}

func (c *IntentClassifier) classifyWithAI(ctx context.Context, message string) (domain.IntentClassification, bool) {
	prompt := fmt.Sprintf(classificationPrompt, message)
	result, err := c.executor.Execute(ctx, prompt, nil, domain.ExecuteParams{
		MaxTokens:   classificationMaxTokens,
		Temperature: classificationTemperature,
	})
	if err != nil {
		c.logger.Warn("intent classification call failed", map[string]interface{}{"error": err.Error()})
		return domain.IntentClassification{}, false
	}
	if !result.Success {
		c.logger.Warn("intent classification execution failed", map[string]interface{}{"error": result.ErrorMessage})
		return domain.IntentClassification{}, false
	}

	payload, ok := extractJSONObject(result.Stdout)
	if !ok {
		c.logger.Warn("intent classification response carried no JSON object", nil)
		return domain.IntentClassification{}, false
	}

	var classification domain.IntentClassification
	if err := json.Unmarshal([]byte(payload), &classification); err != nil {
		c.logger.Warn("failed to parse intent classification JSON", map[string]interface{}{"error": err.Error()})
		return domain.IntentClassification{}, false
	}
	if classification.Confidence == 0 {
		classification.Confidence = 0.5
	}
	if classification.Category == "" {
		classification.Category = "unknown"
	}

	c.logger.Info("ai intent classification", map[string]interface{}{
		"needs_cli":  classification.NeedsCLI,
		"confidence": classification.Confidence,
		"category":   classification.Category,
	})
	return classification, true
}

// extractJSONObject locates the JSON object inside a model response,
// tolerating fenced code blocks and surrounding prose by slicing from the
// first '{' to the last '}'.
func extractJSONObject(text string) (string, bool) {
	text = strings.TrimSpace(text)
	if idx := strings.Index(text, "```"); idx != -1 {
		rest := text[idx+3:]
		rest = strings.TrimPrefix(rest, "json")
		if end := strings.Index(rest, "```"); end != -1 {
			text = rest[:end]
		}
	}
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end <= start {
		return "", false
	}
	return text[start : end+1], true
}

// classifyWithKeywords is the non-AI recovery path with fixed confidences.
func classifyWithKeywords(message string) domain.IntentClassification {
	if domain.DetectCLIKeywords(message) {
		return domain.IntentClassification{
			NeedsCLI:   true,
			Confidence: domain.KeywordMatchConfidence,
			Reason:     "message contains a CLI keyword",
			Category:   domain.IntentCategoryKeywordMatch,
		}
	}
	return domain.IntentClassification{
		NeedsCLI:   false,
		Confidence: domain.KeywordMissConfidence,
		Reason:     "no CLI keyword detected",
		Category:   domain.IntentCategoryDefault,
	}
}
