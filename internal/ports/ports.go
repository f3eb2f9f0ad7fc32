// Package ports defines the interfaces between the application core and
// external adapters.
//
// Following the Ports and Adapters (Hexagonal) pattern, these interfaces keep
// the routing and session logic independent of concrete AI backends, storage
// engines, and logging sinks. Executors are never constructed by the core;
// they are injected through registry registration calls.
package ports

import (
	"context"

	"github.com/doeshing/aibridge/internal/domain"
)

// Executor is the capability contract every AI backend implements, whether
// it reaches a provider over HTTP (api layer) or drives a local CLI tool
// (cli layer).
type Executor interface {
	Execute(ctx context.Context, prompt string, history []domain.Message, params domain.ExecuteParams) (domain.ExecutionResult, error)
	IsAvailable() bool
	ProviderName() string
}

// ConfigProvider loads the latest configuration from persistent storage.
// Implementations typically read from ~/.aibridge/config.yaml.
type ConfigProvider interface {
	Load(context.Context) (domain.Config, error)
}

// ConversationStore is the session-backed conversation state the chat flow
// depends on. HandleSessionCommand returns "" for text that is not a
// session command.
type ConversationStore interface {
	AddMessage(userID, role, content string)
	GetConversationHistory(userID string, maxMessages int) []domain.Message
	HandleSessionCommand(userID, text string) string
}

// ExchangeRecorder persists an audit record per handled message exchange.
type ExchangeRecorder interface {
	Record(domain.ExchangeRecord) error
}

// Logger provides structured logging abstraction for the application layer.
type Logger interface {
	Debug(msg string, fields map[string]interface{})
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, err error, fields map[string]interface{})
}
