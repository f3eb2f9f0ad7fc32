package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/doeshing/aibridge/internal/domain"
	"github.com/doeshing/aibridge/internal/pkg/dedupe"
	"github.com/doeshing/aibridge/internal/ports"
)

// historyWindow bounds how much conversation context is handed to an
// executor per call.
const historyWindow = 20

// ChatService drives the message-handling flow: deduplication, session
// commands, routing, execution with conversation context, and history
// bookkeeping. It is the seam between whatever transport delivers inbound
// events and the decision/state core.
type ChatService struct {
	Dedupe   *dedupe.Cache
	Sessions ports.ConversationStore
	Router   *SmartRouter
	Recorder ports.ExchangeRecorder
	Logger   ports.Logger
}

// ChatReply is the outcome of handling one inbound message.
type ChatReply struct {
	Text    string
	Skipped bool // duplicate delivery, nothing to send
}

// HandleMessage processes one inbound chat message for a user. messageID may
// be empty when the transport provides no identifier, which disables
// deduplication for that message.
func (s *ChatService) HandleMessage(ctx context.Context, userID, messageID, text string) (ChatReply, error) {
	if messageID != "" {
		if s.Dedupe.IsProcessed(messageID) {
			s.Logger.Info("duplicate message skipped", map[string]interface{}{"message_id": messageID})
			return ChatReply{Skipped: true}, nil
		}
		s.Dedupe.MarkProcessed(messageID)
	}

	if reply := s.Sessions.HandleSessionCommand(userID, text); reply != "" {
		return ChatReply{Text: reply}, nil
	}

	cmd := domain.ParseCommand(text)
	executor, err := s.Router.Route(ctx, cmd)
	if err != nil {
		var notAvailable *domain.NotAvailableError
		if errors.As(err, &notAvailable) {
			return ChatReply{Text: apologyFor(notAvailable)}, nil
		}
		return ChatReply{}, err
	}

	history := s.Sessions.GetConversationHistory(userID, historyWindow)
	s.Sessions.AddMessage(userID, domain.RoleUser, cmd.Message)

	start := time.Now()
	result, err := executor.Execute(ctx, cmd.Message, history, domain.ExecuteParams{})
	s.record(userID, cmd, executor, result, err, time.Since(start))
	if err != nil {
		return ChatReply{Text: fmt.Sprintf("Sorry, %s failed to respond: %v", executor.ProviderName(), err)}, nil
	}
	if !result.Success {
		return ChatReply{Text: fmt.Sprintf("Sorry, %s failed to respond: %s", executor.ProviderName(), result.ErrorMessage)}, nil
	}

	s.Sessions.AddMessage(userID, domain.RoleAssistant, result.Stdout)
	return ChatReply{Text: result.Stdout}, nil
}

// record persists the exchange audit entry, best-effort.
func (s *ChatService) record(userID string, cmd domain.ParsedCommand, executor ports.Executor, result domain.ExecutionResult, execErr error, elapsed time.Duration) {
	if s.Recorder == nil {
		return
	}
	record := domain.ExchangeRecord{
		Timestamp:  time.Now(),
		UserID:     userID,
		Provider:   executor.ProviderName(),
		Layer:      cmd.Layer,
		Explicit:   cmd.Explicit,
		Success:    execErr == nil && result.Success,
		DurationMS: elapsed.Milliseconds(),
		PromptLen:  len(cmd.Message),
		ReplyLen:   len(result.Stdout),
	}
	if err := s.Recorder.Record(record); err != nil {
		s.Logger.Warn("failed to record exchange", map[string]interface{}{"error": err.Error()})
	}
}

// apologyFor turns a final routing failure into a user-facing reply carrying
// the structured provider/layer/reason information.
func apologyFor(err *domain.NotAvailableError) string {
	return fmt.Sprintf("Sorry, no AI backend could handle this message right now.\nRequested: %s/%s\nReason: %s",
		err.Provider, err.Layer, err.Reason)
}
