package services

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/doeshing/aibridge/internal/domain"
	"github.com/doeshing/aibridge/internal/infrastructure/session"
	"github.com/doeshing/aibridge/internal/pkg/dedupe"
	"github.com/doeshing/aibridge/internal/pkg/logger"
)

type stubRecorder struct {
	records []domain.ExchangeRecord
}

func (s *stubRecorder) Record(record domain.ExchangeRecord) error {
	s.records = append(s.records, record)
	return nil
}

func newTestChatService(t *testing.T, registry *ExecutorRegistry) (*ChatService, *stubRecorder) {
	t.Helper()
	log := logger.NewStd(false)
	sessions, err := session.NewManager(session.Options{
		StoragePath: filepath.Join(t.TempDir(), "sessions.json"),
	}, log)
	if err != nil {
		t.Fatal(err)
	}
	recorder := &stubRecorder{}
	return &ChatService{
		Dedupe:   dedupe.New(10),
		Sessions: sessions,
		Router:   NewSmartRouter(registry, RouterOptions{}, log),
		Recorder: recorder,
		Logger:   log,
	}, recorder
}

func TestHandleMessageRepliesAndTracksHistory(t *testing.T) {
	registry := NewExecutorRegistry("", logger.NewStd(false))
	executor := &stubExecutor{
		name:      "claude-api",
		available: true,
		result:    domain.SuccessResult("Hello there!", "", 0.5),
	}
	registry.RegisterAPIExecutor("claude", executor, nil)
	svc, recorder := newTestChatService(t, registry)

	reply, err := svc.HandleMessage(context.Background(), "user1", "msg-1", "hi")
	if err != nil {
		t.Fatalf("HandleMessage() error = %v", err)
	}
	if reply.Skipped || reply.Text != "Hello there!" {
		t.Errorf("unexpected reply %+v", reply)
	}

	history := svc.Sessions.GetConversationHistory("user1", 0)
	if len(history) != 2 {
		t.Fatalf("history length = %d, want user turn plus assistant turn", len(history))
	}
	if history[0].Role != domain.RoleUser || history[0].Content != "hi" {
		t.Errorf("unexpected first turn %+v", history[0])
	}
	if history[1].Role != domain.RoleAssistant || history[1].Content != "Hello there!" {
		t.Errorf("unexpected second turn %+v", history[1])
	}

	if len(recorder.records) != 1 {
		t.Fatalf("recorded %d exchanges, want 1", len(recorder.records))
	}
	rec := recorder.records[0]
	if !rec.Success || rec.Provider != "claude-api" || rec.UserID != "user1" {
		t.Errorf("unexpected exchange record %+v", rec)
	}
}

func TestHandleMessageSkipsDuplicates(t *testing.T) {
	registry := NewExecutorRegistry("", logger.NewStd(false))
	executor := &stubExecutor{name: "claude-api", available: true, result: domain.SuccessResult("ok", "", 0.1)}
	registry.RegisterAPIExecutor("claude", executor, nil)
	svc, _ := newTestChatService(t, registry)

	if _, err := svc.HandleMessage(context.Background(), "user1", "msg-1", "hi"); err != nil {
		t.Fatal(err)
	}
	reply, err := svc.HandleMessage(context.Background(), "user1", "msg-1", "hi")
	if err != nil {
		t.Fatal(err)
	}
	if !reply.Skipped {
		t.Error("second delivery of the same message ID should be skipped")
	}
	if executor.calls != 1 {
		t.Errorf("executor called %d times, want 1", executor.calls)
	}
}

func TestHandleMessageEmptyIDDisablesDedup(t *testing.T) {
	registry := NewExecutorRegistry("", logger.NewStd(false))
	executor := &stubExecutor{name: "claude-api", available: true, result: domain.SuccessResult("ok", "", 0.1)}
	registry.RegisterAPIExecutor("claude", executor, nil)
	svc, _ := newTestChatService(t, registry)

	for i := 0; i < 2; i++ {
		reply, err := svc.HandleMessage(context.Background(), "user1", "", "hi")
		if err != nil {
			t.Fatal(err)
		}
		if reply.Skipped {
			t.Fatal("messages without an ID must never be deduplicated")
		}
	}
	if executor.calls != 2 {
		t.Errorf("executor called %d times, want 2", executor.calls)
	}
}

func TestHandleMessageSessionCommand(t *testing.T) {
	registry := NewExecutorRegistry("", logger.NewStd(false))
	executor := &stubExecutor{name: "claude-api", available: true, result: domain.SuccessResult("ok", "", 0.1)}
	registry.RegisterAPIExecutor("claude", executor, nil)
	svc, _ := newTestChatService(t, registry)

	reply, err := svc.HandleMessage(context.Background(), "user1", "msg-1", "/help")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(reply.Text, "@claude") {
		t.Errorf("help reply should list prefixes, got %q", reply.Text)
	}
	if executor.calls != 0 {
		t.Error("session commands must not reach an executor")
	}
}

func TestHandleMessageNoBackendApologizes(t *testing.T) {
	registry := NewExecutorRegistry("", logger.NewStd(false))
	svc, recorder := newTestChatService(t, registry)

	reply, err := svc.HandleMessage(context.Background(), "user1", "msg-1", "@claude hi")
	if err != nil {
		t.Fatalf("routing exhaustion should produce a reply, not an error: %v", err)
	}
	if !strings.Contains(reply.Text, "no AI backend could handle this message") {
		t.Errorf("unexpected apology text %q", reply.Text)
	}
	if !strings.Contains(reply.Text, "claude/api") {
		t.Errorf("apology should name the requested pair, got %q", reply.Text)
	}
	if len(recorder.records) != 0 {
		t.Error("nothing should be recorded when no executor ran")
	}
}

func TestHandleMessageExecutorFailure(t *testing.T) {
	registry := NewExecutorRegistry("", logger.NewStd(false))
	executor := &stubExecutor{
		name:      "claude-api",
		available: true,
		result:    domain.FailureResult("rate limited", "", 0.1),
	}
	registry.RegisterAPIExecutor("claude", executor, nil)
	svc, recorder := newTestChatService(t, registry)

	reply, err := svc.HandleMessage(context.Background(), "user1", "msg-1", "hi")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(reply.Text, "failed to respond") {
		t.Errorf("unexpected failure reply %q", reply.Text)
	}

	history := svc.Sessions.GetConversationHistory("user1", 0)
	if len(history) != 1 {
		t.Fatalf("history length = %d, failed replies must not be appended", len(history))
	}
	if len(recorder.records) != 1 || recorder.records[0].Success {
		t.Errorf("expected one failed exchange record, got %+v", recorder.records)
	}
}
