package domain_test

import (
	"testing"
	"time"

	"github.com/doeshing/aibridge/internal/domain"
)

func TestSessionIsExpired(t *testing.T) {
	now := time.Now().Unix()

	fresh := &domain.Session{LastActive: now}
	if fresh.IsExpired(24 * time.Hour) {
		t.Error("freshly active session reported expired")
	}

	stale := &domain.Session{LastActive: now - int64((25 * time.Hour).Seconds())}
	if !stale.IsExpired(24 * time.Hour) {
		t.Error("session idle past the timeout not reported expired")
	}
}

func TestSessionShouldRotate(t *testing.T) {
	session := &domain.Session{}
	for i := 0; i < 49; i++ {
		session.Messages = append(session.Messages, domain.NewMessage(domain.RoleUser, "m"))
	}
	if session.ShouldRotate(50) {
		t.Error("session below ceiling reported rotation")
	}
	session.Messages = append(session.Messages, domain.NewMessage(domain.RoleAssistant, "m"))
	if !session.ShouldRotate(50) {
		t.Error("session at ceiling did not report rotation")
	}
	if session.ShouldRotate(0) {
		t.Error("zero ceiling must disable rotation")
	}
}

func TestNewMessageStampsCurrentTime(t *testing.T) {
	before := time.Now().Unix()
	msg := domain.NewMessage(domain.RoleUser, "hello")
	after := time.Now().Unix()

	if msg.Role != domain.RoleUser || msg.Content != "hello" {
		t.Errorf("unexpected message %+v", msg)
	}
	if msg.Timestamp < before || msg.Timestamp > after {
		t.Errorf("timestamp %d outside [%d, %d]", msg.Timestamp, before, after)
	}
}

func TestExecutionResultConstructors(t *testing.T) {
	success := domain.SuccessResult("out", "warn", 1.5)
	if !success.Success || success.Stdout != "out" || success.ErrorMessage != "" {
		t.Errorf("unexpected success result %+v", success)
	}

	failure := domain.FailureResult("boom", "stderr", 0.2)
	if failure.Success || failure.Stdout != "" || failure.ErrorMessage != "boom" {
		t.Errorf("unexpected failure result %+v", failure)
	}
}

func TestLayerOpposite(t *testing.T) {
	if domain.LayerAPI.Opposite() != domain.LayerCLI {
		t.Error("api opposite should be cli")
	}
	if domain.LayerCLI.Opposite() != domain.LayerAPI {
		t.Error("cli opposite should be api")
	}
}
