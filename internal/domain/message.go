package domain

import "time"

// Message roles recognized in conversation history.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is a single entry in a conversation. Messages are append-only and
// insertion order carries the conversation order through persistence.
type Message struct {
	Role      string `json:"role"`
	Content   string `json:"content"`
	Timestamp int64  `json:"timestamp"`
}

// NewMessage builds a message stamped with the current time.
func NewMessage(role, content string) Message {
	return Message{Role: role, Content: content, Timestamp: time.Now().Unix()}
}

// Session is the bounded, rotating unit of conversation history for one user.
// A user has at most one active session at a time, owned by the session
// manager.
type Session struct {
	SessionID  string    `json:"session_id"`
	UserID     string    `json:"user_id"`
	CreatedAt  int64     `json:"created_at"`
	LastActive int64     `json:"last_active"`
	Messages   []Message `json:"messages"`
}

// IsExpired reports whether the session has been idle longer than timeout.
func (s *Session) IsExpired(timeout time.Duration) bool {
	return time.Since(time.Unix(s.LastActive, 0)) > timeout
}

// ShouldRotate reports whether the session reached its message ceiling and
// must be replaced before accepting more messages.
func (s *Session) ShouldRotate(maxMessages int) bool {
	return maxMessages > 0 && len(s.Messages) >= maxMessages
}
