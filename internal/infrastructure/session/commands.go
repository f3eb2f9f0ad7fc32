package session

import (
	"fmt"
	"strings"
)

// Session command aliases, matched case-insensitively after trimming.
var (
	newSessionCommands  = []string{"/new", "新会话"}
	sessionInfoCommands = []string{"/session", "会话信息"}
	historyCommands     = []string{"/history", "历史记录"}
	helpCommands        = []string{"/help", "帮助", "help"}
)

const helpMessage = `AI provider commands:
  @claude or @claude-api - Claude API
  @gemini or @gemini-api - Gemini API
  @openai or @gpt        - OpenAI API
  @code or @claude-cli   - Claude Code CLI
  @gemini-cli            - Gemini CLI

Without a prefix the router picks the best backend automatically.

Session commands:
  /new or 新会话      - start a new session, clearing history
  /session or 会话信息 - show current session info
  /history or 历史记录 - show conversation history
  /help or 帮助       - show this help`

// IsSessionCommand reports whether the text is a recognized session command.
func IsSessionCommand(text string) bool {
	normalized := normalizeCommand(text)
	for _, group := range [][]string{newSessionCommands, sessionInfoCommands, historyCommands, helpCommands} {
		for _, cmd := range group {
			if normalized == strings.ToLower(cmd) {
				return true
			}
		}
	}
	return false
}

// HandleSessionCommand executes a session command for the user and returns
// the reply text, or "" when the text is not a session command.
func (m *Manager) HandleSessionCommand(userID, text string) string {
	normalized := normalizeCommand(text)

	if matchesAny(normalized, helpCommands) {
		return helpMessage
	}

	if matchesAny(normalized, newSessionCommands) {
		m.ResetSession(userID)
		return "New session created. Previous history archived."
	}

	if matchesAny(normalized, sessionInfoCommands) {
		info := m.GetSessionInfo(userID)
		if !info.Exists {
			return "No active session."
		}
		shortID := info.SessionID
		if len(shortID) > 8 {
			shortID = shortID[:8] + "..."
		}
		return fmt.Sprintf("Session info:\n- Session ID: %s\n- Messages: %d\n- Age: %ds",
			shortID, info.MessageCount, info.AgeSeconds)
	}

	if matchesAny(normalized, historyCommands) {
		messages := m.GetConversationHistory(userID, 0)
		if len(messages) == 0 {
			return "No history in current session."
		}
		lines := []string{"Conversation history:"}
		for i, msg := range messages {
			label := "User"
			if msg.Role == "assistant" {
				label = "Assistant"
			}
			content := msg.Content
			if len(content) > 100 {
				content = content[:100] + "..."
			}
			lines = append(lines, fmt.Sprintf("%d. %s: %s", i+1, label, content))
		}
		return strings.Join(lines, "\n")
	}

	return ""
}

func normalizeCommand(text string) string {
	return strings.ToLower(strings.TrimSpace(text))
}

func matchesAny(normalized string, commands []string) bool {
	for _, cmd := range commands {
		if normalized == strings.ToLower(cmd) {
			return true
		}
	}
	return false
}
