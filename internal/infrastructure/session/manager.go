// Package session owns per-user conversation history: lifecycle (rotation,
// expiry, explicit reset), durable JSON persistence, and archival of
// discarded sessions.
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"github.com/doeshing/aibridge/internal/domain"
	"github.com/doeshing/aibridge/internal/pkg/filesystem"
	"github.com/doeshing/aibridge/internal/ports"
)

// Defaults applied when options are zero.
const (
	DefaultMaxMessages = 50
	DefaultTimeout     = 24 * time.Hour
	lockTimeout        = 10 * time.Second
)

// archiveDirName sits next to the storage file.
const archiveDirName = "archived_sessions"

// Manager creates, stores, and rotates user sessions. The live session map
// is persisted to a single JSON document on every mutation; concurrent
// processes are kept from interleaving partial writes by an advisory file
// lock, with last-writer-wins semantics for the surviving state.
type Manager struct {
	storagePath string
	archiveDir  string
	lock        *flock.Flock
	maxMessages int
	timeout     time.Duration
	logger      ports.Logger

	mu       sync.Mutex
	sessions map[string]*domain.Session
}

var _ ports.ConversationStore = (*Manager)(nil)

// Options configure a Manager.
type Options struct {
	StoragePath string
	MaxMessages int
	Timeout     time.Duration
}

// NewManager builds a manager and loads any existing sessions. A missing,
// empty, or corrupt storage file starts the manager from an empty map
// instead of failing construction.
func NewManager(opts Options, log ports.Logger) (*Manager, error) {
	if opts.StoragePath == "" {
		opts.StoragePath = filepath.Join(filesystem.DataDir(), "sessions.json")
	}
	if opts.MaxMessages <= 0 {
		opts.MaxMessages = DefaultMaxMessages
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}

	storageDir := filepath.Dir(opts.StoragePath)
	if err := os.MkdirAll(storageDir, 0o755); err != nil {
		return nil, fmt.Errorf("create session storage dir: %w", err)
	}
	archiveDir := filepath.Join(storageDir, archiveDirName)
	if err := os.MkdirAll(archiveDir, 0o755); err != nil {
		return nil, fmt.Errorf("create session archive dir: %w", err)
	}

	m := &Manager{
		storagePath: opts.StoragePath,
		archiveDir:  archiveDir,
		lock:        flock.New(opts.StoragePath + ".lock"),
		maxMessages: opts.MaxMessages,
		timeout:     opts.Timeout,
		logger:      log,
		sessions:    make(map[string]*domain.Session),
	}
	m.load()
	return m, nil
}

// GetOrCreateSession returns the user's live session, rotating it first when
// it expired or reached the message ceiling, and creating one lazily when
// none exists.
func (m *Manager) GetOrCreateSession(userID string) *domain.Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.getOrCreateLocked(userID)
}

func (m *Manager) getOrCreateLocked(userID string) *domain.Session {
	if session, ok := m.sessions[userID]; ok {
		if session.IsExpired(m.timeout) || session.ShouldRotate(m.maxMessages) {
			m.logger.Info("session rotation triggered", map[string]interface{}{
				"user":     userID,
				"expired":  session.IsExpired(m.timeout),
				"rotated":  session.ShouldRotate(m.maxMessages),
				"messages": len(session.Messages),
			})
			return m.createLocked(userID)
		}
		session.LastActive = time.Now().Unix()
		m.saveLocked()
		return session
	}
	return m.createLocked(userID)
}

// createLocked archives any existing session for the user and replaces it
// with a fresh one. Caller holds m.mu.
func (m *Manager) createLocked(userID string) *domain.Session {
	if old, ok := m.sessions[userID]; ok {
		m.archive(old)
	}

	now := time.Now().Unix()
	session := &domain.Session{
		SessionID:  uuid.NewString(),
		UserID:     userID,
		CreatedAt:  now,
		LastActive: now,
		Messages:   []domain.Message{},
	}
	m.sessions[userID] = session
	m.saveLocked()
	m.logger.Info("created new session", map[string]interface{}{
		"user": userID, "session": session.SessionID,
	})
	return session
}

// AddMessage appends a message to the user's current session and persists
// the session map synchronously.
func (m *Manager) AddMessage(userID, role, content string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	session := m.getOrCreateLocked(userID)
	session.Messages = append(session.Messages, domain.NewMessage(role, content))
	session.LastActive = time.Now().Unix()
	m.saveLocked()
}

// GetConversationHistory returns the ordered history, truncated to the most
// recent maxMessages when positive. Does not mutate state.
func (m *Manager) GetConversationHistory(userID string, maxMessages int) []domain.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	session, ok := m.sessions[userID]
	if !ok {
		return nil
	}
	messages := session.Messages
	if maxMessages > 0 && len(messages) > maxMessages {
		messages = messages[len(messages)-maxMessages:]
	}
	out := make([]domain.Message, len(messages))
	copy(out, messages)
	return out
}

// FormatHistoryForAI renders history as a readable conversation thread, or
// an empty string when there is none.
func (m *Manager) FormatHistoryForAI(userID string) string {
	messages := m.GetConversationHistory(userID, 0)
	if len(messages) == 0 {
		return ""
	}
	lines := []string{"Previous conversation:"}
	for _, msg := range messages {
		label := "User"
		if msg.Role == domain.RoleAssistant {
			label = "Assistant"
		}
		lines = append(lines, label+": "+msg.Content)
	}
	out := lines[0]
	for _, line := range lines[1:] {
		out += "\n" + line
	}
	return out
}

// Info summarizes the user's session state for the /session command.
type Info struct {
	Exists       bool
	SessionID    string
	MessageCount int
	CreatedAt    int64
	LastActive   int64
	AgeSeconds   int64
}

// GetSessionInfo reports on the user's live session without creating one.
func (m *Manager) GetSessionInfo(userID string) Info {
	m.mu.Lock()
	defer m.mu.Unlock()
	session, ok := m.sessions[userID]
	if !ok {
		return Info{}
	}
	return Info{
		Exists:       true,
		SessionID:    session.SessionID,
		MessageCount: len(session.Messages),
		CreatedAt:    session.CreatedAt,
		LastActive:   session.LastActive,
		AgeSeconds:   time.Now().Unix() - session.CreatedAt,
	}
}

// CleanupExpiredSessions archives and removes every session idle past the
// timeout, returning the count removed.
func (m *Manager) CleanupExpiredSessions() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	var expired []string
	for userID, session := range m.sessions {
		if session.IsExpired(m.timeout) {
			expired = append(expired, userID)
		}
	}
	for _, userID := range expired {
		session := m.sessions[userID]
		m.archive(session)
		delete(m.sessions, userID)
		m.logger.Info("cleaned up expired session", map[string]interface{}{
			"user": userID, "session": session.SessionID,
		})
	}
	if len(expired) > 0 {
		m.saveLocked()
	}
	return len(expired)
}

// ResetSession archives the current session (if any) and starts a fresh one.
func (m *Manager) ResetSession(userID string) *domain.Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.createLocked(userID)
}

// archive writes the session's JSON representation to the archive directory
// before it is discarded. Archival failures are logged, never fatal.
func (m *Manager) archive(session *domain.Session) {
	name := fmt.Sprintf("%s_%s_%d.json",
		filesystem.SanitizeFilename(session.UserID), session.SessionID, time.Now().Unix())
	path := filepath.Join(m.archiveDir, name)

	data, err := json.MarshalIndent(session, "", "  ")
	if err != nil {
		m.logger.Error("failed to encode session archive", err, map[string]interface{}{"session": session.SessionID})
		return
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		m.logger.Error("failed to write session archive", err, map[string]interface{}{"path": path})
		return
	}
	m.logger.Debug("archived session", map[string]interface{}{"path": path})
}

// storageDocument is the on-disk schema: one record per user under a single
// top-level key, kept versionable so unknown fields degrade gracefully.
type storageDocument struct {
	Sessions map[string]*domain.Session `json:"sessions"`
}

// saveLocked serializes the live session map under the advisory file lock.
// Save failures keep in-memory state authoritative and are not surfaced.
// Caller holds m.mu.
func (m *Manager) saveLocked() {
	ctx, cancel := context.WithTimeout(context.Background(), lockTimeout)
	defer cancel()
	locked, err := m.lock.TryLockContext(ctx, 50*time.Millisecond)
	if err != nil || !locked {
		m.logger.Warn("could not acquire session store lock for save", map[string]interface{}{"path": m.storagePath})
		return
	}
	defer m.lock.Unlock()

	data, err := json.MarshalIndent(storageDocument{Sessions: m.sessions}, "", "  ")
	if err != nil {
		m.logger.Error("failed to encode sessions", err, nil)
		return
	}
	if err := os.WriteFile(m.storagePath, data, 0o644); err != nil {
		m.logger.Error("failed to save sessions", err, map[string]interface{}{"path": m.storagePath})
	}
}

// load restores the session map, tolerating a missing, empty, truncated, or
// schema-invalid file by starting from an empty map.
func (m *Manager) load() {
	ctx, cancel := context.WithTimeout(context.Background(), lockTimeout)
	defer cancel()
	if locked, err := m.lock.TryLockContext(ctx, 50*time.Millisecond); err == nil && locked {
		defer m.lock.Unlock()
	}

	data, err := os.ReadFile(m.storagePath)
	if err != nil {
		if !os.IsNotExist(err) {
			m.logger.Warn("failed to read session store", map[string]interface{}{"error": err.Error()})
		}
		return
	}

	var doc storageDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		m.logger.Warn("session store corrupt, starting fresh", map[string]interface{}{"error": err.Error()})
		return
	}
	for userID, session := range doc.Sessions {
		if session == nil || session.SessionID == "" {
			continue
		}
		m.sessions[userID] = session
	}
	m.logger.Info("loaded sessions", map[string]interface{}{"count": len(m.sessions)})
}
