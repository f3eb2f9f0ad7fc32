package history

import (
	"database/sql"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/doeshing/aibridge/internal/domain"
	"github.com/doeshing/aibridge/internal/pkg/filesystem"
	"github.com/doeshing/aibridge/internal/ports"
)

// SQLiteStore persists the exchange log in a SQLite database. When the
// database cannot be opened it degrades to the jsonl FileStore.
type SQLiteStore struct {
	db       *sql.DB
	path     string
	fallback *FileStore
	mu       sync.Mutex
}

// NewSQLiteStore creates (or opens) ~/.aibridge/history/exchanges.db.
func NewSQLiteStore() *SQLiteStore {
	path := filepath.Join(filesystem.DataDir(), "history", "exchanges.db")
	_ = os.MkdirAll(filepath.Dir(path), 0o755)

	store := &SQLiteStore{path: path, fallback: NewFileStore()}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return store
	}
	store.db = db
	if err := store.init(); err != nil {
		store.db = nil
	}
	return store
}

func (s *SQLiteStore) init() error {
	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS exchanges (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		timestamp TEXT,
		user_id TEXT,
		provider TEXT,
		layer TEXT,
		explicit INTEGER,
		success INTEGER,
		duration_ms INTEGER,
		prompt_len INTEGER,
		reply_len INTEGER
	);`)
	return err
}

// Record implements ports.ExchangeRecorder.
func (s *SQLiteStore) Record(record domain.ExchangeRecord) error {
	if s.db == nil {
		return s.fallback.Record(record)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.Exec(`INSERT INTO exchanges
		(timestamp, user_id, provider, layer, explicit, success, duration_ms, prompt_len, reply_len)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		record.Timestamp.Format(time.RFC3339),
		record.UserID,
		record.Provider,
		string(record.Layer),
		boolToInt(record.Explicit),
		boolToInt(record.Success),
		record.DurationMS,
		record.PromptLen,
		record.ReplyLen,
	)
	return err
}

// Records returns exchange entries newest first (limit and search optional;
// search matches user and provider).
func (s *SQLiteStore) Records(limit int, search string) ([]domain.ExchangeRecord, error) {
	if s.db == nil {
		return s.fallback.Records(limit, search)
	}
	builder := strings.Builder{}
	builder.WriteString("SELECT timestamp, user_id, provider, layer, explicit, success, duration_ms, prompt_len, reply_len FROM exchanges")
	var args []interface{}
	if search != "" {
		builder.WriteString(" WHERE user_id LIKE ? OR provider LIKE ?")
		args = append(args, "%"+search+"%", "%"+search+"%")
	}
	builder.WriteString(" ORDER BY datetime(timestamp) DESC")
	if limit > 0 {
		builder.WriteString(" LIMIT ?")
		args = append(args, limit)
	}
	rows, err := s.db.Query(builder.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var records []domain.ExchangeRecord
	for rows.Next() {
		var rec domain.ExchangeRecord
		var ts, layer string
		var explicit, success int
		if err := rows.Scan(&ts, &rec.UserID, &rec.Provider, &layer, &explicit, &success, &rec.DurationMS, &rec.PromptLen, &rec.ReplyLen); err != nil {
			return nil, err
		}
		if t, err := time.Parse(time.RFC3339, ts); err == nil {
			rec.Timestamp = t
		}
		rec.Layer = domain.Layer(layer)
		rec.Explicit = explicit == 1
		rec.Success = success == 1
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Clear deletes all exchange entries.
func (s *SQLiteStore) Clear() error {
	if s.db == nil {
		return s.fallback.Clear()
	}
	_, err := s.db.Exec("DELETE FROM exchanges")
	return err
}

// Path returns the sqlite database path.
func (s *SQLiteStore) Path() string {
	return s.path
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

var _ ports.ExchangeRecorder = (*SQLiteStore)(nil)
