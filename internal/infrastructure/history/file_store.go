// Package history persists the exchange audit log: one record per handled
// message, queryable from the history command.
package history

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/doeshing/aibridge/internal/domain"
	"github.com/doeshing/aibridge/internal/pkg/filesystem"
	"github.com/doeshing/aibridge/internal/ports"
)

// FileStore appends exchange records to a jsonl file.
type FileStore struct {
	path string
	mu   sync.Mutex
}

// NewFileStore creates a store under ~/.aibridge/history/exchanges.jsonl.
func NewFileStore() *FileStore {
	return &FileStore{
		path: filepath.Join(filesystem.DataDir(), "history", "exchanges.jsonl"),
	}
}

// Record implements ports.ExchangeRecorder.
func (f *FileStore) Record(record domain.ExchangeRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := os.MkdirAll(filepath.Dir(f.path), 0o755); err != nil {
		return err
	}
	file, err := os.OpenFile(f.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer file.Close()
	data, err := json.Marshal(record)
	if err != nil {
		return err
	}
	data = append(data, '\n')
	_, err = file.Write(data)
	return err
}

// Records loads entries newest first, filtered by search over user and
// provider, best-effort on malformed lines.
func (f *FileStore) Records(limit int, search string) ([]domain.ExchangeRecord, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	lines := bytes.Split(bytes.TrimSpace(data), []byte("\n"))
	var records []domain.ExchangeRecord
	for i := len(lines) - 1; i >= 0; i-- {
		if len(lines[i]) == 0 {
			continue
		}
		var rec domain.ExchangeRecord
		if err := json.Unmarshal(lines[i], &rec); err != nil {
			continue
		}
		if search != "" && !matchesSearch(rec, search) {
			continue
		}
		records = append(records, rec)
		if limit > 0 && len(records) >= limit {
			break
		}
	}
	return records, nil
}

// Clear removes the history file.
func (f *FileStore) Clear() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := os.Remove(f.path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// Path returns the backing file path.
func (f *FileStore) Path() string {
	return f.path
}

func matchesSearch(rec domain.ExchangeRecord, search string) bool {
	search = strings.ToLower(search)
	return strings.Contains(strings.ToLower(rec.UserID), search) ||
		strings.Contains(strings.ToLower(rec.Provider), search)
}

var _ ports.ExchangeRecorder = (*FileStore)(nil)
