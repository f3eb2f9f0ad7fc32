package history

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/doeshing/aibridge/internal/domain"
)

func newTestFileStore(t *testing.T) *FileStore {
	t.Helper()
	return &FileStore{path: filepath.Join(t.TempDir(), "exchanges.jsonl")}
}

func sampleRecord(user, provider string, success bool) domain.ExchangeRecord {
	return domain.ExchangeRecord{
		Timestamp:  time.Now().UTC().Truncate(time.Second),
		UserID:     user,
		Provider:   provider,
		Layer:      domain.LayerAPI,
		Success:    success,
		DurationMS: 120,
		PromptLen:  10,
		ReplyLen:   42,
	}
}

func TestFileStoreRecordAndRead(t *testing.T) {
	store := newTestFileStore(t)

	if err := store.Record(sampleRecord("alice", "claude-api", true)); err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	if err := store.Record(sampleRecord("bob", "gemini-cli", false)); err != nil {
		t.Fatalf("Record() error = %v", err)
	}

	records, err := store.Records(0, "")
	if err != nil {
		t.Fatalf("Records() error = %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("got %d records, want 2", len(records))
	}
	// Newest first.
	if records[0].UserID != "bob" || records[1].UserID != "alice" {
		t.Errorf("unexpected order: %s, %s", records[0].UserID, records[1].UserID)
	}
}

func TestFileStoreLimitAndSearch(t *testing.T) {
	store := newTestFileStore(t)
	for _, user := range []string{"alice", "bob", "alice", "carol"} {
		if err := store.Record(sampleRecord(user, "claude-api", true)); err != nil {
			t.Fatal(err)
		}
	}

	limited, err := store.Records(2, "")
	if err != nil {
		t.Fatal(err)
	}
	if len(limited) != 2 {
		t.Errorf("limit ignored, got %d records", len(limited))
	}

	filtered, err := store.Records(0, "alice")
	if err != nil {
		t.Fatal(err)
	}
	if len(filtered) != 2 {
		t.Errorf("search returned %d records, want 2", len(filtered))
	}
	for _, rec := range filtered {
		if rec.UserID != "alice" {
			t.Errorf("search leaked record for %q", rec.UserID)
		}
	}
}

func TestFileStoreMissingFileIsEmpty(t *testing.T) {
	store := newTestFileStore(t)
	records, err := store.Records(0, "")
	if err != nil {
		t.Fatalf("Records() on missing file error = %v", err)
	}
	if len(records) != 0 {
		t.Errorf("got %d records from missing file", len(records))
	}
}

func TestFileStoreClear(t *testing.T) {
	store := newTestFileStore(t)
	if err := store.Record(sampleRecord("alice", "claude-api", true)); err != nil {
		t.Fatal(err)
	}
	if err := store.Clear(); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}
	records, err := store.Records(0, "")
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 0 {
		t.Errorf("store not empty after Clear, %d records remain", len(records))
	}
	if err := store.Clear(); err != nil {
		t.Errorf("Clear() on empty store error = %v", err)
	}
}
