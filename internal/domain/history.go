package domain

import "time"

// ExchangeRecord is one audit entry for a handled message exchange: which
// backend served it and how it went. Persisted by the history store.
type ExchangeRecord struct {
	Timestamp  time.Time `json:"timestamp"`
	UserID     string    `json:"user_id"`
	Provider   string    `json:"provider"`
	Layer      Layer     `json:"layer"`
	Explicit   bool      `json:"explicit"`
	Success    bool      `json:"success"`
	DurationMS int64     `json:"duration_ms"`
	PromptLen  int       `json:"prompt_len"`
	ReplyLen   int       `json:"reply_len"`
}
