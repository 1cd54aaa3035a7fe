// Package usage tracks token consumption per run and per session.
// Accounting is recorded on the stored assistant message (keyed by its
// run ID), and rolled up into in-process session totals.
package usage

import (
	"log/slog"
	"sync"
	"time"

	"github.com/lunahq/luna/internal/llm"
	"github.com/lunahq/luna/internal/memory"
)

// SessionStats is an aggregate of token usage since process start.
type SessionStats struct {
	StartedAt           time.Time `json:"started_at"`
	Runs                int       `json:"runs"`
	InputTokens         int64     `json:"input_tokens"`
	OutputTokens        int64     `json:"output_tokens"`
	TotalTokens         int64     `json:"total_tokens"`
	CacheReadTokens     int64     `json:"cache_read_tokens"`
	CacheCreationTokens int64     `json:"cache_creation_tokens"`
}

// Tracker writes per-run usage onto stored messages and keeps session
// totals. Safe for concurrent use.
type Tracker struct {
	store  *memory.SQLiteStore
	logger *slog.Logger

	mu    sync.Mutex
	stats SessionStats
}

// NewTracker creates a tracker recording into the given store.
func NewTracker(store *memory.SQLiteStore, logger *slog.Logger) *Tracker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Tracker{
		store:  store,
		logger: logger,
		stats:  SessionStats{StartedAt: time.Now().UTC()},
	}
}

// RecordRun attaches the run's aggregate usage to the assistant
// message identified by runID and folds it into the session totals.
// The upsert inserts the message when it is new and updates it in
// place when a row with the same run ID already exists.
func (t *Tracker) RecordRun(conversationID, runID string, msg *memory.Message, u llm.Usage) error {
	msg.ExternalID = runID
	msg.Usage = memory.MessageUsage{
		InputTokens:         u.InputTokens,
		OutputTokens:        u.OutputTokens,
		TotalTokens:         u.TotalTokens,
		CacheReadTokens:     u.CacheReadTokens,
		CacheCreationTokens: u.CacheCreationTokens,
	}
	if err := t.store.Upsert(conversationID, msg, "", ""); err != nil {
		return err
	}

	t.mu.Lock()
	t.stats.Runs++
	t.stats.InputTokens += int64(u.InputTokens)
	t.stats.OutputTokens += int64(u.OutputTokens)
	t.stats.TotalTokens += int64(u.TotalTokens)
	t.stats.CacheReadTokens += int64(u.CacheReadTokens)
	t.stats.CacheCreationTokens += int64(u.CacheCreationTokens)
	t.mu.Unlock()

	t.logger.Debug("recorded run usage",
		"conversation_id", conversationID,
		"run_id", runID,
		"input_tokens", u.InputTokens,
		"output_tokens", u.OutputTokens,
	)
	return nil
}

// Stats returns a snapshot of the session totals.
func (t *Tracker) Stats() SessionStats {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stats
}
