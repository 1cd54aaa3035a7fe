package memory

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

// SQLiteStore is the SQLite-backed conversation store.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the database at dbPath and applies
// the schema.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return store, nil
}

// migrate creates the database schema.
func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS conversations (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL DEFAULT '',
		title TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	);

	CREATE TABLE IF NOT EXISTS messages (
		id TEXT PRIMARY KEY,
		conversation_id TEXT NOT NULL,
		external_id TEXT UNIQUE,
		role TEXT NOT NULL,
		content TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL,
		input_tokens INTEGER NOT NULL DEFAULT 0,
		output_tokens INTEGER NOT NULL DEFAULT 0,
		total_tokens INTEGER NOT NULL DEFAULT 0,
		cache_read_tokens INTEGER NOT NULL DEFAULT 0,
		cache_creation_tokens INTEGER NOT NULL DEFAULT 0,
		tool_calls TEXT,
		FOREIGN KEY (conversation_id) REFERENCES conversations(id) ON DELETE CASCADE
	);
	CREATE INDEX IF NOT EXISTS idx_messages_conversation ON messages(conversation_id, created_at);
	CREATE INDEX IF NOT EXISTS idx_messages_external ON messages(external_id);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// GetOrCreateConversation ensures a conversation row exists. Title and
// userID are only written on first creation; later calls leave existing
// metadata alone.
func (s *SQLiteStore) GetOrCreateConversation(id, userID, title string) (*Conversation, error) {
	now := time.Now().UTC()

	_, err := s.db.Exec(`
		INSERT OR IGNORE INTO conversations (id, user_id, title, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
	`, id, userID, title, now, now)
	if err != nil {
		return nil, fmt.Errorf("create conversation: %w", err)
	}

	return s.GetConversation(id)
}

// GetConversation fetches conversation metadata. Returns nil, nil when
// the conversation does not exist.
func (s *SQLiteStore) GetConversation(id string) (*Conversation, error) {
	var conv Conversation
	err := s.db.QueryRow(`
		SELECT id, user_id, title, created_at, updated_at
		FROM conversations WHERE id = ?
	`, id).Scan(&conv.ID, &conv.UserID, &conv.Title, &conv.CreatedAt, &conv.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get conversation: %w", err)
	}
	return &conv, nil
}

// ListConversations returns all conversations, most recently updated
// first.
func (s *SQLiteStore) ListConversations() ([]Conversation, error) {
	rows, err := s.db.Query(`
		SELECT id, user_id, title, created_at, updated_at
		FROM conversations ORDER BY updated_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	defer rows.Close()

	var out []Conversation
	for rows.Next() {
		var conv Conversation
		if err := rows.Scan(&conv.ID, &conv.UserID, &conv.Title, &conv.CreatedAt, &conv.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan conversation: %w", err)
		}
		out = append(out, conv)
	}
	return out, rows.Err()
}

// Append stores a new message, creating the conversation if needed and
// bumping its updated_at.
func (s *SQLiteStore) Append(conversationID string, msg *Message, userID, title string) error {
	if _, err := s.GetOrCreateConversation(conversationID, userID, title); err != nil {
		return err
	}

	if msg.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("generate message id: %w", err)
		}
		msg.ID = id.String()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}
	msg.ConversationID = conversationID

	toolCalls, err := marshalToolCalls(msg.ToolCalls)
	if err != nil {
		return err
	}

	_, err = s.db.Exec(`
		INSERT INTO messages (
			id, conversation_id, external_id, role, content, created_at,
			input_tokens, output_tokens, total_tokens, cache_read_tokens, cache_creation_tokens,
			tool_calls
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, msg.ID, conversationID, nullable(msg.ExternalID), msg.Role, msg.Content, msg.CreatedAt,
		msg.Usage.InputTokens, msg.Usage.OutputTokens, msg.Usage.TotalTokens,
		msg.Usage.CacheReadTokens, msg.Usage.CacheCreationTokens, toolCalls)
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}

	return s.touch(conversationID)
}

// Upsert writes a message keyed by its external ID: if a message with
// the same external_id exists its content, usage, and tool calls are
// updated in place; otherwise the message is inserted. Messages without
// an external ID fall back to a plain append.
func (s *SQLiteStore) Upsert(conversationID string, msg *Message, userID, title string) error {
	if msg.ExternalID == "" {
		return s.Append(conversationID, msg, userID, title)
	}

	toolCalls, err := marshalToolCalls(msg.ToolCalls)
	if err != nil {
		return err
	}

	res, err := s.db.Exec(`
		UPDATE messages SET
			content = ?,
			input_tokens = ?, output_tokens = ?, total_tokens = ?,
			cache_read_tokens = ?, cache_creation_tokens = ?,
			tool_calls = ?
		WHERE external_id = ?
	`, msg.Content,
		msg.Usage.InputTokens, msg.Usage.OutputTokens, msg.Usage.TotalTokens,
		msg.Usage.CacheReadTokens, msg.Usage.CacheCreationTokens,
		toolCalls, msg.ExternalID)
	if err != nil {
		return fmt.Errorf("update message: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected > 0 {
		return s.touch(conversationID)
	}
	return s.Append(conversationID, msg, userID, title)
}

// Window returns the most recent limit messages of a conversation in
// chronological order. limit <= 0 returns the full history.
func (s *SQLiteStore) Window(conversationID string, limit int) ([]Message, error) {
	query := `
		SELECT id, conversation_id, external_id, role, content, created_at,
			input_tokens, output_tokens, total_tokens, cache_read_tokens, cache_creation_tokens,
			tool_calls
		FROM messages WHERE conversation_id = ?
		ORDER BY created_at, id
	`
	args := []any{conversationID}
	if limit > 0 {
		// Message IDs are time-ordered UUIDs, so id is a stable
		// tiebreaker for rows created in the same instant.
		query = `
			SELECT id, conversation_id, external_id, role, content, created_at,
				input_tokens, output_tokens, total_tokens, cache_read_tokens, cache_creation_tokens,
				tool_calls
			FROM (
				SELECT * FROM messages WHERE conversation_id = ?
				ORDER BY created_at DESC, id DESC LIMIT ?
			) ORDER BY created_at, id
		`
		args = append(args, limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	defer rows.Close()

	return scanMessages(rows)
}

// Clear deletes all messages of a conversation but keeps the
// conversation row.
func (s *SQLiteStore) Clear(conversationID string) error {
	if _, err := s.db.Exec(`DELETE FROM messages WHERE conversation_id = ?`, conversationID); err != nil {
		return fmt.Errorf("clear messages: %w", err)
	}
	return s.touch(conversationID)
}

// Delete removes a conversation and all its messages.
func (s *SQLiteStore) Delete(conversationID string) error {
	if _, err := s.db.Exec(`DELETE FROM messages WHERE conversation_id = ?`, conversationID); err != nil {
		return fmt.Errorf("delete messages: %w", err)
	}
	if _, err := s.db.Exec(`DELETE FROM conversations WHERE id = ?`, conversationID); err != nil {
		return fmt.Errorf("delete conversation: %w", err)
	}
	return nil
}

// touch bumps a conversation's updated_at.
func (s *SQLiteStore) touch(conversationID string) error {
	_, err := s.db.Exec(`UPDATE conversations SET updated_at = ? WHERE id = ?`,
		time.Now().UTC(), conversationID)
	if err != nil {
		return fmt.Errorf("update conversation: %w", err)
	}
	return nil
}

func scanMessages(rows *sql.Rows) ([]Message, error) {
	var out []Message
	for rows.Next() {
		var msg Message
		var externalID, toolCalls sql.NullString
		err := rows.Scan(&msg.ID, &msg.ConversationID, &externalID, &msg.Role, &msg.Content, &msg.CreatedAt,
			&msg.Usage.InputTokens, &msg.Usage.OutputTokens, &msg.Usage.TotalTokens,
			&msg.Usage.CacheReadTokens, &msg.Usage.CacheCreationTokens, &toolCalls)
		if err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		msg.ExternalID = externalID.String
		if toolCalls.Valid && toolCalls.String != "" {
			if err := json.Unmarshal([]byte(toolCalls.String), &msg.ToolCalls); err != nil {
				return nil, fmt.Errorf("decode tool calls for message %s: %w", msg.ID, err)
			}
		}
		out = append(out, msg)
	}
	return out, rows.Err()
}

func marshalToolCalls(calls []ToolCallRecord) (any, error) {
	if len(calls) == 0 {
		return nil, nil
	}
	data, err := json.Marshal(calls)
	if err != nil {
		return nil, fmt.Errorf("encode tool calls: %w", err)
	}
	return string(data), nil
}

// nullable maps "" to NULL so the external_id UNIQUE constraint ignores
// messages without one.
func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
