// Package memory provides durable conversation storage backed by SQLite.
package memory

import "time"

// MessageUsage holds the token accounting recorded on a stored message.
type MessageUsage struct {
	InputTokens         int `json:"input_tokens,omitempty"`
	OutputTokens        int `json:"output_tokens,omitempty"`
	TotalTokens         int `json:"total_tokens,omitempty"`
	CacheReadTokens     int `json:"cache_read_tokens,omitempty"`
	CacheCreationTokens int `json:"cache_creation_tokens,omitempty"`
}

// ToolCallRecord summarizes one tool invocation made while producing a
// message.
type ToolCallRecord struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments,omitempty"`
}

// Message is one stored conversation message. ExternalID correlates a
// message with the run that produced it, letting usage accounting
// arrive after the content without duplicating rows.
type Message struct {
	ID             string           `json:"id"`
	ConversationID string           `json:"conversation_id"`
	ExternalID     string           `json:"external_id,omitempty"`
	Role           string           `json:"role"` // user, assistant
	Content        string           `json:"content"`
	CreatedAt      time.Time        `json:"created_at"`
	Usage          MessageUsage     `json:"usage,omitempty"`
	ToolCalls      []ToolCallRecord `json:"tool_calls,omitempty"`
}

// Conversation is the metadata row for a stored conversation.
type Conversation struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id,omitempty"`
	Title     string    `json:"title,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
