// Package llm provides model-generation collaborators for the agent loop.
// Providers convert their wire formats into the typed Result contract at
// the boundary so the rest of the system never inspects provider payloads.
package llm

import "context"

// Message represents a chat message sent to the model.
type Message struct {
	Role    string `json:"role"` // system, user, assistant
	Content string `json:"content"`
}

// Usage holds token and cache accounting for one generation call.
type Usage struct {
	InputTokens         int `json:"input_tokens"`
	OutputTokens        int `json:"output_tokens"`
	TotalTokens         int `json:"total_tokens"`
	CacheReadTokens     int `json:"cache_read_tokens,omitempty"`
	CacheCreationTokens int `json:"cache_creation_tokens,omitempty"`
}

// Result is the typed outcome of a generation call. Text carries the raw
// model output; the output parser decides what it means.
type Result struct {
	Text  string
	Model string
	Usage Usage
}

// Client generates a model response for a sequence of messages. The call
// may block on network I/O; implementations must honor ctx cancellation.
type Client interface {
	Generate(ctx context.Context, messages []Message) (*Result, error)
}
