package memory

import (
	"encoding/json"
	"fmt"
)

// ExportedConversation is one conversation in an export document.
type ExportedConversation struct {
	Conversation
	Messages []Message `json:"messages"`
}

// ExportDocument is the full-store export format, keyed by
// conversation ID.
type ExportDocument map[string]*ExportedConversation

// Export serializes every conversation with its full message history.
func (s *SQLiteStore) Export() ([]byte, error) {
	convs, err := s.ListConversations()
	if err != nil {
		return nil, err
	}

	doc := make(ExportDocument, len(convs))
	for _, conv := range convs {
		msgs, err := s.Window(conv.ID, 0)
		if err != nil {
			return nil, fmt.Errorf("export conversation %s: %w", conv.ID, err)
		}
		if msgs == nil {
			msgs = []Message{}
		}
		doc[conv.ID] = &ExportedConversation{Conversation: conv, Messages: msgs}
	}

	return json.MarshalIndent(doc, "", "  ")
}

// Import loads an export document into the store. Existing messages
// with matching external IDs are updated rather than duplicated;
// messages without external IDs are appended.
func (s *SQLiteStore) Import(data []byte) error {
	var doc ExportDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("parse import document: %w", err)
	}

	for id, conv := range doc {
		if conv == nil {
			continue
		}
		if _, err := s.GetOrCreateConversation(id, conv.UserID, conv.Title); err != nil {
			return err
		}
		for i := range conv.Messages {
			msg := conv.Messages[i]
			// Drop the stored row ID so imports mint fresh ones and
			// never collide with existing rows.
			msg.ID = ""
			if err := s.Upsert(id, &msg, conv.UserID, conv.Title); err != nil {
				return fmt.Errorf("import message into %s: %w", id, err)
			}
		}
	}
	return nil
}
