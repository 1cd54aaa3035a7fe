package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestOllamaGenerate(t *testing.T) {
	var gotPath string
	var gotReq ollamaChatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Errorf("decode request: %v", err)
		}
		resp := ollamaChatResponse{
			Model:           "qwen3:4b",
			Message:         Message{Role: "assistant", Content: "Hello there."},
			Done:            true,
			PromptEvalCount: 42,
			EvalCount:       17,
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	client := NewOllamaClient(srv.URL, "qwen3:4b", nil)
	result, err := client.Generate(context.Background(), []Message{
		{Role: "system", Content: "You are helpful."},
		{Role: "user", Content: "hi"},
	})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	if gotPath != "/api/chat" {
		t.Errorf("path = %q, want /api/chat", gotPath)
	}
	if gotReq.Stream {
		t.Error("stream = true, want false")
	}
	if len(gotReq.Messages) != 2 {
		t.Errorf("sent %d messages, want 2", len(gotReq.Messages))
	}
	if result.Text != "Hello there." {
		t.Errorf("Text = %q", result.Text)
	}
	if result.Usage.InputTokens != 42 || result.Usage.OutputTokens != 17 {
		t.Errorf("Usage = %+v, want input 42 output 17", result.Usage)
	}
	if result.Usage.TotalTokens != 59 {
		t.Errorf("TotalTokens = %d, want 59", result.Usage.TotalTokens)
	}
}

func TestOllamaGenerateAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer srv.Close()

	client := NewOllamaClient(srv.URL, "missing", nil)
	_, err := client.Generate(context.Background(), []Message{{Role: "user", Content: "hi"}})
	if err == nil {
		t.Fatal("expected error for 404 response")
	}
}

func TestAnthropicGenerateLiftsSystemMessages(t *testing.T) {
	var gotReq anthropicRequest
	var gotKey, gotVersion string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("x-api-key")
		gotVersion = r.Header.Get("anthropic-version")
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Write([]byte(`{
			"id": "msg_01",
			"model": "claude-sonnet-4-5",
			"content": [{"type": "text", "text": "Hi!"}],
			"usage": {"input_tokens": 10, "output_tokens": 5, "cache_read_input_tokens": 3, "cache_creation_input_tokens": 2}
		}`))
	}))
	defer srv.Close()

	client := NewAnthropicClient(srv.URL, "test-key", "claude-sonnet-4-5", nil)
	result, err := client.Generate(context.Background(), []Message{
		{Role: "system", Content: "Be concise."},
		{Role: "user", Content: "hello"},
	})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	if gotKey != "test-key" {
		t.Errorf("x-api-key = %q", gotKey)
	}
	if gotVersion == "" {
		t.Error("anthropic-version header missing")
	}
	if gotReq.System != "Be concise." {
		t.Errorf("System = %q, want system message lifted", gotReq.System)
	}
	if len(gotReq.Messages) != 1 || gotReq.Messages[0].Role != "user" {
		t.Errorf("Messages = %+v, want single user message", gotReq.Messages)
	}
	if result.Text != "Hi!" {
		t.Errorf("Text = %q", result.Text)
	}
	if result.Usage.TotalTokens != 15 {
		t.Errorf("TotalTokens = %d, want 15", result.Usage.TotalTokens)
	}
	if result.Usage.CacheReadTokens != 3 || result.Usage.CacheCreationTokens != 2 {
		t.Errorf("cache usage = %+v", result.Usage)
	}
}
