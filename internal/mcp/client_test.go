package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

// mockTransport returns canned responses keyed by method and records
// everything sent through it.
type mockTransport struct {
	responses     map[string]*Response
	sentRequests  []*Request
	notifications []*Notification
	closed        bool
}

func newMockTransport() *mockTransport {
	return &mockTransport{responses: make(map[string]*Response)}
}

func (m *mockTransport) respond(method string, result any) {
	raw, _ := json.Marshal(result)
	m.responses[method] = &Response{JSONRPC: jsonrpcVersion, Result: raw}
}

func (m *mockTransport) Send(ctx context.Context, req *Request) (*Response, error) {
	m.sentRequests = append(m.sentRequests, req)
	resp, ok := m.responses[req.Method]
	if !ok {
		return &Response{
			JSONRPC: jsonrpcVersion,
			ID:      req.ID,
			Error:   &RPCError{Code: -32601, Message: "method not found"},
		}, nil
	}
	out := *resp
	out.ID = req.ID
	return &out, nil
}

func (m *mockTransport) Notify(ctx context.Context, notif *Notification) error {
	m.notifications = append(m.notifications, notif)
	return nil
}

func (m *mockTransport) Close() error {
	m.closed = true
	return nil
}

func TestClientInitialize(t *testing.T) {
	mt := newMockTransport()
	mt.respond("initialize", map[string]any{
		"protocolVersion": protocolVersion,
		"serverInfo":      map[string]any{"name": "testsrv", "version": "1.2.3"},
	})

	c := NewClient("testsrv", mt, nil)
	if err := c.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize: %v", err)
	}

	if len(mt.notifications) != 1 || mt.notifications[0].Method != "notifications/initialized" {
		t.Errorf("notifications = %+v, want initialized", mt.notifications)
	}
	if c.serverName != "testsrv" || c.serverVer != "1.2.3" {
		t.Errorf("server info = %q %q", c.serverName, c.serverVer)
	}
}

func TestClientListToolsCaches(t *testing.T) {
	mt := newMockTransport()
	mt.respond("tools/list", map[string]any{
		"tools": []map[string]any{
			{"name": "search", "description": "searches things"},
		},
	})

	c := NewClient("srv", mt, nil)
	first, err := c.ListTools(context.Background())
	if err != nil {
		t.Fatalf("ListTools: %v", err)
	}
	if len(first) != 1 || first[0].Name != "search" {
		t.Fatalf("tools = %+v", first)
	}

	sends := len(mt.sentRequests)
	if _, err := c.ListTools(context.Background()); err != nil {
		t.Fatalf("ListTools (cached): %v", err)
	}
	if len(mt.sentRequests) != sends {
		t.Error("second ListTools hit the transport, want cached result")
	}
}

func TestClientCallTool(t *testing.T) {
	mt := newMockTransport()
	mt.respond("tools/call", map[string]any{
		"content": []map[string]any{
			{"type": "text", "text": "line one"},
			{"type": "image"},
			{"type": "text", "text": "line two"},
		},
	})

	c := NewClient("srv", mt, nil)
	out, err := c.CallTool(context.Background(), "search", map[string]any{"q": "x"})
	if err != nil {
		t.Fatalf("CallTool: %v", err)
	}
	if out != "line one\n[image]\nline two" {
		t.Errorf("out = %q", out)
	}
}

func TestClientCallToolIsError(t *testing.T) {
	mt := newMockTransport()
	mt.respond("tools/call", map[string]any{
		"content": []map[string]any{{"type": "text", "text": "backend down"}},
		"isError": true,
	})

	c := NewClient("srv", mt, nil)
	_, err := c.CallTool(context.Background(), "search", nil)
	if err == nil || !strings.Contains(err.Error(), "backend down") {
		t.Errorf("err = %v, want tool error carrying text", err)
	}
}

func TestClientRPCError(t *testing.T) {
	mt := newMockTransport()
	c := NewClient("srv", mt, nil)

	err := c.Ping(context.Background())
	var rpcErr *RPCError
	if !errors.As(err, &rpcErr) || rpcErr.Code != -32601 {
		t.Errorf("err = %v, want method not found", err)
	}
}

func TestClientRequestIDsIncrement(t *testing.T) {
	mt := newMockTransport()
	mt.respond("ping", map[string]any{})

	c := NewClient("srv", mt, nil)
	c.Ping(context.Background())
	c.Ping(context.Background())

	if len(mt.sentRequests) != 2 {
		t.Fatalf("sent %d requests", len(mt.sentRequests))
	}
	if mt.sentRequests[0].ID >= mt.sentRequests[1].ID {
		t.Errorf("IDs %d, %d not increasing", mt.sentRequests[0].ID, mt.sentRequests[1].ID)
	}
}

func TestClientClose(t *testing.T) {
	mt := newMockTransport()
	c := NewClient("srv", mt, nil)
	if err := c.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if !mt.closed {
		t.Error("transport not closed")
	}
}
