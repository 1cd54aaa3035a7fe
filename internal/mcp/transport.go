package mcp

import "context"

// Transport delivers JSON-RPC messages to an MCP server. Implementations
// own framing, encoding, and request/response correlation for their
// medium (subprocess stdio or HTTP).
type Transport interface {
	// Send delivers a request and returns the matching response.
	Send(ctx context.Context, req *Request) (*Response, error)

	// Notify delivers a notification; no response is expected.
	Notify(ctx context.Context, notif *Notification) error

	// Close releases transport resources. For stdio this terminates
	// the subprocess.
	Close() error
}
