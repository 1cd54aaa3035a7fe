// Package mcp implements client-side support for the Model Context
// Protocol, letting Luna attach external capability servers and expose
// their tools to the agent loop.
//
// MCP speaks JSON-RPC 2.0 over two transports: stdio (a subprocess
// exchanging newline-delimited messages) and HTTP POST. Tools are
// discovered with tools/list and invoked with tools/call; discovered
// tools are bridged into the capability registry under namespaced
// names so the model sees them as ordinary tools.
//
// Luna only acts as an MCP host, never as a server.
package mcp
