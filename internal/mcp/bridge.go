package mcp

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/lunahq/luna/internal/tools"
)

// sanitizeRe matches characters that are not lowercase alphanumeric or
// underscore.
var sanitizeRe = regexp.MustCompile(`[^a-z0-9_]`)

// BridgeTools discovers tools from an MCP client and registers them on
// the capability registry under "mcp_{serverName}_{toolName}" names.
// Returns the number of tools registered.
func BridgeTools(ctx context.Context, client *Client, serverName string, registry *tools.Registry, logger *slog.Logger) (int, error) {
	if logger == nil {
		logger = slog.Default()
	}

	mcpTools, err := client.ListTools(ctx)
	if err != nil {
		return 0, fmt.Errorf("list tools from %s: %w", serverName, err)
	}

	count := 0
	for _, td := range mcpTools {
		name := ToolName(serverName, td.Name)
		registry.Register(bridgeTool(client, name, td))
		count++

		logger.Debug("bridged MCP tool",
			"mcp_name", td.Name,
			"bridged_name", name,
			"server", serverName,
		)
	}
	return count, nil
}

// ToolName builds the namespaced registry name for an MCP tool. Both
// components are sanitized to lowercase alphanumerics and underscores.
func ToolName(serverName, mcpToolName string) string {
	return fmt.Sprintf("mcp_%s_%s", sanitize(serverName), sanitize(mcpToolName))
}

// bridgeTool wraps an MCP tool as a registry capability that proxies
// calls through the client.
func bridgeTool(client *Client, name string, td ToolDefinition) *tools.Tool {
	mcpName := td.Name

	return &tools.Tool{
		Name:        name,
		Description: td.Description,
		Params:      schemaFromMCP(td.InputSchema),
		Handler: func(ctx context.Context, args map[string]any) (string, error) {
			return client.CallTool(ctx, mcpName, args)
		},
	}
}

// schemaFromMCP converts a JSON Schema input declaration into a typed
// parameter schema. When the declaration uses features the typed schema
// cannot express, nil is returned and the server validates on its own.
func schemaFromMCP(inputSchema map[string]any) tools.Schema {
	props, ok := inputSchema["properties"].(map[string]any)
	if !ok {
		return nil
	}

	required := make(map[string]bool)
	if reqList, ok := inputSchema["required"].([]any); ok {
		for _, r := range reqList {
			if name, ok := r.(string); ok {
				required[name] = true
			}
		}
	}

	schema := make(tools.Schema, len(props))
	for name, raw := range props {
		prop, ok := raw.(map[string]any)
		if !ok {
			return nil
		}
		typ, ok := prop["type"].(string)
		if !ok {
			return nil
		}
		var kind tools.ParamType
		switch typ {
		case "string":
			kind = tools.TypeString
		case "integer":
			kind = tools.TypeInteger
		case "number":
			kind = tools.TypeNumber
		case "boolean":
			kind = tools.TypeBoolean
		case "array":
			kind = tools.TypeArray
		case "object":
			kind = tools.TypeObject
		default:
			return nil
		}

		desc, _ := prop["description"].(string)
		schema[name] = tools.Param{
			Type:        kind,
			Description: desc,
			Required:    required[name],
		}
	}
	return schema
}

// sanitize lowercases a name and replaces everything outside
// [a-z0-9_] with underscores, collapsing runs and trimming the ends.
func sanitize(name string) string {
	s := strings.ToLower(name)
	s = strings.ReplaceAll(s, "-", "_")
	s = sanitizeRe.ReplaceAllString(s, "_")
	for strings.Contains(s, "__") {
		s = strings.ReplaceAll(s, "__", "_")
	}
	return strings.Trim(s, "_")
}
