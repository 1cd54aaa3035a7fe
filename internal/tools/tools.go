// Package tools defines the capability surface the agent can invoke.
// A capability pairs a static descriptor (name, description, typed
// parameter schema, optional prompt fragment) with an execute function;
// the registry validates arguments against the schema before dispatch.
package tools

import (
	"context"
	"fmt"
	"sync"
)

// Handler executes a capability. It returns the observation text fed
// back to the model, or an error when execution fails outright.
type Handler func(ctx context.Context, args map[string]any) (string, error)

// Tool describes one capability available to the agent.
type Tool struct {
	// Name is the identifier the model uses in action blocks.
	Name string

	// Description is a one-line summary shown in the tool catalogue.
	Description string

	// Params declares the accepted arguments. Arguments are validated
	// against it before Handler runs.
	Params Schema

	// Prompt is an optional usage fragment folded into the system
	// prompt. Empty for tools that need no special instructions.
	Prompt string

	// Handler performs the work.
	Handler Handler
}

// Registry holds the available capabilities. Registration order is
// preserved so the catalogue renders deterministically.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]*Tool
	order []string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]*Tool)}
}

// Register adds a tool. Re-registering a name replaces the previous
// tool without changing its position in the catalogue.
func (r *Registry) Register(t *Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tools[t.Name]; !exists {
		r.order = append(r.order, t.Name)
	}
	r.tools[t.Name] = t
}

// Get returns the named tool, or nil if not registered.
func (r *Registry) Get(name string) *Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.tools[name]
}

// List returns all tools in registration order.
func (r *Registry) List() []*Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Tool, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.tools[name])
	}
	return out
}

// Names returns the registered tool names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Execute validates args against the tool's schema and runs it.
func (r *Registry) Execute(ctx context.Context, name string, args map[string]any) (string, error) {
	tool := r.Get(name)
	if tool == nil {
		return "", fmt.Errorf("unknown tool %q", name)
	}
	if err := tool.Params.Validate(args); err != nil {
		return "", fmt.Errorf("invalid arguments for %q: %w", name, err)
	}
	return tool.Handler(ctx, args)
}
