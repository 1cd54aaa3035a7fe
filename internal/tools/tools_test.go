package tools

import (
	"context"
	"fmt"
	"strings"
	"testing"
)

func echoTool(name string) *Tool {
	return &Tool{
		Name:        name,
		Description: "echoes its input",
		Params: Schema{
			"input": {Type: TypeString, Required: true},
		},
		Handler: func(ctx context.Context, args map[string]any) (string, error) {
			return fmt.Sprintf("echo: %v", args["input"]), nil
		},
	}
}

func TestRegistryRegisterAndGet(t *testing.T) {
	r := NewRegistry()
	r.Register(echoTool("echo"))

	if tool := r.Get("echo"); tool == nil {
		t.Fatal("Get(echo) = nil")
	}
	if tool := r.Get("missing"); tool != nil {
		t.Errorf("Get(missing) = %v, want nil", tool)
	}
}

func TestRegistryListOrder(t *testing.T) {
	r := NewRegistry()
	r.Register(echoTool("charlie"))
	r.Register(echoTool("alpha"))
	r.Register(echoTool("bravo"))

	got := r.Names()
	want := []string{"charlie", "alpha", "bravo"}
	if len(got) != len(want) {
		t.Fatalf("Names() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Names()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestRegistryReRegisterKeepsOrder(t *testing.T) {
	r := NewRegistry()
	r.Register(echoTool("alpha"))
	r.Register(echoTool("bravo"))

	replacement := echoTool("alpha")
	replacement.Description = "replaced"
	r.Register(replacement)

	names := r.Names()
	if len(names) != 2 || names[0] != "alpha" {
		t.Errorf("Names() = %v, want [alpha bravo]", names)
	}
	if r.Get("alpha").Description != "replaced" {
		t.Error("re-registration did not replace the tool")
	}
}

func TestRegistryExecute(t *testing.T) {
	r := NewRegistry()
	r.Register(echoTool("echo"))

	out, err := r.Execute(context.Background(), "echo", map[string]any{"input": "hi"})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if out != "echo: hi" {
		t.Errorf("out = %q", out)
	}
}

func TestRegistryExecuteUnknownTool(t *testing.T) {
	r := NewRegistry()
	_, err := r.Execute(context.Background(), "ghost", nil)
	if err == nil || !strings.Contains(err.Error(), "unknown tool") {
		t.Errorf("err = %v, want unknown tool", err)
	}
}

func TestRegistryExecuteValidatesFirst(t *testing.T) {
	r := NewRegistry()
	called := false
	r.Register(&Tool{
		Name:   "strictecho",
		Params: Schema{"input": {Type: TypeString, Required: true}},
		Handler: func(ctx context.Context, args map[string]any) (string, error) {
			called = true
			return "", nil
		},
	})

	_, err := r.Execute(context.Background(), "strictecho", map[string]any{})
	if err == nil {
		t.Fatal("want validation error for missing required parameter")
	}
	if called {
		t.Error("handler ran despite validation failure")
	}
}

func TestSchemaValidate(t *testing.T) {
	s := Schema{
		"query": {Type: TypeString, Required: true},
		"limit": {Type: TypeInteger},
		"ratio": {Type: TypeNumber},
		"deep":  {Type: TypeBoolean},
		"tags":  {Type: TypeArray},
		"opts":  {Type: TypeObject},
	}

	tests := []struct {
		name    string
		args    map[string]any
		wantErr bool
	}{
		{"minimal valid", map[string]any{"query": "x"}, false},
		{"all valid", map[string]any{
			"query": "x", "limit": float64(3), "ratio": 0.5,
			"deep": true, "tags": []any{"a"}, "opts": map[string]any{"k": "v"},
		}, false},
		{"missing required", map[string]any{"limit": float64(1)}, true},
		{"unknown parameter", map[string]any{"query": "x", "bogus": 1}, true},
		{"wrong string type", map[string]any{"query": 42}, true},
		{"fractional integer", map[string]any{"query": "x", "limit": 1.5}, true},
		{"whole float integer", map[string]any{"query": "x", "limit": float64(10)}, false},
		{"nil optional", map[string]any{"query": "x", "limit": nil}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := s.Validate(tt.args)
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate(%v) err = %v, wantErr %v", tt.args, err, tt.wantErr)
			}
		})
	}
}
