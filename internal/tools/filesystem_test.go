package tools

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestFileToolsReadAndList(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("hello workspace"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.Mkdir(filepath.Join(dir, "sub"), 0o755); err != nil {
		t.Fatal(err)
	}

	ft := NewFileTools(dir)
	r := NewRegistry()
	ft.RegisterAll(r)

	out, err := r.Execute(context.Background(), "read_file", map[string]any{"path": "notes.txt"})
	if err != nil {
		t.Fatalf("read_file: %v", err)
	}
	if out != "hello workspace" {
		t.Errorf("read_file = %q", out)
	}

	out, err = r.Execute(context.Background(), "list_files", map[string]any{})
	if err != nil {
		t.Fatalf("list_files: %v", err)
	}
	if !strings.Contains(out, "notes.txt") || !strings.Contains(out, "sub/") {
		t.Errorf("list_files = %q", out)
	}
}

func TestFileToolsRejectsEscape(t *testing.T) {
	ft := NewFileTools(t.TempDir())

	_, err := ft.handleRead(context.Background(), map[string]any{"path": "../../etc/passwd"})
	if err == nil || !strings.Contains(err.Error(), "escapes workspace") {
		t.Errorf("err = %v, want workspace escape rejection", err)
	}

	_, err = ft.handleRead(context.Background(), map[string]any{"path": "/etc/passwd"})
	if err == nil {
		t.Error("want error for absolute path outside workspace")
	}
}

func TestFileToolsDisabledWithoutWorkspace(t *testing.T) {
	ft := NewFileTools("")
	if ft.Enabled() {
		t.Error("Enabled() = true for empty workspace")
	}

	r := NewRegistry()
	ft.RegisterAll(r)
	if len(r.Names()) != 0 {
		t.Errorf("registered %v, want none", r.Names())
	}
}

func TestFileToolsReadMissingFile(t *testing.T) {
	ft := NewFileTools(t.TempDir())
	_, err := ft.handleRead(context.Background(), map[string]any{"path": "ghost.txt"})
	if err == nil || !strings.Contains(err.Error(), "not found") {
		t.Errorf("err = %v, want not found", err)
	}
}
