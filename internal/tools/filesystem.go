package tools

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// maxReadBytes caps file content returned to the model.
const maxReadBytes = 50 * 1024

// FileTools provides read and list capabilities within a workspace.
type FileTools struct {
	workspacePath string
}

// NewFileTools creates file tools rooted at workspacePath. If the path
// is empty, file tools are disabled.
func NewFileTools(workspacePath string) *FileTools {
	return &FileTools{workspacePath: workspacePath}
}

// Enabled returns true if a workspace is configured.
func (ft *FileTools) Enabled() bool {
	return ft.workspacePath != ""
}

// RegisterAll adds the file tools to the registry. No-op when disabled.
func (ft *FileTools) RegisterAll(r *Registry) {
	if !ft.Enabled() {
		return
	}

	r.Register(&Tool{
		Name:        "read_file",
		Description: "Read the contents of a file in the workspace.",
		Params: Schema{
			"path": {Type: TypeString, Description: "Path relative to the workspace root", Required: true},
		},
		Handler: ft.handleRead,
	})

	r.Register(&Tool{
		Name:        "list_files",
		Description: "List files and directories at a path in the workspace.",
		Params: Schema{
			"path": {Type: TypeString, Description: "Path relative to the workspace root (default: workspace root)"},
		},
		Handler: ft.handleList,
	})
}

// resolvePath maps a tool-supplied path into the workspace and rejects
// anything that would escape it.
func (ft *FileTools) resolvePath(path string) (string, error) {
	if ft.workspacePath == "" {
		return "", fmt.Errorf("workspace not configured")
	}

	workspaceAbs, err := filepath.Abs(ft.workspacePath)
	if err != nil {
		return "", fmt.Errorf("failed to resolve workspace: %w", err)
	}

	var absPath string
	if filepath.IsAbs(path) {
		absPath = filepath.Clean(path)
	} else {
		absPath = filepath.Clean(filepath.Join(workspaceAbs, path))
	}

	if absPath != workspaceAbs && !strings.HasPrefix(absPath, workspaceAbs+string(filepath.Separator)) {
		return "", fmt.Errorf("path escapes workspace: %s", path)
	}
	return absPath, nil
}

func (ft *FileTools) handleRead(ctx context.Context, args map[string]any) (string, error) {
	path, _ := args["path"].(string)
	absPath, err := ft.resolvePath(path)
	if err != nil {
		return "", err
	}

	data, err := os.ReadFile(absPath)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("file not found: %s", path)
		}
		return "", fmt.Errorf("failed to read file: %w", err)
	}

	content := string(data)
	if len(content) > maxReadBytes {
		content = content[:maxReadBytes] + "\n\n[... truncated ...]"
	}
	return content, nil
}

func (ft *FileTools) handleList(ctx context.Context, args map[string]any) (string, error) {
	path, _ := args["path"].(string)
	if path == "" {
		path = "."
	}
	absPath, err := ft.resolvePath(path)
	if err != nil {
		return "", err
	}

	entries, err := os.ReadDir(absPath)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("directory not found: %s", path)
		}
		return "", fmt.Errorf("failed to list directory: %w", err)
	}

	if len(entries) == 0 {
		return "(empty directory)", nil
	}

	var b strings.Builder
	for _, e := range entries {
		if e.IsDir() {
			fmt.Fprintf(&b, "%s/\n", e.Name())
		} else {
			fmt.Fprintf(&b, "%s\n", e.Name())
		}
	}
	return b.String(), nil
}
