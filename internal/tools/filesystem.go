package tools

import (
	"context"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/dayuer/nanobus/internal/messages"
)

// FS holds the settings shared by the filesystem tools. Relative paths are
// resolved against Workspace; with Restrict set, paths outside it are refused.
type FS struct {
	Workspace string
	Restrict  bool
}

func (fs FS) resolve(path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("path is required")
	}
	if strings.HasPrefix(path, "~") {
		home, _ := os.UserHomeDir()
		path = filepath.Join(home, path[1:])
	}
	if !filepath.IsAbs(path) && fs.Workspace != "" {
		path = filepath.Join(fs.Workspace, path)
	}
	resolved, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	if fs.Restrict && fs.Workspace != "" {
		root, _ := filepath.Abs(fs.Workspace)
		if resolved != root && !strings.HasPrefix(resolved, root+string(filepath.Separator)) {
			return "", fmt.Errorf("path %s is outside allowed directory %s", path, fs.Workspace)
		}
	}
	return resolved, nil
}

func mimeTypeOf(path string) string {
	if t := mime.TypeByExtension(filepath.Ext(path)); t != "" {
		return t
	}
	return "text/plain"
}

func objectSchema(props map[string]any, required ...string) map[string]any {
	return map[string]any{
		"type":       "object",
		"properties": props,
		"required":   required,
	}
}

func stringProp(desc string) map[string]any {
	return map[string]any{"type": "string", "description": desc}
}

// ReadFileTool reads file contents.
type ReadFileTool struct{ FS }

func (t *ReadFileTool) Name() string        { return "read_file" }
func (t *ReadFileTool) Description() string { return "Read the contents of a file at the given path." }
func (t *ReadFileTool) Parameters() map[string]any {
	return objectSchema(map[string]any{"path": stringProp("The file path to read")}, "path")
}

func (t *ReadFileTool) Execute(_ context.Context, args map[string]any) (string, error) {
	path, _ := args["path"].(string)
	resolved, err := t.resolve(path)
	if err != nil {
		return fmt.Sprintf("Error: %v", err), nil
	}
	info, err := os.Stat(resolved)
	if os.IsNotExist(err) {
		return fmt.Sprintf("Error: File not found: %s", path), nil
	}
	if err != nil {
		return fmt.Sprintf("Error reading file: %v", err), nil
	}
	if info.IsDir() {
		return fmt.Sprintf("Error: Not a file: %s", path), nil
	}
	data, err := os.ReadFile(resolved)
	if err != nil {
		return fmt.Sprintf("Error reading file: %v", err), nil
	}
	return string(data), nil
}

// WriteFileTool writes content to a file. Each call yields an artifact.
type WriteFileTool struct{ FS }

func (t *WriteFileTool) Name() string { return "write_file" }
func (t *WriteFileTool) Description() string {
	return "Write content to a file. Creates parent directories."
}
func (t *WriteFileTool) Parameters() map[string]any {
	return objectSchema(map[string]any{
		"path":    stringProp("The file path to write to"),
		"content": stringProp("The content to write"),
	}, "path", "content")
}

func (t *WriteFileTool) Execute(_ context.Context, args map[string]any) (string, error) {
	path, _ := args["path"].(string)
	content, _ := args["content"].(string)

	resolved, err := t.resolve(path)
	if err != nil {
		return fmt.Sprintf("Error: %v", err), nil
	}
	if err := os.MkdirAll(filepath.Dir(resolved), 0755); err != nil {
		return fmt.Sprintf("Error writing file: %v", err), nil
	}
	if err := os.WriteFile(resolved, []byte(content), 0644); err != nil {
		return fmt.Sprintf("Error writing file: %v", err), nil
	}
	return fmt.Sprintf("Successfully wrote %d bytes to %s", len(content), path), nil
}

// Artifact reports a create for new files and an update for existing ones.
func (t *WriteFileTool) Artifact(toolCallID string, args map[string]any) *messages.ArtifactInfo {
	path, _ := args["path"].(string)
	resolved, err := t.resolve(path)
	if err != nil {
		return nil
	}
	action := messages.ActionCreate
	if _, err := os.Stat(resolved); err == nil {
		action = messages.ActionUpdate
	}
	return messages.NewArtifactInfo(action, filepath.Base(resolved), mimeTypeOf(resolved), toolCallID)
}

// EditFileTool edits a file by replacing old text with new text.
type EditFileTool struct{ FS }

func (t *EditFileTool) Name() string { return "edit_file" }
func (t *EditFileTool) Description() string {
	return "Edit a file by replacing old_text with new_text."
}
func (t *EditFileTool) Parameters() map[string]any {
	return objectSchema(map[string]any{
		"path":     stringProp("The file path to edit"),
		"old_text": stringProp("The exact text to find"),
		"new_text": stringProp("The replacement text"),
	}, "path", "old_text", "new_text")
}

func (t *EditFileTool) Execute(_ context.Context, args map[string]any) (string, error) {
	path, _ := args["path"].(string)
	oldText, _ := args["old_text"].(string)
	newText, _ := args["new_text"].(string)

	resolved, err := t.resolve(path)
	if err != nil {
		return fmt.Sprintf("Error: %v", err), nil
	}
	data, err := os.ReadFile(resolved)
	if os.IsNotExist(err) {
		return fmt.Sprintf("Error: File not found: %s", path), nil
	}
	if err != nil {
		return fmt.Sprintf("Error reading file: %v", err), nil
	}

	content := string(data)
	switch count := strings.Count(content, oldText); {
	case count == 0:
		return "Error: old_text not found in file. Make sure it matches exactly.", nil
	case count > 1:
		return fmt.Sprintf("Error: old_text appears %d times. Please provide more context.", count), nil
	}

	if err := os.WriteFile(resolved, []byte(strings.Replace(content, oldText, newText, 1)), 0644); err != nil {
		return fmt.Sprintf("Error writing file: %v", err), nil
	}
	return fmt.Sprintf("Successfully edited %s", path), nil
}

// Artifact always reports an update.
func (t *EditFileTool) Artifact(toolCallID string, args map[string]any) *messages.ArtifactInfo {
	path, _ := args["path"].(string)
	resolved, err := t.resolve(path)
	if err != nil {
		return nil
	}
	return messages.NewArtifactInfo(messages.ActionUpdate, filepath.Base(resolved), mimeTypeOf(resolved), toolCallID)
}

// ListDirTool lists directory contents.
type ListDirTool struct{ FS }

func (t *ListDirTool) Name() string        { return "list_dir" }
func (t *ListDirTool) Description() string { return "List the contents of a directory." }
func (t *ListDirTool) Parameters() map[string]any {
	return objectSchema(map[string]any{"path": stringProp("The directory path to list")}, "path")
}

func (t *ListDirTool) Execute(_ context.Context, args map[string]any) (string, error) {
	path, _ := args["path"].(string)
	resolved, err := t.resolve(path)
	if err != nil {
		return fmt.Sprintf("Error: %v", err), nil
	}
	info, err := os.Stat(resolved)
	if os.IsNotExist(err) {
		return fmt.Sprintf("Error: Directory not found: %s", path), nil
	}
	if err != nil {
		return fmt.Sprintf("Error listing directory: %v", err), nil
	}
	if !info.IsDir() {
		return fmt.Sprintf("Error: Not a directory: %s", path), nil
	}

	entries, err := os.ReadDir(resolved)
	if err != nil {
		return fmt.Sprintf("Error listing directory: %v", err), nil
	}
	if len(entries) == 0 {
		return fmt.Sprintf("Directory %s is empty", path), nil
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	lines := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			lines = append(lines, e.Name()+"/")
		} else {
			lines = append(lines, e.Name())
		}
	}
	return strings.Join(lines, "\n"), nil
}

// RegisterFilesystem adds the filesystem tools to r.
func RegisterFilesystem(r *Registry, fs FS) {
	r.Register(&ReadFileTool{fs})
	r.Register(&WriteFileTool{fs})
	r.Register(&EditFileTool{fs})
	r.Register(&ListDirTool{fs})
}
