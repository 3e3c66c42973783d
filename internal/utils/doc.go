// Package utils provides shared helper functions.
package utils

import (
	"os"
	"path/filepath"
	"strings"
)

// GetDataPath returns the nanobus data directory (~/.nanobus).
func GetDataPath() string {
	home, _ := os.UserHomeDir()
	p := filepath.Join(home, ".nanobus")
	os.MkdirAll(p, 0755)
	return p
}

// GetWorkspacePath returns the workspace path, expanding a leading "~".
// An empty workspace resolves to <data>/workspace.
func GetWorkspacePath(workspace string) string {
	if workspace != "" {
		if strings.HasPrefix(workspace, "~") {
			home, _ := os.UserHomeDir()
			workspace = filepath.Join(home, workspace[1:])
		}
		os.MkdirAll(workspace, 0755)
		return workspace
	}
	p := filepath.Join(GetDataPath(), "workspace")
	os.MkdirAll(p, 0755)
	return p
}

// TruncateString truncates a string to maxLen bytes, adding suffix if truncated.
func TruncateString(s string, maxLen int, suffix string) string {
	if len(s) <= maxLen {
		return s
	}
	if suffix == "" {
		suffix = "..."
	}
	cutoff := maxLen - len(suffix)
	if cutoff < 0 {
		cutoff = 0
	}
	return s[:cutoff] + suffix
}

// Preview returns at most maxRunes runes of s, never splitting a UTF-8
// sequence. Used for log lines that must not leak full message content.
func Preview(s string, maxRunes int) string {
	if maxRunes <= 0 {
		return ""
	}
	n := 0
	for i := range s {
		if n == maxRunes {
			return s[:i]
		}
		n++
	}
	return s
}
