package agent

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/dayuer/nanobus/internal/bus"
	"github.com/dayuer/nanobus/internal/messages"
)

// BootstrapFiles are loaded into the system prompt when present.
var BootstrapFiles = []string{"AGENTS.md", "SOUL.md", "USER.md", "TOOLS.md"}

// ContextBuilder assembles system prompts and message lists for the agent.
type ContextBuilder struct {
	Workspace string
}

// NewContextBuilder creates a ContextBuilder for a workspace.
func NewContextBuilder(workspace string) *ContextBuilder {
	return &ContextBuilder{Workspace: workspace}
}

// BuildSystemPrompt builds the system prompt from identity, bootstrap files,
// the current session and the artifacts recently produced in it.
func (c *ContextBuilder) BuildSystemPrompt(channel, chatID string, history []messages.AgentMessage) string {
	parts := []string{c.identity()}

	if bs := c.loadBootstrapFiles(); bs != "" {
		parts = append(parts, bs)
	}
	if arts := recentArtifacts(history); arts != "" {
		parts = append(parts, arts)
	}

	prompt := strings.Join(parts, "\n\n---\n\n")
	if channel != "" && chatID != "" {
		prompt += fmt.Sprintf("\n\n## Current Session\nChannel: %s\nChat ID: %s", channel, chatID)
	}
	return prompt
}

func (c *ContextBuilder) identity() string {
	now := time.Now().Format("2006-01-02 15:04 (Monday)")
	tz, _ := time.Now().Zone()
	ws, _ := filepath.Abs(c.Workspace)

	return fmt.Sprintf(`# nanobus

You are a helpful AI assistant with tools to read, write, edit and list files.
The user may send follow-up messages while you are working; they appear as
new user messages between tool results. Take them into account before
continuing.

## Current Time
%s (%s)

## Runtime
%s %s, Go %s

## Workspace
Your workspace is at: %s`, now, tz, runtime.GOOS, runtime.GOARCH, runtime.Version(), ws)
}

func (c *ContextBuilder) loadBootstrapFiles() string {
	var parts []string
	for _, name := range BootstrapFiles {
		data, err := os.ReadFile(filepath.Join(c.Workspace, name))
		if err == nil {
			parts = append(parts, fmt.Sprintf("## %s\n\n%s", name, string(data)))
		}
	}
	return strings.Join(parts, "\n\n")
}

func recentArtifacts(history []messages.AgentMessage) string {
	latest := messages.LatestArtifacts(history, messages.DefaultArtifactWindow)
	if len(latest) == 0 {
		return ""
	}
	lines := []string{"# Recent Artifacts"}
	for _, m := range latest {
		a := m.Artifact
		lines = append(lines, fmt.Sprintf("- %s (%s, %s) id=%s", a.Filename, a.Action, a.MimeType, a.ID))
	}
	return strings.Join(lines, "\n")
}

// UserMessage converts an inbound message into the user turn. Messages
// carrying media become attachments with the media list in metadata.
func UserMessage(in bus.InboundMessage) messages.AgentMessage {
	m := messages.NewText(messages.RoleUser, in.Content)
	if len(in.Media) > 0 {
		m.Type = messages.TypeUserAttachment
		m.Metadata = map[string]any{"media": in.Media}
	}
	return m
}

// BuildMessages constructs the full message list for an LLM call:
// system prompt, history, then the new user turn.
func (c *ContextBuilder) BuildMessages(history []messages.AgentMessage, user messages.AgentMessage, channel, chatID string) []messages.AgentMessage {
	out := make([]messages.AgentMessage, 0, len(history)+2)
	out = append(out, messages.AgentMessage{
		Role:    messages.RoleSystem,
		Content: c.BuildSystemPrompt(channel, chatID, history),
		Type:    messages.TypeSystem,
	})
	out = append(out, history...)
	return append(out, user)
}
