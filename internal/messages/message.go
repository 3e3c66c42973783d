// Package messages implements the dual-layer message model.
//
// An AgentMessage carries both the payload an LLM API understands and
// application-layer metadata (artifacts, semantic tags, free-form metadata).
// The LLM projection strips everything the model cannot consume.
package messages

import (
	gonanoid "github.com/matoous/go-nanoid/v2"
)

// Role is the speaker of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
	RoleTool      Role = "tool"
)

// MessageType is the closed set of message kinds.
type MessageType string

const (
	TypeText           MessageType = "text"
	TypeToolCall       MessageType = "tool_call"
	TypeToolResult     MessageType = "tool_result"
	TypeArtifact       MessageType = "artifact"
	TypeUserAttachment MessageType = "user_attachment"
	TypeSystem         MessageType = "system"
)

// Valid reports whether t is one of the known message types.
func (t MessageType) Valid() bool {
	switch t {
	case TypeText, TypeToolCall, TypeToolResult, TypeArtifact, TypeUserAttachment, TypeSystem:
		return true
	default:
		return false
	}
}

// Artifact actions.
const (
	ActionCreate = "create"
	ActionUpdate = "update"
	ActionDelete = "delete"
)

const artifactIDAlphabet = "0123456789abcdef"

// ArtifactIDLength is the length of generated artifact IDs.
const ArtifactIDLength = 12

// ArtifactInfo is metadata for an artifact produced by a tool call.
// It is created once and not modified afterwards.
type ArtifactInfo struct {
	ID                  string `json:"id"`
	Action              string `json:"action"`
	Filename            string `json:"filename,omitempty"`
	MimeType            string `json:"mime_type,omitempty"`
	CreatedByToolCallID string `json:"created_by_tool_call_id,omitempty"`
}

// NewArtifactInfo creates an ArtifactInfo with a fresh session-local ID.
// An empty action defaults to ActionCreate.
func NewArtifactInfo(action, filename, mimeType, toolCallID string) *ArtifactInfo {
	if action == "" {
		action = ActionCreate
	}
	return &ArtifactInfo{
		ID:                  gonanoid.MustGenerate(artifactIDAlphabet, ArtifactIDLength),
		Action:              action,
		Filename:            filename,
		MimeType:            mimeType,
		CreatedByToolCallID: toolCallID,
	}
}

// AgentMessage is the application-layer message envelope.
type AgentMessage struct {
	Role     Role           `json:"role"`
	Content  any            `json:"content"`
	Type     MessageType    `json:"msg_type"`
	Metadata map[string]any `json:"metadata,omitempty"`

	ToolCalls        []map[string]any `json:"tool_calls,omitempty"`
	ToolCallID       string           `json:"tool_call_id,omitempty"`
	ToolName         string           `json:"tool_name,omitempty"`
	ReasoningContent *string          `json:"reasoning_content,omitempty"`

	Artifact *ArtifactInfo `json:"artifact,omitempty"`
	Tags     []string      `json:"tags,omitempty"`
}

// NewText returns a plain text message.
func NewText(role Role, content string) AgentMessage {
	return AgentMessage{Role: role, Content: content, Type: TypeText}
}

// HasTag reports whether the message carries tag.
func (m AgentMessage) HasTag(tag string) bool {
	for _, t := range m.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// WithTags returns a copy of m with tags appended.
func (m AgentMessage) WithTags(tags ...string) AgentMessage {
	out := make([]string, 0, len(m.Tags)+len(tags))
	out = append(out, m.Tags...)
	m.Tags = append(out, tags...)
	return m
}

// Text returns the content as a string when it is one, or "" otherwise.
func (m AgentMessage) Text() string {
	s, _ := m.Content.(string)
	return s
}
