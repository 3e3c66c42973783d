// Package tools defines the Tool interface and contract tests for agent tools.
package tools

import (
	"context"

	"github.com/dayuer/nanobus/internal/messages"
)

// Tool is the interface that all agent tools must implement.
type Tool interface {
	// Name returns the tool name used in LLM function calls.
	Name() string

	// Description returns what the tool does.
	Description() string

	// Parameters returns the JSON Schema for tool parameters.
	Parameters() map[string]any

	// Execute runs the tool with the given arguments.
	Execute(ctx context.Context, args map[string]any) (string, error)
}

// ToSchema converts a tool to OpenAI function calling format.
func ToSchema(t Tool) map[string]any {
	return map[string]any{
		"type": "function",
		"function": map[string]any{
			"name":        t.Name(),
			"description": t.Description(),
			"parameters":  t.Parameters(),
		},
	}
}

// ArtifactProducer is implemented by tools whose calls produce an artifact.
// Artifact is called before Execute with the same arguments so the action
// can reflect the state prior to the call; the agent attaches the result to
// the tool-result message only if execution succeeded.
type ArtifactProducer interface {
	Artifact(toolCallID string, args map[string]any) *messages.ArtifactInfo
}
