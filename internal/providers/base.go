// Package providers defines the LLM provider interface and response types.
package providers

import (
	"context"
	"encoding/json"
)

// ToolCallRequest represents a tool call from the LLM.
type ToolCallRequest struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

// Payload renders the call in OpenAI tool_calls format.
func (tc ToolCallRequest) Payload() map[string]any {
	argsJSON, _ := json.Marshal(tc.Arguments)
	return map[string]any{
		"id":   tc.ID,
		"type": "function",
		"function": map[string]any{
			"name":      tc.Name,
			"arguments": string(argsJSON),
		},
	}
}

// LLMResponse is the standardized response from any LLM provider.
type LLMResponse struct {
	Content          *string           `json:"content"`
	ToolCalls        []ToolCallRequest `json:"tool_calls,omitempty"`
	FinishReason     string            `json:"finish_reason"`
	Usage            map[string]int    `json:"usage,omitempty"`
	ReasoningContent *string           `json:"reasoning_content,omitempty"`
}

// HasToolCalls returns true if the response contains tool calls.
func (r *LLMResponse) HasToolCalls() bool {
	return len(r.ToolCalls) > 0
}

// Text returns the response content, or "" when absent.
func (r *LLMResponse) Text() string {
	if r.Content == nil {
		return ""
	}
	return *r.Content
}

// ChatRequest holds all parameters for a chat completion call.
// Messages are LLM payloads as produced by messages.ToLLMPayloads.
type ChatRequest struct {
	Messages    []map[string]any `json:"messages"`
	Tools       []map[string]any `json:"tools,omitempty"`
	Model       string           `json:"model,omitempty"`
	MaxTokens   int              `json:"max_tokens"`
	Temperature float64          `json:"temperature"`
}

// LLMProvider is the interface for all LLM backends.
type LLMProvider interface {
	// Chat sends a chat completion request.
	Chat(ctx context.Context, req ChatRequest) (*LLMResponse, error)

	// DefaultModel returns the default model identifier.
	DefaultModel() string
}
