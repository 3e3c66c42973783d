package messages

// LLMPayload projects the message onto the fields an LLM chat API accepts:
// role, content, tool_calls, tool_call_id, name and reasoning_content.
// Artifact info, tags and metadata are always dropped.
func (m AgentMessage) LLMPayload() map[string]any {
	d := map[string]any{
		"role":    string(m.Role),
		"content": m.Content,
	}
	if len(m.ToolCalls) > 0 {
		d["tool_calls"] = m.ToolCalls
	}
	if m.ToolCallID != "" {
		d["tool_call_id"] = m.ToolCallID
	}
	if m.ToolName != "" {
		d["name"] = m.ToolName
	}
	if m.ReasoningContent != nil {
		d["reasoning_content"] = *m.ReasoningContent
	}
	return d
}

// FromLLMPayload lifts a plain LLM dict into an AgentMessage.
//
// The message type is inferred from shape: role "tool" is a tool result,
// non-empty tool_calls is a tool call, role "system" is a system message and
// anything else is text. Application metadata cannot be recovered.
func FromLLMPayload(d map[string]any) AgentMessage {
	role, _ := d["role"].(string)
	toolCalls := toolCallsOf(d["tool_calls"])

	var typ MessageType
	switch {
	case role == string(RoleTool):
		typ = TypeToolResult
	case len(toolCalls) > 0:
		typ = TypeToolCall
	case role == string(RoleSystem):
		typ = TypeSystem
	default:
		typ = TypeText
	}

	m := AgentMessage{
		Role:      Role(role),
		Content:   d["content"],
		Type:      typ,
		ToolCalls: toolCalls,
	}
	m.ToolCallID, _ = d["tool_call_id"].(string)
	m.ToolName, _ = d["name"].(string)
	if rc, ok := d["reasoning_content"].(string); ok {
		m.ReasoningContent = &rc
	}
	return m
}

// toolCallsOf accepts both typed and JSON-decoded tool call lists.
func toolCallsOf(v any) []map[string]any {
	switch tcs := v.(type) {
	case []map[string]any:
		if len(tcs) == 0 {
			return nil
		}
		return tcs
	case []any:
		var out []map[string]any
		for _, tc := range tcs {
			if m, ok := tc.(map[string]any); ok {
				out = append(out, m)
			}
		}
		return out
	default:
		return nil
	}
}

// ToLLMPayloads projects every message, preserving order.
func ToLLMPayloads(msgs []AgentMessage) []map[string]any {
	out := make([]map[string]any, len(msgs))
	for i, m := range msgs {
		out[i] = m.LLMPayload()
	}
	return out
}

// FromLLMPayloads lifts every dict, preserving order.
func FromLLMPayloads(ds []map[string]any) []AgentMessage {
	out := make([]AgentMessage, len(ds))
	for i, d := range ds {
		out[i] = FromLLMPayload(d)
	}
	return out
}
