package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// DefaultAPIBase is used when no API base is configured.
const DefaultAPIBase = "https://api.openai.com/v1"

// Provider is an OpenAI-compatible LLM provider over plain HTTP. It works with
// any endpoint speaking the chat completions protocol (OpenAI, OpenRouter, ...).
type Provider struct {
	APIKey       string
	APIBase      string
	Model        string // default model
	ExtraHeaders map[string]string
	HTTPClient   *http.Client
}

// NewProvider creates a Provider with given config.
func NewProvider(apiKey, apiBase, defaultModel string) *Provider {
	if defaultModel == "" {
		defaultModel = "gpt-4o-mini"
	}
	if apiBase == "" {
		apiBase = DefaultAPIBase
	}
	return &Provider{
		APIKey:     apiKey,
		APIBase:    apiBase,
		Model:      defaultModel,
		HTTPClient: &http.Client{Timeout: 120 * time.Second},
	}
}

// DefaultModel satisfies the LLMProvider interface.
func (p *Provider) DefaultModel() string { return p.Model }

// Chat sends a chat completion request. Transport and API failures are
// reported as a response with finish_reason "error" so the agent can relay
// them to the user; only request construction failures return an error.
func (p *Provider) Chat(ctx context.Context, req ChatRequest) (*LLMResponse, error) {
	model := req.Model
	if model == "" {
		model = p.Model
	}
	maxTokens := req.MaxTokens
	if maxTokens < 1 {
		maxTokens = 4096
	}

	body := map[string]any{
		"model":       model,
		"messages":    req.Messages,
		"max_tokens":  maxTokens,
		"temperature": req.Temperature,
	}
	if len(req.Tools) > 0 {
		body["tools"] = req.Tools
		body["tool_choice"] = "auto"
	}

	jsonBody, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	endpoint := strings.TrimRight(p.APIBase, "/") + "/chat/completions"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if p.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+p.APIKey)
	}
	for k, v := range p.ExtraHeaders {
		httpReq.Header.Set(k, v)
	}

	client := p.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(httpReq)
	if err != nil {
		return errorResponse("Error calling LLM: %v", err), nil
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return errorResponse("Error reading response: %v", err), nil
	}
	if resp.StatusCode != http.StatusOK {
		return errorResponse("Error calling LLM (HTTP %d): %s", resp.StatusCode, string(respBody)), nil
	}
	return p.parseResponse(respBody)
}

// openAIResponse mirrors the OpenAI chat completion response structure.
type openAIResponse struct {
	Choices []struct {
		Message struct {
			Content          *string `json:"content"`
			ReasoningContent *string `json:"reasoning_content"`
			ToolCalls        []struct {
				ID       string `json:"id"`
				Function struct {
					Name      string `json:"name"`
					Arguments string `json:"arguments"`
				} `json:"function"`
			} `json:"tool_calls"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage *struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

func (p *Provider) parseResponse(body []byte) (*LLMResponse, error) {
	var resp openAIResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return errorResponse("Error parsing response: %v", err), nil
	}
	if len(resp.Choices) == 0 {
		return errorResponse("Error: no choices in response"), nil
	}

	choice := resp.Choices[0]
	msg := choice.Message

	var toolCalls []ToolCallRequest
	for _, tc := range msg.ToolCalls {
		var args map[string]any
		if tc.Function.Arguments != "" {
			json.Unmarshal([]byte(tc.Function.Arguments), &args)
		}
		toolCalls = append(toolCalls, ToolCallRequest{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: args,
		})
	}

	usage := map[string]int{}
	if resp.Usage != nil {
		usage["prompt_tokens"] = resp.Usage.PromptTokens
		usage["completion_tokens"] = resp.Usage.CompletionTokens
		usage["total_tokens"] = resp.Usage.TotalTokens
	}

	finishReason := choice.FinishReason
	if finishReason == "" {
		finishReason = "stop"
	}

	return &LLMResponse{
		Content:          msg.Content,
		ToolCalls:        toolCalls,
		FinishReason:     finishReason,
		Usage:            usage,
		ReasoningContent: msg.ReasoningContent,
	}, nil
}

func errorResponse(format string, args ...any) *LLMResponse {
	s := fmt.Sprintf(format, args...)
	return &LLMResponse{Content: &s, FinishReason: "error"}
}
