// Package config handles configuration loading, saving, and schema definition.
package config

import "time"

// Config is the top-level nanobus configuration.
// Uses camelCase tags to match the JSON and YAML config file formats.
type Config struct {
	Agent    AgentConfig    `json:"agent" yaml:"agent"`
	Provider ProviderConfig `json:"provider" yaml:"provider"`
	Bus      BusConfig      `json:"bus" yaml:"bus"`
	Channel  ChannelConfig  `json:"channel" yaml:"channel"`
	Tools    ToolsConfig    `json:"tools" yaml:"tools"`
}

// AgentConfig holds agent behavior settings.
type AgentConfig struct {
	Model         string  `json:"model,omitempty" yaml:"model,omitempty"`
	MaxTokens     int     `json:"maxTokens,omitempty" yaml:"maxTokens,omitempty"`
	Temperature   float64 `json:"temperature,omitempty" yaml:"temperature,omitempty"`
	MaxIterations int     `json:"maxIterations,omitempty" yaml:"maxIterations,omitempty"`
	MemoryWindow  int     `json:"memoryWindow,omitempty" yaml:"memoryWindow,omitempty"`
	Workspace     string  `json:"workspace,omitempty" yaml:"workspace,omitempty"`
}

// ProviderConfig holds the OpenAI-compatible endpoint settings.
// Empty values fall back to the OPENAI_API_KEY and OPENAI_API_BASE environment variables.
type ProviderConfig struct {
	APIKey  string `json:"apiKey,omitempty" yaml:"apiKey,omitempty"`
	APIBase string `json:"apiBase,omitempty" yaml:"apiBase,omitempty"`
}

// BusConfig holds message bus settings. All values are in seconds.
type BusConfig struct {
	StreamTimeout       int `json:"streamTimeout,omitempty" yaml:"streamTimeout,omitempty"`
	StreamSweepInterval int `json:"streamSweepInterval,omitempty" yaml:"streamSweepInterval,omitempty"`
	StreamMaxAge        int `json:"streamMaxAge,omitempty" yaml:"streamMaxAge,omitempty"`
}

// StreamTimeoutDuration returns the default stream wait timeout.
func (b BusConfig) StreamTimeoutDuration() time.Duration {
	return time.Duration(b.StreamTimeout) * time.Second
}

// SweepIntervalDuration returns how often stale streams are swept.
func (b BusConfig) SweepIntervalDuration() time.Duration {
	return time.Duration(b.StreamSweepInterval) * time.Second
}

// MaxAgeDuration returns the age after which an unfinished stream is stale.
func (b BusConfig) MaxAgeDuration() time.Duration {
	return time.Duration(b.StreamMaxAge) * time.Second
}

// ChannelConfig holds per-channel settings.
type ChannelConfig struct {
	WebSocket *WebSocketConfig `json:"websocket,omitempty" yaml:"websocket,omitempty"`
}

// WebSocketConfig holds WebSocket server settings.
type WebSocketConfig struct {
	Host      string   `json:"host,omitempty" yaml:"host,omitempty"`
	Port      int      `json:"port,omitempty" yaml:"port,omitempty"`
	Path      string   `json:"path,omitempty" yaml:"path,omitempty"`
	AllowFrom []string `json:"allowFrom,omitempty" yaml:"allowFrom,omitempty"`
}

// ToolsConfig holds tool-related settings.
type ToolsConfig struct {
	RestrictToWorkspace bool `json:"restrictToWorkspace" yaml:"restrictToWorkspace"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Agent: AgentConfig{
			Model:         "gpt-4o-mini",
			MaxTokens:     4096,
			Temperature:   0.7,
			MaxIterations: 20,
			MemoryWindow:  50,
		},
		Bus: BusConfig{
			StreamTimeout:       300,
			StreamSweepInterval: 60,
			StreamMaxAge:        900,
		},
		Channel: ChannelConfig{
			WebSocket: &WebSocketConfig{
				Host: "0.0.0.0",
				Port: 18790,
				Path: "/ws",
			},
		},
		Tools: ToolsConfig{
			RestrictToWorkspace: true,
		},
	}
}
