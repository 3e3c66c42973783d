package cmd

import (
	"context"
	"os"

	"github.com/dayuer/nanobus/internal/agent"
	"github.com/dayuer/nanobus/internal/bus"
	"github.com/dayuer/nanobus/internal/config"
	"github.com/dayuer/nanobus/internal/providers"
	"github.com/dayuer/nanobus/internal/utils"
)

// makeProvider creates a Provider from the loaded config, falling back to
// OPENAI_API_KEY and OPENAI_API_BASE for unset values.
func makeProvider(cfg config.Config) *providers.Provider {
	apiKey := cfg.Provider.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}
	apiBase := cfg.Provider.APIBase
	if apiBase == "" {
		apiBase = os.Getenv("OPENAI_API_BASE")
	}
	return providers.NewProvider(apiKey, apiBase, cfg.Agent.Model)
}

// makeBus creates a message bus with the configured stream timeout.
func makeBus(cfg config.Config) *bus.MessageBus {
	return bus.NewMessageBus(bus.WithStreamTimeout(cfg.Bus.StreamTimeoutDuration()))
}

// makeAgent wires an agent loop to msgBus.
func makeAgent(cfg config.Config, msgBus *bus.MessageBus) *agent.AgentLoop {
	return agent.NewAgentLoop(msgBus, makeProvider(cfg), agent.AgentConfig{
		Workspace:           utils.GetWorkspacePath(cfg.Agent.Workspace),
		Model:               cfg.Agent.Model,
		Temperature:         cfg.Agent.Temperature,
		MaxTokens:           cfg.Agent.MaxTokens,
		MaxIterations:       cfg.Agent.MaxIterations,
		MemoryWindow:        cfg.Agent.MemoryWindow,
		RestrictToWorkspace: cfg.Tools.RestrictToWorkspace,
	})
}

// startJanitor sweeps stale streams in the background when configured.
func startJanitor(ctx context.Context, cfg config.Config, msgBus *bus.MessageBus) {
	interval, maxAge := cfg.Bus.SweepIntervalDuration(), cfg.Bus.MaxAgeDuration()
	if interval <= 0 || maxAge <= 0 {
		return
	}
	go msgBus.RunJanitor(ctx, interval, maxAge)
}
