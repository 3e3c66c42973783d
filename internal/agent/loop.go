// Package agent implements the agent execution loop and its steering layer.
package agent

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/dayuer/nanobus/internal/bus"
	"github.com/dayuer/nanobus/internal/messages"
	"github.com/dayuer/nanobus/internal/providers"
	"github.com/dayuer/nanobus/internal/session"
	"github.com/dayuer/nanobus/internal/tools"
	"github.com/dayuer/nanobus/internal/utils"
)

// AgentLoop is the core processing engine.
// It consumes inbound messages, runs one task per session, steers running
// tasks with follow-up input, and delivers responses to the bus or a stream.
type AgentLoop struct {
	Bus           *bus.MessageBus
	Provider      providers.LLMProvider
	Workspace     string
	Model         string
	MaxIterations int
	Temperature   float64
	MaxTokens     int
	MemoryWindow  int

	Context  *ContextBuilder
	Sessions *session.Manager
	Tools    *tools.Registry

	mu     sync.Mutex
	active map[string]*InterruptionChecker
	tasks  sync.WaitGroup
}

// AgentConfig holds configuration for creating an AgentLoop.
type AgentConfig struct {
	Workspace           string
	Model               string
	MaxIterations       int
	Temperature         float64
	MaxTokens           int
	MemoryWindow        int
	RestrictToWorkspace bool
}

// NewAgentLoop creates and configures an agent loop with the filesystem tools.
func NewAgentLoop(msgBus *bus.MessageBus, provider providers.LLMProvider, cfg AgentConfig) *AgentLoop {
	model := cfg.Model
	if model == "" {
		model = provider.DefaultModel()
	}
	maxIter := cfg.MaxIterations
	if maxIter == 0 {
		maxIter = 20
	}
	maxTokens := cfg.MaxTokens
	if maxTokens == 0 {
		maxTokens = 4096
	}
	memWin := cfg.MemoryWindow
	if memWin == 0 {
		memWin = 50
	}

	loop := &AgentLoop{
		Bus:           msgBus,
		Provider:      provider,
		Workspace:     cfg.Workspace,
		Model:         model,
		MaxIterations: maxIter,
		Temperature:   cfg.Temperature,
		MaxTokens:     maxTokens,
		MemoryWindow:  memWin,
		Context:       NewContextBuilder(cfg.Workspace),
		Sessions:      session.NewManager(),
		Tools:         tools.NewRegistry(),
		active:        make(map[string]*InterruptionChecker),
	}
	tools.RegisterFilesystem(loop.Tools, tools.FS{
		Workspace: cfg.Workspace,
		Restrict:  cfg.RestrictToWorkspace,
	})
	return loop
}

// Run consumes inbound messages until ctx is cancelled or the bus closes,
// then waits for running tasks to finish.
func (a *AgentLoop) Run(ctx context.Context) error {
	log.Println("[Agent] Loop started")
	defer a.tasks.Wait()

	for {
		msg, err := a.Bus.ConsumeInbound(ctx)
		if err != nil {
			if errors.Is(err, bus.ErrClosed) || errors.Is(err, context.Canceled) {
				log.Println("[Agent] Loop stopping")
				return nil
			}
			return err
		}
		a.dispatch(ctx, msg)
	}
}

// dispatch steers the session's running task with msg, or starts a task.
func (a *AgentLoop) dispatch(ctx context.Context, msg bus.InboundMessage) {
	key := msg.SessionKey()

	a.mu.Lock()
	if c, ok := a.active[key]; ok {
		// Signal under the lock so the task cannot retire in between.
		c.Signal(msg)
		a.mu.Unlock()
		return
	}
	c := NewInterruptionChecker(key)
	a.active[key] = c
	a.mu.Unlock()

	a.tasks.Add(1)
	go func() {
		defer a.tasks.Done()
		a.runTask(ctx, msg, c)
	}()
}

func (a *AgentLoop) runTask(ctx context.Context, msg bus.InboundMessage, c *InterruptionChecker) {
	a.handle(ctx, msg, c)

	a.mu.Lock()
	defer a.mu.Unlock()
	key := c.SessionKey()
	leftover := c.DrainAll()
	if len(leftover) == 0 || ctx.Err() != nil {
		delete(a.active, key)
		if len(leftover) > 0 {
			log.Printf("[Agent] Dropped %d late message(s) for %s: shutting down", len(leftover), key)
		}
		return
	}

	// Input that arrived after the last drain continues the session in
	// arrival order, ahead of anything still in the inbound queue.
	next := NewInterruptionChecker(key)
	for _, m := range leftover[1:] {
		next.Signal(m)
	}
	a.active[key] = next
	log.Printf("[Agent] Continuing %s with %d late message(s)", key, len(leftover))

	a.tasks.Add(1)
	go func() {
		defer a.tasks.Done()
		a.runTask(ctx, leftover[0], next)
	}()
}

// ActiveSessions returns the keys of sessions with a running task.
func (a *AgentLoop) ActiveSessions() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	keys := make([]string, 0, len(a.active))
	for k := range a.active {
		keys = append(keys, k)
	}
	return keys
}

// handle processes one inbound message and delivers the answer either
// through the message's stream callback or as an outbound message.
func (a *AgentLoop) handle(ctx context.Context, msg bus.InboundMessage, c *InterruptionChecker) {
	var stream bus.StreamCallback
	if msg.StreamID != "" {
		stream = a.Bus.GetStreamCallback(msg.StreamID)
		defer a.Bus.MarkStreamDone(msg.StreamID)
	}
	onProgress := func(text string) {
		if stream != nil && text != "" {
			stream(text)
		}
	}

	final, err := a.process(ctx, msg, msg.SessionKey(), c, onProgress)
	if err != nil {
		log.Printf("[Agent] Error processing %s: %v", msg.SessionKey(), err)
		final = fmt.Sprintf("Sorry, I encountered an error: %v", err)
	}

	if stream != nil {
		stream(final)
		return
	}
	a.Bus.PublishOutbound(bus.OutboundMessage{
		Channel:  msg.Channel,
		ChatID:   msg.ChatID,
		Content:  final,
		StreamID: msg.StreamID,
	})
}

func (a *AgentLoop) process(ctx context.Context, msg bus.InboundMessage, sessionKey string, c *InterruptionChecker, onProgress func(string)) (string, error) {
	sess := a.Sessions.GetOrCreate(sessionKey)
	user := UserMessage(msg)
	msgs := a.Context.BuildMessages(sess.History(a.MemoryWindow), user, msg.Channel, msg.ChatID)

	final, turn, err := a.RunAgentLoop(ctx, msgs, c, onProgress)
	if err != nil {
		return "", err
	}
	if final == "" {
		final = "Completed processing."
	}

	sess.Add(user)
	sess.Add(turn...)
	return final, nil
}

// RunAgentLoop executes the tool-calling loop until the model answers without
// tool calls and no steering input is pending, or MaxIterations is reached.
// Steering input from c is injected between tool-call batches. It returns the
// final answer and the messages appended during the run.
func (a *AgentLoop) RunAgentLoop(ctx context.Context, msgs []messages.AgentMessage, c *InterruptionChecker, onProgress func(string)) (string, []messages.AgentMessage, error) {
	start := len(msgs)

	for iteration := 0; iteration < a.MaxIterations; iteration++ {
		resp, err := a.Provider.Chat(ctx, providers.ChatRequest{
			Messages:    messages.ToLLMPayloads(msgs),
			Tools:       a.Tools.Schemas(),
			Model:       a.Model,
			MaxTokens:   a.MaxTokens,
			Temperature: a.Temperature,
		})
		if err != nil {
			return "", msgs[start:], fmt.Errorf("LLM chat: %w", err)
		}

		if resp.HasToolCalls() {
			calls := make([]map[string]any, len(resp.ToolCalls))
			for i, tc := range resp.ToolCalls {
				calls[i] = tc.Payload()
			}
			msgs = append(msgs, messages.AgentMessage{
				Role:             messages.RoleAssistant,
				Content:          resp.Text(),
				Type:             messages.TypeToolCall,
				ToolCalls:        calls,
				ReasoningContent: resp.ReasoningContent,
			})
			if onProgress != nil {
				onProgress(resp.Text())
			}

			for _, tc := range resp.ToolCalls {
				msgs = append(msgs, a.executeTool(ctx, tc))
			}
			msgs = a.injectSteering(msgs, c)
			continue
		}

		final := resp.Text()
		msgs = append(msgs, messages.AgentMessage{
			Role:             messages.RoleAssistant,
			Content:          final,
			Type:             messages.TypeText,
			ReasoningContent: resp.ReasoningContent,
		})
		if c.HasPending() {
			if onProgress != nil {
				onProgress(final)
			}
			msgs = a.injectSteering(msgs, c)
			continue
		}
		return final, msgs[start:], nil
	}

	return "Max iterations reached", msgs[start:], nil
}

func (a *AgentLoop) executeTool(ctx context.Context, tc providers.ToolCallRequest) messages.AgentMessage {
	result := messages.AgentMessage{
		Role:       messages.RoleTool,
		Type:       messages.TypeToolResult,
		ToolCallID: tc.ID,
		ToolName:   tc.Name,
	}

	tool := a.Tools.Get(tc.Name)
	if tool == nil {
		result.Content = fmt.Sprintf("Error: unknown tool %q", tc.Name)
		return result
	}

	var artifact *messages.ArtifactInfo
	if p, ok := tool.(tools.ArtifactProducer); ok {
		artifact = p.Artifact(tc.ID, tc.Arguments)
	}

	out, err := tool.Execute(ctx, tc.Arguments)
	if err != nil {
		out = fmt.Sprintf("Error: %v", err)
	}
	log.Printf("[Agent] Tool %s -> %s", tc.Name, utils.TruncateString(out, 120, "..."))
	result.Content = out
	if artifact != nil && !strings.HasPrefix(out, "Error") {
		result.Type = messages.TypeArtifact
		result.Artifact = artifact
	}
	return result
}

// injectSteering appends every pending steering input as a tagged user
// message. A steering input that opened its own stream was merged into this
// task, so its callback is dropped and its stream completed.
func (a *AgentLoop) injectSteering(msgs []messages.AgentMessage, c *InterruptionChecker) []messages.AgentMessage {
	pending := c.DrainAll()
	for _, in := range pending {
		if in.StreamID != "" {
			a.Bus.GetStreamCallback(in.StreamID)
			a.Bus.MarkStreamDone(in.StreamID)
		}
		msgs = append(msgs, UserMessage(in).WithTags(TagSteering))
	}
	if len(pending) > 0 {
		log.Printf("[Agent] Injected %d steering message(s) into %s", len(pending), c.SessionKey())
	}
	return msgs
}

// ProcessDirect processes one message synchronously, bypassing the bus and
// steering. The one-shot agent command uses it.
func (a *AgentLoop) ProcessDirect(ctx context.Context, content, sessionKey, channel, chatID string) (string, error) {
	if channel == "" {
		channel = "cli"
	}
	if chatID == "" {
		chatID = "direct"
	}
	if sessionKey == "" {
		sessionKey = channel + ":" + chatID
	}
	msg := bus.InboundMessage{Channel: channel, ChatID: chatID, Content: content}
	return a.process(ctx, msg, sessionKey, nil, nil)
}
