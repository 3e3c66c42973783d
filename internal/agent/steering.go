package agent

import (
	"context"
	"log"

	"github.com/dayuer/nanobus/internal/bus"
	"github.com/dayuer/nanobus/internal/utils"
)

// steeringPreviewRunes bounds how much of a steering message reaches the log.
const steeringPreviewRunes = 60

// TagSteering marks user messages injected into a running task.
const TagSteering = "steering"

// InterruptionChecker is the per-session steering queue.
//
// The outer run loop signals it when input arrives for a session that
// already has a task; the task drains it between tool-call batches. A nil
// checker is valid and never has anything pending.
type InterruptionChecker struct {
	sessionKey string
	queue      *bus.Queue[bus.InboundMessage]
}

// NewInterruptionChecker creates an empty checker for a session.
func NewInterruptionChecker(sessionKey string) *InterruptionChecker {
	return &InterruptionChecker{
		sessionKey: sessionKey,
		queue:      bus.NewQueue[bus.InboundMessage](),
	}
}

// Signal queues an interrupting message. It never blocks.
func (c *InterruptionChecker) Signal(msg bus.InboundMessage) {
	if c == nil {
		return
	}
	c.queue.Push(msg)
	log.Printf("[Steering] Interruption queued for session %s: %s",
		c.sessionKey, utils.Preview(msg.Content, steeringPreviewRunes))
}

// Check removes and returns the oldest pending message, if any.
func (c *InterruptionChecker) Check() (bus.InboundMessage, bool) {
	if c == nil {
		return bus.InboundMessage{}, false
	}
	return c.queue.TryPop()
}

// Peek returns the oldest pending message without removing it.
func (c *InterruptionChecker) Peek() (bus.InboundMessage, bool) {
	if c == nil {
		return bus.InboundMessage{}, false
	}
	return c.queue.Peek()
}

// DrainAll removes and returns all pending messages in arrival order.
func (c *InterruptionChecker) DrainAll() []bus.InboundMessage {
	if c == nil {
		return nil
	}
	return c.queue.DrainAll()
}

// HasPending reports whether any message is waiting.
func (c *InterruptionChecker) HasPending() bool {
	return c != nil && c.queue.Len() > 0
}

// Wait blocks until a message is pending or ctx is done.
// A nil checker waits for ctx only.
func (c *InterruptionChecker) Wait(ctx context.Context) (bus.InboundMessage, error) {
	if c == nil {
		<-ctx.Done()
		return bus.InboundMessage{}, ctx.Err()
	}
	return c.queue.Pop(ctx)
}

// SessionKey returns the session this checker belongs to.
func (c *InterruptionChecker) SessionKey() string {
	if c == nil {
		return ""
	}
	return c.sessionKey
}
