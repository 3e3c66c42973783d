package agent

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dayuer/nanobus/internal/bus"
)

func TestInterruptionChecker_CheckEmpty(t *testing.T) {
	c := NewInterruptionChecker("cli:direct")
	_, ok := c.Check()
	assert.False(t, ok)
	assert.False(t, c.HasPending())
	assert.Empty(t, c.DrainAll())
}

func TestInterruptionChecker_CheckOldestFirst(t *testing.T) {
	c := NewInterruptionChecker("cli:direct")
	c.Signal(bus.InboundMessage{Content: "first"})
	c.Signal(bus.InboundMessage{Content: "second"})

	peeked, ok := c.Peek()
	require.True(t, ok)
	assert.Equal(t, "first", peeked.Content)

	msg, ok := c.Check()
	require.True(t, ok)
	assert.Equal(t, "first", msg.Content)
	assert.True(t, c.HasPending())
}

func TestInterruptionChecker_DrainCompleteness(t *testing.T) {
	c := NewInterruptionChecker("ws:1")
	for i := 0; i < 5; i++ {
		c.Signal(bus.InboundMessage{Content: fmt.Sprintf("m%d", i)})
	}

	drained := c.DrainAll()
	require.Len(t, drained, 5)
	for i, m := range drained {
		assert.Equal(t, fmt.Sprintf("m%d", i), m.Content)
	}
	assert.False(t, c.HasPending())

	c.Signal(bus.InboundMessage{Content: "after"})
	drained = c.DrainAll()
	require.Len(t, drained, 1)
	assert.Equal(t, "after", drained[0].Content)
}

func TestInterruptionChecker_NilIsNoop(t *testing.T) {
	var c *InterruptionChecker
	assert.NotPanics(t, func() { c.Signal(bus.InboundMessage{Content: "x"}) })
	assert.False(t, c.HasPending())
	assert.Nil(t, c.DrainAll())
	_, ok := c.Check()
	assert.False(t, ok)
	_, ok = c.Peek()
	assert.False(t, ok)
	assert.Equal(t, "", c.SessionKey())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := c.Wait(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestInterruptionChecker_Wait(t *testing.T) {
	c := NewInterruptionChecker("ws:1")
	go func() {
		time.Sleep(10 * time.Millisecond)
		c.Signal(bus.InboundMessage{Content: "steer"})
	}()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	msg, err := c.Wait(ctx)
	require.NoError(t, err)
	assert.Equal(t, "steer", msg.Content)
}

func TestInterruptionChecker_IsolatedFromBus(t *testing.T) {
	mb := bus.NewMessageBus()
	c := NewInterruptionChecker("cli:direct")

	c.Signal(bus.InboundMessage{Channel: "cli", ChatID: "direct", Content: "steer"})
	assert.Equal(t, 0, mb.InboundSize())

	mb.PublishInbound(bus.InboundMessage{Channel: "cli", ChatID: "direct", Content: "new"})
	drained := c.DrainAll()
	require.Len(t, drained, 1)
	assert.Equal(t, "steer", drained[0].Content)
	assert.Equal(t, 1, mb.InboundSize())
}
