package channels

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dayuer/nanobus/internal/bus"
)

// RunChannelContractTests runs the standard contract tests that ALL channels must pass.
func RunChannelContractTests(t *testing.T, ch Channel) {
	t.Helper()

	t.Run("Contract/Name_NonEmpty", func(t *testing.T) {
		assert.NotEmpty(t, ch.Name(), "Channel.Name() must return non-empty string")
	})
	t.Run("Contract/NotRunningBeforeStart", func(t *testing.T) {
		assert.False(t, ch.IsRunning())
	})
}

func TestBaseChannel_IsAllowed_EmptyList(t *testing.T) {
	b := &BaseChannel{AllowFrom: []string{}}
	assert.True(t, b.IsAllowed("anyone"))
}

func TestBaseChannel_IsAllowed_InList(t *testing.T) {
	b := &BaseChannel{AllowFrom: []string{"user1", "user2"}}
	assert.True(t, b.IsAllowed("user1"))
	assert.True(t, b.IsAllowed("user2"))
	assert.False(t, b.IsAllowed("user3"))
}

func TestBaseChannel_IsAllowed_PipeSeparated(t *testing.T) {
	b := &BaseChannel{AllowFrom: []string{"user1"}}
	assert.True(t, b.IsAllowed("user1|extra"))
	assert.True(t, b.IsAllowed("alias|user1"))
	assert.False(t, b.IsAllowed("user3|user4"))
}

func TestBaseChannel_HandleMessage_Allowed(t *testing.T) {
	mb := bus.NewMessageBus()
	b := &BaseChannel{ChannelName: "test", Bus: mb}

	assert.True(t, b.HandleMessage("user1", "chat1", "hello", nil, nil))
	require.Equal(t, 1, mb.InboundSize())

	msg, err := mb.ConsumeInbound(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "test", msg.Channel)
	assert.Equal(t, "hello", msg.Content)
	assert.Empty(t, msg.StreamID)
}

func TestBaseChannel_HandleMessage_Denied(t *testing.T) {
	mb := bus.NewMessageBus()
	b := &BaseChannel{ChannelName: "test", Bus: mb, AllowFrom: []string{"allowed_user"}}

	assert.False(t, b.HandleMessage("blocked_user", "chat1", "hello", nil, nil))
	assert.Equal(t, 0, mb.InboundSize())
}

func TestBaseChannel_HandleStreamingMessage(t *testing.T) {
	mb := bus.NewMessageBus()
	b := &BaseChannel{ChannelName: "test", Bus: mb}

	// Plays the agent side: take the callback, stream, complete.
	go func() {
		msg, err := mb.ConsumeInbound(context.Background())
		if err != nil {
			return
		}
		if cb := mb.GetStreamCallback(msg.StreamID); cb != nil {
			cb("chunk-1")
			cb("chunk-2")
		}
		mb.MarkStreamDone(msg.StreamID)
	}()

	chunks := make(chan string, 2)
	done := b.HandleStreamingMessage(context.Background(), bus.InboundMessage{
		SenderID: "u", ChatID: "c", Content: "hi",
	}, func(c string) { chunks <- c })

	assert.True(t, done)
	assert.Equal(t, "chunk-1", <-chunks)
	assert.Equal(t, "chunk-2", <-chunks)
	callbacks, signals := mb.StreamCount()
	assert.Zero(t, callbacks)
	assert.Zero(t, signals)
}

func TestBaseChannel_HandleStreamingMessage_Timeout(t *testing.T) {
	mb := bus.NewMessageBus(bus.WithStreamTimeout(50 * time.Millisecond))
	b := &BaseChannel{ChannelName: "test", Bus: mb}

	start := time.Now()
	done := b.HandleStreamingMessage(context.Background(), bus.InboundMessage{Content: "hi", StreamID: "s-fixed"}, func(string) {})
	assert.False(t, done)
	assert.Less(t, time.Since(start), 2*time.Second)

	msg, err := mb.ConsumeInbound(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "s-fixed", msg.StreamID)
	assert.Equal(t, "test", msg.Channel)
}

func TestBaseChannel_HandleStreamingMessage_Denied(t *testing.T) {
	mb := bus.NewMessageBus()
	b := &BaseChannel{ChannelName: "test", Bus: mb, AllowFrom: []string{"ok"}}

	assert.False(t, b.HandleStreamingMessage(context.Background(), bus.InboundMessage{SenderID: "nope", Content: "hi"}, func(string) {}))
	assert.Equal(t, 0, mb.InboundSize())
	callbacks, _ := mb.StreamCount()
	assert.Zero(t, callbacks)
}
