// Package channels defines the Channel interface for chat platform integrations.
package channels

import (
	"context"
	"log"
	"strings"

	"github.com/dayuer/nanobus/internal/bus"
)

// Channel is the interface that all chat platform integrations must implement.
type Channel interface {
	// Name returns the channel identifier (e.g., "websocket").
	Name() string

	// Start begins listening. Blocks until ctx is cancelled.
	Start(ctx context.Context) error

	// Stop gracefully shuts down the channel.
	Stop() error

	// Send delivers an outbound message through this channel.
	Send(msg bus.OutboundMessage) error

	// IsRunning returns whether the channel is active.
	IsRunning() bool
}

// BaseChannel provides shared logic for all channel implementations.
type BaseChannel struct {
	ChannelName string
	Bus         *bus.MessageBus
	AllowFrom   []string
}

// IsAllowed checks if a sender is permitted to interact with the bot.
// Sender IDs may be pipe-separated aliases; any allowed alias admits the sender.
func (b *BaseChannel) IsAllowed(senderID string) bool {
	if len(b.AllowFrom) == 0 {
		return true
	}
	for _, part := range strings.Split(senderID, "|") {
		if part == "" {
			continue
		}
		for _, allowed := range b.AllowFrom {
			if allowed == part {
				return true
			}
		}
	}
	return false
}

// HandleMessage checks permissions and publishes to the bus.
// It reports whether the message was published.
func (b *BaseChannel) HandleMessage(senderID, chatID, content string, media []string, metadata map[string]any) bool {
	if !b.IsAllowed(senderID) {
		log.Printf("[%s] Dropped message from unlisted sender %s", b.ChannelName, senderID)
		return false
	}
	b.Bus.PublishInbound(bus.InboundMessage{
		Channel:  b.ChannelName,
		SenderID: senderID,
		ChatID:   chatID,
		Content:  content,
		Media:    media,
		Metadata: metadata,
	})
	return true
}

// HandleStreamingMessage publishes msg as a streamed request: onChunk is
// registered under msg.StreamID (generated when empty) before publishing, and
// the call blocks until the agent marks the stream done, the bus timeout
// elapses, or ctx is done. It reports whether completion was observed.
// Channel is filled in from the base; unlisted senders are dropped.
func (b *BaseChannel) HandleStreamingMessage(ctx context.Context, msg bus.InboundMessage, onChunk bus.StreamCallback) bool {
	if !b.IsAllowed(msg.SenderID) {
		log.Printf("[%s] Dropped message from unlisted sender %s", b.ChannelName, msg.SenderID)
		return false
	}
	msg.Channel = b.ChannelName
	if msg.StreamID == "" {
		msg.StreamID = bus.NewStreamID()
	}

	b.Bus.RegisterStreamCallback(msg.StreamID, onChunk)
	b.Bus.PublishInbound(msg)
	return b.Bus.WaitStreamDone(ctx, msg.StreamID, 0)
}
