package bus

import (
	"context"
	"log"
	"sync"
	"time"
)

// DefaultStreamTimeout bounds WaitStreamDone when no timeout is given.
const DefaultStreamTimeout = 300 * time.Second

// MessageBus routes messages between channels and the agent core.
//
// Channels push to the inbound queue and the agent loop consumes it; the
// agent pushes responses to the outbound queue. Both queues are unbounded and
// independent. The bus also owns the stream registry (see stream.go).
type MessageBus struct {
	inbound  *Queue[InboundMessage]
	outbound *Queue[OutboundMessage]

	streamTimeout time.Duration

	mu          sync.RWMutex
	subscribers map[string][]func(OutboundMessage)

	streamMu  sync.Mutex
	callbacks map[string]*callbackEntry
	signals   map[string]*doneSignal

	closeOnce sync.Once
	closed    chan struct{}
}

// Option configures a MessageBus.
type Option func(*MessageBus)

// WithStreamTimeout sets the default WaitStreamDone timeout.
func WithStreamTimeout(d time.Duration) Option {
	return func(b *MessageBus) {
		if d > 0 {
			b.streamTimeout = d
		}
	}
}

// NewMessageBus creates an empty message bus.
func NewMessageBus(opts ...Option) *MessageBus {
	b := &MessageBus{
		inbound:       NewQueue[InboundMessage](),
		outbound:      NewQueue[OutboundMessage](),
		streamTimeout: DefaultStreamTimeout,
		subscribers:   make(map[string][]func(OutboundMessage)),
		callbacks:     make(map[string]*callbackEntry),
		signals:       make(map[string]*doneSignal),
		closed:        make(chan struct{}),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// StreamTimeout returns the default stream wait timeout.
func (b *MessageBus) StreamTimeout() time.Duration {
	return b.streamTimeout
}

// PublishInbound sends a message from a channel to the agent.
func (b *MessageBus) PublishInbound(msg InboundMessage) {
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now()
	}
	if !b.inbound.Push(msg) {
		log.Printf("[Bus] Dropped inbound message for %s: bus closed", msg.SessionKey())
	}
}

// ConsumeInbound returns the next inbound message, blocking until one is
// available, ctx is done, or the bus is closed.
func (b *MessageBus) ConsumeInbound(ctx context.Context) (InboundMessage, error) {
	return b.inbound.Pop(ctx)
}

// PublishOutbound sends a response from the agent to channels.
func (b *MessageBus) PublishOutbound(msg OutboundMessage) {
	if !b.outbound.Push(msg) {
		log.Printf("[Bus] Dropped outbound message for %s:%s: bus closed", msg.Channel, msg.ChatID)
	}
}

// ConsumeOutbound returns the next outbound message, blocking until one is
// available, ctx is done, or the bus is closed.
func (b *MessageBus) ConsumeOutbound(ctx context.Context) (OutboundMessage, error) {
	return b.outbound.Pop(ctx)
}

// Subscribe registers a callback for outbound messages on a specific channel.
func (b *MessageBus) Subscribe(channel string, callback func(OutboundMessage)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers[channel] = append(b.subscribers[channel], callback)
}

// DispatchOutbound consumes outbound messages and hands each to the
// subscribers of its channel. Blocks until ctx is cancelled or the bus closes.
func (b *MessageBus) DispatchOutbound(ctx context.Context) {
	for {
		msg, err := b.ConsumeOutbound(ctx)
		if err != nil {
			return
		}
		b.mu.RLock()
		subs := b.subscribers[msg.Channel]
		b.mu.RUnlock()
		if len(subs) == 0 {
			log.Printf("[Bus] No subscriber for outbound channel %q", msg.Channel)
		}
		for _, cb := range subs {
			cb(msg)
		}
	}
}

// InboundSize returns the number of pending inbound messages.
func (b *MessageBus) InboundSize() int {
	return b.inbound.Len()
}

// OutboundSize returns the number of pending outbound messages.
func (b *MessageBus) OutboundSize() int {
	return b.outbound.Len()
}

// Close discards both queues and wakes blocked consumers with ErrClosed.
// Blocked stream waiters are released as not done.
func (b *MessageBus) Close() {
	in := b.inbound.Close()
	out := b.outbound.Close()
	b.closeOnce.Do(func() { close(b.closed) })

	b.streamMu.Lock()
	b.callbacks = make(map[string]*callbackEntry)
	b.signals = make(map[string]*doneSignal)
	b.streamMu.Unlock()

	if in+out > 0 {
		log.Printf("[Bus] Closed, discarded %d inbound and %d outbound messages", in, out)
	}
}
