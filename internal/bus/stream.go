package bus

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// NewStreamID returns a fresh, lexically time-ordered stream ID.
func NewStreamID() string {
	return ulid.Make().String()
}

// StreamCallback receives incremental chunks of a streamed response.
type StreamCallback func(chunk string)

type callbackEntry struct {
	fn           StreamCallback
	registeredAt time.Time
}

// doneSignal is a one-shot settable flag.
type doneSignal struct {
	ch           chan struct{}
	once         sync.Once
	registeredAt time.Time
	entry        *callbackEntry // the registration this signal belongs to
	waiters      int            // guarded by MessageBus.streamMu
}

func newDoneSignal() *doneSignal {
	return &doneSignal{ch: make(chan struct{}), registeredAt: time.Now()}
}

func (s *doneSignal) set() {
	s.once.Do(func() { close(s.ch) })
}

// RegisterStreamCallback associates cb with streamID and allocates a fresh
// completion signal for it. Stream IDs must be unique per stream; a second
// registration replaces the first.
func (b *MessageBus) RegisterStreamCallback(streamID string, cb StreamCallback) {
	b.streamMu.Lock()
	defer b.streamMu.Unlock()

	if _, dup := b.signals[streamID]; dup {
		log.Printf("[Bus] Stream %s registered twice, replacing previous entry", streamID)
	}
	entry := &callbackEntry{fn: cb, registeredAt: time.Now()}
	b.callbacks[streamID] = entry
	sig := newDoneSignal()
	sig.registeredAt = entry.registeredAt
	sig.entry = entry
	b.signals[streamID] = sig
}

// GetStreamCallback returns and removes the callback for streamID, or nil.
// Each registration can be retrieved at most once.
func (b *MessageBus) GetStreamCallback(streamID string) StreamCallback {
	b.streamMu.Lock()
	defer b.streamMu.Unlock()

	e, ok := b.callbacks[streamID]
	if !ok {
		return nil
	}
	delete(b.callbacks, streamID)
	return e.fn
}

// MarkStreamDone sets the completion signal for streamID. Unknown IDs and
// repeated calls are no-ops.
func (b *MessageBus) MarkStreamDone(streamID string) {
	b.streamMu.Lock()
	sig := b.signals[streamID]
	b.streamMu.Unlock()

	if sig != nil {
		sig.set()
	}
}

// WaitStreamDone blocks until streamID is marked done, timeout elapses, ctx
// is done or the bus is closed. It reports whether completion was observed.
// An unknown ID has nothing to wait for and reports true immediately. The completion
// signal is removed on return whatever the outcome; when completion was not
// observed, a callback still waiting for pickup is removed too. A
// non-positive timeout selects the bus default.
func (b *MessageBus) WaitStreamDone(ctx context.Context, streamID string, timeout time.Duration) bool {
	if timeout <= 0 {
		timeout = b.streamTimeout
	}

	b.streamMu.Lock()
	sig := b.signals[streamID]
	if sig != nil {
		sig.waiters++
	}
	b.streamMu.Unlock()
	if sig == nil {
		return true
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	done := false
	select {
	case <-sig.ch:
		done = true
	case <-timer.C:
		log.Printf("[Bus] Stream %s not done after %s", streamID, timeout)
	case <-ctx.Done():
	case <-b.closed:
		select {
		case <-sig.ch:
			done = true
		default:
		}
	}

	b.streamMu.Lock()
	sig.waiters--
	if b.signals[streamID] == sig {
		delete(b.signals, streamID)
	}
	if !done && sig.entry != nil && b.callbacks[streamID] == sig.entry {
		delete(b.callbacks, streamID)
	}
	b.streamMu.Unlock()
	return done
}

// StreamCount returns the number of registered callbacks and pending
// completion signals.
func (b *MessageBus) StreamCount() (callbacks, signals int) {
	b.streamMu.Lock()
	defer b.streamMu.Unlock()
	return len(b.callbacks), len(b.signals)
}

// SweepStreams removes callbacks and completion signals registered more
// than maxAge ago. A stream with a blocked waiter is left alone; the waiter
// bounds its own lifetime. It returns the number of stream IDs touched.
func (b *MessageBus) SweepStreams(maxAge time.Duration) int {
	cutoff := time.Now().Add(-maxAge)
	swept := make(map[string]struct{})

	b.streamMu.Lock()
	for id, e := range b.callbacks {
		if sig := b.signals[id]; sig != nil && sig.entry == e && sig.waiters > 0 {
			continue
		}
		if e.registeredAt.Before(cutoff) {
			delete(b.callbacks, id)
			swept[id] = struct{}{}
		}
	}
	for id, sig := range b.signals {
		if sig.waiters == 0 && sig.registeredAt.Before(cutoff) {
			delete(b.signals, id)
			swept[id] = struct{}{}
		}
	}
	b.streamMu.Unlock()

	if len(swept) > 0 {
		log.Printf("[Bus] Swept %d stale stream(s)", len(swept))
	}
	return len(swept)
}

// RunJanitor calls SweepStreams every interval until ctx is cancelled.
func (b *MessageBus) RunJanitor(ctx context.Context, interval, maxAge time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			b.SweepStreams(maxAge)
		}
	}
}
