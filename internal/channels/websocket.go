package channels

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/oklog/ulid/v2"

	"github.com/dayuer/nanobus/internal/bus"
	"github.com/dayuer/nanobus/internal/config"
)

// Frame types exchanged over the WebSocket.
//
//	client → server:  {"type": "message", "content": "...", "senderId": "...", "media": [...]}
//	server → client:  {"type": "ready",   "chatId": "..."}
//	server → client:  {"type": "delta",   "streamId": "...", "content": "..."}
//	server → client:  {"type": "done",    "streamId": "..."}
//	server → client:  {"type": "timeout", "streamId": "..."}
//	server → client:  {"type": "message", "chatId": "...", "content": "..."}
//	server → client:  {"type": "error",   "content": "..."}
const (
	FrameReady   = "ready"
	FrameMessage = "message"
	FrameDelta   = "delta"
	FrameDone    = "done"
	FrameTimeout = "timeout"
	FrameError   = "error"
)

// Frame is the JSON envelope of every WebSocket message.
type Frame struct {
	Type     string   `json:"type"`
	ChatID   string   `json:"chatId,omitempty"`
	StreamID string   `json:"streamId,omitempty"`
	SenderID string   `json:"senderId,omitempty"`
	Content  string   `json:"content,omitempty"`
	Media    []string `json:"media,omitempty"`
}

var wsUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// wsConn wraps a websocket.Conn with a write mutex.
// gorilla/websocket does NOT support concurrent writes.
type wsConn struct {
	*websocket.Conn
	mu sync.Mutex
}

func (c *wsConn) WriteFrame(f Frame) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.Conn.WriteJSON(f)
}

func (c *wsConn) WriteCloseSafe(code int, text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.Conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(code, text))
}

// WebSocketChannel serves chat clients over WebSocket. Each connection is one
// chat; every message frame is handled as a streamed request whose chunks are
// pushed back as delta frames.
type WebSocketChannel struct {
	BaseChannel
	Addr string
	Path string

	mu    sync.Mutex
	conns map[string]*wsConn // chatID → connection
	srv   *http.Server

	running atomic.Bool
}

// NewWebSocketChannel creates a WebSocketChannel from its config section.
func NewWebSocketChannel(cfg config.WebSocketConfig, msgBus *bus.MessageBus) *WebSocketChannel {
	path := cfg.Path
	if path == "" {
		path = "/ws"
	}
	return &WebSocketChannel{
		BaseChannel: BaseChannel{
			ChannelName: "websocket",
			Bus:         msgBus,
			AllowFrom:   cfg.AllowFrom,
		},
		Addr:  net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		Path:  path,
		conns: make(map[string]*wsConn),
	}
}

func (w *WebSocketChannel) Name() string    { return "websocket" }
func (w *WebSocketChannel) IsRunning() bool { return w.running.Load() }

// Handler returns the HTTP handler serving the WebSocket endpoint.
func (w *WebSocketChannel) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(w.Path, w.handleWS)
	return mux
}

// Start listens on Addr until ctx is cancelled.
func (w *WebSocketChannel) Start(ctx context.Context) error {
	w.mu.Lock()
	w.srv = &http.Server{Addr: w.Addr, Handler: w.Handler()}
	srv := w.srv
	w.mu.Unlock()

	w.running.Store(true)
	defer w.running.Store(false)
	log.Printf("[WebSocket] Listening on ws://%s%s", w.Addr, w.Path)

	go func() {
		<-ctx.Done()
		w.Stop()
	}()

	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop closes all connections and shuts the server down.
func (w *WebSocketChannel) Stop() error {
	w.mu.Lock()
	for id, c := range w.conns {
		c.WriteCloseSafe(websocket.CloseGoingAway, "server shutdown")
		c.Close()
		delete(w.conns, id)
	}
	srv := w.srv
	w.mu.Unlock()

	if srv == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(ctx)
}

// Send delivers an outbound message to the connection owning msg.ChatID.
func (w *WebSocketChannel) Send(msg bus.OutboundMessage) error {
	w.mu.Lock()
	c := w.conns[msg.ChatID]
	w.mu.Unlock()
	if c == nil {
		return fmt.Errorf("websocket: chat %s not connected", msg.ChatID)
	}
	return c.WriteFrame(Frame{Type: FrameMessage, ChatID: msg.ChatID, StreamID: msg.StreamID, Content: msg.Content})
}

// ConnectionCount returns the number of open connections.
func (w *WebSocketChannel) ConnectionCount() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.conns)
}

func (w *WebSocketChannel) handleWS(rw http.ResponseWriter, r *http.Request) {
	raw, err := wsUpgrader.Upgrade(rw, r, nil)
	if err != nil {
		log.Printf("[WebSocket] Upgrade failed: %v", err)
		return
	}

	conn := &wsConn{Conn: raw}
	chatID := ulid.Make().String()
	defaultSender := r.URL.Query().Get("sender")
	if defaultSender == "" {
		defaultSender = r.RemoteAddr
	}

	w.mu.Lock()
	w.conns[chatID] = conn
	w.mu.Unlock()
	log.Printf("[WebSocket] Connected: %s (chat %s)", r.RemoteAddr, chatID)

	// Cancelled on disconnect so pending stream waits stop early.
	ctx, cancel := context.WithCancel(context.Background())
	var inflight sync.WaitGroup
	defer func() {
		cancel()
		inflight.Wait()
		w.mu.Lock()
		delete(w.conns, chatID)
		w.mu.Unlock()
		raw.Close()
		log.Printf("[WebSocket] Disconnected: %s (chat %s)", r.RemoteAddr, chatID)
	}()

	if err := conn.WriteFrame(Frame{Type: FrameReady, ChatID: chatID}); err != nil {
		return
	}

	for {
		var f Frame
		if err := raw.ReadJSON(&f); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("[WebSocket] Read error: %v", err)
			}
			return
		}
		if f.Type != FrameMessage || f.Content == "" {
			conn.WriteFrame(Frame{Type: FrameError, Content: "expected a non-empty message frame"})
			continue
		}

		sender := f.SenderID
		if sender == "" {
			sender = defaultSender
		}
		if !w.IsAllowed(sender) {
			conn.WriteFrame(Frame{Type: FrameError, Content: "sender not allowed"})
			continue
		}

		// Streams run concurrently so follow-up frames can steer a running task.
		inflight.Add(1)
		go func(f Frame, sender string) {
			defer inflight.Done()
			w.stream(ctx, conn, chatID, sender, f)
		}(f, sender)
	}
}

func (w *WebSocketChannel) stream(ctx context.Context, conn *wsConn, chatID, sender string, f Frame) {
	streamID := bus.NewStreamID()
	onChunk := func(chunk string) {
		if err := conn.WriteFrame(Frame{Type: FrameDelta, StreamID: streamID, Content: chunk}); err != nil {
			log.Printf("[WebSocket] Delta write failed for stream %s: %v", streamID, err)
		}
	}

	done := w.HandleStreamingMessage(ctx, bus.InboundMessage{
		SenderID: sender,
		ChatID:   chatID,
		Content:  f.Content,
		Media:    f.Media,
		StreamID: streamID,
	}, onChunk)
	if ctx.Err() != nil {
		return
	}

	final := FrameDone
	if !done {
		final = FrameTimeout
	}
	conn.WriteFrame(Frame{Type: final, StreamID: streamID})
}
