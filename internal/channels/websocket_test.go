package channels

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dayuer/nanobus/internal/bus"
	"github.com/dayuer/nanobus/internal/config"
)

func newTestWebSocket(t *testing.T, mb *bus.MessageBus, allow ...string) (*WebSocketChannel, *websocket.Conn, string) {
	t.Helper()
	ch := NewWebSocketChannel(config.WebSocketConfig{Host: "127.0.0.1", Port: 0, AllowFrom: allow}, mb)
	srv := httptest.NewServer(ch.Handler())
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?sender=tester"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	var ready Frame
	require.NoError(t, conn.ReadJSON(&ready))
	require.Equal(t, FrameReady, ready.Type)
	require.NotEmpty(t, ready.ChatID)
	return ch, conn, ready.ChatID
}

func readFrame(t *testing.T, conn *websocket.Conn) Frame {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var f Frame
	require.NoError(t, conn.ReadJSON(&f))
	return f
}

func TestWebSocketChannel_Contract(t *testing.T) {
	RunChannelContractTests(t, NewWebSocketChannel(config.WebSocketConfig{Port: 18790}, bus.NewMessageBus()))
}

func TestWebSocketChannel_Defaults(t *testing.T) {
	ch := NewWebSocketChannel(config.WebSocketConfig{Host: "0.0.0.0", Port: 9000}, bus.NewMessageBus())
	assert.Equal(t, "0.0.0.0:9000", ch.Addr)
	assert.Equal(t, "/ws", ch.Path)
	assert.Equal(t, "websocket", ch.Name())
}

func TestWebSocketChannel_StreamRoundTrip(t *testing.T) {
	mb := bus.NewMessageBus()
	ch, conn, chatID := newTestWebSocket(t, mb)
	assert.Equal(t, 1, ch.ConnectionCount())

	require.NoError(t, conn.WriteJSON(Frame{Type: FrameMessage, Content: "hello"}))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	in, err := mb.ConsumeInbound(ctx)
	require.NoError(t, err)
	assert.Equal(t, "websocket", in.Channel)
	assert.Equal(t, chatID, in.ChatID)
	assert.Equal(t, "tester", in.SenderID)
	assert.Equal(t, "hello", in.Content)
	require.NotEmpty(t, in.StreamID)

	cb := mb.GetStreamCallback(in.StreamID)
	require.NotNil(t, cb)
	cb("Hi ")
	cb("there")
	mb.MarkStreamDone(in.StreamID)

	d1 := readFrame(t, conn)
	d2 := readFrame(t, conn)
	end := readFrame(t, conn)
	assert.Equal(t, Frame{Type: FrameDelta, StreamID: in.StreamID, Content: "Hi "}, d1)
	assert.Equal(t, Frame{Type: FrameDelta, StreamID: in.StreamID, Content: "there"}, d2)
	assert.Equal(t, Frame{Type: FrameDone, StreamID: in.StreamID}, end)
}

func TestWebSocketChannel_StreamTimeout(t *testing.T) {
	mb := bus.NewMessageBus(bus.WithStreamTimeout(50 * time.Millisecond))
	_, conn, _ := newTestWebSocket(t, mb)

	require.NoError(t, conn.WriteJSON(Frame{Type: FrameMessage, Content: "nobody home"}))
	f := readFrame(t, conn)
	assert.Equal(t, FrameTimeout, f.Type)
	assert.NotEmpty(t, f.StreamID)
}

func TestWebSocketChannel_Send(t *testing.T) {
	mb := bus.NewMessageBus()
	ch, conn, chatID := newTestWebSocket(t, mb)

	require.NoError(t, ch.Send(bus.OutboundMessage{Channel: "websocket", ChatID: chatID, Content: "pushed"}))
	f := readFrame(t, conn)
	assert.Equal(t, FrameMessage, f.Type)
	assert.Equal(t, chatID, f.ChatID)
	assert.Equal(t, "pushed", f.Content)

	assert.Error(t, ch.Send(bus.OutboundMessage{ChatID: "unknown", Content: "x"}))
}

func TestWebSocketChannel_RejectsBadFrames(t *testing.T) {
	mb := bus.NewMessageBus()
	_, conn, _ := newTestWebSocket(t, mb)

	require.NoError(t, conn.WriteJSON(Frame{Type: "ping"}))
	f := readFrame(t, conn)
	assert.Equal(t, FrameError, f.Type)
	assert.Equal(t, 0, mb.InboundSize())
}

func TestWebSocketChannel_DeniedSender(t *testing.T) {
	mb := bus.NewMessageBus()
	_, conn, _ := newTestWebSocket(t, mb, "someone-else")

	require.NoError(t, conn.WriteJSON(Frame{Type: FrameMessage, Content: "let me in"}))
	f := readFrame(t, conn)
	assert.Equal(t, FrameError, f.Type)
	assert.Equal(t, "sender not allowed", f.Content)
	assert.Equal(t, 0, mb.InboundSize())
}

func TestWebSocketChannel_DisconnectRemovesChat(t *testing.T) {
	mb := bus.NewMessageBus()
	ch, conn, _ := newTestWebSocket(t, mb)

	conn.Close()
	require.Eventually(t, func() bool { return ch.ConnectionCount() == 0 }, 5*time.Second, 10*time.Millisecond)
}
