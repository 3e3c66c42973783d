package bus

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInboundMessage_SessionKey(t *testing.T) {
	msg := InboundMessage{Channel: "telegram", ChatID: "123"}
	assert.Equal(t, "telegram:123", msg.SessionKey())
}

func TestInboundMessage_SessionKey_ColonInChatID(t *testing.T) {
	msg := InboundMessage{Channel: "websocket", ChatID: "room:7"}
	assert.Equal(t, "websocket:room:7", msg.SessionKey())
}

func TestInboundMessage_StreamIDOmittedWhenEmpty(t *testing.T) {
	data, err := json.Marshal(InboundMessage{Channel: "cli", ChatID: "direct", Timestamp: time.Now()})
	require.NoError(t, err)
	assert.NotContains(t, string(data), "stream_id")

	data, err = json.Marshal(InboundMessage{Channel: "cli", StreamID: "s1"})
	require.NoError(t, err)
	assert.Contains(t, string(data), `"stream_id":"s1"`)
}
