package gateway

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStdioSenderSendReplyWritesNDJSON(t *testing.T) {
	var buf bytes.Buffer
	s := NewStdioSender(&buf, time.Second)
	require.NoError(t, s.SendReply("g1@g.us", "Pong", "m1"))

	var line outboundLine
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &line))
	assert.Equal(t, "g1@g.us", line.ChatID)
	assert.Equal(t, "Pong", line.Text)
	assert.Equal(t, "m1", line.ReplyToMessageID)
}

func TestStdioSenderSendMessageOmitsReplyID(t *testing.T) {
	var buf bytes.Buffer
	s := NewStdioSender(&buf, time.Second)
	require.NoError(t, s.SendMessage("g1@g.us", "hi"))
	assert.NotContains(t, buf.String(), "reply_to_message_id")
}
