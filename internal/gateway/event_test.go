package gateway

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeMessageEvent(t *testing.T) {
	raw := []byte(`{"event":"message","device_id":"bot@s.whatsapp.net","payload":{"id":"m1","chat_id":"g1@g.us","from":"1111@s.whatsapp.net","from_name":"Alice","body":".ping","timestamp":1690000000}}`)
	ev, err := Decode(raw)
	require.NoError(t, err)
	require.NotNil(t, ev.Message)
	assert.Equal(t, ".ping", ev.Message.Body)
	assert.False(t, ev.IsSelfMessage())
}

func TestDecodeSelfMessageDetected(t *testing.T) {
	raw := []byte(`{"event":"message","device_id":"bot@s.whatsapp.net","payload":{"from":"bot@s.whatsapp.net","body":"hi"}}`)
	ev, err := Decode(raw)
	require.NoError(t, err)
	assert.True(t, ev.IsSelfMessage())
}

func TestDecodeParticipantsEvent(t *testing.T) {
	raw := []byte(`{"event":"group.participants","device_id":"bot","payload":{"chat_id":"g1@g.us","type":"promote","jids":["u1"]}}`)
	ev, err := Decode(raw)
	require.NoError(t, err)
	require.NotNil(t, ev.Participants)
	assert.Equal(t, "promote", ev.Participants.Type)
}

func TestDecodeUnhandledEvent(t *testing.T) {
	raw := []byte(`{"event":"presence.update","device_id":"bot","payload":{}}`)
	ev, err := Decode(raw)
	require.NoError(t, err)
	assert.True(t, ev.Unhandled)
}
