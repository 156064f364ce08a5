package server

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorConstructors(t *testing.T) {
	tcases := []struct {
		name string
		msg  *ServerMessage
		text string
	}{
		{name: "room not found", msg: ErrRoomNotFound(), text: "Room not found or inactive"},
		{name: "join failed", msg: ErrJoinFailed(), text: "Failed to join room"},
		{name: "send message failed", msg: ErrSendMessageFailed(), text: "Failed to send message"},
		{name: "not host", msg: ErrNotHost(), text: "Only the host can close the room"},
		{name: "close room failed", msg: ErrCloseRoomFailed(), text: "Failed to close room"},
		{name: "server busy", msg: ErrServerBusy(), text: "Server busy, try again"},
		{name: "invalid message", msg: ErrInvalidMessage(), text: "Invalid message format"},
	}

	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			assert.NotNil(t, tc.msg.ErrorMessage, "expected error-message payload to be set")
			assert.Equal(t, tc.text, tc.msg.ErrorMessage.Message, "expected error text to match")
			assert.False(t, tc.msg.Timestamp.IsZero(), "expected timestamp to be set")
		})
	}
}

func TestClientMessageDecoding(t *testing.T) {
	t.Run("join-room event", func(t *testing.T) {
		raw := `{"join-room":{"roomId":"abc123","username":"alice"}}`

		var msg ClientMessage
		err := json.Unmarshal([]byte(raw), &msg)
		assert.NoError(t, err, "expected join-room envelope to decode")
		assert.NotNil(t, msg.JoinRoom, "expected JoinRoom payload to be set")
		assert.Equal(t, "abc123", msg.JoinRoom.RoomId)
		assert.Equal(t, "alice", msg.JoinRoom.Username)
		assert.Nil(t, msg.SendMessage, "expected other event fields to stay unset")
	})

	t.Run("host-seek event", func(t *testing.T) {
		raw := `{"host-seek":{"roomId":"abc123","currentTime":42.5}}`

		var msg ClientMessage
		err := json.Unmarshal([]byte(raw), &msg)
		assert.NoError(t, err, "expected host-seek envelope to decode")
		assert.NotNil(t, msg.HostSeek, "expected HostSeek payload to be set")
		assert.Equal(t, 42.5, msg.HostSeek.CurrentTime)
	})
}

func TestServerMessageEncoding(t *testing.T) {
	msg := &ServerMessage{
		Timestamp: Now(),
		SyncPlay:  &SyncPosition{CurrentTime: 12.5},
	}

	bytes, err := serializeMessage(msg)
	assert.NoError(t, err, "expected sync-play message to serialize")
	assert.Contains(t, string(bytes), `"sync-play":{"currentTime":12.5}`,
		"expected event to be keyed by its wire name")
	assert.NotContains(t, string(bytes), "user-joined", "expected unset events to be omitted")
}
