package server

import (
	"testing"
	"time"

	"github.com/couchsync/couchsync/internal/database"
	"github.com/couchsync/couchsync/internal/stats"
	"github.com/couchsync/couchsync/internal/testutil"
	"github.com/stretchr/testify/assert"
)

func Test_queueMessage(t *testing.T) {
	t.Run("successful queue", func(t *testing.T) {
		c := &Client{
			send: make(chan *ServerMessage, 1),
			log:  testutil.TestLogger(t),
		}

		res := c.queueMessage(&ServerMessage{})
		assert.True(t, res, "expected queueMessage to return true when channel is not full")

		select {
		case msg := <-c.send:
			assert.NotNil(t, msg, "expected a message to be sent to the client")
		default:
			t.Error("expected a message to be sent to the client, but none was sent")
		}
	})
	t.Run("channel full", func(t *testing.T) {
		c := &Client{
			send: make(chan *ServerMessage, 1),
			log:  testutil.TestLogger(t),
		}

		c.send <- &ServerMessage{} // Pre-fill the send channel to simulate a full channel
		res := c.queueMessage(&ServerMessage{})
		assert.False(t, res, "expected queueMessage to return false when channel is full")
	})
}

func Test_serializeMessage(t *testing.T) {
	msg := &ServerMessage{
		Timestamp:  Now(),
		UserTyping: &TypingNotice{Username: "ana"},
	}

	expected := `{"timestamp":"` + msg.Timestamp.Format(time.RFC3339Nano) +
		`","user-typing":{"username":"ana"}}`

	bytes, err := serializeMessage(msg)
	assert.NoError(t, err, "expected message to serialize")
	assert.Equal(t, expected, string(bytes), "expected serialized message to match")
}

func Test_setRoom_getRoom(t *testing.T) {
	c := newTestClient(t)
	assert.Nil(t, c.getRoom(), "expected a fresh client to have no room")

	r := &Room{roomId: "abc123"}
	c.setRoom(r)
	assert.Equal(t, r, c.getRoom(), "expected the room to be attached")

	c.setRoom(nil)
	assert.Nil(t, c.getRoom(), "expected the room to be detached")
}

func Test_routeToRoom(t *testing.T) {
	t.Run("forwards to the client's room", func(t *testing.T) {
		c := newTestClient(t)
		r := &Room{
			roomId:        "abc123",
			clientMsgChan: make(chan *ClientMessage, 1),
		}
		c.setRoom(r)

		msg := &ClientMessage{RequestSync: &RequestSync{RoomId: "abc123"}, client: c}
		c.routeToRoom(msg)

		select {
		case got := <-r.clientMsgChan:
			assert.Equal(t, msg, got, "expected the message to be forwarded")
		default:
			t.Error("expected the message to reach the room")
		}
	})

	t.Run("drops messages from a client with no room", func(t *testing.T) {
		c := newTestClient(t)

		c.routeToRoom(&ClientMessage{RequestSync: &RequestSync{RoomId: "abc123"}, client: c})

		select {
		case msg := <-c.send:
			t.Errorf("expected no reply for a dropped message, got %+v", msg)
		default:
		}
	})

	t.Run("busy room surfaces an error", func(t *testing.T) {
		c := newTestClient(t)
		r := &Room{
			roomId:        "abc123",
			clientMsgChan: make(chan *ClientMessage), // unbuffered, nothing draining
		}
		c.setRoom(r)

		c.routeToRoom(&ClientMessage{RequestSync: &RequestSync{RoomId: "abc123"}, client: c})

		select {
		case msg := <-c.send:
			assert.NotNil(t, msg.ErrorMessage, "expected a server-busy error")
		default:
			t.Error("expected the client to be told the server is busy")
		}
	})
}

func Test_joinRoom(t *testing.T) {
	t.Run("switching rooms delivers a leave to the old room", func(t *testing.T) {
		db := &database.MockRepository{}
		emptyHistory(db)
		ws := newTestWatchServer(t, db, &stats.MockStatsUpdater{})
		oldRoom := newTestRoom(t, ws)

		c := newTestClient(t)
		c.watchServer = ws
		join(t, oldRoom, c, "ana")

		msg := &ClientMessage{
			JoinRoom: &JoinRoom{RoomId: "other1", Username: "ana"},
			client:   c,
		}
		c.joinRoom(msg)

		var leave *ClientMessage
		select {
		case leave = <-oldRoom.leaveChan:
			assert.Equal(t, c, leave.client, "expected a leave for the switching client")
		default:
			t.Fatal("expected the old room to be told the client left")
		}

		oldRoom.handleLeave(leave)
		assert.Empty(t, oldRoom.sessions, "expected no stale session in the old room")
		assert.True(t, oldRoom.killTimer.Stop(), "expected the emptied room's grace timer to be armed")

		select {
		case got := <-ws.joinChan:
			assert.Equal(t, msg, got, "expected the join to be forwarded to the server loop")
		default:
			t.Error("expected the join to reach the server loop")
		}
	})

	t.Run("rejoining the same room does not emit a leave", func(t *testing.T) {
		db := &database.MockRepository{}
		emptyHistory(db)
		ws := newTestWatchServer(t, db, &stats.MockStatsUpdater{})
		r := newTestRoom(t, ws)

		c := newTestClient(t)
		c.watchServer = ws
		join(t, r, c, "ana")

		c.joinRoom(&ClientMessage{
			JoinRoom: &JoinRoom{RoomId: r.roomId, Username: "ana"},
			client:   c,
		})

		select {
		case leave := <-r.leaveChan:
			t.Errorf("expected no leave for a same-room rejoin, got %+v", leave)
		default:
		}
	})
}

func Test_cleanup(t *testing.T) {
	t.Run("deregisters and leaves the room", func(t *testing.T) {
		ws := newTestWatchServer(t, &database.MockRepository{}, &stats.MockStatsUpdater{})

		c := newTestClient(t)
		c.watchServer = ws
		c.stop = make(chan struct{})
		ws.RegisterClient(c)

		r := &Room{
			roomId:    "abc123",
			leaveChan: make(chan *ClientMessage, 1),
		}
		c.setRoom(r)

		c.cleanup()

		assert.NotContains(t, ws.clients, c, "expected the client to be deregistered")

		select {
		case leave := <-r.leaveChan:
			assert.Equal(t, c, leave.client, "expected a leave message for the client")
		default:
			t.Error("expected the room to be told the client left")
		}

		select {
		case <-c.stop:
		default:
			t.Error("expected the client's stop channel to be closed")
		}
	})

	t.Run("does not block when the room cannot take the leave", func(t *testing.T) {
		ws := newTestWatchServer(t, &database.MockRepository{}, &stats.MockStatsUpdater{})

		c := newTestClient(t)
		c.watchServer = ws
		c.stop = make(chan struct{})
		ws.RegisterClient(c)

		// unbuffered channel with nothing draining it, as after the room
		// goroutine has already exited
		r := &Room{
			roomId:    "abc123",
			leaveChan: make(chan *ClientMessage),
		}
		c.setRoom(r)

		finished := make(chan struct{})
		go func() {
			c.cleanup()
			close(finished)
		}()

		select {
		case <-finished:
		case <-time.After(time.Second):
			t.Fatal("cleanup blocked on the room's leave channel")
		}
	})
}
