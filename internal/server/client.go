package server

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingInterval   = (pongWait * 9) / 10
	maxMessageSize = 4096
)

// Client is one live websocket connection. A client belongs to at most one
// room at a time; its display identity lives in the room's session entry,
// not here.
type Client struct {
	id          string
	conn        *websocket.Conn
	watchServer *WatchServer
	log         *log.Logger
	send        chan *ServerMessage
	room        *Room
	roomLock    sync.RWMutex
	stop        chan struct{}
}

func NewClient(conn *websocket.Conn, ws *WatchServer, l *log.Logger) *Client {
	return &Client{
		id:          uuid.NewString(),
		conn:        conn,
		watchServer: ws,
		log:         l,
		send:        make(chan *ServerMessage, 256),
		stop:        make(chan struct{}),
	}
}

func (c *Client) Write() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
		c.log.Printf("write exiting for connection %q", c.id)
	}()

	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				return
			}

			bytes, err := serializeMessage(msg)
			if err != nil {
				c.log.Println("failed to serialize message:", err)
				continue
			}

			if !c.sendMessage(websocket.TextMessage, bytes) {
				return
			}
		case <-c.stop:
			return
		case <-ticker.C:
			if !c.sendMessage(websocket.PingMessage, nil) {
				return
			}
		}
	}
}

func (c *Client) Read() {
	defer func() {
		c.conn.Close()
		c.cleanup()
		c.log.Printf("read exiting for connection %q", c.id)
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(appData string) error { c.conn.SetReadDeadline(time.Now().Add(pongWait)); return nil })
	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure,
				websocket.CloseNormalClosure) {
				c.log.Printf("ws: read: %v", err)
			}
			break
		}

		var msg ClientMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			c.log.Println("error parsing message:", err)
			c.queueMessage(ErrInvalidMessage())
			continue
		}

		msg.client = c

		if msg.JoinRoom != nil {
			c.joinRoom(&msg)
			continue
		}

		c.routeToRoom(&msg)
	}
}

func (c *Client) joinRoom(msg *ClientMessage) {
	// switching rooms: the old room must see a leave, or its presence
	// list keeps a user who is connected elsewhere
	if r := c.getRoom(); r != nil && r.roomId != msg.JoinRoom.RoomId {
		c.leaveRoom(r)
	}

	select {
	case c.watchServer.joinChan <- msg:
	default:
		c.log.Println("joinChan full")
		c.queueMessage(ErrServerBusy())
	}
}

func (c *Client) leaveRoom(r *Room) {
	select {
	case r.leaveChan <- &ClientMessage{client: c}:
	default:
		c.log.Printf("leaveChan full for room %q", r.roomId)
	}
}

// routeToRoom forwards a room-scoped event to the client's current room.
// Events from a client with no room (e.g. lingering after the room was
// deleted) are dropped.
func (c *Client) routeToRoom(msg *ClientMessage) {
	r := c.getRoom()
	if r == nil {
		c.log.Printf("dropping message from connection %q: not in a room", c.id)
		return
	}

	select {
	case r.clientMsgChan <- msg:
	default:
		c.log.Printf("clientMsgChan full for room %q", r.roomId)
		c.queueMessage(ErrServerBusy())
	}
}

func (c *Client) queueMessage(msg *ServerMessage) bool {
	select {
	case c.send <- msg:
	default:
		c.log.Println("failed to send message to client, channel is full")
		return false
	}

	return true
}

func serializeMessage(msg *ServerMessage) ([]byte, error) {
	return json.Marshal(msg)
}

func (c *Client) sendMessage(msgType int, msg []byte) bool {
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))

	if err := c.conn.WriteMessage(msgType, msg); err != nil {
		if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure,
			websocket.CloseNormalClosure) {
			c.log.Printf("write message: %s", err)
		}
		return false
	}

	return true
}

func (c *Client) stopClient() {
	close(c.stop)
}

func (c *Client) cleanup() {
	c.watchServer.DeregisterClient(c)

	if r := c.getRoom(); r != nil {
		c.leaveRoom(r)
	}

	c.stopClient()
}

func (c *Client) setRoom(r *Room) {
	c.roomLock.Lock()
	defer c.roomLock.Unlock()
	c.room = r
}

func (c *Client) getRoom() *Room {
	c.roomLock.RLock()
	defer c.roomLock.RUnlock()
	return c.room
}
