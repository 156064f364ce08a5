package server

import (
	"log"
	"slices"
	"strings"
	"time"

	"github.com/couchsync/couchsync/internal/database"
	"github.com/couchsync/couchsync/internal/types"
)

const (
	// roomGracePeriod is how long an empty room survives in memory before
	// being deactivated, so a page reload does not tear the room down.
	roomGracePeriod = 30 * time.Second

	// historyLimit is the number of persisted messages replayed to a joiner.
	historyLimit = 50
)

type exitReq struct {
	deleted bool
	done    chan bool
}

// session is the ephemeral binding of one connection to a display identity
// within a room. Only the room's goroutine touches it.
type session struct {
	id       string
	username string
	avatar   string
	isHost   bool
}

// Room is a per-room actor: all membership, playback and chat events for a
// room are processed on its run loop, which serializes every mutation of
// the session set and the video state and preserves broadcast order.
type Room struct {
	roomId        string
	hostUsername  string
	videoUrl      string
	videoType     string
	ws            *WatchServer
	log           *log.Logger
	joinChan      chan *ClientMessage
	leaveChan     chan *ClientMessage
	clientMsgChan chan *ClientMessage
	sessions      map[*Client]*session
	// joinOrder keeps the presence list deterministic.
	joinOrder []*Client
	video     types.VideoState
	// closing is set once the grace period has expired and the room is
	// committed to teardown; joins arriving after that are refused.
	closing     bool
	gracePeriod time.Duration
	// killTimer arms when the session set becomes empty and is stopped by
	// any join. Firing is re-checked against the session set, since a
	// stop can lose the race against an already-fired timer.
	killTimer *time.Timer
	exit      chan exitReq
}

func (r *Room) run() {
	r.log.Printf("starting room %q", r.roomId)
	r.killTimer = time.NewTimer(r.gracePeriod)
	r.killTimer.Stop()

	for {
		select {
		case join := <-r.joinChan:
			r.handleJoin(join)
		case leaveMsg := <-r.leaveChan:
			r.handleLeave(leaveMsg)
		case msg := <-r.clientMsgChan:
			r.handleClientMessage(msg)
		case <-r.killTimer.C:
			r.handleGraceExpiry()
		case e := <-r.exit:
			r.handleExit(e)
			return
		}
	}
}

func (r *Room) handleClientMessage(msg *ClientMessage) {
	sess, ok := r.sessions[msg.client]
	if !ok {
		// lingering connection that already left or was detached
		r.log.Printf("ignoring message from connection not in room %q", r.roomId)
		return
	}

	switch {
	case msg.SendMessage != nil:
		r.handleChat(msg.client, sess, msg.SendMessage)
	case msg.SendReaction != nil:
		r.handleReaction(msg.client, sess, msg.SendReaction)
	case msg.Typing != nil:
		r.handleTyping(msg.client, sess, false)
	case msg.StopTyping != nil:
		r.handleTyping(msg.client, sess, true)
	case msg.HostPlay != nil:
		r.handleHostPlay(msg.client, sess, msg.HostPlay)
	case msg.HostPause != nil:
		r.handleHostPause(msg.client, sess, msg.HostPause)
	case msg.HostSeek != nil:
		r.handleHostSeek(msg.client, sess, msg.HostSeek)
	case msg.RequestSync != nil:
		r.handleSyncRequest(msg.client)
	case msg.DeleteRoom != nil:
		r.handleDeleteRoom(msg.client, sess)
	}
}

func (r *Room) handleJoin(join *ClientMessage) {
	if r.closing {
		// grace period already expired, the room is being torn down
		join.client.queueMessage(ErrRoomNotFound())
		return
	}

	// a returning user wins over pending teardown
	r.killTimer.Stop()

	c := join.client
	username := join.JoinRoom.Username

	// host is whoever presents the persisted host name; several
	// connections may hold it at once (e.g. a host refreshing)
	sess := &session{
		id:       c.id,
		username: username,
		avatar:   avatarColor(username),
		isHost:   username == r.hostUsername,
	}

	if _, ok := r.sessions[c]; !ok {
		r.joinOrder = append(r.joinOrder, c)
	}
	r.sessions[c] = sess
	c.setRoom(r)

	users := r.userList()

	c.queueMessage(&ServerMessage{
		Timestamp: Now(),
		RoomJoined: &RoomJoined{
			Room: types.Room{
				RoomId:       r.roomId,
				HostUsername: r.hostUsername,
				VideoUrl:     r.videoUrl,
				VideoType:    r.videoType,
			},
			Users:      users,
			VideoState: r.video,
			IsHost:     sess.isHost,
		},
	})

	r.broadcast(&ServerMessage{
		UserJoined: &UserJoined{
			Username: sess.username,
			Avatar:   sess.avatar,
			Users:    users,
		},
		SkipClient: c,
	})

	r.sendHistory(c)
}

// sendHistory backfills the joiner's view with the most recent persisted
// messages, oldest first.
func (r *Room) sendHistory(c *Client) {
	dbMsgs, err := r.ws.db.GetRecentMessages(r.roomId, historyLimit)
	if err != nil {
		r.log.Printf("get recent messages for room %q: %v", r.roomId, err)
		return
	}

	msgs := make([]types.Message, len(dbMsgs))
	for i, m := range dbMsgs {
		msgs[i] = types.Message{
			Id:        m.Id,
			RoomId:    m.RoomId,
			Username:  m.Username,
			Avatar:    m.Avatar,
			Content:   m.Content,
			Type:      m.Type,
			Timestamp: m.CreatedAt,
		}
	}

	c.queueMessage(&ServerMessage{
		Timestamp:      Now(),
		MessageHistory: &MessageHistory{Messages: msgs},
	})
}

func (r *Room) handleLeave(leaveMsg *ClientMessage) {
	c := leaveMsg.client
	sess, ok := r.sessions[c]
	if !ok {
		r.log.Printf("connection %q not found in room %q", c.id, r.roomId)
		return
	}

	delete(r.sessions, c)
	if i := slices.Index(r.joinOrder, c); i >= 0 {
		r.joinOrder = slices.Delete(r.joinOrder, i, i+1)
	}

	// the leave may be stale if the client already switched to another
	// room; only detach a client that still points here
	if c.getRoom() == r {
		c.setRoom(nil)
	}

	if len(r.sessions) == 0 {
		r.log.Printf("room %q empty, grace period of %s started", r.roomId, r.gracePeriod)
		r.killTimer.Reset(r.gracePeriod)
		return
	}

	r.broadcast(&ServerMessage{
		UserLeft: &UserLeft{
			Username: sess.username,
			Users:    r.userList(),
		},
	})
}

// handleGraceExpiry commits teardown of an empty room. The session set is
// re-checked first: a join may have stopped the timer after it had already
// fired, in which case the expiry is stale and must be ignored.
func (r *Room) handleGraceExpiry() {
	if len(r.sessions) > 0 {
		r.log.Printf("grace period for room %q superseded by rejoin", r.roomId)
		return
	}

	r.closing = true

	// in-memory eviction proceeds even if the durable flag cannot be
	// written; leaking the room is worse than a stale record
	if err := r.ws.db.DeactivateRoom(r.roomId); err != nil {
		r.log.Printf("deactivate room %q: %v", r.roomId, err)
	}

	r.log.Printf("room %q deactivated after grace period", r.roomId)
	r.requestUnload(false)
}

func (r *Room) requestUnload(deleted bool) {
	select {
	case r.ws.unloadRoomChan <- unloadRoomRequest{roomId: r.roomId, deleted: deleted}:
	default:
		r.log.Printf("unload channel full for room %q", r.roomId)
		if !deleted {
			r.killTimer.Reset(r.gracePeriod)
		}
	}
}

func (r *Room) handleExit(e exitReq) {
	r.log.Printf("room %q is exiting", r.roomId)
	if e.deleted {
		r.broadcast(&ServerMessage{
			RoomDeleted: &RoomDeleted{Message: "The host has closed this room"},
		})
	}

	// detach every connection; anything they send afterwards is dropped
	for c := range r.sessions {
		if c.getRoom() == r {
			c.setRoom(nil)
		}
	}

	// joins still buffered behind the exit would otherwise get no reply
	for {
		select {
		case join := <-r.joinChan:
			join.client.queueMessage(ErrRoomNotFound())
		default:
			if e.done != nil {
				e.done <- true
			}
			return
		}
	}
}

func (r *Room) handleChat(c *Client, sess *session, m *SendMessage) {
	content := strings.TrimSpace(m.Content)
	if content == "" {
		return
	}

	// broadcast only after the message is durable, so every client
	// (including the sender) sees the canonical stored record
	stored, err := r.ws.db.CreateMessage(database.CreateMessageParams{
		RoomId:   r.roomId,
		Username: sess.username,
		Avatar:   sess.avatar,
		Content:  content,
		Type:     types.MessageTypeChat,
	})
	if err != nil {
		r.log.Printf("save message for room %q: %v", r.roomId, err)
		c.queueMessage(ErrSendMessageFailed())
		return
	}

	r.broadcast(&ServerMessage{
		ReceiveMessage: &types.Message{
			Id:        stored.Id,
			RoomId:    stored.RoomId,
			Username:  stored.Username,
			Avatar:    stored.Avatar,
			Content:   stored.Content,
			Type:      stored.Type,
			Timestamp: stored.CreatedAt,
		},
	})
	r.ws.stats.Incr(StatMessagesSent)
}

func (r *Room) handleReaction(c *Client, sess *session, m *SendReaction) {
	stored, err := r.ws.db.CreateMessage(database.CreateMessageParams{
		RoomId:   r.roomId,
		Username: sess.username,
		Content:  m.Reaction,
		Type:     types.MessageTypeReaction,
	})
	if err != nil {
		// reactions are best-effort; a dropped one is cheaper than a
		// retried duplicate
		r.log.Printf("save reaction for room %q: %v", r.roomId, err)
		return
	}

	r.broadcast(&ServerMessage{
		ReceiveReaction: &ReceiveReaction{
			Username:  sess.username,
			Reaction:  m.Reaction,
			Timestamp: stored.CreatedAt,
		},
	})
	r.ws.stats.Incr(StatReactionsSent)
}

func (r *Room) handleTyping(c *Client, sess *session, stopped bool) {
	notice := &TypingNotice{Username: sess.username}

	msg := &ServerMessage{SkipClient: c}
	if stopped {
		msg.UserStopTyping = notice
	} else {
		msg.UserTyping = notice
	}

	r.broadcast(msg)
}

// Playback commands are accepted only from host sessions. Non-host calls
// are dropped without an error: the client-side role check normally
// prevents them, but the server never trusts the client.
func (r *Room) handleHostPlay(c *Client, sess *session, cmd *PlaybackCommand) {
	if !sess.isHost {
		return
	}

	r.video.IsPlaying = true
	r.video.CurrentTime = cmd.CurrentTime
	r.broadcast(&ServerMessage{
		SyncPlay:   &SyncPosition{CurrentTime: cmd.CurrentTime},
		SkipClient: c,
	})
}

func (r *Room) handleHostPause(c *Client, sess *session, cmd *PlaybackCommand) {
	if !sess.isHost {
		return
	}

	r.video.IsPlaying = false
	r.video.CurrentTime = cmd.CurrentTime
	r.broadcast(&ServerMessage{
		SyncPause:  &SyncPosition{CurrentTime: cmd.CurrentTime},
		SkipClient: c,
	})
}

func (r *Room) handleHostSeek(c *Client, sess *session, cmd *PlaybackCommand) {
	if !sess.isHost {
		return
	}

	// seek moves the position only; play/pause is unaffected
	r.video.CurrentTime = cmd.CurrentTime
	r.broadcast(&ServerMessage{
		SyncSeek:   &SyncPosition{CurrentTime: cmd.CurrentTime},
		SkipClient: c,
	})
}

// handleSyncRequest returns the authoritative playback state to the
// requester only, typically a late joiner aligning their player.
func (r *Room) handleSyncRequest(c *Client) {
	state := r.video
	c.queueMessage(&ServerMessage{
		Timestamp: Now(),
		SyncState: &state,
	})
}

func (r *Room) handleDeleteRoom(c *Client, sess *session) {
	if sess.username != r.hostUsername {
		c.queueMessage(ErrNotHost())
		return
	}

	if err := r.ws.db.DeactivateRoom(r.roomId); err != nil {
		r.log.Printf("deactivate room %q: %v", r.roomId, err)
		c.queueMessage(ErrCloseRoomFailed())
		return
	}

	r.log.Printf("room %q closed by host %q", r.roomId, sess.username)
	r.requestUnload(true)
}

func (r *Room) userList() []types.User {
	users := make([]types.User, 0, len(r.joinOrder))
	for _, c := range r.joinOrder {
		sess := r.sessions[c]
		users = append(users, types.User{
			Username: sess.username,
			Avatar:   sess.avatar,
			IsHost:   sess.isHost,
		})
	}

	return users
}

func (r *Room) broadcast(msg *ServerMessage) {
	msg.Timestamp = Now()

	for c := range r.sessions {
		if c == msg.SkipClient {
			continue
		}

		c.queueMessage(msg)
	}
}
