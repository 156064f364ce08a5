package server

import (
	"time"

	"github.com/couchsync/couchsync/internal/types"
)

// ClientMessage is the inbound event envelope. Exactly one event field is
// set per message; the key is the event name on the wire.
type ClientMessage struct {
	JoinRoom     *JoinRoom        `json:"join-room,omitempty"`
	SendMessage  *SendMessage     `json:"send-message,omitempty"`
	Typing       *TypingSignal    `json:"typing,omitempty"`
	StopTyping   *TypingSignal    `json:"stop-typing,omitempty"`
	SendReaction *SendReaction    `json:"send-reaction,omitempty"`
	HostPlay     *PlaybackCommand `json:"host-play,omitempty"`
	HostPause    *PlaybackCommand `json:"host-pause,omitempty"`
	HostSeek     *PlaybackCommand `json:"host-seek,omitempty"`
	RequestSync  *RequestSync     `json:"request-sync,omitempty"`
	DeleteRoom   *DeleteRoom      `json:"delete-room,omitempty"`

	client *Client
}

type JoinRoom struct {
	RoomId   string `json:"roomId"`
	Username string `json:"username"`
}

type SendMessage struct {
	RoomId   string `json:"roomId"`
	Username string `json:"username"`
	Avatar   string `json:"avatar,omitempty"`
	Content  string `json:"content"`
}

type TypingSignal struct {
	RoomId   string `json:"roomId"`
	Username string `json:"username"`
}

type SendReaction struct {
	RoomId   string `json:"roomId"`
	Username string `json:"username"`
	Reaction string `json:"reaction"`
}

type PlaybackCommand struct {
	RoomId      string  `json:"roomId"`
	CurrentTime float64 `json:"currentTime"`
}

type RequestSync struct {
	RoomId string `json:"roomId"`
}

type DeleteRoom struct {
	RoomId string `json:"roomId"`
}

// ServerMessage is the outbound event envelope.
type ServerMessage struct {
	Timestamp time.Time `json:"timestamp"`

	RoomJoined      *RoomJoined       `json:"room-joined,omitempty"`
	MessageHistory  *MessageHistory   `json:"message-history,omitempty"`
	ReceiveMessage  *types.Message    `json:"receive-message,omitempty"`
	UserJoined      *UserJoined       `json:"user-joined,omitempty"`
	UserLeft        *UserLeft         `json:"user-left,omitempty"`
	ReceiveReaction *ReceiveReaction  `json:"receive-reaction,omitempty"`
	UserTyping      *TypingNotice     `json:"user-typing,omitempty"`
	UserStopTyping  *TypingNotice     `json:"user-stop-typing,omitempty"`
	SyncPlay        *SyncPosition     `json:"sync-play,omitempty"`
	SyncPause       *SyncPosition     `json:"sync-pause,omitempty"`
	SyncSeek        *SyncPosition     `json:"sync-seek,omitempty"`
	SyncState       *types.VideoState `json:"sync-state,omitempty"`
	ErrorMessage    *ErrorMessage     `json:"error-message,omitempty"`
	RoomDeleted     *RoomDeleted      `json:"room-deleted,omitempty"`

	// SkipClient is excluded from a broadcast, typically the originator.
	SkipClient *Client `json:"-"`
}

type RoomJoined struct {
	Room       types.Room       `json:"room"`
	Users      []types.User     `json:"users"`
	VideoState types.VideoState `json:"videoState"`
	IsHost     bool             `json:"isHost"`
}

type MessageHistory struct {
	Messages []types.Message `json:"messages"`
}

type UserJoined struct {
	Username string       `json:"username"`
	Avatar   string       `json:"avatar"`
	Users    []types.User `json:"users"`
}

type UserLeft struct {
	Username string       `json:"username"`
	Users    []types.User `json:"users"`
}

type ReceiveReaction struct {
	Username  string    `json:"username"`
	Reaction  string    `json:"reaction"`
	Timestamp time.Time `json:"timestamp"`
}

type TypingNotice struct {
	Username string `json:"username"`
}

type SyncPosition struct {
	CurrentTime float64 `json:"currentTime"`
}

type ErrorMessage struct {
	Message string `json:"message"`
}

type RoomDeleted struct {
	Message string `json:"message"`
}

func newError(text string) *ServerMessage {
	return &ServerMessage{
		Timestamp:    Now(),
		ErrorMessage: &ErrorMessage{Message: text},
	}
}

func ErrRoomNotFound() *ServerMessage {
	return newError("Room not found or inactive")
}

func ErrJoinFailed() *ServerMessage {
	return newError("Failed to join room")
}

func ErrSendMessageFailed() *ServerMessage {
	return newError("Failed to send message")
}

func ErrNotHost() *ServerMessage {
	return newError("Only the host can close the room")
}

func ErrCloseRoomFailed() *ServerMessage {
	return newError("Failed to close room")
}

func ErrServerBusy() *ServerMessage {
	return newError("Server busy, try again")
}

func ErrInvalidMessage() *ServerMessage {
	return newError("Invalid message format")
}

func Now() time.Time {
	return time.Now().UTC().Round(time.Millisecond)
}
