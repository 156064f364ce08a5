package types

import (
	"time"
)

// User is one presence entry in a room's member list.
type User struct {
	Username string `json:"username"`
	Avatar   string `json:"avatar"`
	IsHost   bool   `json:"isHost"`
}

// Room is the wire-facing view of a durable room record.
type Room struct {
	RoomId       string `json:"roomId"`
	HostUsername string `json:"hostUsername"`
	VideoUrl     string `json:"videoUrl"`
	VideoType    string `json:"videoType"`
}

// VideoState is the authoritative playback position for a room. It is
// whatever the host's player last reported, not a derived clock.
type VideoState struct {
	IsPlaying   bool    `json:"isPlaying"`
	CurrentTime float64 `json:"currentTime"`
}

const (
	MessageTypeChat     = "message"
	MessageTypeReaction = "reaction"
	MessageTypeSystem   = "system"
)

type Message struct {
	Id        int       `json:"id"`
	RoomId    string    `json:"roomId"`
	Username  string    `json:"username"`
	Avatar    string    `json:"avatar,omitempty"`
	Content   string    `json:"content"`
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
}
