package database

import "time"

const (
	VideoTypeHls    = "hls"
	VideoTypeIframe = "iframe"
	VideoTypeDirect = "direct"
)

type Room struct {
	Id           int
	RoomId       string
	HostUsername string
	VideoUrl     string
	VideoType    string
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type Message struct {
	Id        int
	RoomId    string
	Username  string
	Avatar    string
	Content   string
	Type      string
	CreatedAt time.Time
}

type CreateRoomParams struct {
	RoomId       string
	HostUsername string
	VideoUrl     string
	VideoType    string
}

type CreateMessageParams struct {
	RoomId   string
	Username string
	Avatar   string
	Content  string
	Type     string
}
