package database

import "time"

type Repository interface {
	Ping() error
	// GetActiveRoom returns the room iff it exists and is still active.
	// A missing or deactivated room yields sql.ErrNoRows.
	GetActiveRoom(roomId string) (Room, error)
	RoomIdExists(roomId string) bool
	CreateRoom(params CreateRoomParams) (Room, error)
	DeactivateRoom(roomId string) error
	// CreateMessage persists a chat message or reaction and returns the
	// stored record with its id and canonical timestamp.
	CreateMessage(params CreateMessageParams) (Message, error)
	// GetRecentMessages returns the most recent limit messages for a room
	// in chronological order.
	GetRecentMessages(roomId string, limit int) ([]Message, error)
	// DeactivateExpiredRooms flips is_active on rooms untouched for longer
	// than ttl, returning the number of rooms deactivated.
	DeactivateExpiredRooms(ttl time.Duration) (int64, error)
}
