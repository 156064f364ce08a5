package database

import (
	"time"
)

func (db *PgRepository) GetActiveRoom(roomId string) (Room, error) {
	row := db.conn.QueryRow(
		"SELECT id, room_id, host_username, video_url, video_type, is_active, created_at, updated_at "+
			"FROM rooms WHERE room_id = $1 AND is_active = true LIMIT 1",
		roomId,
	)

	var r Room
	err := row.Scan(
		&r.Id,
		&r.RoomId,
		&r.HostUsername,
		&r.VideoUrl,
		&r.VideoType,
		&r.IsActive,
		&r.CreatedAt,
		&r.UpdatedAt,
	)

	return r, err
}

func (db *PgRepository) RoomIdExists(roomId string) bool {
	var exists bool
	err := db.conn.QueryRow(
		"SELECT EXISTS(SELECT 1 FROM rooms WHERE room_id = $1)",
		roomId,
	).Scan(&exists)

	return err == nil && exists
}

func (db *PgRepository) CreateRoom(params CreateRoomParams) (Room, error) {
	now := time.Now().UTC()
	row := db.conn.QueryRow(
		"INSERT INTO rooms (room_id, host_username, video_url, video_type, is_active, created_at, updated_at) "+
			"VALUES ($1, $2, $3, $4, true, $5, $5) "+
			"RETURNING id, room_id, host_username, video_url, video_type, is_active, created_at, updated_at",
		params.RoomId,
		params.HostUsername,
		params.VideoUrl,
		params.VideoType,
		now,
	)

	var r Room
	err := row.Scan(
		&r.Id,
		&r.RoomId,
		&r.HostUsername,
		&r.VideoUrl,
		&r.VideoType,
		&r.IsActive,
		&r.CreatedAt,
		&r.UpdatedAt,
	)

	return r, err
}

func (db *PgRepository) DeactivateRoom(roomId string) error {
	_, err := db.conn.Exec(
		"UPDATE rooms SET is_active = false, updated_at = $2 WHERE room_id = $1",
		roomId,
		time.Now().UTC(),
	)

	return err
}

func (db *PgRepository) CreateMessage(params CreateMessageParams) (Message, error) {
	row := db.conn.QueryRow(
		"INSERT INTO messages (room_id, username, avatar, content, type, created_at) "+
			"VALUES ($1, $2, $3, $4, $5, $6) "+
			"RETURNING id, room_id, username, avatar, content, type, created_at",
		params.RoomId,
		params.Username,
		params.Avatar,
		params.Content,
		params.Type,
		time.Now().UTC(),
	)

	var m Message
	err := row.Scan(
		&m.Id,
		&m.RoomId,
		&m.Username,
		&m.Avatar,
		&m.Content,
		&m.Type,
		&m.CreatedAt,
	)

	return m, err
}

func (db *PgRepository) GetRecentMessages(roomId string, limit int) ([]Message, error) {
	rows, err := db.conn.Query(
		"SELECT id, room_id, username, avatar, content, type, created_at FROM messages "+
			"WHERE room_id = $1 ORDER BY created_at DESC, id DESC LIMIT $2",
		roomId,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []Message
	for rows.Next() {
		var m Message
		if err := rows.Scan(
			&m.Id,
			&m.RoomId,
			&m.Username,
			&m.Avatar,
			&m.Content,
			&m.Type,
			&m.CreatedAt,
		); err != nil {
			return nil, err
		}
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// query returns newest first, history replay wants chronological
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}

	return messages, nil
}

func (db *PgRepository) DeactivateExpiredRooms(ttl time.Duration) (int64, error) {
	res, err := db.conn.Exec(
		"UPDATE rooms SET is_active = false WHERE is_active = true AND updated_at < $1",
		time.Now().UTC().Add(-ttl),
	)
	if err != nil {
		return 0, err
	}

	return res.RowsAffected()
}
