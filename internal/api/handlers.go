package api

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"slices"

	"github.com/couchsync/couchsync/internal/database"
	"github.com/couchsync/couchsync/internal/server"
	"github.com/gorilla/websocket"
)

type CreateRoomRequest struct {
	VideoUrl string `json:"videoUrl"`
	Username string `json:"username"`
}

type CreateRoomResponse struct {
	RoomId    string `json:"roomId"`
	VideoUrl  string `json:"videoUrl"`
	VideoType string `json:"videoType"`
	ShareLink string `json:"shareLink"`
}

type RoomResponse struct {
	RoomId       string `json:"roomId"`
	HostUsername string `json:"hostUsername"`
	VideoUrl     string `json:"videoUrl"`
	VideoType    string `json:"videoType"`
	IsActive     bool   `json:"isActive"`
}

func (s *WatchPartyApp) writeJson(w http.ResponseWriter, statusCode int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if v == nil {
		return
	}

	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Printf("json encode: %v", err)
	}
}

func (s *WatchPartyApp) createRoom(w http.ResponseWriter, r *http.Request) {
	var req CreateRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errResp := NewBadRequestError("")
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if req.VideoUrl == "" || req.Username == "" {
		errResp := NewBadRequestError("Video URL and username are required")
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	videoType, embedURL, err := classifyVideoURL(req.VideoUrl, s.clientDomain)
	if err != nil {
		errResp := NewBadRequestError(err.Error())
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	var roomId string
	for {
		roomId, err = s.generateRoomId()
		if err != nil {
			s.log.Print("generateRoomId:", err)
			errResp := NewInternalServerError(err)
			s.writeJson(w, errResp.StatusCode, errResp)
			return
		}

		if !s.db.RoomIdExists(roomId) {
			break
		}
	}

	newRoom, err := s.db.CreateRoom(database.CreateRoomParams{
		RoomId:       roomId,
		HostUsername: req.Username,
		VideoUrl:     embedURL,
		VideoType:    videoType,
	})
	if err != nil {
		s.log.Println("create room:", err)
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.writeJson(w, http.StatusCreated, CreateRoomResponse{
		RoomId:    newRoom.RoomId,
		VideoUrl:  newRoom.VideoUrl,
		VideoType: newRoom.VideoType,
		ShareLink: "/room/" + newRoom.RoomId,
	})
}

func (s *WatchPartyApp) getRoom(w http.ResponseWriter, r *http.Request) {
	roomId := r.PathValue("roomId")
	if roomId == "" {
		errResp := NewBadRequestError("")
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	room, err := s.db.GetActiveRoom(roomId)
	if err != nil {
		var errResp *ApiError
		if errors.Is(err, sql.ErrNoRows) {
			errResp = NewNotFoundError("Room not found or inactive")
		} else {
			errResp = NewInternalServerError(err)
		}
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.writeJson(w, http.StatusOK, RoomResponse{
		RoomId:       room.RoomId,
		HostUsername: room.HostUsername,
		VideoUrl:     room.VideoUrl,
		VideoType:    room.VideoType,
		IsActive:     room.IsActive,
	})
}

func (s *WatchPartyApp) serveWs(w http.ResponseWriter, r *http.Request) {
	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			// only allow connections from allowed origins
			origin := r.Header.Get("Origin")
			if origin == "" {
				// if no origin header, allow the request
				return true
			}

			return slices.Contains(s.allowedOrigins, origin)
		},
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Println("error upgrading connection:", err)
		return
	}

	client := server.NewClient(conn, s.ws, s.log)

	s.ws.RegisterClient(client)
	go client.Write()
	go client.Read()
}
