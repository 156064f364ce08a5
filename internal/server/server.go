package server

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/couchsync/couchsync/internal/database"
	"github.com/couchsync/couchsync/internal/stats"
)

const (
	StatActiveRooms      = "ActiveRooms"
	StatConnectedClients = "ConnectedClients"
	StatMessagesSent     = "MessagesSent"
	StatReactionsSent    = "ReactionsSent"
)

type unloadRoomRequest struct {
	roomId  string
	deleted bool
}

// WatchServer is the process-wide registry of active rooms. The rooms map
// is touched only on the Run goroutine; joins and unloads funnel through
// channels, so room lifecycle decisions are serialized.
type WatchServer struct {
	log            *log.Logger
	db             database.Repository
	stats          stats.Provider
	clients        map[*Client]struct{}
	clientsLock    sync.Mutex
	rooms          map[string]*Room
	joinChan       chan *ClientMessage
	unloadRoomChan chan unloadRoomRequest
	gracePeriod    time.Duration
	stop           chan struct{}
	done           chan struct{}
}

func NewWatchServer(logger *log.Logger, db database.Repository, sp stats.Provider) (*WatchServer, error) {
	ws := &WatchServer{
		log:            logger,
		db:             db,
		stats:          sp,
		clients:        make(map[*Client]struct{}),
		rooms:          make(map[string]*Room),
		joinChan:       make(chan *ClientMessage, 256),
		unloadRoomChan: make(chan unloadRoomRequest, 256),
		gracePeriod:    roomGracePeriod,
		stop:           make(chan struct{}),
		done:           make(chan struct{}),
	}

	sp.RegisterMetric(StatActiveRooms)
	sp.RegisterMetric(StatConnectedClients)
	sp.RegisterMetric(StatMessagesSent)
	sp.RegisterMetric(StatReactionsSent)

	return ws, nil
}

func (ws *WatchServer) Run() {
	for {
		select {
		case joinMsg := <-ws.joinChan:
			ws.handleJoin(joinMsg)
		case req := <-ws.unloadRoomChan:
			ws.handleUnload(req)
		case <-ws.stop:
			ws.log.Println("shutting down rooms")
			for _, r := range ws.rooms {
				done := make(chan bool)
				r.exit <- exitReq{done: done}
				<-done
			}

			close(ws.done)
			return
		}
	}
}

// handleJoin admits a connection into a room, activating the room first if
// it is not yet resident. Activation validates the room against the store;
// a missing or inactive record refuses the join.
func (ws *WatchServer) handleJoin(joinMsg *ClientMessage) {
	roomId := joinMsg.JoinRoom.RoomId

	if room, ok := ws.rooms[roomId]; ok {
		select {
		case room.joinChan <- joinMsg:
		default:
			ws.log.Printf("join channel full on room %q", roomId)
			joinMsg.client.queueMessage(ErrServerBusy())
		}
		return
	}

	dbRoom, err := ws.db.GetActiveRoom(roomId)
	if err != nil {
		ws.log.Printf("join refused for room %q: %v", roomId, err)
		joinMsg.client.queueMessage(ErrRoomNotFound())
		return
	}

	room := &Room{
		roomId:        dbRoom.RoomId,
		hostUsername:  dbRoom.HostUsername,
		videoUrl:      dbRoom.VideoUrl,
		videoType:     dbRoom.VideoType,
		ws:            ws,
		log:           ws.log,
		joinChan:      make(chan *ClientMessage, 256),
		leaveChan:     make(chan *ClientMessage, 256),
		clientMsgChan: make(chan *ClientMessage, 256),
		sessions:      make(map[*Client]*session),
		gracePeriod:   ws.gracePeriod,
		exit:          make(chan exitReq),
	}

	ws.rooms[room.roomId] = room
	ws.stats.Incr(StatActiveRooms)
	room.joinChan <- joinMsg

	go room.run()
}

func (ws *WatchServer) handleUnload(req unloadRoomRequest) {
	room, ok := ws.rooms[req.roomId]
	if !ok {
		return
	}

	done := make(chan bool)
	room.exit <- exitReq{deleted: req.deleted, done: done}
	if <-done {
		delete(ws.rooms, req.roomId)
		ws.stats.Decr(StatActiveRooms)
	}
}

func (ws *WatchServer) RegisterClient(c *Client) {
	ws.clientsLock.Lock()
	defer ws.clientsLock.Unlock()

	ws.clients[c] = struct{}{}
	ws.stats.Incr(StatConnectedClients)
}

func (ws *WatchServer) DeregisterClient(c *Client) {
	ws.clientsLock.Lock()
	defer ws.clientsLock.Unlock()

	if _, ok := ws.clients[c]; ok {
		delete(ws.clients, c)
		ws.stats.Decr(StatConnectedClients)
	}
}

func (ws *WatchServer) Shutdown(ctx context.Context) error {
	ws.log.Println("received shutdown signal")

	close(ws.stop)

	select {
	case <-ws.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
