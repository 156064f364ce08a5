package api

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/couchsync/couchsync/internal/config"
	"github.com/couchsync/couchsync/internal/database"
	"github.com/couchsync/couchsync/internal/server"
	"github.com/gorilla/handlers"
	"github.com/teris-io/shortid"
)

const roomIdLength = 6

type WatchPartyApp struct {
	log            *log.Logger
	db             database.Repository
	ws             *server.WatchServer
	mux            *http.Server
	allowedOrigins []string
	clientDomain   string
	// generateRoomId is swappable in tests
	generateRoomId func() (string, error)
}

func NewWatchPartyApp(mux *http.ServeMux, logger *log.Logger, ws *server.WatchServer, db database.Repository, cfg *config.Config) *WatchPartyApp {
	s := &WatchPartyApp{
		log:            logger,
		db:             db,
		ws:             ws,
		allowedOrigins: cfg.AllowedOrigins,
		clientDomain:   cfg.ClientDomain,
		generateRoomId: generateRoomId,
	}

	mux.HandleFunc("POST /api/rooms", s.createRoom)
	mux.HandleFunc("GET /api/rooms/{roomId}", s.getRoom)
	mux.HandleFunc("GET /ws", s.serveWs)

	h := handlers.CORS(
		handlers.MaxAge(3600),
		handlers.AllowedOrigins(cfg.AllowedOrigins),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Origin", "Content-Type", "Accept"}),
		handlers.AllowCredentials(),
	)(mux)

	h = s.errorHandler(h)

	srv := &http.Server{
		Addr:    cfg.ServerAddr,
		Handler: h,
	}

	s.mux = srv
	return s
}

// generateRoomId derives a 6-character room code from a shortid. Collisions
// are handled by the caller re-generating while the code is taken.
func generateRoomId() (string, error) {
	sid, err := shortid.Generate()
	if err != nil {
		return "", err
	}

	if len(sid) > roomIdLength {
		sid = sid[:roomIdLength]
	}

	return sid, nil
}

func (s *WatchPartyApp) Start() error {
	s.log.Printf("starting server on %s\n", s.mux.Addr)
	return s.mux.ListenAndServe()
}

func (s *WatchPartyApp) Shutdown(ctx context.Context) error {
	s.log.Println("shutting down HTTP server...")
	if err := s.mux.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	return nil
}
