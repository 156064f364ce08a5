package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/couchsync/couchsync/internal/api"
	"github.com/couchsync/couchsync/internal/config"
	"github.com/couchsync/couchsync/internal/database"
	"github.com/couchsync/couchsync/internal/server"
	"github.com/couchsync/couchsync/internal/stats"
	_ "github.com/lib/pq"
)

const expirySweepInterval = time.Hour

type stringSliceFlag []string

func (s *stringSliceFlag) String() string {
	return strings.Join(*s, ",")
}

func (s *stringSliceFlag) Set(value string) error {
	*s = append(*s, strings.Split(value, ",")...)
	return nil
}

var (
	addr           string
	dsn            string
	clientDomain   string
	allowedOrigins stringSliceFlag
)

func main() {
	flag.StringVar(&addr, "addr", "localhost:8000", "server address")
	flag.StringVar(&dsn, "dsn", "host=localhost user=postgres password=postgres dbname=postgres sslmode=disable", "database connection string")
	flag.StringVar(&clientDomain, "client-domain", "localhost", "domain serving the web client, used for provider embeds")
	flag.Var(&allowedOrigins, "allowed-origins", "comma-separated list of allowed origins for CORS")
	flag.Parse()

	logger := log.New(os.Stderr, "[couchsync] ", log.LstdFlags)

	cfg, err := config.NewConfig(addr, dsn, clientDomain, allowedOrigins)
	if err != nil {
		logger.Fatal("config:", err)
	}

	dbConn, err := database.NewPgRepository(cfg.DatabaseDSN)
	if err != nil {
		logger.Fatal("db open:", err)
	}
	defer func() {
		if err := dbConn.Close(); err != nil {
			logger.Fatal("db close:", err)
		}
	}()

	mux := http.NewServeMux()

	statsUpdater := stats.NewStatsUpdater(mux)

	watchServer, err := server.NewWatchServer(logger, dbConn, statsUpdater)
	if err != nil {
		logger.Fatal("new watch server:", err)
	}

	srv := api.NewWatchPartyApp(mux, logger, watchServer, dbConn, cfg)

	statsUpdater.Run()
	defer statsUpdater.Stop()

	go watchServer.Run()

	// stale rooms expire after the configured inactivity window
	sweeperStop := make(chan struct{})
	go func() {
		ticker := time.NewTicker(expirySweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				n, err := dbConn.DeactivateExpiredRooms(cfg.RoomTTL)
				if err != nil {
					logger.Println("deactivate expired rooms:", err)
					continue
				}
				if n > 0 {
					logger.Printf("deactivated %d expired rooms", n)
				}
			case <-sweeperStop:
				return
			}
		}
	}()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigs:
		logger.Printf("received signal: %s\n", sig)
	case err := <-errCh:
		logger.Println("server:", err)
	}

	close(sweeperStop)

	shutDownCtx, cancel := context.WithTimeout(
		context.Background(),
		10*time.Second,
	)
	defer cancel()

	if err := srv.Shutdown(shutDownCtx); err != nil {
		logger.Fatalln("HTTP server shutdown:", err)
	}

	logger.Println("shutting down watch server...")
	if err := watchServer.Shutdown(shutDownCtx); err != nil {
		logger.Fatalln("watch server shutdown:", err)
	}

	logger.Println("shutdown complete")
}
