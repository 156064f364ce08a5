package config

import (
	"fmt"
	"time"
)

const defaultRoomTTL = 24 * time.Hour

type Config struct {
	ServerAddr     string
	DatabaseDSN    string
	AllowedOrigins []string
	// ClientDomain is the domain serving the web client, required by
	// embed providers that pin playback to a parent domain.
	ClientDomain string
	// RoomTTL is the inactivity window after which the store deactivates
	// a room.
	RoomTTL time.Duration
}

func NewConfig(serverAddr, databaseDSN, clientDomain string, allowedOrigins []string) (*Config, error) {
	if serverAddr == "" {
		return nil, fmt.Errorf("server address cannot be empty")
	}
	if databaseDSN == "" {
		return nil, fmt.Errorf("database DSN cannot be empty")
	}
	if clientDomain == "" {
		clientDomain = "localhost"
	}

	return &Config{
		ServerAddr:     serverAddr,
		DatabaseDSN:    databaseDSN,
		AllowedOrigins: allowedOrigins,
		ClientDomain:   clientDomain,
		RoomTTL:        defaultRoomTTL,
	}, nil
}
