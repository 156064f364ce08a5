package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewConfig(t *testing.T) {
	var (
		addr   = "localhost:8080"
		dsn    = "host=localhost user=postgres password=postgres dbname=postgres sslmode=disable"
		domain = "watch.example.com"
		orig   = []string{"http://localhost:3000"}
	)

	tcases := []struct {
		name   string
		addr   string
		dsn    string
		domain string
		orig   []string
		err    bool
	}{
		{
			name:   "valid config",
			addr:   addr,
			dsn:    dsn,
			domain: domain,
			orig:   orig,
			err:    false,
		},
		{
			name:   "empty address",
			addr:   "",
			dsn:    dsn,
			domain: domain,
			orig:   orig,
			err:    true,
		},
		{
			name:   "empty dsn",
			addr:   addr,
			dsn:    "",
			domain: domain,
			orig:   orig,
			err:    true,
		},
		{
			name:   "empty client domain falls back to localhost",
			addr:   addr,
			dsn:    dsn,
			domain: "",
			orig:   orig,
			err:    false,
		},
	}

	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			cfg, err := NewConfig(tc.addr, tc.dsn, tc.domain, tc.orig)
			if tc.err {
				assert.Error(t, err, "expected an error")
				assert.Nil(t, cfg, "expected no config on error")
				return
			}

			assert.NoError(t, err, "expected no error")
			assert.Equal(t, tc.addr, cfg.ServerAddr)
			assert.Equal(t, tc.dsn, cfg.DatabaseDSN)
			assert.Equal(t, tc.orig, cfg.AllowedOrigins)
			assert.Equal(t, 24*time.Hour, cfg.RoomTTL, "expected the default room TTL")
			if tc.domain == "" {
				assert.Equal(t, "localhost", cfg.ClientDomain, "expected the localhost fallback")
			} else {
				assert.Equal(t, tc.domain, cfg.ClientDomain)
			}
		})
	}
}
