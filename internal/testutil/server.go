// Package testutil runs a complete boxwatch server on a loopback port for client side tests.
package testutil

import (
	"context"
	"net"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/boxwatch/boxwatch/internal/config"
	"github.com/boxwatch/boxwatch/internal/daemon"
	"github.com/boxwatch/boxwatch/internal/web"
)

// Server is a running test server.
type Server struct {
	URL string
	DB  *gorm.DB
	Cfg *config.Config
	Web *web.Service
}

// Config returns a config with an in-memory seeded sqlite database.
func Config() *config.Config {
	return &config.Config{
		DevMode:   true,
		Title:     "boxwatch test",
		DB:        config.DB{GormEngine: config.EngineSQLite, Path: ":memory:"},
		Telemetry: config.Telemetry{Path: "/ws"},
	}
}

// StartServer migrates and seeds a fresh database and serves it until the test ends.
func StartServer(t testing.TB) *Server {
	t.Helper()

	cfg := Config()

	db, err := daemon.Open(cfg)
	require.NoError(t, err)
	require.NoError(t, daemon.Migrate(context.Background(), db))

	ws, err := web.New(cfg, db, nil)
	require.NoError(t, err)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	go func() { _ = ws.App.Listener(ln) }()

	t.Cleanup(func() { _ = ws.App.Shutdown() })

	return &Server{
		URL: "http://" + ln.Addr().String(),
		DB:  db,
		Cfg: cfg,
		Web: ws,
	}
}
