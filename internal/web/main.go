// Package web wires the fiber application: middleware, the REST handlers, the telemetry websocket
// and the metrics endpoint.
package web

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/boxwatch/boxwatch/internal/config"
	"github.com/boxwatch/boxwatch/internal/fanout"
	fiberlog "github.com/boxwatch/boxwatch/internal/logger/adapter/fiber"
	"github.com/boxwatch/boxwatch/internal/telemetry"
	"github.com/boxwatch/boxwatch/internal/web/handler"
	"github.com/boxwatch/boxwatch/internal/web/handler/bootstrap"
	"github.com/boxwatch/boxwatch/internal/web/handler/boxes"
	"github.com/boxwatch/boxwatch/internal/web/handler/events"
	"github.com/boxwatch/boxwatch/internal/web/handler/health"
	"github.com/boxwatch/boxwatch/internal/web/handler/history"
	"github.com/boxwatch/boxwatch/internal/web/handler/sensor"
	"github.com/boxwatch/boxwatch/internal/web/handler/settings"
	"github.com/boxwatch/boxwatch/internal/web/handler/users"
)

// MetricsPath serves the prometheus exposition.
const MetricsPath = "/metrics"

// DefaultBodyLimit applies when Webserver.BodyLimit is not set.
const DefaultBodyLimit = 1024 * 1024

// Service represents the web service.
type Service struct {
	App          *fiber.App
	cfg          *config.Config
	fastShutDown bool
	alive        atomic.Bool
	db           *gorm.DB
	telemetry    *telemetry.Server
}

// Start starts the web service on the given address and blocks until the server stops.
func (s *Service) Start(addr string) error {
	var doneFiber = make(chan bool)

	go func() {
		if err := s.App.Listen(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Msgf("fiber listen error: %v", err)
		}

		doneFiber <- true
	}()

	<-doneFiber // wait for fiber to stop

	return nil
}

// Alive reports whether the service still accepts traffic.
func (s *Service) Alive() bool {
	return s.alive.Load()
}

// WaitShutdown waits for SIGINT or SIGTERM and shuts the server down gracefully.
func (s *Service) WaitShutdown() {
	irqSig := make(chan os.Signal, 1)
	signal.Notify(irqSig, syscall.SIGINT, syscall.SIGTERM)

	sig := <-irqSig
	log.Info().Msgf("shutdown request (signal: %v)", sig)

	s.Shutdown()
}

// Shutdown fails the health check for ShutDownTime seconds, then stops the http server.
func (s *Service) Shutdown() {
	s.alive.Store(false)

	// Graceful shutdown for reverse proxies: health returns 503 so the LB drops this instance.
	if !s.fastShutDown {
		log.Info().Msgf(
			"graceful shutdown: return 503 while %d seconds to let LB to remove this pod from active targets",
			s.cfg.Webserver.ShutDownTime,
		)

		time.Sleep(time.Duration(s.cfg.Webserver.ShutDownTime) * time.Second)
	}

	log.Info().Msg("stopping http server ...")

	if err := s.App.Shutdown(); err != nil {
		log.Error().Err(err).Msg("")
	}

	log.Info().Msg("http server was stopped ... good bye...")
}

// cleanPath collapses duplicate slashes so //api//boxes routes like /api/boxes.
func cleanPath(c *fiber.Ctx) error {
	p := c.Path()
	if strings.Contains(p, "//") {
		for strings.Contains(p, "//") {
			p = strings.ReplaceAll(p, "//", "/")
		}

		c.Path(p)
	}

	return c.Next()
}

// New creates the web service. pub receives accepted readings and events; nil disables fan-out.
func New(cfg *config.Config, db *gorm.DB, pub fanout.Publisher) (*Service, error) {
	if cfg == nil {
		return nil, errors.New("config cannot be nil")
	}

	if db == nil {
		return nil, errors.New("db cannot be nil")
	}

	if pub == nil {
		pub = fanout.Nop{}
	}

	bodyLimit := cfg.Webserver.BodyLimit
	if bodyLimit <= 0 {
		bodyLimit = DefaultBodyLimit
	}

	// create fiber app
	app := fiber.New(
		fiber.Config{
			ReadBufferSize: 8192,
			AppName:        cfg.Title,
			CaseSensitive:  true,
			Prefork:        false,
			Immutable:      true,
			BodyLimit:      bodyLimit,
			ErrorHandler:   handler.ErrorHandler,
		},
	)

	if !cfg.Webserver.DisableRecover {
		app.Use(recover.New(recover.Config{EnableStackTrace: cfg.DevMode}))
	}

	if cfg.Webserver.CleanPath {
		app.Use(cleanPath)
	}

	app.Use(fiberlog.New(fiberlog.Config{Config: cfg.Log}))

	if cfg.Webserver.AllowOrigins != "" {
		app.Use(cors.New(cors.Config{AllowOrigins: cfg.Webserver.AllowOrigins}))
	}

	service := &Service{
		cfg:          cfg,
		App:          app,
		db:           db,
		fastShutDown: cfg.DevMode,
		telemetry:    telemetry.NewServer(db, pub, cfg.Telemetry),
	}
	service.alive.Store(true)

	app.Get(MetricsPath, adaptor.HTTPHandler(promhttp.Handler()))

	wsPath := cfg.Telemetry.Path
	if wsPath == "" {
		wsPath = telemetry.DefaultPath
	}

	service.telemetry.Register(app, wsPath)

	// handlers are per app, never package singletons
	inits := []struct {
		name string
		init func() error
	}{
		{"health", func() error { return (&health.Service{}).Init(app, cfg, db, service.Alive) }},
		{"bootstrap", func() error { return (&bootstrap.Service{}).Init(app, cfg, db) }},
		{"users", func() error { return (&users.Service{}).Init(app, cfg, db) }},
		{"boxes", func() error { return (&boxes.Service{}).Init(app, cfg, db) }},
		{"settings", func() error { return (&settings.Service{}).Init(app, cfg, db) }},
		{"history", func() error { return (&history.Service{}).Init(app, cfg, db) }},
		{"events", func() error { return (&events.Service{}).Init(app, cfg, db, pub) }},
		{"sensor", func() error { return (&sensor.Service{}).Init(app, cfg, db, service.telemetry) }},
	}

	for _, h := range inits {
		if err := h.init(); err != nil {
			return nil, fmt.Errorf("init %s handler: %w", h.name, err)
		}
	}

	app.Use(func(c *fiber.Ctx) error {
		return handler.Fail(c, fiber.StatusNotFound, "not found: "+c.Method()+" "+c.Path())
	})

	return service, nil
}
