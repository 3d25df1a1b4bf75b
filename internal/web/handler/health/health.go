// Package health serves the liveness endpoint.
package health

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/boxwatch/boxwatch/internal/config"
	"github.com/boxwatch/boxwatch/internal/web/handler"
)

// Path is the health route below the API prefix.
const Path = "/health"

const pingTimeout = 2 * time.Second

// Service is the health handler service.
type Service struct {
	cfg   *config.Config
	db    *gorm.DB
	alive func() bool
}

// Init registers GET /api/health. alive reports false while the server drains on shutdown.
func (s *Service) Init(app *fiber.App, cfg *config.Config, db *gorm.DB, alive func() bool) error {
	if app == nil || cfg == nil || db == nil {
		return handler.ErrNilACD
	}

	s.cfg = cfg
	s.db = db
	s.alive = alive

	app.Get(handler.APIPrefix+Path, s.Get)

	return nil
}

// Get reports liveness and which database the server writes to.
func (s *Service) Get(c *fiber.Ctx) error {
	if s.alive != nil && !s.alive() {
		return handler.Fail(c, fiber.StatusServiceUnavailable, "shutting down")
	}

	sqlDB, err := s.db.DB()
	if err == nil {
		ctx, cancel := context.WithTimeout(c.UserContext(), pingTimeout)
		defer cancel()

		err = sqlDB.PingContext(ctx)
	}

	if err != nil {
		return handler.Fail(c, fiber.StatusServiceUnavailable, "database unavailable: "+err.Error())
	}

	db := s.cfg.DB.GormEngine
	if db == config.EngineSQLite {
		db += ":" + s.cfg.DB.Path
	}

	return c.JSON(fiber.Map{"ok": true, "db": db})
}
