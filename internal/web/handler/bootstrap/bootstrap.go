// Package bootstrap serves the full client snapshot.
package bootstrap

import (
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/boxwatch/boxwatch/internal/config"
	"github.com/boxwatch/boxwatch/internal/db/controller/box"
	"github.com/boxwatch/boxwatch/internal/db/controller/event"
	"github.com/boxwatch/boxwatch/internal/db/controller/setting"
	"github.com/boxwatch/boxwatch/internal/db/controller/user"
	"github.com/boxwatch/boxwatch/internal/db/models"
	"github.com/boxwatch/boxwatch/internal/web/handler"
)

// Path is the bootstrap route below the API prefix.
const Path = "/bootstrap"

// Response is the snapshot a client replaces its local state with.
type Response struct {
	OK       bool                  `json:"ok"`
	Users    []models.User         `json:"users"`
	Boxes    []models.Box          `json:"boxes"`
	Settings models.SettingsView   `json:"settings"`
	History  []models.HistoryEntry `json:"history"`
}

// Service is the bootstrap handler service.
type Service struct {
	handler.Service
	db *gorm.DB
}

// Init registers GET /api/bootstrap.
func (s *Service) Init(app *fiber.App, cfg *config.Config, db *gorm.DB) error {
	if app == nil || cfg == nil || db == nil {
		return handler.ErrNilACD
	}

	s.db = db

	app.Get(handler.APIPrefix+Path, s.Get)

	return nil
}

// Get returns users, boxes, settings and the newest history rows.
func (s *Service) Get(c *fiber.Ctx) error {
	ctx := c.UserContext()

	users, err := user.List(ctx, s.db)
	if err != nil {
		return handler.FailErr(c, err)
	}

	boxes, err := box.List(ctx, s.db)
	if err != nil {
		return handler.FailErr(c, err)
	}

	settings, err := setting.Get(ctx, s.db)
	if err != nil {
		return handler.FailErr(c, err)
	}

	history, err := event.ListHistory(ctx, s.db, event.Query{Limit: event.SnapshotLimit})
	if err != nil {
		return handler.FailErr(c, err)
	}

	return c.JSON(Response{
		OK:       true,
		Users:    users,
		Boxes:    boxes,
		Settings: settings.View(),
		History:  history,
	})
}
