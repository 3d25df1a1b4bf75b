// Package users serves the resident list.
package users

import (
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/boxwatch/boxwatch/internal/config"
	"github.com/boxwatch/boxwatch/internal/db/controller/user"
	"github.com/boxwatch/boxwatch/internal/web/handler"
)

// Path is the users route below the API prefix.
const Path = "/users"

// Service is the users handler service.
type Service struct {
	handler.Service
	db *gorm.DB
}

// Init registers GET /api/users.
func (s *Service) Init(app *fiber.App, cfg *config.Config, db *gorm.DB) error {
	if app == nil || cfg == nil || db == nil {
		return handler.ErrNilACD
	}

	s.db = db

	app.Get(handler.APIPrefix+Path, s.List)

	return nil
}

// List returns every user ordered by id.
func (s *Service) List(c *fiber.Ctx) error {
	rows, err := user.List(c.UserContext(), s.db)
	if err != nil {
		return handler.FailErr(c, err)
	}

	return c.JSON(rows)
}
