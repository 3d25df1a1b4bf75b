// Package boxes serves the box list with derived statuses.
package boxes

import (
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/boxwatch/boxwatch/internal/config"
	"github.com/boxwatch/boxwatch/internal/db/controller/box"
	"github.com/boxwatch/boxwatch/internal/web/handler"
)

// Path is the boxes route below the API prefix.
const Path = "/boxes"

// Service is the boxes handler service.
type Service struct {
	handler.Service
	db *gorm.DB
}

// Init registers GET /api/boxes.
func (s *Service) Init(app *fiber.App, cfg *config.Config, db *gorm.DB) error {
	if app == nil || cfg == nil || db == nil {
		return handler.ErrNilACD
	}

	s.db = db

	app.Get(handler.APIPrefix+Path, s.List)

	return nil
}

// List returns every box ordered by id.
func (s *Service) List(c *fiber.Ctx) error {
	rows, err := box.List(c.UserContext(), s.db)
	if err != nil {
		return handler.FailErr(c, err)
	}

	return c.JSON(rows)
}
