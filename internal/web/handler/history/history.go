// Package history serves event history as JSON or as an XLSX workbook.
package history

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/boxwatch/boxwatch/internal/config"
	"github.com/boxwatch/boxwatch/internal/db/controller/event"
	"github.com/boxwatch/boxwatch/internal/export"
	"github.com/boxwatch/boxwatch/internal/web/handler"
)

const (
	// Path is the history route below the API prefix.
	Path = "/history"
	// ExportPath is the workbook export route below Path.
	ExportPath = "/export"
)

// Service is the history handler service.
type Service struct {
	handler.Service
	db *gorm.DB
}

// Init registers GET /api/history and GET /api/history/export.
func (s *Service) Init(app *fiber.App, cfg *config.Config, db *gorm.DB) error {
	if app == nil || cfg == nil || db == nil {
		return handler.ErrNilACD
	}

	s.db = db

	app.Route(handler.APIPrefix+Path, func(router fiber.Router) {
		router.Get(handler.RouterRootPath, s.List)
		router.Get(ExportPath, s.Export)
	})

	return nil
}

func query(c *fiber.Ctx) event.Query {
	return event.Query{
		BoxID: c.Query("boxId"),
		Limit: c.QueryInt("limit", 0),
	}
}

// List returns history newest first, optionally filtered by boxId and bounded by limit.
func (s *Service) List(c *fiber.Ctx) error {
	rows, err := event.ListHistory(c.UserContext(), s.db, query(c))
	if err != nil {
		return handler.FailErr(c, err)
	}

	return c.JSON(rows)
}

// Export returns the same rows as List as an XLSX attachment.
func (s *Service) Export(c *fiber.Ctx) error {
	rows, err := event.ListHistory(c.UserContext(), s.db, query(c))
	if err != nil {
		return handler.FailErr(c, err)
	}

	data, err := export.History(rows)
	if err != nil {
		return handler.FailErr(c, err)
	}

	name := fmt.Sprintf("history-%s.xlsx", time.Now().UTC().Format("20060102-150405"))

	c.Attachment(name)
	c.Set(fiber.HeaderContentType, export.ContentType)

	return c.Send(data)
}
